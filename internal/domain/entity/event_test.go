package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEventType(t *testing.T) {
	testCases := []struct {
		raw      string
		expected EventType
	}{
		{"transaction.success", EventSuccess},
		{"payment.success", EventSuccess},
		{"charge.completed", EventSuccess},
		{"COMPLETED", EventSuccess},
		{"SUCCESS", EventSuccess},
		{"transaction.failed", EventFailure},
		{"payment.failed", EventFailure},
		{"charge.failed", EventFailure},
		{"FAILED", EventFailure},
		{"CANCELLED", EventFailure},
		{"REJECTED", EventFailure},
		{"payment.created", EventOther},
		{"payment.updated", EventOther},
		{"", EventOther},
		{"something.brand.new", EventOther},
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			assert.Equal(t, tc.expected, NormalizeEventType(tc.raw))
		})
	}
}

func TestStatusForEvent(t *testing.T) {
	testCases := []struct {
		event    EventType
		status   TransactionStatus
		terminal bool
	}{
		{EventSuccess, StatusSuccess, true},
		{EventFailure, StatusFailed, true},
		{EventCancelled, StatusCancelled, true},
		{EventOther, "", false},
	}

	for _, tc := range testCases {
		t.Run(string(tc.event), func(t *testing.T) {
			status, terminal := StatusForEvent(tc.event)
			assert.Equal(t, tc.terminal, terminal)
			assert.Equal(t, tc.status, status)
		})
	}
}

func TestEventForStatus(t *testing.T) {
	assert.Equal(t, EventSuccess, EventForStatus(StatusSuccess))
	assert.Equal(t, EventFailure, EventForStatus(StatusFailed))
	assert.Equal(t, EventCancelled, EventForStatus(StatusCancelled))
	assert.Equal(t, EventOther, EventForStatus(StatusPending))
	assert.Equal(t, EventOther, EventForStatus(StatusTimeout))
}

func TestNormalizeProviderStatus(t *testing.T) {
	testCases := []struct {
		raw      string
		expected TransactionStatus
	}{
		{"COMPLETED", StatusSuccess},
		{"SUCCESS", StatusSuccess},
		{"SUCCESSFUL", StatusSuccess},
		{"FAILED", StatusFailed},
		{"REJECTED", StatusFailed},
		{"CANCELLED", StatusCancelled},
		{"VOIDED", StatusCancelled},
		{"PENDING", StatusPending},
		{"PROCESSING", StatusPending},
		{"QUEUED", StatusPending},
		// unknown provider vocabulary never resolves a transaction
		{"SOMETHING_NEW", StatusPending},
		{"", StatusPending},
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			assert.Equal(t, tc.expected, NormalizeProviderStatus(tc.raw))
		})
	}
}
