package error

import (
	"errors"
	"fmt"
	"testing"
)

func TestBaseErrorTypes(t *testing.T) {
	// Test to ensure all base error types are defined properly
	if ErrInvalidAmount.Error() != "invalid amount format" {
		t.Errorf("ErrInvalidAmount has unexpected message: %s", ErrInvalidAmount.Error())
	}
	if ErrInvalidSignature.Error() != "invalid webhook signature" {
		t.Errorf("ErrInvalidSignature has unexpected message: %s", ErrInvalidSignature.Error())
	}
	if ErrTransactionNotFound.Error() != "transaction not found" {
		t.Errorf("ErrTransactionNotFound has unexpected message: %s", ErrTransactionNotFound.Error())
	}
}

func TestErrorCode(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected int
	}{
		{"InvalidAmount", ErrInvalidAmount, 4001},
		{"NegativeAmount", ErrNegativeAmount, 4001},
		{"InvalidPhone", ErrInvalidPhone, 4002},
		{"InvalidReference", ErrInvalidReference, 4003},
		{"DuplicateReference", ErrDuplicateReference, 4004},
		{"InvalidRequest", ErrInvalidRequest, 4005},
		{"TransactionNotFound", ErrTransactionNotFound, 4040},
		{"InvalidSignature", ErrInvalidSignature, 4010},
		{"ProviderUnavailable", ErrProviderUnavailable, 5020},
		{"UnknownError", errors.New("unknown error"), 5000},
		{"WrappedError", fmt.Errorf("wrapped: %w", ErrInvalidPhone), 4002},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			code := ErrorCode(tc.err)
			if code != tc.expected {
				t.Errorf("ErrorCode(%v) = %d, want %d", tc.err, code, tc.expected)
			}
		})
	}
}

func TestProviderError(t *testing.T) {
	baseErr := errors.New("connection refused")
	pe := NewProviderError(KindTransient, "status", 0, "", baseErr)

	// Test Error method
	expectedErrMsg := "provider status call failed (transient, http 0): connection refused"
	if pe.Error() != expectedErrMsg {
		t.Errorf("ProviderError.Error() = %s, want %s", pe.Error(), expectedErrMsg)
	}

	// Test Unwrap method
	if !errors.Is(pe, baseErr) {
		t.Errorf("errors.Is(pe, baseErr) = false, want true")
	}
}

func TestProviderErrorRetryable(t *testing.T) {
	testCases := []struct {
		kind      ProviderErrorKind
		retryable bool
	}{
		{KindTransient, true},
		{KindPermanentRejection, false},
		{KindUnauthorized, false},
	}

	for _, tc := range testCases {
		t.Run(string(tc.kind), func(t *testing.T) {
			pe := NewProviderError(tc.kind, "initiate", 500, "", errors.New("boom"))
			if pe.Retryable() != tc.retryable {
				t.Errorf("Retryable() = %v, want %v", pe.Retryable(), tc.retryable)
			}
		})
	}
}

func TestAsProviderError(t *testing.T) {
	pe := NewProviderError(KindUnauthorized, "status", 401, "denied", errors.New("http 401"))
	wrapped := fmt.Errorf("query failed: %w", pe)

	got, ok := AsProviderError(wrapped)
	if !ok {
		t.Fatal("AsProviderError did not unwrap the provider error")
	}
	if got.Kind != KindUnauthorized || got.StatusCode != 401 {
		t.Errorf("unexpected provider error: %+v", got)
	}

	if _, ok := AsProviderError(errors.New("plain")); ok {
		t.Error("AsProviderError matched a non-provider error")
	}
}

func TestIsTransientProviderError(t *testing.T) {
	transient := NewProviderError(KindTransient, "status", 503, "", errors.New("http 503"))
	permanent := NewProviderError(KindPermanentRejection, "initiate", 422, "", errors.New("http 422"))

	if !IsTransientProviderError(transient) {
		t.Error("transient provider error not recognized as retryable")
	}
	if IsTransientProviderError(permanent) {
		t.Error("permanent rejection reported as retryable")
	}
	if IsTransientProviderError(errors.New("plain")) {
		t.Error("plain error reported as retryable")
	}
}
