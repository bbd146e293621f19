package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/maryreaky/betrix-payments/internal/domain/error"
	mockcore "github.com/maryreaky/betrix-payments/mocks/port/core"
)

func TestTransactionStatus(t *testing.T) {
	t.Run("IsTerminal", func(t *testing.T) {
		assert.False(t, StatusPending.IsTerminal())
		assert.True(t, StatusSuccess.IsTerminal())
		assert.True(t, StatusFailed.IsTerminal())
		assert.True(t, StatusTimeout.IsTerminal())
		assert.True(t, StatusCancelled.IsTerminal())
	})

	t.Run("IsValid", func(t *testing.T) {
		for _, s := range []TransactionStatus{StatusPending, StatusSuccess, StatusFailed, StatusTimeout, StatusCancelled} {
			assert.True(t, s.IsValid(), string(s))
		}
		assert.False(t, TransactionStatus("PROCESSING").IsValid())
		assert.False(t, TransactionStatus("").IsValid())
	})
}

func TestNewTransaction(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tp := mockcore.NewFixedTimeProvider(now)

	t.Run("creates a pending transaction", func(t *testing.T) {
		txn, err := NewTransaction("BX0001", "300", "", "254712345678", tp)
		require.NoError(t, err)

		assert.Equal(t, "BX0001", txn.Reference)
		assert.Equal(t, StatusPending, txn.Status)
		assert.Equal(t, "300.00", txn.Amount)
		assert.Equal(t, int64(30000), txn.AmountInCents)
		assert.Equal(t, DefaultCurrency, txn.Currency)
		assert.Equal(t, "254712345678", txn.Phone)
		assert.Equal(t, now, txn.CreatedAt)
		assert.Equal(t, now, txn.UpdatedAt)
		assert.Empty(t, txn.ProviderTransactionID)
		assert.Zero(t, txn.Attempts)
	})

	t.Run("uppercases the currency", func(t *testing.T) {
		txn, err := NewTransaction("BX0002", "10.50", "usd", "254712345678", tp)
		require.NoError(t, err)
		assert.Equal(t, "USD", txn.Currency)
	})

	t.Run("accepts a plus-prefixed phone", func(t *testing.T) {
		txn, err := NewTransaction("BX0003", "10", "", "+254712345678", tp)
		require.NoError(t, err)
		assert.Equal(t, "+254712345678", txn.Phone)
	})

	t.Run("validation failures", func(t *testing.T) {
		testCases := []struct {
			name      string
			reference string
			amount    string
			phone     string
			errorType error
		}{
			{"empty reference", "", "100", "254712345678", errs.ErrInvalidReference},
			{"zero amount", "BX1", "0", "254712345678", errs.ErrInvalidAmount},
			{"negative amount", "BX1", "-5", "254712345678", errs.ErrNegativeAmount},
			{"malformed amount", "BX1", "abc", "254712345678", errs.ErrInvalidAmount},
			{"phone too short", "BX1", "100", "12345", errs.ErrInvalidPhone},
			{"phone too long", "BX1", "100", "1234567890123456", errs.ErrInvalidPhone},
			{"phone with letters", "BX1", "100", "25471234567a", errs.ErrInvalidPhone},
		}

		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := NewTransaction(tc.reference, tc.amount, "", tc.phone, tp)
				assert.ErrorIs(t, err, tc.errorType)
			})
		}
	})
}

func TestTransactionAge(t *testing.T) {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tp := mockcore.NewFixedTimeProvider(created)

	txn, err := NewTransaction("BX0004", "50", "", "254712345678", tp)
	require.NoError(t, err)

	tp.Advance(45 * time.Minute)
	assert.Equal(t, 45*time.Minute, txn.Age(tp))
}

func TestTransactionIsResolved(t *testing.T) {
	txn := &Transaction{Status: StatusPending}
	assert.False(t, txn.IsResolved())

	txn.Status = StatusSuccess
	assert.True(t, txn.IsResolved())
}
