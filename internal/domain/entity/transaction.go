package entity

import (
	"fmt"
	"strings"
	"time"

	errs "github.com/maryreaky/betrix-payments/internal/domain/error"
	tport "github.com/maryreaky/betrix-payments/internal/domain/port/core"
)

// TransactionStatus defines possible status values for a transaction
type TransactionStatus string

// Transaction statuses. Every status except StatusPending is terminal.
const (
	StatusPending   TransactionStatus = "PENDING"
	StatusSuccess   TransactionStatus = "SUCCESS"
	StatusFailed    TransactionStatus = "FAILED"
	StatusTimeout   TransactionStatus = "TIMEOUT"
	StatusCancelled TransactionStatus = "CANCELLED"
)

// IsTerminal reports whether the status can never change again
func (s TransactionStatus) IsTerminal() bool {
	return s != StatusPending && s != ""
}

// IsValid reports whether the status belongs to the known vocabulary
func (s TransactionStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusSuccess, StatusFailed, StatusTimeout, StatusCancelled:
		return true
	}
	return false
}

// DefaultCurrency is used when the initiation request carries no currency
const DefaultCurrency = "KES"

// Transaction represents a money-movement request tracked from creation
// through exactly one terminal outcome
type Transaction struct {
	ID                    uint64            // Internal identifier
	Reference             string            // Caller-generated unique identifier, immutable
	ProviderTransactionID string            // Assigned by the provider once known, empty until then
	Amount                string            // Amount as a string with 2 decimal places
	AmountInCents         int64             // Amount converted to cents for precise handling
	Currency              string            // ISO currency code
	Phone                 string            // Counterparty destination identifier
	Status                TransactionStatus // Current lifecycle status
	Attempts              int               // Count of poll attempts made
	NextPollAt            *time.Time        // When the poller should next query the provider
	CreatedAt             time.Time         // When the transaction was created
	UpdatedAt             time.Time         // Bumped on every transition
	RawEvidence           string            // Last raw payload that produced the current status
	FailureReason         string            // Reason when the outcome is not success
}

// NewTransaction creates a new pending transaction with basic validation
func NewTransaction(
	reference string,
	amount string,
	currency string,
	phone string,
	timeProvider tport.TimeProvider,
) (*Transaction, error) {
	if reference == "" {
		return nil, errs.ErrInvalidReference
	}
	if !isValidPhone(phone) {
		return nil, fmt.Errorf("%w: %s", errs.ErrInvalidPhone, phone)
	}

	amountInCents, err := ValidateAndConvertAmount(amount)
	if err != nil {
		return nil, err
	}
	if amountInCents == 0 {
		return nil, fmt.Errorf("%w: amount must be positive", errs.ErrInvalidAmount)
	}

	if currency == "" {
		currency = DefaultCurrency
	}

	now := timeProvider.Now()
	return &Transaction{
		Reference:     reference,
		Amount:        AmountInCentsToString(amountInCents),
		AmountInCents: amountInCents,
		Currency:      strings.ToUpper(currency),
		Phone:         phone,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Age returns how long the transaction has existed
func (t *Transaction) Age(timeProvider tport.TimeProvider) time.Duration {
	return timeProvider.Since(t.CreatedAt)
}

// IsResolved reports whether the transaction reached a terminal state
func (t *Transaction) IsResolved() bool {
	return t.Status.IsTerminal()
}

// isValidPhone accepts MSISDN-style identifiers: digits only, optionally
// prefixed with "+", between 9 and 15 digits
func isValidPhone(phone string) bool {
	phone = strings.TrimPrefix(phone, "+")
	if len(phone) < 9 || len(phone) > 15 {
		return false
	}
	for _, r := range phone {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
