package persistence

import (
	"context"
	"time"

	"github.com/maryreaky/betrix-payments/internal/domain/entity"
)

// Resolution describes a terminal transition to be applied through the
// conditional status update
type Resolution struct {
	Status                entity.TransactionStatus
	ProviderTransactionID string // Recorded when non-empty, existing value kept otherwise
	RawEvidence           string
	FailureReason         string
}

// TransactionRepository defines essential methods to interact with
// transaction data
type TransactionRepository interface {
	// Create saves a new transaction
	//
	// Possible errors:
	// - ErrDuplicateReference: if a transaction with the same reference already exists
	// - ErrDatabaseConnection: if the database connection fails
	Create(ctx context.Context, transaction *entity.Transaction) error

	// GetByReference retrieves a transaction by its reference
	//
	// Possible errors:
	// - ErrTransactionNotFound: if no transaction matches
	// - ErrDatabaseConnection: if the database connection fails
	GetByReference(ctx context.Context, reference string) (*entity.Transaction, error)

	// GetByProviderTransactionID retrieves a transaction by the identifier
	// the provider assigned to it
	//
	// Possible errors:
	// - ErrTransactionNotFound: if no transaction matches
	// - ErrDatabaseConnection: if the database connection fails
	GetByProviderTransactionID(ctx context.Context, providerTransactionID string) (*entity.Transaction, error)

	// ReferenceExists reports whether a reference is already taken.
	// Used by the initiator when generating references.
	ReferenceExists(ctx context.Context, reference string) (bool, error)

	// SetProviderTransactionID records the identifier the provider assigned
	// to a transaction, so webhooks carrying only that identifier can
	// correlate. The write applies only while the transaction is PENDING
	// and no identifier has been recorded yet. Returns true when the
	// identifier was written; a false return is not an error.
	SetProviderTransactionID(ctx context.Context, reference string, providerTransactionID string) (bool, error)

	// ResolveIfPending atomically transitions a transaction to a terminal
	// status only if its current status is PENDING. Returns true when the
	// transition was applied, false when another writer already resolved
	// the transaction. A false return is not an error.
	ResolveIfPending(ctx context.Context, reference string, resolution Resolution) (bool, error)

	// MarkPollAttempt records a completed poll attempt and schedules the
	// next one. The write is guarded on PENDING so a racing terminal
	// transition cannot have its poll schedule resurrected; only poll
	// metadata is touched, never the status.
	MarkPollAttempt(ctx context.Context, reference string, attempts int, nextPollAt time.Time) error

	// ListPollDue returns pending transactions whose next poll is due at
	// or before now, oldest first, capped at limit
	ListPollDue(ctx context.Context, now time.Time, limit int) ([]*entity.Transaction, error)

	// ListStalePending returns pending transactions created at or before
	// the given cutoff, oldest first, capped at limit. Used by the
	// reconciliation sweeper.
	ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]*entity.Transaction, error)
}
