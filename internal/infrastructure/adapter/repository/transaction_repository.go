package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/maryreaky/betrix-payments/internal/domain/entity"
	errs "github.com/maryreaky/betrix-payments/internal/domain/error"
	coreport "github.com/maryreaky/betrix-payments/internal/domain/port/core"
	"github.com/maryreaky/betrix-payments/internal/domain/port/persistence"
	"github.com/maryreaky/betrix-payments/internal/infrastructure/adapter/model"
)

// TransactionRepository implements persistence.TransactionRepository using
// GORM. The status transition is a single conditional UPDATE so the engine
// stays correct with multiple concurrent worker processes on the same
// database.
type TransactionRepository struct {
	db              *gorm.DB
	timeProvider    coreport.TimeProvider
	logger          coreport.Logger
	errorClassifier *ErrorClassifier
}

// NewTransactionRepository creates a new TransactionRepository instance
func NewTransactionRepository(db *gorm.DB, timeProvider coreport.TimeProvider, logger coreport.Logger) *TransactionRepository {
	return &TransactionRepository{
		db:              db,
		timeProvider:    timeProvider,
		logger:          logger,
		errorClassifier: NewErrorClassifier(),
	}
}

func (r *TransactionRepository) entityToModel(txn *entity.Transaction) model.Transaction {
	return model.Transaction{
		ID:                    txn.ID,
		Reference:             txn.Reference,
		ProviderTransactionID: txn.ProviderTransactionID,
		Amount:                txn.Amount,
		AmountInCents:         txn.AmountInCents,
		Currency:              txn.Currency,
		Phone:                 txn.Phone,
		Status:                string(txn.Status),
		Attempts:              txn.Attempts,
		NextPollAt:            txn.NextPollAt,
		CreatedAt:             txn.CreatedAt,
		UpdatedAt:             txn.UpdatedAt,
		RawEvidence:           txn.RawEvidence,
		FailureReason:         txn.FailureReason,
	}
}

func (r *TransactionRepository) modelToEntity(m *model.Transaction) *entity.Transaction {
	return &entity.Transaction{
		ID:                    m.ID,
		Reference:             m.Reference,
		ProviderTransactionID: m.ProviderTransactionID,
		Amount:                m.Amount,
		AmountInCents:         m.AmountInCents,
		Currency:              m.Currency,
		Phone:                 m.Phone,
		Status:                entity.TransactionStatus(m.Status),
		Attempts:              m.Attempts,
		NextPollAt:            m.NextPollAt,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
		RawEvidence:           m.RawEvidence,
		FailureReason:         m.FailureReason,
	}
}

// Create saves a new transaction. The unique index on reference is the
// global uniqueness invariant.
func (r *TransactionRepository) Create(ctx context.Context, txn *entity.Transaction) error {
	r.logger.Debug("Creating transaction", map[string]any{
		"reference": txn.Reference,
	})

	transactionModel := r.entityToModel(txn)
	result := r.db.WithContext(ctx).Create(&transactionModel)

	if result.Error != nil {
		if r.errorClassifier.IsDuplicateKeyError(result.Error) {
			r.logger.Warn("Duplicate reference rejected", map[string]any{
				"reference": txn.Reference,
			})
			return errs.ErrDuplicateReference
		}
		r.logger.Error("Failed to create transaction", map[string]any{
			"reference": txn.Reference,
			"error":     result.Error.Error(),
		})
		return fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, result.Error.Error())
	}

	txn.ID = transactionModel.ID
	return nil
}

// GetByReference retrieves a transaction by its reference
func (r *TransactionRepository) GetByReference(ctx context.Context, reference string) (*entity.Transaction, error) {
	var transactionModel model.Transaction
	result := r.db.WithContext(ctx).
		Where("reference = ?", reference).
		First(&transactionModel)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errs.ErrTransactionNotFound
		}
		r.logger.Error("Failed to get transaction", map[string]any{
			"reference": reference,
			"error":     result.Error.Error(),
		})
		return nil, fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, result.Error.Error())
	}

	return r.modelToEntity(&transactionModel), nil
}

// GetByProviderTransactionID retrieves a transaction by the provider's
// identifier
func (r *TransactionRepository) GetByProviderTransactionID(ctx context.Context, providerTransactionID string) (*entity.Transaction, error) {
	if providerTransactionID == "" {
		return nil, errs.ErrTransactionNotFound
	}

	var transactionModel model.Transaction
	result := r.db.WithContext(ctx).
		Where("provider_transaction_id = ?", providerTransactionID).
		First(&transactionModel)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errs.ErrTransactionNotFound
		}
		r.logger.Error("Failed to get transaction by provider id", map[string]any{
			"provider_id": providerTransactionID,
			"error":       result.Error.Error(),
		})
		return nil, fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, result.Error.Error())
	}

	return r.modelToEntity(&transactionModel), nil
}

// ReferenceExists checks if a transaction with the given reference exists
func (r *TransactionRepository) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&model.Transaction{}).
		Where("reference = ?", reference).
		Count(&count)

	if result.Error != nil {
		return false, fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, result.Error.Error())
	}
	return count > 0, nil
}

// SetProviderTransactionID records the provider's identifier against a
// still-pending row. The guard on an empty column keeps a stale retry from
// overwriting an identifier already recorded.
func (r *TransactionRepository) SetProviderTransactionID(ctx context.Context, reference string, providerTransactionID string) (bool, error) {
	if providerTransactionID == "" {
		return false, nil
	}

	result := r.db.WithContext(ctx).Model(&model.Transaction{}).
		Where("reference = ? AND status = ? AND (provider_transaction_id = '' OR provider_transaction_id IS NULL)",
			reference, string(entity.StatusPending)).
		Updates(map[string]any{
			"provider_transaction_id": providerTransactionID,
			"updated_at":              r.timeProvider.Now(),
		})

	if result.Error != nil {
		r.logger.Error("Failed to record provider transaction id", map[string]any{
			"reference":   reference,
			"provider_id": providerTransactionID,
			"error":       result.Error.Error(),
		})
		return false, fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, result.Error.Error())
	}

	return result.RowsAffected > 0, nil
}

// ResolveIfPending applies a terminal transition only if the row is still
// PENDING. The conditional WHERE makes this the compare-and-swap that
// arbitrates between webhook, poll and timeout writers; RowsAffected == 0
// means another source already won.
func (r *TransactionRepository) ResolveIfPending(ctx context.Context, reference string, resolution persistence.Resolution) (bool, error) {
	if !resolution.Status.IsTerminal() {
		return false, errs.ErrInvalidStatus
	}

	updates := map[string]any{
		"status":       string(resolution.Status),
		"raw_evidence": resolution.RawEvidence,
		"updated_at":   r.timeProvider.Now(),
		"next_poll_at": nil,
	}
	if resolution.ProviderTransactionID != "" {
		updates["provider_transaction_id"] = resolution.ProviderTransactionID
	}
	if resolution.FailureReason != "" {
		updates["failure_reason"] = resolution.FailureReason
	}

	result := r.db.WithContext(ctx).Model(&model.Transaction{}).
		Where("reference = ? AND status = ?", reference, string(entity.StatusPending)).
		Updates(updates)

	if result.Error != nil {
		r.logger.Error("Conditional status update failed", map[string]any{
			"reference": reference,
			"status":    string(resolution.Status),
			"error":     result.Error.Error(),
		})
		return false, fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, result.Error.Error())
	}

	return result.RowsAffected > 0, nil
}

// MarkPollAttempt records poll bookkeeping without touching the status.
// The status guard keeps a racing terminal transition from having its poll
// schedule resurrected.
func (r *TransactionRepository) MarkPollAttempt(ctx context.Context, reference string, attempts int, nextPollAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&model.Transaction{}).
		Where("reference = ? AND status = ?", reference, string(entity.StatusPending)).
		Updates(map[string]any{
			"attempts":     attempts,
			"next_poll_at": nextPollAt,
			"updated_at":   r.timeProvider.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, result.Error.Error())
	}
	return nil
}

// ListPollDue returns pending transactions due for a poll, oldest first.
// A NULL next_poll_at counts as due: it means the initiator crashed before
// scheduling the first poll.
func (r *TransactionRepository) ListPollDue(ctx context.Context, now time.Time, limit int) ([]*entity.Transaction, error) {
	var models []model.Transaction
	result := r.db.WithContext(ctx).
		Where("status = ? AND (next_poll_at IS NULL OR next_poll_at <= ?)", string(entity.StatusPending), now).
		Order("created_at ASC").
		Limit(limit).
		Find(&models)

	if result.Error != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, result.Error.Error())
	}

	return r.toEntities(models), nil
}

// ListStalePending returns pending transactions created at or before the
// cutoff, oldest first
func (r *TransactionRepository) ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]*entity.Transaction, error) {
	var models []model.Transaction
	result := r.db.WithContext(ctx).
		Where("status = ? AND created_at <= ?", string(entity.StatusPending), createdBefore).
		Order("created_at ASC").
		Limit(limit).
		Find(&models)

	if result.Error != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, result.Error.Error())
	}

	return r.toEntities(models), nil
}

func (r *TransactionRepository) toEntities(models []model.Transaction) []*entity.Transaction {
	transactions := make([]*entity.Transaction, 0, len(models))
	for i := range models {
		transactions = append(transactions, r.modelToEntity(&models[i]))
	}
	return transactions
}
