package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/maryreaky/betrix-payments/internal/domain/entity"
	errs "github.com/maryreaky/betrix-payments/internal/domain/error"
	coreport "github.com/maryreaky/betrix-payments/internal/domain/port/core"
	"github.com/maryreaky/betrix-payments/internal/domain/port/persistence"
	providerport "github.com/maryreaky/betrix-payments/internal/domain/port/provider"
)

// referenceAttempts bounds reference generation retries on collision
const referenceAttempts = 5

// InitiateRequest is the transaction-request trigger consumed from the bot
// command layer
type InitiateRequest struct {
	Amount      string
	Phone       string
	Currency    string
	Reference   string // optional, generated when empty
	CallbackURL string
}

// InitiateResult is returned synchronously to the caller
type InitiateResult struct {
	Transaction  *entity.Transaction
	Instructions string
}

// PollScheduler enqueues a new reference for status polling
type PollScheduler interface {
	SchedulePoll(reference string, at time.Time)
}

// Initiator creates new transactions and requests payment initiation from
// the provider. The PENDING record is persisted before the provider call so
// a crash between the two never loses a record of intent.
type Initiator struct {
	repo          persistence.TransactionRepository
	provider      providerport.PaymentProvider
	scheduler     PollScheduler
	timeProvider  coreport.TimeProvider
	logger        coreport.Logger
	firstPollWait time.Duration
}

// NewInitiator creates an order initiator
func NewInitiator(
	repo persistence.TransactionRepository,
	provider providerport.PaymentProvider,
	scheduler PollScheduler,
	timeProvider coreport.TimeProvider,
	logger coreport.Logger,
	firstPollWait time.Duration,
) *Initiator {
	return &Initiator{
		repo:          repo,
		provider:      provider,
		scheduler:     scheduler,
		timeProvider:  timeProvider,
		logger:        logger,
		firstPollWait: firstPollWait,
	}
}

// Initiate creates a PENDING transaction, asks the provider to start the
// payment, and schedules the reference for polling. Provider-side rejection
// transitions the transaction to FAILED and is reported synchronously.
func (u *Initiator) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	reference, err := u.resolveReference(ctx, req.Reference)
	if err != nil {
		return nil, err
	}

	txn, err := entity.NewTransaction(reference, req.Amount, req.Currency, req.Phone, u.timeProvider)
	if err != nil {
		return nil, err
	}

	if err := u.repo.Create(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to persist transaction %s: %w", reference, err)
	}

	u.logger.Info("Transaction created", map[string]any{
		"reference": reference,
		"amount":    txn.Amount,
		"phone":     txn.Phone,
	})

	resp, err := u.provider.InitiatePayment(ctx, providerport.InitiateRequest{
		Reference:     reference,
		AmountInCents: txn.AmountInCents,
		Currency:      txn.Currency,
		Phone:         txn.Phone,
		CallbackURL:   req.CallbackURL,
	})
	if err != nil {
		return nil, u.failInitiation(ctx, txn, err)
	}

	if resp.ProviderTransactionID != "" {
		txn.ProviderTransactionID = resp.ProviderTransactionID
		// persist the id so id-only webhooks can correlate while PENDING;
		// on failure the webhook reference match or the poller still covers
		if _, err := u.repo.SetProviderTransactionID(ctx, reference, resp.ProviderTransactionID); err != nil {
			u.logger.Warn("Failed to record provider transaction id", map[string]any{
				"reference":   reference,
				"provider_id": resp.ProviderTransactionID,
				"error":       err.Error(),
			})
		}
	}

	u.scheduler.SchedulePoll(reference, u.timeProvider.Now().Add(u.firstPollWait))

	return &InitiateResult{
		Transaction:  txn,
		Instructions: resp.Instructions,
	}, nil
}

// resolveReference validates a caller-supplied reference or generates a
// fresh one, retrying on collision
func (u *Initiator) resolveReference(ctx context.Context, supplied string) (string, error) {
	if supplied != "" {
		exists, err := u.repo.ReferenceExists(ctx, supplied)
		if err != nil {
			return "", fmt.Errorf("failed to check reference %s: %w", supplied, err)
		}
		if exists {
			return "", errs.ErrDuplicateReference
		}
		return supplied, nil
	}

	for attempt := 0; attempt < referenceAttempts; attempt++ {
		candidate := generateReference()
		exists, err := u.repo.ReferenceExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check reference %s: %w", candidate, err)
		}
		if !exists {
			return candidate, nil
		}
		u.logger.Warn("Reference collision, regenerating", map[string]any{
			"reference": candidate,
			"attempt":   attempt + 1,
		})
	}
	return "", fmt.Errorf("%w: could not generate a unique reference", errs.ErrInternalServer)
}

// failInitiation records a provider-side initiation failure on the
// transaction and returns the provider error to the caller
func (u *Initiator) failInitiation(ctx context.Context, txn *entity.Transaction, cause error) error {
	evidence := cause.Error()
	if pe, ok := errs.AsProviderError(cause); ok && pe.Body != "" {
		evidence = pe.Body
	}

	applied, err := u.repo.ResolveIfPending(ctx, txn.Reference, persistence.Resolution{
		Status:        entity.StatusFailed,
		RawEvidence:   evidence,
		FailureReason: "provider rejected initiation",
	})
	if err != nil {
		u.logger.Error("Failed to record initiation failure", map[string]any{
			"reference": txn.Reference,
			"error":     err.Error(),
		})
	} else if applied {
		u.logger.Warn("Initiation failed at provider", map[string]any{
			"reference": txn.Reference,
			"error":     cause.Error(),
		})
	}

	return fmt.Errorf("payment initiation failed for %s: %w", txn.Reference, cause)
}

// generateReference produces a short uppercase token seeded from a UUID.
// Uniqueness is ultimately guaranteed by the store constraint; the retry
// loop above handles the rare collision.
func generateReference() string {
	id := uuid.New()
	token := strings.ToUpper(strings.ReplaceAll(id.String(), "-", ""))
	return "BX" + token[:14]
}
