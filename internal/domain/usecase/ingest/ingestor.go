package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/maryreaky/betrix-payments/internal/domain/entity"
	errs "github.com/maryreaky/betrix-payments/internal/domain/error"
	coreport "github.com/maryreaky/betrix-payments/internal/domain/port/core"
	notifyport "github.com/maryreaky/betrix-payments/internal/domain/port/notify"
	"github.com/maryreaky/betrix-payments/internal/domain/port/persistence"
)

// PollCanceller cancels any outstanding poll schedule for a reference.
// Cancellation is best-effort: a poll already in flight loses the race at
// the conditional update instead.
type PollCanceller interface {
	CancelPoll(reference string)
}

// Result is the outcome of an Apply call
type Result struct {
	Applied bool
	Status  entity.TransactionStatus
}

// Ingestor is the single state-transition authority. Webhook events, poll
// results and poll-ceiling timeouts all resolve transactions through it,
// and the "only if still PENDING" conditional update in the store is the
// only arbiter between them.
type Ingestor struct {
	repo         persistence.TransactionRepository
	notifier     notifyport.Notifier
	timeProvider coreport.TimeProvider
	logger       coreport.Logger
	buffer       *pendingBuffer
	canceller    PollCanceller
}

// NewIngestor creates the transition authority
func NewIngestor(
	repo persistence.TransactionRepository,
	notifier notifyport.Notifier,
	timeProvider coreport.TimeProvider,
	logger coreport.Logger,
	bufferRetries int,
) *Ingestor {
	return &Ingestor{
		repo:         repo,
		notifier:     notifier,
		timeProvider: timeProvider,
		logger:       logger,
		buffer:       newPendingBuffer(bufferRetries),
	}
}

// SetPollCanceller wires the poller in after construction. The poller
// depends on the ingestor, so the reverse edge is set late.
func (i *Ingestor) SetPollCanceller(c PollCanceller) {
	i.canceller = c
}

// Apply maps a verified provider event to a state transition and applies it
// idempotently. Replaying an event after the transaction is terminal
// returns Applied=false with the existing status, never an error.
//
// An event that matches no stored transaction is buffered and retried by
// RetryBuffered; the provider id can arrive before the store has recorded
// it.
func (i *Ingestor) Apply(ctx context.Context, ev entity.ProviderEvent) (Result, error) {
	if !ev.SignatureValid {
		i.logger.Warn("Event rejected: signature not verified", map[string]any{
			"event":       "security",
			"event_id":    ev.EventID,
			"provider_id": ev.ProviderTransactionID,
			"source":      string(ev.Source),
		})
		return Result{}, errs.ErrInvalidSignature
	}

	txn, err := i.lookup(ctx, ev)
	if err != nil {
		if errors.Is(err, errs.ErrTransactionNotFound) {
			if i.buffer.add(ev) {
				i.logger.Info("Event matched no transaction, buffered for late correlation", map[string]any{
					"event_id":    ev.EventID,
					"provider_id": ev.ProviderTransactionID,
					"reference":   ev.Reference,
				})
			}
			return Result{}, nil
		}
		return Result{}, fmt.Errorf("event lookup failed: %w", err)
	}

	return i.resolve(ctx, txn, ev)
}

// RetryBuffered retries every buffered unmatched event once, dropping and
// logging as orphaned those that exhausted their retry budget. It is run on
// a short cadence by Run.
func (i *Ingestor) RetryBuffered(ctx context.Context) {
	for _, ev := range i.buffer.snapshot() {
		txn, err := i.lookup(ctx, ev)
		if err != nil {
			if errors.Is(err, errs.ErrTransactionNotFound) {
				if !i.buffer.markFailed(ev) {
					i.logger.Warn("Orphaned event dropped after retries", map[string]any{
						"event_id":    ev.EventID,
						"provider_id": ev.ProviderTransactionID,
						"reference":   ev.Reference,
					})
				}
				continue
			}
			// transient store failure, keep the event without burning a retry
			continue
		}
		i.buffer.remove(ev)
		if _, err := i.resolve(ctx, txn, ev); err != nil {
			i.logger.Error("Failed to apply buffered event", map[string]any{
				"event_id": ev.EventID,
				"error":    err.Error(),
			})
		}
	}
}

// Run retries buffered events on the given cadence until ctx is cancelled
func (i *Ingestor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			i.RetryBuffered(ctx)
		}
	}
}

// BufferedEvents reports how many unmatched events are awaiting correlation
func (i *Ingestor) BufferedEvents() int {
	return i.buffer.len()
}

func (i *Ingestor) lookup(ctx context.Context, ev entity.ProviderEvent) (*entity.Transaction, error) {
	if ev.ProviderTransactionID != "" {
		txn, err := i.repo.GetByProviderTransactionID(ctx, ev.ProviderTransactionID)
		if err == nil {
			return txn, nil
		}
		if !errors.Is(err, errs.ErrTransactionNotFound) {
			return nil, err
		}
	}
	if ev.Reference != "" {
		return i.repo.GetByReference(ctx, ev.Reference)
	}
	return nil, errs.ErrTransactionNotFound
}

// resolve applies the transition through the conditional update. It is the
// only place a status is written after creation.
func (i *Ingestor) resolve(ctx context.Context, txn *entity.Transaction, ev entity.ProviderEvent) (Result, error) {
	target, terminal := entity.StatusForEvent(ev.Type)
	if !terminal {
		i.logger.Debug("Non-terminal event ignored", map[string]any{
			"reference": txn.Reference,
			"event_id":  ev.EventID,
		})
		return Result{Applied: false, Status: txn.Status}, nil
	}

	if txn.Status.IsTerminal() {
		i.handleLateEvent(ctx, txn, ev)
		return Result{Applied: false, Status: txn.Status}, nil
	}

	resolution := persistence.Resolution{
		Status:                target,
		ProviderTransactionID: ev.ProviderTransactionID,
		RawEvidence:           ev.RawPayload,
	}
	if target != entity.StatusSuccess {
		resolution.FailureReason = string(ev.Source) + " reported " + string(ev.Type)
	}

	applied, err := i.repo.ResolveIfPending(ctx, txn.Reference, resolution)
	if err != nil {
		return Result{}, fmt.Errorf("conditional update failed for %s: %w", txn.Reference, err)
	}

	if !applied {
		// another source won the race; re-read for the sticking status
		current, err := i.repo.GetByReference(ctx, txn.Reference)
		if err != nil {
			return Result{Applied: false, Status: txn.Status}, nil
		}
		i.handleLateEvent(ctx, current, ev)
		return Result{Applied: false, Status: current.Status}, nil
	}

	i.logger.Info("Transaction resolved", map[string]any{
		"reference":   txn.Reference,
		"status":      string(target),
		"source":      string(ev.Source),
		"provider_id": ev.ProviderTransactionID,
		"attempts":    txn.Attempts,
	})

	if i.canceller != nil {
		i.canceller.CancelPoll(txn.Reference)
	}

	change := notifyport.StateChange{
		Reference: txn.Reference,
		Status:    target,
		Amount:    txn.Amount,
		Currency:  txn.Currency,
		Phone:     txn.Phone,
		Source:    ev.Source,
	}
	if err := i.notifier.PaymentStateChanged(ctx, change); err != nil {
		i.logger.Error("State-change notification failed", map[string]any{
			"reference": txn.Reference,
			"error":     err.Error(),
		})
	}

	return Result{Applied: true, Status: target}, nil
}

// handleLateEvent deals with an event arriving after the transaction is
// already terminal. A success signal landing on a timed-out transaction is
// escalated for manual reconciliation, because the money may have actually
// moved. Everything else is a logged no-op.
func (i *Ingestor) handleLateEvent(ctx context.Context, txn *entity.Transaction, ev entity.ProviderEvent) {
	if ev.Type == entity.EventSuccess && txn.Status == entity.StatusTimeout {
		i.logger.Warn("Success reported after timeout, flagging for manual correction", map[string]any{
			"reference":   txn.Reference,
			"provider_id": ev.ProviderTransactionID,
		})
		if err := i.notifier.ManualCorrection(ctx, txn.Reference, ev.RawPayload); err != nil {
			i.logger.Error("Manual-correction alert failed", map[string]any{
				"reference": txn.Reference,
				"error":     err.Error(),
			})
		}
		return
	}

	i.logger.Info("Duplicate or late event discarded", map[string]any{
		"reference": txn.Reference,
		"status":    string(txn.Status),
		"event_id":  ev.EventID,
		"source":    string(ev.Source),
	})
}

// ApplyTimeout force-terminates a transaction whose poll ceiling was
// reached, through the same conditional update as every other transition
func (i *Ingestor) ApplyTimeout(ctx context.Context, reference string, evidence string) (Result, error) {
	txn, err := i.repo.GetByReference(ctx, reference)
	if err != nil {
		return Result{}, err
	}
	if txn.Status.IsTerminal() {
		return Result{Applied: false, Status: txn.Status}, nil
	}

	applied, err := i.repo.ResolveIfPending(ctx, reference, persistence.Resolution{
		Status:        entity.StatusTimeout,
		RawEvidence:   evidence,
		FailureReason: "poll ceiling reached without a terminal provider status",
	})
	if err != nil {
		return Result{}, fmt.Errorf("timeout transition failed for %s: %w", reference, err)
	}
	if !applied {
		current, err := i.repo.GetByReference(ctx, reference)
		if err != nil {
			return Result{Applied: false, Status: txn.Status}, nil
		}
		return Result{Applied: false, Status: current.Status}, nil
	}

	i.logger.Warn("Transaction timed out", map[string]any{
		"reference": reference,
		"attempts":  txn.Attempts,
	})

	change := notifyport.StateChange{
		Reference: reference,
		Status:    entity.StatusTimeout,
		Amount:    txn.Amount,
		Currency:  txn.Currency,
		Phone:     txn.Phone,
		Source:    entity.SourceTimeout,
	}
	if err := i.notifier.PaymentStateChanged(ctx, change); err != nil {
		i.logger.Error("State-change notification failed", map[string]any{
			"reference": reference,
			"error":     err.Error(),
		})
	}

	return Result{Applied: true, Status: entity.StatusTimeout}, nil
}
