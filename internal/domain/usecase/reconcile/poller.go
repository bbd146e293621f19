package reconcile

import (
	"context"
	"sync"
	"time"

	"github.com/maryreaky/betrix-payments/internal/domain/entity"
	errs "github.com/maryreaky/betrix-payments/internal/domain/error"
	coreport "github.com/maryreaky/betrix-payments/internal/domain/port/core"
	"github.com/maryreaky/betrix-payments/internal/domain/port/persistence"
	providerport "github.com/maryreaky/betrix-payments/internal/domain/port/provider"
	"github.com/maryreaky/betrix-payments/internal/domain/usecase/ingest"
)

// PollerConfig tunes the status-poll fallback loop
type PollerConfig struct {
	// Interval is the loop cadence for picking up due references
	Interval time.Duration
	// BaseBackoff is the wait between the first poll attempts
	BaseBackoff time.Duration
	// MaxBackoff caps the widened backoff
	MaxBackoff time.Duration
	// FixedAttempts is how many attempts keep the fixed BaseBackoff
	// before the interval starts doubling
	FixedAttempts int
	// MaxAttempts is the poll ceiling; reaching it forces TIMEOUT
	MaxAttempts int
	// Horizon is the maximum transaction age worth polling; older pending
	// transactions are forced to TIMEOUT regardless of attempt count
	Horizon time.Duration
	// BatchSize caps how many due references one tick processes
	BatchSize int
}

// Poller actively queries provider status for unresolved transactions,
// independent of webhook delivery. Terminal poll results are fed through
// the same transition authority as webhooks.
type Poller struct {
	repo         persistence.TransactionRepository
	provider     providerport.PaymentProvider
	ingestor     *ingest.Ingestor
	timeProvider coreport.TimeProvider
	logger       coreport.Logger
	cfg          PollerConfig

	mu        sync.Mutex
	inFlight  map[string]struct{}
	cancelled map[string]struct{}
}

// NewPoller creates the status poller
func NewPoller(
	repo persistence.TransactionRepository,
	provider providerport.PaymentProvider,
	ingestor *ingest.Ingestor,
	timeProvider coreport.TimeProvider,
	logger coreport.Logger,
	cfg PollerConfig,
) *Poller {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.FixedAttempts <= 0 {
		cfg.FixedAttempts = 3
	}
	return &Poller{
		repo:         repo,
		provider:     provider,
		ingestor:     ingestor,
		timeProvider: timeProvider,
		logger:       logger,
		cfg:          cfg,
		inFlight:     make(map[string]struct{}),
		cancelled:    make(map[string]struct{}),
	}
}

// Run processes due references on the configured cadence until ctx is
// cancelled
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.logger.Info("Status poller started", map[string]any{
		"interval":     p.cfg.Interval.String(),
		"max_attempts": p.cfg.MaxAttempts,
		"horizon":      p.cfg.Horizon.String(),
	})

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Status poller stopped", nil)
			return
		case <-ticker.C:
			p.PollDue(ctx)
		}
	}
}

// PollDue polls every pending transaction whose next poll is due. Returns
// the number of references processed.
func (p *Poller) PollDue(ctx context.Context) int {
	// markers from the previous batch are spent: a resolved transaction
	// is no longer listed, so stale entries only leak
	p.mu.Lock()
	p.cancelled = make(map[string]struct{})
	p.mu.Unlock()

	now := p.timeProvider.Now()
	due, err := p.repo.ListPollDue(ctx, now, p.cfg.BatchSize)
	if err != nil {
		p.logger.Error("Failed to list poll-due transactions", map[string]any{
			"error": err.Error(),
		})
		return 0
	}

	processed := 0
	for _, txn := range due {
		if p.pollOne(ctx, txn) {
			processed++
		}
	}
	return processed
}

// SchedulePoll enqueues a reference for its first poll. Implements the
// order initiator's PollScheduler.
func (p *Poller) SchedulePoll(reference string, at time.Time) {
	// the record already exists with a NULL next_poll_at, which ListPollDue
	// also treats as due; this write just spaces out the first attempt
	if err := p.repo.MarkPollAttempt(context.Background(), reference, 0, at); err != nil {
		p.logger.Warn("Failed to schedule first poll", map[string]any{
			"reference": reference,
			"error":     err.Error(),
		})
	}
}

// CancelPoll implements ingest.PollCanceller. Best-effort: the conditional
// update discards a late in-flight result anyway.
func (p *Poller) CancelPoll(reference string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inFlight, reference)
	p.cancelled[reference] = struct{}{}
}

// PollNow issues one immediate poll for a reference, used by the sweeper's
// forced final poll
func (p *Poller) PollNow(ctx context.Context, reference string) {
	txn, err := p.repo.GetByReference(ctx, reference)
	if err != nil {
		p.logger.Warn("Forced poll lookup failed", map[string]any{
			"reference": reference,
			"error":     err.Error(),
		})
		return
	}
	if txn.Status.IsTerminal() {
		return
	}
	p.pollOne(ctx, txn)
}

// pollOne performs a single status query for one transaction. Only one
// in-flight poll per reference is allowed at a time.
func (p *Poller) pollOne(ctx context.Context, txn *entity.Transaction) bool {
	if !p.begin(txn.Reference) {
		return false
	}
	defer p.end(txn.Reference)

	age := p.timeProvider.Since(txn.CreatedAt)
	if p.cfg.Horizon > 0 && age > p.cfg.Horizon {
		p.forceTimeout(ctx, txn, "poll horizon exceeded")
		return true
	}

	attempts := txn.Attempts + 1
	resp, err := p.provider.QueryStatus(ctx, txn.Reference)
	if err != nil {
		p.handleQueryFailure(ctx, txn, attempts, err)
		return true
	}

	if resp.Status.IsTerminal() {
		p.applyTerminal(ctx, txn, resp)
		return true
	}

	// still pending at the provider
	if attempts >= p.cfg.MaxAttempts {
		if _, err := p.ingestor.ApplyTimeout(ctx, txn.Reference, resp.RawPayload); err != nil {
			p.logger.Error("Timeout transition failed", map[string]any{
				"reference": txn.Reference,
				"error":     err.Error(),
			})
		}
		return true
	}

	p.reschedule(ctx, txn.Reference, attempts)
	return true
}

func (p *Poller) applyTerminal(ctx context.Context, txn *entity.Transaction, resp *providerport.StatusResponse) {
	result, err := p.ingestor.Apply(ctx, entity.ProviderEvent{
		Reference:             txn.Reference,
		ProviderTransactionID: resp.ProviderTransactionID,
		Type:                  entity.EventForStatus(resp.Status),
		Source:                entity.SourcePoll,
		RawPayload:            resp.RawPayload,
		SignatureValid:        true,
	})
	if err != nil {
		p.logger.Error("Poll result application failed", map[string]any{
			"reference": txn.Reference,
			"error":     err.Error(),
		})
		return
	}
	if !result.Applied {
		// the webhook won the race; success of intent
		p.logger.Debug("Poll result discarded, transaction already resolved", map[string]any{
			"reference": txn.Reference,
			"status":    string(result.Status),
		})
	}
}

// handleQueryFailure applies the single retry policy for provider status
// calls: transient failures burn an attempt and reschedule, everything
// else is logged and also burns an attempt so a broken provider cannot
// keep a transaction pending forever
func (p *Poller) handleQueryFailure(ctx context.Context, txn *entity.Transaction, attempts int, cause error) {
	fields := map[string]any{
		"reference": txn.Reference,
		"attempt":   attempts,
		"error":     cause.Error(),
	}
	if pe, ok := errs.AsProviderError(cause); ok {
		fields["kind"] = string(pe.Kind)
		if pe.Kind == errs.KindUnauthorized {
			p.logger.Error("Provider rejected credentials during poll", fields)
		} else {
			p.logger.Warn("Provider status query failed", fields)
		}
	} else {
		p.logger.Warn("Provider status query failed", fields)
	}

	if attempts >= p.cfg.MaxAttempts {
		if _, err := p.ingestor.ApplyTimeout(ctx, txn.Reference, cause.Error()); err != nil {
			p.logger.Error("Timeout transition failed", map[string]any{
				"reference": txn.Reference,
				"error":     err.Error(),
			})
		}
		return
	}

	p.reschedule(ctx, txn.Reference, attempts)
}

func (p *Poller) forceTimeout(ctx context.Context, txn *entity.Transaction, reason string) {
	if _, err := p.ingestor.ApplyTimeout(ctx, txn.Reference, reason); err != nil {
		p.logger.Error("Timeout transition failed", map[string]any{
			"reference": txn.Reference,
			"error":     err.Error(),
		})
	}
}

func (p *Poller) reschedule(ctx context.Context, reference string, attempts int) {
	next := p.timeProvider.Now().Add(p.Backoff(attempts))
	if err := p.repo.MarkPollAttempt(ctx, reference, attempts, next); err != nil {
		p.logger.Error("Failed to record poll attempt", map[string]any{
			"reference": reference,
			"error":     err.Error(),
		})
	}
}

// Backoff returns the wait before the next poll: fixed at BaseBackoff for
// the first FixedAttempts, then doubling per attempt up to MaxBackoff
func (p *Poller) Backoff(attempts int) time.Duration {
	if attempts <= p.cfg.FixedAttempts {
		return p.cfg.BaseBackoff
	}
	d := p.cfg.BaseBackoff << uint(attempts-p.cfg.FixedAttempts)
	if p.cfg.MaxBackoff > 0 && d > p.cfg.MaxBackoff {
		return p.cfg.MaxBackoff
	}
	return d
}

// begin reserves a reference for polling; false when it is already in
// flight or was cancelled since the listing
func (p *Poller) begin(reference string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.cancelled[reference]; ok {
		delete(p.cancelled, reference)
		return false
	}
	if _, ok := p.inFlight[reference]; ok {
		return false
	}
	p.inFlight[reference] = struct{}{}
	return true
}

func (p *Poller) end(reference string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inFlight, reference)
}
