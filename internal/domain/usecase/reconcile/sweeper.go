package reconcile

import (
	"context"
	"time"

	coreport "github.com/maryreaky/betrix-payments/internal/domain/port/core"
	notifyport "github.com/maryreaky/betrix-payments/internal/domain/port/notify"
	"github.com/maryreaky/betrix-payments/internal/domain/port/persistence"
)

// SweeperConfig tunes the reconciliation sweep
type SweeperConfig struct {
	// Interval is the sweep cadence
	Interval time.Duration
	// StalenessThreshold is the age past which a pending transaction is
	// considered stuck
	StalenessThreshold time.Duration
	// BatchSize caps how many stuck transactions one sweep reports
	BatchSize int
	// ForceFinalPoll issues one immediate poll for each stuck reference
	// before alerting
	ForceFinalPoll bool
}

// ForcedPoller lets the sweeper trigger an out-of-schedule poll
type ForcedPoller interface {
	PollNow(ctx context.Context, reference string)
}

// Sweeper periodically scans for transactions stuck in PENDING past the
// staleness threshold and alerts operators. It is observational: it never
// mutates transaction state, and re-alerting on the same stuck reference
// is expected until it resolves or is closed by hand.
type Sweeper struct {
	repo         persistence.TransactionRepository
	notifier     notifyport.Notifier
	poller       ForcedPoller
	timeProvider coreport.TimeProvider
	logger       coreport.Logger
	cfg          SweeperConfig
}

// NewSweeper creates the reconciliation sweeper. poller may be nil when
// forced polling is disabled.
func NewSweeper(
	repo persistence.TransactionRepository,
	notifier notifyport.Notifier,
	poller ForcedPoller,
	timeProvider coreport.TimeProvider,
	logger coreport.Logger,
	cfg SweeperConfig,
) *Sweeper {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &Sweeper{
		repo:         repo,
		notifier:     notifier,
		poller:       poller,
		timeProvider: timeProvider,
		logger:       logger,
		cfg:          cfg,
	}
}

// Run sweeps on the configured cadence until ctx is cancelled. A failed
// sweep is logged and retried next cycle, never escalated.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.logger.Info("Reconciliation sweeper started", map[string]any{
		"interval":  s.cfg.Interval.String(),
		"threshold": s.cfg.StalenessThreshold.String(),
	})

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Reconciliation sweeper stopped", nil)
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				s.logger.Error("Sweep failed, will retry next cycle", map[string]any{
					"error": err.Error(),
				})
			}
		}
	}
}

// SweepOnce performs one scan and returns how many stuck transactions were
// reported
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	now := s.timeProvider.Now()
	cutoff := now.Add(-s.cfg.StalenessThreshold)

	stale, err := s.repo.ListStalePending(ctx, cutoff, s.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	stuck := make([]notifyport.StuckTransaction, 0, len(stale))
	for _, txn := range stale {
		if s.cfg.ForceFinalPoll && s.poller != nil {
			s.poller.PollNow(ctx, txn.Reference)
			// the forced poll may have just resolved it; re-read so the
			// report only names transactions still stuck
			refreshed, err := s.repo.GetByReference(ctx, txn.Reference)
			if err == nil && refreshed.Status.IsTerminal() {
				continue
			}
		}
		stuck = append(stuck, notifyport.StuckTransaction{
			Reference:  txn.Reference,
			Amount:     txn.Amount,
			AgeMinutes: int64(now.Sub(txn.CreatedAt) / time.Minute),
		})
	}
	if len(stuck) == 0 {
		return 0, nil
	}

	s.logger.Warn("Stuck transactions detected", map[string]any{
		"count":     len(stuck),
		"threshold": s.cfg.StalenessThreshold.String(),
	})

	if err := s.notifier.StuckReport(ctx, stuck); err != nil {
		// alert delivery failure is not a sweep failure; the next cycle
		// re-reports everything still stuck
		s.logger.Error("Stuck report delivery failed", map[string]any{
			"count": len(stuck),
			"error": err.Error(),
		})
	}

	return len(stuck), nil
}
