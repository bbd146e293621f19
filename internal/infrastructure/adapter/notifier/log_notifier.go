package notifier

import (
	"context"

	coreport "github.com/maryreaky/betrix-payments/internal/domain/port/core"
	notifyport "github.com/maryreaky/betrix-payments/internal/domain/port/notify"
)

// LogNotifier writes engine events to the log instead of delivering them.
// Used when no notification target is configured.
type LogNotifier struct {
	logger coreport.Logger
}

// NewLogNotifier creates a log-only notifier
func NewLogNotifier(logger coreport.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) PaymentStateChanged(ctx context.Context, change notifyport.StateChange) error {
	n.logger.Info("Notification: payment state changed", map[string]any{
		"reference": change.Reference,
		"status":    string(change.Status),
		"amount":    change.Amount,
		"source":    string(change.Source),
	})
	return nil
}

func (n *LogNotifier) StuckReport(ctx context.Context, stuck []notifyport.StuckTransaction) error {
	for _, s := range stuck {
		n.logger.Warn("Notification: transaction stuck", map[string]any{
			"reference":   s.Reference,
			"amount":      s.Amount,
			"age_minutes": s.AgeMinutes,
		})
	}
	return nil
}

func (n *LogNotifier) ManualCorrection(ctx context.Context, reference string, evidence string) error {
	n.logger.Warn("Notification: manual correction required", map[string]any{
		"reference": reference,
		"evidence":  evidence,
	})
	return nil
}
