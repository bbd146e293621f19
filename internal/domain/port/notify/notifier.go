package notify

import (
	"context"

	"github.com/maryreaky/betrix-payments/internal/domain/entity"
)

// StateChange describes a transaction reaching a terminal state
type StateChange struct {
	Reference string
	Status    entity.TransactionStatus
	Amount    string
	Currency  string
	Phone     string
	Source    entity.EventSource
}

// StuckTransaction is one entry of a reconciliation report
type StuckTransaction struct {
	Reference  string `json:"reference"`
	Amount     string `json:"amount"`
	AgeMinutes int64  `json:"ageMinutes"`
}

// Notifier delivers engine events to the human-facing channel. Delivery is
// best-effort: the engine logs failures but never blocks a transition on
// notification delivery.
type Notifier interface {
	// PaymentStateChanged is called exactly once per transaction, when its
	// terminal transition is persisted
	PaymentStateChanged(ctx context.Context, change StateChange) error

	// StuckReport delivers the reconciliation sweeper's list of
	// transactions stuck past the staleness threshold
	StuckReport(ctx context.Context, stuck []StuckTransaction) error

	// ManualCorrection flags a transaction whose provider reported success
	// after the engine already timed it out; money may have moved and an
	// operator must reconcile by hand
	ManualCorrection(ctx context.Context, reference string, evidence string) error
}
