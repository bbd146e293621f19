package entity

// EventType is the normalized category of a provider event
type EventType string

// Normalized event types. Anything the provider sends that is neither a
// success nor a failure signal maps to EventOther and never resolves a
// transaction.
const (
	EventSuccess EventType = "success"
	EventFailure EventType = "failure"
	EventOther   EventType = "other"

	// EventCancelled is only produced by the poll source; webhook event
	// names that mean cancellation normalize to EventFailure
	EventCancelled EventType = "cancelled"
)

// EventSource identifies which activity produced a transition attempt
type EventSource string

// Event sources feeding the single transition authority
const (
	SourceWebhook EventSource = "webhook"
	SourcePoll    EventSource = "poll"
	SourceTimeout EventSource = "timeout"
)

// ProviderEvent is the verified, normalized form of an inbound provider
// signal. It is ephemeral: only the transition it produces is persisted.
type ProviderEvent struct {
	EventID               string
	Reference             string
	ProviderTransactionID string
	Type                  EventType
	Source                EventSource
	RawPayload            string
	SignatureValid        bool
}

// NormalizeEventType maps raw provider event names onto the closed internal
// vocabulary. Matching is exhaustive over the names the provider documents;
// everything else is EventOther.
func NormalizeEventType(raw string) EventType {
	switch raw {
	case "transaction.success", "payment.success", "charge.completed", "COMPLETED", "SUCCESS":
		return EventSuccess
	case "transaction.failed", "payment.failed", "charge.failed", "FAILED", "CANCELLED", "REJECTED":
		return EventFailure
	default:
		return EventOther
	}
}

// StatusForEvent maps a terminal event type to the status it produces.
// EventOther maps to no transition at all.
func StatusForEvent(t EventType) (TransactionStatus, bool) {
	switch t {
	case EventSuccess:
		return StatusSuccess, true
	case EventFailure:
		return StatusFailed, true
	case EventCancelled:
		return StatusCancelled, true
	default:
		return "", false
	}
}

// EventForStatus maps a terminal provider status to the event type that
// carries it through the transition authority
func EventForStatus(s TransactionStatus) EventType {
	switch s {
	case StatusSuccess:
		return EventSuccess
	case StatusFailed:
		return EventFailure
	case StatusCancelled:
		return EventCancelled
	default:
		return EventOther
	}
}

// NormalizeProviderStatus maps a provider status-query response value onto
// the internal vocabulary
func NormalizeProviderStatus(raw string) TransactionStatus {
	switch raw {
	case "COMPLETED", "SUCCESS", "SUCCESSFUL":
		return StatusSuccess
	case "FAILED", "REJECTED":
		return StatusFailed
	case "CANCELLED", "VOIDED":
		return StatusCancelled
	case "PENDING", "PROCESSING", "QUEUED":
		return StatusPending
	default:
		return StatusPending
	}
}
