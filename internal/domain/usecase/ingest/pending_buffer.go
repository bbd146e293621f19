package ingest

import (
	"sync"

	"github.com/maryreaky/betrix-payments/internal/domain/entity"
)

// bufferedEvent tracks how many correlation retries an unmatched event has
// left before it is dropped as orphaned
type bufferedEvent struct {
	event       entity.ProviderEvent
	retriesLeft int
}

// pendingBuffer is a short-lived, in-memory holding area for events whose
// provider id arrived before the store recorded the transaction. It is
// per-process on purpose: losing it on restart only costs a retry that the
// status poller covers anyway.
type pendingBuffer struct {
	mu         sync.Mutex
	entries    map[string]bufferedEvent
	maxRetries int
}

func newPendingBuffer(maxRetries int) *pendingBuffer {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &pendingBuffer{
		entries:    make(map[string]bufferedEvent),
		maxRetries: maxRetries,
	}
}

func (b *pendingBuffer) key(ev entity.ProviderEvent) string {
	if ev.EventID != "" {
		return ev.EventID
	}
	return ev.ProviderTransactionID + "/" + ev.Reference
}

// add buffers a newly unmatched event with a full retry budget. Returns
// false if the event was already buffered.
func (b *pendingBuffer) add(ev entity.ProviderEvent) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := b.key(ev)
	if _, ok := b.entries[key]; ok {
		return false
	}
	b.entries[key] = bufferedEvent{event: ev, retriesLeft: b.maxRetries}
	return true
}

// snapshot returns a copy of all buffered events without mutating budgets
func (b *pendingBuffer) snapshot() []entity.ProviderEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	events := make([]entity.ProviderEvent, 0, len(b.entries))
	for _, entry := range b.entries {
		events = append(events, entry.event)
	}
	return events
}

// markFailed burns one retry for an event that still matched nothing.
// Returns false when the budget is exhausted and the event was dropped.
func (b *pendingBuffer) markFailed(ev entity.ProviderEvent) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := b.key(ev)
	entry, ok := b.entries[key]
	if !ok {
		return false
	}
	entry.retriesLeft--
	if entry.retriesLeft <= 0 {
		delete(b.entries, key)
		return false
	}
	b.entries[key] = entry
	return true
}

// remove deletes an event that finally correlated to a transaction
func (b *pendingBuffer) remove(ev entity.ProviderEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.entries, b.key(ev))
}

func (b *pendingBuffer) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}
