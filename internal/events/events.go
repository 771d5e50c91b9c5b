// Package events publishes ledger events after the unit of work that
// produced them has committed.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"famledger/internal/logger"
)

// Event types.
const (
	TransactionCreated    = "transaction.created"
	TransactionDeleted    = "transaction.deleted"
	TransferCompleted     = "transfer.completed"
	TransferCancelled     = "transfer.cancelled"
	BillPaid              = "bill.paid"
	BillUnpaid            = "bill.unpaid"
	ScheduledMaterialized = "scheduled.materialized"
	GoalContribution      = "goal.contribution"
)

// Event is one committed ledger change.
type Event struct {
	Type       string            `json:"type"`
	OwnerID    string            `json:"owner_id"`
	ResourceID string            `json:"resource_id"`
	Attributes map[string]string `json:"attributes,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// New creates an event stamped with the current time.
func New(eventType, ownerID, resourceID string, attrs map[string]string) Event {
	return Event{
		Type:       eventType,
		OwnerID:    ownerID,
		ResourceID: resourceID,
		Attributes: attrs,
		OccurredAt: time.Now().UTC(),
	}
}

// ToJSON encodes the event.
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher delivers events to subscribers.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Emit publishes events in order. Failures are logged and never returned:
// the ledger change they describe has already committed.
func Emit(ctx context.Context, p Publisher, evs ...Event) {
	if p == nil {
		return
	}
	for _, e := range evs {
		if err := p.Publish(ctx, e); err != nil {
			logger.Get().Warnw("Failed to publish ledger event",
				"type", e.Type,
				"resource_id", e.ResourceID,
				"error", err,
			)
		}
	}
}

// NopPublisher drops every event.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Publish implements Publisher.
func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []string {
	evs := r.Events()
	types := make([]string, len(evs))
	for i, e := range evs {
		types[i] = e.Type
	}
	return types
}
