// Package events publishes client activity (logins, bookings, slot changes)
// so other processes can follow what a user did.
package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	SessionLogin     Type = "session.login"
	SessionLogout    Type = "session.logout"
	BookingCreated   Type = "booking.created"
	BookingCancelled Type = "booking.cancelled"
	SlotCreated      Type = "slot.created"
	SlotUpdated      Type = "slot.updated"
	SlotDeleted      Type = "slot.deleted"
	SlotDiscovered   Type = "slot.discovered"
)

type Event struct {
	ID         string    `json:"event_id"`
	Type       Type      `json:"event_type"`
	SubjectID  string    `json:"subject_id,omitempty"`
	UserID     string    `json:"user_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload,omitempty"`
}

func New(typ Type, subjectID, userID string, payload any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       typ,
		SubjectID:  subjectID,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Emit publishes ev and only logs a failure.
func Emit(ctx context.Context, p Publisher, logger *slog.Logger, ev Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, ev); err != nil && logger != nil {
		logger.Warn("event publish failed", "event_type", ev.Type, "subject_id", ev.SubjectID, "err", err)
	}
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *Recorder) Types() []Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Type, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}
