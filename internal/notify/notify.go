// Package notify delivers duel lifecycle events to the interaction layer.
// Two sinks exist: a Redis list consumed by the bot notifier process, and an
// in-process hub feeding live websocket subscribers. Both are best-effort;
// the engine logs failures and moves on.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Hippes/valentine-duel-bot/internal/models"
)

// Event kinds pushed to the sinks.
const (
	EventMatched   = "duel_matched"
	EventCompleted = "duel_completed"
	EventCancelled = "duel_cancelled"
)

// Event is the wire record for one duel lifecycle transition.
type Event struct {
	Type      string       `json:"type"`
	DuelID    uuid.UUID    `json:"duel_id"`
	Duel      *models.Duel `json:"duel"`
	Timestamp int64        `json:"timestamp"`
}

func newEvent(kind string, d *models.Duel) Event {
	return Event{
		Type:      kind,
		DuelID:    d.ID,
		Duel:      d,
		Timestamp: time.Now().Unix(),
	}
}

// Sink receives duel events.
type Sink interface {
	Publish(ctx context.Context, ev Event) error
}

// Fanout implements the engine's Notifier over any number of sinks. The
// first sink error is returned so the engine can log it, but every sink is
// still attempted.
type Fanout struct {
	sinks []Sink
}

func NewFanout(sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks}
}

func (f *Fanout) publish(ctx context.Context, ev Event) error {
	var firstErr error
	for _, sink := range f.sinks {
		if err := sink.Publish(ctx, ev); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (f *Fanout) DuelMatched(ctx context.Context, d *models.Duel) error {
	return f.publish(ctx, newEvent(EventMatched, d))
}

func (f *Fanout) DuelCompleted(ctx context.Context, d *models.Duel) error {
	return f.publish(ctx, newEvent(EventCompleted, d))
}

func (f *Fanout) DuelCancelled(ctx context.Context, d *models.Duel) error {
	return f.publish(ctx, newEvent(EventCancelled, d))
}
