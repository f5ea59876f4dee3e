// Package events delivers game domain events after they are persisted.
package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/mcoot/triviagame/internal/model"
)

// Publisher delivers an event. Events are published after the state change
// they describe has committed, so a failed publish never rolls anything back.
type Publisher interface {
	Publish(ctx context.Context, event model.Event) error
}

// PublisherFunc adapts a function to the Publisher interface
type PublisherFunc func(ctx context.Context, event model.Event) error

// Publish calls f(ctx, event)
func (f PublisherFunc) Publish(ctx context.Context, event model.Event) error {
	return f(ctx, event)
}

// Nop discards every event
var Nop Publisher = PublisherFunc(func(context.Context, model.Event) error { return nil })

// Fanout publishes each event to every subscriber in registration order and
// joins their errors. Subscribers may be added while events are flowing.
type Fanout struct {
	mu          sync.RWMutex
	subscribers []Publisher
}

// NewFanout creates a Fanout with the given subscribers
func NewFanout(subscribers ...Publisher) *Fanout {
	return &Fanout{subscribers: subscribers}
}

// Subscribe adds a subscriber
func (f *Fanout) Subscribe(p Publisher) {
	f.mu.Lock()
	f.subscribers = append(f.subscribers, p)
	f.mu.Unlock()
}

// Publish delivers event to all subscribers
func (f *Fanout) Publish(ctx context.Context, event model.Event) error {
	f.mu.RLock()
	subs := append([]Publisher(nil), f.subscribers...)
	f.mu.RUnlock()

	var errs []error
	for _, p := range subs {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogPublisher writes each event to a structured logger at debug level
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a LogPublisher
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the event
func (p *LogPublisher) Publish(ctx context.Context, event model.Event) error {
	p.logger.DebugContext(ctx, "game event",
		slog.String("event_id", event.ID),
		slog.String("event_type", string(event.Type)),
		slog.String("game_id", string(event.GameID)),
		slog.String("player_id", string(event.PlayerID)),
	)
	return nil
}

// Recorder keeps every published event in memory
type Recorder struct {
	mu     sync.Mutex
	events []model.Event
}

// NewRecorder creates an empty Recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Publish records the event
func (r *Recorder) Publish(_ context.Context, event model.Event) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	return nil
}

// Events returns the recorded events in publish order
func (r *Recorder) Events() []model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Event(nil), r.events...)
}

// Types returns the recorded event types in publish order
func (r *Recorder) Types() []model.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}
