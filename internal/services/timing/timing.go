// Package timing evaluates question windows. It performs no I/O.
package timing

import (
	"time"

	"github.com/mcoot/triviagame/internal/model"
)

// Phase is where "now" falls relative to a question's window
type Phase string

const (
	PhaseWaiting Phase = "waiting" // Window opened, answers not yet accepted
	PhaseActive  Phase = "active"  // Answers accepted
	PhaseClosed  Phase = "closed"  // Window over, results may be revealed
)

// State is the evaluated phase of a question with the instant it next changes
type State struct {
	Phase Phase

	// Deadline is StartedAt while waiting, EndedAt while active and zero once closed
	Deadline time.Time
}

// Remaining returns the time left until Deadline, never negative
func (s State) Remaining(now time.Time) time.Duration {
	if s.Deadline.IsZero() || !s.Deadline.After(now) {
		return 0
	}
	return s.Deadline.Sub(now)
}

// Evaluate returns the phase of q at now. Both window boundaries are
// inclusive in the active phase. A question without an opened window has no
// phase and yields model.ErrInvalidTimingState.
func Evaluate(q *model.Question, now time.Time) (State, error) {
	if q == nil || !q.HasWindow() {
		return State{}, model.ErrInvalidTimingState
	}

	switch {
	case now.Before(*q.StartedAt):
		return State{Phase: PhaseWaiting, Deadline: *q.StartedAt}, nil
	case now.After(*q.EndedAt):
		return State{Phase: PhaseClosed}, nil
	default:
		return State{Phase: PhaseActive, Deadline: *q.EndedAt}, nil
	}
}

// Config holds the window lengths applied when a question is opened
type Config struct {
	// LeadIn is the delay between opening a window and accepting answers
	LeadIn time.Duration

	// RoundDuration is how long answers are accepted
	RoundDuration time.Duration
}

// DefaultConfig returns the standard 5s lead-in and 15s answer window
func DefaultConfig() Config {
	return Config{
		LeadIn:        5 * time.Second,
		RoundDuration: 15 * time.Second,
	}
}

// Window returns the window for a question opened at now
func (c Config) Window(now time.Time) model.Window {
	start := now.Add(c.LeadIn)
	return model.Window{
		StartsAt: start,
		EndsAt:   start.Add(c.RoundDuration),
	}
}
