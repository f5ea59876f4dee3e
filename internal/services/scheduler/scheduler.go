// Package scheduler advances games whose question window has run out, so a
// game keeps moving even when no client asks it to.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mcoot/triviagame/internal/events"
	"github.com/mcoot/triviagame/internal/model"
	"github.com/mcoot/triviagame/internal/services/advancer"
	"github.com/mcoot/triviagame/internal/storage"
)

// ErrAlreadyRunning is returned when Run is called twice
var ErrAlreadyRunning = errors.New("scheduler is already running")

// Advancer is the part of the advancer service the scheduler drives
type Advancer interface {
	AdvanceOnSchedule(ctx context.Context, gameID model.GameID, expectedPosition int) (*model.AdvanceResult, error)
}

// Config holds scheduler settings
type Config struct {
	// Grace is how long after a window closes the scheduler waits before
	// advancing, leaving clients room to advance on their own
	Grace   time.Duration
	Workers int
}

// DefaultConfig returns the standard scheduler settings
func DefaultConfig() Config {
	return Config{
		Grace:   5 * time.Second,
		Workers: 4,
	}
}

type work struct {
	gameID   model.GameID
	position int
}

type armed struct {
	timer    clockwork.Timer
	position int
	cancel   chan struct{}
}

// Scheduler keeps one timer per live game, armed at the close of its current
// question plus a grace period. Firing timers are handed to a worker pool
// which calls AdvanceOnSchedule; racing client advances make that a no-op.
type Scheduler struct {
	advancer Advancer
	storage  storage.Storage
	clock    clockwork.Clock
	cfg      Config
	logger   *slog.Logger

	mu      sync.Mutex
	timers  map[model.GameID]armed
	running bool

	workCh chan work
	done   chan struct{}
}

// Ensure Scheduler can subscribe to game events
var _ events.Publisher = (*Scheduler)(nil)

// New creates a new Scheduler
func New(advancer Advancer, storage storage.Storage, clock clockwork.Clock, cfg Config, logger *slog.Logger) *Scheduler {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Grace <= 0 {
		cfg.Grace = DefaultConfig().Grace
	}
	return &Scheduler{
		advancer: advancer,
		storage:  storage,
		clock:    clock,
		cfg:      cfg,
		logger:   logger,
		timers:   make(map[model.GameID]armed),
		workCh:   make(chan work, cfg.Workers*2),
		done:     make(chan struct{}),
	}
}

// Run starts the workers, arms timers for games already in progress and
// blocks until ctx is cancelled
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info("scheduler started", slog.Int("workers", s.cfg.Workers))

	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go s.worker(ctx, &wg, i)
	}

	if err := s.recover(ctx); err != nil {
		s.logger.Error("failed to recover live games", slog.String("error", err.Error()))
	}

	<-ctx.Done()

	s.mu.Lock()
	for id, a := range s.timers {
		stop(a)
		delete(s.timers, id)
	}
	s.mu.Unlock()
	close(s.done)
	wg.Wait()

	s.logger.Info("scheduler stopped")
	return nil
}

// recover arms timers for every live game in storage
func (s *Scheduler) recover(ctx context.Context) error {
	live, err := s.storage.ListLiveGames(ctx, 0)
	if err != nil {
		return err
	}
	for _, sum := range live {
		detail, err := s.storage.GetGameDetail(ctx, sum.Game.ID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				continue
			}
			return err
		}
		if deadline, ok := advancer.NextDeadline(detail); ok {
			s.Schedule(detail.Game.ID, detail.Game.CurrentQuestion, deadline)
		}
	}
	s.logger.Info("recovered live games", slog.Int("count", len(live)))
	return nil
}

// Publish receives game events: an opened question arms the game's timer and
// an ended game clears it
func (s *Scheduler) Publish(ctx context.Context, event model.Event) error {
	switch event.Type {
	case model.EventQuestionOpened:
		payload, ok := event.Payload.(model.QuestionOpenedPayload)
		if !ok {
			return nil
		}
		s.Schedule(event.GameID, payload.Position, payload.EndsAt)
	case model.EventGameEnded:
		s.Cancel(event.GameID)
	}
	return nil
}

// Schedule arms the game's timer to advance past position once endsAt plus
// the grace period has passed. A timer already armed for this or a later
// position is kept.
func (s *Scheduler) Schedule(gameID model.GameID, position int, endsAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.timers[gameID]; ok {
		if existing.position >= position {
			return
		}
		stop(existing)
		delete(s.timers, gameID)
	}

	w := work{gameID: gameID, position: position}
	wait := endsAt.Add(s.cfg.Grace).Sub(s.clock.Now())
	if wait <= 0 {
		go s.enqueue(w)
		return
	}

	a := armed{
		timer:    s.clock.NewTimer(wait),
		position: position,
		cancel:   make(chan struct{}),
	}
	s.timers[gameID] = a

	go func() {
		select {
		case <-a.timer.Chan():
			s.mu.Lock()
			if cur, ok := s.timers[gameID]; ok && cur.cancel == a.cancel {
				delete(s.timers, gameID)
			}
			s.mu.Unlock()
			s.enqueue(w)
		case <-a.cancel:
		}
	}()

	s.logger.Debug("scheduled advance",
		slog.String("game_id", string(gameID)),
		slog.Int("position", position),
		slog.Duration("wait", wait),
	)
}

// Cancel clears the game's timer
func (s *Scheduler) Cancel(gameID model.GameID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.timers[gameID]; ok {
		stop(a)
		delete(s.timers, gameID)
	}
}

// Pending returns how many games have an armed timer
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *Scheduler) enqueue(w work) {
	select {
	case s.workCh <- w:
	case <-s.done:
	}
}

func (s *Scheduler) worker(ctx context.Context, wg *sync.WaitGroup, id int) {
	defer wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case w := <-s.workCh:
			s.handle(ctx, w, id)
		}
	}
}

func (s *Scheduler) handle(ctx context.Context, w work, workerID int) {
	result, err := s.advancer.AdvanceOnSchedule(ctx, w.gameID, w.position)
	if err != nil {
		s.logger.Error("scheduled advance failed",
			slog.String("game_id", string(w.gameID)),
			slog.Int("position", w.position),
			slog.Int("worker_id", workerID),
			slog.String("error", err.Error()),
		)
		return
	}
	s.logger.Debug("scheduled advance handled",
		slog.String("game_id", string(w.gameID)),
		slog.Int("position", w.position),
		slog.String("outcome", string(result.Outcome)),
	)
}

// stop stops a timer and releases its waiting goroutine
func stop(a armed) {
	if !a.timer.Stop() {
		select {
		case <-a.timer.Chan():
		default:
		}
	}
	close(a.cancel)
}
