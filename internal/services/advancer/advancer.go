// Package advancer moves a game from one question to the next, or ends it.
package advancer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mcoot/triviagame/internal/dependencies/clock"
	"github.com/mcoot/triviagame/internal/events"
	"github.com/mcoot/triviagame/internal/model"
	"github.com/mcoot/triviagame/internal/services/ledger"
	"github.com/mcoot/triviagame/internal/services/timing"
	"github.com/mcoot/triviagame/internal/storage"
)

// errStale ends an advance whose expected position no longer matches
var errStale = errors.New("stale advance")

// Service performs advances as a compare-and-swap on the current question
// position. Duplicate and racing advances for one position collapse into a
// single transition; the rest report a no-op.
type Service struct {
	storage storage.Storage
	emitter *events.Emitter
	clock   clock.Clock
	timing  timing.Config
	logger  *slog.Logger
}

// New creates a new advancer Service
func New(storage storage.Storage, emitter *events.Emitter, clock clock.Clock, timing timing.Config, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		emitter: emitter,
		clock:   clock,
		timing:  timing,
		logger:  logger,
	}
}

// Advance moves the game past expectedPosition on behalf of a participant.
// The host may advance at any time; other players only once the question has closed.
func (s *Service) Advance(ctx context.Context, gameID model.GameID, requesterID model.PlayerID, expectedPosition int) (*model.AdvanceResult, error) {
	return s.advance(ctx, gameID, expectedPosition, func(d *model.GameDetail, state timing.State) error {
		p := d.Participation(requesterID)
		if p == nil {
			return model.ErrNotParticipant
		}
		if !p.IsHost && state.Phase != timing.PhaseClosed {
			return model.ErrRoundInProgress
		}
		return nil
	}, slog.String("player_id", string(requesterID)))
}

// AdvanceOnSchedule advances a game whose question window has run out. It is
// a no-op while the question is still open.
func (s *Service) AdvanceOnSchedule(ctx context.Context, gameID model.GameID, expectedPosition int) (*model.AdvanceResult, error) {
	return s.advance(ctx, gameID, expectedPosition, func(d *model.GameDetail, state timing.State) error {
		if state.Phase != timing.PhaseClosed {
			return errStale
		}
		return nil
	}, slog.String("trigger", "schedule"))
}

type authorizeFunc func(d *model.GameDetail, state timing.State) error

func (s *Service) advance(
	ctx context.Context,
	gameID model.GameID,
	expectedPosition int,
	authorize authorizeFunc,
	who slog.Attr,
) (*model.AdvanceResult, error) {
	now := s.clock.Now()

	var (
		applied bool
		ended   bool
		opened  model.Window
		winners []model.PlayerID
	)
	detail, err := s.storage.UpdateGame(ctx, gameID, func(d *model.GameDetail) error {
		applied, ended = false, false
		winners = nil

		if !d.Game.IsStarted() {
			return model.ErrGameNotStarted
		}
		if d.Game.IsEnded() || d.Game.CurrentQuestion != expectedPosition {
			// Non-members are rejected even when the advance is stale
			if err := authorize(d, timing.State{Phase: timing.PhaseClosed}); err != nil && !errors.Is(err, errStale) {
				return err
			}
			return storage.ErrSkipWrite
		}

		current, err := d.CurrentQuestion()
		if err != nil {
			return err
		}
		state, err := timing.Evaluate(current, now)
		if err != nil {
			return err
		}
		if err := authorize(d, state); err != nil {
			if errors.Is(err, errStale) {
				return storage.ErrSkipWrite
			}
			return err
		}

		current.CloseBy(now)
		d.Game.UpdatedAt = now
		applied = true

		if d.Game.IsLastQuestion() {
			endedAt := now
			d.Game.EndedAt = &endedAt
			winners = ledger.Settle(d)
			ended = true
			return nil
		}

		d.Game.CurrentQuestion++
		next, err := d.CurrentQuestion()
		if err != nil {
			return err
		}
		opened = s.timing.Window(now)
		next.OpenWindow(opened)
		return nil
	})
	if err != nil {
		if errors.Is(err, model.ErrInvalidTimingState) {
			s.logger.Error("game timing state is invalid",
				slog.String("game_id", string(gameID)),
				slog.Int("position", expectedPosition),
				who,
			)
		}
		return nil, err
	}

	result := &model.AdvanceResult{Outcome: model.OutcomeNoOp, Game: detail.Game, Ended: ended}
	if !applied {
		s.logger.Debug("advance was a no-op",
			slog.String("game_id", string(gameID)),
			slog.Int("expected_position", expectedPosition),
			slog.Int("current_position", detail.Game.CurrentQuestion),
			who,
		)
		return result, nil
	}
	result.Outcome = model.OutcomeApplied

	if ended {
		s.logger.Info("game ended",
			slog.String("game_id", string(gameID)),
			slog.Int("winner_count", len(winners)),
			who,
		)
		s.emitter.Emit(ctx, model.EventGameEnded, gameID, "", model.GameEndedPayload{
			Winners: winners,
			Scores:  ledger.Scores(detail),
		})
		return result, nil
	}

	s.logger.Info("question advanced",
		slog.String("game_id", string(gameID)),
		slog.Int("position", detail.Game.CurrentQuestion),
		who,
	)
	s.emitter.Emit(ctx, model.EventQuestionOpened, gameID, "", model.QuestionOpenedPayload{
		Position: detail.Game.CurrentQuestion,
		StartsAt: opened.StartsAt,
		EndsAt:   opened.EndsAt,
	})
	return result, nil
}

// NextDeadline returns when the current question of a live game closes, or
// false if the game is not live
func NextDeadline(d *model.GameDetail) (time.Time, bool) {
	if !d.Game.IsStarted() || d.Game.IsEnded() {
		return time.Time{}, false
	}
	q, err := d.CurrentQuestion()
	if err != nil || q.EndedAt == nil {
		return time.Time{}, false
	}
	return *q.EndedAt, true
}
