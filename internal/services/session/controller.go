// Package session implements the player-facing game transitions: creation,
// joining, beginning, answering and viewing.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mcoot/triviagame/internal/dependencies/clock"
	"github.com/mcoot/triviagame/internal/dependencies/random"
	"github.com/mcoot/triviagame/internal/events"
	"github.com/mcoot/triviagame/internal/model"
	"github.com/mcoot/triviagame/internal/services/ledger"
	"github.com/mcoot/triviagame/internal/services/questions"
	"github.com/mcoot/triviagame/internal/services/timing"
	"github.com/mcoot/triviagame/internal/services/view"
	"github.com/mcoot/triviagame/internal/storage"
)

// Config holds game session settings
type Config struct {
	Timing          timing.Config
	ProviderTimeout time.Duration
	SlugLength      int
	MaxSlugAttempts int
	LiveGamesLimit  int
}

// DefaultConfig returns the standard session settings
func DefaultConfig() Config {
	return Config{
		Timing:          timing.DefaultConfig(),
		ProviderTimeout: 10 * time.Second,
		SlugLength:      6,
		MaxSlugAttempts: 5,
		LiveGamesLimit:  5,
	}
}

// Controller runs game session transitions. It holds no per-game state:
// every operation reads and writes through storage, so any replica may serve any game.
type Controller struct {
	storage  storage.Storage
	provider questions.Provider
	catalog  *questions.Catalog
	ledger   *ledger.Ledger
	emitter  *events.Emitter
	clock    clock.Clock
	random   random.Random
	cfg      Config
	logger   *slog.Logger
}

// NewController creates a new session Controller
func NewController(
	storage storage.Storage,
	provider questions.Provider,
	catalog *questions.Catalog,
	ledger *ledger.Ledger,
	emitter *events.Emitter,
	clock clock.Clock,
	random random.Random,
	cfg Config,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		storage:  storage,
		provider: provider,
		catalog:  catalog,
		ledger:   ledger,
		emitter:  emitter,
		clock:    clock,
		random:   random,
		cfg:      cfg,
		logger:   logger,
	}
}

// CreateGame fetches questions and stores a new game hosted by hostID.
// The provider is called exactly once; if it fails nothing is stored.
func (c *Controller) CreateGame(ctx context.Context, hostID model.PlayerID, categoryID model.CategoryID, count int) (*model.GameDetail, error) {
	if count < 1 || count > model.MaxQuestionCount {
		return nil, model.ErrInvalidQuestionCount
	}

	host, err := c.storage.GetPlayer(ctx, hostID)
	if err != nil {
		return nil, err
	}
	if _, err := c.catalog.Get(ctx, categoryID); err != nil {
		return nil, err
	}

	fetchCtx, cancel := context.WithTimeout(ctx, c.cfg.ProviderTimeout)
	data, err := c.provider.FetchQuestions(fetchCtx, categoryID, count)
	cancel()
	if err == nil && len(data) != count {
		err = fmt.Errorf("provider returned %d questions, wanted %d", len(data), count)
	}
	if err != nil {
		c.logger.Warn("question provider failed",
			slog.Int("category_id", int(categoryID)),
			slog.Int("count", count),
			slog.String("error", err.Error()),
		)
		if !errors.Is(err, model.ErrProviderUnavailable) {
			err = fmt.Errorf("%w: %w", model.ErrProviderUnavailable, err)
		}
		return nil, err
	}

	now := c.clock.Now()
	for attempt := 1; ; attempt++ {
		detail := c.buildGame(host, categoryID, data, now)

		err := c.storage.CreateGame(ctx, detail)
		if err == nil {
			c.logger.Info("game created",
				slog.String("game_id", string(detail.Game.ID)),
				slog.String("host_id", string(hostID)),
				slog.Int("category_id", int(categoryID)),
				slog.Int("question_count", count),
			)
			c.emitter.Emit(ctx, model.EventGameCreated, detail.Game.ID, hostID, nil)
			return detail, nil
		}
		if !errors.Is(err, model.ErrGameExists) || attempt >= c.cfg.MaxSlugAttempts {
			c.logger.Error("failed to save game",
				slog.String("game_id", string(detail.Game.ID)),
				slog.String("error", err.Error()),
			)
			return nil, err
		}
	}
}

func (c *Controller) buildGame(host *model.Player, categoryID model.CategoryID, data []model.QuestionData, now time.Time) *model.GameDetail {
	gameID := model.GameID(c.random.String(c.cfg.SlugLength, random.SlugAlphabet))

	detail := &model.GameDetail{
		Game: model.Game{
			ID:            gameID,
			CategoryID:    categoryID,
			HostID:        host.ID,
			QuestionCount: len(data),
			CreatedAt:     now,
			UpdatedAt:     now,
		},
		Participations: []model.Participation{{
			ID:          model.ParticipationID(c.random.UUID()),
			GameID:      gameID,
			PlayerID:    host.ID,
			DisplayName: host.DisplayName,
			IsHost:      true,
			JoinedAt:    now,
		}},
	}

	for i, d := range data {
		detail.Questions = append(detail.Questions, model.Question{
			ID:               model.QuestionID(c.random.UUID()),
			GameID:           gameID,
			Position:         i,
			Text:             d.Text,
			CorrectAnswer:    d.CorrectAnswer,
			IncorrectAnswers: append([]string(nil), d.IncorrectAnswers...),
			CorrectIndex:     c.random.Intn(len(d.IncorrectAnswers) + 1),
			Difficulty:       d.Difficulty,
			Type:             d.Type,
		})
	}
	return detail
}

// Join adds playerID to a game that has not started
func (c *Controller) Join(ctx context.Context, gameID model.GameID, playerID model.PlayerID) (*model.Participation, error) {
	player, err := c.storage.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}

	now := c.clock.Now()
	var joined model.Participation
	_, err = c.storage.UpdateGame(ctx, gameID, func(d *model.GameDetail) error {
		if d.Game.IsStarted() {
			return model.ErrAlreadyStarted
		}
		if d.Participation(playerID) != nil {
			return model.ErrAlreadyJoined
		}

		joined = model.Participation{
			ID:          model.ParticipationID(c.random.UUID()),
			GameID:      gameID,
			PlayerID:    playerID,
			DisplayName: player.DisplayName,
			JoinedAt:    now,
		}
		d.Participations = append(d.Participations, joined)
		d.Game.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("player joined game",
		slog.String("game_id", string(gameID)),
		slog.String("player_id", string(playerID)),
	)
	c.emitter.Emit(ctx, model.EventPlayerJoined, gameID, playerID,
		model.PlayerJoinedPayload{DisplayName: player.DisplayName})
	return &joined, nil
}

// Begin starts the game and opens the first question's window. Only the host may begin.
func (c *Controller) Begin(ctx context.Context, gameID model.GameID, requesterID model.PlayerID) (*model.GameDetail, error) {
	now := c.clock.Now()
	window := c.cfg.Timing.Window(now)

	detail, err := c.storage.UpdateGame(ctx, gameID, func(d *model.GameDetail) error {
		p := d.Participation(requesterID)
		if p == nil || !p.IsHost {
			return model.ErrNotHost
		}
		if d.Game.IsStarted() {
			return model.ErrAlreadyStarted
		}

		first, err := d.QuestionAt(0)
		if err != nil {
			return err
		}
		started := now
		d.Game.StartedAt = &started
		d.Game.CurrentQuestion = 0
		d.Game.UpdatedAt = now
		first.OpenWindow(window)
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("game started",
		slog.String("game_id", string(gameID)),
		slog.Int("player_count", len(detail.Participations)),
	)
	c.emitter.Emit(ctx, model.EventGameStarted, gameID, requesterID, nil)
	c.emitter.Emit(ctx, model.EventQuestionOpened, gameID, "", model.QuestionOpenedPayload{
		Position: 0,
		StartsAt: window.StartsAt,
		EndsAt:   window.EndsAt,
	})
	return detail, nil
}

// SubmitAnswer records playerID's answer to the current question. The
// question must be in its active phase and text must be one of its options.
func (c *Controller) SubmitAnswer(ctx context.Context, gameID model.GameID, playerID model.PlayerID, text string) (*model.Answer, error) {
	now := c.clock.Now()

	var (
		recorded *model.Answer
		score    int
	)
	_, err := c.storage.UpdateGame(ctx, gameID, func(d *model.GameDetail) error {
		p := d.Participation(playerID)
		if p == nil {
			return model.ErrNotParticipant
		}
		if !d.Game.IsStarted() {
			return model.ErrQuestionNotStarted
		}
		if d.Game.IsEnded() {
			return model.ErrQuestionClosed
		}

		q, err := d.CurrentQuestion()
		if err != nil {
			return err
		}
		state, err := timing.Evaluate(q, now)
		if err != nil {
			return err
		}
		switch state.Phase {
		case timing.PhaseWaiting:
			return model.ErrQuestionNotStarted
		case timing.PhaseClosed:
			return model.ErrQuestionClosed
		}
		if !q.IsOption(text) {
			return model.ErrInvalidAnswer
		}

		recorded, err = c.ledger.Record(d, p.ID, q, text, now)
		if err != nil {
			return err
		}
		score = d.Participation(playerID).Score
		return nil
	})
	if err != nil {
		c.logFailure("submit answer", gameID, playerID, err)
		return nil, err
	}

	c.emitter.Emit(ctx, model.EventAnswerRecorded, gameID, playerID, model.AnswerRecordedPayload{
		Position: recorded.Position,
		Score:    score,
	})
	return recorded, nil
}

// CurrentQuestionView returns the game as viewerID may see it right now
func (c *Controller) CurrentQuestionView(ctx context.Context, gameID model.GameID, viewerID model.PlayerID) (*view.Snapshot, error) {
	detail, err := c.storage.GetGameDetail(ctx, gameID)
	if err != nil {
		return nil, err
	}

	snap, err := view.Build(detail, viewerID, c.clock.Now())
	if err != nil {
		c.logFailure("build view", gameID, viewerID, err)
		return nil, err
	}
	return snap, nil
}

// GetGame returns a game with everything it owns
func (c *Controller) GetGame(ctx context.Context, gameID model.GameID) (*model.GameDetail, error) {
	return c.storage.GetGameDetail(ctx, gameID)
}

// ListPlayerGames groups the games playerID belongs to by lifecycle stage
func (c *Controller) ListPlayerGames(ctx context.Context, playerID model.PlayerID) (*model.PlayerGames, error) {
	summaries, err := c.storage.ListPlayerGames(ctx, playerID)
	if err != nil {
		return nil, err
	}

	out := &model.PlayerGames{
		Upcoming: []model.GameSummary{},
		Current:  []model.GameSummary{},
		Past:     []model.GameSummary{},
	}
	for _, sum := range summaries {
		switch sum.Game.Status() {
		case model.GameStatusLobby:
			out.Upcoming = append(out.Upcoming, sum)
		case model.GameStatusInProgress:
			out.Current = append(out.Current, sum)
		case model.GameStatusEnded:
			out.Past = append(out.Past, sum)
		}
	}
	return out, nil
}

// ListLiveGames returns the most recently started games still in progress
func (c *Controller) ListLiveGames(ctx context.Context) ([]model.GameSummary, error) {
	return c.storage.ListLiveGames(ctx, c.cfg.LiveGamesLimit)
}

// logFailure logs a failed operation at a level matching how alarming the error is.
// Duplicate answers are routine racing retries; invalid timing freezes a game.
func (c *Controller) logFailure(op string, gameID model.GameID, playerID model.PlayerID, err error) {
	attrs := []any{
		slog.String("op", op),
		slog.String("game_id", string(gameID)),
		slog.String("player_id", string(playerID)),
		slog.String("error", err.Error()),
	}
	switch {
	case errors.Is(err, model.ErrInvalidTimingState):
		c.logger.Error("game timing state is invalid", attrs...)
	case errors.Is(err, model.ErrDuplicateAnswer):
		c.logger.Debug("duplicate answer ignored", attrs...)
	}
}
