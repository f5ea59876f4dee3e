package events

import (
	"context"
	"log/slog"

	"github.com/mcoot/triviagame/internal/dependencies/clock"
	"github.com/mcoot/triviagame/internal/dependencies/random"
	"github.com/mcoot/triviagame/internal/model"
)

// Emitter stamps and publishes events on behalf of services. Publish
// failures are logged and otherwise ignored: the state change already committed.
type Emitter struct {
	publisher Publisher
	clock     clock.Clock
	random    random.Random
	logger    *slog.Logger
}

// NewEmitter creates a new Emitter
func NewEmitter(publisher Publisher, clock clock.Clock, random random.Random, logger *slog.Logger) *Emitter {
	if publisher == nil {
		publisher = Nop
	}
	return &Emitter{
		publisher: publisher,
		clock:     clock,
		random:    random,
		logger:    logger,
	}
}

// Emit publishes an event of type t
func (e *Emitter) Emit(ctx context.Context, t model.EventType, gameID model.GameID, playerID model.PlayerID, payload any) {
	event := model.Event{
		ID:        e.random.UUID(),
		Type:      t,
		Timestamp: e.clock.Now(),
		GameID:    gameID,
		PlayerID:  playerID,
		Payload:   payload,
	}
	if err := e.publisher.Publish(ctx, event); err != nil {
		e.logger.Warn("failed to publish event",
			slog.String("event_type", string(t)),
			slog.String("game_id", string(gameID)),
			slog.String("error", err.Error()),
		)
	}
}
