package storage

import (
	"context"
	"errors"

	"github.com/mcoot/triviagame/internal/model"
)

// ErrSkipWrite may be returned by a Mutator to end the transaction without
// persisting anything. UpdateGame then returns the unchanged detail and no error.
var ErrSkipWrite = errors.New("skip write")

// Mutator changes a game inside a storage transaction. Returning an error
// aborts the transaction and nothing it did is persisted.
type Mutator func(detail *model.GameDetail) error

// Storage defines the interface for data persistence
type Storage interface {
	// Player operations
	SavePlayer(ctx context.Context, player *model.Player) error
	GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error)

	// Registered player operations
	SaveRegisteredPlayer(ctx context.Context, rp *model.RegisteredPlayer) error
	GetRegisteredPlayerByUsername(ctx context.Context, username string) (*model.RegisteredPlayer, error)

	// Category operations
	// SyncCategories upserts the given categories as available and marks every
	// category missing from the list unavailable.
	SyncCategories(ctx context.Context, categories []model.Category) error
	ListCategories(ctx context.Context) ([]model.Category, error)
	GetCategory(ctx context.Context, id model.CategoryID) (*model.Category, error)

	// Game operations
	// CreateGame stores a game with its questions and host participation as one unit.
	// Returns model.ErrGameExists if the id is taken.
	CreateGame(ctx context.Context, detail *model.GameDetail) error
	GetGame(ctx context.Context, id model.GameID) (*model.Game, error)
	GetGameDetail(ctx context.Context, id model.GameID) (*model.GameDetail, error)

	// UpdateGame runs fn against the freshest state of the game and persists the
	// result atomically. Concurrent UpdateGame calls on one game are serialized.
	// fn may run more than once when a backend retries an optimistic transaction,
	// so it must not have side effects outside the detail.
	UpdateGame(ctx context.Context, id model.GameID, fn Mutator) (*model.GameDetail, error)

	// Listing operations
	ListPlayerGames(ctx context.Context, playerID model.PlayerID) ([]model.GameSummary, error)
	ListLiveGames(ctx context.Context, limit int) ([]model.GameSummary, error)
}

// CheckAnswerUniqueness enforces one answer per (participation, question).
// Backends without a native uniqueness constraint call it before committing.
func CheckAnswerUniqueness(detail *model.GameDetail) error {
	type key struct {
		participation model.ParticipationID
		question      model.QuestionID
	}
	seen := make(map[key]bool, len(detail.Answers))
	for _, a := range detail.Answers {
		k := key{a.ParticipationID, a.QuestionID}
		if seen[k] {
			return model.ErrDuplicateAnswer
		}
		seen[k] = true
	}
	return nil
}
