package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/mcoot/triviagame/internal/model"
	"github.com/mcoot/triviagame/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	players           map[model.PlayerID]*model.Player
	registeredPlayers map[model.PlayerID]*model.RegisteredPlayer
	usernameIndex     map[string]model.PlayerID
	categories        map[model.CategoryID]model.Category
	games             map[model.GameID]*model.GameDetail
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		players:           make(map[model.PlayerID]*model.Player),
		registeredPlayers: make(map[model.PlayerID]*model.RegisteredPlayer),
		usernameIndex:     make(map[string]model.PlayerID),
		categories:        make(map[model.CategoryID]model.Category),
		games:             make(map[model.GameID]*model.GameDetail),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Player operations

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := *player
	s.players[player.ID] = &p
	return nil
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	player, ok := s.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	p := *player
	return &p, nil
}

// Registered player operations

func (s *Storage) SaveRegisteredPlayer(ctx context.Context, rp *model.RegisteredPlayer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := *rp
	s.registeredPlayers[rp.PlayerID] = &r
	s.usernameIndex[rp.Username] = rp.PlayerID
	return nil
}

func (s *Storage) GetRegisteredPlayerByUsername(ctx context.Context, username string) (*model.RegisteredPlayer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	playerID, ok := s.usernameIndex[username]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	rp, ok := s.registeredPlayers[playerID]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	r := *rp
	return &r, nil
}

// Category operations

func (s *Storage) SyncCategories(ctx context.Context, categories []model.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fresh := make(map[model.CategoryID]bool, len(categories))
	for _, c := range categories {
		c.Available = true
		s.categories[c.ID] = c
		fresh[c.ID] = true
	}
	for id, c := range s.categories {
		if !fresh[id] && c.Available {
			c.Available = false
			s.categories[id] = c
		}
	}
	return nil
}

func (s *Storage) ListCategories(ctx context.Context) ([]model.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Category
	for _, c := range s.categories {
		if c.Available {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Storage) GetCategory(ctx context.Context, id model.CategoryID) (*model.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[id]
	if !ok {
		return nil, model.ErrCategoryNotFound
	}
	return &c, nil
}

// Game operations

func (s *Storage) CreateGame(ctx context.Context, detail *model.GameDetail) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.games[detail.Game.ID]; exists {
		return model.ErrGameExists
	}
	s.games[detail.Game.ID] = detail.Clone()
	return nil
}

func (s *Storage) GetGame(ctx context.Context, id model.GameID) (*model.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	detail, ok := s.games[id]
	if !ok {
		return nil, model.ErrGameNotFound
	}
	g := detail.Clone().Game
	return &g, nil
}

func (s *Storage) GetGameDetail(ctx context.Context, id model.GameID) (*model.GameDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	detail, ok := s.games[id]
	if !ok {
		return nil, model.ErrGameNotFound
	}
	return detail.Clone(), nil
}

func (s *Storage) UpdateGame(ctx context.Context, id model.GameID, fn storage.Mutator) (*model.GameDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.games[id]
	if !ok {
		return nil, model.ErrGameNotFound
	}

	// Mutate a copy so a failing fn leaves stored state untouched
	working := current.Clone()
	if err := fn(working); err != nil {
		if errors.Is(err, storage.ErrSkipWrite) {
			return current.Clone(), nil
		}
		return nil, err
	}
	if err := storage.CheckAnswerUniqueness(working); err != nil {
		return nil, err
	}

	s.games[id] = working
	return working.Clone(), nil
}

// Listing operations

func (s *Storage) ListPlayerGames(ctx context.Context, playerID model.PlayerID) ([]model.GameSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.GameSummary
	for _, detail := range s.games {
		if detail.Participation(playerID) != nil {
			out = append(out, summarize(detail))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Game.CreatedAt.After(out[j].Game.CreatedAt)
	})
	return out, nil
}

func (s *Storage) ListLiveGames(ctx context.Context, limit int) ([]model.GameSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.GameSummary
	for _, detail := range s.games {
		if detail.Game.Status() == model.GameStatusInProgress {
			out = append(out, summarize(detail))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Game.StartedAt.After(*out[j].Game.StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func summarize(detail *model.GameDetail) model.GameSummary {
	return model.GameSummary{
		Game:        detail.Clone().Game,
		PlayerCount: len(detail.Participations),
	}
}
