package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/triviagame/internal/model"
	"github.com/mcoot/triviagame/internal/storage"
)

// ErrTxContention is returned when a game update keeps losing the optimistic
// lock to other writers
var ErrTxContention = errors.New("redis: too much contention on game")

// Storage is a Redis-backed implementation of the storage interface.
// Each game is one JSON document updated under WATCH/MULTI/EXEC.
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Player operations

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	data, err := json.Marshal(player)
	if err != nil {
		return err
	}

	// Apply TTL only for guest players
	var ttl time.Duration
	if player.IsGuest {
		ttl = s.cfg.GuestPlayerTTL
	}
	return s.client.Set(ctx, playerKey(player.ID), data, ttl).Err()
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	var player model.Player
	if err := s.getJSON(ctx, playerKey(id), &player); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}
	return &player, nil
}

// Registered player operations

func (s *Storage) SaveRegisteredPlayer(ctx context.Context, rp *model.RegisteredPlayer) error {
	data, err := json.Marshal(rp)
	if err != nil {
		return err
	}

	// Use pipeline for atomic save + index update
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, registeredPlayerKey(rp.PlayerID), data, 0)
	pipe.Set(ctx, usernameIndexKey(rp.Username), string(rp.PlayerID), 0)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetRegisteredPlayerByUsername(ctx context.Context, username string) (*model.RegisteredPlayer, error) {
	playerID, err := s.client.Get(ctx, usernameIndexKey(username)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	var rp model.RegisteredPlayer
	if err := s.getJSON(ctx, registeredPlayerKey(model.PlayerID(playerID)), &rp); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}
	return &rp, nil
}

// Category operations

func (s *Storage) SyncCategories(ctx context.Context, categories []model.Category) error {
	existing, err := s.loadCategories(ctx)
	if err != nil {
		return err
	}

	fields := make(map[string]any, len(categories)+len(existing))
	fresh := make(map[model.CategoryID]bool, len(categories))
	for _, c := range categories {
		c.Available = true
		data, err := json.Marshal(c)
		if err != nil {
			return err
		}
		fields[categoryField(c.ID)] = data
		fresh[c.ID] = true
	}
	for _, c := range existing {
		if fresh[c.ID] || !c.Available {
			continue
		}
		c.Available = false
		data, err := json.Marshal(c)
		if err != nil {
			return err
		}
		fields[categoryField(c.ID)] = data
	}

	if len(fields) == 0 {
		return nil
	}
	return s.client.HSet(ctx, categoriesKey(), fields).Err()
}

func (s *Storage) ListCategories(ctx context.Context) ([]model.Category, error) {
	all, err := s.loadCategories(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]model.Category, 0, len(all))
	for _, c := range all {
		if c.Available {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Storage) GetCategory(ctx context.Context, id model.CategoryID) (*model.Category, error) {
	data, err := s.client.HGet(ctx, categoriesKey(), categoryField(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrCategoryNotFound
		}
		return nil, err
	}

	var c model.Category
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Storage) loadCategories(ctx context.Context) ([]model.Category, error) {
	values, err := s.client.HVals(ctx, categoriesKey()).Result()
	if err != nil {
		return nil, err
	}

	out := make([]model.Category, 0, len(values))
	for _, v := range values {
		var c model.Category
		if err := json.Unmarshal([]byte(v), &c); err != nil {
			continue // Skip invalid data
		}
		out = append(out, c)
	}
	return out, nil
}

func categoryField(id model.CategoryID) string {
	return strconv.Itoa(int(id))
}

// Game operations

func (s *Storage) CreateGame(ctx context.Context, detail *model.GameDetail) error {
	data, err := json.Marshal(detail)
	if err != nil {
		return err
	}

	created, err := s.client.SetNX(ctx, gameKey(detail.Game.ID), data, 0).Result()
	if err != nil {
		return err
	}
	if !created {
		return model.ErrGameExists
	}

	pipe := s.client.Pipeline()
	for _, p := range detail.Participations {
		pipe.SAdd(ctx, playerGamesIndexKey(p.PlayerID), string(detail.Game.ID))
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetGame(ctx context.Context, id model.GameID) (*model.Game, error) {
	detail, err := s.GetGameDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	return &detail.Game, nil
}

func (s *Storage) GetGameDetail(ctx context.Context, id model.GameID) (*model.GameDetail, error) {
	var detail model.GameDetail
	if err := s.getJSON(ctx, gameKey(id), &detail); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrGameNotFound
		}
		return nil, err
	}
	return &detail, nil
}

func (s *Storage) UpdateGame(ctx context.Context, id model.GameID, fn storage.Mutator) (*model.GameDetail, error) {
	key := gameKey(id)

	for attempt := 0; attempt < s.cfg.MaxTxRetries; attempt++ {
		var result *model.GameDetail

		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					return model.ErrGameNotFound
				}
				return err
			}

			var current model.GameDetail
			if err := json.Unmarshal(data, &current); err != nil {
				return err
			}

			working := current.Clone()
			if err := fn(working); err != nil {
				if errors.Is(err, storage.ErrSkipWrite) {
					result = &current
					return nil
				}
				return err
			}
			if err := storage.CheckAnswerUniqueness(working); err != nil {
				return err
			}

			updated, err := json.Marshal(working)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				s.writeGame(ctx, pipe, &current, working, updated)
				return nil
			})
			if err != nil {
				return err
			}
			result = working
			return nil
		}, key)

		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}

	return nil, fmt.Errorf("update game %s: %w", id, ErrTxContention)
}

// writeGame queues the document write and index maintenance for an updated game
func (s *Storage) writeGame(ctx context.Context, pipe redis.Pipeliner, before, after *model.GameDetail, data []byte) {
	var ttl time.Duration
	if after.Game.IsEnded() {
		ttl = s.cfg.EndedGameTTL
	}
	pipe.Set(ctx, gameKey(after.Game.ID), data, ttl)

	for _, p := range after.Participations {
		if before.Participation(p.PlayerID) == nil {
			pipe.SAdd(ctx, playerGamesIndexKey(p.PlayerID), string(after.Game.ID))
		}
	}

	switch after.Game.Status() {
	case model.GameStatusInProgress:
		pipe.ZAdd(ctx, liveGamesIndexKey(), redis.Z{
			Score:  float64(after.Game.StartedAt.UnixMilli()),
			Member: string(after.Game.ID),
		})
	case model.GameStatusEnded:
		pipe.ZRem(ctx, liveGamesIndexKey(), string(after.Game.ID))
	}
}

// Listing operations

func (s *Storage) ListPlayerGames(ctx context.Context, playerID model.PlayerID) ([]model.GameSummary, error) {
	ids, err := s.client.SMembers(ctx, playerGamesIndexKey(playerID)).Result()
	if err != nil {
		return nil, err
	}

	out, err := s.loadSummaries(ctx, ids)
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Game.CreatedAt.After(out[j].Game.CreatedAt)
	})
	return out, nil
}

func (s *Storage) ListLiveGames(ctx context.Context, limit int) ([]model.GameSummary, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}

	ids, err := s.client.ZRevRange(ctx, liveGamesIndexKey(), 0, stop).Result()
	if err != nil {
		return nil, err
	}
	return s.loadSummaries(ctx, ids)
}

// loadSummaries fetches games by id, preserving order and skipping expired ones
func (s *Storage) loadSummaries(ctx context.Context, ids []string) ([]model.GameSummary, error) {
	if len(ids) == 0 {
		return []model.GameSummary{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = gameKey(model.GameID(id))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	out := make([]model.GameSummary, 0, len(values))
	for _, val := range values {
		str, ok := val.(string)
		if !ok {
			continue // Game may have expired
		}
		var detail model.GameDetail
		if err := json.Unmarshal([]byte(str), &detail); err != nil {
			continue // Skip invalid data
		}
		out = append(out, model.GameSummary{
			Game:        detail.Game,
			PlayerCount: len(detail.Participations),
		})
	}
	return out, nil
}

func (s *Storage) getJSON(ctx context.Context, key string, v any) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
