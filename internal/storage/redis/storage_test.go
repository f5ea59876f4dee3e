package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/triviagame/internal/model"
	"github.com/mcoot/triviagame/internal/storage"
	"github.com/mcoot/triviagame/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.Suite
	mini *miniredis.Miniredis
}

func TestStorageSuite(t *testing.T) {
	s := &StorageSuite{}
	s.NewStorage = func(t *testing.T) storage.Storage {
		s.mini = miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: s.mini.Addr()})
		t.Cleanup(func() { _ = client.Close() })

		cfg := DefaultConfig()
		cfg.GuestPlayerTTL = time.Hour
		cfg.EndedGameTTL = time.Hour
		return NewWithClient(client, cfg)
	}
	suite.Run(t, s)
}

func (s *StorageSuite) TestGuestPlayerHasTTL() {
	ctx := context.Background()
	s.Require().NoError(s.Store().SavePlayer(ctx, &model.Player{ID: "guest", DisplayName: "Guest", IsGuest: true}))
	s.Require().NoError(s.Store().SavePlayer(ctx, &model.Player{ID: "member", DisplayName: "Member"}))

	s.Equal(time.Hour, s.mini.TTL(playerKey("guest")))
	s.Equal(time.Duration(0), s.mini.TTL(playerKey("member")))
}

func (s *StorageSuite) TestEndedGameGetsTTLAndLeavesLiveIndex() {
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.Require().NoError(s.Store().CreateGame(ctx, storagetest.NewDetail("abc123", "host", 1, base)))

	started := base.Add(time.Minute)
	_, err := s.Store().UpdateGame(ctx, "abc123", func(d *model.GameDetail) error {
		d.Game.StartedAt = &started
		return nil
	})
	s.Require().NoError(err)
	s.Equal(time.Duration(0), s.mini.TTL(gameKey("abc123")))
	members, err := s.mini.ZMembers(liveGamesIndexKey())
	s.Require().NoError(err)
	s.Equal([]string{"abc123"}, members)

	ended := base.Add(time.Hour)
	_, err = s.Store().UpdateGame(ctx, "abc123", func(d *model.GameDetail) error {
		d.Game.EndedAt = &ended
		return nil
	})
	s.Require().NoError(err)
	s.Equal(time.Hour, s.mini.TTL(gameKey("abc123")))
	members, err = s.mini.ZMembers(liveGamesIndexKey())
	s.Require().NoError(err)
	s.Empty(members)
}

func (s *StorageSuite) TestListPlayerGamesSkipsExpiredGames() {
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.Require().NoError(s.Store().CreateGame(ctx, storagetest.NewDetail("game01", "alice", 1, base)))
	s.Require().NoError(s.Store().CreateGame(ctx, storagetest.NewDetail("game02", "alice", 1, base)))

	s.mini.Del(gameKey("game01"))

	games, err := s.Store().ListPlayerGames(ctx, "alice")
	s.Require().NoError(err)
	s.Require().Len(games, 1)
	s.Equal(model.GameID("game02"), games[0].Game.ID)
}
