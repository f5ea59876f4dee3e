// Package storagetest holds behaviour tests shared by every storage backend.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/triviagame/internal/model"
	"github.com/mcoot/triviagame/internal/storage"
)

// Suite runs the storage contract against the backend returned by NewStorage.
// NewStorage is called once per test with the current *testing.T.
type Suite struct {
	suite.Suite
	NewStorage func(t *testing.T) storage.Storage

	store storage.Storage
	ctx   context.Context
	base  time.Time
}

func (s *Suite) SetupTest() {
	s.Require().NotNil(s.NewStorage, "NewStorage must be set")
	s.store = s.NewStorage(s.T())
	s.ctx = context.Background()
	s.base = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

// Store returns the storage under test
func (s *Suite) Store() storage.Storage {
	return s.store
}

// NewDetail builds a lobby-stage game with n questions and a host participation
func NewDetail(id model.GameID, host model.PlayerID, n int, createdAt time.Time) *model.GameDetail {
	detail := &model.GameDetail{
		Game: model.Game{
			ID:            id,
			CategoryID:    9,
			HostID:        host,
			QuestionCount: n,
			CreatedAt:     createdAt,
			UpdatedAt:     createdAt,
		},
		Participations: []model.Participation{{
			ID:          model.ParticipationID(fmt.Sprintf("%s-%s", id, host)),
			GameID:      id,
			PlayerID:    host,
			DisplayName: string(host),
			IsHost:      true,
			JoinedAt:    createdAt,
		}},
	}
	for i := 0; i < n; i++ {
		detail.Questions = append(detail.Questions, model.Question{
			ID:               model.QuestionID(fmt.Sprintf("%s-q%d", id, i)),
			GameID:           id,
			Position:         i,
			Text:             fmt.Sprintf("Question %d?", i),
			CorrectAnswer:    fmt.Sprintf("right-%d", i),
			IncorrectAnswers: []string{"wrong-a", "wrong-b", "wrong-c"},
			CorrectIndex:     i % 4,
			Difficulty:       "easy",
			Type:             "multiple",
		})
	}
	return detail
}

// Player tests

func (s *Suite) TestSaveAndGetPlayer() {
	player := &model.Player{ID: "player-1", DisplayName: "Alice", IsGuest: true, CreatedAt: s.base}
	s.Require().NoError(s.store.SavePlayer(s.ctx, player))

	got, err := s.store.GetPlayer(s.ctx, "player-1")
	s.Require().NoError(err)
	s.Equal("Alice", got.DisplayName)
	s.True(got.IsGuest)
}

func (s *Suite) TestGetPlayerNotFound() {
	_, err := s.store.GetPlayer(s.ctx, "missing")
	s.ErrorIs(err, model.ErrPlayerNotFound)
	s.ErrorIs(err, model.ErrNotFound)
}

func (s *Suite) TestRegisteredPlayerByUsername() {
	s.Require().NoError(s.store.SavePlayer(s.ctx, &model.Player{ID: "player-1", DisplayName: "Alice"}))
	rp := &model.RegisteredPlayer{PlayerID: "player-1", Username: "alice", PasswordHash: "hash", CreatedAt: s.base, UpdatedAt: s.base}
	s.Require().NoError(s.store.SaveRegisteredPlayer(s.ctx, rp))

	got, err := s.store.GetRegisteredPlayerByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("player-1"), got.PlayerID)
	s.Equal("hash", got.PasswordHash)

	_, err = s.store.GetRegisteredPlayerByUsername(s.ctx, "bob")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

// Category tests

func (s *Suite) TestSyncCategoriesUpsertsAndDeactivates() {
	s.Require().NoError(s.store.SyncCategories(s.ctx, []model.Category{
		{ID: 9, Name: "General Knowledge", TotalQuestions: 300, UpdatedAt: s.base},
		{ID: 17, Name: "Science & Nature", TotalQuestions: 200, UpdatedAt: s.base},
	}))
	s.Require().NoError(s.store.SyncCategories(s.ctx, []model.Category{
		{ID: 9, Name: "General Knowledge", TotalQuestions: 310, UpdatedAt: s.base.Add(time.Hour)},
	}))

	cats, err := s.store.ListCategories(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(cats, 1)
	s.Equal(model.CategoryID(9), cats[0].ID)
	s.Equal(310, cats[0].TotalQuestions)
	s.True(cats[0].Available)

	stale, err := s.store.GetCategory(s.ctx, 17)
	s.Require().NoError(err)
	s.False(stale.Available)
}

func (s *Suite) TestListCategoriesSortedByName() {
	s.Require().NoError(s.store.SyncCategories(s.ctx, []model.Category{
		{ID: 2, Name: "Sports", UpdatedAt: s.base},
		{ID: 1, Name: "Art", UpdatedAt: s.base},
		{ID: 3, Name: "History", UpdatedAt: s.base},
	}))

	cats, err := s.store.ListCategories(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(cats, 3)
	s.Equal("Art", cats[0].Name)
	s.Equal("History", cats[1].Name)
	s.Equal("Sports", cats[2].Name)
}

func (s *Suite) TestGetCategoryNotFound() {
	_, err := s.store.GetCategory(s.ctx, 999)
	s.ErrorIs(err, model.ErrCategoryNotFound)
}

// Game tests

func (s *Suite) TestCreateAndGetGameDetail() {
	s.Require().NoError(s.store.CreateGame(s.ctx, NewDetail("abc123", "host", 3, s.base)))

	detail, err := s.store.GetGameDetail(s.ctx, "abc123")
	s.Require().NoError(err)
	s.Equal(model.GameID("abc123"), detail.Game.ID)
	s.Equal(3, detail.Game.QuestionCount)
	s.Nil(detail.Game.StartedAt)
	s.Require().Len(detail.Questions, 3)
	for i, q := range detail.Questions {
		s.Equal(i, q.Position)
		s.Equal(i%4, q.CorrectIndex)
		s.Equal([]string{"wrong-a", "wrong-b", "wrong-c"}, q.IncorrectAnswers)
		s.Nil(q.StartedAt)
	}
	s.Require().Len(detail.Participations, 1)
	s.True(detail.Participations[0].IsHost)

	game, err := s.store.GetGame(s.ctx, "abc123")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("host"), game.HostID)
}

func (s *Suite) TestCreateGameRejectsTakenID() {
	s.Require().NoError(s.store.CreateGame(s.ctx, NewDetail("abc123", "host", 1, s.base)))
	err := s.store.CreateGame(s.ctx, NewDetail("abc123", "other", 1, s.base))
	s.ErrorIs(err, model.ErrGameExists)
}

func (s *Suite) TestGetGameNotFound() {
	_, err := s.store.GetGame(s.ctx, "missing")
	s.ErrorIs(err, model.ErrGameNotFound)

	_, err = s.store.GetGameDetail(s.ctx, "missing")
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *Suite) TestUpdateGamePersistsMutation() {
	s.Require().NoError(s.store.CreateGame(s.ctx, NewDetail("abc123", "host", 2, s.base)))
	started := s.base.Add(time.Minute)

	updated, err := s.store.UpdateGame(s.ctx, "abc123", func(d *model.GameDetail) error {
		d.Game.StartedAt = &started
		d.Questions[0].OpenWindow(model.Window{StartsAt: started.Add(5 * time.Second), EndsAt: started.Add(20 * time.Second)})
		d.Participations = append(d.Participations, model.Participation{
			ID: "abc123-p2", GameID: "abc123", PlayerID: "p2", DisplayName: "p2", JoinedAt: s.base,
		})
		return nil
	})
	s.Require().NoError(err)
	s.Require().NotNil(updated.Game.StartedAt)

	detail, err := s.store.GetGameDetail(s.ctx, "abc123")
	s.Require().NoError(err)
	s.Require().NotNil(detail.Game.StartedAt)
	s.True(started.Equal(*detail.Game.StartedAt))
	s.Require().NotNil(detail.Questions[0].StartedAt)
	s.True(started.Add(5 * time.Second).Equal(*detail.Questions[0].StartedAt))
	s.True(started.Add(20 * time.Second).Equal(*detail.Questions[0].EndedAt))
	s.Nil(detail.Questions[1].StartedAt)
	s.Len(detail.Participations, 2)
}

func (s *Suite) TestUpdateGameErrorDiscardsMutation() {
	s.Require().NoError(s.store.CreateGame(s.ctx, NewDetail("abc123", "host", 1, s.base)))
	boom := errors.New("boom")

	_, err := s.store.UpdateGame(s.ctx, "abc123", func(d *model.GameDetail) error {
		d.Participations[0].Score = 10
		return boom
	})
	s.ErrorIs(err, boom)

	detail, err := s.store.GetGameDetail(s.ctx, "abc123")
	s.Require().NoError(err)
	s.Equal(0, detail.Participations[0].Score)
}

func (s *Suite) TestUpdateGameSkipWriteReturnsCurrentState() {
	s.Require().NoError(s.store.CreateGame(s.ctx, NewDetail("abc123", "host", 1, s.base)))

	detail, err := s.store.UpdateGame(s.ctx, "abc123", func(d *model.GameDetail) error {
		d.Participations[0].Score = 10
		return storage.ErrSkipWrite
	})
	s.Require().NoError(err)
	s.Equal(0, detail.Participations[0].Score)
}

func (s *Suite) TestUpdateGameNotFound() {
	_, err := s.store.UpdateGame(s.ctx, "missing", func(d *model.GameDetail) error { return nil })
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *Suite) TestUpdateGameRejectsDuplicateAnswer() {
	s.Require().NoError(s.store.CreateGame(s.ctx, NewDetail("abc123", "host", 1, s.base)))
	answer := model.Answer{
		GameID: "abc123", ParticipationID: "abc123-host", PlayerID: "host",
		QuestionID: "abc123-q0", Position: 0, Text: "right-0", Correct: true, CreatedAt: s.base,
	}

	_, err := s.store.UpdateGame(s.ctx, "abc123", func(d *model.GameDetail) error {
		a := answer
		a.ID = "answer-1"
		d.Answers = append(d.Answers, a)
		return nil
	})
	s.Require().NoError(err)

	_, err = s.store.UpdateGame(s.ctx, "abc123", func(d *model.GameDetail) error {
		a := answer
		a.ID = "answer-2"
		d.Answers = append(d.Answers, a)
		return nil
	})
	s.ErrorIs(err, model.ErrDuplicateAnswer)

	detail, err := s.store.GetGameDetail(s.ctx, "abc123")
	s.Require().NoError(err)
	s.Len(detail.Answers, 1)
}

func (s *Suite) TestUpdateGameSerializesConcurrentWriters() {
	s.Require().NoError(s.store.CreateGame(s.ctx, NewDetail("abc123", "host", 1, s.base)))

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.UpdateGame(s.ctx, "abc123", func(d *model.GameDetail) error {
				d.Participations[0].Score++
				return nil
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.Require().NoError(err)
	}

	detail, err := s.store.GetGameDetail(s.ctx, "abc123")
	s.Require().NoError(err)
	s.Equal(writers, detail.Participations[0].Score)
}

// Listing tests

func (s *Suite) TestListPlayerGames() {
	s.Require().NoError(s.store.CreateGame(s.ctx, NewDetail("game01", "alice", 1, s.base)))
	s.Require().NoError(s.store.CreateGame(s.ctx, NewDetail("game02", "bob", 1, s.base.Add(time.Minute))))
	_, err := s.store.UpdateGame(s.ctx, "game02", func(d *model.GameDetail) error {
		d.Participations = append(d.Participations, model.Participation{
			ID: "game02-alice", GameID: "game02", PlayerID: "alice", DisplayName: "alice", JoinedAt: s.base,
		})
		return nil
	})
	s.Require().NoError(err)

	games, err := s.store.ListPlayerGames(s.ctx, "alice")
	s.Require().NoError(err)
	s.Require().Len(games, 2)
	s.Equal(model.GameID("game02"), games[0].Game.ID)
	s.Equal(2, games[0].PlayerCount)
	s.Equal(model.GameID("game01"), games[1].Game.ID)

	games, err = s.store.ListPlayerGames(s.ctx, "carol")
	s.Require().NoError(err)
	s.Empty(games)
}

func (s *Suite) TestListLiveGames() {
	for i, id := range []model.GameID{"game01", "game02", "game03"} {
		s.Require().NoError(s.store.CreateGame(s.ctx, NewDetail(id, "host", 1, s.base)))
		started := s.base.Add(time.Duration(i) * time.Minute)
		_, err := s.store.UpdateGame(s.ctx, id, func(d *model.GameDetail) error {
			d.Game.StartedAt = &started
			return nil
		})
		s.Require().NoError(err)
	}
	s.Require().NoError(s.store.CreateGame(s.ctx, NewDetail("lobby1", "host", 1, s.base)))

	ended := s.base.Add(time.Hour)
	_, err := s.store.UpdateGame(s.ctx, "game02", func(d *model.GameDetail) error {
		d.Game.EndedAt = &ended
		return nil
	})
	s.Require().NoError(err)

	games, err := s.store.ListLiveGames(s.ctx, 5)
	s.Require().NoError(err)
	s.Require().Len(games, 2)
	s.Equal(model.GameID("game03"), games[0].Game.ID)
	s.Equal(model.GameID("game01"), games[1].Game.ID)

	games, err = s.store.ListLiveGames(s.ctx, 1)
	s.Require().NoError(err)
	s.Len(games, 1)
}
