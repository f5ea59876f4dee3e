package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/triviagame/internal/model"
	"github.com/mcoot/triviagame/internal/storage"
	"github.com/mcoot/triviagame/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.Suite
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, &StorageSuite{
		Suite: storagetest.Suite{
			NewStorage: func(t *testing.T) storage.Storage { return New() },
		},
	})
}

func (s *StorageSuite) TestReturnedDetailIsACopy() {
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.Require().NoError(s.Store().CreateGame(ctx, storagetest.NewDetail("abc123", "host", 1, base)))

	detail, err := s.Store().GetGameDetail(ctx, "abc123")
	s.Require().NoError(err)
	detail.Participations[0].Score = 99
	detail.Questions[0].IncorrectAnswers[0] = "changed"

	again, err := s.Store().GetGameDetail(ctx, "abc123")
	s.Require().NoError(err)
	s.Equal(0, again.Participations[0].Score)
	s.Equal("wrong-a", again.Questions[0].IncorrectAnswers[0])
}

func (s *StorageSuite) TestCreateGameCopiesInput() {
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	input := storagetest.NewDetail("abc123", "host", 1, base)
	s.Require().NoError(s.Store().CreateGame(ctx, input))

	input.Game.QuestionCount = 7

	game, err := s.Store().GetGame(ctx, "abc123")
	s.Require().NoError(err)
	s.Equal(1, game.QuestionCount)
	s.Equal(model.PlayerID("host"), game.HostID)
}
