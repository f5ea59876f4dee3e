package view

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/triviagame/internal/model"
	"github.com/mcoot/triviagame/internal/services/timing"
)

type ViewSuite struct {
	suite.Suite
	base   time.Time
	detail *model.GameDetail
}

func TestViewSuite(t *testing.T) {
	suite.Run(t, new(ViewSuite))
}

func (s *ViewSuite) SetupTest() {
	s.base = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.detail = &model.GameDetail{
		Game: model.Game{ID: "abc123", CategoryID: 9, HostID: "host", QuestionCount: 2, CreatedAt: s.base},
		Questions: []model.Question{
			{ID: "q0", Position: 0, Text: "First?", CorrectAnswer: "A", IncorrectAnswers: []string{"X", "Y", "Z"}, CorrectIndex: 2},
			{ID: "q1", Position: 1, Text: "Second?", CorrectAnswer: "B", IncorrectAnswers: []string{"X", "Y", "Z"}, CorrectIndex: 0},
		},
		Participations: []model.Participation{
			{ID: "p-host", PlayerID: "host", DisplayName: "Host", IsHost: true, JoinedAt: s.base},
			{ID: "p-alice", PlayerID: "alice", DisplayName: "Alice", JoinedAt: s.base.Add(time.Second)},
			{ID: "p-bob", PlayerID: "bob", DisplayName: "Bob", JoinedAt: s.base.Add(2 * time.Second)},
		},
	}
}

// start begins the game at base with question 0 open
func (s *ViewSuite) start() {
	started := s.base
	s.detail.Game.StartedAt = &started
	s.detail.Questions[0].OpenWindow(timing.DefaultConfig().Window(s.base))
}

func (s *ViewSuite) answer(player model.PlayerID, partID model.ParticipationID, text string, correct bool) {
	s.detail.Answers = append(s.detail.Answers, model.Answer{
		ID: model.AnswerID("a-" + string(player)), ParticipationID: partID, PlayerID: player,
		QuestionID: "q0", Position: 0, Text: text, Correct: correct,
	})
	if correct {
		s.detail.Participation(player).Score++
	}
}

func (s *ViewSuite) TestLobbyHasNoQuestion() {
	snap, err := Build(s.detail, "alice", s.base)
	s.Require().NoError(err)
	s.Equal(model.GameStatusLobby, snap.Status)
	s.Nil(snap.Question)
	s.Empty(snap.Answers)
	s.Len(snap.Scoreboard, 3)
	s.Require().NotNil(snap.Viewer)
	s.False(snap.Viewer.IsHost)
}

func (s *ViewSuite) TestOptionsUseStoredOrder() {
	s.start()

	first, err := Build(s.detail, "alice", s.base.Add(6*time.Second))
	s.Require().NoError(err)
	second, err := Build(s.detail, "bob", s.base.Add(9*time.Second))
	s.Require().NoError(err)

	s.Equal([]string{"X", "Y", "A", "Z"}, first.Question.Options)
	s.Equal(first.Question.Options, second.Question.Options)
}

func (s *ViewSuite) TestWaitingPhaseHidesCorrectAnswer() {
	s.start()

	snap, err := Build(s.detail, "alice", s.base.Add(time.Second))
	s.Require().NoError(err)
	s.Equal(timing.PhaseWaiting, snap.Question.Phase)
	s.Equal(s.base.Add(5*time.Second), snap.Question.Deadline)
	s.Equal(4*time.Second, snap.Question.Remaining)
	s.False(snap.Question.Revealed)
	s.Empty(snap.Question.CorrectAnswer)
}

func (s *ViewSuite) TestActiveAnswersHiddenUntilViewerAnswers() {
	s.start()
	s.answer("alice", "p-alice", "A", true)
	now := s.base.Add(10 * time.Second)

	snap, err := Build(s.detail, "bob", now)
	s.Require().NoError(err)
	s.Equal(timing.PhaseActive, snap.Question.Phase)
	s.Empty(snap.Answers)
	s.Empty(snap.Question.CorrectAnswer)
	s.False(snap.Viewer.HasAnswered)

	snap, err = Build(s.detail, "alice", now)
	s.Require().NoError(err)
	s.Require().Len(snap.Answers, 1)
	s.Equal("A", snap.Answers[0].Text)
	s.Equal("Alice", snap.Answers[0].DisplayName)
	s.Nil(snap.Answers[0].Correct)
	s.True(snap.Viewer.HasAnswered)
	s.Equal("A", snap.Viewer.Answer)
	s.Empty(snap.Question.CorrectAnswer)
}

func (s *ViewSuite) TestActiveScoresExcludeCurrentQuestion() {
	s.start()
	s.answer("alice", "p-alice", "A", true)

	snap, err := Build(s.detail, "alice", s.base.Add(10*time.Second))
	s.Require().NoError(err)
	for _, e := range snap.Scoreboard {
		s.Equal(0, e.Score, e.PlayerID)
	}
	s.Equal(0, snap.Viewer.Score)
}

func (s *ViewSuite) TestClosedPhaseRevealsEverything() {
	s.start()
	s.answer("alice", "p-alice", "A", true)
	s.answer("bob", "p-bob", "X", false)

	snap, err := Build(s.detail, "host", s.base.Add(21*time.Second))
	s.Require().NoError(err)
	s.Equal(timing.PhaseClosed, snap.Question.Phase)
	s.True(snap.Question.Revealed)
	s.Equal("A", snap.Question.CorrectAnswer)
	s.Require().Len(snap.Answers, 2)
	s.Require().NotNil(snap.Answers[0].Correct)
	s.True(*snap.Answers[0].Correct)
	s.False(*snap.Answers[1].Correct)

	s.Equal(model.PlayerID("alice"), snap.Scoreboard[0].PlayerID)
	s.Equal(1, snap.Scoreboard[0].Score)
	s.Equal(1, snap.Scoreboard[0].Rank)
}

func (s *ViewSuite) TestScoreboardTiesGetConsecutiveRanksInJoinOrder() {
	s.start()
	s.detail.Participations[0].Score = 1
	s.detail.Participations[1].Score = 2
	s.detail.Participations[2].Score = 2
	s.detail.Participations[1].Won = true
	s.detail.Participations[2].Won = true
	ended := s.base.Add(time.Minute)
	s.detail.Game.EndedAt = &ended

	snap, err := Build(s.detail, "host", ended)
	s.Require().NoError(err)
	s.Equal(model.GameStatusEnded, snap.Status)

	s.Require().Len(snap.Scoreboard, 3)
	s.Equal(ScoreEntry{Rank: 1, PlayerID: "alice", DisplayName: "Alice", Score: 2, Won: true}, snap.Scoreboard[0])
	s.Equal(ScoreEntry{Rank: 2, PlayerID: "bob", DisplayName: "Bob", Score: 2, Won: true}, snap.Scoreboard[1])
	s.Equal(ScoreEntry{Rank: 3, PlayerID: "host", DisplayName: "Host", Score: 1, IsHost: true}, snap.Scoreboard[2])
}

func (s *ViewSuite) TestEndedGameIsClosedEvenAtWindowEnd() {
	s.start()
	end := s.base.Add(10 * time.Second)
	s.detail.Questions[0].CloseBy(end)
	s.detail.Game.EndedAt = &end

	snap, err := Build(s.detail, "bob", end)
	s.Require().NoError(err)
	s.Equal(timing.PhaseClosed, snap.Question.Phase)
	s.True(snap.Question.Revealed)
}

func (s *ViewSuite) TestMissingWindowIsInvalidTimingState() {
	started := s.base
	s.detail.Game.StartedAt = &started

	_, err := Build(s.detail, "alice", s.base)
	s.ErrorIs(err, model.ErrInvalidTimingState)
}

func (s *ViewSuite) TestNonParticipantHasNoViewerBlock() {
	s.start()
	snap, err := Build(s.detail, "stranger", s.base.Add(10*time.Second))
	s.Require().NoError(err)
	s.Nil(snap.Viewer)
	s.Empty(snap.Answers)
}
