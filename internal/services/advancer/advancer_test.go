package advancer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/triviagame/internal/dependencies/mocks"
	"github.com/mcoot/triviagame/internal/events"
	"github.com/mcoot/triviagame/internal/model"
	"github.com/mcoot/triviagame/internal/services/ledger"
	"github.com/mcoot/triviagame/internal/services/timing"
	"github.com/mcoot/triviagame/internal/storage/memory"
	"github.com/mcoot/triviagame/internal/storage/storagetest"
	"github.com/mcoot/triviagame/internal/testutil"
)

type AdvancerSuite struct {
	suite.Suite
	storage *memory.Storage
	clock   *mocks.MockClock
	random  *mocks.MockRandom
	service *Service
	ctx     context.Context

	mu        sync.Mutex
	published []model.Event
}

func TestAdvancerSuite(t *testing.T) {
	suite.Run(t, new(AdvancerSuite))
}

func (s *AdvancerSuite) SetupTest() {
	s.ctx = context.Background()
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.published = nil

	emitter := events.NewEmitter(events.PublisherFunc(func(ctx context.Context, e model.Event) error {
		s.mu.Lock()
		s.published = append(s.published, e)
		s.mu.Unlock()
		return nil
	}), s.clock, s.random, testutil.NopLogger())
	s.service = New(s.storage, emitter, s.clock, timing.DefaultConfig(), testutil.NopLogger())
}

// startGame stores a started game with n questions, the host plus the given
// players, and the first question's window open from now+5s to now+20s
func (s *AdvancerSuite) startGame(n int, players ...model.PlayerID) model.GameID {
	now := s.clock.Now()
	detail := storagetest.NewDetail("game01", "host", n, now)
	for _, p := range players {
		detail.Participations = append(detail.Participations, model.Participation{
			ID:          model.ParticipationID("game01-" + string(p)),
			GameID:      "game01",
			PlayerID:    p,
			DisplayName: string(p),
			JoinedAt:    now,
		})
	}
	started := now
	detail.Game.StartedAt = &started
	detail.Questions[0].OpenWindow(timing.DefaultConfig().Window(now))
	s.Require().NoError(s.storage.CreateGame(s.ctx, detail))
	return "game01"
}

// answer records an answer to the current question directly through the ledger
func (s *AdvancerSuite) answer(id model.GameID, player model.PlayerID, correct bool) {
	_, err := s.storage.UpdateGame(s.ctx, id, func(d *model.GameDetail) error {
		q, err := d.CurrentQuestion()
		if err != nil {
			return err
		}
		text := q.CorrectAnswer
		if !correct {
			text = q.IncorrectAnswers[0]
		}
		_, err = ledger.New(s.random).Record(d, d.Participation(player).ID, q, text, s.clock.Now())
		return err
	})
	s.Require().NoError(err)
}

func (s *AdvancerSuite) detail(id model.GameID) *model.GameDetail {
	d, err := s.storage.GetGameDetail(s.ctx, id)
	s.Require().NoError(err)
	return d
}

func (s *AdvancerSuite) eventsOfType(t model.EventType) []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Event
	for _, e := range s.published {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func (s *AdvancerSuite) TestAdvanceOpensNextQuestion() {
	id := s.startGame(3, "player-1")
	s.clock.Advance(21 * time.Second)
	now := s.clock.Now()

	result, err := s.service.Advance(s.ctx, id, "player-1", 0)
	s.Require().NoError(err)
	s.Equal(model.OutcomeApplied, result.Outcome)
	s.False(result.Ended)
	s.Equal(1, result.Game.CurrentQuestion)

	d := s.detail(id)
	next := d.Questions[1]
	s.Require().True(next.HasWindow())
	s.Equal(now.Add(5*time.Second), *next.StartedAt)
	s.Equal(now.Add(20*time.Second), *next.EndedAt)
	s.Nil(d.Questions[2].StartedAt)

	opened := s.eventsOfType(model.EventQuestionOpened)
	s.Require().Len(opened, 1)
	s.Equal(1, opened[0].Payload.(model.QuestionOpenedPayload).Position)
}

func (s *AdvancerSuite) TestHostMayAdvanceEarly() {
	id := s.startGame(3, "player-1")
	s.clock.Advance(10 * time.Second)
	now := s.clock.Now()

	result, err := s.service.Advance(s.ctx, id, "host", 0)
	s.Require().NoError(err)
	s.Equal(model.OutcomeApplied, result.Outcome)

	// The skipped question closes at the moment of the advance
	d := s.detail(id)
	s.Equal(now, *d.Questions[0].EndedAt)
}

func (s *AdvancerSuite) TestPlayerCannotAdvanceOpenQuestion() {
	id := s.startGame(3, "player-1")
	s.clock.Advance(10 * time.Second)

	_, err := s.service.Advance(s.ctx, id, "player-1", 0)
	s.ErrorIs(err, model.ErrRoundInProgress)
	s.Equal(0, s.detail(id).Game.CurrentQuestion)
}

func (s *AdvancerSuite) TestNonParticipantCannotAdvance() {
	id := s.startGame(3, "player-1")
	s.clock.Advance(21 * time.Second)

	_, err := s.service.Advance(s.ctx, id, "outsider", 0)
	s.ErrorIs(err, model.ErrNotParticipant)

	_, err = s.service.Advance(s.ctx, id, "outsider", 5)
	s.ErrorIs(err, model.ErrNotParticipant)
}

func (s *AdvancerSuite) TestAdvanceBeforeBeginFails() {
	detail := storagetest.NewDetail("lobby1", "host", 2, s.clock.Now())
	s.Require().NoError(s.storage.CreateGame(s.ctx, detail))

	_, err := s.service.Advance(s.ctx, "lobby1", "host", 0)
	s.ErrorIs(err, model.ErrGameNotStarted)
}

func (s *AdvancerSuite) TestAdvanceUnknownGame() {
	_, err := s.service.Advance(s.ctx, "nope00", "host", 0)
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *AdvancerSuite) TestStaleAdvanceIsNoOp() {
	id := s.startGame(3, "player-1")
	s.clock.Advance(21 * time.Second)

	_, err := s.service.Advance(s.ctx, id, "player-1", 0)
	s.Require().NoError(err)
	before := s.detail(id)

	result, err := s.service.Advance(s.ctx, id, "player-1", 0)
	s.Require().NoError(err)
	s.Equal(model.OutcomeNoOp, result.Outcome)
	s.Equal(1, result.Game.CurrentQuestion)
	s.Equal(before, s.detail(id))
	s.Len(s.eventsOfType(model.EventQuestionOpened), 1)
}

func (s *AdvancerSuite) TestConcurrentAdvancesApplyOnce() {
	id := s.startGame(3, "player-1", "player-2")
	s.clock.Advance(21 * time.Second)

	const callers = 25
	requesters := []model.PlayerID{"host", "player-1", "player-2"}
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
		noops   int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(requester model.PlayerID) {
			defer wg.Done()
			result, err := s.service.Advance(s.ctx, id, requester, 0)
			if err != nil {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			switch result.Outcome {
			case model.OutcomeApplied:
				applied++
			case model.OutcomeNoOp:
				noops++
			}
		}(requesters[i%len(requesters)])
	}
	wg.Wait()

	s.Equal(1, applied)
	s.Equal(callers-1, noops)
	s.Equal(1, s.detail(id).Game.CurrentQuestion)
	s.Len(s.eventsOfType(model.EventQuestionOpened), 1)
}

func (s *AdvancerSuite) TestLastAdvanceEndsGame() {
	id := s.startGame(1, "player-1", "player-2")
	s.clock.Advance(6 * time.Second)
	s.answer(id, "player-1", true)
	s.answer(id, "player-2", false)
	s.clock.Advance(15 * time.Second)

	result, err := s.service.Advance(s.ctx, id, "player-2", 0)
	s.Require().NoError(err)
	s.Equal(model.OutcomeApplied, result.Outcome)
	s.True(result.Ended)
	s.Equal(0, result.Game.CurrentQuestion)

	d := s.detail(id)
	s.Equal(model.GameStatusEnded, d.Game.Status())
	s.True(d.Participation("player-1").Won)
	s.False(d.Participation("player-2").Won)
	s.False(d.Participation("host").Won)

	ended := s.eventsOfType(model.EventGameEnded)
	s.Require().Len(ended, 1)
	payload := ended[0].Payload.(model.GameEndedPayload)
	s.Equal([]model.PlayerID{"player-1"}, payload.Winners)
	s.Equal(1, payload.Scores["player-1"])
	s.Equal(0, payload.Scores["player-2"])
}

func (s *AdvancerSuite) TestEndedGameIsTerminal() {
	id := s.startGame(1, "player-1")
	s.clock.Advance(21 * time.Second)
	_, err := s.service.Advance(s.ctx, id, "host", 0)
	s.Require().NoError(err)
	final := s.detail(id)

	s.clock.Advance(time.Minute)
	for _, position := range []int{0, 1} {
		result, err := s.service.Advance(s.ctx, id, "player-1", position)
		s.Require().NoError(err)
		s.Equal(model.OutcomeNoOp, result.Outcome)
		s.False(result.Ended)
	}
	result, err := s.service.AdvanceOnSchedule(s.ctx, id, 0)
	s.Require().NoError(err)
	s.Equal(model.OutcomeNoOp, result.Outcome)

	s.Equal(final, s.detail(id))
	s.Len(s.eventsOfType(model.EventGameEnded), 1)
}

func (s *AdvancerSuite) TestTiedPlayersAllWin() {
	id := s.startGame(1, "player-1", "player-2")
	s.clock.Advance(6 * time.Second)
	s.answer(id, "player-1", true)
	s.answer(id, "player-2", true)
	s.clock.Advance(15 * time.Second)

	_, err := s.service.Advance(s.ctx, id, "host", 0)
	s.Require().NoError(err)

	d := s.detail(id)
	s.True(d.Participation("player-1").Won)
	s.True(d.Participation("player-2").Won)
	s.False(d.Participation("host").Won)
}

func (s *AdvancerSuite) TestScheduleWaitsForWindowToClose() {
	id := s.startGame(2, "player-1")
	s.clock.Advance(10 * time.Second)

	result, err := s.service.AdvanceOnSchedule(s.ctx, id, 0)
	s.Require().NoError(err)
	s.Equal(model.OutcomeNoOp, result.Outcome)
	s.Equal(0, s.detail(id).Game.CurrentQuestion)

	s.clock.Advance(11 * time.Second)
	result, err = s.service.AdvanceOnSchedule(s.ctx, id, 0)
	s.Require().NoError(err)
	s.Equal(model.OutcomeApplied, result.Outcome)
	s.Equal(1, result.Game.CurrentQuestion)
}

func (s *AdvancerSuite) TestMissingWindowIsInvalidTimingState() {
	id := s.startGame(2, "player-1")
	_, err := s.storage.UpdateGame(s.ctx, id, func(d *model.GameDetail) error {
		d.Questions[0].StartedAt = nil
		d.Questions[0].EndedAt = nil
		return nil
	})
	s.Require().NoError(err)

	_, err = s.service.Advance(s.ctx, id, "host", 0)
	s.ErrorIs(err, model.ErrInvalidTimingState)
}

func (s *AdvancerSuite) TestAtMostOneOpenWindow() {
	id := s.startGame(4, "player-1")

	for pos := 0; pos < 4; pos++ {
		d := s.detail(id)
		now := s.clock.Now()
		open := 0
		for i := range d.Questions {
			q := &d.Questions[i]
			if !q.HasWindow() {
				continue
			}
			state, err := timing.Evaluate(q, now)
			s.Require().NoError(err)
			if state.Phase != timing.PhaseClosed {
				open++
				s.Equal(pos, q.Position)
			}
		}
		s.LessOrEqual(open, 1)

		s.clock.Advance(8 * time.Second)
		_, err := s.service.Advance(s.ctx, id, "host", pos)
		s.Require().NoError(err)
		s.clock.Advance(time.Second)
	}
	s.Equal(model.GameStatusEnded, s.detail(id).Game.Status())
}

func (s *AdvancerSuite) TestNextDeadline() {
	id := s.startGame(2)
	deadline, ok := NextDeadline(s.detail(id))
	s.Require().True(ok)
	s.Equal(s.clock.Now().Add(20*time.Second), deadline)

	lobby := storagetest.NewDetail("lobby1", "host", 1, s.clock.Now())
	_, ok = NextDeadline(lobby)
	s.False(ok)

	s.clock.Advance(21 * time.Second)
	_, err := s.service.Advance(s.ctx, id, "host", 0)
	s.Require().NoError(err)
	_, err = s.service.Advance(s.ctx, id, "host", 1)
	s.Require().NoError(err)
	_, ok = NextDeadline(s.detail(id))
	s.False(ok)
}
