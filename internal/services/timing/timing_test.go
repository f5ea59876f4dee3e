package timing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/triviagame/internal/model"
)

type TimingSuite struct {
	suite.Suite
	now time.Time
}

func TestTimingSuite(t *testing.T) {
	suite.Run(t, new(TimingSuite))
}

func (s *TimingSuite) SetupTest() {
	s.now = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

func (s *TimingSuite) openQuestion() *model.Question {
	q := &model.Question{ID: "q-0"}
	q.OpenWindow(DefaultConfig().Window(s.now))
	return q
}

func (s *TimingSuite) TestWindowAppliesLeadInAndDuration() {
	w := DefaultConfig().Window(s.now)
	s.Equal(s.now.Add(5*time.Second), w.StartsAt)
	s.Equal(s.now.Add(20*time.Second), w.EndsAt)
}

func (s *TimingSuite) TestWaitingBeforeStart() {
	q := s.openQuestion()

	state, err := Evaluate(q, s.now.Add(time.Second))
	s.Require().NoError(err)
	s.Equal(PhaseWaiting, state.Phase)
	s.Equal(*q.StartedAt, state.Deadline)
	s.Equal(4*time.Second, state.Remaining(s.now.Add(time.Second)))
}

func (s *TimingSuite) TestActiveIncludesBothBoundaries() {
	q := s.openQuestion()

	for _, at := range []time.Time{*q.StartedAt, s.now.Add(12 * time.Second), *q.EndedAt} {
		state, err := Evaluate(q, at)
		s.Require().NoError(err)
		s.Equal(PhaseActive, state.Phase, "at %s", at)
		s.Equal(*q.EndedAt, state.Deadline)
	}
}

func (s *TimingSuite) TestClosedAfterEnd() {
	q := s.openQuestion()

	state, err := Evaluate(q, q.EndedAt.Add(time.Nanosecond))
	s.Require().NoError(err)
	s.Equal(PhaseClosed, state.Phase)
	s.True(state.Deadline.IsZero())
	s.Equal(time.Duration(0), state.Remaining(s.now.Add(time.Hour)))
}

func (s *TimingSuite) TestMissingWindowIsInvalidTimingState() {
	_, err := Evaluate(&model.Question{ID: "q-0"}, s.now)
	s.ErrorIs(err, model.ErrInvalidTimingState)

	start := s.now
	_, err = Evaluate(&model.Question{ID: "q-0", StartedAt: &start}, s.now)
	s.ErrorIs(err, model.ErrInvalidTimingState)

	_, err = Evaluate(nil, s.now)
	s.ErrorIs(err, model.ErrInvalidTimingState)
}

func (s *TimingSuite) TestCloseByEndsActiveWindow() {
	q := s.openQuestion()
	closeAt := s.now.Add(10 * time.Second)
	q.CloseBy(closeAt)

	state, err := Evaluate(q, closeAt.Add(time.Millisecond))
	s.Require().NoError(err)
	s.Equal(PhaseClosed, state.Phase)
}
