package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/triviagame/internal/dependencies/mocks"
	"github.com/mcoot/triviagame/internal/model"
	"github.com/mcoot/triviagame/internal/testutil"
)

type PublisherSuite struct {
	suite.Suite
	ctx context.Context
}

func TestPublisherSuite(t *testing.T) {
	suite.Run(t, new(PublisherSuite))
}

func (s *PublisherSuite) SetupTest() {
	s.ctx = context.Background()
}

func (s *PublisherSuite) event() model.Event {
	return model.Event{
		ID:        "event-1",
		Type:      model.EventGameStarted,
		Timestamp: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		GameID:    "abc123",
	}
}

func (s *PublisherSuite) TestFanoutDeliversToAllSubscribers() {
	var got []string
	record := func(name string) Publisher {
		return PublisherFunc(func(ctx context.Context, e model.Event) error {
			got = append(got, name+":"+e.ID)
			return nil
		})
	}

	fanout := NewFanout(record("a"))
	fanout.Subscribe(record("b"))

	s.Require().NoError(fanout.Publish(s.ctx, s.event()))
	s.Equal([]string{"a:event-1", "b:event-1"}, got)
}

func (s *PublisherSuite) TestFanoutContinuesPastFailures() {
	boom := errors.New("boom")
	delivered := false

	fanout := NewFanout(
		PublisherFunc(func(context.Context, model.Event) error { return boom }),
		PublisherFunc(func(context.Context, model.Event) error {
			delivered = true
			return nil
		}),
	)

	err := fanout.Publish(s.ctx, s.event())
	s.ErrorIs(err, boom)
	s.True(delivered)
}

func (s *PublisherSuite) TestLogPublisherNeverFails() {
	p := NewLogPublisher(testutil.NopLogger())
	s.NoError(p.Publish(s.ctx, s.event()))
	s.NoError(Nop.Publish(s.ctx, s.event()))
}

func (s *PublisherSuite) TestJetStreamSubject() {
	p := &JetStreamPublisher{config: DefaultJetStreamConfig()}
	s.Equal("trivia.events.game.started", p.Subject(model.EventGameStarted))
	s.Equal("trivia.events.answer.recorded", p.Subject(model.EventAnswerRecorded))
}

func (s *PublisherSuite) TestEmitterStampsEvents() {
	var got []model.Event
	clk := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	emitter := NewEmitter(PublisherFunc(func(ctx context.Context, e model.Event) error {
		got = append(got, e)
		return errors.New("ignored")
	}), clk, mocks.NewMockRandom(), testutil.NopLogger())

	emitter.Emit(s.ctx, model.EventPlayerJoined, "abc123", "player-1", model.PlayerJoinedPayload{DisplayName: "Alice"})

	s.Require().Len(got, 1)
	s.Equal("id-1", got[0].ID)
	s.Equal(model.EventPlayerJoined, got[0].Type)
	s.Equal(clk.Now(), got[0].Timestamp)
	s.Equal(model.PlayerID("player-1"), got[0].PlayerID)
	s.Equal(model.PlayerJoinedPayload{DisplayName: "Alice"}, got[0].Payload)
}

func (s *PublisherSuite) TestRecorderKeepsOrder() {
	rec := NewRecorder()
	first := s.event()
	second := s.event()
	second.ID = "event-2"
	second.Type = model.EventGameEnded

	s.Require().NoError(rec.Publish(s.ctx, first))
	s.Require().NoError(rec.Publish(s.ctx, second))

	s.Equal([]model.EventType{model.EventGameStarted, model.EventGameEnded}, rec.Types())
	events := rec.Events()
	s.Require().Len(events, 2)
	s.Equal("event-2", events[1].ID)

	events[0].ID = "mutated"
	s.Equal("event-1", rec.Events()[0].ID)
}
