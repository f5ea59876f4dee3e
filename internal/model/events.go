package model

import "time"

// EventType identifies the type of event
type EventType string

const (
	EventGameCreated    EventType = "game.created"
	EventPlayerJoined   EventType = "player.joined"
	EventGameStarted    EventType = "game.started"
	EventQuestionOpened EventType = "question.opened"
	EventAnswerRecorded EventType = "answer.recorded"
	EventGameEnded      EventType = "game.ended"
)

// Event is a fact about a game that has already been persisted
type Event struct {
	ID        string
	Type      EventType
	Timestamp time.Time
	GameID    GameID
	PlayerID  PlayerID // The player who triggered or is affected, if any
	Payload   any      // Type-specific data
}

// PlayerJoinedPayload contains data for player joined events
type PlayerJoinedPayload struct {
	DisplayName string
}

// QuestionOpenedPayload contains data for question opened events
type QuestionOpenedPayload struct {
	Position int
	StartsAt time.Time
	EndsAt   time.Time
}

// AnswerRecordedPayload contains data for answer recorded events.
// Deliberately omits the answer text.
type AnswerRecordedPayload struct {
	Position int
	Score    int
}

// GameEndedPayload contains data for game ended events
type GameEndedPayload struct {
	Winners []PlayerID
	Scores  map[PlayerID]int
}
