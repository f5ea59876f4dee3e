package model

import "time"

// PlayerID uniquely identifies a player across the system
type PlayerID string

// Player represents a person who can host or join games
type Player struct {
	ID          PlayerID
	DisplayName string
	IsGuest     bool // true for players without credentials
	CreatedAt   time.Time
}

// RegisteredPlayer holds credentials for a non-guest player.
// Stored separately so password hashes never travel with session data.
type RegisteredPlayer struct {
	PlayerID     PlayerID
	Username     string // login username (immutable)
	PasswordHash string // bcrypt hash
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ParticipationID uniquely identifies a player's membership of a game
type ParticipationID string

// Participation binds a player to a game and carries their per-game state
type Participation struct {
	ID          ParticipationID
	GameID      GameID
	PlayerID    PlayerID
	DisplayName string // snapshot at join time
	Score       int    // only ever incremented by the answer ledger
	IsHost      bool
	Won         bool // set at game end
	JoinedAt    time.Time
}

// AnswerID uniquely identifies a recorded answer
type AnswerID string

// Answer is a participation's single, immutable response to a question
type Answer struct {
	ID              AnswerID
	GameID          GameID
	ParticipationID ParticipationID
	PlayerID        PlayerID
	QuestionID      QuestionID
	Position        int
	Text            string
	Correct         bool
	CreatedAt       time.Time
}
