package model

import "time"

// GameID is the shareable slug that identifies a game
type GameID string

// GameStatus is the coarse lifecycle stage of a game
type GameStatus string

const (
	GameStatusLobby      GameStatus = "lobby"       // Waiting for the host to begin
	GameStatusInProgress GameStatus = "in_progress" // Questions are being played
	GameStatusEnded      GameStatus = "ended"       // Terminal, results are final
)

// MaxQuestionCount bounds how many questions a single game may hold
const MaxQuestionCount = 20

// Game is one trivia session
type Game struct {
	ID            GameID
	CategoryID    CategoryID
	HostID        PlayerID
	QuestionCount int

	// CurrentQuestion is the 0-based position of the live question.
	// Always a valid index once StartedAt is set.
	CurrentQuestion int

	StartedAt *time.Time
	EndedAt   *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsStarted returns true once the host has begun the game
func (g *Game) IsStarted() bool {
	return g.StartedAt != nil
}

// IsEnded returns true once the last question has been advanced past
func (g *Game) IsEnded() bool {
	return g.EndedAt != nil
}

// Status derives the lifecycle stage from the timestamps
func (g *Game) Status() GameStatus {
	switch {
	case g.EndedAt != nil:
		return GameStatusEnded
	case g.StartedAt != nil:
		return GameStatusInProgress
	default:
		return GameStatusLobby
	}
}

// IsLastQuestion reports whether the current question is the final one
func (g *Game) IsLastQuestion() bool {
	return g.CurrentQuestion >= g.QuestionCount-1
}

// GameDetail is a game together with everything it owns or is referenced by.
// Engine transitions read and write a GameDetail as one unit.
type GameDetail struct {
	Game           Game
	Questions      []Question // ordered by Position
	Participations []Participation
	Answers        []Answer
}

// CurrentQuestion returns the question at the game's current position
func (d *GameDetail) CurrentQuestion() (*Question, error) {
	return d.QuestionAt(d.Game.CurrentQuestion)
}

// QuestionAt returns the question at the given position
func (d *GameDetail) QuestionAt(position int) (*Question, error) {
	for i := range d.Questions {
		if d.Questions[i].Position == position {
			return &d.Questions[i], nil
		}
	}
	return nil, ErrQuestionNotFound
}

// Participation returns the participation for the given player, or nil if not joined
func (d *GameDetail) Participation(playerID PlayerID) *Participation {
	for i := range d.Participations {
		if d.Participations[i].PlayerID == playerID {
			return &d.Participations[i]
		}
	}
	return nil
}

// Host returns the host participation, or nil if none
func (d *GameDetail) Host() *Participation {
	for i := range d.Participations {
		if d.Participations[i].IsHost {
			return &d.Participations[i]
		}
	}
	return nil
}

// AnswersFor returns the answers recorded for the question at the given position
func (d *GameDetail) AnswersFor(position int) []Answer {
	var answers []Answer
	for _, a := range d.Answers {
		if a.Position == position {
			answers = append(answers, a)
		}
	}
	return answers
}

// FindAnswer returns the answer a participation gave to a question, or nil
func (d *GameDetail) FindAnswer(participationID ParticipationID, questionID QuestionID) *Answer {
	for i := range d.Answers {
		if d.Answers[i].ParticipationID == participationID && d.Answers[i].QuestionID == questionID {
			return &d.Answers[i]
		}
	}
	return nil
}

// Clone returns a deep copy so callers can mutate without aliasing stored state
func (d *GameDetail) Clone() *GameDetail {
	c := &GameDetail{
		Game:           d.Game.clone(),
		Questions:      make([]Question, len(d.Questions)),
		Participations: append([]Participation(nil), d.Participations...),
		Answers:        append([]Answer(nil), d.Answers...),
	}
	for i, q := range d.Questions {
		c.Questions[i] = q.clone()
	}
	return c
}

func (g Game) clone() Game {
	g.StartedAt = cloneTime(g.StartedAt)
	g.EndedAt = cloneTime(g.EndedAt)
	return g
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// GameSummary is a lightweight listing record for a game
type GameSummary struct {
	Game        Game
	PlayerCount int
}

// PlayerGames groups a player's games by lifecycle stage
type PlayerGames struct {
	Upcoming []GameSummary
	Current  []GameSummary
	Past     []GameSummary
}
