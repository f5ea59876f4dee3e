package response

import (
	"time"

	"github.com/mcoot/triviagame/internal/model"
	"github.com/mcoot/triviagame/internal/services/auth"
	"github.com/mcoot/triviagame/internal/services/view"
)

// Player represents a player in API responses
type Player struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	IsGuest     bool   `json:"is_guest"`
}

// PlayerFromModel converts a model.Player to a response Player
func PlayerFromModel(p *model.Player) Player {
	return Player{
		ID:          string(p.ID),
		DisplayName: p.DisplayName,
		IsGuest:     p.IsGuest,
	}
}

// AuthResponse is the response for authentication endpoints
type AuthResponse struct {
	Player       Player    `json:"player"`
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// AuthResponseFromSession creates an AuthResponse from a session
func AuthResponseFromSession(s *auth.Session) AuthResponse {
	return AuthResponse{
		Player:       PlayerFromModel(&s.Player),
		SessionToken: s.Token,
		ExpiresAt:    s.ExpiresAt,
	}
}

// Category is a topic games can be created in
type Category struct {
	ID              int    `json:"id"`
	Name            string `json:"name"`
	TotalQuestions  int    `json:"total_questions"`
	EasyQuestions   int    `json:"easy_questions"`
	MediumQuestions int    `json:"medium_questions"`
	HardQuestions   int    `json:"hard_questions"`
}

// CategoryFromModel converts model.Category
func CategoryFromModel(c model.Category) Category {
	return Category{
		ID:              int(c.ID),
		Name:            c.Name,
		TotalQuestions:  c.TotalQuestions,
		EasyQuestions:   c.EasyQuestions,
		MediumQuestions: c.MediumQuestions,
		HardQuestions:   c.HardQuestions,
	}
}

// Game is the public record of a game
type Game struct {
	ID              string     `json:"id"`
	CategoryID      int        `json:"category_id"`
	HostID          string     `json:"host_id"`
	Status          string     `json:"status"`
	QuestionCount   int        `json:"question_count"`
	CurrentQuestion int        `json:"current_question"`
	PlayerCount     int        `json:"player_count"`
	CreatedAt       time.Time  `json:"created_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
}

// GameFromModel converts model.Game
func GameFromModel(g model.Game, playerCount int) Game {
	return Game{
		ID:              string(g.ID),
		CategoryID:      int(g.CategoryID),
		HostID:          string(g.HostID),
		Status:          string(g.Status()),
		QuestionCount:   g.QuestionCount,
		CurrentQuestion: g.CurrentQuestion,
		PlayerCount:     playerCount,
		CreatedAt:       g.CreatedAt,
		StartedAt:       g.StartedAt,
		EndedAt:         g.EndedAt,
	}
}

// GameFromDetail converts a model.GameDetail without exposing its questions
func GameFromDetail(d *model.GameDetail) Game {
	return GameFromModel(d.Game, len(d.Participations))
}

// GameFromSummary converts model.GameSummary
func GameFromSummary(s model.GameSummary) Game {
	return GameFromModel(s.Game, s.PlayerCount)
}

// GameList is a plain list of games
type GameList struct {
	Games []Game `json:"games"`
}

// GameListFromSummaries converts a slice of summaries
func GameListFromSummaries(summaries []model.GameSummary) GameList {
	return GameList{Games: gamesFromSummaries(summaries)}
}

// PlayerGames groups a player's games by lifecycle stage
type PlayerGames struct {
	Upcoming []Game `json:"upcoming"`
	Current  []Game `json:"current"`
	Past     []Game `json:"past"`
}

// PlayerGamesFromModel converts model.PlayerGames
func PlayerGamesFromModel(g *model.PlayerGames) PlayerGames {
	return PlayerGames{
		Upcoming: gamesFromSummaries(g.Upcoming),
		Current:  gamesFromSummaries(g.Current),
		Past:     gamesFromSummaries(g.Past),
	}
}

func gamesFromSummaries(summaries []model.GameSummary) []Game {
	out := make([]Game, len(summaries))
	for i, s := range summaries {
		out[i] = GameFromSummary(s)
	}
	return out
}

// Participation is a player's membership of a game
type Participation struct {
	GameID      string    `json:"game_id"`
	PlayerID    string    `json:"player_id"`
	DisplayName string    `json:"display_name"`
	IsHost      bool      `json:"is_host"`
	Score       int       `json:"score"`
	JoinedAt    time.Time `json:"joined_at"`
}

// ParticipationFromModel converts model.Participation
func ParticipationFromModel(p *model.Participation) Participation {
	return Participation{
		GameID:      string(p.GameID),
		PlayerID:    string(p.PlayerID),
		DisplayName: p.DisplayName,
		IsHost:      p.IsHost,
		Score:       p.Score,
		JoinedAt:    p.JoinedAt,
	}
}

// AnswerReceipt acknowledges a submitted answer. Correctness is withheld
// until the question closes.
type AnswerReceipt struct {
	GameID     string    `json:"game_id"`
	Position   int       `json:"position"`
	Answer     string    `json:"answer"`
	AnsweredAt time.Time `json:"answered_at"`
}

// AnswerReceiptFromModel converts model.Answer
func AnswerReceiptFromModel(a *model.Answer) AnswerReceipt {
	return AnswerReceipt{
		GameID:     string(a.GameID),
		Position:   a.Position,
		Answer:     a.Text,
		AnsweredAt: a.CreatedAt,
	}
}

// AdvanceResponse reports whether an advance changed the game
type AdvanceResponse struct {
	Outcome         string `json:"outcome"`
	Ended           bool   `json:"ended"`
	Status          string `json:"status"`
	CurrentQuestion int    `json:"current_question"`
}

// AdvanceResponseFromModel converts model.AdvanceResult
func AdvanceResponseFromModel(r *model.AdvanceResult) AdvanceResponse {
	return AdvanceResponse{
		Outcome:         string(r.Outcome),
		Ended:           r.Ended,
		Status:          string(r.Game.Status()),
		CurrentQuestion: r.Game.CurrentQuestion,
	}
}

// Snapshot is the polling view of a game
type Snapshot struct {
	GameID        string       `json:"game_id"`
	CategoryID    int          `json:"category_id"`
	HostID        string       `json:"host_id"`
	Status        string       `json:"status"`
	QuestionCount int          `json:"question_count"`
	StartedAt     *time.Time   `json:"started_at,omitempty"`
	EndedAt       *time.Time   `json:"ended_at,omitempty"`
	ServerTime    time.Time    `json:"server_time"`
	Question      *Question    `json:"question"`
	Answers       []Answer     `json:"answers"`
	Scoreboard    []ScoreEntry `json:"scoreboard"`
	Viewer        *Viewer      `json:"viewer"`
}

// Question is the current question as shown to a player
type Question struct {
	Position      int       `json:"position"`
	Text          string    `json:"text"`
	Options       []string  `json:"options"`
	Difficulty    string    `json:"difficulty"`
	Type          string    `json:"type"`
	Phase         string    `json:"phase"`
	Deadline      time.Time `json:"deadline,omitzero"`
	RemainingMS   int64     `json:"remaining_ms"`
	CorrectAnswer string    `json:"correct_answer,omitempty"`
	Revealed      bool      `json:"revealed"`
}

// Answer is one player's answer to the current question
type Answer struct {
	PlayerID    string `json:"player_id"`
	DisplayName string `json:"display_name"`
	Answer      string `json:"answer"`
	Correct     *bool  `json:"correct,omitempty"`
}

// ScoreEntry is one scoreboard row
type ScoreEntry struct {
	Rank        int    `json:"rank"`
	PlayerID    string `json:"player_id"`
	DisplayName string `json:"display_name"`
	Score       int    `json:"score"`
	IsHost      bool   `json:"is_host"`
	Won         bool   `json:"won"`
}

// Viewer is the requesting player's own standing
type Viewer struct {
	PlayerID    string `json:"player_id"`
	IsHost      bool   `json:"is_host"`
	Score       int    `json:"score"`
	Won         bool   `json:"won"`
	HasAnswered bool   `json:"has_answered"`
	Answer      string `json:"answer,omitempty"`
}

// SnapshotFromView converts view.Snapshot
func SnapshotFromView(s *view.Snapshot) Snapshot {
	out := Snapshot{
		GameID:        string(s.GameID),
		CategoryID:    int(s.CategoryID),
		HostID:        string(s.HostID),
		Status:        string(s.Status),
		QuestionCount: s.QuestionCount,
		StartedAt:     s.StartedAt,
		EndedAt:       s.EndedAt,
		ServerTime:    s.Now,
		Answers:       make([]Answer, len(s.Answers)),
		Scoreboard:    make([]ScoreEntry, len(s.Scoreboard)),
	}

	if q := s.Question; q != nil {
		out.Question = &Question{
			Position:      q.Position,
			Text:          q.Text,
			Options:       q.Options,
			Difficulty:    q.Difficulty,
			Type:          q.Type,
			Phase:         string(q.Phase),
			Deadline:      q.Deadline,
			RemainingMS:   q.Remaining.Milliseconds(),
			CorrectAnswer: q.CorrectAnswer,
			Revealed:      q.Revealed,
		}
	}
	for i, a := range s.Answers {
		out.Answers[i] = Answer{
			PlayerID:    string(a.PlayerID),
			DisplayName: a.DisplayName,
			Answer:      a.Text,
			Correct:     a.Correct,
		}
	}
	for i, e := range s.Scoreboard {
		out.Scoreboard[i] = ScoreEntry{
			Rank:        e.Rank,
			PlayerID:    string(e.PlayerID),
			DisplayName: e.DisplayName,
			Score:       e.Score,
			IsHost:      e.IsHost,
			Won:         e.Won,
		}
	}
	if v := s.Viewer; v != nil {
		out.Viewer = &Viewer{
			PlayerID:    string(v.PlayerID),
			IsHost:      v.IsHost,
			Score:       v.Score,
			Won:         v.Won,
			HasAnswered: v.HasAnswered,
			Answer:      v.Answer,
		}
	}
	return out
}
