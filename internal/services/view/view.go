// Package view projects stored game state into the snapshot polling clients see.
// Nothing here mutates state.
package view

import (
	"sort"
	"time"

	"github.com/mcoot/triviagame/internal/model"
	"github.com/mcoot/triviagame/internal/services/timing"
)

// Snapshot is everything a player may see about a game at one instant
type Snapshot struct {
	GameID        model.GameID
	CategoryID    model.CategoryID
	HostID        model.PlayerID
	Status        model.GameStatus
	QuestionCount int
	StartedAt     *time.Time
	EndedAt       *time.Time
	Now           time.Time

	// Question is nil while the game is in the lobby
	Question *QuestionView

	// Answers holds the current question's answers, empty until revealed to the viewer
	Answers []AnswerView

	Scoreboard []ScoreEntry

	// Viewer is nil when the viewer has not joined
	Viewer *ViewerView
}

// QuestionView is the current question as shown to players
type QuestionView struct {
	Position   int
	Text       string
	Options    []string
	Difficulty string
	Type       string
	Phase      timing.Phase
	Deadline   time.Time
	Remaining  time.Duration

	// CorrectAnswer is empty until Revealed
	CorrectAnswer string
	Revealed      bool
}

// AnswerView is one player's answer to the current question.
// Correct is nil until the question is revealed.
type AnswerView struct {
	PlayerID    model.PlayerID
	DisplayName string
	Text        string
	Correct     *bool
}

// ScoreEntry is one row of the scoreboard
type ScoreEntry struct {
	Rank        int
	PlayerID    model.PlayerID
	DisplayName string
	Score       int
	IsHost      bool
	Won         bool
}

// ViewerView is the viewer's own standing
type ViewerView struct {
	PlayerID    model.PlayerID
	IsHost      bool
	Score       int
	Won         bool
	HasAnswered bool
	Answer      string
}

// Build projects detail as seen by viewer at now. A started game whose current
// question has no window yields model.ErrInvalidTimingState.
func Build(detail *model.GameDetail, viewer model.PlayerID, now time.Time) (*Snapshot, error) {
	g := detail.Game
	snap := &Snapshot{
		GameID:        g.ID,
		CategoryID:    g.CategoryID,
		HostID:        g.HostID,
		Status:        g.Status(),
		QuestionCount: g.QuestionCount,
		StartedAt:     g.StartedAt,
		EndedAt:       g.EndedAt,
		Now:           now,
		Answers:       []AnswerView{},
	}

	var (
		current  *model.Question
		revealed = g.IsEnded()
	)
	if g.IsStarted() {
		q, err := detail.CurrentQuestion()
		if err != nil {
			return nil, err
		}
		current = q

		state, err := phaseOf(detail, q, now)
		if err != nil {
			return nil, err
		}
		revealed = state.Phase == timing.PhaseClosed

		snap.Question = &QuestionView{
			Position:   q.Position,
			Text:       q.Text,
			Options:    q.Options(),
			Difficulty: q.Difficulty,
			Type:       q.Type,
			Phase:      state.Phase,
			Deadline:   state.Deadline,
			Remaining:  state.Remaining(now),
			Revealed:   revealed,
		}
		if revealed {
			snap.Question.CorrectAnswer = q.CorrectAnswer
		}
	}

	var viewerAnswer *model.Answer
	viewerPart := detail.Participation(viewer)
	if current != nil && viewerPart != nil {
		viewerAnswer = detail.FindAnswer(viewerPart.ID, current.ID)
	}

	if current != nil && (revealed || viewerAnswer != nil) {
		snap.Answers = answersFor(detail, current, revealed)
	}

	// Points for an unrevealed question would tell players who got it right
	published := publishedScores(detail, current, revealed)
	snap.Scoreboard = scoreboard(detail, published)

	if viewerPart != nil {
		snap.Viewer = &ViewerView{
			PlayerID:    viewerPart.PlayerID,
			IsHost:      viewerPart.IsHost,
			Score:       published[viewerPart.ID],
			Won:         viewerPart.Won,
			HasAnswered: viewerAnswer != nil,
		}
		if viewerAnswer != nil {
			snap.Viewer.Answer = viewerAnswer.Text
		}
	}

	return snap, nil
}

// phaseOf evaluates the current question. An ended game is always closed:
// the final advance pulls the window end to the instant of ending.
func phaseOf(detail *model.GameDetail, q *model.Question, now time.Time) (timing.State, error) {
	state, err := timing.Evaluate(q, now)
	if err != nil {
		return state, err
	}
	if detail.Game.IsEnded() {
		return timing.State{Phase: timing.PhaseClosed}, nil
	}
	return state, nil
}

func answersFor(detail *model.GameDetail, q *model.Question, revealed bool) []AnswerView {
	out := []AnswerView{}
	for _, a := range detail.Answers {
		if a.QuestionID != q.ID {
			continue
		}
		av := AnswerView{PlayerID: a.PlayerID, Text: a.Text}
		if p := detail.Participation(a.PlayerID); p != nil {
			av.DisplayName = p.DisplayName
		}
		if revealed {
			correct := a.Correct
			av.Correct = &correct
		}
		out = append(out, av)
	}
	return out
}

func publishedScores(detail *model.GameDetail, current *model.Question, revealed bool) map[model.ParticipationID]int {
	scores := make(map[model.ParticipationID]int, len(detail.Participations))
	for _, p := range detail.Participations {
		scores[p.ID] = p.Score
	}
	if current == nil || revealed {
		return scores
	}
	for _, a := range detail.Answers {
		if a.QuestionID == current.ID && a.Correct {
			scores[a.ParticipationID]--
		}
	}
	return scores
}

// scoreboard orders by score descending with ties kept in join order. Ranks
// are consecutive positions, so tied players get distinct ranks while all
// players sharing the top score are still marked as winners.
func scoreboard(detail *model.GameDetail, scores map[model.ParticipationID]int) []ScoreEntry {
	parts := append([]model.Participation(nil), detail.Participations...)
	sort.SliceStable(parts, func(i, j int) bool {
		si, sj := scores[parts[i].ID], scores[parts[j].ID]
		if si != sj {
			return si > sj
		}
		return parts[i].JoinedAt.Before(parts[j].JoinedAt)
	})

	out := make([]ScoreEntry, len(parts))
	for i, p := range parts {
		out[i] = ScoreEntry{
			Rank:        i + 1,
			PlayerID:    p.PlayerID,
			DisplayName: p.DisplayName,
			Score:       scores[p.ID],
			IsHost:      p.IsHost,
			Won:         p.Won,
		}
	}
	return out
}
