// Package ledger records answers and keeps participation scores consistent with them.
// Every function here mutates a GameDetail that the caller holds inside a
// storage.UpdateGame transaction.
package ledger

import (
	"time"

	"github.com/mcoot/triviagame/internal/dependencies/random"
	"github.com/mcoot/triviagame/internal/model"
)

// Ledger records at most one answer per participation and question
type Ledger struct {
	random random.Random
}

// New creates a new Ledger
func New(random random.Random) *Ledger {
	return &Ledger{random: random}
}

// Record stores the participation's answer to q and credits one point if it is
// correct. An existing answer for the same pair yields model.ErrDuplicateAnswer
// and leaves detail untouched.
func (l *Ledger) Record(
	detail *model.GameDetail,
	participationID model.ParticipationID,
	q *model.Question,
	text string,
	now time.Time,
) (*model.Answer, error) {
	p := findParticipation(detail, participationID)
	if p == nil {
		return nil, model.ErrNotParticipant
	}
	if detail.FindAnswer(p.ID, q.ID) != nil {
		return nil, model.ErrDuplicateAnswer
	}

	answer := model.Answer{
		ID:              model.AnswerID(l.random.UUID()),
		GameID:          detail.Game.ID,
		ParticipationID: p.ID,
		PlayerID:        p.PlayerID,
		QuestionID:      q.ID,
		Position:        q.Position,
		Text:            text,
		Correct:         q.IsCorrect(text),
		CreatedAt:       now,
	}
	detail.Answers = append(detail.Answers, answer)
	if answer.Correct {
		p.Score++
	}

	return &answer, nil
}

// Tally recounts every participation's score from its stored answers
func Tally(detail *model.GameDetail) map[model.ParticipationID]int {
	scores := make(map[model.ParticipationID]int, len(detail.Participations))
	for _, p := range detail.Participations {
		scores[p.ID] = 0
	}
	for _, a := range detail.Answers {
		if a.Correct {
			scores[a.ParticipationID]++
		}
	}
	return scores
}

// Settle marks every participation holding the maximum score as a winner and
// returns the winning player ids in participation order. Ties all win.
func Settle(detail *model.GameDetail) []model.PlayerID {
	if len(detail.Participations) == 0 {
		return nil
	}

	best := detail.Participations[0].Score
	for _, p := range detail.Participations[1:] {
		if p.Score > best {
			best = p.Score
		}
	}

	var winners []model.PlayerID
	for i := range detail.Participations {
		p := &detail.Participations[i]
		p.Won = p.Score == best
		if p.Won {
			winners = append(winners, p.PlayerID)
		}
	}
	return winners
}

// Scores returns each player's current score
func Scores(detail *model.GameDetail) map[model.PlayerID]int {
	scores := make(map[model.PlayerID]int, len(detail.Participations))
	for _, p := range detail.Participations {
		scores[p.PlayerID] = p.Score
	}
	return scores
}

func findParticipation(detail *model.GameDetail, id model.ParticipationID) *model.Participation {
	for i := range detail.Participations {
		if detail.Participations[i].ID == id {
			return &detail.Participations[i]
		}
	}
	return nil
}
