package model

import "time"

// QuestionID uniquely identifies a question
type QuestionID string

// Question is one timed round of a game
type Question struct {
	ID               QuestionID
	GameID           GameID
	Position         int // 0-based play order, unique within the game
	Text             string
	CorrectAnswer    string
	IncorrectAnswers []string

	// CorrectIndex is where CorrectAnswer sits in Options().
	// Chosen once at creation so every poll sees the same order.
	CorrectIndex int

	Difficulty string
	Type       string

	// Window timestamps, nil until the question's turn
	StartedAt *time.Time
	EndedAt   *time.Time
}

// Options returns the answer list in its stored order: the correct answer at
// CorrectIndex and the incorrect answers filling the other slots.
func (q *Question) Options() []string {
	n := len(q.IncorrectAnswers) + 1
	idx := q.CorrectIndex
	if idx < 0 || idx >= n {
		idx = 0
	}

	options := make([]string, 0, n)
	options = append(options, q.IncorrectAnswers[:idx]...)
	options = append(options, q.CorrectAnswer)
	options = append(options, q.IncorrectAnswers[idx:]...)
	return options
}

// IsOption reports whether text is one of the question's answers
func (q *Question) IsOption(text string) bool {
	if text == q.CorrectAnswer {
		return true
	}
	for _, a := range q.IncorrectAnswers {
		if a == text {
			return true
		}
	}
	return false
}

// IsCorrect reports whether text is the correct answer
func (q *Question) IsCorrect(text string) bool {
	return text == q.CorrectAnswer
}

// HasWindow reports whether the question's window has been opened
func (q *Question) HasWindow() bool {
	return q.StartedAt != nil && q.EndedAt != nil
}

// OpenWindow sets the window timestamps
func (q *Question) OpenWindow(w Window) {
	start, end := w.StartsAt, w.EndsAt
	q.StartedAt = &start
	q.EndedAt = &end
}

// CloseBy pulls the window end forward to now if it is still in the future
func (q *Question) CloseBy(now time.Time) {
	if q.EndedAt != nil && q.EndedAt.After(now) {
		end := now
		q.EndedAt = &end
	}
}

func (q Question) clone() Question {
	q.IncorrectAnswers = append([]string(nil), q.IncorrectAnswers...)
	q.StartedAt = cloneTime(q.StartedAt)
	q.EndedAt = cloneTime(q.EndedAt)
	return q
}

// Window is the interval during which a question accepts answers
type Window struct {
	StartsAt time.Time
	EndsAt   time.Time
}

// QuestionData is a question as delivered by a question provider
type QuestionData struct {
	Text             string
	CorrectAnswer    string
	IncorrectAnswers []string
	Difficulty       string
	Type             string
}
