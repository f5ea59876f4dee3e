// Package questions supplies question content and the category catalog.
package questions

import (
	"context"
	"fmt"

	"github.com/mcoot/triviagame/internal/model"
)

// Provider fetches the questions for a new game. It fails wholesale: either
// exactly count questions are returned or an error is.
type Provider interface {
	FetchQuestions(ctx context.Context, categoryID model.CategoryID, count int) ([]model.QuestionData, error)
}

// CategorySource lists the categories a Provider can draw from, with question counts
type CategorySource interface {
	FetchCategories(ctx context.Context) ([]model.Category, error)
}

// Source is a question backend serving both questions and categories
type Source interface {
	Provider
	CategorySource
}

// Ensure StaticProvider implements Source
var _ Source = (*StaticProvider)(nil)

// StaticProvider serves questions from a fixed in-memory bank.
// Used for offline development and tests.
type StaticProvider struct {
	categories []model.Category
	bank       map[model.CategoryID][]model.QuestionData
}

// NewStaticProvider creates an empty StaticProvider
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{bank: make(map[model.CategoryID][]model.QuestionData)}
}

// AddCategory registers a category and its questions. Not safe to call
// concurrently with fetches.
func (p *StaticProvider) AddCategory(id model.CategoryID, name string, questions ...model.QuestionData) *StaticProvider {
	p.categories = append(p.categories, model.Category{
		ID:             id,
		Name:           name,
		TotalQuestions: len(questions),
	})
	p.bank[id] = append(p.bank[id], questions...)
	return p
}

// FetchQuestions returns the first count questions of the category
func (p *StaticProvider) FetchQuestions(ctx context.Context, categoryID model.CategoryID, count int) ([]model.QuestionData, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrProviderUnavailable, err)
	}

	bank := p.bank[categoryID]
	if len(bank) < count {
		return nil, fmt.Errorf("%w: category %d has %d questions, %d requested",
			model.ErrProviderUnavailable, categoryID, len(bank), count)
	}

	out := make([]model.QuestionData, count)
	for i, q := range bank[:count] {
		q.IncorrectAnswers = append([]string(nil), q.IncorrectAnswers...)
		out[i] = q
	}
	return out, nil
}

// FetchCategories returns every registered category
func (p *StaticProvider) FetchCategories(ctx context.Context) ([]model.Category, error) {
	return append([]model.Category(nil), p.categories...), nil
}

// DemoProvider returns a StaticProvider with a small general knowledge bank
func DemoProvider() *StaticProvider {
	return NewStaticProvider().AddCategory(9, "General Knowledge",
		model.QuestionData{Text: "What is the capital of Australia?", CorrectAnswer: "Canberra",
			IncorrectAnswers: []string{"Sydney", "Melbourne", "Perth"}, Difficulty: "easy", Type: "multiple"},
		model.QuestionData{Text: "How many sides does a hexagon have?", CorrectAnswer: "6",
			IncorrectAnswers: []string{"5", "7", "8"}, Difficulty: "easy", Type: "multiple"},
		model.QuestionData{Text: "Which planet is known as the Red Planet?", CorrectAnswer: "Mars",
			IncorrectAnswers: []string{"Venus", "Jupiter", "Mercury"}, Difficulty: "easy", Type: "multiple"},
		model.QuestionData{Text: "What is the chemical symbol for gold?", CorrectAnswer: "Au",
			IncorrectAnswers: []string{"Ag", "Gd", "Go"}, Difficulty: "medium", Type: "multiple"},
		model.QuestionData{Text: "The Great Wall of China is visible from the Moon with the naked eye.", CorrectAnswer: "False",
			IncorrectAnswers: []string{"True"}, Difficulty: "medium", Type: "boolean"},
		model.QuestionData{Text: "Which element has the atomic number 1?", CorrectAnswer: "Hydrogen",
			IncorrectAnswers: []string{"Helium", "Oxygen", "Lithium"}, Difficulty: "easy", Type: "multiple"},
		model.QuestionData{Text: "In which year did the Berlin Wall fall?", CorrectAnswer: "1989",
			IncorrectAnswers: []string{"1987", "1991", "1985"}, Difficulty: "medium", Type: "multiple"},
		model.QuestionData{Text: "What is the largest ocean on Earth?", CorrectAnswer: "Pacific",
			IncorrectAnswers: []string{"Atlantic", "Indian", "Arctic"}, Difficulty: "easy", Type: "multiple"},
		model.QuestionData{Text: "Who painted the Mona Lisa?", CorrectAnswer: "Leonardo da Vinci",
			IncorrectAnswers: []string{"Michelangelo", "Raphael", "Donatello"}, Difficulty: "easy", Type: "multiple"},
		model.QuestionData{Text: "What is the smallest prime number?", CorrectAnswer: "2",
			IncorrectAnswers: []string{"1", "3", "0"}, Difficulty: "easy", Type: "multiple"},
	)
}
