package factory

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/triviagame/internal/dependencies/mocks"
	"github.com/mcoot/triviagame/internal/events"
	"github.com/mcoot/triviagame/internal/model"
	"github.com/mcoot/triviagame/internal/services/auth"
	"github.com/mcoot/triviagame/internal/services/questions"
	"github.com/mcoot/triviagame/internal/services/session"
	"github.com/mcoot/triviagame/internal/storage/memory"
	"github.com/mcoot/triviagame/internal/testutil"
)

// TestCategoryID is the category served by the test question bank
const TestCategoryID model.CategoryID = 9

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
	Provider   *questions.StaticProvider

	// Published records every event the app emits
	Published *events.Recorder
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	provider := questions.NewStaticProvider().AddCategory(TestCategoryID, "General Knowledge", TestQuestions()...)
	recorder := events.NewRecorder()

	authCfg := auth.DefaultConfig()
	authCfg.Secret = []byte("test-secret")
	authCfg.BcryptCost = bcrypt.MinCost

	app, err := newWithDependencies(store, mockClock, mockRandom, provider, session.DefaultConfig(), authCfg, testutil.NopLogger(), recorder)
	if err != nil {
		panic(err)
	}

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
		Provider:   provider,
		Published:  recorder,
	}
}

// TestQuestions returns a small bank whose correct answers are A, B, C, D, E
func TestQuestions() []model.QuestionData {
	qs := make([]model.QuestionData, 0, 5)
	for i, correct := range []string{"A", "B", "C", "D", "E"} {
		qs = append(qs, model.QuestionData{
			Text:             "Question " + correct,
			CorrectAnswer:    correct,
			IncorrectAnswers: []string{"W", "X", "Y"},
			Difficulty:       []string{"easy", "medium", "hard"}[i%3],
			Type:             "multiple",
		})
	}
	return qs
}
