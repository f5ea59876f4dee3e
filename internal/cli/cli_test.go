package cli

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/triviagame/internal/api"
	"github.com/mcoot/triviagame/internal/api/response"
	"github.com/mcoot/triviagame/internal/factory"
	"github.com/mcoot/triviagame/internal/testutil"
)

type CLISuite struct {
	suite.Suite
	app       *factory.TestApp
	server    *httptest.Server
	tokenFile string
}

func TestCLISuite(t *testing.T) {
	suite.Run(t, new(CLISuite))
}

func (s *CLISuite) SetupTest() {
	s.app = factory.NewTestApp()
	s.server = httptest.NewServer(api.NewRouter(api.RouterConfig{
		Logger:            testutil.NopLogger(),
		AuthService:       s.app.AuthService,
		Catalog:           s.app.Catalog,
		SessionController: s.app.SessionController,
		Advancer:          s.app.Advancer,
	}))
	s.tokenFile = filepath.Join(s.T().TempDir(), "token")
}

func (s *CLISuite) TearDownTest() {
	s.server.Close()
}

// run executes the CLI with the token file and returns its output
func (s *CLISuite) run(args ...string) (string, error) {
	return s.runAs("", args...)
}

// runAs executes the CLI with an explicit token and JSON output
func (s *CLISuite) runAs(token string, args ...string) (string, error) {
	full := []string{"--server", s.server.URL, "--token-file", s.tokenFile, "--output", "json"}
	if token != "" {
		full = append(full, "--token", token)
	}

	var out bytes.Buffer
	root := NewRootCmd()
	root.SetArgs(append(full, args...))
	root.SetOut(&out)
	root.SetErr(&out)
	err := root.Execute()
	return out.String(), err
}

func (s *CLISuite) guest(name string) string {
	out, err := s.run("player", "guest", "--name", name)
	s.Require().NoError(err, out)

	var auth response.AuthResponse
	s.Require().NoError(json.Unmarshal([]byte(out), &auth))
	return auth.SessionToken
}

func (s *CLISuite) TestHealth() {
	out, err := s.run("health")
	s.Require().NoError(err)
	s.Contains(out, `"status": "ok"`)
}

func (s *CLISuite) TestGuestSavesToken() {
	token := s.guest("Alice")

	saved, err := os.ReadFile(s.tokenFile)
	s.Require().NoError(err)
	s.Equal(token, string(saved))

	// The saved token is picked up without --token
	out, err := s.run("player", "me")
	s.Require().NoError(err)
	var me response.Player
	s.Require().NoError(json.Unmarshal([]byte(out), &me))
	s.Equal("Alice", me.DisplayName)
}

func (s *CLISuite) TestCategories() {
	out, err := s.run("categories")
	s.Require().NoError(err)

	var categories []response.Category
	s.Require().NoError(json.Unmarshal([]byte(out), &categories))
	s.Require().Len(categories, 1)
	s.Equal("General Knowledge", categories[0].Name)
}

func (s *CLISuite) TestAPIErrorsAreReturned() {
	token := s.guest("Alice")

	_, err := s.runAs(token, "game", "join", "missing")
	s.Require().Error(err)

	var apiErr *APIError
	s.Require().ErrorAs(err, &apiErr)
	s.Equal("GAME_NOT_FOUND", apiErr.Code)
	s.Equal(404, apiErr.Status)
	s.NotEmpty(apiErr.RequestID)
}

func (s *CLISuite) TestAdvanceRejectsBadPosition() {
	token := s.guest("Alice")
	_, err := s.runAs(token, "game", "advance", "abc123", "first")
	s.ErrorContains(err, "invalid position")
}

func (s *CLISuite) TestGameLifecycle() {
	host := s.guest("Host")
	player := s.guest("Player")

	out, err := s.runAs(host, "game", "create", "--category", strconv.Itoa(int(factory.TestCategoryID)), "--questions", "1")
	s.Require().NoError(err, out)
	var game response.Game
	s.Require().NoError(json.Unmarshal([]byte(out), &game))
	s.Equal("lobby", game.Status)

	out, err = s.runAs(player, "game", "join", game.ID)
	s.Require().NoError(err, out)

	out, err = s.runAs(host, "game", "begin", game.ID)
	s.Require().NoError(err, out)

	s.app.MockClock.Advance(6 * time.Second)
	out, err = s.runAs(player, "game", "answer", game.ID, "A")
	s.Require().NoError(err, out)

	out, err = s.runAs(player, "game", "live")
	s.Require().NoError(err, out)
	var live response.GameList
	s.Require().NoError(json.Unmarshal([]byte(out), &live))
	s.Require().Len(live.Games, 1)

	s.app.MockClock.Advance(15 * time.Second)
	out, err = s.runAs(player, "game", "advance", game.ID, "0")
	s.Require().NoError(err, out)
	var adv response.AdvanceResponse
	s.Require().NoError(json.Unmarshal([]byte(out), &adv))
	s.Equal("applied", adv.Outcome)
	s.True(adv.Ended)

	out, err = s.runAs(player, "game", "get", game.ID)
	s.Require().NoError(err, out)
	var snap response.Snapshot
	s.Require().NoError(json.Unmarshal([]byte(out), &snap))
	s.Equal("ended", snap.Status)
	s.Require().NotEmpty(snap.Scoreboard)
	s.Equal("Player", snap.Scoreboard[0].DisplayName)
	s.True(snap.Scoreboard[0].Won)

	out, err = s.runAs(player, "game", "list")
	s.Require().NoError(err, out)
	var mine response.PlayerGames
	s.Require().NoError(json.Unmarshal([]byte(out), &mine))
	s.Len(mine.Past, 1)
}

func (s *CLISuite) TestWatchAdvancesClosedQuestions() {
	host := s.guest("Host")

	out, err := s.runAs(host, "game", "create", "--category", strconv.Itoa(int(factory.TestCategoryID)), "--questions", "1")
	s.Require().NoError(err, out)
	var game response.Game
	s.Require().NoError(json.Unmarshal([]byte(out), &game))

	_, err = s.runAs(host, "game", "begin", game.ID)
	s.Require().NoError(err)

	// The only question has already closed, so one poll advances and the next sees the end
	s.app.MockClock.Advance(21 * time.Second)
	out, err = s.runAs(host, "game", "watch", game.ID, "--advance", "--interval", "10ms")
	s.Require().NoError(err, out)
	s.Contains(out, `"status": "ended"`)
}

func (s *CLISuite) TestTextOutput() {
	var buf bytes.Buffer
	out := NewOutput("text", &buf)

	correct := true
	out.Print(response.Snapshot{
		GameID:        "quiz01",
		Status:        "in_progress",
		QuestionCount: 3,
		Question: &response.Question{
			Position:      1,
			Text:          "Question B",
			Options:       []string{"B", "W"},
			Difficulty:    "medium",
			Phase:         "closed",
			CorrectAnswer: "B",
			Revealed:      true,
		},
		Answers:    []response.Answer{{DisplayName: "Alice", Answer: "B", Correct: &correct}},
		Scoreboard: []response.ScoreEntry{{Rank: 1, DisplayName: "Alice", Score: 2, IsHost: true}},
	})

	text := buf.String()
	s.Contains(text, "Question 2 of 3 [medium, closed]")
	s.Contains(text, "* a) B")
	s.Contains(text, "Alice: B (correct)")
	s.Contains(text, "1. Alice  2 [host]")
}

func (s *CLISuite) TestConfigFromEnvironment() {
	s.T().Setenv("TRIVIACTL_SERVER", "http://quiz.example:9000")
	s.T().Setenv("TRIVIACTL_TIMEOUT", "5s")
	s.T().Setenv("TRIVIACTL_TOKEN_FILE", s.tokenFile)

	c, err := LoadConfig()
	s.Require().NoError(err)
	s.Equal("http://quiz.example:9000", c.ServerURL)
	s.Equal(5*time.Second, c.Timeout)
	s.Equal("text", c.Output)
	s.Equal(s.tokenFile, c.TokenFile)
}

func (s *CLISuite) TestConfigRejectsBadTimeout() {
	s.T().Setenv("TRIVIACTL_TIMEOUT", "soon")

	_, err := LoadConfig()
	s.ErrorContains(err, "parse environment")
}
