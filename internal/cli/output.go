package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mcoot/triviagame/internal/api/response"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to w
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

func newOutput(cmd *cobra.Command) *Output {
	return NewOutput(cfg.Output, cmd.OutOrStdout())
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

func (o *Output) printf(format string, args ...any) {
	fmt.Fprintf(o.w, format, args...)
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case response.Player:
		o.printPlayer(v)
	case response.AuthResponse:
		o.printAuthResult(v)
	case []response.Category:
		o.printCategories(v)
	case response.Game:
		o.printGame(v)
	case response.GameList:
		o.printGames("Live games", v.Games)
	case response.PlayerGames:
		o.printGames("Upcoming", v.Upcoming)
		o.printGames("Current", v.Current)
		o.printGames("Past", v.Past)
	case response.Participation:
		o.printParticipation(v)
	case response.AnswerReceipt:
		o.printf("Answered question %d: %s\n", v.Position+1, v.Answer)
	case response.AdvanceResponse:
		o.printAdvance(v)
	case response.Snapshot:
		o.printSnapshot(v)
	case HealthResult:
		o.printf("Status: %s (%dms)\n", v.Status, v.LatencyMS)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printPlayer(p response.Player) {
	guestStr := "no"
	if p.IsGuest {
		guestStr = "yes"
	}
	o.printf("Player: %s (%s)\n", p.DisplayName, p.ID)
	o.printf("Guest: %s\n", guestStr)
}

func (o *Output) printAuthResult(a response.AuthResponse) {
	o.printPlayer(a.Player)
	o.printf("Token: %s\n", a.SessionToken)
}

func (o *Output) printCategories(categories []response.Category) {
	if len(categories) == 0 {
		o.printf("No categories available\n")
		return
	}
	for _, c := range categories {
		o.printf("%4d  %-40s %d questions\n", c.ID, c.Name, c.TotalQuestions)
	}
}

func (o *Output) printGame(g response.Game) {
	o.printf("Game: %s\n", g.ID)
	o.printf("Status: %s\n", g.Status)
	o.printf("Category: %d\n", g.CategoryID)
	o.printf("Questions: %d\n", g.QuestionCount)
	o.printf("Players: %d\n", g.PlayerCount)
	if g.Status == "in_progress" {
		o.printf("Current Question: %d\n", g.CurrentQuestion+1)
	}
}

func (o *Output) printGames(title string, games []response.Game) {
	o.printf("%s (%d):\n", title, len(games))
	for _, g := range games {
		o.printf("  - %s  %s  %d questions, %d players\n", g.ID, g.Status, g.QuestionCount, g.PlayerCount)
	}
}

func (o *Output) printParticipation(p response.Participation) {
	o.printf("Joined game %s as %s\n", p.GameID, p.DisplayName)
}

func (o *Output) printAdvance(a response.AdvanceResponse) {
	switch {
	case a.Outcome == "noop":
		o.printf("Already advanced\n")
	case a.Ended:
		o.printf("Game over\n")
	default:
		o.printf("Moved to question %d\n", a.CurrentQuestion+1)
	}
}

func (o *Output) printSnapshot(s response.Snapshot) {
	o.printf("Game: %s (%s)\n", s.GameID, s.Status)

	if q := s.Question; q != nil {
		o.printf("\nQuestion %d of %d [%s, %s]\n", q.Position+1, s.QuestionCount, q.Difficulty, q.Phase)
		o.printf("%s\n", q.Text)
		for i, opt := range q.Options {
			marker := " "
			if q.Revealed && opt == q.CorrectAnswer {
				marker = "*"
			}
			o.printf("  %s %c) %s\n", marker, 'a'+i, opt)
		}
		switch q.Phase {
		case "waiting":
			o.printf("Opens in %ds\n", seconds(q.RemainingMS))
		case "active":
			o.printf("Closes in %ds\n", seconds(q.RemainingMS))
		}
	}

	if len(s.Answers) > 0 {
		o.printf("\nAnswers:\n")
		for _, a := range s.Answers {
			mark := ""
			if a.Correct != nil {
				mark = " (wrong)"
				if *a.Correct {
					mark = " (correct)"
				}
			}
			o.printf("  %s: %s%s\n", a.DisplayName, a.Answer, mark)
		}
	}

	if len(s.Scoreboard) > 0 {
		o.printf("\nScoreboard:\n")
		for _, e := range s.Scoreboard {
			var tags []string
			if e.IsHost {
				tags = append(tags, "host")
			}
			if e.Won {
				tags = append(tags, "winner")
			}
			suffix := ""
			if len(tags) > 0 {
				suffix = " [" + strings.Join(tags, ", ") + "]"
			}
			o.printf("  %d. %s  %d%s\n", e.Rank, e.DisplayName, e.Score, suffix)
		}
	}
}

func seconds(ms int64) int64 {
	return (ms + 999) / 1000
}
