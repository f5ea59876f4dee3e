package cli

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mcoot/triviagame/internal/api/request"
	"github.com/mcoot/triviagame/internal/api/response"
)

func newGameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "game",
		Short: "Game commands",
	}

	cmd.AddCommand(newGameCreateCmd())
	cmd.AddCommand(newGameGetCmd())
	cmd.AddCommand(newGameJoinCmd())
	cmd.AddCommand(newGameBeginCmd())
	cmd.AddCommand(newGameAnswerCmd())
	cmd.AddCommand(newGameAdvanceCmd())
	cmd.AddCommand(newGameListCmd())
	cmd.AddCommand(newGameLiveCmd())
	cmd.AddCommand(newGameWatchCmd())

	return cmd
}

func gamePath(id string, suffix ...string) string {
	p := "/api/v1/games/" + url.PathEscape(id)
	for _, s := range suffix {
		p += "/" + s
	}
	return p
}

func newGameCreateCmd() *cobra.Command {
	var category, count int

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a game and host it",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := request.CreateGameRequest{CategoryID: category, QuestionCount: count}
			var result response.Game

			if err := client.Post(cmd.Context(), "/api/v1/games", req, &result); err != nil {
				return err
			}

			newOutput(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&category, "category", 0, "Category ID (required)")
	cmd.Flags().IntVar(&count, "questions", 10, "Number of questions (1-20)")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}

func newGameGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show the game as you currently see it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Snapshot

			if err := client.Get(cmd.Context(), gamePath(args[0]), &result); err != nil {
				return err
			}

			newOutput(cmd).Print(result)
			return nil
		},
	}
}

func newGameJoinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join <id>",
		Short: "Join a game before it begins",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Participation

			if err := client.Post(cmd.Context(), gamePath(args[0], "join"), nil, &result); err != nil {
				return err
			}

			newOutput(cmd).Print(result)
			return nil
		},
	}
}

func newGameBeginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "begin <id>",
		Short: "Begin a game you host",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Game

			if err := client.Post(cmd.Context(), gamePath(args[0], "begin"), nil, &result); err != nil {
				return err
			}

			newOutput(cmd).Print(result)
			return nil
		},
	}
}

func newGameAnswerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "answer <id> <answer>",
		Short: "Answer the current question",
		Long: `Answer the current question. The answer must match one of the options
exactly. Each question accepts a single answer per player.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := request.SubmitAnswerRequest{Answer: args[1]}
			var result response.AnswerReceipt

			if err := client.Post(cmd.Context(), gamePath(args[0], "answers"), req, &result); err != nil {
				return err
			}

			newOutput(cmd).Print(result)
			return nil
		},
	}
}

func newGameAdvanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "advance <id> <position>",
		Short: "Move past the question at position",
		Long: `Move the game past the question at the given 0-based position. If another
player already advanced it the command reports a noop outcome.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := strconv.Atoi(args[1])
			if err != nil || pos < 0 {
				return fmt.Errorf("invalid position %q", args[1])
			}

			var result response.AdvanceResponse
			if err := client.Post(cmd.Context(), gamePath(args[0], "advance"), request.AdvanceRequest{Position: &pos}, &result); err != nil {
				return err
			}

			newOutput(cmd).Print(result)
			return nil
		},
	}
}

func newGameListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your upcoming, current and past games",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.PlayerGames

			if err := client.Get(cmd.Context(), "/api/v1/games", &result); err != nil {
				return err
			}

			newOutput(cmd).Print(result)
			return nil
		},
	}
}

func newGameLiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "live",
		Short: "List games in progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.GameList

			if err := client.Get(cmd.Context(), "/api/v1/games/live", &result); err != nil {
				return err
			}

			newOutput(cmd).Print(result)
			return nil
		},
	}
}
