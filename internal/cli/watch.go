package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/triviagame/internal/api/request"
	"github.com/mcoot/triviagame/internal/api/response"
)

func newGameWatchCmd() *cobra.Command {
	var (
		interval time.Duration
		advance  bool
	)

	cmd := &cobra.Command{
		Use:   "watch <id>",
		Short: "Poll a game and print each change",
		Long: `Poll the game and print it whenever the question, its phase or the
scoreboard changes. Stops when the game ends.

With --advance, the watcher moves the game on as soon as the current question
closes. Several watchers may do this at once; only one advance takes effect.

Press Ctrl+C to stop.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval <= 0 {
				return fmt.Errorf("--interval must be positive")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			w := &watcher{id: args[0], advance: advance, out: newOutput(cmd)}
			return w.run(ctx, interval)
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", time.Second, "Polling interval")
	cmd.Flags().BoolVar(&advance, "advance", false, "Advance past closed questions")

	return cmd
}

type watcher struct {
	id      string
	advance bool
	out     *Output
	last    string
}

func (w *watcher) run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		done, err := w.poll(ctx)
		if err != nil || done {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// poll fetches the game once, printing it if it changed. It reports true once
// the game has ended.
func (w *watcher) poll(ctx context.Context) (bool, error) {
	var snap response.Snapshot
	if err := client.Get(ctx, gamePath(w.id), &snap); err != nil {
		if ctx.Err() != nil {
			return true, nil
		}
		return false, err
	}

	if key := changeKey(snap); key != w.last {
		w.last = key
		w.out.Print(snap)
	}

	if snap.Status == "ended" {
		return true, nil
	}
	if w.advance && shouldAdvance(snap) {
		return false, w.advancePast(ctx, snap.Question.Position)
	}
	return false, nil
}

func (w *watcher) advancePast(ctx context.Context, position int) error {
	var result response.AdvanceResponse
	err := client.Post(ctx, gamePath(w.id, "advance"), request.AdvanceRequest{Position: &position}, &result)

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Code == "ROUND_IN_PROGRESS" {
		// Our clock ran ahead of the server's
		return nil
	}
	if err != nil {
		return err
	}
	if cfg.Verbose {
		w.out.Print(result)
	}
	return nil
}

func shouldAdvance(s response.Snapshot) bool {
	return s.Status == "in_progress" &&
		s.Viewer != nil &&
		s.Question != nil &&
		s.Question.Phase == "closed"
}

// changeKey summarizes what a watcher prints a new frame for
func changeKey(s response.Snapshot) string {
	key := s.Status
	if q := s.Question; q != nil {
		key += fmt.Sprintf("|%d|%s|%d", q.Position, q.Phase, len(s.Answers))
	}
	for _, e := range s.Scoreboard {
		key += fmt.Sprintf("|%s=%d", e.PlayerID, e.Score)
	}
	return key
}
