package cli

import (
	"time"

	"github.com/spf13/cobra"
)

// HealthResult is the server health response plus the measured round trip
type HealthResult struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result HealthResult

			start := time.Now()
			if err := client.Get(cmd.Context(), "/api/v1/health", &result); err != nil {
				return err
			}
			result.LatencyMS = time.Since(start).Milliseconds()

			newOutput(cmd).Print(result)
			return nil
		},
	}
}
