package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Long: `Check server health and report the number of open event sockets.

With --wait the check is retried until the server answers or the duration
elapses, which is useful while a server is starting.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result HealthResult

			deadline := time.Now().Add(wait)
			for {
				err := client.Get("/health", &result)
				if err == nil {
					break
				}
				if !time.Now().Before(deadline) {
					return err
				}
				if cfg.Verbose {
					fmt.Fprintf(cmd.ErrOrStderr(), "waiting for server: %v\n", err)
				}
				time.Sleep(200 * time.Millisecond)
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().DurationVar(&wait, "wait", 0, "Keep retrying for up to this long")

	return cmd
}
