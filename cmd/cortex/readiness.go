package main

import (
	"context"
	"fmt"
	"time"

	"github.com/harunnryd/cortex/internal/console"
	"github.com/harunnryd/cortex/internal/render"

	"github.com/spf13/cobra"
)

var readinessCmd = &cobra.Command{
	Use:   "readiness",
	Short: "Show whether a mission can be launched",
	RunE: func(cmd *cobra.Command, args []string) error {
		wait, _ := cmd.Flags().GetDuration("wait")
		return executeWithConsole(func(ctx context.Context, c *console.Console) error {
			c.Connect()
			waitConnected(ctx, c, wait)

			if err := c.Cache.FetchReadiness(ctx); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			}

			f := render.NewTableFormatter()
			fmt.Fprintln(cmd.OutOrStdout(), f.FormatReadiness(c.Readiness(), cfg.Governance.Mode))
			if reasons := c.Degraded(); len(reasons) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Degraded: %s\n", reasons[0])
			}
			return nil
		})
	},
}

// waitConnected gives the stream up to d to come up.
func waitConnected(ctx context.Context, c *console.Console, d time.Duration) {
	deadline := time.NewTimer(d)
	defer deadline.Stop()
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()

	for !c.Connected() {
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			return
		case <-tick.C:
		}
	}
}

func init() {
	rootCmd.AddCommand(readinessCmd)
	readinessCmd.Flags().Duration("wait", 2*time.Second, "how long to wait for the stream before reporting")
}
