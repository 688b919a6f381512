package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/harunnryd/cortex/internal/console"
	"github.com/harunnryd/cortex/internal/daemon"
	"github.com/harunnryd/cortex/internal/daemon/components"
	"github.com/harunnryd/cortex/internal/domain"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the live signal stream",
	Long:  `Connects to the backend stream, keeps the polled resources fresh and prints every signal until interrupted. With --status the console state is also served over HTTP.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("config not loaded")
		}
		if serve, _ := cmd.Flags().GetBool("status"); serve {
			cfg.Status.Enabled = true
		}

		c, err := newConsole()
		if err != nil {
			return fmt.Errorf("failed to initialize console: %w", err)
		}
		defer c.Close()

		out := cmd.OutOrStdout()
		c.OnSignal(func(sig domain.StreamSignal) { printSignal(out, sig) })
		c.OnConnectionChange(func(connected bool) { printConnection(out, c, connected) })

		daemonMgr, err := daemon.NewDaemon(cfg)
		if err != nil {
			return fmt.Errorf("failed to create daemon manager: %w", err)
		}
		addConsoleComponents(daemonMgr, c)

		slog.Info("Cortex watch starting up...", "backend", cfg.Server.BaseURL, "status", cfg.Status.Enabled)
		err = daemonMgr.Start(context.Background())
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				slog.Info("Cortex watch stopped gracefully")
				return nil
			}
			return fmt.Errorf("watch failed: %w", err)
		}

		slog.Info("Cortex watch stopped gracefully")
		return nil
	},
}

func addConsoleComponents(d *daemon.Daemon, c *console.Console) {
	d.AddComponent(components.NewStreamComponent(c))
	d.AddComponent(components.NewPollingComponent(c))
	if cfg.Status.Enabled {
		d.AddComponent(components.NewStatusServerComponent(c, d, cfg.Status, cfg.Governance.Mode))
	}
}

func printSignal(w io.Writer, sig domain.StreamSignal) {
	ts := sig.Timestamp
	if ts == "" {
		ts = "-"
	}
	parts := []string{ts, strings.ToUpper(string(sig.Kind())), sig.Type}
	if sig.Source != "" {
		parts = append(parts, "["+sig.Source+"]")
	}
	if sig.Message != "" {
		parts = append(parts, sig.Message)
	}
	fmt.Fprintln(w, strings.Join(parts, " "))
}

func printConnection(w io.Writer, c *console.Console, connected bool) {
	if connected {
		fmt.Fprintln(w, "== LIVE ==")
		return
	}
	fmt.Fprintln(w, "== OFFLINE ==")
	if reasons := c.Degraded(); len(reasons) > 0 {
		fmt.Fprintf(w, "Degraded: %s\n", reasons[0])
	}
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().Bool("status", false, "serve console status on status.addr")
	watchCmd.Flags().String("status.addr", "", "status listen address")
}
