package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/harunnryd/cortex/internal/blueprint"
	"github.com/harunnryd/cortex/internal/concurrency"
	"github.com/harunnryd/cortex/internal/console"
	"github.com/harunnryd/cortex/internal/domain"
	"github.com/harunnryd/cortex/internal/mission"
	"github.com/harunnryd/cortex/internal/render"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var missionCmd = &cobra.Command{
	Use:   "mission",
	Short: "Draft, launch and inspect missions",
}

var missionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List missions known to the backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeWithConsole(func(ctx context.Context, c *console.Console) error {
			if err := c.Cache.FetchMissions(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.NewTableFormatter().FormatMissions(c.Cache.Missions()))
			return nil
		})
	},
}

var missionDraftCmd = &cobra.Command{
	Use:   "draft <intent>",
	Short: "Ask the architect for a blueprint without committing it",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		return executeWithConsole(func(ctx context.Context, c *console.Console) error {
			bp, err := c.SubmitIntent(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(bp)
			if err != nil {
				return fmt.Errorf("encode blueprint: %w", err)
			}
			if output != "" {
				if err := os.WriteFile(output, data, 0o644); err != nil {
					return fmt.Errorf("write blueprint: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Blueprint written to %s\n", output)
			} else {
				cmd.OutOrStdout().Write(data)
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.NewTableFormatter().FormatGraph(c.Graph.Graph()))
			return nil
		})
	},
}

var missionLaunchCmd = &cobra.Command{
	Use:   "launch",
	Short: "Commit a blueprint file and follow the run to completion",
	Long:  `Loads a blueprint, checks launch readiness, commits it and follows the run until it reaches a terminal status. Press Ctrl-C twice within the confirm window to terminate the mission.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		force, _ := cmd.Flags().GetBool("force")
		wait, _ := cmd.Flags().GetDuration("wait")
		if file == "" {
			return fmt.Errorf("--file is required")
		}

		bp, err := blueprint.LoadFile(file)
		if err != nil {
			return err
		}

		c, err := newConsole()
		if err != nil {
			return fmt.Errorf("failed to initialize console: %w", err)
		}
		defer c.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		out := cmd.OutOrStdout()
		c.OnSignal(func(sig domain.StreamSignal) {
			if sig.Kind() != domain.SignalOther {
				printSignal(out, sig)
			}
		})
		c.Connect()
		waitConnected(ctx, c, wait)

		if !force {
			if err := c.Cache.FetchReadiness(ctx); err != nil {
				return fmt.Errorf("readiness check failed (use --force to skip): %w", err)
			}
			if snap := c.Readiness(); !snap.Ready() {
				return fmt.Errorf("not ready to launch: %s", strings.Join(snap.Blockers, "; "))
			}
		}

		if err := c.LoadBlueprint(bp); err != nil {
			return err
		}
		res, err := c.CommitDraft(ctx)
		if err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		fmt.Fprintf(out, "Mission %s launched (%d teams, %d agents)\n", res.MissionID, res.Teams, res.Agents)

		return followMission(ctx, out, c)
	},
}

// followMission blocks until the mission reaches a terminal state. The
// first interrupt arms a terminate guard; a second one inside the window
// terminates the mission. SIGTERM exits without terminating.
func followMission(ctx context.Context, out io.Writer, c *console.Console) error {
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)

	guard := c.NewConfirmGuard("Terminate", "Press Ctrl-C again to terminate the mission", func() {
		concurrency.SafeGo("cli.terminate", func() {
			if err := c.Terminate(ctx); err != nil {
				fmt.Fprintf(out, "Terminate failed: %v\n", err)
				return
			}
			fmt.Fprintln(out, "Terminating...")
		}, nil)
	})

	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig := <-sigs:
			if sig == syscall.SIGTERM {
				return nil
			}
			if !guard.Click() {
				fmt.Fprintln(out, guard.Label())
			}
		case <-tick.C:
			switch s := c.Mission.State(); s {
			case mission.StateTerminated, mission.StateFailed:
				fmt.Fprintf(out, "Mission %s %s\n", c.Mission.MissionID(), s)
				return nil
			}
		}
	}
}

var missionTerminateCmd = &cobra.Command{
	Use:   "terminate <id>",
	Short: "Cancel a running mission",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeWithConsole(func(ctx context.Context, c *console.Console) error {
			if err := c.Cache.CancelMission(ctx, args[0]); err != nil {
				return fmt.Errorf("terminate %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Termination requested: %s\n", args[0])
			return nil
		})
	},
}

var blueprintCmd = &cobra.Command{
	Use:   "blueprint",
	Short: "Inspect blueprint files offline",
}

var blueprintGraphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the graph a blueprint file lays out",
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		if file == "" {
			return fmt.Errorf("--file is required")
		}
		bp, err := blueprint.LoadFile(file)
		if err != nil {
			return err
		}
		g := blueprint.Build(bp, blueprint.BuildOptions{})
		fmt.Fprintln(cmd.OutOrStdout(), render.NewTableFormatter().FormatGraph(g))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(missionCmd)
	missionCmd.AddCommand(missionListCmd, missionDraftCmd, missionLaunchCmd, missionTerminateCmd)
	missionDraftCmd.Flags().StringP("output", "o", "", "write the blueprint YAML to this file")
	missionLaunchCmd.Flags().StringP("file", "f", "", "blueprint YAML file")
	missionLaunchCmd.Flags().Bool("force", false, "launch even when readiness reports blockers")
	missionLaunchCmd.Flags().Duration("wait", 2*time.Second, "how long to wait for the stream before checking readiness")

	rootCmd.AddCommand(blueprintCmd)
	blueprintCmd.AddCommand(blueprintGraphCmd)
	blueprintGraphCmd.Flags().StringP("file", "f", "", "blueprint YAML file")
}
