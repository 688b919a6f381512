package main

import (
	"context"
	"fmt"

	"github.com/harunnryd/cortex/internal/console"
	"github.com/harunnryd/cortex/internal/render"

	"github.com/spf13/cobra"
)

var approvalsCmd = &cobra.Command{
	Use:   "approvals",
	Short: "List and resolve pending approvals",
}

var approvalsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending approvals",
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeWithConsole(func(ctx context.Context, c *console.Console) error {
			if err := c.Cache.FetchApprovals(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.NewTableFormatter().FormatApprovals(c.Cache.PendingApprovals()))
			return nil
		})
	},
}

func resolveCmd(use, short string, approved bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeWithConsole(func(ctx context.Context, c *console.Console) error {
				if err := c.Cache.ResolveApproval(ctx, args[0], approved); err != nil {
					return fmt.Errorf("resolve %s: %w", args[0], err)
				}
				verb := "Denied"
				if approved {
					verb = "Approved"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", verb, args[0])
				return nil
			})
		},
	}
}

func init() {
	rootCmd.AddCommand(approvalsCmd)
	approvalsCmd.AddCommand(approvalsListCmd)
	approvalsCmd.AddCommand(resolveCmd("approve", "Approve a pending action", true))
	approvalsCmd.AddCommand(resolveCmd("deny", "Deny a pending action", false))
}
