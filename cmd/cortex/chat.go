package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/harunnryd/cortex/internal/console"
	"github.com/harunnryd/cortex/internal/domain"

	"github.com/google/shlex"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the council interactively",
	RunE: func(cmd *cobra.Command, args []string) error {
		target, _ := cmd.Flags().GetString("target")
		return executeWithConsole(func(ctx context.Context, c *console.Console) error {
			if target != "" {
				c.Council.SetTarget(target)
			}
			repl := newChatREPL(c, cmd.InOrStdin(), cmd.OutOrStdout())
			return repl.Run(ctx)
		})
	},
}

type chatREPL struct {
	console *console.Console
	reader  *bufio.Reader
	out     io.Writer
}

func newChatREPL(c *console.Console, in io.Reader, out io.Writer) *chatREPL {
	return &chatREPL{console: c, reader: bufio.NewReader(in), out: out}
}

func (r *chatREPL) Run(ctx context.Context) error {
	fmt.Fprintf(r.out, "Council chat with %s. Type /help for commands, /exit to quit.\n", r.console.Council.Target())

	lines := make(chan string)
	errs := make(chan error, 1)
	go func() {
		for {
			text, err := r.reader.ReadString('\n')
			if text != "" {
				lines <- text
			}
			if err != nil {
				errs <- err
				return
			}
		}
	}()

	for {
		fmt.Fprint(r.out, "> ")
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.out)
			return nil
		case err := <-errs:
			if err == io.EOF {
				return nil
			}
			return err
		case line := <-lines:
			if quit := r.Handle(ctx, line); quit {
				return nil
			}
		}
	}
}

// Handle processes one input line and reports whether the session should end.
func (r *chatREPL) Handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		msg, err := r.console.Chat(ctx, line)
		r.show(msg, err)
		return false
	}

	parts, parseErr := shlex.Split(line)
	if parseErr != nil {
		parts = strings.Fields(line)
	}
	if len(parts) == 0 {
		return false
	}
	cmd, args := parts[0], parts[1:]

	switch cmd {
	case "/exit", "/quit":
		return true
	case "/target":
		if len(args) == 0 {
			fmt.Fprintf(r.out, "Target: %s\n", r.console.Council.Target())
			return false
		}
		r.console.Council.SetTarget(args[0])
		fmt.Fprintf(r.out, "Target: %s\n", r.console.Council.Target())
	case "/members":
		r.members(ctx)
	case "/retry":
		r.show(r.console.RetryChat(ctx))
	case "/switch":
		r.show(r.console.SwitchToDefault(ctx))
	case "/continue":
		r.console.ContinueWithDefault()
		fmt.Fprintf(r.out, "Continuing with %s\n", r.console.Council.Target())
	case "/confirm":
		r.resolveProposal(ctx, args, true)
	case "/cancel":
		r.resolveProposal(ctx, args, false)
	case "/broadcast":
		r.broadcast(ctx, strings.Join(args, " "))
	case "/history":
		for _, m := range r.console.Council.History() {
			fmt.Fprintf(r.out, "%s: %s\n", m.Role, m.Content)
		}
	case "/clear":
		r.console.Council.Clear()
		fmt.Fprintln(r.out, "Conversation cleared")
	case "/help":
		fmt.Fprint(r.out, chatHelp)
	default:
		fmt.Fprintf(r.out, "Unknown command: %s\n", cmd)
	}
	return false
}

func (r *chatREPL) show(msg domain.ChatMessage, err error) {
	if err != nil {
		f := r.console.Council.Failure()
		if f == nil {
			fmt.Fprintf(r.out, "Error: %v\n", err)
			return
		}
		fmt.Fprintf(r.out, "Council call to %s failed (%s): %s\n", f.Member, f.Type, f.Message)
		fmt.Fprintf(r.out, "  %s\n", f.Reason)
		fmt.Fprintf(r.out, "  /retry to resend, /switch to ask %s, /continue to drop it\n", r.console.Council.DefaultTarget())
		return
	}
	if msg.ID == "" {
		return
	}
	fmt.Fprintf(r.out, "[%s] %s\n", msg.SourceNode, msg.Content)
	if p := msg.Proposal; p != nil {
		fmt.Fprintf(r.out, "  Proposal %s (risk %s): %s\n", msg.ID, p.RiskLevel.Normalize(), p.Intent)
		fmt.Fprintln(r.out, "  /confirm to execute, /cancel to dismiss")
	}
}

func (r *chatREPL) members(ctx context.Context) {
	if err := r.console.Council.FetchMembers(ctx); err != nil {
		fmt.Fprintf(r.out, "Error: %v\n", err)
		return
	}
	for _, m := range r.console.Council.Members() {
		fmt.Fprintf(r.out, "%s  %s  %s\n", m.ID, m.Role, m.Team)
	}
}

// resolveProposal acts on the named proposal, or the latest pending one.
func (r *chatREPL) resolveProposal(ctx context.Context, args []string, confirm bool) {
	id := ""
	if len(args) > 0 {
		id = args[0]
	} else if pending := r.console.Proposals.Pending(); len(pending) > 0 {
		id = pending[len(pending)-1].MessageID
	}
	if id == "" {
		fmt.Fprintln(r.out, "No pending proposal")
		return
	}

	var err error
	verb := "Cancelled"
	if confirm {
		err = r.console.ConfirmProposal(ctx, id)
		verb = "Confirmed"
	} else {
		err = r.console.CancelProposal(id)
	}
	if err != nil {
		fmt.Fprintf(r.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(r.out, "%s proposal %s\n", verb, id)
}

func (r *chatREPL) broadcast(ctx context.Context, text string) {
	res, err := r.console.Council.Broadcast(ctx, text)
	if err != nil {
		fmt.Fprintf(r.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(r.out, "Broadcast reached %d teams\n", res.TeamsHit)
	for _, reply := range res.Replies {
		if reply.Error != "" {
			fmt.Fprintf(r.out, "  %s: error: %s\n", reply.TeamID, reply.Error)
			continue
		}
		fmt.Fprintf(r.out, "  %s: %s\n", reply.TeamID, reply.Content)
	}
}

const chatHelp = `Commands:
  /target [id]        show or change the council member
  /members            list council members
  /retry              resend the last unanswered message
  /switch             resend it to the default member
  /continue           switch to the default member without resending
  /confirm [msg-id]   execute a proposal (latest if omitted)
  /cancel [msg-id]    dismiss a proposal
  /broadcast <text>   send text to every team
  /history            print the conversation
  /clear              forget the conversation
  /exit               leave
`

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().String("target", "", "council member to talk to (default council.default_target)")
}
