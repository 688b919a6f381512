package console

import (
	"context"
	"errors"

	"github.com/harunnryd/cortex/internal/cache"
	"github.com/harunnryd/cortex/internal/domain"
	"github.com/harunnryd/cortex/internal/governance"
	"github.com/harunnryd/cortex/internal/transport"
)

// ResolveApproval removes the approval from the pending list at once and
// sends the decision in the background.
func (c *Console) ResolveApproval(id string, approved bool) <-chan error {
	return c.Cache.ResolveApprovalAsync(c.ctx, id, approved)
}

func (c *Console) ConfirmProposal(ctx context.Context, messageID string) error {
	return c.Proposals.Confirm(ctx, messageID)
}

func (c *Console) CancelProposal(messageID string) error {
	return c.Proposals.Cancel(messageID)
}

// Chat sends text through the council router. A reply carrying a
// proposal registers it with the desk.
func (c *Console) Chat(ctx context.Context, text string) (domain.ChatMessage, error) {
	return c.attach(c.Council.Send(ctx, text))
}

func (c *Console) RetryChat(ctx context.Context) (domain.ChatMessage, error) {
	return c.attach(c.Council.Retry(ctx))
}

// SwitchToDefault routes chat to the default member and re-sends.
func (c *Console) SwitchToDefault(ctx context.Context) (domain.ChatMessage, error) {
	return c.attach(c.Council.SwitchToDefault(ctx))
}

func (c *Console) ContinueWithDefault() {
	c.Council.ContinueWithDefault()
}

func (c *Console) attach(msg domain.ChatMessage, err error) (domain.ChatMessage, error) {
	if err == nil && msg.Proposal != nil {
		c.Proposals.Attach(msg.ID, *msg.Proposal)
	}
	return msg, err
}

func (c *Console) Readiness() governance.ReadinessSnapshot {
	in := governance.ReadinessInput{
		Services:        c.Cache.Services(),
		StreamConnected: c.Stream.IsConnected(),
		MCPServers:      c.Cache.MCPServers(),
		GovernanceMode:  c.cfg.Governance.Mode,
	}
	if cog, ok := c.Cache.Cognitive(); ok {
		in.Cognitive = &cog
	}
	return governance.Readiness(in)
}

// Degraded lists banner reasons; the banner shows the first.
func (c *Console) Degraded() []string {
	return governance.DegradedReasons(c.Cache.Services(), c.Stream.IsConnected(), c.Council.Failure() != nil)
}

// RetryAll re-runs the readiness fetches and restarts a stream that is
// not connected.
func (c *Console) RetryAll(ctx context.Context) error {
	if !c.Stream.IsConnected() {
		c.Stream.Disconnect()
		c.Stream.Connect(c.ctx)
	}
	return errors.Join(
		c.Cache.FetchReadiness(ctx),
		c.Cache.Refresh(ctx, cache.Approvals),
		c.Cache.FetchRoster(ctx),
	)
}

// Status is a point-in-time summary of the console.
type Status struct {
	Stream        transport.State              `json:"stream"`
	TotalEvents   uint64                       `json:"total_events"`
	Reconnects    uint64                       `json:"reconnects"`
	Mission       string                       `json:"mission_state"`
	MissionID     string                       `json:"mission_id,omitempty"`
	Readiness     governance.ReadinessSnapshot `json:"readiness"`
	Degraded      []string                     `json:"degraded"`
	Pending       int                          `json:"pending_approvals"`
	CouncilTarget string                       `json:"council_target"`
	ActivePolls   []string                     `json:"active_polls"`
	LastFailure   string                       `json:"council_failure,omitempty"`
	Recent        []domain.StreamSignal        `json:"recent_signals"`
}

func (c *Console) Status() Status {
	st := Status{
		Stream:        c.Stream.State(),
		TotalEvents:   c.Stream.TotalEvents(),
		Reconnects:    c.Stream.Reconnects(),
		Mission:       string(c.Mission.State()),
		MissionID:     c.Mission.MissionID(),
		Readiness:     c.Readiness(),
		Degraded:      c.Degraded(),
		Pending:       len(c.Cache.PendingApprovals()),
		CouncilTarget: c.Council.Target(),
		ActivePolls:   c.Poller.Active(),
		Recent:        cache.Activity(c.Stream.Recent()),
	}
	if f := c.Council.Failure(); f != nil {
		st.LastFailure = string(f.Type) + ": " + f.Message
	}
	if st.Degraded == nil {
		st.Degraded = []string{}
	}
	return st
}
