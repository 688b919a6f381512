package council

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/harunnryd/cortex/internal/api"
	"github.com/harunnryd/cortex/internal/config"
	"github.com/harunnryd/cortex/internal/domain"
	cortexErrors "github.com/harunnryd/cortex/internal/errors"

	"github.com/oklog/ulid/v2"
)

type ChatClient interface {
	CouncilChat(ctx context.Context, member string, messages []domain.WireMessage) (domain.ChatEnvelope, error)
	ListCouncilMembers(ctx context.Context) ([]domain.CouncilMember, error)
	Broadcast(ctx context.Context, content string) (domain.BroadcastResult, error)
}

// Router sends chat to the selected council member and keeps the
// conversation. Failures are kept for remediation: Retry, SwitchToDefault
// or ContinueWithDefault.
type Router struct {
	client        ChatClient
	defaultTarget string
	historyWindow int
	now           func() time.Time

	mu       sync.Mutex
	target   string
	history  []domain.ChatMessage
	members  []domain.CouncilMember
	failure  *CallFailure
	chatting bool
	// pending is true while the last user message has no reply.
	pending bool
}

func NewRouter(client ChatClient, cfg config.CouncilConfig) *Router {
	window := cfg.HistoryWindow
	if window <= 0 {
		window = config.DefaultCouncilHistoryWindow
	}
	target := strings.TrimSpace(cfg.DefaultTarget)
	if target == "" {
		target = config.DefaultCouncilTarget
	}
	return &Router{
		client:        client,
		defaultTarget: target,
		historyWindow: window,
		now:           time.Now,
		target:        target,
	}
}

func (r *Router) Target() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.target
}

func (r *Router) DefaultTarget() string { return r.defaultTarget }

// SetTarget routes later messages to id. Blank selects the default.
func (r *Router) SetTarget(id string) {
	id = strings.TrimSpace(id)
	if id == "" {
		id = r.defaultTarget
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.target = id
}

func (r *Router) Failure() *CallFailure {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failure == nil {
		return nil
	}
	f := *r.failure
	return &f
}

func (r *Router) Chatting() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.chatting
}

func (r *Router) History() []domain.ChatMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.history)
}

func (r *Router) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = nil
	r.failure = nil
	r.pending = false
}

// Send appends text as a user message and asks the current target.
// Blank text does nothing. The returned message is the reply, or the
// error entry appended in its place.
func (r *Router) Send(ctx context.Context, text string) (domain.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ChatMessage{}, nil
	}

	r.mu.Lock()
	if r.chatting {
		r.mu.Unlock()
		return domain.ChatMessage{}, cortexErrors.Conflict("a chat request is already in flight")
	}
	r.history = append(r.history, domain.ChatMessage{
		ID:        r.newID(),
		Role:      domain.ChatUser,
		Content:   text,
		Timestamp: r.now(),
	})
	r.pending = true
	target, wire := r.beginLocked()
	r.mu.Unlock()

	return r.dispatch(ctx, target, wire)
}

// Retry re-sends the unanswered request to the current target.
func (r *Router) Retry(ctx context.Context) (domain.ChatMessage, error) {
	r.mu.Lock()
	if !r.pending {
		r.mu.Unlock()
		return domain.ChatMessage{}, cortexErrors.NotFound("no pending chat request to retry")
	}
	if r.chatting {
		r.mu.Unlock()
		return domain.ChatMessage{}, cortexErrors.Conflict("a chat request is already in flight")
	}
	target, wire := r.beginLocked()
	r.mu.Unlock()
	return r.dispatch(ctx, target, wire)
}

// SwitchToDefault routes to the default target and re-sends the pending
// request there in the same step.
func (r *Router) SwitchToDefault(ctx context.Context) (domain.ChatMessage, error) {
	r.SetTarget(r.defaultTarget)
	slog.Info("Switched council target to default", "component", "council", "target", r.defaultTarget)
	return r.Retry(ctx)
}

// ContinueWithDefault routes to the default target and drops the failure
// without re-sending.
func (r *Router) ContinueWithDefault() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.target = r.defaultTarget
	r.failure = nil
	r.pending = false
}

// beginLocked marks a request in flight and snapshots what it sends.
// r.mu must be held.
func (r *Router) beginLocked() (string, []domain.WireMessage) {
	r.chatting = true
	return r.target, r.window()
}

func (r *Router) dispatch(ctx context.Context, target string, wire []domain.WireMessage) (domain.ChatMessage, error) {
	env, err := r.client.CouncilChat(ctx, target, wire)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.chatting = false

	if err != nil {
		text := err.Error()
		var chatErr *api.ChatError
		if errors.As(err, &chatErr) {
			text = chatErr.Text
		}
		r.failure = newCallFailure(target, text)
		msg := domain.ChatMessage{
			ID:         r.newID(),
			Role:       domain.ChatCouncil,
			Content:    text,
			SourceNode: target,
			Timestamp:  r.now(),
			IsError:    true,
		}
		r.history = append(r.history, msg)
		slog.Warn("Council call failed", "component", "council", "member", target, "failure", r.failure.Type, "error", err)
		return msg, err
	}

	r.failure = nil
	r.pending = false
	msg := replyMessage(env, target, r.newID(), r.now())
	r.history = append(r.history, msg)
	return msg, nil
}

// window must be called with r.mu held. Error entries are display only
// and are not sent back.
func (r *Router) window() []domain.WireMessage {
	var out []domain.WireMessage
	for _, m := range r.history {
		if m.IsError {
			continue
		}
		out = append(out, domain.WireMessage{Role: m.Role.WireRole(), Content: m.Content})
	}
	if len(out) > r.historyWindow {
		out = out[len(out)-r.historyWindow:]
	}
	return out
}

func replyMessage(env domain.ChatEnvelope, target, id string, now time.Time) domain.ChatMessage {
	source := env.Meta.SourceNode
	if source == "" {
		source = target
	}
	ts := now
	if t, err := time.Parse(time.RFC3339Nano, env.Meta.Timestamp); err == nil {
		ts = t
	}
	msg := domain.ChatMessage{
		ID:            id,
		Role:          domain.ChatCouncil,
		Content:       env.Payload.Text,
		Consultations: env.Payload.Consultations,
		ToolsUsed:     env.Payload.ToolsUsed,
		SourceNode:    source,
		TrustScore:    env.TrustScore,
		Timestamp:     ts,
		Artifacts:     env.Payload.Artifacts,
	}
	if p := env.Payload.Proposal; p != nil && p.ConfirmToken != "" {
		proposal := *p
		proposal.Status = domain.ProposalPending
		msg.Proposal = &proposal
	}
	return msg
}

func (r *Router) newID() string {
	return ulid.Make().String()
}

func (r *Router) FetchMembers(ctx context.Context) error {
	members, err := r.client.ListCouncilMembers(ctx)
	if err != nil {
		slog.Warn("Council members fetch failed", "component", "council", "error", err)
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members = members
	return nil
}

func (r *Router) Members() []domain.CouncilMember {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.members)
}

// Broadcast sends text to every team. It does not touch the conversation.
func (r *Router) Broadcast(ctx context.Context, text string) (domain.BroadcastResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.BroadcastResult{}, cortexErrors.InvalidInput("broadcast text is empty")
	}
	res, err := r.client.Broadcast(ctx, text)
	if err != nil {
		slog.Warn("Broadcast failed", "component", "council", "error", err)
		return domain.BroadcastResult{}, err
	}
	slog.Info("Broadcast delivered", "component", "council", "teams_hit", res.TeamsHit)
	return res, nil
}
