package governance

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/harunnryd/cortex/internal/domain"
	cortexErrors "github.com/harunnryd/cortex/internal/errors"
)

type ActionConfirmer interface {
	ConfirmAction(ctx context.Context, token string) error
}

// AttachedProposal is a proposal together with the chat message it came with.
type AttachedProposal struct {
	MessageID string
	Proposal  domain.Proposal
}

// ProposalDesk holds proposals attached to chat replies. A proposal has
// no effect until Confirm, and never expires on this side.
type ProposalDesk struct {
	confirmer ActionConfirmer
	mapper    cortexErrors.ErrorMapper

	mu        sync.Mutex
	order     []string
	proposals map[string]*domain.Proposal
	inFlight  map[string]bool
}

func NewProposalDesk(confirmer ActionConfirmer) *ProposalDesk {
	return &ProposalDesk{
		confirmer: confirmer,
		mapper:    cortexErrors.NewDefaultErrorMapper(),
		proposals: make(map[string]*domain.Proposal),
		inFlight:  make(map[string]bool),
	}
}

// Attach registers p under messageID. Re-attaching the same message keeps
// the existing status.
func (d *ProposalDesk) Attach(messageID string, p domain.Proposal) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.proposals[messageID]; ok {
		return
	}
	p.Status = domain.ProposalPending
	p.RiskLevel = p.RiskLevel.Normalize()
	d.proposals[messageID] = &p
	d.order = append(d.order, messageID)
}

func (d *ProposalDesk) Get(messageID string) (domain.Proposal, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.proposals[messageID]
	if !ok {
		return domain.Proposal{}, false
	}
	return *p, true
}

// Pending lists proposals awaiting a decision, in attach order.
func (d *ProposalDesk) Pending() []AttachedProposal {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []AttachedProposal
	for _, id := range d.order {
		if p := d.proposals[id]; p.Status == domain.ProposalPending {
			out = append(out, AttachedProposal{MessageID: id, Proposal: *p})
		}
	}
	return out
}

// Confirm dispatches the proposal's action. A failed dispatch leaves it
// pending so it can be confirmed again.
func (d *ProposalDesk) Confirm(ctx context.Context, messageID string) error {
	d.mu.Lock()
	p, ok := d.proposals[messageID]
	if !ok {
		d.mu.Unlock()
		return cortexErrors.NotFound(fmt.Sprintf("proposal for message %s", messageID))
	}
	if p.Status != domain.ProposalPending || d.inFlight[messageID] {
		status := p.Status
		d.mu.Unlock()
		return cortexErrors.Conflict(fmt.Sprintf("proposal for message %s is %s", messageID, status))
	}
	token := p.ConfirmToken
	d.inFlight[messageID] = true
	d.mu.Unlock()

	err := d.confirmer.ConfirmAction(ctx, token)

	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.inFlight, messageID)
	if err != nil {
		slog.Warn("Proposal confirm failed", "component", "governance", "message_id", messageID, "error", err)
		return d.mapper.MapError(err)
	}
	p.Status = domain.ProposalConfirmed
	slog.Info("Proposal confirmed", "component", "governance", "message_id", messageID, "risk", p.RiskLevel)
	return nil
}

// Cancel discards the proposal locally. Nothing is sent.
func (d *ProposalDesk) Cancel(messageID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.proposals[messageID]
	if !ok {
		return cortexErrors.NotFound(fmt.Sprintf("proposal for message %s", messageID))
	}
	if p.Status != domain.ProposalPending || d.inFlight[messageID] {
		return cortexErrors.Conflict(fmt.Sprintf("proposal for message %s is %s", messageID, p.Status))
	}
	p.Status = domain.ProposalCancelled
	return nil
}
