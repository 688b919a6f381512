package governance

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/harunnryd/cortex/internal/domain"
	cortexErrors "github.com/harunnryd/cortex/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func onlineBrain() *domain.CognitiveStatus {
	return &domain.CognitiveStatus{Text: domain.CognitiveEngine{Status: "online"}}
}

func TestReadinessReportsNATSAndStreamButNotPostgres(t *testing.T) {
	snap := Readiness(ReadinessInput{
		Services: []domain.ServiceStatus{
			{Name: "nats", Status: "offline"},
			{Name: "postgres", Status: "online"},
		},
		StreamConnected: false,
		Cognitive:       onlineBrain(),
		MCPServers:      []domain.MCPServer{{ID: "fs", Status: "connected"}},
	})

	assert.Contains(t, snap.Blockers, BlockerNATS)
	assert.Contains(t, snap.Blockers, BlockerSSE)
	assert.NotContains(t, snap.Blockers, BlockerDatabase)
	assert.True(t, snap.DBReady)
	assert.False(t, snap.Ready())
}

func TestReadinessBlockerOrder(t *testing.T) {
	snap := Readiness(ReadinessInput{
		Services: []domain.ServiceStatus{
			{Name: "NATS", Status: "down"},
			{Name: "Database", Status: "offline"},
		},
		MCPServers: []domain.MCPServer{{ID: "fs", Status: "error"}},
	})

	assert.Equal(t, []string{BlockerProvider, BlockerMCP, BlockerNATS, BlockerSSE, BlockerDatabase}, snap.Blockers)
}

func TestReadinessAllClear(t *testing.T) {
	snap := Readiness(ReadinessInput{
		Services:        []domain.ServiceStatus{{Name: "nats", Status: "online"}, {Name: "postgres", Status: "ok"}},
		StreamConnected: true,
		Cognitive:       onlineBrain(),
		MCPServers:      []domain.MCPServer{{ID: "a", Status: "error"}, {ID: "b", Status: "installed"}},
		GovernanceMode:  ModeStrict,
	})

	assert.True(t, snap.Ready())
	assert.Empty(t, snap.Blockers)
	assert.NotNil(t, snap.Blockers)
	assert.False(t, snap.GovernanceReady)

	checks := snap.Checks(ModeStrict)
	require.Len(t, checks, 6)
	assert.Equal(t, GateBlocked, checks[5].Status)
	assert.Equal(t, GateDegraded, Readiness(ReadinessInput{GovernanceMode: ModeActive}).Checks(ModeActive)[5].Status)
}

func TestReadinessUnlistedServicesBlock(t *testing.T) {
	snap := Readiness(ReadinessInput{StreamConnected: true, Cognitive: onlineBrain(), MCPServers: []domain.MCPServer{{Status: "connected"}}})
	assert.False(t, snap.NATSReady)
	assert.False(t, snap.DBReady)
	assert.False(t, snap.Ready())
	assert.Equal(t, []string{BlockerNATS, BlockerDatabase}, snap.Blockers)

	snap = Readiness(ReadinessInput{
		Services:        []domain.ServiceStatus{{Name: "nats", Status: "degraded"}, {Name: "postgres", Status: "online"}},
		StreamConnected: true,
		Cognitive:       onlineBrain(),
		MCPServers:      []domain.MCPServer{{Status: "connected"}},
	})
	assert.False(t, snap.NATSReady)
	assert.Equal(t, []string{BlockerNATS}, snap.Blockers)
}

func TestDegradedReasons(t *testing.T) {
	reasons := DegradedReasons([]domain.ServiceStatus{
		{Name: "nats", Status: "degraded"},
		{Name: "postgres", Status: "offline"},
		{Name: "redis", Status: "offline"},
	}, false, true)

	assert.Equal(t, []string{"NATS degraded", "Database offline", ReasonSSE, ReasonCouncil}, reasons)
	assert.Empty(t, DegradedReasons(nil, true, false))
}

type recordingConfirmer struct {
	mu     sync.Mutex
	tokens []string
	err    error
}

func (r *recordingConfirmer) ConfirmAction(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens = append(r.tokens, token)
	return r.err
}

func TestProposalIsInertUntilConfirmed(t *testing.T) {
	confirmer := &recordingConfirmer{}
	desk := NewProposalDesk(confirmer)

	desk.Attach("msg-1", domain.Proposal{ConfirmToken: "tok-1", RiskLevel: "HIGH"})
	desk.Attach("msg-2", domain.Proposal{ConfirmToken: "tok-2"})
	assert.Empty(t, confirmer.tokens)

	pending := desk.Pending()
	require.Len(t, pending, 2)
	assert.Equal(t, "msg-1", pending[0].MessageID)
	assert.Equal(t, domain.RiskHigh, pending[0].Proposal.RiskLevel)

	require.NoError(t, desk.Confirm(context.Background(), "msg-1"))
	assert.Equal(t, []string{"tok-1"}, confirmer.tokens)
	p, _ := desk.Get("msg-1")
	assert.Equal(t, domain.ProposalConfirmed, p.Status)

	assert.ErrorIs(t, desk.Confirm(context.Background(), "msg-1"), cortexErrors.ErrConflict)
	assert.Len(t, confirmer.tokens, 1)

	require.NoError(t, desk.Cancel("msg-2"))
	assert.Empty(t, desk.Pending())
	assert.Len(t, confirmer.tokens, 1, "cancel sends nothing")
	assert.ErrorIs(t, desk.Cancel("msg-2"), cortexErrors.ErrConflict)
	assert.ErrorIs(t, desk.Confirm(context.Background(), "nope"), cortexErrors.ErrNotFound)
}

func TestProposalConfirmFailureStaysPending(t *testing.T) {
	confirmer := &recordingConfirmer{err: errors.New("503 service unavailable: connection reset")}
	desk := NewProposalDesk(confirmer)
	desk.Attach("msg-1", domain.Proposal{ConfirmToken: "tok-1"})

	err := desk.Confirm(context.Background(), "msg-1")
	assert.ErrorIs(t, err, cortexErrors.ErrTransient)
	p, _ := desk.Get("msg-1")
	assert.Equal(t, domain.ProposalPending, p.Status)

	confirmer.err = nil
	require.NoError(t, desk.Confirm(context.Background(), "msg-1"))
	assert.Equal(t, []string{"tok-1", "tok-1"}, confirmer.tokens)
}
