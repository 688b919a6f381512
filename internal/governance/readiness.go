package governance

import (
	"fmt"
	"strings"

	"github.com/harunnryd/cortex/internal/domain"
)

const (
	ModePassive = "passive"
	ModeActive  = "active"
	ModeStrict  = "strict"
)

const (
	BlockerProvider = "No provider profile or active brain detected"
	BlockerMCP      = "No MCP server is connected"
	BlockerNATS     = "NATS transport is unavailable"
	BlockerSSE      = "SSE stream is disconnected"
	BlockerDatabase = "Database status is offline"
)

// ReadinessInput is everything the launch gate looks at.
type ReadinessInput struct {
	Services        []domain.ServiceStatus
	StreamConnected bool
	Cognitive       *domain.CognitiveStatus
	MCPServers      []domain.MCPServer
	GovernanceMode  string
}

type ReadinessSnapshot struct {
	ProviderReady   bool     `json:"providerReady"`
	MCPReady        bool     `json:"mcpReady"`
	GovernanceReady bool     `json:"governanceReady"`
	NATSReady       bool     `json:"natsReady"`
	SSEReady        bool     `json:"sseReady"`
	DBReady         bool     `json:"dbReady"`
	Blockers        []string `json:"blockers"`
}

// Ready reports whether a mission launch is unblocked.
func (s ReadinessSnapshot) Ready() bool {
	return len(s.Blockers) == 0
}

type GateStatus string

const (
	GateHealthy  GateStatus = "healthy"
	GateDegraded GateStatus = "degraded"
	GateBlocked  GateStatus = "blocked"
)

type Check struct {
	Label  string     `json:"label"`
	Status GateStatus `json:"status"`
}

// Checks renders the snapshot as one row per gate.
func (s ReadinessSnapshot) Checks(mode string) []Check {
	gate := func(ok bool) GateStatus {
		if ok {
			return GateHealthy
		}
		return GateBlocked
	}
	governance := gate(s.GovernanceReady)
	if s.GovernanceReady && strings.EqualFold(mode, ModeActive) {
		governance = GateDegraded
	}
	return []Check{
		{Label: "Provider profile", Status: gate(s.ProviderReady)},
		{Label: "MCP capability", Status: gate(s.MCPReady)},
		{Label: "NATS bus", Status: gate(s.NATSReady)},
		{Label: "SSE stream", Status: gate(s.SSEReady)},
		{Label: "Database", Status: gate(s.DBReady)},
		{Label: "Governance mode", Status: governance},
	}
}

// Readiness derives the launch gate from its inputs. It keeps no state.
func Readiness(in ReadinessInput) ReadinessSnapshot {
	snap := ReadinessSnapshot{
		ProviderReady:   in.Cognitive != nil && in.Cognitive.ProviderReady(),
		GovernanceReady: !strings.EqualFold(in.GovernanceMode, ModeStrict),
		NATSReady:       reportedOnline(in.Services, "nats"),
		SSEReady:        in.StreamConnected,
		DBReady:         reportedOnline(in.Services, "postgres", "database"),
		Blockers:        []string{},
	}
	for _, srv := range in.MCPServers {
		if srv.Usable() {
			snap.MCPReady = true
			break
		}
	}

	if !snap.ProviderReady {
		snap.Blockers = append(snap.Blockers, BlockerProvider)
	}
	if !snap.MCPReady {
		snap.Blockers = append(snap.Blockers, BlockerMCP)
	}
	if !snap.NATSReady {
		snap.Blockers = append(snap.Blockers, BlockerNATS)
	}
	if !snap.SSEReady {
		snap.Blockers = append(snap.Blockers, BlockerSSE)
	}
	if !snap.DBReady {
		snap.Blockers = append(snap.Blockers, BlockerDatabase)
	}
	return snap
}

func findService(services []domain.ServiceStatus, names ...string) (domain.ServiceStatus, bool) {
	for _, name := range names {
		for _, s := range services {
			if strings.EqualFold(strings.TrimSpace(s.Name), name) {
				return s, true
			}
		}
	}
	return domain.ServiceStatus{}, false
}

// reportedOnline is true only for a listed service that reports online.
// A missing entry counts as not ready.
func reportedOnline(services []domain.ServiceStatus, names ...string) bool {
	s, ok := findService(services, names...)
	return ok && s.Status.Normalize() == domain.HealthOnline
}

const (
	ReasonSSE     = "SSE stream offline"
	ReasonCouncil = "Council call failure"
)

// DegradedReasons lists why the console should show its degraded banner.
// The banner shows the first one.
func DegradedReasons(services []domain.ServiceStatus, streamConnected, councilFailure bool) []string {
	var out []string
	if s, ok := findService(services, "nats"); ok && s.Status.Normalize() != domain.HealthOnline {
		out = append(out, fmt.Sprintf("NATS %s", s.Status.Normalize()))
	}
	if s, ok := findService(services, "postgres", "database"); ok && s.Status.Normalize() != domain.HealthOnline {
		out = append(out, fmt.Sprintf("Database %s", s.Status.Normalize()))
	}
	if !streamConnected {
		out = append(out, ReasonSSE)
	}
	if councilFailure {
		out = append(out, ReasonCouncil)
	}
	return out
}
