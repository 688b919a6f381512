// Package console composes the synchronization core into one
// process-wide store. Every change to shared state goes through one of
// its intents.
package console

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/harunnryd/cortex/internal/blueprint"
	"github.com/harunnryd/cortex/internal/cache"
	"github.com/harunnryd/cortex/internal/concurrency"
	"github.com/harunnryd/cortex/internal/config"
	"github.com/harunnryd/cortex/internal/confirm"
	"github.com/harunnryd/cortex/internal/council"
	"github.com/harunnryd/cortex/internal/domain"
	"github.com/harunnryd/cortex/internal/governance"
	"github.com/harunnryd/cortex/internal/mission"
	"github.com/harunnryd/cortex/internal/transport"
)

// Backend is the full backend surface the console drives.
type Backend interface {
	cache.Backend
	mission.RunEventSource
	council.ChatClient
	governance.ActionConfirmer

	Negotiate(ctx context.Context, intent string) (domain.Blueprint, error)
	Commit(ctx context.Context, bp domain.Blueprint) (domain.CommitResult, error)
	UpdateMissionAgent(ctx context.Context, missionID string, agent domain.AgentManifest) error
	RemoveMissionAgent(ctx context.Context, missionID, agentID string) error
}

type intervals struct {
	roster, sensors, missions, runEvents, services, approvals time.Duration
}

type Console struct {
	cfg     *config.Config
	backend Backend

	Cache     *cache.Cache
	Graph     *blueprint.Synchronizer
	Mission   *mission.Machine
	Council   *council.Router
	Proposals *governance.ProposalDesk
	Stream    *transport.Stream
	Poller    *transport.Poller
	Runs      *mission.RunMonitor

	every         intervals
	confirmWindow time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	guards      []*confirm.Guard
	runCancel   func()
	signalFns   []func(domain.StreamSignal)
	connFns     []func(bool)
	pollStarted bool
}

func New(cfg *config.Config, backend Backend, dialer transport.Dialer) (*Console, error) {
	if cfg == nil {
		return nil, fmt.Errorf("console requires a config")
	}
	every, err := parseIntervals(cfg.Polling)
	if err != nil {
		return nil, err
	}
	window, err := config.DurationOrDefault(cfg.Confirm.Window, config.DefaultConfirmWindow)
	if err != nil {
		return nil, fmt.Errorf("parse confirm window: %w", err)
	}
	streamOpts, err := transport.StreamOptionsFromConfig(cfg.Stream)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	poller := transport.NewPoller()
	c := &Console{
		cfg:           cfg,
		backend:       backend,
		Cache:         cache.New(backend),
		Graph:         blueprint.NewSynchronizer(),
		Mission:       mission.NewMachine(),
		Council:       council.NewRouter(backend, cfg.Council),
		Proposals:     governance.NewProposalDesk(backend),
		Poller:        poller,
		Runs:          mission.NewRunMonitor(backend, poller, every.runEvents),
		every:         every,
		confirmWindow: window,
		ctx:           ctx,
		cancel:        cancel,
	}
	c.Stream = transport.NewStream(dialer, c, streamOpts)
	return c, nil
}

func parseIntervals(p config.PollingConfig) (intervals, error) {
	var out intervals
	fields := []struct {
		key      string
		value    string
		fallback string
		dst      *time.Duration
	}{
		{"polling.roster", p.Roster, config.DefaultPollingRoster, &out.roster},
		{"polling.sensors", p.Sensors, config.DefaultPollingSensors, &out.sensors},
		{"polling.missions", p.Missions, config.DefaultPollingMissions, &out.missions},
		{"polling.run_events", p.RunEvents, config.DefaultPollingRunEvents, &out.runEvents},
		{"polling.services", p.Services, config.DefaultPollingServices, &out.services},
		{"polling.approvals", p.Approvals, config.DefaultPollingApprovals, &out.approvals},
	}
	for _, f := range fields {
		d, err := config.DurationOrDefault(f.value, f.fallback)
		if err != nil {
			return intervals{}, fmt.Errorf("parse %s: %w", f.key, err)
		}
		*f.dst = d
	}
	return out, nil
}

// OnSignal registers fn to see every stream signal after the console has
// applied it.
func (c *Console) OnSignal(fn func(domain.StreamSignal)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.signalFns = append(c.signalFns, fn)
}

// OnConnectionChange registers fn for LIVE/OFFLINE flips.
func (c *Console) OnConnectionChange(fn func(connected bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connFns = append(c.connFns, fn)
}

// HandleSignal routes a stream signal to the state it affects.
func (c *Console) HandleSignal(sig domain.StreamSignal) {
	c.Graph.ApplySignal(sig)

	switch sig.Kind() {
	case domain.SignalGovernanceHalt, domain.SignalApproval:
		concurrency.SafeGo("console.refetch_approvals", func() {
			_ = c.Cache.Refresh(c.ctx, cache.Approvals)
		}, nil)
	case domain.SignalTurn:
		c.mergeTurnSignal(sig)
	}

	c.mu.Lock()
	fns := slices.Clone(c.signalFns)
	c.mu.Unlock()
	for _, fn := range fns {
		fn(sig)
	}
}

func (c *Console) mergeTurnSignal(sig domain.StreamSignal) {
	if len(sig.Payload) == 0 {
		return
	}
	var turn domain.ConversationTurn
	if err := json.Unmarshal(sig.Payload, &turn); err != nil || turn.RunID == "" {
		slog.Debug("Ignoring turn signal without a usable turn", "component", "console", "error", err)
		return
	}
	c.Cache.MergeTurns(turn.RunID, []domain.ConversationTurn{turn})
}

func (c *Console) HandleConnectionChange(connected bool) {
	if connected {
		slog.Info("Stream LIVE", "component", "console")
	} else {
		slog.Warn("Stream OFFLINE", "component", "console", "error", c.Stream.LastError())
	}

	c.mu.Lock()
	fns := slices.Clone(c.connFns)
	c.mu.Unlock()
	for _, fn := range fns {
		fn(connected)
	}
}

// Connect starts the live stream.
func (c *Console) Connect() {
	c.Stream.Connect(c.ctx)
}

func (c *Console) Disconnect() {
	c.Stream.Disconnect()
}

func (c *Console) Connected() bool {
	return c.Stream.IsConnected()
}

func (c *Console) StreamError() error {
	return c.Stream.LastError()
}

// StartPolling begins the fixed-interval fetches for resources without
// push delivery. Fetch failures are logged by the cache and keep state.
func (c *Console) StartPolling(ctx context.Context) {
	c.mu.Lock()
	c.pollStarted = true
	c.mu.Unlock()

	jobs := []struct {
		name     string
		interval time.Duration
		fn       func(context.Context) error
	}{
		{"roster", c.every.roster, c.Cache.FetchRoster},
		{"sensors", c.every.sensors, c.Cache.FetchSensors},
		{"missions", c.every.missions, c.Cache.FetchMissions},
		{"services", c.every.services, c.Cache.FetchReadiness},
		{"approvals", c.every.approvals, c.Cache.FetchApprovals},
	}
	for _, job := range jobs {
		fn := job.fn
		c.Poller.Start(ctx, job.name, job.interval, func(ctx context.Context) error {
			_ = fn(ctx)
			return nil
		})
	}
}

// StopPolling stops the resource polls. Run monitors keep going.
func (c *Console) StopPolling() {
	for _, name := range []string{"roster", "sensors", "missions", "services", "approvals"} {
		c.Poller.Stop(name)
	}
	c.mu.Lock()
	c.pollStarted = false
	c.mu.Unlock()
}

func (c *Console) Polling() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pollStarted
}

// NewConfirmGuard returns a two-click guard using the configured window.
// Close resets every guard it handed out.
func (c *Console) NewConfirmGuard(normal, armed string, action func()) *confirm.Guard {
	g := confirm.NewGuard(c.confirmWindow, normal, armed, action)
	c.mu.Lock()
	c.guards = append(c.guards, g)
	c.mu.Unlock()
	return g
}

// Close stops every loop, timer and in-flight background task.
func (c *Console) Close() {
	c.mu.Lock()
	guards := c.guards
	c.guards = nil
	c.runCancel = nil
	c.pollStarted = false
	c.mu.Unlock()

	for _, g := range guards {
		g.Reset()
	}
	c.Poller.StopAll()
	c.Stream.Disconnect()
	c.cancel()
}
