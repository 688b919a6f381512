package components

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/harunnryd/cortex/internal/daemon"
)

// PollSet is the group of fixed-interval resource fetches.
type PollSet interface {
	StartPolling(ctx context.Context)
	StopPolling()
	Polling() bool
}

type PollingComponent struct {
	polls   PollSet
	started bool
	mu      sync.Mutex
}

func NewPollingComponent(polls PollSet) *PollingComponent {
	return &PollingComponent{polls: polls}
}

func (p *PollingComponent) Name() string {
	return "Polling"
}

func (p *PollingComponent) Dependencies() []string {
	return []string{"Stream"}
}

func (p *PollingComponent) Init(ctx context.Context) error {
	if p.polls == nil {
		return fmt.Errorf("poll set is nil")
	}
	return nil
}

func (p *PollingComponent) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.polls.StartPolling(ctx)
	p.started = true
	slog.Info("Polling started", "component", p.Name())
	return nil
}

func (p *PollingComponent) Stop(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return nil
	}
	p.polls.StopPolling()
	p.started = false
	slog.Info("Polling stopped", "component", p.Name())
	return nil
}

func (p *PollingComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	if !p.polls.Polling() {
		return &daemon.ComponentHealth{Name: p.Name(), Error: fmt.Errorf("not polling")}, nil
	}
	return &daemon.ComponentHealth{Name: p.Name(), Healthy: true}, nil
}
