package components

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/harunnryd/cortex/internal/daemon"
)

// Feed is the live signal stream as the daemon sees it.
type Feed interface {
	Connect()
	Disconnect()
	Connected() bool
	StreamError() error
}

type StreamComponent struct {
	feed        Feed
	initialized bool
	started     bool
	mu          sync.RWMutex
}

func NewStreamComponent(feed Feed) *StreamComponent {
	return &StreamComponent{feed: feed}
}

func (s *StreamComponent) Name() string {
	return "Stream"
}

func (s *StreamComponent) Dependencies() []string {
	return nil
}

func (s *StreamComponent) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.feed == nil {
		return fmt.Errorf("stream feed is nil")
	}
	s.initialized = true
	slog.Info("Stream initialized", "component", s.Name())
	return nil
}

func (s *StreamComponent) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return fmt.Errorf("Stream not initialized")
	}
	s.feed.Connect()
	s.started = true
	slog.Info("Stream started", "component", s.Name())
	return nil
}

func (s *StreamComponent) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.feed.Disconnect()
	s.started = false
	slog.Info("Stream stopped", "component", s.Name())
	return nil
}

// Health reports a reconnecting stream as unhealthy; the stream keeps
// retrying on its own.
func (s *StreamComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	health := &daemon.ComponentHealth{Name: s.Name()}
	switch {
	case !s.started:
		health.Error = fmt.Errorf("not started")
	case !s.feed.Connected():
		health.Error = fmt.Errorf("offline: %v", s.feed.StreamError())
	default:
		health.Healthy = true
	}
	return health, nil
}
