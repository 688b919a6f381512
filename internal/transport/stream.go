package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/harunnryd/cortex/internal/config"
	"github.com/harunnryd/cortex/internal/domain"

	"github.com/cenkalti/backoff/v4"
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

// EventReader yields raw event payloads until it fails or is closed.
type EventReader interface {
	Next() ([]byte, error)
	Close() error
}

// Dialer opens one live event connection.
type Dialer interface {
	Dial(ctx context.Context) (EventReader, error)
}

// Handler receives parsed signals and connectivity changes. Calls come
// from the stream's goroutine and must not block for long.
type Handler interface {
	HandleSignal(sig domain.StreamSignal)
	HandleConnectionChange(connected bool)
}

type StreamOptions struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BufferSize     int
}

func StreamOptionsFromConfig(cfg config.StreamConfig) (StreamOptions, error) {
	initial, err := config.DurationOrDefault(cfg.InitialBackoff, config.DefaultStreamInitialBackoff)
	if err != nil {
		return StreamOptions{}, fmt.Errorf("parse stream initial backoff: %w", err)
	}
	maxBackoff, err := config.DurationOrDefault(cfg.MaxBackoff, config.DefaultStreamMaxBackoff)
	if err != nil {
		return StreamOptions{}, fmt.Errorf("parse stream max backoff: %w", err)
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = config.DefaultStreamBufferSize
	}
	return StreamOptions{InitialBackoff: initial, MaxBackoff: maxBackoff, BufferSize: size}, nil
}

// Stream keeps one live connection open, reconnecting with capped
// exponential backoff until Disconnect is called.
type Stream struct {
	dialer  Dialer
	handler Handler
	opts    StreamOptions

	mu      sync.RWMutex
	state   State
	lastErr error
	cancel  context.CancelFunc
	done    chan struct{}

	ring       *Ring[domain.StreamSignal]
	total      atomic.Uint64
	reconnects atomic.Uint64
}

func NewStream(dialer Dialer, handler Handler, opts StreamOptions) *Stream {
	if opts.BufferSize <= 0 {
		opts.BufferSize = config.DefaultStreamBufferSize
	}
	return &Stream{
		dialer:  dialer,
		handler: handler,
		opts:    opts,
		state:   StateDisconnected,
		ring:    NewRing[domain.StreamSignal](opts.BufferSize),
	}
}

// Connect starts the connection loop. It is a no-op while a loop is running.
func (s *Stream) Connect(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go s.run(loopCtx, done)
}

// Disconnect stops the loop and waits for it to exit. Connect may be
// called again afterwards.
func (s *Stream) Disconnect() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Stream) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Stream) IsConnected() bool {
	return s.State() == StateConnected
}

// Running reports whether a connection loop is active, connected or not.
func (s *Stream) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cancel != nil
}

func (s *Stream) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// TotalEvents counts every successfully parsed message since creation.
func (s *Stream) TotalEvents() uint64 {
	return s.total.Load()
}

func (s *Stream) Reconnects() uint64 {
	return s.reconnects.Load()
}

// Recent returns the buffered signals, most recent first.
func (s *Stream) Recent() []domain.StreamSignal {
	return s.ring.Recent()
}

func (s *Stream) newBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.opts.InitialBackoff
	b.MaxInterval = s.opts.MaxBackoff
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

func (s *Stream) run(ctx context.Context, done chan struct{}) {
	defer func() {
		s.mu.Lock()
		if s.done == done {
			s.cancel = nil
			s.done = nil
		}
		s.mu.Unlock()
		s.setState(StateDisconnected, nil)
		close(done)
	}()

	bo := s.newBackoff()
	first := true

	for {
		if !first {
			s.reconnects.Add(1)
		}
		first = false

		s.setState(StateConnecting, nil)
		reader, err := s.dialer.Dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.setState(StateDisconnected, err)
			if !s.wait(ctx, bo.NextBackOff(), err) {
				return
			}
			continue
		}

		s.setState(StateConnected, nil)
		bo.Reset()

		err = s.consume(ctx, reader)
		reader.Close()
		if ctx.Err() != nil {
			return
		}

		s.setState(StateDisconnected, err)
		if !s.wait(ctx, bo.NextBackOff(), err) {
			return
		}
	}
}

func (s *Stream) consume(ctx context.Context, reader EventReader) error {
	// Unblock Next when the loop is cancelled mid-read.
	stop := context.AfterFunc(ctx, func() { reader.Close() })
	defer stop()

	for {
		data, err := reader.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("stream closed by server")
			}
			return err
		}

		var sig domain.StreamSignal
		if err := json.Unmarshal(data, &sig); err != nil || sig.Type == "" {
			slog.Debug("Dropping malformed stream message", "component", "stream", "error", err)
			continue
		}

		s.total.Add(1)
		s.ring.Push(sig)
		if s.handler != nil {
			s.handler.HandleSignal(sig)
		}
	}
}

func (s *Stream) wait(ctx context.Context, delay time.Duration, cause error) bool {
	if delay == backoff.Stop || delay < 0 {
		delay = s.opts.MaxBackoff
	}
	slog.Warn("Stream disconnected, reconnecting", "component", "stream", "delay", delay, "error", cause)

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (s *Stream) setState(state State, err error) {
	s.mu.Lock()
	prev := s.state
	s.state = state
	if err != nil {
		s.lastErr = err
	}
	if state == StateConnected {
		s.lastErr = nil
	}
	s.mu.Unlock()

	wasConnected := prev == StateConnected
	isConnected := state == StateConnected
	if wasConnected != isConnected && s.handler != nil {
		s.handler.HandleConnectionChange(isConnected)
	}
	if prev != state {
		slog.Debug("Stream state changed", "component", "stream", "from", prev, "to", state)
	}
}
