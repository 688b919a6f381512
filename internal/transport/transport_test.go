package transport_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/harunnryd/cortex/internal/domain"
	"github.com/harunnryd/cortex/internal/transport"
	"github.com/harunnryd/cortex/internal/transport/transporttest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	mu      sync.Mutex
	signals []domain.StreamSignal
	changes []bool
}

func (h *recordingHandler) HandleSignal(sig domain.StreamSignal) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.signals = append(h.signals, sig)
}

func (h *recordingHandler) HandleConnectionChange(connected bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.changes = append(h.changes, connected)
}

func (h *recordingHandler) signalCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.signals)
}

func fastOptions(buffer int) transport.StreamOptions {
	return transport.StreamOptions{
		InitialBackoff: 5 * time.Millisecond,
		MaxBackoff:     20 * time.Millisecond,
		BufferSize:     buffer,
	}
}

func TestRingKeepsMostRecentFirst(t *testing.T) {
	r := transport.NewRing[int](3)
	for i := 1; i <= 5; i++ {
		r.Push(i)
	}

	assert.Equal(t, []int{5, 4, 3}, r.Recent())
	assert.Equal(t, 3, r.Len())

	r.Clear()
	assert.Empty(t, r.Recent())
}

func TestStreamCountsAndBuffersParsedSignals(t *testing.T) {
	dialer := transporttest.NewDialer()
	handler := &recordingHandler{}
	s := transport.NewStream(dialer, handler, fastOptions(2))

	conn := dialer.Accept()
	s.Connect(context.Background())
	t.Cleanup(s.Disconnect)

	require.Eventually(t, s.IsConnected, time.Second, 5*time.Millisecond)

	conn.Send(domain.StreamSignal{Type: "thought", Source: "a"})
	conn.SendRaw([]byte("not json"))
	conn.Send(domain.StreamSignal{Type: "output", Source: "b"})
	conn.Send(domain.StreamSignal{Type: "error", Source: "c"})

	require.Eventually(t, func() bool { return s.TotalEvents() == 3 }, time.Second, 5*time.Millisecond)

	recent := s.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, "c", recent[0].Source)
	assert.Equal(t, "b", recent[1].Source)
	assert.Equal(t, 3, handler.signalCount())
}

func TestStreamReconnectsAfterDrop(t *testing.T) {
	dialer := transporttest.NewDialer()
	handler := &recordingHandler{}
	s := transport.NewStream(dialer, handler, fastOptions(50))

	first := dialer.Accept()
	s.Connect(context.Background())
	t.Cleanup(s.Disconnect)
	require.Eventually(t, s.IsConnected, time.Second, 5*time.Millisecond)

	dialer.FailNext(errors.New("still down"))
	first.Drop(errors.New("network reset"))
	require.Eventually(t, func() bool { return !s.IsConnected() }, time.Second, time.Millisecond)
	assert.True(t, s.Running(), "a transient error must not end the loop")

	second := dialer.Accept()
	require.Eventually(t, s.IsConnected, time.Second, 5*time.Millisecond)

	second.Send(domain.StreamSignal{Type: "thought"})
	require.Eventually(t, func() bool { return s.TotalEvents() == 1 }, time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, s.Reconnects(), uint64(2))
	assert.GreaterOrEqual(t, dialer.Dials(), 3)

	handler.mu.Lock()
	assert.Equal(t, []bool{true, false, true}, handler.changes)
	handler.mu.Unlock()
}

func TestStreamDisconnectIsTerminalUntilConnect(t *testing.T) {
	dialer := transporttest.NewDialer()
	s := transport.NewStream(dialer, nil, fastOptions(50))

	conn := dialer.Accept()
	s.Connect(context.Background())
	require.Eventually(t, s.IsConnected, time.Second, 5*time.Millisecond)

	s.Disconnect()
	assert.False(t, s.IsConnected())
	assert.False(t, s.Running())
	assert.True(t, conn.Closed())

	dials := dialer.Dials()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, dials, dialer.Dials(), "no reconnect after explicit disconnect")

	dialer.Accept()
	s.Connect(context.Background())
	require.Eventually(t, s.IsConnected, time.Second, 5*time.Millisecond)
	s.Disconnect()
}

func TestStreamConnectTwiceIsNoop(t *testing.T) {
	dialer := transporttest.NewDialer()
	s := transport.NewStream(dialer, nil, fastOptions(50))

	dialer.Accept()
	s.Connect(context.Background())
	s.Connect(context.Background())
	t.Cleanup(s.Disconnect)

	require.Eventually(t, s.IsConnected, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, dialer.Dials())
}

func TestSSEReaderFrames(t *testing.T) {
	body := ": keepalive\n" +
		"event: signal\n" +
		"data: {\"type\":\"a\"}\n\n" +
		"data: {\"type\":\n" +
		"data: \"b\"}\r\n\r\n" +
		"retry: 1000\n\n" +
		"data: {\"type\":\"c\"}"

	r := transport.NewSSEReader(io.NopCloser(strings.NewReader(body)))

	first, err := r.Next()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"a"}`, string(first))

	second, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "{\"type\":\n\"b\"}", string(second))

	third, err := r.Next()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"c"}`, string(third))

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestSSEDialerAgainstServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: {\"type\":\"scheduler.tick\"}\n\n")
	}))
	t.Cleanup(srv.Close)

	reader, err := transport.NewSSEDialer(srv.URL).Dial(context.Background())
	require.NoError(t, err)
	defer reader.Close()

	data, err := reader.Next()
	require.NoError(t, err)
	assert.Contains(t, string(data), "scheduler.tick")
}

func TestSSEDialerRejectsNonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	_, err := transport.NewSSEDialer(srv.URL).Dial(context.Background())
	assert.Error(t, err)
}

func TestPollerRunsImmediatelyAndOnInterval(t *testing.T) {
	p := transport.NewPoller()
	var calls atomic.Int32

	p.Start(context.Background(), "missions", 10*time.Millisecond, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})
	t.Cleanup(p.StopAll)

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"missions"}, p.Active())
}

func TestPollerStopsOnErrStopPolling(t *testing.T) {
	p := transport.NewPoller()
	var calls atomic.Int32

	p.Start(context.Background(), "run", 5*time.Millisecond, func(ctx context.Context) error {
		if calls.Add(1) == 2 {
			return transport.ErrStopPolling
		}
		return nil
	})

	require.Eventually(t, func() bool { return !p.Running("run") }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(2), calls.Load())
}

func TestPollerErrorsKeepPolling(t *testing.T) {
	p := transport.NewPoller()
	var calls atomic.Int32

	p.Start(context.Background(), "sensors", 5*time.Millisecond, func(ctx context.Context) error {
		calls.Add(1)
		return errors.New("backend down")
	})
	t.Cleanup(p.StopAll)

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	assert.True(t, p.Running("sensors"))
}

func TestPollerCancelAndReplace(t *testing.T) {
	p := transport.NewPoller()
	var first, second atomic.Int32

	p.Start(context.Background(), "roster", 5*time.Millisecond, func(ctx context.Context) error {
		first.Add(1)
		return nil
	})
	cancel := p.Start(context.Background(), "roster", 5*time.Millisecond, func(ctx context.Context) error {
		second.Add(1)
		return nil
	})

	stoppedAt := first.Load()
	require.Eventually(t, func() bool { return second.Load() >= 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, stoppedAt, first.Load(), "replaced job must not keep running")

	cancel()
	assert.False(t, p.Running("roster"))
	after := second.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, second.Load(), "cancelled job leaked a timer")
}

func TestPollerStopAll(t *testing.T) {
	p := transport.NewPoller()
	for _, r := range []string{"a", "b", "c"} {
		p.Start(context.Background(), r, time.Hour, func(ctx context.Context) error { return nil })
	}
	require.Len(t, p.Active(), 3)

	p.StopAll()
	assert.Empty(t, p.Active())
}
