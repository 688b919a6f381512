package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/harunnryd/cortex/internal/api"
	"github.com/harunnryd/cortex/internal/config"
	"github.com/harunnryd/cortex/internal/console"
	"github.com/harunnryd/cortex/internal/domain"
	"github.com/harunnryd/cortex/internal/transport/transporttest"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type councilServer struct {
	mu        sync.Mutex
	confirmed []string
	chats     []string
}

func (s *councilServer) router() chi.Router {
	r := chi.NewRouter()
	r.Post("/api/v1/council/{member}/chat", func(w http.ResponseWriter, req *http.Request) {
		member := chi.URLParam(req, "member")
		s.mu.Lock()
		s.chats = append(s.chats, member)
		s.mu.Unlock()

		if member == "scout" {
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "upstream timeout talking to scout"})
			return
		}
		env := map[string]any{
			"meta":    map[string]string{"source_node": member},
			"payload": map[string]any{"text": "ready when you are"},
		}
		if member == "architect" {
			env["payload"] = map[string]any{
				"text":     "I can stand up a watch team",
				"proposal": map[string]any{"confirm_token": "tok-9", "risk_level": "medium", "intent": "watch the swarm"},
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "data": env})
	})
	r.Post("/api/v1/intent/confirm-action", func(w http.ResponseWriter, req *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(req.Body).Decode(&body)
		s.mu.Lock()
		s.confirmed = append(s.confirmed, body["confirm_token"])
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "data": map[string]any{}})
	})
	r.Post("/api/v1/swarm/broadcast", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, domain.BroadcastResult{
			TeamsHit: 2,
			Replies:  []domain.BroadcastReply{{TeamID: "ops", Content: "ok"}, {TeamID: "intel", Error: "busy"}},
		})
	})
	return r
}

func newTestREPL(t *testing.T) (*chatREPL, *councilServer, *bytes.Buffer) {
	t.Helper()
	backend := &councilServer{}
	srv := httptest.NewServer(backend.router())
	t.Cleanup(srv.Close)

	c, err := console.New(config.Default(), api.New(srv.URL, 0), transporttest.NewDialer())
	require.NoError(t, err)
	t.Cleanup(c.Close)

	out := &bytes.Buffer{}
	return newChatREPL(c, &bytes.Buffer{}, out), backend, out
}

func TestChatREPLSendsPlainText(t *testing.T) {
	repl, backend, out := newTestREPL(t)

	assert.False(t, repl.Handle(context.Background(), "status report please"))
	assert.Contains(t, out.String(), "[admin] ready when you are")
	assert.Equal(t, []string{"admin"}, backend.chats)
}

func TestChatREPLFailureThenSwitch(t *testing.T) {
	repl, backend, out := newTestREPL(t)
	ctx := context.Background()

	repl.Handle(ctx, "/target scout")
	repl.Handle(ctx, "where is the swarm")
	assert.Contains(t, out.String(), "Council call to scout failed (timeout)")
	assert.Contains(t, out.String(), "/switch to ask admin")

	out.Reset()
	repl.Handle(ctx, "/switch")
	assert.Contains(t, out.String(), "[admin] ready when you are")
	assert.Equal(t, []string{"scout", "admin"}, backend.chats)
	assert.Nil(t, repl.console.Council.Failure())
}

func TestChatREPLContinueDropsFailure(t *testing.T) {
	repl, backend, out := newTestREPL(t)
	ctx := context.Background()

	repl.Handle(ctx, `/target "scout"`)
	repl.Handle(ctx, "hello")
	repl.Handle(ctx, "/continue")

	assert.Contains(t, out.String(), "Continuing with admin")
	assert.Nil(t, repl.console.Council.Failure())
	assert.Equal(t, []string{"scout"}, backend.chats)
}

func TestChatREPLConfirmsLatestProposal(t *testing.T) {
	repl, backend, out := newTestREPL(t)
	ctx := context.Background()

	repl.Handle(ctx, "/target architect")
	repl.Handle(ctx, "stand up a watch")
	assert.Contains(t, out.String(), "(risk medium): watch the swarm")
	assert.Empty(t, backend.confirmed)

	repl.Handle(ctx, "/confirm")
	assert.Contains(t, out.String(), "Confirmed proposal")
	assert.Equal(t, []string{"tok-9"}, backend.confirmed)

	out.Reset()
	repl.Handle(ctx, "/cancel")
	assert.Contains(t, out.String(), "No pending proposal")
}

func TestChatREPLBroadcastAndMisc(t *testing.T) {
	repl, _, out := newTestREPL(t)
	ctx := context.Background()

	repl.Handle(ctx, `/broadcast "all teams report"`)
	assert.Contains(t, out.String(), "Broadcast reached 2 teams")
	assert.Contains(t, out.String(), "intel: error: busy")

	repl.Handle(ctx, "/frobnicate")
	assert.Contains(t, out.String(), "Unknown command: /frobnicate")

	repl.Handle(ctx, "/help")
	assert.Contains(t, out.String(), "/switch")

	assert.True(t, repl.Handle(ctx, "/exit"))
}

func TestChatREPLRunStopsAtEOF(t *testing.T) {
	repl, backend, out := newTestREPL(t)
	repl.reader.Reset(bytes.NewBufferString("hi there\n/exit\n"))

	require.NoError(t, repl.Run(context.Background()))
	assert.Contains(t, out.String(), "ready when you are")
	assert.Equal(t, []string{"admin"}, backend.chats)
}

func TestBlueprintGraphCommand(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "bp.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
intent: watch the swarm
teams:
  - id: scouts
    name: Scouts
    agents:
      - id: watcher
        role: sensory
        outputs: [swarm.raw]
      - id: thinker
        role: cognitive
        inputs: [swarm.raw]
`), 0o644))

	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetArgs([]string{"blueprint", "graph", "-f", path})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "agent-scouts-watcher")
	assert.Contains(t, out.String(), "swarm.raw")
}

func TestPrintSignal(t *testing.T) {
	out := &bytes.Buffer{}
	printSignal(out, domain.StreamSignal{Type: "thought", Source: "thinker", Message: "pondering", Timestamp: "2026-01-01T00:00:00Z"})
	assert.Equal(t, "2026-01-01T00:00:00Z THOUGHT thought [thinker] pondering\n", out.String())
}
