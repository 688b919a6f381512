package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/harunnryd/cortex/internal/domain"
	cortexErrors "github.com/harunnryd/cortex/internal/errors"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, r chi.Router) *Client {
	t.Helper()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return New(srv.URL, 2*time.Second)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestDecodeListShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		keys []string
		want int
	}{
		{name: "bare array", body: `[{"id":"a"},{"id":"b"}]`, want: 2},
		{name: "data envelope", body: `{"data":[{"id":"a"}]}`, want: 1},
		{name: "ok envelope", body: `{"ok":true,"data":[{"id":"a"}]}`, want: 1},
		{name: "named key", body: `{"sensors":[{"id":"a"},{"id":"b"},{"id":"c"}]}`, keys: []string{"sensors"}, want: 3},
		{name: "nested under data", body: `{"ok":true,"data":{"sensors":[{"id":"a"}]}}`, keys: []string{"sensors"}, want: 1},
		{name: "null data", body: `{"data":null}`, want: 0},
		{name: "unrelated object", body: `{"status":"fine"}`, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeList[domain.SensorNode]([]byte(tt.body), tt.keys...)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
			assert.NotNil(t, got)
		})
	}

	_, err := DecodeList[domain.SensorNode]([]byte(`<html>`))
	assert.ErrorIs(t, err, cortexErrors.ErrMalformedResponse)
}

func TestDecodeObjectEnvelope(t *testing.T) {
	res, err := DecodeObject[domain.CommitResult]([]byte(`{"mission_id":"m-1","teams":2,"agents":5}`))
	require.NoError(t, err)
	assert.Equal(t, "m-1", res.MissionID)

	res, err = DecodeObject[domain.CommitResult]([]byte(`{"ok":true,"data":{"mission_id":"m-2"}}`))
	require.NoError(t, err)
	assert.Equal(t, "m-2", res.MissionID)

	_, err = DecodeObject[domain.CommitResult]([]byte(`{"ok":false,"error":"nope"}`))
	assert.ErrorContains(t, err, "nope")
}

func TestListMissionsAcceptsBothShapes(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/v1/missions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []domain.Mission{{ID: "m-1", Status: domain.MissionActive}})
	})
	r.Get("/api/v1/runs/{id}/events", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "run 1", chi.URLParam(r, "id"))
		writeJSON(w, http.StatusOK, map[string]any{"data": []domain.MissionEvent{{ID: "e1", Type: domain.EventMissionStarted}}})
	})
	c := newTestClient(t, r)

	missions, err := c.ListMissions(context.Background())
	require.NoError(t, err)
	require.Len(t, missions, 1)
	assert.Equal(t, "m-1", missions[0].ID)

	events, err := c.ListRunEvents(context.Background(), "run 1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventMissionStarted, events[0].Type)
}

func TestErrorStatusMapping(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/v1/teams/detail", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "upstream down"})
	})
	r.Delete("/api/v1/missions/{id}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	c := newTestClient(t, r)

	_, err := c.ListTeams(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, cortexErrors.ErrTransient)
	assert.ErrorContains(t, err, "upstream down")

	err = c.CancelMission(context.Background(), "m-404")
	assert.ErrorIs(t, err, cortexErrors.ErrNotFound)
}

func TestResolveApprovalSendsAction(t *testing.T) {
	var got map[string]string
	r := chi.NewRouter()
	r.Post("/api/v1/governance/resolve/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ap-1", chi.URLParam(r, "id"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	})
	c := newTestClient(t, r)

	require.NoError(t, c.ResolveApproval(context.Background(), "ap-1", false))
	assert.Equal(t, "REJECT", got["action"])
}

func TestCouncilChatFailureTexts(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/v1/council/{member}/chat", func(w http.ResponseWriter, r *http.Request) {
		switch chi.URLParam(r, "member") {
		case "ok":
			var req struct {
				Messages []domain.WireMessage `json:"messages"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			env := domain.ChatEnvelope{TrustScore: 0.9}
			env.Meta.SourceNode = "council-ok"
			env.Payload.Text = "echo " + req.Messages[len(req.Messages)-1].Content
			writeJSON(w, http.StatusOK, Response[domain.ChatEnvelope]{OK: true, Data: env})
		case "explained":
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "brain timeout"})
		case "silent":
			writeJSON(w, http.StatusInternalServerError, map[string]string{})
		case "html":
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("<html>bad gateway</html>"))
		case "refused":
			writeJSON(w, http.StatusOK, Response[*domain.ChatEnvelope]{OK: false, Error: "member refused"})
		}
	})
	c := newTestClient(t, r)
	msgs := []domain.WireMessage{{Role: "user", Content: "hi"}}

	env, err := c.CouncilChat(context.Background(), "ok", msgs)
	require.NoError(t, err)
	assert.Equal(t, "echo hi", env.Payload.Text)
	assert.Equal(t, "council-ok", env.Meta.SourceNode)

	cases := map[string]string{
		"explained": "brain timeout",
		"silent":    "Council agent error (500)",
		"html":      "Council agent unreachable (502)",
		"refused":   "member refused",
	}
	for member, want := range cases {
		_, err := c.CouncilChat(context.Background(), member, msgs)
		require.Error(t, err, member)
		assert.Equal(t, want, err.Error(), member)
	}
}

func TestTransportErrorIsTransient(t *testing.T) {
	c := New("http://127.0.0.1:1", 500*time.Millisecond)

	_, err := c.ListServices(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, cortexErrors.NewDefaultErrorMapper().MapError(err), cortexErrors.ErrTransient)
}
