package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestSetupWriterFiltersBelowLevel(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	SetupWriter(&buf, "warn")

	slog.Info("hidden")
	slog.Warn("shown", "component", "stream")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "stream")
}

func TestAttrs(t *testing.T) {
	ctx := WithRunID(WithMissionID(context.Background(), "m-1"), "r-9")

	assert.Equal(t, []any{"mission_id", "m-1", "run_id", "r-9"}, Attrs(ctx))
	assert.Empty(t, Attrs(context.Background()))
	assert.Equal(t, "m-1", GetMissionID(ctx))
	assert.Equal(t, "", GetTraceID(ctx))
}
