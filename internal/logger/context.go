package logger

import "context"

type contextKey string

const TraceIDKey contextKey = "trace_id"
const MissionIDKey contextKey = "mission_id"
const RunIDKey contextKey = "run_id"

func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, TraceIDKey, id)
}

func GetTraceID(ctx context.Context) string {
	if id, ok := ctx.Value(TraceIDKey).(string); ok {
		return id
	}
	return ""
}

func WithMissionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, MissionIDKey, id)
}

func GetMissionID(ctx context.Context) string {
	if id, ok := ctx.Value(MissionIDKey).(string); ok {
		return id
	}
	return ""
}

func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RunIDKey, id)
}

func GetRunID(ctx context.Context) string {
	if id, ok := ctx.Value(RunIDKey).(string); ok {
		return id
	}
	return ""
}

// Attrs returns the correlation ids present on ctx as slog key/value pairs.
func Attrs(ctx context.Context) []any {
	var attrs []any
	if id := GetTraceID(ctx); id != "" {
		attrs = append(attrs, string(TraceIDKey), id)
	}
	if id := GetMissionID(ctx); id != "" {
		attrs = append(attrs, string(MissionIDKey), id)
	}
	if id := GetRunID(ctx); id != "" {
		attrs = append(attrs, string(RunIDKey), id)
	}
	return attrs
}
