package mission

import (
	"context"
	"log/slog"
	"time"

	"github.com/harunnryd/cortex/internal/domain"
	"github.com/harunnryd/cortex/internal/logger"
	"github.com/harunnryd/cortex/internal/transport"
)

// ClassifyRun derives a run's status from its event timeline. Any
// terminal event anywhere in the list settles it.
func ClassifyRun(events []domain.MissionEvent) domain.RunStatus {
	if len(events) == 0 {
		return domain.RunPending
	}
	status := domain.RunRunning
	for _, e := range events {
		switch e.Type {
		case domain.EventMissionCompleted:
			return domain.RunCompleted
		case domain.EventMissionFailed:
			status = domain.RunFailed
		case domain.EventMissionCancelled:
			if status != domain.RunFailed {
				status = domain.RunCancelled
			}
		}
	}
	return status
}

type RunEventSource interface {
	ListRunEvents(ctx context.Context, runID string) ([]domain.MissionEvent, error)
}

// RunMonitor polls run timelines until they reach a terminal status.
type RunMonitor struct {
	source   RunEventSource
	poller   *transport.Poller
	interval time.Duration
}

func NewRunMonitor(source RunEventSource, poller *transport.Poller, interval time.Duration) *RunMonitor {
	return &RunMonitor{source: source, poller: poller, interval: interval}
}

func resourceKey(runID string) string { return "run:" + runID }

// Watch reports every classification of runID to onStatus and stops
// after the first terminal one. A fetch error skips that tick.
func (m *RunMonitor) Watch(ctx context.Context, runID string, onStatus func(domain.RunStatus)) (cancel func()) {
	ctx = logger.WithRunID(ctx, runID)
	return m.poller.Start(ctx, resourceKey(runID), m.interval, func(ctx context.Context) error {
		events, err := m.source.ListRunEvents(ctx, runID)
		if err != nil {
			return err
		}
		status := ClassifyRun(events)
		if onStatus != nil {
			onStatus(status)
		}
		if status.Terminal() {
			attrs := append([]any{"component", "run_monitor", "status", status}, logger.Attrs(ctx)...)
			slog.Info("Run reached terminal status", attrs...)
			return transport.ErrStopPolling
		}
		return nil
	})
}

func (m *RunMonitor) Watching(runID string) bool {
	return m.poller.Running(resourceKey(runID))
}

func (m *RunMonitor) Stop(runID string) {
	m.poller.Stop(resourceKey(runID))
}
