package mission

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/harunnryd/cortex/internal/domain"
	cortexErrors "github.com/harunnryd/cortex/internal/errors"
	"github.com/harunnryd/cortex/internal/transport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMachineHappyPath(t *testing.T) {
	m := NewMachine()
	assert.Equal(t, StateIdle, m.State())

	require.NoError(t, m.LoadDraft())
	require.NoError(t, m.Commit("m-1"))
	assert.Equal(t, StateActive, m.State())
	assert.Equal(t, "m-1", m.MissionID())

	require.NoError(t, m.Observe(domain.RunRunning))
	assert.Equal(t, StateActive, m.State())

	require.NoError(t, m.BeginTerminate())
	require.NoError(t, m.TerminateFailed())
	require.NoError(t, m.BeginTerminate())
	require.NoError(t, m.Observe(domain.RunCancelled))
	assert.Equal(t, StateTerminated, m.State())

	require.NoError(t, m.Reset())
	assert.Equal(t, StateIdle, m.State())
	assert.Empty(t, m.MissionID())

	var path []State
	for _, tr := range m.Transitions() {
		path = append(path, tr.To)
	}
	assert.Equal(t, []State{StateDrafting, StateActive, StateTerminating, StateActive, StateTerminating, StateTerminated, StateIdle}, path)
}

func TestMachineRejectsIllegalEvents(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*Machine)
		event func(*Machine) error
		state State
	}{
		{name: "commit from idle", setup: func(*Machine) {}, event: func(m *Machine) error { return m.Commit("m") }, state: StateIdle},
		{name: "terminate a draft", setup: func(m *Machine) { _ = m.LoadDraft() }, event: (*Machine).BeginTerminate, state: StateDrafting},
		{name: "observe while drafting", setup: func(m *Machine) { _ = m.LoadDraft() },
			event: func(m *Machine) error { return m.Observe(domain.RunCompleted) }, state: StateDrafting},
		{name: "discard active", setup: func(m *Machine) { _ = m.LoadDraft(); _ = m.Commit("m") }, event: (*Machine).Discard, state: StateActive},
		{name: "load over active", setup: func(m *Machine) { _ = m.LoadDraft(); _ = m.Commit("m") }, event: (*Machine).LoadDraft, state: StateActive},
		{name: "recommit active", setup: func(m *Machine) { _ = m.LoadDraft(); _ = m.Commit("m") },
			event: func(m *Machine) error { return m.Commit("other") }, state: StateActive},
		{name: "reset active", setup: func(m *Machine) { _ = m.LoadDraft(); _ = m.Commit("m") }, event: (*Machine).Reset, state: StateActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMachine()
			tt.setup(m)
			err := tt.event(m)
			assert.ErrorIs(t, err, cortexErrors.ErrIllegalTransition)
			assert.Equal(t, tt.state, m.State())
		})
	}

	m := NewMachine()
	require.NoError(t, m.LoadDraft())
	require.NoError(t, m.Commit("m-1"))
	_ = m.Commit("m-2")
	assert.Equal(t, "m-1", m.MissionID(), "mission id is immutable once assigned")

	assert.ErrorIs(t, NewMachine().Commit(""), cortexErrors.ErrInvalidInput)
}

func TestMachineFailedRunAllowsNewDraft(t *testing.T) {
	m := NewMachine()
	require.NoError(t, m.LoadDraft())
	require.NoError(t, m.Commit("m-1"))
	require.NoError(t, m.Observe(domain.RunFailed))
	assert.Equal(t, StateFailed, m.State())

	require.NoError(t, m.LoadDraft())
	assert.Equal(t, StateDrafting, m.State())
	assert.Empty(t, m.MissionID())
}

func TestActiveMissionGatesAgentEdits(t *testing.T) {
	old := domain.AgentManifest{ID: "scout", Role: domain.RoleSensory, SystemPrompt: "watch", Tools: []string{"camera"}}

	renamed := old
	renamed.ID = "scout-2"
	assert.ErrorIs(t, CheckAgentEdit(StateActive, old, renamed), cortexErrors.ErrImmutableField)

	edited := old
	edited.SystemPrompt = "watch closely"
	edited.Tools = []string{"camera", "radar"}
	assert.NoError(t, CheckAgentEdit(StateActive, old, edited))

	assert.NoError(t, CheckAgentEdit(StateDrafting, old, renamed))
	assert.ErrorIs(t, CheckAgentEdit(StateTerminating, old, edited), cortexErrors.ErrIllegalTransition)

	assert.NotContains(t, EditableFields(StateActive), "id")
	assert.Contains(t, EditableFields(StateActive), "system_prompt")
	assert.Contains(t, EditableFields(StateDrafting), "id")
	assert.Empty(t, EditableFields(StateIdle))

	assert.NoError(t, CheckAgentDelete(StateActive))
	assert.Error(t, CheckAgentDelete(StateTerminated))
}

func events(types ...domain.EventType) []domain.MissionEvent {
	out := make([]domain.MissionEvent, len(types))
	for i, typ := range types {
		out[i] = domain.MissionEvent{ID: string(typ), Type: typ}
	}
	return out
}

func TestClassifyRun(t *testing.T) {
	assert.Equal(t, domain.RunPending, ClassifyRun(nil))
	assert.Equal(t, domain.RunRunning, ClassifyRun(events(domain.EventMissionStarted)))
	assert.Equal(t, domain.RunCompleted, ClassifyRun(events(domain.EventMissionStarted, domain.EventMissionCompleted)))
	assert.Equal(t, domain.RunCompleted, ClassifyRun(events(domain.EventMissionCompleted, domain.EventMissionStarted)))
	assert.Equal(t, domain.RunFailed, ClassifyRun(events(domain.EventMissionStarted, domain.EventMissionFailed)))
	assert.Equal(t, domain.RunCancelled, ClassifyRun(events(domain.EventMissionCancelled)))
	assert.Equal(t, domain.RunRunning, ClassifyRun(events("agent.output", "tool.called")))
}

type scriptedRuns struct {
	mu     sync.Mutex
	calls  atomic.Int32
	events []domain.MissionEvent
	err    error
}

func (s *scriptedRuns) ListRunEvents(ctx context.Context, runID string) ([]domain.MissionEvent, error) {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events, s.err
}

func (s *scriptedRuns) set(ev []domain.MissionEvent, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events, s.err = ev, err
}

func TestRunMonitorStopsAfterTerminalStatus(t *testing.T) {
	source := &scriptedRuns{events: events(domain.EventMissionStarted, domain.EventMissionCompleted)}
	monitor := NewRunMonitor(source, transport.NewPoller(), 10*time.Millisecond)

	var mu sync.Mutex
	var seen []domain.RunStatus
	monitor.Watch(context.Background(), "run-1", func(s domain.RunStatus) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})

	require.Eventually(t, func() bool { return !monitor.Watching("run-1") }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), source.calls.Load())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []domain.RunStatus{domain.RunCompleted}, seen)
}

func TestRunMonitorKeepsPollingWhileRunning(t *testing.T) {
	source := &scriptedRuns{events: events(domain.EventMissionStarted)}
	monitor := NewRunMonitor(source, transport.NewPoller(), 10*time.Millisecond)

	var last atomic.Value
	cancel := monitor.Watch(context.Background(), "run-1", func(s domain.RunStatus) { last.Store(s) })
	defer cancel()

	require.Eventually(t, func() bool { return source.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	assert.True(t, monitor.Watching("run-1"))
	assert.Equal(t, domain.RunRunning, last.Load())

	source.set(nil, errors.New("connection reset"))
	calls := source.calls.Load()
	require.Eventually(t, func() bool { return source.calls.Load() > calls+1 }, time.Second, 5*time.Millisecond)
	assert.True(t, monitor.Watching("run-1"), "fetch errors do not end the watch")

	source.set(events(domain.EventMissionStarted, domain.EventMissionFailed), nil)
	require.Eventually(t, func() bool { return !monitor.Watching("run-1") }, time.Second, 5*time.Millisecond)
	assert.Equal(t, domain.RunFailed, last.Load())
}

func TestRunMonitorStop(t *testing.T) {
	source := &scriptedRuns{events: events(domain.EventMissionStarted)}
	monitor := NewRunMonitor(source, transport.NewPoller(), 10*time.Millisecond)
	monitor.Watch(context.Background(), "run-1", nil)
	require.Eventually(t, func() bool { return source.calls.Load() >= 1 }, time.Second, 5*time.Millisecond)

	monitor.Stop("run-1")
	assert.False(t, monitor.Watching("run-1"))
	calls := source.calls.Load()
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, calls, source.calls.Load())
}
