package daemon

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/harunnryd/cortex/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects lifecycle calls across components in order.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type mockComponent struct {
	name         string
	dependencies []string
	rec          *recorder
	initError    error
	startError   error
	stopError    error
	healthError  error
	healthResult *ComponentHealth
}

func newMockComponent(name string, rec *recorder, dependencies ...string) *mockComponent {
	return &mockComponent{
		name:         name,
		dependencies: dependencies,
		rec:          rec,
		healthResult: &ComponentHealth{
			Name:    name,
			Healthy: true,
		},
	}
}

func (m *mockComponent) Name() string           { return m.name }
func (m *mockComponent) Dependencies() []string { return m.dependencies }

func (m *mockComponent) Init(ctx context.Context) error {
	m.rec.add("init:" + m.name)
	return m.initError
}

func (m *mockComponent) Start(ctx context.Context) error {
	m.rec.add("start:" + m.name)
	return m.startError
}

func (m *mockComponent) Stop(ctx context.Context) error {
	m.rec.add("stop:" + m.name)
	return m.stopError
}

func (m *mockComponent) Health(ctx context.Context) (*ComponentHealth, error) {
	return m.healthResult, m.healthError
}

func newTestDaemon(t *testing.T) *Daemon {
	t.Helper()
	cfg := config.Default()
	cfg.Daemon.ShutdownTimeout = "1s"
	cfg.Daemon.HealthCheckInterval = "10ms"
	d, err := NewDaemon(cfg)
	require.NoError(t, err)
	return d
}

func TestNewDaemon(t *testing.T) {
	_, err := NewDaemon(nil)
	assert.Error(t, err)

	d, err := NewDaemon(config.Default())
	require.NoError(t, err)
	assert.Empty(t, d.components)
	assert.Equal(t, StatusStarting, d.Health())
}

func TestInitializeComponentsFollowsDependencies(t *testing.T) {
	rec := &recorder{}
	d := newTestDaemon(t)

	// Registered before its dependency on purpose.
	d.AddComponent(newMockComponent("Status", rec, "Stream", "Polling"))
	d.AddComponent(newMockComponent("Polling", rec, "Stream"))
	d.AddComponent(newMockComponent("Stream", rec))

	require.NoError(t, d.initializeComponents(context.Background()))
	require.NoError(t, d.startComponents(context.Background()))

	assert.Equal(t, []string{
		"init:Stream", "init:Polling", "init:Status",
		"start:Stream", "start:Polling", "start:Status",
	}, rec.snapshot())
}

func TestInitializeComponentsCircularDependency(t *testing.T) {
	rec := &recorder{}
	d := newTestDaemon(t)
	d.AddComponent(newMockComponent("Comp1", rec, "Comp2"))
	d.AddComponent(newMockComponent("Comp2", rec, "Comp1"))

	err := d.initializeComponents(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circular dependency")
	assert.Empty(t, rec.snapshot())
}

func TestInitializeComponentsMissingDependency(t *testing.T) {
	d := newTestDaemon(t)
	d.AddComponent(newMockComponent("Comp", &recorder{}, "NonExistent"))

	err := d.initializeComponents(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NonExistent")
}

func TestShutdownComponentsReverseOrder(t *testing.T) {
	rec := &recorder{}
	d := newTestDaemon(t)
	d.AddComponent(newMockComponent("Polling", rec, "Stream"))
	d.AddComponent(newMockComponent("Stream", rec))

	require.NoError(t, d.initializeComponents(context.Background()))
	rec.calls = nil

	failing := d.getComponentByName("Polling").(*mockComponent)
	failing.stopError = fmt.Errorf("already stopped")

	require.NoError(t, d.shutdownComponents(context.Background()))
	assert.Equal(t, []string{"stop:Polling", "stop:Stream"}, rec.snapshot())
	assert.Equal(t, StatusStopped, d.Health())
}

func TestComponentHealth(t *testing.T) {
	d := newTestDaemon(t)

	healthy := newMockComponent("Comp1", &recorder{})
	sick := newMockComponent("Comp2", &recorder{})
	sick.healthResult.Healthy = false
	sick.healthResult.Error = fmt.Errorf("mock error")
	erroring := newMockComponent("Comp3", &recorder{})
	erroring.healthResult = nil
	erroring.healthError = fmt.Errorf("probe failed")

	d.AddComponent(healthy)
	d.AddComponent(sick)
	d.AddComponent(erroring)

	healths := d.ComponentHealth()
	require.Len(t, healths, 3)
	assert.True(t, healths["Comp1"].Healthy)
	assert.False(t, healths["Comp2"].Healthy)
	assert.Error(t, healths["Comp2"].Error)
	assert.False(t, healths["Comp3"].Healthy)
	assert.Equal(t, "Comp3", healths["Comp3"].Name)

	assert.Equal(t, 2, d.checkComponentHealth(context.Background()))
}

func TestRollback(t *testing.T) {
	rec := &recorder{}
	d := newTestDaemon(t)
	d.AddComponent(newMockComponent("Comp1", rec))
	d.AddComponent(newMockComponent("Comp2", rec))

	d.rollback(context.Background())

	assert.Equal(t, []string{"stop:Comp2", "stop:Comp1"}, rec.snapshot())
	assert.Equal(t, StatusStopped, d.Health())
}

func TestStartRollsBackOnInitFailure(t *testing.T) {
	rec := &recorder{}
	d := newTestDaemon(t)
	d.AddComponent(newMockComponent("Stream", rec))
	bad := newMockComponent("Polling", rec, "Stream")
	bad.initError = fmt.Errorf("boom")
	d.AddComponent(bad)

	err := d.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Contains(t, rec.snapshot(), "stop:Stream")
	assert.Equal(t, StatusStopped, d.Health())
}

func TestStartRunsUntilContextEnds(t *testing.T) {
	rec := &recorder{}
	d := newTestDaemon(t)
	d.AddComponent(newMockComponent("Stream", rec))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Start(ctx) }()

	require.Eventually(t, func() bool { return d.Health() == StatusRunning }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
	assert.Equal(t, []string{"init:Stream", "start:Stream", "stop:Stream"}, rec.snapshot())
	assert.Equal(t, StatusStopped, d.Health())
}

func TestComponentLookup(t *testing.T) {
	d := newTestDaemon(t)
	d.AddComponent(newMockComponent("Comp1", &recorder{}))

	assert.NotNil(t, d.Component("Comp1"))
	assert.Nil(t, d.Component("NonExistent"))
}
