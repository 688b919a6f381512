package cache

import (
	"context"
	"log/slog"
	"sync"

	"github.com/harunnryd/cortex/internal/concurrency"
	"github.com/harunnryd/cortex/internal/domain"
	cortexErrors "github.com/harunnryd/cortex/internal/errors"

	"golang.org/x/sync/singleflight"
)

type Resource string

const (
	Missions  Resource = "missions"
	Teams     Resource = "teams"
	Agents    Resource = "agents"
	Triggers  Resource = "triggers"
	Approvals Resource = "approvals"
	Services  Resource = "services"
	Sensors   Resource = "sensors"
	MCP       Resource = "mcp_servers"
	Cognitive Resource = "cognitive"
)

// TurnsResource is the per-run conversation resource key.
func TurnsResource(runID string) Resource {
	return Resource("turns:" + runID)
}

// Backend is the slice of the API client the cache reads and writes through.
type Backend interface {
	ListMissions(ctx context.Context) ([]domain.Mission, error)
	CancelMission(ctx context.Context, missionID string) error
	ListTeams(ctx context.Context) ([]domain.TeamDetail, error)
	ListAgents(ctx context.Context) ([]domain.Agent, error)
	ListTriggers(ctx context.Context) ([]domain.TriggerRule, error)
	CreateTrigger(ctx context.Context, rule domain.TriggerRule) (domain.TriggerRule, error)
	UpdateTrigger(ctx context.Context, rule domain.TriggerRule) error
	DeleteTrigger(ctx context.Context, id string) error
	ToggleTrigger(ctx context.Context, id string) error
	ListPendingApprovals(ctx context.Context) ([]domain.PendingApproval, error)
	ResolveApproval(ctx context.Context, id string, approved bool) error
	ListServices(ctx context.Context) ([]domain.ServiceStatus, error)
	ListSensors(ctx context.Context) ([]domain.SensorNode, error)
	ListMCPServers(ctx context.Context) ([]domain.MCPServer, error)
	CognitiveStatus(ctx context.Context) (domain.CognitiveStatus, error)
	ListConversation(ctx context.Context, runID string) ([]domain.ConversationTurn, error)
}

// Cache is the single shared store of entity collections. All writes go
// through its methods; readers get copies.
type Cache struct {
	backend Backend
	mapper  cortexErrors.ErrorMapper

	flights singleflight.Group
	seq     *concurrency.Sequencer

	mu          sync.RWMutex
	fetching    map[Resource]int
	versions    map[Resource]uint64
	version     uint64
	subscribers map[int]chan struct{}
	nextSub     int

	missions   []domain.Mission
	teams      []domain.TeamDetail
	agents     []domain.Agent
	triggers   []domain.TriggerRule
	approvals  []domain.PendingApproval
	services   []domain.ServiceStatus
	sensors    []domain.SensorNode
	mcpServers []domain.MCPServer
	cognitive  *domain.CognitiveStatus
	turns      map[string][]domain.ConversationTurn
	subscribed map[string]bool
}

func New(backend Backend) *Cache {
	return &Cache{
		backend:     backend,
		mapper:      cortexErrors.NewDefaultErrorMapper(),
		seq:         concurrency.NewSequencer(),
		fetching:    make(map[Resource]int),
		versions:    make(map[Resource]uint64),
		subscribers: make(map[int]chan struct{}),
		turns:       make(map[string][]domain.ConversationTurn),
		subscribed:  make(map[string]bool),
	}
}

// Subscribe returns a channel that receives a value after any change.
// Notifications coalesce; the channel never holds more than one.
func (c *Cache) Subscribe() (<-chan struct{}, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	ch := make(chan struct{}, 1)
	c.subscribers[id] = ch
	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subscribers, id)
	}
}

// Version increases on every change to any collection.
func (c *Cache) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// ResourceVersion increases on every change to res.
func (c *Cache) ResourceVersion(res Resource) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.versions[res]
}

func (c *Cache) IsFetching(res Resource) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fetching[res] > 0
}

// bump must be called with c.mu held.
func (c *Cache) bump(res Resource) {
	c.version++
	c.versions[res]++
	for _, ch := range c.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// mutate applies a local change to res. It takes a sequence ticket so a
// fetch that started before the change cannot overwrite it.
func (c *Cache) mutate(res Resource, fn func()) {
	ticket := c.seq.Next(string(res))
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq.Commit(string(res), ticket)
	fn()
	c.bump(res)
}

func (c *Cache) setFetching(res Resource, delta int) {
	c.mu.Lock()
	c.fetching[res] += delta
	if c.fetching[res] <= 0 {
		delete(c.fetching, res)
	}
	c.bump(res)
	c.mu.Unlock()
}

// load fetches through call and applies the result if it is still the
// newest for res.
func load[T any](ctx context.Context, c *Cache, res Resource, call func(context.Context) (T, error), apply func(T)) error {
	ticket := c.seq.Next(string(res))
	c.setFetching(res, 1)
	defer c.setFetching(res, -1)

	v, err := call(ctx)
	if err != nil {
		mapped := c.mapper.MapError(err)
		slog.Warn("Fetch failed, keeping cached state", "component", "cache", "resource", res, "category", c.mapper.Category(mapped), "error", err)
		return mapped
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.seq.Commit(string(res), ticket) {
		slog.Debug("Dropping stale response", "component", "cache", "resource", res, "ticket", ticket)
		return nil
	}
	apply(v)
	c.bump(res)
	return nil
}

// fetch joins an in-flight fetch of res or starts one.
func (c *Cache) fetch(ctx context.Context, res Resource, run func(context.Context) error) error {
	_, err, _ := c.flights.Do(string(res), func() (any, error) {
		return nil, run(ctx)
	})
	return err
}

// reconcile refetches res in the background after a failed write.
func (c *Cache) reconcile(ctx context.Context, res Resource, run func(context.Context) error) {
	bg := context.WithoutCancel(ctx)
	concurrency.SafeGo("cache.reconcile."+string(res), func() {
		slog.Info("Reconciling after failed write", "component", "cache", "resource", res)
		_ = run(bg)
	}, nil)
}
