package cache

import (
	"context"

	"github.com/harunnryd/cortex/internal/domain"

	"golang.org/x/sync/errgroup"
)

func (c *Cache) loader(res Resource) func(context.Context) error {
	switch res {
	case Missions:
		return func(ctx context.Context) error {
			return load(ctx, c, res, c.backend.ListMissions, func(v []domain.Mission) {
				for i := range v {
					v[i].Status = v[i].Status.Normalize()
				}
				c.missions = v
			})
		}
	case Teams:
		return func(ctx context.Context) error {
			return load(ctx, c, res, c.backend.ListTeams, func(v []domain.TeamDetail) { c.teams = v })
		}
	case Agents:
		return func(ctx context.Context) error {
			return load(ctx, c, res, c.backend.ListAgents, func(v []domain.Agent) { c.agents = v })
		}
	case Triggers:
		return func(ctx context.Context) error {
			return load(ctx, c, res, c.backend.ListTriggers, func(v []domain.TriggerRule) { c.triggers = v })
		}
	case Approvals:
		return func(ctx context.Context) error {
			return load(ctx, c, res, c.backend.ListPendingApprovals, func(v []domain.PendingApproval) { c.approvals = v })
		}
	case Services:
		return func(ctx context.Context) error {
			return load(ctx, c, res, c.backend.ListServices, func(v []domain.ServiceStatus) { c.services = v })
		}
	case Sensors:
		return func(ctx context.Context) error {
			return load(ctx, c, res, c.backend.ListSensors, func(v []domain.SensorNode) { c.sensors = v })
		}
	case MCP:
		return func(ctx context.Context) error {
			return load(ctx, c, res, c.backend.ListMCPServers, func(v []domain.MCPServer) { c.mcpServers = v })
		}
	case Cognitive:
		return func(ctx context.Context) error {
			return load(ctx, c, res, c.backend.CognitiveStatus, func(v domain.CognitiveStatus) { c.cognitive = &v })
		}
	}
	return nil
}

func (c *Cache) turnsLoader(runID string) func(context.Context) error {
	res := TurnsResource(runID)
	return func(ctx context.Context) error {
		call := func(ctx context.Context) ([]domain.ConversationTurn, error) {
			return c.backend.ListConversation(ctx, runID)
		}
		return load(ctx, c, res, call, func(v []domain.ConversationTurn) {
			c.turns[runID] = mergeTurns(c.turns[runID], v)
		})
	}
}

// Fetch loads res unless a fetch of it is already in flight, in which
// case it waits for that one. On failure the cached collection is kept
// and the categorized error is returned for logging.
func (c *Cache) Fetch(ctx context.Context, res Resource) error {
	run := c.loader(res)
	if run == nil {
		return nil
	}
	return c.fetch(ctx, res, run)
}

// Refresh always issues a new request. Responses are still applied in
// request order.
func (c *Cache) Refresh(ctx context.Context, res Resource) error {
	run := c.loader(res)
	if run == nil {
		return nil
	}
	return run(ctx)
}

func (c *Cache) FetchMissions(ctx context.Context) error  { return c.Fetch(ctx, Missions) }
func (c *Cache) FetchTeams(ctx context.Context) error     { return c.Fetch(ctx, Teams) }
func (c *Cache) FetchAgents(ctx context.Context) error    { return c.Fetch(ctx, Agents) }
func (c *Cache) FetchTriggers(ctx context.Context) error  { return c.Fetch(ctx, Triggers) }
func (c *Cache) FetchApprovals(ctx context.Context) error { return c.Fetch(ctx, Approvals) }
func (c *Cache) FetchServices(ctx context.Context) error  { return c.Fetch(ctx, Services) }
func (c *Cache) FetchSensors(ctx context.Context) error   { return c.Fetch(ctx, Sensors) }
func (c *Cache) FetchMCP(ctx context.Context) error       { return c.Fetch(ctx, MCP) }
func (c *Cache) FetchCognitive(ctx context.Context) error { return c.Fetch(ctx, Cognitive) }

func (c *Cache) FetchConversation(ctx context.Context, runID string) error {
	return c.fetch(ctx, TurnsResource(runID), c.turnsLoader(runID))
}

// FetchRoster loads teams and agents concurrently. A failed half keeps
// its previous state and does not cancel the other.
func (c *Cache) FetchRoster(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return c.FetchTeams(ctx) })
	g.Go(func() error { return c.FetchAgents(ctx) })
	return g.Wait()
}

// FetchReadiness loads every input of the readiness gate.
func (c *Cache) FetchReadiness(ctx context.Context) error {
	var g errgroup.Group
	for _, res := range []Resource{Services, MCP, Cognitive} {
		g.Go(func() error { return c.Fetch(ctx, res) })
	}
	return g.Wait()
}
