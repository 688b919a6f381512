package cache

import (
	"slices"
	"sort"
	"strings"

	"github.com/harunnryd/cortex/internal/domain"
)

func (c *Cache) Missions() []domain.Mission {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.missions)
}

func (c *Cache) Mission(id string) (domain.Mission, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, m := range c.missions {
		if m.ID == id {
			return m, true
		}
	}
	return domain.Mission{}, false
}

func (c *Cache) Teams() []domain.TeamDetail {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.teams)
}

// TeamsOfType filters the roster; an empty type returns every team.
func (c *Cache) TeamsOfType(t domain.TeamType) []domain.TeamDetail {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.TeamDetail, 0, len(c.teams))
	for _, team := range c.teams {
		if t == "" || team.Type.Normalize() == t {
			out = append(out, team)
		}
	}
	return out
}

func (c *Cache) Agents() []domain.Agent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.agents)
}

func (c *Cache) Triggers() []domain.TriggerRule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.triggers)
}

func (c *Cache) Trigger(id string) (domain.TriggerRule, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, r := range c.triggers {
		if r.ID == id {
			return r, true
		}
	}
	return domain.TriggerRule{}, false
}

func (c *Cache) PendingApprovals() []domain.PendingApproval {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.approvals)
}

func (c *Cache) Services() []domain.ServiceStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.services)
}

// Service looks a service up by case-insensitive name.
func (c *Cache) Service(name string) (domain.ServiceStatus, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.services {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return domain.ServiceStatus{}, false
}

func (c *Cache) Sensors() []domain.SensorNode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.sensors)
}

func (c *Cache) SensorGroups() []domain.SensorGroup {
	return domain.GroupSensors(c.Sensors())
}

func (c *Cache) SubscribedSensorGroups() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.subscribed))
	for group := range c.subscribed {
		out = append(out, group)
	}
	sort.Strings(out)
	return out
}

// VisibleSensors returns the sensors of subscribed groups only.
func (c *Cache) VisibleSensors() []domain.SensorNode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []domain.SensorNode
	for _, s := range c.sensors {
		if c.subscribed[s.Type] {
			out = append(out, s)
		}
	}
	return out
}

func (c *Cache) MCPServers() []domain.MCPServer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.mcpServers)
}

// Cognitive returns the last fetched brain status, if any.
func (c *Cache) Cognitive() (domain.CognitiveStatus, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cognitive == nil {
		return domain.CognitiveStatus{}, false
	}
	return *c.cognitive, true
}

// Turns returns the run's conversation in turn_index order.
func (c *Cache) Turns(runID string) []domain.ConversationTurn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.turns[runID])
}
