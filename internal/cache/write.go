package cache

import (
	"context"
	"log/slog"
	"slices"

	"github.com/harunnryd/cortex/internal/concurrency"
	"github.com/harunnryd/cortex/internal/domain"
	cortexErrors "github.com/harunnryd/cortex/internal/errors"

	"github.com/oklog/ulid/v2"
)

// LocalIDPrefix marks records created locally and not yet acknowledged.
const LocalIDPrefix = "local-"

// ResolveApproval removes the approval from the pending set before the
// request is sent. A failed request queues a refetch of the pending set.
func (c *Cache) ResolveApproval(ctx context.Context, id string, approved bool) error {
	c.dropApproval(id)
	return c.sendResolve(ctx, id, approved)
}

// ResolveApprovalAsync removes the approval now and sends the request in
// the background. The channel receives the request's outcome.
func (c *Cache) ResolveApprovalAsync(ctx context.Context, id string, approved bool) <-chan error {
	c.dropApproval(id)
	done := make(chan error, 1)
	concurrency.SafeGo("cache.resolve_approval", func() {
		done <- c.sendResolve(ctx, id, approved)
	}, func(any) {
		done <- cortexErrors.Internal("approval resolve panicked")
	})
	return done
}

func (c *Cache) dropApproval(id string) {
	c.mutate(Approvals, func() {
		c.approvals = slices.DeleteFunc(c.approvals, func(a domain.PendingApproval) bool { return a.ID == id })
	})
}

func (c *Cache) sendResolve(ctx context.Context, id string, approved bool) error {
	if err := c.backend.ResolveApproval(ctx, id, approved); err != nil {
		slog.Warn("Approval resolve failed", "component", "cache", "approval_id", id, "approved", approved, "error", err)
		c.reconcile(ctx, Approvals, c.loader(Approvals))
		return c.mapper.MapError(err)
	}
	slog.Info("Approval resolved", "component", "cache", "approval_id", id, "approved", approved)
	return nil
}

// CancelMission marks the mission failed locally, then asks the backend to
// cancel it.
func (c *Cache) CancelMission(ctx context.Context, id string) error {
	c.SetMissionStatus(id, domain.MissionFailed)

	if err := c.backend.CancelMission(ctx, id); err != nil {
		slog.Warn("Mission cancel failed", "component", "cache", "mission_id", id, "error", err)
		c.reconcile(ctx, Missions, c.loader(Missions))
		return c.mapper.MapError(err)
	}
	return nil
}

// SetMissionStatus records a server-confirmed status change for a mission.
func (c *Cache) SetMissionStatus(id string, status domain.MissionStatus) {
	c.mutate(Missions, func() {
		for i := range c.missions {
			if c.missions[i].ID == id {
				c.missions[i].Status = status.Normalize()
			}
		}
	})
}

// UpsertMission inserts or replaces a mission by id.
func (c *Cache) UpsertMission(m domain.Mission) {
	c.mutate(Missions, func() {
		for i := range c.missions {
			if c.missions[i].ID == m.ID {
				c.missions[i] = m
				return
			}
		}
		c.missions = append(c.missions, m)
	})
}

// CreateTrigger shows the rule immediately under a provisional id and
// swaps in the server's record once it answers.
func (c *Cache) CreateTrigger(ctx context.Context, rule domain.TriggerRule) (domain.TriggerRule, error) {
	provisional := rule
	if provisional.ID == "" {
		provisional.ID = LocalIDPrefix + ulid.Make().String()
	}
	c.mutate(Triggers, func() {
		c.triggers = append(c.triggers, provisional)
	})

	sent := rule
	sent.ID = ""
	created, err := c.backend.CreateTrigger(ctx, sent)
	if err != nil {
		slog.Warn("Trigger create failed", "component", "cache", "name", rule.Name, "error", err)
		c.reconcile(ctx, Triggers, c.loader(Triggers))
		return provisional, c.mapper.MapError(err)
	}

	if created.ID == "" {
		// Backend acknowledged without a record; pick it up on the next fetch.
		c.reconcile(ctx, Triggers, c.loader(Triggers))
		return provisional, nil
	}
	c.mutate(Triggers, func() {
		for i := range c.triggers {
			if c.triggers[i].ID == provisional.ID {
				c.triggers[i] = created
			}
		}
	})
	return created, nil
}

func (c *Cache) UpdateTrigger(ctx context.Context, rule domain.TriggerRule) error {
	c.mutate(Triggers, func() {
		for i := range c.triggers {
			if c.triggers[i].ID == rule.ID {
				c.triggers[i] = rule
			}
		}
	})

	if err := c.backend.UpdateTrigger(ctx, rule); err != nil {
		slog.Warn("Trigger update failed", "component", "cache", "trigger_id", rule.ID, "error", err)
		c.reconcile(ctx, Triggers, c.loader(Triggers))
		return c.mapper.MapError(err)
	}
	return nil
}

func (c *Cache) DeleteTrigger(ctx context.Context, id string) error {
	c.mutate(Triggers, func() {
		c.triggers = slices.DeleteFunc(c.triggers, func(r domain.TriggerRule) bool { return r.ID == id })
	})

	if err := c.backend.DeleteTrigger(ctx, id); err != nil {
		slog.Warn("Trigger delete failed", "component", "cache", "trigger_id", id, "error", err)
		c.reconcile(ctx, Triggers, c.loader(Triggers))
		return c.mapper.MapError(err)
	}
	return nil
}

// ToggleTrigger flips is_active locally, then on the backend.
func (c *Cache) ToggleTrigger(ctx context.Context, id string) error {
	c.mutate(Triggers, func() {
		for i := range c.triggers {
			if c.triggers[i].ID == id {
				c.triggers[i].IsActive = !c.triggers[i].IsActive
			}
		}
	})

	if err := c.backend.ToggleTrigger(ctx, id); err != nil {
		slog.Warn("Trigger toggle failed", "component", "cache", "trigger_id", id, "error", err)
		c.reconcile(ctx, Triggers, c.loader(Triggers))
		return c.mapper.MapError(err)
	}
	return nil
}

// SetSensorGroupSubscribed toggles a local subscription. Subscriptions
// are not catalog data, so no ticket is taken and an in-flight sensor
// fetch still lands.
func (c *Cache) SetSensorGroupSubscribed(group string, subscribed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if subscribed {
		c.subscribed[group] = true
	} else {
		delete(c.subscribed, group)
	}
	c.bump(Sensors)
}

// MergeTurns adds turns for a run, however they arrived. Merging is a
// union, so it takes no ticket and never invalidates an in-flight fetch.
func (c *Cache) MergeTurns(runID string, turns []domain.ConversationTurn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns[runID] = mergeTurns(c.turns[runID], turns)
	c.bump(TurnsResource(runID))
}
