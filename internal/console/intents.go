package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/harunnryd/cortex/internal/blueprint"
	"github.com/harunnryd/cortex/internal/domain"
	cortexErrors "github.com/harunnryd/cortex/internal/errors"
	"github.com/harunnryd/cortex/internal/logger"
	"github.com/harunnryd/cortex/internal/mission"
)

// SubmitIntent asks the backend to draft a blueprint for intent and loads it.
func (c *Console) SubmitIntent(ctx context.Context, intent string) (domain.Blueprint, error) {
	if err := c.canLoadDraft(); err != nil {
		return domain.Blueprint{}, err
	}
	bp, err := c.backend.Negotiate(ctx, intent)
	if err != nil {
		slog.Warn("Negotiation failed", "component", "console", "error", err)
		return domain.Blueprint{}, err
	}
	if bp.Intent == "" {
		bp.Intent = intent
	}
	if err := c.LoadBlueprint(bp); err != nil {
		return domain.Blueprint{}, err
	}
	return bp, nil
}

// LoadBlueprint starts a local draft from bp.
func (c *Console) LoadBlueprint(bp domain.Blueprint) error {
	if err := blueprint.CheckTeamKeys(bp); err != nil {
		return err
	}
	if err := c.Mission.LoadDraft(); err != nil {
		return err
	}
	return c.Graph.Load(bp)
}

func (c *Console) canLoadDraft() error {
	switch s := c.Mission.State(); s {
	case mission.StateActive, mission.StateTerminating:
		return cortexErrors.IllegalTransition(fmt.Sprintf("cannot draft while a mission is %s", s))
	}
	return nil
}

// CommitDraft instantiates the draft on the backend and starts watching
// the resulting run.
func (c *Console) CommitDraft(ctx context.Context) (domain.CommitResult, error) {
	if s := c.Mission.State(); s != mission.StateDrafting {
		return domain.CommitResult{}, cortexErrors.IllegalTransition(fmt.Sprintf("commit not allowed in state %s", s))
	}

	res, err := c.backend.Commit(ctx, c.Graph.Blueprint())
	if err != nil {
		slog.Warn("Commit failed", "component", "console", "error", err)
		return domain.CommitResult{}, err
	}
	if err := c.Mission.Commit(res.MissionID); err != nil {
		return domain.CommitResult{}, err
	}
	c.Graph.Solidify(res.MissionID)
	c.Cache.UpsertMission(domain.Mission{
		ID:     res.MissionID,
		Intent: c.Graph.Blueprint().Intent,
		Status: domain.MissionActive,
		Teams:  res.Teams,
		Agents: res.Agents,
	})
	c.watchRun(res.MissionID)
	slog.Info("Mission committed", "component", "console", "mission_id", res.MissionID, "teams", res.Teams, "agents", res.Agents)
	return res, nil
}

func (c *Console) watchRun(runID string) {
	cancel := c.Runs.Watch(logger.WithMissionID(c.ctx, runID), runID, func(status domain.RunStatus) {
		c.observeRun(runID, status)
	})
	c.mu.Lock()
	c.runCancel = cancel
	c.mu.Unlock()
}

func (c *Console) observeRun(runID string, status domain.RunStatus) {
	if c.Mission.MissionID() != runID {
		return
	}
	if err := c.Mission.Observe(status); err != nil {
		slog.Debug("Run status ignored", "component", "console", "run_id", runID, "status", status, "error", err)
		return
	}
	switch status {
	case domain.RunCompleted:
		c.Cache.SetMissionStatus(runID, domain.MissionCompleted)
	case domain.RunFailed, domain.RunCancelled:
		c.Cache.SetMissionStatus(runID, domain.MissionFailed)
	}
}

// DiscardDraft drops the uncommitted blueprint.
func (c *Console) DiscardDraft() error {
	if err := c.Mission.Discard(); err != nil {
		return err
	}
	c.Graph.Clear()
	return nil
}

// Terminate asks the backend to cancel the active mission. The machine
// stays terminating until the run reports a terminal status.
func (c *Console) Terminate(ctx context.Context) error {
	if err := c.Mission.BeginTerminate(); err != nil {
		return err
	}
	id := c.Mission.MissionID()
	if err := c.Cache.CancelMission(ctx, id); err != nil {
		if tErr := c.Mission.TerminateFailed(); tErr != nil {
			slog.Warn("Terminate rollback skipped", "component", "console", "error", tErr)
		}
		return err
	}
	return nil
}

// ResetMission clears a finished mission so a new draft can start.
func (c *Console) ResetMission() error {
	if err := c.Mission.Reset(); err != nil {
		return err
	}
	c.mu.Lock()
	cancel := c.runCancel
	c.runCancel = nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	c.Graph.Clear()
	return nil
}

// EditAgent applies patch to the draft if the mission state allows it.
func (c *Console) EditAgent(agentID string, patch blueprint.AgentPatch) error {
	old, ok := c.Graph.Agent(agentID)
	if !ok {
		return cortexErrors.NotFound(fmt.Sprintf("agent %s", agentID))
	}
	if err := mission.CheckAgentEdit(c.Mission.State(), old, patch.Apply(old)); err != nil {
		return err
	}
	return c.Graph.UpdateAgent(agentID, patch)
}

func (c *Console) DeleteAgent(agentID string) error {
	if err := mission.CheckAgentDelete(c.Mission.State()); err != nil {
		return err
	}
	return c.Graph.DeleteAgent(agentID)
}

// RemoveEmptyTeam removes a team whose last agent was deleted.
func (c *Console) RemoveEmptyTeam(teamKey string) error {
	if err := mission.CheckAgentDelete(c.Mission.State()); err != nil {
		return err
	}
	return c.Graph.RemoveTeam(teamKey)
}

// SaveChanges pushes edits on an active mission. On failure the delta is
// kept so the save can be repeated.
func (c *Console) SaveChanges(ctx context.Context) error {
	if s := c.Mission.State(); s != mission.StateActive {
		return cortexErrors.IllegalTransition(fmt.Sprintf("save not allowed in state %s", s))
	}
	id := c.Mission.MissionID()
	delta := c.Graph.Delta()
	if delta.Empty() {
		return nil
	}

	for _, upd := range delta.Updated {
		if err := c.backend.UpdateMissionAgent(ctx, id, upd.Agent); err != nil {
			slog.Warn("Agent update failed", "component", "console", "mission_id", id, "agent_id", upd.Agent.ID, "error", err)
			return err
		}
	}
	for _, agentID := range delta.Deleted {
		err := c.backend.RemoveMissionAgent(ctx, id, agentID)
		if err != nil && !errors.Is(err, cortexErrors.ErrNotFound) {
			slog.Warn("Agent removal failed", "component", "console", "mission_id", id, "agent_id", agentID, "error", err)
			return err
		}
	}

	c.Graph.MarkCommitted()
	slog.Info("Mission changes saved", "component", "console", "mission_id", id, "updated", len(delta.Updated), "deleted", len(delta.Deleted))
	return nil
}

func (c *Console) CancelChanges() {
	c.Graph.Revert()
}
