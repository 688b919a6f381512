package api

import (
	"context"
	"net/http"

	"github.com/harunnryd/cortex/internal/domain"
)

func (c *Client) ListMissions(ctx context.Context) ([]domain.Mission, error) {
	return getList[domain.Mission](ctx, c, "/api/v1/missions", "missions")
}

func (c *Client) CancelMission(ctx context.Context, missionID string) error {
	return c.do(ctx, http.MethodDelete, path("/api/v1/missions/%s", missionID), nil, nil)
}

// UpdateMissionAgent saves an incremental edit of one agent in an active mission.
func (c *Client) UpdateMissionAgent(ctx context.Context, missionID string, agent domain.AgentManifest) error {
	return c.do(ctx, http.MethodPut, path("/api/v1/missions/%s/agents/%s", missionID, agent.ID), agent, nil)
}

func (c *Client) RemoveMissionAgent(ctx context.Context, missionID, agentID string) error {
	return c.do(ctx, http.MethodDelete, path("/api/v1/missions/%s/agents/%s", missionID, agentID), nil, nil)
}

func (c *Client) ListRunEvents(ctx context.Context, runID string) ([]domain.MissionEvent, error) {
	return getList[domain.MissionEvent](ctx, c, path("/api/v1/runs/%s/events", runID), "events")
}

func (c *Client) ListConversation(ctx context.Context, runID string) ([]domain.ConversationTurn, error) {
	return getList[domain.ConversationTurn](ctx, c, path("/api/v1/runs/%s/conversation", runID), "turns")
}

func (c *Client) Negotiate(ctx context.Context, intent string) (domain.Blueprint, error) {
	b, err := c.raw(ctx, http.MethodPost, "/api/v1/intent/negotiate", map[string]string{"intent": intent})
	if err != nil {
		return domain.Blueprint{}, err
	}
	return DecodeObject[domain.Blueprint](b)
}

func (c *Client) Commit(ctx context.Context, bp domain.Blueprint) (domain.CommitResult, error) {
	b, err := c.raw(ctx, http.MethodPost, "/api/v1/intent/commit", bp)
	if err != nil {
		return domain.CommitResult{}, err
	}
	return DecodeObject[domain.CommitResult](b)
}
