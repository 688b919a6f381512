package api

import (
	"context"
	"net/http"

	"github.com/harunnryd/cortex/internal/domain"
)

func (c *Client) ListTeams(ctx context.Context) ([]domain.TeamDetail, error) {
	return getList[domain.TeamDetail](ctx, c, "/api/v1/teams/detail", "teams")
}

func (c *Client) ListAgents(ctx context.Context) ([]domain.Agent, error) {
	return getList[domain.Agent](ctx, c, "/api/v1/agents", "agents")
}

func (c *Client) ListTriggers(ctx context.Context) ([]domain.TriggerRule, error) {
	return getList[domain.TriggerRule](ctx, c, "/api/v1/triggers", "triggers")
}

func (c *Client) CreateTrigger(ctx context.Context, rule domain.TriggerRule) (domain.TriggerRule, error) {
	b, err := c.raw(ctx, http.MethodPost, "/api/v1/triggers", rule)
	if err != nil {
		return domain.TriggerRule{}, err
	}
	return DecodeObject[domain.TriggerRule](b)
}

func (c *Client) UpdateTrigger(ctx context.Context, rule domain.TriggerRule) error {
	return c.do(ctx, http.MethodPut, path("/api/v1/triggers/%s", rule.ID), rule, nil)
}

func (c *Client) DeleteTrigger(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, path("/api/v1/triggers/%s", id), nil, nil)
}

func (c *Client) ToggleTrigger(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, path("/api/v1/triggers/%s/toggle", id), nil, nil)
}
