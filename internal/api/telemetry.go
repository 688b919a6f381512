package api

import (
	"context"
	"net/http"

	"github.com/harunnryd/cortex/internal/domain"
)

func (c *Client) ListServices(ctx context.Context) ([]domain.ServiceStatus, error) {
	return getList[domain.ServiceStatus](ctx, c, "/api/v1/services/status", "services")
}

func (c *Client) ListSensors(ctx context.Context) ([]domain.SensorNode, error) {
	return getList[domain.SensorNode](ctx, c, "/api/v1/sensors", "sensors")
}

func (c *Client) ListMCPServers(ctx context.Context) ([]domain.MCPServer, error) {
	return getList[domain.MCPServer](ctx, c, "/api/v1/mcp/servers", "servers")
}

func (c *Client) CognitiveStatus(ctx context.Context) (domain.CognitiveStatus, error) {
	b, err := c.raw(ctx, http.MethodGet, "/api/v1/cognitive/status", nil)
	if err != nil {
		return domain.CognitiveStatus{}, err
	}
	return DecodeObject[domain.CognitiveStatus](b)
}
