package api

import (
	"context"
	"net/http"

	"github.com/harunnryd/cortex/internal/domain"
	cortexErrors "github.com/harunnryd/cortex/internal/errors"
)

func (c *Client) ListPendingApprovals(ctx context.Context) ([]domain.PendingApproval, error) {
	return getList[domain.PendingApproval](ctx, c, "/api/v1/governance/pending", "approvals", "pending")
}

func (c *Client) ResolveApproval(ctx context.Context, id string, approved bool) error {
	action := "REJECT"
	if approved {
		action = "APPROVE"
	}
	return c.do(ctx, http.MethodPost, path("/api/v1/governance/resolve/%s", id), map[string]string{"action": action}, nil)
}

// ConfirmAction executes the action a chat proposal described.
func (c *Client) ConfirmAction(ctx context.Context, token string) error {
	var resp Response[map[string]any]
	if err := c.do(ctx, http.MethodPost, "/api/v1/intent/confirm-action", map[string]string{"confirm_token": token}, &resp); err != nil {
		return err
	}
	if !resp.OK {
		msg := resp.Error
		if msg == "" {
			msg = "confirm action rejected"
		}
		return cortexErrors.Internal(msg)
	}
	return nil
}
