package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/harunnryd/cortex/internal/domain"
	cortexErrors "github.com/harunnryd/cortex/internal/errors"
)

func (c *Client) ListCouncilMembers(ctx context.Context) ([]domain.CouncilMember, error) {
	var resp Response[[]domain.CouncilMember]
	if err := c.do(ctx, http.MethodGet, "/api/v1/council/members", nil, &resp); err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, cortexErrors.Internal(resp.Error)
	}
	return resp.Data, nil
}

// CouncilChat posts messages to member. Failures come back as errors whose
// text is fit to show the operator.
func (c *Client) CouncilChat(ctx context.Context, member string, messages []domain.WireMessage) (domain.ChatEnvelope, error) {
	var resp Response[*domain.ChatEnvelope]
	err := c.do(ctx, http.MethodPost, path("/api/v1/council/%s/chat", member), map[string]any{"messages": messages}, &resp)
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) {
			switch {
			case apiErr.Message != "":
				return domain.ChatEnvelope{}, &ChatError{Text: apiErr.Message, Err: apiErr}
			case apiErr.JSON:
				return domain.ChatEnvelope{}, &ChatError{Text: fmt.Sprintf("Council agent error (%d)", apiErr.Status), Err: apiErr}
			default:
				return domain.ChatEnvelope{}, &ChatError{Text: fmt.Sprintf("Council agent unreachable (%d)", apiErr.Status), Err: apiErr}
			}
		}
		return domain.ChatEnvelope{}, err
	}
	if !resp.OK || resp.Data == nil {
		text := resp.Error
		if text == "" {
			text = "Chat request failed"
		}
		return domain.ChatEnvelope{}, &ChatError{Text: text, Err: cortexErrors.ErrInternal}
	}
	return *resp.Data, nil
}

// ChatError carries the operator-facing failure text of a chat call.
type ChatError struct {
	Text string
	Err  error
}

func (e *ChatError) Error() string { return e.Text }

func (e *ChatError) Unwrap() error { return e.Err }

func (c *Client) Broadcast(ctx context.Context, content string) (domain.BroadcastResult, error) {
	var resp domain.BroadcastResult
	body := map[string]string{"content": content, "source": "mission-control"}
	err := c.do(ctx, http.MethodPost, "/api/v1/swarm/broadcast", body, &resp)
	return resp, err
}
