package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/harunnryd/cortex/internal/config"
	cortexErrors "github.com/harunnryd/cortex/internal/errors"

	"github.com/tidwall/gjson"
)

// Client is the console's HTTP client for the orchestration backend.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

func NewFromConfig(cfg config.ServerConfig) (*Client, error) {
	timeout, err := config.DurationOrDefault(cfg.RequestTimeout, config.DefaultServerRequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("parse request timeout: %w", err)
	}
	return New(cfg.BaseURL, timeout), nil
}

// Error wraps non-2xx responses.
type Error struct {
	Status int
	// Message is the body's "error" field, when the body was JSON and had one.
	Message string
	Body    string
	// JSON reports whether the body parsed as JSON.
	JSON bool
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error: status=%d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error: status=%d", e.Status)
}

func (e *Error) Unwrap() error {
	return cortexErrors.FromStatus(e.Status, e.Message)
}

func newError(status int, body []byte) *Error {
	e := &Error{Status: status, Body: string(body)}
	if gjson.ValidBytes(body) {
		e.JSON = true
		if msg := gjson.GetBytes(body, "error"); msg.Type == gjson.String {
			e.Message = msg.String()
		}
	}
	return e
}

func (c *Client) raw(ctx context.Context, method, endpoint string, body any) ([]byte, error) {
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}

	var payload io.Reader = http.NoBody
	if body != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
		payload = &buf
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL(endpoint), payload)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s body: %w", endpoint, err)
	}
	if resp.StatusCode >= 300 {
		return nil, newError(resp.StatusCode, b)
	}
	return b, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	b, err := c.raw(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode %s: %v: %w", endpoint, err, cortexErrors.ErrMalformedResponse)
	}
	return nil
}

// URL resolves endpoint against the base URL.
func (c *Client) URL(endpoint string) string {
	return c.BaseURL + "/" + strings.TrimLeft(endpoint, "/")
}

func path(format string, ids ...string) string {
	escaped := make([]any, len(ids))
	for i, id := range ids {
		escaped[i] = url.PathEscape(id)
	}
	return fmt.Sprintf(format, escaped...)
}
