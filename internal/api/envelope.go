package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	cortexErrors "github.com/harunnryd/cortex/internal/errors"

	"github.com/tidwall/gjson"
)

// Response is the {ok, data, error} envelope of chat and action endpoints.
type Response[T any] struct {
	OK    bool   `json:"ok"`
	Data  T      `json:"data"`
	Error string `json:"error,omitempty"`
}

// DecodeList extracts a list from a bare array, a {data: [...]} envelope,
// or an object holding the array under one of keys. Shapes that carry no
// array decode to an empty list.
func DecodeList[T any](body []byte, keys ...string) ([]T, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("list body is not json: %w", cortexErrors.ErrMalformedResponse)
	}

	root := gjson.ParseBytes(body)
	list := root
	if !root.IsArray() {
		list = gjson.Result{}
		for _, key := range append([]string{"data"}, keys...) {
			candidate := root.Get(key)
			if candidate.IsArray() {
				list = candidate
				break
			}
			// {ok, data: {items: [...]}} style nesting
			if candidate.IsObject() {
				for _, inner := range keys {
					if nested := candidate.Get(inner); nested.IsArray() {
						list = nested
						break
					}
				}
				if list.IsArray() {
					break
				}
			}
		}
	}

	if !list.IsArray() {
		return []T{}, nil
	}

	out := make([]T, 0, len(list.Array()))
	if err := json.Unmarshal([]byte(list.Raw), &out); err != nil {
		return nil, fmt.Errorf("decode list: %v: %w", err, cortexErrors.ErrMalformedResponse)
	}
	return out, nil
}

// DecodeObject accepts either a bare object or an {ok, data} envelope.
func DecodeObject[T any](body []byte) (T, error) {
	var out T
	if !gjson.ValidBytes(body) {
		return out, fmt.Errorf("body is not json: %w", cortexErrors.ErrMalformedResponse)
	}

	root := gjson.ParseBytes(body)
	raw := root.Raw
	if ok := root.Get("ok"); ok.Exists() {
		if !ok.Bool() {
			msg := root.Get("error").String()
			if msg == "" {
				msg = "request rejected"
			}
			return out, cortexErrors.Internal(msg)
		}
		raw = root.Get("data").Raw
	}

	if raw == "" || raw == "null" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return out, fmt.Errorf("decode object: %v: %w", err, cortexErrors.ErrMalformedResponse)
	}
	return out, nil
}

func getList[T any](ctx context.Context, c *Client, endpoint string, keys ...string) ([]T, error) {
	b, err := c.raw(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return DecodeList[T](b, keys...)
}
