package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	m := NewDefaultErrorMapper()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "deadline", err: context.DeadlineExceeded, want: ErrTransient},
		{name: "refused", err: errors.New("dial tcp 127.0.0.1:8081: connect: connection refused"), want: ErrTransient},
		{name: "eof", err: errors.New("unexpected EOF"), want: ErrTransient},
		{name: "forbidden", err: errors.New("403 Forbidden"), want: ErrPermissionDenied},
		{name: "json", err: errors.New("invalid character '<' looking for beginning of value"), want: ErrMalformedResponse},
		{name: "already categorized", err: ImmutableField("agent id"), want: ErrImmutableField},
		{name: "other", err: errors.New("boom"), want: ErrInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, m.MapError(tt.err), tt.want)
		})
	}

	assert.Nil(t, m.MapError(nil))
	assert.ErrorIs(t, m.MapError(context.Canceled), context.Canceled)
}

func TestFromStatus(t *testing.T) {
	assert.ErrorIs(t, FromStatus(http.StatusNotFound, ""), ErrNotFound)
	assert.ErrorIs(t, FromStatus(http.StatusUnauthorized, "no"), ErrPermissionDenied)
	assert.ErrorIs(t, FromStatus(http.StatusConflict, "taken"), ErrConflict)
	assert.ErrorIs(t, FromStatus(http.StatusBadGateway, ""), ErrTransient)
	assert.ErrorIs(t, FromStatus(http.StatusUnprocessableEntity, ""), ErrInvalidInput)
	assert.Contains(t, FromStatus(http.StatusServiceUnavailable, "").Error(), "Service Unavailable")
}

func TestRetryableAndCategory(t *testing.T) {
	m := NewDefaultErrorMapper()

	assert.True(t, m.IsRetryable(errors.New("request timeout")))
	assert.False(t, m.IsRetryable(errors.New("bad request")))
	assert.False(t, IsRetryable(context.Canceled))

	assert.Equal(t, "ErrTransient", m.Category(fmt.Errorf("wrapped: %w", ErrTransient)))
	assert.Equal(t, "ErrIllegalTransition", m.Category(IllegalTransition("commit from idle")))
	assert.Equal(t, "Unknown", m.Category(errors.New("plain")))
	assert.Equal(t, "", m.Category(nil))
}
