package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftlabs/driftbox/internal/common"
	"github.com/driftlabs/driftbox/internal/logging"
)

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestError_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", fmt.Errorf("bad input: %w", common.ErrValidation), 400},
		{"unauthorized", common.ErrUnauthorized, 401},
		{"invalid token", common.ErrInvalidToken, 401},
		{"expired token", common.ErrTokenExpired, 401},
		{"forbidden", common.ErrForbidden, 403},
		{"not found", fmt.Errorf("no such session: %w", common.ErrNotFound), 404},
		{"conflict", common.ErrAlreadyExists, 409},
		{"expired link", fmt.Errorf("link gone: %w", common.ErrExpired), 410},
		{"unknown", errors.New("exploded"), 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Error(context.Background(), rec, discardLogger(), tt.err)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestError_InternalDetailIsHidden(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(context.Background(), rec, discardLogger(), errors.New("dsn=postgres://secret"))

	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal server error", body.Error)
}

func TestError_ForbiddenMessageIsGeneric(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(context.Background(), rec, discardLogger(), fmt.Errorf("user mismatch: %w", common.ErrForbidden))

	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "forbidden", body.Error)
}

func TestError_IncompleteUploadCarriesCounts(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(context.Background(), rec, discardLogger(), &common.IncompleteUploadError{Uploaded: 2, Total: 3})

	assert.Equal(t, 400, rec.Code)

	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Uploaded)
	require.NotNil(t, body.Total)
	assert.Equal(t, 2, *body.Uploaded)
	assert.Equal(t, 3, *body.Total)
}

func TestBearerToken(t *testing.T) {
	token, err := BearerToken("Bearer abc.def.ghi")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token)

	_, err = BearerToken("")
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	_, err = BearerToken("Basic dXNlcg==")
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}
