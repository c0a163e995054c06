// Package httpx carries the HTTP plumbing shared by the services: JSON
// responders, the error-to-status mapping, and the bearer-token
// middleware.
package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/driftlabs/driftbox/internal/common"
	"github.com/driftlabs/driftbox/internal/logging"
)

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ErrorBody is the uniform error payload.
type ErrorBody struct {
	Error    string `json:"error"`
	Uploaded *int   `json:"uploaded,omitempty"`
	Total    *int   `json:"total,omitempty"`
}

// Error maps a service error to its HTTP status. Known conditions get
// their specific status and message; anything unrecognized is logged and
// surfaced as a generic 500 without internal detail.
func Error(ctx context.Context, w http.ResponseWriter, log logging.Logger, err error) {
	var incomplete *common.IncompleteUploadError
	if errors.As(err, &incomplete) {
		JSON(w, http.StatusBadRequest, ErrorBody{
			Error:    incomplete.Error(),
			Uploaded: &incomplete.Uploaded,
			Total:    &incomplete.Total,
		})
		return
	}

	switch {
	case errors.Is(err, common.ErrValidation):
		JSON(w, http.StatusBadRequest, ErrorBody{Error: err.Error()})
	case errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrUnauthorized):
		JSON(w, http.StatusUnauthorized, ErrorBody{Error: err.Error()})
	case errors.Is(err, common.ErrForbidden):
		JSON(w, http.StatusForbidden, ErrorBody{Error: "forbidden"})
	case errors.Is(err, common.ErrNotFound):
		JSON(w, http.StatusNotFound, ErrorBody{Error: err.Error()})
	case errors.Is(err, common.ErrAlreadyExists):
		JSON(w, http.StatusConflict, ErrorBody{Error: err.Error()})
	case errors.Is(err, common.ErrExpired):
		JSON(w, http.StatusGone, ErrorBody{Error: err.Error()})
	default:
		log.Error(ctx, "internal error", "error", err.Error())
		JSON(w, http.StatusInternalServerError, ErrorBody{Error: "internal server error"})
	}
}

// Health returns a minimal health handler.
func Health(service string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "ok", "service": service})
	}
}
