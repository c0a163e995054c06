package share

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/driftlabs/driftbox/internal/common"
	"github.com/driftlabs/driftbox/internal/httpx"
	"github.com/driftlabs/driftbox/internal/logging"
)

// Handler exposes share-link operations over HTTP. Link access is the
// only unauthenticated route; everything else requires a principal.
type Handler struct {
	svc *Service
	log logging.Logger
}

func NewHandler(svc *Service, log logging.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Register mounts the share routes on mux.
func (h *Handler) Register(mux *http.ServeMux, authenticate func(http.Handler) http.Handler) {
	mux.Handle("POST /share", authenticate(http.HandlerFunc(h.createLink)))
	mux.Handle("GET /share", authenticate(http.HandlerFunc(h.listLinks)))
	mux.Handle("DELETE /share/{linkId}", authenticate(http.HandlerFunc(h.revokeLink)))
	mux.HandleFunc("GET /share/{linkId}", h.accessLink)
}

func (h *Handler) createLink(w http.ResponseWriter, r *http.Request) {
	principal, _ := httpx.PrincipalFrom(r.Context())

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(r.Context(), w, h.log, fmt.Errorf("invalid json body: %w", common.ErrValidation))
		return
	}

	link, err := h.svc.Create(r.Context(), principal.UserID, req)
	if err != nil {
		httpx.Error(r.Context(), w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, link)
}

func (h *Handler) accessLink(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.Access(r.Context(), r.PathValue("linkId"))
	if err != nil {
		httpx.Error(r.Context(), w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) listLinks(w http.ResponseWriter, r *http.Request) {
	principal, _ := httpx.PrincipalFrom(r.Context())

	links, err := h.svc.List(r.Context(), principal.UserID)
	if err != nil {
		httpx.Error(r.Context(), w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"links": links})
}

func (h *Handler) revokeLink(w http.ResponseWriter, r *http.Request) {
	principal, _ := httpx.PrincipalFrom(r.Context())

	if err := h.svc.Revoke(r.Context(), principal.UserID, r.PathValue("linkId")); err != nil {
		httpx.Error(r.Context(), w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Share link revoked"})
}
