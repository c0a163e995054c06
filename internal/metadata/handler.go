package metadata

import (
	"net/http"
	"strconv"

	"github.com/driftlabs/driftbox/internal/httpx"
	"github.com/driftlabs/driftbox/internal/logging"
)

// Handler exposes file metadata operations over HTTP.
type Handler struct {
	svc *Service
	log logging.Logger
}

func NewHandler(svc *Service, log logging.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Register mounts the authenticated metadata routes on mux.
func (h *Handler) Register(mux *http.ServeMux, authenticate func(http.Handler) http.Handler) {
	mux.Handle("GET /files", authenticate(http.HandlerFunc(h.listFiles)))
	mux.Handle("GET /files/search", authenticate(http.HandlerFunc(h.searchFiles)))
	mux.Handle("GET /files/{fileId}", authenticate(http.HandlerFunc(h.getFile)))
	mux.Handle("DELETE /files/{fileId}", authenticate(http.HandlerFunc(h.deleteFile)))
	mux.Handle("GET /files/{fileId}/versions", authenticate(http.HandlerFunc(h.listVersions)))
	mux.Handle("POST /files/{fileId}/restore/{versionId}", authenticate(http.HandlerFunc(h.restoreVersion)))
}

func (h *Handler) listFiles(w http.ResponseWriter, r *http.Request) {
	principal, _ := httpx.PrincipalFrom(r.Context())
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	resp, err := h.svc.List(r.Context(), principal.UserID, q.Get("folderPath"), page, limit)
	if err != nil {
		httpx.Error(r.Context(), w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) searchFiles(w http.ResponseWriter, r *http.Request) {
	principal, _ := httpx.PrincipalFrom(r.Context())

	results, err := h.svc.Search(r.Context(), principal.UserID, r.URL.Query().Get("q"))
	if err != nil {
		httpx.Error(r.Context(), w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"results": results, "count": len(results)})
}

func (h *Handler) getFile(w http.ResponseWriter, r *http.Request) {
	principal, _ := httpx.PrincipalFrom(r.Context())

	file, err := h.svc.Get(r.Context(), principal.UserID, r.PathValue("fileId"))
	if err != nil {
		httpx.Error(r.Context(), w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, file)
}

func (h *Handler) deleteFile(w http.ResponseWriter, r *http.Request) {
	principal, _ := httpx.PrincipalFrom(r.Context())

	if err := h.svc.Delete(r.Context(), principal.UserID, r.PathValue("fileId")); err != nil {
		httpx.Error(r.Context(), w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "File deleted"})
}

func (h *Handler) listVersions(w http.ResponseWriter, r *http.Request) {
	principal, _ := httpx.PrincipalFrom(r.Context())

	versions, err := h.svc.ListVersions(r.Context(), principal.UserID, r.PathValue("fileId"))
	if err != nil {
		httpx.Error(r.Context(), w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"versions": versions})
}

func (h *Handler) restoreVersion(w http.ResponseWriter, r *http.Request) {
	principal, _ := httpx.PrincipalFrom(r.Context())

	resp, err := h.svc.Restore(r.Context(), principal.UserID, r.PathValue("fileId"), r.PathValue("versionId"))
	if err != nil {
		httpx.Error(r.Context(), w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}
