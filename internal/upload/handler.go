package upload

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/driftlabs/driftbox/internal/common"
	"github.com/driftlabs/driftbox/internal/httpx"
	"github.com/driftlabs/driftbox/internal/logging"
)

// Handler exposes the upload pipeline over HTTP.
type Handler struct {
	svc *Service
	log logging.Logger
}

func NewHandler(svc *Service, log logging.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Register mounts the authenticated upload routes on mux.
func (h *Handler) Register(mux *http.ServeMux, authenticate func(http.Handler) http.Handler) {
	mux.Handle("POST /upload/init", authenticate(http.HandlerFunc(h.initUpload)))
	mux.Handle("POST /upload/chunk", authenticate(http.HandlerFunc(h.uploadChunk)))
	mux.Handle("POST /upload/complete", authenticate(http.HandlerFunc(h.completeUpload)))
	mux.Handle("GET /upload/status/{sessionId}", authenticate(http.HandlerFunc(h.uploadStatus)))
	mux.Handle("GET /upload/download/{fileId}", authenticate(http.HandlerFunc(h.downloadFile)))
}

func (h *Handler) initUpload(w http.ResponseWriter, r *http.Request) {
	principal, _ := httpx.PrincipalFrom(r.Context())

	var req InitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(r.Context(), w, h.log, fmt.Errorf("invalid json body: %w", common.ErrValidation))
		return
	}

	resp, err := h.svc.Init(r.Context(), principal.UserID, req)
	if err != nil {
		httpx.Error(r.Context(), w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, resp)
}

func (h *Handler) uploadChunk(w http.ResponseWriter, r *http.Request) {
	principal, _ := httpx.PrincipalFrom(r.Context())

	// One chunk plus multipart overhead.
	r.Body = http.MaxBytesReader(w, r.Body, h.svc.cfg.ChunkSize+1<<20)

	if err := r.ParseMultipartForm(h.svc.cfg.ChunkSize + 1<<20); err != nil {
		httpx.Error(r.Context(), w, h.log, fmt.Errorf("invalid multipart body: %w", common.ErrValidation))
		return
	}

	sessionID := r.FormValue("sessionId")
	indexRaw := r.FormValue("chunkIndex")
	if sessionID == "" || indexRaw == "" {
		httpx.Error(r.Context(), w, h.log, fmt.Errorf("sessionId and chunkIndex are required: %w", common.ErrValidation))
		return
	}
	index, err := strconv.Atoi(indexRaw)
	if err != nil {
		httpx.Error(r.Context(), w, h.log, fmt.Errorf("chunkIndex must be an integer: %w", common.ErrValidation))
		return
	}

	chunkFile, _, err := r.FormFile("chunk")
	if err != nil {
		httpx.Error(r.Context(), w, h.log, fmt.Errorf("chunk file is required: %w", common.ErrValidation))
		return
	}
	defer chunkFile.Close()

	data, err := io.ReadAll(chunkFile)
	if err != nil {
		httpx.Error(r.Context(), w, h.log, fmt.Errorf("failed to read chunk: %w", common.ErrValidation))
		return
	}

	resp, err := h.svc.PutChunk(r.Context(), principal.UserID, sessionID, index, data)
	if err != nil {
		httpx.Error(r.Context(), w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) completeUpload(w http.ResponseWriter, r *http.Request) {
	principal, _ := httpx.PrincipalFrom(r.Context())

	var req struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		httpx.Error(r.Context(), w, h.log, fmt.Errorf("sessionId is required: %w", common.ErrValidation))
		return
	}

	file, err := h.svc.Complete(r.Context(), principal.UserID, req.SessionID)
	if err != nil {
		httpx.Error(r.Context(), w, h.log, err)
		return
	}

	httpx.JSON(w, http.StatusCreated, map[string]any{
		"message": "File uploaded successfully",
		"file":    file,
	})
}

func (h *Handler) uploadStatus(w http.ResponseWriter, r *http.Request) {
	principal, _ := httpx.PrincipalFrom(r.Context())

	resp, err := h.svc.Status(r.Context(), principal.UserID, r.PathValue("sessionId"))
	if err != nil {
		httpx.Error(r.Context(), w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) downloadFile(w http.ResponseWriter, r *http.Request) {
	principal, _ := httpx.PrincipalFrom(r.Context())

	resp, err := h.svc.Download(r.Context(), principal.UserID, r.PathValue("fileId"))
	if err != nil {
		httpx.Error(r.Context(), w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}
