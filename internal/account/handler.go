package account

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/driftlabs/driftbox/internal/common"
	"github.com/driftlabs/driftbox/internal/httpx"
	"github.com/driftlabs/driftbox/internal/logging"
)

// Handler exposes the account lifecycle over HTTP.
type Handler struct {
	svc *Service
	log logging.Logger
}

func NewHandler(svc *Service, log logging.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Register mounts the account routes on mux.
func (h *Handler) Register(mux *http.ServeMux, authenticate func(http.Handler) http.Handler) {
	mux.HandleFunc("POST /auth/signup", h.signup)
	mux.HandleFunc("POST /auth/login", h.login)
	mux.HandleFunc("POST /auth/refresh", h.refresh)
	mux.HandleFunc("POST /auth/logout", h.logout)
	mux.Handle("GET /auth/me", authenticate(http.HandlerFunc(h.me)))
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	creds, err := decodeCredentials(r)
	if err != nil {
		httpx.Error(r.Context(), w, h.log, err)
		return
	}

	pair, err := h.svc.Signup(r.Context(), creds)
	if err != nil {
		httpx.Error(r.Context(), w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, pair)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	creds, err := decodeCredentials(r)
	if err != nil {
		httpx.Error(r.Context(), w, h.log, err)
		return
	}

	pair, err := h.svc.Login(r.Context(), creds)
	if err != nil {
		httpx.Error(r.Context(), w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, pair)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	token, err := decodeRefreshToken(r)
	if err != nil {
		httpx.Error(r.Context(), w, h.log, err)
		return
	}

	pair, err := h.svc.Refresh(r.Context(), token)
	if err != nil {
		httpx.Error(r.Context(), w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, pair)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	token, err := decodeRefreshToken(r)
	if err != nil {
		httpx.Error(r.Context(), w, h.log, err)
		return
	}

	if err := h.svc.Logout(r.Context(), token); err != nil {
		httpx.Error(r.Context(), w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	principal, _ := httpx.PrincipalFrom(r.Context())

	user, err := h.svc.Me(r.Context(), principal.UserID)
	if err != nil {
		httpx.Error(r.Context(), w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func decodeCredentials(r *http.Request) (Credentials, error) {
	var creds Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		return creds, fmt.Errorf("invalid json body: %w", common.ErrValidation)
	}
	return creds, nil
}

func decodeRefreshToken(r *http.Request) (string, error) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		return "", fmt.Errorf("refreshToken is required: %w", common.ErrValidation)
	}
	return req.RefreshToken, nil
}
