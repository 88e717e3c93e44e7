package chat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ziadkadry99/kbchat/internal/origin"
	"github.com/ziadkadry99/kbchat/internal/tenant"
)

// Path is where the chat endpoint is mounted.
const Path = "/api/chat"

const maxBodyBytes = 1 << 20

const (
	msgMissingFields = "Missing bot_id or message"
	msgBotNotFound   = "Bot not found"
	msgOriginDenied  = "Origin not allowed"
	msgNoAPIKey      = "No API key configured. Add an API key in the bot settings or set a default key on the server."
	msgInvalidBody   = "Invalid request body"
)

// Handler serves the public chat endpoint.
type Handler struct {
	pipeline *Pipeline
	log      *zap.Logger
}

// NewHandler creates a Handler over p.
func NewHandler(p *Pipeline, log *zap.Logger) *Handler {
	return &Handler{pipeline: p, log: log}
}

// RegisterRoutes mounts the chat endpoint and its preflight on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Options(Path, h.preflight)
	r.Post(Path, h.chat)
}

// preflight answers before the bot is known, so it cannot be origin-specific.
func (h *Handler) preflight(w http.ResponseWriter, r *http.Request) {
	setCORS(w, "*")
	w.Header().Set("Access-Control-Max-Age", "86400")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) chat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		setCORS(w, "*")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgInvalidBody})
		return
	}

	callerOrigin := origin.FromRequest(r)
	resp, err := h.pipeline.Handle(r.Context(), req, callerOrigin)
	if err != nil {
		setCORS(w, "*")
		status, msg := h.classify(err, req.BotID)
		writeJSON(w, status, errorResponse{Error: msg})
		return
	}

	pinned := callerOrigin
	if pinned == "" {
		pinned = "*"
	}
	setCORS(w, pinned)
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) classify(err error, botID string) (int, string) {
	switch {
	case errors.Is(err, ErrMissingFields):
		return http.StatusBadRequest, msgMissingFields
	case errors.Is(err, tenant.ErrBotNotFound):
		return http.StatusNotFound, msgBotNotFound
	case errors.Is(err, origin.ErrNotAllowed):
		return http.StatusForbidden, msgOriginDenied
	case errors.Is(err, tenant.ErrNoAPIKey):
		return http.StatusBadRequest, msgNoAPIKey
	}
	h.log.Error("chat turn failed", zap.String("bot_id", botID), zap.Error(err))
	return http.StatusInternalServerError, err.Error()
}

func setCORS(w http.ResponseWriter, allowOrigin string) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", allowOrigin)
	h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
	if allowOrigin != "*" {
		h.Add("Vary", "Origin")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
