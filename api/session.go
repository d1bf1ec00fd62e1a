package api

import (
	"encoding/json"
	"net/http"

	"github.com/lectern/lectern/internal/assistant"
	"github.com/lectern/lectern/internal/log"
)

// SessionHandler handles session-related HTTP endpoints.
type SessionHandler struct {
	assistant *assistant.Assistant
	logger    log.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(a *assistant.Assistant, logger log.Logger) *SessionHandler {
	return &SessionHandler{assistant: a, logger: logger}
}

// RegisterRoutes registers session routes on the given mux.
func (h *SessionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/sessions", h.create)
	mux.HandleFunc("POST /api/sessions/clear", h.clear)
}

// CreateSessionResponse is the response body for POST /api/sessions.
type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
}

// create allocates a fresh conversation session.
func (h *SessionHandler) create(w http.ResponseWriter, _ *http.Request) {
	if h.assistant == nil {
		h.logger.Error("assistant not configured")
		writeError(w, http.StatusInternalServerError, "internal_error", "assistant not configured")
		return
	}
	writeJSON(w, http.StatusCreated, CreateSessionResponse{SessionID: h.assistant.NewSession()})
}

// ClearSessionRequest is the request body for POST /api/sessions/clear.
type ClearSessionRequest struct {
	SessionID string `json:"session_id"`
}

// clear drops a session's conversation history. Clearing an unknown
// session succeeds; the operation is idempotent.
func (h *SessionHandler) clear(w http.ResponseWriter, r *http.Request) {
	if h.assistant == nil {
		h.logger.Error("assistant not configured")
		writeError(w, http.StatusInternalServerError, "internal_error", "assistant not configured")
		return
	}

	var req ClearSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "session_id is required")
		return
	}

	h.assistant.ClearSession(req.SessionID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
