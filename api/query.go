package api

import (
	"encoding/json"
	"net/http"

	"github.com/lectern/lectern/internal/assistant"
	"github.com/lectern/lectern/internal/log"
	"github.com/lectern/lectern/internal/tools"
)

// MaxQueryLength bounds query bodies to keep prompts within reason.
const MaxQueryLength = 10000

// QueryHandler handles the question-answering endpoint.
type QueryHandler struct {
	assistant *assistant.Assistant
	logger    log.Logger
}

// NewQueryHandler creates a new query handler.
func NewQueryHandler(a *assistant.Assistant, logger log.Logger) *QueryHandler {
	return &QueryHandler{assistant: a, logger: logger}
}

// RegisterRoutes registers query routes on the given mux.
func (h *QueryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/query", h.query)
}

// QueryRequest is the request body for POST /api/query.
type QueryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

// QueryResponse is the response body for POST /api/query. Sources lists
// the course material the answer drew on, in citation order.
type QueryResponse struct {
	Answer    string           `json:"answer"`
	Sources   []tools.Citation `json:"sources"`
	SessionID string           `json:"session_id"`
}

// query answers one question. A request without a session id gets a
// fresh session, returned in the response for follow-up questions.
func (h *QueryHandler) query(w http.ResponseWriter, r *http.Request) {
	if h.assistant == nil {
		h.logger.Error("assistant not configured")
		writeError(w, http.StatusInternalServerError, "internal_error", "assistant not configured")
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "query is required")
		return
	}
	if len(req.Query) > MaxQueryLength {
		writeError(w, http.StatusBadRequest, "invalid_request", "query too long")
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = h.assistant.NewSession()
	}

	answer, citations, err := h.assistant.Query(r.Context(), req.Query, sessionID)
	if err != nil {
		h.logger.Error("query failed", "error", err, "request_id", RequestID(r.Context()))
		writeError(w, http.StatusInternalServerError, "query_failed", err.Error())
		return
	}

	if citations == nil {
		citations = []tools.Citation{}
	}
	writeJSON(w, http.StatusOK, QueryResponse{
		Answer:    answer,
		Sources:   citations,
		SessionID: sessionID,
	})
}
