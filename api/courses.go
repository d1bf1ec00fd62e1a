package api

import (
	"net/http"

	"github.com/lectern/lectern/internal/assistant"
	"github.com/lectern/lectern/internal/log"
)

// CoursesHandler serves corpus analytics.
type CoursesHandler struct {
	assistant *assistant.Assistant
	logger    log.Logger
}

// NewCoursesHandler creates a new courses handler.
func NewCoursesHandler(a *assistant.Assistant, logger log.Logger) *CoursesHandler {
	return &CoursesHandler{assistant: a, logger: logger}
}

// RegisterRoutes registers course routes on the given mux.
func (h *CoursesHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/courses", h.stats)
}

// stats returns the loaded course count and titles.
func (h *CoursesHandler) stats(w http.ResponseWriter, r *http.Request) {
	if h.assistant == nil {
		h.logger.Error("assistant not configured")
		writeError(w, http.StatusInternalServerError, "internal_error", "assistant not configured")
		return
	}

	analytics, err := h.assistant.Analytics(r.Context())
	if err != nil {
		h.logger.Error("course analytics failed", "error", err)
		writeError(w, http.StatusInternalServerError, "analytics_failed", err.Error())
		return
	}
	if analytics.CourseTitles == nil {
		analytics.CourseTitles = []string{}
	}
	writeJSON(w, http.StatusOK, analytics)
}
