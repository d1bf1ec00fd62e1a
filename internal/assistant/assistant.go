// Package assistant ties retrieval, session memory, tools and the
// generator together behind the query surface the API and CLI use.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lectern/lectern/internal/generator"
	"github.com/lectern/lectern/internal/session"
	"github.com/lectern/lectern/internal/tools"
)

// Answerer produces the answer for one query. Satisfied by
// *generator.Generator.
type Answerer interface {
	Generate(ctx context.Context, query, history string, runner generator.ToolRunner) (string, error)
}

// Catalog is the slice of the retrieval store the analytics surface
// needs. Satisfied by *search.Store.
type Catalog interface {
	CourseCount(ctx context.Context) (int, error)
	CourseTitles(ctx context.Context) ([]string, error)
}

// Analytics summarizes the loaded corpus.
type Analytics struct {
	TotalCourses int      `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}

// Assistant answers questions about course materials, maintaining
// per-session conversation history and collecting citations for each
// answer.
type Assistant struct {
	answerer Answerer
	registry *tools.Registry
	sessions *session.Manager
	catalog  Catalog
	logger   *slog.Logger
}

// Config holds the assistant's collaborators.
type Config struct {
	Answerer Answerer
	Registry *tools.Registry
	Sessions *session.Manager
	Catalog  Catalog
	Logger   *slog.Logger
}

// New creates an Assistant from cfg.
func New(cfg Config) (*Assistant, error) {
	if cfg.Answerer == nil {
		return nil, errors.New("answerer is required")
	}
	if cfg.Registry == nil {
		return nil, errors.New("tool registry is required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("session manager is required")
	}
	if cfg.Catalog == nil {
		return nil, errors.New("catalog is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Assistant{
		answerer: cfg.Answerer,
		registry: cfg.Registry,
		sessions: cfg.Sessions,
		catalog:  cfg.Catalog,
		logger:   logger,
	}, nil
}

// NewSession allocates a fresh conversation session and returns its id.
func (a *Assistant) NewSession() string {
	return a.sessions.Create()
}

// ClearSession drops a session's conversation history.
func (a *Assistant) ClearSession(sessionID string) {
	a.sessions.Clear(sessionID)
}

// Query answers one user question. sessionID may be empty for a
// one-shot query with no history; otherwise prior turns feed the model
// and the new exchange is recorded afterwards.
//
// Citations gathered by tools during the query are returned alongside
// the answer and cleared, so the next query starts with empty buffers.
func (a *Assistant) Query(ctx context.Context, query, sessionID string) (string, []tools.Citation, error) {
	prompt := fmt.Sprintf("Answer this question about course materials: %s", query)

	var history string
	if sessionID != "" {
		history, _ = a.sessions.History(sessionID)
	}

	answer, err := a.answerer.Generate(ctx, prompt, history, a.registry)
	if err != nil {
		a.registry.ResetCitations()
		return "", nil, fmt.Errorf("answering query: %w", err)
	}

	citations := a.registry.LastCitations()
	a.registry.ResetCitations()

	if sessionID != "" {
		a.sessions.AddExchange(sessionID, query, answer)
	}

	a.logger.Info("query answered",
		"session", sessionID,
		"query_length", len(query),
		"citations", len(citations))
	return answer, citations, nil
}

// Analytics reports how many courses are loaded and their titles.
func (a *Assistant) Analytics(ctx context.Context) (Analytics, error) {
	count, err := a.catalog.CourseCount(ctx)
	if err != nil {
		return Analytics{}, fmt.Errorf("counting courses: %w", err)
	}
	titles, err := a.catalog.CourseTitles(ctx)
	if err != nil {
		return Analytics{}, fmt.Errorf("listing courses: %w", err)
	}
	return Analytics{TotalCourses: count, CourseTitles: titles}, nil
}
