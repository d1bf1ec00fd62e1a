package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/lectern/lectern/internal/course"
)

// OutlineStore is the slice of the retrieval store the outline tool
// needs. Satisfied by *search.Store.
type OutlineStore interface {
	ResolveCourseName(ctx context.Context, name string) (string, bool, error)
	Outline(ctx context.Context, title string) (course.Course, error)
}

// OutlineTool returns a course's full outline: title, link and the
// ordered lesson list. It records exactly one course-level citation per
// successful call.
type OutlineTool struct {
	store     OutlineStore
	logger    *slog.Logger
	citations []Citation
}

// NewOutlineTool creates the course outline tool.
func NewOutlineTool(store OutlineStore, logger *slog.Logger) *OutlineTool {
	if logger == nil {
		logger = slog.Default()
	}
	return &OutlineTool{store: store, logger: logger}
}

func (t *OutlineTool) Name() string { return "get_course_outline" }

func (t *OutlineTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: "Get the complete outline of a course including its title, link, and all lessons",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"course_name": {
					Type:        genai.TypeString,
					Description: "Course title (partial matches work, e.g. 'MCP', 'Introduction')",
				},
			},
			Required: []string{"course_name"},
		},
	}
}

// Execute resolves the course name and returns its formatted outline.
// An unresolvable name is a text result, not an error.
func (t *OutlineTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	courseName, _ := args["course_name"].(string)

	title, ok, err := t.store.ResolveCourseName(ctx, courseName)
	if err != nil {
		return "", fmt.Errorf("resolving course name: %w", err)
	}
	if !ok {
		return fmt.Sprintf("No course found matching '%s'", courseName), nil
	}

	c, err := t.store.Outline(ctx, title)
	if err != nil {
		return "", fmt.Errorf("loading course outline: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Course: %s\n", c.Title)
	if c.Link != "" {
		fmt.Fprintf(&b, "Course Link: %s\n", c.Link)
	}
	fmt.Fprintf(&b, "Lessons:\n")
	for _, l := range c.Lessons {
		fmt.Fprintf(&b, "Lesson %d: %s\n", l.Number, l.Title)
	}

	t.citations = append(t.citations, Citation{Title: c.Title, URL: c.Link})
	return strings.TrimRight(b.String(), "\n"), nil
}

func (t *OutlineTool) Citations() []Citation {
	out := make([]Citation, len(t.citations))
	copy(out, t.citations)
	return out
}

func (t *OutlineTool) ClearCitations() { t.citations = nil }
