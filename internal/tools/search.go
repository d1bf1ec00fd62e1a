package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/lectern/lectern/internal/search"
)

// SearchStore is the slice of the retrieval store the search tool
// needs. Satisfied by *search.Store.
type SearchStore interface {
	Search(ctx context.Context, query string, opts ...search.SearchOption) (search.Results, error)
	LessonLink(ctx context.Context, courseTitle string, lessonNumber int) (string, error)
	CourseLink(ctx context.Context, title string) (string, error)
}

// SearchTool searches course content and formats retrieved passages for
// the model, recording one citation per distinct source.
type SearchTool struct {
	store     SearchStore
	logger    *slog.Logger
	citations []Citation
}

// NewSearchTool creates the content search tool.
func NewSearchTool(store SearchStore, logger *slog.Logger) *SearchTool {
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchTool{store: store, logger: logger}
}

func (t *SearchTool) Name() string { return "search_course_content" }

func (t *SearchTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: "Search course materials with smart course name matching and lesson filtering",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"query": {
					Type:        genai.TypeString,
					Description: "What to search for in the course content",
				},
				"course_name": {
					Type:        genai.TypeString,
					Description: "Course title (partial matches work, e.g. 'MCP', 'Introduction')",
				},
				"lesson_number": {
					Type:        genai.TypeInteger,
					Description: "Specific lesson number to search within (e.g. 1, 2, 3)",
				},
			},
			Required: []string{"query"},
		},
	}
}

// Execute runs the search described by args and returns the formatted
// passages. A search that finds nothing, or names a course that does
// not exist, returns an explanatory text result rather than an error.
func (t *SearchTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	query, _ := args["query"].(string)
	courseName, _ := args["course_name"].(string)

	var opts []search.SearchOption
	if courseName != "" {
		opts = append(opts, search.WithCourseName(courseName))
	}
	var lessonNumber *int
	if raw, ok := args["lesson_number"]; ok {
		if n, ok := asInt(raw); ok {
			lessonNumber = &n
			opts = append(opts, search.WithLessonNumber(n))
		}
	}

	res, err := t.store.Search(ctx, query, opts...)
	if err != nil {
		return "", fmt.Errorf("searching course content: %w", err)
	}
	if res.Err != "" {
		return res.Err, nil
	}
	if res.IsEmpty() {
		var filterInfo strings.Builder
		if courseName != "" {
			fmt.Fprintf(&filterInfo, " in course '%s'", courseName)
		}
		if lessonNumber != nil {
			fmt.Fprintf(&filterInfo, " in lesson %d", *lessonNumber)
		}
		return fmt.Sprintf("No relevant content found%s.", filterInfo.String()), nil
	}

	return t.formatResults(ctx, res), nil
}

// formatResults renders passages under "[Course - Lesson N]" headers
// and records one citation per distinct (course, lesson) pair, in first
// appearance order.
func (t *SearchTool) formatResults(ctx context.Context, res search.Results) string {
	type sourceKey struct {
		course string
		lesson int // -1 when the chunk has no lesson
	}
	seen := make(map[sourceKey]bool)

	var blocks []string
	for i, doc := range res.Documents {
		meta := res.Metadata[i]

		header := fmt.Sprintf("[%s]", meta.CourseTitle)
		key := sourceKey{course: meta.CourseTitle, lesson: -1}
		if meta.LessonNumber != nil {
			header = fmt.Sprintf("[%s - Lesson %d]", meta.CourseTitle, *meta.LessonNumber)
			key.lesson = *meta.LessonNumber
		}
		blocks = append(blocks, header+"\n"+doc)

		if seen[key] {
			continue
		}
		seen[key] = true
		t.citations = append(t.citations, t.citation(ctx, meta))
	}

	return strings.Join(blocks, "\n\n")
}

// citation builds the citation for one source, preferring the lesson
// link over the course link. Link lookup failures degrade to a citation
// without a URL; they never fail the search.
func (t *SearchTool) citation(ctx context.Context, meta search.ResultMeta) Citation {
	title := meta.CourseTitle
	if meta.LessonNumber != nil {
		title = fmt.Sprintf("%s - Lesson %d", meta.CourseTitle, *meta.LessonNumber)

		link, err := t.store.LessonLink(ctx, meta.CourseTitle, *meta.LessonNumber)
		if err != nil {
			t.logger.Warn("lesson link lookup failed",
				"course", meta.CourseTitle, "lesson", *meta.LessonNumber, "error", err)
		} else if link != "" {
			return Citation{Title: title, URL: link}
		}
	}

	link, err := t.store.CourseLink(ctx, meta.CourseTitle)
	if err != nil {
		t.logger.Warn("course link lookup failed", "course", meta.CourseTitle, "error", err)
		link = ""
	}
	return Citation{Title: title, URL: link}
}

func (t *SearchTool) Citations() []Citation {
	out := make([]Citation, len(t.citations))
	copy(out, t.citations)
	return out
}

func (t *SearchTool) ClearCitations() { t.citations = nil }

// asInt coerces a decoded JSON number to int. Function call arguments
// arrive as float64.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	default:
		return 0, false
	}
}
