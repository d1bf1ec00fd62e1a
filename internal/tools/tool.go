// Package tools provides the function-calling tools exposed to the
// model and the registry that dispatches calls by name.
package tools

import (
	"context"

	"google.golang.org/genai"
)

// Citation points a user at the source material behind part of an
// answer. URL may be empty when neither the lesson nor the course has a
// link on record.
type Citation struct {
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

// Tool is a single model-invocable function. Tools accumulate citations
// as a side effect of execution; the caller drains them via Citations
// and clears them with ClearCitations between queries.
//
// Execute returns the tool's output as text for the model. An error
// return means the tool itself failed (backend outage, bad database);
// domain-level misses such as "no course found" are ordinary text
// results, not errors.
type Tool interface {
	Name() string
	Declaration() *genai.FunctionDeclaration
	Execute(ctx context.Context, args map[string]any) (string, error)
	Citations() []Citation
	ClearCitations()
}
