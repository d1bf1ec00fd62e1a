package generator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"google.golang.org/genai"

	"github.com/lectern/lectern/internal/testutil"
)

// ============================================================
// Scripted backend and tool runner
// ============================================================

type recordedCall struct {
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

// scriptedBackend returns queued responses and records every request.
type scriptedBackend struct {
	responses []*genai.GenerateContentResponse
	err       error

	calls []recordedCall
}

func (b *scriptedBackend) GenerateContent(_ context.Context, _ string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	b.calls = append(b.calls, recordedCall{contents: contents, config: config})
	if b.err != nil {
		return nil, b.err
	}
	if len(b.responses) == 0 {
		return textResponse("out of scripted responses"), nil
	}
	resp := b.responses[0]
	b.responses = b.responses[1:]
	return resp, nil
}

type executedCall struct {
	name string
	args map[string]any
}

type scriptedRunner struct {
	outputs  map[string]string
	errs     map[string]error
	executed []executedCall
}

func (r *scriptedRunner) Declarations() []*genai.FunctionDeclaration {
	return []*genai.FunctionDeclaration{
		{Name: "search_course_content"},
		{Name: "get_course_outline"},
	}
}

func (r *scriptedRunner) Execute(_ context.Context, name string, args map[string]any) (string, error) {
	r.executed = append(r.executed, executedCall{name: name, args: args})
	if err := r.errs[name]; err != nil {
		return "", err
	}
	return r.outputs[name], nil
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Role:  genai.RoleModel,
				Parts: []*genai.Part{{Text: text}},
			},
		}},
	}
}

func toolCallResponse(id, name string, args map[string]any) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Role: genai.RoleModel,
				Parts: []*genai.Part{{
					FunctionCall: &genai.FunctionCall{ID: id, Name: name, Args: args},
				}},
			},
		}},
	}
}

func newGenerator(t *testing.T, backend Backend) *Generator {
	t.Helper()
	g, err := New(Config{
		Backend:   backend,
		Model:     "gemini-2.5-flash",
		MaxTokens: 800,
		MaxRounds: 2,
		Logger:    testutil.DiscardLogger(),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return g
}

func hasTools(cfg *genai.GenerateContentConfig) bool {
	return cfg != nil && len(cfg.Tools) > 0
}

// ============================================================
// Tests
// ============================================================

func TestConfigValidation(t *testing.T) {
	backend := &scriptedBackend{}
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing backend", Config{Model: "m", MaxTokens: 800, MaxRounds: 2}},
		{"missing model", Config{Backend: backend, MaxTokens: 800, MaxRounds: 2}},
		{"zero max tokens", Config{Backend: backend, Model: "m", MaxRounds: 2}},
		{"negative rounds", Config{Backend: backend, Model: "m", MaxTokens: 800, MaxRounds: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); err == nil {
				t.Error("expected a config error")
			}
		})
	}
}

func TestGenerateDirectAnswer(t *testing.T) {
	backend := &scriptedBackend{responses: []*genai.GenerateContentResponse{
		textResponse("Paris is the capital of France."),
	}}
	g := newGenerator(t, backend)
	runner := &scriptedRunner{}

	answer, err := g.Generate(context.Background(), "What is the capital of France?", "", runner)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if answer != "Paris is the capital of France." {
		t.Errorf("answer = %q", answer)
	}
	if len(backend.calls) != 1 {
		t.Errorf("backend called %d times, want 1", len(backend.calls))
	}
	if len(runner.executed) != 0 {
		t.Error("no tools should execute for a direct answer")
	}
	if !hasTools(backend.calls[0].config) {
		t.Error("first call must offer tool declarations")
	}
}

func TestGenerateWithoutRunner(t *testing.T) {
	backend := &scriptedBackend{responses: []*genai.GenerateContentResponse{
		textResponse("answer"),
	}}
	g := newGenerator(t, backend)

	answer, err := g.Generate(context.Background(), "q", "", nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if answer != "answer" {
		t.Errorf("answer = %q", answer)
	}
	if hasTools(backend.calls[0].config) {
		t.Error("no declarations should be sent without a runner")
	}
}

func TestGenerateSingleToolRound(t *testing.T) {
	backend := &scriptedBackend{responses: []*genai.GenerateContentResponse{
		toolCallResponse("call_1", "search_course_content", map[string]any{"query": "normalization"}),
		textResponse("Normalization removes redundancy."),
	}}
	g := newGenerator(t, backend)
	runner := &scriptedRunner{outputs: map[string]string{
		"search_course_content": "[DB Course - Lesson 2]\nNormalization...",
	}}

	answer, err := g.Generate(context.Background(), "What is normalization?", "", runner)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if answer != "Normalization removes redundancy." {
		t.Errorf("answer = %q", answer)
	}
	if len(backend.calls) != 2 {
		t.Fatalf("backend called %d times, want 2", len(backend.calls))
	}
	if len(runner.executed) != 1 || runner.executed[0].name != "search_course_content" {
		t.Fatalf("executed = %+v", runner.executed)
	}
	if runner.executed[0].args["query"] != "normalization" {
		t.Errorf("args = %v", runner.executed[0].args)
	}

	// Second request replays the query, the model's tool call, and the
	// function response.
	second := backend.calls[1]
	if len(second.contents) != 3 {
		t.Fatalf("second call has %d contents, want 3", len(second.contents))
	}
	fr := second.contents[2].Parts[0].FunctionResponse
	if fr == nil || fr.Name != "search_course_content" || fr.ID != "call_1" {
		t.Errorf("function response = %+v", fr)
	}
	if fr.Response["result"] != "[DB Course - Lesson 2]\nNormalization..." {
		t.Errorf("result payload = %v", fr.Response)
	}
	if !hasTools(second.config) {
		t.Error("tools should still be offered before the final round")
	}
}

func TestGenerateUsesAllRounds(t *testing.T) {
	backend := &scriptedBackend{responses: []*genai.GenerateContentResponse{
		toolCallResponse("call_1", "get_course_outline", map[string]any{"course_name": "DB"}),
		toolCallResponse("call_2", "search_course_content", map[string]any{"query": "lesson 4 topic"}),
		textResponse("Lesson 4 covers joins."),
	}}
	g := newGenerator(t, backend)
	runner := &scriptedRunner{outputs: map[string]string{
		"get_course_outline":    "Course: DB\nLessons:\nLesson 4: Joins",
		"search_course_content": "[DB - Lesson 4]\nJoins combine tables.",
	}}

	answer, err := g.Generate(context.Background(), "What does lesson 4 of DB cover?", "", runner)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if answer != "Lesson 4 covers joins." {
		t.Errorf("answer = %q", answer)
	}
	if len(backend.calls) != 3 {
		t.Fatalf("backend called %d times, want max rounds + 1", len(backend.calls))
	}
	if len(runner.executed) != 2 {
		t.Fatalf("executed %d tools, want 2", len(runner.executed))
	}
	if hasTools(backend.calls[2].config) {
		t.Error("final call must omit tool declarations")
	}
}

func TestGenerateCapsBackendCalls(t *testing.T) {
	// The model keeps asking for tools; the loop must still stop after
	// maxRounds executions and maxRounds+1 calls.
	backend := &scriptedBackend{responses: []*genai.GenerateContentResponse{
		toolCallResponse("c1", "search_course_content", map[string]any{"query": "a"}),
		toolCallResponse("c2", "search_course_content", map[string]any{"query": "b"}),
		toolCallResponse("c3", "search_course_content", map[string]any{"query": "c"}),
		toolCallResponse("c4", "search_course_content", map[string]any{"query": "d"}),
	}}
	g := newGenerator(t, backend)
	runner := &scriptedRunner{outputs: map[string]string{"search_course_content": "text"}}

	answer, err := g.Generate(context.Background(), "q", "", runner)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if answer != "" {
		t.Errorf("answer = %q, want empty for a tool-only final response", answer)
	}
	if len(backend.calls) != 3 {
		t.Errorf("backend called %d times, want 3", len(backend.calls))
	}
	if len(runner.executed) != 2 {
		t.Errorf("executed %d tools, want 2", len(runner.executed))
	}
}

func TestGenerateToolErrorDisablesFurtherRounds(t *testing.T) {
	backend := &scriptedBackend{responses: []*genai.GenerateContentResponse{
		toolCallResponse("c1", "search_course_content", map[string]any{"query": "a"}),
		textResponse("I could not search the course content."),
	}}
	g := newGenerator(t, backend)
	runner := &scriptedRunner{errs: map[string]error{
		"search_course_content": errors.New("connection refused"),
	}}

	answer, err := g.Generate(context.Background(), "q", "", runner)
	if err != nil {
		t.Fatalf("tool failure must not fail the query: %v", err)
	}
	if answer != "I could not search the course content." {
		t.Errorf("answer = %q", answer)
	}

	second := backend.calls[1]
	if hasTools(second.config) {
		t.Error("tools must be withheld after an execution error")
	}
	fr := second.contents[2].Parts[0].FunctionResponse
	errText, _ := fr.Response["error"].(string)
	if !strings.Contains(errText, "Tool execution error:") || !strings.Contains(errText, "connection refused") {
		t.Errorf("error payload = %v", fr.Response)
	}
}

func TestGenerateParallelCallsOneRound(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Role: genai.RoleModel,
				Parts: []*genai.Part{
					{FunctionCall: &genai.FunctionCall{ID: "c1", Name: "search_course_content", Args: map[string]any{"query": "a"}}},
					{FunctionCall: &genai.FunctionCall{ID: "c2", Name: "get_course_outline", Args: map[string]any{"course_name": "DB"}}},
				},
			},
		}},
	}
	backend := &scriptedBackend{responses: []*genai.GenerateContentResponse{
		resp,
		textResponse("combined answer"),
	}}
	g := newGenerator(t, backend)
	runner := &scriptedRunner{outputs: map[string]string{
		"search_course_content": "content",
		"get_course_outline":    "outline",
	}}

	if _, err := g.Generate(context.Background(), "q", "", runner); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(runner.executed) != 2 {
		t.Fatalf("executed %d tools, want both calls in one round", len(runner.executed))
	}
	if len(backend.calls) != 2 {
		t.Errorf("backend called %d times, want 2", len(backend.calls))
	}
	if got := len(backend.calls[1].contents[2].Parts); got != 2 {
		t.Errorf("second call carries %d function responses, want 2", got)
	}
}

func TestGenerateHistoryInSystemInstruction(t *testing.T) {
	backend := &scriptedBackend{responses: []*genai.GenerateContentResponse{
		textResponse("answer"),
	}}
	g := newGenerator(t, backend)

	history := "User: What is SQL?\nAssistant: A query language."
	if _, err := g.Generate(context.Background(), "Tell me more", history, &scriptedRunner{}); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	system := backend.calls[0].config.SystemInstruction.Parts[0].Text
	if !strings.Contains(system, "Previous conversation:\n"+history) {
		t.Errorf("system instruction missing history:\n%s", system)
	}

	backend.responses = []*genai.GenerateContentResponse{textResponse("answer")}
	if _, err := g.Generate(context.Background(), "q", "", &scriptedRunner{}); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	system = backend.calls[1].config.SystemInstruction.Parts[0].Text
	if strings.Contains(system, "Previous conversation") {
		t.Error("empty history must not add a conversation section")
	}
}

func TestGenerateBackendError(t *testing.T) {
	backend := &scriptedBackend{err: errors.New("rate limited")}
	g := newGenerator(t, backend)

	if _, err := g.Generate(context.Background(), "q", "", &scriptedRunner{}); err == nil {
		t.Fatal("backend failure must surface as an error")
	}
}

func TestExtractText(t *testing.T) {
	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
		want string
	}{
		{"nil response", nil, ""},
		{"no candidates", &genai.GenerateContentResponse{}, ""},
		{
			"first text part wins",
			&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []*genai.Part{
					{FunctionCall: &genai.FunctionCall{Name: "x"}},
					{Text: "first"},
					{Text: "second"},
				}},
			}}},
			"first",
		},
		{
			"tool-only response",
			toolCallResponse("c", "x", nil),
			"",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractText(tt.resp); got != tt.want {
				t.Errorf("extractText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGenerateZeroRounds(t *testing.T) {
	backend := &scriptedBackend{responses: []*genai.GenerateContentResponse{
		toolCallResponse("c1", "search_course_content", map[string]any{"query": "a"}),
	}}
	g, err := New(Config{
		Backend:   backend,
		Model:     "gemini-2.5-flash",
		MaxTokens: 800,
		MaxRounds: 0,
		Logger:    testutil.DiscardLogger(),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	runner := &scriptedRunner{}

	answer, err := g.Generate(context.Background(), "q", "", runner)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if answer != "" {
		t.Errorf("answer = %q", answer)
	}
	if len(backend.calls) != 1 {
		t.Errorf("backend called %d times, want 1 with zero rounds", len(backend.calls))
	}
	if len(runner.executed) != 0 {
		t.Error("no tools may execute with zero rounds")
	}
}
