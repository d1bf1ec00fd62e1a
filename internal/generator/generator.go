// Package generator drives the model conversation for a single query,
// including the bounded tool-calling loop.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/genai"
)

// systemPrompt steers the model toward tool-grounded answers about
// course materials. It is static; per-query conversation history is
// appended to it at call time.
const systemPrompt = `You are an AI assistant specialized in course materials and educational content with access to search and outline tools.

Search Tool Usage:
- Use the search tool **only** for questions about specific course content or detailed educational materials
- Synthesize search results into accurate, fact-based responses
- If search yields no results, state this clearly without offering alternatives

Multi-Step Reasoning:
- For complex queries requiring multiple pieces of information, you may use tools sequentially
- First tool call: gather initial information
- Based on results, you may make ONE additional tool call if needed
- Maximum 2 tool rounds per query - plan your searches efficiently

Outline Tool Usage:
- Use the outline tool for questions about course structure, lesson lists, or "what lessons are in this course"
- Returns course title, course link, and complete lesson list with numbers and titles
- Present the outline in a clear, organized format

Response Protocol:
- **General knowledge questions**: Answer using existing knowledge without searching
- **Course-specific questions**: Search first, then answer
- **Course outline/structure questions**: Use the outline tool, then present the full course title, course link, and all lesson numbers with titles
- **No meta-commentary**:
 - Provide direct answers only - no reasoning process, search explanations, or question-type analysis
 - Do not mention "based on the search results"

All responses must be:
1. **Brief, Concise and focused** - Get to the point quickly
2. **Educational** - Maintain instructional value
3. **Clear** - Use accessible language
4. **Example-supported** - Include relevant examples when they aid understanding
Provide only the direct answer to what was asked.`

// Backend is the slice of the model client the generator needs.
// Satisfied by *llm.Client; tests script it.
type Backend interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// ToolRunner dispatches tool calls requested by the model. Satisfied by
// *tools.Registry.
type ToolRunner interface {
	Declarations() []*genai.FunctionDeclaration
	Execute(ctx context.Context, name string, args map[string]any) (string, error)
}

// Config holds everything a Generator needs.
type Config struct {
	Backend   Backend
	Model     string
	MaxTokens int
	// MaxRounds caps tool-execution rounds per query. The model is
	// called at most MaxRounds+1 times.
	MaxRounds int
	Logger    *slog.Logger
}

func (c Config) validate() error {
	if c.Backend == nil {
		return errors.New("backend is required")
	}
	if c.Model == "" {
		return errors.New("model is required")
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", c.MaxTokens)
	}
	if c.MaxRounds < 0 {
		return fmt.Errorf("max rounds must be >= 0, got %d", c.MaxRounds)
	}
	return nil
}

// Generator produces answers for single queries, letting the model call
// registered tools for a bounded number of rounds.
type Generator struct {
	backend   Backend
	model     string
	maxTokens int
	maxRounds int
	logger    *slog.Logger
}

// New creates a Generator from cfg.
func New(cfg Config) (*Generator, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid generator config: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		backend:   cfg.Backend,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		maxRounds: cfg.MaxRounds,
		logger:    logger,
	}, nil
}

// Generate answers one query. history, when non-empty, is appended to
// the system instruction under a "Previous conversation" heading.
// runner may be nil, in which case the model is called once with no
// tools.
//
// The tool loop runs at most maxRounds times. Within a round every
// function call in the response is executed; a failing tool reports
// "Tool execution error: ..." back to the model and disables tools for
// the rest of the query. The final call after the last round carries no
// tool declarations, forcing a text answer.
func (g *Generator) Generate(ctx context.Context, query, history string, runner ToolRunner) (string, error) {
	system := systemPrompt
	if history != "" {
		system = fmt.Sprintf("%s\n\nPrevious conversation:\n%s", systemPrompt, history)
	}

	var decls []*genai.FunctionDeclaration
	if runner != nil {
		decls = runner.Declarations()
	}

	contents := []*genai.Content{genai.NewContentFromText(query, genai.RoleUser)}

	resp, err := g.backend.GenerateContent(ctx, g.model, contents, g.requestConfig(system, decls, true))
	if err != nil {
		return "", fmt.Errorf("generating response: %w", err)
	}

	calls := functionCalls(resp)
	if runner == nil {
		return extractText(resp), nil
	}

	for round := 1; round <= g.maxRounds && len(calls) > 0; round++ {
		contents = append(contents, resp.Candidates[0].Content)

		parts, execFailed := g.runTools(ctx, runner, calls)
		contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: parts})

		// Withhold tool declarations on the last round and after any
		// execution failure so the model must answer in text.
		allowTools := round < g.maxRounds && !execFailed

		resp, err = g.backend.GenerateContent(ctx, g.model, contents, g.requestConfig(system, decls, allowTools))
		if err != nil {
			return "", fmt.Errorf("generating response after tool round %d: %w", round, err)
		}
		calls = functionCalls(resp)
	}

	return extractText(resp), nil
}

// runTools executes every requested call and packages the outcomes as
// function responses. execFailed reports whether any tool returned an
// error; the error text itself goes back to the model as data.
func (g *Generator) runTools(ctx context.Context, runner ToolRunner, calls []*genai.FunctionCall) (parts []*genai.Part, execFailed bool) {
	for _, fc := range calls {
		output, err := runner.Execute(ctx, fc.Name, fc.Args)

		response := map[string]any{"result": output}
		if err != nil {
			response = map[string]any{"error": fmt.Sprintf("Tool execution error: %v", err)}
			execFailed = true
			g.logger.Warn("tool execution failed", "tool", fc.Name, "error", err)
		} else {
			g.logger.Debug("tool executed", "tool", fc.Name)
		}

		parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
			ID:       fc.ID,
			Name:     fc.Name,
			Response: response,
		}})
	}
	return parts, execFailed
}

func (g *Generator) requestConfig(system string, decls []*genai.FunctionDeclaration, allowTools bool) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr[float32](0),
		MaxOutputTokens:   int32(g.maxTokens),
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	}
	if allowTools && len(decls) > 0 {
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
		cfg.ToolConfig = &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{
				Mode: genai.FunctionCallingConfigModeAuto,
			},
		}
	}
	return cfg
}

// functionCalls collects the function call parts of the first
// candidate, in order.
func functionCalls(resp *genai.GenerateContentResponse) []*genai.FunctionCall {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	var calls []*genai.FunctionCall
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.FunctionCall != nil {
			calls = append(calls, part.FunctionCall)
		}
	}
	return calls
}

// extractText returns the first text part of the first candidate, or ""
// when the response carries no text.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			return part.Text
		}
	}
	return ""
}
