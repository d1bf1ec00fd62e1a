package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"google.golang.org/genai"
)

// Registry holds the tools available to the model, indexed by name.
//
// Thread safety: all methods take the registry lock. Tools themselves
// must be safe for the single-threaded call pattern of one query at a
// time per registry; the assistant serializes Execute, Citations and
// ResetCitations within a query.
type Registry struct {
	mu     sync.Mutex
	order  []string
	tools  map[string]Tool
	logger *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{tools: make(map[string]Tool), logger: logger}
}

// Register adds a tool under its declared name. Registering a second
// tool with the same name replaces the first; declaration order is
// preserved from the first registration.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := t.Name()
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = t
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Declarations returns the function declarations of all registered
// tools, in registration order, for inclusion in a generation request.
func (r *Registry) Declarations() []*genai.FunctionDeclaration {
	r.mu.Lock()
	defer r.mu.Unlock()

	decls := make([]*genai.FunctionDeclaration, 0, len(r.order))
	for _, name := range r.order {
		decls = append(decls, r.tools[name].Declaration())
	}
	return decls
}

// Execute dispatches a call to the named tool.
//
// An unknown name returns the text "Tool '<name>' not found" with a nil
// error: the model sometimes invents tool names, and that mistake is
// data it can recover from, not a failure of the system. Missing
// required arguments are a real execution error.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	r.mu.Lock()
	tool, ok := r.tools[name]
	r.mu.Unlock()

	if !ok {
		r.logger.Warn("unknown tool requested", "tool", name)
		return fmt.Sprintf("Tool '%s' not found", name), nil
	}

	if decl := tool.Declaration(); decl != nil && decl.Parameters != nil {
		for _, required := range decl.Parameters.Required {
			if _, present := args[required]; !present {
				return "", fmt.Errorf("tool %s: missing required argument %q", name, required)
			}
		}
	}

	return tool.Execute(ctx, args)
}

// LastCitations aggregates the citations recorded by every registered
// tool since the last reset, in registration order.
func (r *Registry) LastCitations() []Citation {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []Citation
	for _, name := range r.order {
		all = append(all, r.tools[name].Citations()...)
	}
	return all
}

// ResetCitations clears the citation buffers of every registered tool.
func (r *Registry) ResetCitations() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range r.order {
		r.tools[name].ClearCitations()
	}
}
