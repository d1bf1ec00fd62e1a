// Package llm wraps the Gemini SDK behind the two narrow capabilities
// the rest of lectern needs: content generation and text embedding.
package llm

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// Client is a rate-limited Gemini API client.
//
// Client is safe for concurrent use by multiple goroutines.
type Client struct {
	client     *genai.Client
	limiter    *rate.Limiter
	embedModel string
	embedDim   int32
	logger     *slog.Logger
}

// Config contains the parameters for NewClient.
type Config struct {
	APIKey        string
	EmbedderModel string
	EmbedderDim   int

	// Limiter is optional; nil installs the default of 10 requests/sec
	// sustained with a burst of 30.
	Limiter *rate.Limiter

	Logger *slog.Logger
}

// NewClient creates a Gemini client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if cfg.EmbedderModel == "" {
		return nil, fmt.Errorf("embedder model is required")
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	limiter := cfg.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(10, 30)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		client:     gc,
		limiter:    limiter,
		embedModel: cfg.EmbedderModel,
		embedDim:   int32(cfg.EmbedderDim), // #nosec G115 -- dimension validated by config
		logger:     logger,
	}, nil
}

// GenerateContent issues one generation call. The caller owns the
// message list and config. No retry is attempted; a failed call fails
// the whole query.
func (c *Client) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	resp, err := c.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	return resp, nil
}

// Embed generates a vector embedding for the given text, truncated to
// the configured output dimensionality.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	dim := c.embedDim
	resp, err := c.client.Models.EmbedContent(ctx, c.embedModel,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
		&genai.EmbedContentConfig{OutputDimensionality: &dim},
	)
	if err != nil {
		return nil, fmt.Errorf("embedding text: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("empty embedding response")
	}
	return resp.Embeddings[0].Values, nil
}
