// Package app wires the application together: database, model client,
// retrieval store, tools, sessions and the assistant.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lectern/lectern/internal/assistant"
	"github.com/lectern/lectern/internal/config"
	"github.com/lectern/lectern/internal/course"
	"github.com/lectern/lectern/internal/database"
	"github.com/lectern/lectern/internal/generator"
	"github.com/lectern/lectern/internal/llm"
	"github.com/lectern/lectern/internal/log"
	"github.com/lectern/lectern/internal/search"
	"github.com/lectern/lectern/internal/session"
	"github.com/lectern/lectern/internal/tools"
)

// App holds the initialized application components. Call Close when
// done to release the database pool.
type App struct {
	Config *config.Config
	Logger log.Logger

	Pool      *pgxpool.Pool
	LLM       *llm.Client
	Store     *search.Store
	Registry  *tools.Registry
	Sessions  *session.Manager
	Assistant *assistant.Assistant
}

// Setup connects to PostgreSQL, runs migrations, and builds the full
// component graph. The returned App is ready to serve queries.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if cfg.APIKey() == "" {
		return nil, fmt.Errorf("%w: set GEMINI_API_KEY", config.ErrMissingAPIKey)
	}

	pool, err := database.Connect(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	defer func() {
		if retErr != nil {
			pool.Close()
		}
	}()

	if err := database.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	client, err := llm.NewClient(ctx, llm.Config{
		APIKey:        cfg.APIKey(),
		EmbedderModel: cfg.EmbedderModel,
		EmbedderDim:   config.EmbedderDimension,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating model client: %w", err)
	}

	store, err := search.NewStore(pool, client, cfg.MaxResults, logger)
	if err != nil {
		return nil, fmt.Errorf("creating retrieval store: %w", err)
	}

	registry := tools.NewRegistry(logger)
	registry.Register(tools.NewSearchTool(store, logger))
	registry.Register(tools.NewOutlineTool(store, logger))

	gen, err := generator.New(generator.Config{
		Backend:   client,
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
		MaxRounds: cfg.MaxToolRounds,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating generator: %w", err)
	}

	sessions := session.NewManager(cfg.MaxHistory)

	asst, err := assistant.New(assistant.Config{
		Answerer: gen,
		Registry: registry,
		Sessions: sessions,
		Catalog:  store,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating assistant: %w", err)
	}

	return &App{
		Config:    cfg,
		Logger:    logger,
		Pool:      pool,
		LLM:       client,
		Store:     store,
		Registry:  registry,
		Sessions:  sessions,
		Assistant: asst,
	}, nil
}

// NewLoader builds a document loader over the app's retrieval store
// using the configured chunking parameters.
func (a *App) NewLoader() *course.Loader {
	return course.NewLoader(a.Store, a.Config.ChunkSize, a.Config.ChunkOverlap, a.Logger)
}

// Close releases the database pool.
func (a *App) Close() {
	if a.Pool != nil {
		a.Pool.Close()
	}
}
