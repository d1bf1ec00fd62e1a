// Package config provides application configuration with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (LECTERN_* / GEMINI_API_KEY / DATABASE_URL)
//  2. Config file (~/.lectern/config.yaml or ./config.yaml)
//  3. Default values
//
// Error handling uses sentinel errors so callers can test with errors.Is().
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrMissingAPIKey indicates GEMINI_API_KEY is not set.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates the model name is empty.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidMaxTokens indicates max_tokens is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidMaxRounds indicates max_tool_rounds is out of range.
	ErrInvalidMaxRounds = errors.New("invalid max tool rounds")

	// ErrInvalidMaxHistory indicates max_history is out of range.
	ErrInvalidMaxHistory = errors.New("invalid max history")

	// ErrInvalidMaxResults indicates max_results is negative.
	ErrInvalidMaxResults = errors.New("invalid max results")

	// ErrInvalidChunking indicates chunk_size/chunk_overlap are inconsistent.
	ErrInvalidChunking = errors.New("invalid chunking configuration")

	// ErrInvalidEmbedderDimension indicates the embedder dimension does not
	// match the pgvector schema.
	ErrInvalidEmbedderDimension = errors.New("incompatible embedder dimension")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")
)

const (
	// DefaultModel is the default Gemini generation model.
	DefaultModel = "gemini-2.5-flash"

	// DefaultEmbedderModel is the default Gemini embedder model.
	// gemini-embedding-001 supports truncation to 768 dimensions via
	// OutputDimensionality; the pgvector schema uses vector(768).
	DefaultEmbedderModel = "gemini-embedding-001"

	// EmbedderDimension is the vector dimension of the pgvector schema.
	// Changing this requires a migration on courses and course_chunks.
	EmbedderDimension = 768

	// DefaultMaxToolRounds bounds the tool-use loop per query.
	DefaultMaxToolRounds = 2

	// DefaultMaxResults caps search hits when the caller gives no limit.
	DefaultMaxResults = 5

	// DefaultMaxHistory is the number of prior exchanges kept per session.
	// Each exchange is two messages, so memory holds 2*MaxHistory messages.
	DefaultMaxHistory = 2
)

// Config stores application configuration.
type Config struct {
	// Generation backend
	Model         string `mapstructure:"model"`
	EmbedderModel string `mapstructure:"embedder_model"`
	MaxTokens     int    `mapstructure:"max_tokens"`
	MaxToolRounds int    `mapstructure:"max_tool_rounds"`

	// Retrieval
	MaxResults   int `mapstructure:"max_results"`
	ChunkSize    int `mapstructure:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap"`

	// Conversation memory
	MaxHistory int `mapstructure:"max_history"`

	// Ingestion
	DocsDir string `mapstructure:"docs_dir"`

	// PostgreSQL
	PostgresHost     string `mapstructure:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password"`
	PostgresDBName   string `mapstructure:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode"`

	// HTTP server
	Addr string `mapstructure:"addr"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".lectern")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is not an error; defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("model", DefaultModel)
	v.SetDefault("embedder_model", DefaultEmbedderModel)
	v.SetDefault("max_tokens", 800)
	v.SetDefault("max_tool_rounds", DefaultMaxToolRounds)

	v.SetDefault("max_results", DefaultMaxResults)
	v.SetDefault("chunk_size", 800)
	v.SetDefault("chunk_overlap", 100)

	v.SetDefault("max_history", DefaultMaxHistory)

	v.SetDefault("docs_dir", "./docs")

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "lectern")
	v.SetDefault("postgres_password", "lectern_dev_password")
	v.SetDefault("postgres_db_name", "lectern")
	v.SetDefault("postgres_ssl_mode", "disable")

	v.SetDefault("addr", "127.0.0.1:8000")
}

// bindEnvVariables binds environment overrides explicitly.
// GEMINI_API_KEY is read directly via APIKey(), not through viper,
// so it never lands in a marshaled config.
func bindEnvVariables(v *viper.Viper) {
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("model", "LECTERN_MODEL")
	mustBind("embedder_model", "LECTERN_EMBEDDER_MODEL")
	mustBind("max_results", "LECTERN_MAX_RESULTS")
	mustBind("max_history", "LECTERN_MAX_HISTORY")
	mustBind("docs_dir", "LECTERN_DOCS_DIR")
	mustBind("addr", "LECTERN_ADDR")
	mustBind("postgres_password", "LECTERN_POSTGRES_PASSWORD")
}

// APIKey returns the Gemini API key from the environment.
func (c *Config) APIKey() string {
	return os.Getenv("GEMINI_API_KEY")
}

// Validate checks configuration consistency. Called by Load; exported so
// tests and manual construction can reuse it.
func (c *Config) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("%w: model must not be empty", ErrInvalidModelName)
	}
	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model must not be empty", ErrInvalidModelName)
	}
	if c.MaxTokens <= 0 || c.MaxTokens > 65536 {
		return fmt.Errorf("%w: got %d, want 1..65536", ErrInvalidMaxTokens, c.MaxTokens)
	}
	if c.MaxToolRounds < 1 || c.MaxToolRounds > 10 {
		return fmt.Errorf("%w: got %d, want 1..10", ErrInvalidMaxRounds, c.MaxToolRounds)
	}
	if c.MaxHistory < 1 {
		return fmt.Errorf("%w: got %d, want >= 1", ErrInvalidMaxHistory, c.MaxHistory)
	}
	// max_results = 0 is accepted: the store passes the cap through to the
	// index verbatim, and a zero cap yields zero hits. See search.Store.
	if c.MaxResults < 0 {
		return fmt.Errorf("%w: got %d, want >= 0", ErrInvalidMaxResults, c.MaxResults)
	}
	if c.ChunkSize <= 0 || c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: size=%d overlap=%d", ErrInvalidChunking, c.ChunkSize, c.ChunkOverlap)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	return nil
}
