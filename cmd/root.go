// Package cmd implements the lectern command-line interface.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/lectern/lectern/internal/log"
)

var (
	verbose  bool
	jsonLogs bool
)

var rootCmd = &cobra.Command{
	Use:   "lectern",
	Short: "Lectern - ask questions about your course materials",
	Long: `Lectern answers natural-language questions about a corpus of course
materials, combining semantic search over PostgreSQL/pgvector with the
Gemini API.

Run "lectern ingest" to load course documents, then "lectern serve" to
start the HTTP API or "lectern ask" for one-shot questions.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "write logs as JSON")
}

// newLogger builds the process logger from the persistent flags.
func newLogger() log.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return log.New(log.Config{Level: level, JSON: jsonLogs})
}
