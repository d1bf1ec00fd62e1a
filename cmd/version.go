package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lectern/lectern/internal/config"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "development"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version and configuration information",
	RunE:  runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Lectern %s\n", AppVersion)
	fmt.Fprintf(out, "Build Time: %s\n", BuildTime)
	fmt.Fprintf(out, "Git Commit: %s\n", GitCommit)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Configuration:")
	fmt.Fprintf(out, "  Model: %s\n", cfg.Model)
	fmt.Fprintf(out, "  Embedder: %s (%d dims)\n", cfg.EmbedderModel, config.EmbedderDimension)
	fmt.Fprintf(out, "  Max tokens: %d\n", cfg.MaxTokens)
	fmt.Fprintf(out, "  Max tool rounds: %d\n", cfg.MaxToolRounds)
	fmt.Fprintf(out, "  Database: %s:%d/%s\n", cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresDBName)

	if key := os.Getenv("GEMINI_API_KEY"); key != "" && len(key) >= 8 {
		fmt.Fprintf(out, "  GEMINI_API_KEY: %s...%s (configured)\n", key[:4], key[len(key)-4:])
	} else {
		fmt.Fprintln(out, "  GEMINI_API_KEY: Not set")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Hint: export GEMINI_API_KEY=your-api-key")
	}
	return nil
}
