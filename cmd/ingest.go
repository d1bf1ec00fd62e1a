package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/lectern/lectern/internal/app"
	"github.com/lectern/lectern/internal/config"
)

var ingestDir string

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load course documents into the index",
	Long: `Ingest parses course documents (.txt, .md) from the docs directory,
chunks their content, and stores embeddings in PostgreSQL. Courses that
are already indexed are skipped, so re-running is safe.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestDir, "dir", "", "documents directory (default from config)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := newLogger()
	ctx := context.Background()

	// One ingest at a time; concurrent runs would race on the
	// idempotency check.
	lockPath, err := ingestLockPath()
	if err != nil {
		return err
	}
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquiring ingest lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another ingest is already running (lock: %s)", lockPath)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("releasing ingest lock", "error", err)
		}
	}()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer a.Close()

	dir := ingestDir
	if dir == "" {
		dir = cfg.DocsDir
	}

	result, err := a.NewLoader().LoadDir(ctx, dir)
	if err != nil {
		return fmt.Errorf("loading documents: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d courses, %d chunks in %s (%d courses already indexed)\n",
		result.CoursesAdded, result.ChunksAdded, result.Duration.Round(time.Millisecond), result.CoursesSkipped)
	return nil
}

func ingestLockPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting user home directory: %w", err)
	}
	dir := filepath.Join(home, ".lectern")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating lock directory: %w", err)
	}
	return filepath.Join(dir, "ingest.lock"), nil
}
