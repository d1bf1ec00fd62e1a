package course

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Store is the subset of the retrieval store the loader needs.
// Defined here, by the consumer, so the loader can be tested against a
// fake without touching PostgreSQL.
type Store interface {
	AddCourse(ctx context.Context, c Course) error
	AddChunks(ctx context.Context, chunks []Chunk) error
	CourseTitles(ctx context.Context) ([]string, error)
}

// supportedExtensions are the document types the loader reads.
var supportedExtensions = map[string]bool{
	".txt": true,
	".md":  true,
}

// LoadResult summarizes one ingestion run.
type LoadResult struct {
	CoursesAdded   int
	CoursesSkipped int
	ChunksAdded    int
	Duration       time.Duration
}

// Loader ingests course documents from a directory into a Store.
type Loader struct {
	store        Store
	chunkSize    int
	chunkOverlap int
	logger       *slog.Logger
}

// NewLoader creates a Loader. A nil logger falls back to slog.Default.
func NewLoader(store Store, chunkSize, chunkOverlap int, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		store:        store,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		logger:       logger,
	}
}

// LoadDir parses every supported document directly under dir and adds
// each new course plus its chunks to the store. Courses whose title is
// already present are skipped, so re-running ingestion is idempotent.
func (l *Loader) LoadDir(ctx context.Context, dir string) (LoadResult, error) {
	start := time.Now()
	var res LoadResult

	existing, err := l.store.CourseTitles(ctx)
	if err != nil {
		return res, fmt.Errorf("listing existing courses: %w", err)
	}
	known := make(map[string]bool, len(existing))
	for _, t := range existing {
		known[t] = true
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return res, fmt.Errorf("reading docs directory %q: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !supportedExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}

		path := filepath.Join(dir, entry.Name())
		added, chunks, err := l.loadFile(ctx, path, known)
		if err != nil {
			// One malformed document must not abort the whole run.
			l.logger.Warn("skipping course document", "path", path, "error", err)
			continue
		}
		if added {
			res.CoursesAdded++
			res.ChunksAdded += chunks
		} else {
			res.CoursesSkipped++
		}
	}

	res.Duration = time.Since(start)
	l.logger.Info("ingestion finished",
		"courses_added", res.CoursesAdded,
		"courses_skipped", res.CoursesSkipped,
		"chunks_added", res.ChunksAdded,
		"duration", res.Duration)
	return res, nil
}

func (l *Loader) loadFile(ctx context.Context, path string, known map[string]bool) (bool, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, 0, fmt.Errorf("opening document: %w", err)
	}
	defer f.Close()

	c, chunks, err := ParseAndChunk(f, l.chunkSize, l.chunkOverlap)
	if err != nil {
		return false, 0, err
	}

	if known[c.Title] {
		l.logger.Debug("course already indexed", "title", c.Title)
		return false, 0, nil
	}

	if err := l.store.AddCourse(ctx, c); err != nil {
		return false, 0, fmt.Errorf("adding course %q: %w", c.Title, err)
	}
	if err := l.store.AddChunks(ctx, chunks); err != nil {
		return false, 0, fmt.Errorf("adding chunks for %q: %w", c.Title, err)
	}

	known[c.Title] = true
	l.logger.Debug("indexed course", "title", c.Title, "lessons", len(c.Lessons), "chunks", len(chunks))
	return true, len(chunks), nil
}
