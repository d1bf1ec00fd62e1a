// Package search implements the retrieval engine: vector search over
// the course-content index, fuzzy course-name resolution against the
// separate course catalog, and course outlines.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/lectern/lectern/internal/course"
)

// Embedder generates vector embeddings for text. Satisfied by
// llm.Client; tests substitute a deterministic fake.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// queryTimeout bounds individual vector search queries so a slow index
// cannot block a whole chat request.
const queryTimeout = 10 * time.Second

// resolveMaxDistance is the cosine-distance ceiling for course-name
// resolution. The nearest stored title is only accepted as a match when
// it is at least this close; beyond it, an approximate name is treated
// as unresolvable rather than silently matched to an arbitrary course.
const resolveMaxDistance = 0.75

// Store is the retrieval engine over PostgreSQL + pgvector. It owns no
// mutable state beyond the pool; reads take no locks and queries are
// safe for concurrent use.
type Store struct {
	pool       *pgxpool.Pool
	embedder   Embedder
	maxResults int
	logger     *slog.Logger
}

// NewStore creates a Store. maxResults is the cap applied when a search
// gives no explicit limit; it is passed through to the index verbatim,
// so a zero default yields zero hits (documented boundary behavior, see
// Search).
func NewStore(pool *pgxpool.Pool, embedder Embedder, maxResults int, logger *slog.Logger) (*Store, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if maxResults < 0 {
		return nil, fmt.Errorf("maxResults must be >= 0, got %d", maxResults)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, embedder: embedder, maxResults: maxResults, logger: logger}, nil
}

// SearchOption configures one Search call.
type SearchOption func(*searchConfig)

type searchConfig struct {
	courseName   string
	lessonNumber *int
	limit        *int
}

// WithCourseName restricts the search to one course, resolving the
// given name fuzzily against the catalog first.
func WithCourseName(name string) SearchOption {
	return func(c *searchConfig) { c.courseName = name }
}

// WithLessonNumber restricts the search to one lesson number.
func WithLessonNumber(n int) SearchOption {
	return func(c *searchConfig) { c.lessonNumber = &n }
}

// WithLimit overrides the store's default result cap for this call.
func WithLimit(n int) SearchOption {
	return func(c *searchConfig) { c.limit = &n }
}

// Search runs a nearest-neighbor search over the content index.
//
// When a course name is given it is resolved against the catalog first.
// An unresolvable name returns Empty("No course found matching <name>")
// as a normal result, not an error. Errors are reserved for embedding
// and database failures.
//
// The effective cap is the WithLimit value if given, else the store
// default. A cap of zero is passed to the query untouched and returns
// an empty result even when matching content exists; callers relying on
// this boundary should read TestSearchZeroLimit before changing it.
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) (Results, error) {
	var cfg searchConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	courseTitle := ""
	if cfg.courseName != "" {
		title, ok, err := s.ResolveCourseName(ctx, cfg.courseName)
		if err != nil {
			return Results{}, err
		}
		if !ok {
			return Empty(fmt.Sprintf("No course found matching '%s'", cfg.courseName)), nil
		}
		courseTitle = title
	}

	filter := BuildFilter(courseTitle, cfg.lessonNumber)

	limit := s.maxResults
	if cfg.limit != nil {
		limit = *cfg.limit
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return Results{}, fmt.Errorf("embedding query: %w", err)
	}

	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	where, args := filter.whereClause(2)
	sql := fmt.Sprintf(`SELECT content, course_title, lesson_number, chunk_index,
			embedding <=> $1 AS distance
		FROM course_chunks
		%s
		ORDER BY embedding <=> $1
		LIMIT $%d`, where, 2+len(args))
	queryArgs := append([]any{pgvector.NewVector(vec)}, args...)
	queryArgs = append(queryArgs, limit)

	rows, err := s.pool.Query(queryCtx, sql, queryArgs...)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Results{}, fmt.Errorf("search query timeout: %w", err)
		}
		return Results{}, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()

	var res Results
	for rows.Next() {
		var (
			content  string
			meta     ResultMeta
			distance float64
		)
		if err := rows.Scan(&content, &meta.CourseTitle, &meta.LessonNumber, &meta.ChunkIndex, &distance); err != nil {
			return Results{}, fmt.Errorf("scanning search row: %w", err)
		}
		res.Documents = append(res.Documents, content)
		res.Metadata = append(res.Metadata, meta)
		res.Distances = append(res.Distances, distance)
	}
	if err := rows.Err(); err != nil {
		return Results{}, fmt.Errorf("reading search rows: %w", err)
	}

	s.logger.Debug("content search",
		"query_length", len(query),
		"course", courseTitle,
		"limit", limit,
		"hits", len(res.Documents))
	return res, nil
}

// ResolveCourseName resolves an approximate course name to the
// canonical stored title via nearest-embedding match against the
// catalog. ok is false when the catalog is empty or the nearest title
// is too far away to be a credible match.
func (s *Store) ResolveCourseName(ctx context.Context, name string) (title string, ok bool, err error) {
	vec, err := s.embedder.Embed(ctx, name)
	if err != nil {
		return "", false, fmt.Errorf("embedding course name: %w", err)
	}

	var distance float64
	row := s.pool.QueryRow(ctx,
		`SELECT title, title_embedding <=> $1 AS distance
		 FROM courses
		 ORDER BY title_embedding <=> $1
		 LIMIT 1`,
		pgvector.NewVector(vec))
	if err := row.Scan(&title, &distance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("resolving course name: %w", err)
	}

	if distance > resolveMaxDistance {
		s.logger.Debug("course name resolution rejected",
			"name", name, "nearest", title, "distance", distance)
		return "", false, nil
	}
	return title, true, nil
}

// Outline returns the course metadata and ordered lesson list for the
// given canonical title.
func (s *Store) Outline(ctx context.Context, title string) (course.Course, error) {
	var c course.Course
	row := s.pool.QueryRow(ctx,
		`SELECT title, course_link, instructor FROM courses WHERE title = $1`, title)
	if err := row.Scan(&c.Title, &c.Link, &c.Instructor); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return course.Course{}, fmt.Errorf("course %q not found", title)
		}
		return course.Course{}, fmt.Errorf("loading course: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT lesson_number, title, lesson_link
		 FROM lessons WHERE course_title = $1
		 ORDER BY lesson_number`, title)
	if err != nil {
		return course.Course{}, fmt.Errorf("loading lessons: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l course.Lesson
		if err := rows.Scan(&l.Number, &l.Title, &l.Link); err != nil {
			return course.Course{}, fmt.Errorf("scanning lesson: %w", err)
		}
		c.Lessons = append(c.Lessons, l)
	}
	if err := rows.Err(); err != nil {
		return course.Course{}, fmt.Errorf("reading lessons: %w", err)
	}
	return c, nil
}

// LessonLink returns the link registered for one lesson, or "" when the
// lesson has none.
func (s *Store) LessonLink(ctx context.Context, courseTitle string, lessonNumber int) (string, error) {
	var link string
	row := s.pool.QueryRow(ctx,
		`SELECT lesson_link FROM lessons WHERE course_title = $1 AND lesson_number = $2`,
		courseTitle, lessonNumber)
	if err := row.Scan(&link); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("loading lesson link: %w", err)
	}
	return link, nil
}

// CourseLink returns the link registered for a course, or "" when none.
func (s *Store) CourseLink(ctx context.Context, title string) (string, error) {
	var link string
	row := s.pool.QueryRow(ctx,
		`SELECT course_link FROM courses WHERE title = $1`, title)
	if err := row.Scan(&link); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("loading course link: %w", err)
	}
	return link, nil
}

// AddCourse inserts course metadata and its lessons, embedding the
// title into the resolution catalog. Idempotent per title.
func (s *Store) AddCourse(ctx context.Context, c course.Course) error {
	vec, err := s.embedder.Embed(ctx, c.Title)
	if err != nil {
		return fmt.Errorf("embedding course title: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO courses (title, course_link, instructor, title_embedding)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (title) DO UPDATE
		 SET course_link = EXCLUDED.course_link,
		     instructor = EXCLUDED.instructor,
		     title_embedding = EXCLUDED.title_embedding`,
		c.Title, c.Link, c.Instructor, pgvector.NewVector(vec))
	if err != nil {
		return fmt.Errorf("upserting course %q: %w", c.Title, err)
	}

	for _, l := range c.Lessons {
		_, err = tx.Exec(ctx,
			`INSERT INTO lessons (course_title, lesson_number, title, lesson_link)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (course_title, lesson_number) DO UPDATE
			 SET title = EXCLUDED.title, lesson_link = EXCLUDED.lesson_link`,
			c.Title, l.Number, l.Title, l.Link)
		if err != nil {
			return fmt.Errorf("upserting lesson %d of %q: %w", l.Number, c.Title, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing course %q: %w", c.Title, err)
	}
	return nil
}

// AddChunks embeds and inserts content chunks. Chunks are embedded one
// at a time; ingestion is a low-throughput offline operation.
func (s *Store) AddChunks(ctx context.Context, chunks []course.Chunk) error {
	for _, ch := range chunks {
		vec, err := s.embedder.Embed(ctx, ch.Content)
		if err != nil {
			return fmt.Errorf("embedding chunk %d of %q: %w", ch.Index, ch.CourseTitle, err)
		}
		_, err = s.pool.Exec(ctx,
			`INSERT INTO course_chunks (course_title, lesson_number, chunk_index, content, embedding)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (course_title, chunk_index) DO UPDATE
			 SET lesson_number = EXCLUDED.lesson_number,
			     content = EXCLUDED.content,
			     embedding = EXCLUDED.embedding`,
			ch.CourseTitle, ch.LessonNumber, ch.Index, ch.Content, pgvector.NewVector(vec))
		if err != nil {
			return fmt.Errorf("inserting chunk %d of %q: %w", ch.Index, ch.CourseTitle, err)
		}
	}
	return nil
}

// CourseTitles lists all catalog titles in insertion order.
func (s *Store) CourseTitles(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT title FROM courses ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("listing courses: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scanning course title: %w", err)
		}
		titles = append(titles, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading course titles: %w", err)
	}
	return titles, nil
}

// CourseCount returns the number of courses in the catalog.
func (s *Store) CourseCount(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM courses`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting courses: %w", err)
	}
	return n, nil
}
