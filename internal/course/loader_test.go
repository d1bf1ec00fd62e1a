package course

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/lectern/lectern/internal/testutil"
)

type fakeStore struct {
	titles     []string
	courses    []Course
	chunks     []Chunk
	titlesErr  error
	addCourses int
}

func (s *fakeStore) AddCourse(_ context.Context, c Course) error {
	s.addCourses++
	s.courses = append(s.courses, c)
	return nil
}

func (s *fakeStore) AddChunks(_ context.Context, chunks []Chunk) error {
	s.chunks = append(s.chunks, chunks...)
	return nil
}

func (s *fakeStore) CourseTitles(_ context.Context) ([]string, error) {
	return s.titles, s.titlesErr
}

func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "db.txt", sampleDoc)
	writeDoc(t, dir, "go.md", `Course Title: Go Basics
Lesson 1: Hello
Programs start in package main.
`)
	writeDoc(t, dir, "notes.pdf", "not a course document")
	writeDoc(t, dir, "broken.txt", "Lesson 1: No Header\ncontent without a course title\n")

	store := &fakeStore{}
	l := NewLoader(store, 800, 100, testutil.DiscardLogger())

	res, err := l.LoadDir(context.Background(), dir)
	if err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}

	if res.CoursesAdded != 2 {
		t.Errorf("CoursesAdded = %d, want 2", res.CoursesAdded)
	}
	if res.CoursesSkipped != 0 {
		t.Errorf("CoursesSkipped = %d, want 0", res.CoursesSkipped)
	}
	if res.ChunksAdded != len(store.chunks) {
		t.Errorf("ChunksAdded = %d, stored %d", res.ChunksAdded, len(store.chunks))
	}
	if len(store.courses) != 2 {
		t.Fatalf("stored %d courses, want 2", len(store.courses))
	}
}

func TestLoadDirSkipsKnownCourses(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "db.txt", sampleDoc)

	store := &fakeStore{titles: []string{"Introduction to Databases"}}
	l := NewLoader(store, 800, 100, testutil.DiscardLogger())

	res, err := l.LoadDir(context.Background(), dir)
	if err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}
	if res.CoursesAdded != 0 || res.CoursesSkipped != 1 {
		t.Errorf("got added=%d skipped=%d, want 0/1", res.CoursesAdded, res.CoursesSkipped)
	}
	if store.addCourses != 0 {
		t.Errorf("AddCourse called %d times for a known course", store.addCourses)
	}
}

func TestLoadDirIdempotentWithinRun(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "a.txt", sampleDoc)
	writeDoc(t, dir, "b.txt", sampleDoc)

	store := &fakeStore{}
	l := NewLoader(store, 800, 100, testutil.DiscardLogger())

	res, err := l.LoadDir(context.Background(), dir)
	if err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}
	if res.CoursesAdded != 1 || res.CoursesSkipped != 1 {
		t.Errorf("got added=%d skipped=%d, want 1/1", res.CoursesAdded, res.CoursesSkipped)
	}
}

func TestLoadDirErrors(t *testing.T) {
	l := NewLoader(&fakeStore{}, 800, 100, testutil.DiscardLogger())
	if _, err := l.LoadDir(context.Background(), filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing directory")
	}

	titlesErr := errors.New("connection refused")
	l = NewLoader(&fakeStore{titlesErr: titlesErr}, 800, 100, testutil.DiscardLogger())
	if _, err := l.LoadDir(context.Background(), t.TempDir()); !errors.Is(err, titlesErr) {
		t.Errorf("err = %v, want wrapped titles error", err)
	}
}

func TestLoadDirHonorsContext(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "db.txt", sampleDoc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l := NewLoader(&fakeStore{}, 800, 100, testutil.DiscardLogger())
	if _, err := l.LoadDir(ctx, dir); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
