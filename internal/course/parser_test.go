package course

import (
	"errors"
	"strings"
	"testing"
)

const sampleDoc = `Course Title: Introduction to Databases
Course Link: https://example.com/db
Course Instructor: Dana Wells

Lesson 0: Welcome
Lesson Link: https://example.com/db/0
Welcome to the course. We cover the relational model.

Lesson 1: Tables
Tables hold rows. Each row is a tuple.
`

func TestParse(t *testing.T) {
	c, sections, err := Parse(strings.NewReader(sampleDoc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if c.Title != "Introduction to Databases" {
		t.Errorf("Title = %q", c.Title)
	}
	if c.Link != "https://example.com/db" {
		t.Errorf("Link = %q", c.Link)
	}
	if c.Instructor != "Dana Wells" {
		t.Errorf("Instructor = %q", c.Instructor)
	}

	if len(c.Lessons) != 2 {
		t.Fatalf("got %d lessons, want 2", len(c.Lessons))
	}
	if c.Lessons[0].Number != 0 || c.Lessons[0].Title != "Welcome" {
		t.Errorf("lesson 0 = %+v", c.Lessons[0])
	}
	if c.Lessons[0].Link != "https://example.com/db/0" {
		t.Errorf("lesson 0 link = %q", c.Lessons[0].Link)
	}
	if c.Lessons[1].Link != "" {
		t.Errorf("lesson 1 should have no link, got %q", c.Lessons[1].Link)
	}

	if len(sections) != 2 {
		t.Fatalf("got %d sections, want 2", len(sections))
	}
	if sections[0].lessonNumber == nil || *sections[0].lessonNumber != 0 {
		t.Errorf("section 0 lesson = %v", sections[0].lessonNumber)
	}
	if !strings.Contains(sections[1].text, "Tables hold rows.") {
		t.Errorf("section 1 text = %q", sections[1].text)
	}
}

func TestParsePreambleHasNoLesson(t *testing.T) {
	doc := `Course Title: Minimal
This text precedes any lesson marker.

Lesson 1: Start
Lesson content.
`
	_, sections, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(sections) != 2 {
		t.Fatalf("got %d sections, want 2", len(sections))
	}
	if sections[0].lessonNumber != nil {
		t.Errorf("preamble section should have nil lesson, got %v", *sections[0].lessonNumber)
	}
}

func TestParseMissingTitle(t *testing.T) {
	_, _, err := Parse(strings.NewReader("Lesson 1: Orphan\ncontent\n"))
	if !errors.Is(err, ErrMissingTitle) {
		t.Errorf("err = %v, want ErrMissingTitle", err)
	}
}

func TestParseAndChunk(t *testing.T) {
	c, chunks, err := ParseAndChunk(strings.NewReader(sampleDoc), 800, 100)
	if err != nil {
		t.Fatalf("ParseAndChunk failed: %v", err)
	}
	if c.Title != "Introduction to Databases" {
		t.Errorf("Title = %q", c.Title)
	}
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}

	if !strings.HasPrefix(chunks[0].Content, "Lesson 0 content: ") {
		t.Errorf("first lesson chunk missing context prefix: %q", chunks[0].Content)
	}
	for i, ch := range chunks {
		if ch.Index != i {
			t.Errorf("chunk %d has index %d", i, ch.Index)
		}
		if ch.CourseTitle != c.Title {
			t.Errorf("chunk %d course = %q", i, ch.CourseTitle)
		}
	}
	if chunks[1].LessonNumber == nil || *chunks[1].LessonNumber != 1 {
		t.Errorf("chunk 1 lesson = %v", chunks[1].LessonNumber)
	}
}
