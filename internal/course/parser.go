package course

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// ErrMissingTitle indicates a document without a "Course Title:" header.
var ErrMissingTitle = errors.New("course document has no title header")

// lessonHeaderRe matches lesson markers such as "Lesson 0: Introduction".
var lessonHeaderRe = regexp.MustCompile(`^Lesson\s+(\d+):\s*(.+)$`)

// section is a parsed run of content belonging to one lesson (or to the
// course preamble when LessonNumber is nil).
type section struct {
	lessonNumber *int
	text         string
}

// Parse reads a course script document.
//
// Expected layout: a header block of "Course Title:", "Course Link:" and
// "Course Instructor:" lines, followed by lesson sections introduced by
// "Lesson N: <title>" markers, each optionally followed by a
// "Lesson Link:" line. Everything else is lesson content.
func Parse(r io.Reader) (Course, []section, error) {
	var c Course
	var sections []section

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var cur *section
	var body strings.Builder

	flush := func() {
		if cur == nil {
			return
		}
		cur.text = strings.TrimSpace(body.String())
		if cur.text != "" {
			sections = append(sections, *cur)
		}
		body.Reset()
		cur = nil
	}

	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, "Course Title:"):
			c.Title = strings.TrimSpace(strings.TrimPrefix(trimmed, "Course Title:"))
		case strings.HasPrefix(trimmed, "Course Link:"):
			c.Link = strings.TrimSpace(strings.TrimPrefix(trimmed, "Course Link:"))
		case strings.HasPrefix(trimmed, "Course Instructor:"):
			c.Instructor = strings.TrimSpace(strings.TrimPrefix(trimmed, "Course Instructor:"))
		case lessonHeaderRe.MatchString(trimmed):
			flush()
			m := lessonHeaderRe.FindStringSubmatch(trimmed)
			num, err := strconv.Atoi(m[1])
			if err != nil {
				// Unreachable with the \d+ pattern; guard anyway.
				return Course{}, nil, fmt.Errorf("parsing lesson number %q: %w", m[1], err)
			}
			c.Lessons = append(c.Lessons, Lesson{Number: num, Title: strings.TrimSpace(m[2])})
			n := num
			cur = &section{lessonNumber: &n}
		case strings.HasPrefix(trimmed, "Lesson Link:"):
			link := strings.TrimSpace(strings.TrimPrefix(trimmed, "Lesson Link:"))
			if len(c.Lessons) > 0 {
				c.Lessons[len(c.Lessons)-1].Link = link
			}
		default:
			if cur == nil && trimmed != "" {
				// Preamble content before the first lesson marker.
				cur = &section{}
			}
			if cur != nil {
				body.WriteString(line)
				body.WriteString("\n")
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return Course{}, nil, fmt.Errorf("reading course document: %w", err)
	}
	flush()

	if c.Title == "" {
		return Course{}, nil, ErrMissingTitle
	}
	return c, sections, nil
}

// ParseAndChunk parses a course document and splits its sections into
// chunks of roughly size characters with the given overlap. Lesson
// chunks are prefixed with course and lesson context so a chunk remains
// attributable when retrieved in isolation.
func ParseAndChunk(r io.Reader, size, overlap int) (Course, []Chunk, error) {
	c, sections, err := Parse(r)
	if err != nil {
		return Course{}, nil, err
	}

	var chunks []Chunk
	idx := 0
	for _, sec := range sections {
		for i, text := range SplitSentences(sec.text, size, overlap) {
			content := text
			if sec.lessonNumber != nil && i == 0 {
				content = fmt.Sprintf("Lesson %d content: %s", *sec.lessonNumber, text)
			}
			chunks = append(chunks, Chunk{
				Content:      content,
				CourseTitle:  c.Title,
				LessonNumber: sec.lessonNumber,
				Index:        idx,
			})
			idx++
		}
	}
	return c, chunks, nil
}
