// Package course defines the course-material domain model and turns raw
// course documents into indexable chunks.
package course

// Lesson is a single lesson within a course. Number is unique within
// its course.
type Lesson struct {
	Number int
	Title  string
	Link   string
}

// Course is the parsed metadata of one course document. Title is the
// unique key across the corpus; courses are created once at ingestion
// and read-only afterwards.
type Course struct {
	Title      string
	Link       string
	Instructor string
	Lessons    []Lesson
}

// Chunk is one indexable passage of course content. LessonNumber is nil
// for content that precedes the first lesson marker.
type Chunk struct {
	Content      string
	CourseTitle  string
	LessonNumber *int
	Index        int
}
