package search

import (
	"fmt"
	"strings"
)

// Filter restricts a content search to a course, a lesson, or both.
// The zero value matches everything. Filters are built fresh per call
// and never persisted.
type Filter struct {
	CourseTitle  string
	LessonNumber *int
}

// BuildFilter constructs a Filter from optional course and lesson
// constraints. An empty courseTitle or nil lessonNumber contributes no
// condition; both present yields their conjunction.
func BuildFilter(courseTitle string, lessonNumber *int) Filter {
	return Filter{CourseTitle: courseTitle, LessonNumber: lessonNumber}
}

// IsZero reports whether the filter matches everything.
func (f Filter) IsZero() bool {
	return f.CourseTitle == "" && f.LessonNumber == nil
}

// whereClause renders the filter as a SQL WHERE fragment with
// positional parameters starting at argIndex. An empty clause is
// returned for the zero filter.
func (f Filter) whereClause(argIndex int) (string, []any) {
	var conds []string
	var args []any

	if f.CourseTitle != "" {
		conds = append(conds, fmt.Sprintf("course_title = $%d", argIndex))
		args = append(args, f.CourseTitle)
		argIndex++
	}
	if f.LessonNumber != nil {
		conds = append(conds, fmt.Sprintf("lesson_number = $%d", argIndex))
		args = append(args, *f.LessonNumber)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}
