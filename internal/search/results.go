package search

// ResultMeta describes where one retrieved passage came from. The
// fields mirror the chunk metadata stored in the content index.
type ResultMeta struct {
	CourseTitle  string
	LessonNumber *int
	ChunkIndex   int
}

// Results is the outcome of one retrieval call.
//
// Invariant: Documents, Metadata and Distances are aligned
// index-for-index and always have equal length. Err is set only on
// early-exit paths (course-name resolution failure); a search that
// legitimately found nothing has IsEmpty() true and Err == "".
type Results struct {
	Documents []string
	Metadata  []ResultMeta
	Distances []float64
	Err       string
}

// Empty returns an empty result set carrying an error message.
func Empty(msg string) Results {
	return Results{Err: msg}
}

// IsEmpty reports whether no documents were returned, independent of
// whether Err is set.
func (r Results) IsEmpty() bool {
	return len(r.Documents) == 0
}
