package lectern

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// --- Domain types ---

// Course is one ingested course document. The title is the primary key:
// ingesting a document whose title is already stored replaces the prior
// course wholesale, it never merges.
type Course struct {
	Title      string   `json:"title"`
	Link       string   `json:"link,omitempty"`
	Instructor string   `json:"instructor,omitempty"`
	Lessons    []Lesson `json:"lessons"`
	CreatedAt  int64    `json:"created_at"`

	// Embedding of the title, used by the catalog collection for fuzzy
	// name resolution. Populated during ingestion.
	Embedding []float32 `json:"-"`
}

// Lesson is a numbered section of a Course. Numbers are unique within a
// course but need not be contiguous or start at zero; lessons are stored in
// the order they appear in the source document.
type Lesson struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Link   string `json:"link,omitempty"`
}

// LessonByNumber returns the lesson with the given number, if present.
func (c Course) LessonByNumber(n int) (Lesson, bool) {
	for _, l := range c.Lessons {
		if l.Number == n {
			return l, true
		}
	}
	return Lesson{}, false
}

// Chunk is an embeddable span of prefixed course text. LessonNumber is nil
// for preamble text that appears before the first lesson marker. Index is
// zero-based and contiguous within a course.
type Chunk struct {
	Content      string    `json:"content"`
	CourseTitle  string    `json:"course_title"`
	LessonNumber *int      `json:"lesson_number,omitempty"`
	Index        int       `json:"chunk_index"`
	Embedding    []float32 `json:"-"`
}

// ID returns the content-collection identifier "{course_title}_{index}".
func (c Chunk) ID() string {
	return fmt.Sprintf("%s_%d", c.CourseTitle, c.Index)
}

// ScoredChunk pairs a chunk with its similarity distance.
// Lower distance means more relevant.
type ScoredChunk struct {
	Chunk
	Distance float32
}

// ScoredCourse pairs a catalog entry with its similarity distance.
type ScoredCourse struct {
	Course
	Distance float32
}

// SearchResult is one ranked retrieval hit with source attribution.
type SearchResult struct {
	Content      string  `json:"content"`
	CourseTitle  string  `json:"course_title"`
	LessonNumber *int    `json:"lesson_number,omitempty"`
	Source       string  `json:"source"`
	Link         string  `json:"link,omitempty"`
	Distance     float32 `json:"distance"`
}

// Source is a human-readable attribution for a retrieved chunk,
// e.g. "Intro to X - Lesson 2", with the lesson link when known.
type Source struct {
	Label string `json:"label"`
	Link  string `json:"link,omitempty"`
}

// CourseStats summarizes the stored corpus.
type CourseStats struct {
	TotalCourses int      `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}

// NormalizeTitle canonicalizes a course title (or a user-typed fragment of
// one) for use as a catalog key: NFC normalization plus whitespace trim.
// Store implementations key the catalog by normalized titles so visually
// identical titles cannot produce duplicate courses.
func NormalizeTitle(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
