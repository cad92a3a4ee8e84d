package ingest

import (
	"fmt"
	"strings"
)

// Default chunking parameters, in characters.
const (
	DefaultMaxChars     = 800
	DefaultOverlapChars = 100
)

// ChunkerOption configures a CourseChunker.
type ChunkerOption func(*CourseChunker)

// WithMaxChars sets the maximum characters per chunk (default 800).
func WithMaxChars(n int) ChunkerOption {
	return func(c *CourseChunker) { c.maxChars = n }
}

// WithOverlapChars sets the overlap budget between consecutive chunks in
// characters (default 100). Overlap is sentence-granular: whole trailing
// sentences of the previous chunk are repeated, never a truncated fragment.
func WithOverlapChars(n int) ChunkerOption {
	return func(c *CourseChunker) { c.overlapChars = n }
}

// CourseChunker groups sentences into fixed-size overlapping chunks.
// Chunks never split mid-sentence; a single sentence longer than the
// maximum becomes its own oversized chunk.
type CourseChunker struct {
	maxChars     int
	overlapChars int
}

// NewCourseChunker creates a CourseChunker with the given options.
func NewCourseChunker(opts ...ChunkerOption) *CourseChunker {
	c := &CourseChunker{
		maxChars:     DefaultMaxChars,
		overlapChars: DefaultOverlapChars,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Chunk splits raw text into overlapping chunk texts with no context
// prefixes applied.
func (c *CourseChunker) Chunk(text string) []string {
	return c.ChunkSentences(SplitSentences(text))
}

// ChunkSentences groups whole sentences into chunks. Each chunk grows until
// appending the next sentence would exceed the maximum size; each chunk
// after the first starts with the trailing sentences of its predecessor,
// accumulated backward until the overlap budget is filled.
func (c *CourseChunker) ChunkSentences(sentences []string) []string {
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	i := 0
	for i < len(sentences) {
		var current []string
		size := 0
		j := i
		for j < len(sentences) {
			s := sentences[j]
			needed := size + len(s)
			if len(current) > 0 {
				needed++ // joining space
			}
			if needed > c.maxChars && len(current) > 0 {
				break
			}
			current = append(current, s)
			size = needed
			j++
		}
		chunks = append(chunks, strings.Join(current, " "))

		if c.overlapChars > 0 && j < len(sentences) {
			// Walk backward from the end of the chunk, taking whole
			// sentences while they fit the overlap budget.
			overlapSize := 0
			overlapCount := 0
			for k := len(current) - 1; k >= 0; k-- {
				if overlapSize+len(current[k]) > c.overlapChars {
					break
				}
				overlapSize += len(current[k]) + 1
				overlapCount++
			}
			next := j - overlapCount
			if next <= i {
				next = j // overlap would stall progress; skip it
			}
			i = next
		} else {
			i = j
		}
	}
	return chunks
}

// ChunkSection chunks one section of a course document and applies context
// prefixes. The first chunk of a lesson section is prefixed
// "Lesson {n} content: "; when documentFirst is set, the very first chunk
// instead carries the course-level context "Course {title} ...".
func (c *CourseChunker) ChunkSection(courseTitle string, lessonNumber *int, documentFirst bool, sentences []string) []string {
	chunks := c.ChunkSentences(sentences)
	if len(chunks) == 0 {
		return nil
	}
	switch {
	case documentFirst && lessonNumber != nil:
		chunks[0] = fmt.Sprintf("Course %s Lesson %d content: %s", courseTitle, *lessonNumber, chunks[0])
	case documentFirst:
		chunks[0] = fmt.Sprintf("Course %s content: %s", courseTitle, chunks[0])
	case lessonNumber != nil:
		chunks[0] = fmt.Sprintf("Lesson %d content: %s", *lessonNumber, chunks[0])
	}
	return chunks
}
