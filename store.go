package lectern

import "context"

// Store is the dual-index persistence contract: a catalog collection holding
// one entry per course (used only for name resolution) and a content
// collection holding every chunk (used for retrieval).
//
// Catalog entries are keyed by normalized course title; content entries by
// "{course_title}_{chunk_index}". Upserts overwrite entries sharing the same
// key, so re-ingestion is idempotent per course.
type Store interface {
	// --- Catalog collection ---
	UpsertCourse(ctx context.Context, course Course) error
	// GetCourse returns the stored course for an exact (normalized) title.
	GetCourse(ctx context.Context, title string) (Course, bool, error)
	// SearchCourses ranks catalog entries by similarity to embedding,
	// ascending distance. An empty catalog yields an empty result.
	SearchCourses(ctx context.Context, embedding []float32, topK int) ([]ScoredCourse, error)
	// ListCourseTitles returns stored titles in insertion order.
	ListCourseTitles(ctx context.Context) ([]string, error)
	CourseCount(ctx context.Context) (int, error)

	// --- Content collection ---
	UpsertChunks(ctx context.Context, chunks []Chunk) error
	// SearchChunks ranks content entries by similarity to embedding,
	// ascending distance, after applying the filter. topK <= 0 means the
	// default limit of 5. An empty collection yields an empty result.
	SearchChunks(ctx context.Context, embedding []float32, topK int, filter ChunkFilter) ([]ScoredChunk, error)
	// ChunksByCourse returns a course's chunks ordered by index.
	ChunksByCourse(ctx context.Context, title string) ([]Chunk, error)

	// --- Course replacement ---

	// ReplaceCourse atomically removes any stored course with the same
	// title (catalog entry and all chunks) and writes the new course plus
	// chunks. A concurrent reader never observes a half-replaced course.
	ReplaceCourse(ctx context.Context, course Course, chunks []Chunk) error
	// DeleteCourse removes the catalog entry and every chunk whose
	// course-title metadata matches. Deleting an absent course is a no-op.
	DeleteCourse(ctx context.Context, title string) error

	// --- Lifecycle ---
	Init(ctx context.Context) error
	Close() error
}

// ChunkFilter narrows a content search. The zero value matches everything.
// A non-empty CourseTitle and a non-nil LessonNumber are equality filters,
// AND-combined. Filters are mandatory: a chunk failing either is excluded
// regardless of its similarity.
type ChunkFilter struct {
	CourseTitle  string
	LessonNumber *int
}

// DefaultSearchLimit is the content-search result cap applied when the
// caller passes topK <= 0.
const DefaultSearchLimit = 5
