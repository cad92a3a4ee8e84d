// Package memory implements lectern.Store entirely in process memory.
// Useful for tests and short-lived tooling; nothing is persisted.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	lectern "github.com/nevindra/lectern"
)

// Store implements lectern.Store with plain maps guarded by a RWMutex.
type Store struct {
	mu      sync.RWMutex
	courses map[string]lectern.Course
	chunks  map[string]lectern.Chunk
	order   []string
}

var _ lectern.Store = (*Store)(nil)

// New creates an empty in-memory Store.
func New() *Store {
	return &Store{
		courses: make(map[string]lectern.Course),
		chunks:  make(map[string]lectern.Chunk),
	}
}

// Init is a no-op; the store is ready after New.
func (s *Store) Init(ctx context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }

func (s *Store) UpsertCourse(ctx context.Context, course lectern.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertCourseLocked(course)
	return nil
}

func (s *Store) upsertCourseLocked(course lectern.Course) {
	title := lectern.NormalizeTitle(course.Title)
	course.Title = title
	if course.CreatedAt == 0 {
		course.CreatedAt = lectern.NowUnix()
	}
	if _, exists := s.courses[title]; !exists {
		s.order = append(s.order, title)
	}
	s.courses[title] = course
}

func (s *Store) GetCourse(ctx context.Context, title string) (lectern.Course, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.courses[lectern.NormalizeTitle(title)]
	return c, ok, nil
}

func (s *Store) SearchCourses(ctx context.Context, embedding []float32, topK int) ([]lectern.ScoredCourse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []lectern.ScoredCourse
	for _, c := range s.courses {
		if len(c.Embedding) == 0 {
			continue
		}
		results = append(results, lectern.ScoredCourse{Course: c, Distance: 1 - cosineSimilarity(embedding, c.Embedding)})
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (s *Store) ListCourseTitles(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	titles := make([]string, len(s.order))
	copy(titles, s.order)
	return titles, nil
}

func (s *Store) CourseCount(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.courses), nil
}

func (s *Store) UpsertChunks(ctx context.Context, chunks []lectern.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertChunksLocked(chunks)
	return nil
}

func (s *Store) upsertChunksLocked(chunks []lectern.Chunk) {
	for _, c := range chunks {
		c.CourseTitle = lectern.NormalizeTitle(c.CourseTitle)
		s.chunks[c.ID()] = c
	}
}

func (s *Store) SearchChunks(ctx context.Context, embedding []float32, topK int, filter lectern.ChunkFilter) ([]lectern.ScoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if topK <= 0 {
		topK = lectern.DefaultSearchLimit
	}
	courseFilter := lectern.NormalizeTitle(filter.CourseTitle)

	var results []lectern.ScoredChunk
	for _, c := range s.chunks {
		if len(c.Embedding) == 0 {
			continue
		}
		if courseFilter != "" && c.CourseTitle != courseFilter {
			continue
		}
		if filter.LessonNumber != nil && (c.LessonNumber == nil || *c.LessonNumber != *filter.LessonNumber) {
			continue
		}
		results = append(results, lectern.ScoredChunk{Chunk: c, Distance: 1 - cosineSimilarity(embedding, c.Embedding)})
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (s *Store) ChunksByCourse(ctx context.Context, title string) ([]lectern.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	title = lectern.NormalizeTitle(title)
	var chunks []lectern.Chunk
	for _, c := range s.chunks {
		if c.CourseTitle == title {
			chunks = append(chunks, c)
		}
	}
	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].Index < chunks[j].Index
	})
	return chunks, nil
}

// ReplaceCourse swaps a course's catalog entry and chunks under a single
// write lock, so readers never observe a half-replaced course.
func (s *Store) ReplaceCourse(ctx context.Context, course lectern.Course, chunks []lectern.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleteChunksLocked(lectern.NormalizeTitle(course.Title))
	s.upsertCourseLocked(course)
	s.upsertChunksLocked(chunks)
	return nil
}

func (s *Store) DeleteCourse(ctx context.Context, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	title = lectern.NormalizeTitle(title)
	if _, ok := s.courses[title]; ok {
		delete(s.courses, title)
		for i, t := range s.order {
			if t == title {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
	s.deleteChunksLocked(title)
	return nil
}

func (s *Store) deleteChunksLocked(title string) {
	for id, c := range s.chunks {
		if c.CourseTitle == title {
			delete(s.chunks, id)
		}
	}
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return float32(dot / denom)
}
