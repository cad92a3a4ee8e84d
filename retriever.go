package lectern

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Retriever combines course-name resolution, filtered similarity search, and
// source attribution into a single Search call. It is safe for concurrent
// use; the last call's sources are retained for inspection by a surrounding
// tool layer (see LastSources).
type Retriever struct {
	store     Store
	embedding EmbeddingProvider
	resolver  *CourseResolver
	topK      int
	logger    *slog.Logger

	mu          sync.Mutex
	lastSources []Source
}

// RetrieverOption configures a Retriever.
type RetrieverOption func(*Retriever)

// WithTopK sets the maximum number of results per search. Default is 5.
func WithTopK(n int) RetrieverOption {
	return func(r *Retriever) { r.topK = n }
}

// WithLogger sets a structured logger. If not set, no logs are emitted.
func WithLogger(l *slog.Logger) RetrieverOption {
	return func(r *Retriever) { r.logger = l }
}

// WithResolver injects a custom CourseResolver. When not set, a default
// resolver (unconditional top-1) is created from the store and embedding.
func WithResolver(cr *CourseResolver) RetrieverOption {
	return func(r *Retriever) { r.resolver = cr }
}

// NewRetriever creates a Retriever over the given store and embedding
// provider.
func NewRetriever(store Store, embedding EmbeddingProvider, opts ...RetrieverOption) *Retriever {
	r := &Retriever{
		store:     store,
		embedding: embedding,
		topK:      DefaultSearchLimit,
		logger:    nopLogger,
	}
	for _, o := range opts {
		o(r)
	}
	if r.resolver == nil {
		r.resolver = NewCourseResolver(store, embedding)
	}
	return r
}

// Search retrieves the chunks most relevant to query, ordered by ascending
// distance. courseName, when non-empty, is fuzzily resolved against the
// catalog first; failure to resolve returns a *CourseNotFoundError and no
// content search is attempted. lessonNumber, when non-nil, is a mandatory
// equality filter. An empty result is a valid outcome, not an error.
func (r *Retriever) Search(ctx context.Context, query, courseName string, lessonNumber *int) ([]SearchResult, error) {
	filter := ChunkFilter{LessonNumber: lessonNumber}

	if courseName != "" {
		title, ok, err := r.resolver.Resolve(ctx, courseName)
		if err != nil {
			return nil, err
		}
		if !ok {
			r.logger.Debug("course name did not resolve", "fragment", courseName)
			return nil, &CourseNotFoundError{Name: courseName}
		}
		filter.CourseTitle = title
		r.logger.Debug("course name resolved", "fragment", courseName, "title", title)
	}

	embs, err := r.embedding.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(embs) == 0 {
		return nil, fmt.Errorf("embed query: no embedding returned")
	}

	hits, err := r.store.SearchChunks(ctx, embs[0], r.topK, filter)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}

	results := make([]SearchResult, 0, len(hits))
	sources := make([]Source, 0, len(hits))
	courses := make(map[string]Course)

	for _, h := range hits {
		res := SearchResult{
			Content:      h.Content,
			CourseTitle:  h.CourseTitle,
			LessonNumber: h.LessonNumber,
			Distance:     h.Distance,
			Source:       h.CourseTitle,
		}
		if h.LessonNumber != nil {
			res.Source = fmt.Sprintf("%s - Lesson %d", h.CourseTitle, *h.LessonNumber)
			if link, ok := r.lessonLink(ctx, courses, h.CourseTitle, *h.LessonNumber); ok {
				res.Link = link
			}
		}
		results = append(results, res)
		sources = append(sources, Source{Label: res.Source, Link: res.Link})
	}

	r.mu.Lock()
	r.lastSources = sources
	r.mu.Unlock()

	r.logger.Debug("search completed", "query", query, "course", filter.CourseTitle, "results", len(results))
	return results, nil
}

// lessonLink looks up a lesson's link, caching course records per call.
// Lookup failures degrade to no link.
func (r *Retriever) lessonLink(ctx context.Context, cache map[string]Course, title string, lesson int) (string, bool) {
	course, seen := cache[title]
	if !seen {
		var ok bool
		var err error
		course, ok, err = r.store.GetCourse(ctx, title)
		if err != nil || !ok {
			cache[title] = Course{}
			return "", false
		}
		cache[title] = course
	}
	l, ok := course.LessonByNumber(lesson)
	if !ok || l.Link == "" {
		return "", false
	}
	return l.Link, true
}

// LastSources returns the source attributions of the most recent Search
// call, in result order. The returned slice is a copy.
func (r *Retriever) LastSources() []Source {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Source, len(r.lastSources))
	copy(out, r.lastSources)
	return out
}

// ResetSources clears the retained sources.
func (r *Retriever) ResetSources() {
	r.mu.Lock()
	r.lastSources = nil
	r.mu.Unlock()
}

// Outline resolves courseName and returns the full stored course record:
// title, link, and the ordered lesson list.
func (r *Retriever) Outline(ctx context.Context, courseName string) (Course, error) {
	title, ok, err := r.resolver.Resolve(ctx, courseName)
	if err != nil {
		return Course{}, err
	}
	if !ok {
		return Course{}, &CourseNotFoundError{Name: courseName}
	}
	course, found, err := r.store.GetCourse(ctx, title)
	if err != nil {
		return Course{}, fmt.Errorf("get course: %w", err)
	}
	if !found {
		return Course{}, &CourseNotFoundError{Name: courseName}
	}
	return course, nil
}

// Stats returns corpus statistics: the number of stored courses and their
// titles in insertion order.
func (r *Retriever) Stats(ctx context.Context) (CourseStats, error) {
	count, err := r.store.CourseCount(ctx)
	if err != nil {
		return CourseStats{}, fmt.Errorf("course count: %w", err)
	}
	titles, err := r.store.ListCourseTitles(ctx)
	if err != nil {
		return CourseStats{}, fmt.Errorf("list titles: %w", err)
	}
	return CourseStats{TotalCourses: count, CourseTitles: titles}, nil
}
