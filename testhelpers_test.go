package lectern

import (
	"context"
	"sort"
)

// ---------------------------------------------------------------------------
// Test fakes shared by the root-package tests. The real store
// implementations live in store/ and have their own tests; these fakes keep
// the root package free of import cycles.
// ---------------------------------------------------------------------------

// fakeEmbedder returns canned vectors per exact input text and a fallback
// for everything else.
type fakeEmbedder struct {
	vectors  map[string][]float32
	fallback []float32
	err      error
	calls    []string
}

func (f *fakeEmbedder) Name() string    { return "fake" }
func (f *fakeEmbedder) Dimensions() int { return len(f.fallback) }

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		f.calls = append(f.calls, t)
		if v, ok := f.vectors[t]; ok {
			out[i] = v
		} else {
			out[i] = f.fallback
		}
	}
	return out, nil
}

// fakeStore is a minimal in-memory Store for retriever and resolver tests.
type fakeStore struct {
	courses map[string]Course
	order   []string
	chunks  []Chunk

	searchCoursesErr error
	searchChunksErr  error
}

var _ Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{courses: map[string]Course{}}
}

func (f *fakeStore) addCourse(c Course) {
	title := NormalizeTitle(c.Title)
	if _, ok := f.courses[title]; !ok {
		f.order = append(f.order, title)
	}
	c.Title = title
	f.courses[title] = c
}

func (f *fakeStore) UpsertCourse(_ context.Context, c Course) error {
	f.addCourse(c)
	return nil
}

func (f *fakeStore) GetCourse(_ context.Context, title string) (Course, bool, error) {
	c, ok := f.courses[NormalizeTitle(title)]
	return c, ok, nil
}

func (f *fakeStore) SearchCourses(_ context.Context, embedding []float32, topK int) ([]ScoredCourse, error) {
	if f.searchCoursesErr != nil {
		return nil, f.searchCoursesErr
	}
	var results []ScoredCourse
	for _, c := range f.courses {
		if len(c.Embedding) == 0 {
			continue
		}
		results = append(results, ScoredCourse{Course: c, Distance: 1 - dot(embedding, c.Embedding)})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (f *fakeStore) ListCourseTitles(_ context.Context) ([]string, error) {
	return append([]string(nil), f.order...), nil
}

func (f *fakeStore) CourseCount(_ context.Context) (int, error) {
	return len(f.courses), nil
}

func (f *fakeStore) UpsertChunks(_ context.Context, chunks []Chunk) error {
	f.chunks = append(f.chunks, chunks...)
	return nil
}

func (f *fakeStore) SearchChunks(_ context.Context, embedding []float32, topK int, filter ChunkFilter) ([]ScoredChunk, error) {
	if f.searchChunksErr != nil {
		return nil, f.searchChunksErr
	}
	if topK <= 0 {
		topK = DefaultSearchLimit
	}
	courseFilter := NormalizeTitle(filter.CourseTitle)
	var results []ScoredChunk
	for _, c := range f.chunks {
		if courseFilter != "" && NormalizeTitle(c.CourseTitle) != courseFilter {
			continue
		}
		if filter.LessonNumber != nil && (c.LessonNumber == nil || *c.LessonNumber != *filter.LessonNumber) {
			continue
		}
		results = append(results, ScoredChunk{Chunk: c, Distance: 1 - dot(embedding, c.Embedding)})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (f *fakeStore) ChunksByCourse(_ context.Context, title string) ([]Chunk, error) {
	t := NormalizeTitle(title)
	var out []Chunk
	for _, c := range f.chunks {
		if NormalizeTitle(c.CourseTitle) == t {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

func (f *fakeStore) ReplaceCourse(ctx context.Context, course Course, chunks []Chunk) error {
	t := NormalizeTitle(course.Title)
	kept := f.chunks[:0]
	for _, c := range f.chunks {
		if NormalizeTitle(c.CourseTitle) != t {
			kept = append(kept, c)
		}
	}
	f.chunks = kept
	f.addCourse(course)
	f.chunks = append(f.chunks, chunks...)
	return nil
}

func (f *fakeStore) DeleteCourse(_ context.Context, title string) error {
	t := NormalizeTitle(title)
	delete(f.courses, t)
	for i, o := range f.order {
		if o == t {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	kept := f.chunks[:0]
	for _, c := range f.chunks {
		if NormalizeTitle(c.CourseTitle) != t {
			kept = append(kept, c)
		}
	}
	f.chunks = kept
	return nil
}

func (f *fakeStore) Init(context.Context) error { return nil }
func (f *fakeStore) Close() error               { return nil }

func dot(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func intPtr(n int) *int { return &n }
