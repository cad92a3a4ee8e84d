package lectern

import (
	"context"
	"fmt"
)

// CourseResolver maps a user-typed course-name fragment (possibly partial,
// misspelled, or abbreviated) to the canonical stored title via top-1
// similarity over the catalog collection.
//
// By default the top hit is trusted unconditionally, so a nonsense fragment
// resolves to whatever course scores closest. Callers wanting stricter
// behavior set WithMinResolveScore; hits below the cutoff count as no match.
type CourseResolver struct {
	store     Store
	embedding EmbeddingProvider
	minScore  float32
}

// ResolverOption configures a CourseResolver.
type ResolverOption func(*CourseResolver)

// WithMinResolveScore sets the minimum similarity (1 - distance) a top hit
// must reach to count as a resolution. Default is 0: any hit resolves.
func WithMinResolveScore(s float32) ResolverOption {
	return func(r *CourseResolver) { r.minScore = s }
}

// NewCourseResolver creates a resolver over the given store and embedding
// provider.
func NewCourseResolver(store Store, embedding EmbeddingProvider, opts ...ResolverOption) *CourseResolver {
	r := &CourseResolver{store: store, embedding: embedding}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve returns the stored title most similar to fragment. ok is false
// when the catalog is empty or no hit clears the configured minimum
// similarity; that is not an error.
func (r *CourseResolver) Resolve(ctx context.Context, fragment string) (title string, ok bool, err error) {
	embs, err := r.embedding.Embed(ctx, []string{NormalizeTitle(fragment)})
	if err != nil {
		return "", false, fmt.Errorf("embed course name: %w", err)
	}
	if len(embs) == 0 {
		return "", false, fmt.Errorf("embed course name: no embedding returned")
	}

	hits, err := r.store.SearchCourses(ctx, embs[0], 1)
	if err != nil {
		return "", false, fmt.Errorf("search catalog: %w", err)
	}
	if len(hits) == 0 {
		return "", false, nil
	}
	if r.minScore > 0 && (1-hits[0].Distance) < r.minScore {
		return "", false, nil
	}
	return hits[0].Title, true, nil
}
