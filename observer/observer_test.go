package observer

import (
	"context"
	"errors"
	"testing"

	lectern "github.com/nevindra/lectern"
)

// ---------------------------------------------------------------------------
// Mock implementations
// ---------------------------------------------------------------------------

// mockEmbedding for observer tests.
type mockEmbedding struct {
	name string
	dims int
	vecs [][]float32
	err  error
}

func (m *mockEmbedding) Name() string    { return m.name }
func (m *mockEmbedding) Dimensions() int { return m.dims }
func (m *mockEmbedding) Embed(_ context.Context, _ []string) ([][]float32, error) {
	return m.vecs, m.err
}

// mockStore records which operations passed through.
type mockStore struct {
	lectern.Store
	searchChunksCalls int
	searchErr         error
	replaceCalls      int
}

func (m *mockStore) SearchChunks(_ context.Context, _ []float32, _ int, _ lectern.ChunkFilter) ([]lectern.ScoredChunk, error) {
	m.searchChunksCalls++
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return []lectern.ScoredChunk{{Chunk: lectern.Chunk{Content: "hit"}}}, nil
}

func (m *mockStore) SearchCourses(_ context.Context, _ []float32, _ int) ([]lectern.ScoredCourse, error) {
	return nil, nil
}

func (m *mockStore) ReplaceCourse(_ context.Context, _ lectern.Course, _ []lectern.Chunk) error {
	m.replaceCalls++
	return nil
}

// testInstruments creates a no-op Instruments using the global OTEL providers
// (which are no-ops by default). This is safe for testing delegation behavior
// without any real OTEL backend.
func testInstruments(t *testing.T) *Instruments {
	t.Helper()
	inst, err := newInstruments()
	if err != nil {
		t.Fatalf("newInstruments: %v", err)
	}
	return inst
}

// ---------------------------------------------------------------------------
// ObservedEmbedding tests
// ---------------------------------------------------------------------------

func TestObservedEmbeddingDelegates(t *testing.T) {
	inner := &mockEmbedding{name: "mock", dims: 3, vecs: [][]float32{{1, 2, 3}}}
	obs := WrapEmbedding(inner, testInstruments(t))

	if obs.Name() != "mock" {
		t.Errorf("Name = %q", obs.Name())
	}
	if obs.Dimensions() != 3 {
		t.Errorf("Dimensions = %d", obs.Dimensions())
	}

	vecs, err := obs.Embed(context.Background(), []string{"text"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs) != 1 || vecs[0][0] != 1 {
		t.Errorf("unexpected result: %v", vecs)
	}
}

func TestObservedEmbeddingPropagatesError(t *testing.T) {
	wantErr := errors.New("backend down")
	obs := WrapEmbedding(&mockEmbedding{name: "mock", err: wantErr}, testInstruments(t))

	_, err := obs.Embed(context.Background(), []string{"text"})
	if !errors.Is(err, wantErr) {
		t.Errorf("expected wrapped error, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// ObservedStore tests
// ---------------------------------------------------------------------------

func TestObservedStoreDelegates(t *testing.T) {
	inner := &mockStore{}
	obs := WrapStore(inner, testInstruments(t))

	results, err := obs.SearchChunks(context.Background(), []float32{1}, 5, lectern.ChunkFilter{})
	if err != nil {
		t.Fatalf("SearchChunks: %v", err)
	}
	if len(results) != 1 || results[0].Content != "hit" {
		t.Errorf("unexpected results: %+v", results)
	}
	if inner.searchChunksCalls != 1 {
		t.Errorf("inner called %d times", inner.searchChunksCalls)
	}

	if err := obs.ReplaceCourse(context.Background(), lectern.Course{Title: "X"}, nil); err != nil {
		t.Fatalf("ReplaceCourse: %v", err)
	}
	if inner.replaceCalls != 1 {
		t.Errorf("replace called %d times", inner.replaceCalls)
	}
}

func TestObservedStorePropagatesError(t *testing.T) {
	wantErr := errors.New("store broken")
	obs := WrapStore(&mockStore{searchErr: wantErr}, testInstruments(t))

	_, err := obs.SearchChunks(context.Background(), []float32{1}, 5, lectern.ChunkFilter{})
	if !errors.Is(err, wantErr) {
		t.Errorf("expected wrapped error, got %v", err)
	}
}
