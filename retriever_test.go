package lectern

import (
	"context"
	"errors"
	"testing"
)

func seededStore() *fakeStore {
	st := newFakeStore()
	st.addCourse(Course{
		Title:     "MCP Fundamentals",
		Link:      "https://example.com/mcp",
		Embedding: []float32{1, 0, 0},
		Lessons: []Lesson{
			{Number: 1, Title: "Architecture", Link: "https://example.com/mcp/1"},
			{Number: 2, Title: "Servers"},
		},
	})
	st.addCourse(Course{
		Title:     "Baking Basics",
		Embedding: []float32{0, 1, 0},
		Lessons:   []Lesson{{Number: 1, Title: "Dough"}},
	})
	st.chunks = []Chunk{
		{CourseTitle: "MCP Fundamentals", LessonNumber: intPtr(1), Index: 0, Content: "clients talk to servers", Embedding: []float32{1, 0, 0}},
		{CourseTitle: "MCP Fundamentals", LessonNumber: intPtr(2), Index: 1, Content: "servers expose tools", Embedding: []float32{0.9, 0.1, 0}},
		{CourseTitle: "MCP Fundamentals", Index: 2, Content: "course overview", Embedding: []float32{0.5, 0.5, 0}},
		{CourseTitle: "Baking Basics", LessonNumber: intPtr(1), Index: 0, Content: "knead the dough", Embedding: []float32{0, 1, 0}},
	}
	return st
}

func seededRetriever(opts ...RetrieverOption) (*Retriever, *fakeStore) {
	st := seededStore()
	emb := &fakeEmbedder{
		vectors: map[string][]float32{
			"how do clients connect": {1, 0, 0},
			"mcp":                    {1, 0, 0},
			"baking":                 {0, 1, 0},
		},
		fallback: []float32{0, 0, 1},
	}
	return NewRetriever(st, emb, opts...), st
}

func TestSearchOrdersByDistance(t *testing.T) {
	r, _ := seededRetriever()

	results, err := r.Search(context.Background(), "how do clients connect", "", nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("got %d results, want 4", len(results))
	}
	if results[0].Content != "clients talk to servers" {
		t.Errorf("top result = %q, want the closest chunk", results[0].Content)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Distance < results[i-1].Distance {
			t.Errorf("results not in ascending distance at %d", i)
		}
	}
}

func TestSearchSourceLabelsAndLinks(t *testing.T) {
	r, _ := seededRetriever()

	results, err := r.Search(context.Background(), "how do clients connect", "", nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if results[0].Source != "MCP Fundamentals - Lesson 1" {
		t.Errorf("source = %q, want course and lesson label", results[0].Source)
	}
	if results[0].Link != "https://example.com/mcp/1" {
		t.Errorf("link = %q, want lesson link", results[0].Link)
	}

	// Lesson 2 has no link; the label still carries the lesson number.
	var lesson2 *SearchResult
	for i := range results {
		if results[i].LessonNumber != nil && *results[i].LessonNumber == 2 {
			lesson2 = &results[i]
		}
	}
	if lesson2 == nil {
		t.Fatal("lesson 2 chunk missing from results")
	}
	if lesson2.Source != "MCP Fundamentals - Lesson 2" || lesson2.Link != "" {
		t.Errorf("lesson 2 source/link = %q/%q", lesson2.Source, lesson2.Link)
	}

	// Preamble chunk has no lesson; the label is the bare course title.
	var preamble *SearchResult
	for i := range results {
		if results[i].LessonNumber == nil {
			preamble = &results[i]
		}
	}
	if preamble == nil {
		t.Fatal("preamble chunk missing from results")
	}
	if preamble.Source != "MCP Fundamentals" || preamble.Link != "" {
		t.Errorf("preamble source/link = %q/%q", preamble.Source, preamble.Link)
	}
}

func TestSearchCourseFilterResolves(t *testing.T) {
	r, _ := seededRetriever()

	results, err := r.Search(context.Background(), "how do clients connect", "baking", nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, res := range results {
		if res.CourseTitle != "Baking Basics" {
			t.Errorf("result from %q leaked through course filter", res.CourseTitle)
		}
	}
	if len(results) != 1 {
		t.Errorf("got %d results, want 1", len(results))
	}
}

func TestSearchUnresolvedCourse(t *testing.T) {
	// Only an empty catalog fails to resolve under the default top-1 policy.
	st := newFakeStore()
	emb := &fakeEmbedder{fallback: []float32{1, 0, 0}}
	r := NewRetriever(st, emb)

	_, err := r.Search(context.Background(), "anything", "ghost course", nil)
	var notFound *CourseNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("err = %v, want *CourseNotFoundError", err)
	}
	if notFound.Name != "ghost course" {
		t.Errorf("Name = %q, want the original fragment", notFound.Name)
	}
}

func TestSearchLessonFilter(t *testing.T) {
	r, _ := seededRetriever()

	results, err := r.Search(context.Background(), "how do clients connect", "mcp", intPtr(2))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Content != "servers expose tools" {
		t.Errorf("content = %q", results[0].Content)
	}
}

func TestSearchEmptyResultIsNotError(t *testing.T) {
	r, _ := seededRetriever()

	results, err := r.Search(context.Background(), "anything", "mcp", intPtr(99))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}

func TestSearchStoreError(t *testing.T) {
	st := seededStore()
	st.searchChunksErr = errors.New("disk gone")
	r := NewRetriever(st, &fakeEmbedder{fallback: []float32{1, 0, 0}})

	if _, err := r.Search(context.Background(), "q", "", nil); err == nil {
		t.Fatal("want error when chunk search fails")
	}
}

func TestLastSourcesLifecycle(t *testing.T) {
	r, _ := seededRetriever()

	if got := r.LastSources(); len(got) != 0 {
		t.Fatalf("sources before any search = %v", got)
	}

	if _, err := r.Search(context.Background(), "how do clients connect", "mcp", intPtr(1)); err != nil {
		t.Fatalf("Search: %v", err)
	}
	sources := r.LastSources()
	if len(sources) != 1 {
		t.Fatalf("got %d sources, want 1", len(sources))
	}
	if sources[0].Label != "MCP Fundamentals - Lesson 1" || sources[0].Link != "https://example.com/mcp/1" {
		t.Errorf("source = %+v", sources[0])
	}

	// Mutating the returned slice must not affect the retained copy.
	sources[0].Label = "mutated"
	if r.LastSources()[0].Label != "MCP Fundamentals - Lesson 1" {
		t.Error("LastSources returned the internal slice, want a copy")
	}

	r.ResetSources()
	if got := r.LastSources(); len(got) != 0 {
		t.Errorf("sources after reset = %v", got)
	}
}

func TestSearchReplacesPreviousSources(t *testing.T) {
	r, _ := seededRetriever()
	ctx := context.Background()

	if _, err := r.Search(ctx, "how do clients connect", "", nil); err != nil {
		t.Fatalf("Search: %v", err)
	}
	first := len(r.LastSources())

	if _, err := r.Search(ctx, "baking", "baking", nil); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got := r.LastSources(); len(got) != 1 || len(got) == first {
		t.Errorf("sources after second search = %v", got)
	}
}

func TestOutline(t *testing.T) {
	r, _ := seededRetriever()

	course, err := r.Outline(context.Background(), "mcp")
	if err != nil {
		t.Fatalf("Outline: %v", err)
	}
	if course.Title != "MCP Fundamentals" {
		t.Errorf("title = %q", course.Title)
	}
	if course.Link != "https://example.com/mcp" {
		t.Errorf("link = %q", course.Link)
	}
	if len(course.Lessons) != 2 || course.Lessons[1].Title != "Servers" {
		t.Errorf("lessons = %+v", course.Lessons)
	}
}

func TestOutlineUnresolved(t *testing.T) {
	r := NewRetriever(newFakeStore(), &fakeEmbedder{fallback: []float32{1, 0, 0}})

	_, err := r.Outline(context.Background(), "ghost")
	var notFound *CourseNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("err = %v, want *CourseNotFoundError", err)
	}
}

func TestStats(t *testing.T) {
	r, _ := seededRetriever()

	stats, err := r.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalCourses != 2 {
		t.Errorf("TotalCourses = %d, want 2", stats.TotalCourses)
	}
	want := []string{"MCP Fundamentals", "Baking Basics"}
	if len(stats.CourseTitles) != len(want) {
		t.Fatalf("titles = %v", stats.CourseTitles)
	}
	for i, title := range want {
		if stats.CourseTitles[i] != title {
			t.Errorf("titles[%d] = %q, want %q", i, stats.CourseTitles[i], title)
		}
	}
}
