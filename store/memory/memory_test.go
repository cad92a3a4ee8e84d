package memory

import (
	"context"
	"sync"
	"testing"

	lectern "github.com/nevindra/lectern"
)

func intPtr(n int) *int { return &n }

func TestCatalogRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	course := lectern.Course{
		Title:   " Spaced Out ",
		Lessons: []lectern.Lesson{{Number: 1, Title: "One"}},
	}
	if err := s.UpsertCourse(ctx, course); err != nil {
		t.Fatalf("UpsertCourse: %v", err)
	}

	got, found, err := s.GetCourse(ctx, "Spaced Out")
	if err != nil {
		t.Fatalf("GetCourse: %v", err)
	}
	if !found {
		t.Fatal("expected course to be found under normalized title")
	}
	if got.Title != "Spaced Out" {
		t.Errorf("stored title not normalized: %q", got.Title)
	}
	if got.CreatedAt == 0 {
		t.Error("expected created_at to be set")
	}
}

func TestListTitlesStableAcrossUpserts(t *testing.T) {
	s := New()
	ctx := context.Background()

	for _, title := range []string{"C", "A", "B"} {
		s.UpsertCourse(ctx, lectern.Course{Title: title})
	}
	s.UpsertCourse(ctx, lectern.Course{Title: "C", Instructor: "Updated"})

	titles, _ := s.ListCourseTitles(ctx)
	want := []string{"C", "A", "B"}
	for i := range want {
		if titles[i] != want[i] {
			t.Fatalf("titles = %v, want %v", titles, want)
		}
	}
}

func TestSearchChunksFiltering(t *testing.T) {
	s := New()
	ctx := context.Background()

	s.UpsertChunks(ctx, []lectern.Chunk{
		{CourseTitle: "Go", LessonNumber: intPtr(1), Index: 0, Content: "a", Embedding: []float32{1, 0}},
		{CourseTitle: "Go", LessonNumber: intPtr(2), Index: 1, Content: "b", Embedding: []float32{1, 0}},
		{CourseTitle: "SQL", LessonNumber: intPtr(1), Index: 0, Content: "c", Embedding: []float32{1, 0}},
		{CourseTitle: "Go", Index: 2, Content: "no lesson", Embedding: []float32{1, 0}},
	})

	results, err := s.SearchChunks(ctx, []float32{1, 0}, 10, lectern.ChunkFilter{CourseTitle: "Go", LessonNumber: intPtr(1)})
	if err != nil {
		t.Fatalf("SearchChunks: %v", err)
	}
	if len(results) != 1 || results[0].Content != "a" {
		t.Errorf("expected single filtered chunk, got %+v", results)
	}

	// A lesson filter must exclude chunks with no lesson number.
	results, _ = s.SearchChunks(ctx, []float32{1, 0}, 10, lectern.ChunkFilter{LessonNumber: intPtr(2)})
	if len(results) != 1 || results[0].Content != "b" {
		t.Errorf("lesson filter leaked: %+v", results)
	}
}

func TestReplaceCourseDropsStaleChunks(t *testing.T) {
	s := New()
	ctx := context.Background()

	course := lectern.Course{Title: "Replace", Embedding: []float32{1, 0}}
	s.ReplaceCourse(ctx, course, []lectern.Chunk{
		{CourseTitle: "Replace", Index: 0, Content: "old", Embedding: []float32{1, 0}},
		{CourseTitle: "Replace", Index: 1, Content: "older", Embedding: []float32{1, 0}},
	})
	s.ReplaceCourse(ctx, course, []lectern.Chunk{
		{CourseTitle: "Replace", Index: 0, Content: "new", Embedding: []float32{1, 0}},
	})

	chunks, _ := s.ChunksByCourse(ctx, "Replace")
	if len(chunks) != 1 || chunks[0].Content != "new" {
		t.Errorf("stale chunks survived: %+v", chunks)
	}
}

func TestDeleteCourse(t *testing.T) {
	s := New()
	ctx := context.Background()

	s.ReplaceCourse(ctx, lectern.Course{Title: "Gone"}, []lectern.Chunk{
		{CourseTitle: "Gone", Index: 0, Content: "x", Embedding: []float32{1}},
	})
	if err := s.DeleteCourse(ctx, "Gone"); err != nil {
		t.Fatalf("DeleteCourse: %v", err)
	}
	if _, found, _ := s.GetCourse(ctx, "Gone"); found {
		t.Error("course survived delete")
	}
	titles, _ := s.ListCourseTitles(ctx)
	if len(titles) != 0 {
		t.Errorf("title list not updated: %v", titles)
	}
	if err := s.DeleteCourse(ctx, "Gone"); err != nil {
		t.Errorf("double delete: %v", err)
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.ReplaceCourse(ctx, lectern.Course{Title: "Shared", Embedding: []float32{1, 0}}, []lectern.Chunk{
				{CourseTitle: "Shared", Index: 0, Content: "c", Embedding: []float32{1, 0}},
			})
		}()
		go func() {
			defer wg.Done()
			s.SearchChunks(ctx, []float32{1, 0}, 5, lectern.ChunkFilter{})
			s.ListCourseTitles(ctx)
		}()
	}
	wg.Wait()

	n, _ := s.CourseCount(ctx)
	if n != 1 {
		t.Errorf("expected 1 course, got %d", n)
	}
}
