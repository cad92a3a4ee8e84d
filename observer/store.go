package observer

import (
	"context"
	"time"

	lectern "github.com/nevindra/lectern"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ObservedStore wraps a lectern.Store, tracing the retrieval-path
// operations and counting search and resolution requests. Write-path
// operations pass through untouched.
type ObservedStore struct {
	lectern.Store
	inst *Instruments
}

var _ lectern.Store = (*ObservedStore)(nil)

// WrapStore returns an instrumented store.
func WrapStore(inner lectern.Store, inst *Instruments) *ObservedStore {
	return &ObservedStore{Store: inner, inst: inst}
}

func (o *ObservedStore) SearchChunks(ctx context.Context, embedding []float32, topK int, filter lectern.ChunkFilter) ([]lectern.ScoredChunk, error) {
	ctx, span := o.inst.Tracer.Start(ctx, "store.search_chunks", trace.WithAttributes(
		AttrSearchTopK.Int(topK),
		AttrCourseTitle.String(filter.CourseTitle),
	))
	defer span.End()
	start := time.Now()

	results, err := o.Store.SearchChunks(ctx, embedding, topK, filter)

	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(AttrSearchResults.Int(len(results)))
	}

	o.inst.SearchRequests.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	o.inst.SearchDuration.Record(ctx, float64(time.Since(start).Milliseconds()))
	return results, err
}

func (o *ObservedStore) SearchCourses(ctx context.Context, embedding []float32, topK int) ([]lectern.ScoredCourse, error) {
	ctx, span := o.inst.Tracer.Start(ctx, "store.search_courses", trace.WithAttributes(
		AttrSearchTopK.Int(topK),
	))
	defer span.End()

	results, err := o.Store.SearchCourses(ctx, embedding, topK)

	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	o.inst.ResolveRequests.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	return results, err
}

func (o *ObservedStore) ReplaceCourse(ctx context.Context, course lectern.Course, chunks []lectern.Chunk) error {
	ctx, span := o.inst.Tracer.Start(ctx, "store.replace_course", trace.WithAttributes(
		AttrCourseTitle.String(course.Title),
	))
	defer span.End()
	start := time.Now()

	err := o.Store.ReplaceCourse(ctx, course, chunks)

	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		o.inst.DocumentsIngested.Add(ctx, 1)
		o.inst.ChunksStored.Add(ctx, int64(len(chunks)))
	}
	o.inst.IngestDuration.Record(ctx, float64(time.Since(start).Milliseconds()),
		metric.WithAttributes(attribute.String("status", status)))
	return err
}
