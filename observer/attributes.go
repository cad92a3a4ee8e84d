package observer

import "go.opentelemetry.io/otel/attribute"

// Attribute keys for retrieval observability spans and metrics.
var (
	AttrEmbedProvider   = attribute.Key("embedding.provider")
	AttrEmbedTextCount  = attribute.Key("embedding.text_count")
	AttrEmbedDimensions = attribute.Key("embedding.dimensions")

	AttrCourseTitle  = attribute.Key("course.title")
	AttrLessonNumber = attribute.Key("course.lesson_number")

	AttrSearchTopK    = attribute.Key("search.top_k")
	AttrSearchResults = attribute.Key("search.results")

	AttrIngestRunID = attribute.Key("ingest.run_id")
	AttrIngestPath  = attribute.Key("ingest.path")
)
