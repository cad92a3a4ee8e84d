// Package coursesearch exposes course retrieval as tool functions for a
// surrounding LLM tool-invocation layer: semantic content search and
// course outline lookup. Answer generation itself is out of scope.
package coursesearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	lectern "github.com/nevindra/lectern"
)

// CourseSearchTool answers content and outline queries against a Retriever.
// Source attributions from the last content search are available via
// LastSources for UI display.
type CourseSearchTool struct {
	retriever *lectern.Retriever
}

var _ lectern.Tool = (*CourseSearchTool)(nil)

// New creates a CourseSearchTool over an existing Retriever.
func New(retriever *lectern.Retriever) *CourseSearchTool {
	return &CourseSearchTool{retriever: retriever}
}

func (t *CourseSearchTool) Definitions() []lectern.ToolDefinition {
	return []lectern.ToolDefinition{
		{
			Name:        "search_course_content",
			Description: "Search course materials with smart course name matching and lesson filtering",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"query": {"type": "string", "description": "What to search for in course content"},
					"course_name": {"type": "string", "description": "Course title (partial matches work)"},
					"lesson_number": {"type": "integer", "description": "Specific lesson number to search within"}
				},
				"required": ["query"]
			}`),
		},
		{
			Name:        "get_course_outline",
			Description: "Get the full outline of a course: title, link, and complete lesson list",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"course_name": {"type": "string", "description": "Course title (partial matches work)"}
				},
				"required": ["course_name"]
			}`),
		},
	}
}

func (t *CourseSearchTool) Execute(ctx context.Context, name string, args json.RawMessage) (lectern.ToolResult, error) {
	switch name {
	case "search_course_content":
		return t.executeSearch(ctx, args)
	case "get_course_outline":
		return t.executeOutline(ctx, args)
	default:
		return lectern.ToolResult{Error: "unknown tool: " + name}, nil
	}
}

func (t *CourseSearchTool) executeSearch(ctx context.Context, args json.RawMessage) (lectern.ToolResult, error) {
	var params struct {
		Query        string `json:"query"`
		CourseName   string `json:"course_name"`
		LessonNumber *int   `json:"lesson_number"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return lectern.ToolResult{Error: "invalid args: " + err.Error()}, nil
	}

	results, err := t.retriever.Search(ctx, params.Query, params.CourseName, params.LessonNumber)
	if err != nil {
		var notFound *lectern.CourseNotFoundError
		if errors.As(err, &notFound) {
			return lectern.ToolResult{Content: fmt.Sprintf("No course found matching '%s'", notFound.Name)}, nil
		}
		return lectern.ToolResult{Error: "search error: " + err.Error()}, nil
	}

	if len(results) == 0 {
		return lectern.ToolResult{Content: emptyMessage(params.CourseName, params.LessonNumber)}, nil
	}

	blocks := make([]string, 0, len(results))
	for _, r := range results {
		header := "[" + r.CourseTitle
		if r.LessonNumber != nil {
			header += fmt.Sprintf(" - Lesson %d", *r.LessonNumber)
		}
		header += "]"
		blocks = append(blocks, header+"\n"+r.Content)
	}
	return lectern.ToolResult{Content: strings.Join(blocks, "\n\n")}, nil
}

// emptyMessage mirrors the search filters back so the model can tell the
// user why nothing matched.
func emptyMessage(courseName string, lessonNumber *int) string {
	msg := "No relevant content found"
	if courseName != "" {
		msg += fmt.Sprintf(" in course '%s'", courseName)
	}
	if lessonNumber != nil {
		msg += fmt.Sprintf(" in lesson %d", *lessonNumber)
	}
	return msg + "."
}

func (t *CourseSearchTool) executeOutline(ctx context.Context, args json.RawMessage) (lectern.ToolResult, error) {
	var params struct {
		CourseName string `json:"course_name"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return lectern.ToolResult{Error: "invalid args: " + err.Error()}, nil
	}

	course, err := t.retriever.Outline(ctx, params.CourseName)
	if err != nil {
		var notFound *lectern.CourseNotFoundError
		if errors.As(err, &notFound) {
			return lectern.ToolResult{Content: fmt.Sprintf("No course found matching '%s'", notFound.Name)}, nil
		}
		return lectern.ToolResult{Error: "outline error: " + err.Error()}, nil
	}

	var out strings.Builder
	fmt.Fprintf(&out, "Course: %s\n", course.Title)
	if course.Link != "" {
		fmt.Fprintf(&out, "Course Link: %s\n", course.Link)
	}
	if course.Instructor != "" {
		fmt.Fprintf(&out, "Instructor: %s\n", course.Instructor)
	}
	fmt.Fprintf(&out, "Lessons (%d):\n", len(course.Lessons))
	for _, l := range course.Lessons {
		fmt.Fprintf(&out, "  %d. %s\n", l.Number, l.Title)
	}
	return lectern.ToolResult{Content: strings.TrimRight(out.String(), "\n")}, nil
}

// LastSources returns the source attributions of the most recent content
// search, in result order.
func (t *CourseSearchTool) LastSources() []lectern.Source {
	return t.retriever.LastSources()
}

// ResetSources clears retained source attributions.
func (t *CourseSearchTool) ResetSources() {
	t.retriever.ResetSources()
}
