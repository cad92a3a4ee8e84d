package lectern

import "fmt"

// MalformedHeaderError reports a course document whose leading lines do not
// form a valid "Course Title:" header. The document is skipped during batch
// ingestion.
type MalformedHeaderError struct {
	Path string
	Line int
}

func (e *MalformedHeaderError) Error() string {
	return fmt.Sprintf("%s: malformed course header at line %d", e.Path, e.Line)
}

// EmptyDocumentError reports a course document with a valid header but no
// lesson or preamble content.
type EmptyDocumentError struct {
	Path string
}

func (e *EmptyDocumentError) Error() string {
	return fmt.Sprintf("%s: no content after course header", e.Path)
}

// SourceReadError reports a source file that could not be read or whose
// container format (PDF, DOCX) could not be decoded. The document is
// skipped, the batch continues.
type SourceReadError struct {
	Path string
	Err  error
}

func (e *SourceReadError) Error() string {
	return fmt.Sprintf("%s: read source: %v", e.Path, e.Err)
}

func (e *SourceReadError) Unwrap() error { return e.Err }

// CourseNotFoundError reports that a course-name filter could not be
// resolved against the catalog. Name holds the caller's original fragment.
type CourseNotFoundError struct {
	Name string
}

func (e *CourseNotFoundError) Error() string {
	return fmt.Sprintf("no course found matching %q", e.Name)
}

// ErrHTTP reports a non-2xx response from an embedding backend.
type ErrHTTP struct {
	Status int
	Body   string
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}
