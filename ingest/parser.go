package ingest

import (
	"regexp"
	"strings"

	lectern "github.com/nevindra/lectern"
)

// Course document layout:
//
//	Course Title: <string>
//	Course Link: <url, optional>
//	Course Instructor: <string, optional>
//
//	Lesson 0: <title>
//	Lesson Link: <url, optional>
//	<body text...>
//
// Text before the first lesson marker is treated as unlabeled preamble and
// chunked without a lesson number.
var lessonMarkerRe = regexp.MustCompile(`^Lesson\s+(\d+):\s*(.*)$`)

const (
	headerTitlePrefix      = "Course Title:"
	headerLinkPrefix       = "Course Link:"
	headerInstructorPrefix = "Course Instructor:"
	lessonLinkPrefix       = "Lesson Link:"
)

// Parser reads the structured course document format and delegates chunk
// construction to a CourseChunker.
type Parser struct {
	chunker *CourseChunker
}

// NewParser creates a Parser. A nil chunker means defaults (800/100).
func NewParser(chunker *CourseChunker) *Parser {
	if chunker == nil {
		chunker = NewCourseChunker()
	}
	return &Parser{chunker: chunker}
}

// Parse extracts course metadata and lesson bodies from text and produces
// the course plus its complete ordered chunk sequence. path is used only
// for error reporting.
//
// It fails with *lectern.MalformedHeaderError when the leading lines do not
// form a valid header and with *lectern.EmptyDocumentError when no content
// remains after the header.
func (p *Parser) Parse(text, path string) (lectern.Course, []lectern.Chunk, error) {
	lines := strings.Split(text, "\n")

	course, next, err := parseHeader(lines, path)
	if err != nil {
		return lectern.Course{}, nil, err
	}

	var chunks []lectern.Chunk
	var body []string
	var lessonNumber *int
	documentFirst := true

	flush := func() {
		sentences := SplitSentences(strings.Join(body, "\n"))
		body = body[:0]
		if len(sentences) == 0 {
			return
		}
		texts := p.chunker.ChunkSection(course.Title, lessonNumber, documentFirst, sentences)
		for _, t := range texts {
			chunks = append(chunks, lectern.Chunk{
				Content:      t,
				CourseTitle:  course.Title,
				LessonNumber: lessonNumber,
				Index:        len(chunks),
			})
		}
		if len(texts) > 0 {
			documentFirst = false
		}
	}

	for i := next; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if m := lessonMarkerRe.FindStringSubmatch(line); m != nil {
			flush()
			n := atoiDigits(m[1])
			lessonNumber = &n
			lesson := lectern.Lesson{Number: n, Title: strings.TrimSpace(m[2])}
			if i+1 < len(lines) {
				if link, ok := strings.CutPrefix(strings.TrimSpace(lines[i+1]), lessonLinkPrefix); ok {
					lesson.Link = strings.TrimSpace(link)
					i++
				}
			}
			course.Lessons = append(course.Lessons, lesson)
			continue
		}
		if line != "" {
			body = append(body, line)
		}
	}
	flush()

	if len(chunks) == 0 {
		return lectern.Course{}, nil, &lectern.EmptyDocumentError{Path: path}
	}
	return course, chunks, nil
}

// parseHeader reads the course header from the first non-empty lines:
// a mandatory title, then optional link and instructor lines. It returns
// the partially filled course and the index of the first body line.
func parseHeader(lines []string, path string) (lectern.Course, int, error) {
	i := 0
	skipEmpty := func() {
		for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
			i++
		}
	}

	skipEmpty()
	if i >= len(lines) {
		return lectern.Course{}, 0, &lectern.MalformedHeaderError{Path: path, Line: i + 1}
	}
	title, ok := strings.CutPrefix(strings.TrimSpace(lines[i]), headerTitlePrefix)
	title = lectern.NormalizeTitle(title)
	if !ok || title == "" {
		return lectern.Course{}, 0, &lectern.MalformedHeaderError{Path: path, Line: i + 1}
	}
	course := lectern.Course{Title: title, CreatedAt: lectern.NowUnix()}
	i++

	// Optional link and instructor lines, in order. Their absence is
	// tolerated; an unrelated line simply belongs to the body.
	skipEmpty()
	if i < len(lines) {
		if v, ok := strings.CutPrefix(strings.TrimSpace(lines[i]), headerLinkPrefix); ok {
			course.Link = strings.TrimSpace(v)
			i++
		}
	}
	skipEmpty()
	if i < len(lines) {
		if v, ok := strings.CutPrefix(strings.TrimSpace(lines[i]), headerInstructorPrefix); ok {
			course.Instructor = strings.TrimSpace(v)
			i++
		}
	}
	return course, i, nil
}

// atoiDigits converts a digits-only string (already regexp-validated).
func atoiDigits(s string) int {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
	}
	return n
}
