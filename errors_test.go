package lectern

import (
	"errors"
	"io/fs"
	"strings"
	"testing"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "malformed header",
			err:  &MalformedHeaderError{Path: "docs/a.txt", Line: 2},
			want: "docs/a.txt: malformed course header at line 2",
		},
		{
			name: "empty document",
			err:  &EmptyDocumentError{Path: "docs/b.txt"},
			want: "docs/b.txt: no content after course header",
		},
		{
			name: "course not found",
			err:  &CourseNotFoundError{Name: "ghost"},
			want: `no course found matching "ghost"`,
		},
		{
			name: "http",
			err:  &ErrHTTP{Status: 429, Body: "rate limited"},
			want: "http 429: rate limited",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSourceReadErrorUnwrap(t *testing.T) {
	err := &SourceReadError{Path: "docs/c.pdf", Err: fs.ErrNotExist}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Error("SourceReadError should unwrap to its cause")
	}
	if !strings.Contains(err.Error(), "docs/c.pdf") {
		t.Errorf("Error() = %q, want the path included", err.Error())
	}
}
