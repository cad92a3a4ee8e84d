package ingest

import (
	"reflect"
	"testing"
)

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "simple",
			text: "First sentence. Second sentence! Third sentence?",
			want: []string{"First sentence.", "Second sentence!", "Third sentence?"},
		},
		{
			name: "abbreviation does not split",
			text: "Dr. Smith teaches the course. See Fig. 3 for details.",
			want: []string{"Dr. Smith teaches the course.", "See Fig. 3 for details."},
		},
		{
			name: "versus and eg",
			text: "Compare REST vs. GraphQL here. Some formats, e.g. JSON, are text based.",
			want: []string{"Compare REST vs. GraphQL here.", "Some formats, e.g. JSON, are text based."},
		},
		{
			name: "single letter initial",
			text: "The paper by J. Smith is foundational. Read it carefully.",
			want: []string{"The paper by J. Smith is foundational.", "Read it carefully."},
		},
		{
			name: "decimal number",
			text: "Pi is roughly 3.14 in practice. The price was $1.50 back then.",
			want: []string{"Pi is roughly 3.14 in practice.", "The price was $1.50 back then."},
		},
		{
			name: "list marker at line start",
			text: "1. Install the server\n2. Configure the client",
			want: []string{"1. Install the server\n2. Configure the client"},
		},
		{
			name: "ellipsis is one boundary",
			text: "It trailed off... Then it resumed.",
			want: []string{"It trailed off...", "Then it resumed."},
		},
		{
			name: "lowercase continuation does not split",
			text: "The module is v2. it ships next week.",
			want: []string{"The module is v2. it ships next week."},
		},
		{
			name: "newline forces boundary",
			text: "line one ends here.\nthe next line starts lowercase.",
			want: []string{"line one ends here.", "the next line starts lowercase."},
		},
		{
			name: "unterminated tail kept",
			text: "A complete sentence. And a trailing fragment",
			want: []string{"A complete sentence.", "And a trailing fragment"},
		},
		{
			name: "empty input",
			text: "",
			want: nil,
		},
		{
			name: "whitespace only",
			text: "   \n\t  ",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitSentences(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitSentences(%q)\n got %#v\nwant %#v", tt.text, got, tt.want)
			}
		})
	}
}

func TestSentencesRestartable(t *testing.T) {
	seq := Sentences("One. Two. Three.")

	var first, second []string
	for s := range seq {
		first = append(first, s)
	}
	for s := range seq {
		second = append(second, s)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("second pass %v differs from first %v", second, first)
	}
	if len(first) != 3 {
		t.Errorf("got %d sentences, want 3", len(first))
	}
}

func TestSentencesEarlyStop(t *testing.T) {
	var got []string
	for s := range Sentences("One. Two. Three.") {
		got = append(got, s)
		break
	}
	if len(got) != 1 || got[0] != "One." {
		t.Errorf("got %v after early break", got)
	}
}
