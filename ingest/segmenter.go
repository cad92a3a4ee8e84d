package ingest

import (
	"iter"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Sentences returns a lazy iterator over the sentences of text, preserving
// original wording and punctuation. The sequence is finite and restartable:
// ranging over it twice yields the same sentences.
//
// A sentence boundary is terminal punctuation (. ! ?) followed by whitespace
// and a capital letter, a newline, or end of text. Periods belonging to
// common abbreviations (Dr., vs., e.g.), single-letter initials,
// decimal numbers, and numbered-list markers ("1.") do not split. A run of
// terminal punctuation ("...") counts as a single boundary. Trailing text
// without terminal punctuation forms its own sentence; empty input yields
// an empty sequence.
func Sentences(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		start := 0
		for _, b := range sentenceBoundaries(text) {
			if s := strings.TrimSpace(text[start:b]); s != "" {
				if !yield(s) {
					return
				}
			}
			start = b
		}
		if tail := strings.TrimSpace(text[start:]); tail != "" {
			yield(tail)
		}
	}
}

// SplitSentences collects Sentences into a slice.
func SplitSentences(text string) []string {
	var out []string
	for s := range Sentences(text) {
		out = append(out, s)
	}
	return out
}

// abbreviations whose trailing period must NOT be treated as a sentence
// boundary.
var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true,
	"prof": true, "sr": true, "jr": true, "st": true,
	"vs": true, "etc": true, "inc": true, "ltd": true,
	"e.g": true, "i.e": true, "viz": true, "al": true,
	"approx": true, "dept": true, "est": true,
	"fig": true, "no": true, "vol": true,
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// sentenceBoundaries returns byte positions where a new sentence starts.
func sentenceBoundaries(text string) []int {
	var boundaries []int
	runes := []rune(text)
	n := len(runes)

	// Byte-offset map for rune positions.
	byteOffsets := make([]int, n+1)
	off := 0
	for i, r := range runes {
		byteOffsets[i] = off
		off += utf8.RuneLen(r)
	}
	byteOffsets[n] = off

	for i := 0; i < n; i++ {
		r := runes[i]
		if !isTerminal(r) {
			continue
		}
		// A run of terminal punctuation is one boundary: act on its last rune.
		if i+1 < n && isTerminal(runes[i+1]) {
			continue
		}

		if r == '.' {
			dotPos := byteOffsets[i]
			if isDecimalDot(text, dotPos) || suppressesSplit(text, dotPos) {
				continue
			}
		}

		j := i + 1
		if j >= n {
			// Terminal punctuation at end of text; the tail handles it.
			break
		}
		if !unicode.IsSpace(runes[j]) {
			continue
		}
		sawNewline := false
		for j < n && unicode.IsSpace(runes[j]) {
			if runes[j] == '\n' {
				sawNewline = true
			}
			j++
		}
		switch {
		case j >= n:
			boundaries = append(boundaries, byteOffsets[n])
		case sawNewline || unicode.IsUpper(runes[j]):
			boundaries = append(boundaries, byteOffsets[j])
		}
	}
	return boundaries
}

// suppressesSplit reports whether the period at dotPos ends a token that
// must not split: a known abbreviation, a single-letter initial, or a
// numbered-list marker.
func suppressesSplit(text string, dotPos int) bool {
	// Walk backward over letters and interior dots to find the word start.
	start := dotPos
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(text[:start])
		if !unicode.IsLetter(r) && r != '.' {
			break
		}
		start -= size
	}
	word := text[start:dotPos]
	if word != "" {
		if abbreviations[strings.ToLower(word)] {
			return true
		}
		if utf8.RuneCountInString(word) == 1 {
			return true // single-letter initial, "J. Smith"
		}
		return false
	}

	// No letters before the dot: check for a list marker like "1." at the
	// start of a line.
	dstart := dotPos
	for dstart > 0 && text[dstart-1] >= '0' && text[dstart-1] <= '9' {
		dstart--
	}
	if dstart == dotPos {
		return false
	}
	if dstart == 0 {
		return true
	}
	prev, _ := utf8.DecodeLastRuneInString(text[:dstart])
	return unicode.IsSpace(prev)
}

// isDecimalDot reports whether the dot at dotPos sits inside a number
// (3.14, $1.50).
func isDecimalDot(text string, dotPos int) bool {
	if dotPos == 0 || dotPos+1 >= len(text) {
		return false
	}
	prev := text[dotPos-1]
	next := text[dotPos+1]
	return prev >= '0' && prev <= '9' && next >= '0' && next <= '9'
}
