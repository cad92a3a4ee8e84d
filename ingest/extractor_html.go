package ingest

import (
	"bytes"
	"fmt"
	"net/url"

	readability "github.com/go-shiori/go-readability"
)

var _ Extractor = (*HTMLExtractor)(nil)

// HTMLExtractor extracts the readable article text from an HTML page,
// discarding navigation, scripts, and boilerplate.
type HTMLExtractor struct{}

// NewHTMLExtractor creates an HTML extractor.
func NewHTMLExtractor() *HTMLExtractor { return &HTMLExtractor{} }

var placeholderURL, _ = url.Parse("https://localhost/document")

func (e *HTMLExtractor) Extract(content []byte) (string, error) {
	article, err := readability.FromReader(bytes.NewReader(content), placeholderURL)
	if err != nil {
		return "", fmt.Errorf("readability: %w", err)
	}
	return article.TextContent, nil
}
