package ingest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

var _ Extractor = (*DOCXExtractor)(nil)

// maxZipEntrySize limits the decompressed size of a zip entry to guard
// against zip bombs (100 MB).
const maxZipEntrySize = 100 << 20

// DOCXExtractor extracts plain text from DOCX documents by streaming the
// OOXML token stream of word/document.xml, without building a DOM tree.
type DOCXExtractor struct{}

// NewDOCXExtractor creates a DOCX extractor.
func NewDOCXExtractor() *DOCXExtractor { return &DOCXExtractor{} }

// Extract returns the document text with paragraph breaks preserved as
// newlines and tabs as spaces.
func (e *DOCXExtractor) Extract(content []byte) (string, error) {
	if len(content) == 0 {
		return "", fmt.Errorf("empty docx content")
	}
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open zip: %w", err)
	}

	var docXML []byte
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docXML, err = readZipEntry(f)
			if err != nil {
				return "", fmt.Errorf("read document.xml: %w", err)
			}
			break
		}
	}
	if docXML == nil {
		return "", fmt.Errorf("missing word/document.xml")
	}
	return docxText(docXML)
}

func readZipEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, maxZipEntrySize))
	if err != nil {
		return nil, err
	}
	if len(data) == maxZipEntrySize {
		return nil, fmt.Errorf("zip entry exceeds %d bytes", maxZipEntrySize)
	}
	return data, nil
}

// docxText walks the OOXML token stream collecting w:t text runs,
// inserting a newline at each paragraph end and a space for tabs/breaks.
func docxText(docXML []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(docXML))
	var text strings.Builder
	inText := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				text.WriteByte(' ')
			case "br":
				text.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				text.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				text.Write(t)
			}
		}
	}
	return strings.TrimSpace(text.String()), nil
}
