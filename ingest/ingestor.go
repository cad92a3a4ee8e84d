package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	lectern "github.com/nevindra/lectern"
)

// Ingestor provides end-to-end ingestion: extract → parse → chunk → embed →
// store. Writers are serialized so course replacement stays a single
// logical unit even on stores without multi-key transactions.
type Ingestor struct {
	store        lectern.Store
	embedding    lectern.EmbeddingProvider
	parser       *Parser
	extractors   map[ContentType]Extractor
	batchSize    int
	skipExisting bool
	logger       *slog.Logger

	mu sync.Mutex
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithChunker sets the chunker used when parsing documents.
func WithChunker(c *CourseChunker) Option {
	return func(ing *Ingestor) { ing.parser = NewParser(c) }
}

// WithExtractor registers an Extractor for a content type, replacing the
// built-in one.
func WithExtractor(ct ContentType, e Extractor) Option {
	return func(ing *Ingestor) { ing.extractors[ct] = e }
}

// WithBatchSize sets the number of chunk texts per Embed call (default 64).
func WithBatchSize(n int) Option {
	return func(ing *Ingestor) { ing.batchSize = n }
}

// WithLogger sets a structured logger. If not set, no logs are emitted.
func WithLogger(l *slog.Logger) Option {
	return func(ing *Ingestor) { ing.logger = l }
}

// WithSkipExisting controls whether IngestDirectory skips documents whose
// course title is already stored (default true). IngestDocument always
// replaces.
func WithSkipExisting(skip bool) Option {
	return func(ing *Ingestor) { ing.skipExisting = skip }
}

// NewIngestor creates an Ingestor with extractors for plain text, PDF,
// DOCX, Markdown, and HTML registered.
func NewIngestor(store lectern.Store, embedding lectern.EmbeddingProvider, opts ...Option) *Ingestor {
	ing := &Ingestor{
		store:     store,
		embedding: embedding,
		parser:    NewParser(nil),
		extractors: map[ContentType]Extractor{
			TypePlainText: PlainTextExtractor{},
			TypePDF:       NewPDFExtractor(),
			TypeDOCX:      NewDOCXExtractor(),
			TypeMarkdown:  NewMarkdownExtractor(),
			TypeHTML:      NewHTMLExtractor(),
		},
		batchSize:    64,
		skipExisting: true,
		logger:       lectern.NopLogger(),
	}
	for _, o := range opts {
		o(ing)
	}
	return ing
}

// IngestDocument extracts, parses, embeds, and stores one course document,
// replacing any stored course with the same title. It returns the course
// and the number of chunks written.
func (ing *Ingestor) IngestDocument(ctx context.Context, content []byte, filename string) (lectern.Course, int, error) {
	course, chunks, err := ing.parseDocument(content, filename)
	if err != nil {
		return lectern.Course{}, 0, err
	}
	if err := ing.embedAndStore(ctx, &course, chunks); err != nil {
		return lectern.Course{}, 0, err
	}
	return course, len(chunks), nil
}

// IngestFile reads path and ingests its content. A file that cannot be
// read fails with *lectern.SourceReadError.
func (ing *Ingestor) IngestFile(ctx context.Context, path string) (lectern.Course, int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return lectern.Course{}, 0, &lectern.SourceReadError{Path: path, Err: err}
	}
	return ing.IngestDocument(ctx, content, path)
}

// IngestReport summarizes a directory ingestion run.
type IngestReport struct {
	RunID       string
	Courses     []string
	TotalChunks int
	Skipped     []string
	Errors      []FileError
}

// FileError records a per-document failure that did not abort the batch.
type FileError struct {
	Path string
	Err  error
}

// IngestDirectory ingests every recognized course document in dir,
// sequentially, with per-document failure isolation: a malformed or
// unreadable document is recorded in the report and the batch continues.
// When skip-existing is enabled (the default), documents whose course title
// is already stored are left untouched.
func (ing *Ingestor) IngestDirectory(ctx context.Context, dir string) (IngestReport, error) {
	report := IngestReport{RunID: lectern.NewID()}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return report, fmt.Errorf("read dir: %w", err)
	}

	existing := map[string]bool{}
	if ing.skipExisting {
		titles, err := ing.store.ListCourseTitles(ctx)
		if err != nil {
			return report, fmt.Errorf("list courses: %w", err)
		}
		for _, t := range titles {
			existing[t] = true
		}
	}

	for _, entry := range entries {
		if entry.IsDir() || !recognizedExtension(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		content, err := os.ReadFile(path)
		if err != nil {
			err = &lectern.SourceReadError{Path: path, Err: err}
			ing.logger.Warn("skipping document", "path", path, "error", err)
			report.Errors = append(report.Errors, FileError{Path: path, Err: err})
			continue
		}

		course, chunks, err := ing.parseDocument(content, path)
		if err != nil {
			ing.logger.Warn("skipping document", "path", path, "error", err)
			report.Errors = append(report.Errors, FileError{Path: path, Err: err})
			continue
		}

		if ing.skipExisting && existing[course.Title] {
			ing.logger.Debug("course already stored, skipping", "title", course.Title, "path", path)
			report.Skipped = append(report.Skipped, course.Title)
			continue
		}

		if err := ing.embedAndStore(ctx, &course, chunks); err != nil {
			ing.logger.Warn("skipping document", "path", path, "error", err)
			report.Errors = append(report.Errors, FileError{Path: path, Err: err})
			continue
		}
		existing[course.Title] = true
		report.Courses = append(report.Courses, course.Title)
		report.TotalChunks += len(chunks)
		ing.logger.Info("course ingested", "run_id", report.RunID, "title", course.Title, "chunks", len(chunks))
	}
	return report, nil
}

// parseDocument runs extraction and parsing without touching the store.
func (ing *Ingestor) parseDocument(content []byte, filename string) (lectern.Course, []lectern.Chunk, error) {
	ct := ContentTypeFromExtension(strings.TrimPrefix(filepath.Ext(filename), "."))
	extractor, ok := ing.extractors[ct]
	if !ok {
		extractor = PlainTextExtractor{}
	}
	text, err := extractor.Extract(content)
	if err != nil {
		return lectern.Course{}, nil, &lectern.SourceReadError{Path: filename, Err: err}
	}
	return ing.parser.Parse(text, filename)
}

// embedAndStore embeds the course title and all chunk texts, then replaces
// the stored course under the writer lock.
func (ing *Ingestor) embedAndStore(ctx context.Context, course *lectern.Course, chunks []lectern.Chunk) error {
	embs, err := ing.embedding.Embed(ctx, []string{course.Title})
	if err != nil {
		return fmt.Errorf("embed title: %w", err)
	}
	if len(embs) == 0 {
		return errors.New("embed title: no embedding returned")
	}
	course.Embedding = embs[0]

	if err := ing.batchEmbed(ctx, chunks); err != nil {
		return err
	}

	ing.mu.Lock()
	defer ing.mu.Unlock()
	if err := ing.store.ReplaceCourse(ctx, *course, chunks); err != nil {
		return fmt.Errorf("store course: %w", err)
	}
	return nil
}

// batchEmbed embeds chunks in batches of batchSize.
func (ing *Ingestor) batchEmbed(ctx context.Context, chunks []lectern.Chunk) error {
	for i := 0; i < len(chunks); i += ing.batchSize {
		end := min(i+ing.batchSize, len(chunks))
		batch := chunks[i:end]
		texts := make([]string, len(batch))
		for j, c := range batch {
			texts[j] = c.Content
		}
		embeddings, err := ing.embedding.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed batch %d-%d: %w", i, end, err)
		}
		for j := range batch {
			if j < len(embeddings) {
				chunks[i+j].Embedding = embeddings[j]
			}
		}
	}
	return nil
}

func recognizedExtension(name string) bool {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(name), ".")) {
	case "txt", "pdf", "docx", "md", "markdown", "html", "htm":
		return true
	}
	return false
}
