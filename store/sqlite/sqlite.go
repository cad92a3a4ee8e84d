// Package sqlite implements lectern.Store using pure-Go SQLite
// with in-process brute-force vector search. Zero CGO required.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	lectern "github.com/nevindra/lectern"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// StoreOption configures a SQLite Store.
type StoreOption func(*Store)

// WithLogger sets a structured logger for the store.
// When set, the store emits debug logs for every operation including
// timing, row counts, and key parameters. If not set, no logs are emitted.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// Store implements lectern.Store backed by a local SQLite file.
// Embeddings are stored as JSON text and vector search is done
// in-process using brute-force cosine similarity.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ lectern.Store = (*Store)(nil)

// New creates a Store using a local SQLite file at dbPath.
// It opens a single shared connection pool with SetMaxOpenConns(1) so that
// all goroutines serialize through one connection, eliminating SQLITE_BUSY
// errors caused by concurrent writers opening independent connections.
func New(dbPath string, opts ...StoreOption) *Store {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		// sql.Open only fails when the driver is not registered; with the
		// blank import above that never happens.
		panic(fmt.Sprintf("sqlite: open driver: %v", err))
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db, logger: lectern.NopLogger()}
	for _, o := range opts {
		o(s)
	}
	s.logger.Debug("sqlite: store opened", "path", dbPath)
	return s
}

// Init creates the catalog and content tables.
func (s *Store) Init(ctx context.Context) error {
	start := time.Now()
	s.logger.Debug("sqlite: init started")
	tables := []string{
		`CREATE TABLE IF NOT EXISTS course_catalog (
			title TEXT PRIMARY KEY,
			link TEXT,
			instructor TEXT,
			lessons TEXT NOT NULL,
			embedding TEXT,
			created_at INTEGER NOT NULL,
			rowid_order INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS course_content (
			id TEXT PRIMARY KEY,
			course_title TEXT NOT NULL,
			lesson_number INTEGER,
			chunk_index INTEGER NOT NULL,
			content TEXT NOT NULL,
			embedding TEXT
		)`,
	}
	for _, ddl := range tables {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	_, _ = s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_content_course ON course_content(course_title)`)
	_, _ = s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_content_lesson ON course_content(course_title, lesson_number)`)

	s.logger.Info("sqlite: init completed", "duration", time.Since(start))
	return nil
}

// --- Catalog collection ---

// UpsertCourse inserts or replaces a catalog entry keyed by normalized title.
func (s *Store) UpsertCourse(ctx context.Context, course lectern.Course) error {
	start := time.Now()
	title := lectern.NormalizeTitle(course.Title)
	s.logger.Debug("sqlite: upsert course", "title", title, "lessons", len(course.Lessons), "has_embedding", len(course.Embedding) > 0)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := upsertCourseTx(ctx, tx, course); err != nil {
		s.logger.Error("sqlite: upsert course failed", "title", title, "error", err, "duration", time.Since(start))
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	s.logger.Debug("sqlite: upsert course ok", "title", title, "duration", time.Since(start))
	return nil
}

func upsertCourseTx(ctx context.Context, tx *sql.Tx, course lectern.Course) error {
	title := lectern.NormalizeTitle(course.Title)

	lessonsJSON, err := json.Marshal(course.Lessons)
	if err != nil {
		return fmt.Errorf("marshal lessons: %w", err)
	}
	var embJSON *string
	if len(course.Embedding) > 0 {
		v := serializeEmbedding(course.Embedding)
		embJSON = &v
	}
	createdAt := course.CreatedAt
	if createdAt == 0 {
		createdAt = lectern.NowUnix()
	}

	// rowid_order preserves first-insertion order across replacements.
	var order sql.NullInt64
	err = tx.QueryRowContext(ctx, `SELECT rowid_order FROM course_catalog WHERE title = ?`, title).Scan(&order)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("query course order: %w", err)
	}
	if !order.Valid {
		var next sql.NullInt64
		if err := tx.QueryRowContext(ctx, `SELECT MAX(rowid_order) FROM course_catalog`).Scan(&next); err != nil {
			return fmt.Errorf("query max order: %w", err)
		}
		order = sql.NullInt64{Int64: next.Int64 + 1, Valid: true}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO course_catalog (title, link, instructor, lessons, embedding, created_at, rowid_order)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		title, course.Link, course.Instructor, string(lessonsJSON), embJSON, createdAt, order.Int64,
	)
	if err != nil {
		return fmt.Errorf("insert course: %w", err)
	}
	return nil
}

// GetCourse returns the catalog entry for an exact normalized title.
func (s *Store) GetCourse(ctx context.Context, title string) (lectern.Course, bool, error) {
	start := time.Now()
	title = lectern.NormalizeTitle(title)
	s.logger.Debug("sqlite: get course", "title", title)

	var c lectern.Course
	var link, instructor sql.NullString
	var lessonsJSON string
	var embJSON sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT title, link, instructor, lessons, embedding, created_at FROM course_catalog WHERE title = ?`,
		title,
	).Scan(&c.Title, &link, &instructor, &lessonsJSON, &embJSON, &c.CreatedAt)
	if err == sql.ErrNoRows {
		s.logger.Debug("sqlite: get course not found", "title", title, "duration", time.Since(start))
		return lectern.Course{}, false, nil
	}
	if err != nil {
		s.logger.Error("sqlite: get course failed", "title", title, "error", err, "duration", time.Since(start))
		return lectern.Course{}, false, fmt.Errorf("get course: %w", err)
	}
	if link.Valid {
		c.Link = link.String
	}
	if instructor.Valid {
		c.Instructor = instructor.String
	}
	if err := json.Unmarshal([]byte(lessonsJSON), &c.Lessons); err != nil {
		return lectern.Course{}, false, fmt.Errorf("unmarshal lessons: %w", err)
	}
	if embJSON.Valid {
		c.Embedding, _ = deserializeEmbedding(embJSON.String)
	}
	s.logger.Debug("sqlite: get course ok", "title", title, "duration", time.Since(start))
	return c, true, nil
}

// SearchCourses performs brute-force cosine search over catalog entries.
// Results are ordered by ascending distance (1 - cosine similarity).
func (s *Store) SearchCourses(ctx context.Context, embedding []float32, topK int) ([]lectern.ScoredCourse, error) {
	start := time.Now()
	s.logger.Debug("sqlite: search courses", "top_k", topK, "embedding_dim", len(embedding))

	rows, err := s.db.QueryContext(ctx,
		`SELECT title, link, instructor, lessons, embedding, created_at
		 FROM course_catalog WHERE embedding IS NOT NULL`,
	)
	if err != nil {
		s.logger.Error("sqlite: search courses failed", "error", err, "duration", time.Since(start))
		return nil, fmt.Errorf("search courses: %w", err)
	}
	defer rows.Close()

	var results []lectern.ScoredCourse
	scanned := 0

	for rows.Next() {
		var c lectern.Course
		var link, instructor sql.NullString
		var lessonsJSON, embJSON string
		if err := rows.Scan(&c.Title, &link, &instructor, &lessonsJSON, &embJSON, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		scanned++
		if link.Valid {
			c.Link = link.String
		}
		if instructor.Valid {
			c.Instructor = instructor.String
		}
		_ = json.Unmarshal([]byte(lessonsJSON), &c.Lessons)
		stored, err := deserializeEmbedding(embJSON)
		if err != nil {
			continue
		}
		results = append(results, lectern.ScoredCourse{Course: c, Distance: 1 - cosineSimilarity(embedding, stored)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate courses: %w", err)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	s.logger.Debug("sqlite: search courses ok", "scanned", scanned, "returned", len(results), "duration", time.Since(start))
	return results, nil
}

// ListCourseTitles returns stored titles in first-insertion order.
func (s *Store) ListCourseTitles(ctx context.Context) ([]string, error) {
	start := time.Now()
	s.logger.Debug("sqlite: list course titles")

	rows, err := s.db.QueryContext(ctx, `SELECT title FROM course_catalog ORDER BY rowid_order`)
	if err != nil {
		s.logger.Error("sqlite: list course titles failed", "error", err, "duration", time.Since(start))
		return nil, fmt.Errorf("list course titles: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan title: %w", err)
		}
		titles = append(titles, t)
	}
	s.logger.Debug("sqlite: list course titles ok", "count", len(titles), "duration", time.Since(start))
	return titles, rows.Err()
}

// CourseCount returns the number of catalog entries.
func (s *Store) CourseCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM course_catalog`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count courses: %w", err)
	}
	return n, nil
}

// --- Content collection ---

// UpsertChunks inserts or replaces content entries keyed by
// "{course_title}_{chunk_index}".
func (s *Store) UpsertChunks(ctx context.Context, chunks []lectern.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	start := time.Now()
	s.logger.Debug("sqlite: upsert chunks", "count", len(chunks))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := upsertChunksTx(ctx, tx, chunks); err != nil {
		s.logger.Error("sqlite: upsert chunks failed", "error", err, "duration", time.Since(start))
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	s.logger.Debug("sqlite: upsert chunks ok", "count", len(chunks), "duration", time.Since(start))
	return nil
}

func upsertChunksTx(ctx context.Context, tx *sql.Tx, chunks []lectern.Chunk) error {
	for _, chunk := range chunks {
		var embJSON *string
		if len(chunk.Embedding) > 0 {
			v := serializeEmbedding(chunk.Embedding)
			embJSON = &v
		}
		_, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO course_content (id, course_title, lesson_number, chunk_index, content, embedding)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			chunk.ID(), lectern.NormalizeTitle(chunk.CourseTitle), chunk.LessonNumber, chunk.Index, chunk.Content, embJSON,
		)
		if err != nil {
			return fmt.Errorf("insert chunk: %w", err)
		}
	}
	return nil
}

// SearchChunks performs brute-force cosine search over content entries,
// applying the filter before ranking. Results are ordered by ascending
// distance. topK <= 0 applies lectern.DefaultSearchLimit.
func (s *Store) SearchChunks(ctx context.Context, embedding []float32, topK int, filter lectern.ChunkFilter) ([]lectern.ScoredChunk, error) {
	start := time.Now()
	if topK <= 0 {
		topK = lectern.DefaultSearchLimit
	}
	s.logger.Debug("sqlite: search chunks", "top_k", topK, "embedding_dim", len(embedding), "course", filter.CourseTitle, "has_lesson_filter", filter.LessonNumber != nil)

	query := `SELECT course_title, lesson_number, chunk_index, content, embedding
		FROM course_content WHERE embedding IS NOT NULL`
	var args []any
	if filter.CourseTitle != "" {
		query += ` AND course_title = ?`
		args = append(args, lectern.NormalizeTitle(filter.CourseTitle))
	}
	if filter.LessonNumber != nil {
		query += ` AND lesson_number = ?`
		args = append(args, *filter.LessonNumber)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.logger.Error("sqlite: search chunks failed", "error", err, "duration", time.Since(start))
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	defer rows.Close()

	var results []lectern.ScoredChunk
	scanned := 0

	for rows.Next() {
		var c lectern.Chunk
		var lesson sql.NullInt64
		var embJSON string
		if err := rows.Scan(&c.CourseTitle, &lesson, &c.Index, &c.Content, &embJSON); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		scanned++
		if lesson.Valid {
			n := int(lesson.Int64)
			c.LessonNumber = &n
		}
		stored, err := deserializeEmbedding(embJSON)
		if err != nil {
			continue
		}
		results = append(results, lectern.ScoredChunk{Chunk: c, Distance: 1 - cosineSimilarity(embedding, stored)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})

	if len(results) > topK {
		results = results[:topK]
	}
	s.logger.Debug("sqlite: search chunks ok", "scanned", scanned, "returned", len(results), "duration", time.Since(start))
	return results, nil
}

// ChunksByCourse returns a course's chunks ordered by index, embeddings
// included.
func (s *Store) ChunksByCourse(ctx context.Context, title string) ([]lectern.Chunk, error) {
	start := time.Now()
	title = lectern.NormalizeTitle(title)
	s.logger.Debug("sqlite: chunks by course", "title", title)

	rows, err := s.db.QueryContext(ctx,
		`SELECT course_title, lesson_number, chunk_index, content, embedding
		 FROM course_content WHERE course_title = ? ORDER BY chunk_index`, title)
	if err != nil {
		return nil, fmt.Errorf("chunks by course: %w", err)
	}
	defer rows.Close()

	var chunks []lectern.Chunk
	for rows.Next() {
		var c lectern.Chunk
		var lesson sql.NullInt64
		var embJSON sql.NullString
		if err := rows.Scan(&c.CourseTitle, &lesson, &c.Index, &c.Content, &embJSON); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		if lesson.Valid {
			n := int(lesson.Int64)
			c.LessonNumber = &n
		}
		if embJSON.Valid {
			c.Embedding, _ = deserializeEmbedding(embJSON.String)
		}
		chunks = append(chunks, c)
	}
	s.logger.Debug("sqlite: chunks by course ok", "title", title, "count", len(chunks), "duration", time.Since(start))
	return chunks, rows.Err()
}

// --- Course replacement ---

// ReplaceCourse removes any stored course with the same title and writes the
// new course plus chunks in a single transaction.
func (s *Store) ReplaceCourse(ctx context.Context, course lectern.Course, chunks []lectern.Chunk) error {
	start := time.Now()
	title := lectern.NormalizeTitle(course.Title)
	s.logger.Debug("sqlite: replace course", "title", title, "chunks", len(chunks))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM course_content WHERE course_title = ?`, title); err != nil {
		return fmt.Errorf("delete course chunks: %w", err)
	}
	if err := upsertCourseTx(ctx, tx, course); err != nil {
		s.logger.Error("sqlite: replace course failed", "title", title, "error", err)
		return err
	}
	if err := upsertChunksTx(ctx, tx, chunks); err != nil {
		s.logger.Error("sqlite: replace course chunks failed", "title", title, "error", err)
		return err
	}
	if err := tx.Commit(); err != nil {
		s.logger.Error("sqlite: replace course commit failed", "title", title, "error", err)
		return fmt.Errorf("commit tx: %w", err)
	}
	s.logger.Debug("sqlite: replace course ok", "title", title, "chunks", len(chunks), "duration", time.Since(start))
	return nil
}

// DeleteCourse removes the catalog entry and all its chunks.
func (s *Store) DeleteCourse(ctx context.Context, title string) error {
	start := time.Now()
	title = lectern.NormalizeTitle(title)
	s.logger.Debug("sqlite: delete course", "title", title)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM course_content WHERE course_title = ?`, title); err != nil {
		return fmt.Errorf("delete course chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM course_catalog WHERE title = ?`, title); err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	if err := tx.Commit(); err != nil {
		s.logger.Error("sqlite: delete course commit failed", "title", title, "error", err)
		return err
	}
	s.logger.Debug("sqlite: delete course ok", "title", title, "duration", time.Since(start))
	return nil
}

// DB returns the underlying *sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	s.logger.Debug("sqlite: closing store")
	err := s.db.Close()
	if err != nil {
		s.logger.Error("sqlite: close failed", "error", err)
	}
	return err
}

// --- Vector math ---

// cosineSimilarity computes the cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return float32(dot / denom)
}

// serializeEmbedding converts []float32 to a JSON array string.
func serializeEmbedding(embedding []float32) string {
	data, _ := json.Marshal(embedding)
	return string(data)
}

// deserializeEmbedding parses a JSON array string back to []float32.
func deserializeEmbedding(s string) ([]float32, error) {
	var v []float32
	err := json.Unmarshal([]byte(s), &v)
	return v, err
}
