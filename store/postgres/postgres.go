// Package postgres implements lectern.Store using PostgreSQL with
// pgvector for native vector similarity search.
//
// The Store accepts an externally-owned *pgxpool.Pool via constructor
// injection. The caller creates and closes the pool.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	lectern "github.com/nevindra/lectern"
)

// Store implements lectern.Store backed by PostgreSQL with pgvector.
// Vector search uses HNSW indexes with cosine distance.
type Store struct {
	pool *pgxpool.Pool
	cfg  pgConfig
}

// pgConfig holds store configuration set via Option functions.
type pgConfig struct {
	embeddingDimension int // 0 = untyped vector
	hnswM              int // 0 = pgvector default (16)
	hnswEFConstruction int // 0 = pgvector default (64)
}

// Option configures a PostgreSQL Store.
type Option func(*pgConfig)

// WithEmbeddingDimension sets the vector column dimension (e.g. 1536, 768).
// When set, CREATE TABLE uses vector(N) instead of untyped vector, enabling
// better index optimization and catching dimension mismatches at insert time.
// Only affects new table creation (no ALTER on existing tables).
func WithEmbeddingDimension(dim int) Option {
	return func(c *pgConfig) { c.embeddingDimension = dim }
}

// WithHNSWM sets the HNSW m parameter (max connections per node).
// Higher values improve recall at the cost of memory. Default: pgvector's 16.
func WithHNSWM(m int) Option {
	return func(c *pgConfig) { c.hnswM = m }
}

// WithEFConstruction sets the HNSW ef_construction parameter (build-time
// candidate list size). Higher values improve index quality at the cost of
// slower builds. Default: pgvector's 64.
func WithEFConstruction(ef int) Option {
	return func(c *pgConfig) { c.hnswEFConstruction = ef }
}

var _ lectern.Store = (*Store)(nil)

// New creates a Store using an existing pgxpool.Pool.
// The caller owns the pool and is responsible for closing it.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	var cfg pgConfig
	for _, o := range opts {
		o(&cfg)
	}
	return &Store{pool: pool, cfg: cfg}
}

// vectorType returns "vector" or "vector(N)" depending on config.
func (s *Store) vectorType() string {
	if s.cfg.embeddingDimension > 0 {
		return fmt.Sprintf("vector(%d)", s.cfg.embeddingDimension)
	}
	return "vector"
}

// hnswWithClause returns the WITH (...) clause for HNSW index creation,
// or an empty string if no tuning params are set.
func (s *Store) hnswWithClause() string {
	var parts []string
	if s.cfg.hnswM > 0 {
		parts = append(parts, fmt.Sprintf("m = %d", s.cfg.hnswM))
	}
	if s.cfg.hnswEFConstruction > 0 {
		parts = append(parts, fmt.Sprintf("ef_construction = %d", s.cfg.hnswEFConstruction))
	}
	if len(parts) == 0 {
		return ""
	}
	return " WITH (" + strings.Join(parts, ", ") + ")"
}

// Init creates the pgvector extension, both tables, and indexes.
// Safe to call multiple times (all statements are idempotent).
func (s *Store) Init(ctx context.Context) error {
	vtype := s.vectorType()
	hnswWith := s.hnswWithClause()

	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS course_catalog (
			title TEXT PRIMARY KEY,
			link TEXT NOT NULL DEFAULT '',
			instructor TEXT NOT NULL DEFAULT '',
			lessons JSONB NOT NULL DEFAULT '[]',
			embedding %s,
			created_at BIGINT NOT NULL,
			insert_order BIGSERIAL
		)`, vtype),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS catalog_embedding_idx ON course_catalog USING hnsw (embedding vector_cosine_ops)%s`, hnswWith),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS course_content (
			id TEXT PRIMARY KEY,
			course_title TEXT NOT NULL,
			lesson_number INTEGER,
			chunk_index INTEGER NOT NULL,
			content TEXT NOT NULL,
			embedding %s
		)`, vtype),
		`CREATE INDEX IF NOT EXISTS content_course_idx ON course_content(course_title)`,
		`CREATE INDEX IF NOT EXISTS content_lesson_idx ON course_content(course_title, lesson_number)`,
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS content_embedding_idx ON course_content USING hnsw (embedding vector_cosine_ops)%s`, hnswWith),
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: init: %w", err)
		}
	}
	return nil
}

// --- Catalog collection ---

// UpsertCourse inserts or replaces a catalog entry keyed by normalized title.
// insert_order is assigned once and kept across conflicts so title listing
// stays in first-insertion order.
func (s *Store) UpsertCourse(ctx context.Context, course lectern.Course) error {
	return s.upsertCourse(ctx, s.pool, course)
}

// querier covers both *pgxpool.Pool and pgx.Tx for write paths.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (s *Store) upsertCourse(ctx context.Context, q querier, course lectern.Course) error {
	title := lectern.NormalizeTitle(course.Title)
	lessonsJSON, err := json.Marshal(course.Lessons)
	if err != nil {
		return fmt.Errorf("postgres: marshal lessons: %w", err)
	}
	createdAt := course.CreatedAt
	if createdAt == 0 {
		createdAt = lectern.NowUnix()
	}

	if len(course.Embedding) > 0 {
		embStr := serializeEmbedding(course.Embedding)
		_, err = q.Exec(ctx,
			`INSERT INTO course_catalog (title, link, instructor, lessons, embedding, created_at)
			 VALUES ($1, $2, $3, $4::jsonb, $5::vector, $6)
			 ON CONFLICT (title) DO UPDATE SET
			   link = EXCLUDED.link,
			   instructor = EXCLUDED.instructor,
			   lessons = EXCLUDED.lessons,
			   embedding = EXCLUDED.embedding,
			   created_at = EXCLUDED.created_at`,
			title, course.Link, course.Instructor, string(lessonsJSON), embStr, createdAt)
	} else {
		_, err = q.Exec(ctx,
			`INSERT INTO course_catalog (title, link, instructor, lessons, embedding, created_at)
			 VALUES ($1, $2, $3, $4::jsonb, NULL, $5)
			 ON CONFLICT (title) DO UPDATE SET
			   link = EXCLUDED.link,
			   instructor = EXCLUDED.instructor,
			   lessons = EXCLUDED.lessons,
			   embedding = NULL,
			   created_at = EXCLUDED.created_at`,
			title, course.Link, course.Instructor, string(lessonsJSON), createdAt)
	}
	if err != nil {
		return fmt.Errorf("postgres: upsert course: %w", err)
	}
	return nil
}

// GetCourse returns the catalog entry for an exact normalized title.
func (s *Store) GetCourse(ctx context.Context, title string) (lectern.Course, bool, error) {
	var c lectern.Course
	var lessonsJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT title, link, instructor, lessons, created_at
		 FROM course_catalog WHERE title = $1`,
		lectern.NormalizeTitle(title),
	).Scan(&c.Title, &c.Link, &c.Instructor, &lessonsJSON, &c.CreatedAt)
	if err == pgx.ErrNoRows {
		return lectern.Course{}, false, nil
	}
	if err != nil {
		return lectern.Course{}, false, fmt.Errorf("postgres: get course: %w", err)
	}
	if err := json.Unmarshal(lessonsJSON, &c.Lessons); err != nil {
		return lectern.Course{}, false, fmt.Errorf("postgres: unmarshal lessons: %w", err)
	}
	return c, true, nil
}

// SearchCourses performs vector similarity search over catalog entries
// using pgvector's cosine distance operator.
func (s *Store) SearchCourses(ctx context.Context, embedding []float32, topK int) ([]lectern.ScoredCourse, error) {
	if topK <= 0 {
		topK = 1
	}
	embStr := serializeEmbedding(embedding)
	rows, err := s.pool.Query(ctx,
		`SELECT title, link, instructor, lessons, created_at,
		        embedding <=> $1::vector AS distance
		 FROM course_catalog
		 WHERE embedding IS NOT NULL
		 ORDER BY embedding <=> $1::vector
		 LIMIT $2`,
		embStr, topK)
	if err != nil {
		return nil, fmt.Errorf("postgres: search courses: %w", err)
	}
	defer rows.Close()

	var results []lectern.ScoredCourse
	for rows.Next() {
		var sc lectern.ScoredCourse
		var lessonsJSON []byte
		if err := rows.Scan(&sc.Title, &sc.Link, &sc.Instructor, &lessonsJSON, &sc.CreatedAt, &sc.Distance); err != nil {
			return nil, fmt.Errorf("postgres: scan course: %w", err)
		}
		_ = json.Unmarshal(lessonsJSON, &sc.Lessons)
		results = append(results, sc)
	}
	return results, rows.Err()
}

// ListCourseTitles returns stored titles in first-insertion order.
func (s *Store) ListCourseTitles(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT title FROM course_catalog ORDER BY insert_order`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list course titles: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("postgres: scan title: %w", err)
		}
		titles = append(titles, t)
	}
	return titles, rows.Err()
}

// CourseCount returns the number of catalog entries.
func (s *Store) CourseCount(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM course_catalog`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count courses: %w", err)
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
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := s.upsertChunks(ctx, tx, chunks); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit tx: %w", err)
	}
	return nil
}

func (s *Store) upsertChunks(ctx context.Context, q querier, chunks []lectern.Chunk) error {
	for _, chunk := range chunks {
		title := lectern.NormalizeTitle(chunk.CourseTitle)
		id := fmt.Sprintf("%s_%d", title, chunk.Index)

		var err error
		if len(chunk.Embedding) > 0 {
			embStr := serializeEmbedding(chunk.Embedding)
			_, err = q.Exec(ctx,
				`INSERT INTO course_content (id, course_title, lesson_number, chunk_index, content, embedding)
				 VALUES ($1, $2, $3, $4, $5, $6::vector)
				 ON CONFLICT (id) DO UPDATE SET
				   course_title = EXCLUDED.course_title,
				   lesson_number = EXCLUDED.lesson_number,
				   chunk_index = EXCLUDED.chunk_index,
				   content = EXCLUDED.content,
				   embedding = EXCLUDED.embedding`,
				id, title, chunk.LessonNumber, chunk.Index, chunk.Content, embStr)
		} else {
			_, err = q.Exec(ctx,
				`INSERT INTO course_content (id, course_title, lesson_number, chunk_index, content, embedding)
				 VALUES ($1, $2, $3, $4, $5, NULL)
				 ON CONFLICT (id) DO UPDATE SET
				   course_title = EXCLUDED.course_title,
				   lesson_number = EXCLUDED.lesson_number,
				   chunk_index = EXCLUDED.chunk_index,
				   content = EXCLUDED.content,
				   embedding = NULL`,
				id, title, chunk.LessonNumber, chunk.Index, chunk.Content)
		}
		if err != nil {
			return fmt.Errorf("postgres: insert chunk: %w", err)
		}
	}
	return nil
}

// SearchChunks performs vector similarity search over content entries,
// applying the filter in SQL before ranking. topK <= 0 applies
// lectern.DefaultSearchLimit.
func (s *Store) SearchChunks(ctx context.Context, embedding []float32, topK int, filter lectern.ChunkFilter) ([]lectern.ScoredChunk, error) {
	if topK <= 0 {
		topK = lectern.DefaultSearchLimit
	}
	embStr := serializeEmbedding(embedding)

	query := `SELECT course_title, lesson_number, chunk_index, content,
	                 embedding <=> $1::vector AS distance
	          FROM course_content
	          WHERE embedding IS NOT NULL`
	args := []any{embStr}
	if filter.CourseTitle != "" {
		args = append(args, lectern.NormalizeTitle(filter.CourseTitle))
		query += fmt.Sprintf(" AND course_title = $%d", len(args))
	}
	if filter.LessonNumber != nil {
		args = append(args, *filter.LessonNumber)
		query += fmt.Sprintf(" AND lesson_number = $%d", len(args))
	}
	args = append(args, topK)
	query += fmt.Sprintf(" ORDER BY embedding <=> $1::vector LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: search chunks: %w", err)
	}
	defer rows.Close()

	var results []lectern.ScoredChunk
	for rows.Next() {
		var sc lectern.ScoredChunk
		var lesson *int
		if err := rows.Scan(&sc.CourseTitle, &lesson, &sc.Index, &sc.Content, &sc.Distance); err != nil {
			return nil, fmt.Errorf("postgres: scan chunk: %w", err)
		}
		sc.LessonNumber = lesson
		results = append(results, sc)
	}
	return results, rows.Err()
}

// ChunksByCourse returns a course's chunks ordered by index.
func (s *Store) ChunksByCourse(ctx context.Context, title string) ([]lectern.Chunk, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT course_title, lesson_number, chunk_index, content
		 FROM course_content WHERE course_title = $1 ORDER BY chunk_index`,
		lectern.NormalizeTitle(title))
	if err != nil {
		return nil, fmt.Errorf("postgres: chunks by course: %w", err)
	}
	defer rows.Close()

	var chunks []lectern.Chunk
	for rows.Next() {
		var c lectern.Chunk
		var lesson *int
		if err := rows.Scan(&c.CourseTitle, &lesson, &c.Index, &c.Content); err != nil {
			return nil, fmt.Errorf("postgres: scan chunk: %w", err)
		}
		c.LessonNumber = lesson
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// --- Course replacement ---

// ReplaceCourse removes any stored course with the same title and writes the
// new course plus chunks in a single transaction.
func (s *Store) ReplaceCourse(ctx context.Context, course lectern.Course, chunks []lectern.Chunk) error {
	title := lectern.NormalizeTitle(course.Title)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM course_content WHERE course_title = $1`, title); err != nil {
		return fmt.Errorf("postgres: delete course chunks: %w", err)
	}
	if err := s.upsertCourse(ctx, tx, course); err != nil {
		return err
	}
	if err := s.upsertChunks(ctx, tx, chunks); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit tx: %w", err)
	}
	return nil
}

// DeleteCourse removes the catalog entry and all its chunks.
func (s *Store) DeleteCourse(ctx context.Context, title string) error {
	t := lectern.NormalizeTitle(title)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM course_content WHERE course_title = $1`, t); err != nil {
		return fmt.Errorf("postgres: delete course chunks: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM course_catalog WHERE title = $1`, t); err != nil {
		return fmt.Errorf("postgres: delete course: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit tx: %w", err)
	}
	return nil
}

// Close is a no-op; the pool is owned by the caller.
func (s *Store) Close() error { return nil }

// serializeEmbedding converts []float32 to pgvector's text format.
func serializeEmbedding(embedding []float32) string {
	parts := make([]string, len(embedding))
	for i, v := range embedding {
		parts[i] = strconv.FormatFloat(float64(v), 'f', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
