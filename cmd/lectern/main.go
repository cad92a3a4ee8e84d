// Command lectern ingests course documents and searches them from the
// command line.
//
//	lectern ingest <dir>             ingest every course document in dir
//	lectern query <text> [flags]     search course content
//	lectern outline <course>         print a course outline
//	lectern stats                    print corpus statistics
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	lectern "github.com/nevindra/lectern"
	"github.com/nevindra/lectern/ingest"
	"github.com/nevindra/lectern/internal/config"
	"github.com/nevindra/lectern/observer"
	"github.com/nevindra/lectern/provider/hash"
	"github.com/nevindra/lectern/provider/openaiembed"
	"github.com/nevindra/lectern/store/postgres"
	"github.com/nevindra/lectern/store/sqlite"
	"github.com/nevindra/lectern/tools/coursesearch"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg := config.Load(os.Getenv("LECTERN_CONFIG"))
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// Embedding provider
	var embedding lectern.EmbeddingProvider
	switch cfg.Embedding.Provider {
	case "openai":
		var opts []openaiembed.Option
		if cfg.Embedding.Model != "" {
			opts = append(opts, openaiembed.WithModel(cfg.Embedding.Model))
		}
		if cfg.Embedding.BaseURL != "" {
			opts = append(opts, openaiembed.WithBaseURL(cfg.Embedding.BaseURL))
		}
		if cfg.Embedding.Dimensions > 0 {
			opts = append(opts, openaiembed.WithDimensions(cfg.Embedding.Dimensions))
		}
		embedding = openaiembed.New(cfg.Embedding.APIKey, opts...)
	default:
		var opts []hash.Option
		if cfg.Embedding.Dimensions > 0 {
			opts = append(opts, hash.WithDimensions(cfg.Embedding.Dimensions))
		}
		embedding = hash.New(opts...)
	}

	// Store
	var store lectern.Store
	if cfg.Database.PostgresURL != "" {
		pool, err := pgxpool.New(ctx, cfg.Database.PostgresURL)
		if err != nil {
			log.Fatalf("connect postgres: %v", err)
		}
		defer pool.Close()
		store = postgres.New(pool, postgres.WithEmbeddingDimension(embedding.Dimensions()))
	} else {
		store = sqlite.New(cfg.Database.Path, sqlite.WithLogger(logger))
	}
	defer store.Close()

	// Observability
	var inst *observer.Instruments
	if cfg.Observer.Enabled {
		var shutdown func(context.Context) error
		var err error
		inst, shutdown, err = observer.Init(ctx)
		if err != nil {
			log.Fatalf("init observer: %v", err)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(sctx)
		}()
		embedding = observer.WrapEmbedding(embedding, inst)
		store = observer.WrapStore(store, inst)
	}

	if err := store.Init(ctx); err != nil {
		log.Fatalf("init store: %v", err)
	}

	var err error
	switch os.Args[1] {
	case "ingest":
		err = runIngest(ctx, cfg, store, embedding, inst, logger, os.Args[2:])
	case "query":
		err = runQuery(ctx, cfg, store, embedding, os.Args[2:])
	case "outline":
		err = runOutline(ctx, store, embedding, os.Args[2:])
	case "stats":
		err = runStats(ctx, store, embedding)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: lectern <ingest|query|outline|stats> [args]")
}

func runIngest(ctx context.Context, cfg config.Config, store lectern.Store, embedding lectern.EmbeddingProvider, inst *observer.Instruments, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	replace := fs.Bool("replace", false, "re-ingest courses that are already stored")
	fs.Parse(args)

	dir := cfg.Docs.Dir
	if fs.NArg() > 0 {
		dir = fs.Arg(0)
	}

	chunker := ingest.NewCourseChunker(
		ingest.WithMaxChars(cfg.Chunking.Size),
		ingest.WithOverlapChars(cfg.Chunking.Overlap),
	)
	ing := ingest.NewIngestor(store, embedding,
		ingest.WithChunker(chunker),
		ingest.WithLogger(logger),
		ingest.WithSkipExisting(!*replace),
	)

	start := time.Now()
	report, err := ing.IngestDirectory(ctx, dir)
	if err != nil {
		return err
	}
	if inst != nil {
		inst.IngestRuns.Add(ctx, 1)
		inst.IngestFailures.Add(ctx, int64(len(report.Errors)))
	}

	fmt.Printf("run %s: %d courses, %d chunks in %s\n",
		report.RunID, len(report.Courses), report.TotalChunks, time.Since(start).Round(time.Millisecond))
	for _, title := range report.Skipped {
		fmt.Printf("  skipped (already stored): %s\n", title)
	}
	for _, fe := range report.Errors {
		fmt.Printf("  failed: %s: %v\n", fe.Path, fe.Err)
	}
	return nil
}

func runQuery(ctx context.Context, cfg config.Config, store lectern.Store, embedding lectern.EmbeddingProvider, args []string) error {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	course := fs.String("course", "", "restrict to one course (partial title ok)")
	lesson := fs.Int("lesson", 0, "restrict to one lesson number")
	fs.Parse(args)

	if fs.NArg() == 0 {
		return fmt.Errorf("query: missing search text")
	}

	var lessonNumber *int
	if *lesson > 0 {
		lessonNumber = lesson
	}

	retriever := newRetriever(cfg, store, embedding)
	tool := coursesearch.New(retriever)

	results, err := retriever.Search(ctx, fs.Arg(0), *course, lessonNumber)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("no results")
		return nil
	}
	for _, r := range results {
		fmt.Printf("--- %s (distance %.3f)\n%s\n\n", r.Source, r.Distance, r.Content)
	}
	fmt.Println("sources:")
	for _, s := range tool.LastSources() {
		if s.Link != "" {
			fmt.Printf("  %s <%s>\n", s.Label, s.Link)
		} else {
			fmt.Printf("  %s\n", s.Label)
		}
	}
	return nil
}

func runOutline(ctx context.Context, store lectern.Store, embedding lectern.EmbeddingProvider, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("outline: missing course name")
	}
	retriever := lectern.NewRetriever(store, embedding)
	course, err := retriever.Outline(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%s\n", course.Title)
	if course.Instructor != "" {
		fmt.Printf("instructor: %s\n", course.Instructor)
	}
	if course.Link != "" {
		fmt.Printf("link: %s\n", course.Link)
	}
	for _, l := range course.Lessons {
		fmt.Printf("  %2d. %s\n", l.Number, l.Title)
	}
	return nil
}

func runStats(ctx context.Context, store lectern.Store, embedding lectern.EmbeddingProvider) error {
	retriever := lectern.NewRetriever(store, embedding)
	stats, err := retriever.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("courses: %d\n", stats.TotalCourses)
	for _, title := range stats.CourseTitles {
		fmt.Printf("  %s\n", title)
	}
	return nil
}

func newRetriever(cfg config.Config, store lectern.Store, embedding lectern.EmbeddingProvider) *lectern.Retriever {
	var resolverOpts []lectern.ResolverOption
	if cfg.Search.MinResolveScore > 0 {
		resolverOpts = append(resolverOpts, lectern.WithMinResolveScore(float32(cfg.Search.MinResolveScore)))
	}
	return lectern.NewRetriever(store, embedding,
		lectern.WithTopK(cfg.Search.MaxResults),
		lectern.WithResolver(lectern.NewCourseResolver(store, embedding, resolverOpts...)),
	)
}
