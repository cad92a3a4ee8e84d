// Package lectern is a retrieval library for structured course documents.
//
// It ingests course files into a dual-index vector store (a course catalog
// for fuzzy name resolution and a content collection for chunk retrieval)
// and answers filtered similarity searches with source attribution.
//
// # Quick Start
//
//	embedding := hash.New()
//	store := sqlite.New("lectern.db")
//	_ = store.Init(ctx)
//
//	ing := ingest.NewIngestor(store, embedding)
//	report, _ := ing.IngestDirectory(ctx, "./docs")
//
//	retriever := lectern.NewRetriever(store, embedding)
//	results, err := retriever.Search(ctx, "what are arrays?", "Intro to X", nil)
//
// # Core Interfaces
//
// The root package defines the contracts that all components implement:
//
//   - [Store] — dual-index persistence with vector search
//   - [EmbeddingProvider] — text-to-vector embedding
//   - [Retriever] — resolution + filtered search + source labels
//   - [Tool] — capability surface for an LLM tool-invocation layer
//
// # Included Implementations
//
// Storage: store/sqlite (local, pure Go), store/postgres (pgvector),
// store/memory (in-process, tests). Embedding: provider/openaiembed,
// provider/hash. Document handling: ingest (parser, sentence segmenter,
// chunker, extractors for plain text, PDF, DOCX, Markdown, HTML).
//
// Answer generation, conversation state, and transport are deliberately out
// of scope; see cmd/lectern for a minimal CLI.
package lectern
