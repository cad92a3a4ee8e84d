package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Chunking.Size != 800 || cfg.Chunking.Overlap != 100 {
		t.Errorf("chunking defaults: %+v", cfg.Chunking)
	}
	if cfg.Search.MaxResults != 5 {
		t.Errorf("MaxResults = %d", cfg.Search.MaxResults)
	}
	if cfg.Database.Path != "lectern.db" {
		t.Errorf("Path = %q", cfg.Database.Path)
	}
	if cfg.Embedding.Provider != "hash" || cfg.Embedding.Dimensions != 256 {
		t.Errorf("embedding defaults: %+v", cfg.Embedding)
	}
}

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	cfg := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if cfg.Chunking.Size != 800 {
		t.Errorf("Size = %d", cfg.Chunking.Size)
	}
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lectern.toml")
	data := `
[chunking]
size = 400
overlap = 50

[embedding]
provider = "openai"
model = "text-embedding-3-small"

[database]
path = "custom.db"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Load(path)
	if cfg.Chunking.Size != 400 || cfg.Chunking.Overlap != 50 {
		t.Errorf("chunking not loaded: %+v", cfg.Chunking)
	}
	if cfg.Embedding.Provider != "openai" {
		t.Errorf("Provider = %q", cfg.Embedding.Provider)
	}
	if cfg.Database.Path != "custom.db" {
		t.Errorf("Path = %q", cfg.Database.Path)
	}
	// Unset sections keep defaults.
	if cfg.Search.MaxResults != 5 {
		t.Errorf("MaxResults = %d", cfg.Search.MaxResults)
	}
}

func TestEnvOverridesTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lectern.toml")
	if err := os.WriteFile(path, []byte("[embedding]\nprovider = \"openai\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("LECTERN_EMBEDDING_PROVIDER", "hash")
	t.Setenv("LECTERN_MAX_RESULTS", "7")
	t.Setenv("LECTERN_OBSERVER_ENABLED", "1")

	cfg := Load(path)
	if cfg.Embedding.Provider != "hash" {
		t.Errorf("env should win: %q", cfg.Embedding.Provider)
	}
	if cfg.Search.MaxResults != 7 {
		t.Errorf("MaxResults = %d", cfg.Search.MaxResults)
	}
	if !cfg.Observer.Enabled {
		t.Error("observer should be enabled via env")
	}
}

func TestInvalidMaxResultsEnvIgnored(t *testing.T) {
	t.Setenv("LECTERN_MAX_RESULTS", "not-a-number")
	cfg := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if cfg.Search.MaxResults != 5 {
		t.Errorf("invalid env should keep default, got %d", cfg.Search.MaxResults)
	}
}
