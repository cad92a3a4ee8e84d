// Package config loads lectern CLI configuration from TOML and env vars.
package config

import (
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Chunking  ChunkingConfig  `toml:"chunking"`
	Search    SearchConfig    `toml:"search"`
	Database  DatabaseConfig  `toml:"database"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Docs      DocsConfig      `toml:"docs"`
	Observer  ObserverConfig  `toml:"observer"`
}

type ChunkingConfig struct {
	Size    int `toml:"size"`
	Overlap int `toml:"overlap"`
}

type SearchConfig struct {
	MaxResults      int     `toml:"max_results"`
	MinResolveScore float64 `toml:"min_resolve_score"`
}

type DatabaseConfig struct {
	Path        string `toml:"path"`
	PostgresURL string `toml:"postgres_url"`
}

type EmbeddingConfig struct {
	Provider   string `toml:"provider"`
	Model      string `toml:"model"`
	APIKey     string `toml:"api_key"`
	BaseURL    string `toml:"base_url"`
	Dimensions int    `toml:"dimensions"`
}

type DocsConfig struct {
	Dir string `toml:"dir"`
}

type ObserverConfig struct {
	Enabled bool `toml:"enabled"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Chunking:  ChunkingConfig{Size: 800, Overlap: 100},
		Search:    SearchConfig{MaxResults: 5},
		Database:  DatabaseConfig{Path: "lectern.db"},
		Embedding: EmbeddingConfig{Provider: "hash", Dimensions: 256},
		Docs:      DocsConfig{Dir: "docs"},
	}
}

// Load reads config: defaults -> TOML file -> env vars (env wins).
func Load(path string) Config {
	cfg := Default()

	if path == "" {
		path = "lectern.toml"
	}

	if data, err := os.ReadFile(path); err == nil {
		_ = toml.Unmarshal(data, &cfg)
	}

	// Env overrides
	if v := os.Getenv("LECTERN_EMBEDDING_PROVIDER"); v != "" {
		cfg.Embedding.Provider = v
	}
	if v := os.Getenv("LECTERN_EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("LECTERN_EMBEDDING_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("LECTERN_EMBEDDING_BASE_URL"); v != "" {
		cfg.Embedding.BaseURL = v
	}
	if v := os.Getenv("LECTERN_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("LECTERN_POSTGRES_URL"); v != "" {
		cfg.Database.PostgresURL = v
	}
	if v := os.Getenv("LECTERN_DOCS_DIR"); v != "" {
		cfg.Docs.Dir = v
	}
	if v := os.Getenv("LECTERN_MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Search.MaxResults = n
		}
	}
	if os.Getenv("LECTERN_OBSERVER_ENABLED") == "true" || os.Getenv("LECTERN_OBSERVER_ENABLED") == "1" {
		cfg.Observer.Enabled = true
	}

	return cfg
}
