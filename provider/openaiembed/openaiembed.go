// Package openaiembed implements lectern.EmbeddingProvider for any
// OpenAI-compatible embeddings API.
//
// Works with OpenAI, Azure OpenAI, Ollama, vLLM, LM Studio, and any other
// backend that implements the /embeddings endpoint with batch input.
package openaiembed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	lectern "github.com/nevindra/lectern"
)

const (
	defaultBaseURL    = "https://api.openai.com/v1"
	defaultModel      = "text-embedding-3-small"
	defaultDimensions = 1536
)

// Provider implements lectern.EmbeddingProvider over HTTP.
type Provider struct {
	apiKey     string
	model      string
	baseURL    string
	dimensions int
	client     *http.Client
}

var _ lectern.EmbeddingProvider = (*Provider)(nil)

// Option configures a Provider.
type Option func(*Provider)

// WithBaseURL overrides the API base (default "https://api.openai.com/v1").
// The /embeddings path is appended automatically.
func WithBaseURL(u string) Option {
	return func(p *Provider) { p.baseURL = u }
}

// WithModel overrides the embedding model (default "text-embedding-3-small").
func WithModel(m string) Option {
	return func(p *Provider) { p.model = m }
}

// WithDimensions declares the output dimension (default 1536).
func WithDimensions(d int) Option {
	return func(p *Provider) { p.dimensions = d }
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.client = c }
}

// New creates a Provider. The API key may be empty for backends that do not
// require authentication (e.g. a local Ollama instance).
func New(apiKey string, opts ...Option) *Provider {
	p := &Provider{
		apiKey:     apiKey,
		model:      defaultModel,
		baseURL:    defaultBaseURL,
		dimensions: defaultDimensions,
		client:     &http.Client{},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *Provider) Name() string { return "openai" }

func (p *Provider) Dimensions() int { return p.dimensions }

type embedRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed sends one batch request for all texts and returns embeddings in
// input order.
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	payload, err := json.Marshal(embedRequest{Input: texts, Model: p.model})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embeddings request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &lectern.ErrHTTP{Status: resp.StatusCode, Body: string(body)}
	}

	var result embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(result.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(result.Data))
	}

	// The API may return data out of order; rely on the index field.
	out := make([][]float32, len(texts))
	for _, d := range result.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}
