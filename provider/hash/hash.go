// Package hash implements lectern.EmbeddingProvider with deterministic
// feature hashing. No network, no model weights: each text is projected
// onto a fixed number of dimensions by hashing its words and character
// trigrams. Vectors are L2-normalized so cosine distance behaves sensibly.
//
// Quality is far below a learned model, but it is deterministic, instant,
// and dependency-free, which makes it the default for tests and local
// tooling.
package hash

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	lectern "github.com/nevindra/lectern"
)

// DefaultDimensions is the vector size used when none is configured.
const DefaultDimensions = 256

// Provider implements lectern.EmbeddingProvider via feature hashing.
type Provider struct {
	dimensions int
}

var _ lectern.EmbeddingProvider = (*Provider)(nil)

// Option configures a Provider.
type Option func(*Provider)

// WithDimensions sets the vector size (default 256).
func WithDimensions(d int) Option {
	return func(p *Provider) { p.dimensions = d }
}

// New creates a hashing Provider.
func New(opts ...Option) *Provider {
	p := &Provider{dimensions: DefaultDimensions}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *Provider) Name() string { return "hash" }

func (p *Provider) Dimensions() int { return p.dimensions }

// Embed hashes each text independently. Never fails and never blocks on
// anything but the context.
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = p.embedOne(text)
	}
	return out, nil
}

func (p *Provider) embedOne(text string) []float32 {
	vec := make([]float32, p.dimensions)

	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, w := range words {
		// Whole-word feature carries more weight than trigrams.
		vec[p.bucket("w:"+w)] += 2

		runes := []rune(w)
		for j := 0; j+3 <= len(runes); j++ {
			vec[p.bucket("t:"+string(runes[j:j+3]))]++
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec
}

func (p *Provider) bucket(feature string) int {
	h := fnv.New32a()
	h.Write([]byte(feature))
	return int(h.Sum32() % uint32(p.dimensions))
}
