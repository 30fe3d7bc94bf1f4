// Package mock provides a test double for the embeddings.Provider interface.
//
// The default behaviour produces deterministic vectors derived from the text
// hash, so equal texts embed equally and distinct texts (almost surely)
// differ. Set Vectors to pin exact outputs, or Err to inject failures.
package mock

import (
	"context"
	"crypto/md5"
	"math"
	"sync"

	"github.com/Gabrielmcp78/mem0-sub000/pkg/provider/embeddings"
)

// Call records a single embedding invocation.
type Call struct {
	// Texts holds the embedded texts (a single element for Embed).
	Texts []string

	// Purpose is the purpose tag passed by the caller.
	Purpose embeddings.Purpose
}

// Provider is a mock implementation of embeddings.Provider.
type Provider struct {
	mu sync.Mutex

	// Dims is the vector length; zero defaults to 4.
	Dims int

	// Vectors pins exact outputs per input text. Texts not present fall back
	// to the deterministic hash-derived vector.
	Vectors map[string][]float32

	// Err, if non-nil, is returned by Embed and EmbedBatch.
	Err error

	// Model is returned by ModelID; empty defaults to "mock-embedder".
	Model string

	// Calls records every invocation in order.
	Calls []Call
}

// Embed implements embeddings.Provider.
func (p *Provider) Embed(_ context.Context, text string, purpose embeddings.Purpose) ([]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, Call{Texts: []string{text}, Purpose: purpose})
	if p.Err != nil {
		return nil, p.Err
	}
	return p.vectorFor(text), nil
}

// EmbedBatch implements embeddings.Provider.
func (p *Provider) EmbedBatch(_ context.Context, texts []string, purpose embeddings.Purpose) ([][]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	copied := make([]string, len(texts))
	copy(copied, texts)
	p.Calls = append(p.Calls, Call{Texts: copied, Purpose: purpose})
	if p.Err != nil {
		return nil, p.Err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = p.vectorFor(t)
	}
	return out, nil
}

// Dimensions implements embeddings.Provider.
func (p *Provider) Dimensions() int {
	return p.dims()
}

// ModelID implements embeddings.Provider.
func (p *Provider) ModelID() string {
	if p.Model == "" {
		return "mock-embedder"
	}
	return p.Model
}

// CallCount returns the number of recorded invocations.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

func (p *Provider) dims() int {
	if p.Dims <= 0 {
		return 4
	}
	return p.Dims
}

// vectorFor returns the pinned vector for text, or a unit-normalised vector
// derived from the text's md5 digest.
func (p *Provider) vectorFor(text string) []float32 {
	if v, ok := p.Vectors[text]; ok {
		out := make([]float32, len(v))
		copy(out, v)
		return out
	}
	sum := md5.Sum([]byte(text))
	dims := p.dims()
	vec := make([]float32, dims)
	var norm float64
	for i := 0; i < dims; i++ {
		vec[i] = float32(sum[i%len(sum)]) + 1
		norm += float64(vec[i]) * float64(vec[i])
	}
	scale := float32(math.Sqrt(norm))
	for i := range vec {
		vec[i] /= scale
	}
	return vec
}

// Ensure Provider implements embeddings.Provider at compile time.
var _ embeddings.Provider = (*Provider)(nil)
