package config

import (
	"errors"
	"fmt"
	"sync"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/Gabrielmcp78/mem0-sub000/pkg/provider/embeddings"
	ollamaemb "github.com/Gabrielmcp78/mem0-sub000/pkg/provider/embeddings/ollama"
	openaiemb "github.com/Gabrielmcp78/mem0-sub000/pkg/provider/embeddings/openai"
	"github.com/Gabrielmcp78/mem0-sub000/pkg/provider/llm"
	"github.com/Gabrielmcp78/mem0-sub000/pkg/provider/llm/anyllm"
	openaillm "github.com/Gabrielmcp78/mem0-sub000/pkg/provider/llm/openai"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// provider type. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	llm      map[string]func(ProviderEntry) (llm.Provider, error)
	embedder map[string]func(ProviderEntry) (embeddings.Provider, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		llm:      make(map[string]func(ProviderEntry) (llm.Provider, error)),
		embedder: make(map[string]func(ProviderEntry) (embeddings.Provider, error)),
	}
}

// DefaultRegistry returns a [Registry] with every built-in provider
// registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.RegisterLLM("openai", func(e ProviderEntry) (llm.Provider, error) {
		var opts []openaillm.Option
		if e.BaseURL != "" {
			opts = append(opts, openaillm.WithBaseURL(e.BaseURL))
		}
		return openaillm.New(e.APIKey, e.Model, opts...)
	})
	for _, name := range []string{"anthropic", "gemini", "ollama", "groq"} {
		name := name
		r.RegisterLLM(name, func(e ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if e.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(e.APIKey))
			}
			if e.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(e.BaseURL))
			}
			return anyllm.New(name, e.Model, opts...)
		})
	}

	r.RegisterEmbedder("openai", func(e ProviderEntry) (embeddings.Provider, error) {
		var opts []openaiemb.Option
		if e.BaseURL != "" {
			opts = append(opts, openaiemb.WithBaseURL(e.BaseURL))
		}
		return openaiemb.New(e.APIKey, e.Model, opts...)
	})
	r.RegisterEmbedder("ollama", func(e ProviderEntry) (embeddings.Provider, error) {
		var opts []ollamaemb.Option
		if e.Dimensions > 0 {
			opts = append(opts, ollamaemb.WithDimensions(e.Dimensions))
		}
		return ollamaemb.New(e.BaseURL, e.Model, opts...)
	})

	return r
}

// RegisterLLM registers an LLM provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterLLM(name string, factory func(ProviderEntry) (llm.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llm[name] = factory
}

// RegisterEmbedder registers an embedding provider factory under name.
func (r *Registry) RegisterEmbedder(name string, factory func(ProviderEntry) (embeddings.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.embedder[name] = factory
}

// CreateLLM instantiates an LLM provider using the factory registered under
// entry.Name. Returns [ErrProviderNotRegistered] if no factory has been
// registered for that name.
func (r *Registry) CreateLLM(entry ProviderEntry) (llm.Provider, error) {
	r.mu.RLock()
	factory, ok := r.llm[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: llm/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateEmbedder instantiates an embedding provider using the factory
// registered under entry.Name.
func (r *Registry) CreateEmbedder(entry ProviderEntry) (embeddings.Provider, error) {
	r.mu.RLock()
	factory, ok := r.embedder[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: embedder/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}
