package engine

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/Gabrielmcp78/mem0-sub000/internal/resilience"
	"github.com/Gabrielmcp78/mem0-sub000/pkg/memory"
	"github.com/Gabrielmcp78/mem0-sub000/pkg/provider/embeddings"
	"github.com/Gabrielmcp78/mem0-sub000/pkg/provider/llm"
)

// guard bundles the protections applied to every provider call: admission
// through the shared semaphore, a per-call timeout, the transient retry
// policy, and a per-provider circuit breaker. A timeout that was not caused
// by the caller's own context surfaces as a transient provider failure so it
// is retried and counted against the breaker.
type guard struct {
	name    string
	sem     *semaphore.Weighted
	policy  resilience.RetryPolicy
	breaker *resilience.CircuitBreaker
	timeout time.Duration
}

func newGuard(name string, sem *semaphore.Weighted, policy resilience.RetryPolicy, timeout time.Duration) *guard {
	return &guard{
		name:    name,
		sem:     sem,
		policy:  policy,
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{Name: name}),
		timeout: timeout,
	}
}

func (g *guard) do(ctx context.Context, fn func(context.Context) error) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer g.sem.Release(1)

	return resilience.Retry(ctx, g.policy, func() error {
		return g.breaker.Execute(func() error {
			callCtx, cancel := context.WithTimeout(ctx, g.timeout)
			defer cancel()

			err := fn(callCtx)
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				return memory.NewProviderError(g.name, memory.FailureTransient, err)
			}
			return err
		})
	})
}

// guardedLLM wraps an llm.Provider with a guard.
type guardedLLM struct {
	inner llm.Provider
	g     *guard
}

func (p *guardedLLM) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	var resp *llm.Response
	err := p.g.do(ctx, func(ctx context.Context) error {
		var callErr error
		resp, callErr = p.inner.Complete(ctx, req)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (p *guardedLLM) DescribeImage(ctx context.Context, url string) (string, error) {
	var desc string
	err := p.g.do(ctx, func(ctx context.Context) error {
		var callErr error
		desc, callErr = p.inner.DescribeImage(ctx, url)
		return callErr
	})
	if err != nil {
		return "", err
	}
	return desc, nil
}

func (p *guardedLLM) ModelID() string { return p.inner.ModelID() }

// guardedEmbedder wraps an embeddings.Provider with a guard.
type guardedEmbedder struct {
	inner embeddings.Provider
	g     *guard
}

func (p *guardedEmbedder) Embed(ctx context.Context, text string, purpose embeddings.Purpose) ([]float32, error) {
	var vec []float32
	err := p.g.do(ctx, func(ctx context.Context) error {
		var callErr error
		vec, callErr = p.inner.Embed(ctx, text, purpose)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return vec, nil
}

func (p *guardedEmbedder) EmbedBatch(ctx context.Context, texts []string, purpose embeddings.Purpose) ([][]float32, error) {
	var vecs [][]float32
	err := p.g.do(ctx, func(ctx context.Context) error {
		var callErr error
		vecs, callErr = p.inner.EmbedBatch(ctx, texts, purpose)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return vecs, nil
}

func (p *guardedEmbedder) Dimensions() int { return p.inner.Dimensions() }
func (p *guardedEmbedder) ModelID() string { return p.inner.ModelID() }

// guardedVectors wraps a memory.VectorStore with a guard.
type guardedVectors struct {
	inner memory.VectorStore
	g     *guard
}

func (s *guardedVectors) Insert(ctx context.Context, vector []float32, fact memory.Fact) error {
	return s.g.do(ctx, func(ctx context.Context) error {
		return s.inner.Insert(ctx, vector, fact)
	})
}

func (s *guardedVectors) Update(ctx context.Context, vector []float32, fact memory.Fact) error {
	return s.g.do(ctx, func(ctx context.Context) error {
		return s.inner.Update(ctx, vector, fact)
	})
}

func (s *guardedVectors) Delete(ctx context.Context, id string) error {
	return s.g.do(ctx, func(ctx context.Context) error {
		return s.inner.Delete(ctx, id)
	})
}

func (s *guardedVectors) Get(ctx context.Context, id string) (*memory.Fact, error) {
	var fact *memory.Fact
	err := s.g.do(ctx, func(ctx context.Context) error {
		var callErr error
		fact, callErr = s.inner.Get(ctx, id)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return fact, nil
}

func (s *guardedVectors) Search(ctx context.Context, vector []float32, opts memory.SearchOpts) ([]memory.SearchResult, error) {
	var results []memory.SearchResult
	err := s.g.do(ctx, func(ctx context.Context) error {
		var callErr error
		results, callErr = s.inner.Search(ctx, vector, opts)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (s *guardedVectors) List(ctx context.Context, filter memory.Filter, limit int) ([]memory.Fact, error) {
	var facts []memory.Fact
	err := s.g.do(ctx, func(ctx context.Context) error {
		var callErr error
		facts, callErr = s.inner.List(ctx, filter, limit)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return facts, nil
}

func (s *guardedVectors) DeleteByFilter(ctx context.Context, filter memory.Filter) ([]string, error) {
	var ids []string
	err := s.g.do(ctx, func(ctx context.Context) error {
		var callErr error
		ids, callErr = s.inner.DeleteByFilter(ctx, filter)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *guardedVectors) Reset(ctx context.Context) error {
	return s.g.do(ctx, func(ctx context.Context) error {
		return s.inner.Reset(ctx)
	})
}

// guardedGraph wraps a memory.GraphStore with a guard.
type guardedGraph struct {
	inner memory.GraphStore
	g     *guard
}

func (s *guardedGraph) UpsertEntity(ctx context.Context, e memory.Entity) (memory.Entity, error) {
	var out memory.Entity
	err := s.g.do(ctx, func(ctx context.Context) error {
		var callErr error
		out, callErr = s.inner.UpsertEntity(ctx, e)
		return callErr
	})
	if err != nil {
		return memory.Entity{}, err
	}
	return out, nil
}

func (s *guardedGraph) SimilarEntities(ctx context.Context, scope memory.Scope, label string, embedding []float32, k int) ([]memory.ScoredEntity, error) {
	var out []memory.ScoredEntity
	err := s.g.do(ctx, func(ctx context.Context) error {
		var callErr error
		out, callErr = s.inner.SimilarEntities(ctx, scope, label, embedding, k)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *guardedGraph) UpsertRelation(ctx context.Context, r memory.Relation) error {
	return s.g.do(ctx, func(ctx context.Context) error {
		return s.inner.UpsertRelation(ctx, r)
	})
}

func (s *guardedGraph) Search(ctx context.Context, scope memory.Scope, query string, limit int) ([]memory.GraphResult, error) {
	var out []memory.GraphResult
	err := s.g.do(ctx, func(ctx context.Context) error {
		var callErr error
		out, callErr = s.inner.Search(ctx, scope, query, limit)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *guardedGraph) DeleteByScope(ctx context.Context, scope memory.Scope) error {
	return s.g.do(ctx, func(ctx context.Context) error {
		return s.inner.DeleteByScope(ctx, scope)
	})
}

func (s *guardedGraph) Reset(ctx context.Context) error {
	return s.g.do(ctx, func(ctx context.Context) error {
		return s.inner.Reset(ctx)
	})
}

// guardedHistory wraps a memory.HistoryLog with a guard.
type guardedHistory struct {
	inner memory.HistoryLog
	g     *guard
}

func (l *guardedHistory) Append(ctx context.Context, entry memory.HistoryEntry) (memory.HistoryEntry, error) {
	var out memory.HistoryEntry
	err := l.g.do(ctx, func(ctx context.Context) error {
		var callErr error
		out, callErr = l.inner.Append(ctx, entry)
		return callErr
	})
	if err != nil {
		return memory.HistoryEntry{}, err
	}
	return out, nil
}

func (l *guardedHistory) List(ctx context.Context, factID string) ([]memory.HistoryEntry, error) {
	var out []memory.HistoryEntry
	err := l.g.do(ctx, func(ctx context.Context) error {
		var callErr error
		out, callErr = l.inner.List(ctx, factID)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (l *guardedHistory) DeleteByScope(ctx context.Context, scope memory.Scope) error {
	return l.g.do(ctx, func(ctx context.Context) error {
		return l.inner.DeleteByScope(ctx, scope)
	})
}

func (l *guardedHistory) Reset(ctx context.Context) error {
	return l.g.do(ctx, func(ctx context.Context) error {
		return l.inner.Reset(ctx)
	})
}

// Compile-time interface checks.
var (
	_ llm.Provider        = (*guardedLLM)(nil)
	_ embeddings.Provider = (*guardedEmbedder)(nil)
	_ memory.VectorStore  = (*guardedVectors)(nil)
	_ memory.GraphStore   = (*guardedGraph)(nil)
	_ memory.HistoryLog   = (*guardedHistory)(nil)
)
