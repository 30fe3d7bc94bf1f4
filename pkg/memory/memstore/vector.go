// Package memstore provides in-memory implementations of the memory store
// contracts: VectorStore, GraphStore, and HistoryLog.
//
// The implementations are complete enough to run the engine as a fully
// embedded service (single process, no external dependencies) and double as
// stateful fixtures in tests. All stores are safe for concurrent use; data
// lives only as long as the process.
package memstore

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/Gabrielmcp78/mem0-sub000/pkg/memory"
)

// VectorStore is an in-memory memory.VectorStore backed by a map and
// brute-force cosine search.
type VectorStore struct {
	mu      sync.RWMutex
	facts   map[string]memory.Fact
	vectors map[string][]float32
}

// NewVectorStore returns an empty in-memory vector store.
func NewVectorStore() *VectorStore {
	return &VectorStore{
		facts:   make(map[string]memory.Fact),
		vectors: make(map[string][]float32),
	}
}

// Insert implements memory.VectorStore.
func (s *VectorStore) Insert(_ context.Context, vector []float32, fact memory.Fact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.facts[fact.ID] = fact
	s.vectors[fact.ID] = append([]float32(nil), vector...)
	return nil
}

// Update implements memory.VectorStore.
func (s *VectorStore) Update(_ context.Context, vector []float32, fact memory.Fact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.facts[fact.ID]; !ok {
		return memory.ErrNotFound
	}
	s.facts[fact.ID] = fact
	s.vectors[fact.ID] = append([]float32(nil), vector...)
	return nil
}

// Delete implements memory.VectorStore.
func (s *VectorStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.facts[id]; !ok {
		return memory.ErrNotFound
	}
	delete(s.facts, id)
	delete(s.vectors, id)
	return nil
}

// Get implements memory.VectorStore.
func (s *VectorStore) Get(_ context.Context, id string) (*memory.Fact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.facts[id]
	if !ok {
		return nil, memory.ErrNotFound
	}
	return &f, nil
}

// Search implements memory.VectorStore.
func (s *VectorStore) Search(_ context.Context, vector []float32, opts memory.SearchOpts) ([]memory.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []memory.SearchResult
	for id, f := range s.facts {
		if !opts.Filter.Matches(f) {
			continue
		}
		score := cosineSimilarity(vector, s.vectors[id])
		if opts.Threshold > 0 && score < opts.Threshold {
			continue
		}
		results = append(results, memory.SearchResult{Fact: f, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].UpdatedAt.After(results[j].UpdatedAt)
	})

	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results, nil
}

// List implements memory.VectorStore.
func (s *VectorStore) List(_ context.Context, filter memory.Filter, limit int) ([]memory.Fact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var facts []memory.Fact
	for _, f := range s.facts {
		if filter.Matches(f) {
			facts = append(facts, f)
		}
	}
	sort.Slice(facts, func(i, j int) bool {
		if !facts[i].CreatedAt.Equal(facts[j].CreatedAt) {
			return facts[i].CreatedAt.Before(facts[j].CreatedAt)
		}
		return facts[i].ID < facts[j].ID
	})
	if limit > 0 && len(facts) > limit {
		facts = facts[:limit]
	}
	return facts, nil
}

// DeleteByFilter implements memory.VectorStore.
func (s *VectorStore) DeleteByFilter(_ context.Context, filter memory.Filter) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted []string
	for id, f := range s.facts {
		if filter.Matches(f) {
			deleted = append(deleted, id)
		}
	}
	for _, id := range deleted {
		delete(s.facts, id)
		delete(s.vectors, id)
	}
	sort.Strings(deleted)
	return deleted, nil
}

// Reset implements memory.VectorStore.
func (s *VectorStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.facts = make(map[string]memory.Fact)
	s.vectors = make(map[string][]float32)
	return nil
}

// cosineSimilarity returns the cosine similarity of a and b clamped to
// [0, 1]. Mismatched lengths and zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return math.Max(0, math.Min(1, cos))
}

var _ memory.VectorStore = (*VectorStore)(nil)
