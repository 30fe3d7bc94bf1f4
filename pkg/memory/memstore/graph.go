package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/antzucaro/matchr"
	"github.com/google/uuid"

	"github.com/Gabrielmcp78/mem0-sub000/pkg/memory"
)

// minSearchScore drops graph search results with no meaningful term overlap.
const minSearchScore = 0.5

// GraphStore is an in-memory memory.GraphStore. Entity similarity combines
// Jaro-Winkler label distance with cosine similarity over label embeddings
// when both sides carry one.
type GraphStore struct {
	mu        sync.RWMutex
	entities  map[string]memory.Entity
	relations map[string]memory.Relation
}

// NewGraphStore returns an empty in-memory graph store.
func NewGraphStore() *GraphStore {
	return &GraphStore{
		entities:  make(map[string]memory.Entity),
		relations: make(map[string]memory.Relation),
	}
}

// UpsertEntity implements memory.GraphStore.
func (s *GraphStore) UpsertEntity(_ context.Context, e memory.Entity) (memory.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
		e.CreatedAt = now
	} else if existing, ok := s.entities[e.ID]; ok {
		e.CreatedAt = existing.CreatedAt
		// Merge attributes so a refresh never loses earlier annotations.
		if len(existing.Attributes) > 0 {
			merged := make(map[string]string, len(existing.Attributes)+len(e.Attributes))
			for k, v := range existing.Attributes {
				merged[k] = v
			}
			for k, v := range e.Attributes {
				merged[k] = v
			}
			e.Attributes = merged
		}
	} else {
		e.CreatedAt = now
	}
	e.UpdatedAt = now

	s.entities[e.ID] = e
	return e, nil
}

// SimilarEntities implements memory.GraphStore.
func (s *GraphStore) SimilarEntities(_ context.Context, scope memory.Scope, label string, embedding []float32, k int) ([]memory.ScoredEntity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var scored []memory.ScoredEntity
	for _, e := range s.entities {
		if !scope.Contains(e.Scope) {
			continue
		}
		score := labelSimilarity(label, e.Label)
		if len(embedding) > 0 && len(e.Embedding) > 0 {
			if cos := cosineSimilarity(embedding, e.Embedding); cos > score {
				score = cos
			}
		}
		scored = append(scored, memory.ScoredEntity{Entity: e, Score: score})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Label < scored[j].Label
	})
	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// UpsertRelation implements memory.GraphStore.
func (s *GraphStore) UpsertRelation(_ context.Context, r memory.Relation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := relationKey(r)
	now := time.Now().UTC()
	if existing, ok := s.relations[key]; ok {
		r.CreatedAt = existing.CreatedAt
	} else {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	s.relations[key] = r
	return nil
}

// Search implements memory.GraphStore. The query is split on whitespace and
// each triple is scored by the best term match against its source label,
// predicate, and target label.
func (s *GraphStore) Search(_ context.Context, scope memory.Scope, query string, limit int) ([]memory.GraphResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil, nil
	}

	var results []memory.GraphResult
	for _, r := range s.relations {
		if !scope.Contains(r.Scope) {
			continue
		}
		src, okSrc := s.entities[r.SourceID]
		tgt, okTgt := s.entities[r.TargetID]
		if !okSrc || !okTgt {
			continue
		}

		var best float64
		for _, term := range terms {
			for _, candidate := range []string{src.Label, r.Predicate, tgt.Label} {
				if score := labelSimilarity(term, candidate); score > best {
					best = score
				}
			}
		}
		if best < minSearchScore {
			continue
		}
		results = append(results, memory.GraphResult{
			Source:    src.Label,
			Predicate: r.Predicate,
			Target:    tgt.Label,
			Score:     best,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Source < results[j].Source
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// DeleteByScope implements memory.GraphStore.
func (s *GraphStore) DeleteByScope(_ context.Context, scope memory.Scope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, e := range s.entities {
		if scope.Contains(e.Scope) {
			delete(s.entities, id)
		}
	}
	for key, r := range s.relations {
		if scope.Contains(r.Scope) {
			delete(s.relations, key)
		}
	}
	return nil
}

// Reset implements memory.GraphStore.
func (s *GraphStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities = make(map[string]memory.Entity)
	s.relations = make(map[string]memory.Relation)
	return nil
}

// labelSimilarity scores two labels in [0, 1] using case-insensitive
// Jaro-Winkler distance.
func labelSimilarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	return matchr.JaroWinkler(a, b, false)
}

func relationKey(r memory.Relation) string {
	return r.Scope.UserID + "\x00" + r.Scope.AgentID + "\x00" + r.Scope.SessionID +
		"\x00" + r.SourceID + "\x00" + r.Predicate + "\x00" + r.TargetID
}

var _ memory.GraphStore = (*GraphStore)(nil)
