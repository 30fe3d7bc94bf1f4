// Package mock provides test doubles for the memory store contracts.
//
// Use VectorStore, GraphStore, and HistoryLog in unit tests to verify the
// calls the engine issues and to feed controlled responses or injected
// errors without a live backend. Response fields are read under the same
// mutex that guards the call records; set them before starting concurrent
// calls.
package mock

import (
	"context"
	"sync"

	"github.com/Gabrielmcp78/mem0-sub000/pkg/memory"
)

// VectorCall records a single store invocation: the method name plus
// whichever arguments that method takes.
type VectorCall struct {
	// Method is the invoked method name ("Insert", "Search", ...).
	Method string

	// Vector is the embedding argument, when the method takes one.
	Vector []float32

	// Fact is the fact argument for Insert and Update.
	Fact memory.Fact

	// ID is the fact ID argument for Delete and Get.
	ID string

	// Opts is the Search options argument.
	Opts memory.SearchOpts

	// Filter is the filter argument for List and DeleteByFilter.
	Filter memory.Filter

	// Limit is the List limit argument.
	Limit int
}

// VectorStore is a mock implementation of memory.VectorStore.
// Zero-value response fields make methods return zero values and nil errors;
// set the Err fields to inject failures.
type VectorStore struct {
	mu sync.Mutex

	// GetFact is returned by Get when GetErr is nil. A nil GetFact makes Get
	// return memory.ErrNotFound, matching a store that has never seen the ID.
	GetFact *memory.Fact

	// SearchResults is returned by Search.
	SearchResults []memory.SearchResult

	// ListFacts is returned by List.
	ListFacts []memory.Fact

	// DeletedIDs is returned by DeleteByFilter.
	DeletedIDs []string

	// Per-method injected errors.
	InsertErr         error
	UpdateErr         error
	DeleteErr         error
	GetErr            error
	SearchErr         error
	ListErr           error
	DeleteByFilterErr error
	ResetErr          error

	// Calls records every invocation in order.
	Calls []VectorCall
}

func (s *VectorStore) record(c VectorCall) {
	s.Calls = append(s.Calls, c)
}

// Insert implements memory.VectorStore.
func (s *VectorStore) Insert(_ context.Context, vector []float32, fact memory.Fact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(VectorCall{Method: "Insert", Vector: vector, Fact: fact})
	return s.InsertErr
}

// Update implements memory.VectorStore.
func (s *VectorStore) Update(_ context.Context, vector []float32, fact memory.Fact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(VectorCall{Method: "Update", Vector: vector, Fact: fact})
	return s.UpdateErr
}

// Delete implements memory.VectorStore.
func (s *VectorStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(VectorCall{Method: "Delete", ID: id})
	return s.DeleteErr
}

// Get implements memory.VectorStore.
func (s *VectorStore) Get(_ context.Context, id string) (*memory.Fact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(VectorCall{Method: "Get", ID: id})
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	if s.GetFact == nil {
		return nil, memory.ErrNotFound
	}
	f := *s.GetFact
	return &f, nil
}

// Search implements memory.VectorStore.
func (s *VectorStore) Search(_ context.Context, vector []float32, opts memory.SearchOpts) ([]memory.SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(VectorCall{Method: "Search", Vector: vector, Opts: opts})
	if s.SearchErr != nil {
		return nil, s.SearchErr
	}
	out := make([]memory.SearchResult, len(s.SearchResults))
	copy(out, s.SearchResults)
	return out, nil
}

// List implements memory.VectorStore.
func (s *VectorStore) List(_ context.Context, filter memory.Filter, limit int) ([]memory.Fact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(VectorCall{Method: "List", Filter: filter, Limit: limit})
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	out := make([]memory.Fact, len(s.ListFacts))
	copy(out, s.ListFacts)
	return out, nil
}

// DeleteByFilter implements memory.VectorStore.
func (s *VectorStore) DeleteByFilter(_ context.Context, filter memory.Filter) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(VectorCall{Method: "DeleteByFilter", Filter: filter})
	if s.DeleteByFilterErr != nil {
		return nil, s.DeleteByFilterErr
	}
	out := make([]string, len(s.DeletedIDs))
	copy(out, s.DeletedIDs)
	return out, nil
}

// Reset implements memory.VectorStore.
func (s *VectorStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(VectorCall{Method: "Reset"})
	return s.ResetErr
}

// CallsTo returns the recorded calls for one method, in order.
func (s *VectorStore) CallsTo(method string) []VectorCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []VectorCall
	for _, c := range s.Calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// GraphCall records a single graph store invocation.
type GraphCall struct {
	// Method is the invoked method name.
	Method string

	// Entity is the UpsertEntity argument.
	Entity memory.Entity

	// Relation is the UpsertRelation argument.
	Relation memory.Relation

	// Scope is the scope argument for scope-taking methods.
	Scope memory.Scope

	// Label, Embedding, and K are the SimilarEntities arguments.
	Label     string
	Embedding []float32
	K         int

	// Query and Limit are the Search arguments.
	Query string
	Limit int
}

// GraphStore is a mock implementation of memory.GraphStore.
type GraphStore struct {
	mu sync.Mutex

	// Similar is returned by SimilarEntities.
	Similar []memory.ScoredEntity

	// SearchResults is returned by Search.
	SearchResults []memory.GraphResult

	// Per-method injected errors.
	UpsertEntityErr    error
	SimilarErr         error
	UpsertRelationErr  error
	SearchErr          error
	DeleteByScopeErr   error
	ResetErr           error

	// Calls records every invocation in order.
	Calls []GraphCall
}

// UpsertEntity implements memory.GraphStore. When the entity carries no ID a
// deterministic one is assigned from the call count.
func (s *GraphStore) UpsertEntity(_ context.Context, e memory.Entity) (memory.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, GraphCall{Method: "UpsertEntity", Entity: e})
	if s.UpsertEntityErr != nil {
		return memory.Entity{}, s.UpsertEntityErr
	}
	if e.ID == "" {
		e.ID = "mock-entity-" + e.Label
	}
	return e, nil
}

// SimilarEntities implements memory.GraphStore.
func (s *GraphStore) SimilarEntities(_ context.Context, scope memory.Scope, label string, embedding []float32, k int) ([]memory.ScoredEntity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, GraphCall{Method: "SimilarEntities", Scope: scope, Label: label, Embedding: embedding, K: k})
	if s.SimilarErr != nil {
		return nil, s.SimilarErr
	}
	out := make([]memory.ScoredEntity, len(s.Similar))
	copy(out, s.Similar)
	return out, nil
}

// UpsertRelation implements memory.GraphStore.
func (s *GraphStore) UpsertRelation(_ context.Context, r memory.Relation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, GraphCall{Method: "UpsertRelation", Relation: r})
	return s.UpsertRelationErr
}

// Search implements memory.GraphStore.
func (s *GraphStore) Search(_ context.Context, scope memory.Scope, query string, limit int) ([]memory.GraphResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, GraphCall{Method: "Search", Scope: scope, Query: query, Limit: limit})
	if s.SearchErr != nil {
		return nil, s.SearchErr
	}
	out := make([]memory.GraphResult, len(s.SearchResults))
	copy(out, s.SearchResults)
	return out, nil
}

// DeleteByScope implements memory.GraphStore.
func (s *GraphStore) DeleteByScope(_ context.Context, scope memory.Scope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, GraphCall{Method: "DeleteByScope", Scope: scope})
	return s.DeleteByScopeErr
}

// Reset implements memory.GraphStore.
func (s *GraphStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, GraphCall{Method: "Reset"})
	return s.ResetErr
}

// CallsTo returns the recorded calls for one method, in order.
func (s *GraphStore) CallsTo(method string) []GraphCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []GraphCall
	for _, c := range s.Calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// HistoryCall records a single history log invocation.
type HistoryCall struct {
	// Method is the invoked method name.
	Method string

	// Entry is the Append argument.
	Entry memory.HistoryEntry

	// FactID is the List argument.
	FactID string

	// Scope is the DeleteByScope argument.
	Scope memory.Scope
}

// HistoryLog is a mock implementation of memory.HistoryLog. Append assigns
// per-fact sequence numbers like a real log, so replay-based assertions work
// against the recorded entries.
type HistoryLog struct {
	mu sync.Mutex

	// Entries is the log content: appended entries in order, also consulted
	// by List. Pre-populate it to simulate existing history.
	Entries []memory.HistoryEntry

	// Per-method injected errors.
	AppendErr        error
	ListErr          error
	DeleteByScopeErr error
	ResetErr         error

	// Calls records every invocation in order.
	Calls []HistoryCall

	nextSeq map[string]int64
}

// Append implements memory.HistoryLog.
func (l *HistoryLog) Append(_ context.Context, entry memory.HistoryEntry) (memory.HistoryEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Calls = append(l.Calls, HistoryCall{Method: "Append", Entry: entry})
	if l.AppendErr != nil {
		return memory.HistoryEntry{}, l.AppendErr
	}
	if l.nextSeq == nil {
		l.nextSeq = make(map[string]int64)
	}
	l.nextSeq[entry.FactID]++
	entry.Seq = l.nextSeq[entry.FactID]
	l.Entries = append(l.Entries, entry)
	return entry, nil
}

// List implements memory.HistoryLog.
func (l *HistoryLog) List(_ context.Context, factID string) ([]memory.HistoryEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Calls = append(l.Calls, HistoryCall{Method: "List", FactID: factID})
	if l.ListErr != nil {
		return nil, l.ListErr
	}
	var out []memory.HistoryEntry
	for _, e := range l.Entries {
		if e.FactID == factID {
			out = append(out, e)
		}
	}
	return out, nil
}

// DeleteByScope implements memory.HistoryLog.
func (l *HistoryLog) DeleteByScope(_ context.Context, scope memory.Scope) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Calls = append(l.Calls, HistoryCall{Method: "DeleteByScope", Scope: scope})
	if l.DeleteByScopeErr != nil {
		return l.DeleteByScopeErr
	}
	kept := l.Entries[:0]
	for _, e := range l.Entries {
		if !scope.Contains(e.Scope) {
			kept = append(kept, e)
		}
	}
	l.Entries = kept
	return nil
}

// Reset implements memory.HistoryLog.
func (l *HistoryLog) Reset(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Calls = append(l.Calls, HistoryCall{Method: "Reset"})
	if l.ResetErr != nil {
		return l.ResetErr
	}
	l.Entries = nil
	l.nextSeq = nil
	return nil
}

// EntriesFor returns the appended entries for a fact, in append order.
func (l *HistoryLog) EntriesFor(factID string) []memory.HistoryEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []memory.HistoryEntry
	for _, e := range l.Entries {
		if e.FactID == factID {
			out = append(out, e)
		}
	}
	return out
}

// Compile-time interface checks.
var (
	_ memory.VectorStore = (*VectorStore)(nil)
	_ memory.GraphStore  = (*GraphStore)(nil)
	_ memory.HistoryLog  = (*HistoryLog)(nil)
)
