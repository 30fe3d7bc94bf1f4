package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gabrielmcp78/mem0-sub000/internal/resilience"
	"github.com/Gabrielmcp78/mem0-sub000/pkg/memory"
	memmock "github.com/Gabrielmcp78/mem0-sub000/pkg/memory/mock"
	"github.com/Gabrielmcp78/mem0-sub000/pkg/memory/memstore"
	embmock "github.com/Gabrielmcp78/mem0-sub000/pkg/provider/embeddings/mock"
	"github.com/Gabrielmcp78/mem0-sub000/pkg/provider/llm"
	llmmock "github.com/Gabrielmcp78/mem0-sub000/pkg/provider/llm/mock"
)

var u1 = memory.Scope{UserID: "u1"}

// fastRetry keeps failure paths quick in tests.
var fastRetry = resilience.RetryPolicy{MaxAttempts: 1, InitialInterval: time.Millisecond}

// testStores bundles the in-memory backends behind a test engine.
type testStores struct {
	vectors *memstore.VectorStore
	graph   *memstore.GraphStore
	history *memstore.HistoryLog
}

func newTestEngine(t *testing.T, p *llmmock.Provider, mutate func(*Config)) (*Engine, testStores) {
	t.Helper()
	stores := testStores{
		vectors: memstore.NewVectorStore(),
		graph:   memstore.NewGraphStore(),
		history: memstore.NewHistoryLog(),
	}
	cfg := Config{
		LLM:      p,
		Embedder: &embmock.Provider{},
		Vectors:  stores.vectors,
		History:  stores.history,
		Retry:    fastRetry,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e, stores
}

func addPizza(t *testing.T, e *Engine, p *llmmock.Provider) AddResult {
	t.Helper()
	p.Queue(`{"facts": ["User loves pizza"]}`)
	p.Queue(`{"memory": [{"id": 0, "text": "User loves pizza", "event": "ADD"}]}`)
	results, err := e.Add(context.Background(), AddRequest{
		Messages: []memory.Message{{Role: "user", Content: "I love pizza"}},
		Scope:    u1,
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	return results[0]
}

func TestAddThenRetrieve(t *testing.T) {
	ctx := context.Background()
	p := &llmmock.Provider{}
	e, _ := newTestEngine(t, p, nil)

	added := addPizza(t, e, p)
	if added.Event != memory.EventAdd || added.Memory != "User loves pizza" {
		t.Fatalf("added = %+v", added)
	}
	if added.ID == "" {
		t.Fatal("ADD must mint an id")
	}

	resp, err := e.Search(ctx, SearchRequest{Query: "food", Scope: u1, Limit: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("results = %d, want 1", len(resp.Results))
	}
	got := resp.Results[0]
	if got.Text != "User loves pizza" || got.ID != added.ID {
		t.Errorf("result = %+v", got)
	}
	if got.Hash != memory.TextHash("User loves pizza") {
		t.Errorf("hash = %q", got.Hash)
	}
}

func TestUpdateThenHistory(t *testing.T) {
	ctx := context.Background()
	p := &llmmock.Provider{}
	e, _ := newTestEngine(t, p, nil)

	added := addPizza(t, e, p)

	p.Queue(`{"facts": ["User prefers pasta"]}`)
	p.Queue(`{"memory": [{"id": 0, "text": "User loves pasta", "event": "UPDATE", "old_memory": "User loves pizza"}]}`)
	results, err := e.Add(ctx, AddRequest{
		Messages: []memory.Message{{Role: "user", Content: "Actually I prefer pasta"}},
		Scope:    u1,
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	updated := results[0]
	if updated.Event != memory.EventUpdate || updated.ID != added.ID {
		t.Fatalf("updated = %+v", updated)
	}
	if updated.Memory != "User loves pasta" || updated.PreviousMemory != "User loves pizza" {
		t.Errorf("updated = %+v", updated)
	}

	entries, err := e.History(ctx, added.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("history entries = %d, want 2", len(entries))
	}
	if entries[0].Kind != memory.EventAdd || entries[0].NewText != "User loves pizza" {
		t.Errorf("first entry = %+v", entries[0])
	}
	if entries[1].Kind != memory.EventUpdate ||
		entries[1].PrevText != "User loves pizza" || entries[1].NewText != "User loves pasta" {
		t.Errorf("second entry = %+v", entries[1])
	}
	if entries[1].Seq <= entries[0].Seq {
		t.Errorf("seq not increasing: %d then %d", entries[0].Seq, entries[1].Seq)
	}

	// created_at survives the update, updated_at moves forward.
	fact, err := e.Get(ctx, added.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if fact.UpdatedAt.Before(fact.CreatedAt) {
		t.Error("updated_at must not precede created_at")
	}
}

func TestSoftDelete(t *testing.T) {
	ctx := context.Background()
	p := &llmmock.Provider{}
	e, _ := newTestEngine(t, p, nil)

	added := addPizza(t, e, p)

	p.Queue(`{"facts": ["User no longer likes pizza"]}`)
	p.Queue(`{"memory": [{"id": 0, "event": "DELETE"}]}`)
	results, err := e.Add(ctx, AddRequest{
		Messages: []memory.Message{{Role: "user", Content: "Forget that I like pizza"}},
		Scope:    u1,
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if len(results) != 1 || results[0].Event != memory.EventDelete {
		t.Fatalf("results = %+v", results)
	}
	if results[0].PreviousMemory != "User loves pizza" {
		t.Errorf("previous memory = %q", results[0].PreviousMemory)
	}

	if _, err := e.Get(ctx, added.ID); !errors.Is(err, memory.ErrNotFound) {
		t.Errorf("Get after delete: %v, want ErrNotFound", err)
	}

	resp, err := e.Search(ctx, SearchRequest{Query: "food", Scope: u1, Limit: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Results) != 0 {
		t.Errorf("results = %d, want 0", len(resp.Results))
	}

	entries, err := e.History(ctx, added.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("history entries = %d, want 2", len(entries))
	}
	last := entries[len(entries)-1]
	if last.Kind != memory.EventDelete || last.PrevText != "User loves pizza" {
		t.Errorf("last entry = %+v", last)
	}
}

func TestScopeIsolation(t *testing.T) {
	ctx := context.Background()
	p := &llmmock.Provider{}
	e, _ := newTestEngine(t, p, nil)

	addPizza(t, e, p)

	resp, err := e.Search(ctx, SearchRequest{Query: "pizza", Scope: memory.Scope{UserID: "u2"}, Limit: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Results) != 0 {
		t.Errorf("results = %d, want 0 for foreign scope", len(resp.Results))
	}
}

// failFirstInsert fails the first Insert and forwards the rest.
type failFirstInsert struct {
	*memstore.VectorStore
	failed bool
}

func (s *failFirstInsert) Insert(ctx context.Context, vector []float32, fact memory.Fact) error {
	if !s.failed {
		s.failed = true
		return memory.NewProviderError("vector_store", memory.FailurePermanent, errors.New("insert rejected"))
	}
	return s.VectorStore.Insert(ctx, vector, fact)
}

func TestPartialBatchFailure(t *testing.T) {
	ctx := context.Background()
	p := &llmmock.Provider{}
	flaky := &failFirstInsert{VectorStore: memstore.NewVectorStore()}
	e, _ := newTestEngine(t, p, func(cfg *Config) { cfg.Vectors = flaky })

	p.Queue(`{"facts": ["User loves pizza", "User lives in Berlin"]}`)
	p.Queue(`{"memory": [
		{"id": 0, "text": "User loves pizza", "event": "ADD"},
		{"id": 1, "text": "User lives in Berlin", "event": "ADD"}
	]}`)
	results, err := e.Add(ctx, AddRequest{
		Messages: []memory.Message{{Role: "user", Content: "I love pizza and live in Berlin"}},
		Scope:    u1,
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results[0].ErrorKind != string(memory.KindProviderError) {
		t.Errorf("first result error kind = %q, want provider_error", results[0].ErrorKind)
	}
	if results[1].Error != "" || results[1].ID == "" {
		t.Errorf("second result = %+v, want applied", results[1])
	}

	// The surviving fact is retrievable.
	if _, err := e.Get(ctx, results[1].ID); err != nil {
		t.Errorf("Get surviving fact: %v", err)
	}
}

func TestRawMode(t *testing.T) {
	ctx := context.Background()
	p := &llmmock.Provider{}
	e, stores := newTestEngine(t, p, nil)

	results, err := e.Add(ctx, AddRequest{
		Messages: []memory.Message{
			{Role: "user", Content: "a"},
			{Role: "user", Content: "b"},
		},
		Scope: u1,
		Raw:   true,
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	for i, want := range []string{"a", "b"} {
		if results[i].Event != memory.EventAdd || results[i].Memory != want {
			t.Errorf("result %d = %+v", i, results[i])
		}
	}
	if p.CallCount() != 0 {
		t.Errorf("llm calls = %d, want 0 in raw mode", p.CallCount())
	}

	facts, err := stores.vectors.List(ctx, u1.Filter(), 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(facts) != 2 {
		t.Errorf("stored facts = %d, want 2", len(facts))
	}
}

func TestAddBoundaries(t *testing.T) {
	ctx := context.Background()
	p := &llmmock.Provider{}
	e, _ := newTestEngine(t, p, nil)

	t.Run("empty scope", func(t *testing.T) {
		_, err := e.Add(ctx, AddRequest{Messages: []memory.Message{{Role: "user", Content: "x"}}})
		if !errors.Is(err, memory.ErrInvalidScope) {
			t.Errorf("err = %v, want ErrInvalidScope", err)
		}
	})

	t.Run("empty messages", func(t *testing.T) {
		results, err := e.Add(ctx, AddRequest{Scope: u1})
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
		if len(results) != 0 {
			t.Errorf("results = %v, want none", results)
		}
		if p.CallCount() != 0 {
			t.Errorf("llm calls = %d, want 0", p.CallCount())
		}
	})

	t.Run("empty candidate set", func(t *testing.T) {
		p.Queue(`{"facts": []}`)
		results, err := e.Add(ctx, AddRequest{
			Messages: []memory.Message{{Role: "user", Content: "hello"}},
			Scope:    u1,
		})
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
		if len(results) != 0 {
			t.Errorf("results = %v, want none", results)
		}
	})
}

func TestReconcileFailureAbortsWithoutWrites(t *testing.T) {
	ctx := context.Background()
	p := &llmmock.Provider{}
	e, stores := newTestEngine(t, p, nil)

	p.Queue(`{"facts": ["User loves pizza"]}`)
	p.QueueErr(memory.NewProviderError("llm", memory.FailurePermanent, errors.New("bad key")))

	_, err := e.Add(ctx, AddRequest{
		Messages: []memory.Message{{Role: "user", Content: "I love pizza"}},
		Scope:    u1,
	})
	if memory.KindOf(err) != memory.KindIngestError {
		t.Fatalf("err kind = %v, want ingest_error (%v)", memory.KindOf(err), err)
	}
	var ingErr *memory.IngestError
	if !errors.As(err, &ingErr) {
		t.Fatalf("err = %v, want IngestError", err)
	}
	if ingErr.Stage != "reconcile" {
		t.Errorf("stage = %q, want reconcile", ingErr.Stage)
	}

	facts, listErr := stores.vectors.List(ctx, u1.Filter(), 0)
	if listErr != nil {
		t.Fatalf("List: %v", listErr)
	}
	if len(facts) != 0 {
		t.Errorf("facts written despite aborted batch: %d", len(facts))
	}
}

func TestSearchBoundaries(t *testing.T) {
	ctx := context.Background()
	p := &llmmock.Provider{}
	e, _ := newTestEngine(t, p, nil)

	t.Run("empty scope", func(t *testing.T) {
		_, err := e.Search(ctx, SearchRequest{Query: "q", Limit: 10})
		if !errors.Is(err, memory.ErrInvalidScope) {
			t.Errorf("err = %v, want ErrInvalidScope", err)
		}
	})

	t.Run("negative limit", func(t *testing.T) {
		_, err := e.Search(ctx, SearchRequest{Query: "q", Scope: u1, Limit: -1})
		if !errors.Is(err, memory.ErrInvalidArguments) {
			t.Errorf("err = %v, want ErrInvalidArguments", err)
		}
	})

	t.Run("zero limit returns empty set", func(t *testing.T) {
		resp, err := e.Search(ctx, SearchRequest{Query: "q", Scope: u1})
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if len(resp.Results) != 0 {
			t.Errorf("results = %d, want 0", len(resp.Results))
		}
	})

	t.Run("unknown filter key yields empty set", func(t *testing.T) {
		addPizza(t, e, p)
		resp, err := e.Search(ctx, SearchRequest{
			Query:  "pizza",
			Scope:  u1,
			Filter: map[string]string{"category": "missing"},
			Limit:  10,
		})
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if len(resp.Results) != 0 {
			t.Errorf("results = %d, want 0", len(resp.Results))
		}
	})
}

func TestSearchFailureIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	p := &llmmock.Provider{}
	broken := &memmock.VectorStore{
		SearchErr: memory.NewProviderError("vector_store", memory.FailurePermanent, errors.New("down")),
	}
	e, _ := newTestEngine(t, p, func(cfg *Config) { cfg.Vectors = broken })

	_, err := e.Search(ctx, SearchRequest{Query: "q", Scope: u1, Limit: 10})
	if err == nil {
		t.Fatal("expected error")
	}
	var provErr *memory.ProviderError
	if !errors.As(err, &provErr) {
		t.Errorf("err = %v, want ProviderError", err)
	}
}

func TestGraphPathIsIsolated(t *testing.T) {
	ctx := context.Background()
	p := &llmmock.Provider{}
	broken := &memmock.GraphStore{
		UpsertEntityErr: memory.NewProviderError("graph_store", memory.FailurePermanent, errors.New("down")),
	}

	e, stores := newTestEngine(t, p, func(cfg *Config) { cfg.Graph = broken })

	// The vector and graph branches race for queued replies, so script the
	// shared fallback response to satisfy every stage parser at once.
	p.Queue(`{"facts": ["User loves pizza"]}`)
	p.Response = &llm.Response{Content: `{"memory": [{"id": 0, "text": "User loves pizza", "event": "ADD"}], "entities": [{"label": "pizza", "type": "food"}], "relations": []}`}

	results, err := e.Add(ctx, AddRequest{
		Messages: []memory.Message{{Role: "user", Content: "I love pizza"}},
		Scope:    u1,
	})
	if err != nil {
		t.Fatalf("Add must succeed despite graph failure: %v", err)
	}
	if len(results) != 1 || results[0].Event != memory.EventAdd {
		t.Fatalf("results = %+v", results)
	}

	facts, err := stores.vectors.List(ctx, u1.Filter(), 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(facts) != 1 {
		t.Errorf("facts = %d, want 1", len(facts))
	}
}

func TestGraphSearchMergesRelations(t *testing.T) {
	ctx := context.Background()
	p := &llmmock.Provider{}
	g := &memmock.GraphStore{SearchResults: []memory.GraphResult{
		{Source: "alice", Predicate: "likes", Target: "pizza", Score: 0.9},
	}}
	e, _ := newTestEngine(t, p, func(cfg *Config) { cfg.Graph = g })

	resp, err := e.Search(ctx, SearchRequest{Query: "pizza", Scope: u1, Limit: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Relations) != 1 || resp.Relations[0].Predicate != "likes" {
		t.Errorf("relations = %+v", resp.Relations)
	}
}

func TestDeleteAllRetainsHistory(t *testing.T) {
	ctx := context.Background()
	p := &llmmock.Provider{}
	e, _ := newTestEngine(t, p, nil)

	added := addPizza(t, e, p)

	n, err := e.DeleteAll(ctx, u1)
	if err != nil {
		t.Fatalf("DeleteAll: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}

	facts, err := e.GetAll(ctx, u1, nil, 10)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(facts) != 0 {
		t.Errorf("facts = %d, want 0", len(facts))
	}

	entries, err := e.History(ctx, added.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("history entries = %d, want 2 (ADD then DELETE)", len(entries))
	}
	if entries[1].Kind != memory.EventDelete {
		t.Errorf("last entry = %+v", entries[1])
	}
}

// vanishedDelete reports ErrNotFound for one id, simulating a fact removed
// between the scope listing and its delete.
type vanishedDelete struct {
	*memstore.VectorStore
	goneID string
}

func (s *vanishedDelete) Delete(ctx context.Context, id string) error {
	if id == s.goneID {
		return memory.ErrNotFound
	}
	return s.VectorStore.Delete(ctx, id)
}

func TestDeleteAllCountsOnlyAppliedDeletes(t *testing.T) {
	ctx := context.Background()
	p := &llmmock.Provider{}
	flaky := &vanishedDelete{VectorStore: memstore.NewVectorStore()}
	e, _ := newTestEngine(t, p, func(cfg *Config) { cfg.Vectors = flaky })

	results, err := e.Add(ctx, AddRequest{
		Messages: []memory.Message{
			{Role: "user", Content: "a"},
			{Role: "user", Content: "b"},
		},
		Scope: u1,
		Raw:   true,
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	flaky.goneID = results[0].ID

	n, err := e.DeleteAll(ctx, u1)
	if err != nil {
		t.Fatalf("DeleteAll: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}

	// The fact that was already gone gets no DELETE entry; the applied
	// delete gets exactly one.
	gone, err := e.History(ctx, results[0].ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(gone) != 1 || gone[0].Kind != memory.EventAdd {
		t.Errorf("history of skipped fact = %+v, want ADD only", gone)
	}
	applied, err := e.History(ctx, results[1].ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(applied) != 2 || applied[1].Kind != memory.EventDelete {
		t.Errorf("history of deleted fact = %+v, want ADD then DELETE", applied)
	}
}

func TestUpdateLeavesStoredMetadataUntouched(t *testing.T) {
	ctx := context.Background()
	p := &llmmock.Provider{}
	e, stores := newTestEngine(t, p, nil)

	results, err := e.Add(ctx, AddRequest{
		Messages: []memory.Message{{Role: "user", Content: "User loves pizza"}},
		Scope:    u1,
		Metadata: map[string]string{"source": "chat"},
		Raw:      true,
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	// The store hands out its metadata map by reference; hold it across the
	// update to catch in-place mutation.
	before, err := stores.vectors.Get(ctx, results[0].ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	p.Queue(`{"facts": ["User prefers pasta"]}`)
	p.Queue(`{"memory": [{"id": 0, "text": "User loves pasta", "event": "UPDATE", "old_memory": "User loves pizza"}]}`)
	if _, err := e.Add(ctx, AddRequest{
		Messages: []memory.Message{{Role: "user", Content: "Actually pasta"}},
		Scope:    u1,
		Metadata: map[string]string{"channel": "email"},
	}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if _, leaked := before.Metadata["channel"]; leaked {
		t.Error("update mutated the previously stored metadata map")
	}
	after, err := e.Get(ctx, results[0].ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if after.Metadata["source"] != "chat" || after.Metadata["channel"] != "email" {
		t.Errorf("updated metadata = %v, want merged source+channel", after.Metadata)
	}
}

func TestSystemPromptOptIn(t *testing.T) {
	ctx := context.Background()
	messages := []memory.Message{
		{Role: "system", Content: "Extract only food preferences."},
		{Role: "user", Content: "I love pizza"},
	}

	t.Run("ignored by default", func(t *testing.T) {
		p := &llmmock.Provider{}
		e, _ := newTestEngine(t, p, nil)
		p.Queue(`{"facts": []}`)

		if _, err := e.Add(ctx, AddRequest{Messages: messages, Scope: u1}); err != nil {
			t.Fatalf("Add: %v", err)
		}
		if got := p.CompleteCalls[0].Req.SystemPrompt; got == "Extract only food preferences." {
			t.Error("system message replaced the extraction prompt without opt-in")
		}
	})

	t.Run("applied when opted in", func(t *testing.T) {
		p := &llmmock.Provider{}
		e, _ := newTestEngine(t, p, nil)
		p.Queue(`{"facts": []}`)

		if _, err := e.Add(ctx, AddRequest{Messages: messages, Scope: u1, UseSystemPrompt: true}); err != nil {
			t.Fatalf("Add: %v", err)
		}
		if got := p.CompleteCalls[0].Req.SystemPrompt; got != "Extract only food preferences." {
			t.Errorf("system prompt = %q", got)
		}
	})
}

func TestReset(t *testing.T) {
	ctx := context.Background()

	t.Run("guarded by default", func(t *testing.T) {
		p := &llmmock.Provider{}
		e, _ := newTestEngine(t, p, nil)
		if err := e.Reset(ctx); !errors.Is(err, memory.ErrResetNotAllowed) {
			t.Errorf("err = %v, want ErrResetNotAllowed", err)
		}
	})

	t.Run("purges everything when allowed", func(t *testing.T) {
		p := &llmmock.Provider{}
		e, _ := newTestEngine(t, p, func(cfg *Config) { cfg.AllowReset = true })

		added := addPizza(t, e, p)
		if err := e.Reset(ctx); err != nil {
			t.Fatalf("Reset: %v", err)
		}

		facts, err := e.GetAll(ctx, u1, nil, 10)
		if err != nil {
			t.Fatalf("GetAll: %v", err)
		}
		if len(facts) != 0 {
			t.Errorf("facts = %d, want 0", len(facts))
		}
		entries, err := e.History(ctx, added.ID)
		if err != nil {
			t.Fatalf("History: %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("history entries = %d, want 0 after reset", len(entries))
		}
	})
}

func TestDeleteUnknownID(t *testing.T) {
	p := &llmmock.Provider{}
	e, _ := newTestEngine(t, p, nil)
	if err := e.Delete(context.Background(), "nope"); !errors.Is(err, memory.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{})
	if err == nil {
		t.Fatal("expected error for empty config")
	}
}
