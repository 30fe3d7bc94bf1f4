package graphex

import (
	"context"
	"errors"
	"testing"

	"github.com/Gabrielmcp78/mem0-sub000/pkg/memory"
	memmock "github.com/Gabrielmcp78/mem0-sub000/pkg/memory/mock"
	embmock "github.com/Gabrielmcp78/mem0-sub000/pkg/provider/embeddings/mock"
	llmmock "github.com/Gabrielmcp78/mem0-sub000/pkg/provider/llm/mock"
)

var testScope = memory.Scope{UserID: "u1"}

func newTestExtractor(p *llmmock.Provider, g *memmock.GraphStore) *Extractor {
	return New(p, &embmock.Provider{}, g, MergeConfig{})
}

func TestProcess(t *testing.T) {
	ctx := context.Background()

	t.Run("entities and relations are upserted", func(t *testing.T) {
		p := &llmmock.Provider{}
		p.Queue(`{"entities": [{"label": "Alice", "type": "person"}, {"label": "Berlin", "type": "place"}]}`)
		p.Queue(`{"relations": [{"source": "Alice", "predicate": "lives_in", "target": "Berlin", "weight": 0.8}]}`)
		g := &memmock.GraphStore{}

		if err := newTestExtractor(p, g).Process(ctx, testScope, "user: Alice lives in Berlin"); err != nil {
			t.Fatalf("Process: %v", err)
		}

		upserts := g.CallsTo("UpsertEntity")
		if len(upserts) != 2 {
			t.Fatalf("entity upserts = %d, want 2", len(upserts))
		}
		if upserts[0].Entity.Label != "Alice" || upserts[0].Entity.Type != "person" {
			t.Errorf("entity = %+v", upserts[0].Entity)
		}
		if upserts[0].Entity.Scope != testScope {
			t.Errorf("entity scope = %+v", upserts[0].Entity.Scope)
		}
		if len(upserts[0].Entity.Embedding) == 0 {
			t.Error("entity upsert must carry a label embedding")
		}

		rels := g.CallsTo("UpsertRelation")
		if len(rels) != 1 {
			t.Fatalf("relation upserts = %d, want 1", len(rels))
		}
		rel := rels[0].Relation
		if rel.SourceID != "mock-entity-Alice" || rel.TargetID != "mock-entity-Berlin" || rel.Predicate != "lives_in" {
			t.Errorf("relation = %+v", rel)
		}
		if rel.Weight != 0.8 {
			t.Errorf("relation weight = %v, want 0.8", rel.Weight)
		}
	})

	t.Run("missing weight defaults to full strength", func(t *testing.T) {
		p := &llmmock.Provider{}
		p.Queue(`{"entities": [{"label": "Alice", "type": "person"}, {"label": "Bob", "type": "person"}]}`)
		p.Queue(`{"relations": [{"source": "Alice", "predicate": "knows", "target": "Bob"}]}`)
		g := &memmock.GraphStore{}

		if err := newTestExtractor(p, g).Process(ctx, testScope, "user: Alice knows Bob"); err != nil {
			t.Fatalf("Process: %v", err)
		}
		rels := g.CallsTo("UpsertRelation")
		if len(rels) != 1 {
			t.Fatalf("relation upserts = %d, want 1", len(rels))
		}
		if rels[0].Relation.Weight != 1 {
			t.Errorf("relation weight = %v, want 1", rels[0].Relation.Weight)
		}
	})

	t.Run("soft merge reuses close existing entity", func(t *testing.T) {
		p := &llmmock.Provider{}
		p.Queue(`{"entities": [{"label": "alice", "type": "person"}]}`)
		p.Queue(`{"relations": []}`)
		g := &memmock.GraphStore{Similar: []memory.ScoredEntity{
			{Entity: memory.Entity{ID: "existing-1", Label: "Alice"}, Score: 0.95},
		}}

		if err := newTestExtractor(p, g).Process(ctx, testScope, "user: alice again"); err != nil {
			t.Fatalf("Process: %v", err)
		}
		if got := len(g.CallsTo("UpsertEntity")); got != 0 {
			t.Errorf("entity upserts = %d, want 0 (merged)", got)
		}
	})

	t.Run("below-threshold candidates create a new entity", func(t *testing.T) {
		p := &llmmock.Provider{}
		p.Queue(`{"entities": [{"label": "Bob", "type": "person"}]}`)
		p.Queue(`{"relations": []}`)
		g := &memmock.GraphStore{Similar: []memory.ScoredEntity{
			{Entity: memory.Entity{ID: "existing-1", Label: "Alice"}, Score: 0.4},
		}}

		if err := newTestExtractor(p, g).Process(ctx, testScope, "user: Bob showed up"); err != nil {
			t.Fatalf("Process: %v", err)
		}
		if got := len(g.CallsTo("UpsertEntity")); got != 1 {
			t.Errorf("entity upserts = %d, want 1", got)
		}
	})

	t.Run("relation with unknown label is dropped", func(t *testing.T) {
		p := &llmmock.Provider{}
		p.Queue(`{"entities": [{"label": "Alice", "type": "person"}]}`)
		p.Queue(`{"relations": [{"source": "Alice", "predicate": "knows", "target": "Zed"}]}`)
		g := &memmock.GraphStore{}

		if err := newTestExtractor(p, g).Process(ctx, testScope, "user: Alice knows someone"); err != nil {
			t.Fatalf("Process: %v", err)
		}
		if got := len(g.CallsTo("UpsertRelation")); got != 0 {
			t.Errorf("relation upserts = %d, want 0", got)
		}
	})

	t.Run("no entities skips the relation call", func(t *testing.T) {
		p := &llmmock.Provider{}
		p.Queue(`{"entities": []}`)
		g := &memmock.GraphStore{}

		if err := newTestExtractor(p, g).Process(ctx, testScope, "user: hello"); err != nil {
			t.Fatalf("Process: %v", err)
		}
		if p.CallCount() != 1 {
			t.Errorf("llm calls = %d, want 1", p.CallCount())
		}
		if len(g.Calls) != 0 {
			t.Errorf("graph calls = %d, want 0", len(g.Calls))
		}
	})

	t.Run("empty transcript is a no-op", func(t *testing.T) {
		p := &llmmock.Provider{}
		g := &memmock.GraphStore{}

		if err := newTestExtractor(p, g).Process(ctx, testScope, "   "); err != nil {
			t.Fatalf("Process: %v", err)
		}
		if p.CallCount() != 0 {
			t.Errorf("llm calls = %d, want 0", p.CallCount())
		}
	})

	t.Run("malformed entity output fails the stage", func(t *testing.T) {
		p := &llmmock.Provider{}
		p.Queue(`the entities are alice and berlin`)
		g := &memmock.GraphStore{}

		err := newTestExtractor(p, g).Process(ctx, testScope, "user: Alice lives in Berlin")
		var provErr *memory.ProviderError
		if !errors.As(err, &provErr) {
			t.Fatalf("expected ProviderError, got %v", err)
		}
		if provErr.Kind != memory.FailureMalformed {
			t.Errorf("kind = %v, want malformed", provErr.Kind)
		}
	})

	t.Run("store failure is surfaced", func(t *testing.T) {
		p := &llmmock.Provider{}
		p.Queue(`{"entities": [{"label": "Alice", "type": "person"}]}`)
		p.Queue(`{"relations": []}`)
		g := &memmock.GraphStore{
			UpsertEntityErr: memory.NewProviderError("graph_store", memory.FailureTransient, errors.New("down")),
		}

		if err := newTestExtractor(p, g).Process(ctx, testScope, "user: Alice"); err == nil {
			t.Fatal("expected error")
		}
	})
}
