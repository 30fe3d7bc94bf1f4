package mcptool

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Gabrielmcp78/mem0-sub000/internal/engine"
	"github.com/Gabrielmcp78/mem0-sub000/internal/resilience"
	"github.com/Gabrielmcp78/mem0-sub000/pkg/memory/memstore"
	embmock "github.com/Gabrielmcp78/mem0-sub000/pkg/provider/embeddings/mock"
	"github.com/Gabrielmcp78/mem0-sub000/pkg/provider/llm"
	llmmock "github.com/Gabrielmcp78/mem0-sub000/pkg/provider/llm/mock"
)

func newTestServer(t *testing.T, p *llmmock.Provider) *Server {
	t.Helper()
	e, err := engine.New(engine.Config{
		LLM:      p,
		Embedder: &embmock.Provider{},
		Vectors:  memstore.NewVectorStore(),
		History:  memstore.NewHistoryLog(),
		Retry:    resilience.RetryPolicy{MaxAttempts: 1, InitialInterval: time.Millisecond},
	})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	return NewServer(e)
}

// pizzaProvider answers every completion with one extracted fact and one ADD
// decision, which satisfies both pipeline stages in a single reply.
func pizzaProvider() *llmmock.Provider {
	return &llmmock.Provider{Response: &llm.Response{
		Content: `{"facts": ["User likes pizza"], "memory": [{"text": "User likes pizza", "event": "ADD"}]}`,
	}}
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("content blocks = %d, want 1", len(res.Content))
	}
	tc, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T, want TextContent", res.Content[0])
	}
	return tc.Text
}

func addPizza(t *testing.T, s *Server) string {
	t.Helper()
	res, _, err := s.HandleAdd(context.Background(), nil, AddInput{
		Messages: []MessageInput{{Role: "user", Content: "I love pizza"}},
		UserID:   "u1",
	})
	if err != nil {
		t.Fatalf("HandleAdd: %v", err)
	}
	if res.IsError {
		t.Fatalf("HandleAdd error: %s", text(t, res))
	}

	var out struct {
		Results []engine.AddResult `json:"results"`
	}
	if err := json.Unmarshal([]byte(text(t, res)), &out); err != nil {
		t.Fatalf("decode add result: %v", err)
	}
	if len(out.Results) != 1 || out.Results[0].ID == "" {
		t.Fatalf("add results = %+v, want one entry with an id", out.Results)
	}
	return out.Results[0].ID
}

func TestHandleAdd(t *testing.T) {
	ctx := context.Background()

	t.Run("stores and reports the created memory", func(t *testing.T) {
		s := newTestServer(t, pizzaProvider())
		id := addPizza(t, s)

		res, _, err := s.HandleGet(ctx, nil, GetInput{ID: id})
		if err != nil || res.IsError {
			t.Fatalf("HandleGet: err=%v result=%s", err, text(t, res))
		}
		if !strings.Contains(text(t, res), "User likes pizza") {
			t.Errorf("get output = %s", text(t, res))
		}
	})

	t.Run("missing scope is a tool error", func(t *testing.T) {
		s := newTestServer(t, pizzaProvider())
		res, _, err := s.HandleAdd(ctx, nil, AddInput{
			Messages: []MessageInput{{Role: "user", Content: "hi"}},
		})
		if err != nil {
			t.Fatalf("HandleAdd: %v", err)
		}
		if !res.IsError {
			t.Fatal("expected IsError for missing scope")
		}
		if !strings.Contains(text(t, res), "invalid_scope") {
			t.Errorf("output = %s, want the invalid_scope kind", text(t, res))
		}
	})

	t.Run("missing messages is a tool error", func(t *testing.T) {
		s := newTestServer(t, pizzaProvider())
		res, _, err := s.HandleAdd(ctx, nil, AddInput{UserID: "u1"})
		if err != nil {
			t.Fatalf("HandleAdd: %v", err)
		}
		if !res.IsError {
			t.Fatal("expected IsError for empty messages")
		}
	})

	t.Run("infer false stores messages verbatim without the model", func(t *testing.T) {
		p := &llmmock.Provider{}
		s := newTestServer(t, p)

		infer := false
		res, _, err := s.HandleAdd(ctx, nil, AddInput{
			Messages: []MessageInput{{Role: "user", Content: "raw note"}},
			UserID:   "u1",
			Infer:    &infer,
		})
		if err != nil || res.IsError {
			t.Fatalf("HandleAdd: err=%v result=%s", err, text(t, res))
		}
		if p.CallCount() != 0 {
			t.Errorf("llm calls = %d, want 0", p.CallCount())
		}
		if !strings.Contains(text(t, res), "raw note") {
			t.Errorf("output = %s", text(t, res))
		}
	})
}

func TestHandleSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("finds stored memories", func(t *testing.T) {
		s := newTestServer(t, pizzaProvider())
		addPizza(t, s)

		res, _, err := s.HandleSearch(ctx, nil, SearchInput{Query: "food", UserID: "u1"})
		if err != nil || res.IsError {
			t.Fatalf("HandleSearch: err=%v result=%s", err, text(t, res))
		}

		var resp engine.SearchResponse
		if err := json.Unmarshal([]byte(text(t, res)), &resp); err != nil {
			t.Fatalf("decode search result: %v", err)
		}
		if len(resp.Results) != 1 || resp.Results[0].Text != "User likes pizza" {
			t.Errorf("results = %+v", resp.Results)
		}
	})

	t.Run("empty query is a tool error", func(t *testing.T) {
		s := newTestServer(t, pizzaProvider())
		res, _, err := s.HandleSearch(ctx, nil, SearchInput{Query: "  ", UserID: "u1"})
		if err != nil {
			t.Fatalf("HandleSearch: %v", err)
		}
		if !res.IsError {
			t.Fatal("expected IsError for empty query")
		}
	})

	t.Run("no matches is a friendly message", func(t *testing.T) {
		s := newTestServer(t, pizzaProvider())
		res, _, err := s.HandleSearch(ctx, nil, SearchInput{Query: "anything", UserID: "nobody"})
		if err != nil || res.IsError {
			t.Fatalf("HandleSearch: err=%v", err)
		}
		if got := text(t, res); got != "No matching memories found." {
			t.Errorf("output = %q", got)
		}
	})

	t.Run("negative limit surfaces invalid_arguments", func(t *testing.T) {
		s := newTestServer(t, pizzaProvider())
		res, _, err := s.HandleSearch(ctx, nil, SearchInput{Query: "q", UserID: "u1", Limit: -1})
		if err != nil {
			t.Fatalf("HandleSearch: %v", err)
		}
		if !res.IsError || !strings.Contains(text(t, res), "invalid_arguments") {
			t.Errorf("output = %s", text(t, res))
		}
	})
}

func TestHandleGetAll(t *testing.T) {
	s := newTestServer(t, pizzaProvider())
	addPizza(t, s)

	res, _, err := s.HandleGetAll(context.Background(), nil, GetAllInput{UserID: "u1"})
	if err != nil || res.IsError {
		t.Fatalf("HandleGetAll: err=%v result=%s", err, text(t, res))
	}
	if !strings.Contains(text(t, res), "User likes pizza") {
		t.Errorf("output = %s", text(t, res))
	}
}

func TestHandleHistoryAndDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t, pizzaProvider())
	id := addPizza(t, s)

	res, _, err := s.HandleDelete(ctx, nil, DeleteInput{ID: id})
	if err != nil || res.IsError {
		t.Fatalf("HandleDelete: err=%v result=%s", err, text(t, res))
	}

	res, _, err = s.HandleGet(ctx, nil, GetInput{ID: id})
	if err != nil {
		t.Fatalf("HandleGet: %v", err)
	}
	if !res.IsError || !strings.Contains(text(t, res), "not_found") {
		t.Errorf("get after delete = %s", text(t, res))
	}

	res, _, err = s.HandleHistory(ctx, nil, HistoryInput{ID: id})
	if err != nil || res.IsError {
		t.Fatalf("HandleHistory: err=%v result=%s", err, text(t, res))
	}
	var hist struct {
		History []json.RawMessage `json:"history"`
	}
	if err := json.Unmarshal([]byte(text(t, res)), &hist); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(hist.History) != 2 {
		t.Errorf("history entries = %d, want 2 (add then delete)", len(hist.History))
	}
}

func TestHandleDeleteAll(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t, pizzaProvider())
	addPizza(t, s)

	res, _, err := s.HandleDeleteAll(ctx, nil, DeleteAllInput{UserID: "u1"})
	if err != nil || res.IsError {
		t.Fatalf("HandleDeleteAll: err=%v result=%s", err, text(t, res))
	}
	if got := text(t, res); got != "Deleted 1 memories." {
		t.Errorf("output = %q", got)
	}

	res, _, err = s.HandleGetAll(ctx, nil, GetAllInput{UserID: "u1"})
	if err != nil || res.IsError {
		t.Fatalf("HandleGetAll: err=%v", err)
	}
	if got := text(t, res); got != "No memories found." {
		t.Errorf("output = %q", got)
	}
}

func TestRegister(t *testing.T) {
	s := newTestServer(t, pizzaProvider())
	srv := mcp.NewServer(&mcp.Implementation{Name: "memoryd-test", Version: "0.0.0"}, nil)
	s.Register(srv)
}
