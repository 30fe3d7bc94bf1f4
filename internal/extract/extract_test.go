package extract

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/Gabrielmcp78/mem0-sub000/pkg/memory"
	llmmock "github.com/Gabrielmcp78/mem0-sub000/pkg/provider/llm/mock"
)

func userMsg(content string) memory.Message {
	return memory.Message{Role: "user", Content: content}
}

func TestExtract(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path", func(t *testing.T) {
		p := &llmmock.Provider{}
		p.Queue(`{"facts": ["User loves pizza", "User lives in Berlin"]}`)

		got, err := New(p).Extract(ctx, []memory.Message{userMsg("I love pizza and I live in Berlin")})
		if err != nil {
			t.Fatalf("Extract: %v", err)
		}
		want := []string{"User loves pizza", "User lives in Berlin"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("candidates = %v, want %v", got, want)
		}
		if p.CallCount() != 1 {
			t.Errorf("llm calls = %d, want 1", p.CallCount())
		}
	})

	t.Run("fenced output parses without repair", func(t *testing.T) {
		p := &llmmock.Provider{}
		p.Queue("```json\n{\"facts\": [\"User loves pizza\"]}\n```")

		got, err := New(p).Extract(ctx, []memory.Message{userMsg("I love pizza")})
		if err != nil {
			t.Fatalf("Extract: %v", err)
		}
		if len(got) != 1 || got[0] != "User loves pizza" {
			t.Errorf("candidates = %v", got)
		}
		if p.CallCount() != 1 {
			t.Errorf("llm calls = %d, want 1", p.CallCount())
		}
	})

	t.Run("malformed output repaired once", func(t *testing.T) {
		p := &llmmock.Provider{}
		p.Queue(`here are the facts: pizza`)
		p.Queue(`{"facts": ["User loves pizza"]}`)

		got, err := New(p).Extract(ctx, []memory.Message{userMsg("I love pizza")})
		if err != nil {
			t.Fatalf("Extract: %v", err)
		}
		if len(got) != 1 || got[0] != "User loves pizza" {
			t.Errorf("candidates = %v", got)
		}
		if p.CallCount() != 2 {
			t.Fatalf("llm calls = %d, want 2", p.CallCount())
		}
		repair := p.CompleteCalls[1].Req
		if !strings.Contains(repair.SystemPrompt, "valid JSON") {
			t.Errorf("repair system prompt = %q", repair.SystemPrompt)
		}
		if !strings.Contains(repair.Messages[0].Content, "pizza") {
			t.Error("repair request should carry the raw malformed output")
		}
	})

	t.Run("second malformed reply yields empty set", func(t *testing.T) {
		p := &llmmock.Provider{}
		p.Queue(`not json`)
		p.Queue(`still not json`)

		got, err := New(p).Extract(ctx, []memory.Message{userMsg("I love pizza")})
		if err != nil {
			t.Fatalf("Extract: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("candidates = %v, want empty", got)
		}
	})

	t.Run("provider failure degrades to empty set", func(t *testing.T) {
		p := &llmmock.Provider{
			CompleteErr: memory.NewProviderError("llm", memory.FailureTransient, errors.New("down")),
		}

		got, err := New(p).Extract(ctx, []memory.Message{userMsg("I love pizza")})
		if err != nil {
			t.Fatalf("Extract: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("candidates = %v, want empty", got)
		}
	})

	t.Run("cancelled context is surfaced", func(t *testing.T) {
		p := &llmmock.Provider{CompleteErr: context.Canceled}

		_, err := New(p).Extract(ctx, []memory.Message{userMsg("I love pizza")})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("candidates are trimmed and deduplicated", func(t *testing.T) {
		p := &llmmock.Provider{}
		p.Queue(`{"facts": ["  User loves pizza  ", "User loves pizza", "", "User lives in Berlin"]}`)

		got, err := New(p).Extract(ctx, []memory.Message{userMsg("I love pizza")})
		if err != nil {
			t.Fatalf("Extract: %v", err)
		}
		want := []string{"User loves pizza", "User lives in Berlin"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("candidates = %v, want %v", got, want)
		}
	})

	t.Run("empty transcript makes no llm call", func(t *testing.T) {
		p := &llmmock.Provider{}

		got, err := New(p).Extract(ctx, []memory.Message{{Role: "user", Content: "   "}})
		if err != nil {
			t.Fatalf("Extract: %v", err)
		}
		if got != nil {
			t.Errorf("candidates = %v, want nil", got)
		}
		if p.CallCount() != 0 {
			t.Errorf("llm calls = %d, want 0", p.CallCount())
		}
	})

	t.Run("system message overrides the prompt when opted in", func(t *testing.T) {
		p := &llmmock.Provider{}
		p.Queue(`{"facts": []}`)

		_, err := New(p, WithSystemPromptOverride()).Extract(ctx, []memory.Message{
			{Role: "system", Content: "Extract only food preferences."},
			userMsg("I love pizza"),
		})
		if err != nil {
			t.Fatalf("Extract: %v", err)
		}
		req := p.CompleteCalls[0].Req
		if req.SystemPrompt != "Extract only food preferences." {
			t.Errorf("system prompt = %q", req.SystemPrompt)
		}
		if strings.Contains(req.Messages[0].Content, "system:") {
			t.Error("system messages must not appear in the transcript")
		}
	})

	t.Run("system message is ignored without opt-in", func(t *testing.T) {
		p := &llmmock.Provider{}
		p.Queue(`{"facts": []}`)

		_, err := New(p).Extract(ctx, []memory.Message{
			{Role: "system", Content: "Extract only food preferences."},
			userMsg("I love pizza"),
		})
		if err != nil {
			t.Fatalf("Extract: %v", err)
		}
		req := p.CompleteCalls[0].Req
		if req.SystemPrompt != defaultPrompt {
			t.Errorf("system prompt = %q, want the built-in instruction", req.SystemPrompt)
		}
	})

	t.Run("WithPrompt replaces the default instruction", func(t *testing.T) {
		p := &llmmock.Provider{}
		p.Queue(`{"facts": []}`)

		_, err := New(p, WithPrompt("Custom instruction.")).Extract(ctx, []memory.Message{userMsg("hi")})
		if err != nil {
			t.Fatalf("Extract: %v", err)
		}
		if got := p.CompleteCalls[0].Req.SystemPrompt; got != "Custom instruction." {
			t.Errorf("system prompt = %q", got)
		}
	})
}

func TestResolveImages(t *testing.T) {
	ctx := context.Background()

	t.Run("descriptions are inlined", func(t *testing.T) {
		p := &llmmock.Provider{Description: "a wood-fired margherita pizza"}
		p.Queue(`{"facts": ["User loves pizza"]}`)

		_, err := New(p).Extract(ctx, []memory.Message{
			{Role: "user", Content: "Look at this", Images: []string{"https://img.test/pizza.jpg"}},
		})
		if err != nil {
			t.Fatalf("Extract: %v", err)
		}
		if len(p.DescribeImageCalls) != 1 {
			t.Fatalf("describe calls = %d, want 1", len(p.DescribeImageCalls))
		}
		transcript := p.CompleteCalls[0].Req.Messages[0].Content
		if !strings.Contains(transcript, "margherita pizza") {
			t.Errorf("transcript missing image description: %q", transcript)
		}
	})

	t.Run("failed description drops the reference", func(t *testing.T) {
		p := &llmmock.Provider{DescribeErr: errors.New("vision backend down")}
		p.Queue(`{"facts": []}`)

		_, err := New(p).Extract(ctx, []memory.Message{
			{Role: "user", Content: "Look at this", Images: []string{"https://img.test/pizza.jpg"}},
		})
		if err != nil {
			t.Fatalf("Extract: %v", err)
		}
		transcript := p.CompleteCalls[0].Req.Messages[0].Content
		if strings.Contains(transcript, "img.test") {
			t.Errorf("unresolved reference leaked into transcript: %q", transcript)
		}
		if !strings.Contains(transcript, "Look at this") {
			t.Error("message text must survive a dropped image reference")
		}
	})
}

func TestPassthrough(t *testing.T) {
	got := Passthrough([]memory.Message{
		userMsg("a"),
		userMsg("  "),
		userMsg("b"),
	})
	want := []string{"a", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Passthrough = %v, want %v", got, want)
	}
}

func TestDedupe(t *testing.T) {
	got := Dedupe([]string{" a ", "a", "b", "", "a"})
	want := []string{"a", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Dedupe = %v, want %v", got, want)
	}
}
