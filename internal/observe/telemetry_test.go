package observe

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// captureSink records every emitted Record and can fail on demand.
type captureSink struct {
	mu      sync.Mutex
	records []Record
	err     error
}

func (s *captureSink) Emit(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return s.err
}

func (s *captureSink) all() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Record(nil), s.records...)
}

func TestTelemetryEmit(t *testing.T) {
	ctx := context.Background()

	t.Run("records op and outcome", func(t *testing.T) {
		sink := &captureSink{}
		tel := NewTelemetry(sink, true)

		started := time.Now().Add(-50 * time.Millisecond)
		tel.Emit(ctx, "add", []string{"openai", "pgvector"}, started, nil)

		recs := sink.all()
		if len(recs) != 1 {
			t.Fatalf("records = %d, want 1", len(recs))
		}
		rec := recs[0]
		if rec.Op != "add" {
			t.Errorf("op = %q, want add", rec.Op)
		}
		if rec.Outcome != "ok" {
			t.Errorf("outcome = %q, want ok", rec.Outcome)
		}
		if rec.DurationMS < 50 {
			t.Errorf("duration_ms = %d, want >= 50", rec.DurationMS)
		}
		if len(rec.ProviderKinds) != 2 {
			t.Errorf("provider_kinds = %v, want two entries", rec.ProviderKinds)
		}
	})

	t.Run("error outcome", func(t *testing.T) {
		sink := &captureSink{}
		tel := NewTelemetry(sink, true)

		tel.Emit(ctx, "search", nil, time.Now(), errors.New("boom"))

		recs := sink.all()
		if len(recs) != 1 {
			t.Fatalf("records = %d, want 1", len(recs))
		}
		if recs[0].Outcome != "error" {
			t.Errorf("outcome = %q, want error", recs[0].Outcome)
		}
	})

	t.Run("disabled telemetry emits nothing", func(t *testing.T) {
		sink := &captureSink{}
		tel := NewTelemetry(sink, false)

		tel.Emit(ctx, "add", nil, time.Now(), nil)

		if got := len(sink.all()); got != 0 {
			t.Errorf("records = %d, want 0", got)
		}
	})

	t.Run("nil telemetry is a no-op", func(t *testing.T) {
		var tel *Telemetry
		tel.Emit(ctx, "add", nil, time.Now(), nil)
	})

	t.Run("sink failure is swallowed", func(t *testing.T) {
		sink := &captureSink{err: errors.New("sink down")}
		tel := NewTelemetry(sink, true)

		tel.Emit(ctx, "add", nil, time.Now(), nil)

		if got := len(sink.all()); got != 1 {
			t.Errorf("records = %d, want 1", got)
		}
	})
}
