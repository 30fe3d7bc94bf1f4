package observe

import (
	"context"
	"log/slog"
	"time"
)

// Record is one per-operation telemetry event emitted after an engine
// operation completes.
type Record struct {
	// Op is the engine operation name ("add", "search", "delete_all", ...).
	Op string `json:"op"`

	// ProviderKinds names the provider backends that served the operation
	// (e.g. "openai", "pgvector").
	ProviderKinds []string `json:"provider_kinds,omitempty"`

	// StartedAt is when the operation began.
	StartedAt time.Time `json:"started_at"`

	// DurationMS is the wall-clock duration in milliseconds.
	DurationMS int64 `json:"duration_ms"`

	// Outcome is "ok" or "error".
	Outcome string `json:"outcome"`
}

// Sink receives telemetry records. Implementations must be safe for
// concurrent use. Errors are logged at debug level and otherwise ignored;
// telemetry must never affect the operation it describes.
type Sink interface {
	Emit(ctx context.Context, rec Record) error
}

// SlogSink writes records to a [slog.Logger] at info level. The zero value
// uses slog.Default.
type SlogSink struct {
	Logger *slog.Logger
}

// Emit implements [Sink].
func (s *SlogSink) Emit(_ context.Context, rec Record) error {
	l := s.Logger
	if l == nil {
		l = slog.Default()
	}
	l.Info("telemetry",
		"op", rec.Op,
		"provider_kinds", rec.ProviderKinds,
		"started_at", rec.StartedAt,
		"duration_ms", rec.DurationMS,
		"outcome", rec.Outcome)
	return nil
}

// Telemetry emits per-operation records to a configured sink. A nil
// *Telemetry, a nil sink, or a disabled instance all make Emit a no-op, so
// callers never need to guard emission.
type Telemetry struct {
	sink     Sink
	disabled bool
}

// NewTelemetry creates a Telemetry that forwards to sink. Pass enabled=false
// to opt out of emission entirely.
func NewTelemetry(sink Sink, enabled bool) *Telemetry {
	return &Telemetry{sink: sink, disabled: !enabled}
}

// Emit builds a Record from the arguments and forwards it to the sink. Sink
// failures are swallowed after a debug log line.
func (t *Telemetry) Emit(ctx context.Context, op string, providerKinds []string, startedAt time.Time, err error) {
	if t == nil || t.disabled || t.sink == nil {
		return
	}

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	rec := Record{
		Op:            op,
		ProviderKinds: providerKinds,
		StartedAt:     startedAt,
		DurationMS:    time.Since(startedAt).Milliseconds(),
		Outcome:       outcome,
	}

	if emitErr := t.sink.Emit(ctx, rec); emitErr != nil {
		slog.Debug("telemetry sink emit failed", "op", op, "error", emitErr)
	}
}
