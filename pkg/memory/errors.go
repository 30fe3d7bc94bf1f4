package memory

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors returned by the core and its stores. Callers should match
// them with errors.Is.
var (
	// ErrNotFound is returned when a fact ID does not exist in the scope, or
	// was already deleted.
	ErrNotFound = errors.New("memory: fact not found")

	// ErrInvalidScope is returned when all three scope identifiers are empty
	// after trimming.
	ErrInvalidScope = errors.New("memory: scope requires at least one of user_id, agent_id, run_id")

	// ErrInvalidArguments is returned for malformed non-scope input such as
	// an empty message batch or a non-positive limit.
	ErrInvalidArguments = errors.New("memory: invalid arguments")

	// ErrResetNotAllowed is returned by Reset when the engine was built
	// without the reset switch enabled.
	ErrResetNotAllowed = errors.New("memory: reset not allowed by configuration")
)

// FailureKind classifies a provider failure for retry and reporting purposes.
type FailureKind string

const (
	// FailureTransient marks failures worth retrying: timeouts, rate limits,
	// connection resets.
	FailureTransient FailureKind = "transient"

	// FailurePermanent marks failures retrying cannot fix: bad credentials,
	// invalid requests, missing models.
	FailurePermanent FailureKind = "permanent"

	// FailureMalformed marks structurally invalid provider output, such as
	// unparseable LLM JSON that survived the repair attempt.
	FailureMalformed FailureKind = "malformed"
)

// ProviderError wraps a failure from an external provider (LLM, embedder, or
// store) with the provider name and a failure classification.
type ProviderError struct {
	// Provider names the failing component ("llm", "embedder", "vector_store",
	// "graph_store", "history_log").
	Provider string

	// Kind classifies the failure for the retry policy.
	Kind FailureKind

	// Err is the underlying cause.
	Err error
}

// Error implements error.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("memory: %s provider (%s): %v", e.Provider, e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ProviderError) Unwrap() error { return e.Err }

// Transient reports whether the failure is worth retrying.
func (e *ProviderError) Transient() bool { return e.Kind == FailureTransient }

// NewProviderError wraps err as a ProviderError. Nil err returns nil.
func NewProviderError(provider string, kind FailureKind, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Kind: kind, Err: err}
}

// IngestError reports that an ingestion batch was aborted before any write
// was applied. It is returned when the reconciliation model fails after
// retries; the batch can be resubmitted safely.
type IngestError struct {
	// Stage names the pipeline stage that aborted the batch.
	Stage string

	// Err is the underlying cause.
	Err error
}

// Error implements error.
func (e *IngestError) Error() string {
	return fmt.Sprintf("memory: ingest aborted at %s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying cause.
func (e *IngestError) Unwrap() error { return e.Err }

// ErrorKind is the closed set of error envelope kinds surfaced to transport
// layers. Every error leaving the engine maps to exactly one kind.
type ErrorKind string

const (
	KindInvalidScope     ErrorKind = "invalid_scope"
	KindInvalidArguments ErrorKind = "invalid_arguments"
	KindNotFound         ErrorKind = "not_found"
	KindProviderError    ErrorKind = "provider_error"
	KindIngestError      ErrorKind = "ingest_error"
	KindCancelled        ErrorKind = "cancelled"
	KindInternal         ErrorKind = "internal"
)

// KindOf maps err to its envelope kind. Unknown errors map to KindInternal;
// nil maps to the empty kind.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	case errors.Is(err, ErrInvalidScope):
		return KindInvalidScope
	case errors.Is(err, ErrInvalidArguments), errors.Is(err, ErrResetNotAllowed):
		return KindInvalidArguments
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	}
	var ie *IngestError
	if errors.As(err, &ie) {
		return KindIngestError
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return KindProviderError
	}
	return KindInternal
}

// IsTransient reports whether err is a transient provider failure, i.e. a
// candidate for the retry policy.
func IsTransient(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Transient()
}
