// Package embeddings defines the Provider interface for the vector embedding
// backends used by reconciliation, persistence, and retrieval.
//
// Every embedding call carries a [Purpose] tag describing why the vector is
// being produced. Most backends ignore it; models with task-specific prompt
// prefixes (e.g., nomic-embed-text) use it to pick the right prefix.
//
// Implementations must be safe for concurrent use.
package embeddings

import "context"

// Purpose describes why an embedding is requested.
type Purpose string

const (
	// PurposeAdd embeds a new fact text for insertion.
	PurposeAdd Purpose = "ADD"

	// PurposeUpdate embeds replacement text for an existing fact.
	PurposeUpdate Purpose = "UPDATE"

	// PurposeSearch embeds a retrieval query.
	PurposeSearch Purpose = "SEARCH"
)

// IsValid reports whether p is one of the known purposes.
func (p Purpose) IsValid() bool {
	switch p {
	case PurposeAdd, PurposeUpdate, PurposeSearch:
		return true
	}
	return false
}

// Provider is the abstraction over any text-embedding backend.
//
// All vectors returned by a single Provider instance share the same
// dimensionality (returned by Dimensions). Vectors from different instances
// must not be mixed in one similarity computation unless both use the same
// model and space.
//
// Failures should be surfaced as *memory.ProviderError with Provider
// "embedder" so the engine's retry policy can classify them.
type Provider interface {
	// Embed computes the embedding vector for a single text. Returns a
	// float32 slice of length Dimensions() or an error if the request fails
	// or ctx is cancelled.
	Embed(ctx context.Context, text string, purpose Purpose) ([]float32, error)

	// EmbedBatch computes vectors for a slice of texts in a single provider
	// call. The returned slice has the same length as texts with result[i]
	// corresponding to texts[i]; partial results are never returned.
	EmbedBatch(ctx context.Context, texts []string, purpose Purpose) ([][]float32, error)

	// Dimensions returns the fixed length of every vector produced by this
	// provider, constant for the instance lifetime.
	Dimensions() int

	// ModelID returns the backend-specific model identifier, for logging and
	// telemetry.
	ModelID() string
}
