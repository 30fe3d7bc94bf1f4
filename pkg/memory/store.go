package memory

import "context"

// SearchOpts controls a VectorStore.Search call.
type SearchOpts struct {
	// Filter restricts candidates to a scope partition plus optional
	// metadata equality pairs. The scope must not be zero.
	Filter Filter

	// Limit caps the number of results. Zero means the store default.
	Limit int

	// Threshold drops results scoring below it. Zero means no threshold.
	Threshold float64
}

// VectorStore persists facts with their embedding vectors and answers
// similarity queries. Implementations must be safe for concurrent use and
// must apply the scope filter on every operation; failures are surfaced as
// *ProviderError with Provider "vector_store".
type VectorStore interface {
	// Insert stores a new fact with its embedding. The fact ID must be
	// unique within the store.
	Insert(ctx context.Context, vector []float32, fact Fact) error

	// Update replaces the embedding and fact payload for fact.ID.
	// Returns ErrNotFound when the ID does not exist.
	Update(ctx context.Context, vector []float32, fact Fact) error

	// Delete removes the fact with the given ID. Returns ErrNotFound when
	// the ID does not exist.
	Delete(ctx context.Context, id string) error

	// Get returns the fact with the given ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*Fact, error)

	// Search returns facts matching opts.Filter ranked by cosine similarity
	// to vector, highest first, subject to opts.Limit and opts.Threshold.
	Search(ctx context.Context, vector []float32, opts SearchOpts) ([]SearchResult, error)

	// List enumerates facts matching the filter without similarity ranking.
	// A non-positive limit means no cap.
	List(ctx context.Context, filter Filter, limit int) ([]Fact, error)

	// DeleteByFilter removes every fact matching the filter and returns the
	// IDs removed. An empty match is not an error.
	DeleteByFilter(ctx context.Context, filter Filter) ([]string, error)

	// Reset drops all facts across all scopes.
	Reset(ctx context.Context) error
}

// GraphStore persists the optional entity/relation layer. Implementations
// must be safe for concurrent use; failures are surfaced as *ProviderError
// with Provider "graph_store". The engine treats the whole layer as
// best-effort: graph failures never fail an ingestion batch.
type GraphStore interface {
	// UpsertEntity inserts the entity or refreshes an existing node with the
	// same ID, returning the stored node. An empty ID asks the store to
	// assign one.
	UpsertEntity(ctx context.Context, e Entity) (Entity, error)

	// SimilarEntities returns up to k existing nodes in the scope ranked by
	// similarity to the given label (and embedding when non-nil). The caller
	// applies its own merge threshold to the scores.
	SimilarEntities(ctx context.Context, scope Scope, label string, embedding []float32, k int) ([]ScoredEntity, error)

	// UpsertRelation inserts the edge or refreshes an existing one with the
	// same (source, predicate, target) within the scope.
	UpsertRelation(ctx context.Context, r Relation) error

	// Search returns triples in the scope relevant to the query text,
	// highest score first.
	Search(ctx context.Context, scope Scope, query string, limit int) ([]GraphResult, error)

	// DeleteByScope removes every node and edge in the scope.
	DeleteByScope(ctx context.Context, scope Scope) error

	// Reset drops all graph data across all scopes.
	Reset(ctx context.Context) error
}

// HistoryLog is the append-only per-fact lifecycle record. Entries are never
// updated or individually deleted; Seq is assigned by the log and is strictly
// increasing per fact. Implementations must be safe for concurrent use;
// failures are surfaced as *ProviderError with Provider "history_log".
type HistoryLog interface {
	// Append records entry, assigning its ID, Seq, and Timestamp (when zero),
	// and returns the stored entry.
	Append(ctx context.Context, entry HistoryEntry) (HistoryEntry, error)

	// List returns all entries for factID ordered by Seq ascending. A fact
	// with no history yields an empty slice, not an error.
	List(ctx context.Context, factID string) ([]HistoryEntry, error)

	// DeleteByScope removes all entries in the scope. Used only by Reset;
	// fact deletion retains history.
	DeleteByScope(ctx context.Context, scope Scope) error

	// Reset drops all entries across all scopes.
	Reset(ctx context.Context) error
}
