// Package memory defines the data model and storage contracts for the memory
// orchestration core: facts, scopes, reconciliation decisions, the per-fact
// history log, and the pluggable VectorStore / GraphStore / HistoryLog
// backends the engine persists into.
//
// The package carries no provider dependencies of its own; concrete backends
// live in subpackages (memstore, postgres, sqlite) and in pkg/provider.
package memory

import (
	"crypto/md5"
	"encoding/hex"
	"time"
)

// Message is a single conversation turn submitted for ingestion.
type Message struct {
	// Role is one of "user", "assistant", or "system". System messages carry
	// no facts and are excluded from extraction.
	Role string `json:"role"`

	// Content is the text content of the turn.
	Content string `json:"content"`

	// Images holds image references (URLs or data URIs) attached to the turn.
	// They are resolved to text descriptions by the vision adapter before
	// extraction; unresolvable references are dropped.
	Images []string `json:"images,omitempty"`
}

// EventKind classifies what happened to a fact: the reconciliation verdicts
// and the lifecycle events recorded in history share the same vocabulary.
type EventKind string

const (
	// EventAdd introduces a new fact.
	EventAdd EventKind = "ADD"

	// EventUpdate replaces the text of an existing fact.
	EventUpdate EventKind = "UPDATE"

	// EventDelete soft-deletes an existing fact.
	EventDelete EventKind = "DELETE"

	// EventNone records that a candidate required no change. NONE decisions
	// are discarded before persistence and never reach the history log.
	EventNone EventKind = "NONE"
)

// IsValid reports whether k is one of the four known event kinds.
func (k EventKind) IsValid() bool {
	switch k {
	case EventAdd, EventUpdate, EventDelete, EventNone:
		return true
	}
	return false
}

// Fact is a durable, scope-bound memory item.
type Fact struct {
	// ID is the core-assigned identifier, stable across updates.
	ID string `json:"id"`

	// Text is the current natural-language content of the fact.
	Text string `json:"memory"`

	// Hash is the md5 hex digest of Text, recomputed on every write. It lets
	// callers detect content changes without comparing full texts.
	Hash string `json:"hash"`

	// Scope binds the fact to its owning principals. Every store operation
	// filters on it; facts never cross scopes.
	Scope Scope `json:"scope"`

	// Metadata holds caller-supplied key/value pairs attached at ingestion.
	// Values are matched by equality when used as a retrieval filter.
	Metadata map[string]string `json:"metadata,omitempty"`

	// CreatedAt is when the fact was first added.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the fact text last changed. Equal to CreatedAt until
	// the first update.
	UpdatedAt time.Time `json:"updated_at"`
}

// Decision is a single reconciliation verdict, ready for persistence.
type Decision struct {
	// Event is the verdict kind. NONE decisions are filtered out before the
	// persistence stage sees them.
	Event EventKind

	// TargetID is the fact the decision applies to. For ADD it is the fresh
	// ID minted by the core; for UPDATE and DELETE it is an existing fact ID.
	TargetID string

	// Text is the fact text to write. Empty for DELETE.
	Text string

	// OldText is the previous text for UPDATE decisions, as reported by the
	// reconciliation model. Informational; history records the authoritative
	// previous text from the store.
	OldText string
}

// HistoryEntry is one append-only lifecycle record for a fact.
type HistoryEntry struct {
	// ID is the log-assigned entry identifier.
	ID string `json:"id"`

	// FactID is the fact this entry belongs to.
	FactID string `json:"memory_id"`

	// Seq is the per-fact sequence number, assigned by the log, strictly
	// increasing in append order. Replays order by Seq, never by Timestamp.
	Seq int64 `json:"seq"`

	// PrevText is the fact text before the event ("" for ADD).
	PrevText string `json:"old_memory"`

	// NewText is the fact text after the event ("" for DELETE).
	NewText string `json:"new_memory"`

	// Kind is the event recorded: ADD, UPDATE, or DELETE.
	Kind EventKind `json:"event"`

	// Scope is the owning scope, denormalised for scope-wide queries.
	Scope Scope `json:"scope"`

	// Timestamp is when the entry was appended. Wall-clock only; ordering
	// guarantees come from Seq.
	Timestamp time.Time `json:"timestamp"`
}

// SearchResult is a fact returned by semantic retrieval.
type SearchResult struct {
	Fact

	// Score is the similarity score in [0, 1], higher is more similar.
	Score float64 `json:"score"`
}

// Entity is a node in the knowledge graph.
type Entity struct {
	// ID is the store-assigned node identifier.
	ID string `json:"id"`

	// Label is the canonical display name ("alice", "acme corp").
	Label string `json:"label"`

	// Type is a coarse category ("person", "place", "organization", ...).
	Type string `json:"type"`

	// Scope binds the node to its owning principals.
	Scope Scope `json:"scope"`

	// Attributes holds optional key/value annotations.
	Attributes map[string]string `json:"attributes,omitempty"`

	// Embedding is the label embedding used for soft-merge lookups. May be
	// nil when the graph runs without an embedder.
	Embedding []float32 `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Relation is a directed edge between two graph entities.
type Relation struct {
	// SourceID and TargetID reference Entity IDs within the same scope.
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`

	// Predicate is the relationship verb, lowercase snake_case by
	// convention ("works_at", "married_to").
	Predicate string `json:"predicate"`

	// Weight is the edge strength in (0, 1], as reported by the relation
	// extractor. Upserts of an existing edge replace it.
	Weight float64 `json:"weight"`

	// Scope binds the edge to its owning principals.
	Scope Scope `json:"scope"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ScoredEntity is an entity with a similarity score, as returned by
// soft-merge candidate lookups.
type ScoredEntity struct {
	Entity

	// Score is the label/embedding similarity in [0, 1].
	Score float64 `json:"score"`
}

// GraphResult is a single triple returned by graph retrieval.
type GraphResult struct {
	// Source and Target are the entity labels, Predicate the edge verb.
	Source    string `json:"source"`
	Predicate string `json:"predicate"`
	Target    string `json:"target"`

	// Score is the provider-specific relevance score, higher is better.
	Score float64 `json:"score"`
}

// TextHash returns the md5 hex digest of text. It is the hash carried in
// Fact.Hash and in store payloads.
func TextHash(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}
