package memory

import "strings"

// Scope identifies the principals a memory operation acts for. At least one
// of the three fields must be non-empty after trimming; the values are
// otherwise opaque to the core.
//
// The scope forms a hard partition: every store read and write carries the
// scope as an equality filter, so facts belonging to one scope are never
// visible to another.
type Scope struct {
	// UserID identifies the end user the memory belongs to.
	UserID string `json:"user_id,omitempty" yaml:"user_id"`

	// AgentID identifies the assistant or agent persona.
	AgentID string `json:"agent_id,omitempty" yaml:"agent_id"`

	// SessionID identifies a single conversation session (mem0's "run").
	SessionID string `json:"run_id,omitempty" yaml:"run_id"`
}

// NewScope trims surrounding whitespace from each identifier and validates
// that at least one is non-empty. Returns ErrInvalidScope otherwise.
func NewScope(userID, agentID, sessionID string) (Scope, error) {
	s := Scope{
		UserID:    strings.TrimSpace(userID),
		AgentID:   strings.TrimSpace(agentID),
		SessionID: strings.TrimSpace(sessionID),
	}
	if s.IsZero() {
		return Scope{}, ErrInvalidScope
	}
	return s, nil
}

// Normalize returns a copy of s with surrounding whitespace trimmed from each
// identifier.
func (s Scope) Normalize() Scope {
	return Scope{
		UserID:    strings.TrimSpace(s.UserID),
		AgentID:   strings.TrimSpace(s.AgentID),
		SessionID: strings.TrimSpace(s.SessionID),
	}
}

// IsZero reports whether all three identifiers are empty.
func (s Scope) IsZero() bool {
	return s.UserID == "" && s.AgentID == "" && s.SessionID == ""
}

// Validate returns ErrInvalidScope when the scope is empty after trimming.
func (s Scope) Validate() error {
	if s.Normalize().IsZero() {
		return ErrInvalidScope
	}
	return nil
}

// Contains reports whether fact scope other falls inside filter scope s:
// every non-empty field of s must match the corresponding field of other.
// Empty fields of s act as wildcards.
func (s Scope) Contains(other Scope) bool {
	if s.UserID != "" && s.UserID != other.UserID {
		return false
	}
	if s.AgentID != "" && s.AgentID != other.AgentID {
		return false
	}
	if s.SessionID != "" && s.SessionID != other.SessionID {
		return false
	}
	return true
}

// Filter combines the scope partition with optional caller-supplied metadata
// equality constraints. Stores apply every non-empty scope field and every
// metadata pair conjunctively.
type Filter struct {
	// Scope is the mandatory partition filter.
	Scope Scope

	// Metadata constrains results to facts whose metadata contains every
	// listed pair. Nil means no metadata constraint.
	Metadata map[string]string
}

// Filter returns a Filter selecting exactly this scope with no metadata
// constraints.
func (s Scope) Filter() Filter {
	return Filter{Scope: s}
}

// Matches reports whether fact f satisfies the filter: its scope must fall
// inside the filter scope and its metadata must contain every filter pair.
func (f Filter) Matches(fact Fact) bool {
	if !f.Scope.Contains(fact.Scope) {
		return false
	}
	for k, want := range f.Metadata {
		if got, ok := fact.Metadata[k]; !ok || got != want {
			return false
		}
	}
	return true
}
