package memory

import "fmt"

// FactState is the lifecycle state of a fact as reconstructed from history.
type FactState string

const (
	// StateUnknown means no history exists for the fact.
	StateUnknown FactState = "UNKNOWN"

	// StateLive means the fact currently exists.
	StateLive FactState = "LIVE"

	// StateDeleted means the fact existed and was soft-deleted.
	StateDeleted FactState = "DELETED"
)

// ReplayResult is the outcome of folding a fact's history.
type ReplayResult struct {
	// State is the lifecycle state after the last entry.
	State FactState

	// Text is the fact text after the last entry, "" when deleted.
	Text string
}

// ReplayState reconstructs a fact's current state purely from its history
// entries, ordered by Seq. The entries must all belong to one fact and form
// a coherent sequence: an ADD first, UPDATE/DELETE only while live. Seq gaps
// are tolerated (Seq must only be strictly increasing); wall-clock
// timestamps are ignored.
func ReplayState(entries []HistoryEntry) (ReplayResult, error) {
	if len(entries) == 0 {
		return ReplayResult{State: StateUnknown}, nil
	}

	factID := entries[0].FactID
	res := ReplayResult{State: StateUnknown}
	lastSeq := int64(-1)

	for _, e := range entries {
		if e.FactID != factID {
			return ReplayResult{}, fmt.Errorf("memory: replay: entry for fact %q in history of %q", e.FactID, factID)
		}
		if e.Seq <= lastSeq {
			return ReplayResult{}, fmt.Errorf("memory: replay: seq %d after %d for fact %q", e.Seq, lastSeq, factID)
		}
		lastSeq = e.Seq

		switch e.Kind {
		case EventAdd:
			if res.State == StateLive {
				return ReplayResult{}, fmt.Errorf("memory: replay: ADD on live fact %q at seq %d", factID, e.Seq)
			}
			res.State = StateLive
			res.Text = e.NewText

		case EventUpdate:
			if res.State != StateLive {
				return ReplayResult{}, fmt.Errorf("memory: replay: UPDATE on %s fact %q at seq %d", res.State, factID, e.Seq)
			}
			res.Text = e.NewText

		case EventDelete:
			if res.State != StateLive {
				return ReplayResult{}, fmt.Errorf("memory: replay: DELETE on %s fact %q at seq %d", res.State, factID, e.Seq)
			}
			res.State = StateDeleted
			res.Text = ""

		default:
			return ReplayResult{}, fmt.Errorf("memory: replay: unknown event %q at seq %d", e.Kind, e.Seq)
		}
	}

	return res, nil
}
