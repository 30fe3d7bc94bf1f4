package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Gabrielmcp78/mem0-sub000/pkg/memory"
)

// HistoryLog is an in-memory append-only memory.HistoryLog. Sequence numbers
// are assigned per fact under the store lock, so they are strictly
// increasing even under concurrent appends.
type HistoryLog struct {
	mu      sync.RWMutex
	entries []memory.HistoryEntry
	nextSeq map[string]int64
}

// NewHistoryLog returns an empty in-memory history log.
func NewHistoryLog() *HistoryLog {
	return &HistoryLog{nextSeq: make(map[string]int64)}
}

// Append implements memory.HistoryLog.
func (l *HistoryLog) Append(_ context.Context, entry memory.HistoryEntry) (memory.HistoryEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextSeq[entry.FactID]++
	entry.Seq = l.nextSeq[entry.FactID]
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	l.entries = append(l.entries, entry)
	return entry, nil
}

// List implements memory.HistoryLog.
func (l *HistoryLog) List(_ context.Context, factID string) ([]memory.HistoryEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []memory.HistoryEntry
	for _, e := range l.entries {
		if e.FactID == factID {
			out = append(out, e)
		}
	}
	return out, nil
}

// DeleteByScope implements memory.HistoryLog.
func (l *HistoryLog) DeleteByScope(_ context.Context, scope memory.Scope) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.entries[:0]
	for _, e := range l.entries {
		if scope.Contains(e.Scope) {
			delete(l.nextSeq, e.FactID)
			continue
		}
		kept = append(kept, e)
	}
	l.entries = kept
	return nil
}

// Reset implements memory.HistoryLog.
func (l *HistoryLog) Reset(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
	l.nextSeq = make(map[string]int64)
	return nil
}

var _ memory.HistoryLog = (*HistoryLog)(nil)
