package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Gabrielmcp78/mem0-sub000/pkg/memory"
	"github.com/Gabrielmcp78/mem0-sub000/pkg/provider/embeddings"
)

// persist applies reconciliation decisions to the vector store and the
// history log. Each decision is applied independently: a failure is captured
// in its result entry and the siblings proceed. Callers needing
// all-or-nothing submit singleton batches.
func (e *Engine) persist(ctx context.Context, scope memory.Scope, metadata map[string]string, decisions []memory.Decision) []AddResult {
	results := make([]AddResult, 0, len(decisions))
	for _, d := range decisions {
		results = append(results, e.apply(ctx, scope, metadata, d))
	}
	return results
}

// apply executes one decision: embed, write the vector store, append
// history. Exactly one history entry is appended per applied event; a
// decision that fails before its vector write appends nothing.
func (e *Engine) apply(ctx context.Context, scope memory.Scope, metadata map[string]string, d memory.Decision) AddResult {
	var err error
	switch d.Event {
	case memory.EventAdd:
		return e.applyAdd(ctx, scope, metadata, d)
	case memory.EventUpdate:
		return e.applyUpdate(ctx, scope, metadata, d)
	case memory.EventDelete:
		return e.applyDelete(ctx, d)
	default:
		err = fmt.Errorf("%w: decision with event %q", memory.ErrInvalidArguments, d.Event)
		return failedResult(AddResult{Event: d.Event}, err)
	}
}

func (e *Engine) applyAdd(ctx context.Context, scope memory.Scope, metadata map[string]string, d memory.Decision) AddResult {
	result := AddResult{Event: memory.EventAdd, Memory: d.Text}

	vector, err := e.embedder.Embed(ctx, d.Text, embeddings.PurposeAdd)
	if err != nil {
		return failedResult(result, err)
	}

	now := time.Now().UTC()
	fact := memory.Fact{
		ID:        uuid.NewString(),
		Text:      d.Text,
		Hash:      memory.TextHash(d.Text),
		Scope:     scope,
		Metadata:  cloneMetadata(metadata),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := e.vectors.Insert(ctx, vector, fact); err != nil {
		return failedResult(result, err)
	}
	result.ID = fact.ID

	if _, err := e.history.Append(ctx, memory.HistoryEntry{
		FactID:    fact.ID,
		NewText:   fact.Text,
		Kind:      memory.EventAdd,
		Scope:     scope,
		Timestamp: now,
	}); err != nil {
		return failedResult(result, err)
	}

	e.metrics.RecordMemoryEvent(ctx, string(memory.EventAdd))
	return result
}

func (e *Engine) applyUpdate(ctx context.Context, scope memory.Scope, metadata map[string]string, d memory.Decision) AddResult {
	result := AddResult{Event: memory.EventUpdate, ID: d.TargetID, Memory: d.Text, PreviousMemory: d.OldText}

	existing, err := e.vectors.Get(ctx, d.TargetID)
	if err != nil {
		return failedResult(result, err)
	}

	vector, err := e.embedder.Embed(ctx, d.Text, embeddings.PurposeUpdate)
	if err != nil {
		return failedResult(result, err)
	}

	// Identity, scope, and created_at are immutable; the payload, hash, and
	// metadata move forward. The existing metadata map may be shared with the
	// store, so the merge goes into a copy: a failed Update must leave the
	// stored fact untouched.
	now := time.Now().UTC()
	updated := *existing
	updated.Text = d.Text
	updated.Hash = memory.TextHash(d.Text)
	updated.UpdatedAt = now
	updated.Metadata = cloneMetadata(existing.Metadata)
	if updated.Metadata == nil && len(metadata) > 0 {
		updated.Metadata = make(map[string]string, len(metadata))
	}
	for k, v := range metadata {
		updated.Metadata[k] = v
	}

	if err := e.vectors.Update(ctx, vector, updated); err != nil {
		return failedResult(result, err)
	}

	if _, err := e.history.Append(ctx, memory.HistoryEntry{
		FactID:    updated.ID,
		PrevText:  existing.Text,
		NewText:   updated.Text,
		Kind:      memory.EventUpdate,
		Scope:     updated.Scope,
		Timestamp: now,
	}); err != nil {
		return failedResult(result, err)
	}

	result.PreviousMemory = existing.Text
	e.metrics.RecordMemoryEvent(ctx, string(memory.EventUpdate))
	return result
}

func (e *Engine) applyDelete(ctx context.Context, d memory.Decision) AddResult {
	result := AddResult{Event: memory.EventDelete, ID: d.TargetID, PreviousMemory: d.OldText}

	existing, err := e.vectors.Get(ctx, d.TargetID)
	if err != nil {
		return failedResult(result, err)
	}

	if err := e.vectors.Delete(ctx, d.TargetID); err != nil {
		return failedResult(result, err)
	}

	if _, err := e.history.Append(ctx, memory.HistoryEntry{
		FactID:    existing.ID,
		PrevText:  existing.Text,
		Kind:      memory.EventDelete,
		Scope:     existing.Scope,
		Timestamp: time.Now().UTC(),
	}); err != nil {
		return failedResult(result, err)
	}

	result.PreviousMemory = existing.Text
	e.metrics.RecordMemoryEvent(ctx, string(memory.EventDelete))
	return result
}

func failedResult(result AddResult, err error) AddResult {
	result.Error = err.Error()
	result.ErrorKind = string(memory.KindOf(err))
	return result
}

func cloneMetadata(metadata map[string]string) map[string]string {
	if len(metadata) == 0 {
		return nil
	}
	out := make(map[string]string, len(metadata))
	for k, v := range metadata {
		out[k] = v
	}
	return out
}
