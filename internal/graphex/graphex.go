// Package graphex extracts entities and relations from conversation text
// and applies them to a graph store.
//
// The stage runs two LLM calls (entity extraction, then relation extraction
// over the entity list) and soft-merges each extracted entity against
// existing graph entities before writing: a close-enough existing entity is
// reused instead of creating a near-duplicate node. Failures here are
// isolated by the caller; the graph layer never blocks the vector path.
package graphex

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Gabrielmcp78/mem0-sub000/pkg/memory"
	"github.com/Gabrielmcp78/mem0-sub000/pkg/provider/embeddings"
	"github.com/Gabrielmcp78/mem0-sub000/pkg/provider/llm"
)

// MergeConfig tunes the entity soft merge.
type MergeConfig struct {
	// Threshold is the minimum similarity for reusing an existing entity.
	// Default: 0.7.
	Threshold float64

	// TopK is how many existing candidates are fetched per entity.
	// Default: 5.
	TopK int
}

func (c MergeConfig) withDefaults() MergeConfig {
	if c.Threshold <= 0 {
		c.Threshold = 0.7
	}
	if c.TopK <= 0 {
		c.TopK = 5
	}
	return c
}

// Extractor runs the graph extraction stage.
type Extractor struct {
	provider llm.Provider
	embedder embeddings.Provider
	graph    memory.GraphStore
	merge    MergeConfig
}

// New creates an Extractor over the given providers and graph store.
func New(provider llm.Provider, embedder embeddings.Provider, graph memory.GraphStore, merge MergeConfig) *Extractor {
	return &Extractor{
		provider: provider,
		embedder: embedder,
		graph:    graph,
		merge:    merge.withDefaults(),
	}
}

type entityEntry struct {
	Label string `json:"label"`
	Type  string `json:"type"`
}

type entityReply struct {
	Entities []entityEntry `json:"entities"`
}

type relationEntry struct {
	Source    string  `json:"source"`
	Predicate string  `json:"predicate"`
	Target    string  `json:"target"`
	Weight    float64 `json:"weight"`
}

type relationReply struct {
	Relations []relationEntry `json:"relations"`
}

// Process extracts entities and relations from the transcript and upserts
// them into the graph store within scope. An empty transcript or an empty
// entity set is a no-op.
func (e *Extractor) Process(ctx context.Context, scope memory.Scope, transcript string) error {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil
	}

	entities, err := e.extractEntities(ctx, transcript)
	if err != nil {
		return err
	}
	if len(entities) == 0 {
		return nil
	}

	relations, err := e.extractRelations(ctx, transcript, entities)
	if err != nil {
		return err
	}

	resolved, err := e.resolveEntities(ctx, scope, entities)
	if err != nil {
		return err
	}

	return e.upsertRelations(ctx, scope, relations, resolved)
}

func (e *Extractor) extractEntities(ctx context.Context, transcript string) ([]entityEntry, error) {
	raw, err := e.complete(ctx, entityPrompt, transcript)
	if err != nil {
		return nil, fmt.Errorf("graphex: entity extraction: %w", err)
	}
	var reply entityReply
	if err := llm.ParseJSON(raw, &reply); err != nil {
		return nil, memory.NewProviderError("llm", memory.FailureMalformed,
			fmt.Errorf("graphex: entity output unparseable: %w", err))
	}

	seen := make(map[string]struct{}, len(reply.Entities))
	out := make([]entityEntry, 0, len(reply.Entities))
	for _, ent := range reply.Entities {
		ent.Label = strings.TrimSpace(ent.Label)
		ent.Type = strings.ToLower(strings.TrimSpace(ent.Type))
		if ent.Label == "" {
			continue
		}
		key := strings.ToLower(ent.Label)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, ent)
	}
	return out, nil
}

func (e *Extractor) extractRelations(ctx context.Context, transcript string, entities []entityEntry) ([]relationEntry, error) {
	labels := make([]string, len(entities))
	for i, ent := range entities {
		labels[i] = ent.Label
	}
	labelsJSON, err := json.Marshal(labels)
	if err != nil {
		return nil, fmt.Errorf("graphex: marshal entity labels: %w", err)
	}

	var b strings.Builder
	b.WriteString("Entities:\n")
	b.Write(labelsJSON)
	b.WriteString("\n\nTranscript:\n")
	b.WriteString(transcript)

	raw, err := e.complete(ctx, relationPrompt, b.String())
	if err != nil {
		return nil, fmt.Errorf("graphex: relation extraction: %w", err)
	}
	var reply relationReply
	if err := llm.ParseJSON(raw, &reply); err != nil {
		return nil, memory.NewProviderError("llm", memory.FailureMalformed,
			fmt.Errorf("graphex: relation output unparseable: %w", err))
	}
	return reply.Relations, nil
}

// resolveEntities soft-merges each extracted entity against the graph store
// and returns a lowercase label → entity id table. An existing entity at or
// above the merge threshold is reused; otherwise a new one is upserted with
// the label embedding attached.
func (e *Extractor) resolveEntities(ctx context.Context, scope memory.Scope, entities []entityEntry) (map[string]string, error) {
	resolved := make(map[string]string, len(entities))

	for _, ent := range entities {
		embedding, err := e.embedder.Embed(ctx, ent.Label, embeddings.PurposeAdd)
		if err != nil {
			return nil, fmt.Errorf("graphex: embed entity label: %w", err)
		}

		candidates, err := e.graph.SimilarEntities(ctx, scope, ent.Label, embedding, e.merge.TopK)
		if err != nil {
			return nil, fmt.Errorf("graphex: similar entities: %w", err)
		}

		var best *memory.ScoredEntity
		for i := range candidates {
			if best == nil || candidates[i].Score > best.Score {
				best = &candidates[i]
			}
		}
		if best != nil && best.Score >= e.merge.Threshold {
			resolved[strings.ToLower(ent.Label)] = best.Entity.ID
			continue
		}

		created, err := e.graph.UpsertEntity(ctx, memory.Entity{
			Label:     ent.Label,
			Type:      ent.Type,
			Scope:     scope,
			Embedding: embedding,
		})
		if err != nil {
			return nil, fmt.Errorf("graphex: upsert entity: %w", err)
		}
		resolved[strings.ToLower(ent.Label)] = created.ID
	}

	return resolved, nil
}

// upsertRelations writes the relations whose endpoints resolved. Relations
// naming labels outside the entity list are dropped with a warning.
func (e *Extractor) upsertRelations(ctx context.Context, scope memory.Scope, relations []relationEntry, resolved map[string]string) error {
	for _, rel := range relations {
		predicate := strings.TrimSpace(rel.Predicate)
		if predicate == "" {
			continue
		}
		srcID, srcOK := resolved[strings.ToLower(strings.TrimSpace(rel.Source))]
		dstID, dstOK := resolved[strings.ToLower(strings.TrimSpace(rel.Target))]
		if !srcOK || !dstOK {
			slog.Warn("dropping relation with unresolved endpoint",
				"source", rel.Source, "target", rel.Target, "predicate", predicate)
			continue
		}

		// A missing or out-of-range weight defaults to full strength.
		weight := rel.Weight
		if weight <= 0 || weight > 1 {
			weight = 1
		}

		err := e.graph.UpsertRelation(ctx, memory.Relation{
			SourceID:  srcID,
			TargetID:  dstID,
			Predicate: predicate,
			Weight:    weight,
			Scope:     scope,
		})
		if err != nil {
			return fmt.Errorf("graphex: upsert relation: %w", err)
		}
	}
	return nil
}

func (e *Extractor) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := e.provider.Complete(ctx, llm.Request{
		SystemPrompt: system,
		Messages:     []llm.Message{{Role: "user", Content: user}},
		JSONOnly:     true,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
