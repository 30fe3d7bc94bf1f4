// Package reconcile decides how candidate facts change existing memory.
//
// For each batch of candidates the reconciler embeds every candidate,
// retrieves near-neighbour facts from the vector store, presents the union
// to the LLM with identifiers remapped to small integers, and parses the
// returned decisions with the batch tie-break rules: last decision per
// existing id wins, unknown UPDATE targets downgrade to ADD, unknown DELETE
// targets are dropped, NONE entries are discarded.
//
// Reconciliation is the one stage that must not partially succeed: an LLM
// failure here aborts the batch before any write happens.
package reconcile

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

// neighbourLimit is the number of near-neighbours fetched per candidate. No
// similarity threshold is applied; weak neighbours still give the model
// context to decide NONE against.
const neighbourLimit = 5

// Reconciler runs the decision stage against a vector store and an LLM.
type Reconciler struct {
	provider llm.Provider
	embedder embeddings.Provider
	vectors  memory.VectorStore
}

// New creates a Reconciler. All three handles are required.
func New(provider llm.Provider, embedder embeddings.Provider, vectors memory.VectorStore) *Reconciler {
	return &Reconciler{provider: provider, embedder: embedder, vectors: vectors}
}

// contextEntry is one existing fact as presented to the model.
type contextEntry struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// decisionEntry is one element of the model's {"memory": [...]} reply.
type decisionEntry struct {
	ID        int    `json:"id"`
	Text      string `json:"text"`
	Event     string `json:"event"`
	OldMemory string `json:"old_memory"`
}

type decisionReply struct {
	Memory []decisionEntry `json:"memory"`
}

// Reconcile returns the decisions for a batch of candidate facts within
// scope. An empty candidate set returns no decisions and makes no provider
// calls. Any provider failure aborts the whole batch; the caller must not
// have written anything yet.
func (r *Reconciler) Reconcile(ctx context.Context, scope memory.Scope, candidates []string) ([]memory.Decision, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	existing, err := r.gatherContext(ctx, scope, candidates)
	if err != nil {
		return nil, err
	}

	entries, err := r.decide(ctx, existing, candidates)
	if err != nil {
		return nil, err
	}

	return resolve(entries, existing), nil
}

// gatherContext embeds every candidate and unions the near-neighbour facts,
// ordered by first appearance. The slice index is the remapped id handed to
// the model.
func (r *Reconciler) gatherContext(ctx context.Context, scope memory.Scope, candidates []string) ([]memory.Fact, error) {
	vectors, err := r.embedder.EmbedBatch(ctx, candidates, embeddings.PurposeAdd)
	if err != nil {
		return nil, fmt.Errorf("reconcile: embed candidates: %w", err)
	}

	seen := make(map[string]struct{})
	var existing []memory.Fact
	for _, vec := range vectors {
		results, err := r.vectors.Search(ctx, vec, memory.SearchOpts{
			Filter: scope.Filter(),
			Limit:  neighbourLimit,
		})
		if err != nil {
			return nil, fmt.Errorf("reconcile: neighbour search: %w", err)
		}
		for _, res := range results {
			if _, dup := seen[res.Fact.ID]; dup {
				continue
			}
			seen[res.Fact.ID] = struct{}{}
			existing = append(existing, res.Fact)
		}
	}
	return existing, nil
}

// decide sends the remapped context and candidates to the model and parses
// the reply, with one repair re-prompt on malformed output.
func (r *Reconciler) decide(ctx context.Context, existing []memory.Fact, candidates []string) ([]decisionEntry, error) {
	prompt, err := buildUserPrompt(existing, candidates)
	if err != nil {
		return nil, err
	}

	raw, err := r.complete(ctx, decisionPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("reconcile: decision call: %w", err)
	}

	var reply decisionReply
	if parseErr := llm.ParseJSON(raw, &reply); parseErr != nil {
		raw, err = r.complete(ctx, repairPrompt, raw)
		if err != nil {
			return nil, fmt.Errorf("reconcile: repair call: %w", err)
		}
		if parseErr = llm.ParseJSON(raw, &reply); parseErr != nil {
			return nil, memory.NewProviderError("llm", memory.FailureMalformed,
				fmt.Errorf("reconcile: decision output unparseable after repair: %w", parseErr))
		}
	}
	return reply.Memory, nil
}

func (r *Reconciler) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := r.provider.Complete(ctx, llm.Request{
		SystemPrompt: system,
		Messages:     []llm.Message{{Role: "user", Content: user}},
		JSONOnly:     true,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

func buildUserPrompt(existing []memory.Fact, candidates []string) (string, error) {
	entries := make([]contextEntry, len(existing))
	for i, fact := range existing {
		entries[i] = contextEntry{ID: i, Text: fact.Text}
	}

	existingJSON, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("reconcile: marshal context: %w", err)
	}
	factsJSON, err := json.Marshal(candidates)
	if err != nil {
		return "", fmt.Errorf("reconcile: marshal candidates: %w", err)
	}

	var b strings.Builder
	b.WriteString("Existing memory entries:\n")
	b.Write(existingJSON)
	b.WriteString("\n\nNew facts:\n")
	b.Write(factsJSON)
	return b.String(), nil
}

// resolve maps the model's entries back to real identifiers and applies the
// tie-break rules. The returned decisions carry empty TargetID for ADD; the
// persistence stage mints real ids.
func resolve(entries []decisionEntry, existing []memory.Fact) []memory.Decision {
	decisions := make([]memory.Decision, 0, len(entries))

	// Index of the latest decision per existing fact id. When the same id
	// appears again, the earlier decision becomes NONE (removed).
	latest := make(map[string]int)

	for _, entry := range entries {
		event := memory.EventKind(strings.ToUpper(strings.TrimSpace(entry.Event)))
		text := strings.TrimSpace(entry.Text)

		switch event {
		case memory.EventNone:
			continue

		case memory.EventAdd:
			if text == "" {
				continue
			}
			decisions = append(decisions, memory.Decision{Event: memory.EventAdd, Text: text})

		case memory.EventUpdate:
			if text == "" {
				continue
			}
			if entry.ID < 0 || entry.ID >= len(existing) {
				// Unresolvable target. The information is still new, so keep
				// it as an ADD.
				slog.Warn("update decision references unknown id, downgrading to add",
					"id", entry.ID, "known", len(existing))
				decisions = append(decisions, memory.Decision{Event: memory.EventAdd, Text: text})
				continue
			}
			target := existing[entry.ID]
			decisions = supersede(decisions, latest, target.ID)
			latest[target.ID] = len(decisions)
			decisions = append(decisions, memory.Decision{
				Event:    memory.EventUpdate,
				TargetID: target.ID,
				Text:     text,
				OldText:  target.Text,
			})

		case memory.EventDelete:
			if entry.ID < 0 || entry.ID >= len(existing) {
				slog.Warn("delete decision references unknown id, dropping",
					"id", entry.ID, "known", len(existing))
				continue
			}
			target := existing[entry.ID]
			decisions = supersede(decisions, latest, target.ID)
			latest[target.ID] = len(decisions)
			decisions = append(decisions, memory.Decision{
				Event:    memory.EventDelete,
				TargetID: target.ID,
				OldText:  target.Text,
			})

		default:
			slog.Warn("decision with unknown event kind, dropping", "event", entry.Event)
		}
	}

	return decisions
}

// supersede removes an earlier decision targeting id, shifting the latest
// index table accordingly. Last decision per id wins.
func supersede(decisions []memory.Decision, latest map[string]int, id string) []memory.Decision {
	idx, ok := latest[id]
	if !ok {
		return decisions
	}
	decisions = append(decisions[:idx], decisions[idx+1:]...)
	for target, i := range latest {
		if i > idx {
			latest[target] = i - 1
		}
	}
	delete(latest, id)
	return decisions
}
