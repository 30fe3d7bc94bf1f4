// Package engine implements the orchestrator facade over the memory
// pipeline: ingest (extraction, reconciliation, persistence, graph
// extraction) and retrieval, plus the maintenance operations.
//
// The engine owns no global state. It accepts already-constructed provider
// handles and wraps every provider call with a shared admission semaphore, a
// per-provider timeout, the transient retry policy, and a circuit breaker.
// Ingest fans out the vector path and the graph path concurrently; a vector
// failure that aborts the batch also cancels in-flight graph work, while
// graph failures never abort the vector path.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/Gabrielmcp78/mem0-sub000/internal/extract"
	"github.com/Gabrielmcp78/mem0-sub000/internal/graphex"
	"github.com/Gabrielmcp78/mem0-sub000/internal/observe"
	"github.com/Gabrielmcp78/mem0-sub000/internal/reconcile"
	"github.com/Gabrielmcp78/mem0-sub000/internal/resilience"
	"github.com/Gabrielmcp78/mem0-sub000/pkg/memory"
	"github.com/Gabrielmcp78/mem0-sub000/pkg/provider/embeddings"
	"github.com/Gabrielmcp78/mem0-sub000/pkg/provider/llm"
)

// Default per-provider call timeouts.
const (
	defaultLLMTimeout      = 30 * time.Second
	defaultEmbedderTimeout = 5 * time.Second
	defaultStoreTimeout    = 5 * time.Second
)

// defaultMaxConcurrency bounds in-flight provider calls per engine.
const defaultMaxConcurrency = 8

// DefaultSearchLimit is applied by transports when a retrieval request
// leaves Limit unset.
const DefaultSearchLimit = 100

// Config assembles an [Engine] from constructed provider handles.
type Config struct {
	// LLM is the completion provider. Required.
	LLM llm.Provider

	// Embedder is the embedding provider. Required.
	Embedder embeddings.Provider

	// Vectors is the fact store. Required.
	Vectors memory.VectorStore

	// History is the append-only change log. Required.
	History memory.HistoryLog

	// Graph enables the knowledge-graph layer when non-nil.
	Graph memory.GraphStore

	// GraphMerge tunes the entity soft merge of the graph stage.
	GraphMerge graphex.MergeConfig

	// Retry is the transient retry policy for provider calls. Zero value
	// uses resilience.DefaultRetryPolicy.
	Retry resilience.RetryPolicy

	// Per-provider call timeouts. Zero values use the package defaults
	// (30s LLM, 5s embedder, 5s stores).
	LLMTimeout      time.Duration
	EmbedderTimeout time.Duration
	StoreTimeout    time.Duration

	// MaxConcurrency bounds in-flight provider calls. Default: 8.
	MaxConcurrency int64

	// AllowReset must be set for Reset to be callable. Defaults to off so a
	// misrouted call cannot wipe the stores.
	AllowReset bool

	// ExtractionPrompt replaces the built-in fact-extraction instruction for
	// every ingest. Per-request overrides still take precedence.
	ExtractionPrompt string

	// Metrics receives instrument updates. Nil uses observe.DefaultMetrics.
	Metrics *observe.Metrics

	// Telemetry receives per-operation records. Nil disables emission.
	Telemetry *observe.Telemetry
}

// Engine is the orchestrator facade. Safe for concurrent use.
type Engine struct {
	llm      llm.Provider
	embedder embeddings.Provider
	vectors  memory.VectorStore
	history  memory.HistoryLog
	graph    memory.GraphStore

	reconciler *reconcile.Reconciler
	graphex    *graphex.Extractor

	extractionPrompt string
	allowReset       bool

	metrics       *observe.Metrics
	telemetry     *observe.Telemetry
	providerKinds []string
}

// New validates the configuration and builds an Engine with guarded
// provider handles.
func New(cfg Config) (*Engine, error) {
	switch {
	case cfg.LLM == nil:
		return nil, fmt.Errorf("engine: config requires an LLM provider")
	case cfg.Embedder == nil:
		return nil, fmt.Errorf("engine: config requires an embedding provider")
	case cfg.Vectors == nil:
		return nil, fmt.Errorf("engine: config requires a vector store")
	case cfg.History == nil:
		return nil, fmt.Errorf("engine: config requires a history log")
	}

	if cfg.LLMTimeout <= 0 {
		cfg.LLMTimeout = defaultLLMTimeout
	}
	if cfg.EmbedderTimeout <= 0 {
		cfg.EmbedderTimeout = defaultEmbedderTimeout
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = defaultStoreTimeout
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = defaultMaxConcurrency
	}

	sem := semaphore.NewWeighted(cfg.MaxConcurrency)

	e := &Engine{
		llm:      &guardedLLM{inner: cfg.LLM, g: newGuard("llm", sem, cfg.Retry, cfg.LLMTimeout)},
		embedder: &guardedEmbedder{inner: cfg.Embedder, g: newGuard("embedder", sem, cfg.Retry, cfg.EmbedderTimeout)},
		vectors:  &guardedVectors{inner: cfg.Vectors, g: newGuard("vector_store", sem, cfg.Retry, cfg.StoreTimeout)},
		history:  &guardedHistory{inner: cfg.History, g: newGuard("history_log", sem, cfg.Retry, cfg.StoreTimeout)},

		extractionPrompt: cfg.ExtractionPrompt,
		allowReset:       cfg.AllowReset,
		metrics:          cfg.Metrics,
		telemetry:        cfg.Telemetry,
	}
	if e.metrics == nil {
		e.metrics = observe.DefaultMetrics()
	}

	e.providerKinds = []string{
		"llm:" + cfg.LLM.ModelID(),
		"embedder:" + cfg.Embedder.ModelID(),
		"vector_store",
		"history_log",
	}

	if cfg.Graph != nil {
		e.graph = &guardedGraph{inner: cfg.Graph, g: newGuard("graph_store", sem, cfg.Retry, cfg.StoreTimeout)}
		e.graphex = graphex.New(e.llm, e.embedder, e.graph, cfg.GraphMerge)
		e.providerKinds = append(e.providerKinds, "graph_store")
	}

	e.reconciler = reconcile.New(e.llm, e.embedder, e.vectors)

	return e, nil
}

// AddRequest is one ingest call.
type AddRequest struct {
	// Messages is the ordered conversation transcript.
	Messages []memory.Message

	// Scope partitions the created facts. At least one component required.
	Scope memory.Scope

	// Metadata is attached to every fact created by this call.
	Metadata map[string]string

	// Raw bypasses extraction and reconciliation: each message becomes one
	// unconditional ADD and no LLM call is made (the infer=false mode).
	Raw bool

	// PromptOverride replaces the fact-extraction instruction for this call.
	PromptOverride string

	// UseSystemPrompt lets a system message in Messages replace the
	// fact-extraction instruction. Off by default; system messages are
	// otherwise excluded from extraction entirely.
	UseSystemPrompt bool
}

// AddResult is the outcome of one applied decision.
type AddResult struct {
	// ID is the fact identifier the decision targeted or created.
	ID string `json:"id"`

	// Memory is the fact text after the event (empty for DELETE).
	Memory string `json:"memory,omitempty"`

	// PreviousMemory is the prior text, set for UPDATE and DELETE.
	PreviousMemory string `json:"previous_memory,omitempty"`

	// Event is the applied change kind.
	Event memory.EventKind `json:"event"`

	// Error describes a per-decision failure; sibling decisions still
	// proceed. ErrorKind carries the envelope kind for programmatic checks.
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
}

// Add ingests a batch of messages: extraction, reconciliation, and
// persistence on the vector path, with graph extraction running
// concurrently when configured. The result lists one entry per applied
// decision; per-decision failures are captured in the entry rather than
// aborting the batch. A reconciliation failure aborts before any write and
// returns an IngestError.
func (e *Engine) Add(ctx context.Context, req AddRequest) ([]AddResult, error) {
	started := e.beginOp(ctx)
	var opErr error
	defer func() { e.finishOp(ctx, "add", started, opErr) }()

	if err := req.Scope.Validate(); err != nil {
		opErr = err
		return nil, err
	}
	if len(req.Messages) == 0 {
		return nil, nil
	}

	if req.Raw {
		return e.persist(ctx, req.Scope, req.Metadata, rawDecisions(req.Messages)), nil
	}

	candidates, err := e.extractCandidates(ctx, req)
	if err != nil {
		opErr = err
		return nil, err
	}

	var results []AddResult
	g, gctx := errgroup.WithContext(ctx)

	// Vector path: reconciliation then persistence. Its failure cancels
	// gctx and with it any in-flight graph work.
	g.Go(func() error {
		if len(candidates) == 0 {
			return nil
		}

		reconcileStart := time.Now()
		decisions, err := e.reconciler.Reconcile(gctx, req.Scope, candidates)
		e.metrics.ReconcileDuration.Record(gctx, time.Since(reconcileStart).Seconds())
		if err != nil {
			return &memory.IngestError{Stage: "reconcile", Err: err}
		}

		persistStart := time.Now()
		results = e.persist(gctx, req.Scope, req.Metadata, decisions)
		e.metrics.PersistDuration.Record(gctx, time.Since(persistStart).Seconds())
		return nil
	})

	// Graph path: failures are isolated, logged and swallowed.
	if e.graphex != nil {
		transcript := extract.Transcript(req.Messages)
		g.Go(func() error {
			graphStart := time.Now()
			if err := e.graphex.Process(gctx, req.Scope, transcript); err != nil {
				if gctx.Err() == nil {
					slog.Warn("graph extraction failed, vector path unaffected", "error", err)
				}
			}
			e.metrics.GraphDuration.Record(gctx, time.Since(graphStart).Seconds())
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		opErr = err
		return nil, err
	}
	return results, nil
}

// extractCandidates runs the extraction stage with the effective prompt
// override for this request.
func (e *Engine) extractCandidates(ctx context.Context, req AddRequest) ([]string, error) {
	prompt := e.extractionPrompt
	if req.PromptOverride != "" {
		prompt = req.PromptOverride
	}

	var opts []extract.Option
	if prompt != "" {
		opts = append(opts, extract.WithPrompt(prompt))
	}
	if req.UseSystemPrompt {
		opts = append(opts, extract.WithSystemPromptOverride())
	}

	start := time.Now()
	candidates, err := extract.New(e.llm, opts...).Extract(ctx, req.Messages)
	e.metrics.ExtractDuration.Record(ctx, time.Since(start).Seconds())
	return candidates, err
}

// rawDecisions maps each message to one unconditional ADD.
func rawDecisions(messages []memory.Message) []memory.Decision {
	candidates := extract.Passthrough(messages)
	decisions := make([]memory.Decision, len(candidates))
	for i, text := range candidates {
		decisions[i] = memory.Decision{Event: memory.EventAdd, Text: text}
	}
	return decisions
}

// SearchRequest is one retrieval call.
type SearchRequest struct {
	// Query is the natural-language search text.
	Query string

	// Scope partitions the search. At least one component required.
	Scope memory.Scope

	// Filter adds metadata equality constraints on top of the scope.
	Filter map[string]string

	// Limit caps the result count. Zero returns an empty set; negative is
	// rejected. Transports default this to DefaultSearchLimit.
	Limit int

	// Threshold drops results scoring below it. Zero means no threshold.
	Threshold float64
}

// SearchResponse carries ranked facts plus graph relations when a graph
// store is configured.
type SearchResponse struct {
	Results   []memory.SearchResult `json:"results"`
	Relations []memory.GraphResult  `json:"relations,omitempty"`
}

// Search embeds the query and runs the vector search and the graph search
// concurrently. Retrieval is all-or-nothing: any provider failure aborts the
// call. Results are ordered by descending score, ties by descending
// updated_at.
func (e *Engine) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	started := e.beginOp(ctx)
	var opErr error
	defer func() { e.finishOp(ctx, "search", started, opErr) }()
	defer func() {
		e.metrics.SearchDuration.Record(ctx, time.Since(started).Seconds())
	}()

	if err := req.Scope.Validate(); err != nil {
		opErr = err
		return nil, err
	}
	if req.Limit < 0 {
		opErr = fmt.Errorf("%w: negative limit %d", memory.ErrInvalidArguments, req.Limit)
		return nil, opErr
	}
	if req.Limit == 0 {
		return &SearchResponse{}, nil
	}

	vector, err := e.embedder.Embed(ctx, req.Query, embeddings.PurposeSearch)
	if err != nil {
		opErr = err
		return nil, err
	}

	resp := &SearchResponse{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		results, err := e.vectors.Search(gctx, vector, memory.SearchOpts{
			Filter:    memory.Filter{Scope: req.Scope, Metadata: req.Filter},
			Limit:     req.Limit,
			Threshold: req.Threshold,
		})
		if err != nil {
			return err
		}
		resp.Results = results
		return nil
	})

	if e.graph != nil {
		g.Go(func() error {
			relations, err := e.graph.Search(gctx, req.Scope, req.Query, req.Limit)
			if err != nil {
				return err
			}
			resp.Relations = relations
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		opErr = err
		return nil, err
	}

	sortResults(resp.Results)
	return resp, nil
}

// sortResults orders by descending score, ties by descending updated_at.
func sortResults(results []memory.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Fact.UpdatedAt.After(results[j].Fact.UpdatedAt)
	})
}

// Get returns a live fact by id. Deleted or unknown ids return ErrNotFound.
func (e *Engine) Get(ctx context.Context, id string) (*memory.Fact, error) {
	started := e.beginOp(ctx)
	var opErr error
	defer func() { e.finishOp(ctx, "get", started, opErr) }()

	fact, err := e.vectors.Get(ctx, id)
	opErr = err
	return fact, err
}

// GetAll lists live facts within scope, optionally narrowed by a metadata
// filter. Zero limit returns an empty set; negative is rejected.
func (e *Engine) GetAll(ctx context.Context, scope memory.Scope, filter map[string]string, limit int) ([]memory.Fact, error) {
	started := e.beginOp(ctx)
	var opErr error
	defer func() { e.finishOp(ctx, "get_all", started, opErr) }()

	if err := scope.Validate(); err != nil {
		opErr = err
		return nil, err
	}
	if limit < 0 {
		opErr = fmt.Errorf("%w: negative limit %d", memory.ErrInvalidArguments, limit)
		return nil, opErr
	}
	if limit == 0 {
		return nil, nil
	}

	facts, err := e.vectors.List(ctx, memory.Filter{Scope: scope, Metadata: filter}, limit)
	opErr = err
	return facts, err
}

// History returns the append-only change log of a fact, oldest first. The
// log survives deletion of the fact itself.
func (e *Engine) History(ctx context.Context, factID string) ([]memory.HistoryEntry, error) {
	started := e.beginOp(ctx)
	var opErr error
	defer func() { e.finishOp(ctx, "history", started, opErr) }()

	entries, err := e.history.List(ctx, factID)
	opErr = err
	return entries, err
}

// Delete soft-deletes one fact: the vector is removed and a DELETE entry is
// appended. Deleting an unknown or already-deleted id returns ErrNotFound.
func (e *Engine) Delete(ctx context.Context, id string) error {
	started := e.beginOp(ctx)
	var opErr error
	defer func() { e.finishOp(ctx, "delete", started, opErr) }()

	fact, err := e.vectors.Get(ctx, id)
	if err != nil {
		opErr = err
		return err
	}

	if err := e.vectors.Delete(ctx, id); err != nil {
		opErr = err
		return err
	}

	if _, err := e.history.Append(ctx, memory.HistoryEntry{
		FactID:   id,
		PrevText: fact.Text,
		Kind:     memory.EventDelete,
		Scope:    fact.Scope,
	}); err != nil {
		opErr = err
		return err
	}

	e.metrics.RecordMemoryEvent(ctx, string(memory.EventDelete))
	return nil
}

// DeleteAll soft-deletes every fact within scope and removes the scope's
// graph subgraph. History is retained so past evolution stays auditable;
// each applied delete gets exactly one DELETE entry. Returns the number of
// facts actually deleted.
func (e *Engine) DeleteAll(ctx context.Context, scope memory.Scope) (int, error) {
	started := e.beginOp(ctx)
	var opErr error
	defer func() { e.finishOp(ctx, "delete_all", started, opErr) }()

	if err := scope.Validate(); err != nil {
		opErr = err
		return 0, err
	}

	facts, err := e.vectors.List(ctx, scope.Filter(), 0)
	if err != nil {
		opErr = err
		return 0, err
	}

	// Facts are deleted one by one from the snapshot so the history entries
	// and the count track exactly what was applied. A fact already gone by
	// the time its delete runs is skipped; facts arriving after the snapshot
	// stay live.
	deleted := 0
	for _, fact := range facts {
		if err := e.vectors.Delete(ctx, fact.ID); err != nil {
			if errors.Is(err, memory.ErrNotFound) {
				continue
			}
			opErr = err
			return deleted, err
		}
		if _, err := e.history.Append(ctx, memory.HistoryEntry{
			FactID:   fact.ID,
			PrevText: fact.Text,
			Kind:     memory.EventDelete,
			Scope:    fact.Scope,
		}); err != nil {
			slog.Warn("history append failed during delete_all", "fact_id", fact.ID, "error", err)
		}
		e.metrics.RecordMemoryEvent(ctx, string(memory.EventDelete))
		deleted++
	}

	if e.graph != nil {
		if err := e.graph.DeleteByScope(ctx, scope); err != nil {
			slog.Warn("graph delete failed during delete_all", "error", err)
		}
	}

	return deleted, nil
}

// Reset purges every store the engine owns: facts, history, and graph. It
// must be enabled explicitly via Config.AllowReset.
func (e *Engine) Reset(ctx context.Context) error {
	started := e.beginOp(ctx)
	var opErr error
	defer func() { e.finishOp(ctx, "reset", started, opErr) }()

	if !e.allowReset {
		opErr = memory.ErrResetNotAllowed
		return opErr
	}

	var errs []error
	if err := e.vectors.Reset(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := e.history.Reset(ctx); err != nil {
		errs = append(errs, err)
	}
	if e.graph != nil {
		if err := e.graph.Reset(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	opErr = errors.Join(errs...)
	return opErr
}

// beginOp marks an operation in flight and returns its start time.
func (e *Engine) beginOp(ctx context.Context) time.Time {
	e.metrics.ActiveOperations.Add(ctx, 1)
	return time.Now()
}

// finishOp balances the in-flight gauge and emits the telemetry record.
func (e *Engine) finishOp(ctx context.Context, op string, started time.Time, err error) {
	e.metrics.ActiveOperations.Add(ctx, -1)
	e.telemetry.Emit(ctx, op, e.providerKinds, started, err)
}
