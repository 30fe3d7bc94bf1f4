package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/antzucaro/matchr"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/Gabrielmcp78/mem0-sub000/pkg/memory"
)

// GraphStore is the knowledge graph backed by the graph_entities and
// graph_relations tables. Soft-merge candidate lookup prefers pgvector
// similarity over label embeddings and falls back to Jaro-Winkler label
// distance when either side has no embedding.
//
// Obtain one via [Store.Graph] rather than constructing directly.
// All methods are safe for concurrent use.
type GraphStore struct {
	pool *pgxpool.Pool
}

const entityColumns = "id, label, type, user_id, agent_id, run_id, attributes, created_at, updated_at"

// UpsertEntity implements [memory.GraphStore]. Attributes of an existing node
// are merged (jsonb ||) rather than replaced, so a refresh never loses
// earlier annotations.
func (s *GraphStore) UpsertEntity(ctx context.Context, e memory.Entity) (memory.Entity, error) {
	now := time.Now().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now

	attrs, err := marshalMetadata(e.Attributes)
	if err != nil {
		return memory.Entity{}, storeErr("graph_store", "upsert entity", err)
	}

	var embedding any
	if len(e.Embedding) > 0 {
		embedding = pgvector.NewVector(e.Embedding)
	}

	q := fmt.Sprintf(`
		INSERT INTO graph_entities
		    (id, label, type, user_id, agent_id, run_id, attributes, embedding, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
		    label      = EXCLUDED.label,
		    type       = EXCLUDED.type,
		    attributes = graph_entities.attributes || EXCLUDED.attributes,
		    embedding  = COALESCE(EXCLUDED.embedding, graph_entities.embedding),
		    updated_at = EXCLUDED.updated_at
		RETURNING %s`, entityColumns)

	rows, err := s.pool.Query(ctx, q,
		e.ID, e.Label, e.Type,
		e.Scope.UserID, e.Scope.AgentID, e.Scope.SessionID,
		attrs, embedding, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return memory.Entity{}, storeErr("graph_store", "upsert entity", err)
	}
	stored, err := pgx.CollectOneRow(rows, scanEntity)
	if err != nil {
		return memory.Entity{}, storeErr("graph_store", "upsert entity", err)
	}
	stored.Embedding = e.Embedding
	return stored, nil
}

// SimilarEntities implements [memory.GraphStore]. With an embedding the
// lookup runs as a pgvector nearest-neighbour query; without one, scope
// candidates are scored by Jaro-Winkler label distance.
func (s *GraphStore) SimilarEntities(ctx context.Context, scope memory.Scope, label string, embedding []float32, k int) ([]memory.ScoredEntity, error) {
	if k <= 0 {
		k = 5
	}
	if len(embedding) > 0 {
		return s.similarByEmbedding(ctx, scope, embedding, k)
	}
	return s.similarByLabel(ctx, scope, label, k)
}

func (s *GraphStore) similarByEmbedding(ctx context.Context, scope memory.Scope, embedding []float32, k int) ([]memory.ScoredEntity, error) {
	args := []any{pgvector.NewVector(embedding)}
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	conditions := scopeConditions(scope, next)
	conditions = append(conditions, "embedding IS NOT NULL")

	args = append(args, k)
	limitArg := fmt.Sprintf("$%d", len(args))

	q := fmt.Sprintf(`
		SELECT %s,
		       embedding <=> $1 AS distance
		FROM   graph_entities
		WHERE  %s
		ORDER  BY distance
		LIMIT  %s`, entityColumns, strings.Join(conditions, "\n  AND "), limitArg)

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, storeErr("graph_store", "similar entities", err)
	}
	scored, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (memory.ScoredEntity, error) {
		var (
			se       memory.ScoredEntity
			distance float64
		)
		if err := scanEntityInto(row, &se.Entity, &distance); err != nil {
			return memory.ScoredEntity{}, err
		}
		se.Score = 1 - distance
		if se.Score < 0 {
			se.Score = 0
		}
		return se, nil
	})
	if err != nil {
		return nil, storeErr("graph_store", "scan similar entities", err)
	}
	return scored, nil
}

func (s *GraphStore) similarByLabel(ctx context.Context, scope memory.Scope, label string, k int) ([]memory.ScoredEntity, error) {
	entities, err := s.listEntities(ctx, scope)
	if err != nil {
		return nil, err
	}

	scored := make([]memory.ScoredEntity, 0, len(entities))
	for _, e := range entities {
		scored = append(scored, memory.ScoredEntity{
			Entity: e,
			Score:  labelSimilarity(label, e.Label),
		})
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Label < scored[j].Label
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// UpsertRelation implements [memory.GraphStore]. Re-upserting an existing
// edge replaces its weight.
func (s *GraphStore) UpsertRelation(ctx context.Context, r memory.Relation) error {
	const q = `
		INSERT INTO graph_relations
		    (source_id, target_id, predicate, weight, user_id, agent_id, run_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		ON CONFLICT (source_id, predicate, target_id) DO UPDATE SET
		    weight     = EXCLUDED.weight,
		    updated_at = now()`

	_, err := s.pool.Exec(ctx, q,
		r.SourceID, r.TargetID, r.Predicate, r.Weight,
		r.Scope.UserID, r.Scope.AgentID, r.Scope.SessionID,
	)
	if err != nil {
		return storeErr("graph_store", "upsert relation", err)
	}
	return nil
}

// Search implements [memory.GraphStore]. The scope's triples are fetched and
// scored by the best Jaro-Winkler match between query terms and the triple's
// labels and predicate, matching the in-memory store's semantics.
func (s *GraphStore) Search(ctx context.Context, scope memory.Scope, query string, limit int) ([]memory.GraphResult, error) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil, nil
	}

	var args []any
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	conditions := relationScopeConditions(scope, next)
	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, "\n  AND ")
	}

	q := fmt.Sprintf(`
		SELECT src.label, r.predicate, tgt.label
		FROM   graph_relations r
		JOIN   graph_entities src ON src.id = r.source_id
		JOIN   graph_entities tgt ON tgt.id = r.target_id
		%s`, whereClause)

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, storeErr("graph_store", "search graph", err)
	}
	triples, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (memory.GraphResult, error) {
		var gr memory.GraphResult
		err := row.Scan(&gr.Source, &gr.Predicate, &gr.Target)
		return gr, err
	})
	if err != nil {
		return nil, storeErr("graph_store", "scan graph rows", err)
	}

	const minScore = 0.5
	var results []memory.GraphResult
	for _, gr := range triples {
		var best float64
		for _, term := range terms {
			for _, candidate := range []string{gr.Source, gr.Predicate, gr.Target} {
				if score := labelSimilarity(term, candidate); score > best {
					best = score
				}
			}
		}
		if best < minScore {
			continue
		}
		gr.Score = best
		results = append(results, gr)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Source < results[j].Source
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// DeleteByScope implements [memory.GraphStore]. Relations cascade from
// entity deletion; scope-bound relations between surviving entities are
// removed explicitly.
func (s *GraphStore) DeleteByScope(ctx context.Context, scope memory.Scope) error {
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	relConditions := relationScopeConditions(scope, next)
	if len(relConditions) > 0 {
		q := "DELETE FROM graph_relations r WHERE " + strings.Join(relConditions, " AND ")
		if _, err := s.pool.Exec(ctx, q, args...); err != nil {
			return storeErr("graph_store", "delete relations by scope", err)
		}
	}

	args = nil
	conditions := scopeConditions(scope, next)
	if len(conditions) == 0 {
		return nil
	}
	q := "DELETE FROM graph_entities WHERE " + strings.Join(conditions, " AND ")
	if _, err := s.pool.Exec(ctx, q, args...); err != nil {
		return storeErr("graph_store", "delete entities by scope", err)
	}
	return nil
}

// Reset implements [memory.GraphStore].
func (s *GraphStore) Reset(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `TRUNCATE graph_relations, graph_entities`); err != nil {
		return storeErr("graph_store", "reset graph", err)
	}
	return nil
}

func (s *GraphStore) listEntities(ctx context.Context, scope memory.Scope) ([]memory.Entity, error) {
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	conditions := scopeConditions(scope, next)
	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, "\n  AND ")
	}

	q := fmt.Sprintf(`SELECT %s FROM graph_entities %s`, entityColumns, whereClause)

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, storeErr("graph_store", "list entities", err)
	}
	entities, err := pgx.CollectRows(rows, scanEntity)
	if err != nil {
		return nil, storeErr("graph_store", "scan entities", err)
	}
	return entities, nil
}

// scopeConditions builds equality conditions on the graph_entities scope
// columns for every non-empty scope field.
func scopeConditions(scope memory.Scope, next func(any) string) []string {
	var conditions []string
	if scope.UserID != "" {
		conditions = append(conditions, "user_id = "+next(scope.UserID))
	}
	if scope.AgentID != "" {
		conditions = append(conditions, "agent_id = "+next(scope.AgentID))
	}
	if scope.SessionID != "" {
		conditions = append(conditions, "run_id = "+next(scope.SessionID))
	}
	return conditions
}

// relationScopeConditions is scopeConditions against the r-aliased
// graph_relations table.
func relationScopeConditions(scope memory.Scope, next func(any) string) []string {
	var conditions []string
	if scope.UserID != "" {
		conditions = append(conditions, "r.user_id = "+next(scope.UserID))
	}
	if scope.AgentID != "" {
		conditions = append(conditions, "r.agent_id = "+next(scope.AgentID))
	}
	if scope.SessionID != "" {
		conditions = append(conditions, "r.run_id = "+next(scope.SessionID))
	}
	return conditions
}

func scanEntity(row pgx.CollectableRow) (memory.Entity, error) {
	var e memory.Entity
	if err := scanEntityInto(row, &e); err != nil {
		return memory.Entity{}, err
	}
	return e, nil
}

func scanEntityInto(row pgx.CollectableRow, e *memory.Entity, extra ...any) error {
	var attrs []byte
	dests := []any{
		&e.ID,
		&e.Label,
		&e.Type,
		&e.Scope.UserID,
		&e.Scope.AgentID,
		&e.Scope.SessionID,
		&attrs,
		&e.CreatedAt,
		&e.UpdatedAt,
	}
	dests = append(dests, extra...)
	if err := row.Scan(dests...); err != nil {
		return err
	}
	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &e.Attributes); err != nil {
			return fmt.Errorf("unmarshal attributes: %w", err)
		}
	}
	if len(e.Attributes) == 0 {
		e.Attributes = nil
	}
	return nil
}

// labelSimilarity scores two labels in [0, 1] using case-insensitive
// Jaro-Winkler distance.
func labelSimilarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	return matchr.JaroWinkler(a, b, false)
}
