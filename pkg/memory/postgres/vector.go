package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/Gabrielmcp78/mem0-sub000/pkg/memory"
)

// VectorStore is the fact store backed by a PostgreSQL facts table with
// a pgvector HNSW index for fast approximate nearest-neighbour search.
//
// Obtain one via [Store.Vectors] rather than constructing directly.
// All methods are safe for concurrent use.
type VectorStore struct {
	pool *pgxpool.Pool
}

const factColumns = "id, text, hash, user_id, agent_id, run_id, metadata, created_at, updated_at"

// Insert implements [memory.VectorStore].
func (s *VectorStore) Insert(ctx context.Context, vector []float32, fact memory.Fact) error {
	const q = `
		INSERT INTO facts
		    (id, text, hash, user_id, agent_id, run_id, metadata, embedding, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	meta, err := marshalMetadata(fact.Metadata)
	if err != nil {
		return storeErr("vector_store", "insert fact", err)
	}
	_, err = s.pool.Exec(ctx, q,
		fact.ID,
		fact.Text,
		fact.Hash,
		fact.Scope.UserID,
		fact.Scope.AgentID,
		fact.Scope.SessionID,
		meta,
		pgvector.NewVector(vector),
		fact.CreatedAt,
		fact.UpdatedAt,
	)
	if err != nil {
		return storeErr("vector_store", "insert fact", err)
	}
	return nil
}

// Update implements [memory.VectorStore].
func (s *VectorStore) Update(ctx context.Context, vector []float32, fact memory.Fact) error {
	const q = `
		UPDATE facts SET
		    text       = $2,
		    hash       = $3,
		    metadata   = $4,
		    embedding  = $5,
		    updated_at = $6
		WHERE id = $1`

	meta, err := marshalMetadata(fact.Metadata)
	if err != nil {
		return storeErr("vector_store", "update fact", err)
	}
	tag, err := s.pool.Exec(ctx, q,
		fact.ID,
		fact.Text,
		fact.Hash,
		meta,
		pgvector.NewVector(vector),
		fact.UpdatedAt,
	)
	if err != nil {
		return storeErr("vector_store", "update fact", err)
	}
	if tag.RowsAffected() == 0 {
		return memory.ErrNotFound
	}
	return nil
}

// Delete implements [memory.VectorStore].
func (s *VectorStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM facts WHERE id = $1`, id)
	if err != nil {
		return storeErr("vector_store", "delete fact", err)
	}
	if tag.RowsAffected() == 0 {
		return memory.ErrNotFound
	}
	return nil
}

// Get implements [memory.VectorStore].
func (s *VectorStore) Get(ctx context.Context, id string) (*memory.Fact, error) {
	q := fmt.Sprintf(`SELECT %s FROM facts WHERE id = $1`, factColumns)

	rows, err := s.pool.Query(ctx, q, id)
	if err != nil {
		return nil, storeErr("vector_store", "get fact", err)
	}
	fact, err := pgx.CollectOneRow(rows, scanFact)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, memory.ErrNotFound
	}
	if err != nil {
		return nil, storeErr("vector_store", "get fact", err)
	}
	return &fact, nil
}

// Search implements [memory.VectorStore]. Cosine distance from the pgvector
// <=> operator is converted to a similarity score in [0, 1].
func (s *VectorStore) Search(ctx context.Context, vector []float32, opts memory.SearchOpts) ([]memory.SearchResult, error) {
	args := []any{pgvector.NewVector(vector)} // $1 = query vector
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	conditions, err := filterConditions(opts.Filter, next)
	if err != nil {
		return nil, storeErr("vector_store", "search facts", err)
	}
	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, "\n  AND ")
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	limitArg := fmt.Sprintf("$%d", len(args))

	q := fmt.Sprintf(`
		SELECT %s,
		       embedding <=> $1 AS distance
		FROM   facts
		%s
		ORDER  BY distance, updated_at DESC
		LIMIT  %s`, factColumns, whereClause, limitArg)

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, storeErr("vector_store", "search facts", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (memory.SearchResult, error) {
		var (
			sr       memory.SearchResult
			distance float64
		)
		if err := scanFactInto(row, &sr.Fact, &distance); err != nil {
			return memory.SearchResult{}, err
		}
		sr.Score = 1 - distance
		if sr.Score < 0 {
			sr.Score = 0
		}
		return sr, nil
	})
	if err != nil {
		return nil, storeErr("vector_store", "scan search rows", err)
	}

	if opts.Threshold > 0 {
		kept := results[:0]
		for _, r := range results {
			if r.Score >= opts.Threshold {
				kept = append(kept, r)
			}
		}
		results = kept
	}
	if results == nil {
		results = []memory.SearchResult{}
	}
	return results, nil
}

// List implements [memory.VectorStore].
func (s *VectorStore) List(ctx context.Context, filter memory.Filter, limit int) ([]memory.Fact, error) {
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	conditions, err := filterConditions(filter, next)
	if err != nil {
		return nil, storeErr("vector_store", "list facts", err)
	}
	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, "\n  AND ")
	}

	limitClause := ""
	if limit > 0 {
		args = append(args, limit)
		limitClause = fmt.Sprintf("LIMIT $%d", len(args))
	}

	q := fmt.Sprintf(`
		SELECT %s
		FROM   facts
		%s
		ORDER  BY created_at, id
		%s`, factColumns, whereClause, limitClause)

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, storeErr("vector_store", "list facts", err)
	}
	facts, err := pgx.CollectRows(rows, scanFact)
	if err != nil {
		return nil, storeErr("vector_store", "scan list rows", err)
	}
	if facts == nil {
		facts = []memory.Fact{}
	}
	return facts, nil
}

// DeleteByFilter implements [memory.VectorStore].
func (s *VectorStore) DeleteByFilter(ctx context.Context, filter memory.Filter) ([]string, error) {
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	conditions, err := filterConditions(filter, next)
	if err != nil {
		return nil, storeErr("vector_store", "delete facts by filter", err)
	}
	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, "\n  AND ")
	}

	q := fmt.Sprintf(`DELETE FROM facts %s RETURNING id`, whereClause)

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, storeErr("vector_store", "delete facts by filter", err)
	}
	ids, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
		var id string
		err := row.Scan(&id)
		return id, err
	})
	if err != nil {
		return nil, storeErr("vector_store", "scan deleted ids", err)
	}
	return ids, nil
}

// Reset implements [memory.VectorStore].
func (s *VectorStore) Reset(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `TRUNCATE facts`); err != nil {
		return storeErr("vector_store", "reset facts", err)
	}
	return nil
}

// filterConditions converts a memory.Filter into SQL conditions using the
// incremental argument builder next. Metadata pairs use jsonb containment.
func filterConditions(filter memory.Filter, next func(any) string) ([]string, error) {
	var conditions []string
	if filter.Scope.UserID != "" {
		conditions = append(conditions, "user_id = "+next(filter.Scope.UserID))
	}
	if filter.Scope.AgentID != "" {
		conditions = append(conditions, "agent_id = "+next(filter.Scope.AgentID))
	}
	if filter.Scope.SessionID != "" {
		conditions = append(conditions, "run_id = "+next(filter.Scope.SessionID))
	}
	if len(filter.Metadata) > 0 {
		meta, err := json.Marshal(filter.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal metadata filter: %w", err)
		}
		conditions = append(conditions, "metadata @> "+next(string(meta))+"::jsonb")
	}
	return conditions, nil
}

// scanFact scans a row selected with factColumns.
func scanFact(row pgx.CollectableRow) (memory.Fact, error) {
	var f memory.Fact
	if err := scanFactInto(row, &f); err != nil {
		return memory.Fact{}, err
	}
	return f, nil
}

// scanFactInto scans factColumns into f, followed by any extra destinations.
func scanFactInto(row pgx.CollectableRow, f *memory.Fact, extra ...any) error {
	var meta []byte
	dests := []any{
		&f.ID,
		&f.Text,
		&f.Hash,
		&f.Scope.UserID,
		&f.Scope.AgentID,
		&f.Scope.SessionID,
		&meta,
		&f.CreatedAt,
		&f.UpdatedAt,
	}
	dests = append(dests, extra...)
	if err := row.Scan(dests...); err != nil {
		return err
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &f.Metadata); err != nil {
			return fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	if len(f.Metadata) == 0 {
		f.Metadata = nil
	}
	return nil
}

// marshalMetadata encodes fact metadata for the jsonb column. Nil maps
// become the empty object.
func marshalMetadata(m map[string]string) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}
	return string(b), nil
}
