package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/Gabrielmcp78/mem0-sub000/pkg/memory"
)

// Compile-time interface checks.
var (
	_ memory.VectorStore = (*VectorStore)(nil)
	_ memory.GraphStore  = (*GraphStore)(nil)
)

// Store is the PostgreSQL-backed store bundle. It holds a single
// [pgxpool.Pool] and exposes the two persistent layers:
//
//   - [Store.Vectors] returns a [VectorStore] implementing [memory.VectorStore]
//   - [Store.Graph] returns a [GraphStore] implementing [memory.GraphStore]
//
// All operations are safe for concurrent use.
type Store struct {
	pool    *pgxpool.Pool
	vectors *VectorStore
	graph   *GraphStore
}

// NewStore creates a new Store, establishes a connection pool to the
// PostgreSQL database at dsn, registers pgvector types on every connection,
// and runs [Migrate] to ensure all required tables and extensions exist.
//
// embeddingDimensions must match the output dimension of the configured
// embedding model. Changing this value after the first migration requires a
// manual schema change.
func NewStore(ctx context.Context, dsn string, embeddingDimensions int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: parse dsn: %w", err)
	}

	// Register pgvector types on every new connection so that vector columns
	// can be scanned into and inserted from pgvector.Vector values.
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}

	if err := Migrate(ctx, pool, embeddingDimensions); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: migrate: %w", err)
	}

	return &Store{
		pool:    pool,
		vectors: &VectorStore{pool: pool},
		graph:   &GraphStore{pool: pool},
	}, nil
}

// Vectors returns the fact store implementation satisfying [memory.VectorStore].
func (s *Store) Vectors() *VectorStore { return s.vectors }

// Graph returns the knowledge-graph implementation satisfying [memory.GraphStore].
func (s *Store) Graph() *GraphStore { return s.graph }

// Ping verifies the database connection. Used by readiness probes.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases all connections held by the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// storeErr wraps a database failure as a classified provider error. Context
// cancellation passes through unwrapped so the engine maps it to Cancelled.
func storeErr(provider, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}

	kind := memory.FailureTransient
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Integrity violations (23xxx) and syntax/access errors (42xxx) will
		// not succeed on retry.
		if strings.HasPrefix(pgErr.Code, "23") || strings.HasPrefix(pgErr.Code, "42") {
			kind = memory.FailurePermanent
		}
	}
	return memory.NewProviderError(provider, kind, fmt.Errorf("%s: %w", op, err))
}
