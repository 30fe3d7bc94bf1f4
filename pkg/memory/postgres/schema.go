// Package postgres provides PostgreSQL-backed implementations of the
// VectorStore and GraphStore contracts, sharing a single [pgxpool.Pool].
//
// The pgvector extension must be available in the target database; [Migrate]
// installs it automatically via CREATE EXTENSION IF NOT EXISTS.
//
// Usage:
//
//	store, err := postgres.NewStore(ctx, dsn, 1536)
//	if err != nil { … }
//	defer store.Close()
//
//	vectors := store.Vectors() // memory.VectorStore
//	graph := store.Graph()     // memory.GraphStore
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ddlFacts returns the fact table DDL with the embedding dimension
// substituted. The vector dimension is baked into the column type at schema
// creation time.
func ddlFacts(embeddingDimensions int) string {
	return fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS facts (
    id          TEXT         PRIMARY KEY,
    text        TEXT         NOT NULL,
    hash        TEXT         NOT NULL,
    user_id     TEXT         NOT NULL DEFAULT '',
    agent_id    TEXT         NOT NULL DEFAULT '',
    run_id      TEXT         NOT NULL DEFAULT '',
    metadata    JSONB        NOT NULL DEFAULT '{}',
    embedding   vector(%d),
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_facts_user_id  ON facts (user_id);
CREATE INDEX IF NOT EXISTS idx_facts_agent_id ON facts (agent_id);
CREATE INDEX IF NOT EXISTS idx_facts_run_id   ON facts (run_id);

CREATE INDEX IF NOT EXISTS idx_facts_embedding
    ON facts USING hnsw (embedding vector_cosine_ops);
`, embeddingDimensions)
}

// ddlGraph returns the knowledge-graph DDL. Entity label embeddings reuse the
// fact embedding dimension so one embedder serves both layers.
func ddlGraph(embeddingDimensions int) string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS graph_entities (
    id          TEXT         PRIMARY KEY,
    label       TEXT         NOT NULL,
    type        TEXT         NOT NULL,
    user_id     TEXT         NOT NULL DEFAULT '',
    agent_id    TEXT         NOT NULL DEFAULT '',
    run_id      TEXT         NOT NULL DEFAULT '',
    attributes  JSONB        NOT NULL DEFAULT '{}',
    embedding   vector(%d),
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_graph_entities_label ON graph_entities (label);
CREATE INDEX IF NOT EXISTS idx_graph_entities_scope
    ON graph_entities (user_id, agent_id, run_id);

CREATE TABLE IF NOT EXISTS graph_relations (
    source_id   TEXT         NOT NULL REFERENCES graph_entities (id) ON DELETE CASCADE,
    target_id   TEXT         NOT NULL REFERENCES graph_entities (id) ON DELETE CASCADE,
    predicate   TEXT         NOT NULL,
    weight      DOUBLE PRECISION NOT NULL DEFAULT 1,
    user_id     TEXT         NOT NULL DEFAULT '',
    agent_id    TEXT         NOT NULL DEFAULT '',
    run_id      TEXT         NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ  NOT NULL DEFAULT now(),
    PRIMARY KEY (source_id, predicate, target_id)
);

CREATE INDEX IF NOT EXISTS idx_graph_relations_source ON graph_relations (source_id);
CREATE INDEX IF NOT EXISTS idx_graph_relations_target ON graph_relations (target_id);
`, embeddingDimensions)
}

// Migrate creates or ensures all required tables and extensions exist. It is
// idempotent and safe to call on every application start.
//
// embeddingDimensions must match the configured embedding model (e.g., 1536
// for OpenAI text-embedding-3-small). Changing it after the first migration
// requires a manual schema update.
func Migrate(ctx context.Context, pool *pgxpool.Pool, embeddingDimensions int) error {
	statements := []string{
		ddlFacts(embeddingDimensions),
		ddlGraph(embeddingDimensions),
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}
