// Package sqlite provides an embedded, file-backed implementation of the
// memory.HistoryLog contract on modernc.org/sqlite (pure Go, no cgo).
//
// The log is append-only: entries are never updated, and per-fact sequence
// numbers are assigned inside a transaction so they stay strictly increasing
// under concurrent appends.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/Gabrielmcp78/mem0-sub000/pkg/memory"
)

const schema = `
CREATE TABLE IF NOT EXISTS history (
    id        TEXT    PRIMARY KEY,
    fact_id   TEXT    NOT NULL,
    seq       INTEGER NOT NULL,
    prev_text TEXT    NOT NULL DEFAULT '',
    new_text  TEXT    NOT NULL DEFAULT '',
    kind      TEXT    NOT NULL,
    user_id   TEXT    NOT NULL DEFAULT '',
    agent_id  TEXT    NOT NULL DEFAULT '',
    run_id    TEXT    NOT NULL DEFAULT '',
    ts        TIMESTAMP NOT NULL,
    UNIQUE (fact_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_history_fact_id ON history (fact_id);
CREATE INDEX IF NOT EXISTS idx_history_scope   ON history (user_id, agent_id, run_id);
`

// HistoryLog is a sqlite-backed memory.HistoryLog. Safe for concurrent use;
// writes are serialised by SQLite's WAL journal.
type HistoryLog struct {
	db *sql.DB
}

// Open opens (creating if necessary) the history database at path and
// ensures the schema exists. Pass ":memory:" for an ephemeral log.
func Open(ctx context.Context, path string) (*HistoryLog, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite history: open %s: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite history: ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite history: migrate: %w", err)
	}
	return &HistoryLog{db: db}, nil
}

// Close releases the underlying database handle.
func (l *HistoryLog) Close() error {
	return l.db.Close()
}

// Append implements memory.HistoryLog.
func (l *HistoryLog) Append(ctx context.Context, entry memory.HistoryEntry) (memory.HistoryEntry, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return memory.HistoryEntry{}, logErr("append", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM history WHERE fact_id = ?`, entry.FactID)
	if err := row.Scan(&entry.Seq); err != nil {
		return memory.HistoryEntry{}, logErr("append: next seq", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO history
		    (id, fact_id, seq, prev_text, new_text, kind, user_id, agent_id, run_id, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.FactID, entry.Seq,
		entry.PrevText, entry.NewText, string(entry.Kind),
		entry.Scope.UserID, entry.Scope.AgentID, entry.Scope.SessionID,
		entry.Timestamp,
	)
	if err != nil {
		return memory.HistoryEntry{}, logErr("append: insert", err)
	}
	if err := tx.Commit(); err != nil {
		return memory.HistoryEntry{}, logErr("append: commit", err)
	}
	return entry, nil
}

// List implements memory.HistoryLog.
func (l *HistoryLog) List(ctx context.Context, factID string) ([]memory.HistoryEntry, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, fact_id, seq, prev_text, new_text, kind, user_id, agent_id, run_id, ts
		FROM   history
		WHERE  fact_id = ?
		ORDER  BY seq`, factID)
	if err != nil {
		return nil, logErr("list", err)
	}
	defer rows.Close()

	var entries []memory.HistoryEntry
	for rows.Next() {
		var (
			e    memory.HistoryEntry
			kind string
		)
		if err := rows.Scan(
			&e.ID, &e.FactID, &e.Seq,
			&e.PrevText, &e.NewText, &kind,
			&e.Scope.UserID, &e.Scope.AgentID, &e.Scope.SessionID,
			&e.Timestamp,
		); err != nil {
			return nil, logErr("list: scan", err)
		}
		e.Kind = memory.EventKind(kind)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, logErr("list: rows", err)
	}
	return entries, nil
}

// DeleteByScope implements memory.HistoryLog.
func (l *HistoryLog) DeleteByScope(ctx context.Context, scope memory.Scope) error {
	var (
		conditions []string
		args       []any
	)
	if scope.UserID != "" {
		conditions = append(conditions, "user_id = ?")
		args = append(args, scope.UserID)
	}
	if scope.AgentID != "" {
		conditions = append(conditions, "agent_id = ?")
		args = append(args, scope.AgentID)
	}
	if scope.SessionID != "" {
		conditions = append(conditions, "run_id = ?")
		args = append(args, scope.SessionID)
	}
	if len(conditions) == 0 {
		return nil
	}

	q := "DELETE FROM history WHERE " + strings.Join(conditions, " AND ")
	if _, err := l.db.ExecContext(ctx, q, args...); err != nil {
		return logErr("delete by scope", err)
	}
	return nil
}

// Reset implements memory.HistoryLog.
func (l *HistoryLog) Reset(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, `DELETE FROM history`); err != nil {
		return logErr("reset", err)
	}
	return nil
}

// logErr wraps a database failure as a classified provider error. Context
// cancellation passes through unwrapped.
func logErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("sqlite history: %s: %w", op, err)
	}
	return memory.NewProviderError("history_log", memory.FailureTransient,
		fmt.Errorf("sqlite history: %s: %w", op, err))
}

var _ memory.HistoryLog = (*HistoryLog)(nil)
