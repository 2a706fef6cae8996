// Package sqlstore is a persistence collaborator for pkg/audit.Log: it
// archives each appended event's canonical JSON encoding, keyed by
// sequence number, into a SQL table, and can reload a full Log from that
// table. It is never imported by the orchestrator or audit packages
// themselves — the kernel's core stays storage-agnostic, and a caller
// wires this in only when it wants events durable across process
// restarts.
//
// Grounded on the reference platform's append-only audit store shape
// (pkg/store/audit_store.go: sequence assignment, entry hash, query by
// range), ported from an in-memory slice onto database/sql so either
// embedded (modernc.org/sqlite) or server (github.com/lib/pq) backends
// can serve it without the kernel caring which.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/driftlock/kernel/pkg/audit"
	"github.com/driftlock/kernel/pkg/canonicalize"
	"github.com/driftlock/kernel/pkg/state"
)

// Store archives audit.Log entries into a SQL table named
// kernel_audit_events via *sql.DB. The table is created by EnsureSchema,
// not by this constructor, so callers control migration ordering
// explicitly.
type Store struct {
	db     *sql.DB
	driver string
}

// New wraps an already-open *sql.DB. driverName selects placeholder
// syntax: "postgres" for a github.com/lib/pq connection, anything else
// (including "sqlite", the default) for a modernc.org/sqlite connection.
func New(db *sql.DB, driverName string) *Store {
	return &Store{db: db, driver: driverName}
}

// placeholder returns the nth (1-indexed) bind-parameter marker for the
// store's driver: database/sql does not abstract placeholder syntax
// across drivers, so callers building parameterized SQL go through this.
func (s *Store) placeholder(n int) string {
	if s.driver == "postgres" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// EnsureSchema creates kernel_audit_events if it does not already exist.
// The schema is deliberately minimal: a monotonic sequence, the event's
// id and entryHash for fast lookup, and the full canonical JSON payload,
// which is the only thing a reload needs.
func (s *Store) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS kernel_audit_events (
	sequence   INTEGER PRIMARY KEY,
	event_id   TEXT NOT NULL,
	entry_hash TEXT NOT NULL,
	payload    TEXT NOT NULL
)`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("sqlstore: ensure schema: %w", err)
	}
	return nil
}

// ArchiveLog appends every entry in log that is not already present (by
// sequence number) to the table, in order. It is idempotent: calling it
// repeatedly against a log that has grown only appends the new tail.
// ArchiveLog is a package-level function, not a method on Store, because
// Go methods cannot introduce their own type parameters: A varies per
// domain, Store does not.
func ArchiveLog[A state.Action](ctx context.Context, s *Store, log *audit.Log[A]) error {
	db := s.db
	var count int
	row := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM kernel_audit_events`)
	if err := row.Scan(&count); err != nil {
		return fmt.Errorf("sqlstore: count existing rows: %w", err)
	}

	entries := log.Entries()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlstore: begin tx: %w", err)
	}
	defer tx.Rollback()

	for i := count; i < len(entries); i++ {
		payload, err := canonicalize.Marshal(entries[i])
		if err != nil {
			return fmt.Errorf("sqlstore: marshal entry %d: %w", i, err)
		}
		insert := fmt.Sprintf(
			`INSERT INTO kernel_audit_events (sequence, event_id, entry_hash, payload) VALUES (%s, %s, %s, %s)`,
			s.placeholder(1), s.placeholder(2), s.placeholder(3), s.placeholder(4),
		)
		if _, err := tx.ExecContext(ctx, insert,
			i, entries[i].ID, entries[i].EntryHash, string(payload),
		); err != nil {
			return fmt.Errorf("sqlstore: insert entry %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// Reload reads every archived row in sequence order and reconstructs a
// fresh audit.Log by appending each decoded Event directly (bypassing
// chain validation, since a previously-archived log was already valid
// when it was archived; call Verify on the result if re-validation is
// wanted).
func Reload[A state.Action](ctx context.Context, s *Store) (*audit.Log[A], error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM kernel_audit_events ORDER BY sequence ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: reload query: %w", err)
	}
	defer rows.Close()

	log := audit.New[A]()
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("sqlstore: scan row: %w", err)
		}
		event, err := audit.DecodeEvent[A]([]byte(payload))
		if err != nil {
			return nil, fmt.Errorf("sqlstore: decode event: %w", err)
		}
		if err := log.Append(event); err != nil {
			return nil, fmt.Errorf("sqlstore: replay append: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: reload rows: %w", err)
	}
	return log, nil
}
