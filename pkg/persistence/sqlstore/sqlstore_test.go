package sqlstore

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	_ "modernc.org/sqlite"

	"github.com/driftlock/kernel/pkg/audit"
)

type fixtureAction struct{ Delta int }

func (a fixtureAction) CorrelationID() string { return "c1" }
func (a fixtureAction) Description() string   { return "delta" }

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestArchiveAndReloadRoundTrip(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()

	store := New(db, "sqlite")
	ctx := context.Background()
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	log := audit.New[fixtureAction]()
	init, err := audit.NewInitializationEvent[fixtureAction]("id-1", epoch, "zero", "")
	if err != nil {
		t.Fatalf("NewInitializationEvent: %v", err)
	}
	if err := log.Append(init); err != nil {
		t.Fatalf("Append: %v", err)
	}
	accepted, err := audit.NewAcceptedEvent[fixtureAction]("id-2", epoch.Add(time.Second), fixtureAction{Delta: 1}, "agent-1", "zero", "pos", "ok", "", nil)
	if err != nil {
		t.Fatalf("NewAcceptedEvent: %v", err)
	}
	if err := log.Append(accepted); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if err := ArchiveLog[fixtureAction](ctx, store, log); err != nil {
		t.Fatalf("ArchiveLog: %v", err)
	}

	reloaded, err := Reload[fixtureAction](ctx, store)
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if reloaded.Len() != 2 {
		t.Fatalf("reloaded.Len() = %d, want 2", reloaded.Len())
	}
	vr := reloaded.Verify()
	if !vr.IsValid {
		t.Fatalf("reloaded log Verify() = %+v, want valid", vr)
	}

	// Archiving again must be idempotent: no new rows for already-archived
	// entries.
	if err := ArchiveLog[fixtureAction](ctx, store, log); err != nil {
		t.Fatalf("second ArchiveLog: %v", err)
	}
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM kernel_audit_events`).Scan(&count); err != nil {
		t.Fatalf("count query: %v", err)
	}
	if count != 2 {
		t.Fatalf("row count after repeated archive = %d, want 2", count)
	}
}

func TestEnsureSchemaPropagatesDriverError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("CREATE TABLE").WillReturnError(sql.ErrConnDone)

	store := New(db, "sqlite")
	if err := store.EnsureSchema(context.Background()); err == nil {
		t.Fatal("expected EnsureSchema to propagate the driver error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}
