package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"reservo/internal/store"
	"reservo/migrations"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "no rows", err: sql.ErrNoRows, want: store.ErrNotFound},
		{name: "wrapped no rows", err: fmt.Errorf("scan: %w", sql.ErrNoRows), want: store.ErrNotFound},
		{name: "overlap", err: &pgconn.PgError{Code: "23P01", ConstraintName: "reservations_no_overlap"}, want: store.ErrConflict},
		{name: "lock timeout", err: &pgconn.PgError{Code: "55P03", Message: "canceling statement due to lock timeout"}, want: store.ErrContention},
		{name: "deadlock", err: &pgconn.PgError{Code: "40P01"}, want: store.ErrContention},
		{name: "serialization", err: &pgconn.PgError{Code: "40001"}, want: store.ErrContention},
		{name: "sentinel passes through", err: store.ErrIdempotencyConflict, want: store.ErrIdempotencyConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.err); !errors.Is(got, tt.want) {
				t.Fatalf("classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}

	other := &pgconn.PgError{Code: "23P01", ConstraintName: "something_else"}
	if got := classify(other); errors.Is(got, store.ErrConflict) {
		t.Fatalf("unrelated exclusion constraint mapped to conflict")
	}
	if classify(nil) != nil {
		t.Fatalf("classify(nil) != nil")
	}
}

func TestExtractGooseUp(t *testing.T) {
	src := "-- +goose Up\nCREATE TABLE a (id int);\nCREATE TABLE b (id int);\n\n-- +goose Down\nDROP TABLE b;\n"
	up, err := extractGooseUp(src)
	if err != nil {
		t.Fatalf("extractGooseUp error: %v", err)
	}
	if strings.Contains(up, "DROP") {
		t.Fatalf("up section contains down statements: %q", up)
	}
	stmts := splitSQLStatements(up)
	if len(stmts) != 2 {
		t.Fatalf("len(stmts) = %d, want 2", len(stmts))
	}

	if _, err := extractGooseUp("CREATE TABLE a (id int);"); err == nil {
		t.Fatalf("expected error for missing marker")
	}
}

func TestMigrationFiles_Sorted(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_b.sql": {Data: []byte("-- +goose Up\nSELECT 1;")},
		"0001_a.sql": {Data: []byte("-- +goose Up\nSELECT 1;")},
		"README.md":  {Data: []byte("ignored")},
	}
	files, err := migrationFiles(fsys)
	if err != nil {
		t.Fatalf("migrationFiles error: %v", err)
	}
	if len(files) != 2 || files[0] != "0001_a.sql" || files[1] != "0002_b.sql" {
		t.Fatalf("files = %v", files)
	}
}

func TestEmbeddedMigrations_DefineNoOverlapConstraint(t *testing.T) {
	files, err := migrationFiles(migrations.FS)
	if err != nil {
		t.Fatalf("migrationFiles error: %v", err)
	}
	if len(files) == 0 {
		t.Fatalf("no embedded migrations")
	}

	var found bool
	for _, name := range files {
		stmts, err := migrationStatements(migrations.FS, name)
		if err != nil {
			t.Fatalf("migrationStatements(%s) error: %v", name, err)
		}
		for _, s := range stmts {
			if strings.Contains(s, constraintNoOverlap) {
				found = true
			}
		}
	}
	if !found {
		t.Fatalf("constraint %s not defined by any migration", constraintNoOverlap)
	}
}

func TestLockTimeoutSetting(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{in: 3 * time.Second, want: "3000ms"},
		{in: 90 * time.Second, want: "90000ms"},
		{in: 500 * time.Microsecond, want: "1ms"},
		{in: 1500 * time.Microsecond, want: "2ms"},
		{in: time.Nanosecond, want: "1ms"},
	}
	for _, tt := range tests {
		if got := lockTimeoutSetting(tt.in); got != tt.want {
			t.Fatalf("lockTimeoutSetting(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
