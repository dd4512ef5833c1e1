package postgres

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/uptrace/bun"
)

const (
	gooseUpMarker   = "-- +goose Up"
	gooseDownMarker = "-- +goose Down"
)

// Migrate applies every *.sql file in fsys that is not yet recorded in
// schema_migrations, in file-name order, each in its own transaction. It returns
// the names of the files it applied.
func Migrate(ctx context.Context, db bun.IDB, fsys fs.FS) ([]string, error) {
	files, err := migrationFiles(fsys)
	if err != nil {
		return nil, err
	}

	if _, err := db.NewRaw(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`).Exec(ctx); err != nil {
		return nil, err
	}

	var applied []string
	for _, name := range files {
		stmts, err := migrationStatements(fsys, name)
		if err != nil {
			return applied, err
		}

		var done bool
		err = db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext('reservo:migrate'))").Exec(ctx); err != nil {
				return err
			}
			var exists bool
			if err := tx.NewRaw("SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = ?)", name).Scan(ctx, &exists); err != nil {
				return err
			}
			if exists {
				return nil
			}
			for _, stmt := range stmts {
				if _, err := tx.NewRaw(stmt).Exec(ctx); err != nil {
					return fmt.Errorf("apply %s: %w", name, err)
				}
			}
			if _, err := tx.NewRaw("INSERT INTO schema_migrations (version) VALUES (?)", name).Exec(ctx); err != nil {
				return err
			}
			done = true
			return nil
		})
		if err != nil {
			return applied, err
		}
		if done {
			applied = append(applied, name)
		}
	}
	return applied, nil
}

func migrationFiles(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)
	return files, nil
}

func migrationStatements(fsys fs.FS, name string) ([]string, error) {
	b, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}
	up, err := extractGooseUp(string(b))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return splitSQLStatements(up), nil
}

func extractGooseUp(sql string) (string, error) {
	upIdx := strings.Index(sql, gooseUpMarker)
	if upIdx < 0 {
		return "", fmt.Errorf("missing goose up marker")
	}
	afterUp := strings.TrimLeft(sql[upIdx+len(gooseUpMarker):], "\r\n")

	downIdx := strings.Index(afterUp, gooseDownMarker)
	if downIdx < 0 {
		return strings.TrimSpace(afterUp), nil
	}
	return strings.TrimSpace(afterUp[:downIdx]), nil
}

func splitSQLStatements(sql string) []string {
	parts := strings.Split(sql, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
