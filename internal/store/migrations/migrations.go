// Package migrations manages the run-history schema. Applied versions
// are tracked in schema_migrations so Run is idempotent.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

type migration struct {
	version int
	stmt    string
}

var migrations = []migration{
	{
		version: 1,
		stmt: `
			CREATE TABLE IF NOT EXISTS runs (
				id VARCHAR PRIMARY KEY,
				scenario VARCHAR NOT NULL,
				verdict VARCHAR NOT NULL,
				exit_code INTEGER NOT NULL,
				timed_out BOOLEAN NOT NULL,
				elapsed_ms BIGINT NOT NULL,
				stderr_excerpt VARCHAR NOT NULL DEFAULT '',
				created_at TIMESTAMP NOT NULL DEFAULT now()
			)`,
	},
}

// Run applies every migration not yet recorded in schema_migrations.
func Run(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}

	applied := make(map[int]bool)
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("reading applied migrations: %w", err)
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return err
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for _, m := range migrations {
		if applied[m.version] {
			continue
		}
		if _, err := db.ExecContext(ctx, m.stmt); err != nil {
			return fmt.Errorf("applying migration %d: %w", m.version, err)
		}
		if _, err := db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, m.version); err != nil {
			return fmt.Errorf("recording migration %d: %w", m.version, err)
		}
	}
	return nil
}
