package store

import (
	"database/sql"

	_ "github.com/duckdb/duckdb-go/v2"
)

// NewDB opens a DuckDB database at the given path. ":memory:" (or an
// empty path) opens an in-memory database, which the tests rely on.
func NewDB(path string) (*sql.DB, error) {
	if path == ":memory:" {
		path = ""
	}
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
