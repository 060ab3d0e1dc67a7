// Package db stores volume runs and per-tree results in SQLite.
package db

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// pragmas are applied to every pooled connection.
var pragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"synchronous(NORMAL)",
	"temp_store(MEMORY)",
	"foreign_keys(ON)",
}

type DB struct {
	*sql.DB
	path string
}

// Path returns the database file the DB was opened from.
func (db *DB) Path() string { return db.path }

// OpenDB opens the database without touching the schema. Use it when
// migrations are managed explicitly.
func OpenDB(path string) (*DB, error) {
	var dsn strings.Builder
	dsn.WriteString(path)
	for i, p := range pragmas {
		if i == 0 {
			dsn.WriteByte('?')
		} else {
			dsn.WriteByte('&')
		}
		dsn.WriteString("_pragma=" + p)
	}

	sqlDB, err := sql.Open("sqlite", dsn.String())
	if err != nil {
		return nil, err
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &DB{DB: sqlDB, path: path}, nil
}

// NewDB opens the database and applies all pending migrations.
func NewDB(path string) (*DB, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(MigrationsFS()); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
