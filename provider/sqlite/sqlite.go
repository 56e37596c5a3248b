// Package sqlite opens a relcache provider backed by an SQLite file using
// the pure-Go modernc.org/sqlite driver (no cgo).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/unkn0wn-root/relcache/provider/sqlkv"
)

type Config struct {
	// Path is the database file. ":memory:" keeps everything in process.
	Path  string
	Table string
}

// Open opens (creating if needed) the database at cfg.Path. The returned
// store owns the *sql.DB and closes it on Close.
func Open(ctx context.Context, cfg Config) (*sqlkv.Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite: path is required")
	}
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	if cfg.Path == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	} else if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: pragma: %w", err)
	}
	s, err := sqlkv.New(ctx, sqlkv.Config{
		DB:      db,
		Table:   cfg.Table,
		Dialect: sqlkv.SQLite,
		CloseDB: true,
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}
