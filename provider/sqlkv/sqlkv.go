// Package sqlkv implements provider.Provider over a single database/sql table
// (key TEXT PRIMARY KEY, value BLOB). Driver packages (provider/sqlite,
// provider/postgres) open the database and pick a Dialect.
package sqlkv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	pr "github.com/unkn0wn-root/relcache/provider"
)

var validTable = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Dialect captures the few statement differences between SQL engines.
type Dialect struct {
	// Placeholder returns the bind marker for the n-th (1-based) argument.
	Placeholder func(n int) string
	// BlobType is the column type used for values.
	BlobType string
	// Upsert is a format string taking table, key placeholder, value placeholder.
	Upsert string
}

var (
	SQLite = Dialect{
		Placeholder: func(int) string { return "?" },
		BlobType:    "BLOB",
		Upsert:      "INSERT INTO %s (k, v) VALUES (%s, %s) ON CONFLICT(k) DO UPDATE SET v = excluded.v",
	}
	Postgres = Dialect{
		Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
		BlobType:    "BYTEA",
		Upsert:      "INSERT INTO %s (k, v) VALUES (%s, %s) ON CONFLICT (k) DO UPDATE SET v = EXCLUDED.v",
	}
)

type Store struct {
	db    *sql.DB
	ownDB bool
	table string

	qGet, qSet, qDel, qHas, qKeys, qKeysPrefix, qClear, qClearPrefix string
}

var (
	_ pr.Provider     = (*Store)(nil)
	_ pr.PrefixLister = (*Store)(nil)
)

type Config struct {
	DB      *sql.DB
	Table   string // default "relcache_kv"
	Dialect Dialect
	// CloseDB closes DB on Close. Set only when the store owns the handle.
	CloseDB bool
}

// New creates the table if needed and prepares statement text.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DB == nil {
		return nil, errors.New("sqlkv: nil db")
	}
	if cfg.Dialect.Placeholder == nil {
		return nil, errors.New("sqlkv: dialect is required")
	}
	table := cfg.Table
	if table == "" {
		table = "relcache_kv"
	}
	if !validTable.MatchString(table) {
		return nil, fmt.Errorf("sqlkv: invalid table name %q", table)
	}

	s := &Store{db: cfg.DB, ownDB: cfg.CloseDB, table: table}
	ph := cfg.Dialect.Placeholder
	s.qGet = fmt.Sprintf("SELECT v FROM %s WHERE k = %s", table, ph(1))
	s.qSet = fmt.Sprintf(cfg.Dialect.Upsert, table, ph(1), ph(2))
	s.qDel = fmt.Sprintf("DELETE FROM %s WHERE k = %s", table, ph(1))
	s.qHas = fmt.Sprintf("SELECT 1 FROM %s WHERE k = %s", table, ph(1))
	s.qKeys = fmt.Sprintf("SELECT k FROM %s ORDER BY k", table)
	// substr rather than LIKE: SQLite's LIKE is case-insensitive.
	s.qKeysPrefix = fmt.Sprintf("SELECT k FROM %s WHERE substr(k, 1, length(CAST(%s AS TEXT))) = CAST(%s AS TEXT) ORDER BY k", table, ph(1), ph(2))
	s.qClear = fmt.Sprintf("DELETE FROM %s", table)
	s.qClearPrefix = fmt.Sprintf("DELETE FROM %s WHERE substr(k, 1, length(CAST(%s AS TEXT))) = CAST(%s AS TEXT)", table, ph(1), ph(2))

	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (k TEXT PRIMARY KEY, v %s NOT NULL)", table, cfg.Dialect.BlobType)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return nil, fmt.Errorf("sqlkv: create table: %w", err)
	}
	return s, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var v []byte
	err := s.db.QueryRowContext(ctx, s.qGet, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if v == nil {
		v = []byte{}
	}
	return v, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := s.db.ExecContext(ctx, s.qSet, key, value)
	return err
}

func (s *Store) Del(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, s.qDel, key)
	return err
}

func (s *Store) Has(ctx context.Context, key string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, s.qHas, key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (s *Store) Keys(ctx context.Context) ([]string, error) {
	return s.collect(ctx, s.qKeys)
}

func (s *Store) KeysWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	if prefix == "" {
		return s.Keys(ctx)
	}
	return s.collect(ctx, s.qKeysPrefix, prefix, prefix)
}

func (s *Store) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, s.qClear)
	return err
}

func (s *Store) ClearPrefix(ctx context.Context, prefix string) error {
	if prefix == "" {
		return s.Clear(ctx)
	}
	_, err := s.db.ExecContext(ctx, s.qClearPrefix, prefix, prefix)
	return err
}

func (s *Store) Close(context.Context) error {
	if s.ownDB {
		return s.db.Close()
	}
	return nil
}

func (s *Store) collect(ctx context.Context, q string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}
