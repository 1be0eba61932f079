package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// Sentinel errors surfaced by lock and row operations. Callers match
// them with errors.Is; everything else is a store failure fatal to the
// single operation, not to the process.
var (
	ErrAlreadyRecording = errors.New("already recording")
	ErrNotRecording     = errors.New("not recording")
	ErrPlanNotFound     = errors.New("plan not found")
	ErrHistoryNotFound  = errors.New("history not found")
)

// Store is the durable, key-ordered table backing plans, history,
// recording locks and the live-descriptor cache. All multi-key
// mutations (lock+history pairs) run inside a single transaction.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the store at path. Use ":memory:"
// for an ephemeral store in tests.
func Open(path string) (*Store, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	// SQLite works best with a single writer connection; this also
	// keeps ":memory:" stores on one connection.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA busy_timeout = 5000;`,
		`CREATE TABLE IF NOT EXISTS kv (
			k TEXT PRIMARY KEY,
			v BLOB NOT NULL
		) WITHOUT ROWID;`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping tests the underlying database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// txn is a read/write transaction over the key space.
type txn struct {
	tx *sql.Tx
}

// update runs fn inside one transaction; any error rolls the whole
// transaction back.
func (s *Store) update(ctx context.Context, fn func(t *txn) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(&txn{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// view runs fn inside a snapshot that is always rolled back.
func (s *Store) view(ctx context.Context, fn func(t *txn) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin read transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	return fn(&txn{tx: tx})
}

func (t *txn) get(ctx context.Context, key string) ([]byte, bool, error) {
	var v []byte
	err := t.tx.QueryRowContext(ctx, `SELECT v FROM kv WHERE k = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %q: %w", key, err)
	}
	return v, true, nil
}

func (t *txn) put(ctx context.Context, key string, value []byte) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO kv(k, v) VALUES(?, ?) ON CONFLICT(k) DO UPDATE SET v = excluded.v`,
		key, value)
	if err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	return nil
}

// delete removes key and reports whether it was present.
func (t *txn) delete(ctx context.Context, key string) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM kv WHERE k = ?`, key)
	if err != nil {
		return false, fmt.Errorf("delete %q: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// scan visits every key with the given prefix in key order. The upper
// bound is the prefix with its last byte incremented, so the range is
// [prefix, prefixEnd).
func (t *txn) scan(ctx context.Context, prefix string, fn func(key string, value []byte) error) error {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT k, v FROM kv WHERE k >= ? AND k < ? ORDER BY k`,
		prefix, prefixEnd(prefix))
	if err != nil {
		return fmt.Errorf("scan %q: %w", prefix, err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var k string
		var v []byte
		if err := rows.Scan(&k, &v); err != nil {
			return err
		}
		if err := fn(k, v); err != nil {
			return err
		}
	}
	return rows.Err()
}
