package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SQLite persists player state in the kv table (see migrations).
type SQLite struct {
	db *sql.DB
}

// NewSQLite wraps an open database that already has the kv table.
func NewSQLite(db *sql.DB) *SQLite { return &SQLite{db: db} }

func (s *SQLite) For(owner string) KV {
	return &sqliteKV{db: s.db, owner: owner}
}

// Claim hands the anonymous owner from's keys to the account to, used
// when a player signs in. An account that already has state keeps it and
// from's keys are dropped.
func (s *SQLite) Claim(ctx context.Context, from, to string) error {
	if from == "" || to == "" || from == to {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("claim kv: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM kv WHERE owner = ?`, to).Scan(&n); err != nil {
		return fmt.Errorf("claim kv: %w", err)
	}
	if n == 0 {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO kv (owner, key, value, updated_at)
			SELECT ?, key, value, updated_at FROM kv WHERE owner = ?`, to, from); err != nil {
			return fmt.Errorf("claim kv: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM kv WHERE owner = ?`, from); err != nil {
		return fmt.Errorf("claim kv: %w", err)
	}
	return tx.Commit()
}

type sqliteKV struct {
	db    *sql.DB
	owner string
}

func (kv *sqliteKV) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := kv.db.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE owner = ? AND key = ?`, kv.owner, key,
	).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kv get %s: %w", key, err)
	}
	return v, true, nil
}

func (kv *sqliteKV) Set(ctx context.Context, key, value string) error {
	_, err := kv.db.ExecContext(ctx, `
		INSERT INTO kv (owner, key, value, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(owner, key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		kv.owner, key, value)
	if err != nil {
		return fmt.Errorf("kv set %s: %w", key, err)
	}
	return nil
}

func (kv *sqliteKV) Remove(ctx context.Context, key string) error {
	_, err := kv.db.ExecContext(ctx, `DELETE FROM kv WHERE owner = ? AND key = ?`, kv.owner, key)
	return err
}
