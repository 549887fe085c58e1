// Package credsqlite is a file backed primary credential tier for single node deployments.
package credsqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/openkcm/session-gateway/internal/credstore"
	"github.com/openkcm/session-gateway/internal/serviceerr"
)

const name = "sqlite"

const schema = `CREATE TABLE IF NOT EXISTS credential_records (
	key        TEXT PRIMARY KEY,
	value      BLOB    NOT NULL,
	expires_at INTEGER NULL,
	updated_at INTEGER NOT NULL
);`

type Tier struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

var _ = credstore.Tier(&Tier{})

// Open opens (or creates) the database at path and ensures the schema exists.
// Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string, ttl time.Duration) (*Tier, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	// sqlite serialises writers; a single connection also keeps ":memory:" databases alive
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating credential_records: %w", err)
	}

	return &Tier{
		db:  db,
		ttl: ttl,
		now: time.Now,
	}, nil
}

func (t *Tier) Name() string {
	return name
}

func (t *Tier) Close() error {
	return t.db.Close()
}

func (t *Tier) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := t.db.QueryRowContext(ctx, `SELECT value FROM credential_records
WHERE key = ? AND (expires_at IS NULL OR expires_at > ?);`,
		key, t.now().UnixMilli(),
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, serviceerr.ErrNotFound
		}

		return nil, fmt.Errorf("selecting from credential_records: %w", err)
	}

	return value, nil
}

func (t *Tier) Set(ctx context.Context, key string, value []byte) error {
	now := t.now()

	var expiresAt sql.NullInt64
	if t.ttl > 0 {
		expiresAt = sql.NullInt64{Int64: now.Add(t.ttl).UnixMilli(), Valid: true}
	}

	if _, err := t.db.ExecContext(ctx, `INSERT INTO credential_records (key, value, expires_at, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (key) DO UPDATE SET
	value = excluded.value,
	expires_at = excluded.expires_at,
	updated_at = excluded.updated_at;`,
		key, value, expiresAt, now.UnixMilli(),
	); err != nil {
		return fmt.Errorf("inserting into credential_records: %w", err)
	}

	return nil
}

func (t *Tier) Delete(ctx context.Context, key string) error {
	if _, err := t.db.ExecContext(ctx, `DELETE FROM credential_records WHERE key = ?;`, key); err != nil {
		return fmt.Errorf("deleting from credential_records: %w", err)
	}

	return nil
}

// PurgeExpired deletes records whose ttl has passed and returns how many were removed.
func (t *Tier) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := t.db.ExecContext(ctx, `DELETE FROM credential_records
WHERE expires_at IS NOT NULL AND expires_at <= ?;`, t.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purging credential_records: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting purged records: %w", err)
	}

	return n, nil
}
