// Package credsql is the postgres backed primary credential tier.
package credsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openkcm/session-gateway/internal/credstore"
	"github.com/openkcm/session-gateway/internal/serviceerr"
)

const name = "postgres"

type Tier struct {
	db  *pgxpool.Pool
	ttl time.Duration
}

var _ = credstore.Tier(&Tier{})

func NewTier(db *pgxpool.Pool, ttl time.Duration) *Tier {
	return &Tier{
		db:  db,
		ttl: ttl,
	}
}

func (t *Tier) Name() string {
	return name
}

func (t *Tier) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	if err := t.db.QueryRow(ctx, `SELECT value
FROM credential_records
WHERE key = $1
	AND (expires_at IS NULL OR expires_at > now());`,
		key,
	).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, serviceerr.ErrNotFound
		}

		return nil, fmt.Errorf("selecting from credential_records: %w", err)
	}

	return []byte(value), nil
}

func (t *Tier) Set(ctx context.Context, key string, value []byte) error {
	var expiresAt *time.Time
	if t.ttl > 0 {
		e := time.Now().Add(t.ttl)
		expiresAt = &e
	}

	if _, err := t.db.Exec(ctx, `INSERT INTO credential_records (key, value, expires_at, updated_at)
VALUES ($1, $2, $3, now())
	ON CONFLICT (key)
	DO UPDATE SET (value, expires_at, updated_at) =
		(EXCLUDED.value, EXCLUDED.expires_at, EXCLUDED.updated_at);`,
		key, string(value), expiresAt,
	); err != nil {
		if err, ok := handlePgError(err); ok {
			return err
		}

		return fmt.Errorf("inserting into credential_records: %w", err)
	}

	return nil
}

func (t *Tier) Delete(ctx context.Context, key string) error {
	if _, err := t.db.Exec(ctx, `DELETE FROM credential_records WHERE key = $1;`, key); err != nil {
		return fmt.Errorf("deleting from credential_records: %w", err)
	}

	return nil
}

// PurgeExpired deletes records whose ttl has passed and returns how many were removed.
func (t *Tier) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := t.db.Exec(ctx, `DELETE FROM credential_records WHERE expires_at IS NOT NULL AND expires_at <= now();`)
	if err != nil {
		return 0, fmt.Errorf("purging credential_records: %w", err)
	}

	return tag.RowsAffected(), nil
}
