package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/xela07ax/spaceai-console/internal/kv"
)

// KVRepo реализует kv.Store поверх таблицы kv_store
type KVRepo struct {
	db *DB
}

func NewKVRepo(db *DB) *KVRepo {
	return &KVRepo{db: db}
}

func (r *KVRepo) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.db.pool.QueryRow(ctx, `SELECT value FROM kv_store WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, kv.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: failed to get %s: %w", key, err)
	}
	return value, nil
}

func (r *KVRepo) Set(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`

	// []byte для JSONB pgx передает как готовый JSON
	if _, err := r.db.pool.Exec(ctx, query, key, value); err != nil {
		return fmt.Errorf("postgres: failed to set %s: %w", key, err)
	}
	return nil
}
