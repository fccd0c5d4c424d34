package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// PostgresBackend stores documents as JSONB rows of kv_documents. It keeps the
// whole-document model: every Save replaces the full value for the key.
type PostgresBackend struct {
	db *PostgresDB
}

func NewPostgresBackend(db *PostgresDB) *PostgresBackend {
	return &PostgresBackend{db: db}
}

func (b *PostgresBackend) Load(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT value FROM kv_documents WHERE key = $1`

	var data []byte
	err := b.db.Pool.QueryRow(ctx, query, key).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDocumentNotExist
		}
		return nil, fmt.Errorf("failed to load %s: %w", key, err)
	}

	return data, nil
}

func (b *PostgresBackend) Save(ctx context.Context, key string, data []byte) error {
	query := `
		INSERT INTO kv_documents (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`

	if _, err := b.db.Pool.Exec(ctx, query, key, data); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}

	return nil
}
