// Package chunks persists content-addressed chunk records. The hash
// column carries a unique constraint; all dedup races resolve there.
package chunks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/driftlabs/driftbox/internal/common"
	"github.com/driftlabs/driftbox/internal/dbx"
	"github.com/driftlabs/driftbox/internal/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgres(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Register(ctx context.Context, hash string, size int64, storagePath string) (string, bool, error) {
	// ON CONFLICT DO NOTHING makes a duplicate registration a no-op;
	// the losing racer falls through to the select below.
	insert := `
		INSERT INTO chunks (hash, size, storage_path)
		VALUES ($1, $2, $3)
		ON CONFLICT (hash) DO NOTHING
		RETURNING chunk_id
	`
	var chunkID string
	err := r.db.QueryRowContext(ctx, insert, hash, size, storagePath).Scan(&chunkID)
	if err == nil {
		return chunkID, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", false, fmt.Errorf("failed to register chunk: %w", err)
	}

	err = r.db.QueryRowContext(ctx, `SELECT chunk_id FROM chunks WHERE hash = $1`, hash).Scan(&chunkID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, common.ErrNotFound
		}
		return "", false, fmt.Errorf("failed to select chunk: %w", err)
	}
	return chunkID, false, nil
}

func (r *PostgresRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*models.Chunk, error) {
	if len(ids) == 0 {
		return map[string]*models.Chunk{}, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(`
		SELECT chunk_id, hash, size, storage_path, created_at
		FROM chunks WHERE chunk_id IN (%s)
	`, strings.Join(placeholders, ", "))
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select chunks: %w", err)
	}
	defer rows.Close()

	result := make(map[string]*models.Chunk, len(ids))
	for rows.Next() {
		var c models.Chunk
		if err := rows.Scan(&c.ChunkID, &c.Hash, &c.Size, &c.StoragePath, &c.CreatedAt); err != nil {
			return nil, err
		}
		result[c.ChunkID] = &c
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
