// Package files persists file pointers and their immutable versions.
// Ordered chunk references live in file_version_chunks; the FK to chunks
// guarantees a version only references chunks that already exist.
package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

func (r *PostgresRepository) Insert(ctx context.Context, f *models.File) (*models.File, error) {
	query := `
		INSERT INTO files (user_id, name, folder_path, size, mime_type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING file_id, name, folder_path, size, mime_type, created_at, updated_at
	`
	out := &models.File{UserID: f.UserID}
	err := r.db.QueryRowContext(ctx, query, f.UserID, f.Name, f.FolderPath, f.Size, f.MimeType).
		Scan(&out.FileID, &out.Name, &out.FolderPath, &out.Size, &out.MimeType, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert file: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) InsertVersion(ctx context.Context, fileID string, versionNum int, size int64, chunkIDs []string) (string, error) {
	query := `
		INSERT INTO file_versions (file_id, version_num, size)
		VALUES ($1, $2, $3)
		RETURNING version_id
	`
	var versionID string
	if err := r.db.QueryRowContext(ctx, query, fileID, versionNum, size).Scan(&versionID); err != nil {
		return "", fmt.Errorf("failed to insert version: %w", err)
	}

	refQuery := `INSERT INTO file_version_chunks (version_id, idx, chunk_id) VALUES ($1, $2, $3)`
	for idx, chunkID := range chunkIDs {
		if _, err := r.db.ExecContext(ctx, refQuery, versionID, idx, chunkID); err != nil {
			return "", fmt.Errorf("failed to insert version chunk %d: %w", idx, err)
		}
	}
	return versionID, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, fileID string) (*models.File, error) {
	query := `
		SELECT file_id, user_id, name, folder_path, size, mime_type, is_deleted, created_at, updated_at
		FROM files WHERE file_id = $1 AND is_deleted = FALSE
	`
	f := &models.File{}
	err := r.db.QueryRowContext(ctx, query, fileID).
		Scan(&f.FileID, &f.UserID, &f.Name, &f.FolderPath, &f.Size, &f.MimeType, &f.IsDeleted, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to select file: %w", err)
	}
	return f, nil
}

func (r *PostgresRepository) List(ctx context.Context, p ListParams) ([]*models.File, int, error) {
	query := `
		SELECT file_id, name, folder_path, size, mime_type, created_at, updated_at
		FROM files
		WHERE user_id = $1 AND folder_path = $2 AND is_deleted = FALSE
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.db.QueryContext(ctx, query, p.UserID, p.FolderPath, p.Limit, p.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list files: %w", err)
	}
	defer rows.Close()

	var result []*models.File
	for rows.Next() {
		var f models.File
		if err := rows.Scan(&f.FileID, &f.Name, &f.FolderPath, &f.Size, &f.MimeType, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, 0, err
		}
		result = append(result, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM files WHERE user_id = $1 AND folder_path = $2 AND is_deleted = FALSE`
	if err := r.db.QueryRowContext(ctx, countQuery, p.UserID, p.FolderPath).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count files: %w", err)
	}
	return result, total, nil
}

func (r *PostgresRepository) Search(ctx context.Context, userID, query string, limit int) ([]*models.File, error) {
	q := `
		SELECT file_id, name, folder_path, size, mime_type, created_at, updated_at
		FROM files
		WHERE user_id = $1 AND is_deleted = FALSE AND name ILIKE $2
		ORDER BY updated_at DESC
		LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, q, userID, "%"+query+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search files: %w", err)
	}
	defer rows.Close()

	var result []*models.File
	for rows.Next() {
		var f models.File
		if err := rows.Scan(&f.FileID, &f.Name, &f.FolderPath, &f.Size, &f.MimeType, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) SoftDelete(ctx context.Context, fileID, userID string) (int64, error) {
	query := `
		UPDATE files SET is_deleted = TRUE, updated_at = now()
		WHERE file_id = $1 AND user_id = $2 AND is_deleted = FALSE
		RETURNING size
	`
	var size int64
	err := r.db.QueryRowContext(ctx, query, fileID, userID).Scan(&size)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrNotFound
		}
		return 0, fmt.Errorf("failed to delete file: %w", err)
	}
	return size, nil
}

func (r *PostgresRepository) UpdateSize(ctx context.Context, fileID string, size int64) error {
	query := `UPDATE files SET size = $1, updated_at = now() WHERE file_id = $2`
	res, err := r.db.ExecContext(ctx, query, size, fileID)
	if err != nil {
		return fmt.Errorf("failed to update file size: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n != 1 {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) ListVersions(ctx context.Context, fileID string) ([]*models.FileVersion, error) {
	query := `
		SELECT version_id, file_id, version_num, size, created_at
		FROM file_versions
		WHERE file_id = $1
		ORDER BY version_num DESC
	`
	rows, err := r.db.QueryContext(ctx, query, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	defer rows.Close()

	var result []*models.FileVersion
	for rows.Next() {
		var v models.FileVersion
		if err := rows.Scan(&v.VersionID, &v.FileID, &v.VersionNum, &v.Size, &v.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) GetVersion(ctx context.Context, versionID, fileID string) (*models.FileVersion, error) {
	query := `
		SELECT version_id, file_id, version_num, size, created_at
		FROM file_versions
		WHERE version_id = $1 AND file_id = $2
	`
	v := &models.FileVersion{}
	err := r.db.QueryRowContext(ctx, query, versionID, fileID).
		Scan(&v.VersionID, &v.FileID, &v.VersionNum, &v.Size, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to select version: %w", err)
	}
	if v.ChunkIDs, err = r.versionChunkIDs(ctx, v.VersionID); err != nil {
		return nil, err
	}
	return v, nil
}

func (r *PostgresRepository) LatestVersion(ctx context.Context, fileID string) (*models.FileVersion, error) {
	query := `
		SELECT version_id, file_id, version_num, size, created_at
		FROM file_versions
		WHERE file_id = $1
		ORDER BY version_num DESC
		LIMIT 1
	`
	v := &models.FileVersion{}
	err := r.db.QueryRowContext(ctx, query, fileID).
		Scan(&v.VersionID, &v.FileID, &v.VersionNum, &v.Size, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to select latest version: %w", err)
	}
	if v.ChunkIDs, err = r.versionChunkIDs(ctx, v.VersionID); err != nil {
		return nil, err
	}
	return v, nil
}

func (r *PostgresRepository) MaxVersionNum(ctx context.Context, fileID string) (int, error) {
	query := `SELECT COALESCE(MAX(version_num), 0) FROM file_versions WHERE file_id = $1`
	var maxNum int
	if err := r.db.QueryRowContext(ctx, query, fileID).Scan(&maxNum); err != nil {
		return 0, fmt.Errorf("failed to select max version: %w", err)
	}
	return maxNum, nil
}

// versionChunkIDs loads a version's chunk references in index order.
func (r *PostgresRepository) versionChunkIDs(ctx context.Context, versionID string) ([]string, error) {
	query := `SELECT chunk_id FROM file_version_chunks WHERE version_id = $1 ORDER BY idx`
	rows, err := r.db.QueryContext(ctx, query, versionID)
	if err != nil {
		return nil, fmt.Errorf("failed to select version chunks: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
