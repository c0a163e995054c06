package shares

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

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

func (r *PostgresRepository) Create(ctx context.Context, fileID, createdBy, sharedWith, permission string, expiresAt *time.Time) (*models.ShareLink, error) {
	query := `
		INSERT INTO shared_links (file_id, created_by, shared_with, permission, expires_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5)
		RETURNING link_id, file_id, COALESCE(shared_with::text, ''), permission, expires_at, created_at
	`
	l := &models.ShareLink{CreatedBy: createdBy}
	err := r.db.QueryRowContext(ctx, query, fileID, createdBy, sharedWith, permission, expiresAt).
		Scan(&l.LinkID, &l.FileID, &l.SharedWith, &l.Permission, &l.ExpiresAt, &l.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert share link: %w", err)
	}
	return l, nil
}

func (r *PostgresRepository) Get(ctx context.Context, linkID string) (*LinkInfo, error) {
	query := `
		SELECT sl.link_id, sl.file_id, COALESCE(sl.shared_with::text, ''), sl.permission, sl.expires_at, sl.created_at,
		       f.file_id, f.name, f.folder_path, f.size, f.mime_type,
		       u.email
		FROM shared_links sl
		JOIN files f ON f.file_id = sl.file_id
		JOIN users u ON u.user_id = sl.created_by
		WHERE sl.link_id = $1 AND f.is_deleted = FALSE
	`
	info := &LinkInfo{}
	err := r.db.QueryRowContext(ctx, query, linkID).Scan(
		&info.Link.LinkID, &info.Link.FileID, &info.Link.SharedWith, &info.Link.Permission,
		&info.Link.ExpiresAt, &info.Link.CreatedAt,
		&info.File.FileID, &info.File.Name, &info.File.FolderPath, &info.File.Size, &info.File.MimeType,
		&info.OwnerEmail,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to select share link: %w", err)
	}
	return info, nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, userID string) ([]*models.ShareLink, error) {
	query := `
		SELECT link_id, file_id, COALESCE(shared_with::text, ''), permission, expires_at, created_at
		FROM shared_links
		WHERE created_by = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list share links: %w", err)
	}
	defer rows.Close()

	var result []*models.ShareLink
	for rows.Next() {
		var l models.ShareLink
		if err := rows.Scan(&l.LinkID, &l.FileID, &l.SharedWith, &l.Permission, &l.ExpiresAt, &l.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Revoke(ctx context.Context, linkID, userID string) error {
	query := `DELETE FROM shared_links WHERE link_id = $1 AND created_by = $2 RETURNING link_id`
	var id string
	err := r.db.QueryRowContext(ctx, query, linkID, userID).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrNotFound
		}
		return fmt.Errorf("failed to revoke share link: %w", err)
	}
	return nil
}
