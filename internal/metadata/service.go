// Package metadata serves file listings, lookups, version history and
// restores, with a short-lived read cache in front of the durable store.
package metadata

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/driftlabs/driftbox/internal/cache"
	"github.com/driftlabs/driftbox/internal/common"
	"github.com/driftlabs/driftbox/internal/dbx"
	"github.com/driftlabs/driftbox/internal/logging"
	"github.com/driftlabs/driftbox/internal/messaging"
	"github.com/driftlabs/driftbox/internal/models"
	"github.com/driftlabs/driftbox/internal/repositories/files"
	"github.com/driftlabs/driftbox/internal/repositories/users"
	"github.com/driftlabs/driftbox/internal/upload"
)

const (
	readCacheTTL   = time.Minute
	maxPageLimit   = 100
	defaultLimit   = 20
	maxSearchLimit = 50
)

type Service struct {
	db    *sql.DB
	files files.Repository
	kv    cache.KV
	fin   *upload.Finalizer
	pub   messaging.Publisher
	log   logging.Logger
}

func NewService(db *sql.DB, filesRepo files.Repository, kv cache.KV, fin *upload.Finalizer,
	pub messaging.Publisher, log logging.Logger) *Service {
	return &Service{db: db, files: filesRepo, kv: kv, fin: fin, pub: pub, log: log}
}

// ListResponse is one page of a folder listing.
type ListResponse struct {
	Files      []*models.File `json:"files"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	FolderPath string         `json:"folderPath"`
}

// List returns a page of the user's files in a folder, served from the
// read cache when fresh.
func (s *Service) List(ctx context.Context, userID, folderPath string, page, limit int) (*ListResponse, error) {
	if folderPath == "" {
		folderPath = "/"
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if page < 1 {
		page = 1
	}

	cacheKey := fmt.Sprintf("files:%s:%s:%d:%d", userID, folderPath, page, limit)
	if b, err := s.kv.Get(ctx, cacheKey); err == nil {
		resp := &ListResponse{}
		if err := json.Unmarshal(b, resp); err == nil {
			return resp, nil
		}
	}

	fs, total, err := s.files.List(ctx, files.ListParams{
		UserID:     userID,
		FolderPath: folderPath,
		Limit:      limit,
		Offset:     (page - 1) * limit,
	})
	if err != nil {
		return nil, err
	}

	resp := &ListResponse{
		Files:      fs,
		Total:      total,
		Page:       page,
		Limit:      limit,
		FolderPath: folderPath,
	}
	if b, err := json.Marshal(resp); err == nil {
		if err := s.kv.Set(ctx, cacheKey, b, readCacheTTL); err != nil {
			s.log.Warn(ctx, "failed to cache file listing", "error", err.Error())
		}
	}
	return resp, nil
}

// Get returns one file. Ownership is checked on every access: a
// non-owner gets Forbidden, not partial data.
func (s *Service) Get(ctx context.Context, userID, fileID string) (*models.File, error) {
	cacheKey := "file:" + fileID
	if b, err := s.kv.Get(ctx, cacheKey); err == nil {
		f := &models.File{}
		if err := json.Unmarshal(b, f); err == nil {
			if f.UserID != userID {
				return nil, common.ErrForbidden
			}
			return f, nil
		}
	}

	f, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if f.UserID != userID {
		return nil, common.ErrForbidden
	}

	if b, err := json.Marshal(f); err == nil {
		if err := s.kv.Set(ctx, cacheKey, b, readCacheTTL); err != nil {
			s.log.Warn(ctx, "failed to cache file", "error", err.Error())
		}
	}
	return f, nil
}

// Search returns the user's files whose name matches the query.
func (s *Service) Search(ctx context.Context, userID, query string) ([]*models.File, error) {
	if query == "" {
		return nil, fmt.Errorf("search query is required: %w", common.ErrValidation)
	}
	return s.files.Search(ctx, userID, query, maxSearchLimit)
}

// Delete soft-deletes a file and releases its quota in one transaction.
func (s *Service) Delete(ctx context.Context, userID, fileID string) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		size, err := files.NewPostgres(tx).SoftDelete(ctx, fileID, userID)
		if err != nil {
			return err
		}
		return users.NewPostgres(tx).AddStorageUsed(ctx, userID, -size)
	})
	if err != nil {
		return err
	}

	if err := s.kv.Del(ctx, "file:"+fileID); err != nil {
		s.log.Warn(ctx, "failed to invalidate file cache", "fileId", fileID, "error", err.Error())
	}
	return nil
}

// ListVersions returns the file's version history, newest first.
func (s *Service) ListVersions(ctx context.Context, userID, fileID string) ([]*models.FileVersion, error) {
	if _, err := s.ownedFile(ctx, userID, fileID); err != nil {
		return nil, err
	}
	return s.files.ListVersions(ctx, fileID)
}

// RestoreResponse reports a completed version restore.
type RestoreResponse struct {
	FileID        string `json:"fileId"`
	RestoredFrom  string `json:"restoredFrom"`
	NewVersionNum int    `json:"newVersionNum"`
}

// Restore materializes a new version from an existing one and announces
// the change as a file.synced event.
func (s *Service) Restore(ctx context.Context, userID, fileID, versionID string) (*RestoreResponse, error) {
	file, err := s.ownedFile(ctx, userID, fileID)
	if err != nil {
		return nil, err
	}

	target, err := s.files.GetVersion(ctx, versionID, fileID)
	if err != nil {
		return nil, err
	}

	newVersionNum, err := s.fin.Restore(ctx, fileID, target)
	if err != nil {
		return nil, err
	}

	if err := s.kv.Del(ctx, "file:"+fileID); err != nil {
		s.log.Warn(ctx, "failed to invalidate file cache", "fileId", fileID, "error", err.Error())
	}

	event := models.FileSyncedEvent{
		FileID:   fileID,
		UserID:   userID,
		FileName: file.Name,
		SyncedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.pub.Publish(ctx, messaging.QueueFileSynced, event); err != nil {
		s.log.Error(ctx, "failed to publish file.synced", "fileId", fileID, "error", err.Error())
	}

	return &RestoreResponse{
		FileID:        fileID,
		RestoredFrom:  versionID,
		NewVersionNum: newVersionNum,
	}, nil
}

func (s *Service) ownedFile(ctx context.Context, userID, fileID string) (*models.File, error) {
	f, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if f.UserID != userID {
		return nil, common.ErrForbidden
	}
	return f, nil
}
