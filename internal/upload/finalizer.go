package upload

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/driftlabs/driftbox/internal/common"
	"github.com/driftlabs/driftbox/internal/dbx"
	"github.com/driftlabs/driftbox/internal/logging"
	"github.com/driftlabs/driftbox/internal/messaging"
	"github.com/driftlabs/driftbox/internal/models"
	"github.com/driftlabs/driftbox/internal/repositories/chunks"
	"github.com/driftlabs/driftbox/internal/repositories/files"
	"github.com/driftlabs/driftbox/internal/repositories/users"
)

// Finalizer materializes durable file state from completed sessions and
// restored versions. Both paths run inside a single transaction: the
// file/version inserts and the quota update commit together or not at
// all.
type Finalizer struct {
	db     *sql.DB
	chunks chunks.Repository
	pub    messaging.Publisher
	log    logging.Logger
}

func NewFinalizer(db *sql.DB, chunksRepo chunks.Repository, pub messaging.Publisher, log logging.Logger) *Finalizer {
	return &Finalizer{db: db, chunks: chunksRepo, pub: pub, log: log}
}

// Complete turns a complete session into a file with its first version.
//
// Preconditions: every index in [0, totalChunks) must hold a chunk
// reference, otherwise it fails with IncompleteUploadError and performs
// no durable writes; the committed chunk sizes must sum to the declared
// file size.
func (f *Finalizer) Complete(ctx context.Context, sess *models.UploadSession, chunkIDs []string, uploaded int) (*models.File, error) {
	if uploaded != sess.TotalChunks {
		return nil, &common.IncompleteUploadError{Uploaded: uploaded, Total: sess.TotalChunks}
	}

	byID, err := f.chunks.GetByIDs(ctx, chunkIDs)
	if err != nil {
		return nil, err
	}
	var sum int64
	for _, id := range chunkIDs {
		c, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("session references unknown chunk %s: %w", id, common.ErrInternal)
		}
		sum += c.Size
	}
	if sum != sess.FileSize {
		return nil, fmt.Errorf("committed chunk sizes (%d) do not match declared file size (%d): %w",
			sum, sess.FileSize, common.ErrValidation)
	}

	var file *models.File
	err = dbx.WithTx(ctx, f.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		filesRepo := files.NewPostgres(tx)
		usersRepo := users.NewPostgres(tx)

		file, err = filesRepo.Insert(ctx, &models.File{
			UserID:     sess.UserID,
			Name:       sess.FileName,
			FolderPath: sess.FolderPath,
			Size:       sess.FileSize,
			MimeType:   sess.MimeType,
		})
		if err != nil {
			return err
		}

		if _, err := filesRepo.InsertVersion(ctx, file.FileID, 1, sess.FileSize, chunkIDs); err != nil {
			return err
		}

		return usersRepo.AddStorageUsed(ctx, sess.UserID, sess.FileSize)
	})
	if err != nil {
		return nil, fmt.Errorf("upload completion failed: %w", err)
	}

	file.Version = 1

	f.publishUploaded(ctx, file, sess)
	return file, nil
}

// Restore materializes a new version from an existing one. The chunk ids
// are reused as-is: chunks are immutable and shared across versions, so
// restoring never re-uploads content. The next version number is
// max+1, allocated inside the transaction so it is never reused.
func (f *Finalizer) Restore(ctx context.Context, fileID string, target *models.FileVersion) (int, error) {
	var newVersionNum int
	err := dbx.WithTx(ctx, f.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		filesRepo := files.NewPostgres(tx)

		maxNum, err := filesRepo.MaxVersionNum(ctx, fileID)
		if err != nil {
			return err
		}
		newVersionNum = maxNum + 1

		if _, err := filesRepo.InsertVersion(ctx, fileID, newVersionNum, target.Size, target.ChunkIDs); err != nil {
			return err
		}

		return filesRepo.UpdateSize(ctx, fileID, target.Size)
	})
	if err != nil {
		return 0, fmt.Errorf("version restore failed: %w", err)
	}
	return newVersionNum, nil
}

// publishUploaded emits the domain event. The file is already durable at
// this point; a publish failure only delays device notification, so it
// is logged rather than surfaced.
func (f *Finalizer) publishUploaded(ctx context.Context, file *models.File, sess *models.UploadSession) {
	event := models.FileUploadedEvent{
		FileID:     file.FileID,
		UserID:     sess.UserID,
		FileName:   sess.FileName,
		FileSize:   sess.FileSize,
		UploadedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := f.pub.Publish(ctx, messaging.QueueFileUploaded, event); err != nil {
		f.log.Error(ctx, "failed to publish file.uploaded", "fileId", file.FileID, "error", err.Error())
	}
}
