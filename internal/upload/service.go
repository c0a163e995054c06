package upload

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/driftlabs/driftbox/internal/blob"
	"github.com/driftlabs/driftbox/internal/common"
	"github.com/driftlabs/driftbox/internal/config"
	"github.com/driftlabs/driftbox/internal/logging"
	"github.com/driftlabs/driftbox/internal/models"
	"github.com/driftlabs/driftbox/internal/repositories/chunks"
	"github.com/driftlabs/driftbox/internal/repositories/files"
)

// Service ties the upload pipeline together: session init, per-chunk
// ingest, status, completion and download manifests.
type Service struct {
	cfg      *config.Config
	log      logging.Logger
	sessions *SessionStore
	dedup    *Deduplicator
	fin      *Finalizer
	files    files.Repository
	chunks   chunks.Repository
	blobs    blob.Store
}

func NewService(cfg *config.Config, log logging.Logger, sessions *SessionStore, dedup *Deduplicator,
	fin *Finalizer, filesRepo files.Repository, chunksRepo chunks.Repository, blobs blob.Store) *Service {
	return &Service{
		cfg:      cfg,
		log:      log,
		sessions: sessions,
		dedup:    dedup,
		fin:      fin,
		files:    filesRepo,
		chunks:   chunksRepo,
		blobs:    blobs,
	}
}

// InitRequest declares a new upload.
type InitRequest struct {
	FileName   string `json:"fileName"`
	FileSize   int64  `json:"fileSize"`
	MimeType   string `json:"mimeType"`
	FolderPath string `json:"folderPath"`
}

// InitResponse hands the client its session and chunking parameters.
type InitResponse struct {
	SessionID   string `json:"sessionId"`
	ChunkSize   int64  `json:"chunkSize"`
	TotalChunks int    `json:"totalChunks"`
}

// ChunkResponse reports the outcome of one chunk upload.
type ChunkResponse struct {
	ChunkIndex int    `json:"chunkIndex"`
	ChunkID    string `json:"chunkId"`
	Deduped    bool   `json:"deduped"`
	Uploaded   int    `json:"uploaded"`
	Total      int    `json:"total"`
}

// StatusResponse reports session progress.
type StatusResponse struct {
	SessionID   string `json:"sessionId"`
	FileName    string `json:"fileName"`
	FileSize    int64  `json:"fileSize"`
	TotalChunks int    `json:"totalChunks"`
	Uploaded    int    `json:"uploaded"`
	Percent     int    `json:"percent"`
	Complete    bool   `json:"complete"`
}

// DownloadChunk is one entry of a download manifest; the URL is a
// time-limited presigned retrieval link.
type DownloadChunk struct {
	Index   int    `json:"index"`
	ChunkID string `json:"chunkId"`
	Size    int64  `json:"size"`
	URL     string `json:"url"`
}

// DownloadResponse tells the client how to reassemble the file: fetch
// the chunks strictly in index order within the expiry window.
type DownloadResponse struct {
	File             *models.File    `json:"file"`
	Chunks           []DownloadChunk `json:"chunks"`
	ExpiresInSeconds int             `json:"expiresInSeconds"`
}

// Init validates the declaration and creates a session.
func (s *Service) Init(ctx context.Context, userID string, req InitRequest) (*InitResponse, error) {
	if req.FileName == "" || req.MimeType == "" {
		return nil, fmt.Errorf("fileName, fileSize, and mimeType are required: %w", common.ErrValidation)
	}
	if req.FileSize <= 0 {
		return nil, fmt.Errorf("fileSize must be greater than 0: %w", common.ErrValidation)
	}
	if req.FolderPath == "" {
		req.FolderPath = "/"
	}

	totalChunks := int(math.Ceil(float64(req.FileSize) / float64(s.cfg.ChunkSize)))
	sess := &models.UploadSession{
		SessionID:   uuid.NewString(),
		UserID:      userID,
		FileName:    req.FileName,
		FileSize:    req.FileSize,
		MimeType:    req.MimeType,
		FolderPath:  req.FolderPath,
		TotalChunks: totalChunks,
		ChunkSize:   s.cfg.ChunkSize,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}

	s.log.Info(ctx, "upload session created",
		"sessionId", sess.SessionID, "fileName", sess.FileName, "totalChunks", totalChunks)

	return &InitResponse{
		SessionID:   sess.SessionID,
		ChunkSize:   s.cfg.ChunkSize,
		TotalChunks: totalChunks,
	}, nil
}

// PutChunk ingests one chunk for a session. Chunks may arrive
// concurrently and out of order from parallel transfers.
func (s *Service) PutChunk(ctx context.Context, userID, sessionID string, index int, data []byte) (*ChunkResponse, error) {
	sess, err := s.sessions.Get(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	if index < 0 || index >= sess.TotalChunks {
		return nil, fmt.Errorf("chunkIndex must be between 0 and %d: %w", sess.TotalChunks-1, common.ErrValidation)
	}

	ref, err := s.dedup.Ingest(ctx, data)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.RecordChunk(ctx, sessionID, index, ref.ChunkID); err != nil {
		return nil, err
	}

	uploaded, err := s.sessions.Progress(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return &ChunkResponse{
		ChunkIndex: index,
		ChunkID:    ref.ChunkID,
		Deduped:    ref.Deduped,
		Uploaded:   uploaded,
		Total:      sess.TotalChunks,
	}, nil
}

// Complete finalizes a session. The first success wins: the session is
// deleted after commit, so a retry observes NotFound.
func (s *Service) Complete(ctx context.Context, userID, sessionID string) (*models.File, error) {
	sess, err := s.sessions.Get(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	chunkIDs, uploaded, err := s.sessions.ChunkIDs(ctx, sess)
	if err != nil {
		return nil, err
	}

	file, err := s.fin.Complete(ctx, sess, chunkIDs, uploaded)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		s.log.Warn(ctx, "failed to delete completed session; it will expire via TTL",
			"sessionId", sessionID, "error", err.Error())
	}

	s.log.Info(ctx, "upload completed", "sessionId", sessionID, "fileId", file.FileID)
	return file, nil
}

// Status reports session progress to the uploading client.
func (s *Service) Status(ctx context.Context, userID, sessionID string) (*StatusResponse, error) {
	sess, err := s.sessions.Get(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	uploaded, err := s.sessions.Progress(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return &StatusResponse{
		SessionID:   sessionID,
		FileName:    sess.FileName,
		FileSize:    sess.FileSize,
		TotalChunks: sess.TotalChunks,
		Uploaded:    uploaded,
		Percent:     int(math.Round(float64(uploaded) / float64(sess.TotalChunks) * 100)),
		Complete:    uploaded == sess.TotalChunks,
	}, nil
}

// Download builds the ordered chunk manifest of the file's latest
// version with presigned retrieval URLs.
func (s *Service) Download(ctx context.Context, userID, fileID string) (*DownloadResponse, error) {
	file, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file.UserID != userID {
		return nil, fmt.Errorf("file not found: %w", common.ErrNotFound)
	}

	version, err := s.files.LatestVersion(ctx, fileID)
	if err != nil {
		return nil, err
	}

	byID, err := s.chunks.GetByIDs(ctx, version.ChunkIDs)
	if err != nil {
		return nil, err
	}

	manifest := make([]DownloadChunk, 0, len(version.ChunkIDs))
	for idx, id := range version.ChunkIDs {
		c, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("version references unknown chunk %s: %w", id, common.ErrInternal)
		}
		url, err := s.blobs.PresignGet(ctx, c.StoragePath, s.cfg.SignedURLExpiry)
		if err != nil {
			return nil, err
		}
		manifest = append(manifest, DownloadChunk{
			Index:   idx,
			ChunkID: id,
			Size:    c.Size,
			URL:     url,
		})
	}

	file.UserID = ""
	return &DownloadResponse{
		File:             file,
		Chunks:           manifest,
		ExpiresInSeconds: int(s.cfg.SignedURLExpiry.Seconds()),
	}, nil
}
