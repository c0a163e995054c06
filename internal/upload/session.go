// Package upload implements the chunked-upload pipeline: the ephemeral
// session store, the content-addressed chunk deduplicator, and the
// finalizer that materializes files from completed sessions.
package upload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/driftlabs/driftbox/internal/cache"
	"github.com/driftlabs/driftbox/internal/common"
	"github.com/driftlabs/driftbox/internal/models"
)

// SessionStore keeps in-progress upload state in the KV cache under a
// bounded TTL. Session metadata is one JSON blob; per-index chunk
// references live in a hash so concurrent out-of-order arrivals write
// independent fields. There is no active expiry sweep: TTL lapse is the
// only cleanup, and chunks referenced by an abandoned session stay in
// the chunk store for future reuse.
type SessionStore struct {
	kv  cache.KV
	ttl time.Duration
}

func NewSessionStore(kv cache.KV, ttl time.Duration) *SessionStore {
	return &SessionStore{kv: kv, ttl: ttl}
}

func sessionKey(id string) string { return "upload:session:" + id }
func chunksKey(id string) string  { return "upload:chunks:" + id }

// Create stores a new session with a fresh TTL.
func (s *SessionStore) Create(ctx context.Context, sess *models.UploadSession) error {
	b, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.kv.Set(ctx, sessionKey(sess.SessionID), b, s.ttl); err != nil {
		return err
	}
	return nil
}

// Get loads a session and checks ownership. A wrong owner yields
// ErrForbidden, never a generic not-found. Reads do not refresh the TTL.
func (s *SessionStore) Get(ctx context.Context, sessionID, callerID string) (*models.UploadSession, error) {
	b, err := s.kv.Get(ctx, sessionKey(sessionID))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("upload session not found or expired: %w", common.ErrNotFound)
		}
		return nil, err
	}

	sess := &models.UploadSession{}
	if err := json.Unmarshal(b, sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}

	if sess.UserID != callerID {
		return nil, common.ErrForbidden
	}
	return sess, nil
}

// RecordChunk writes the chunk reference at the given index. Each index
// is an independent hash field, so the write is atomic per index and the
// last write for an index wins. Mutating access refreshes the TTL of
// both session keys.
func (s *SessionStore) RecordChunk(ctx context.Context, sessionID string, index int, chunkID string) error {
	if err := s.kv.HSet(ctx, chunksKey(sessionID), strconv.Itoa(index), chunkID); err != nil {
		return err
	}
	if err := s.kv.Expire(ctx, chunksKey(sessionID), s.ttl); err != nil {
		return err
	}
	return s.kv.Expire(ctx, sessionKey(sessionID), s.ttl)
}

// Progress returns the count of populated chunk indices.
func (s *SessionStore) Progress(ctx context.Context, sessionID string) (int, error) {
	n, err := s.kv.HLen(ctx, chunksKey(sessionID))
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// ChunkIDs returns the session's chunk references ordered by index.
// Unpopulated indices are empty strings; the second return is the count
// of populated indices.
func (s *SessionStore) ChunkIDs(ctx context.Context, sess *models.UploadSession) ([]string, int, error) {
	fields, err := s.kv.HGetAll(ctx, chunksKey(sess.SessionID))
	if err != nil {
		return nil, 0, err
	}

	ids := make([]string, sess.TotalChunks)
	count := 0
	for field, chunkID := range fields {
		idx, err := strconv.Atoi(field)
		if err != nil || idx < 0 || idx >= sess.TotalChunks {
			continue
		}
		if ids[idx] == "" && chunkID != "" {
			count++
		}
		ids[idx] = chunkID
	}
	return ids, count, nil
}

// Delete removes all of a session's ephemeral state. Called after a
// successful completion, which also makes a second completion attempt
// observe NotFound.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	return s.kv.Del(ctx, sessionKey(sessionID), chunksKey(sessionID))
}
