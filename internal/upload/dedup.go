package upload

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/driftlabs/driftbox/internal/blob"
	"github.com/driftlabs/driftbox/internal/common"
	"github.com/driftlabs/driftbox/internal/repositories/chunks"
)

const chunkKeyPrefix = "chunks/"

// ChunkRef is the outcome of ingesting one chunk payload.
type ChunkRef struct {
	ChunkID string
	// Deduped reports that byte-identical content was already stored, so
	// this call skipped the blob write.
	Deduped bool
}

// Deduplicator hashes chunk payloads and stores each distinct content
// exactly once: the blob under a hash-derived key, the durable record
// under a unique hash constraint.
type Deduplicator struct {
	blobs  blob.Store
	chunks chunks.Repository
}

func NewDeduplicator(blobs blob.Store, chunks chunks.Repository) *Deduplicator {
	return &Deduplicator{blobs: blobs, chunks: chunks}
}

// Ingest stores one chunk payload content-addressed. Concurrent uploads
// of identical content race harmlessly: the blob write is idempotent
// (same key, same bytes) and the record registration treats a duplicate
// as a no-op, so all racers resolve to the same chunk id.
func (d *Deduplicator) Ingest(ctx context.Context, data []byte) (ChunkRef, error) {
	if len(data) == 0 {
		return ChunkRef{}, fmt.Errorf("chunk payload is required: %w", common.ErrValidation)
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	key := chunkKeyPrefix + hash

	exists, err := d.blobs.Exists(ctx, key)
	if err != nil {
		return ChunkRef{}, err
	}
	if !exists {
		if err := d.blobs.Put(ctx, key, bytes.NewReader(data), int64(len(data))); err != nil {
			return ChunkRef{}, err
		}
	}

	chunkID, _, err := d.chunks.Register(ctx, hash, int64(len(data)), key)
	if err != nil {
		return ChunkRef{}, err
	}

	return ChunkRef{ChunkID: chunkID, Deduped: exists}, nil
}
