package upload

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftlabs/driftbox/internal/common"
	"github.com/driftlabs/driftbox/internal/models"
)

// fakeBlobStore keeps objects in memory and counts writes.
type fakeBlobStore struct {
	objects map[string][]byte
	puts    int
	err     error
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: make(map[string][]byte)}
}

func (f *fakeBlobStore) Exists(_ context.Context, key string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	_, ok := f.objects[key]
	return ok, nil
}

func (f *fakeBlobStore) Put(_ context.Context, key string, r io.Reader, _ int64) error {
	if f.err != nil {
		return f.err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.objects[key] = b
	f.puts++
	return nil
}

func (f *fakeBlobStore) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://blobs.test/" + key, nil
}

// fakeChunksRepo registers chunks keyed by hash, like the unique
// constraint does in Postgres.
type fakeChunksRepo struct {
	byHash map[string]string
	byID   map[string]*models.Chunk
	next   int
}

func newFakeChunksRepo() *fakeChunksRepo {
	return &fakeChunksRepo{byHash: make(map[string]string), byID: make(map[string]*models.Chunk)}
}

func (f *fakeChunksRepo) Register(_ context.Context, hash string, size int64, storagePath string) (string, bool, error) {
	if id, ok := f.byHash[hash]; ok {
		return id, false, nil
	}
	f.next++
	id := "chunk-" + hex.EncodeToString([]byte{byte(f.next)})
	f.byHash[hash] = id
	f.byID[id] = &models.Chunk{ChunkID: id, Hash: hash, Size: size, StoragePath: storagePath}
	return id, true, nil
}

func (f *fakeChunksRepo) GetByIDs(_ context.Context, ids []string) (map[string]*models.Chunk, error) {
	out := make(map[string]*models.Chunk)
	for _, id := range ids {
		if c, ok := f.byID[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}

func TestDeduplicator_FirstIngestStoresBlob(t *testing.T) {
	blobs := newFakeBlobStore()
	d := NewDeduplicator(blobs, newFakeChunksRepo())

	data := []byte("chunk payload")
	ref, err := d.Ingest(context.Background(), data)
	require.NoError(t, err)

	assert.False(t, ref.Deduped)
	assert.NotEmpty(t, ref.ChunkID)
	assert.Equal(t, 1, blobs.puts)

	sum := sha256.Sum256(data)
	assert.Contains(t, blobs.objects, "chunks/"+hex.EncodeToString(sum[:]))
}

func TestDeduplicator_SecondIngestDedupes(t *testing.T) {
	blobs := newFakeBlobStore()
	d := NewDeduplicator(blobs, newFakeChunksRepo())
	ctx := context.Background()
	data := []byte("identical bytes")

	first, err := d.Ingest(ctx, data)
	require.NoError(t, err)
	second, err := d.Ingest(ctx, data)
	require.NoError(t, err)

	assert.False(t, first.Deduped)
	assert.True(t, second.Deduped)
	assert.Equal(t, first.ChunkID, second.ChunkID)
	assert.Equal(t, 1, blobs.puts, "identical content must be written once")
}

func TestDeduplicator_DistinctContentDistinctChunks(t *testing.T) {
	blobs := newFakeBlobStore()
	d := NewDeduplicator(blobs, newFakeChunksRepo())
	ctx := context.Background()

	a, err := d.Ingest(ctx, []byte("aaa"))
	require.NoError(t, err)
	b, err := d.Ingest(ctx, []byte("bbb"))
	require.NoError(t, err)

	assert.NotEqual(t, a.ChunkID, b.ChunkID)
	assert.Equal(t, 2, blobs.puts)
}

func TestDeduplicator_EmptyPayload(t *testing.T) {
	d := NewDeduplicator(newFakeBlobStore(), newFakeChunksRepo())

	_, err := d.Ingest(context.Background(), nil)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestDeduplicator_BlobErrorPropagates(t *testing.T) {
	blobs := newFakeBlobStore()
	blobs.err = common.ErrTransient
	d := NewDeduplicator(blobs, newFakeChunksRepo())

	_, err := d.Ingest(context.Background(), []byte("data"))
	assert.ErrorIs(t, err, common.ErrTransient)
}
