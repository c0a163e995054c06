package upload

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftlabs/driftbox/internal/cache"
	"github.com/driftlabs/driftbox/internal/common"
	"github.com/driftlabs/driftbox/internal/models"
)

// fakeKV is an in-memory KV recording TTL refreshes.
type fakeKV struct {
	strings map[string][]byte
	hashes  map[string]map[string]string
	expires map[string]int
}

func newFakeKV() *fakeKV {
	return &fakeKV{
		strings: make(map[string][]byte),
		hashes:  make(map[string]map[string]string),
		expires: make(map[string]int),
	}
}

func (f *fakeKV) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	f.strings[key] = value
	return nil
}

func (f *fakeKV) Get(_ context.Context, key string) ([]byte, error) {
	b, ok := f.strings[key]
	if !ok {
		return nil, cache.ErrMiss
	}
	return b, nil
}

func (f *fakeKV) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.strings, k)
		delete(f.hashes, k)
	}
	return nil
}

func (f *fakeKV) HSet(_ context.Context, key, field string, value string) error {
	h, ok := f.hashes[key]
	if !ok {
		h = make(map[string]string)
		f.hashes[key] = h
	}
	h[field] = value
	return nil
}

func (f *fakeKV) HLen(_ context.Context, key string) (int64, error) {
	return int64(len(f.hashes[key])), nil
}

func (f *fakeKV) HGetAll(_ context.Context, key string) (map[string]string, error) {
	out := make(map[string]string, len(f.hashes[key]))
	for k, v := range f.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (f *fakeKV) Expire(_ context.Context, key string, _ time.Duration) error {
	f.expires[key]++
	return nil
}

func testSession() *models.UploadSession {
	return &models.UploadSession{
		SessionID:   "sess-1",
		UserID:      "user-1",
		FileName:    "report.pdf",
		FileSize:    10_000_000,
		MimeType:    "application/pdf",
		FolderPath:  "/",
		TotalChunks: 3,
		ChunkSize:   4 * 1024 * 1024,
		CreatedAt:   time.Now().UTC(),
	}
}

func TestSessionStore_CreateGet(t *testing.T) {
	store := NewSessionStore(newFakeKV(), time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testSession()))

	got, err := store.Get(ctx, "sess-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", got.FileName)
	assert.Equal(t, 3, got.TotalChunks)
}

func TestSessionStore_GetMissing(t *testing.T) {
	store := NewSessionStore(newFakeKV(), time.Hour)

	_, err := store.Get(context.Background(), "nope", "user-1")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSessionStore_GetWrongOwner(t *testing.T) {
	store := NewSessionStore(newFakeKV(), time.Hour)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, testSession()))

	_, err := store.Get(ctx, "sess-1", "intruder")
	assert.ErrorIs(t, err, common.ErrForbidden)
}

func TestSessionStore_OutOfOrderChunks(t *testing.T) {
	kv := newFakeKV()
	store := NewSessionStore(kv, time.Hour)
	ctx := context.Background()
	sess := testSession()
	require.NoError(t, store.Create(ctx, sess))

	for _, idx := range []int{2, 0, 1} {
		require.NoError(t, store.RecordChunk(ctx, sess.SessionID, idx, "chunk-"+string(rune('a'+idx))))
	}

	n, err := store.Progress(ctx, sess.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	ids, count, err := store.ChunkIDs(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, []string{"chunk-a", "chunk-b", "chunk-c"}, ids)
}

func TestSessionStore_SparseChunks(t *testing.T) {
	store := NewSessionStore(newFakeKV(), time.Hour)
	ctx := context.Background()
	sess := testSession()
	require.NoError(t, store.Create(ctx, sess))
	require.NoError(t, store.RecordChunk(ctx, sess.SessionID, 1, "chunk-b"))

	ids, count, err := store.ChunkIDs(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, []string{"", "chunk-b", ""}, ids)
}

func TestSessionStore_DuplicateIndexLastWins(t *testing.T) {
	store := NewSessionStore(newFakeKV(), time.Hour)
	ctx := context.Background()
	sess := testSession()
	require.NoError(t, store.Create(ctx, sess))

	require.NoError(t, store.RecordChunk(ctx, sess.SessionID, 0, "first"))
	require.NoError(t, store.RecordChunk(ctx, sess.SessionID, 0, "second"))

	n, err := store.Progress(ctx, sess.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ids, count, err := store.ChunkIDs(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, "second", ids[0])
}

func TestSessionStore_RecordChunkRefreshesTTL(t *testing.T) {
	kv := newFakeKV()
	store := NewSessionStore(kv, time.Hour)
	ctx := context.Background()
	sess := testSession()
	require.NoError(t, store.Create(ctx, sess))

	require.NoError(t, store.RecordChunk(ctx, sess.SessionID, 0, "chunk-a"))

	assert.Equal(t, 1, kv.expires[sessionKey(sess.SessionID)])
	assert.Equal(t, 1, kv.expires[chunksKey(sess.SessionID)])
}

func TestSessionStore_DeleteMakesGetNotFound(t *testing.T) {
	store := NewSessionStore(newFakeKV(), time.Hour)
	ctx := context.Background()
	sess := testSession()
	require.NoError(t, store.Create(ctx, sess))
	require.NoError(t, store.RecordChunk(ctx, sess.SessionID, 0, "chunk-a"))

	require.NoError(t, store.Delete(ctx, sess.SessionID))

	_, err := store.Get(ctx, sess.SessionID, sess.UserID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	n, err := store.Progress(ctx, sess.SessionID)
	require.NoError(t, err)
	assert.Zero(t, n)
}
