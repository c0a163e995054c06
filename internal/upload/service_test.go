package upload

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftlabs/driftbox/internal/common"
	"github.com/driftlabs/driftbox/internal/config"
	"github.com/driftlabs/driftbox/internal/models"
	"github.com/driftlabs/driftbox/internal/repositories/files"
)

// fakeFilesRepo serves the read-side methods the upload service touches.
type fakeFilesRepo struct {
	files    map[string]*models.File
	versions map[string]*models.FileVersion
}

func newFakeFilesRepo() *fakeFilesRepo {
	return &fakeFilesRepo{
		files:    make(map[string]*models.File),
		versions: make(map[string]*models.FileVersion),
	}
}

func (f *fakeFilesRepo) Insert(_ context.Context, file *models.File) (*models.File, error) {
	f.files[file.FileID] = file
	return file, nil
}

func (f *fakeFilesRepo) InsertVersion(_ context.Context, fileID string, versionNum int, size int64, chunkIDs []string) (string, error) {
	id := "ver-" + fileID
	f.versions[fileID] = &models.FileVersion{VersionID: id, FileID: fileID, VersionNum: versionNum, Size: size, ChunkIDs: chunkIDs}
	return id, nil
}

func (f *fakeFilesRepo) GetByID(_ context.Context, fileID string) (*models.File, error) {
	file, ok := f.files[fileID]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *file
	return &cp, nil
}

func (f *fakeFilesRepo) List(context.Context, files.ListParams) ([]*models.File, int, error) {
	return nil, 0, nil
}

func (f *fakeFilesRepo) Search(context.Context, string, string, int) ([]*models.File, error) {
	return nil, nil
}

func (f *fakeFilesRepo) SoftDelete(context.Context, string, string) (int64, error) {
	return 0, common.ErrNotFound
}

func (f *fakeFilesRepo) UpdateSize(context.Context, string, int64) error { return nil }

func (f *fakeFilesRepo) ListVersions(context.Context, string) ([]*models.FileVersion, error) {
	return nil, nil
}

func (f *fakeFilesRepo) GetVersion(context.Context, string, string) (*models.FileVersion, error) {
	return nil, common.ErrNotFound
}

func (f *fakeFilesRepo) LatestVersion(_ context.Context, fileID string) (*models.FileVersion, error) {
	v, ok := f.versions[fileID]
	if !ok {
		return nil, common.ErrNotFound
	}
	return v, nil
}

func (f *fakeFilesRepo) MaxVersionNum(_ context.Context, fileID string) (int, error) {
	if v, ok := f.versions[fileID]; ok {
		return v.VersionNum, nil
	}
	return 0, nil
}

type serviceFixture struct {
	svc    *Service
	kv     *fakeKV
	blobs  *fakeBlobStore
	chunks *fakeChunksRepo
	fRepo  *fakeFilesRepo
	pub    *fakePublisher
	mock   sqlmock.Sqlmock
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		ChunkSize:       8,
		SessionTTL:      time.Hour,
		SignedURLExpiry: 15 * time.Minute,
	}
	log := discardLogger()
	kv := newFakeKV()
	blobs := newFakeBlobStore()
	chunksRepo := newFakeChunksRepo()
	fRepo := newFakeFilesRepo()
	pub := &fakePublisher{}

	svc := NewService(cfg, log,
		NewSessionStore(kv, cfg.SessionTTL),
		NewDeduplicator(blobs, chunksRepo),
		NewFinalizer(db, chunksRepo, pub, log),
		fRepo, chunksRepo, blobs)

	return &serviceFixture{svc: svc, kv: kv, blobs: blobs, chunks: chunksRepo, fRepo: fRepo, pub: pub, mock: mock}
}

func TestService_InitValidation(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  InitRequest
	}{
		{"missing name", InitRequest{FileSize: 10, MimeType: "text/plain"}},
		{"missing mime type", InitRequest{FileName: "a.txt", FileSize: 10}},
		{"zero size", InitRequest{FileName: "a.txt", MimeType: "text/plain"}},
		{"negative size", InitRequest{FileName: "a.txt", FileSize: -1, MimeType: "text/plain"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Init(ctx, "user-1", tt.req)
			assert.ErrorIs(t, err, common.ErrValidation)
		})
	}
}

func TestService_InitChunkMath(t *testing.T) {
	f := newServiceFixture(t)

	// 20 bytes at chunk size 8 needs 3 chunks.
	resp, err := f.svc.Init(context.Background(), "user-1", InitRequest{
		FileName: "a.bin", FileSize: 20, MimeType: "application/octet-stream",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, int64(8), resp.ChunkSize)
	assert.Equal(t, 3, resp.TotalChunks)
}

func TestService_PutChunkIndexOutOfRange(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	resp, err := f.svc.Init(ctx, "user-1", InitRequest{
		FileName: "a.bin", FileSize: 20, MimeType: "application/octet-stream",
	})
	require.NoError(t, err)

	_, err = f.svc.PutChunk(ctx, "user-1", resp.SessionID, 3, []byte("x"))
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = f.svc.PutChunk(ctx, "user-1", resp.SessionID, -1, []byte("x"))
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestService_FullPipeline(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	init, err := f.svc.Init(ctx, "user-1", InitRequest{
		FileName: "a.bin", FileSize: 20, MimeType: "application/octet-stream",
	})
	require.NoError(t, err)

	// Two distinct chunks plus a repeat of the first, out of order.
	payloads := map[int][]byte{
		2: []byte("tail"),
		0: []byte("headhead"),
		1: []byte("headhead"),
	}
	var lastUploaded int
	for _, idx := range []int{2, 0, 1} {
		chunk, err := f.svc.PutChunk(ctx, "user-1", init.SessionID, idx, payloads[idx])
		require.NoError(t, err)
		assert.Equal(t, idx, chunk.ChunkIndex)
		lastUploaded = chunk.Uploaded
	}
	assert.Equal(t, 3, lastUploaded)
	assert.Equal(t, 2, f.blobs.puts, "identical payloads share one blob")

	status, err := f.svc.Status(ctx, "user-1", init.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 100, status.Percent)
	assert.True(t, status.Complete)

	now := time.Now()
	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`INSERT INTO files`).
		WillReturnRows(sqlmock.NewRows([]string{"file_id", "name", "folder_path", "size", "mime_type", "created_at", "updated_at"}).
			AddRow("file-1", "a.bin", "/", 20, "application/octet-stream", now, now))
	f.mock.ExpectQuery(`INSERT INTO file_versions`).
		WillReturnRows(sqlmock.NewRows([]string{"version_id"}).AddRow("ver-1"))
	for range 3 {
		f.mock.ExpectExec(`INSERT INTO file_version_chunks`).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	f.mock.ExpectExec(`UPDATE users SET storage_used`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectCommit()

	file, err := f.svc.Complete(ctx, "user-1", init.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "file-1", file.FileID)
	assert.Equal(t, 1, file.Version)

	// First success wins; the session is gone.
	_, err = f.svc.Complete(ctx, "user-1", init.SessionID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestService_CompleteIncomplete(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	init, err := f.svc.Init(ctx, "user-1", InitRequest{
		FileName: "a.bin", FileSize: 20, MimeType: "application/octet-stream",
	})
	require.NoError(t, err)

	_, err = f.svc.PutChunk(ctx, "user-1", init.SessionID, 0, []byte("headhead"))
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, "user-1", init.SessionID)
	var incomplete *common.IncompleteUploadError
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, 1, incomplete.Uploaded)
	assert.Equal(t, 3, incomplete.Total)

	// The session survives a failed completion.
	_, err = f.svc.Status(ctx, "user-1", init.SessionID)
	assert.NoError(t, err)
}

func TestService_DownloadManifest(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	idA, _, err := f.chunks.Register(ctx, "hash-a", 8, "chunks/hash-a")
	require.NoError(t, err)
	idB, _, err := f.chunks.Register(ctx, "hash-b", 4, "chunks/hash-b")
	require.NoError(t, err)

	f.fRepo.files["file-1"] = &models.File{FileID: "file-1", UserID: "user-1", Name: "a.bin", Size: 12}
	_, err = f.fRepo.InsertVersion(ctx, "file-1", 1, 12, []string{idA, idB})
	require.NoError(t, err)

	resp, err := f.svc.Download(ctx, "user-1", "file-1")
	require.NoError(t, err)

	require.Len(t, resp.Chunks, 2)
	assert.Equal(t, 0, resp.Chunks[0].Index)
	assert.Equal(t, idA, resp.Chunks[0].ChunkID)
	assert.Equal(t, "https://blobs.test/chunks/hash-a", resp.Chunks[0].URL)
	assert.Equal(t, 1, resp.Chunks[1].Index)
	assert.Equal(t, 900, resp.ExpiresInSeconds)
}

func TestService_DownloadForeignFileIsNotFound(t *testing.T) {
	f := newServiceFixture(t)
	f.fRepo.files["file-1"] = &models.File{FileID: "file-1", UserID: "user-1"}

	_, err := f.svc.Download(context.Background(), "someone-else", "file-1")
	assert.ErrorIs(t, err, common.ErrNotFound)
}
