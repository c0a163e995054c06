package files

import (
	"context"

	"github.com/driftlabs/driftbox/internal/models"
)

// ListParams filters and paginates a folder listing.
type ListParams struct {
	UserID     string
	FolderPath string
	Limit      int
	Offset     int
}

type Repository interface {
	// Insert creates a file row and returns it with generated fields.
	Insert(ctx context.Context, f *models.File) (*models.File, error)

	// InsertVersion creates an immutable version row plus its ordered
	// chunk references.
	InsertVersion(ctx context.Context, fileID string, versionNum int, size int64, chunkIDs []string) (versionID string, err error)

	GetByID(ctx context.Context, fileID string) (*models.File, error)
	List(ctx context.Context, p ListParams) ([]*models.File, int, error)
	Search(ctx context.Context, userID, query string, limit int) ([]*models.File, error)

	// SoftDelete flags the file deleted and returns its current size so
	// the caller can release quota. Deleting an absent or already
	// deleted file yields common.ErrNotFound.
	SoftDelete(ctx context.Context, fileID, userID string) (size int64, err error)

	// UpdateSize moves the file's current-size pointer (restore path).
	UpdateSize(ctx context.Context, fileID string, size int64) error

	ListVersions(ctx context.Context, fileID string) ([]*models.FileVersion, error)
	GetVersion(ctx context.Context, versionID, fileID string) (*models.FileVersion, error)
	LatestVersion(ctx context.Context, fileID string) (*models.FileVersion, error)
	MaxVersionNum(ctx context.Context, fileID string) (int, error)
}
