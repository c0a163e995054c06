package shares

import (
	"context"
	"time"

	"github.com/driftlabs/driftbox/internal/models"
)

// LinkInfo is a share link joined with its file and owner, used when a
// link is accessed publicly.
type LinkInfo struct {
	Link       models.ShareLink
	File       models.File
	OwnerEmail string
}

type Repository interface {
	Create(ctx context.Context, fileID, createdBy, sharedWith, permission string, expiresAt *time.Time) (*models.ShareLink, error)
	Get(ctx context.Context, linkID string) (*LinkInfo, error)
	ListByOwner(ctx context.Context, userID string) ([]*models.ShareLink, error)
	// Revoke deletes a link owned by userID; absent or foreign links
	// yield common.ErrNotFound.
	Revoke(ctx context.Context, linkID, userID string) error
}
