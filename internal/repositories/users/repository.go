package users

import (
	"context"

	"github.com/driftlabs/driftbox/internal/models"
)

type Repository interface {
	Create(ctx context.Context, email, passwordHash string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, userID string) (*models.User, error)
	// AddStorageUsed adjusts the user's quota counter by delta, which may
	// be negative. It participates in the caller's transaction when the
	// repository is constructed over one.
	AddStorageUsed(ctx context.Context, userID string, delta int64) error
}
