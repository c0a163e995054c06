package tokens

import (
	"context"
	"time"

	"github.com/driftlabs/driftbox/internal/models"
)

type Repository interface {
	Create(ctx context.Context, userID, tokenHash string, validity time.Duration) error
	Find(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	Delete(ctx context.Context, tokenHash string) error
}
