package chunks

import (
	"context"

	"github.com/driftlabs/driftbox/internal/models"
)

type Repository interface {
	// Register records a chunk by content hash. Registration is
	// idempotent: concurrent racers for the same hash converge on a
	// single row, and the boolean reports whether this call created it.
	Register(ctx context.Context, hash string, size int64, storagePath string) (chunkID string, created bool, err error)

	// GetByIDs returns the chunk records for the given ids, keyed by id.
	GetByIDs(ctx context.Context, ids []string) (map[string]*models.Chunk, error)
}
