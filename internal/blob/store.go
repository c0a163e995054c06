// Package blob abstracts the content-addressed chunk store. Blobs are
// located by a key derived from the hash of their contents, so identical
// content maps to one stored copy.
package blob

import (
	"context"
	"io"
	"time"
)

// Store is implemented by object-storage backends.
type Store interface {
	// Exists reports whether an object is already stored under key.
	Exists(ctx context.Context, key string) (bool, error)

	// Put stores the object. Writing the same key twice is harmless:
	// content-addressed keys make the payload identical by definition.
	Put(ctx context.Context, key string, r io.Reader, size int64) error

	// PresignGet returns a time-limited retrieval URL for the object.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}
