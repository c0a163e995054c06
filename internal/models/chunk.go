package models

import "time"

// Chunk is a content-addressed, immutable blob record. The hash is the
// unique key: a chunk is created at most once regardless of how many
// sessions or files reference it, and it is shared across users.
type Chunk struct {
	ChunkID     string    `json:"chunkId"`
	Hash        string    `json:"hash"`
	Size        int64     `json:"size"`
	StoragePath string    `json:"storagePath"`
	CreatedAt   time.Time `json:"createdAt"`
}
