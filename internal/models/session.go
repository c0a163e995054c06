package models

import "time"

// UploadSession is the ephemeral metadata of an in-progress chunked
// upload. It lives in Redis under a bounded TTL; the per-index chunk
// references are kept in a separate hash keyed by chunk index so that
// concurrent, out-of-order arrivals write independently.
type UploadSession struct {
	SessionID   string    `json:"sessionId"`
	UserID      string    `json:"userId"`
	FileName    string    `json:"fileName"`
	FileSize    int64     `json:"fileSize"`
	MimeType    string    `json:"mimeType"`
	FolderPath  string    `json:"folderPath"`
	TotalChunks int       `json:"totalChunks"`
	ChunkSize   int64     `json:"chunkSize"`
	CreatedAt   time.Time `json:"createdAt"`
}
