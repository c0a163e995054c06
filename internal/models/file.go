package models

import "time"

// File is the mutable pointer row for a stored file. It is never removed
// physically, only flagged deleted; its size follows the current version.
type File struct {
	FileID     string    `json:"fileId"`
	UserID     string    `json:"userId,omitempty"`
	Name       string    `json:"name"`
	FolderPath string    `json:"folderPath"`
	Size       int64     `json:"size"`
	MimeType   string    `json:"mimeType"`
	IsDeleted  bool      `json:"-"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	Version    int       `json:"version,omitempty"`
}

// FileVersion is immutable after creation. Version numbers are strictly
// increasing per file and never reused, including after restores.
type FileVersion struct {
	VersionID  string    `json:"versionId"`
	FileID     string    `json:"fileId"`
	VersionNum int       `json:"versionNum"`
	ChunkIDs   []string  `json:"chunkIds,omitempty"`
	Size       int64     `json:"size"`
	CreatedAt  time.Time `json:"createdAt"`
}
