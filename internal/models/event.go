package models

// Domain events carried over the durable broker queues. Delivery is
// at-least-once: consumers must tolerate duplicates.

// FileUploadedEvent is published after an upload completion commits.
type FileUploadedEvent struct {
	FileID     string `json:"fileId"`
	UserID     string `json:"userId"`
	FileName   string `json:"fileName"`
	FileSize   int64  `json:"fileSize"`
	UploadedAt string `json:"uploadedAt"`
}

// FileSyncedEvent is published when a file's state changes outside of a
// fresh upload, e.g. a version restore.
type FileSyncedEvent struct {
	FileID   string `json:"fileId"`
	UserID   string `json:"userId"`
	FileName string `json:"fileName"`
	SyncedAt string `json:"syncedAt"`
}

// FileSharedEvent is published when a file is shared with another user.
type FileSharedEvent struct {
	FileID           string `json:"fileId"`
	FileName         string `json:"fileName"`
	SharedWithUserID string `json:"sharedWithUserId"`
	SharedByEmail    string `json:"sharedByEmail"`
	Permission       string `json:"permission"`
}
