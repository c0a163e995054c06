// Package models holds the data model structs shared by repositories,
// services and handlers.
package models

import "time"

// User is an account row. StorageUsed is incremented inside the upload
// completion transaction and decremented on soft delete.
type User struct {
	UserID       string    `json:"userId"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	StorageUsed  int64     `json:"storageUsed"`
	StorageQuota int64     `json:"storageQuota"`
	CreatedAt    time.Time `json:"createdAt"`
}

// RefreshToken stores the SHA-256 hash of an opaque refresh token.
type RefreshToken struct {
	TokenHash string
	UserID    string
	ExpiresAt time.Time
}
