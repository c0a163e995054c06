package models

import "time"

// ShareLink grants access to a file, optionally scoped to a specific
// recipient and bounded by an expiry.
type ShareLink struct {
	LinkID     string     `json:"linkId"`
	FileID     string     `json:"fileId"`
	CreatedBy  string     `json:"-"`
	SharedWith string     `json:"sharedWithUserId,omitempty"`
	Permission string     `json:"permission"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}
