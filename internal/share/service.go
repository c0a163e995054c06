// Package share manages share links: time-bounded, optionally
// recipient-scoped grants to a file, announced as file.shared events.
package share

import (
	"context"
	"fmt"
	"time"

	"github.com/driftlabs/driftbox/internal/common"
	"github.com/driftlabs/driftbox/internal/logging"
	"github.com/driftlabs/driftbox/internal/messaging"
	"github.com/driftlabs/driftbox/internal/models"
	"github.com/driftlabs/driftbox/internal/repositories/files"
	"github.com/driftlabs/driftbox/internal/repositories/shares"
	"github.com/driftlabs/driftbox/internal/repositories/users"
)

const (
	PermissionRead  = "read"
	PermissionWrite = "write"

	maxExpiryDays = 365
)

type Service struct {
	shares shares.Repository
	files  files.Repository
	users  users.Repository
	pub    messaging.Publisher
	log    logging.Logger
}

func NewService(sharesRepo shares.Repository, filesRepo files.Repository, usersRepo users.Repository,
	pub messaging.Publisher, log logging.Logger) *Service {
	return &Service{shares: sharesRepo, files: filesRepo, users: usersRepo, pub: pub, log: log}
}

// CreateRequest describes a new share link.
type CreateRequest struct {
	FileID           string `json:"fileId"`
	SharedWithUserID string `json:"sharedWithUserId"`
	Permission       string `json:"permission"`
	ExpiresInDays    int    `json:"expiresInDays"`
}

// Create validates ownership, stores the link and publishes file.shared.
// A link with no recipient is an open link; only recipient-scoped links
// produce a push on the consumer side.
func (s *Service) Create(ctx context.Context, userID string, req CreateRequest) (*models.ShareLink, error) {
	if req.FileID == "" {
		return nil, fmt.Errorf("fileId is required: %w", common.ErrValidation)
	}
	if req.Permission == "" {
		req.Permission = PermissionRead
	}
	if req.Permission != PermissionRead && req.Permission != PermissionWrite {
		return nil, fmt.Errorf("permission must be %q or %q: %w", PermissionRead, PermissionWrite, common.ErrValidation)
	}
	if req.ExpiresInDays < 0 || req.ExpiresInDays > maxExpiryDays {
		return nil, fmt.Errorf("expiresInDays must be between 0 and %d: %w", maxExpiryDays, common.ErrValidation)
	}

	file, err := s.files.GetByID(ctx, req.FileID)
	if err != nil {
		return nil, err
	}
	if file.UserID != userID {
		return nil, common.ErrForbidden
	}

	var expiresAt *time.Time
	if req.ExpiresInDays > 0 {
		t := time.Now().UTC().Add(time.Duration(req.ExpiresInDays) * 24 * time.Hour)
		expiresAt = &t
	}

	link, err := s.shares.Create(ctx, req.FileID, userID, req.SharedWithUserID, req.Permission, expiresAt)
	if err != nil {
		return nil, err
	}

	owner, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	event := models.FileSharedEvent{
		FileID:           file.FileID,
		FileName:         file.Name,
		SharedWithUserID: link.SharedWith,
		SharedByEmail:    owner.Email,
		Permission:       link.Permission,
	}
	if err := s.pub.Publish(ctx, messaging.QueueFileShared, event); err != nil {
		s.log.Error(ctx, "failed to publish file.shared", "linkId", link.LinkID, "error", err.Error())
	}

	return link, nil
}

// AccessResponse is what a link visitor sees.
type AccessResponse struct {
	File       *models.File `json:"file"`
	SharedBy   string       `json:"sharedBy"`
	Permission string       `json:"permission"`
	ExpiresAt  *time.Time   `json:"expiresAt,omitempty"`
}

// Access resolves a link for an anonymous visitor. A link past its
// expiry is Gone, not NotFound: the caller learns it once existed.
func (s *Service) Access(ctx context.Context, linkID string) (*AccessResponse, error) {
	info, err := s.shares.Get(ctx, linkID)
	if err != nil {
		return nil, err
	}
	if info.Link.ExpiresAt != nil && info.Link.ExpiresAt.Before(time.Now()) {
		return nil, fmt.Errorf("share link has expired: %w", common.ErrExpired)
	}
	return &AccessResponse{
		File:       &info.File,
		SharedBy:   info.OwnerEmail,
		Permission: info.Link.Permission,
		ExpiresAt:  info.Link.ExpiresAt,
	}, nil
}

// List returns the links the user has created, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]*models.ShareLink, error) {
	return s.shares.ListByOwner(ctx, userID)
}

// Revoke deletes a link the user created.
func (s *Service) Revoke(ctx context.Context, userID, linkID string) error {
	return s.shares.Revoke(ctx, linkID, userID)
}
