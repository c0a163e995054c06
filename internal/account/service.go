// Package account implements signup, login, token refresh and logout on
// top of bcrypt password hashes and rotating refresh tokens.
package account

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/driftlabs/driftbox/internal/auth"
	"github.com/driftlabs/driftbox/internal/common"
	"github.com/driftlabs/driftbox/internal/logging"
	"github.com/driftlabs/driftbox/internal/models"
	"github.com/driftlabs/driftbox/internal/repositories/tokens"
	"github.com/driftlabs/driftbox/internal/repositories/users"
)

const minPasswordLength = 8

type Service struct {
	users      users.Repository
	tokens     tokens.Repository
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	log        logging.Logger
}

func NewService(usersRepo users.Repository, tokensRepo tokens.Repository, secret []byte,
	accessTTL, refreshTTL time.Duration, log logging.Logger) *Service {
	return &Service{
		users:      usersRepo,
		tokens:     tokensRepo,
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		log:        log,
	}
}

// Credentials is a signup or login request.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenPair is issued on signup, login and refresh. The refresh token is
// opaque and single-use; a refresh rotates it.
type TokenPair struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	User         *models.User `json:"user"`
}

// Signup registers a new account and signs it in.
func (s *Service) Signup(ctx context.Context, creds Credentials) (*TokenPair, error) {
	if _, err := mail.ParseAddress(creds.Email); err != nil {
		return nil, fmt.Errorf("a valid email is required: %w", common.ErrValidation)
	}
	if len(creds.Password) < minPasswordLength {
		return nil, fmt.Errorf("password must be at least %d characters: %w", minPasswordLength, common.ErrValidation)
	}

	hash, err := auth.HashPassword(creds.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.Create(ctx, creds.Email, hash)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, user)
}

// Login verifies credentials. Absent accounts and wrong passwords are
// indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, creds Credentials) (*TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, creds.Email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("invalid credentials: %w", common.ErrUnauthorized)
		}
		return nil, err
	}
	if !auth.CheckPassword(user.PasswordHash, creds.Password) {
		return nil, fmt.Errorf("invalid credentials: %w", common.ErrUnauthorized)
	}
	return s.issue(ctx, user)
}

// Refresh exchanges a live refresh token for a new pair, invalidating
// the old token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	hash := auth.HashRefreshToken(refreshToken)
	stored, err := s.tokens.Find(ctx, hash)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("unknown refresh token: %w", common.ErrInvalidToken)
		}
		return nil, err
	}
	if stored.ExpiresAt.Before(time.Now()) {
		if err := s.tokens.Delete(ctx, hash); err != nil {
			s.log.Warn(ctx, "failed to delete expired refresh token", "error", err.Error())
		}
		return nil, common.ErrTokenExpired
	}

	user, err := s.users.GetByID(ctx, stored.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.Delete(ctx, hash); err != nil {
		return nil, err
	}
	return s.issue(ctx, user)
}

// Logout invalidates a refresh token. Unknown tokens are a no-op.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	err := s.tokens.Delete(ctx, auth.HashRefreshToken(refreshToken))
	if errors.Is(err, common.ErrNotFound) {
		return nil
	}
	return err
}

// Me returns the authenticated user's account.
func (s *Service) Me(ctx context.Context, userID string) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *Service) issue(ctx context.Context, user *models.User) (*TokenPair, error) {
	access, err := auth.GenerateToken(user.UserID, user.Email, s.secret, s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refresh, err := auth.NewRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	if err := s.tokens.Create(ctx, user.UserID, auth.HashRefreshToken(refresh), s.refreshTTL); err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh, User: user}, nil
}
