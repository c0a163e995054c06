// Package common defines shared constants and sentinel errors used across
// the DriftBox services. Callers should use errors.Is to match the
// sentinels and errors.As for the structured ones.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Request validation errors.
	ErrValidation = errors.New("validation error")

	// Auth errors.
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrForbidden    = errors.New("forbidden")

	// Lifecycle errors (links, sessions, tokens past their expiry).
	ErrExpired = errors.New("expired")

	// Transient errors: the durable store or broker is unreachable.
	// Safe to retry; surfaced to callers as a generic 500.
	ErrTransient = errors.New("transient error")

	// Service-level fallback.
	ErrInternal = errors.New("internal error")
)

// IncompleteUploadError reports a completion attempt on an upload session
// that still has missing chunk indices. It carries the populated/total
// counts so callers can report progress.
type IncompleteUploadError struct {
	Uploaded int
	Total    int
}

func (e *IncompleteUploadError) Error() string {
	return fmt.Sprintf("upload incomplete: %d/%d chunks received", e.Uploaded, e.Total)
}
