// Package session implements the single-active-session registry and global sign-out.
package session

import (
	"context"
	"errors"
)

var (
	// ErrStoreNotConfigured means no backing store is available on this deployment.
	ErrStoreNotConfigured = errors.New("session: store not configured")
	// ErrStoreUnavailable wraps transient read/write failures of the backing store.
	ErrStoreUnavailable = errors.New("session: store unavailable")
	// ErrRecordNotFound means the user has no record in the backing store.
	ErrRecordNotFound = errors.New("session: user record not found")
	// ErrRegistrationFailed is returned by Register when the slot could not be written.
	ErrRegistrationFailed = errors.New("session: registration failed")
	// ErrInvalidSessionID rejects empty session ids.
	ErrInvalidSessionID = errors.New("session: session id must not be empty")
)

// Store persists one active session id per user. Writes are single-key atomic
// overwrites; a nil value means the slot is unset.
type Store interface {
	GetActiveSessionID(ctx context.Context, userID string) (*string, error)
	SetActiveSessionID(ctx context.Context, userID string, sessionID *string) error
}

// UnconfiguredStore is used when the configured backend is unavailable at startup.
type UnconfiguredStore struct{}

func (UnconfiguredStore) GetActiveSessionID(context.Context, string) (*string, error) {
	return nil, ErrStoreNotConfigured
}

func (UnconfiguredStore) SetActiveSessionID(context.Context, string, *string) error {
	return ErrStoreNotConfigured
}
