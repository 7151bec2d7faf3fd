package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tooltime-pro/session-guard/internal/repository"
)

// PostgresStore keeps the slot in users.active_session_id.
type PostgresStore struct {
	users repository.UserRepository
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(users repository.UserRepository) *PostgresStore {
	return &PostgresStore{users: users}
}

func (s *PostgresStore) GetActiveSessionID(ctx context.Context, userID string) (*string, error) {
	sid, err := s.users.GetActiveSessionID(ctx, userID)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	return sid, nil
}

func (s *PostgresStore) SetActiveSessionID(ctx context.Context, userID string, sessionID *string) error {
	if err := s.users.SetActiveSessionID(ctx, userID, sessionID); err != nil {
		return mapRepositoryError(err)
	}
	return nil
}

func mapRepositoryError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotConfigured):
		return ErrStoreNotConfigured
	case errors.Is(err, pgx.ErrNoRows):
		return ErrRecordNotFound
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}
