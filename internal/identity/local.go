package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tooltime-pro/session-guard/internal/auth"
	"github.com/tooltime-pro/session-guard/internal/domain"
	"github.com/tooltime-pro/session-guard/internal/repository"
)

// LocalProvider resolves credentials issued by this service's TokenManager.
// The signature only proves the token was minted here; the user row is re-read
// on every call so revocation and suspension take effect immediately.
type LocalProvider struct {
	tokens *auth.TokenManager
	users  repository.UserRepository
}

// NewLocalProvider constructs a LocalProvider.
func NewLocalProvider(tokens *auth.TokenManager, users repository.UserRepository) *LocalProvider {
	return &LocalProvider{tokens: tokens, users: users}
}

func (p *LocalProvider) ResolveIdentity(ctx context.Context, credential string) (*domain.Identity, error) {
	claims, err := p.tokens.ParseToken(credential)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}

	user, err := p.users.GetByID(ctx, claims.Subject)
	switch {
	case errors.Is(err, repository.ErrNotConfigured):
		return nil, fmt.Errorf("%w: %v", domain.ErrIdentityNotConfigured, err)
	case errors.Is(err, pgx.ErrNoRows):
		return nil, fmt.Errorf("unknown user: %w", domain.ErrUnauthenticated)
	case err != nil:
		return nil, fmt.Errorf("%w: load user: %v", domain.ErrUnauthenticated, err)
	}

	if user.Status != domain.UserStatusActive {
		return nil, fmt.Errorf("user suspended: %w", domain.ErrUnauthenticated)
	}
	if claims.Version != user.TokenVersion {
		return nil, fmt.Errorf("credential revoked: %w", domain.ErrUnauthenticated)
	}
	return user.Identity(), nil
}

// RevokeAllCredentials bumps the user's token version; every token minted before
// the bump carries the old version and is rejected from now on.
func (p *LocalProvider) RevokeAllCredentials(ctx context.Context, identityID string) error {
	if _, err := p.users.IncrementTokenVersion(ctx, identityID); err != nil {
		if errors.Is(err, repository.ErrNotConfigured) {
			return fmt.Errorf("%w: %v", domain.ErrIdentityNotConfigured, err)
		}
		return fmt.Errorf("revoke credentials: %w", err)
	}
	return nil
}
