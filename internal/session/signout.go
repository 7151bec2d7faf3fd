package session

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/tooltime-pro/session-guard/internal/domain"
)

// CredentialRevoker revokes every credential the identity provider issued to a user.
type CredentialRevoker interface {
	RevokeAllCredentials(ctx context.Context, identityID string) error
}

// SignOutResult reports the two halves of a global sign-out separately so the
// caller can tell whether old credentials might still be accepted.
type SignOutResult struct {
	ProviderErr error
	RegistryErr error
}

// OK reports whether both steps succeeded.
func (r SignOutResult) OK() bool {
	return r.ProviderErr == nil && r.RegistryErr == nil
}

// Err joins both step errors; nil when OK.
func (r SignOutResult) Err() error {
	return errors.Join(r.ProviderErr, r.RegistryErr)
}

// SignOut performs global sign-out.
type SignOut struct {
	provider CredentialRevoker
	registry *Registry
	logger   *zap.Logger
}

// NewSignOut constructs a SignOut.
func NewSignOut(provider CredentialRevoker, registry *Registry, logger *zap.Logger) *SignOut {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SignOut{provider: provider, registry: registry, logger: logger}
}

// SignOutAll revokes all provider credentials of identity and clears its session
// slot. The slot is cleared even when revocation fails.
func (s *SignOut) SignOutAll(ctx context.Context, identity *domain.Identity) SignOutResult {
	if identity == nil || identity.ID == "" {
		return SignOutResult{ProviderErr: domain.ErrUnauthenticated, RegistryErr: domain.ErrUnauthenticated}
	}

	var result SignOutResult
	if s.provider == nil {
		result.ProviderErr = domain.ErrIdentityNotConfigured
	} else {
		result.ProviderErr = s.provider.RevokeAllCredentials(ctx, identity.ID)
	}
	if result.ProviderErr != nil {
		s.logger.Error("revoke provider credentials", zap.String("user_id", identity.ID), zap.Error(result.ProviderErr))
	}

	result.RegistryErr = s.registry.Clear(ctx, identity)
	if result.RegistryErr != nil {
		s.logger.Error("clear session slot after sign-out", zap.String("user_id", identity.ID), zap.Error(result.RegistryErr))
	}
	return result
}
