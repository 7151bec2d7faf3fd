// Package identity holds the identity provider implementations the session
// guard resolves bearer credentials against.
package identity

import (
	"context"

	"github.com/tooltime-pro/session-guard/internal/domain"
)

// Provider is the external identity provider.
type Provider interface {
	// ResolveIdentity authoritatively resolves credential. Revoked or expired
	// credentials fail with domain.ErrUnauthenticated.
	ResolveIdentity(ctx context.Context, credential string) (*domain.Identity, error)
	// RevokeAllCredentials invalidates every credential issued to identityID.
	RevokeAllCredentials(ctx context.Context, identityID string) error
}

// Unconfigured is used when the provider settings are missing; every call reports
// domain.ErrIdentityNotConfigured instead of failing process startup.
type Unconfigured struct{}

func (Unconfigured) ResolveIdentity(context.Context, string) (*domain.Identity, error) {
	return nil, domain.ErrIdentityNotConfigured
}

func (Unconfigured) RevokeAllCredentials(context.Context, string) error {
	return domain.ErrIdentityNotConfigured
}
