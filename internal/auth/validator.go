package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tooltime-pro/session-guard/internal/domain"
)

// IdentityResolver resolves a bearer credential at the identity provider.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, credential string) (*domain.Identity, error)
}

// Validator turns a bearer credential into an identity. Every call goes to the
// provider; results are never cached and failures are never retried.
type Validator struct {
	resolver IdentityResolver
}

// NewValidator constructs a Validator.
func NewValidator(resolver IdentityResolver) *Validator {
	return &Validator{resolver: resolver}
}

// ExtractBearer returns the credential from an Authorization header value.
func ExtractBearer(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", fmt.Errorf("missing authorization header: %w", domain.ErrUnauthenticated)
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", fmt.Errorf("invalid authorization header: %w", domain.ErrUnauthenticated)
	}
	return strings.TrimSpace(parts[1]), nil
}

// Validate resolves credential. Errors wrap either domain.ErrUnauthenticated or
// domain.ErrIdentityNotConfigured; anything else from the provider is reported as
// unauthenticated.
func (v *Validator) Validate(ctx context.Context, credential string) (*domain.Identity, error) {
	if strings.TrimSpace(credential) == "" {
		return nil, fmt.Errorf("empty credential: %w", domain.ErrUnauthenticated)
	}
	if v == nil || v.resolver == nil {
		return nil, domain.ErrIdentityNotConfigured
	}

	identity, err := v.resolver.ResolveIdentity(ctx, credential)
	if err != nil {
		if errors.Is(err, domain.ErrIdentityNotConfigured) || errors.Is(err, domain.ErrUnauthenticated) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	if identity == nil || identity.ID == "" {
		return nil, fmt.Errorf("provider returned no identity: %w", domain.ErrUnauthenticated)
	}
	return identity, nil
}

// ValidateHeader extracts the bearer credential from header and validates it.
func (v *Validator) ValidateHeader(ctx context.Context, header string) (*domain.Identity, string, error) {
	credential, err := ExtractBearer(header)
	if err != nil {
		return nil, "", err
	}
	identity, err := v.Validate(ctx, credential)
	if err != nil {
		return nil, "", err
	}
	return identity, credential, nil
}
