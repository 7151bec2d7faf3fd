package domain

import "errors"

var (
	// ErrUnauthenticated means the bearer credential is missing, malformed, expired or revoked.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrIdentityNotConfigured means the identity provider settings are absent on this deployment.
	ErrIdentityNotConfigured = errors.New("identity provider not configured")
)
