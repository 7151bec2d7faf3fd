package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tooltime-pro/session-guard/internal/domain"
)

type resolverFunc func(ctx context.Context, credential string) (*domain.Identity, error)

func (f resolverFunc) ResolveIdentity(ctx context.Context, credential string) (*domain.Identity, error) {
	return f(ctx, credential)
}

func TestExtractBearer(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{name: "valid", header: "Bearer abc", want: "abc"},
		{name: "case insensitive scheme", header: "bearer abc", want: "abc"},
		{name: "missing", header: "", wantErr: true},
		{name: "wrong scheme", header: "Basic abc", wantErr: true},
		{name: "no credential", header: "Bearer ", wantErr: true},
		{name: "scheme only", header: "Bearer", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractBearer(tt.header)
			if tt.wantErr {
				require.ErrorIs(t, err, domain.ErrUnauthenticated)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidator_ResolvesEveryCall(t *testing.T) {
	calls := 0
	v := NewValidator(resolverFunc(func(_ context.Context, credential string) (*domain.Identity, error) {
		calls++
		return &domain.Identity{ID: "user-1", Email: "pat@example.com"}, nil
	}))

	for i := 0; i < 3; i++ {
		identity, err := v.Validate(context.Background(), "cred")
		require.NoError(t, err)
		assert.Equal(t, "user-1", identity.ID)
	}
	assert.Equal(t, 3, calls)
}

func TestValidator_NeverRetries(t *testing.T) {
	calls := 0
	v := NewValidator(resolverFunc(func(context.Context, string) (*domain.Identity, error) {
		calls++
		return nil, errors.New("provider down")
	}))

	_, err := v.Validate(context.Background(), "cred")
	require.ErrorIs(t, err, domain.ErrUnauthenticated)
	assert.Equal(t, 1, calls)
}

func TestValidator_PropagatesNotConfigured(t *testing.T) {
	v := NewValidator(resolverFunc(func(context.Context, string) (*domain.Identity, error) {
		return nil, domain.ErrIdentityNotConfigured
	}))

	_, _, err := v.ValidateHeader(context.Background(), "Bearer cred")
	require.ErrorIs(t, err, domain.ErrIdentityNotConfigured)

	_, err = (*Validator)(nil).Validate(context.Background(), "cred")
	require.ErrorIs(t, err, domain.ErrIdentityNotConfigured)
}

func TestValidator_EmptyIdentityRejected(t *testing.T) {
	v := NewValidator(resolverFunc(func(context.Context, string) (*domain.Identity, error) {
		return &domain.Identity{}, nil
	}))
	_, err := v.Validate(context.Background(), "cred")
	require.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestValidator_MissingCredentialSkipsProvider(t *testing.T) {
	called := false
	v := NewValidator(resolverFunc(func(context.Context, string) (*domain.Identity, error) {
		called = true
		return nil, nil
	}))
	_, _, err := v.ValidateHeader(context.Background(), "")
	require.ErrorIs(t, err, domain.ErrUnauthenticated)
	assert.False(t, called)
}
