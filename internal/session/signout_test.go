package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tooltime-pro/session-guard/internal/domain"
)

type fakeRevoker struct {
	err   error
	calls []string
}

func (f *fakeRevoker) RevokeAllCredentials(_ context.Context, id string) error {
	f.calls = append(f.calls, id)
	return f.err
}

func TestSignOutAll_RevokesAndClears(t *testing.T) {
	ctx := context.Background()
	r := newMemoryRegistry(t)
	revoker := &fakeRevoker{}
	s := NewSignOut(revoker, r, zap.NewNop())

	require.NoError(t, r.Register(ctx, pat, "A"))
	require.NoError(t, r.Register(ctx, pat, "B"))
	require.False(t, r.Validate(ctx, pat, "A").Valid)

	result := s.SignOutAll(ctx, pat)
	require.True(t, result.OK())
	require.NoError(t, result.Err())
	assert.Equal(t, []string{pat.ID}, revoker.calls)

	assert.True(t, r.Validate(ctx, pat, "A").Valid)
	assert.True(t, r.Validate(ctx, pat, "B").Valid)
}

func TestSignOutAll_ClearsEvenWhenRevocationFails(t *testing.T) {
	ctx := context.Background()
	r := newMemoryRegistry(t)
	revoker := &fakeRevoker{err: errors.New("provider down")}
	s := NewSignOut(revoker, r, zap.NewNop())

	require.NoError(t, r.Register(ctx, pat, "A"))

	result := s.SignOutAll(ctx, pat)
	assert.False(t, result.OK())
	assert.Error(t, result.ProviderErr)
	assert.NoError(t, result.RegistryErr)

	assert.True(t, r.Validate(ctx, pat, "stale").Valid, "slot was cleared")
}

func TestSignOutAll_RegistryFailureIsDistinct(t *testing.T) {
	r := NewRegistry(failingStore{err: ErrStoreUnavailable}, zap.NewNop(), nil)
	s := NewSignOut(&fakeRevoker{}, r, zap.NewNop())

	result := s.SignOutAll(context.Background(), pat)
	assert.NoError(t, result.ProviderErr)
	assert.ErrorIs(t, result.RegistryErr, ErrStoreUnavailable)
	assert.ErrorIs(t, result.Err(), ErrStoreUnavailable)
}

func TestSignOutAll_NoProvider(t *testing.T) {
	s := NewSignOut(nil, newMemoryRegistry(t), nil)
	result := s.SignOutAll(context.Background(), pat)
	assert.ErrorIs(t, result.ProviderErr, domain.ErrIdentityNotConfigured)
	assert.NoError(t, result.RegistryErr)
}
