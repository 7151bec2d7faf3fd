package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tooltime-pro/session-guard/internal/domain"
	"github.com/tooltime-pro/session-guard/internal/events"
	"github.com/tooltime-pro/session-guard/internal/observability"
	"github.com/tooltime-pro/session-guard/internal/session"
)

type stubRevoker struct {
	err   error
	calls int
}

func (s *stubRevoker) RevokeAllCredentials(context.Context, string) error {
	s.calls++
	return s.err
}

type capture struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *capture) handle(_ context.Context, e events.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

func (c *capture) byType(t events.EventType) []events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []events.Event
	for _, e := range c.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func newSessionServiceForTest(t *testing.T, revoker session.CredentialRevoker) (*SessionService, *capture) {
	t.Helper()
	store := session.NewMemoryStore(0)
	t.Cleanup(store.Close)
	registry := session.NewRegistry(store, zap.NewNop(), nil)

	dispatcher := events.NewInMemoryDispatcher()
	c := &capture{}
	dispatcher.Subscribe(events.EventSessionRegistered, c.handle)
	dispatcher.Subscribe(events.EventSessionTakeoverDetected, c.handle)
	dispatcher.Subscribe(events.EventCredentialsRevoked, c.handle)

	return NewSessionService(registry, session.NewSignOut(revoker, registry, nil), dispatcher, nil), c
}

func TestSessionService_RegisterAndValidate(t *testing.T) {
	ctx := context.Background()
	svc, c := newSessionServiceForTest(t, &stubRevoker{})
	id := &domain.Identity{ID: "u1", Email: "u1@example.com"}

	require.NoError(t, svc.Register(ctx, id, "device-one-abcd", SourceAPI))
	require.Len(t, c.byType(events.EventSessionRegistered), 1)
	assert.Equal(t, SourceAPI, c.byType(events.EventSessionRegistered)[0].Payload.(events.SessionRegisteredPayload).Source)

	res := svc.Validate(ctx, id, "device-one-abcd")
	assert.True(t, res.Valid)
	assert.Equal(t, observability.OutcomeValid, res.Outcome)
	assert.Empty(t, c.byType(events.EventSessionTakeoverDetected))

	res = svc.Validate(ctx, id, "device-two-wxyz")
	assert.False(t, res.Valid)
	takeovers := c.byType(events.EventSessionTakeoverDetected)
	require.Len(t, takeovers, 1)
	assert.Equal(t, "wxyz", takeovers[0].Payload.(events.SessionTakeoverPayload).StaleSessionSuffix)
	assert.Equal(t, "u1", takeovers[0].UserID)
}

func TestSessionService_TakeoverReportedOncePerStaleSession(t *testing.T) {
	ctx := context.Background()
	svc, c := newSessionServiceForTest(t, &stubRevoker{})
	id := &domain.Identity{ID: "u1"}

	require.NoError(t, svc.Register(ctx, id, "S1", SourceLogin))
	require.NoError(t, svc.Register(ctx, id, "S2", SourceLogin))

	// The stale device keeps polling.
	for i := 0; i < 5; i++ {
		assert.False(t, svc.Validate(ctx, id, "S1").Valid)
	}
	assert.Len(t, c.byType(events.EventSessionTakeoverDetected), 1)

	// Another user's stale session is reported on its own.
	other := &domain.Identity{ID: "u2"}
	require.NoError(t, svc.Register(ctx, other, "T2", SourceLogin))
	assert.False(t, svc.Validate(ctx, other, "S1").Valid)
	assert.Len(t, c.byType(events.EventSessionTakeoverDetected), 2)

	// S1 reclaims the slot, then loses it again.
	require.NoError(t, svc.Register(ctx, id, "S1", SourceAPI))
	require.NoError(t, svc.Register(ctx, id, "S3", SourceLogin))
	assert.False(t, svc.Validate(ctx, id, "S1").Valid)
	assert.Len(t, c.byType(events.EventSessionTakeoverDetected), 3)
}

func TestSessionService_RegisterEmptyPublishesNothing(t *testing.T) {
	svc, c := newSessionServiceForTest(t, &stubRevoker{})

	err := svc.Register(context.Background(), &domain.Identity{ID: "u1"}, "", SourceAPI)
	require.ErrorIs(t, err, session.ErrInvalidSessionID)
	assert.Empty(t, c.byType(events.EventSessionRegistered))
}

func TestSessionService_SignOutAllReportsProviderFailure(t *testing.T) {
	ctx := context.Background()
	revoker := &stubRevoker{err: errors.New("idp down")}
	svc, c := newSessionServiceForTest(t, revoker)
	id := &domain.Identity{ID: "u1"}
	require.NoError(t, svc.Register(ctx, id, "S1", SourceLogin))

	result := svc.SignOutAll(ctx, id, ReasonUserRequested)
	assert.False(t, result.OK())
	require.Error(t, result.ProviderErr)
	require.NoError(t, result.RegistryErr)
	assert.Equal(t, 1, revoker.calls)

	// Slot cleared even though revocation failed.
	assert.Equal(t, observability.OutcomeUnset, svc.Validate(ctx, id, "S2").Outcome)

	revoked := c.byType(events.EventCredentialsRevoked)
	require.Len(t, revoked, 1)
	payload := revoked[0].Payload.(events.CredentialsRevokedPayload)
	assert.Equal(t, ReasonUserRequested, payload.Reason)
	assert.Equal(t, "idp down", payload.ProviderError)
	assert.Empty(t, payload.RegistryError)
}

func TestSuffix(t *testing.T) {
	assert.Equal(t, "", suffix("abc", 4))
	assert.Equal(t, "bcde", suffix("abcde", 4))
}
