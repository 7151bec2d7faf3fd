package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
	"go.uber.org/zap"

	"github.com/tooltime-pro/session-guard/internal/domain"
	"github.com/tooltime-pro/session-guard/internal/events"
	"github.com/tooltime-pro/session-guard/internal/session"
)

// Registration sources recorded on session_registered events.
const (
	SourceLogin = "login"
	SourceAPI   = "api"
)

// Sign-out reasons recorded on credentials_revoked events.
const (
	ReasonUserRequested  = "user_requested"
	ReasonPasswordReset  = "password_reset"
	ReasonPasswordChange = "password_change"
	ReasonAdmin          = "admin"
)

// A stale device keeps polling until it stops, so each (user, stale session)
// pair is reported once within this window.
const (
	takeoverReportTTL      = 24 * time.Hour
	takeoverReportCapacity = 10000
)

// SessionService exposes the session registry and global sign-out to handlers
// and publishes the matching events.
type SessionService struct {
	registry   *session.Registry
	signOut    *session.SignOut
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
	reported   *ttlcache.Cache[string, struct{}]
}

// NewSessionService builds the service.
func NewSessionService(registry *session.Registry, signOut *session.SignOut, dispatcher events.Dispatcher, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	reported := ttlcache.New(
		ttlcache.WithTTL[string, struct{}](takeoverReportTTL),
		ttlcache.WithCapacity[string, struct{}](takeoverReportCapacity),
		ttlcache.WithDisableTouchOnHit[string, struct{}](),
	)
	return &SessionService{
		registry:   registry,
		signOut:    signOut,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
		reported:   reported,
	}
}

// Register claims the active-session slot for sessionID.
func (s *SessionService) Register(ctx context.Context, identity *domain.Identity, sessionID, source string) error {
	if err := s.registry.Register(ctx, identity, sessionID); err != nil {
		return err
	}
	// A reclaimed session may be taken over again and should be reported again.
	s.reported.Delete(takeoverKey(identity, sessionID))
	s.publish(ctx, events.EventSessionRegistered, identity, events.SessionRegisteredPayload{Source: source})
	return nil
}

// Validate checks sessionID against the slot. Only the first mismatch of a
// stale session publishes a takeover event.
func (s *SessionService) Validate(ctx context.Context, identity *domain.Identity, sessionID string) session.Result {
	result := s.registry.Validate(ctx, identity, sessionID)
	if !result.Valid && s.firstReport(identity, sessionID) {
		s.publish(ctx, events.EventSessionTakeoverDetected, identity, events.SessionTakeoverPayload{
			StaleSessionSuffix: suffix(sessionID, 4),
		})
	}
	return result
}

// SignOutAll revokes every credential of identity and clears its slot.
func (s *SessionService) SignOutAll(ctx context.Context, identity *domain.Identity, reason string) session.SignOutResult {
	result := s.signOut.SignOutAll(ctx, identity)

	payload := events.CredentialsRevokedPayload{Reason: reason}
	if result.ProviderErr != nil {
		payload.ProviderError = result.ProviderErr.Error()
	}
	if result.RegistryErr != nil {
		payload.RegistryError = result.RegistryErr.Error()
	}
	s.publish(ctx, events.EventCredentialsRevoked, identity, payload)
	return result
}

func (s *SessionService) publish(ctx context.Context, eventType events.EventType, identity *domain.Identity, payload interface{}) {
	if s.dispatcher == nil || identity == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    identity.ID,
		Email:     identity.Email,
		Timestamp: s.now().UTC(),
		Payload:   payload,
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event", zap.String("type", string(eventType)), zap.Error(err))
	}
}

func (s *SessionService) firstReport(identity *domain.Identity, sessionID string) bool {
	key := takeoverKey(identity, sessionID)
	if s.reported.Get(key) != nil {
		return false
	}
	s.reported.Set(key, struct{}{}, ttlcache.DefaultTTL)
	return true
}

func takeoverKey(identity *domain.Identity, sessionID string) string {
	if identity == nil {
		return sessionID
	}
	return identity.ID + "\x00" + sessionID
}

// suffix returns the last n characters of s, enough to correlate logs without
// recording the session id.
func suffix(s string, n int) string {
	if len(s) <= n {
		return ""
	}
	return s[len(s)-n:]
}
