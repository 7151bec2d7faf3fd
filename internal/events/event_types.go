package events

import (
	"time"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSessionRegistered       EventType = "session_registered"
	EventSessionTakeoverDetected EventType = "session_takeover_detected"
	EventCredentialsRevoked      EventType = "credentials_revoked"
	EventPasswordResetRequested  EventType = "password_reset_requested"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    string      `json:"user_id"`
	Email     string      `json:"email,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// SessionRegisteredPayload payload.
type SessionRegisteredPayload struct {
	Source string `json:"source"`
}

// SessionTakeoverPayload payload.
type SessionTakeoverPayload struct {
	StaleSessionSuffix string `json:"stale_session_suffix"`
}

// CredentialsRevokedPayload payload.
type CredentialsRevokedPayload struct {
	Reason        string `json:"reason"`
	ProviderError string `json:"provider_error,omitempty"`
	RegistryError string `json:"registry_error,omitempty"`
}

// PasswordResetRequestedPayload carries the reset token to the mailer. It is
// never returned to the HTTP caller.
type PasswordResetRequestedPayload struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
