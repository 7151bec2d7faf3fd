package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tooltime-pro/session-guard/internal/domain"
	"github.com/tooltime-pro/session-guard/internal/observability"
)

// Result is the outcome of Validate.
type Result struct {
	Valid bool
	// Outcome is one of the observability.Outcome* values.
	Outcome string
	// Cause is set when the result was decided by failing open.
	Cause error
}

// Registry holds at most one active session id per user.
//
// Register is a last-writer-wins overwrite: the newest login always takes the
// slot. Validate fails open when the slot cannot be read, so an outage of the
// store disables enforcement rather than locking users out. Authentication
// failures are handled before the registry is reached and are never masked.
type Registry struct {
	store   Store
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewRegistry constructs a Registry.
func NewRegistry(store Store, logger *zap.Logger, metrics *observability.Metrics) *Registry {
	if store == nil {
		store = UnconfiguredStore{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{store: store, logger: logger, metrics: metrics}
}

// Register makes sessionID the only valid session for identity.
func (r *Registry) Register(ctx context.Context, identity *domain.Identity, sessionID string) error {
	if identity == nil || identity.ID == "" {
		return domain.ErrUnauthenticated
	}
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidSessionID
	}

	if err := r.store.SetActiveSessionID(ctx, identity.ID, &sessionID); err != nil {
		r.metrics.RecordStoreError("set")
		if errors.Is(err, ErrStoreNotConfigured) {
			return err
		}
		r.logger.Warn("register active session", zap.String("user_id", identity.ID), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrRegistrationFailed, err)
	}
	return nil
}

// Validate reports whether sessionID is the active session for identity.
// It never returns an error: unreadable or unset slots validate as true.
func (r *Registry) Validate(ctx context.Context, identity *domain.Identity, sessionID string) Result {
	if identity == nil || identity.ID == "" {
		// Callers validate the credential first; treat a missing identity as no enforcement.
		return r.failOpen("", errors.New("no identity"))
	}

	stored, err := r.store.GetActiveSessionID(ctx, identity.ID)
	if err != nil {
		r.metrics.RecordStoreError("get")
		return r.failOpen(identity.ID, err)
	}

	if stored == nil {
		r.metrics.RecordValidation(observability.OutcomeUnset)
		return Result{Valid: true, Outcome: observability.OutcomeUnset}
	}

	if *stored == sessionID {
		r.metrics.RecordValidation(observability.OutcomeValid)
		return Result{Valid: true, Outcome: observability.OutcomeValid}
	}

	r.metrics.RecordValidation(observability.OutcomeMismatch)
	return Result{Valid: false, Outcome: observability.OutcomeMismatch}
}

// Clear unsets the slot for identity. Clearing an unset slot succeeds.
func (r *Registry) Clear(ctx context.Context, identity *domain.Identity) error {
	if identity == nil || identity.ID == "" {
		return domain.ErrUnauthenticated
	}
	err := r.store.SetActiveSessionID(ctx, identity.ID, nil)
	switch {
	case err == nil, errors.Is(err, ErrRecordNotFound):
		return nil
	case errors.Is(err, ErrStoreNotConfigured):
		r.metrics.RecordStoreError("clear")
		return err
	default:
		r.metrics.RecordStoreError("clear")
		r.logger.Warn("clear active session", zap.String("user_id", identity.ID), zap.Error(err))
		return err
	}
}

func (r *Registry) failOpen(userID string, cause error) Result {
	r.metrics.RecordValidation(observability.OutcomeFailOpen)
	if errors.Is(cause, ErrStoreNotConfigured) {
		r.logger.Debug("session enforcement inactive: store not configured", zap.String("user_id", userID))
	} else {
		r.logger.Warn("session validation failed open", zap.String("user_id", userID), zap.Error(cause))
	}
	return Result{Valid: true, Outcome: observability.OutcomeFailOpen, Cause: cause}
}
