package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/tooltime-pro/session-guard/internal/domain"
	"github.com/tooltime-pro/session-guard/internal/repository"
	apperrors "github.com/tooltime-pro/session-guard/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	Identity   *domain.Identity
	Credential string
	// User is nil when no local user record exists for the identity.
	User *domain.User
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	validator *Validator
	users     repository.UserRepository
	logger    *zap.Logger
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(validator *Validator, users repository.UserRepository, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{validator: validator, users: users, logger: logger}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	identity, credential, err := m.validator.ValidateHeader(c.UserContext(), c.Get(fiber.HeaderAuthorization))
	if err != nil {
		if errors.Is(err, domain.ErrIdentityNotConfigured) {
			return apperrors.NewConfigError(err)
		}
		return apperrors.NewUnauthorizedCause("invalid or missing credentials", err)
	}

	principal := &Principal{Identity: identity, Credential: credential}

	if m.users != nil {
		user, err := m.users.GetByID(c.UserContext(), identity.ID)
		switch {
		case err == nil:
			principal.User = user
		case errors.Is(err, pgx.ErrNoRows), errors.Is(err, repository.ErrNotConfigured):
		default:
			m.logger.Warn("load user record", zap.String("user_id", identity.ID), zap.Error(err))
		}
	}

	c.Locals(principalKey, principal)
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

// WithPrincipal stores principal on the request; used by tests and internal callers.
func WithPrincipal(c *fiber.Ctx, principal *Principal) {
	c.Locals(principalKey, principal)
}
