package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/tooltime-pro/session-guard/internal/api/http/handlers"
	"github.com/tooltime-pro/session-guard/internal/auth"
	"github.com/tooltime-pro/session-guard/internal/domain"
	"github.com/tooltime-pro/session-guard/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Password       *handlers.PasswordHandler
	Sessions       *handlers.SessionHandler
	Company        *handlers.CompanyHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
	// LocalAuth exposes register, login and password routes. Off when a remote
	// identity provider issues credentials.
	LocalAuth bool
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))

	authGroup := app.Group("/auth")
	if cfg.LocalAuth {
		authGroup.Post("/users/register", cfg.Users.Register)
		authGroup.Post("/users/login", cfg.Users.Login)
		authGroup.Post("/password/reset/request", cfg.Password.RequestPasswordReset)
		authGroup.Post("/password/reset/confirm", cfg.Password.ConfirmPasswordReset)
	}

	protectedAuth := authGroup.Group("", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	protectedAuth.Get("/me", cfg.Users.Me)
	if cfg.LocalAuth {
		protectedAuth.Post("/password/change", auth.RequireUser(), cfg.Password.ChangePassword)
	}

	sessions := app.Group("/session", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	sessions.Post("/register", cfg.Sessions.Register)
	sessions.Get("/validate", cfg.Sessions.Validate)
	sessions.Post("/sign-out-all", cfg.Sessions.SignOutAll)

	company := app.Group("/company", cfg.AuthMiddleware.Handle, auth.RequireUser(),
		auth.RequireRole(domain.UserRoleOwner, domain.UserRoleAdmin))
	company.Post("/users/:id/sign-out-all", cfg.Company.SignOutMember)
}
