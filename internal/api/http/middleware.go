package http

import (
	"context"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/tooltime-pro/session-guard/internal/observability"
	apperrors "github.com/tooltime-pro/session-guard/pkg/util/errorutil"
)

const bearerRealm = "session-guard"

// RegisterMiddlewares attaches the request timeout, error envelope, request
// logging and cache headers shared by every route.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	app.Use(errorHandlingMiddleware(logger, metrics))
	app.Use(observability.RequestLogger(logger, metrics))
	app.Use(noStoreForCredentialed())
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// noStoreForCredentialed keeps answers to authenticated requests, such as a
// session validity verdict, out of shared caches.
func noStoreForCredentialed() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Get(fiber.HeaderAuthorization) != "" {
			c.Set(fiber.HeaderCacheControl, "no-store")
		}
		return c.Next()
	}
}

// errorHandlingMiddleware renders every error as {"error":{code,message}}.
// Rejected credentials get a bearer challenge and a debug log of the cause;
// the credential itself is never logged.
func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err == nil {
				return
			}

			domainErr := apperrors.ToDomainError(err)
			if metrics != nil {
				metrics.RecordError(c.Path(), c.Method(), domainErr.Code)
			}
			switch {
			case domainErr.HTTPStatus == fiber.StatusUnauthorized:
				c.Set(fiber.HeaderWWWAuthenticate, bearerChallenge(c.Get(fiber.HeaderAuthorization)))
				logger.Debug("credential rejected",
					zap.String("method", c.Method()),
					zap.String("path", c.Path()),
					zap.Bool("bearer_present", hasBearer(c.Get(fiber.HeaderAuthorization))),
					zap.NamedError("cause", domainErr.Unwrap()))
			case domainErr.Code == apperrors.CodeConfigError:
				logger.Error("identity provider not configured", zap.String("path", c.Path()), zap.Error(domainErr))
			case domainErr.HTTPStatus >= 500:
				logger.Error("request failed", zap.Error(domainErr))
			}

			response := fiber.Map{"error": fiber.Map{
				"code":    domainErr.Code,
				"message": domainErr.Message,
			}}
			if len(domainErr.Details) > 0 {
				response["error"].(fiber.Map)["details"] = domainErr.Details
			}
			c.Status(domainErr.HTTPStatus)
			_ = c.JSON(response)
			err = nil
		}()
		return c.Next()
	}
}

// bearerChallenge builds the RFC 6750 challenge. A request that carried a
// bearer credential is told the token was invalid; one without is not.
func bearerChallenge(authorization string) string {
	if hasBearer(authorization) {
		return `Bearer realm="` + bearerRealm + `", error="invalid_token"`
	}
	return `Bearer realm="` + bearerRealm + `"`
}

func hasBearer(authorization string) bool {
	scheme, token, ok := strings.Cut(strings.TrimSpace(authorization), " ")
	return ok && strings.EqualFold(scheme, "bearer") && strings.TrimSpace(token) != ""
}
