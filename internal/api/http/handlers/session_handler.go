package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/tooltime-pro/session-guard/internal/api/dto"
	"github.com/tooltime-pro/session-guard/internal/auth"
	"github.com/tooltime-pro/session-guard/internal/service"
)

// SessionHandler exposes the active-session endpoints. Every route runs behind
// the auth middleware, so the identity is always resolved before the registry
// is consulted.
type SessionHandler struct {
	sessions *service.SessionService
}

// NewSessionHandler constructs handler.
func NewSessionHandler(sessions *service.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Register handles POST /session/register.
func (h *SessionHandler) Register(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}

	var req dto.RegisterSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if strings.TrimSpace(req.SessionID) == "" {
		return fiber.NewError(http.StatusBadRequest, "sessionId is required")
	}

	if err := h.sessions.Register(c.UserContext(), principal.Identity, req.SessionID, service.SourceAPI); err != nil {
		return mapSessionError(err)
	}
	return c.JSON(dto.SuccessResponse{Success: true})
}

// Validate handles GET /session/validate?sid=.
func (h *SessionHandler) Validate(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}

	sid := c.Query("sid")
	if sid == "" {
		return fiber.NewError(http.StatusBadRequest, "sid is required")
	}

	result := h.sessions.Validate(c.UserContext(), principal.Identity, sid)
	return c.JSON(dto.ValidateResponse{Valid: result.Valid})
}

// SignOutAll handles POST /session/sign-out-all.
func (h *SessionHandler) SignOutAll(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}

	result := h.sessions.SignOutAll(c.UserContext(), principal.Identity, service.ReasonUserRequested)
	if !result.OK() {
		return c.Status(http.StatusInternalServerError).JSON(signOutResponse(result))
	}
	return c.JSON(dto.SuccessResponse{Success: true})
}
