package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/tooltime-pro/session-guard/internal/api/dto"
	"github.com/tooltime-pro/session-guard/internal/auth"
	"github.com/tooltime-pro/session-guard/internal/service"
)

// PasswordHandler exposes password reset and change endpoints. Both flows end
// in a global sign-out.
type PasswordHandler struct {
	authService *service.AuthService
}

// NewPasswordHandler constructs handler.
func NewPasswordHandler(authService *service.AuthService) *PasswordHandler {
	return &PasswordHandler{authService: authService}
}

// RequestPasswordReset handles POST /auth/password/reset/request.
func (h *PasswordHandler) RequestPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Email == "" {
		return fiber.NewError(http.StatusBadRequest, "email required")
	}

	// Known and unknown addresses get the same answer; the token goes out by
	// email only.
	if err := h.authService.RequestPasswordReset(c.UserContext(), req.Email); err != nil {
		return mapAuthError(err)
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{"data": fiber.Map{}})
}

// ConfirmPasswordReset handles POST /auth/password/reset/confirm.
func (h *PasswordHandler) ConfirmPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Token == "" || req.NewPassword == "" {
		return fiber.NewError(http.StatusBadRequest, "token and new password required")
	}

	result, err := h.authService.ConfirmPasswordReset(c.UserContext(), req.Token, req.NewPassword)
	if err != nil {
		return mapAuthError(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"status":   "password_reset",
		"sign_out": signOutResponse(result),
	}})
}

// ChangePassword handles POST /auth/password/change.
func (h *PasswordHandler) ChangePassword(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}

	var req dto.PasswordChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return fiber.NewError(http.StatusBadRequest, "current and new password required")
	}

	result, err := h.authService.ChangePassword(c.UserContext(), principal.User.ID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		return mapAuthError(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"status":   "password_changed",
		"sign_out": signOutResponse(result),
	}})
}
