package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/tooltime-pro/session-guard/internal/auth"
	"github.com/tooltime-pro/session-guard/internal/service"
)

// CompanyHandler exposes company-admin actions on team members.
type CompanyHandler struct {
	auth *service.AuthService
}

// NewCompanyHandler constructs handler.
func NewCompanyHandler(authService *service.AuthService) *CompanyHandler {
	return &CompanyHandler{auth: authService}
}

// SignOutMember handles POST /company/users/:id/sign-out-all.
func (h *CompanyHandler) SignOutMember(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return fiber.NewError(http.StatusForbidden, "company role required")
	}

	result, err := h.auth.SignOutMember(c.UserContext(), principal.User, c.Params("id"))
	if err != nil {
		return mapAuthError(err)
	}
	if !result.OK() {
		return c.Status(http.StatusInternalServerError).JSON(signOutResponse(result))
	}
	return c.JSON(signOutResponse(result))
}
