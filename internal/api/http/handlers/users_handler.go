package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/tooltime-pro/session-guard/internal/api/dto"
	"github.com/tooltime-pro/session-guard/internal/auth"
	"github.com/tooltime-pro/session-guard/internal/domain"
	"github.com/tooltime-pro/session-guard/internal/service"
)

// UsersHandler exposes auth endpoints for end-users.
type UsersHandler struct {
	auth *service.AuthService
}

// NewUsersHandler constructs handler. authService may be nil when credentials
// are issued by a remote provider; only Me is routed then.
func NewUsersHandler(authService *service.AuthService) *UsersHandler {
	return &UsersHandler{auth: authService}
}

// Register handles POST /auth/users/register.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.UserRegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Email == "" || req.Password == "" || req.Name == "" || req.CompanyName == "" {
		return fiber.NewError(http.StatusBadRequest, "company_name, name, email, password required")
	}

	user, token, exp, err := h.auth.RegisterUser(c.UserContext(), req.CompanyName, req.Name, req.Email, req.Password)
	if err != nil {
		return mapAuthError(err)
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{
			"user": userResponse(user),
			"auth": dto.AuthResponse{Token: token, ExpiresAt: exp},
		},
	})
}

// Login handles POST /auth/users/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.UserLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Email == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "email and password required")
	}

	res, err := h.auth.LoginUser(c.UserContext(), req.Email, req.Password, req.SessionID)
	if err != nil {
		return mapAuthError(err)
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"user":               userResponse(res.User),
			"auth":               dto.AuthResponse{Token: res.Token, ExpiresAt: res.ExpiresAt},
			"session_registered": res.SessionRegistered,
		},
	})
}

// Me handles GET /auth/me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}

	resp := dto.MeResponse{
		ID:    principal.Identity.ID,
		Email: principal.Identity.Email,
		Flags: principal.Identity.Flags,
	}
	if principal.User != nil {
		u := userResponse(principal.User)
		resp.User = &u
	}
	return c.JSON(fiber.Map{"data": resp})
}

func userResponse(user *domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:                    user.ID,
		CompanyID:             user.CompanyID,
		Name:                  user.Name,
		Email:                 user.Email,
		Role:                  string(user.Role),
		RequiresPasswordSetup: user.RequiresPasswordSetup,
	}
}
