package dto

import "time"

// UserRegisterRequest payload for a new company owner.
type UserRegisterRequest struct {
	CompanyName string `json:"company_name"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

// UserLoginRequest payload for login. SessionID is optional; when present it
// becomes the active session.
type UserLoginRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	SessionID string `json:"session_id"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UserResponse is the public view of a user record.
type UserResponse struct {
	ID                    string `json:"id"`
	CompanyID             string `json:"company_id"`
	Name                  string `json:"name"`
	Email                 string `json:"email"`
	Role                  string `json:"role"`
	RequiresPasswordSetup bool   `json:"requires_password_setup"`
}

// MeResponse describes the authenticated caller.
type MeResponse struct {
	ID    string          `json:"id"`
	Email string          `json:"email"`
	Flags map[string]bool `json:"flags,omitempty"`
	User  *UserResponse   `json:"user,omitempty"`
}
