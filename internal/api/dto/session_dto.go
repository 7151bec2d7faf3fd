package dto

// RegisterSessionRequest is the body of POST /session/register.
type RegisterSessionRequest struct {
	SessionID string `json:"sessionId"`
}

// SuccessResponse is returned by session mutations.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ValidateResponse is returned by GET /session/validate.
type ValidateResponse struct {
	Valid bool `json:"valid"`
}

// SignOutResponse reports a global sign-out. The error fields are only set
// when the corresponding step failed.
type SignOutResponse struct {
	Success       bool   `json:"success"`
	ProviderError string `json:"providerError,omitempty"`
	RegistryError string `json:"registryError,omitempty"`
}
