package handlers

import (
	"errors"

	"github.com/tooltime-pro/session-guard/internal/api/dto"
	"github.com/tooltime-pro/session-guard/internal/auth"
	"github.com/tooltime-pro/session-guard/internal/domain"
	"github.com/tooltime-pro/session-guard/internal/service"
	"github.com/tooltime-pro/session-guard/internal/session"
	apperrors "github.com/tooltime-pro/session-guard/pkg/util/errorutil"
)

func mapSessionError(err error) error {
	switch {
	case errors.Is(err, session.ErrInvalidSessionID):
		return apperrors.NewValidationError("sessionId is required", nil)
	case errors.Is(err, session.ErrStoreNotConfigured):
		return apperrors.NewConfigError(err)
	case errors.Is(err, domain.ErrUnauthenticated):
		return apperrors.NewUnauthorizedCause("authentication required", err)
	default:
		return apperrors.NewInternalError(err)
	}
}

func mapAuthError(err error) error {
	switch {
	case errors.Is(err, auth.ErrPasswordTooShort):
		return apperrors.NewValidationError(err.Error(), nil)
	case errors.Is(err, service.ErrEmailTaken):
		return apperrors.NewConflict(err.Error(), nil)
	case errors.Is(err, service.ErrInvalidCredentials):
		return apperrors.NewUnauthorized(err.Error())
	case errors.Is(err, service.ErrAccountSuspended):
		return apperrors.NewForbidden(err.Error())
	case errors.Is(err, service.ErrResetTokenInvalid):
		return apperrors.NewValidationError(err.Error(), nil)
	case errors.Is(err, service.ErrMemberNotInCompany):
		return apperrors.NewNotFound("user", nil)
	case errors.Is(err, service.ErrCannotSignOutMember):
		return apperrors.NewForbidden(err.Error())
	default:
		return apperrors.MapError(err)
	}
}

func signOutResponse(result session.SignOutResult) dto.SignOutResponse {
	resp := dto.SignOutResponse{Success: result.OK()}
	if result.ProviderErr != nil {
		resp.ProviderError = result.ProviderErr.Error()
	}
	if result.RegistryErr != nil {
		resp.RegistryError = result.RegistryErr.Error()
	}
	return resp
}
