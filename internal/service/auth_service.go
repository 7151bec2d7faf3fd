package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/tooltime-pro/session-guard/internal/auth"
	"github.com/tooltime-pro/session-guard/internal/config"
	"github.com/tooltime-pro/session-guard/internal/domain"
	"github.com/tooltime-pro/session-guard/internal/events"
	"github.com/tooltime-pro/session-guard/internal/repository"
	"github.com/tooltime-pro/session-guard/internal/session"
)

var (
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrAccountSuspended    = errors.New("account suspended")
	ErrResetTokenInvalid   = errors.New("token expired or used")
	ErrMemberNotInCompany  = errors.New("user not found in company")
	ErrCannotSignOutMember = errors.New("insufficient role to sign out this user")
)

// LoginResult is returned by LoginUser.
type LoginResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
	// SessionRegistered is false when no session id was supplied or the
	// registration failed; login succeeds either way.
	SessionRegistered bool
}

// AuthService coordinates registration, login and password flows for locally
// managed credentials.
type AuthService struct {
	users      repository.UserRepository
	resets     repository.PasswordResetRepository
	sessions   *SessionService
	dispatcher events.Dispatcher
	tokenMgr   *auth.TokenManager
	logger     *zap.Logger
	bcryptCost int
	resetTTL   time.Duration
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo          repository.UserRepository
	PasswordResetRepo repository.PasswordResetRepository
	Sessions          *SessionService
	// Dispatcher delivers reset tokens to the mailer.
	Dispatcher   events.Dispatcher
	TokenManager *auth.TokenManager
	Logger       *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	tokenMgr := deps.TokenManager
	if tokenMgr == nil {
		tokenMgr = auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.UserRepo,
		resets:     deps.PasswordResetRepo,
		sessions:   deps.Sessions,
		dispatcher: deps.Dispatcher,
		tokenMgr:   tokenMgr,
		logger:     logger,
		bcryptCost: cfg.Auth.BcryptCost,
		resetTTL:   time.Duration(cfg.Auth.PasswordResetTTLMinutes) * time.Minute,
	}
}

// RegisterUser creates a company and its owner account.
func (s *AuthService) RegisterUser(ctx context.Context, companyName, name, email, password string) (*domain.User, string, time.Time, error) {
	email = normalizeEmail(email)
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, "", time.Time{}, ErrEmailTaken
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, "", time.Time{}, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.UserRoleOwner,
		Status:       domain.UserStatusActive,
	}
	if err := s.users.CreateWithCompany(ctx, companyName, user); err != nil {
		return nil, "", time.Time{}, err
	}

	token, exp, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, exp, nil
}

// LoginUser authenticates a user. When sessionID is non-empty it is registered
// as the active session; a registration failure is logged and does not fail
// the login.
func (s *AuthService) LoginUser(ctx context.Context, email, password, sessionID string) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	if user.Status != domain.UserStatusActive {
		return nil, ErrAccountSuspended
	}

	token, exp, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, err
	}

	result := &LoginResult{User: user, Token: token, ExpiresAt: exp}
	if sessionID != "" && s.sessions != nil {
		if err := s.sessions.Register(ctx, user.Identity(), sessionID, SourceLogin); err != nil {
			s.logger.Warn("session registration during login failed", zap.String("user_id", user.ID), zap.Error(err))
		} else {
			result.SessionRegistered = true
		}
	}
	return result, nil
}

// RequestPasswordReset persists a reset token for the account with email and
// publishes it for out-of-band delivery. Unknown addresses are not an error so
// callers cannot enumerate which emails have accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}

	token := &repository.PasswordResetToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(s.resetTTL),
	}
	if err := s.resets.Create(ctx, token); err != nil {
		return err
	}

	if s.dispatcher == nil {
		s.logger.Warn("no dispatcher; reset token not delivered", zap.String("user_id", user.ID))
		return nil
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventPasswordResetRequested,
		UserID:    user.ID,
		Email:     user.Email,
		Timestamp: time.Now().UTC(),
		Payload:   events.PasswordResetRequestedPayload{Token: token.Token, ExpiresAt: token.ExpiresAt},
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event", zap.String("type", string(event.Type)), zap.Error(err))
	}
	return nil
}

// ConfirmPasswordReset validates the reset token, updates the password and
// signs the user out everywhere.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, tokenStr, newPassword string) (session.SignOutResult, error) {
	token, err := s.resets.GetByToken(ctx, tokenStr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return session.SignOutResult{}, ErrResetTokenInvalid
		}
		return session.SignOutResult{}, err
	}
	if token.UsedAt != nil || time.Now().After(token.ExpiresAt) {
		return session.SignOutResult{}, ErrResetTokenInvalid
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return session.SignOutResult{}, err
	}
	user, err := s.users.GetByID(ctx, token.UserID)
	if err != nil {
		return session.SignOutResult{}, err
	}
	// Claim the token before touching the password: of two concurrent
	// confirms only the one that claims it writes.
	if err := s.resets.MarkUsed(ctx, token.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return session.SignOutResult{}, ErrResetTokenInvalid
		}
		return session.SignOutResult{}, err
	}
	if err := s.storePassword(ctx, user, hash); err != nil {
		return session.SignOutResult{}, err
	}

	return s.sessions.SignOutAll(ctx, user.Identity(), ReasonPasswordReset), nil
}

// ChangePassword verifies the current password, stores the new one and signs
// the user out everywhere, including the calling session.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) (session.SignOutResult, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return session.SignOutResult{}, err
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return session.SignOutResult{}, ErrInvalidCredentials
	}
	if err := s.setPassword(ctx, user, newPassword); err != nil {
		return session.SignOutResult{}, err
	}
	return s.sessions.SignOutAll(ctx, user.Identity(), ReasonPasswordChange), nil
}

// SignOutMember lets an owner or admin sign a member of their own company out
// of every device. Admins cannot sign out owners.
func (s *AuthService) SignOutMember(ctx context.Context, actor *domain.User, targetID string) (session.SignOutResult, error) {
	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return session.SignOutResult{}, ErrMemberNotInCompany
		}
		return session.SignOutResult{}, err
	}
	if actor == nil || target.CompanyID == "" || target.CompanyID != actor.CompanyID {
		return session.SignOutResult{}, ErrMemberNotInCompany
	}
	if target.Role == domain.UserRoleOwner && actor.Role != domain.UserRoleOwner {
		return session.SignOutResult{}, ErrCannotSignOutMember
	}
	return s.sessions.SignOutAll(ctx, target.Identity(), ReasonAdmin), nil
}

// TokenManager exposes the underlying token manager.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) setPassword(ctx context.Context, user *domain.User, newPassword string) error {
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	return s.storePassword(ctx, user, hash)
}

func (s *AuthService) storePassword(ctx context.Context, user *domain.User, hash string) error {
	user.PasswordHash = hash
	user.RequiresPasswordSetup = false
	return s.users.Update(ctx, user)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
