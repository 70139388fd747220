package identity

import (
	"context"
	"errors"
	"time"

	"github.com/arflow/backend/internal/application/authz"
	"github.com/arflow/backend/internal/domain/audit"
	"github.com/arflow/backend/internal/domain/identity"
	"github.com/arflow/backend/internal/domain/shared"
	"github.com/arflow/backend/internal/infrastructure/auth"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuditRecorder writes audit entries for actions with no aggregate event
type AuditRecorder interface {
	RecordAction(ctx context.Context, actor authz.Actor, action, entityType string, entityID *uuid.UUID, metadata map[string]any)
}

// AuthServiceConfig contains configuration for the auth service
type AuthServiceConfig struct {
	MaxLoginAttempts int           // Maximum failed login attempts before lock
	LockDuration     time.Duration // How long to lock account after max attempts
}

// DefaultAuthServiceConfig returns default configuration
func DefaultAuthServiceConfig() AuthServiceConfig {
	return AuthServiceConfig{
		MaxLoginAttempts: 5,
		LockDuration:     15 * time.Minute,
	}
}

var (
	errInvalidCredentials = shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")
	errAccountLocked      = shared.NewDomainError("ACCOUNT_LOCKED", "Account is locked. Please try again later")
	errAccountDisabled    = shared.NewDomainError("ACCOUNT_DISABLED", "Account has been disabled")
	errOrgSuspended       = shared.NewDomainError("ORGANIZATION_SUSPENDED", "Organization is suspended")
)

// AuthService handles authentication operations
type AuthService struct {
	userRepo   identity.UserRepository
	orgRepo    identity.OrganizationRepository
	jwtService *auth.JWTService
	blacklist  auth.TokenBlacklist
	audit      AuditRecorder
	config     AuthServiceConfig
	logger     *zap.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo identity.UserRepository,
	orgRepo identity.OrganizationRepository,
	jwtService *auth.JWTService,
	blacklist auth.TokenBlacklist,
	audit AuditRecorder,
	config AuthServiceConfig,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		orgRepo:    orgRepo,
		jwtService: jwtService,
		blacklist:  blacklist,
		audit:      audit,
		config:     config,
		logger:     logger,
	}
}

// Login authenticates a user and returns tokens
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	user, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		if shared.IsNotFound(err) {
			s.logger.Warn("Login for unknown email", zap.String("email", req.Email))
			return nil, errInvalidCredentials
		}
		return nil, err
	}
	actor := authz.Actor{
		OrganizationID: user.OrganizationID,
		UserID:         user.ID,
		Email:          user.Email,
		Role:           user.Role,
		CustomerID:     user.CustomerID,
		IP:             req.IP,
		UserAgent:      req.UserAgent,
	}

	org, err := s.orgRepo.FindByID(ctx, user.OrganizationID)
	if err != nil {
		return nil, err
	}
	if !org.IsActive() {
		return nil, errOrgSuspended
	}

	if !user.CanLogin() {
		if user.IsLocked() {
			s.logger.Warn("Login attempt for locked account", zap.String("user_id", user.ID.String()))
			return nil, errAccountLocked
		}
		return nil, errAccountDisabled
	}

	if !user.VerifyPassword(req.Password) {
		locked := user.RecordLoginFailure(s.config.MaxLoginAttempts, s.config.LockDuration)
		if err := s.userRepo.Save(ctx, user); err != nil {
			s.logger.Error("Failed to update user after login failure", zap.Error(err))
		}
		s.audit.RecordAction(ctx, actor, audit.ActionLoginFailed, identity.AggregateTypeUser, &user.ID,
			map[string]any{"failed_attempts": user.FailedAttempts, "locked": locked})

		if locked {
			s.logger.Warn("Account locked after too many failed attempts",
				zap.String("user_id", user.ID.String()),
				zap.Int("attempts", user.FailedAttempts))
			return nil, errAccountLocked
		}
		return nil, errInvalidCredentials
	}

	pair, err := s.jwtService.GenerateTokenPair(subjectFor(user))
	if err != nil {
		s.logger.Error("Failed to generate token pair", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to generate authentication tokens")
	}

	user.RecordLoginSuccess()
	if err := s.userRepo.Save(ctx, user); err != nil {
		// Don't fail the login - just log the error
		s.logger.Error("Failed to update user after successful login", zap.Error(err))
	}
	s.audit.RecordAction(ctx, actor, audit.ActionLoginSucceeded, identity.AggregateTypeUser, &user.ID, nil)

	s.logger.Info("User logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("organization_id", user.OrganizationID.String()))

	resp := tokenResponse(pair)
	info := ToUserResponse(user)
	resp.User = &info
	return resp, nil
}

// Refresh exchanges a refresh token for a new pair. The user is reloaded so
// role changes and disabling take effect.
func (s *AuthService) Refresh(ctx context.Context, req RefreshRequest) (*TokenResponse, error) {
	claims, err := s.jwtService.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		return nil, tokenError(err)
	}

	if revoked, err := s.isRevoked(ctx, claims); err != nil {
		return nil, err
	} else if revoked {
		return nil, tokenError(auth.ErrTokenRevoked)
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserUUID())
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, tokenError(auth.ErrInvalidToken)
		}
		return nil, err
	}
	if !user.CanLogin() {
		return nil, errAccountDisabled
	}

	pair, err := s.jwtService.RotateTokenPair(claims, subjectFor(user))
	if err != nil {
		return nil, tokenError(err)
	}
	// The old refresh token is single-use
	if err := s.blacklist.Revoke(ctx, claims.ID, claims.RemainingTTL(time.Now())); err != nil {
		s.logger.Error("Failed to revoke rotated refresh token", zap.Error(err))
	}
	return tokenResponse(pair), nil
}

// Logout revokes the access token identified by jti for the rest of its life
func (s *AuthService) Logout(ctx context.Context, jti string, remaining time.Duration) error {
	if jti == "" || remaining <= 0 {
		return nil
	}
	return s.blacklist.Revoke(ctx, jti, remaining)
}

// Me returns the current user
func (s *AuthService) Me(ctx context.Context, actor authz.Actor) (*UserResponse, error) {
	if actor.IsSystem() {
		return nil, shared.ErrUnauthorized
	}
	user, err := s.userRepo.FindByIDForOrg(ctx, actor.OrganizationID, actor.UserID)
	if err != nil {
		return nil, err
	}
	resp := ToUserResponse(user)
	return &resp, nil
}

// ChangePassword changes the caller's password and revokes their other sessions
func (s *AuthService) ChangePassword(ctx context.Context, actor authz.Actor, req ChangePasswordRequest) error {
	if actor.IsSystem() {
		return shared.ErrUnauthorized
	}
	user, err := s.userRepo.FindByIDForOrg(ctx, actor.OrganizationID, actor.UserID)
	if err != nil {
		return err
	}
	if err := user.ChangePassword(req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		return err
	}
	if err := s.blacklist.RevokeUser(ctx, user.ID.String(), s.jwtService.RefreshExpiration()); err != nil {
		s.logger.Error("Failed to revoke sessions after password change", zap.Error(err))
	}
	s.audit.RecordAction(ctx, actor, audit.ActionPasswordChanged, identity.AggregateTypeUser, &user.ID, nil)
	return nil
}

func (s *AuthService) isRevoked(ctx context.Context, claims *auth.Claims) (bool, error) {
	revoked, err := s.blacklist.IsRevoked(ctx, claims.ID)
	if err != nil || revoked {
		return revoked, err
	}
	return s.blacklist.IsUserRevoked(ctx, claims.UserID, claims.IssuedAtTime())
}

func subjectFor(user *identity.User) auth.Subject {
	return auth.Subject{
		OrganizationID: user.OrganizationID,
		UserID:         user.ID,
		Email:          user.Email,
		Role:           user.Role.String(),
		CustomerID:     user.CustomerID,
	}
}

func tokenResponse(pair *auth.TokenPair) *TokenResponse {
	return &TokenResponse{
		AccessToken:           pair.AccessToken,
		RefreshToken:          pair.RefreshToken,
		AccessTokenExpiresAt:  pair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: pair.RefreshTokenExpiresAt,
		TokenType:             pair.TokenType,
	}
}

func tokenError(err error) error {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return shared.NewDomainError("TOKEN_EXPIRED", "Refresh token has expired")
	case errors.Is(err, auth.ErrMaxRefreshExceeded):
		return shared.NewDomainError("TOKEN_MAX_REFRESH", "Maximum token refresh count exceeded. Please log in again")
	case errors.Is(err, auth.ErrTokenRevoked):
		return shared.NewDomainError("TOKEN_REVOKED", "Refresh token has been revoked")
	default:
		return shared.NewDomainError("TOKEN_INVALID", "Invalid refresh token")
	}
}
