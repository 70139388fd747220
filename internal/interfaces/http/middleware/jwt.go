package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/arflow/backend/internal/application/authz"
	"github.com/arflow/backend/internal/domain/identity"
	"github.com/arflow/backend/internal/infrastructure/auth"
	"github.com/arflow/backend/internal/infrastructure/logger"
	"github.com/arflow/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// JWT context keys
const (
	JWTClaimsKey  = "jwt_claims"
	ActorKey      = "actor"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// JWTMiddlewareConfig holds configuration for JWT middleware
type JWTMiddlewareConfig struct {
	JWTService *auth.JWTService
	// TokenBlacklist is optional. Lookups fail open so a Redis outage does
	// not take the API down.
	TokenBlacklist auth.TokenBlacklist
	Logger         *zap.Logger
}

// JWTAuth authenticates the bearer token and stores the caller as an
// authz.Actor in both the gin context and the request context
func JWTAuth(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			authError(c, cfg, auth.ErrInvalidToken, "Missing or malformed authorization header")
			return
		}

		claims, err := cfg.JWTService.ValidateAccessToken(tokenString)
		if err != nil {
			authError(c, cfg, err, "Token validation failed")
			return
		}

		if cfg.TokenBlacklist != nil && isRevoked(c, cfg, claims) {
			authError(c, cfg, auth.ErrTokenRevoked, "Token has been revoked")
			return
		}

		actor := authz.Actor{
			OrganizationID: claims.OrganizationUUID(),
			UserID:         claims.UserUUID(),
			Email:          claims.Email,
			Role:           identity.Role(claims.Role),
			CustomerID:     claims.CustomerUUID(),
			IP:             c.ClientIP(),
			UserAgent:      c.Request.UserAgent(),
		}
		if !actor.Role.IsValid() || actor.IsSystem() {
			authError(c, cfg, auth.ErrInvalidClaims, "Token carries no valid identity")
			return
		}

		c.Set(JWTClaimsKey, claims)
		c.Set(ActorKey, actor)

		ctx := authz.WithActor(c.Request.Context(), actor)
		ctx = logger.WithActor(ctx, claims.OrganizationID, claims.UserID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader(AuthHeaderKey)
	if !strings.HasPrefix(header, BearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix))
	return token, token != ""
}

func isRevoked(c *gin.Context, cfg JWTMiddlewareConfig, claims *auth.Claims) bool {
	ctx := c.Request.Context()
	if claims.ID != "" {
		revoked, err := cfg.TokenBlacklist.IsRevoked(ctx, claims.ID)
		if err != nil {
			logger.Enrich(ctx, cfg.log()).Error("Failed to check token blacklist",
				zap.String("jti", claims.ID), zap.Error(err))
		} else if revoked {
			return true
		}
	}
	revoked, err := cfg.TokenBlacklist.IsUserRevoked(ctx, claims.UserID, claims.IssuedAtTime())
	if err != nil {
		logger.Enrich(ctx, cfg.log()).Error("Failed to check user revocation",
			zap.String("user_id", claims.UserID), zap.Error(err))
		return false
	}
	return revoked
}

func (cfg JWTMiddlewareConfig) log() *zap.Logger {
	if cfg.Logger == nil {
		return zap.NewNop()
	}
	return cfg.Logger
}

func authError(c *gin.Context, cfg JWTMiddlewareConfig, err error, reason string) {
	logger.Enrich(c.Request.Context(), cfg.log()).Debug("JWT authentication failed",
		zap.Error(err),
		zap.String("reason", reason),
		zap.String("path", c.Request.URL.Path),
	)

	code, message := dto.ErrCodeUnauthorized, "Authentication required"
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code, message = dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrTokenRevoked):
		code, message = dto.ErrCodeTokenRevoked, "Token has been revoked"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrInvalidTokenType),
		errors.Is(err, auth.ErrInvalidClaims),
		errors.Is(err, auth.ErrTokenNotYetValid):
		code, message = dto.ErrCodeTokenInvalid, "Invalid token"
	}
	abort(c, http.StatusUnauthorized, code, message)
}

// GetJWTClaims returns the validated claims, or nil on public routes
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(JWTClaimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

// GetActor returns the authenticated caller
func GetActor(c *gin.Context) (authz.Actor, bool) {
	if v, ok := c.Get(ActorKey); ok {
		if actor, ok := v.(authz.Actor); ok {
			return actor, true
		}
	}
	return authz.Actor{}, false
}

// RequireRoles rejects callers whose role is not one of roles. Services
// check roles again; this keeps obviously forbidden calls off the handlers.
func RequireRoles(roles ...identity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok {
			abort(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Authentication required")
			return
		}
		if err := actor.Require(roles...); err != nil {
			resolved := dto.ResolveError(err)
			abort(c, resolved.Status, resolved.Code, resolved.Message)
			return
		}
		c.Next()
	}
}
