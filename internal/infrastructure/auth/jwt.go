package auth

import (
	"errors"
	"time"

	"github.com/arflow/backend/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType represents the type of JWT token
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token has expired")
	ErrInvalidTokenType   = errors.New("invalid token type")
	ErrInvalidClaims      = errors.New("invalid token claims")
	ErrTokenNotYetValid   = errors.New("token is not yet valid")
	ErrMaxRefreshExceeded = errors.New("maximum refresh count exceeded")
	ErrTokenRevoked       = errors.New("token has been revoked")
)

// Claims carries the caller identity. Access tokens hold the role and, for
// portal users, the customer the user is bound to.
type Claims struct {
	jwt.RegisteredClaims
	OrganizationID string    `json:"org_id"`
	UserID         string    `json:"user_id"`
	Email          string    `json:"email,omitempty"`
	Role           string    `json:"role,omitempty"`
	CustomerID     string    `json:"customer_id,omitempty"`
	TokenType      TokenType `json:"token_type"`
	RefreshCount   int       `json:"refresh_count,omitempty"`
}

// Subject is the identity a token pair is issued for
type Subject struct {
	OrganizationID uuid.UUID
	UserID         uuid.UUID
	Email          string
	Role           string
	CustomerID     *uuid.UUID
}

// TokenPair represents an access and refresh token pair
type TokenPair struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type"`
}

// JWTService handles JWT token operations
type JWTService struct {
	accessSecret      []byte
	refreshSecret     []byte
	accessExpiration  time.Duration
	refreshExpiration time.Duration
	issuer            string
	maxRefreshCount   int
	now               func() time.Time
}

// NewJWTService creates a new JWT service
func NewJWTService(cfg config.JWTConfig) *JWTService {
	refreshSecret := []byte(cfg.RefreshSecret)
	if cfg.RefreshSecret == "" {
		refreshSecret = []byte(cfg.Secret)
	}

	return &JWTService{
		accessSecret:      []byte(cfg.Secret),
		refreshSecret:     refreshSecret,
		accessExpiration:  cfg.AccessTokenExpiration,
		refreshExpiration: cfg.RefreshTokenExpiration,
		issuer:            cfg.Issuer,
		maxRefreshCount:   cfg.MaxRefreshCount,
		now:               time.Now,
	}
}

// GenerateTokenPair issues a fresh access and refresh token for sub
func (s *JWTService) GenerateTokenPair(sub Subject) (*TokenPair, error) {
	return s.issue(sub, 0)
}

// RefreshExpiration is the lifetime of refresh tokens. A user-wide revocation
// must outlive every refresh token issued before it.
func (s *JWTService) RefreshExpiration() time.Duration {
	return s.refreshExpiration
}

// RotateTokenPair exchanges a validated refresh token for a new pair. sub must
// be the reloaded user so role changes take effect on refresh.
func (s *JWTService) RotateTokenPair(refresh *Claims, sub Subject) (*TokenPair, error) {
	if refresh.TokenType != TokenTypeRefresh {
		return nil, ErrInvalidTokenType
	}
	if refresh.UserID != sub.UserID.String() || refresh.OrganizationID != sub.OrganizationID.String() {
		return nil, ErrInvalidClaims
	}
	if s.maxRefreshCount > 0 && refresh.RefreshCount >= s.maxRefreshCount {
		return nil, ErrMaxRefreshExceeded
	}
	return s.issue(sub, refresh.RefreshCount+1)
}

func (s *JWTService) issue(sub Subject, refreshCount int) (*TokenPair, error) {
	now := s.now()
	accessExp := now.Add(s.accessExpiration)
	refreshExp := now.Add(s.refreshExpiration)

	access := s.baseClaims(sub, now, accessExp)
	access.Email = sub.Email
	access.Role = sub.Role
	if sub.CustomerID != nil {
		access.CustomerID = sub.CustomerID.String()
	}
	access.TokenType = TokenTypeAccess

	accessToken, err := sign(access, s.accessSecret)
	if err != nil {
		return nil, err
	}

	// Refresh tokens carry only the identity; role is re-read on rotation
	refresh := s.baseClaims(sub, now, refreshExp)
	refresh.TokenType = TokenTypeRefresh
	refresh.RefreshCount = refreshCount

	refreshToken, err := sign(refresh, s.refreshSecret)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:           accessToken,
		RefreshToken:          refreshToken,
		AccessTokenExpiresAt:  accessExp,
		RefreshTokenExpiresAt: refreshExp,
		TokenType:             "Bearer",
	}, nil
}

func (s *JWTService) baseClaims(sub Subject, now, exp time.Time) *Claims {
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   sub.UserID.String(),
			Audience:  jwt.ClaimStrings{s.issuer},
			ExpiresAt: jwt.NewNumericDate(exp),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		OrganizationID: sub.OrganizationID.String(),
		UserID:         sub.UserID.String(),
	}
}

func sign(claims *Claims, secret []byte) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ValidateAccessToken validates an access token and returns its claims
func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.validate(tokenString, s.accessSecret, TokenTypeAccess)
}

// ValidateRefreshToken validates a refresh token and returns its claims
func (s *JWTService) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return s.validate(tokenString, s.refreshSecret, TokenTypeRefresh)
}

func (s *JWTService) validate(tokenString string, secret []byte, expected TokenType) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, ErrTokenNotYetValid
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.TokenType != expected {
		return nil, ErrInvalidTokenType
	}
	if _, err := uuid.Parse(claims.OrganizationID); err != nil {
		return nil, ErrInvalidClaims
	}
	if _, err := uuid.Parse(claims.UserID); err != nil {
		return nil, ErrInvalidClaims
	}
	if expected == TokenTypeAccess && claims.Role == "" {
		return nil, ErrInvalidClaims
	}
	return claims, nil
}

// OrganizationUUID returns the organization the token belongs to
func (c *Claims) OrganizationUUID() uuid.UUID {
	id, _ := uuid.Parse(c.OrganizationID)
	return id
}

// UserUUID returns the user the token was issued to
func (c *Claims) UserUUID() uuid.UUID {
	id, _ := uuid.Parse(c.UserID)
	return id
}

// CustomerUUID returns the bound customer for portal users, nil otherwise
func (c *Claims) CustomerUUID() *uuid.UUID {
	if c.CustomerID == "" {
		return nil
	}
	id, err := uuid.Parse(c.CustomerID)
	if err != nil {
		return nil
	}
	return &id
}

// RemainingTTL returns the time until the token expires
func (c *Claims) RemainingTTL(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	if remaining := c.ExpiresAt.Sub(now); remaining > 0 {
		return remaining
	}
	return 0
}

// IssuedAtTime returns the token's issued-at time
func (c *Claims) IssuedAtTime() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}
