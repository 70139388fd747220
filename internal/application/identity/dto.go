package identity

import (
	"time"

	"github.com/arflow/backend/internal/domain/identity"
	"github.com/arflow/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// RefreshRequest is the body of POST /auth/refresh
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// ChangePasswordRequest is the body of PUT /me/password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=72"`
}

// TokenResponse is returned by login and refresh
type TokenResponse struct {
	AccessToken           string        `json:"access_token"`
	RefreshToken          string        `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time     `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time     `json:"refresh_token_expires_at"`
	TokenType             string        `json:"token_type"`
	User                  *UserResponse `json:"user,omitempty"`
}

// UserResponse represents a user in API responses
type UserResponse struct {
	ID             uuid.UUID  `json:"id"`
	OrganizationID uuid.UUID  `json:"organization_id"`
	Email          string     `json:"email"`
	Name           string     `json:"name"`
	Role           string     `json:"role"`
	Status         string     `json:"status"`
	CustomerID     *uuid.UUID `json:"customer_id,omitempty"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ToUserResponse converts a domain user to a response
func ToUserResponse(u *identity.User) UserResponse {
	return UserResponse{
		ID:             u.ID,
		OrganizationID: u.OrganizationID,
		Email:          u.Email,
		Name:           u.Name,
		Role:           string(u.Role),
		Status:         string(u.Status),
		CustomerID:     u.CustomerID,
		LastLoginAt:    u.LastLoginAt,
		CreatedAt:      u.CreatedAt,
	}
}

// CreateUserRequest is the body of POST /users
type CreateUserRequest struct {
	Email      string     `json:"email" binding:"required,email,max=200"`
	Name       string     `json:"name" binding:"required,max=200"`
	Password   string     `json:"password" binding:"required,min=8,max=72"`
	Role       string     `json:"role" binding:"required,oneof=ADMIN MANAGER VIEWER CUSTOMER"`
	CustomerID *uuid.UUID `json:"customer_id"`
}

// ChangeRoleRequest is the body of PUT /users/:id/role
type ChangeRoleRequest struct {
	Role       string     `json:"role" binding:"required,oneof=ADMIN MANAGER VIEWER CUSTOMER"`
	CustomerID *uuid.UUID `json:"customer_id"`
}

// ListUsersRequest holds the query parameters of GET /users
type ListUsersRequest struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir"`
	Search   string `form:"search"`
	Role     string `form:"role" binding:"omitempty,oneof=ADMIN MANAGER VIEWER CUSTOMER"`
	Status   string `form:"status" binding:"omitempty,oneof=ACTIVE DISABLED"`
}

func (r ListUsersRequest) toFilter() identity.UserFilter {
	filter := identity.UserFilter{
		Filter: shared.Filter{
			Page:     r.Page,
			PageSize: r.PageSize,
			OrderBy:  r.OrderBy,
			OrderDir: r.OrderDir,
			Search:   r.Search,
		},
	}
	if r.Role != "" {
		role := identity.Role(r.Role)
		filter.Role = &role
	}
	if r.Status != "" {
		status := identity.UserStatus(r.Status)
		filter.Status = &status
	}
	filter.Normalize()
	return filter
}

// OrganizationResponse represents an organization in API responses
type OrganizationResponse struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Status       string    `json:"status"`
	Currency     string    `json:"currency"`
	Timezone     string    `json:"timezone"`
	ContactEmail string    `json:"contact_email,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ToOrganizationResponse converts a domain organization to a response
func ToOrganizationResponse(o *identity.Organization) OrganizationResponse {
	return OrganizationResponse{
		ID:           o.ID,
		Name:         o.Name,
		Slug:         o.Slug,
		Status:       string(o.Status),
		Currency:     o.Currency,
		Timezone:     o.Timezone,
		ContactEmail: o.ContactEmail,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
}

// UpdateOrganizationRequest is the body of PUT /organization
type UpdateOrganizationRequest struct {
	Name         string `json:"name" binding:"required,max=200"`
	ContactEmail string `json:"contact_email" binding:"omitempty,email"`
	Currency     string `json:"currency" binding:"omitempty,len=3"`
	Timezone     string `json:"timezone" binding:"omitempty,max=64"`
}
