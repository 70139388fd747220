package identity

import (
	"regexp"
	"strings"
	"time"

	"github.com/arflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// UserStatus represents the status of a user
type UserStatus string

const (
	UserStatusActive   UserStatus = "ACTIVE"
	UserStatusDisabled UserStatus = "DISABLED"
)

// IsValid checks if the status is valid
func (s UserStatus) IsValid() bool {
	return s == UserStatusActive || s == UserStatusDisabled
}

const bcryptCost = bcrypt.DefaultCost

var (
	emailPattern  = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	letterPattern = regexp.MustCompile(`[a-zA-Z]`)
	digitPattern  = regexp.MustCompile(`[0-9]`)
)

// User is a person who signs in to an organization
type User struct {
	shared.OrgAggregateRoot
	Email          string
	Name           string
	PasswordHash   string
	Role           Role
	Status         UserStatus
	CustomerID     *uuid.UUID // Set only for CUSTOMER portal users
	LastLoginAt    *time.Time
	FailedAttempts int
	LockedUntil    *time.Time
}

// NewUser creates an active user with a hashed password
func NewUser(orgID uuid.UUID, email, name, password string, role Role) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	if orgID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORGANIZATION", "Organization ID cannot be empty")
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if name == "" || len(name) > 200 {
		return nil, shared.NewDomainError("INVALID_NAME", "Name must be between 1 and 200 characters")
	}
	if !role.IsValid() {
		return nil, shared.NewDomainError("INVALID_ROLE", "Role is not valid")
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}

	user := &User{
		OrgAggregateRoot: shared.NewOrgAggregateRoot(orgID),
		Email:            email,
		Name:             name,
		PasswordHash:     hash,
		Role:             role,
		Status:           UserStatusActive,
	}
	user.AddDomainEvent(NewUserCreatedEvent(user))
	return user, nil
}

// LinkCustomer binds a CUSTOMER portal user to the customer they act for
func (u *User) LinkCustomer(customerID uuid.UUID) error {
	if u.Role != RoleCustomer {
		return shared.NewDomainError("INVALID_ROLE", "Only customer users can be linked to a customer")
	}
	if customerID == uuid.Nil {
		return shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	u.CustomerID = &customerID
	u.IncrementVersion()
	return nil
}

// ChangeRole assigns a new role. Switching away from CUSTOMER drops the customer link.
func (u *User) ChangeRole(role Role, actor uuid.UUID) error {
	if !role.IsValid() {
		return shared.NewDomainError("INVALID_ROLE", "Role is not valid")
	}
	if u.Role == role {
		return nil
	}
	if actor == u.ID {
		return shared.NewDomainError("CANNOT_CHANGE_OWN_ROLE", "You cannot change your own role")
	}
	previous := u.Role
	u.Role = role
	if role != RoleCustomer {
		u.CustomerID = nil
	}
	u.IncrementVersion()
	u.AddDomainEvent(NewUserRoleChangedEvent(u, previous, actor))
	return nil
}

// ChangePassword verifies the old password and sets a new one
func (u *User) ChangePassword(oldPassword, newPassword string) error {
	if !u.VerifyPassword(oldPassword) {
		return shared.NewDomainError("INVALID_PASSWORD", "Current password is incorrect")
	}
	return u.SetPassword(newPassword)
}

// SetPassword replaces the password without checking the old one
func (u *User) SetPassword(newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	hash, err := hashPassword(newPassword)
	if err != nil {
		return shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}
	u.PasswordHash = hash
	u.IncrementVersion()
	return nil
}

// VerifyPassword compares password against the stored hash
func (u *User) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// Disable blocks the user from signing in
func (u *User) Disable(actor uuid.UUID) error {
	if actor == u.ID {
		return shared.NewDomainError("CANNOT_DISABLE_SELF", "You cannot disable your own account")
	}
	if u.Status == UserStatusDisabled {
		return shared.NewDomainError("INVALID_STATE", "User is already disabled")
	}
	u.Status = UserStatusDisabled
	u.IncrementVersion()
	u.AddDomainEvent(NewUserStatusChangedEvent(u, actor))
	return nil
}

// Enable re-activates a disabled user and clears any lockout
func (u *User) Enable(actor uuid.UUID) error {
	if u.Status == UserStatusActive {
		return shared.NewDomainError("INVALID_STATE", "User is already active")
	}
	u.Status = UserStatusActive
	u.FailedAttempts = 0
	u.LockedUntil = nil
	u.IncrementVersion()
	u.AddDomainEvent(NewUserStatusChangedEvent(u, actor))
	return nil
}

// RecordLoginSuccess resets the failure counter
func (u *User) RecordLoginSuccess() {
	now := time.Now()
	u.LastLoginAt = &now
	u.FailedAttempts = 0
	u.LockedUntil = nil
	u.IncrementVersion()
}

// RecordLoginFailure counts a failed login and locks the account for
// lockDuration once maxAttempts is reached. It returns true when locked.
func (u *User) RecordLoginFailure(maxAttempts int, lockDuration time.Duration) bool {
	u.FailedAttempts++
	locked := false
	if maxAttempts > 0 && u.FailedAttempts >= maxAttempts {
		until := time.Now().Add(lockDuration)
		u.LockedUntil = &until
		locked = true
	}
	u.IncrementVersion()
	return locked
}

// IsLocked returns true while a lockout is in effect
func (u *User) IsLocked() bool {
	return u.LockedUntil != nil && time.Now().Before(*u.LockedUntil)
}

// CanLogin returns true if the user is active and not locked
func (u *User) CanLogin() bool {
	return u.Status == UserStatusActive && !u.IsLocked()
}

func validateEmail(email string) error {
	if email == "" {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot be empty")
	}
	if len(email) > 200 {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 200 characters")
	}
	if !emailPattern.MatchString(email) {
		return shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password must be at least 8 characters")
	}
	if len(password) > 72 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password cannot exceed 72 characters")
	}
	if !letterPattern.MatchString(password) || !digitPattern.MatchString(password) {
		return shared.NewDomainError("INVALID_PASSWORD", "Password must contain at least one letter and one number")
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
