package models

import (
	"time"

	"github.com/arflow/backend/internal/domain/identity"
	"github.com/google/uuid"
)

// OrganizationModel is the persistence model for the Organization aggregate
type OrganizationModel struct {
	AggregateModel
	Name         string                      `gorm:"type:varchar(200);not null"`
	Slug         string                      `gorm:"type:varchar(50);not null;uniqueIndex"`
	Status       identity.OrganizationStatus `gorm:"type:varchar(20);not null;default:'ACTIVE'"`
	Currency     string                      `gorm:"type:char(3);not null;default:'USD'"`
	Timezone     string                      `gorm:"type:varchar(64);not null;default:'UTC'"`
	ContactEmail string                      `gorm:"type:varchar(200)"`
}

// TableName returns the table name for GORM
func (OrganizationModel) TableName() string {
	return "organizations"
}

// ToDomain converts the model to a domain Organization
func (m *OrganizationModel) ToDomain() *identity.Organization {
	return &identity.Organization{
		BaseAggregateRoot: m.AggregateModel.toDomain(),
		Name:              m.Name,
		Slug:              m.Slug,
		Status:            m.Status,
		Currency:          m.Currency,
		Timezone:          m.Timezone,
		ContactEmail:      m.ContactEmail,
	}
}

// OrganizationModelFromDomain creates a model from a domain Organization
func OrganizationModelFromDomain(o *identity.Organization) *OrganizationModel {
	m := &OrganizationModel{
		Name:         o.Name,
		Slug:         o.Slug,
		Status:       o.Status,
		Currency:     o.Currency,
		Timezone:     o.Timezone,
		ContactEmail: o.ContactEmail,
	}
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	return m
}

// UserModel is the persistence model for the User aggregate
type UserModel struct {
	OrgAggregateModel
	Email          string              `gorm:"type:varchar(200);not null;uniqueIndex"`
	Name           string              `gorm:"type:varchar(200);not null"`
	PasswordHash   string              `gorm:"type:varchar(255);not null"`
	Role           identity.Role       `gorm:"type:varchar(20);not null"`
	Status         identity.UserStatus `gorm:"type:varchar(20);not null;default:'ACTIVE'"`
	CustomerID     *uuid.UUID          `gorm:"type:uuid;index"`
	LastLoginAt    *time.Time
	FailedAttempts int `gorm:"not null;default:0"`
	LockedUntil    *time.Time
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the model to a domain User
func (m *UserModel) ToDomain() *identity.User {
	return &identity.User{
		OrgAggregateRoot: m.OrgAggregateModel.toDomain(),
		Email:            m.Email,
		Name:             m.Name,
		PasswordHash:     m.PasswordHash,
		Role:             m.Role,
		Status:           m.Status,
		CustomerID:       m.CustomerID,
		LastLoginAt:      m.LastLoginAt,
		FailedAttempts:   m.FailedAttempts,
		LockedUntil:      m.LockedUntil,
	}
}

// UserModelFromDomain creates a model from a domain User
func UserModelFromDomain(u *identity.User) *UserModel {
	m := &UserModel{
		Email:          u.Email,
		Name:           u.Name,
		PasswordHash:   u.PasswordHash,
		Role:           u.Role,
		Status:         u.Status,
		CustomerID:     u.CustomerID,
		LastLoginAt:    u.LastLoginAt,
		FailedAttempts: u.FailedAttempts,
		LockedUntil:    u.LockedUntil,
	}
	m.FromDomainOrgAggregateRoot(u.OrgAggregateRoot)
	return m
}
