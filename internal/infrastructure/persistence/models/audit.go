package models

import (
	"time"

	"github.com/arflow/backend/internal/domain/audit"
	"github.com/google/uuid"
)

// AuditLogModel is an append-only audit row
type AuditLogModel struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey"`
	OrganizationID uuid.UUID      `gorm:"type:uuid;not null;index"`
	UserID         *uuid.UUID     `gorm:"type:uuid;index"`
	Action         string         `gorm:"type:varchar(100);not null;index"`
	EntityType     string         `gorm:"type:varchar(50);not null"`
	EntityID       *uuid.UUID     `gorm:"type:uuid;index"`
	Metadata       map[string]any `gorm:"type:jsonb;serializer:json"`
	IPAddress      string         `gorm:"type:varchar(45)"`
	UserAgent      string         `gorm:"type:varchar(500)"`
	CreatedAt      time.Time      `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (AuditLogModel) TableName() string {
	return "audit_logs"
}

// ToDomain converts the model to a domain audit Log
func (m *AuditLogModel) ToDomain() *audit.Log {
	return &audit.Log{
		ID:             m.ID,
		OrganizationID: m.OrganizationID,
		UserID:         m.UserID,
		Action:         m.Action,
		EntityType:     m.EntityType,
		EntityID:       m.EntityID,
		Metadata:       m.Metadata,
		IPAddress:      m.IPAddress,
		UserAgent:      m.UserAgent,
		CreatedAt:      m.CreatedAt,
	}
}

// AuditLogModelFromDomain creates a model from a domain audit Log
func AuditLogModelFromDomain(l *audit.Log) *AuditLogModel {
	return &AuditLogModel{
		ID:             l.ID,
		OrganizationID: l.OrganizationID,
		UserID:         l.UserID,
		Action:         l.Action,
		EntityType:     l.EntityType,
		EntityID:       l.EntityID,
		Metadata:       l.Metadata,
		IPAddress:      l.IPAddress,
		UserAgent:      l.UserAgent,
		CreatedAt:      l.CreatedAt,
	}
}

// All returns every model in dependency order, for AutoMigrate in tests
func All() []any {
	return []any{
		&OrganizationModel{},
		&UserModel{},
		&CustomerModel{},
		&DocumentModel{},
		&PaymentModel{},
		&PaymentApplicationModel{},
		&IntegrationSettingsModel{},
		&SyncLogModel{},
		&AuditLogModel{},
	}
}
