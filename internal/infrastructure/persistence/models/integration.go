package models

import (
	"time"

	"github.com/arflow/backend/internal/domain/integration"
	"github.com/arflow/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// IntegrationSettingsModel stores one provider's settings for an organization.
// Public config is JSON; credentials are an opaque ciphertext.
type IntegrationSettingsModel struct {
	OrgAggregateModel
	Provider             integration.Provider `gorm:"type:varchar(20);not null;index"`
	Enabled              bool                 `gorm:"not null;default:false"`
	Config               integration.Config   `gorm:"type:jsonb;serializer:json"`
	EncryptedCredentials string               `gorm:"type:text"`
	LastTestedAt         *time.Time
	LastTestStatus       integration.TestStatus `gorm:"type:varchar(20);not null;default:'NONE'"`
	LastTestMessage      string                 `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (IntegrationSettingsModel) TableName() string {
	return "integration_settings"
}

// ToDomain converts the model to domain Settings
func (m *IntegrationSettingsModel) ToDomain() *integration.Settings {
	return &integration.Settings{
		OrgAggregateRoot:     m.OrgAggregateModel.toDomain(),
		Provider:             m.Provider,
		Enabled:              m.Enabled,
		Config:               m.Config,
		EncryptedCredentials: m.EncryptedCredentials,
		LastTestedAt:         m.LastTestedAt,
		LastTestStatus:       m.LastTestStatus,
		LastTestMessage:      m.LastTestMessage,
	}
}

// IntegrationSettingsModelFromDomain creates a model from domain Settings
func IntegrationSettingsModelFromDomain(s *integration.Settings) *IntegrationSettingsModel {
	m := &IntegrationSettingsModel{
		Provider:             s.Provider,
		Enabled:              s.Enabled,
		Config:               s.Config,
		EncryptedCredentials: s.EncryptedCredentials,
		LastTestedAt:         s.LastTestedAt,
		LastTestStatus:       s.LastTestStatus,
		LastTestMessage:      s.LastTestMessage,
	}
	m.FromDomainOrgAggregateRoot(s.OrgAggregateRoot)
	return m
}

// SyncLogModel is the persistence model for a SyncLog row
type SyncLogModel struct {
	BaseModel
	OrganizationID uuid.UUID                 `gorm:"type:uuid;not null;index"`
	Provider       integration.Provider      `gorm:"type:varchar(20);not null"`
	Entity         integration.SyncEntity    `gorm:"type:varchar(20);not null"`
	Direction      integration.SyncDirection `gorm:"type:varchar(10);not null"`
	Status         integration.SyncLogStatus `gorm:"type:varchar(20);not null;index"`
	Trigger        integration.SyncTrigger   `gorm:"column:trigger_source;type:varchar(20);not null"`
	TriggeredBy    *uuid.UUID                `gorm:"type:uuid"`
	EntityID       *uuid.UUID                `gorm:"type:uuid;index"`
	FullSync       bool                      `gorm:"not null;default:false"`
	Since          *time.Time
	StartedAt      time.Time `gorm:"not null;index"`
	FinishedAt     *time.Time
	Processed      int      `gorm:"not null;default:0"`
	Created        int      `gorm:"column:created_count;not null;default:0"`
	Updated        int      `gorm:"column:updated_count;not null;default:0"`
	Skipped        int      `gorm:"column:skipped_count;not null;default:0"`
	Failed         int      `gorm:"column:failed_count;not null;default:0"`
	ErrorMessage   string   `gorm:"type:text"`
	Messages       []string `gorm:"type:jsonb;serializer:json"`
}

// TableName returns the table name for GORM
func (SyncLogModel) TableName() string {
	return "sync_logs"
}

// ToDomain converts the model to a domain SyncLog
func (m *SyncLogModel) ToDomain() *integration.SyncLog {
	return &integration.SyncLog{
		BaseEntity:     shared.BaseEntity{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		OrganizationID: m.OrganizationID,
		Provider:       m.Provider,
		Entity:         m.Entity,
		Direction:      m.Direction,
		Status:         m.Status,
		Trigger:        m.Trigger,
		TriggeredBy:    m.TriggeredBy,
		EntityID:       m.EntityID,
		FullSync:       m.FullSync,
		Since:          m.Since,
		StartedAt:      m.StartedAt,
		FinishedAt:     m.FinishedAt,
		Processed:      m.Processed,
		Created:        m.Created,
		Updated:        m.Updated,
		Skipped:        m.Skipped,
		Failed:         m.Failed,
		ErrorMessage:   m.ErrorMessage,
		Messages:       m.Messages,
	}
}

// SyncLogModelFromDomain creates a model from a domain SyncLog
func SyncLogModelFromDomain(l *integration.SyncLog) *SyncLogModel {
	m := &SyncLogModel{
		OrganizationID: l.OrganizationID,
		Provider:       l.Provider,
		Entity:         l.Entity,
		Direction:      l.Direction,
		Status:         l.Status,
		Trigger:        l.Trigger,
		TriggeredBy:    l.TriggeredBy,
		EntityID:       l.EntityID,
		FullSync:       l.FullSync,
		Since:          l.Since,
		StartedAt:      l.StartedAt,
		FinishedAt:     l.FinishedAt,
		Processed:      l.Processed,
		Created:        l.Created,
		Updated:        l.Updated,
		Skipped:        l.Skipped,
		Failed:         l.Failed,
		ErrorMessage:   l.ErrorMessage,
		Messages:       l.Messages,
	}
	m.FromDomainBaseEntity(l.BaseEntity)
	return m
}
