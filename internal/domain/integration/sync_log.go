package integration

import (
	"time"

	"github.com/arflow/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// SyncEntity is what a sync run moved
type SyncEntity string

const (
	SyncEntityCustomers SyncEntity = "CUSTOMERS"
	SyncEntityDocuments SyncEntity = "DOCUMENTS"
	SyncEntityPayment   SyncEntity = "PAYMENT"
)

// IsValid checks if the entity is valid
func (e SyncEntity) IsValid() bool {
	return e == SyncEntityCustomers || e == SyncEntityDocuments || e == SyncEntityPayment
}

// SyncDirection tells whether data came from or went to the ERP
type SyncDirection string

const (
	SyncDirectionInbound  SyncDirection = "INBOUND"
	SyncDirectionOutbound SyncDirection = "OUTBOUND"
)

// SyncLogStatus is the outcome of a sync run
type SyncLogStatus string

const (
	SyncLogStatusRunning SyncLogStatus = "RUNNING"
	SyncLogStatusSuccess SyncLogStatus = "SUCCESS"
	SyncLogStatusPartial SyncLogStatus = "PARTIAL"
	SyncLogStatusFailed  SyncLogStatus = "FAILED"
)

// IsValid checks if the status is valid
func (s SyncLogStatus) IsValid() bool {
	switch s {
	case SyncLogStatusRunning, SyncLogStatusSuccess, SyncLogStatusPartial, SyncLogStatusFailed:
		return true
	}
	return false
}

// SyncTrigger tells what started a sync run
type SyncTrigger string

const (
	SyncTriggerManual    SyncTrigger = "MANUAL"
	SyncTriggerScheduler SyncTrigger = "SCHEDULER"
	SyncTriggerAuto      SyncTrigger = "AUTO"
	SyncTriggerRetry     SyncTrigger = "RETRY"
)

const maxSyncLogMessages = 100

// SyncLog records the outcome of one integration run
type SyncLog struct {
	shared.BaseEntity
	OrganizationID uuid.UUID
	Provider       Provider
	Entity         SyncEntity
	Direction      SyncDirection
	Status         SyncLogStatus
	Trigger        SyncTrigger
	TriggeredBy    *uuid.UUID
	EntityID       *uuid.UUID // Payment ID for payment pushes
	FullSync       bool
	Since          *time.Time // Lower bound of an incremental pull
	StartedAt      time.Time
	FinishedAt     *time.Time
	Processed      int
	Created        int
	Updated        int
	Skipped        int
	Failed         int
	ErrorMessage   string
	Messages       []string
}

// NewSyncLog starts a RUNNING log
func NewSyncLog(orgID uuid.UUID, provider Provider, entity SyncEntity, direction SyncDirection, trigger SyncTrigger, triggeredBy *uuid.UUID) *SyncLog {
	if triggeredBy != nil && *triggeredBy == uuid.Nil {
		triggeredBy = nil
	}
	return &SyncLog{
		BaseEntity:     shared.NewBaseEntity(),
		OrganizationID: orgID,
		Provider:       provider,
		Entity:         entity,
		Direction:      direction,
		Status:         SyncLogStatusRunning,
		Trigger:        trigger,
		TriggeredBy:    triggeredBy,
		StartedAt:      time.Now(),
		Messages:       make([]string, 0),
	}
}

// RecordCreated counts a newly created record
func (l *SyncLog) RecordCreated() {
	l.Processed++
	l.Created++
}

// RecordUpdated counts a changed record
func (l *SyncLog) RecordUpdated() {
	l.Processed++
	l.Updated++
}

// RecordUnchanged counts a record that needed no change
func (l *SyncLog) RecordUnchanged() {
	l.Processed++
}

// RecordSkipped counts a record that was deliberately not imported
func (l *SyncLog) RecordSkipped(message string) {
	l.Processed++
	l.Skipped++
	l.addMessage(message)
}

// RecordFailed counts a record that could not be imported
func (l *SyncLog) RecordFailed(message string) {
	l.Processed++
	l.Failed++
	l.addMessage(message)
}

// Complete finishes the run. Failures with no successes are FAILED; any
// failure or skip otherwise is PARTIAL.
func (l *SyncLog) Complete() {
	switch {
	case l.Failed > 0 && l.Created+l.Updated == 0 && l.Processed == l.Failed:
		l.Status = SyncLogStatusFailed
	case l.Failed > 0 || l.Skipped > 0:
		l.Status = SyncLogStatusPartial
	default:
		l.Status = SyncLogStatusSuccess
	}
	l.finish()
}

// Fail aborts the run with err
func (l *SyncLog) Fail(err error) {
	l.Status = SyncLogStatusFailed
	if err != nil {
		msg := err.Error()
		if len(msg) > 2000 {
			msg = msg[:2000]
		}
		l.ErrorMessage = msg
	}
	l.finish()
}

// IsFinished returns true once the run has an outcome
func (l *SyncLog) IsFinished() bool {
	return l.Status != SyncLogStatusRunning
}

// Duration returns how long the run took, or has taken so far
func (l *SyncLog) Duration() time.Duration {
	if l.FinishedAt == nil {
		return time.Since(l.StartedAt)
	}
	return l.FinishedAt.Sub(l.StartedAt)
}

func (l *SyncLog) finish() {
	now := time.Now()
	l.FinishedAt = &now
	l.Touch()
}

func (l *SyncLog) addMessage(message string) {
	if message == "" || len(l.Messages) >= maxSyncLogMessages {
		return
	}
	l.Messages = append(l.Messages, message)
}
