package integration

import (
	"time"

	"github.com/arflow/backend/internal/domain/finance"
	"github.com/arflow/backend/internal/domain/integration"
	"github.com/arflow/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Settings
// ---------------------------------------------------------------------------

// ConfigRequest is the public part of a provider's settings
type ConfigRequest struct {
	IsDefaultGateway     bool              `json:"is_default_gateway"`
	PublishableKey       string            `json:"publishable_key" binding:"max=255"`
	ClientKey            string            `json:"client_key" binding:"max=255"`
	Sandbox              bool              `json:"sandbox"`
	BaseURL              string            `json:"base_url" binding:"omitempty,url,max=500"`
	Company              string            `json:"company" binding:"max=100"`
	Branch               string            `json:"branch" binding:"max=100"`
	APIVersion           string            `json:"api_version" binding:"max=20"`
	CashAccount          string            `json:"cash_account" binding:"max=50"`
	PaymentMethodMapping map[string]string `json:"payment_method_mapping"`
	AutoSyncPayments     bool              `json:"auto_sync_payments"`
	AutoSyncDocuments    bool              `json:"auto_sync_documents"`
	SyncIntervalMinutes  int               `json:"sync_interval_minutes" binding:"min=0,max=10080"`
}

func (r ConfigRequest) toDomain() integration.Config {
	var mapping map[finance.PaymentMethod]string
	if len(r.PaymentMethodMapping) > 0 {
		mapping = make(map[finance.PaymentMethod]string, len(r.PaymentMethodMapping))
		for k, v := range r.PaymentMethodMapping {
			mapping[finance.PaymentMethod(k)] = v
		}
	}
	return integration.Config{
		IsDefaultGateway:     r.IsDefaultGateway,
		PublishableKey:       r.PublishableKey,
		ClientKey:            r.ClientKey,
		Sandbox:              r.Sandbox,
		BaseURL:              r.BaseURL,
		Company:              r.Company,
		Branch:               r.Branch,
		APIVersion:           r.APIVersion,
		CashAccount:          r.CashAccount,
		PaymentMethodMapping: mapping,
		AutoSyncPayments:     r.AutoSyncPayments,
		AutoSyncDocuments:    r.AutoSyncDocuments,
		SyncIntervalMinutes:  r.SyncIntervalMinutes,
	}
}

// CredentialsRequest carries new secrets. Empty fields keep the stored value.
type CredentialsRequest struct {
	SecretKey      string `json:"secret_key"`
	WebhookSecret  string `json:"webhook_secret"`
	APILoginID     string `json:"api_login_id"`
	TransactionKey string `json:"transaction_key"`
	SignatureKey   string `json:"signature_key"`
	Username       string `json:"username"`
	Password       string `json:"password"`
}

func (r CredentialsRequest) toDomain() integration.Credentials {
	return integration.Credentials(r)
}

// UpdateSettingsRequest replaces a provider's settings
type UpdateSettingsRequest struct {
	Enabled     bool               `json:"enabled"`
	Config      ConfigRequest      `json:"config"`
	Credentials CredentialsRequest `json:"credentials"`
}

// SettingsResponse is a provider's settings with every secret masked
type SettingsResponse struct {
	Provider        string             `json:"provider"`
	Configured      bool               `json:"configured"`
	Enabled         bool               `json:"enabled"`
	Config          integration.Config `json:"config"`
	Credentials     map[string]string  `json:"credentials"`
	LastTestedAt    *time.Time         `json:"last_tested_at,omitempty"`
	LastTestStatus  string             `json:"last_test_status"`
	LastTestMessage string             `json:"last_test_message,omitempty"`
	UpdatedAt       *time.Time         `json:"updated_at,omitempty"`
	Version         int                `json:"version"`
}

// ToSettingsResponse converts settings to a response. Credentials that
// cannot be decrypted are reported as absent.
func ToSettingsResponse(s *integration.Settings, creds integration.Credentials) SettingsResponse {
	updated := s.UpdatedAt
	return SettingsResponse{
		Provider:        string(s.Provider),
		Configured:      true,
		Enabled:         s.Enabled,
		Config:          s.Config,
		Credentials:     creds.Masked(),
		LastTestedAt:    s.LastTestedAt,
		LastTestStatus:  string(s.LastTestStatus),
		LastTestMessage: s.LastTestMessage,
		UpdatedAt:       &updated,
		Version:         s.Version,
	}
}

func unconfiguredResponse(p integration.Provider) SettingsResponse {
	return SettingsResponse{
		Provider:       string(p),
		Credentials:    map[string]string{},
		LastTestStatus: string(integration.TestStatusNone),
	}
}

// TestConnectionResponse is the outcome of a connection test
type TestConnectionResponse struct {
	Provider string    `json:"provider"`
	Success  bool      `json:"success"`
	Message  string    `json:"message,omitempty"`
	TestedAt time.Time `json:"tested_at"`
}

// ---------------------------------------------------------------------------
// Sync
// ---------------------------------------------------------------------------

// SyncRequest starts an inbound sync. Full ignores the last successful run.
type SyncRequest struct {
	Full bool `json:"full" form:"full"`
}

// ListSyncLogsRequest holds the sync log list query
type ListSyncLogsRequest struct {
	Page     int        `form:"page"`
	PageSize int        `form:"page_size"`
	OrderBy  string     `form:"order_by"`
	OrderDir string     `form:"order_dir"`
	Provider string     `form:"provider" binding:"omitempty,oneof=STRIPE AUTHORIZE_NET ACUMATICA"`
	Entity   string     `form:"entity" binding:"omitempty,oneof=CUSTOMERS DOCUMENTS PAYMENT"`
	Status   string     `form:"status" binding:"omitempty,oneof=RUNNING SUCCESS PARTIAL FAILED"`
	EntityID *uuid.UUID `form:"entity_id"`
	FromDate *time.Time `form:"from_date" time_format:"2006-01-02"`
	ToDate   *time.Time `form:"to_date" time_format:"2006-01-02"`
}

func (r ListSyncLogsRequest) toFilter() integration.SyncLogFilter {
	filter := integration.SyncLogFilter{
		Filter: shared.Filter{
			Page:     r.Page,
			PageSize: r.PageSize,
			OrderBy:  r.OrderBy,
			OrderDir: r.OrderDir,
		},
		EntityID: r.EntityID,
		FromDate: r.FromDate,
		ToDate:   r.ToDate,
	}
	if r.Provider != "" {
		p := integration.Provider(r.Provider)
		filter.Provider = &p
	}
	if r.Entity != "" {
		e := integration.SyncEntity(r.Entity)
		filter.Entity = &e
	}
	if r.Status != "" {
		s := integration.SyncLogStatus(r.Status)
		filter.Status = &s
	}
	filter.Normalize()
	return filter
}

// SyncLogResponse represents a sync log in API responses
type SyncLogResponse struct {
	ID           uuid.UUID  `json:"id"`
	Provider     string     `json:"provider"`
	Entity       string     `json:"entity"`
	Direction    string     `json:"direction"`
	Status       string     `json:"status"`
	Trigger      string     `json:"trigger"`
	TriggeredBy  *uuid.UUID `json:"triggered_by,omitempty"`
	EntityID     *uuid.UUID `json:"entity_id,omitempty"`
	FullSync     bool       `json:"full_sync"`
	Since        *time.Time `json:"since,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	DurationMs   int64      `json:"duration_ms"`
	Processed    int        `json:"processed"`
	Created      int        `json:"created"`
	Updated      int        `json:"updated"`
	Skipped      int        `json:"skipped"`
	Failed       int        `json:"failed"`
	ErrorMessage string     `json:"error_message,omitempty"`
	Messages     []string   `json:"messages"`
}

// ToSyncLogResponse converts a sync log to a response
func ToSyncLogResponse(l *integration.SyncLog) SyncLogResponse {
	messages := l.Messages
	if messages == nil {
		messages = []string{}
	}
	return SyncLogResponse{
		ID:           l.ID,
		Provider:     string(l.Provider),
		Entity:       string(l.Entity),
		Direction:    string(l.Direction),
		Status:       string(l.Status),
		Trigger:      string(l.Trigger),
		TriggeredBy:  l.TriggeredBy,
		EntityID:     l.EntityID,
		FullSync:     l.FullSync,
		Since:        l.Since,
		StartedAt:    l.StartedAt,
		FinishedAt:   l.FinishedAt,
		DurationMs:   l.Duration().Milliseconds(),
		Processed:    l.Processed,
		Created:      l.Created,
		Updated:      l.Updated,
		Skipped:      l.Skipped,
		Failed:       l.Failed,
		ErrorMessage: l.ErrorMessage,
		Messages:     messages,
	}
}

// PaymentSyncResponse is the ERP state of a payment after a push
type PaymentSyncResponse struct {
	PaymentID     uuid.UUID  `json:"payment_id"`
	PaymentNumber string     `json:"payment_number"`
	SyncStatus    string     `json:"sync_status"`
	ERPReference  string     `json:"erp_reference,omitempty"`
	SyncAttempts  int        `json:"sync_attempts"`
	SyncedAt      *time.Time `json:"synced_at,omitempty"`
	AlreadySynced bool       `json:"already_synced"`
	SyncLogID     *uuid.UUID `json:"sync_log_id,omitempty"`
}

func toPaymentSyncResponse(p *finance.Payment, alreadySynced bool, log *integration.SyncLog) *PaymentSyncResponse {
	resp := &PaymentSyncResponse{
		PaymentID:     p.ID,
		PaymentNumber: p.PaymentNumber,
		SyncStatus:    string(p.SyncStatus),
		ERPReference:  p.ERPReference,
		SyncAttempts:  p.SyncAttempts,
		SyncedAt:      p.SyncedAt,
		AlreadySynced: alreadySynced,
	}
	if log != nil {
		id := log.ID
		resp.SyncLogID = &id
	}
	return resp
}

// RetryResponse reports how many failed payment pushes were queued again
type RetryResponse struct {
	Queued    int `json:"queued"`
	Failed    int `json:"failed"`
	Exhausted int `json:"exhausted"`
}
