package audit

import (
	"time"

	"github.com/arflow/backend/internal/domain/audit"
	"github.com/google/uuid"
)

// ListAuditLogsRequest represents the audit log list query
type ListAuditLogsRequest struct {
	Page       int        `form:"page" binding:"omitempty,min=1"`
	PageSize   int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy    string     `form:"order_by"`
	OrderDir   string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
	Action     string     `form:"action"`
	EntityType string     `form:"entity_type"`
	EntityID   *uuid.UUID `form:"entity_id"`
	UserID     *uuid.UUID `form:"user_id"`
	FromDate   *time.Time `form:"from_date" time_format:"2006-01-02"`
	ToDate     *time.Time `form:"to_date" time_format:"2006-01-02"`
}

func (r ListAuditLogsRequest) toFilter() audit.Filter {
	f := audit.Filter{
		Action:     r.Action,
		EntityType: r.EntityType,
		EntityID:   r.EntityID,
		UserID:     r.UserID,
		FromDate:   r.FromDate,
		ToDate:     r.ToDate,
	}
	f.Page = r.Page
	f.PageSize = r.PageSize
	f.OrderBy = r.OrderBy
	f.OrderDir = r.OrderDir
	return f
}

// AuditLogResponse represents an audit log entry in API responses
type AuditLogResponse struct {
	ID         uuid.UUID      `json:"id"`
	UserID     *uuid.UUID     `json:"user_id,omitempty"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   *uuid.UUID     `json:"entity_id,omitempty"`
	Metadata   map[string]any `json:"metadata"`
	IPAddress  string         `json:"ip_address,omitempty"`
	UserAgent  string         `json:"user_agent,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// ToAuditLogResponse converts a domain audit log to a response DTO
func ToAuditLogResponse(l *audit.Log) AuditLogResponse {
	return AuditLogResponse{
		ID:         l.ID,
		UserID:     l.UserID,
		Action:     l.Action,
		EntityType: l.EntityType,
		EntityID:   l.EntityID,
		Metadata:   l.Metadata,
		IPAddress:  l.IPAddress,
		UserAgent:  l.UserAgent,
		CreatedAt:  l.CreatedAt,
	}
}
