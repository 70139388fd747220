package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// UserSortFields contains allowed sort fields for users
var UserSortFields = map[string]bool{
	"created_at":    true,
	"email":         true,
	"name":          true,
	"role":          true,
	"status":        true,
	"last_login_at": true,
}

// CustomerSortFields contains allowed sort fields for customers
var CustomerSortFields = map[string]bool{
	"created_at":      true,
	"updated_at":      true,
	"customer_number": true,
	"company_name":    true,
	"status":          true,
	"last_synced_at":  true,
}

// DocumentSortFields contains allowed sort fields for documents
var DocumentSortFields = map[string]bool{
	"created_at":      true,
	"document_number": true,
	"document_date":   true,
	"due_date":        true,
	"total_amount":    true,
	"balance_due":     true,
	"status":          true,
}

// PaymentSortFields contains allowed sort fields for payments
var PaymentSortFields = map[string]bool{
	"created_at":     true,
	"payment_number": true,
	"payment_date":   true,
	"amount":         true,
	"status":         true,
	"sync_status":    true,
}

// SyncLogSortFields contains allowed sort fields for sync logs
var SyncLogSortFields = map[string]bool{
	"started_at":  true,
	"finished_at": true,
	"status":      true,
	"entity":      true,
}

// AuditLogSortFields contains allowed sort fields for audit logs
var AuditLogSortFields = map[string]bool{
	"created_at": true,
	"action":     true,
}
