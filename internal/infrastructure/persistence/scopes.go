package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/arflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// forOrg restricts a query to one organization. Every organization-owned
// table has an organization_id column.
func forOrg(orgID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("organization_id = ?", orgID)
	}
}

// search matches term case-insensitively against any of columns. LOWER/LIKE
// keeps the query portable between PostgreSQL and SQLite.
func search(term string, columns ...string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		term = strings.TrimSpace(term)
		if term == "" || len(columns) == 0 {
			return db
		}
		pattern := "%" + strings.ToLower(term) + "%"
		conds := make([]string, len(columns))
		args := make([]any, len(columns))
		for i, col := range columns {
			conds[i] = "LOWER(" + col + ") LIKE ?"
			args[i] = pattern
		}
		return db.Where("("+strings.Join(conds, " OR ")+")", args...)
	}
}

// paginate applies ordering from a whitelist, then offset and limit
func paginate(f shared.Filter, allowed map[string]bool, defaultField string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		f.Normalize()
		field := ValidateSortField(f.OrderBy, allowed, defaultField)
		return db.Order(field + " " + ValidateSortOrder(f.OrderDir)).
			Offset(f.Offset()).
			Limit(f.PageSize)
	}
}

// notFound maps gorm.ErrRecordNotFound to shared.ErrNotFound
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	return err
}

// saveVersioned writes model for agg. A never-persisted aggregate is inserted;
// otherwise the row is updated only if its version still equals the version
// the aggregate was loaded at.
func saveVersioned(ctx context.Context, db *gorm.DB, model any, agg shared.AggregateRoot, what string) error {
	loaded := agg.LoadedVersion()
	if loaded == 0 {
		if err := db.WithContext(ctx).Omit(clause.Associations).Create(model).Error; err != nil {
			return err
		}
		agg.MarkLoaded()
		return nil
	}

	result := db.WithContext(ctx).
		Model(model).
		Omit(clause.Associations).
		Where("id = ? AND version = ?", agg.GetID(), loaded).
		Select("*").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("OPTIMISTIC_LOCK_ERROR",
			fmt.Sprintf("The %s has been modified by another request, reload and retry", what))
	}
	agg.MarkLoaded()
	return nil
}

// upsert inserts model or overwrites every column when the primary key exists
func upsert(ctx context.Context, db *gorm.DB, model any, agg shared.AggregateRoot) error {
	if err := db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(model).Error; err != nil {
		return err
	}
	agg.MarkLoaded()
	return nil
}
