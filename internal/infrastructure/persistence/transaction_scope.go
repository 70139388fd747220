package persistence

import (
	"context"

	financeapp "github.com/arflow/backend/internal/application/finance"
	"github.com/arflow/backend/internal/domain/finance"
	"gorm.io/gorm"
)

// GormTransactionScope runs payment work in one gorm transaction
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a transaction. Repositories handed to fn are bound to it.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos financeapp.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) DocumentRepo() finance.DocumentRepository {
	return NewGormDocumentRepository(r.tx)
}

func (r *gormTransactionalRepositories) PaymentRepo() finance.PaymentRepository {
	return NewGormPaymentRepository(r.tx)
}

var (
	_ financeapp.TransactionScope          = (*GormTransactionScope)(nil)
	_ financeapp.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
