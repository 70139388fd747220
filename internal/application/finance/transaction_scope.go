package finance

import (
	"context"

	"github.com/arflow/backend/internal/domain/finance"
)

// TransactionScope provides transactional access to the document and payment
// repositories. A payment and every document it touches are committed or
// rolled back together.
type TransactionScope interface {
	// Execute runs fn within a database transaction. An error from fn rolls
	// the transaction back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories gives repositories that share one transaction
type TransactionalRepositories interface {
	DocumentRepo() finance.DocumentRepository
	PaymentRepo() finance.PaymentRepository
}

// NoOpTransactionScope runs fn against plain repositories. Used by tests.
type NoOpTransactionScope struct {
	documentRepo finance.DocumentRepository
	paymentRepo  finance.PaymentRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories
func NewNoOpTransactionScope(documentRepo finance.DocumentRepository, paymentRepo finance.PaymentRepository) *NoOpTransactionScope {
	return &NoOpTransactionScope{documentRepo: documentRepo, paymentRepo: paymentRepo}
}

// Execute runs the function without a real transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// DocumentRepo returns the document repository
func (s *NoOpTransactionScope) DocumentRepo() finance.DocumentRepository {
	return s.documentRepo
}

// PaymentRepo returns the payment repository
func (s *NoOpTransactionScope) PaymentRepo() finance.PaymentRepository {
	return s.paymentRepo
}

var (
	_ TransactionScope          = (*NoOpTransactionScope)(nil)
	_ TransactionalRepositories = (*NoOpTransactionScope)(nil)
)
