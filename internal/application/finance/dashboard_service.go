package finance

import (
	"context"
	"time"

	"github.com/arflow/backend/internal/application/authz"
	"github.com/arflow/backend/internal/domain/finance"
	"github.com/arflow/backend/internal/domain/identity"
	"github.com/arflow/backend/internal/domain/integration"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	summaryPaymentWindow = 30 * 24 * time.Hour
	summarySyncWindow    = 7 * 24 * time.Hour
)

// DashboardService computes receivable totals and aging
type DashboardService struct {
	documentRepo finance.DocumentRepository
	paymentRepo  finance.PaymentRepository
	syncLogRepo  integration.SyncLogRepository
	logger       *zap.Logger
	now          func() time.Time
}

// NewDashboardService creates a new DashboardService
func NewDashboardService(
	documentRepo finance.DocumentRepository,
	paymentRepo finance.PaymentRepository,
	syncLogRepo integration.SyncLogRepository,
	logger *zap.Logger,
) *DashboardService {
	return &DashboardService{
		documentRepo: documentRepo,
		paymentRepo:  paymentRepo,
		syncLogRepo:  syncLogRepo,
		logger:       logger,
		now:          time.Now,
	}
}

// Summary returns the organization's outstanding and overdue totals, payments
// of the last 30 days and sync failures of the last 7 days
func (s *DashboardService) Summary(ctx context.Context, actor authz.Actor) (*SummaryResponse, error) {
	if err := actor.RequireStaff(); err != nil {
		return nil, err
	}
	now := s.now()

	docs, err := s.documentRepo.FindOutstanding(ctx, actor.OrganizationID, nil)
	if err != nil {
		return nil, err
	}
	report := finance.BuildAgingReport(docs, now, nil)

	received, count, err := s.paymentRepo.SumCompletedSince(ctx, actor.OrganizationID, now.Add(-summaryPaymentWindow))
	if err != nil {
		return nil, err
	}
	failedPayments, err := s.paymentRepo.CountBySyncStatus(ctx, actor.OrganizationID, finance.SyncStatusFailed)
	if err != nil {
		return nil, err
	}
	failedSyncs, err := s.syncLogRepo.CountFailedSince(ctx, actor.OrganizationID, now.Add(-summarySyncWindow))
	if err != nil {
		return nil, err
	}

	return &SummaryResponse{
		TotalOutstanding:   report.Total,
		OverdueAmount:      report.Overdue,
		OpenDocumentCount:  report.DocumentCount,
		PaymentsReceived:   received,
		PaymentCount:       count,
		Aging:              ToAgingResponse(report),
		FailedSyncCount:    failedSyncs,
		FailedPaymentSyncs: failedPayments,
	}, nil
}

// Aging returns the aging report of the organization, or of one customer.
// Portal users always get their own customer's report.
func (s *DashboardService) Aging(ctx context.Context, actor authz.Actor, customerID *uuid.UUID) (*AgingResponse, error) {
	if err := actor.Require(identity.AllRoles...); err != nil {
		return nil, err
	}
	scoped, err := actor.ScopeCustomer(customerID)
	if err != nil {
		return nil, err
	}
	docs, err := s.documentRepo.FindOutstanding(ctx, actor.OrganizationID, scoped)
	if err != nil {
		return nil, err
	}
	resp := ToAgingResponse(finance.BuildAgingReport(docs, s.now(), scoped))
	return &resp, nil
}
