package integration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arflow/backend/internal/application/authz"
	"github.com/arflow/backend/internal/domain/customer"
	"github.com/arflow/backend/internal/domain/finance"
	"github.com/arflow/backend/internal/domain/integration"
	"github.com/arflow/backend/internal/domain/shared"
	"github.com/arflow/backend/internal/infrastructure/logger"
	"github.com/arflow/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultRetryBatch = 50
	sessionCloseDelay = 10 * time.Second
)

// SyncDispatcher hands sync work to a background runner
type SyncDispatcher interface {
	DispatchPaymentSync(ctx context.Context, orgID, paymentID uuid.UUID, trigger integration.SyncTrigger) error
	DispatchEntitySync(ctx context.Context, orgID uuid.UUID, entity integration.SyncEntity, trigger integration.SyncTrigger, full bool) error
}

// SyncService moves customers and documents in from Acumatica and pushes
// payments out to it
type SyncService struct {
	settingsRepo integration.SettingsRepository
	syncLogRepo  integration.SyncLogRepository
	customerRepo customer.Repository
	documentRepo finance.DocumentRepository
	paymentRepo  finance.PaymentRepository
	cipher       integration.CredentialCipher
	erp          ERPClientFactory
	lock         shared.SyncLock
	lockConfig   shared.LockConfig
	dispatcher   SyncDispatcher
	publisher    shared.EventPublisher
	logger       *zap.Logger
	retryBatch   int
	maxAttempts  int
}

// NewSyncService creates a new SyncService
func NewSyncService(
	settingsRepo integration.SettingsRepository,
	syncLogRepo integration.SyncLogRepository,
	customerRepo customer.Repository,
	documentRepo finance.DocumentRepository,
	paymentRepo finance.PaymentRepository,
	cipher integration.CredentialCipher,
	erp ERPClientFactory,
	lock shared.SyncLock,
	lockConfig shared.LockConfig,
	logger *zap.Logger,
) *SyncService {
	return &SyncService{
		settingsRepo: settingsRepo,
		syncLogRepo:  syncLogRepo,
		customerRepo: customerRepo,
		documentRepo: documentRepo,
		paymentRepo:  paymentRepo,
		cipher:       cipher,
		erp:          erp,
		lock:         lock,
		lockConfig:   lockConfig,
		logger:       logger,
		retryBatch:   defaultRetryBatch,
	}
}

// SetDispatcher sets the runner used by retries and the scheduler
func (s *SyncService) SetDispatcher(d SyncDispatcher) {
	s.dispatcher = d
}

// SetRetryLimits bounds how many failed pushes one retry queues and how many
// attempts a payment gets before it is left for manual attention. Zero keeps
// the current value.
func (s *SyncService) SetRetryLimits(batch, maxAttempts int) {
	if batch > 0 {
		s.retryBatch = batch
	}
	if maxAttempts > 0 {
		s.maxAttempts = maxAttempts
	}
}

// SetEventPublisher sets the publisher for payment and sync events
func (s *SyncService) SetEventPublisher(p shared.EventPublisher) {
	s.publisher = p
}

// ---------------------------------------------------------------------------
// Inbound
// ---------------------------------------------------------------------------

// SyncCustomers upserts Acumatica customers by their ERP reference
func (s *SyncService) SyncCustomers(ctx context.Context, actor authz.Actor, trigger integration.SyncTrigger, req SyncRequest) (*SyncLogResponse, error) {
	return s.runInbound(ctx, actor, integration.SyncEntityCustomers, trigger, req.Full, s.importCustomers)
}

// SyncDocumentsFromAcumatica upserts Acumatica invoices and memos by type and
// ERP reference. Documents of unknown customers are skipped.
func (s *SyncService) SyncDocumentsFromAcumatica(ctx context.Context, actor authz.Actor, trigger integration.SyncTrigger, req SyncRequest) (*SyncLogResponse, error) {
	return s.runInbound(ctx, actor, integration.SyncEntityDocuments, trigger, req.Full, s.importDocuments)
}

// SyncEntity runs the inbound sync of entity. Used by background runners.
func (s *SyncService) SyncEntity(ctx context.Context, actor authz.Actor, entity integration.SyncEntity, trigger integration.SyncTrigger, full bool) (*SyncLogResponse, error) {
	switch entity {
	case integration.SyncEntityCustomers:
		return s.SyncCustomers(ctx, actor, trigger, SyncRequest{Full: full})
	case integration.SyncEntityDocuments:
		return s.SyncDocumentsFromAcumatica(ctx, actor, trigger, SyncRequest{Full: full})
	}
	return nil, shared.NewDomainError("INVALID_SYNC_ENTITY", fmt.Sprintf("Cannot pull %s from the ERP", entity))
}

type importFunc func(ctx context.Context, orgID uuid.UUID, client integration.ERPClient, log *integration.SyncLog) error

func (s *SyncService) runInbound(ctx context.Context, actor authz.Actor, entity integration.SyncEntity, trigger integration.SyncTrigger, full bool, run importFunc) (resp *SyncLogResponse, err error) {
	ctx, span := telemetry.StartSpan(ctx, "sync.inbound",
		telemetry.AttrOrganizationID.String(actor.OrganizationID.String()),
		telemetry.AttrProvider.String(string(integration.ProviderAcumatica)),
		telemetry.AttrSyncEntity.String(string(entity)),
		telemetry.AttrSyncTrigger.String(string(trigger)))
	defer func() { telemetry.End(span, err) }()

	if err := actor.RequireWriter(); err != nil {
		return nil, err
	}
	orgID := actor.OrganizationID
	client, err := s.client(ctx, orgID)
	if err != nil {
		return nil, err
	}

	release, err := s.acquire(ctx, fmt.Sprintf("sync:%s:%s", orgID, entity))
	if err != nil {
		return nil, err
	}
	defer release()

	log := integration.NewSyncLog(orgID, integration.ProviderAcumatica, entity, integration.SyncDirectionInbound, trigger, actor.UserPtr())
	log.FullSync = full
	if !full {
		last, err := s.syncLogRepo.FindLastSuccessful(ctx, orgID, integration.ProviderAcumatica, entity)
		switch {
		case err == nil:
			since := last.StartedAt
			log.Since = &since
		case shared.IsNotFound(err):
			log.FullSync = true
		default:
			return nil, err
		}
	}
	if err := s.syncLogRepo.Save(ctx, log); err != nil {
		return nil, err
	}

	runErr := s.withSession(ctx, client, func() error {
		return run(ctx, orgID, client, log)
	})
	if runErr != nil {
		log.Fail(runErr)
	} else {
		log.Complete()
	}
	s.finishLog(ctx, log)

	l := logger.Enrich(ctx, s.logger).With(
		zap.String("entity", string(entity)),
		zap.String("sync_log_id", log.ID.String()),
		zap.String("status", string(log.Status)),
		zap.Int("processed", log.Processed),
		zap.Int("created", log.Created),
		zap.Int("updated", log.Updated),
		zap.Int("skipped", log.Skipped),
		zap.Int("failed", log.Failed))
	if runErr != nil {
		l.Error("acumatica sync failed", zap.Error(runErr))
		return nil, runErr
	}
	l.Info("acumatica sync completed", zap.Duration("duration", log.Duration()))

	out := ToSyncLogResponse(log)
	return &out, nil
}

func (s *SyncService) importCustomers(ctx context.Context, orgID uuid.UUID, client integration.ERPClient, log *integration.SyncLog) error {
	rows, err := client.ListCustomers(ctx, log.Since)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	refs := make([]string, len(rows))
	for i := range rows {
		refs[i] = rows[i].CustomerID
	}
	existing, err := s.customerRepo.FindByERPReferences(ctx, orgID, refs)
	if err != nil {
		return err
	}

	for i := range rows {
		row := &rows[i]
		if err := ctx.Err(); err != nil {
			return err
		}
		details := customerDetails(row)

		c, ok := existing[row.CustomerID]
		if !ok {
			// A manually created customer with the same number is linked, not duplicated
			c, err = s.customerRepo.FindByNumber(ctx, orgID, row.CustomerID)
			if err != nil && !shared.IsNotFound(err) {
				log.RecordFailed(fmt.Sprintf("customer %s: %v", row.CustomerID, err))
				continue
			}
		}

		if c == nil {
			created, err := customer.NewCustomerFromERP(orgID, row.CustomerID, details, row.Active)
			if err != nil {
				log.RecordFailed(fmt.Sprintf("customer %s: %v", row.CustomerID, err))
				continue
			}
			if err := s.customerRepo.Save(ctx, created); err != nil {
				log.RecordFailed(fmt.Sprintf("customer %s: %v", row.CustomerID, err))
				continue
			}
			s.publishAggregate(ctx, created)
			log.RecordCreated()
			continue
		}

		changed, err := c.SyncFromERP(row.CustomerID, details, row.Active)
		if err != nil {
			log.RecordFailed(fmt.Sprintf("customer %s: %v", row.CustomerID, err))
			continue
		}
		if err := s.customerRepo.SaveWithLock(ctx, c); err != nil {
			log.RecordFailed(fmt.Sprintf("customer %s: %v", row.CustomerID, err))
			continue
		}
		if changed {
			log.RecordUpdated()
		} else {
			log.RecordUnchanged()
		}
	}
	return nil
}

func customerDetails(row *integration.ERPCustomer) customer.Details {
	return customer.Details{
		CompanyName: row.Name,
		ContactName: row.ContactName,
		Email:       row.Email,
		Phone:       row.Phone,
		BillingAddress: customer.Address{
			Line1:      row.AddressLine1,
			Line2:      row.AddressLine2,
			City:       row.City,
			State:      row.State,
			PostalCode: row.PostalCode,
			Country:    row.Country,
		},
		PaymentTermsDays: row.PaymentTermsDays,
	}
}

func (s *SyncService) importDocuments(ctx context.Context, orgID uuid.UUID, client integration.ERPClient, log *integration.SyncLog) error {
	rows, err := client.ListDocuments(ctx, log.Since)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	customerRefs := make([]string, 0, len(rows))
	refsByType := make(map[finance.DocumentType][]string)
	for i := range rows {
		customerRefs = append(customerRefs, rows[i].CustomerID)
		refsByType[rows[i].Type] = append(refsByType[rows[i].Type], rows[i].ReferenceNbr)
	}
	customers, err := s.customerRepo.FindByERPReferences(ctx, orgID, customerRefs)
	if err != nil {
		return err
	}
	existing := make(map[finance.DocumentType]map[string]*finance.Document, len(refsByType))
	for docType, refs := range refsByType {
		docs, err := s.documentRepo.FindByERPReferences(ctx, orgID, docType, refs)
		if err != nil {
			return err
		}
		existing[docType] = docs
	}

	for i := range rows {
		row := &rows[i]
		if err := ctx.Err(); err != nil {
			return err
		}
		label := fmt.Sprintf("%s %s", row.Type, row.ReferenceNbr)

		if doc, ok := existing[row.Type][row.ReferenceNbr]; ok {
			changed, err := doc.SyncFromERP(finance.ERPDocumentState{
				TotalAmount:  row.Amount,
				Balance:      row.Balance,
				DocumentDate: row.Date,
				DueDate:      row.DueDate,
				Description:  row.Description,
				Voided:       row.Voided,
			})
			if err != nil {
				log.RecordFailed(fmt.Sprintf("%s: %v", label, err))
				continue
			}
			if !changed {
				log.RecordUnchanged()
				continue
			}
			if err := s.documentRepo.SaveWithLock(ctx, doc); err != nil {
				log.RecordFailed(fmt.Sprintf("%s: %v", label, err))
				continue
			}
			s.publishAggregate(ctx, doc)
			log.RecordUpdated()
			continue
		}

		cust, ok := customers[row.CustomerID]
		if !ok {
			log.RecordSkipped(fmt.Sprintf("%s skipped: unknown customer %s", label, row.CustomerID))
			continue
		}
		if row.Voided {
			log.RecordSkipped(fmt.Sprintf("%s skipped: void in ERP", label))
			continue
		}
		if _, err := s.documentRepo.FindByNumber(ctx, orgID, row.Type, row.ReferenceNbr); err == nil {
			log.RecordSkipped(fmt.Sprintf("%s skipped: a manual document has the same number", label))
			continue
		} else if !shared.IsNotFound(err) {
			log.RecordFailed(fmt.Sprintf("%s: %v", label, err))
			continue
		}

		doc, err := finance.NewDocumentFromERP(orgID, row.ReferenceNbr, finance.NewDocumentParams{
			DocumentNumber: row.ReferenceNbr,
			CustomerID:     cust.ID,
			Type:           row.Type,
			DocumentDate:   row.Date,
			DueDate:        row.DueDate,
			TotalAmount:    row.Amount,
			Currency:       row.Currency,
			Description:    row.Description,
		}, row.Balance)
		if err != nil {
			log.RecordFailed(fmt.Sprintf("%s: %v", label, err))
			continue
		}
		if err := s.documentRepo.Save(ctx, doc); err != nil {
			log.RecordFailed(fmt.Sprintf("%s: %v", label, err))
			continue
		}
		s.publishAggregate(ctx, doc)
		log.RecordCreated()
	}
	return nil
}

// ---------------------------------------------------------------------------
// Outbound
// ---------------------------------------------------------------------------

// SyncPaymentToAcumatica pushes a completed payment and its applications to
// the ERP. A payment that is already synced is returned as is.
func (s *SyncService) SyncPaymentToAcumatica(ctx context.Context, actor authz.Actor, paymentID uuid.UUID, trigger integration.SyncTrigger) (resp *PaymentSyncResponse, err error) {
	ctx, span := telemetry.StartSpan(ctx, "sync.payment_push",
		telemetry.AttrOrganizationID.String(actor.OrganizationID.String()),
		telemetry.AttrPaymentID.String(paymentID.String()),
		telemetry.AttrSyncTrigger.String(string(trigger)))
	defer func() { telemetry.End(span, err) }()

	if err := actor.RequireWriter(); err != nil {
		return nil, err
	}
	orgID := actor.OrganizationID

	release, err := s.acquire(ctx, fmt.Sprintf("sync:%s:payment:%s", orgID, paymentID))
	if err != nil {
		return nil, err
	}
	defer release()

	payment, err := s.paymentRepo.FindByIDForOrg(ctx, orgID, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.IsSynced() {
		return toPaymentSyncResponse(payment, true, nil), nil
	}
	if err := payment.CanSyncToERP(); err != nil {
		return nil, err
	}

	settings, client, err := s.settingsAndClient(ctx, orgID)
	if err != nil {
		return nil, err
	}

	log := integration.NewSyncLog(orgID, integration.ProviderAcumatica, integration.SyncEntityPayment, integration.SyncDirectionOutbound, trigger, actor.UserPtr())
	log.EntityID = &payment.ID

	erpPayment, err := s.buildERPPayment(ctx, settings, payment, log)
	if err != nil {
		// Nothing was sent; the payment stays retryable once the cause is fixed
		payment.MarkSyncFailed(err.Error())
		return nil, s.recordPushFailure(ctx, payment, log, err)
	}

	if err := payment.MarkSyncPending(); err != nil {
		return nil, err
	}
	if err := s.paymentRepo.SaveWithLock(ctx, payment); err != nil {
		return nil, err
	}
	if err := s.syncLogRepo.Save(ctx, log); err != nil {
		return nil, err
	}

	var result *integration.ERPPaymentResult
	pushErr := s.withSession(ctx, client, func() error {
		var err error
		result, err = client.CreatePayment(ctx, erpPayment)
		return err
	})
	if pushErr == nil {
		pushErr = payment.MarkSynced(result.ReferenceNbr)
	}
	if pushErr != nil {
		payment.MarkSyncFailed(pushErr.Error())
		return nil, s.recordPushFailure(ctx, payment, log, pushErr)
	}

	if err := s.paymentRepo.SaveWithLock(ctx, payment); err != nil {
		// The ERP holds the payment; the reference must not be lost
		logger.Enrich(ctx, s.logger).Error("payment pushed but sync state not saved",
			zap.String("payment_id", payment.ID.String()),
			zap.String("erp_reference", result.ReferenceNbr),
			zap.Error(err))
		log.Fail(fmt.Errorf("pushed as %s but not saved: %w", result.ReferenceNbr, err))
		s.finishLog(ctx, log)
		return nil, err
	}
	log.RecordCreated()
	log.Complete()
	s.finishLog(ctx, log)
	s.publishAggregate(ctx, payment)

	logger.Enrich(ctx, s.logger).Info("payment synced to acumatica",
		zap.String("payment_id", payment.ID.String()),
		zap.String("payment_number", payment.PaymentNumber),
		zap.String("erp_reference", payment.ERPReference),
		zap.Int("attempt", payment.SyncAttempts))
	return toPaymentSyncResponse(payment, false, log), nil
}

func (s *SyncService) buildERPPayment(ctx context.Context, settings *integration.Settings, payment *finance.Payment, log *integration.SyncLog) (*integration.ERPPayment, error) {
	cust, err := s.customerRepo.FindByIDForOrg(ctx, payment.OrganizationID, payment.CustomerID)
	if err != nil {
		return nil, err
	}
	if !cust.IsLinkedToERP() {
		return nil, shared.NewDomainError("CUSTOMER_NOT_LINKED",
			fmt.Sprintf("Customer %s does not exist in Acumatica; sync customers first", cust.CustomerNumber))
	}

	ref := payment.ReferenceNumber
	if ref == "" {
		ref = payment.PaymentNumber
	}
	out := &integration.ERPPayment{
		CustomerID:      cust.ERPReference,
		PaymentMethod:   settings.ERPPaymentMethod(payment.Method),
		CashAccount:     settings.Config.CashAccount,
		Branch:          settings.Config.Branch,
		Amount:          payment.Amount,
		Currency:        payment.Currency,
		ApplicationDate: payment.PaymentDate,
		PaymentRef:      ref,
		Description:     fmt.Sprintf("ARFlow payment %s", payment.PaymentNumber),
	}

	apps := payment.ActiveApplications()
	if len(apps) == 0 {
		return out, nil
	}
	ids := make([]uuid.UUID, len(apps))
	for i := range apps {
		ids[i] = apps[i].DocumentID
	}
	docs, err := s.documentRepo.FindByIDsForOrg(ctx, payment.OrganizationID, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*finance.Document, len(docs))
	for _, d := range docs {
		byID[d.ID] = d
	}
	for _, app := range apps {
		doc, ok := byID[app.DocumentID]
		if !ok || doc.ERPReference == "" {
			// The ERP does not know local documents; the amount stays unapplied there
			label := app.DocumentID.String()
			if ok {
				label = doc.DocumentNumber
			}
			log.RecordSkipped(fmt.Sprintf("application to %s not sent: document is not in the ERP", label))
			continue
		}
		out.Documents = append(out.Documents, integration.ERPPaymentApplication{
			DocType:      doc.Type,
			ReferenceNbr: doc.ERPReference,
			AmountPaid:   app.Amount,
		})
	}
	return out, nil
}

func (s *SyncService) recordPushFailure(ctx context.Context, payment *finance.Payment, log *integration.SyncLog, cause error) error {
	if err := s.paymentRepo.SaveWithLock(ctx, payment); err != nil {
		logger.Enrich(ctx, s.logger).Error("failed to save payment sync failure",
			zap.String("payment_id", payment.ID.String()),
			zap.Error(err))
	}
	log.RecordFailed(fmt.Sprintf("payment %s: %v", payment.PaymentNumber, cause))
	log.Fail(cause)
	s.finishLog(ctx, log)
	s.publishAggregate(ctx, payment)

	logger.Enrich(ctx, s.logger).Warn("payment sync to acumatica failed",
		zap.String("payment_id", payment.ID.String()),
		zap.String("payment_number", payment.PaymentNumber),
		zap.Int("attempt", payment.SyncAttempts),
		zap.Error(cause))
	return cause
}

// RetryFailedPaymentSyncs queues the oldest FAILED payment pushes again.
// Payments that used up their attempts are skipped.
func (s *SyncService) RetryFailedPaymentSyncs(ctx context.Context, actor authz.Actor) (*RetryResponse, error) {
	if err := actor.RequireWriter(); err != nil {
		return nil, err
	}
	if s.dispatcher == nil {
		return nil, errors.New("sync: no dispatcher configured")
	}
	payments, err := s.paymentRepo.FindBySyncStatus(ctx, actor.OrganizationID, finance.SyncStatusFailed, s.retryBatch)
	if err != nil {
		return nil, err
	}

	resp := &RetryResponse{}
	for i := range payments {
		if s.maxAttempts > 0 && payments[i].SyncAttempts >= s.maxAttempts {
			resp.Exhausted++
			continue
		}
		if err := s.dispatcher.DispatchPaymentSync(ctx, actor.OrganizationID, payments[i].ID, integration.SyncTriggerRetry); err != nil {
			resp.Failed++
			logger.Enrich(ctx, s.logger).Warn("failed to queue payment sync retry",
				zap.String("payment_id", payments[i].ID.String()),
				zap.Error(err))
			continue
		}
		resp.Queued++
	}
	return resp, nil
}

// RetryAutoSyncFailures retries failed pushes of every organization that
// turned on automatic payment sync. It returns how many were queued.
func (s *SyncService) RetryAutoSyncFailures(ctx context.Context) (int, error) {
	enabled, err := s.settingsRepo.FindEnabled(ctx, integration.ProviderAcumatica)
	if err != nil {
		return 0, err
	}
	queued := 0
	for i := range enabled {
		if !enabled[i].Config.AutoSyncPayments {
			continue
		}
		resp, err := s.RetryFailedPaymentSyncs(ctx, authz.System(enabled[i].OrganizationID))
		if err != nil {
			s.logger.Warn("payment sync retry failed",
				zap.String("organization_id", enabled[i].OrganizationID.String()),
				zap.Error(err))
			continue
		}
		queued += resp.Queued
	}
	return queued, nil
}

// ---------------------------------------------------------------------------
// Scheduling
// ---------------------------------------------------------------------------

// FailStale closes sync logs left RUNNING and payment pushes left PENDING
// since before. A push interrupted by a shutdown becomes FAILED and is picked
// up by the next retry.
func (s *SyncService) FailStale(ctx context.Context, before time.Time) (int64, error) {
	logs, err := s.syncLogRepo.FailStale(ctx, before)
	if err != nil {
		return 0, err
	}
	pushes, err := s.paymentRepo.FailStaleSyncs(ctx, before)
	if err != nil {
		return logs, err
	}
	if pushes > 0 {
		s.logger.Warn("stale payment pushes marked failed", zap.Int64("count", pushes))
	}
	return logs + pushes, nil
}

// ScheduleDue queues customer and document pulls for every organization whose
// Acumatica auto-sync interval has elapsed. It returns how many were queued.
func (s *SyncService) ScheduleDue(ctx context.Context, now time.Time) (int, error) {
	if s.dispatcher == nil {
		return 0, errors.New("sync: no dispatcher configured")
	}
	enabled, err := s.settingsRepo.FindEnabled(ctx, integration.ProviderAcumatica)
	if err != nil {
		return 0, err
	}

	queued := 0
	for i := range enabled {
		settings := &enabled[i]
		if !settings.Config.AutoSyncDocuments {
			continue
		}
		for _, entity := range []integration.SyncEntity{integration.SyncEntityCustomers, integration.SyncEntityDocuments} {
			due, err := s.isDue(ctx, settings, entity, now)
			if err != nil {
				s.logger.Warn("cannot check sync schedule",
					zap.String("organization_id", settings.OrganizationID.String()),
					zap.String("entity", string(entity)),
					zap.Error(err))
				continue
			}
			if !due {
				continue
			}
			if err := s.dispatcher.DispatchEntitySync(ctx, settings.OrganizationID, entity, integration.SyncTriggerScheduler, false); err != nil {
				s.logger.Warn("failed to queue scheduled sync",
					zap.String("organization_id", settings.OrganizationID.String()),
					zap.String("entity", string(entity)),
					zap.Error(err))
				continue
			}
			queued++
		}
	}
	return queued, nil
}

func (s *SyncService) isDue(ctx context.Context, settings *integration.Settings, entity integration.SyncEntity, now time.Time) (bool, error) {
	latest, err := s.syncLogRepo.FindLatest(ctx, settings.OrganizationID, integration.ProviderAcumatica, entity)
	if shared.IsNotFound(err) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	if !latest.IsFinished() {
		return false, nil
	}
	return !latest.StartedAt.Add(settings.SyncInterval()).After(now), nil
}

// ---------------------------------------------------------------------------
// Logs
// ---------------------------------------------------------------------------

// ListLogs returns a page of sync logs
func (s *SyncService) ListLogs(ctx context.Context, actor authz.Actor, req ListSyncLogsRequest) (shared.Paginated[SyncLogResponse], error) {
	if err := actor.RequireStaff(); err != nil {
		return shared.Paginated[SyncLogResponse]{}, err
	}
	filter := req.toFilter()
	logs, total, err := s.syncLogRepo.FindAllForOrg(ctx, actor.OrganizationID, filter)
	if err != nil {
		return shared.Paginated[SyncLogResponse]{}, err
	}
	items := make([]SyncLogResponse, len(logs))
	for i := range logs {
		items[i] = ToSyncLogResponse(&logs[i])
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// GetLog returns one sync log
func (s *SyncService) GetLog(ctx context.Context, actor authz.Actor, id uuid.UUID) (*SyncLogResponse, error) {
	if err := actor.RequireStaff(); err != nil {
		return nil, err
	}
	log, err := s.syncLogRepo.FindByIDForOrg(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	resp := ToSyncLogResponse(log)
	return &resp, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *SyncService) settingsAndClient(ctx context.Context, orgID uuid.UUID) (*integration.Settings, integration.ERPClient, error) {
	settings, err := s.settingsRepo.FindByProvider(ctx, orgID, integration.ProviderAcumatica)
	if shared.IsNotFound(err) {
		return nil, nil, integration.ErrERPNotConfigured
	}
	if err != nil {
		return nil, nil, err
	}
	if !settings.Enabled {
		return nil, nil, fmt.Errorf("%w: acumatica integration is disabled", integration.ErrERPNotConfigured)
	}
	creds, err := settings.Credentials(s.cipher)
	if err != nil {
		return nil, nil, err
	}
	client, err := s.erp.New(settings.Config, creds)
	if err != nil {
		return nil, nil, err
	}
	return settings, client, nil
}

func (s *SyncService) client(ctx context.Context, orgID uuid.UUID) (integration.ERPClient, error) {
	_, client, err := s.settingsAndClient(ctx, orgID)
	return client, err
}

// withSession logs in, runs fn and always logs out
func (s *SyncService) withSession(ctx context.Context, client integration.ERPClient, fn func() error) error {
	if err := client.Login(ctx); err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sessionCloseDelay)
		defer cancel()
		if err := client.Logout(closeCtx); err != nil {
			s.logger.Warn("acumatica logout failed", zap.Error(err))
		}
	}()
	return fn()
}

func (s *SyncService) acquire(ctx context.Context, key string) (func(), error) {
	if s.lock == nil {
		return func() {}, nil
	}
	token, err := s.lock.Acquire(ctx, key, s.lockConfig.SyncTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire sync lock: %w", err)
	}
	if token == "" {
		return nil, shared.ErrSyncInProgress
	}
	return func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.lock.Release(releaseCtx, key, token); err != nil {
			s.logger.Warn("Failed to release sync lock", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

// finishLog saves a finished log and announces it
func (s *SyncService) finishLog(ctx context.Context, log *integration.SyncLog) {
	saveCtx := context.WithoutCancel(ctx)
	if err := s.syncLogRepo.Save(saveCtx, log); err != nil {
		logger.Enrich(ctx, s.logger).Error("failed to save sync log",
			zap.String("sync_log_id", log.ID.String()),
			zap.Error(err))
	}
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(saveCtx, integration.NewSyncCompletedEvent(log)); err != nil {
		s.logger.Warn("Failed to publish sync event", zap.Error(err))
	}
}

func (s *SyncService) publishAggregate(ctx context.Context, agg shared.AggregateRoot) {
	if err := shared.PublishAndClear(ctx, s.publisher, agg); err != nil {
		s.logger.Warn("Failed to publish events", zap.Error(err))
	}
}
