package integration

import (
	"context"

	"github.com/arflow/backend/internal/domain/finance"
	"github.com/arflow/backend/internal/domain/integration"
	"github.com/arflow/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// PaymentSyncHandler queues completed payments for Acumatica when the
// organization turned on automatic payment sync
type PaymentSyncHandler struct {
	settingsRepo integration.SettingsRepository
	dispatcher   SyncDispatcher
	logger       *zap.Logger
}

// NewPaymentSyncHandler creates a new PaymentSyncHandler
func NewPaymentSyncHandler(settingsRepo integration.SettingsRepository, dispatcher SyncDispatcher, logger *zap.Logger) *PaymentSyncHandler {
	return &PaymentSyncHandler{settingsRepo: settingsRepo, dispatcher: dispatcher, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *PaymentSyncHandler) EventTypes() []string {
	return []string{finance.EventTypePaymentCreated}
}

// Handle dispatches the push. Organizations without Acumatica are ignored.
func (h *PaymentSyncHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(*finance.PaymentCreatedEvent)
	if !ok {
		return nil
	}
	settings, err := h.settingsRepo.FindByProvider(ctx, e.OrganizationID(), integration.ProviderAcumatica)
	if shared.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if !settings.Enabled || !settings.Config.AutoSyncPayments {
		return nil
	}

	h.logger.Debug("queueing payment for acumatica",
		zap.String("payment_id", e.AggregateID().String()),
		zap.String("payment_number", e.PaymentNumber))
	return h.dispatcher.DispatchPaymentSync(ctx, e.OrganizationID(), e.AggregateID(), integration.SyncTriggerAuto)
}

var _ shared.EventHandler = (*PaymentSyncHandler)(nil)
