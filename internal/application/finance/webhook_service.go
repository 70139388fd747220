package finance

import (
	"context"
	"fmt"

	"github.com/arflow/backend/internal/domain/finance"
	"github.com/arflow/backend/internal/domain/integration"
	"github.com/arflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WebhookParser verifies and decodes a gateway notification
type WebhookParser interface {
	Parse(payload []byte, signature, secret string) (*finance.GatewayWebhookEvent, error)
}

// WebhookService reconciles payments with gateway notifications. It completes
// payments whose charge outcome never reached us and records refunds made in
// the gateway's dashboard.
type WebhookService struct {
	paymentRepo finance.PaymentRepository
	txScope     TransactionScope
	gateways    GatewayProvider
	parser      WebhookParser
	lock        shared.SyncLock
	lockConfig  shared.LockConfig
	publisher   shared.EventPublisher
	logger      *zap.Logger
}

// NewWebhookService creates a new WebhookService
func NewWebhookService(
	paymentRepo finance.PaymentRepository,
	txScope TransactionScope,
	gateways GatewayProvider,
	parser WebhookParser,
	lock shared.SyncLock,
	lockConfig shared.LockConfig,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *WebhookService {
	return &WebhookService{
		paymentRepo: paymentRepo,
		txScope:     txScope,
		gateways:    gateways,
		parser:      parser,
		lock:        lock,
		lockConfig:  lockConfig,
		publisher:   publisher,
		logger:      logger,
	}
}

// HandleStripe processes one Stripe webhook delivery for orgID. Redelivered
// events are acknowledged without being processed again.
func (s *WebhookService) HandleStripe(ctx context.Context, orgID uuid.UUID, payload []byte, signature string) error {
	secret, err := s.gateways.WebhookSecret(ctx, orgID, integration.ProviderStripe)
	if err != nil {
		return err
	}
	event, err := s.parser.Parse(payload, signature, secret)
	if err != nil {
		s.logger.Warn("Rejected Stripe webhook",
			zap.String("organization_id", orgID.String()),
			zap.Error(err))
		return err
	}
	if event.Kind == finance.GatewayEventIgnored {
		return nil
	}

	key := fmt.Sprintf("webhook:%s:%s:%s", finance.GatewayTypeStripe, orgID, event.EventID)
	token, err := s.lock.Acquire(ctx, key, s.lockConfig.SubmissionTTL)
	if err != nil {
		return err
	}
	if token == "" {
		s.logger.Info("Stripe webhook already processed", zap.String("event_id", event.EventID))
		return nil
	}

	if err := s.apply(ctx, orgID, finance.GatewayTypeStripe, event); err != nil {
		// Free the key so the gateway's retry is processed
		if relErr := s.lock.Release(context.WithoutCancel(ctx), key, token); relErr != nil {
			s.logger.Warn("Failed to release webhook key", zap.String("key", key), zap.Error(relErr))
		}
		return err
	}
	return nil
}

func (s *WebhookService) apply(ctx context.Context, orgID uuid.UUID, gateway finance.GatewayType, event *finance.GatewayWebhookEvent) error {
	log := s.logger.With(
		zap.String("organization_id", orgID.String()),
		zap.String("event_id", event.EventID),
		zap.String("event_type", event.RawType),
		zap.String("transaction_id", event.TransactionID))

	if event.Kind == finance.GatewayEventPartialRefund {
		// Only full refunds cancel a payment; partial ones are settled by staff
		log.Warn("Partial refund made at gateway, payment left unchanged",
			zap.String("refund_id", event.RefundID))
		return nil
	}

	payment, err := s.findPayment(ctx, orgID, gateway, event)
	if shared.IsNotFound(err) {
		log.Info("Webhook names no known payment")
		return nil
	}
	if err != nil {
		return err
	}

	switch event.Kind {
	case finance.GatewayEventChargeSucceeded:
		if payment.Status != finance.PaymentStatusPending {
			return nil
		}
		if err := payment.MarkCompleted(event.TransactionID, event.CardBrand, event.CardLast4); err != nil {
			return err
		}
		if err := s.paymentRepo.SaveWithLock(ctx, payment); err != nil {
			return err
		}
		s.publish(ctx, payment)
		log.Info("Pending payment completed by webhook",
			zap.String("payment_id", payment.ID.String()),
			zap.String("unapplied", payment.UnappliedAmount().String()))

	case finance.GatewayEventChargeFailed:
		if payment.Status != finance.PaymentStatusPending {
			return nil
		}
		if err := payment.MarkFailed(event.TransactionID, event.FailureMessage); err != nil {
			return err
		}
		if err := s.paymentRepo.SaveWithLock(ctx, payment); err != nil {
			return err
		}
		s.publish(ctx, payment)
		log.Info("Pending payment failed by webhook", zap.String("payment_id", payment.ID.String()))

	case finance.GatewayEventRefunded:
		if payment.Status != finance.PaymentStatusCompleted {
			return nil
		}
		reversed, err := payment.MarkRefunded(event.RefundID, "Refunded at gateway")
		if err != nil {
			return err
		}
		var touched []*finance.Document
		err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			var txErr error
			touched, txErr = reverseInScope(ctx, repos, payment, reversed)
			return txErr
		})
		if err != nil {
			return err
		}
		s.publish(ctx, payment, touched...)
		log.Info("Payment refunded by webhook", zap.String("payment_id", payment.ID.String()))
	}
	return nil
}

// findPayment resolves the event's payment by the ID in the charge metadata,
// falling back to the gateway transaction
func (s *WebhookService) findPayment(ctx context.Context, orgID uuid.UUID, gateway finance.GatewayType, event *finance.GatewayWebhookEvent) (*finance.Payment, error) {
	if event.PaymentID != uuid.Nil {
		payment, err := s.paymentRepo.FindByIDForOrg(ctx, orgID, event.PaymentID)
		if err == nil && payment.Gateway == gateway {
			return payment, nil
		}
		if err != nil && !shared.IsNotFound(err) {
			return nil, err
		}
	}
	if event.TransactionID == "" {
		return nil, shared.ErrNotFound
	}
	return s.paymentRepo.FindByGatewayTransaction(ctx, orgID, gateway, event.TransactionID)
}

func (s *WebhookService) publish(ctx context.Context, payment *finance.Payment, docs ...*finance.Document) {
	if err := shared.PublishAndClear(ctx, s.publisher, payment); err != nil {
		s.logger.Warn("Failed to publish payment events", zap.Error(err))
	}
	for _, doc := range docs {
		if err := shared.PublishAndClear(ctx, s.publisher, doc); err != nil {
			s.logger.Warn("Failed to publish document events", zap.Error(err))
		}
	}
}
