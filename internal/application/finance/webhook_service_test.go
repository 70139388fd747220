package finance

import (
	"context"
	"fmt"
	"testing"

	"github.com/arflow/backend/internal/domain/finance"
	"github.com/arflow/backend/internal/domain/identity"
	"github.com/arflow/backend/internal/domain/integration"
	"github.com/arflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeWebhookParser struct {
	event  *finance.GatewayWebhookEvent
	err    error
	secret string
}

func (p *fakeWebhookParser) Parse(_ []byte, _ string, secret string) (*finance.GatewayWebhookEvent, error) {
	p.secret = secret
	return p.event, p.err
}

func newWebhookFixture(t *testing.T, parser *fakeWebhookParser) (*paymentFixture, *WebhookService) {
	f := newPaymentFixture(t)
	f.gateways.On("WebhookSecret", mock.Anything, f.orgID, integration.ProviderStripe).Return("whsec_test", nil).Maybe()
	svc := NewWebhookService(f.payments, &snapshotScope{docs: f.docs, payments: f.payments},
		f.gateways, parser, f.lock, shared.DefaultLockConfig(), f.publisher, zap.NewNop())
	return f, svc
}

// pendingCardPayment stores a PENDING Stripe payment as left by a charge
// whose outcome never reached the service
func pendingCardPayment(t *testing.T, f *paymentFixture, transactionID string) *finance.Payment {
	t.Helper()
	p, err := finance.NewCardPayment(f.orgID, finance.NewPaymentParams{
		CustomerID: f.cust.ID,
		Amount:     dec("40.00"),
	}, finance.GatewayTypeStripe)
	require.NoError(t, err)
	p.GatewayTransactionID = transactionID
	require.NoError(t, f.payments.SaveWithLock(context.Background(), p))
	return p
}

func TestWebhookService_HandleStripe(t *testing.T) {
	ctx := context.Background()

	t.Run("completes a pending payment", func(t *testing.T) {
		parser := &fakeWebhookParser{event: &finance.GatewayWebhookEvent{
			EventID:       "evt_1",
			Kind:          finance.GatewayEventChargeSucceeded,
			RawType:       "payment_intent.succeeded",
			TransactionID: "pi_pending",
			CardBrand:     "visa",
			CardLast4:     "4242",
		}}
		f, svc := newWebhookFixture(t, parser)
		p := pendingCardPayment(t, f, "pi_pending")

		require.NoError(t, svc.HandleStripe(ctx, f.orgID, []byte(`{}`), "sig"))

		stored := f.payments.get(p.ID)
		assert.Equal(t, finance.PaymentStatusCompleted, stored.Status)
		assert.Equal(t, "4242", stored.CardLast4)
		assert.Equal(t, "whsec_test", parser.secret)
		assert.Contains(t, f.publisher.types(), finance.EventTypePaymentCreated)
	})

	t.Run("settles a charge whose response was lost", func(t *testing.T) {
		parser := &fakeWebhookParser{}
		f, svc := newWebhookFixture(t, parser)
		f.gateways.On("Resolve", mock.Anything, f.orgID, finance.GatewayType("")).Return(f.gateway, nil)
		f.gateway.On("Charge", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("%w: connection reset", finance.ErrGatewayUnavailable))

		_, err := f.svc.ProcessCreditCardPayment(ctx, staffActor(f.orgID, identity.RoleManager), ProcessCardPaymentRequest{
			CustomerID:   f.cust.ID,
			Amount:       dec("80.00"),
			PaymentToken: "pm_card_visa",
		})
		require.ErrorIs(t, err, finance.ErrGatewayUnavailable)

		payments := f.payments.all()
		require.Len(t, payments, 1)
		lost := payments[0]
		require.Equal(t, finance.PaymentStatusPending, lost.Status)
		require.Empty(t, lost.GatewayTransactionID)

		// The charge went through; Stripe reports it with the payment ID from
		// the charge metadata
		var charge *finance.ChargeRequest
		for _, call := range f.gateway.Calls {
			if call.Method == "Charge" {
				charge = call.Arguments.Get(1).(*finance.ChargeRequest)
			}
		}
		require.NotNil(t, charge)
		assert.Equal(t, lost.ID, charge.PaymentID)
		assert.Equal(t, lost.ID.String(), charge.Metadata["payment_id"])
		parser.event = &finance.GatewayWebhookEvent{
			EventID:       "evt_lost",
			Kind:          finance.GatewayEventChargeSucceeded,
			RawType:       "payment_intent.succeeded",
			PaymentID:     lost.ID,
			TransactionID: "pi_real",
			CardLast4:     "4242",
		}
		require.NoError(t, svc.HandleStripe(ctx, f.orgID, nil, "sig"))

		stored := f.payments.get(lost.ID)
		assert.Equal(t, finance.PaymentStatusCompleted, stored.Status)
		assert.Equal(t, "pi_real", stored.GatewayTransactionID)
		assert.True(t, dec("80").Equal(stored.UnappliedAmount()))
	})

	t.Run("a payment ID from another gateway is not trusted", func(t *testing.T) {
		f, svc := newWebhookFixture(t, &fakeWebhookParser{})
		manual := f.storedCompletedPayment(t, "10.00", "10.00")

		svc.parser = &fakeWebhookParser{event: &finance.GatewayWebhookEvent{
			EventID:   "evt_manual",
			Kind:      finance.GatewayEventRefunded,
			PaymentID: manual.ID,
		}}
		require.NoError(t, svc.HandleStripe(ctx, f.orgID, nil, "sig"))
		assert.Equal(t, finance.PaymentStatusCompleted, f.payments.get(manual.ID).Status)
	})

	t.Run("fails a pending payment", func(t *testing.T) {
		parser := &fakeWebhookParser{event: &finance.GatewayWebhookEvent{
			EventID:        "evt_2",
			Kind:           finance.GatewayEventChargeFailed,
			TransactionID:  "pi_fail",
			FailureMessage: "insufficient funds",
		}}
		f, svc := newWebhookFixture(t, parser)
		p := pendingCardPayment(t, f, "pi_fail")

		require.NoError(t, svc.HandleStripe(ctx, f.orgID, nil, "sig"))
		stored := f.payments.get(p.ID)
		assert.Equal(t, finance.PaymentStatusFailed, stored.Status)
		assert.Equal(t, "insufficient funds", stored.FailureReason)
	})

	t.Run("records a refund made in the dashboard", func(t *testing.T) {
		parser := &fakeWebhookParser{}
		f, svc := newWebhookFixture(t, parser)
		f.gateways.On("Resolve", mock.Anything, f.orgID, finance.GatewayType("")).Return(f.gateway, nil)
		f.gateway.On("Charge", mock.Anything, mock.Anything).Return(&finance.ChargeResult{TransactionID: "pi_paid", Approved: true}, nil)

		paid, err := f.svc.ProcessCreditCardPayment(ctx, staffActor(f.orgID, identity.RoleManager), ProcessCardPaymentRequest{
			CustomerID:   f.cust.ID,
			Amount:       dec("100.00"),
			PaymentToken: "pm_card_visa",
			Applications: []ApplicationRequest{{DocumentID: f.inv1.ID, Amount: dec("100.00")}},
		})
		require.NoError(t, err)

		parser.event = &finance.GatewayWebhookEvent{
			EventID:       "evt_3",
			Kind:          finance.GatewayEventRefunded,
			TransactionID: "pi_paid",
			RefundID:      "re_9",
		}
		require.NoError(t, svc.HandleStripe(ctx, f.orgID, nil, "sig"))

		stored := f.payments.get(paid.ID)
		assert.Equal(t, finance.PaymentStatusRefunded, stored.Status)
		assert.Equal(t, "re_9", stored.RefundID)
		assert.True(t, dec("100").Equal(f.docs.get(f.inv1.ID).BalanceDue))
	})

	t.Run("a partial refund leaves the payment and its documents alone", func(t *testing.T) {
		parser := &fakeWebhookParser{}
		f, svc := newWebhookFixture(t, parser)
		f.gateways.On("Resolve", mock.Anything, f.orgID, finance.GatewayType("")).Return(f.gateway, nil)
		f.gateway.On("Charge", mock.Anything, mock.Anything).Return(&finance.ChargeResult{TransactionID: "pi_part", Approved: true}, nil)

		paid, err := f.svc.ProcessCreditCardPayment(ctx, staffActor(f.orgID, identity.RoleManager), ProcessCardPaymentRequest{
			CustomerID:   f.cust.ID,
			Amount:       dec("100.00"),
			PaymentToken: "pm_card_visa",
			Applications: []ApplicationRequest{{DocumentID: f.inv1.ID, Amount: dec("100.00")}},
		})
		require.NoError(t, err)

		parser.event = &finance.GatewayWebhookEvent{
			EventID:       "evt_part",
			Kind:          finance.GatewayEventPartialRefund,
			RawType:       "charge.refunded",
			TransactionID: "pi_part",
			RefundID:      "re_part",
		}
		saves := f.payments.saves
		require.NoError(t, svc.HandleStripe(ctx, f.orgID, nil, "sig"))

		stored := f.payments.get(paid.ID)
		assert.Equal(t, finance.PaymentStatusCompleted, stored.Status)
		assert.Empty(t, stored.RefundID)
		assert.Equal(t, saves, f.payments.saves)
		assert.True(t, f.docs.get(f.inv1.ID).BalanceDue.IsZero())
	})

	t.Run("a redelivered event is processed once", func(t *testing.T) {
		parser := &fakeWebhookParser{event: &finance.GatewayWebhookEvent{
			EventID:       "evt_4",
			Kind:          finance.GatewayEventChargeSucceeded,
			TransactionID: "pi_twice",
		}}
		f, svc := newWebhookFixture(t, parser)
		pendingCardPayment(t, f, "pi_twice")

		require.NoError(t, svc.HandleStripe(ctx, f.orgID, nil, "sig"))
		saves := f.payments.saves
		require.NoError(t, svc.HandleStripe(ctx, f.orgID, nil, "sig"))
		assert.Equal(t, saves, f.payments.saves)
	})

	t.Run("unknown transactions are acknowledged", func(t *testing.T) {
		parser := &fakeWebhookParser{event: &finance.GatewayWebhookEvent{
			EventID:       "evt_5",
			Kind:          finance.GatewayEventChargeSucceeded,
			TransactionID: "pi_unknown",
		}}
		f, svc := newWebhookFixture(t, parser)
		assert.NoError(t, svc.HandleStripe(ctx, f.orgID, nil, "sig"))
	})

	t.Run("bad signatures are rejected", func(t *testing.T) {
		parser := &fakeWebhookParser{err: fmt.Errorf("%w: bad signature", finance.ErrGatewayInvalidCallback)}
		f, svc := newWebhookFixture(t, parser)
		err := svc.HandleStripe(ctx, f.orgID, nil, "forged")
		assert.ErrorIs(t, err, finance.ErrGatewayInvalidCallback)
	})

	t.Run("organizations without stripe are rejected", func(t *testing.T) {
		parser := &fakeWebhookParser{}
		f, svc := newWebhookFixture(t, parser)
		orgID := uuid.New()
		f.gateways.On("WebhookSecret", mock.Anything, orgID, integration.ProviderStripe).
			Return("", fmt.Errorf("%w: STRIPE", finance.ErrGatewayNotConfigured))

		err := svc.HandleStripe(ctx, orgID, nil, "sig")
		assert.ErrorIs(t, err, finance.ErrGatewayNotConfigured)
	})
}
