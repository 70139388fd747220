package payment

import (
	"encoding/json"
	"fmt"

	"github.com/arflow/backend/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
)

// StripeWebhookParser verifies Stripe webhook signatures and extracts the
// payment outcome
type StripeWebhookParser struct{}

// NewStripeWebhookParser creates a new StripeWebhookParser
func NewStripeWebhookParser() *StripeWebhookParser {
	return &StripeWebhookParser{}
}

// Parse verifies payload against the Stripe-Signature header
func (StripeWebhookParser) Parse(payload []byte, signature, secret string) (*finance.GatewayWebhookEvent, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: webhook secret not configured", finance.ErrGatewayInvalidCallback)
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", finance.ErrGatewayInvalidCallback, err)
	}

	out := &finance.GatewayWebhookEvent{
		EventID: event.ID,
		Kind:    finance.GatewayEventIgnored,
		RawType: string(event.Type),
	}
	if event.Data == nil {
		return out, nil
	}

	switch event.Type {
	case "payment_intent.succeeded", "payment_intent.payment_failed":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("%w: %v", finance.ErrGatewayInvalidResponse, err)
		}
		out.TransactionID = pi.ID
		out.PaymentID = metadataPaymentID(pi.Metadata)
		if event.Type == "payment_intent.succeeded" {
			out.Kind = finance.GatewayEventChargeSucceeded
			if ch := pi.LatestCharge; ch != nil && ch.PaymentMethodDetails != nil && ch.PaymentMethodDetails.Card != nil {
				out.CardBrand = string(ch.PaymentMethodDetails.Card.Brand)
				out.CardLast4 = ch.PaymentMethodDetails.Card.Last4
			}
		} else {
			out.Kind = finance.GatewayEventChargeFailed
			if pi.LastPaymentError != nil {
				out.FailureMessage = pi.LastPaymentError.Msg
			}
		}
	case "charge.refunded":
		var ch stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
			return nil, fmt.Errorf("%w: %v", finance.ErrGatewayInvalidResponse, err)
		}
		// Stripe sends charge.refunded for every refund, partial ones included
		out.Kind = finance.GatewayEventPartialRefund
		if ch.Refunded || (ch.Amount > 0 && ch.AmountRefunded >= ch.Amount) {
			out.Kind = finance.GatewayEventRefunded
		}
		if ch.PaymentIntent != nil {
			out.TransactionID = ch.PaymentIntent.ID
		}
		out.PaymentID = metadataPaymentID(ch.Metadata)
		if ch.Refunds != nil && len(ch.Refunds.Data) > 0 {
			out.RefundID = ch.Refunds.Data[0].ID
		}
	}
	return out, nil
}

// metadataPaymentID reads the payment_id the charge was created with
func metadataPaymentID(metadata map[string]string) uuid.UUID {
	id, err := uuid.Parse(metadata["payment_id"])
	if err != nil {
		return uuid.Nil
	}
	return id
}
