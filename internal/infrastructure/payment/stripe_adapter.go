package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/arflow/backend/internal/domain/finance"
	"github.com/arflow/backend/internal/infrastructure/logger"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"go.uber.org/zap"
)

// StripeAdapter implements finance.PaymentGateway with PaymentIntents. Each
// adapter holds its own client so organizations never share a key.
type StripeAdapter struct {
	config *StripeConfig
	client *client.API
	logger *zap.Logger
}

// NewStripeAdapter creates a new Stripe adapter
func NewStripeAdapter(config *StripeConfig, logger *zap.Logger) (*StripeAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	sc := &client.API{}
	sc.Init(config.SecretKey, config.Backends)
	return &StripeAdapter{config: config, client: sc, logger: logger}, nil
}

// GatewayType returns the gateway type
func (a *StripeAdapter) GatewayType() finance.GatewayType {
	return finance.GatewayTypeStripe
}

// Charge creates and confirms a PaymentIntent for a PaymentMethod token
func (a *StripeAdapter) Charge(ctx context.Context, req *finance.ChargeRequest) (*finance.ChargeResult, error) {
	log := logger.Enrich(ctx, a.logger).With(zap.String("payment_number", req.PaymentNumber))
	if req.PaymentToken == "" {
		return nil, fmt.Errorf("%w: missing payment method", finance.ErrGatewayRequestFailed)
	}

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(toMinorUnits(req.Amount, req.Currency)),
		Currency:      stripe.String(strings.ToLower(req.Currency)),
		PaymentMethod: stripe.String(req.PaymentToken),
		Confirm:       stripe.Bool(true),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	if req.CustomerEmail != "" {
		params.ReceiptEmail = stripe.String(req.CustomerEmail)
	}
	params.Context = ctx
	params.AddExpand("latest_charge")
	params.AddMetadata("organization_id", req.OrganizationID.String())
	params.AddMetadata("payment_id", req.PaymentID.String())
	params.AddMetadata("payment_number", req.PaymentNumber)
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	pi, err := a.client.PaymentIntents.New(params)
	if err != nil {
		result, mapped := mapStripeChargeError(err)
		log.Warn("stripe charge failed", zap.Error(err))
		return result, mapped
	}

	result := &finance.ChargeResult{TransactionID: pi.ID}
	if ch := pi.LatestCharge; ch != nil && ch.PaymentMethodDetails != nil && ch.PaymentMethodDetails.Card != nil {
		result.CardBrand = string(ch.PaymentMethodDetails.Card.Brand)
		result.CardLast4 = ch.PaymentMethodDetails.Card.Last4
	}

	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		result.Approved = true
		log.Info("stripe charge succeeded", zap.String("payment_intent", pi.ID))
		return result, nil
	case stripe.PaymentIntentStatusRequiresAction:
		result.FailureCode = "authentication_required"
		result.FailureMessage = "The card requires additional authentication"
	default:
		result.FailureCode = string(pi.Status)
		result.FailureMessage = "The payment was not completed"
		if pi.LastPaymentError != nil {
			result.FailureCode = string(pi.LastPaymentError.Code)
			result.FailureMessage = pi.LastPaymentError.Msg
		}
	}
	log.Warn("stripe charge not approved",
		zap.String("payment_intent", pi.ID),
		zap.String("status", string(pi.Status)))
	return result, fmt.Errorf("%w: %s", finance.ErrGatewayDeclined, result.FailureMessage)
}

// Refund refunds a PaymentIntent in full or in part
func (a *StripeAdapter) Refund(ctx context.Context, req *finance.RefundRequest) (*finance.RefundResult, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.TransactionID),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	if req.Amount.IsPositive() {
		params.Amount = stripe.Int64(toMinorUnits(req.Amount, req.Currency))
	}
	if req.Reason != "" {
		params.AddMetadata("reason", req.Reason)
	}
	params.Context = ctx

	refund, err := a.client.Refunds.New(params)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) && se.Code == stripe.ErrorCodeChargeAlreadyRefunded {
			return nil, fmt.Errorf("%w: %s", finance.ErrAlreadyRefunded, se.Msg)
		}
		return nil, mapStripeError("refund", err)
	}
	logger.Enrich(ctx, a.logger).Info("stripe refund created",
		zap.String("payment_intent", req.TransactionID),
		zap.String("refund_id", refund.ID))
	return &finance.RefundResult{RefundID: refund.ID, Status: string(refund.Status)}, nil
}

// Void cancels a PaymentIntent that has not been captured
func (a *StripeAdapter) Void(ctx context.Context, transactionID string) error {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	if _, err := a.client.PaymentIntents.Cancel(transactionID, params); err != nil {
		return mapStripeError("cancel", err)
	}
	return nil
}

// TestConnection fetches the account balance
func (a *StripeAdapter) TestConnection(ctx context.Context) error {
	params := &stripe.BalanceParams{}
	params.Context = ctx
	if _, err := a.client.Balance.Get(params); err != nil {
		return mapStripeError("balance", err)
	}
	return nil
}

// mapStripeChargeError turns a card error into a declined result
func mapStripeChargeError(err error) (*finance.ChargeResult, error) {
	var se *stripe.Error
	if errors.As(err, &se) && se.Type == stripe.ErrorTypeCard {
		result := &finance.ChargeResult{
			FailureCode:    string(se.Code),
			FailureMessage: se.Msg,
		}
		if se.DeclineCode != "" {
			result.FailureCode = string(se.DeclineCode)
		}
		if se.PaymentIntent != nil {
			result.TransactionID = se.PaymentIntent.ID
		}
		return result, fmt.Errorf("%w: %s", finance.ErrGatewayDeclined, se.Msg)
	}
	return nil, mapStripeError("charge", err)
}

func mapStripeError(op string, err error) error {
	var se *stripe.Error
	if !errors.As(err, &se) {
		return fmt.Errorf("%w: stripe %s: %v", finance.ErrGatewayUnavailable, op, err)
	}
	if se.HTTPStatusCode >= http.StatusInternalServerError || se.HTTPStatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: stripe %s: %s", finance.ErrGatewayUnavailable, op, se.Msg)
	}
	return fmt.Errorf("%w: stripe %s: %s", finance.ErrGatewayRequestFailed, op, se.Msg)
}

var _ finance.PaymentGateway = (*StripeAdapter)(nil)
