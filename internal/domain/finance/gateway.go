package finance

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Gateway errors
// ---------------------------------------------------------------------------

var (
	ErrGatewayNotConfigured   = errors.New("payment: gateway not configured")
	ErrGatewayNotEnabled      = errors.New("payment: gateway not enabled")
	ErrGatewayDeclined        = errors.New("payment: card declined")
	ErrGatewayUnavailable     = errors.New("payment: gateway temporarily unavailable")
	ErrGatewayRequestFailed   = errors.New("payment: gateway request failed")
	ErrGatewayInvalidResponse = errors.New("payment: invalid gateway response")
	ErrGatewayInvalidCallback = errors.New("payment: invalid callback signature")
	ErrRefundNotAllowed       = errors.New("refund: refund not allowed for this transaction")
	ErrAlreadyRefunded        = errors.New("refund: transaction already refunded")
)

// ---------------------------------------------------------------------------
// GatewayType identifies the card processor that captured a payment
type GatewayType string

const (
	GatewayTypeNone         GatewayType = "NONE"
	GatewayTypeStripe       GatewayType = "STRIPE"
	GatewayTypeAuthorizeNet GatewayType = "AUTHORIZE_NET"
)

// IsValid checks if the gateway type is valid
func (g GatewayType) IsValid() bool {
	switch g {
	case GatewayTypeNone, GatewayTypeStripe, GatewayTypeAuthorizeNet:
		return true
	}
	return false
}

// String returns the string representation of GatewayType
func (g GatewayType) String() string {
	return string(g)
}

// ChargeRequest is a one-shot authorize-and-capture of a tokenized card
type ChargeRequest struct {
	OrganizationID uuid.UUID
	PaymentID      uuid.UUID
	PaymentNumber  string
	Amount         decimal.Decimal
	Currency       string
	// PaymentToken is a Stripe PaymentMethod ID or an Accept.js opaque data
	// value. Raw card numbers never reach the server.
	PaymentToken      string
	PaymentDescriptor string // Accept.js dataDescriptor, unused by Stripe
	Description       string
	CustomerEmail     string
	IdempotencyKey    string
	Metadata          map[string]string
}

// ChargeResult is the outcome of a charge
type ChargeResult struct {
	TransactionID  string
	Approved       bool
	CardBrand      string
	CardLast4      string
	FailureCode    string
	FailureMessage string
}

// RefundRequest refunds a settled transaction in full or in part
type RefundRequest struct {
	TransactionID string
	Amount        decimal.Decimal
	Currency      string
	CardLast4     string // Authorize.net requires the masked card on refunds
	Reason        string
}

// RefundResult is the outcome of a refund
type RefundResult struct {
	RefundID string
	Status   string
}

// PaymentGateway is implemented by each card processor adapter
type PaymentGateway interface {
	// GatewayType returns the processor this adapter talks to
	GatewayType() GatewayType

	// Charge captures the amount. A declined card returns a result with
	// Approved=false and an error wrapping ErrGatewayDeclined.
	Charge(ctx context.Context, req *ChargeRequest) (*ChargeResult, error)

	// Refund returns money for a captured transaction. Returns an error
	// wrapping ErrRefundNotAllowed when the transaction must be voided instead,
	// or ErrAlreadyRefunded when the gateway refunded it earlier.
	Refund(ctx context.Context, req *RefundRequest) (*RefundResult, error)

	// Void cancels an unsettled transaction
	Void(ctx context.Context, transactionID string) error

	// TestConnection verifies the credentials without moving money
	TestConnection(ctx context.Context) error
}

// GatewayEventKind is what a verified gateway webhook reports
type GatewayEventKind string

const (
	GatewayEventChargeSucceeded GatewayEventKind = "CHARGE_SUCCEEDED"
	GatewayEventChargeFailed    GatewayEventKind = "CHARGE_FAILED"
	GatewayEventRefunded        GatewayEventKind = "REFUNDED"
	GatewayEventPartialRefund   GatewayEventKind = "PARTIAL_REFUND"
	GatewayEventIgnored         GatewayEventKind = "IGNORED"
)

// GatewayWebhookEvent is a signature-verified notification from a gateway
type GatewayWebhookEvent struct {
	EventID string
	Kind    GatewayEventKind
	RawType string
	// PaymentID is the payment named in the charge metadata. It is set even
	// when the charge response never reached us.
	PaymentID      uuid.UUID
	TransactionID  string
	RefundID       string
	FailureMessage string
	CardBrand      string
	CardLast4      string
}
