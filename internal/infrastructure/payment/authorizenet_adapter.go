package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/arflow/backend/internal/domain/finance"
	"github.com/arflow/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

const defaultAcceptDescriptor = "COMMON.ACCEPT.INAPP.PAYMENT"

// AuthorizeNetAdapter implements finance.PaymentGateway against the
// Authorize.net JSON API. Cards arrive as Accept.js opaque data.
type AuthorizeNetAdapter struct {
	config     *AuthorizeNetConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewAuthorizeNetAdapter creates a new Authorize.net adapter
func NewAuthorizeNetAdapter(config *AuthorizeNetConfig, logger *zap.Logger) (*AuthorizeNetAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &AuthorizeNetAdapter{
		config:     config,
		httpClient: config.httpClient(),
		logger:     logger,
	}, nil
}

// GatewayType returns the gateway type
func (a *AuthorizeNetAdapter) GatewayType() finance.GatewayType {
	return finance.GatewayTypeAuthorizeNet
}

// Charge runs an authCaptureTransaction
func (a *AuthorizeNetAdapter) Charge(ctx context.Context, req *finance.ChargeRequest) (*finance.ChargeResult, error) {
	if req.PaymentToken == "" {
		return nil, fmt.Errorf("%w: missing payment nonce", finance.ErrGatewayRequestFailed)
	}
	descriptor := req.PaymentDescriptor
	if descriptor == "" {
		descriptor = defaultAcceptDescriptor
	}

	txn := anetTransactionRequest{
		TransactionType: "authCaptureTransaction",
		Amount:          req.Amount.StringFixed(2),
		CurrencyCode:    strings.ToUpper(req.Currency),
		Payment: &anetPayment{OpaqueData: &anetOpaqueData{
			DataDescriptor: descriptor,
			DataValue:      req.PaymentToken,
		}},
		Order: &anetOrder{
			InvoiceNumber: truncate(req.PaymentNumber, 20),
			Description:   truncate(req.Description, 255),
		},
	}
	if req.CustomerEmail != "" {
		txn.Customer = &anetCustomer{Email: req.CustomerEmail}
	}

	resp, err := a.createTransaction(ctx, truncate(req.PaymentNumber, 20), txn)
	if err != nil {
		return nil, err
	}
	tr := resp.TransactionResponse
	result := &finance.ChargeResult{
		TransactionID: tr.TransID,
		CardBrand:     tr.AccountType,
		CardLast4:     last4(tr.AccountNumber),
	}

	log := logger.Enrich(ctx, a.logger).With(
		zap.String("payment_number", req.PaymentNumber),
		zap.String("trans_id", tr.TransID),
		zap.String("response_code", tr.ResponseCode))
	if tr.ResponseCode == anetApproved {
		result.Approved = true
		log.Info("authorize.net charge approved")
		return result, nil
	}

	result.FailureCode, result.FailureMessage = transactionFailure(tr, resp.Messages)
	if tr.ResponseCode == anetHeld {
		result.FailureMessage = "The transaction is held for review"
	}
	log.Warn("authorize.net charge not approved", zap.String("reason", result.FailureMessage))
	return result, fmt.Errorf("%w: %s", finance.ErrGatewayDeclined, result.FailureMessage)
}

// Refund runs a refundTransaction. Unsettled transactions cannot be
// refunded and return ErrRefundNotAllowed so the caller can void instead.
func (a *AuthorizeNetAdapter) Refund(ctx context.Context, req *finance.RefundRequest) (*finance.RefundResult, error) {
	txn := anetTransactionRequest{
		TransactionType: "refundTransaction",
		Amount:          req.Amount.StringFixed(2),
		Payment: &anetPayment{CreditCard: &anetCreditCard{
			CardNumber:     last4(req.CardLast4),
			ExpirationDate: "XXXX",
		}},
		RefTransID: req.TransactionID,
	}
	resp, err := a.createTransaction(ctx, "", txn)
	if err != nil {
		return nil, err
	}
	tr := resp.TransactionResponse
	if tr.ResponseCode != anetApproved {
		code, msg := transactionFailure(tr, resp.Messages)
		if code == anetErrNotSettled {
			return nil, fmt.Errorf("%w: %s", finance.ErrRefundNotAllowed, msg)
		}
		return nil, fmt.Errorf("%w: authorizenet refund: %s", finance.ErrGatewayRequestFailed, msg)
	}
	return &finance.RefundResult{RefundID: tr.TransID, Status: "succeeded"}, nil
}

// Void runs a voidTransaction
func (a *AuthorizeNetAdapter) Void(ctx context.Context, transactionID string) error {
	resp, err := a.createTransaction(ctx, "", anetTransactionRequest{
		TransactionType: "voidTransaction",
		RefTransID:      transactionID,
	})
	if err != nil {
		return err
	}
	if tr := resp.TransactionResponse; tr.ResponseCode != anetApproved {
		_, msg := transactionFailure(tr, resp.Messages)
		return fmt.Errorf("%w: authorizenet void: %s", finance.ErrGatewayRequestFailed, msg)
	}
	return nil
}

// TestConnection runs authenticateTestRequest
func (a *AuthorizeNetAdapter) TestConnection(ctx context.Context) error {
	var resp anetResponse
	if err := a.post(ctx, anetAuthenticateEnvelope{Request: anetAuthenticateRequest{
		MerchantAuthentication: a.auth(),
	}}, &resp); err != nil {
		return err
	}
	if !resp.Messages.ok() {
		_, text := resp.Messages.first()
		return fmt.Errorf("%w: authorizenet authenticate: %s", finance.ErrGatewayRequestFailed, text)
	}
	return nil
}

func (a *AuthorizeNetAdapter) auth() anetMerchantAuth {
	return anetMerchantAuth{Name: a.config.APILoginID, TransactionKey: a.config.TransactionKey}
}

// createTransaction posts a transaction and requires a transactionResponse.
// A declined card still has one; a rejected request (bad credentials,
// malformed input) may not.
func (a *AuthorizeNetAdapter) createTransaction(ctx context.Context, refID string, txn anetTransactionRequest) (*anetResponse, error) {
	var resp anetResponse
	if err := a.post(ctx, anetCreateTransactionEnvelope{Request: anetCreateTransactionRequest{
		MerchantAuthentication: a.auth(),
		RefID:                  refID,
		TransactionRequest:     txn,
	}}, &resp); err != nil {
		return nil, err
	}
	if resp.TransactionResponse == nil {
		code, text := resp.Messages.first()
		return nil, fmt.Errorf("%w: authorizenet %s: %s %s", finance.ErrGatewayRequestFailed, txn.TransactionType, code, text)
	}
	return &resp, nil
}

// post sends body and decodes the reply. Authorize.net prefixes JSON replies
// with a UTF-8 byte order mark.
func (a *AuthorizeNetAdapter) post(ctx context.Context, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("authorizenet: failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.URL(), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("authorizenet: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", finance.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("authorizenet: failed to read response: %w", err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: HTTP %d", finance.ErrGatewayUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%w: HTTP %d", finance.ErrGatewayRequestFailed, resp.StatusCode)
	}
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", finance.ErrGatewayInvalidResponse, err)
	}
	return nil
}

func transactionFailure(tr *anetTransactionResponse, msgs anetMessages) (code, text string) {
	if len(tr.Errors) > 0 {
		return tr.Errors[0].ErrorCode, tr.Errors[0].ErrorText
	}
	if len(tr.Messages) > 0 {
		return tr.Messages[0].Code, tr.Messages[0].Description
	}
	code, text = msgs.first()
	if text == "" {
		text = "The transaction was declined"
	}
	return code, text
}

func last4(s string) string {
	s = strings.TrimLeft(s, "X*x ")
	if len(s) > 4 {
		return s[len(s)-4:]
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

var _ finance.PaymentGateway = (*AuthorizeNetAdapter)(nil)
