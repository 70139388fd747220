package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/arflow/backend/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/form"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"
)

// mockBackend implements stripe.Backend for testing
type mockBackend struct {
	handler func(method, path string, params stripe.ParamsContainer) ([]byte, error)
	calls   []string
}

func (m *mockBackend) Call(method, path, key string, params stripe.ParamsContainer, v stripe.LastResponseSetter) error {
	m.calls = append(m.calls, method+" "+path)
	data, err := m.handler(method, path, params)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func (m *mockBackend) CallStreaming(method, path, key string, params stripe.ParamsContainer, v stripe.StreamingLastResponseSetter) error {
	return nil
}

func (m *mockBackend) CallRaw(method, path, key string, body *form.Values, params *stripe.Params, v stripe.LastResponseSetter) error {
	return nil
}

func (m *mockBackend) CallMultipart(method, path, key, boundary string, body *bytes.Buffer, params *stripe.Params, v stripe.LastResponseSetter) error {
	return nil
}

func (m *mockBackend) SetMaxNetworkRetries(maxNetworkRetries int64) {}

func newTestStripeAdapter(t *testing.T, handler func(method, path string, params stripe.ParamsContainer) ([]byte, error)) (*StripeAdapter, *mockBackend) {
	t.Helper()
	mock := &mockBackend{handler: handler}
	adapter, err := NewStripeAdapter(&StripeConfig{
		SecretKey: "sk_test_123",
		Backends:  &stripe.Backends{API: mock, Connect: mock, Uploads: mock},
	}, zap.NewNop())
	require.NoError(t, err)
	return adapter, mock
}

func chargeRequest() *finance.ChargeRequest {
	return &finance.ChargeRequest{
		OrganizationID: uuid.New(),
		PaymentID:      uuid.New(),
		PaymentNumber:  "PMT-20250101-ABC123",
		Amount:         decimal.RequireFromString("125.50"),
		Currency:       "USD",
		PaymentToken:   "pm_card_visa",
		Description:    "Invoice INV-1",
		IdempotencyKey: "idem-1",
	}
}

func TestStripeConfig_Validate(t *testing.T) {
	assert.ErrorIs(t, (&StripeConfig{}).Validate(), ErrStripeMissingSecretKey)
	assert.ErrorIs(t, (&StripeConfig{SecretKey: "pk_test_1"}).Validate(), ErrStripeInvalidSecretKey)
	assert.NoError(t, (&StripeConfig{SecretKey: "rk_live_1"}).Validate())
	assert.True(t, (&StripeConfig{SecretKey: "sk_test_1"}).IsTestMode())
}

func TestStripeAdapter_Charge(t *testing.T) {
	t.Run("approved charge returns card details", func(t *testing.T) {
		adapter, mock := newTestStripeAdapter(t, func(method, path string, params stripe.ParamsContainer) ([]byte, error) {
			p := params.(*stripe.PaymentIntentParams)
			assert.Equal(t, int64(12550), *p.Amount)
			assert.Equal(t, "usd", *p.Currency)
			assert.True(t, *p.Confirm)
			assert.Equal(t, "idem-1", *p.IdempotencyKey)
			return []byte(`{
				"id": "pi_123",
				"status": "succeeded",
				"latest_charge": {
					"id": "ch_123",
					"payment_method_details": {"card": {"brand": "visa", "last4": "4242"}}
				}
			}`), nil
		})

		result, err := adapter.Charge(context.Background(), chargeRequest())
		require.NoError(t, err)
		assert.True(t, result.Approved)
		assert.Equal(t, "pi_123", result.TransactionID)
		assert.Equal(t, "visa", result.CardBrand)
		assert.Equal(t, "4242", result.CardLast4)
		assert.Equal(t, []string{"POST /v1/payment_intents"}, mock.calls)
	})

	t.Run("card error is a decline", func(t *testing.T) {
		adapter, _ := newTestStripeAdapter(t, func(string, string, stripe.ParamsContainer) ([]byte, error) {
			return nil, &stripe.Error{
				Type:           stripe.ErrorTypeCard,
				Code:           stripe.ErrorCodeCardDeclined,
				DeclineCode:    "insufficient_funds",
				Msg:            "Your card has insufficient funds.",
				HTTPStatusCode: 402,
			}
		})

		result, err := adapter.Charge(context.Background(), chargeRequest())
		require.ErrorIs(t, err, finance.ErrGatewayDeclined)
		require.NotNil(t, result)
		assert.False(t, result.Approved)
		assert.Equal(t, "insufficient_funds", result.FailureCode)
		assert.Equal(t, "Your card has insufficient funds.", result.FailureMessage)
	})

	t.Run("requires_action is not approved", func(t *testing.T) {
		adapter, _ := newTestStripeAdapter(t, func(string, string, stripe.ParamsContainer) ([]byte, error) {
			return []byte(`{"id": "pi_3ds", "status": "requires_action"}`), nil
		})

		result, err := adapter.Charge(context.Background(), chargeRequest())
		require.ErrorIs(t, err, finance.ErrGatewayDeclined)
		assert.Equal(t, "pi_3ds", result.TransactionID)
		assert.Equal(t, "authentication_required", result.FailureCode)
	})

	t.Run("server errors are unavailable", func(t *testing.T) {
		adapter, _ := newTestStripeAdapter(t, func(string, string, stripe.ParamsContainer) ([]byte, error) {
			return nil, &stripe.Error{Type: stripe.ErrorTypeAPI, Msg: "upstream", HTTPStatusCode: 503}
		})

		result, err := adapter.Charge(context.Background(), chargeRequest())
		assert.Nil(t, result)
		assert.ErrorIs(t, err, finance.ErrGatewayUnavailable)
	})

	t.Run("missing token is rejected without a call", func(t *testing.T) {
		adapter, mock := newTestStripeAdapter(t, nil)
		req := chargeRequest()
		req.PaymentToken = ""

		_, err := adapter.Charge(context.Background(), req)
		assert.ErrorIs(t, err, finance.ErrGatewayRequestFailed)
		assert.Empty(t, mock.calls)
	})

	t.Run("zero decimal currency is not shifted", func(t *testing.T) {
		adapter, _ := newTestStripeAdapter(t, func(method, path string, params stripe.ParamsContainer) ([]byte, error) {
			assert.Equal(t, int64(1500), *params.(*stripe.PaymentIntentParams).Amount)
			return []byte(`{"id": "pi_jpy", "status": "succeeded"}`), nil
		})
		req := chargeRequest()
		req.Amount = decimal.NewFromInt(1500)
		req.Currency = "JPY"

		_, err := adapter.Charge(context.Background(), req)
		require.NoError(t, err)
	})
}

func TestStripeAdapter_Refund(t *testing.T) {
	t.Run("refunds the payment intent", func(t *testing.T) {
		adapter, mock := newTestStripeAdapter(t, func(method, path string, params stripe.ParamsContainer) ([]byte, error) {
			p := params.(*stripe.RefundParams)
			assert.Equal(t, "pi_123", *p.PaymentIntent)
			assert.Equal(t, int64(5000), *p.Amount)
			return []byte(`{"id": "re_1", "status": "succeeded"}`), nil
		})

		result, err := adapter.Refund(context.Background(), &finance.RefundRequest{
			TransactionID: "pi_123",
			Amount:        decimal.NewFromInt(50),
			Currency:      "USD",
		})
		require.NoError(t, err)
		assert.Equal(t, "re_1", result.RefundID)
		assert.Equal(t, []string{"POST /v1/refunds"}, mock.calls)
	})

	t.Run("already refunded is reported as such", func(t *testing.T) {
		adapter, _ := newTestStripeAdapter(t, func(string, string, stripe.ParamsContainer) ([]byte, error) {
			return nil, &stripe.Error{
				Type:           stripe.ErrorTypeInvalidRequest,
				Code:           stripe.ErrorCodeChargeAlreadyRefunded,
				Msg:            "already refunded",
				HTTPStatusCode: 400,
			}
		})

		_, err := adapter.Refund(context.Background(), &finance.RefundRequest{TransactionID: "pi_123", Currency: "USD"})
		assert.ErrorIs(t, err, finance.ErrAlreadyRefunded)
		assert.NotErrorIs(t, err, finance.ErrRefundNotAllowed)
	})
}

func TestStripeAdapter_VoidAndTest(t *testing.T) {
	adapter, mock := newTestStripeAdapter(t, func(method, path string, params stripe.ParamsContainer) ([]byte, error) {
		if path == "/v1/balance" {
			return []byte(`{"object": "balance"}`), nil
		}
		return []byte(`{"id": "pi_123", "status": "canceled"}`), nil
	})

	require.NoError(t, adapter.Void(context.Background(), "pi_123"))
	require.NoError(t, adapter.TestConnection(context.Background()))
	assert.Equal(t, []string{"POST /v1/payment_intents/pi_123/cancel", "GET /v1/balance"}, mock.calls)
}

func signedStripePayload(t *testing.T, secret, body string) (string, []byte) {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(body),
		Secret:    secret,
		Timestamp: time.Now(),
	})
	return signed.Header, signed.Payload
}

func TestStripeWebhookParser_Parse(t *testing.T) {
	const secret = "whsec_test"
	parser := NewStripeWebhookParser()

	t.Run("payment intent succeeded", func(t *testing.T) {
		header, payload := signedStripePayload(t, secret,
			`{"id":"evt_1","object":"event","type":"payment_intent.succeeded","data":{"object":{"id":"pi_123","object":"payment_intent","status":"succeeded"}}}`)

		event, err := parser.Parse(payload, header, secret)
		require.NoError(t, err)
		assert.Equal(t, "evt_1", event.EventID)
		assert.Equal(t, finance.GatewayEventChargeSucceeded, event.Kind)
		assert.Equal(t, "pi_123", event.TransactionID)
	})

	t.Run("payment id is read from the metadata", func(t *testing.T) {
		paymentID := uuid.New()
		header, payload := signedStripePayload(t, secret, fmt.Sprintf(
			`{"id":"evt_6","object":"event","type":"payment_intent.succeeded","data":{"object":{"id":"pi_meta","object":"payment_intent","status":"succeeded","metadata":{"payment_id":%q,"payment_number":"PMT-20260301-ABCDEF"}}}}`,
			paymentID))

		event, err := parser.Parse(payload, header, secret)
		require.NoError(t, err)
		assert.Equal(t, paymentID, event.PaymentID)
		assert.Equal(t, "pi_meta", event.TransactionID)
	})

	t.Run("malformed payment id is ignored", func(t *testing.T) {
		header, payload := signedStripePayload(t, secret,
			`{"id":"evt_7","object":"event","type":"payment_intent.succeeded","data":{"object":{"id":"pi_x","object":"payment_intent","metadata":{"payment_id":"not-a-uuid"}}}}`)

		event, err := parser.Parse(payload, header, secret)
		require.NoError(t, err)
		assert.Equal(t, uuid.Nil, event.PaymentID)
	})

	t.Run("payment failed carries the message", func(t *testing.T) {
		header, payload := signedStripePayload(t, secret,
			`{"id":"evt_2","object":"event","type":"payment_intent.payment_failed","data":{"object":{"id":"pi_9","object":"payment_intent","last_payment_error":{"message":"Card declined"}}}}`)

		event, err := parser.Parse(payload, header, secret)
		require.NoError(t, err)
		assert.Equal(t, finance.GatewayEventChargeFailed, event.Kind)
		assert.Equal(t, "Card declined", event.FailureMessage)
	})

	t.Run("charge refunded maps to the payment intent", func(t *testing.T) {
		header, payload := signedStripePayload(t, secret,
			`{"id":"evt_3","object":"event","type":"charge.refunded","data":{"object":{"id":"ch_1","object":"charge","payment_intent":"pi_5","amount":10000,"amount_refunded":10000,"refunded":true,"refunds":{"object":"list","data":[{"id":"re_7","object":"refund"}]}}}}`)

		event, err := parser.Parse(payload, header, secret)
		require.NoError(t, err)
		assert.Equal(t, finance.GatewayEventRefunded, event.Kind)
		assert.Equal(t, "pi_5", event.TransactionID)
		assert.Equal(t, "re_7", event.RefundID)
	})

	t.Run("partial refund is not a full refund", func(t *testing.T) {
		header, payload := signedStripePayload(t, secret,
			`{"id":"evt_8","object":"event","type":"charge.refunded","data":{"object":{"id":"ch_2","object":"charge","payment_intent":"pi_1","amount":10000,"amount_refunded":1000,"refunded":false,"refunds":{"object":"list","data":[{"id":"re_1","object":"refund"}]}}}}`)

		event, err := parser.Parse(payload, header, secret)
		require.NoError(t, err)
		assert.Equal(t, finance.GatewayEventPartialRefund, event.Kind)
		assert.Equal(t, "pi_1", event.TransactionID)
	})

	t.Run("refunds adding up to the amount are a full refund", func(t *testing.T) {
		header, payload := signedStripePayload(t, secret,
			`{"id":"evt_9","object":"event","type":"charge.refunded","data":{"object":{"id":"ch_3","object":"charge","payment_intent":"pi_2","amount":10000,"amount_refunded":10000,"refunded":false}}}`)

		event, err := parser.Parse(payload, header, secret)
		require.NoError(t, err)
		assert.Equal(t, finance.GatewayEventRefunded, event.Kind)
	})

	t.Run("other events are ignored", func(t *testing.T) {
		header, payload := signedStripePayload(t, secret,
			`{"id":"evt_4","object":"event","type":"customer.created","data":{"object":{"id":"cus_1"}}}`)

		event, err := parser.Parse(payload, header, secret)
		require.NoError(t, err)
		assert.Equal(t, finance.GatewayEventIgnored, event.Kind)
	})

	t.Run("bad signature is rejected", func(t *testing.T) {
		header, payload := signedStripePayload(t, "whsec_other", `{"id":"evt_5","object":"event","type":"charge.refunded"}`)

		_, err := parser.Parse(payload, header, secret)
		assert.ErrorIs(t, err, finance.ErrGatewayInvalidCallback)
	})

	t.Run("missing secret is rejected", func(t *testing.T) {
		_, err := parser.Parse([]byte(`{}`), "t=1,v1=abc", "")
		assert.ErrorIs(t, err, finance.ErrGatewayInvalidCallback)
	})
}
