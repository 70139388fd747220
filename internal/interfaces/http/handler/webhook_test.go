package handler

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/arflow/backend/internal/domain/finance"
	"github.com/arflow/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func webhookRouter(svc *MockWebhookService) *gin.Engine {
	r := gin.New()
	r.POST("/webhooks/stripe/:org", NewWebhookHandler(svc, nil).Stripe)
	return r
}

func TestWebhookHandler_Stripe(t *testing.T) {
	orgID := uuid.New()
	payload := `{"id":"evt_1","type":"charge.refunded"}`

	t.Run("accepted", func(t *testing.T) {
		svc := new(MockWebhookService)
		svc.On("HandleStripe", mock.Anything, orgID, []byte(payload), "t=1,v1=abc").Return(nil)

		w := doJSON(t, webhookRouter(svc), http.MethodPost, "/webhooks/stripe/"+orgID.String(), payload,
			StripeSignatureHeader, "t=1,v1=abc")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"received":true`)
		svc.AssertExpectations(t)
	})

	t.Run("missing signature", func(t *testing.T) {
		svc := new(MockWebhookService)
		w := doJSON(t, webhookRouter(svc), http.MethodPost, "/webhooks/stripe/"+orgID.String(), payload)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidSignature, decodeError(t, w).Code)
		svc.AssertNotCalled(t, "HandleStripe", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("bad signature", func(t *testing.T) {
		svc := new(MockWebhookService)
		svc.On("HandleStripe", mock.Anything, orgID, mock.Anything, mock.Anything).
			Return(fmt.Errorf("%w: signature mismatch", finance.ErrGatewayInvalidCallback))

		w := doJSON(t, webhookRouter(svc), http.MethodPost, "/webhooks/stripe/"+orgID.String(), payload,
			StripeSignatureHeader, "t=1,v1=forged")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidSignature, decodeError(t, w).Code)
	})

	t.Run("oversized payload", func(t *testing.T) {
		svc := new(MockWebhookService)
		big := `{"pad":"` + strings.Repeat("x", maxWebhookPayloadSize) + `"}`
		w := doJSON(t, webhookRouter(svc), http.MethodPost, "/webhooks/stripe/"+orgID.String(), big,
			StripeSignatureHeader, "t=1,v1=abc")
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("bad organization id", func(t *testing.T) {
		svc := new(MockWebhookService)
		w := doJSON(t, webhookRouter(svc), http.MethodPost, "/webhooks/stripe/acme", payload,
			StripeSignatureHeader, "t=1,v1=abc")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
