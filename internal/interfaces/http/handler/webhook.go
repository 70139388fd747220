package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/arflow/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Stripe webhook payloads are small; anything larger is rejected unread
const maxWebhookPayloadSize = 65536

// StripeSignatureHeader carries the signature Stripe computes over the body
const StripeSignatureHeader = "Stripe-Signature"

// WebhookService verifies and applies gateway notifications
type WebhookService interface {
	HandleStripe(ctx context.Context, orgID uuid.UUID, payload []byte, signature string) error
}

// WebhookHandler receives gateway callbacks. These routes are public and
// authenticated by signature only.
type WebhookHandler struct {
	BaseHandler
	webhookService WebhookService
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(webhookService WebhookService, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler:    NewBaseHandler(logger),
		webhookService: webhookService,
	}
}

type webhookAck struct {
	Received bool `json:"received"`
}

// Stripe handles POST /webhooks/stripe/:org. The raw body is needed for
// signature verification so it is read before any decoding.
//
// @Summary      Stripe webhook
// @Description  Called by Stripe; authenticated by the payload signature
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        org path string true "Organization ID" format(uuid)
// @Param        Stripe-Signature header string true "Stripe signature"
// @Success      200 {object} dto.Response{data=webhookAck}
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      413 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Router       /webhooks/stripe/{org} [post]
func (h *WebhookHandler) Stripe(c *gin.Context) {
	orgID, ok := h.UUIDParam(c, "org")
	if !ok {
		return
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookPayloadSize+1))
	if err != nil {
		h.BadRequest(c, "Failed to read request body")
		return
	}
	if len(payload) > maxWebhookPayloadSize {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestEntityTooLarge, "Payload too large")
		return
	}

	signature := c.GetHeader(StripeSignatureHeader)
	if signature == "" {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidSignature, "Missing "+StripeSignatureHeader+" header")
		return
	}

	if err := h.webhookService.HandleStripe(c.Request.Context(), orgID, payload, signature); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, webhookAck{Received: true})
}
