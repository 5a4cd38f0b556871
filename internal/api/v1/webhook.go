package v1

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	ierr "github.com/hallmail/hallmail/internal/errors"
	"github.com/hallmail/hallmail/internal/integration/stripe/webhook"
	"github.com/hallmail/hallmail/internal/logger"
	"github.com/hallmail/hallmail/internal/types"
)

// Stripe events are far below this
const maxWebhookPayloadBytes = 1 << 20

// WebhookHandler receives Stripe deliveries
type WebhookHandler struct {
	handler *webhook.Handler
	logger  *logger.Logger
}

func NewWebhookHandler(handler *webhook.Handler, logger *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		handler: handler,
		logger:  logger,
	}
}

// HandleStripeWebhook godoc
// @Summary Receive a Stripe webhook event
// @Description The signature is verified before the payload is looked at
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param Stripe-Signature header string true "Stripe signature"
// @Success 200 {object} webhook.Result
// @Failure 400 {object} ierr.ErrorResponse
// @Router /functions/v1/stripe-webhook [post]
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookPayloadBytes))
	if err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Failed to read request body").
			Mark(ierr.ErrValidation))
		return
	}

	result, err := h.handler.HandleRequest(c.Request.Context(), payload, c.GetHeader(types.HeaderStripeSignature))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"received": true,
		"event_id": result.EventID,
		"outcome":  result.Outcome,
	})
}
