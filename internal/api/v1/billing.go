package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hallmail/hallmail/internal/api/dto"
	ierr "github.com/hallmail/hallmail/internal/errors"
	"github.com/hallmail/hallmail/internal/logger"
	"github.com/hallmail/hallmail/internal/service"
	"github.com/hallmail/hallmail/internal/types"
)

type BillingHandler struct {
	billing service.BillingService
	gate    service.ActivationGate
	logger  *logger.Logger
}

func NewBillingHandler(billing service.BillingService, gate service.ActivationGate, logger *logger.Logger) *BillingHandler {
	return &BillingHandler{
		billing: billing,
		gate:    gate,
		logger:  logger,
	}
}

// CreateCheckout godoc
// @Summary Create a Stripe checkout session
// @Description Creates the Stripe customer on first use and returns the hosted checkout URL
// @Tags Billing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateCheckoutRequest true "Checkout"
// @Success 200 {object} dto.CheckoutResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 401 {object} ierr.ErrorResponse
// @Failure 502 {object} ierr.ErrorResponse
// @Router /functions/v1/stripe-checkout [post]
func (h *BillingHandler) CreateCheckout(c *gin.Context) {
	var req dto.CreateCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	ctx := c.Request.Context()
	resp, err := h.billing.CreateCheckout(ctx, types.GetUserID(ctx), types.GetUserEmail(ctx), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CancelSubscription godoc
// @Summary Cancel a subscription at period end
// @Tags Billing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.SubscriptionActionRequest true "Subscription"
// @Success 200 {object} dto.SubscriptionActionResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /functions/v1/stripe-cancel-subscription [post]
func (h *BillingHandler) CancelSubscription(c *gin.Context) {
	var req dto.SubscriptionActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	ctx := c.Request.Context()
	resp, err := h.billing.Cancel(ctx, types.GetUserID(ctx), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ReactivateSubscription godoc
// @Summary Undo a scheduled cancellation
// @Tags Billing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.SubscriptionActionRequest true "Subscription"
// @Success 200 {object} dto.SubscriptionActionResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /functions/v1/stripe-reactivate-subscription [post]
func (h *BillingHandler) ReactivateSubscription(c *gin.Context) {
	var req dto.SubscriptionActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	ctx := c.Request.Context()
	resp, err := h.billing.Reactivate(ctx, types.GetUserID(ctx), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Sync godoc
// @Summary Force a subscription sync
// @Description Mirrors the caller's Stripe subscriptions and invoices. With wait=checkout it waits for the base plan to go live.
// @Tags Billing
// @Produce json
// @Security BearerAuth
// @Param wait query string false "checkout"
// @Success 200 {object} dto.SyncResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Failure 429 {object} ierr.ErrorResponse
// @Router /functions/v1/stripe-sync [post]
func (h *BillingHandler) Sync(c *gin.Context) {
	var req dto.SyncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(ierr.WithError(err).
				WithHint("Invalid request format").
				Mark(ierr.ErrValidation))
			return
		}
	}
	if wait := c.Query("wait"); wait != "" {
		req.Wait = types.SyncWait(wait)
	}

	ctx := c.Request.Context()
	resp, err := h.billing.ForceSync(ctx, types.GetUserID(ctx), types.GetUserEmail(ctx), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CreatePortalSession godoc
// @Summary Open the Stripe customer portal
// @Tags Billing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.PortalSessionResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /functions/v1/stripe-portal [post]
func (h *BillingHandler) CreatePortalSession(c *gin.Context) {
	var req dto.PortalSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(ierr.WithError(err).
				WithHint("Invalid request format").
				Mark(ierr.ErrValidation))
			return
		}
	}

	ctx := c.Request.Context()
	resp, err := h.billing.CreatePortalSession(ctx, types.GetUserID(ctx), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetAccounts godoc
// @Summary List email accounts with their billing state
// @Tags Billing
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.AccountsViewResponse
// @Router /v1/billing/accounts [get]
func (h *BillingHandler) GetAccounts(c *gin.Context) {
	ctx := c.Request.Context()
	resp, err := h.gate.AccountsView(ctx, types.GetUserID(ctx))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
