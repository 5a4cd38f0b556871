package webhook

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hallmail/hallmail/internal/cache"
	ierr "github.com/hallmail/hallmail/internal/errors"
	stripeint "github.com/hallmail/hallmail/internal/integration/stripe"
	"github.com/hallmail/hallmail/internal/logger"
	"github.com/hallmail/hallmail/internal/metrics"
	"github.com/hallmail/hallmail/internal/service"
	"github.com/hallmail/hallmail/internal/types"
	stripeapi "github.com/stripe/stripe-go/v82"
)

// Stripe retries a delivery for up to three days
const eventClaimTTL = 72 * time.Hour

const (
	OutcomeProcessed = "processed"
	OutcomeDuplicate = "duplicate"
	OutcomeIgnored   = "ignored"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
)

// Result tells the caller what happened to a delivery
type Result struct {
	EventID string `json:"event_id"`
	Type    string `json:"type"`
	Outcome string `json:"outcome"`
}

// Handler handles Stripe webhook events
type Handler struct {
	gateway stripeint.Gateway
	sync    service.SubscriptionSynchronizer
	cache   cache.Cache
	logger  *logger.Logger
}

// NewHandler creates a new Stripe webhook handler
func NewHandler(
	gateway stripeint.Gateway,
	sync service.SubscriptionSynchronizer,
	cache cache.Cache,
	logger *logger.Logger,
) *Handler {
	return &Handler{
		gateway: gateway,
		sync:    sync,
		cache:   cache,
		logger:  logger,
	}
}

// HandleRequest verifies the signature of a raw delivery before doing
// anything with it
func (h *Handler) HandleRequest(ctx context.Context, payload []byte, signature string) (*Result, error) {
	event, err := h.gateway.ConstructEvent(payload, signature)
	if err != nil {
		metrics.RecordWebhookEvent("unverified", OutcomeFailed)
		return nil, err
	}
	return h.HandleEvent(ctx, event)
}

// HandleEvent processes a verified Stripe event once. A failed event
// releases its claim so the Stripe retry is processed again.
func (h *Handler) HandleEvent(ctx context.Context, event *stripeapi.Event) (*Result, error) {
	result := &Result{EventID: event.ID, Type: string(event.Type)}
	log := h.logger.With("event_id", event.ID, "event_type", event.Type)

	key := cache.GenerateKey(cache.PrefixWebhookEvent, event.ID)
	if !h.cache.Claim(ctx, key, eventClaimTTL) {
		log.Infow("duplicate stripe webhook event, skipping")
		result.Outcome = OutcomeDuplicate
		metrics.RecordWebhookEvent(result.Type, result.Outcome)
		return result, nil
	}

	eventType := types.WebhookEventType(event.Type)
	if !eventType.IsSupported() {
		log.Infow("unhandled stripe webhook event type")
		result.Outcome = OutcomeIgnored
		metrics.RecordWebhookEvent(result.Type, result.Outcome)
		return result, nil
	}

	ctx = types.SetSyncTrigger(ctx, types.SyncTriggerWebhook)
	customerID, err := h.dispatch(ctx, eventType, event)
	if customerID != "" {
		log = log.With("customer_id", customerID)
	}

	switch {
	case err == nil:
		result.Outcome = OutcomeProcessed
		log.Infow("processed stripe webhook event")
	case ierr.IsNotFound(err) || ierr.IsValidation(err):
		// retrying cannot fix a customer nobody owns or a malformed object
		result.Outcome = OutcomeSkipped
		log.Warnw("skipped stripe webhook event", "error", err)
		err = nil
	default:
		result.Outcome = OutcomeFailed
		h.cache.Delete(ctx, key)
		log.Errorw("failed to process stripe webhook event", "error", err)
	}

	metrics.RecordWebhookEvent(result.Type, result.Outcome)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// dispatch resyncs the customer the event belongs to and returns its id
func (h *Handler) dispatch(ctx context.Context, eventType types.WebhookEventType, event *stripeapi.Event) (string, error) {
	switch eventType {
	case types.WebhookEventSubscriptionCreated,
		types.WebhookEventSubscriptionUpdated,
		types.WebhookEventSubscriptionDeleted:
		var sub stripeapi.Subscription
		if err := h.decode(event, &sub); err != nil {
			return "", err
		}
		return h.syncCustomer(ctx, stripeint.CustomerID(&sub))

	case types.WebhookEventInvoicePaymentSucceeded:
		var inv stripeapi.Invoice
		if err := h.decode(event, &inv); err != nil {
			return "", err
		}
		if err := h.sync.UpsertInvoice(ctx, &inv); err != nil {
			return "", err
		}
		return h.syncCustomer(ctx, invoiceCustomerID(&inv))

	case types.WebhookEventInvoicePaymentFailed:
		var inv stripeapi.Invoice
		if err := h.decode(event, &inv); err != nil {
			return "", err
		}
		return h.syncCustomer(ctx, invoiceCustomerID(&inv))

	case types.WebhookEventCheckoutCompleted:
		var session stripeapi.CheckoutSession
		if err := h.decode(event, &session); err != nil {
			return "", err
		}
		if session.Customer == nil {
			return "", ierr.NewError("checkout session has no customer").
				WithHint("Invalid checkout session payload").
				WithReportableDetails(map[string]any{"session_id": session.ID}).
				Mark(ierr.ErrValidation)
		}
		return h.syncCustomer(ctx, session.Customer.ID)
	}
	return "", nil
}

func (h *Handler) syncCustomer(ctx context.Context, customerID string) (string, error) {
	if customerID == "" {
		return "", ierr.NewError("event object has no customer").
			WithHint("Invalid webhook payload").
			Mark(ierr.ErrValidation)
	}
	result, err := h.sync.SyncCustomer(ctx, customerID)
	if err != nil {
		return customerID, err
	}
	h.logger.Debugw("webhook sync finished",
		"customer_id", customerID,
		"user_id", result.UserID,
		"records", len(result.Records),
		"slots_created", result.SlotsCreated,
		"slots_retired", result.SlotsRetired,
	)
	return customerID, nil
}

func (h *Handler) decode(event *stripeapi.Event, v any) error {
	if event.Data == nil {
		return ierr.NewError("webhook event has no data").
			WithHint("Invalid webhook payload").
			Mark(ierr.ErrValidation)
	}
	if err := json.Unmarshal(event.Data.Raw, v); err != nil {
		return ierr.WithError(err).
			WithHintf("Invalid %s payload", event.Type).
			Mark(ierr.ErrValidation)
	}
	return nil
}

func invoiceCustomerID(inv *stripeapi.Invoice) string {
	if inv.Customer == nil {
		return ""
	}
	return inv.Customer.ID
}
