package types

import (
	ierr "github.com/hallmail/hallmail/internal/errors"
	"github.com/samber/lo"
)

// WebhookEventType is the closed set of Stripe events the service reacts to
type WebhookEventType string

const (
	WebhookEventSubscriptionCreated    WebhookEventType = "customer.subscription.created"
	WebhookEventSubscriptionUpdated    WebhookEventType = "customer.subscription.updated"
	WebhookEventSubscriptionDeleted    WebhookEventType = "customer.subscription.deleted"
	WebhookEventInvoicePaymentSucceeded WebhookEventType = "invoice.payment_succeeded"
	WebhookEventInvoicePaymentFailed   WebhookEventType = "invoice.payment_failed"
	WebhookEventCheckoutCompleted      WebhookEventType = "checkout.session.completed"
)

var supportedWebhookEvents = []WebhookEventType{
	WebhookEventSubscriptionCreated,
	WebhookEventSubscriptionUpdated,
	WebhookEventSubscriptionDeleted,
	WebhookEventInvoicePaymentSucceeded,
	WebhookEventInvoicePaymentFailed,
	WebhookEventCheckoutCompleted,
}

func (e WebhookEventType) String() string {
	return string(e)
}

// IsSupported reports whether the event is one the webhook handler dispatches
func (e WebhookEventType) IsSupported() bool {
	return lo.Contains(supportedWebhookEvents, e)
}

func (e WebhookEventType) Validate() error {
	if !e.IsSupported() {
		return ierr.NewError("unsupported webhook event").
			WithHint("Unsupported webhook event type").
			WithReportableDetails(map[string]any{
				"event_type":     e,
				"allowed_values": supportedWebhookEvents,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
