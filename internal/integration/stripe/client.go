package stripe

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/hallmail/hallmail/internal/config"
	ierr "github.com/hallmail/hallmail/internal/errors"
	"github.com/hallmail/hallmail/internal/logger"
	"github.com/hallmail/hallmail/internal/metrics"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// Gateway is the subset of the Stripe API used for billing reconciliation
type Gateway interface {
	CreateCustomer(ctx context.Context, email string, userID string) (*stripe.Customer, error)
	DeleteCustomer(ctx context.Context, customerID string) error
	RetrieveCustomer(ctx context.Context, customerID string) (*stripe.Customer, error)

	// ListSubscriptions returns every subscription of the customer, whatever
	// its status, with the default payment method expanded
	ListSubscriptions(ctx context.Context, customerID string) ([]*stripe.Subscription, error)
	RetrieveSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error)
	SetCancelAtPeriodEnd(ctx context.Context, subscriptionID string, cancel bool) (*stripe.Subscription, error)
	UpdateItemQuantity(ctx context.Context, itemID string, quantity int64) (*stripe.SubscriptionItem, error)

	CreateCheckoutSession(ctx context.Context, input *CheckoutSessionInput) (*stripe.CheckoutSession, error)
	CreatePortalSession(ctx context.Context, customerID string, returnURL string) (*stripe.BillingPortalSession, error)
	ListInvoices(ctx context.Context, customerID string) ([]*stripe.Invoice, error)

	// ConstructEvent verifies the signature header and decodes the event
	ConstructEvent(payload []byte, signature string) (*stripe.Event, error)
}

// Client implements Gateway on the stripe-go v1 services
type Client struct {
	cfg    config.StripeConfig
	logger *logger.Logger

	once sync.Once
	sc   *stripe.Client
}

// NewClient creates the gateway. A missing secret key is not an error here,
// every call reports it instead.
func NewClient(cfg *config.Configuration, logger *logger.Logger) Gateway {
	if cfg.Stripe.SecretKey == "" {
		logger.Warnw("stripe secret key not configured, billing endpoints will be unavailable")
	}
	return &Client{cfg: cfg.Stripe, logger: logger}
}

func (c *Client) client() (*stripe.Client, error) {
	if c.cfg.SecretKey == "" {
		return nil, ierr.NewError("stripe secret key not configured").
			WithHint("Billing is not configured, please contact support").
			WithReportableDetails(map[string]any{"missing": []string{"stripe.secret_key"}}).
			Mark(ierr.ErrConfiguration)
	}
	c.once.Do(func() {
		c.sc = stripe.NewClient(c.cfg.SecretKey, nil)
	})
	return c.sc, nil
}

func (c *Client) ConstructEvent(payload []byte, signature string) (*stripe.Event, error) {
	if c.cfg.WebhookSecret == "" {
		return nil, ierr.NewError("stripe webhook secret not configured").
			WithHint("Webhook is not configured").
			WithReportableDetails(map[string]any{"missing": []string{"stripe.webhook_secret"}}).
			Mark(ierr.ErrConfiguration)
	}
	if signature == "" {
		return nil, ierr.NewError("missing stripe-signature header").
			WithHint("Missing stripe-signature header").
			Mark(ierr.ErrValidation)
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, c.cfg.WebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		c.logger.Errorw("stripe webhook verification failed", "error", err)
		return nil, ierr.WithError(err).
			WithHint("Invalid webhook signature or payload").
			Mark(ierr.ErrValidation)
	}
	return &event, nil
}

// observe records the call latency and converts a Stripe failure into an
// upstream error carrying the Stripe code
func (c *Client) observe(operation string, start time.Time, err error, details map[string]any) error {
	metrics.RecordStripeCall(operation, start, err)
	if err == nil {
		return nil
	}

	if details == nil {
		details = map[string]any{}
	}
	details["operation"] = operation

	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		details["stripe_code"] = stripeErr.Code
		details["stripe_type"] = stripeErr.Type
		c.logger.Errorw("stripe call failed",
			"operation", operation,
			"code", stripeErr.Code,
			"status", stripeErr.HTTPStatusCode,
			"message", stripeErr.Msg,
		)
		if stripeErr.HTTPStatusCode == http.StatusNotFound {
			return ierr.WithError(err).
				WithHint("The billing resource was not found").
				WithReportableDetails(details).
				Mark(ierr.ErrNotFound)
		}
		hint := stripeErr.Msg
		if hint == "" {
			hint = "Payment provider error"
		}
		return ierr.WithError(err).
			WithHint(hint).
			WithReportableDetails(details).
			Mark(ierr.ErrHTTPClient)
	}

	c.logger.Errorw("stripe call failed", "operation", operation, "error", err)
	return ierr.WithError(err).
		WithHint("Payment provider is unreachable, please retry").
		WithReportableDetails(details).
		Mark(ierr.ErrHTTPClient)
}
