package stripe

import (
	"context"
	"time"

	"github.com/hallmail/hallmail/internal/types"
	"github.com/samber/lo"
	"github.com/stripe/stripe-go/v82"
)

// LineItem is one price and quantity of a checkout session
type LineItem struct {
	PriceID  string
	Quantity int64
}

// CheckoutSessionInput describes a hosted checkout session. Metadata is
// written on the session and on the resulting subscription.
type CheckoutSessionInput struct {
	CustomerID string
	Mode       types.CheckoutMode
	SuccessURL string
	CancelURL  string
	LineItems  []LineItem
	Metadata   map[string]string
}

func (c *Client) CreateCheckoutSession(ctx context.Context, input *CheckoutSessionInput) (*stripe.CheckoutSession, error) {
	sc, err := c.client()
	if err != nil {
		return nil, err
	}

	params := &stripe.CheckoutSessionCreateParams{
		Customer:   stripe.String(input.CustomerID),
		Mode:       stripe.String(string(input.Mode)),
		SuccessURL: stripe.String(input.SuccessURL),
		CancelURL:  stripe.String(input.CancelURL),
		LineItems: lo.Map(input.LineItems, func(item LineItem, _ int) *stripe.CheckoutSessionCreateLineItemParams {
			return &stripe.CheckoutSessionCreateLineItemParams{
				Price:    stripe.String(item.PriceID),
				Quantity: stripe.Int64(item.Quantity),
			}
		}),
		Metadata: input.Metadata,
	}
	if input.Mode == types.CheckoutModeSubscription {
		params.SubscriptionData = &stripe.CheckoutSessionCreateSubscriptionDataParams{
			Metadata: input.Metadata,
		}
	}

	start := time.Now()
	session, err := sc.V1CheckoutSessions.Create(ctx, params)
	if err := c.observe("checkout_session_create", start, err, map[string]any{
		"customer_id": input.CustomerID,
		"line_items":  len(input.LineItems),
	}); err != nil {
		return nil, err
	}

	c.logger.Infow("created stripe checkout session",
		"session_id", session.ID,
		"customer_id", input.CustomerID,
		"mode", input.Mode,
	)
	return session, nil
}

func (c *Client) CreatePortalSession(ctx context.Context, customerID string, returnURL string) (*stripe.BillingPortalSession, error) {
	sc, err := c.client()
	if err != nil {
		return nil, err
	}

	params := &stripe.BillingPortalSessionCreateParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}

	start := time.Now()
	session, err := sc.V1BillingPortalSessions.Create(ctx, params)
	if err := c.observe("portal_session_create", start, err, map[string]any{"customer_id": customerID}); err != nil {
		return nil, err
	}
	return session, nil
}
