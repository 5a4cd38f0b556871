package stripe

import (
	"context"
	"time"

	"github.com/stripe/stripe-go/v82"
)

func (c *Client) ListSubscriptions(ctx context.Context, customerID string) ([]*stripe.Subscription, error) {
	sc, err := c.client()
	if err != nil {
		return nil, err
	}

	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String("all"),
	}
	params.AddExpand("data.default_payment_method")

	start := time.Now()
	var subs []*stripe.Subscription
	for sub, err := range sc.V1Subscriptions.List(ctx, params) {
		if err != nil {
			return nil, c.observe("subscription_list", start, err, map[string]any{"customer_id": customerID})
		}
		subs = append(subs, sub)
	}
	_ = c.observe("subscription_list", start, nil, nil)

	return subs, nil
}

func (c *Client) RetrieveSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error) {
	sc, err := c.client()
	if err != nil {
		return nil, err
	}

	params := &stripe.SubscriptionRetrieveParams{}
	params.AddExpand("default_payment_method")

	start := time.Now()
	sub, err := sc.V1Subscriptions.Retrieve(ctx, subscriptionID, params)
	if err := c.observe("subscription_retrieve", start, err, map[string]any{"subscription_id": subscriptionID}); err != nil {
		return nil, err
	}
	return sub, nil
}

func (c *Client) SetCancelAtPeriodEnd(ctx context.Context, subscriptionID string, cancel bool) (*stripe.Subscription, error) {
	sc, err := c.client()
	if err != nil {
		return nil, err
	}

	params := &stripe.SubscriptionUpdateParams{
		CancelAtPeriodEnd: stripe.Bool(cancel),
	}

	start := time.Now()
	sub, err := sc.V1Subscriptions.Update(ctx, subscriptionID, params)
	if err := c.observe("subscription_update", start, err, map[string]any{
		"subscription_id":      subscriptionID,
		"cancel_at_period_end": cancel,
	}); err != nil {
		return nil, err
	}

	c.logger.Infow("updated stripe subscription cancellation",
		"subscription_id", subscriptionID,
		"cancel_at_period_end", cancel,
	)
	return sub, nil
}

// UpdateItemQuantity changes a line item quantity without proration. The
// change takes effect on the next invoice.
func (c *Client) UpdateItemQuantity(ctx context.Context, itemID string, quantity int64) (*stripe.SubscriptionItem, error) {
	sc, err := c.client()
	if err != nil {
		return nil, err
	}

	params := &stripe.SubscriptionItemUpdateParams{
		Quantity:          stripe.Int64(quantity),
		ProrationBehavior: stripe.String("none"),
	}

	start := time.Now()
	item, err := sc.V1SubscriptionItems.Update(ctx, itemID, params)
	if err := c.observe("subscription_item_update", start, err, map[string]any{
		"item_id":  itemID,
		"quantity": quantity,
	}); err != nil {
		return nil, err
	}
	return item, nil
}
