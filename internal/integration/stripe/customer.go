package stripe

import (
	"context"
	"time"

	"github.com/hallmail/hallmail/internal/types"
	"github.com/stripe/stripe-go/v82"
)

func (c *Client) CreateCustomer(ctx context.Context, email string, userID string) (*stripe.Customer, error) {
	sc, err := c.client()
	if err != nil {
		return nil, err
	}

	params := &stripe.CustomerCreateParams{
		Email: stripe.String(email),
		Metadata: map[string]string{
			types.MetadataKeyCustomerUserID: userID,
		},
	}

	start := time.Now()
	cust, err := sc.V1Customers.Create(ctx, params)
	if err := c.observe("customer_create", start, err, map[string]any{"user_id": userID}); err != nil {
		return nil, err
	}

	c.logger.Infow("created stripe customer", "customer_id", cust.ID, "user_id", userID)
	return cust, nil
}

func (c *Client) DeleteCustomer(ctx context.Context, customerID string) error {
	sc, err := c.client()
	if err != nil {
		return err
	}

	start := time.Now()
	_, err = sc.V1Customers.Delete(ctx, customerID, nil)
	return c.observe("customer_delete", start, err, map[string]any{"customer_id": customerID})
}

func (c *Client) RetrieveCustomer(ctx context.Context, customerID string) (*stripe.Customer, error) {
	sc, err := c.client()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	cust, err := sc.V1Customers.Retrieve(ctx, customerID, nil)
	if err := c.observe("customer_retrieve", start, err, map[string]any{"customer_id": customerID}); err != nil {
		return nil, err
	}
	return cust, nil
}
