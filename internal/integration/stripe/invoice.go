package stripe

import (
	"context"
	"time"

	"github.com/stripe/stripe-go/v82"
)

func (c *Client) ListInvoices(ctx context.Context, customerID string) ([]*stripe.Invoice, error) {
	sc, err := c.client()
	if err != nil {
		return nil, err
	}

	params := &stripe.InvoiceListParams{
		Customer: stripe.String(customerID),
	}

	start := time.Now()
	var invoices []*stripe.Invoice
	for inv, err := range sc.V1Invoices.List(ctx, params) {
		if err != nil {
			return nil, c.observe("invoice_list", start, err, map[string]any{"customer_id": customerID})
		}
		invoices = append(invoices, inv)
	}
	_ = c.observe("invoice_list", start, nil, nil)

	return invoices, nil
}

// InvoiceSubscriptionID returns the subscription an invoice was issued for
func InvoiceSubscriptionID(inv *stripe.Invoice) string {
	if inv.Parent == nil || inv.Parent.SubscriptionDetails == nil || inv.Parent.SubscriptionDetails.Subscription == nil {
		return ""
	}
	return inv.Parent.SubscriptionDetails.Subscription.ID
}

// InvoicePaidAt returns the paid timestamp or nil when unpaid
func InvoicePaidAt(inv *stripe.Invoice) *int64 {
	if inv.StatusTransitions == nil || inv.StatusTransitions.PaidAt == 0 {
		return nil
	}
	paidAt := inv.StatusTransitions.PaidAt
	return &paidAt
}
