package stripe

import (
	"github.com/stripe/stripe-go/v82"
)

// CustomerID returns the id of the customer a subscription belongs to
func CustomerID(sub *stripe.Subscription) string {
	if sub.Customer == nil {
		return ""
	}
	return sub.Customer.ID
}

// Items returns the subscription line items, never nil
func Items(sub *stripe.Subscription) []*stripe.SubscriptionItem {
	if sub.Items == nil {
		return nil
	}
	return sub.Items.Data
}

// FirstItem returns the first line item or nil
func FirstItem(sub *stripe.Subscription) *stripe.SubscriptionItem {
	items := Items(sub)
	if len(items) == 0 {
		return nil
	}
	return items[0]
}

// ItemPriceID returns the price id of a line item
func ItemPriceID(item *stripe.SubscriptionItem) string {
	if item == nil || item.Price == nil {
		return ""
	}
	return item.Price.ID
}

// FirstPriceID returns the price id of the first line item
func FirstPriceID(sub *stripe.Subscription) string {
	return ItemPriceID(FirstItem(sub))
}

// ItemForPrice returns the first line item billed at priceID
func ItemForPrice(sub *stripe.Subscription, priceID string) *stripe.SubscriptionItem {
	if priceID == "" {
		return nil
	}
	for _, item := range Items(sub) {
		if ItemPriceID(item) == priceID {
			return item
		}
	}
	return nil
}

// QuantityForPrice sums the quantities of line items billed at priceID
func QuantityForPrice(sub *stripe.Subscription, priceID string) int64 {
	if priceID == "" {
		return 0
	}
	var total int64
	for _, item := range Items(sub) {
		if ItemPriceID(item) == priceID {
			total += item.Quantity
		}
	}
	return total
}

// PeriodBounds returns the current billing period. Periods are carried by
// line items, the first one is authoritative.
func PeriodBounds(sub *stripe.Subscription) (start int64, end int64) {
	item := FirstItem(sub)
	if item == nil {
		return 0, 0
	}
	return item.CurrentPeriodStart, item.CurrentPeriodEnd
}

// CardDisplay returns the brand and last four digits of the default card
func CardDisplay(sub *stripe.Subscription) (brand string, last4 string) {
	pm := sub.DefaultPaymentMethod
	if pm == nil || pm.Card == nil {
		return "", ""
	}
	return string(pm.Card.Brand), pm.Card.Last4
}
