package stripe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stripe/stripe-go/v82"
)

func subWithItems(items ...*stripe.SubscriptionItem) *stripe.Subscription {
	return &stripe.Subscription{
		ID:    "sub_1",
		Items: &stripe.SubscriptionItemList{Data: items},
	}
}

func item(id, priceID string, qty int64) *stripe.SubscriptionItem {
	return &stripe.SubscriptionItem{
		ID:                 id,
		Price:              &stripe.Price{ID: priceID},
		Quantity:           qty,
		CurrentPeriodStart: 1700000000,
		CurrentPeriodEnd:   1702592000,
	}
}

func TestQuantityForPrice(t *testing.T) {
	tests := []struct {
		name    string
		sub     *stripe.Subscription
		priceID string
		want    int64
	}{
		{
			name:    "premier with additional line item",
			sub:     subWithItems(item("si_base", "price_base", 1), item("si_add", "price_add", 3)),
			priceID: "price_add",
			want:    3,
		},
		{
			name:    "no matching item",
			sub:     subWithItems(item("si_base", "price_base", 1)),
			priceID: "price_add",
			want:    0,
		},
		{
			name:    "empty price id never matches",
			sub:     subWithItems(item("si_base", "", 1)),
			priceID: "",
			want:    0,
		},
		{
			name:    "no items",
			sub:     &stripe.Subscription{ID: "sub_1"},
			priceID: "price_add",
			want:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, QuantityForPrice(tt.sub, tt.priceID))
		})
	}
}

func TestSnapshotHelpers(t *testing.T) {
	sub := subWithItems(item("si_base", "price_base", 1), item("si_add", "price_add", 2))
	sub.Customer = &stripe.Customer{ID: "cus_1"}
	sub.DefaultPaymentMethod = &stripe.PaymentMethod{
		Card: &stripe.PaymentMethodCard{Brand: "visa", Last4: "4242"},
	}

	assert.Equal(t, "cus_1", CustomerID(sub))
	assert.Equal(t, "price_base", FirstPriceID(sub))
	assert.Equal(t, "si_add", ItemForPrice(sub, "price_add").ID)
	assert.Nil(t, ItemForPrice(sub, "price_other"))

	start, end := PeriodBounds(sub)
	assert.Equal(t, int64(1700000000), start)
	assert.Equal(t, int64(1702592000), end)

	brand, last4 := CardDisplay(sub)
	assert.Equal(t, "visa", brand)
	assert.Equal(t, "4242", last4)

	empty := &stripe.Subscription{}
	start, end = PeriodBounds(empty)
	assert.Zero(t, start)
	assert.Zero(t, end)
	brand, last4 = CardDisplay(empty)
	assert.Empty(t, brand)
	assert.Empty(t, last4)
}

func TestInvoiceHelpers(t *testing.T) {
	inv := &stripe.Invoice{
		ID: "in_1",
		Parent: &stripe.InvoiceParent{
			SubscriptionDetails: &stripe.InvoiceParentSubscriptionDetails{
				Subscription: &stripe.Subscription{ID: "sub_1"},
			},
		},
		StatusTransitions: &stripe.InvoiceStatusTransitions{PaidAt: 1700000100},
	}

	assert.Equal(t, "sub_1", InvoiceSubscriptionID(inv))
	if assert.NotNil(t, InvoicePaidAt(inv)) {
		assert.Equal(t, int64(1700000100), *InvoicePaidAt(inv))
	}

	assert.Empty(t, InvoiceSubscriptionID(&stripe.Invoice{}))
	assert.Nil(t, InvoicePaidAt(&stripe.Invoice{}))
}
