package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	ierr "github.com/hallmail/hallmail/internal/errors"
	stripeint "github.com/hallmail/hallmail/internal/integration/stripe"
	"github.com/hallmail/hallmail/internal/types"
	"github.com/samber/lo"
	"github.com/stripe/stripe-go/v82"
)

// FakeStripe implements stripeint.Gateway on in-memory customers and
// subscriptions. Failures can be injected per operation through Errors.
type FakeStripe struct {
	mu sync.Mutex

	seq           int
	customers     map[string]*stripe.Customer
	subscriptions map[string]*stripe.Subscription
	invoices      map[string][]*stripe.Invoice

	// Errors maps an operation name (e.g. "CreateCustomer") to the error it
	// returns
	Errors map[string]error
	// Calls records every operation in order
	Calls []string
	// Checkouts records the inputs of created checkout sessions
	Checkouts []*stripeint.CheckoutSessionInput
	// DeletedCustomers records the ids passed to DeleteCustomer
	DeletedCustomers []string

	// Event is returned by ConstructEvent when set
	Event *stripe.Event
}

func NewFakeStripe() *FakeStripe {
	return &FakeStripe{
		customers:     make(map[string]*stripe.Customer),
		subscriptions: make(map[string]*stripe.Subscription),
		invoices:      make(map[string][]*stripe.Invoice),
		Errors:        make(map[string]error),
	}
}

var _ stripeint.Gateway = (*FakeStripe)(nil)

func (f *FakeStripe) call(op string) error {
	f.Calls = append(f.Calls, op)
	return f.Errors[op]
}

// Called reports how many times op was invoked
func (f *FakeStripe) Called(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return lo.Count(f.Calls, op)
}

func (f *FakeStripe) notFound(kind, id string) error {
	return ierr.NewError("stripe resource not found").
		WithHintf("The billing %s %s was not found", kind, id).
		Mark(ierr.ErrNotFound)
}

// AddCustomer registers a customer, metadata may be nil
func (f *FakeStripe) AddCustomer(id string, metadata map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.customers[id] = &stripe.Customer{ID: id, Metadata: metadata}
}

// AddSubscription registers or replaces a subscription
func (f *FakeStripe) AddSubscription(sub *stripe.Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscriptions[sub.ID] = sub
}

// AddInvoice registers an invoice for a customer
func (f *FakeStripe) AddInvoice(customerID string, inv *stripe.Invoice) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invoices[customerID] = append(f.invoices[customerID], inv)
}

// Subscription returns the stored subscription for assertions
func (f *FakeStripe) Subscription(id string) *stripe.Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	return copyStripeSubscription(f.subscriptions[id])
}

func (f *FakeStripe) CreateCustomer(_ context.Context, email string, userID string) (*stripe.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("CreateCustomer"); err != nil {
		return nil, err
	}

	f.seq++
	cust := &stripe.Customer{
		ID:       fmt.Sprintf("cus_test_%d", f.seq),
		Email:    email,
		Metadata: map[string]string{types.MetadataKeyCustomerUserID: userID},
	}
	f.customers[cust.ID] = cust
	return cust, nil
}

func (f *FakeStripe) DeleteCustomer(_ context.Context, customerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("DeleteCustomer"); err != nil {
		return err
	}
	f.DeletedCustomers = append(f.DeletedCustomers, customerID)
	delete(f.customers, customerID)
	return nil
}

func (f *FakeStripe) RetrieveCustomer(_ context.Context, customerID string) (*stripe.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("RetrieveCustomer"); err != nil {
		return nil, err
	}
	cust, ok := f.customers[customerID]
	if !ok {
		return nil, f.notFound("customer", customerID)
	}
	cp := *cust
	return &cp, nil
}

func (f *FakeStripe) ListSubscriptions(_ context.Context, customerID string) ([]*stripe.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("ListSubscriptions"); err != nil {
		return nil, err
	}

	var subs []*stripe.Subscription
	for _, sub := range f.subscriptions {
		if stripeint.CustomerID(sub) == customerID {
			subs = append(subs, copyStripeSubscription(sub))
		}
	}
	return subs, nil
}

func (f *FakeStripe) RetrieveSubscription(_ context.Context, subscriptionID string) (*stripe.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("RetrieveSubscription"); err != nil {
		return nil, err
	}
	sub, ok := f.subscriptions[subscriptionID]
	if !ok {
		return nil, f.notFound("subscription", subscriptionID)
	}
	return copyStripeSubscription(sub), nil
}

func (f *FakeStripe) SetCancelAtPeriodEnd(_ context.Context, subscriptionID string, cancel bool) (*stripe.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("SetCancelAtPeriodEnd"); err != nil {
		return nil, err
	}
	sub, ok := f.subscriptions[subscriptionID]
	if !ok {
		return nil, f.notFound("subscription", subscriptionID)
	}
	sub.CancelAtPeriodEnd = cancel
	return copyStripeSubscription(sub), nil
}

func (f *FakeStripe) UpdateItemQuantity(_ context.Context, itemID string, quantity int64) (*stripe.SubscriptionItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("UpdateItemQuantity"); err != nil {
		return nil, err
	}
	for _, sub := range f.subscriptions {
		for _, item := range stripeint.Items(sub) {
			if item.ID == itemID {
				item.Quantity = quantity
				cp := *item
				return &cp, nil
			}
		}
	}
	return nil, f.notFound("subscription item", itemID)
}

func (f *FakeStripe) CreateCheckoutSession(_ context.Context, input *stripeint.CheckoutSessionInput) (*stripe.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("CreateCheckoutSession"); err != nil {
		return nil, err
	}
	f.seq++
	f.Checkouts = append(f.Checkouts, input)
	id := fmt.Sprintf("cs_test_%d", f.seq)
	return &stripe.CheckoutSession{
		ID:  id,
		URL: "https://checkout.stripe.com/c/pay/" + id,
	}, nil
}

func (f *FakeStripe) CreatePortalSession(_ context.Context, customerID string, returnURL string) (*stripe.BillingPortalSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("CreatePortalSession"); err != nil {
		return nil, err
	}
	return &stripe.BillingPortalSession{
		ID:        "bps_" + customerID,
		Customer:  customerID,
		ReturnURL: returnURL,
		URL:       "https://billing.stripe.com/p/session/" + customerID,
	}, nil
}

func (f *FakeStripe) ListInvoices(_ context.Context, customerID string) ([]*stripe.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("ListInvoices"); err != nil {
		return nil, err
	}
	return append([]*stripe.Invoice(nil), f.invoices[customerID]...), nil
}

func (f *FakeStripe) ConstructEvent(payload []byte, signature string) (*stripe.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("ConstructEvent"); err != nil {
		return nil, err
	}
	if signature == "" {
		return nil, ierr.NewError("missing stripe-signature header").
			WithHint("Missing stripe-signature header").
			Mark(ierr.ErrValidation)
	}
	if f.Event == nil {
		return nil, ierr.NewError("no event").
			WithHint("Invalid webhook signature or payload").
			Mark(ierr.ErrValidation)
	}
	return f.Event, nil
}

func copyStripeSubscription(sub *stripe.Subscription) *stripe.Subscription {
	if sub == nil {
		return nil
	}
	cp := *sub
	if sub.Items != nil {
		items := &stripe.SubscriptionItemList{}
		for _, item := range sub.Items.Data {
			ic := *item
			items.Data = append(items.Data, &ic)
		}
		cp.Items = items
	}
	if sub.Metadata != nil {
		cp.Metadata = lo.Assign(sub.Metadata)
	}
	return &cp
}

// SubscriptionItemSpec describes one line item of a test subscription
type SubscriptionItemSpec struct {
	PriceID  string
	Quantity int64
}

// NewStripeSubscription builds a subscription snapshot with a billing
// period starting at created
func NewStripeSubscription(
	id string,
	customerID string,
	status stripe.SubscriptionStatus,
	created time.Time,
	metadata map[string]string,
	items ...SubscriptionItemSpec,
) *stripe.Subscription {
	start := created.Unix()
	end := created.AddDate(0, 1, 0).Unix()

	sub := &stripe.Subscription{
		ID:       id,
		Customer: &stripe.Customer{ID: customerID},
		Status:   status,
		Created:  start,
		Metadata: metadata,
		Items:    &stripe.SubscriptionItemList{},
		DefaultPaymentMethod: &stripe.PaymentMethod{
			Card: &stripe.PaymentMethodCard{Brand: "visa", Last4: "4242"},
		},
	}
	for i, spec := range items {
		sub.Items.Data = append(sub.Items.Data, &stripe.SubscriptionItem{
			ID:                 fmt.Sprintf("si_%s_%d", id, i+1),
			Price:              &stripe.Price{ID: spec.PriceID},
			Quantity:           spec.Quantity,
			CurrentPeriodStart: start,
			CurrentPeriodEnd:   end,
			Subscription:       id,
		})
	}
	return sub
}
