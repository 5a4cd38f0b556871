package service

import (
	"time"

	"github.com/hallmail/hallmail/internal/domain/customer"
	"github.com/hallmail/hallmail/internal/domain/subscription"
	"github.com/hallmail/hallmail/internal/testutil"
	"github.com/samber/lo"
	"github.com/stripe/stripe-go/v82"
)

const testCustomerID = "cus_durand"

// serviceSuite wires every service on the in-memory stores and fakes
type serviceSuite struct {
	testutil.BaseServiceTestSuite

	params    ServiceParams
	customers CustomerResolver
	slots     SlotReconciler
	sync      SubscriptionSynchronizer
	billing   BillingService
	gate      ActivationGate
	pipeline  PipelineNotifier
}

func (s *serviceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	stores := s.GetStores()
	fakes := s.GetFakes()
	s.params = NewServiceParams(
		s.GetLogger(),
		s.GetConfig(),
		stores.UserRepo,
		stores.CustomerRepo,
		stores.EmailAccountRepo,
		stores.SubscriptionRepo,
		stores.InvoiceRepo,
		stores.SupportRepo,
		fakes.Stripe,
		s.GetCache(),
		s.GetPoller(),
		fakes.Verifier,
		s.GetEncryption(),
		s.GetEmail(),
		fakes.HTTPClient,
	)

	s.customers = NewCustomerResolver(s.params)
	s.slots = NewSlotReconciler(s.params)
	s.sync = NewSubscriptionSynchronizer(s.params, s.customers, s.slots)
	s.billing = NewBillingService(s.params, s.customers, s.sync)
	s.gate = NewActivationGate(s.params, s.slots)
	s.pipeline = NewPipelineNotifier(s.params)
}

// mapCustomer stores the default user's Stripe customer mapping
func (s *serviceSuite) mapCustomer() {
	s.GetFakes().Stripe.AddCustomer(testCustomerID, map[string]string{"userId": testutil.DefaultUserID})
	s.Require().NoError(s.GetStores().CustomerRepo.Create(s.GetContext(), &customer.Customer{
		UserID:     testutil.DefaultUserID,
		CustomerID: testCustomerID,
	}))
}

// premier registers a premier subscription with extra additional seats
func (s *serviceSuite) premier(id string, age time.Duration, extra int64) *stripe.Subscription {
	items := []testutil.SubscriptionItemSpec{{PriceID: testutil.TestBasePriceID, Quantity: 1}}
	if extra > 0 {
		items = append(items, testutil.SubscriptionItemSpec{PriceID: testutil.TestAdditionalPriceID, Quantity: extra})
	}
	sub := testutil.NewStripeSubscription(id, testCustomerID, stripe.SubscriptionStatusActive, s.GetNow().Add(-age), nil, items...)
	s.GetFakes().Stripe.AddSubscription(sub)
	return sub
}

func (s *serviceSuite) rows() []*subscription.Subscription {
	return s.GetStores().SubscriptionRepo.All(testutil.DefaultUserID)
}

func (s *serviceSuite) row(id string) *subscription.Subscription {
	r, ok := lo.Find(s.rows(), func(r *subscription.Subscription) bool { return r.SubscriptionID == id })
	s.Require().True(ok, "row %s not found", id)
	return r
}

func (s *serviceSuite) seats(parentID string) []*subscription.Subscription {
	return lo.Filter(s.rows(), func(r *subscription.Subscription, _ int) bool {
		return r.IsSeat() && *r.ParentSubscriptionID == parentID && !r.IsDeleted()
	})
}

func unlinked(rows []*subscription.Subscription) []*subscription.Subscription {
	return lo.Filter(rows, func(r *subscription.Subscription, _ int) bool { return !r.IsLinked() })
}
