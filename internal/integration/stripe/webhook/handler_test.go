package webhook

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/hallmail/hallmail/internal/domain/customer"
	ierr "github.com/hallmail/hallmail/internal/errors"
	"github.com/hallmail/hallmail/internal/service"
	"github.com/hallmail/hallmail/internal/testutil"
	stripeapi "github.com/stripe/stripe-go/v82"
	"github.com/stretchr/testify/suite"
)

const customerID = "cus_durand"

type HandlerSuite struct {
	testutil.BaseServiceTestSuite
	handler *Handler
}

func TestHandler(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	stores := s.GetStores()
	fakes := s.GetFakes()
	params := service.NewServiceParams(
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
	customers := service.NewCustomerResolver(params)
	sync := service.NewSubscriptionSynchronizer(params, customers, service.NewSlotReconciler(params))
	s.handler = NewHandler(fakes.Stripe, sync, s.GetCache(), s.GetLogger())

	s.SeedPrimaryAccount("ecfg_primary", "contact@cabinet-durand.fr")
	fakes.Stripe.AddCustomer(customerID, map[string]string{"userId": testutil.DefaultUserID})
	s.Require().NoError(stores.CustomerRepo.Create(s.GetContext(), &customer.Customer{
		UserID:     testutil.DefaultUserID,
		CustomerID: customerID,
	}))
	fakes.Stripe.AddSubscription(testutil.NewStripeSubscription(
		"sub_premier", customerID, stripeapi.SubscriptionStatusActive, s.GetNow().Add(-time.Hour), nil,
		testutil.SubscriptionItemSpec{PriceID: testutil.TestBasePriceID, Quantity: 1},
	))
}

func event(id string, eventType string, raw string) *stripeapi.Event {
	return &stripeapi.Event{
		ID:   id,
		Type: stripeapi.EventType(eventType),
		Data: &stripeapi.EventData{Raw: json.RawMessage(raw)},
	}
}

func subscriptionEvent(id string) *stripeapi.Event {
	return event(id, "customer.subscription.updated",
		fmt.Sprintf(`{"id":"sub_premier","object":"subscription","customer":"%s"}`, customerID))
}

func (s *HandlerSuite) TestSubscriptionEventSyncsCustomer() {
	result, err := s.handler.HandleEvent(s.GetContext(), subscriptionEvent("evt_1"))
	s.Require().NoError(err)
	s.Equal(OutcomeProcessed, result.Outcome)

	row, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), "sub_premier")
	s.Require().NoError(err)
	s.Equal("ecfg_primary", *row.EmailConfigurationID)
}

func (s *HandlerSuite) TestDuplicateDeliveryIsProcessedOnce() {
	_, err := s.handler.HandleEvent(s.GetContext(), subscriptionEvent("evt_1"))
	s.Require().NoError(err)

	result, err := s.handler.HandleEvent(s.GetContext(), subscriptionEvent("evt_1"))
	s.Require().NoError(err)
	s.Equal(OutcomeDuplicate, result.Outcome)
	s.Equal(1, s.GetFakes().Stripe.Called("ListSubscriptions"))
}

func (s *HandlerSuite) TestUnsupportedEventIsAcknowledged() {
	result, err := s.handler.HandleEvent(s.GetContext(), event("evt_2", "customer.created", `{"id":"cus_other"}`))
	s.Require().NoError(err)
	s.Equal(OutcomeIgnored, result.Outcome)
	s.Empty(s.GetFakes().Stripe.Calls)
}

func (s *HandlerSuite) TestSignatureIsCheckedFirst() {
	_, err := s.handler.HandleRequest(s.GetContext(), []byte(`{}`), "")
	s.Require().Error(err)
	s.True(ierr.IsValidation(err))
	s.Zero(s.GetFakes().Stripe.Called("ListSubscriptions"))

	s.GetFakes().Stripe.Event = subscriptionEvent("evt_3")
	result, err := s.handler.HandleRequest(s.GetContext(), []byte(`{}`), "t=1,v1=abc")
	s.Require().NoError(err)
	s.Equal(OutcomeProcessed, result.Outcome)
}

func (s *HandlerSuite) TestInvoicePaidIsStored() {
	raw := fmt.Sprintf(`{"id":"in_1","object":"invoice","customer":"%s","amount_paid":2900,"currency":"eur","status":"paid","status_transitions":{"paid_at":1700000000}}`, customerID)

	result, err := s.handler.HandleEvent(s.GetContext(), event("evt_4", "invoice.payment_succeeded", raw))
	s.Require().NoError(err)
	s.Equal(OutcomeProcessed, result.Outcome)

	invoices, err := s.GetStores().InvoiceRepo.ListByUser(s.GetContext(), testutil.DefaultUserID)
	s.Require().NoError(err)
	s.Require().Len(invoices, 1)
	s.Equal(int64(2900), invoices[0].AmountPaid)
	s.Equal(int64(1700000000), *invoices[0].PaidAt)
	s.Equal(1, s.GetFakes().Stripe.Called("ListSubscriptions"))
}

func (s *HandlerSuite) TestCheckoutCompletedSyncsCustomer() {
	raw := fmt.Sprintf(`{"id":"cs_1","object":"checkout.session","customer":"%s"}`, customerID)

	result, err := s.handler.HandleEvent(s.GetContext(), event("evt_5", "checkout.session.completed", raw))
	s.Require().NoError(err)
	s.Equal(OutcomeProcessed, result.Outcome)
	s.Equal(1, s.GetFakes().Stripe.Called("ListSubscriptions"))
}

func (s *HandlerSuite) TestFailedEventCanBeRetried() {
	s.GetFakes().Stripe.Errors["ListSubscriptions"] = ierr.NewError("stripe unavailable").Mark(ierr.ErrHTTPClient)

	_, err := s.handler.HandleEvent(s.GetContext(), subscriptionEvent("evt_6"))
	s.Require().Error(err)
	s.True(ierr.IsHTTPClient(err))

	delete(s.GetFakes().Stripe.Errors, "ListSubscriptions")
	result, err := s.handler.HandleEvent(s.GetContext(), subscriptionEvent("evt_6"))
	s.Require().NoError(err)
	s.Equal(OutcomeProcessed, result.Outcome)
}

func (s *HandlerSuite) TestUnknownCustomerIsSkipped() {
	raw := `{"id":"sub_x","object":"subscription","customer":"cus_nobody"}`

	result, err := s.handler.HandleEvent(s.GetContext(), event("evt_7", "customer.subscription.created", raw))
	s.Require().NoError(err)
	s.Equal(OutcomeSkipped, result.Outcome)
	s.Zero(s.GetFakes().Stripe.Called("ListSubscriptions"))
}
