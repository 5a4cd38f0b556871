package service

import (
	"testing"
	"time"

	"github.com/hallmail/hallmail/internal/api/dto"
	"github.com/hallmail/hallmail/internal/domain/subscription"
	ierr "github.com/hallmail/hallmail/internal/errors"
	stripeint "github.com/hallmail/hallmail/internal/integration/stripe"
	"github.com/hallmail/hallmail/internal/testutil"
	"github.com/hallmail/hallmail/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
	"github.com/stripe/stripe-go/v82"
)

type BillingServiceSuite struct {
	serviceSuite
}

func TestBillingService(t *testing.T) {
	suite.Run(t, new(BillingServiceSuite))
}

func (s *BillingServiceSuite) checkoutRequest(priceID string, additional int64) *dto.CreateCheckoutRequest {
	return &dto.CreateCheckoutRequest{
		PriceID:            priceID,
		SuccessURL:         "https://app.hallmail.fr/billing?checkout=success",
		CancelURL:          "https://app.hallmail.fr/billing?checkout=cancel",
		Mode:               types.CheckoutModeSubscription,
		AdditionalAccounts: additional,
	}
}

func (s *BillingServiceSuite) accountView(id string) *dto.AccountView {
	view, err := s.gate.AccountsView(s.GetContext(), testutil.DefaultUserID)
	s.Require().NoError(err)
	found, ok := lo.Find(view.Accounts, func(a *dto.AccountView) bool { return a.ID == id })
	s.Require().True(ok, "account %s not in view", id)
	return found
}

// syncedPremier sets up a primary mailbox, one additional mailbox and a
// live premier paying for extra seats
func (s *BillingServiceSuite) syncedPremier(extra int64) {
	s.SeedPrimaryAccount("ecfg_primary", "contact@cabinet-durand.fr")
	s.SeedAccount("ecfg_compta", "compta@cabinet-durand.fr", time.Hour)
	s.mapCustomer()
	s.premier("sub_premier", 24*time.Hour, extra)
	_, err := s.sync.SyncCustomer(s.GetContext(), testCustomerID)
	s.Require().NoError(err)
}

func (s *BillingServiceSuite) TestCheckoutForNewCustomer() {
	s.SeedPrimaryAccount("ecfg_primary", "contact@cabinet-durand.fr")

	resp, err := s.billing.CreateCheckout(s.GetContext(), testutil.DefaultUserID, testutil.DefaultUserEmail,
		s.checkoutRequest(testutil.TestBasePriceID, 2))
	s.Require().NoError(err)
	s.NotEmpty(resp.URL)
	s.NotEmpty(resp.SessionID)

	mapping, err := s.GetStores().CustomerRepo.GetByUserID(s.GetContext(), testutil.DefaultUserID)
	s.Require().NoError(err)

	placeholder := s.row(subscription.PlaceholderID(mapping.CustomerID))
	s.Equal(types.SubscriptionStatusNotStarted, placeholder.Status)
	s.Equal(types.SubscriptionTypePremier, placeholder.SubscriptionType)
	s.Equal("ecfg_primary", lo.FromPtr(placeholder.EmailConfigurationID))

	checkouts := s.GetFakes().Stripe.Checkouts
	s.Require().Len(checkouts, 1)
	input := checkouts[0]
	s.Equal(mapping.CustomerID, input.CustomerID)
	s.Equal([]stripeint.LineItem{
		{PriceID: testutil.TestBasePriceID, Quantity: 1},
		{PriceID: testutil.TestAdditionalPriceID, Quantity: 2},
	}, input.LineItems)
	s.Equal(testutil.DefaultUserID, input.Metadata[types.MetadataKeyUserID])
	s.Equal(string(types.SubscriptionTypePremier), input.Metadata[types.MetadataKeyType])
	s.Equal(testutil.DefaultUserEmail, input.Metadata[types.MetadataKeyPrimaryEmail])
}

func (s *BillingServiceSuite) TestCheckoutReusesExistingCustomer() {
	s.mapCustomer()

	_, err := s.billing.CreateCheckout(s.GetContext(), testutil.DefaultUserID, testutil.DefaultUserEmail,
		s.checkoutRequest(testutil.TestBasePriceID, 0))
	s.Require().NoError(err)
	s.Zero(s.GetFakes().Stripe.Called("CreateCustomer"))
	s.Equal(testCustomerID, s.GetFakes().Stripe.Checkouts[0].CustomerID)
}

func (s *BillingServiceSuite) TestCheckoutAdditionalAccount() {
	s.Run("requires an existing customer", func() {
		_, err := s.billing.CreateCheckout(s.GetContext(), testutil.DefaultUserID, testutil.DefaultUserEmail,
			s.checkoutRequest(testutil.TestAdditionalPriceID, 1))
		s.Require().Error(err)
		s.True(ierr.IsNotFound(err))
		s.Zero(s.GetFakes().Stripe.Called("CreateCustomer"))
	})

	s.Run("bills the requested quantity", func() {
		s.mapCustomer()
		req := s.checkoutRequest(testutil.TestAdditionalPriceID, 0)
		req.EmailConfigurationID = "ecfg_compta"

		_, err := s.billing.CreateCheckout(s.GetContext(), testutil.DefaultUserID, testutil.DefaultUserEmail, req)
		s.Require().NoError(err)

		input := s.GetFakes().Stripe.Checkouts[0]
		s.Equal([]stripeint.LineItem{{PriceID: testutil.TestAdditionalPriceID, Quantity: 1}}, input.LineItems)
		s.Equal(string(types.SubscriptionTypeAdditionalAccount), input.Metadata[types.MetadataKeyType])
		s.Equal("ecfg_compta", input.Metadata[types.MetadataKeyEmailConfigurationID])
	})
}

func (s *BillingServiceSuite) TestCheckoutValidation() {
	tests := []struct {
		name  string
		req   *dto.CreateCheckoutRequest
		check func(error) bool
	}{
		{
			name:  "unknown price",
			req:   s.checkoutRequest("price_unknown", 0),
			check: ierr.IsValidation,
		},
		{
			name: "missing success url",
			req: func() *dto.CreateCheckoutRequest {
				r := s.checkoutRequest(testutil.TestBasePriceID, 0)
				r.SuccessURL = ""
				return r
			}(),
			check: ierr.IsValidation,
		},
		{
			name: "unsupported mode",
			req: func() *dto.CreateCheckoutRequest {
				r := s.checkoutRequest(testutil.TestBasePriceID, 0)
				r.Mode = "setup"
				return r
			}(),
			check: ierr.IsValidation,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.billing.CreateCheckout(s.GetContext(), testutil.DefaultUserID, testutil.DefaultUserEmail, tt.req)
			s.Require().Error(err)
			s.True(tt.check(err))
		})
	}
	s.Empty(s.GetFakes().Stripe.Calls)
}

func (s *BillingServiceSuite) TestCheckoutWithoutStripeConfig() {
	s.GetConfig().Stripe.SecretKey = ""

	_, err := s.billing.CreateCheckout(s.GetContext(), testutil.DefaultUserID, testutil.DefaultUserEmail,
		s.checkoutRequest(testutil.TestBasePriceID, 0))
	s.Require().Error(err)
	s.True(ierr.IsConfiguration(err))
	s.Less(ierr.HTTPStatusFromErr(err), 500)
}

func (s *BillingServiceSuite) TestCustomerCreationIsCompensated() {
	s.Run("mapping insert fails", func() {
		s.GetStores().CustomerRepo.CreateErr = ierr.NewError("connection reset").Mark(ierr.ErrDatabase)
		defer func() { s.GetStores().CustomerRepo.CreateErr = nil }()

		_, err := s.billing.CreateCheckout(s.GetContext(), testutil.DefaultUserID, testutil.DefaultUserEmail,
			s.checkoutRequest(testutil.TestBasePriceID, 0))
		s.Require().Error(err)

		s.Equal([]string{"cus_test_1"}, s.GetFakes().Stripe.DeletedCustomers)
		s.Empty(s.rows())
		s.Empty(s.GetFakes().Stripe.Checkouts)
	})

	s.Run("placeholder insert fails", func() {
		s.GetStores().SubscriptionRepo.UpsertErr = func(*subscription.Subscription) error {
			return ierr.NewError("connection reset").Mark(ierr.ErrDatabase)
		}
		defer func() { s.GetStores().SubscriptionRepo.UpsertErr = nil }()

		_, err := s.billing.CreateCheckout(s.GetContext(), testutil.DefaultUserID, testutil.DefaultUserEmail,
			s.checkoutRequest(testutil.TestBasePriceID, 0))
		s.Require().Error(err)

		s.Equal([]string{"cus_test_1", "cus_test_2"}, s.GetFakes().Stripe.DeletedCustomers)
		_, err = s.GetStores().CustomerRepo.GetByUserID(s.GetContext(), testutil.DefaultUserID)
		s.True(ierr.IsNotFound(err))
		s.Empty(s.rows())
	})
}

func (s *BillingServiceSuite) TestCancelAndReactivatePremier() {
	s.syncedPremier(0)
	req := &dto.SubscriptionActionRequest{
		SubscriptionType:     types.SubscriptionTypePremier,
		EmailConfigurationID: "ecfg_primary",
	}

	resp, err := s.billing.Cancel(s.GetContext(), testutil.DefaultUserID, req)
	s.Require().NoError(err)
	s.Equal("sub_premier", resp.SubscriptionID)
	s.True(resp.CancelAtPeriodEnd)
	s.False(resp.Pending)
	s.True(s.GetFakes().Stripe.Subscription("sub_premier").CancelAtPeriodEnd)

	row := s.row("sub_premier")
	s.True(row.CancelAtPeriodEnd)
	s.False(row.IsDeleted())

	primary, err := s.GetStores().EmailAccountRepo.Get(s.GetContext(), "ecfg_primary")
	s.Require().NoError(err)
	s.True(primary.IsActive)
	s.True(primary.IsPrimary)

	view := s.accountView("ecfg_primary")
	s.Equal(types.AccountStateCancelScheduled, view.State)
	s.True(view.CanReactivate)
	s.False(view.CanCancel)

	resp, err = s.billing.Reactivate(s.GetContext(), testutil.DefaultUserID, req)
	s.Require().NoError(err)
	s.Equal("sub_premier", resp.SubscriptionID)
	s.False(resp.CancelAtPeriodEnd)
	s.False(s.row("sub_premier").CancelAtPeriodEnd)

	view = s.accountView("ecfg_primary")
	s.Equal(types.AccountStateActive, view.State)
	s.True(view.CanCancel)
	s.Equal("sub_premier", view.SubscriptionID)
}

func (s *BillingServiceSuite) TestCancelAdditionalSeatIsScheduled() {
	s.syncedPremier(2)
	req := &dto.SubscriptionActionRequest{
		SubscriptionType:     types.SubscriptionTypeAdditionalAccount,
		EmailConfigurationID: "ecfg_compta",
	}

	resp, err := s.billing.Cancel(s.GetContext(), testutil.DefaultUserID, req)
	s.Require().NoError(err)
	s.True(resp.CancelAtPeriodEnd)

	seat := s.row(resp.SubscriptionID)
	s.True(seat.IsSeat())
	s.True(seat.RemovalScheduled)
	s.True(seat.CancelAtPeriodEnd)
	s.False(seat.IsDeleted())
	s.Equal("ecfg_compta", lo.FromPtr(seat.EmailConfigurationID))
	s.Len(s.seats("sub_premier"), 2)

	parent := s.GetFakes().Stripe.Subscription("sub_premier")
	s.Equal(int64(1), stripeint.QuantityForPrice(parent, testutil.TestAdditionalPriceID))

	compta, err := s.GetStores().EmailAccountRepo.Get(s.GetContext(), "ecfg_compta")
	s.Require().NoError(err)
	s.True(compta.IsActive)
	s.Equal(types.AccountStateCancelScheduled, s.accountView("ecfg_compta").State)

	resp, err = s.billing.Reactivate(s.GetContext(), testutil.DefaultUserID, req)
	s.Require().NoError(err)
	s.Equal(seat.SubscriptionID, resp.SubscriptionID)
	s.False(resp.CancelAtPeriodEnd)

	seat = s.row(seat.SubscriptionID)
	s.False(seat.RemovalScheduled)
	s.False(seat.CancelAtPeriodEnd)
	parent = s.GetFakes().Stripe.Subscription("sub_premier")
	s.Equal(int64(2), stripeint.QuantityForPrice(parent, testutil.TestAdditionalPriceID))
	s.Len(s.seats("sub_premier"), 2)
	s.Equal(types.AccountStateActive, s.accountView("ecfg_compta").State)
}

// standalone registers an additional_account subscription billed on its own
func (s *BillingServiceSuite) standalone(id string, link string) {
	var metadata map[string]string
	if link != "" {
		metadata = map[string]string{types.MetadataKeyEmailConfigurationID: link}
	}
	s.GetFakes().Stripe.AddSubscription(testutil.NewStripeSubscription(id, testCustomerID,
		stripe.SubscriptionStatusActive, s.GetNow().Add(-2*time.Hour), metadata,
		testutil.SubscriptionItemSpec{PriceID: testutil.TestAdditionalPriceID, Quantity: 1}))
}

func (s *BillingServiceSuite) TestCancelStandaloneAdditionalSubscription() {
	s.SeedPrimaryAccount("ecfg_primary", "contact@cabinet-durand.fr")
	s.SeedAccount("ecfg_compta", "compta@cabinet-durand.fr", time.Hour)
	s.mapCustomer()
	s.premier("sub_premier", 24*time.Hour, 0)
	s.standalone("sub_extra", "ecfg_compta")
	_, err := s.sync.SyncCustomer(s.GetContext(), testCustomerID)
	s.Require().NoError(err)
	s.Equal("ecfg_compta", lo.FromPtr(s.row("sub_extra").EmailConfigurationID))

	req := &dto.SubscriptionActionRequest{
		SubscriptionType:     types.SubscriptionTypeAdditionalAccount,
		EmailConfigurationID: "ecfg_compta",
	}

	resp, err := s.billing.Cancel(s.GetContext(), testutil.DefaultUserID, req)
	s.Require().NoError(err)
	s.Equal("sub_extra", resp.SubscriptionID)
	s.True(resp.CancelAtPeriodEnd)
	s.True(s.GetFakes().Stripe.Subscription("sub_extra").CancelAtPeriodEnd)
	s.False(s.GetFakes().Stripe.Subscription("sub_premier").CancelAtPeriodEnd)
	s.Zero(s.GetFakes().Stripe.Called("UpdateItemQuantity"))

	row := s.row("sub_extra")
	s.True(row.CancelAtPeriodEnd)
	s.False(row.IsDeleted())
	s.False(row.RemovalScheduled)
	s.Equal("ecfg_compta", lo.FromPtr(row.EmailConfigurationID))

	compta, err := s.GetStores().EmailAccountRepo.Get(s.GetContext(), "ecfg_compta")
	s.Require().NoError(err)
	s.True(compta.IsActive)
	s.Equal(types.AccountStateCancelScheduled, s.accountView("ecfg_compta").State)

	resp, err = s.billing.Reactivate(s.GetContext(), testutil.DefaultUserID, req)
	s.Require().NoError(err)
	s.Equal("sub_extra", resp.SubscriptionID)
	s.False(resp.CancelAtPeriodEnd)
	s.False(s.GetFakes().Stripe.Subscription("sub_extra").CancelAtPeriodEnd)
	s.False(s.row("sub_extra").CancelAtPeriodEnd)
	s.Equal(types.AccountStateActive, s.accountView("ecfg_compta").State)
}

func (s *BillingServiceSuite) TestCancelFallsBackToUnlinkedStandaloneSubscription() {
	s.SeedPrimaryAccount("ecfg_primary", "contact@cabinet-durand.fr")
	s.mapCustomer()
	s.premier("sub_premier", 24*time.Hour, 0)
	s.standalone("sub_extra", "")
	_, err := s.sync.SyncCustomer(s.GetContext(), testCustomerID)
	s.Require().NoError(err)
	s.False(s.row("sub_extra").IsLinked())

	// connected after the last sync, so nothing links to it yet
	s.SeedAccount("ecfg_compta", "compta@cabinet-durand.fr", time.Hour)

	resp, err := s.billing.Cancel(s.GetContext(), testutil.DefaultUserID, &dto.SubscriptionActionRequest{
		SubscriptionType:     types.SubscriptionTypeAdditionalAccount,
		EmailConfigurationID: "ecfg_compta",
	})
	s.Require().NoError(err)
	s.Equal("sub_extra", resp.SubscriptionID)
	s.True(s.GetFakes().Stripe.Subscription("sub_extra").CancelAtPeriodEnd)
	s.False(s.GetFakes().Stripe.Subscription("sub_premier").CancelAtPeriodEnd)
	s.True(s.row("sub_extra").CancelAtPeriodEnd)
}

func (s *BillingServiceSuite) TestRemovedSeatEndsAtRenewal() {
	s.syncedPremier(2)
	resp, err := s.billing.Cancel(s.GetContext(), testutil.DefaultUserID, &dto.SubscriptionActionRequest{
		SubscriptionType:     types.SubscriptionTypeAdditionalAccount,
		EmailConfigurationID: "ecfg_compta",
	})
	s.Require().NoError(err)

	// the parent renews into the next period
	parent := s.GetFakes().Stripe.Subscription("sub_premier")
	for _, item := range parent.Items.Data {
		item.CurrentPeriodStart = item.CurrentPeriodEnd
		item.CurrentPeriodEnd = item.CurrentPeriodEnd + 30*24*3600
	}
	s.GetFakes().Stripe.AddSubscription(parent)

	result, err := s.sync.SyncCustomer(s.GetContext(), testCustomerID)
	s.Require().NoError(err)
	s.Equal(1, result.SlotsRetired)

	seat := s.row(resp.SubscriptionID)
	s.True(seat.IsDeleted())

	remaining := s.seats("sub_premier")
	s.Require().Len(remaining, 1)
	s.False(remaining[0].IsLinked())
	s.Equal(types.AccountStateResiliated, s.accountView("ecfg_compta").State)
}

func (s *BillingServiceSuite) TestCancelRejections() {
	s.syncedPremier(2)

	s.Run("unconfigured slot", func() {
		slot := unlinked(s.seats("sub_premier"))[0]
		_, err := s.billing.Cancel(s.GetContext(), testutil.DefaultUserID, &dto.SubscriptionActionRequest{
			SubscriptionID:   slot.SubscriptionID,
			SubscriptionType: types.SubscriptionTypeAdditionalAccount,
		})
		s.Require().Error(err)
		s.True(ierr.IsInvalidOperation(err))
	})

	s.Run("unknown subscription", func() {
		_, err := s.billing.Cancel(s.GetContext(), testutil.DefaultUserID, &dto.SubscriptionActionRequest{
			SubscriptionID:   "sub_missing",
			SubscriptionType: types.SubscriptionTypePremier,
		})
		s.Require().Error(err)
		s.True(ierr.IsNotFound(err))
	})

	s.Run("additional without target", func() {
		_, err := s.billing.Cancel(s.GetContext(), testutil.DefaultUserID, &dto.SubscriptionActionRequest{
			SubscriptionType: types.SubscriptionTypeAdditionalAccount,
		})
		s.Require().Error(err)
		s.True(ierr.IsValidation(err))
	})

	s.Zero(s.GetFakes().Stripe.Called("SetCancelAtPeriodEnd"))
	s.Zero(s.GetFakes().Stripe.Called("UpdateItemQuantity"))
}

func (s *BillingServiceSuite) TestCancelPlaceholderIsRejected() {
	s.SeedPrimaryAccount("ecfg_primary", "contact@cabinet-durand.fr")
	s.mapCustomer()
	_, err := s.sync.SyncCustomer(s.GetContext(), testCustomerID)
	s.Require().NoError(err)

	_, err = s.billing.Cancel(s.GetContext(), testutil.DefaultUserID, &dto.SubscriptionActionRequest{
		SubscriptionType:     types.SubscriptionTypePremier,
		EmailConfigurationID: "ecfg_primary",
	})
	s.Require().Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *BillingServiceSuite) TestForceSync() {
	s.syncedPremier(1)

	resp, err := s.billing.ForceSync(s.GetContext(), testutil.DefaultUserID, testutil.DefaultUserEmail, &dto.SyncRequest{})
	s.Require().NoError(err)
	s.True(resp.Success)
	s.Equal(testCustomerID, resp.CustomerID)
	s.Equal(types.SubscriptionStatusActive, resp.PremierStatus)
	s.Equal(1, resp.Subscriptions)
	s.False(resp.Pending)
	s.Empty(s.GetFakes().Timer.Waits())
}

func (s *BillingServiceSuite) TestForceSyncWaitingForCheckoutTimesOut() {
	s.SeedPrimaryAccount("ecfg_primary", "contact@cabinet-durand.fr")
	s.mapCustomer()

	resp, err := s.billing.ForceSync(s.GetContext(), testutil.DefaultUserID, testutil.DefaultUserEmail,
		&dto.SyncRequest{Wait: types.SyncWaitCheckout})
	s.Require().NoError(err)
	s.True(resp.Pending)
	s.Equal(types.SubscriptionStatusNotStarted, resp.PremierStatus)
	s.Equal(0, resp.Subscriptions)

	// one sync up front, then 4 polling attempts 1s apart within 3s
	s.Equal([]time.Duration{time.Second, time.Second, time.Second}, s.GetFakes().Timer.Waits())
	s.Equal(5, s.GetFakes().Stripe.Called("ListSubscriptions"))
}

func (s *BillingServiceSuite) TestForceSyncCreatesCustomer() {
	resp, err := s.billing.ForceSync(s.GetContext(), testutil.DefaultUserID, testutil.DefaultUserEmail, &dto.SyncRequest{})
	s.Require().NoError(err)
	s.Equal("cus_test_1", resp.CustomerID)
	s.Equal(types.SubscriptionStatusNotStarted, resp.PremierStatus)
}

func (s *BillingServiceSuite) TestPortalSession() {
	s.Run("without customer", func() {
		_, err := s.billing.CreatePortalSession(s.GetContext(), testutil.DefaultUserID, &dto.PortalSessionRequest{})
		s.Require().Error(err)
		s.True(ierr.IsNotFound(err))
	})

	s.Run("with customer", func() {
		s.mapCustomer()
		resp, err := s.billing.CreatePortalSession(s.GetContext(), testutil.DefaultUserID, &dto.PortalSessionRequest{})
		s.Require().NoError(err)
		s.Contains(resp.URL, testCustomerID)
	})
}
