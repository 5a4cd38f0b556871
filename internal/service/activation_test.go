package service

import (
	"errors"
	"testing"
	"time"

	"github.com/hallmail/hallmail/internal/api/dto"
	"github.com/hallmail/hallmail/internal/domain/emailaccount"
	"github.com/hallmail/hallmail/internal/domain/subscription"
	"github.com/hallmail/hallmail/internal/testutil"
	"github.com/hallmail/hallmail/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

func TestDeriveState(t *testing.T) {
	account := &emailaccount.EmailAccount{ID: "ecfg_1", Provider: types.EmailProviderGmail}
	deletedAt := time.Now()

	tests := []struct {
		name    string
		account *emailaccount.EmailAccount
		linked  *subscription.Subscription
		want    AccountStatus
	}{
		{
			name:    "slot provider",
			account: &emailaccount.EmailAccount{ID: "slot_1", Provider: types.EmailProviderSlot},
			want:    AccountStatus{State: types.AccountStateSlot},
		},
		{
			name:    "no subscription",
			account: account,
			want:    AccountStatus{State: types.AccountStateInactive, CanSubscribe: true},
		},
		{
			name:    "active",
			account: account,
			linked:  &subscription.Subscription{Status: types.SubscriptionStatusActive},
			want:    AccountStatus{State: types.AccountStateActive, CanCancel: true},
		},
		{
			name:    "trialing with scheduled cancellation",
			account: account,
			linked:  &subscription.Subscription{Status: types.SubscriptionStatusTrialing, CancelAtPeriodEnd: true},
			want:    AccountStatus{State: types.AccountStateCancelScheduled, CanReactivate: true},
		},
		{
			name:    "deleted",
			account: account,
			linked:  &subscription.Subscription{Status: types.SubscriptionStatusCanceled, DeletedAt: &deletedAt},
			want:    AccountStatus{State: types.AccountStateResiliated, CanSubscribe: true},
		},
		{
			name:    "superseded while still active on stripe",
			account: account,
			linked:  &subscription.Subscription{Status: types.SubscriptionStatusActive, DeletedAt: &deletedAt},
			want:    AccountStatus{State: types.AccountStateResiliated, CanSubscribe: true},
		},
		{
			name:    "past due",
			account: account,
			linked:  &subscription.Subscription{Status: types.SubscriptionStatusPastDue},
			want:    AccountStatus{State: types.AccountStateInactive, CanSubscribe: true},
		},
		{
			name:    "not started",
			account: account,
			linked:  &subscription.Subscription{Status: types.SubscriptionStatusNotStarted},
			want:    AccountStatus{State: types.AccountStateInactive, CanSubscribe: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveState(tt.account, tt.linked))
		})
	}
}

type ActivationGateSuite struct {
	serviceSuite
}

func TestActivationGate(t *testing.T) {
	suite.Run(t, new(ActivationGateSuite))
}

func (s *ActivationGateSuite) TestSlotsFollowPaidMinusConfigured() {
	s.SeedPrimaryAccount("ecfg_primary", "contact@cabinet-durand.fr")
	s.mapCustomer()
	s.premier("sub_premier", 24*time.Hour, 2)
	_, err := s.sync.SyncCustomer(s.GetContext(), testCustomerID)
	s.Require().NoError(err)

	view, err := s.gate.AccountsView(s.GetContext(), testutil.DefaultUserID)
	s.Require().NoError(err)

	s.Equal(int64(3), view.Billing.TotalPaidSeats)
	s.Equal(int64(1), view.Billing.ConfiguredAccounts)
	s.Equal(int64(2), view.Billing.Slots)
	s.Equal("sub_premier", view.Billing.PremierSubscriptionID)
	s.Equal(types.SubscriptionStatusActive, view.Billing.PremierStatus)
	s.Equal("visa", view.Billing.CardBrand)
	s.Equal("4242", view.Billing.CardLast4)

	slots := lo.Filter(view.Accounts, func(a *dto.AccountView, _ int) bool {
		return a.State == types.AccountStateSlot
	})
	s.Require().Len(slots, 2)
	for _, slot := range slots {
		s.False(slot.CanCancel)
		s.Equal(types.EmailProviderSlot, slot.Provider)
		s.Equal(types.SubscriptionTypeAdditionalAccount, slot.SubscriptionType)
	}
	s.Equal(types.AccountStateActive, view.Accounts[0].State)
	s.True(view.Accounts[0].IsPrimary)
}

func (s *ActivationGateSuite) TestLiveQuantityWinsOverCachedRows() {
	s.SeedPrimaryAccount("ecfg_primary", "contact@cabinet-durand.fr")
	s.mapCustomer()
	sub := s.premier("sub_premier", 24*time.Hour, 1)
	_, err := s.sync.SyncCustomer(s.GetContext(), testCustomerID)
	s.Require().NoError(err)

	// raised in the billing portal, no webhook yet
	sub.Items.Data[1].Quantity = 4
	s.GetFakes().Stripe.AddSubscription(sub)

	seats, err := s.slots.DisplaySlots(s.GetContext(), testutil.DefaultUserID)
	s.Require().NoError(err)
	s.True(seats.Live)
	s.Equal(int64(5), seats.TotalPaid)
	s.Equal(int64(4), seats.Slots)
}

func (s *ActivationGateSuite) TestCachedSeatsWhenStripeIsDown() {
	s.SeedPrimaryAccount("ecfg_primary", "contact@cabinet-durand.fr")
	s.mapCustomer()
	s.premier("sub_premier", 24*time.Hour, 2)
	_, err := s.sync.SyncCustomer(s.GetContext(), testCustomerID)
	s.Require().NoError(err)

	s.GetFakes().Stripe.Errors["RetrieveSubscription"] = errors.New("stripe unreachable")

	seats, err := s.slots.DisplaySlots(s.GetContext(), testutil.DefaultUserID)
	s.Require().NoError(err)
	s.False(seats.Live)
	s.Equal(int64(3), seats.TotalPaid)
	s.Equal(int64(2), seats.Slots)
}

func (s *ActivationGateSuite) TestNoSubscription() {
	s.SeedPrimaryAccount("ecfg_primary", "contact@cabinet-durand.fr")

	view, err := s.gate.AccountsView(s.GetContext(), testutil.DefaultUserID)
	s.Require().NoError(err)
	s.Require().Len(view.Accounts, 1)
	s.Equal(types.AccountStateInactive, view.Accounts[0].State)
	s.True(view.Accounts[0].CanSubscribe)
	s.Zero(view.Billing.TotalPaidSeats)
	s.Zero(view.Billing.Slots)
	s.Empty(s.GetFakes().Stripe.Calls)
}
