package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/hallmail/hallmail/internal/api/dto"
	"github.com/hallmail/hallmail/internal/domain/emailaccount"
	"github.com/hallmail/hallmail/internal/domain/subscription"
	"github.com/hallmail/hallmail/internal/types"
	"github.com/samber/lo"
)

// AccountStatus is the billing state of one email account and the actions
// it allows
type AccountStatus struct {
	State         types.AccountState
	CanCancel     bool
	CanReactivate bool
	CanSubscribe  bool
}

// DeriveState computes the state of an account from the subscription row
// backing it. linked may be nil.
func DeriveState(account *emailaccount.EmailAccount, linked *subscription.Subscription) AccountStatus {
	if account.Provider == types.EmailProviderSlot {
		return AccountStatus{State: types.AccountStateSlot}
	}

	switch {
	case linked == nil:
		return AccountStatus{State: types.AccountStateInactive, CanSubscribe: true}
	case linked.IsDeleted():
		return AccountStatus{State: types.AccountStateResiliated, CanSubscribe: true}
	case linked.Status.IsLive() && linked.CancelAtPeriodEnd:
		return AccountStatus{State: types.AccountStateCancelScheduled, CanReactivate: true}
	case linked.Status.IsLive():
		return AccountStatus{State: types.AccountStateActive, CanCancel: true}
	default:
		return AccountStatus{State: types.AccountStateInactive, CanSubscribe: true}
	}
}

// ActivationGate builds the billing view of a user's mailboxes
type ActivationGate interface {
	AccountsView(ctx context.Context, userID string) (*dto.AccountsViewResponse, error)
}

type activationGate struct {
	ServiceParams
	slots SlotReconciler
}

func NewActivationGate(params ServiceParams, slots SlotReconciler) ActivationGate {
	return &activationGate{ServiceParams: params, slots: slots}
}

func (s *activationGate) AccountsView(ctx context.Context, userID string) (*dto.AccountsViewResponse, error) {
	accounts, err := s.EmailAccountRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	rows, err := s.SubscriptionRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	seats, err := s.slots.DisplaySlots(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := &dto.AccountsViewResponse{
		Accounts: make([]*dto.AccountView, 0, len(accounts)+int(seats.Slots)),
	}

	for _, account := range accounts {
		if account.Provider == types.EmailProviderSlot {
			continue
		}
		linked := linkedSubscription(account, rows)
		status := DeriveState(account, linked)

		view := &dto.AccountView{
			ID:            account.ID,
			Email:         account.Email,
			Provider:      account.Provider,
			IsPrimary:     account.IsPrimary,
			IsActive:      account.IsActive,
			IsConnected:   account.IsConnected,
			State:         status.State,
			CanCancel:     status.CanCancel,
			CanReactivate: status.CanReactivate,
			CanSubscribe:  status.CanSubscribe,
		}
		if linked != nil {
			view.SubscriptionID = linked.SubscriptionID
			view.SubscriptionType = linked.SubscriptionType
			view.Status = linked.Status
			view.CancelAtPeriodEnd = linked.CancelAtPeriodEnd
			view.CurrentPeriodEnd = linked.CurrentPeriodEnd
		}
		resp.Accounts = append(resp.Accounts, view)
	}

	waiting := lo.Filter(rows, func(r *subscription.Subscription, _ int) bool {
		return r.IsAdditional() && !r.IsLinked() && r.IsLive()
	})
	for i := int64(0); i < seats.Slots; i++ {
		view := &dto.AccountView{
			ID:       fmt.Sprintf("slot_%d", i+1),
			Provider: types.EmailProviderSlot,
			State:    types.AccountStateSlot,
		}
		if int(i) < len(waiting) {
			row := waiting[i]
			view.ID = row.SubscriptionID
			view.SubscriptionID = row.SubscriptionID
			view.SubscriptionType = row.SubscriptionType
			view.Status = row.Status
			view.CancelAtPeriodEnd = row.CancelAtPeriodEnd
			view.CurrentPeriodEnd = row.CurrentPeriodEnd
		}
		resp.Accounts = append(resp.Accounts, view)
	}

	resp.Billing = dto.BillingSummary{
		TotalPaidSeats:     seats.TotalPaid,
		ConfiguredAccounts: seats.Configured,
		Slots:              seats.Slots,
	}
	if premier := seats.Premier; premier != nil {
		resp.Billing.PremierSubscriptionID = premier.SubscriptionID
		resp.Billing.PremierStatus = premier.Status
		resp.Billing.NextRenewal = premier.CurrentPeriodEnd
		resp.Billing.CardBrand = premier.PaymentMethodBrand
		resp.Billing.CardLast4 = premier.PaymentMethodLast4
	} else if latest := latestPremier(rows); latest != nil {
		resp.Billing.PremierSubscriptionID = latest.SubscriptionID
		resp.Billing.PremierStatus = latest.Status
	}

	return resp, nil
}

// linkedSubscription picks the row backing an account: premier rows for
// the primary account, rows linked to it otherwise. Live rows win over
// pending ones, pending over deleted, newer over older.
func linkedSubscription(account *emailaccount.EmailAccount, rows []*subscription.Subscription) *subscription.Subscription {
	candidates := lo.Filter(rows, func(r *subscription.Subscription, _ int) bool {
		if account.IsPrimary {
			return r.IsPremier() && !r.IsSeat()
		}
		return r.IsLinkedTo(account.ID)
	})
	if len(candidates) == 0 {
		return nil
	}

	rank := func(r *subscription.Subscription) int {
		switch {
		case r.IsLive():
			return 0
		case !r.IsDeleted():
			return 1
		default:
			return 2
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		ri, rj := rank(candidates[i]), rank(candidates[j])
		if ri != rj {
			return ri < rj
		}
		return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
	})
	return candidates[0]
}

func latestPremier(rows []*subscription.Subscription) *subscription.Subscription {
	var latest *subscription.Subscription
	for _, r := range rows {
		if !r.IsPremier() || r.IsSeat() {
			continue
		}
		if latest == nil || r.CreatedAt.After(latest.CreatedAt) {
			latest = r
		}
	}
	return latest
}
