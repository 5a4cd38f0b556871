package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hallmail/hallmail/internal/domain/emailaccount"
	"github.com/hallmail/hallmail/internal/domain/subscription"
	stripeint "github.com/hallmail/hallmail/internal/integration/stripe"
	"github.com/hallmail/hallmail/internal/metrics"
	"github.com/hallmail/hallmail/internal/types"
	"github.com/samber/lo"
	"github.com/sourcegraph/conc/pool"
	"github.com/stripe/stripe-go/v82"
)

// SeatCount is the read-path view of paid versus configured mailboxes
type SeatCount struct {
	TotalPaid  int64
	Configured int64
	Slots      int64
	// Premier is the live premier row, if any
	Premier *subscription.Subscription
	// Live is false when Stripe could not be reached and cached rows were
	// counted instead
	Live bool
}

// SlotReconciler materializes paid additional-account seats as rows
type SlotReconciler interface {
	// Reconcile creates or retires seat rows so each Stripe subscription
	// has exactly as many as its paid additional quantity, then links
	// waiting seats to configured mailboxes
	Reconcile(ctx context.Context, userID string, stripeSubs []*stripe.Subscription) (created int, retired int, err error)
	// LinkAccounts points unlinked live additional rows at configured
	// non-primary mailboxes that nothing links to yet
	LinkAccounts(ctx context.Context, userID string) (int, error)
	// DisplaySlots counts the seats to show as unconfigured
	DisplaySlots(ctx context.Context, userID string) (*SeatCount, error)
}

type slotReconciler struct {
	ServiceParams
	now func() time.Time
}

func NewSlotReconciler(params ServiceParams) SlotReconciler {
	return &slotReconciler{
		ServiceParams: params,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *slotReconciler) Reconcile(ctx context.Context, userID string, stripeSubs []*stripe.Subscription) (int, int, error) {
	rows, err := s.SubscriptionRepo.ListByUser(ctx, userID)
	if err != nil {
		return 0, 0, err
	}

	now := s.now()
	additionalPriceID := s.Config.Stripe.AdditionalAccountPriceID
	log := s.Logger.With("user_id", userID)

	var (
		toCreate []*subscription.Subscription
		toRetire []string
		toMirror []*subscription.Subscription
		ended    int
	)

	// parents the synchronizer already retired, e.g. a superseded premier
	retiredParents := lo.SliceToMap(lo.Filter(rows, func(r *subscription.Subscription, _ int) bool {
		return !r.IsSeat() && r.IsDeleted()
	}), func(r *subscription.Subscription) (string, bool) {
		return r.SubscriptionID, true
	})

	for _, parent := range stripeSubs {
		status, err := types.SubscriptionStatusFromStripe(string(parent.Status))
		if err != nil {
			continue
		}

		typ := classifySubscription(parent, additionalPriceID)
		template := seatTemplate(parent, userID, status, additionalPriceID)

		children := lo.Filter(rows, func(r *subscription.Subscription, _ int) bool {
			return r.IsSeat() && *r.ParentSubscriptionID == parent.ID
		})
		live := lo.Filter(children, func(r *subscription.Subscription, _ int) bool {
			return !r.IsDeleted()
		})

		if status == types.SubscriptionStatusCanceled || retiredParents[parent.ID] {
			// seats end with their parent
			for _, child := range live {
				child.Status = status
				child.CancelAtPeriodEnd = template.CancelAtPeriodEnd
				child.CurrentPeriodStart = template.CurrentPeriodStart
				child.CurrentPeriodEnd = template.CurrentPeriodEnd
				child.DeletedAt = lo.ToPtr(now)
				toMirror = append(toMirror, child)
			}
			ended += len(live)
			if len(live) > 0 {
				log.Infow("retired seats of ended subscription",
					"parent_subscription_id", parent.ID,
					"parent_status", status,
					"seats", len(live),
				)
			}
			continue
		}

		// a seat removed by its owner ends once the parent renews past it
		live = lo.Filter(live, func(r *subscription.Subscription, _ int) bool {
			if !r.RemovalScheduled || r.CurrentPeriodEnd == 0 || template.CurrentPeriodStart < r.CurrentPeriodEnd {
				return true
			}
			r.DeletedAt = lo.ToPtr(time.Unix(r.CurrentPeriodEnd, 0).UTC())
			toMirror = append(toMirror, r)
			ended++
			log.Infow("removed seat reached the end of its period",
				"subscription_id", r.SubscriptionID,
				"parent_subscription_id", parent.ID,
			)
			return false
		})

		paid := paidSeats(parent, typ, additionalPriceID)
		// scheduled seats are already out of the paid quantity
		billed := lo.Filter(live, func(r *subscription.Subscription, _ int) bool {
			return !r.RemovalScheduled
		})
		have := int64(len(billed))

		switch {
		case have < paid:
			for i := int64(0); i < paid-have; i++ {
				slot := *template
				slot.SubscriptionID = fmt.Sprintf("%s_slot_%d_%d", parent.ID, now.Unix(), int64(len(children))+i+1)
				toCreate = append(toCreate, &slot)
			}
		case have > paid:
			unlinked := lo.Filter(billed, func(r *subscription.Subscription, _ int) bool {
				return !r.IsLinked()
			})
			sort.SliceStable(unlinked, func(i, j int) bool {
				return unlinked[i].CreatedAt.After(unlinked[j].CreatedAt)
			})
			surplus := int(have - paid)
			n := min(surplus, len(unlinked))
			retiring := lo.SliceToMap(unlinked[:n], func(r *subscription.Subscription) (string, bool) {
				return r.SubscriptionID, true
			})
			for id := range retiring {
				toRetire = append(toRetire, id)
			}
			live = lo.Filter(live, func(r *subscription.Subscription, _ int) bool {
				return !retiring[r.SubscriptionID]
			})
			if surplus > n {
				log.Warnw("paid quantity is below the number of linked seats",
					"parent_subscription_id", parent.ID,
					"paid", paid,
					"linked", have-int64(len(unlinked)),
				)
			}
		}

		for _, child := range live {
			if mirrorParent(child, template) {
				toMirror = append(toMirror, child)
			}
		}
	}

	if len(toCreate) > 0 {
		if err := s.SubscriptionRepo.CreateSlots(ctx, toCreate); err != nil {
			return 0, 0, err
		}
		log.Infow("created subscription slots", "count", len(toCreate))
	}
	if len(toRetire) > 0 {
		sort.Strings(toRetire)
		if err := s.SubscriptionRepo.SoftDelete(ctx, toRetire, now); err != nil {
			return 0, 0, err
		}
		log.Infow("retired surplus subscription slots", "subscription_ids", toRetire)
	}
	for _, row := range toMirror {
		if err := s.SubscriptionRepo.Upsert(ctx, row); err != nil {
			return 0, 0, err
		}
	}
	retired := len(toRetire) + ended

	metrics.RecordSlotRows("created", len(toCreate))
	metrics.RecordSlotRows("retired", retired)

	if _, err := s.LinkAccounts(ctx, userID); err != nil {
		return 0, 0, err
	}
	return len(toCreate), retired, nil
}

func (s *slotReconciler) LinkAccounts(ctx context.Context, userID string) (int, error) {
	rows, err := s.SubscriptionRepo.ListByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	accounts, err := s.EmailAccountRepo.ListByUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	// an account whose seat was removed by the user stays out until it is
	// subscribed again explicitly
	claimed := make(map[string]bool)
	for _, r := range rows {
		if r.IsLinked() && (!r.IsDeleted() || r.RemovalScheduled) {
			claimed[*r.EmailConfigurationID] = true
		}
	}

	waiting := lo.Filter(rows, func(r *subscription.Subscription, _ int) bool {
		return r.IsAdditional() && !r.IsLinked() && r.IsLive()
	})
	sort.SliceStable(waiting, func(i, j int) bool {
		if waiting[i].CreatedAt.Equal(waiting[j].CreatedAt) {
			return waiting[i].SubscriptionID < waiting[j].SubscriptionID
		}
		return waiting[i].CreatedAt.Before(waiting[j].CreatedAt)
	})

	candidates := lo.Filter(accounts, func(a *emailaccount.EmailAccount, _ int) bool {
		return !a.IsPrimary && a.Provider != types.EmailProviderSlot && !claimed[a.ID]
	})

	n := min(len(waiting), len(candidates))
	for i := 0; i < n; i++ {
		row := waiting[i]
		row.EmailConfigurationID = lo.ToPtr(candidates[i].ID)
		if err := s.SubscriptionRepo.Upsert(ctx, row); err != nil {
			return i, err
		}
		s.Logger.Infow("linked seat to email account",
			"user_id", userID,
			"subscription_id", row.SubscriptionID,
			"email_configuration_id", candidates[i].ID,
		)
	}
	return n, nil
}

func (s *slotReconciler) DisplaySlots(ctx context.Context, userID string) (*SeatCount, error) {
	rows, err := s.SubscriptionRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	accounts, err := s.EmailAccountRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	count := &SeatCount{Live: true}
	count.Premier, _ = lo.Find(rows, func(r *subscription.Subscription) bool {
		return r.IsPremier() && r.IsLive()
	})
	count.Configured = int64(lo.CountBy(accounts, func(a *emailaccount.EmailAccount) bool {
		return a.Provider != types.EmailProviderSlot
	}))

	billable := lo.Filter(rows, func(r *subscription.Subscription, _ int) bool {
		return r.IsLive() && !r.IsSeat() && !r.IsPlaceholder()
	})

	additionalPriceID := s.Config.Stripe.AdditionalAccountPriceID
	p := pool.NewWithResults[int64]().WithContext(ctx).WithMaxGoroutines(4)
	for _, row := range billable {
		p.Go(func(ctx context.Context) (int64, error) {
			sub, err := s.Stripe.RetrieveSubscription(ctx, row.SubscriptionID)
			if err != nil {
				return 0, err
			}
			status, err := types.SubscriptionStatusFromStripe(string(sub.Status))
			if err != nil || !status.IsLive() {
				return 0, nil
			}
			if classifySubscription(sub, additionalPriceID) == types.SubscriptionTypePremier {
				return 1 + stripeint.QuantityForPrice(sub, additionalPriceID), nil
			}
			return subscriptionQuantity(sub, additionalPriceID), nil
		})
	}

	seats, err := p.Wait()
	if err != nil {
		s.Logger.Warnw("falling back to cached seat counts", "user_id", userID, "error", err)
		count.Live = false
		seats = cachedSeats(rows, billable)
	}

	count.TotalPaid = lo.Sum(seats)
	count.Slots = max(0, count.TotalPaid-count.Configured)
	return count, nil
}

// paidSeats is the number of seat rows a subscription should own. A
// standalone additional subscription is itself one seat.
func paidSeats(sub *stripe.Subscription, typ types.SubscriptionType, additionalPriceID string) int64 {
	if typ == types.SubscriptionTypePremier {
		return stripeint.QuantityForPrice(sub, additionalPriceID)
	}
	return max(0, subscriptionQuantity(sub, additionalPriceID)-1)
}

func subscriptionQuantity(sub *stripe.Subscription, additionalPriceID string) int64 {
	if qty := stripeint.QuantityForPrice(sub, additionalPriceID); qty > 0 {
		return qty
	}
	if item := stripeint.FirstItem(sub); item != nil {
		return item.Quantity
	}
	return 0
}

func cachedSeats(rows []*subscription.Subscription, billable []*subscription.Subscription) []int64 {
	return lo.Map(billable, func(parent *subscription.Subscription, _ int) int64 {
		children := lo.CountBy(rows, func(r *subscription.Subscription) bool {
			return r.IsSeat() && *r.ParentSubscriptionID == parent.SubscriptionID && !r.IsDeleted() && !r.RemovalScheduled
		})
		return 1 + int64(children)
	})
}

func seatTemplate(parent *stripe.Subscription, userID string, status types.SubscriptionStatus, additionalPriceID string) *subscription.Subscription {
	start, end := stripeint.PeriodBounds(parent)
	brand, last4 := stripeint.CardDisplay(parent)
	return &subscription.Subscription{
		UserID:               userID,
		CustomerID:           stripeint.CustomerID(parent),
		SubscriptionType:     types.SubscriptionTypeAdditionalAccount,
		Status:               status,
		PriceID:              additionalPriceID,
		CurrentPeriodStart:   start,
		CurrentPeriodEnd:     end,
		CancelAtPeriodEnd:    parent.CancelAtPeriodEnd,
		ParentSubscriptionID: lo.ToPtr(parent.ID),
		PaymentMethodBrand:   brand,
		PaymentMethodLast4:   last4,
	}
}

// mirrorParent copies the parent's billing state onto a seat row and
// reports whether anything changed. A seat scheduled for removal keeps its
// own period and stays flagged for cancellation.
func mirrorParent(child, template *subscription.Subscription) bool {
	start, end := template.CurrentPeriodStart, template.CurrentPeriodEnd
	cancel := template.CancelAtPeriodEnd
	if child.RemovalScheduled {
		start, end = child.CurrentPeriodStart, child.CurrentPeriodEnd
		cancel = true
	}

	changed := child.Status != template.Status ||
		child.CurrentPeriodStart != start ||
		child.CurrentPeriodEnd != end ||
		child.CancelAtPeriodEnd != cancel ||
		child.CustomerID != template.CustomerID ||
		child.PaymentMethodBrand != template.PaymentMethodBrand ||
		child.PaymentMethodLast4 != template.PaymentMethodLast4
	if !changed {
		return false
	}
	child.Status = template.Status
	child.CurrentPeriodStart = start
	child.CurrentPeriodEnd = end
	child.CancelAtPeriodEnd = cancel
	child.CustomerID = template.CustomerID
	child.PaymentMethodBrand = template.PaymentMethodBrand
	child.PaymentMethodLast4 = template.PaymentMethodLast4
	return true
}
