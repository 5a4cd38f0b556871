package service

import (
	"context"
	"sort"
	"time"

	"github.com/hallmail/hallmail/internal/domain/emailaccount"
	"github.com/hallmail/hallmail/internal/domain/invoice"
	"github.com/hallmail/hallmail/internal/domain/subscription"
	ierr "github.com/hallmail/hallmail/internal/errors"
	stripeint "github.com/hallmail/hallmail/internal/integration/stripe"
	"github.com/hallmail/hallmail/internal/logger"
	"github.com/hallmail/hallmail/internal/metrics"
	"github.com/hallmail/hallmail/internal/types"
	"github.com/samber/lo"
	"github.com/sourcegraph/conc/pool"
	"github.com/stripe/stripe-go/v82"
)

// SyncResult describes one reconciliation pass for a customer
type SyncResult struct {
	CustomerID string
	UserID     string
	// Records are the rows mirroring the customer's Stripe subscriptions,
	// or the single not_started placeholder
	Records []*subscription.Subscription
	// Premier is the live premier row, nil when the base plan is not active
	Premier      *subscription.Subscription
	SlotsCreated int
	SlotsRetired int
}

func (r *SyncResult) PremierStatus() types.SubscriptionStatus {
	if r.Premier != nil {
		return r.Premier.Status
	}
	for _, rec := range r.Records {
		if rec.IsPremier() && !rec.IsDeleted() {
			return rec.Status
		}
	}
	return ""
}

// SubscriptionSynchronizer mirrors Stripe subscriptions into the local
// table. Every pass is idempotent and repairs whatever a failed pass left.
type SubscriptionSynchronizer interface {
	SyncCustomer(ctx context.Context, customerID string) (*SyncResult, error)
	SyncUser(ctx context.Context, userID string) (*SyncResult, error)
	SyncInvoices(ctx context.Context, customerID string) (int, error)
	UpsertInvoice(ctx context.Context, inv *stripe.Invoice) error
	// SyncAll reconciles every known customer, at most concurrency at a time.
	// A failing customer is logged and counted, the rest still run.
	SyncAll(ctx context.Context, concurrency int) (*BulkSyncResult, error)
}

// BulkSyncResult summarises a SyncAll pass
type BulkSyncResult struct {
	Total  int
	Synced int
	// Failed maps customer ids to the error their pass returned
	Failed map[string]error
}

type subscriptionSynchronizer struct {
	ServiceParams
	customers CustomerResolver
	slots     SlotReconciler
	now       func() time.Time
}

func NewSubscriptionSynchronizer(params ServiceParams, customers CustomerResolver, slots SlotReconciler) SubscriptionSynchronizer {
	return &subscriptionSynchronizer{
		ServiceParams: params,
		customers:     customers,
		slots:         slots,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *subscriptionSynchronizer) SyncUser(ctx context.Context, userID string) (*SyncResult, error) {
	mapping, err := s.customers.Lookup(ctx, userID)
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil, ierr.WithError(err).
				WithHint("No billing account found, please subscribe first").
				WithReportableDetails(map[string]any{"user_id": userID}).
				Mark(ierr.ErrNotFound)
		}
		return nil, err
	}
	return s.SyncCustomer(ctx, mapping.CustomerID)
}

func (s *subscriptionSynchronizer) SyncCustomer(ctx context.Context, customerID string) (result *SyncResult, err error) {
	trigger := types.GetSyncTrigger(ctx)
	defer func() {
		metrics.RecordSync(string(trigger), err)
	}()

	userID, err := s.customers.UserIDForCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	log := s.Logger.With("user_id", userID, "customer_id", customerID, "trigger", trigger)

	stripeSubs, err := s.Stripe.ListSubscriptions(ctx, customerID)
	if err != nil {
		return nil, err
	}
	existingRows, err := s.SubscriptionRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	accounts, err := s.EmailAccountRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	existing := lo.KeyBy(existingRows, func(r *subscription.Subscription) string {
		return r.SubscriptionID
	})
	result = &SyncResult{CustomerID: customerID, UserID: userID}

	if len(stripeSubs) == 0 {
		placeholder, err := s.writePlaceholder(ctx, userID, customerID, existing, accounts)
		if err != nil {
			return nil, err
		}
		result.Records = []*subscription.Subscription{placeholder}
	} else {
		records := s.buildRecords(log, userID, customerID, stripeSubs, existingRows, accounts)
		for _, rec := range records {
			if prev, ok := existing[rec.SubscriptionID]; ok && sameRecord(prev, rec) {
				continue
			}
			if err := s.SubscriptionRepo.Upsert(ctx, rec); err != nil {
				return nil, err
			}
		}
		result.Records = records

		// real subscriptions supersede the placeholder
		if _, ok := existing[subscription.PlaceholderID(customerID)]; ok {
			if err := s.SubscriptionRepo.Delete(ctx, subscription.PlaceholderID(customerID)); err != nil {
				return nil, err
			}
			log.Infow("retired not_started placeholder")
		}
	}

	result.Premier, _ = lo.Find(result.Records, func(r *subscription.Subscription) bool {
		return r.IsPremier() && r.IsLive()
	})

	created, retired, err := s.slots.Reconcile(ctx, userID, stripeSubs)
	if err != nil {
		return nil, err
	}
	result.SlotsCreated, result.SlotsRetired = created, retired

	// user-wide switch driven only by the base plan
	if result.Premier != nil {
		err = s.EmailAccountRepo.SetActiveForUser(ctx, userID, true, true)
	} else {
		err = s.EmailAccountRepo.SetActiveForUser(ctx, userID, false, false)
	}
	if err != nil {
		return nil, err
	}

	log.Infow("synchronized stripe subscriptions",
		"subscriptions", len(stripeSubs),
		"premier_status", result.PremierStatus(),
		"slots_created", created,
		"slots_retired", retired,
	)
	return result, nil
}

func (s *subscriptionSynchronizer) SyncAll(ctx context.Context, concurrency int) (*BulkSyncResult, error) {
	mappings, err := s.CustomerRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if concurrency < 1 {
		concurrency = 1
	}

	type outcome struct {
		customerID string
		err        error
	}

	p := pool.NewWithResults[outcome]().WithContext(ctx).WithMaxGoroutines(concurrency)
	for _, m := range mappings {
		p.Go(func(ctx context.Context) (outcome, error) {
			_, err := s.SyncCustomer(ctx, m.CustomerID)
			return outcome{customerID: m.CustomerID, err: err}, nil
		})
	}
	outcomes, err := p.Wait()
	if err != nil {
		return nil, err
	}

	result := &BulkSyncResult{Total: len(mappings), Failed: make(map[string]error)}
	for _, o := range outcomes {
		if o.err != nil {
			s.Logger.Warnw("customer resync failed", "customer_id", o.customerID, "error", o.err)
			result.Failed[o.customerID] = o.err
			continue
		}
		result.Synced++
	}
	return result, nil
}

// buildRecords maps Stripe subscriptions to rows, resolving links with the
// precedence existing link, then metadata, then auto-assignment
func (s *subscriptionSynchronizer) buildRecords(
	log *logger.Logger,
	userID string,
	customerID string,
	stripeSubs []*stripe.Subscription,
	existingRows []*subscription.Subscription,
	accounts []*emailaccount.EmailAccount,
) []*subscription.Subscription {
	now := s.now()
	additionalPriceID := s.Config.Stripe.AdditionalAccountPriceID

	ordered := make([]*stripe.Subscription, len(stripeSubs))
	copy(ordered, stripeSubs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Created < ordered[j].Created
	})

	stripeIDs := lo.SliceToMap(ordered, func(sub *stripe.Subscription) (string, bool) {
		return sub.ID, true
	})
	existing := lo.KeyBy(existingRows, func(r *subscription.Subscription) string {
		return r.SubscriptionID
	})
	accountByID := lo.KeyBy(accounts, func(a *emailaccount.EmailAccount) string {
		return a.ID
	})

	claimed := make(map[string]bool)
	for _, row := range existingRows {
		if !stripeIDs[row.SubscriptionID] && row.IsLinked() && row.IsLive() {
			claimed[*row.EmailConfigurationID] = true
		}
	}

	records := make([]*subscription.Subscription, 0, len(ordered))
	created := make(map[string]int64, len(ordered))
	endedAt := make(map[string]int64, len(ordered))
	for _, sub := range ordered {
		status, err := types.SubscriptionStatusFromStripe(string(sub.Status))
		if err != nil {
			log.Errorw("skipping subscription with unknown status",
				"subscription_id", sub.ID,
				"status", sub.Status,
			)
			continue
		}

		rec := recordFromStripe(sub, userID, customerID, status, additionalPriceID)
		if prev, ok := existing[sub.ID]; ok {
			rec.ID = prev.ID
			rec.CreatedAt = prev.CreatedAt
			rec.DeletedAt = prev.DeletedAt
			if prev.IsLinked() {
				rec.EmailConfigurationID = prev.EmailConfigurationID
			}
		}
		if !rec.IsLinked() {
			if id := sub.Metadata[types.MetadataKeyEmailConfigurationID]; id != "" {
				if _, ok := accountByID[id]; ok {
					rec.EmailConfigurationID = lo.ToPtr(id)
				} else {
					log.Warnw("ignoring metadata link to unknown email account",
						"subscription_id", sub.ID,
						"email_configuration_id", id,
					)
				}
			}
		}
		if rec.IsLinked() && rec.Status.IsLive() {
			claimed[*rec.EmailConfigurationID] = true
		}

		created[sub.ID] = sub.Created
		endedAt[sub.ID] = sub.EndedAt
		records = append(records, rec)
	}

	primary, _ := lo.Find(accounts, func(a *emailaccount.EmailAccount) bool {
		return a.IsPrimary
	})
	for _, rec := range records {
		if rec.IsLinked() || rec.Status == types.SubscriptionStatusCanceled {
			continue
		}
		if rec.IsPremier() {
			if primary != nil {
				rec.EmailConfigurationID = lo.ToPtr(primary.ID)
			}
			continue
		}
		candidate, ok := lo.Find(accounts, func(a *emailaccount.EmailAccount) bool {
			return !a.IsPrimary && a.Provider != types.EmailProviderSlot && !claimed[a.ID]
		})
		if !ok {
			continue
		}
		rec.EmailConfigurationID = lo.ToPtr(candidate.ID)
		if rec.Status.IsLive() {
			claimed[candidate.ID] = true
		}
		log.Infow("auto-assigned additional account subscription",
			"subscription_id", rec.SubscriptionID,
			"email_configuration_id", candidate.ID,
		)
	}

	// only the most recent live premier stays, older ones are superseded
	livePremiers := lo.Filter(records, func(r *subscription.Subscription, _ int) bool {
		return r.IsPremier() && r.Status.IsLive()
	})
	sort.SliceStable(livePremiers, func(i, j int) bool {
		return created[livePremiers[i].SubscriptionID] > created[livePremiers[j].SubscriptionID]
	})
	superseded := make(map[string]bool)
	for _, r := range lo.Drop(livePremiers, 1) {
		superseded[r.SubscriptionID] = true
		log.Warnw("superseding older live premier subscription", "subscription_id", r.SubscriptionID)
	}

	for _, rec := range records {
		retire := rec.Status == types.SubscriptionStatusCanceled || superseded[rec.SubscriptionID]
		switch {
		case !retire:
			rec.DeletedAt = nil
		case rec.DeletedAt == nil:
			at := now
			if ended := endedAt[rec.SubscriptionID]; ended > 0 && rec.Status == types.SubscriptionStatusCanceled {
				at = time.Unix(ended, 0).UTC()
			}
			rec.DeletedAt = &at
		}
	}

	return records
}

func (s *subscriptionSynchronizer) writePlaceholder(
	ctx context.Context,
	userID string,
	customerID string,
	existing map[string]*subscription.Subscription,
	accounts []*emailaccount.EmailAccount,
) (*subscription.Subscription, error) {
	rec := &subscription.Subscription{
		SubscriptionID:   subscription.PlaceholderID(customerID),
		UserID:           userID,
		CustomerID:       customerID,
		SubscriptionType: types.SubscriptionTypePremier,
		Status:           types.SubscriptionStatusNotStarted,
	}

	prev, ok := existing[rec.SubscriptionID]
	if ok {
		rec.ID = prev.ID
		rec.CreatedAt = prev.CreatedAt
		rec.EmailConfigurationID = prev.EmailConfigurationID
	}
	if !rec.IsLinked() {
		if primary, found := lo.Find(accounts, func(a *emailaccount.EmailAccount) bool { return a.IsPrimary }); found {
			rec.EmailConfigurationID = lo.ToPtr(primary.ID)
		}
	}

	if ok && sameRecord(prev, rec) {
		return rec, nil
	}
	if err := s.SubscriptionRepo.Upsert(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *subscriptionSynchronizer) SyncInvoices(ctx context.Context, customerID string) (int, error) {
	userID, err := s.customers.UserIDForCustomer(ctx, customerID)
	if err != nil {
		return 0, err
	}

	invoices, err := s.Stripe.ListInvoices(ctx, customerID)
	if err != nil {
		return 0, err
	}

	for _, inv := range invoices {
		if err := s.InvoiceRepo.Upsert(ctx, invoiceFromStripe(inv, userID)); err != nil {
			return 0, err
		}
	}
	return len(invoices), nil
}

func (s *subscriptionSynchronizer) UpsertInvoice(ctx context.Context, inv *stripe.Invoice) error {
	if inv.Customer == nil || inv.Customer.ID == "" {
		return ierr.NewError("invoice has no customer").
			WithHint("Invalid invoice payload").
			WithReportableDetails(map[string]any{"invoice_id": inv.ID}).
			Mark(ierr.ErrValidation)
	}

	userID, err := s.customers.UserIDForCustomer(ctx, inv.Customer.ID)
	if err != nil {
		return err
	}
	return s.InvoiceRepo.Upsert(ctx, invoiceFromStripe(inv, userID))
}

// classifySubscription returns additional_account when the subscription is
// tagged so or its first price is the additional-account price
func classifySubscription(sub *stripe.Subscription, additionalPriceID string) types.SubscriptionType {
	if sub.Metadata[types.MetadataKeyType] == string(types.SubscriptionTypeAdditionalAccount) {
		return types.SubscriptionTypeAdditionalAccount
	}
	if additionalPriceID != "" && stripeint.FirstPriceID(sub) == additionalPriceID {
		return types.SubscriptionTypeAdditionalAccount
	}
	return types.SubscriptionTypePremier
}

func recordFromStripe(
	sub *stripe.Subscription,
	userID string,
	customerID string,
	status types.SubscriptionStatus,
	additionalPriceID string,
) *subscription.Subscription {
	start, end := stripeint.PeriodBounds(sub)
	brand, last4 := stripeint.CardDisplay(sub)

	return &subscription.Subscription{
		SubscriptionID:     sub.ID,
		UserID:             userID,
		CustomerID:         customerID,
		SubscriptionType:   classifySubscription(sub, additionalPriceID),
		Status:             status,
		PriceID:            stripeint.FirstPriceID(sub),
		CurrentPeriodStart: start,
		CurrentPeriodEnd:   end,
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
		PaymentMethodBrand: brand,
		PaymentMethodLast4: last4,
	}
}

func invoiceFromStripe(inv *stripe.Invoice, userID string) *invoice.Invoice {
	var customerID string
	if inv.Customer != nil {
		customerID = inv.Customer.ID
	}
	return &invoice.Invoice{
		InvoiceID:      inv.ID,
		CustomerID:     customerID,
		SubscriptionID: stripeint.InvoiceSubscriptionID(inv),
		UserID:         userID,
		AmountPaid:     inv.AmountPaid,
		Currency:       string(inv.Currency),
		Status:         string(inv.Status),
		PaidAt:         stripeint.InvoicePaidAt(inv),
		HostedURL:      inv.HostedInvoiceURL,
	}
}

// sameRecord compares the fields a sync writes
func sameRecord(a, b *subscription.Subscription) bool {
	return a.UserID == b.UserID &&
		a.CustomerID == b.CustomerID &&
		a.SubscriptionType == b.SubscriptionType &&
		a.Status == b.Status &&
		a.PriceID == b.PriceID &&
		a.CurrentPeriodStart == b.CurrentPeriodStart &&
		a.CurrentPeriodEnd == b.CurrentPeriodEnd &&
		a.CancelAtPeriodEnd == b.CancelAtPeriodEnd &&
		lo.FromPtr(a.EmailConfigurationID) == lo.FromPtr(b.EmailConfigurationID) &&
		lo.FromPtr(a.ParentSubscriptionID) == lo.FromPtr(b.ParentSubscriptionID) &&
		a.PaymentMethodBrand == b.PaymentMethodBrand &&
		a.PaymentMethodLast4 == b.PaymentMethodLast4 &&
		sameTime(a.DeletedAt, b.DeletedAt)
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
