package service

import (
	"context"
	"strings"

	"github.com/hallmail/hallmail/internal/api/dto"
	"github.com/hallmail/hallmail/internal/domain/subscription"
	ierr "github.com/hallmail/hallmail/internal/errors"
	stripeint "github.com/hallmail/hallmail/internal/integration/stripe"
	"github.com/hallmail/hallmail/internal/poller"
	"github.com/hallmail/hallmail/internal/types"
	"github.com/samber/lo"
)

// BillingService runs the user-initiated billing commands. None of them
// retry, errors go back to the caller.
type BillingService interface {
	CreateCheckout(ctx context.Context, userID string, email string, req *dto.CreateCheckoutRequest) (*dto.CheckoutResponse, error)
	Cancel(ctx context.Context, userID string, req *dto.SubscriptionActionRequest) (*dto.SubscriptionActionResponse, error)
	Reactivate(ctx context.Context, userID string, req *dto.SubscriptionActionRequest) (*dto.SubscriptionActionResponse, error)
	ForceSync(ctx context.Context, userID string, email string, req *dto.SyncRequest) (*dto.SyncResponse, error)
	CreatePortalSession(ctx context.Context, userID string, req *dto.PortalSessionRequest) (*dto.PortalSessionResponse, error)
}

type billingService struct {
	ServiceParams
	customers CustomerResolver
	sync      SubscriptionSynchronizer
}

func NewBillingService(params ServiceParams, customers CustomerResolver, sync SubscriptionSynchronizer) BillingService {
	return &billingService{
		ServiceParams: params,
		customers:     customers,
		sync:          sync,
	}
}

func (s *billingService) requireStripeConfig() error {
	missing := s.Config.Stripe.MissingKeys()
	if len(missing) == 0 {
		return nil
	}
	return ierr.NewError("stripe is not configured").
		WithHint("Billing is temporarily unavailable, please contact support").
		WithReportableDetails(map[string]any{"missing": missing}).
		Mark(ierr.ErrConfiguration)
}

func (s *billingService) CreateCheckout(ctx context.Context, userID string, email string, req *dto.CreateCheckoutRequest) (*dto.CheckoutResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.requireStripeConfig(); err != nil {
		return nil, err
	}

	stripeCfg := s.Config.Stripe
	if req.PriceID != stripeCfg.BasePriceID && req.PriceID != stripeCfg.AdditionalAccountPriceID {
		return nil, ierr.NewError("unknown price id").
			WithHint("The selected plan is not available").
			WithReportableDetails(map[string]any{"price_id": req.PriceID}).
			Mark(ierr.ErrValidation)
	}
	additionalPriceID := lo.CoalesceOrEmpty(req.AdditionalAccountPriceID, stripeCfg.AdditionalAccountPriceID)
	if additionalPriceID != stripeCfg.AdditionalAccountPriceID {
		return nil, ierr.NewError("unknown additional account price id").
			WithHint("The selected add-on is not available").
			WithReportableDetails(map[string]any{"additional_account_price_id": additionalPriceID}).
			Mark(ierr.ErrValidation)
	}

	additionalOnly := req.PriceID == stripeCfg.AdditionalAccountPriceID

	var customerID string
	if additionalOnly {
		mapping, err := s.customers.Lookup(ctx, userID)
		if err != nil {
			if ierr.IsNotFound(err) {
				return nil, ierr.WithError(err).
					WithHint("Subscribe to the base plan before adding accounts").
					WithReportableDetails(map[string]any{"user_id": userID}).
					Mark(ierr.ErrNotFound)
			}
			return nil, err
		}
		customerID = mapping.CustomerID
	} else {
		id, created, err := s.customers.Resolve(ctx, userID, email)
		if err != nil {
			return nil, err
		}
		if created {
			s.Logger.Infow("created stripe customer for checkout", "user_id", userID, "customer_id", id)
		}
		customerID = id
	}

	input := &stripeint.CheckoutSessionInput{
		CustomerID: customerID,
		Mode:       req.Mode,
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
		Metadata: map[string]string{
			types.MetadataKeyUserID:       userID,
			types.MetadataKeyPrimaryEmail: lo.CoalesceOrEmpty(req.PrimaryEmail, email),
		},
	}
	if len(req.AdditionalEmails) > 0 {
		input.Metadata[types.MetadataKeyAdditionalEmails] = strings.Join(req.AdditionalEmails, ",")
	}

	if req.EmailConfigurationID != "" {
		input.Metadata[types.MetadataKeyEmailConfigurationID] = req.EmailConfigurationID
	}

	if additionalOnly {
		input.Metadata[types.MetadataKeyType] = string(types.SubscriptionTypeAdditionalAccount)
		input.LineItems = []stripeint.LineItem{{PriceID: req.PriceID, Quantity: max(1, req.AdditionalAccounts)}}
	} else {
		input.Metadata[types.MetadataKeyType] = string(types.SubscriptionTypePremier)
		input.LineItems = []stripeint.LineItem{{PriceID: req.PriceID, Quantity: 1}}
		if req.AdditionalAccounts > 0 {
			input.LineItems = append(input.LineItems, stripeint.LineItem{
				PriceID:  additionalPriceID,
				Quantity: req.AdditionalAccounts,
			})
		}
	}

	session, err := s.Stripe.CreateCheckoutSession(ctx, input)
	if err != nil {
		return nil, err
	}

	return &dto.CheckoutResponse{
		SessionID: session.ID,
		URL:       session.URL,
	}, nil
}

func (s *billingService) Cancel(ctx context.Context, userID string, req *dto.SubscriptionActionRequest) (*dto.SubscriptionActionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.requireStripeConfig(); err != nil {
		return nil, err
	}

	target, err := s.resolveTarget(ctx, userID, req)
	if err != nil {
		return nil, err
	}
	log := s.Logger.With("user_id", userID, "subscription_id", target.SubscriptionID)

	if target.IsSeat() {
		return s.scheduleSeatRemoval(ctx, userID, target)
	}
	if target.IsDeleted() {
		return nil, ierr.NewError("subscription already ended").
			WithHint("This subscription has already been cancelled").
			Mark(ierr.ErrInvalidOperation)
	}

	if _, err := s.Stripe.SetCancelAtPeriodEnd(ctx, target.SubscriptionID, true); err != nil {
		return nil, err
	}
	log.Infow("scheduled subscription cancellation")

	ctx = types.SetSyncTrigger(ctx, types.SyncTriggerCancel)
	return s.settle(ctx, target, true)
}

func (s *billingService) Reactivate(ctx context.Context, userID string, req *dto.SubscriptionActionRequest) (*dto.SubscriptionActionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.requireStripeConfig(); err != nil {
		return nil, err
	}

	target, err := s.resolveTarget(ctx, userID, req)
	if err != nil {
		return nil, err
	}
	if target.IsDeleted() {
		return nil, ierr.NewError("subscription already ended").
			WithHint("This subscription has ended, please subscribe again").
			Mark(ierr.ErrInvalidOperation)
	}

	var resp *dto.SubscriptionActionResponse
	if target.IsSeat() {
		resp, err = s.restoreSeat(ctx, userID, target)
	} else {
		if _, err := s.Stripe.SetCancelAtPeriodEnd(ctx, target.SubscriptionID, false); err != nil {
			return nil, err
		}
		s.Logger.Infow("removed scheduled cancellation", "user_id", userID, "subscription_id", target.SubscriptionID)

		ctx = types.SetSyncTrigger(ctx, types.SyncTriggerReactivate)
		resp, err = s.settle(ctx, target, false)
	}
	if err != nil {
		return nil, err
	}

	if target.IsLinked() {
		if err := s.EmailAccountRepo.SetActive(ctx, userID, []string{*target.EmailConfigurationID}, true); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// settle resyncs after a Stripe change and waits, bounded, until the local
// row carries the expected cancellation flag
func (s *billingService) settle(ctx context.Context, target *subscription.Subscription, cancelAtPeriodEnd bool) (*dto.SubscriptionActionResponse, error) {
	if _, err := s.sync.SyncCustomer(ctx, target.CustomerID); err != nil {
		return nil, err
	}

	var current *subscription.Subscription
	cfg := poller.Config{
		Interval: s.Config.Billing.PollInterval,
		Timeout:  s.Config.Billing.CancelPollTimeout,
	}
	err := s.Poller.Poll(ctx, cfg, func(ctx context.Context) (bool, error) {
		row, err := s.SubscriptionRepo.Get(ctx, target.SubscriptionID)
		if err != nil {
			return false, err
		}
		current = row
		return row.CancelAtPeriodEnd == cancelAtPeriodEnd, nil
	})

	resp := &dto.SubscriptionActionResponse{
		Success:           true,
		SubscriptionID:    target.SubscriptionID,
		CancelAtPeriodEnd: cancelAtPeriodEnd,
	}
	if current != nil {
		resp.CurrentPeriodEnd = current.CurrentPeriodEnd
	}

	switch {
	case err == nil:
	case ierr.Is(err, poller.ErrPollTimeout):
		s.Logger.Warnw("local subscription did not converge before poll timeout",
			"subscription_id", target.SubscriptionID,
			"cancel_at_period_end", cancelAtPeriodEnd,
		)
		resp.Pending = true
	default:
		return nil, err
	}
	return resp, nil
}

// scheduleSeatRemoval lowers the parent's additional quantity by one and
// flags the seat. The quantity change bills from the next invoice, so the
// mailbox stays usable until the period ends.
func (s *billingService) scheduleSeatRemoval(ctx context.Context, userID string, seat *subscription.Subscription) (*dto.SubscriptionActionResponse, error) {
	if !seat.IsLinked() {
		return nil, ierr.NewError("cannot cancel an unconfigured slot").
			WithHint("Connect a mailbox to this slot before cancelling it").
			WithReportableDetails(map[string]any{"subscription_id": seat.SubscriptionID}).
			Mark(ierr.ErrInvalidOperation)
	}
	if seat.IsDeleted() {
		return nil, ierr.NewError("seat already removed").
			WithHint("This account has already been cancelled").
			Mark(ierr.ErrInvalidOperation)
	}
	if seat.RemovalScheduled {
		return seatResponse(seat), nil
	}

	if err := s.shiftSeatQuantity(ctx, seat, -1); err != nil {
		return nil, err
	}

	seat.RemovalScheduled = true
	seat.CancelAtPeriodEnd = true
	if err := s.SubscriptionRepo.Upsert(ctx, seat); err != nil {
		return nil, err
	}
	s.Logger.Infow("scheduled additional seat removal",
		"user_id", userID,
		"subscription_id", seat.SubscriptionID,
		"parent_subscription_id", *seat.ParentSubscriptionID,
		"current_period_end", seat.CurrentPeriodEnd,
	)

	ctx = types.SetSyncTrigger(ctx, types.SyncTriggerCancel)
	if _, err := s.sync.SyncCustomer(ctx, seat.CustomerID); err != nil {
		return nil, err
	}
	return seatResponse(seat), nil
}

// restoreSeat undoes scheduleSeatRemoval on the same seat row
func (s *billingService) restoreSeat(ctx context.Context, userID string, seat *subscription.Subscription) (*dto.SubscriptionActionResponse, error) {
	if !seat.RemovalScheduled {
		return seatResponse(seat), nil
	}

	if err := s.shiftSeatQuantity(ctx, seat, 1); err != nil {
		return nil, err
	}

	seat.RemovalScheduled = false
	seat.CancelAtPeriodEnd = false
	if err := s.SubscriptionRepo.Upsert(ctx, seat); err != nil {
		return nil, err
	}
	s.Logger.Infow("restored additional seat",
		"user_id", userID,
		"subscription_id", seat.SubscriptionID,
		"parent_subscription_id", *seat.ParentSubscriptionID,
	)

	ctx = types.SetSyncTrigger(ctx, types.SyncTriggerReactivate)
	if _, err := s.sync.SyncCustomer(ctx, seat.CustomerID); err != nil {
		return nil, err
	}

	row, err := s.SubscriptionRepo.Get(ctx, seat.SubscriptionID)
	if err != nil {
		return nil, err
	}
	return seatResponse(row), nil
}

// shiftSeatQuantity changes the additional-account quantity of the seat's
// parent subscription by delta
func (s *billingService) shiftSeatQuantity(ctx context.Context, seat *subscription.Subscription, delta int64) error {
	parentID := *seat.ParentSubscriptionID
	parent, err := s.Stripe.RetrieveSubscription(ctx, parentID)
	if err != nil {
		return err
	}

	item := stripeint.ItemForPrice(parent, s.Config.Stripe.AdditionalAccountPriceID)
	if item == nil {
		item = stripeint.FirstItem(parent)
	}
	if item == nil || item.Quantity+delta < 0 {
		return ierr.NewError("parent subscription has no additional quantity").
			WithHint("This account is not billed as an additional seat").
			WithReportableDetails(map[string]any{"parent_subscription_id": parentID}).
			Mark(ierr.ErrInvalidOperation)
	}

	_, err = s.Stripe.UpdateItemQuantity(ctx, item.ID, item.Quantity+delta)
	return err
}

func seatResponse(seat *subscription.Subscription) *dto.SubscriptionActionResponse {
	return &dto.SubscriptionActionResponse{
		Success:           true,
		SubscriptionID:    seat.SubscriptionID,
		CancelAtPeriodEnd: seat.CancelAtPeriodEnd,
		CurrentPeriodEnd:  seat.CurrentPeriodEnd,
	}
}

// resolveTarget finds the row a cancel or reactivate request acts on:
// the premier row for the primary account, the row linked to the account
// otherwise, falling back to any unlinked standalone additional row
func (s *billingService) resolveTarget(ctx context.Context, userID string, req *dto.SubscriptionActionRequest) (*subscription.Subscription, error) {
	rows, err := s.SubscriptionRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.SubscriptionID != "" {
		row, ok := lo.Find(rows, func(r *subscription.Subscription) bool {
			return r.SubscriptionID == req.SubscriptionID
		})
		if !ok {
			return nil, ierr.NewError("subscription not found").
				WithHint("Subscription not found").
				WithReportableDetails(map[string]any{"subscription_id": req.SubscriptionID}).
				Mark(ierr.ErrNotFound)
		}
		if row.IsPlaceholder() {
			return nil, ierr.NewError("subscription not started").
				WithHint("No active subscription yet, please subscribe first").
				Mark(ierr.ErrInvalidOperation)
		}
		return row, nil
	}

	premierTarget := req.SubscriptionType == types.SubscriptionTypePremier
	if req.EmailConfigurationID != "" {
		account, err := s.EmailAccountRepo.Get(ctx, req.EmailConfigurationID)
		if err != nil {
			return nil, err
		}
		if account.UserID != userID {
			return nil, ierr.NewError("email account belongs to another user").
				WithHint("Email account not found").
				Mark(ierr.ErrNotFound)
		}
		premierTarget = premierTarget || account.IsPrimary
	}

	if premierTarget {
		premiers := lo.Filter(rows, func(r *subscription.Subscription, _ int) bool {
			return r.IsPremier() && !r.IsSeat() && !r.IsPlaceholder() && !r.IsDeleted()
		})
		if len(premiers) == 0 {
			return nil, ierr.NewError("no base subscription").
				WithHint("No base subscription found, please subscribe first").
				WithReportableDetails(map[string]any{"user_id": userID}).
				Mark(ierr.ErrNotFound)
		}
		if live, ok := lo.Find(premiers, func(r *subscription.Subscription) bool { return r.IsLive() }); ok {
			return live, nil
		}
		return premiers[len(premiers)-1], nil
	}

	linked := lo.Filter(rows, func(r *subscription.Subscription, _ int) bool {
		return r.IsAdditional() && r.IsLinkedTo(req.EmailConfigurationID)
	})
	if row, ok := lo.Find(linked, func(r *subscription.Subscription) bool { return !r.IsDeleted() }); ok {
		return row, nil
	}

	fallback, ok := lo.Find(rows, func(r *subscription.Subscription) bool {
		return r.IsAdditional() && !r.IsSeat() && !r.IsLinked() && !r.IsDeleted() && !r.IsPlaceholder()
	})
	if ok {
		return fallback, nil
	}
	if len(linked) > 0 {
		return linked[len(linked)-1], nil
	}

	return nil, ierr.NewError("no subscription for email account").
		WithHint("No subscription found for this account").
		WithReportableDetails(map[string]any{"email_configuration_id": req.EmailConfigurationID}).
		Mark(ierr.ErrNotFound)
}

func (s *billingService) ForceSync(ctx context.Context, userID string, email string, req *dto.SyncRequest) (*dto.SyncResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.requireStripeConfig(); err != nil {
		return nil, err
	}

	customerID, _, err := s.customers.Resolve(ctx, userID, email)
	if err != nil {
		return nil, err
	}

	trigger := types.SyncTriggerManual
	if req.Wait == types.SyncWaitCheckout {
		trigger = types.SyncTriggerCheckout
	}
	ctx = types.SetSyncTrigger(ctx, trigger)

	result, err := s.sync.SyncCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	resp := &dto.SyncResponse{Success: true, CustomerID: customerID}

	if req.Wait == types.SyncWaitCheckout && result.Premier == nil {
		cfg := poller.Config{
			Interval: s.Config.Billing.PollInterval,
			Timeout:  s.Config.Billing.CheckoutPollTimeout,
		}
		err := s.Poller.Poll(ctx, cfg, func(ctx context.Context) (bool, error) {
			r, err := s.sync.SyncCustomer(ctx, customerID)
			if err != nil {
				return false, err
			}
			result = r
			return r.Premier != nil, nil
		})
		switch {
		case err == nil:
		case ierr.Is(err, poller.ErrPollTimeout):
			s.Logger.Warnw("checkout not confirmed before poll timeout", "user_id", userID, "customer_id", customerID)
			resp.Pending = true
		default:
			return nil, err
		}
	}

	invoices, err := s.sync.SyncInvoices(ctx, customerID)
	if err != nil {
		s.Logger.Warnw("failed to sync invoices", "user_id", userID, "customer_id", customerID, "error", err)
	}

	resp.Subscriptions = len(lo.Filter(result.Records, func(r *subscription.Subscription, _ int) bool {
		return !r.IsPlaceholder()
	}))
	resp.SlotsCreated = result.SlotsCreated
	resp.SlotsRetired = result.SlotsRetired
	resp.Invoices = invoices
	resp.PremierStatus = result.PremierStatus()
	return resp, nil
}

func (s *billingService) CreatePortalSession(ctx context.Context, userID string, req *dto.PortalSessionRequest) (*dto.PortalSessionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	returnURL := lo.CoalesceOrEmpty(req.ReturnURL, s.Config.Stripe.PortalReturnURL)
	if returnURL == "" {
		return nil, ierr.NewError("return url is required").
			WithHint("A return URL is required to open the billing portal").
			Mark(ierr.ErrValidation)
	}

	mapping, err := s.customers.Lookup(ctx, userID)
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil, ierr.WithError(err).
				WithHint("No billing account found, please subscribe first").
				Mark(ierr.ErrNotFound)
		}
		return nil, err
	}

	session, err := s.Stripe.CreatePortalSession(ctx, mapping.CustomerID, returnURL)
	if err != nil {
		return nil, err
	}
	return &dto.PortalSessionResponse{URL: session.URL}, nil
}
