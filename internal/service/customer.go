package service

import (
	"context"
	"time"

	"github.com/hallmail/hallmail/internal/cache"
	"github.com/hallmail/hallmail/internal/domain/customer"
	"github.com/hallmail/hallmail/internal/domain/subscription"
	ierr "github.com/hallmail/hallmail/internal/errors"
	"github.com/hallmail/hallmail/internal/types"
	"github.com/samber/lo"
)

const customerUserCacheTTL = time.Hour

// CustomerResolver maps users to Stripe customers
type CustomerResolver interface {
	// Resolve returns the user's customer id, creating the Stripe customer,
	// the mapping and the not_started placeholder on first use
	Resolve(ctx context.Context, userID string, email string) (customerID string, created bool, err error)
	// Lookup returns the existing mapping or ErrNotFound
	Lookup(ctx context.Context, userID string) (*customer.Customer, error)
	// UserIDForCustomer resolves the owner of a Stripe customer
	UserIDForCustomer(ctx context.Context, customerID string) (string, error)
}

type customerResolver struct {
	ServiceParams
}

func NewCustomerResolver(params ServiceParams) CustomerResolver {
	return &customerResolver{ServiceParams: params}
}

func (s *customerResolver) Lookup(ctx context.Context, userID string) (*customer.Customer, error) {
	return s.CustomerRepo.GetByUserID(ctx, userID)
}

func (s *customerResolver) Resolve(ctx context.Context, userID string, email string) (string, bool, error) {
	if userID == "" {
		return "", false, ierr.NewError("user id is required").
			WithHint("Please sign in again").
			Mark(ierr.ErrUnauthorized)
	}

	existing, err := s.CustomerRepo.GetByUserID(ctx, userID)
	if err == nil {
		return existing.CustomerID, false, nil
	}
	if !ierr.IsNotFound(err) {
		return "", false, err
	}

	sc, err := s.Stripe.CreateCustomer(ctx, email, userID)
	if err != nil {
		return "", false, err
	}

	// Stripe and the database cannot commit together. Every local write
	// below that fails undoes the remote customer and what was written so
	// far.
	mappingCreated := false
	placeholderID := subscription.PlaceholderID(sc.ID)
	compensate := func(cause error) {
		log := s.Logger.With("user_id", userID, "customer_id", sc.ID)
		if err := s.SubscriptionRepo.Delete(ctx, placeholderID); err != nil {
			log.Errorw("compensation: failed to delete placeholder subscription", "error", err)
		}
		if mappingCreated {
			if err := s.CustomerRepo.Delete(ctx, sc.ID); err != nil {
				log.Errorw("compensation: failed to delete customer mapping", "error", err)
			}
		}
		if err := s.Stripe.DeleteCustomer(ctx, sc.ID); err != nil {
			log.Errorw("compensation: failed to delete stripe customer, it is now orphaned", "error", err)
		}
		log.Warnw("rolled back customer creation", "cause", cause)
	}

	mapping := &customer.Customer{
		UserID:     userID,
		CustomerID: sc.ID,
	}
	if err := s.CustomerRepo.Create(ctx, mapping); err != nil {
		compensate(err)
		if ierr.IsAlreadyExists(err) {
			// another request created the mapping first
			if winner, getErr := s.CustomerRepo.GetByUserID(ctx, userID); getErr == nil {
				return winner.CustomerID, false, nil
			}
		}
		return "", false, err
	}
	mappingCreated = true

	placeholder := &subscription.Subscription{
		SubscriptionID:   placeholderID,
		UserID:           userID,
		CustomerID:       sc.ID,
		SubscriptionType: types.SubscriptionTypePremier,
		Status:           types.SubscriptionStatusNotStarted,
	}
	if primary, err := s.primaryAccountID(ctx, userID); err == nil && primary != "" {
		placeholder.EmailConfigurationID = lo.ToPtr(primary)
	}
	if err := s.SubscriptionRepo.Upsert(ctx, placeholder); err != nil {
		compensate(err)
		return "", false, err
	}

	s.Cache.Set(ctx, cache.GenerateKey(cache.PrefixCustomerUser, sc.ID), userID, customerUserCacheTTL)
	s.Logger.Infow("created stripe customer", "user_id", userID, "customer_id", sc.ID)
	return sc.ID, true, nil
}

func (s *customerResolver) UserIDForCustomer(ctx context.Context, customerID string) (string, error) {
	key := cache.GenerateKey(cache.PrefixCustomerUser, customerID)
	if v, ok := s.Cache.Get(ctx, key); ok {
		if userID, ok := v.(string); ok && userID != "" {
			return userID, nil
		}
	}

	mapping, err := s.CustomerRepo.GetByCustomerID(ctx, customerID)
	if err == nil {
		s.Cache.Set(ctx, key, mapping.UserID, customerUserCacheTTL)
		return mapping.UserID, nil
	}
	if !ierr.IsNotFound(err) {
		return "", err
	}

	sc, err := s.Stripe.RetrieveCustomer(ctx, customerID)
	if err != nil {
		return "", err
	}
	userID := sc.Metadata[types.MetadataKeyCustomerUserID]
	if userID == "" {
		userID = sc.Metadata[types.MetadataKeyUserID]
	}
	if userID == "" {
		return "", ierr.NewError("stripe customer has no user id metadata").
			WithHintf("No user is associated with customer %s", customerID).
			WithReportableDetails(map[string]any{"customer_id": customerID}).
			Mark(ierr.ErrNotFound)
	}

	if err := s.CustomerRepo.Create(ctx, &customer.Customer{UserID: userID, CustomerID: customerID}); err != nil {
		// the user may already be mapped to a newer customer, keep that one
		s.Logger.Warnw("could not persist customer mapping recovered from stripe",
			"error", err,
			"user_id", userID,
			"customer_id", customerID,
		)
	}

	s.Cache.Set(ctx, key, userID, customerUserCacheTTL)
	return userID, nil
}

func (s *customerResolver) primaryAccountID(ctx context.Context, userID string) (string, error) {
	accounts, err := s.EmailAccountRepo.ListByUser(ctx, userID)
	if err != nil {
		return "", err
	}
	for _, a := range accounts {
		if a.IsPrimary {
			return a.ID, nil
		}
	}
	return "", nil
}
