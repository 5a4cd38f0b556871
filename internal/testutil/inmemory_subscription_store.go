package testutil

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hallmail/hallmail/internal/domain/subscription"
	"github.com/samber/lo"
)

// InMemorySubscriptionStore implements subscription.Repository
type InMemorySubscriptionStore struct {
	*InMemoryStore[*subscription.Subscription]
	seq int64

	// UpsertErr, when it returns an error for a row, makes Upsert fail
	// without storing it
	UpsertErr func(sub *subscription.Subscription) error
}

func NewInMemorySubscriptionStore() *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{
		InMemoryStore: NewInMemoryStore[*subscription.Subscription](),
	}
}

func copySubscription(s *subscription.Subscription) *subscription.Subscription {
	if s == nil {
		return nil
	}
	cp := *s
	if s.EmailConfigurationID != nil {
		cp.EmailConfigurationID = lo.ToPtr(*s.EmailConfigurationID)
	}
	if s.ParentSubscriptionID != nil {
		cp.ParentSubscriptionID = lo.ToPtr(*s.ParentSubscriptionID)
	}
	if s.DeletedAt != nil {
		t := *s.DeletedAt
		cp.DeletedAt = &t
	}
	return &cp
}

func byCreatedAt(a, b *subscription.Subscription) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID < b.ID
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

func (s *InMemorySubscriptionStore) put(ctx context.Context, sub *subscription.Subscription, overwrite bool) error {
	if s.UpsertErr != nil {
		if err := s.UpsertErr(sub); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	prev, err := s.InMemoryStore.Get(ctx, sub.SubscriptionID)
	if err == nil {
		if !overwrite {
			return nil
		}
		sub.ID = prev.ID
		if sub.CreatedAt.IsZero() {
			sub.CreatedAt = prev.CreatedAt
		}
	} else {
		sub.ID = atomic.AddInt64(&s.seq, 1)
		if sub.CreatedAt.IsZero() {
			sub.CreatedAt = now
		}
	}
	sub.UpdatedAt = now

	s.Put(ctx, sub.SubscriptionID, copySubscription(sub))
	return nil
}

func (s *InMemorySubscriptionStore) Upsert(ctx context.Context, sub *subscription.Subscription) error {
	return s.put(ctx, sub, true)
}

func (s *InMemorySubscriptionStore) Get(ctx context.Context, subscriptionID string) (*subscription.Subscription, error) {
	sub, err := s.InMemoryStore.Get(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	return copySubscription(sub), nil
}

func (s *InMemorySubscriptionStore) ListByUser(ctx context.Context, userID string) ([]*subscription.Subscription, error) {
	subs := s.List(ctx, func(_ context.Context, sub *subscription.Subscription) bool {
		return sub.UserID == userID
	}, byCreatedAt)
	return lo.Map(subs, func(sub *subscription.Subscription, _ int) *subscription.Subscription {
		return copySubscription(sub)
	}), nil
}

func (s *InMemorySubscriptionStore) ListByCustomer(ctx context.Context, customerID string) ([]*subscription.Subscription, error) {
	subs := s.List(ctx, func(_ context.Context, sub *subscription.Subscription) bool {
		return sub.CustomerID == customerID
	}, byCreatedAt)
	return lo.Map(subs, func(sub *subscription.Subscription, _ int) *subscription.Subscription {
		return copySubscription(sub)
	}), nil
}

func (s *InMemorySubscriptionStore) CreateSlots(ctx context.Context, slots []*subscription.Subscription) error {
	for _, slot := range slots {
		if err := s.put(ctx, slot, false); err != nil {
			return err
		}
	}
	return nil
}

func (s *InMemorySubscriptionStore) SoftDelete(ctx context.Context, subscriptionIDs []string, at time.Time) error {
	ids := lo.SliceToMap(subscriptionIDs, func(id string) (string, bool) { return id, true })
	at = at.UTC()
	s.Update(ctx, func(_ context.Context, sub *subscription.Subscription) bool {
		return ids[sub.SubscriptionID] && sub.DeletedAt == nil
	}, func(sub *subscription.Subscription) *subscription.Subscription {
		cp := copySubscription(sub)
		cp.DeletedAt = &at
		cp.UpdatedAt = at
		return cp
	})
	return nil
}

func (s *InMemorySubscriptionStore) Delete(ctx context.Context, subscriptionID string) error {
	s.InMemoryStore.Delete(ctx, subscriptionID)
	return nil
}

// All returns every row of the user, for assertions
func (s *InMemorySubscriptionStore) All(userID string) []*subscription.Subscription {
	subs, _ := s.ListByUser(context.Background(), userID)
	return subs
}
