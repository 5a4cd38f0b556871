package testutil

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hallmail/hallmail/internal/domain/customer"
	ierr "github.com/hallmail/hallmail/internal/errors"
	"github.com/samber/lo"
)

// InMemoryCustomerStore implements customer.Repository
type InMemoryCustomerStore struct {
	*InMemoryStore[*customer.Customer]
	seq int64

	// CreateErr, when set, is returned by Create without storing anything
	CreateErr error
}

func NewInMemoryCustomerStore() *InMemoryCustomerStore {
	return &InMemoryCustomerStore{
		InMemoryStore: NewInMemoryStore[*customer.Customer](),
	}
}

func copyCustomer(c *customer.Customer) *customer.Customer {
	if c == nil {
		return nil
	}
	cp := *c
	if c.DeletedAt != nil {
		t := *c.DeletedAt
		cp.DeletedAt = &t
	}
	return &cp
}

func (s *InMemoryCustomerStore) GetByUserID(ctx context.Context, userID string) (*customer.Customer, error) {
	found := s.List(ctx, func(_ context.Context, c *customer.Customer) bool {
		return c.UserID == userID && c.DeletedAt == nil
	}, nil)
	if len(found) == 0 {
		return nil, ierr.NewError("stripe customer not found").
			WithHint("No billing account found").
			Mark(ierr.ErrNotFound)
	}
	return copyCustomer(found[0]), nil
}

func (s *InMemoryCustomerStore) GetByCustomerID(ctx context.Context, customerID string) (*customer.Customer, error) {
	c, err := s.InMemoryStore.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return copyCustomer(c), nil
}

func (s *InMemoryCustomerStore) ListAll(ctx context.Context) ([]*customer.Customer, error) {
	found := s.List(ctx, func(_ context.Context, c *customer.Customer) bool {
		return c.DeletedAt == nil
	}, func(a, b *customer.Customer) bool {
		return a.ID < b.ID
	})
	return lo.Map(found, func(c *customer.Customer, _ int) *customer.Customer {
		return copyCustomer(c)
	}), nil
}

func (s *InMemoryCustomerStore) Create(ctx context.Context, c *customer.Customer) error {
	if s.CreateErr != nil {
		return s.CreateErr
	}
	if _, err := s.GetByUserID(ctx, c.UserID); err == nil {
		return ierr.NewError("user already has a stripe customer").
			WithHint("A billing account already exists").
			Mark(ierr.ErrAlreadyExists)
	}

	now := time.Now().UTC()
	c.ID = atomic.AddInt64(&s.seq, 1)
	c.CreatedAt, c.UpdatedAt = now, now
	return s.InMemoryStore.Create(ctx, c.CustomerID, copyCustomer(c))
}

func (s *InMemoryCustomerStore) Delete(ctx context.Context, customerID string) error {
	now := time.Now().UTC()
	s.Update(ctx, func(_ context.Context, c *customer.Customer) bool {
		return c.CustomerID == customerID && c.DeletedAt == nil
	}, func(c *customer.Customer) *customer.Customer {
		cp := copyCustomer(c)
		cp.DeletedAt = &now
		return cp
	})
	return nil
}
