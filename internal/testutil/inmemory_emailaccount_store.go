package testutil

import (
	"context"
	"time"

	"github.com/hallmail/hallmail/internal/domain/emailaccount"
	"github.com/samber/lo"
)

// InMemoryEmailAccountStore implements emailaccount.Repository
type InMemoryEmailAccountStore struct {
	*InMemoryStore[*emailaccount.EmailAccount]
}

func NewInMemoryEmailAccountStore() *InMemoryEmailAccountStore {
	return &InMemoryEmailAccountStore{
		InMemoryStore: NewInMemoryStore[*emailaccount.EmailAccount](),
	}
}

func copyEmailAccount(a *emailaccount.EmailAccount) *emailaccount.EmailAccount {
	if a == nil {
		return nil
	}
	cp := *a
	if a.GmailTokenID != nil {
		cp.GmailTokenID = lo.ToPtr(*a.GmailTokenID)
	}
	return &cp
}

func (s *InMemoryEmailAccountStore) Get(ctx context.Context, id string) (*emailaccount.EmailAccount, error) {
	a, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return copyEmailAccount(a), nil
}

func (s *InMemoryEmailAccountStore) ListByUser(ctx context.Context, userID string) ([]*emailaccount.EmailAccount, error) {
	accounts := s.List(ctx, func(_ context.Context, a *emailaccount.EmailAccount) bool {
		return a.UserID == userID
	}, func(a, b *emailaccount.EmailAccount) bool {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID < b.ID
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return lo.Map(accounts, func(a *emailaccount.EmailAccount, _ int) *emailaccount.EmailAccount {
		return copyEmailAccount(a)
	}), nil
}

func (s *InMemoryEmailAccountStore) Create(ctx context.Context, account *emailaccount.EmailAccount) error {
	now := time.Now().UTC()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now
	return s.InMemoryStore.Create(ctx, account.ID, copyEmailAccount(account))
}

func (s *InMemoryEmailAccountStore) SetActive(ctx context.Context, userID string, ids []string, active bool) error {
	set := lo.SliceToMap(ids, func(id string) (string, bool) { return id, true })
	s.Update(ctx, func(_ context.Context, a *emailaccount.EmailAccount) bool {
		return a.UserID == userID && set[a.ID]
	}, func(a *emailaccount.EmailAccount) *emailaccount.EmailAccount {
		cp := copyEmailAccount(a)
		cp.IsActive = active
		return cp
	})
	return nil
}

func (s *InMemoryEmailAccountStore) SetActiveForUser(ctx context.Context, userID string, active bool, includePrimary bool) error {
	s.Update(ctx, func(_ context.Context, a *emailaccount.EmailAccount) bool {
		return a.UserID == userID && (includePrimary || !a.IsPrimary)
	}, func(a *emailaccount.EmailAccount) *emailaccount.EmailAccount {
		cp := copyEmailAccount(a)
		cp.IsActive = active
		return cp
	})
	return nil
}

// Seed stores accounts as given, keeping their CreatedAt
func (s *InMemoryEmailAccountStore) Seed(accounts ...*emailaccount.EmailAccount) {
	for _, a := range accounts {
		s.Put(context.Background(), a.ID, copyEmailAccount(a))
	}
}
