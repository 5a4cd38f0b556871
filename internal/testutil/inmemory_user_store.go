package testutil

import (
	"context"

	"github.com/hallmail/hallmail/internal/domain/user"
)

// InMemoryUserStore implements user.Repository
type InMemoryUserStore struct {
	*InMemoryStore[*user.User]
}

func NewInMemoryUserStore() *InMemoryUserStore {
	return &InMemoryUserStore{
		InMemoryStore: NewInMemoryStore[*user.User](),
	}
}

func (s *InMemoryUserStore) Get(ctx context.Context, id string) (*user.User, error) {
	u, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	cp := *u
	return &cp, nil
}

func (s *InMemoryUserStore) Seed(users ...*user.User) {
	for _, u := range users {
		cp := *u
		s.Put(context.Background(), u.ID, &cp)
	}
}
