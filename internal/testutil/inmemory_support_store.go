package testutil

import (
	"context"

	"github.com/hallmail/hallmail/internal/domain/support"
)

// InMemorySupportStore implements support.Repository
type InMemorySupportStore struct {
	*InMemoryStore[*support.Ticket]

	// CreateErr, when set, is returned by Create without storing anything
	CreateErr error
}

func NewInMemorySupportStore() *InMemorySupportStore {
	return &InMemorySupportStore{
		InMemoryStore: NewInMemoryStore[*support.Ticket](),
	}
}

func (s *InMemorySupportStore) Create(ctx context.Context, ticket *support.Ticket) error {
	if s.CreateErr != nil {
		return s.CreateErr
	}
	cp := *ticket
	return s.InMemoryStore.Create(ctx, ticket.ID, &cp)
}
