package testutil

import (
	"context"
	"time"

	"github.com/hallmail/hallmail/internal/domain/invoice"
	"github.com/samber/lo"
)

// InMemoryInvoiceStore implements invoice.Repository
type InMemoryInvoiceStore struct {
	*InMemoryStore[*invoice.Invoice]
}

func NewInMemoryInvoiceStore() *InMemoryInvoiceStore {
	return &InMemoryInvoiceStore{
		InMemoryStore: NewInMemoryStore[*invoice.Invoice](),
	}
}

func copyInvoice(inv *invoice.Invoice) *invoice.Invoice {
	cp := *inv
	if inv.PaidAt != nil {
		cp.PaidAt = lo.ToPtr(*inv.PaidAt)
	}
	return &cp
}

func (s *InMemoryInvoiceStore) Upsert(ctx context.Context, inv *invoice.Invoice) error {
	now := time.Now().UTC()
	if prev, err := s.InMemoryStore.Get(ctx, inv.InvoiceID); err == nil {
		inv.ID = prev.ID
		inv.CreatedAt = prev.CreatedAt
	} else {
		inv.ID = int64(s.Len() + 1)
		inv.CreatedAt = now
	}
	inv.UpdatedAt = now
	s.Put(ctx, inv.InvoiceID, copyInvoice(inv))
	return nil
}

func (s *InMemoryInvoiceStore) ListByUser(ctx context.Context, userID string) ([]*invoice.Invoice, error) {
	invoices := s.List(ctx, func(_ context.Context, inv *invoice.Invoice) bool {
		return inv.UserID == userID
	}, func(a, b *invoice.Invoice) bool {
		return lo.FromPtr(a.PaidAt) > lo.FromPtr(b.PaidAt)
	})
	return lo.Map(invoices, func(inv *invoice.Invoice, _ int) *invoice.Invoice {
		return copyInvoice(inv)
	}), nil
}
