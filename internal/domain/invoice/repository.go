package invoice

import "context"

type Repository interface {
	// Upsert inserts or updates by invoice_id
	Upsert(ctx context.Context, inv *Invoice) error
	// ListByUser returns the user's invoices, newest first
	ListByUser(ctx context.Context, userID string) ([]*Invoice, error)
}
