package customer

import "context"

// Repository defines the interface for stripe customer mappings
type Repository interface {
	// GetByUserID returns the non-deleted mapping for the user
	GetByUserID(ctx context.Context, userID string) (*Customer, error)
	GetByCustomerID(ctx context.Context, customerID string) (*Customer, error)
	// ListAll returns every non-deleted mapping, oldest first
	ListAll(ctx context.Context) ([]*Customer, error)
	Create(ctx context.Context, c *Customer) error
	// Delete soft deletes the mapping for a stripe customer id
	Delete(ctx context.Context, customerID string) error
}
