package subscription

import (
	"context"
	"time"
)

// Repository defines the interface for mirrored subscription rows
type Repository interface {
	// Upsert inserts or updates by subscription_id
	Upsert(ctx context.Context, sub *Subscription) error
	Get(ctx context.Context, subscriptionID string) (*Subscription, error)
	// ListByUser returns every row of the user, deleted ones included,
	// ordered by created_at
	ListByUser(ctx context.Context, userID string) ([]*Subscription, error)
	ListByCustomer(ctx context.Context, customerID string) ([]*Subscription, error)
	// CreateSlots inserts seat rows, skipping ids that already exist
	CreateSlots(ctx context.Context, slots []*Subscription) error
	SoftDelete(ctx context.Context, subscriptionIDs []string, at time.Time) error
	Delete(ctx context.Context, subscriptionID string) error
}
