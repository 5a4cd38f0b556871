package emailaccount

import "context"

// Repository defines the interface for email account data access
type Repository interface {
	Get(ctx context.Context, id string) (*EmailAccount, error)
	// ListByUser returns the user's accounts ordered by created_at
	ListByUser(ctx context.Context, userID string) ([]*EmailAccount, error)
	Create(ctx context.Context, account *EmailAccount) error
	SetActive(ctx context.Context, userID string, ids []string, active bool) error
	// SetActiveForUser flips every account of the user, optionally
	// leaving the primary one untouched
	SetActiveForUser(ctx context.Context, userID string, active bool, includePrimary bool) error
}
