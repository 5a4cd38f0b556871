package postgres

import (
	"context"
	"time"

	"github.com/hallmail/hallmail/internal/domain/subscription"
	ierr "github.com/hallmail/hallmail/internal/errors"
	"github.com/hallmail/hallmail/internal/logger"
	"github.com/hallmail/hallmail/internal/postgres"
	"github.com/lib/pq"
)

type subscriptionRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewSubscriptionRepository(db *postgres.DB, logger *logger.Logger) subscription.Repository {
	return &subscriptionRepository{db: db, logger: logger}
}

const subscriptionColumns = `
	id, subscription_id, user_id, customer_id, subscription_type, status, price_id,
	current_period_start, current_period_end, cancel_at_period_end,
	email_configuration_id, parent_subscription_id, removal_scheduled,
	payment_method_brand, payment_method_last4,
	created_at, updated_at, deleted_at`

const insertSubscription = `
	INSERT INTO stripe_user_subscriptions (
		subscription_id, user_id, customer_id, subscription_type, status, price_id,
		current_period_start, current_period_end, cancel_at_period_end,
		email_configuration_id, parent_subscription_id, removal_scheduled,
		payment_method_brand, payment_method_last4,
		created_at, updated_at, deleted_at
	) VALUES (
		:subscription_id, :user_id, :customer_id, :subscription_type, :status, :price_id,
		:current_period_start, :current_period_end, :cancel_at_period_end,
		:email_configuration_id, :parent_subscription_id, :removal_scheduled,
		:payment_method_brand, :payment_method_last4,
		:created_at, :updated_at, :deleted_at
	)`

func (r *subscriptionRepository) Upsert(ctx context.Context, sub *subscription.Subscription) error {
	now := time.Now().UTC()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now

	query := insertSubscription + `
		ON CONFLICT (subscription_id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			customer_id = EXCLUDED.customer_id,
			subscription_type = EXCLUDED.subscription_type,
			status = EXCLUDED.status,
			price_id = EXCLUDED.price_id,
			current_period_start = EXCLUDED.current_period_start,
			current_period_end = EXCLUDED.current_period_end,
			cancel_at_period_end = EXCLUDED.cancel_at_period_end,
			email_configuration_id = EXCLUDED.email_configuration_id,
			parent_subscription_id = EXCLUDED.parent_subscription_id,
			removal_scheduled = EXCLUDED.removal_scheduled,
			payment_method_brand = EXCLUDED.payment_method_brand,
			payment_method_last4 = EXCLUDED.payment_method_last4,
			updated_at = EXCLUDED.updated_at,
			deleted_at = EXCLUDED.deleted_at
	`

	if _, err := r.db.NamedExecContext(ctx, query, sub); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to save subscription").
			WithReportableDetails(map[string]any{
				"subscription_id": sub.SubscriptionID,
				"user_id":         sub.UserID,
			}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *subscriptionRepository) Get(ctx context.Context, subscriptionID string) (*subscription.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM stripe_user_subscriptions WHERE subscription_id = $1`

	var sub subscription.Subscription
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &sub, query, subscriptionID); err != nil {
		if isNoRows(err) {
			return nil, ierr.WithError(err).
				WithHintf("Subscription %s was not found", subscriptionID).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get subscription").
			WithReportableDetails(map[string]any{"subscription_id": subscriptionID}).
			Mark(ierr.ErrDatabase)
	}
	return &sub, nil
}

func (r *subscriptionRepository) ListByUser(ctx context.Context, userID string) ([]*subscription.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM stripe_user_subscriptions
		WHERE user_id = $1
		ORDER BY created_at ASC, id ASC
	`
	return r.list(ctx, query, userID, map[string]any{"user_id": userID})
}

func (r *subscriptionRepository) ListByCustomer(ctx context.Context, customerID string) ([]*subscription.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM stripe_user_subscriptions
		WHERE customer_id = $1
		ORDER BY created_at ASC, id ASC
	`
	return r.list(ctx, query, customerID, map[string]any{"customer_id": customerID})
}

func (r *subscriptionRepository) list(ctx context.Context, query string, arg string, details map[string]any) ([]*subscription.Subscription, error) {
	var subs []*subscription.Subscription
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &subs, query, arg); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list subscriptions").
			WithReportableDetails(details).
			Mark(ierr.ErrDatabase)
	}
	return subs, nil
}

func (r *subscriptionRepository) CreateSlots(ctx context.Context, slots []*subscription.Subscription) error {
	now := time.Now().UTC()
	query := insertSubscription + ` ON CONFLICT (subscription_id) DO NOTHING`

	for _, slot := range slots {
		if slot.CreatedAt.IsZero() {
			slot.CreatedAt = now
		}
		slot.UpdatedAt = now

		if _, err := r.db.NamedExecContext(ctx, query, slot); err != nil {
			return ierr.WithError(err).
				WithHint("Failed to create subscription slots").
				WithReportableDetails(map[string]any{
					"subscription_id":        slot.SubscriptionID,
					"parent_subscription_id": slot.ParentSubscriptionID,
				}).
				Mark(ierr.ErrDatabase)
		}
	}
	return nil
}

func (r *subscriptionRepository) SoftDelete(ctx context.Context, subscriptionIDs []string, at time.Time) error {
	if len(subscriptionIDs) == 0 {
		return nil
	}

	query := `
		UPDATE stripe_user_subscriptions
		SET deleted_at = $2, updated_at = $2
		WHERE subscription_id = ANY($1) AND deleted_at IS NULL
	`

	if _, err := r.db.GetQuerier(ctx).ExecContext(ctx, query, pq.Array(subscriptionIDs), at.UTC()); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to retire subscriptions").
			WithReportableDetails(map[string]any{"subscription_ids": subscriptionIDs}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *subscriptionRepository) Delete(ctx context.Context, subscriptionID string) error {
	query := `DELETE FROM stripe_user_subscriptions WHERE subscription_id = $1`

	if _, err := r.db.GetQuerier(ctx).ExecContext(ctx, query, subscriptionID); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to delete subscription").
			WithReportableDetails(map[string]any{"subscription_id": subscriptionID}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}
