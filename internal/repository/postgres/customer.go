package postgres

import (
	"context"
	"time"

	"github.com/hallmail/hallmail/internal/domain/customer"
	ierr "github.com/hallmail/hallmail/internal/errors"
	"github.com/hallmail/hallmail/internal/logger"
	"github.com/hallmail/hallmail/internal/postgres"
)

type customerRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewCustomerRepository(db *postgres.DB, logger *logger.Logger) customer.Repository {
	return &customerRepository{db: db, logger: logger}
}

const customerColumns = `id, user_id, customer_id, created_at, updated_at, deleted_at`

func (r *customerRepository) GetByUserID(ctx context.Context, userID string) (*customer.Customer, error) {
	query := `
		SELECT ` + customerColumns + `
		FROM stripe_customers
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1
	`
	return r.getOne(ctx, query, userID, map[string]any{"user_id": userID})
}

func (r *customerRepository) GetByCustomerID(ctx context.Context, customerID string) (*customer.Customer, error) {
	query := `
		SELECT ` + customerColumns + `
		FROM stripe_customers
		WHERE customer_id = $1 AND deleted_at IS NULL
	`
	return r.getOne(ctx, query, customerID, map[string]any{"customer_id": customerID})
}

func (r *customerRepository) ListAll(ctx context.Context) ([]*customer.Customer, error) {
	query := `
		SELECT ` + customerColumns + `
		FROM stripe_customers
		WHERE deleted_at IS NULL
		ORDER BY created_at
	`

	var customers []*customer.Customer
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &customers, query); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list billing customers").
			Mark(ierr.ErrDatabase)
	}
	return customers, nil
}

func (r *customerRepository) getOne(ctx context.Context, query string, arg string, details map[string]any) (*customer.Customer, error) {
	var c customer.Customer
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &c, query, arg); err != nil {
		if isNoRows(err) {
			return nil, ierr.WithError(err).
				WithHint("No billing customer found, subscribe first").
				WithReportableDetails(details).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get billing customer").
			WithReportableDetails(details).
			Mark(ierr.ErrDatabase)
	}
	return &c, nil
}

func (r *customerRepository) Create(ctx context.Context, c *customer.Customer) error {
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	query := `
		INSERT INTO stripe_customers (user_id, customer_id, created_at, updated_at)
		VALUES (:user_id, :customer_id, :created_at, :updated_at)
	`

	if _, err := r.db.NamedExecContext(ctx, query, c); err != nil {
		details := map[string]any{"user_id": c.UserID, "customer_id": c.CustomerID}
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("A billing customer already exists for this user").
				WithReportableDetails(details).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to save billing customer").
			WithReportableDetails(details).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *customerRepository) Delete(ctx context.Context, customerID string) error {
	query := `
		UPDATE stripe_customers
		SET deleted_at = $2, updated_at = $2
		WHERE customer_id = $1 AND deleted_at IS NULL
	`

	if _, err := r.db.GetQuerier(ctx).ExecContext(ctx, query, customerID, time.Now().UTC()); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to delete billing customer").
			WithReportableDetails(map[string]any{"customer_id": customerID}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}
