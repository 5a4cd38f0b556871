package postgres

import (
	"context"
	"time"

	"github.com/hallmail/hallmail/internal/domain/invoice"
	ierr "github.com/hallmail/hallmail/internal/errors"
	"github.com/hallmail/hallmail/internal/logger"
	"github.com/hallmail/hallmail/internal/postgres"
)

type invoiceRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewInvoiceRepository(db *postgres.DB, logger *logger.Logger) invoice.Repository {
	return &invoiceRepository{db: db, logger: logger}
}

func (r *invoiceRepository) Upsert(ctx context.Context, inv *invoice.Invoice) error {
	now := time.Now().UTC()
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = now
	}
	inv.UpdatedAt = now

	query := `
		INSERT INTO stripe_invoices (
			invoice_id, customer_id, subscription_id, user_id, amount_paid,
			currency, status, paid_at, hosted_invoice_url, created_at, updated_at
		) VALUES (
			:invoice_id, :customer_id, :subscription_id, :user_id, :amount_paid,
			:currency, :status, :paid_at, :hosted_invoice_url, :created_at, :updated_at
		)
		ON CONFLICT (invoice_id) DO UPDATE SET
			subscription_id = EXCLUDED.subscription_id,
			user_id = EXCLUDED.user_id,
			amount_paid = EXCLUDED.amount_paid,
			currency = EXCLUDED.currency,
			status = EXCLUDED.status,
			paid_at = EXCLUDED.paid_at,
			hosted_invoice_url = EXCLUDED.hosted_invoice_url,
			updated_at = EXCLUDED.updated_at
	`

	if _, err := r.db.NamedExecContext(ctx, query, inv); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to save invoice").
			WithReportableDetails(map[string]any{"invoice_id": inv.InvoiceID}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *invoiceRepository) ListByUser(ctx context.Context, userID string) ([]*invoice.Invoice, error) {
	query := `
		SELECT id, invoice_id, customer_id, subscription_id, user_id, amount_paid,
			currency, status, paid_at, hosted_invoice_url, created_at, updated_at
		FROM stripe_invoices
		WHERE user_id = $1
		ORDER BY paid_at DESC NULLS LAST, created_at DESC
	`

	var invoices []*invoice.Invoice
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &invoices, query, userID); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list invoices").
			WithReportableDetails(map[string]any{"user_id": userID}).
			Mark(ierr.ErrDatabase)
	}
	return invoices, nil
}
