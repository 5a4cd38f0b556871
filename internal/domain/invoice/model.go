package invoice

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice mirrors a paid Stripe invoice (stripe_invoices)
type Invoice struct {
	ID             int64     `db:"id" json:"-"`
	InvoiceID      string    `db:"invoice_id" json:"invoice_id"`
	CustomerID     string    `db:"customer_id" json:"customer_id"`
	SubscriptionID string    `db:"subscription_id" json:"subscription_id"`
	UserID         string    `db:"user_id" json:"user_id"`
	AmountPaid     int64     `db:"amount_paid" json:"amount_paid"`
	Currency       string    `db:"currency" json:"currency"`
	Status         string    `db:"status" json:"status"`
	PaidAt         *int64    `db:"paid_at" json:"paid_at,omitempty"`
	HostedURL      string    `db:"hosted_invoice_url" json:"hosted_invoice_url"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Amount converts the minor-unit amount into a decimal in the major unit
func (i *Invoice) Amount() decimal.Decimal {
	return decimal.New(i.AmountPaid, -2)
}
