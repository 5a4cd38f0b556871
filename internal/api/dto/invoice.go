package dto

import (
	"github.com/hallmail/hallmail/internal/domain/invoice"
	"github.com/shopspring/decimal"
)

type InvoiceResponse struct {
	InvoiceID      string          `json:"invoice_id"`
	SubscriptionID string          `json:"subscription_id,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	AmountPaid     int64           `json:"amount_paid"`
	Currency       string          `json:"currency"`
	Status         string          `json:"status"`
	PaidAt         *int64          `json:"paid_at,omitempty"`
	HostedURL      string          `json:"hosted_invoice_url,omitempty"`
}

func NewInvoiceResponse(inv *invoice.Invoice) *InvoiceResponse {
	return &InvoiceResponse{
		InvoiceID:      inv.InvoiceID,
		SubscriptionID: inv.SubscriptionID,
		Amount:         inv.Amount(),
		AmountPaid:     inv.AmountPaid,
		Currency:       inv.Currency,
		Status:         inv.Status,
		PaidAt:         inv.PaidAt,
		HostedURL:      inv.HostedURL,
	}
}

type ListInvoicesResponse struct {
	Items []*InvoiceResponse `json:"items"`
	// Totals per currency, in the major unit
	TotalPaid map[string]decimal.Decimal `json:"total_paid"`
}
