package service

import (
	"context"

	"github.com/hallmail/hallmail/internal/api/dto"
	"github.com/hallmail/hallmail/internal/domain/invoice"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

type InvoiceService interface {
	ListInvoices(ctx context.Context, userID string) (*dto.ListInvoicesResponse, error)
}

type invoiceService struct {
	ServiceParams
}

func NewInvoiceService(params ServiceParams) InvoiceService {
	return &invoiceService{ServiceParams: params}
}

func (s *invoiceService) ListInvoices(ctx context.Context, userID string) (*dto.ListInvoicesResponse, error) {
	invoices, err := s.InvoiceRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	totals := make(map[string]decimal.Decimal)
	for _, inv := range invoices {
		if inv.PaidAt == nil {
			continue
		}
		totals[inv.Currency] = totals[inv.Currency].Add(inv.Amount())
	}

	return &dto.ListInvoicesResponse{
		Items: lo.Map(invoices, func(inv *invoice.Invoice, _ int) *dto.InvoiceResponse {
			return dto.NewInvoiceResponse(inv)
		}),
		TotalPaid: totals,
	}, nil
}
