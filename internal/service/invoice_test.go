package service

import (
	"testing"

	"github.com/hallmail/hallmail/internal/domain/invoice"
	"github.com/hallmail/hallmail/internal/testutil"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type InvoiceServiceSuite struct {
	serviceSuite
}

func TestInvoiceService(t *testing.T) {
	suite.Run(t, new(InvoiceServiceSuite))
}

func (s *InvoiceServiceSuite) TestListInvoicesTotalsPaidPerCurrency() {
	repo := s.GetStores().InvoiceRepo
	for _, inv := range []*invoice.Invoice{
		{InvoiceID: "in_1", UserID: testutil.DefaultUserID, AmountPaid: 2900, Currency: "eur", Status: "paid", PaidAt: lo.ToPtr(int64(1700000000))},
		{InvoiceID: "in_2", UserID: testutil.DefaultUserID, AmountPaid: 1450, Currency: "eur", Status: "paid", PaidAt: lo.ToPtr(int64(1702600000))},
		{InvoiceID: "in_3", UserID: testutil.DefaultUserID, AmountPaid: 0, Currency: "eur", Status: "open"},
		{InvoiceID: "in_4", UserID: "someone-else", AmountPaid: 9900, Currency: "eur", Status: "paid", PaidAt: lo.ToPtr(int64(1702600000))},
	} {
		s.Require().NoError(repo.Upsert(s.GetContext(), inv))
	}

	resp, err := NewInvoiceService(s.params).ListInvoices(s.GetContext(), testutil.DefaultUserID)
	s.Require().NoError(err)
	s.Len(resp.Items, 3)
	s.Equal("in_2", resp.Items[0].InvoiceID)
	s.True(decimal.RequireFromString("43.50").Equal(resp.TotalPaid["eur"]))
	s.True(decimal.RequireFromString("29").Equal(resp.Items[1].Amount))
}
