package service

import (
	"errors"
	"testing"

	ierr "github.com/hallmail/hallmail/internal/errors"
	"github.com/hallmail/hallmail/internal/testutil"
	"github.com/stretchr/testify/suite"
)

type CustomerResolverSuite struct {
	serviceSuite
}

func TestCustomerResolver(t *testing.T) {
	suite.Run(t, new(CustomerResolverSuite))
}

func (s *CustomerResolverSuite) TestResolveIsStable() {
	first, created, err := s.customers.Resolve(s.GetContext(), testutil.DefaultUserID, testutil.DefaultUserEmail)
	s.Require().NoError(err)
	s.True(created)

	second, created, err := s.customers.Resolve(s.GetContext(), testutil.DefaultUserID, testutil.DefaultUserEmail)
	s.Require().NoError(err)
	s.False(created)
	s.Equal(first, second)
	s.Equal(1, s.GetFakes().Stripe.Called("CreateCustomer"))
}

func (s *CustomerResolverSuite) TestResolveRequiresUser() {
	_, _, err := s.customers.Resolve(s.GetContext(), "", testutil.DefaultUserEmail)
	s.Require().Error(err)
	s.True(ierr.IsUnauthorized(err))
	s.Empty(s.GetFakes().Stripe.Calls)
}

func (s *CustomerResolverSuite) TestStripeFailureLeavesNothingBehind() {
	s.GetFakes().Stripe.Errors["CreateCustomer"] = ierr.NewError("stripe down").Mark(ierr.ErrHTTPClient)

	_, _, err := s.customers.Resolve(s.GetContext(), testutil.DefaultUserID, testutil.DefaultUserEmail)
	s.Require().Error(err)
	s.True(ierr.IsHTTPClient(err))
	s.Zero(s.GetStores().CustomerRepo.Len())
	s.Empty(s.rows())
}

func (s *CustomerResolverSuite) TestUserIDForCustomerIsCached() {
	s.GetFakes().Stripe.AddCustomer(testCustomerID, map[string]string{"userId": testutil.DefaultUserID})

	userID, err := s.customers.UserIDForCustomer(s.GetContext(), testCustomerID)
	s.Require().NoError(err)
	s.Equal(testutil.DefaultUserID, userID)

	mapping, err := s.customers.Lookup(s.GetContext(), testutil.DefaultUserID)
	s.Require().NoError(err)
	s.Equal(testCustomerID, mapping.CustomerID)

	s.GetStores().CustomerRepo.Clear()
	s.GetFakes().Stripe.Errors["RetrieveCustomer"] = errors.New("stripe down")

	userID, err = s.customers.UserIDForCustomer(s.GetContext(), testCustomerID)
	s.Require().NoError(err)
	s.Equal(testutil.DefaultUserID, userID)
	s.Equal(1, s.GetFakes().Stripe.Called("RetrieveCustomer"))
}
