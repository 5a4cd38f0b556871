package service

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/hallmail/hallmail/internal/api/dto"
	"github.com/hallmail/hallmail/internal/domain/emailaccount"
	ierr "github.com/hallmail/hallmail/internal/errors"
	"github.com/hallmail/hallmail/internal/testutil"
	"github.com/hallmail/hallmail/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

const pipelineURL = "https://pipeline.hallmail.fr/hooks/activate"

type EmailAccountServiceSuite struct {
	serviceSuite
	accounts EmailAccountService
}

func TestEmailAccountService(t *testing.T) {
	suite.Run(t, new(EmailAccountServiceSuite))
}

func (s *EmailAccountServiceSuite) SetupTest() {
	s.serviceSuite.SetupTest()
	s.GetConfig().Pipeline.ActivationWebhookURL = pipelineURL
	s.GetFakes().HTTPClient.RegisterResponse(pipelineURL, testutil.MockResponse{StatusCode: http.StatusAccepted})
	s.accounts = NewEmailAccountService(s.params, s.slots, s.pipeline)
}

func (s *EmailAccountServiceSuite) imapRequest(email string) *dto.ConnectIMAPRequest {
	return &dto.ConnectIMAPRequest{
		Email:       email,
		IMAPHost:    "imap.ovh.net",
		IMAPPort:    993,
		SMTPHost:    "ssl0.ovh.net",
		SMTPPort:    465,
		Password:    "s3cret-mailbox",
		CompanyName: "Cabinet Durand",
	}
}

func (s *EmailAccountServiceSuite) TestFirstMailboxBecomesPrimary() {
	resp, err := s.accounts.ConnectIMAP(s.GetContext(), testutil.DefaultUserID, s.imapRequest("Contact@Cabinet-Durand.fr"))
	s.Require().NoError(err)

	account := resp.EmailAccount
	s.True(account.IsPrimary)
	s.True(account.IsActive)
	s.Equal("contact@cabinet-durand.fr", account.Email)
	s.Equal(types.EmailProviderSMTPIMAP, account.Provider)

	verified := s.GetFakes().Verifier.Verified
	s.Require().Len(verified, 1)
	s.Equal("Contact@Cabinet-Durand.fr", verified[0].Username)
	s.Equal(993, verified[0].Port)

	stored, err := s.GetStores().EmailAccountRepo.Get(s.GetContext(), account.ID)
	s.Require().NoError(err)
	s.NotEqual("s3cret-mailbox", stored.PasswordEncrypted)
	plain, err := s.GetEncryption().Decrypt(stored.PasswordEncrypted)
	s.Require().NoError(err)
	s.Equal("s3cret-mailbox", plain)

	requests := s.GetFakes().HTTPClient.Requests()
	s.Require().Len(requests, 1)
	var activation dto.PipelineActivation
	s.Require().NoError(json.Unmarshal(requests[0].Body, &activation))
	s.Equal(account.ID, activation.EmailConfigurationID)
	s.Equal(testutil.DefaultUserID, activation.UserID)
	s.Equal("Cabinet Durand", activation.CompanyName)
}

func (s *EmailAccountServiceSuite) TestDuplicateMailboxIsRejected() {
	s.SeedPrimaryAccount("ecfg_primary", "contact@cabinet-durand.fr")

	_, err := s.accounts.ConnectIMAP(s.GetContext(), testutil.DefaultUserID, s.imapRequest("CONTACT@cabinet-durand.fr"))
	s.Require().Error(err)
	s.True(ierr.IsAlreadyExists(err))
}

func (s *EmailAccountServiceSuite) TestVerificationFailureStoresNothing() {
	s.GetFakes().Verifier.Err = ierr.NewError("login failed").
		WithHint("The mailbox rejected the credentials").
		Mark(ierr.ErrValidation)

	_, err := s.accounts.ConnectIMAP(s.GetContext(), testutil.DefaultUserID, s.imapRequest("contact@cabinet-durand.fr"))
	s.Require().Error(err)
	s.True(ierr.IsValidation(err))
	s.Zero(s.GetStores().EmailAccountRepo.Len())
	s.Empty(s.GetFakes().HTTPClient.Requests())
}

func (s *EmailAccountServiceSuite) TestNewMailboxTakesWaitingSeat() {
	s.SeedPrimaryAccount("ecfg_primary", "contact@cabinet-durand.fr")
	s.mapCustomer()
	s.premier("sub_premier", 24*time.Hour, 1)
	_, err := s.sync.SyncCustomer(s.GetContext(), testCustomerID)
	s.Require().NoError(err)
	s.Len(unlinked(s.seats("sub_premier")), 1)

	resp, err := s.accounts.ConnectGmail(s.GetContext(), testutil.DefaultUserID, &dto.ConnectGmailRequest{
		Email:        "compta@cabinet-durand.fr",
		GmailTokenID: "gtok_1",
	})
	s.Require().NoError(err)
	s.False(resp.IsPrimary)
	s.True(resp.IsActive)

	seats := s.seats("sub_premier")
	s.Require().Len(seats, 1)
	s.Equal(resp.ID, lo.FromPtr(seats[0].EmailConfigurationID))
	s.Len(s.GetFakes().HTTPClient.Requests(), 1)
}

func (s *EmailAccountServiceSuite) TestMailboxWithoutPlanStaysInactive() {
	s.SeedPrimaryAccount("ecfg_primary", "contact@cabinet-durand.fr")

	resp, err := s.accounts.ConnectGmail(s.GetContext(), testutil.DefaultUserID, &dto.ConnectGmailRequest{
		Email:        "compta@cabinet-durand.fr",
		GmailTokenID: "gtok_1",
	})
	s.Require().NoError(err)
	s.False(resp.IsPrimary)
	s.False(resp.IsActive)
	s.Empty(s.GetFakes().HTTPClient.Requests())
}

func (s *EmailAccountServiceSuite) TestPipelineFailureDoesNotFailConnect() {
	s.GetFakes().HTTPClient.RegisterResponse(pipelineURL, testutil.MockResponse{Err: errors.New("connection refused")})

	resp, err := s.accounts.ConnectGmail(s.GetContext(), testutil.DefaultUserID, &dto.ConnectGmailRequest{
		Email:        "contact@cabinet-durand.fr",
		GmailTokenID: "gtok_1",
	})
	s.Require().NoError(err)
	s.True(resp.IsPrimary)
	s.Equal(1, s.GetStores().EmailAccountRepo.Len())
}

func (s *EmailAccountServiceSuite) TestListHidesSlotRows() {
	s.SeedPrimaryAccount("ecfg_primary", "contact@cabinet-durand.fr")
	s.GetStores().EmailAccountRepo.Seed(&emailaccount.EmailAccount{
		ID:       "ecfg_slot",
		UserID:   testutil.DefaultUserID,
		Provider: types.EmailProviderSlot,
	})

	resp, err := s.accounts.List(s.GetContext(), testutil.DefaultUserID)
	s.Require().NoError(err)
	s.Require().Len(resp.Items, 1)
	s.Equal("ecfg_primary", resp.Items[0].ID)
}

func (s *EmailAccountServiceSuite) TestPipelineSkippedWithoutURL() {
	s.GetConfig().Pipeline.ActivationWebhookURL = ""

	err := s.pipeline.NotifyActivation(s.GetContext(), dto.PipelineActivation{EmailConfigurationID: "ecfg_primary"})
	s.Require().NoError(err)
	s.Empty(s.GetFakes().HTTPClient.Requests())
}
