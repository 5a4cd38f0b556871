package testutil

import (
	"context"
	"time"

	"github.com/hallmail/hallmail/internal/cache"
	"github.com/hallmail/hallmail/internal/config"
	"github.com/hallmail/hallmail/internal/domain/emailaccount"
	"github.com/hallmail/hallmail/internal/email"
	"github.com/hallmail/hallmail/internal/logger"
	"github.com/hallmail/hallmail/internal/poller"
	"github.com/hallmail/hallmail/internal/security"
	"github.com/hallmail/hallmail/internal/types"
	"github.com/hallmail/hallmail/internal/validator"
	"github.com/stretchr/testify/suite"
)

const (
	TestBasePriceID       = "price_premier_monthly"
	TestAdditionalPriceID = "price_additional_account"
)

// Stores holds the in-memory repositories of a test
type Stores struct {
	UserRepo         *InMemoryUserStore
	CustomerRepo     *InMemoryCustomerStore
	EmailAccountRepo *InMemoryEmailAccountStore
	SubscriptionRepo *InMemorySubscriptionStore
	InvoiceRepo      *InMemoryInvoiceStore
	SupportRepo      *InMemorySupportStore
}

// Fakes holds the external collaborators of a test
type Fakes struct {
	Stripe     *FakeStripe
	Verifier   *FakeVerifier
	Sender     *FakeSender
	HTTPClient *MockHTTPClient
	Timer      *FakeTimer
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx        context.Context
	stores     Stores
	fakes      Fakes
	logger     *logger.Logger
	config     *config.Configuration
	cache      cache.Cache
	poller     *poller.Poller
	encryption security.EncryptionService
	email      *email.Email
	now        time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	validator.NewValidator()
	s.logger = logger.NewNoopLogger()
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = SetupContext()
	s.now = time.Now().UTC()
	s.setupConfig()
	s.setupStores()
	s.setupFakes()

	s.cache = cache.NewInMemoryCache(s.config)
	s.poller = poller.NewWithTimer(s.fakes.Timer)
	s.encryption = security.NewEncryptionService(s.config, s.logger)
	s.email = email.NewEmail(s.fakes.Sender, s.config, s.logger)
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.clearStores()
}

func (s *BaseServiceTestSuite) setupConfig() {
	cfg := config.GetDefaultConfig()
	cfg.Logging.Level = types.LogLevelInfo
	cfg.Stripe = config.StripeConfig{
		SecretKey:                "sk_test_hallmail",
		BasePriceID:              TestBasePriceID,
		AdditionalAccountPriceID: TestAdditionalPriceID,
		WebhookSecret:            "whsec_test",
		PortalReturnURL:          "https://app.hallmail.fr/settings/billing",
	}
	cfg.Mailbox.EncryptionKey = "test-encryption-key-for-unit-tests-only"
	cfg.Email.SupportAddress = "support@hallmail.fr"
	cfg.Billing.PollInterval = time.Second
	cfg.Billing.CancelPollTimeout = 3 * time.Second
	cfg.Billing.CheckoutPollTimeout = 3 * time.Second
	s.config = cfg
}

func (s *BaseServiceTestSuite) setupStores() {
	s.stores = Stores{
		UserRepo:         NewInMemoryUserStore(),
		CustomerRepo:     NewInMemoryCustomerStore(),
		EmailAccountRepo: NewInMemoryEmailAccountStore(),
		SubscriptionRepo: NewInMemorySubscriptionStore(),
		InvoiceRepo:      NewInMemoryInvoiceStore(),
		SupportRepo:      NewInMemorySupportStore(),
	}
}

func (s *BaseServiceTestSuite) setupFakes() {
	s.fakes = Fakes{
		Stripe:     NewFakeStripe(),
		Verifier:   NewFakeVerifier(),
		Sender:     NewFakeSender(),
		HTTPClient: NewMockHTTPClient(),
		Timer:      NewFakeTimer(),
	}
}

func (s *BaseServiceTestSuite) clearStores() {
	s.stores.UserRepo.Clear()
	s.stores.CustomerRepo.Clear()
	s.stores.EmailAccountRepo.Clear()
	s.stores.SubscriptionRepo.Clear()
	s.stores.InvoiceRepo.Clear()
	s.stores.SupportRepo.Clear()
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetStores returns the in-memory repositories
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetFakes returns the fake collaborators
func (s *BaseServiceTestSuite) GetFakes() Fakes {
	return s.fakes
}

func (s *BaseServiceTestSuite) GetCache() cache.Cache {
	return s.cache
}

func (s *BaseServiceTestSuite) GetPoller() *poller.Poller {
	return s.poller
}

func (s *BaseServiceTestSuite) GetEncryption() security.EncryptionService {
	return s.encryption
}

func (s *BaseServiceTestSuite) GetEmail() *email.Email {
	return s.email
}

// GetNow returns the time captured at the start of the test
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now
}

// SeedPrimaryAccount stores the user's primary mailbox
func (s *BaseServiceTestSuite) SeedPrimaryAccount(id string, address string) *emailaccount.EmailAccount {
	account := &emailaccount.EmailAccount{
		ID:          id,
		UserID:      DefaultUserID,
		Email:       address,
		Provider:    types.EmailProviderGmail,
		IsPrimary:   true,
		IsActive:    true,
		IsConnected: true,
		CreatedAt:   s.now.Add(-48 * time.Hour),
	}
	s.stores.EmailAccountRepo.Seed(account)
	return account
}

// SeedAccount stores a non-primary mailbox created offset after the
// primary one
func (s *BaseServiceTestSuite) SeedAccount(id string, address string, offset time.Duration) *emailaccount.EmailAccount {
	account := &emailaccount.EmailAccount{
		ID:          id,
		UserID:      DefaultUserID,
		Email:       address,
		Provider:    types.EmailProviderSMTPIMAP,
		IsConnected: true,
		CreatedAt:   s.now.Add(-48*time.Hour + offset),
	}
	s.stores.EmailAccountRepo.Seed(account)
	return account
}
