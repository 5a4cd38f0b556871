package service

import (
	"github.com/hallmail/hallmail/internal/cache"
	"github.com/hallmail/hallmail/internal/config"
	"github.com/hallmail/hallmail/internal/domain/customer"
	"github.com/hallmail/hallmail/internal/domain/emailaccount"
	"github.com/hallmail/hallmail/internal/domain/invoice"
	"github.com/hallmail/hallmail/internal/domain/subscription"
	"github.com/hallmail/hallmail/internal/domain/support"
	"github.com/hallmail/hallmail/internal/domain/user"
	"github.com/hallmail/hallmail/internal/email"
	"github.com/hallmail/hallmail/internal/httpclient"
	stripeint "github.com/hallmail/hallmail/internal/integration/stripe"
	"github.com/hallmail/hallmail/internal/logger"
	"github.com/hallmail/hallmail/internal/mailbox"
	"github.com/hallmail/hallmail/internal/poller"
	"github.com/hallmail/hallmail/internal/security"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration

	// Repositories
	UserRepo         user.Repository
	CustomerRepo     customer.Repository
	EmailAccountRepo emailaccount.Repository
	SubscriptionRepo subscription.Repository
	InvoiceRepo      invoice.Repository
	SupportRepo      support.Repository

	// Collaborators
	Stripe     stripeint.Gateway
	Cache      cache.Cache
	Poller     *poller.Poller
	Verifier   mailbox.Verifier
	Encryption security.EncryptionService
	Email      *email.Email

	// http client
	Client httpclient.Client
}

// Common service params
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	userRepo user.Repository,
	customerRepo customer.Repository,
	emailAccountRepo emailaccount.Repository,
	subscriptionRepo subscription.Repository,
	invoiceRepo invoice.Repository,
	supportRepo support.Repository,
	stripeGateway stripeint.Gateway,
	cache cache.Cache,
	poller *poller.Poller,
	verifier mailbox.Verifier,
	encryption security.EncryptionService,
	emailSvc *email.Email,
	client httpclient.Client,
) ServiceParams {
	return ServiceParams{
		Logger:           logger,
		Config:           config,
		UserRepo:         userRepo,
		CustomerRepo:     customerRepo,
		EmailAccountRepo: emailAccountRepo,
		SubscriptionRepo: subscriptionRepo,
		InvoiceRepo:      invoiceRepo,
		SupportRepo:      supportRepo,
		Stripe:           stripeGateway,
		Cache:            cache,
		Poller:           poller,
		Verifier:         verifier,
		Encryption:       encryption,
		Email:            emailSvc,
		Client:           client,
	}
}
