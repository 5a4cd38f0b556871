package internal

import (
	"context"
	"fmt"

	"github.com/hallmail/hallmail/internal/cache"
	"github.com/hallmail/hallmail/internal/config"
	stripeint "github.com/hallmail/hallmail/internal/integration/stripe"
	"github.com/hallmail/hallmail/internal/logger"
	"github.com/hallmail/hallmail/internal/poller"
	"github.com/hallmail/hallmail/internal/postgres"
	"github.com/hallmail/hallmail/internal/repository"
	"github.com/hallmail/hallmail/internal/service"
	"github.com/hallmail/hallmail/internal/types"
)

// syncDeps holds what the resync scripts need, wired by hand instead of fx
type syncDeps struct {
	cfg  *config.Configuration
	log  *logger.Logger
	db   *postgres.DB
	sync service.SubscriptionSynchronizer
}

func newSyncDeps() (*syncDeps, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	if cfg.Stripe.SecretKey == "" {
		return nil, fmt.Errorf("stripe.secret_key is required")
	}

	db, err := postgres.NewDB(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	params := service.NewServiceParams(
		log,
		cfg,
		repository.NewUserRepository(db, log),
		repository.NewCustomerRepository(db, log),
		repository.NewEmailAccountRepository(db, log),
		repository.NewSubscriptionRepository(db, log),
		repository.NewInvoiceRepository(db, log),
		repository.NewSupportRepository(db, log),
		stripeint.NewClient(cfg, log),
		cache.NewInMemoryCache(cfg),
		poller.New(),
		nil, // mailbox verifier
		nil, // encryption
		nil, // email
		nil, // http client
	)
	customers := service.NewCustomerResolver(params)

	return &syncDeps{
		cfg:  cfg,
		log:  log,
		db:   db,
		sync: service.NewSubscriptionSynchronizer(params, customers, service.NewSlotReconciler(params)),
	}, nil
}

func (d *syncDeps) syncContext() context.Context {
	return types.SetSyncTrigger(context.Background(), types.SyncTriggerScript)
}
