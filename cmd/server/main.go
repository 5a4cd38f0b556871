package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hallmail/hallmail/internal/api"
	v1 "github.com/hallmail/hallmail/internal/api/v1"
	"github.com/hallmail/hallmail/internal/cache"
	"github.com/hallmail/hallmail/internal/config"
	"github.com/hallmail/hallmail/internal/email"
	"github.com/hallmail/hallmail/internal/httpclient"
	stripeint "github.com/hallmail/hallmail/internal/integration/stripe"
	"github.com/hallmail/hallmail/internal/integration/stripe/webhook"
	"github.com/hallmail/hallmail/internal/logger"
	"github.com/hallmail/hallmail/internal/mailbox"
	"github.com/hallmail/hallmail/internal/poller"
	"github.com/hallmail/hallmail/internal/postgres"
	"github.com/hallmail/hallmail/internal/repository"
	"github.com/hallmail/hallmail/internal/security"
	"github.com/hallmail/hallmail/internal/sentry"
	"github.com/hallmail/hallmail/internal/service"
	"github.com/hallmail/hallmail/internal/validator"
	"go.uber.org/fx"
)

// @title Hall Mail API
// @version 1.0
// @description Billing and mailbox API of Hall Mail
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			// Validator
			validator.NewValidator,

			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Cache
			cache.NewInMemoryCache,

			// Postgres
			postgres.NewDB,

			// HTTP Client
			provideHTTPClientConfig,
			httpclient.NewDefaultClient,

			// Repositories
			repository.NewUserRepository,
			repository.NewCustomerRepository,
			repository.NewEmailAccountRepository,
			repository.NewSubscriptionRepository,
			repository.NewInvoiceRepository,
			repository.NewSupportRepository,

			// Collaborators
			stripeint.NewClient,
			poller.New,
			mailbox.NewIMAPVerifier,
			security.NewEncryptionService,
			provideEmailSender,
			email.NewEmail,
		),
		sentry.Module(),
	)

	// Service layer
	opts = append(opts,
		fx.Provide(
			service.NewServiceParams,
			service.NewCustomerResolver,
			service.NewSlotReconciler,
			service.NewSubscriptionSynchronizer,
			service.NewBillingService,
			service.NewActivationGate,
			service.NewPipelineNotifier,
			service.NewEmailAccountService,
			service.NewInvoiceService,
			service.NewSupportService,
			webhook.NewHandler,
		),
	)

	// API
	opts = append(opts,
		fx.Provide(
			provideHandlers,
			api.NewRouter,
		),
		fx.Invoke(
			migrateOnBoot,
			startServer,
		),
	)

	app := fx.New(opts...)
	app.Run()
}

func provideHTTPClientConfig(cfg *config.Configuration) httpclient.ClientConfig {
	return httpclient.ClientConfig{
		Timeout:  cfg.Pipeline.Timeout,
		RetryMax: cfg.Pipeline.RetryMax,
	}
}

func provideEmailSender(cfg *config.Configuration) email.Sender {
	return email.NewEmailClient(cfg)
}

func provideHandlers(
	db *postgres.DB,
	billing service.BillingService,
	gate service.ActivationGate,
	webhookHandler *webhook.Handler,
	emailAccounts service.EmailAccountService,
	invoices service.InvoiceService,
	support service.SupportService,
	logger *logger.Logger,
) api.Handlers {
	return api.Handlers{
		Health:       v1.NewHealthHandler(db, logger),
		Billing:      v1.NewBillingHandler(billing, gate, logger),
		Webhook:      v1.NewWebhookHandler(webhookHandler, logger),
		EmailAccount: v1.NewEmailAccountHandler(emailAccounts, logger),
		Invoice:      v1.NewInvoiceHandler(invoices, logger),
		Support:      v1.NewSupportHandler(support, logger),
	}
}

// migrateOnBoot applies the embedded schema when postgres.auto_migrate is set
func migrateOnBoot(lc fx.Lifecycle, cfg *config.Configuration, db *postgres.DB, log *logger.Logger) {
	if !cfg.Postgres.AutoMigrate {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Running database migrations...")
			return db.Migrate(ctx)
		},
	})
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	db *postgres.DB,
	log *logger.Logger,
) {
	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("Starting API server...", "address", cfg.Server.Address)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			if err := srv.Shutdown(ctx); err != nil {
				log.Errorw("server shutdown failed", "error", err)
			}
			db.Close()
			return nil
		},
	})
}
