package api

import (
	"github.com/gin-gonic/gin"
	v1 "github.com/hallmail/hallmail/internal/api/v1"
	"github.com/hallmail/hallmail/internal/config"
	"github.com/hallmail/hallmail/internal/logger"
	"github.com/hallmail/hallmail/internal/rest/middleware"
	"github.com/hallmail/hallmail/internal/sentry"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	Health       *v1.HealthHandler
	Billing      *v1.BillingHandler
	Webhook      *v1.WebhookHandler
	EmailAccount *v1.EmailAccountHandler
	Invoice      *v1.InvoiceHandler
	Support      *v1.SupportHandler
}

// NewRouter builds the HTTP surface. Authentication is applied per group so
// that the Stripe webhook, which is verified by its signature, stays public.
func NewRouter(handlers Handlers, cfg *config.Configuration, logger *logger.Logger, reporter *sentry.Service) *gin.Engine {
	if cfg.Deployment.Environment != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.SentryMiddleware(cfg),
		middleware.RequestIDMiddleware,
		middleware.CORSMiddleware(cfg),
		middleware.MetricsMiddleware,
		middleware.ErrorHandler(logger, reporter),
	)
	authenticate := middleware.AuthenticateMiddleware(cfg, logger)

	router.GET("/health", handlers.Health.Health)
	router.GET("/ready", handlers.Health.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	functions := router.Group("/functions/v1")
	{
		functions.POST("/stripe-webhook", handlers.Webhook.HandleStripeWebhook)

		billing := functions.Group("")
		billing.Use(authenticate)
		billing.POST("/stripe-checkout", handlers.Billing.CreateCheckout)
		billing.POST("/stripe-cancel-subscription", handlers.Billing.CancelSubscription)
		billing.POST("/stripe-reactivate-subscription", handlers.Billing.ReactivateSubscription)
		billing.POST("/stripe-sync",
			middleware.UserRateLimit(cfg.Billing.SyncRatePerMinute, cfg.Billing.SyncBurst),
			handlers.Billing.Sync,
		)
		billing.POST("/stripe-portal", handlers.Billing.CreatePortalSession)
	}

	v1Group := router.Group("/v1")
	v1Group.Use(authenticate)
	registerV1Routes(v1Group, handlers)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	billing := router.Group("/billing")
	{
		billing.GET("/accounts", handlers.Billing.GetAccounts)
	}

	router.GET("/invoices", handlers.Invoice.ListInvoices)

	emailAccounts := router.Group("/email-accounts")
	{
		emailAccounts.GET("", handlers.EmailAccount.List)
		emailAccounts.POST("/imap", handlers.EmailAccount.ConnectIMAP)
		emailAccounts.POST("/gmail", handlers.EmailAccount.ConnectGmail)
	}

	router.POST("/support", handlers.Support.CreateTicket)
}
