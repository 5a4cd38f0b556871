package sentry

import (
	"context"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/hallmail/hallmail/internal/config"
	"github.com/hallmail/hallmail/internal/logger"
	"github.com/hallmail/hallmail/internal/types"
	"go.uber.org/fx"
)

const flushTimeout = 2 * time.Second

// headers that carry credentials and never leave the process
var scrubbedHeaders = []string{
	types.HeaderAuthorization,
	types.HeaderStripeSignature,
	"Cookie",
}

// unsampled routes are probes that would drown real traffic
var unsampled = map[string]bool{
	"GET /health":  true,
	"GET /ready":   true,
	"GET /metrics": true,
}

type Service struct {
	cfg    *config.Configuration
	logger *logger.Logger
}

// Module provides fx options for Sentry
func Module() fx.Option {
	return fx.Options(
		fx.Provide(NewSentryService),
		fx.Invoke(RegisterHooks),
	)
}

func NewSentryService(cfg *config.Configuration, logger *logger.Logger) *Service {
	return &Service{cfg: cfg, logger: logger}
}

// RegisterHooks initialises the client on start and flushes it on stop
func RegisterHooks(lc fx.Lifecycle, svc *Service) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if !svc.Enabled() {
				svc.logger.Info("sentry disabled")
				return nil
			}
			if err := sentry.Init(svc.clientOptions()); err != nil {
				svc.logger.Errorw("failed to initialize sentry", "error", err)
				return err
			}
			svc.logger.Infow("sentry initialized",
				"environment", svc.environment(),
				"sample_rate", svc.cfg.Sentry.SampleRate,
			)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if svc.Enabled() {
				sentry.Flush(flushTimeout)
			}
			return nil
		},
	})
}

func (s *Service) clientOptions() sentry.ClientOptions {
	rate := s.cfg.Sentry.SampleRate
	return sentry.ClientOptions{
		Dsn:              s.cfg.Sentry.DSN,
		Environment:      s.environment(),
		EnableTracing:    rate > 0,
		TracesSampleRate: rate,
		TracesSampler: sentry.TracesSampler(func(ctx sentry.SamplingContext) float64 {
			if ctx.Span != nil && unsampled[ctx.Span.Name] {
				return 0
			}
			return rate
		}),
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return scrubEvent(event)
		},
	}
}

func (s *Service) environment() string {
	if s.cfg.Sentry.Environment != "" {
		return s.cfg.Sentry.Environment
	}
	return s.cfg.Deployment.Environment
}

// scrubEvent drops credentials and request bodies, which may hold IMAP
// passwords or raw Stripe payloads
func scrubEvent(event *sentry.Event) *sentry.Event {
	if event == nil || event.Request == nil {
		return event
	}
	for name := range event.Request.Headers {
		for _, h := range scrubbedHeaders {
			if strings.EqualFold(name, h) {
				delete(event.Request.Headers, name)
			}
		}
	}
	event.Request.Cookies = ""
	event.Request.Data = ""
	return event
}

// Enabled reports whether events are forwarded to Sentry
func (s *Service) Enabled() bool {
	return s != nil && s.cfg.Sentry.Enabled
}

// CaptureRequestException reports an error against the hub bound to the request context
func (s *Service) CaptureRequestException(ctx context.Context, err error) {
	if !s.Enabled() {
		return
	}
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	sentry.CaptureException(err)
}
