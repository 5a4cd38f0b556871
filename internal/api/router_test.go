package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	v1 "github.com/hallmail/hallmail/internal/api/v1"
	ierr "github.com/hallmail/hallmail/internal/errors"
	"github.com/hallmail/hallmail/internal/integration/stripe/webhook"
	"github.com/hallmail/hallmail/internal/service"
	"github.com/hallmail/hallmail/internal/testutil"
	"github.com/stretchr/testify/suite"
)

const testJWTSecret = "super-secret-jwt-token-for-tests"

type RouterSuite struct {
	testutil.BaseServiceTestSuite
	router *gin.Engine
}

func TestRouter(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupSuite() {
	s.BaseServiceTestSuite.SetupSuite()
	gin.SetMode(gin.TestMode)
}

func (s *RouterSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	cfg := s.GetConfig()
	cfg.Auth.Secret = testJWTSecret
	cfg.Billing.SyncRatePerMinute = 1
	cfg.Billing.SyncBurst = 1

	stores := s.GetStores()
	fakes := s.GetFakes()
	params := service.NewServiceParams(
		s.GetLogger(),
		cfg,
		stores.UserRepo,
		stores.CustomerRepo,
		stores.EmailAccountRepo,
		stores.SubscriptionRepo,
		stores.InvoiceRepo,
		stores.SupportRepo,
		fakes.Stripe,
		s.GetCache(),
		s.GetPoller(),
		fakes.Verifier,
		s.GetEncryption(),
		s.GetEmail(),
		fakes.HTTPClient,
	)
	customers := service.NewCustomerResolver(params)
	slots := service.NewSlotReconciler(params)
	sync := service.NewSubscriptionSynchronizer(params, customers, slots)
	pipeline := service.NewPipelineNotifier(params)
	logger := s.GetLogger()

	s.router = NewRouter(Handlers{
		Health:       v1.NewHealthHandler(nil, logger),
		Billing:      v1.NewBillingHandler(service.NewBillingService(params, customers, sync), service.NewActivationGate(params, slots), logger),
		Webhook:      v1.NewWebhookHandler(webhook.NewHandler(fakes.Stripe, sync, s.GetCache(), logger), logger),
		EmailAccount: v1.NewEmailAccountHandler(service.NewEmailAccountService(params, slots, pipeline), logger),
		Invoice:      v1.NewInvoiceHandler(service.NewInvoiceService(params), logger),
		Support:      v1.NewSupportHandler(service.NewSupportService(params), logger),
	}, cfg, logger, nil)
}

func (s *RouterSuite) token() string {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   testutil.DefaultUserID,
		"email": testutil.DefaultUserEmail,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testJWTSecret))
	s.Require().NoError(err)
	return signed
}

func (s *RouterSuite) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		s.Require().NoError(err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *RouterSuite) authed(method, path string, body any) *httptest.ResponseRecorder {
	return s.do(method, path, body, map[string]string{"Authorization": "Bearer " + s.token()})
}

func (s *RouterSuite) errorBody(rec *httptest.ResponseRecorder) ierr.ErrorResponse {
	var resp ierr.ErrorResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.False(resp.Success)
	return resp
}

func (s *RouterSuite) TestHealth() {
	rec := s.do(http.MethodGet, "/health", nil, nil)
	s.Equal(http.StatusOK, rec.Code)
	s.NotEmpty(rec.Header().Get("X-Request-ID"))

	rec = s.do(http.MethodGet, "/ready", nil, nil)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *RouterSuite) TestMetricsEndpoint() {
	rec := s.do(http.MethodGet, "/metrics", nil, nil)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *RouterSuite) TestAuthenticationRequired() {
	tests := []struct {
		name   string
		header string
	}{
		{name: "no header"},
		{name: "not bearer", header: "Basic abc"},
		{name: "bad token", header: "Bearer not-a-jwt"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			headers := map[string]string{}
			if tt.header != "" {
				headers["Authorization"] = tt.header
			}
			rec := s.do(http.MethodPost, "/functions/v1/stripe-checkout", map[string]any{}, headers)
			s.Equal(http.StatusUnauthorized, rec.Code)
			s.NotEmpty(s.errorBody(rec).Error.Display)
		})
	}
	s.Empty(s.GetFakes().Stripe.Calls)
}

func (s *RouterSuite) TestCheckout() {
	rec := s.authed(http.MethodPost, "/functions/v1/stripe-checkout", map[string]any{
		"price_id":    testutil.TestBasePriceID,
		"success_url": "https://app.hallmail.fr/billing?checkout=success",
		"cancel_url":  "https://app.hallmail.fr/billing?checkout=cancel",
		"mode":        "subscription",
	})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		SessionID string `json:"sessionId"`
		URL       string `json:"url"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.NotEmpty(resp.SessionID)
	s.NotEmpty(resp.URL)
}

func (s *RouterSuite) TestCheckoutWithoutStripeConfig() {
	s.GetConfig().Stripe.SecretKey = ""

	rec := s.authed(http.MethodPost, "/functions/v1/stripe-checkout", map[string]any{
		"price_id":    testutil.TestBasePriceID,
		"success_url": "https://app.hallmail.fr/billing?checkout=success",
		"cancel_url":  "https://app.hallmail.fr/billing?checkout=cancel",
		"mode":        "subscription",
	})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.NotEmpty(s.errorBody(rec).Error.Display)
}

func (s *RouterSuite) TestCancelWithoutSubscription() {
	rec := s.authed(http.MethodPost, "/functions/v1/stripe-cancel-subscription", map[string]any{
		"subscription_id":   "sub_missing",
		"subscription_type": "premier",
	})
	s.Equal(http.StatusNotFound, rec.Code)
	s.NotEmpty(s.errorBody(rec).Error.Display)
}

func (s *RouterSuite) TestSyncIsRateLimited() {
	rec := s.authed(http.MethodPost, "/functions/v1/stripe-sync", nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	rec = s.authed(http.MethodPost, "/functions/v1/stripe-sync", nil)
	s.Equal(http.StatusTooManyRequests, rec.Code)
}

func (s *RouterSuite) TestWebhookRejectsMissingSignature() {
	rec := s.do(http.MethodPost, "/functions/v1/stripe-webhook", map[string]any{"id": "evt_1"}, nil)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Zero(s.GetFakes().Stripe.Called("ListSubscriptions"))
}

func (s *RouterSuite) TestAuthenticatedReads() {
	for _, path := range []string{"/v1/invoices", "/v1/email-accounts", "/v1/billing/accounts"} {
		s.Run(path, func() {
			rec := s.authed(http.MethodGet, path, nil)
			s.Equal(http.StatusOK, rec.Code, rec.Body.String())
		})
	}
}

func (s *RouterSuite) TestSupportTicket() {
	rec := s.authed(http.MethodPost, "/v1/support", map[string]any{
		"subject": "Question",
		"message": "Comment ajouter une boîte ?",
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	s.Len(s.GetFakes().Sender.Sent, 1)
	s.Equal(testutil.DefaultUserEmail, s.GetFakes().Sender.Sent[0].ReplyTo)
}
