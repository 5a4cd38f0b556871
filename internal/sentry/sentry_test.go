package sentry

import (
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/hallmail/hallmail/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScrubEventDropsCredentials(t *testing.T) {
	event := &sentry.Event{
		Request: &sentry.Request{
			Method: "POST",
			URL:    "https://api.hallmail.fr/v1/email-accounts/imap",
			Headers: map[string]string{
				"Authorization":    "Bearer eyJhbGciOi",
				"stripe-signature": "t=1700000000,v1=abc",
				"Cookie":           "sb-access-token=xyz",
				"Content-Type":     "application/json",
			},
			Cookies: "sb-access-token=xyz",
			Data:    `{"password":"hunter2"}`,
		},
	}

	out := scrubEvent(event)
	require.NotNil(t, out)
	assert.Equal(t, map[string]string{"Content-Type": "application/json"}, out.Request.Headers)
	assert.Empty(t, out.Request.Cookies)
	assert.Empty(t, out.Request.Data)
	assert.Equal(t, "POST", out.Request.Method)
}

func TestScrubEventWithoutRequest(t *testing.T) {
	event := &sentry.Event{Message: "boom"}
	assert.Same(t, event, scrubEvent(event))
	assert.Nil(t, scrubEvent(nil))
}

func TestEnvironmentFallsBackToDeployment(t *testing.T) {
	cfg := &config.Configuration{
		Deployment: config.DeploymentConfig{Environment: "production"},
	}
	svc := NewSentryService(cfg, nil)
	assert.Equal(t, "production", svc.environment())
	assert.False(t, svc.Enabled())

	cfg.Sentry.Environment = "staging"
	assert.Equal(t, "staging", svc.environment())

	var missing *Service
	assert.False(t, missing.Enabled())
}
