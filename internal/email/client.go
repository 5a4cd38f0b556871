package email

import (
	"context"

	"github.com/hallmail/hallmail/internal/config"
	ierr "github.com/hallmail/hallmail/internal/errors"
	"github.com/resend/resend-go/v2"
)

// Sender delivers a single email and returns the provider message id
type Sender interface {
	Send(ctx context.Context, msg *Message) (string, error)
}

// EmailClient sends email through Resend
type EmailClient struct {
	client      *resend.Client
	enabled     bool
	fromAddress string
	replyTo     string
}

// NewEmailClient creates a new email client. A disabled client or one
// without API key refuses to send.
func NewEmailClient(cfg *config.Configuration) *EmailClient {
	if !cfg.Email.Enabled || cfg.Email.ResendAPIKey == "" {
		return &EmailClient{enabled: false}
	}

	return &EmailClient{
		client:      resend.NewClient(cfg.Email.ResendAPIKey),
		enabled:     true,
		fromAddress: cfg.Email.FromAddress,
		replyTo:     cfg.Email.ReplyTo,
	}
}

// IsEnabled returns whether the email client is enabled
func (c *EmailClient) IsEnabled() bool {
	return c.enabled
}

func (c *EmailClient) Send(ctx context.Context, msg *Message) (string, error) {
	if !c.enabled {
		return "", ierr.NewError("email client is disabled").
			WithHint("Email delivery is not configured").
			Mark(ierr.ErrConfiguration)
	}

	from := msg.From
	if from == "" {
		from = c.fromAddress
	}
	replyTo := msg.ReplyTo
	if replyTo == "" {
		replyTo = c.replyTo
	}

	params := &resend.SendEmailRequest{
		From:    from,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	}
	if replyTo != "" {
		params.ReplyTo = replyTo
	}

	sent, err := c.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Failed to send email").
			WithReportableDetails(map[string]any{"subject": msg.Subject}).
			Mark(ierr.ErrHTTPClient)
	}

	return sent.Id, nil
}
