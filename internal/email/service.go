package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/hallmail/hallmail/internal/config"
	"github.com/hallmail/hallmail/internal/logger"
)

var supportTemplate = template.Must(template.New("support").Parse(`<h2>New support request</h2>
<p><strong>Ticket:</strong> {{.TicketID}}</p>
<p><strong>From:</strong> {{.UserEmail}} ({{.UserID}})</p>
{{if .Category}}<p><strong>Category:</strong> {{.Category}}</p>{{end}}
<p><strong>Subject:</strong> {{.Subject}}</p>
<pre style="white-space: pre-wrap">{{.Message}}</pre>
`))

// Email renders and sends the transactional emails of the service
type Email struct {
	sender         Sender
	supportAddress string
	logger         *logger.Logger
}

func NewEmail(sender Sender, cfg *config.Configuration, logger *logger.Logger) *Email {
	return &Email{
		sender:         sender,
		supportAddress: cfg.Email.SupportAddress,
		logger:         logger,
	}
}

// SendSupportNotification emails a support request to the support inbox,
// replying to the requester
func (s *Email) SendSupportNotification(ctx context.Context, n SupportNotification) (string, error) {
	var html bytes.Buffer
	if err := supportTemplate.Execute(&html, n); err != nil {
		return "", fmt.Errorf("failed to render support email: %w", err)
	}

	msg := &Message{
		To:      []string{s.supportAddress},
		ReplyTo: n.UserEmail,
		Subject: fmt.Sprintf("[Support] %s", n.Subject),
		HTML:    html.String(),
		Text:    fmt.Sprintf("From: %s\n\n%s", n.UserEmail, n.Message),
	}

	messageID, err := s.sender.Send(ctx, msg)
	if err != nil {
		s.logger.Errorw("failed to send support email",
			"error", err,
			"ticket_id", n.TicketID,
			"user_id", n.UserID,
		)
		return "", err
	}

	s.logger.Infow("support email sent",
		"message_id", messageID,
		"ticket_id", n.TicketID,
	)
	return messageID, nil
}
