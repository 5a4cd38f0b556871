package email

import (
	"context"
	"errors"
	"testing"

	"github.com/hallmail/hallmail/internal/config"
	ierr "github.com/hallmail/hallmail/internal/errors"
	"github.com/hallmail/hallmail/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	sent []*Message
	err  error
}

func (r *recordingSender) Send(_ context.Context, msg *Message) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	r.sent = append(r.sent, msg)
	return "msg_1", nil
}

func TestSendSupportNotification(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Email.SupportAddress = "support@hallmail.fr"
	sender := &recordingSender{}
	svc := NewEmail(sender, cfg, logger.NewNoopLogger())

	id, err := svc.SendSupportNotification(context.Background(), SupportNotification{
		TicketID:  "ticket_1",
		UserID:    "user_1",
		UserEmail: "jean@example.fr",
		Subject:   "Facturation",
		Message:   "<script>alert(1)</script>",
	})
	require.NoError(t, err)
	assert.Equal(t, "msg_1", id)

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, []string{"support@hallmail.fr"}, msg.To)
	assert.Equal(t, "jean@example.fr", msg.ReplyTo)
	assert.Equal(t, "[Support] Facturation", msg.Subject)
	assert.NotContains(t, msg.HTML, "<script>")
}

func TestSendSupportNotificationError(t *testing.T) {
	sender := &recordingSender{err: errors.New("resend down")}
	svc := NewEmail(sender, config.GetDefaultConfig(), logger.NewNoopLogger())

	_, err := svc.SendSupportNotification(context.Background(), SupportNotification{Subject: "x"})
	assert.Error(t, err)
}

func TestDisabledClient(t *testing.T) {
	client := NewEmailClient(config.GetDefaultConfig())
	assert.False(t, client.IsEnabled())

	_, err := client.Send(context.Background(), &Message{Subject: "x"})
	require.Error(t, err)
	assert.True(t, ierr.IsConfiguration(err))
}
