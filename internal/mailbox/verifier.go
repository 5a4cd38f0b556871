package mailbox

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/emersion/go-imap/client"
	"github.com/hallmail/hallmail/internal/config"
	ierr "github.com/hallmail/hallmail/internal/errors"
	"github.com/hallmail/hallmail/internal/logger"
)

// Credentials identify an IMAP mailbox
type Credentials struct {
	Host     string
	Port     int
	Username string
	Password string
}

func (c Credentials) Address() string {
	return net.JoinHostPort(c.Host, fmt.Sprintf("%d", c.Port))
}

// Verifier checks that a mailbox accepts the given credentials
type Verifier interface {
	Verify(ctx context.Context, creds Credentials) error
}

type imapVerifier struct {
	dialTimeout time.Duration
	logger      *logger.Logger
}

// NewIMAPVerifier returns a Verifier that logs in over implicit TLS and
// selects INBOX before logging out.
func NewIMAPVerifier(cfg *config.Configuration, logger *logger.Logger) Verifier {
	timeout := cfg.Mailbox.DialTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &imapVerifier{dialTimeout: timeout, logger: logger}
}

func (v *imapVerifier) Verify(ctx context.Context, creds Credentials) error {
	log := v.logger.With("server", creds.Address(), "username", creds.Username)

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: v.dialTimeout},
		Config:    &tls.Config{ServerName: creds.Host},
	}
	conn, err := dialer.DialContext(ctx, "tcp", creds.Address())
	if err != nil {
		log.Warnw("failed to connect to IMAP server", "error", err)
		return ierr.WithError(err).
			WithHint("Could not reach the IMAP server").
			WithReportableDetails(map[string]any{"server": creds.Address()}).
			Mark(ierr.ErrValidation)
	}

	c, err := client.New(conn)
	if err != nil {
		conn.Close()
		return ierr.WithError(err).
			WithHint("The server did not answer as an IMAP server").
			Mark(ierr.ErrValidation)
	}
	defer c.Logout()

	if deadline, ok := ctx.Deadline(); ok {
		c.Timeout = time.Until(deadline)
	}

	if err := c.Login(creds.Username, creds.Password); err != nil {
		log.Infow("IMAP login rejected", "error", err)
		return ierr.WithError(err).
			WithHint("The mailbox rejected these credentials").
			Mark(ierr.ErrValidation)
	}

	if _, err := c.Select("INBOX", true); err != nil {
		return ierr.WithError(err).
			WithHint("The mailbox has no readable INBOX").
			Mark(ierr.ErrValidation)
	}

	log.Debugw("IMAP credentials verified")
	return nil
}
