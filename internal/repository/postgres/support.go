package postgres

import (
	"context"
	"time"

	"github.com/hallmail/hallmail/internal/domain/support"
	ierr "github.com/hallmail/hallmail/internal/errors"
	"github.com/hallmail/hallmail/internal/logger"
	"github.com/hallmail/hallmail/internal/postgres"
)

type supportRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewSupportRepository(db *postgres.DB, logger *logger.Logger) support.Repository {
	return &supportRepository{db: db, logger: logger}
}

func (r *supportRepository) Create(ctx context.Context, ticket *support.Ticket) error {
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO support_tickets (id, user_id, email, subject, category, message, created_at)
		VALUES (:id, :user_id, :email, :subject, :category, :message, :created_at)
	`

	if _, err := r.db.NamedExecContext(ctx, query, ticket); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to save support ticket").
			WithReportableDetails(map[string]any{"ticket_id": ticket.ID}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}
