package postgres

import (
	"context"
	"time"

	"github.com/hallmail/hallmail/internal/domain/emailaccount"
	ierr "github.com/hallmail/hallmail/internal/errors"
	"github.com/hallmail/hallmail/internal/logger"
	"github.com/hallmail/hallmail/internal/postgres"
	"github.com/lib/pq"
)

type emailAccountRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewEmailAccountRepository(db *postgres.DB, logger *logger.Logger) emailaccount.Repository {
	return &emailAccountRepository{db: db, logger: logger}
}

const emailAccountColumns = `
	id, user_id, email, provider, is_primary, is_active, is_connected,
	company_name, knowledge_base, gmail_token_id,
	imap_host, imap_port, smtp_host, smtp_port, username, password_encrypted,
	created_at, updated_at`

func (r *emailAccountRepository) Get(ctx context.Context, id string) (*emailaccount.EmailAccount, error) {
	query := `SELECT ` + emailAccountColumns + ` FROM email_configurations WHERE id = $1`

	var account emailaccount.EmailAccount
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &account, query, id); err != nil {
		if isNoRows(err) {
			return nil, ierr.WithError(err).
				WithHintf("Email account %s was not found", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get email account").
			WithReportableDetails(map[string]any{"email_configuration_id": id}).
			Mark(ierr.ErrDatabase)
	}
	return &account, nil
}

func (r *emailAccountRepository) ListByUser(ctx context.Context, userID string) ([]*emailaccount.EmailAccount, error) {
	query := `
		SELECT ` + emailAccountColumns + `
		FROM email_configurations
		WHERE user_id = $1
		ORDER BY created_at ASC, id ASC
	`

	var accounts []*emailaccount.EmailAccount
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &accounts, query, userID); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list email accounts").
			WithReportableDetails(map[string]any{"user_id": userID}).
			Mark(ierr.ErrDatabase)
	}
	return accounts, nil
}

func (r *emailAccountRepository) Create(ctx context.Context, account *emailaccount.EmailAccount) error {
	now := time.Now().UTC()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now

	query := `
		INSERT INTO email_configurations (
			id, user_id, email, provider, is_primary, is_active, is_connected,
			company_name, knowledge_base, gmail_token_id,
			imap_host, imap_port, smtp_host, smtp_port, username, password_encrypted,
			created_at, updated_at
		) VALUES (
			:id, :user_id, :email, :provider, :is_primary, :is_active, :is_connected,
			:company_name, :knowledge_base, :gmail_token_id,
			:imap_host, :imap_port, :smtp_host, :smtp_port, :username, :password_encrypted,
			:created_at, :updated_at
		)
	`

	if _, err := r.db.NamedExecContext(ctx, query, account); err != nil {
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("This mailbox is already connected").
				WithReportableDetails(map[string]any{"email": account.Email}).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to save email account").
			WithReportableDetails(map[string]any{"email": account.Email}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *emailAccountRepository) SetActive(ctx context.Context, userID string, ids []string, active bool) error {
	if len(ids) == 0 {
		return nil
	}

	query := `
		UPDATE email_configurations
		SET is_active = $3, updated_at = $4
		WHERE user_id = $1 AND id = ANY($2) AND is_active <> $3
	`

	if _, err := r.db.GetQuerier(ctx).ExecContext(ctx, query, userID, pq.Array(ids), active, time.Now().UTC()); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update email account activation").
			WithReportableDetails(map[string]any{"user_id": userID, "ids": ids}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *emailAccountRepository) SetActiveForUser(ctx context.Context, userID string, active bool, includePrimary bool) error {
	query := `
		UPDATE email_configurations
		SET is_active = $2, updated_at = $3
		WHERE user_id = $1 AND is_active <> $2 AND ($4 OR NOT is_primary)
	`

	if _, err := r.db.GetQuerier(ctx).ExecContext(ctx, query, userID, active, time.Now().UTC(), includePrimary); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update email account activation").
			WithReportableDetails(map[string]any{"user_id": userID}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}
