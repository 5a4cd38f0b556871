package postgres

import (
	"context"

	"github.com/hallmail/hallmail/internal/domain/user"
	ierr "github.com/hallmail/hallmail/internal/errors"
	"github.com/hallmail/hallmail/internal/logger"
	"github.com/hallmail/hallmail/internal/postgres"
)

type userRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewUserRepository(db *postgres.DB, logger *logger.Logger) user.Repository {
	return &userRepository{db: db, logger: logger}
}

func (r *userRepository) Get(ctx context.Context, id string) (*user.User, error) {
	query := `
		SELECT id, email, full_name, company_name, created_at
		FROM users
		WHERE id = $1
	`

	var u user.User
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &u, query, id); err != nil {
		if isNoRows(err) {
			return nil, ierr.WithError(err).
				WithHintf("User %s was not found", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get user").
			WithReportableDetails(map[string]any{"user_id": id}).
			Mark(ierr.ErrDatabase)
	}
	return &u, nil
}
