package repository

import (
	"github.com/hallmail/hallmail/internal/domain/customer"
	"github.com/hallmail/hallmail/internal/domain/emailaccount"
	"github.com/hallmail/hallmail/internal/domain/invoice"
	"github.com/hallmail/hallmail/internal/domain/subscription"
	"github.com/hallmail/hallmail/internal/domain/support"
	"github.com/hallmail/hallmail/internal/domain/user"
	"github.com/hallmail/hallmail/internal/logger"
	"github.com/hallmail/hallmail/internal/postgres"
	postgresRepo "github.com/hallmail/hallmail/internal/repository/postgres"
)

func NewUserRepository(db *postgres.DB, logger *logger.Logger) user.Repository {
	return postgresRepo.NewUserRepository(db, logger)
}

func NewCustomerRepository(db *postgres.DB, logger *logger.Logger) customer.Repository {
	return postgresRepo.NewCustomerRepository(db, logger)
}

func NewEmailAccountRepository(db *postgres.DB, logger *logger.Logger) emailaccount.Repository {
	return postgresRepo.NewEmailAccountRepository(db, logger)
}

func NewSubscriptionRepository(db *postgres.DB, logger *logger.Logger) subscription.Repository {
	return postgresRepo.NewSubscriptionRepository(db, logger)
}

func NewInvoiceRepository(db *postgres.DB, logger *logger.Logger) invoice.Repository {
	return postgresRepo.NewInvoiceRepository(db, logger)
}

func NewSupportRepository(db *postgres.DB, logger *logger.Logger) support.Repository {
	return postgresRepo.NewSupportRepository(db, logger)
}
