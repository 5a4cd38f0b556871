package service

import (
	"context"
	"strings"

	"github.com/hallmail/hallmail/internal/api/dto"
	"github.com/hallmail/hallmail/internal/domain/emailaccount"
	"github.com/hallmail/hallmail/internal/domain/subscription"
	ierr "github.com/hallmail/hallmail/internal/errors"
	"github.com/hallmail/hallmail/internal/mailbox"
	"github.com/hallmail/hallmail/internal/types"
	"github.com/samber/lo"
)

type EmailAccountService interface {
	ConnectIMAP(ctx context.Context, userID string, req *dto.ConnectIMAPRequest) (*dto.EmailAccountResponse, error)
	ConnectGmail(ctx context.Context, userID string, req *dto.ConnectGmailRequest) (*dto.EmailAccountResponse, error)
	List(ctx context.Context, userID string) (*dto.ListEmailAccountsResponse, error)
}

type emailAccountService struct {
	ServiceParams
	slots    SlotReconciler
	pipeline PipelineNotifier
}

func NewEmailAccountService(params ServiceParams, slots SlotReconciler, pipeline PipelineNotifier) EmailAccountService {
	return &emailAccountService{
		ServiceParams: params,
		slots:         slots,
		pipeline:      pipeline,
	}
}

func (s *emailAccountService) ConnectIMAP(ctx context.Context, userID string, req *dto.ConnectIMAPRequest) (*dto.EmailAccountResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if err := s.Verifier.Verify(ctx, mailbox.Credentials{
		Host:     req.IMAPHost,
		Port:     req.IMAPPort,
		Username: req.LoginUsername(),
		Password: req.Password,
	}); err != nil {
		return nil, err
	}

	encrypted, err := s.Encryption.Encrypt(req.Password)
	if err != nil {
		return nil, err
	}

	account := req.ToEmailAccount(ctx, userID)
	account.PasswordEncrypted = encrypted
	return s.connect(ctx, userID, account)
}

func (s *emailAccountService) ConnectGmail(ctx context.Context, userID string, req *dto.ConnectGmailRequest) (*dto.EmailAccountResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.connect(ctx, userID, req.ToEmailAccount(ctx, userID))
}

// connect stores a verified mailbox, lets a waiting seat pick it up and
// tells the pipeline about it
func (s *emailAccountService) connect(ctx context.Context, userID string, account *emailaccount.EmailAccount) (*dto.EmailAccountResponse, error) {
	existing, err := s.EmailAccountRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if lo.ContainsBy(existing, func(a *emailaccount.EmailAccount) bool {
		return strings.EqualFold(a.Email, account.Email)
	}) {
		return nil, ierr.NewError("email account already connected").
			WithHintf("%s is already connected", account.Email).
			Mark(ierr.ErrAlreadyExists)
	}

	rows, err := s.SubscriptionRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	livePremier := lo.ContainsBy(rows, func(r *subscription.Subscription) bool {
		return r.IsPremier() && r.IsLive()
	})

	account.IsPrimary = !lo.ContainsBy(existing, func(a *emailaccount.EmailAccount) bool {
		return a.IsPrimary
	})
	account.IsActive = account.IsPrimary || livePremier

	if err := s.EmailAccountRepo.Create(ctx, account); err != nil {
		return nil, err
	}
	log := s.Logger.With("user_id", userID, "email_configuration_id", account.ID)
	log.Infow("connected email account", "provider", account.Provider, "is_primary", account.IsPrimary)

	if !account.IsPrimary {
		if linked, err := s.slots.LinkAccounts(ctx, userID); err != nil {
			log.Errorw("failed to link email account to a paid seat", "error", err)
		} else if linked > 0 {
			log.Infow("linked email account to a paid seat")
		}
	}

	if account.IsActive {
		if err := s.pipeline.NotifyActivation(ctx, dto.PipelineActivation{
			UserID:               userID,
			EmailConfigurationID: account.ID,
			Email:                account.Email,
			Provider:             account.Provider,
			CompanyName:          account.CompanyName,
		}); err != nil {
			log.Warnw("pipeline activation failed, the mailbox will be picked up later", "error", err)
		}
	}

	return &dto.EmailAccountResponse{EmailAccount: account}, nil
}

func (s *emailAccountService) List(ctx context.Context, userID string) (*dto.ListEmailAccountsResponse, error) {
	accounts, err := s.EmailAccountRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	items := lo.FilterMap(accounts, func(a *emailaccount.EmailAccount, _ int) (*dto.EmailAccountResponse, bool) {
		return &dto.EmailAccountResponse{EmailAccount: a}, a.Provider != types.EmailProviderSlot
	})
	return &dto.ListEmailAccountsResponse{Items: items}, nil
}
