package service

import (
	"context"
	"time"

	"github.com/hallmail/hallmail/internal/api/dto"
	"github.com/hallmail/hallmail/internal/domain/support"
	"github.com/hallmail/hallmail/internal/email"
	ierr "github.com/hallmail/hallmail/internal/errors"
	"github.com/hallmail/hallmail/internal/types"
)

type SupportService interface {
	Submit(ctx context.Context, userID string, userEmail string, req *dto.CreateSupportTicketRequest) (*dto.SupportTicketResponse, error)
}

type supportService struct {
	ServiceParams
}

func NewSupportService(params ServiceParams) SupportService {
	return &supportService{ServiceParams: params}
}

// Submit notifies the support inbox and stores the ticket. Either side
// effect may fail on its own without failing the request.
func (s *supportService) Submit(ctx context.Context, userID string, userEmail string, req *dto.CreateSupportTicketRequest) (*dto.SupportTicketResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ticket := &support.Ticket{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUPPORT_TICKET),
		UserID:    userID,
		Email:     userEmail,
		Subject:   req.Subject,
		Category:  req.Category,
		Message:   req.Message,
		CreatedAt: time.Now().UTC(),
	}
	log := s.Logger.With("user_id", userID, "ticket_id", ticket.ID)

	_, emailErr := s.Email.SendSupportNotification(ctx, email.SupportNotification{
		TicketID:  ticket.ID,
		UserID:    userID,
		UserEmail: userEmail,
		Category:  req.Category,
		Subject:   req.Subject,
		Message:   req.Message,
	})
	if emailErr != nil {
		log.Errorw("support notification email failed", "error", emailErr)
	}

	storeErr := s.SupportRepo.Create(ctx, ticket)
	if storeErr != nil {
		log.Errorw("failed to store support ticket", "error", storeErr)
	}

	if emailErr != nil && storeErr != nil {
		return nil, ierr.WithError(storeErr).
			WithHint("Your request could not be sent, please try again or email us directly").
			Mark(ierr.ErrSystem)
	}

	return &dto.SupportTicketResponse{
		Success:   true,
		TicketID:  ticket.ID,
		EmailSent: emailErr == nil,
		Stored:    storeErr == nil,
	}, nil
}
