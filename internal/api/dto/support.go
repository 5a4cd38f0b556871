package dto

import (
	"github.com/hallmail/hallmail/internal/validator"
)

type CreateSupportTicketRequest struct {
	Subject  string `json:"subject" validate:"required,max=200"`
	Category string `json:"category,omitempty" validate:"omitempty,oneof=billing technical account other"`
	Message  string `json:"message" validate:"required,max=5000"`
}

func (r *CreateSupportTicketRequest) Validate() error {
	return validator.ValidateRequest(r)
}

type SupportTicketResponse struct {
	Success   bool   `json:"success"`
	TicketID  string `json:"ticket_id"`
	EmailSent bool   `json:"email_sent"`
	Stored    bool   `json:"stored"`
}
