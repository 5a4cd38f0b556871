package dto

import (
	"context"
	"strings"

	"github.com/hallmail/hallmail/internal/domain/emailaccount"
	"github.com/hallmail/hallmail/internal/types"
	"github.com/hallmail/hallmail/internal/validator"
	"github.com/samber/lo"
)

type ConnectIMAPRequest struct {
	Email         string `json:"email" validate:"required,email"`
	IMAPHost      string `json:"imap_host" validate:"required,hostname|ip"`
	IMAPPort      int    `json:"imap_port" validate:"required,min=1,max=65535"`
	SMTPHost      string `json:"smtp_host" validate:"required,hostname|ip"`
	SMTPPort      int    `json:"smtp_port" validate:"required,min=1,max=65535"`
	Username      string `json:"username,omitempty"`
	Password      string `json:"password" validate:"required"`
	CompanyName   string `json:"company_name,omitempty" validate:"max=255"`
	KnowledgeBase string `json:"knowledge_base,omitempty"`
}

func (r *ConnectIMAPRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// LoginUsername defaults the IMAP login to the address itself
func (r *ConnectIMAPRequest) LoginUsername() string {
	return lo.Ternary(r.Username != "", r.Username, r.Email)
}

func (r *ConnectIMAPRequest) ToEmailAccount(ctx context.Context, userID string) *emailaccount.EmailAccount {
	return &emailaccount.EmailAccount{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_EMAIL_ACCOUNT),
		UserID:        userID,
		Email:         strings.ToLower(strings.TrimSpace(r.Email)),
		Provider:      types.EmailProviderSMTPIMAP,
		IsActive:      true,
		IsConnected:   true,
		CompanyName:   r.CompanyName,
		KnowledgeBase: r.KnowledgeBase,
		IMAPHost:      r.IMAPHost,
		IMAPPort:      r.IMAPPort,
		SMTPHost:      r.SMTPHost,
		SMTPPort:      r.SMTPPort,
		Username:      r.LoginUsername(),
	}
}

// ConnectGmailRequest records a mailbox authorized through the Google OAuth
// callback
type ConnectGmailRequest struct {
	Email         string `json:"email" validate:"required,email"`
	GmailTokenID  string `json:"gmail_token_id" validate:"required"`
	CompanyName   string `json:"company_name,omitempty" validate:"max=255"`
	KnowledgeBase string `json:"knowledge_base,omitempty"`
}

func (r *ConnectGmailRequest) Validate() error {
	return validator.ValidateRequest(r)
}

func (r *ConnectGmailRequest) ToEmailAccount(ctx context.Context, userID string) *emailaccount.EmailAccount {
	return &emailaccount.EmailAccount{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_EMAIL_ACCOUNT),
		UserID:        userID,
		Email:         strings.ToLower(strings.TrimSpace(r.Email)),
		Provider:      types.EmailProviderGmail,
		IsActive:      true,
		IsConnected:   true,
		CompanyName:   r.CompanyName,
		KnowledgeBase: r.KnowledgeBase,
		GmailTokenID:  lo.ToPtr(r.GmailTokenID),
	}
}

type EmailAccountResponse struct {
	*emailaccount.EmailAccount
}

type ListEmailAccountsResponse struct {
	Items []*EmailAccountResponse `json:"items"`
}

// PipelineActivation is posted to the classification pipeline when a
// mailbox becomes available
type PipelineActivation struct {
	UserID               string              `json:"user_id"`
	EmailConfigurationID string              `json:"email_configuration_id"`
	Email                string              `json:"email"`
	Provider             types.EmailProvider `json:"provider"`
	CompanyName          string              `json:"company_name,omitempty"`
}
