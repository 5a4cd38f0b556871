package emailaccount

import (
	"time"

	"github.com/hallmail/hallmail/internal/types"
)

// EmailAccount is one connected mailbox (email_configurations)
type EmailAccount struct {
	ID          string              `db:"id" json:"id"`
	UserID      string              `db:"user_id" json:"user_id"`
	Email       string              `db:"email" json:"email"`
	Provider    types.EmailProvider `db:"provider" json:"provider"`
	IsPrimary   bool                `db:"is_primary" json:"is_primary"`
	IsActive    bool                `db:"is_active" json:"is_active"`
	IsConnected bool                `db:"is_connected" json:"is_connected"`

	// Used by the classification pipeline
	CompanyName   string `db:"company_name" json:"company_name"`
	KnowledgeBase string `db:"knowledge_base" json:"knowledge_base"`

	GmailTokenID *string `db:"gmail_token_id" json:"gmail_token_id,omitempty"`

	IMAPHost          string `db:"imap_host" json:"imap_host,omitempty"`
	IMAPPort          int    `db:"imap_port" json:"imap_port,omitempty"`
	SMTPHost          string `db:"smtp_host" json:"smtp_host,omitempty"`
	SMTPPort          int    `db:"smtp_port" json:"smtp_port,omitempty"`
	Username          string `db:"username" json:"username,omitempty"`
	PasswordEncrypted string `db:"password_encrypted" json:"-"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
