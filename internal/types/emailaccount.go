package types

import (
	ierr "github.com/hallmail/hallmail/internal/errors"
	"github.com/samber/lo"
)

// EmailProvider identifies how a mailbox is connected
type EmailProvider string

const (
	EmailProviderGmail    EmailProvider = "gmail"
	EmailProviderSMTPIMAP EmailProvider = "smtp_imap"
	// EmailProviderSlot marks a paid seat with no mailbox behind it yet
	EmailProviderSlot EmailProvider = "slot"
)

func (p EmailProvider) Validate() error {
	allowed := []EmailProvider{
		EmailProviderGmail,
		EmailProviderSMTPIMAP,
		EmailProviderSlot,
	}
	if !lo.Contains(allowed, p) {
		return ierr.NewError("invalid email provider").
			WithHint("Invalid email provider").
			WithReportableDetails(map[string]any{
				"provider":       p,
				"allowed_values": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// AccountState is the billing state derived for an email account
type AccountState string

const (
	// AccountStateActive is billed and can be resiliated
	AccountStateActive AccountState = "active"
	// AccountStateCancelScheduled ends at period end and can be reactivated
	AccountStateCancelScheduled AccountState = "cancel_scheduled"
	// AccountStateResiliated has a subscription marked deleted
	AccountStateResiliated AccountState = "resiliated"
	// AccountStateInactive has no live subscription at all
	AccountStateInactive AccountState = "inactive"
	// AccountStateSlot is a paid seat not linked to a mailbox
	AccountStateSlot AccountState = "slot"
)

func (s AccountState) Validate() error {
	allowed := []AccountState{
		AccountStateActive,
		AccountStateCancelScheduled,
		AccountStateResiliated,
		AccountStateInactive,
		AccountStateSlot,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid account state").
			WithHint("Invalid account state").
			WithReportableDetails(map[string]any{
				"state":          s,
				"allowed_values": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
