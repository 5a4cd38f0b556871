package types

import (
	ierr "github.com/hallmail/hallmail/internal/errors"
	"github.com/samber/lo"
)

// SubscriptionType classifies a mirrored Stripe subscription
type SubscriptionType string

const (
	// SubscriptionTypePremier is the base plan covering the primary mailbox
	SubscriptionTypePremier SubscriptionType = "premier"
	// SubscriptionTypeAdditionalAccount covers one extra mailbox seat
	SubscriptionTypeAdditionalAccount SubscriptionType = "additional_account"
)

func (t SubscriptionType) String() string {
	return string(t)
}

func (t SubscriptionType) Validate() error {
	allowed := []SubscriptionType{
		SubscriptionTypePremier,
		SubscriptionTypeAdditionalAccount,
	}
	if !lo.Contains(allowed, t) {
		return ierr.NewError("invalid subscription type").
			WithHint("Invalid subscription type").
			WithReportableDetails(map[string]any{
				"subscription_type": t,
				"allowed_values":    allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// SubscriptionStatus mirrors the Stripe subscription lifecycle plus the
// local not_started placeholder
type SubscriptionStatus string

const (
	SubscriptionStatusActive            SubscriptionStatus = "active"
	SubscriptionStatusTrialing          SubscriptionStatus = "trialing"
	SubscriptionStatusPastDue           SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled          SubscriptionStatus = "canceled"
	SubscriptionStatusUnpaid            SubscriptionStatus = "unpaid"
	SubscriptionStatusIncomplete        SubscriptionStatus = "incomplete"
	SubscriptionStatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
	SubscriptionStatusPaused            SubscriptionStatus = "paused"
	SubscriptionStatusNotStarted        SubscriptionStatus = "not_started"
)

var allowedSubscriptionStatuses = []SubscriptionStatus{
	SubscriptionStatusActive,
	SubscriptionStatusTrialing,
	SubscriptionStatusPastDue,
	SubscriptionStatusCanceled,
	SubscriptionStatusUnpaid,
	SubscriptionStatusIncomplete,
	SubscriptionStatusIncompleteExpired,
	SubscriptionStatusPaused,
	SubscriptionStatusNotStarted,
}

func (s SubscriptionStatus) String() string {
	return string(s)
}

func (s SubscriptionStatus) Validate() error {
	if !lo.Contains(allowedSubscriptionStatuses, s) {
		return ierr.NewError("invalid subscription status").
			WithHint("Invalid subscription status").
			WithReportableDetails(map[string]any{
				"status":         s,
				"allowed_status": allowedSubscriptionStatuses,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsLive reports whether the status grants access (active or trialing)
func (s SubscriptionStatus) IsLive() bool {
	return s == SubscriptionStatusActive || s == SubscriptionStatusTrialing
}

// SubscriptionStatusFromStripe converts a raw Stripe status. Unknown values
// are rejected so the caller can log them instead of persisting them.
func SubscriptionStatusFromStripe(raw string) (SubscriptionStatus, error) {
	status := SubscriptionStatus(raw)
	if status == SubscriptionStatusNotStarted {
		// local-only value, never sent by Stripe
		return "", ierr.NewError("unexpected stripe subscription status").
			WithHint("Unknown subscription status received from Stripe").
			WithReportableDetails(map[string]any{"status": raw}).
			Mark(ierr.ErrValidation)
	}
	if err := status.Validate(); err != nil {
		return "", err
	}
	return status, nil
}

// CheckoutMode is the Stripe Checkout session mode
type CheckoutMode string

const (
	CheckoutModeSubscription CheckoutMode = "subscription"
	CheckoutModePayment      CheckoutMode = "payment"
)

func (m CheckoutMode) Validate() error {
	allowed := []CheckoutMode{
		CheckoutModeSubscription,
		CheckoutModePayment,
	}
	if !lo.Contains(allowed, m) {
		return ierr.NewError("invalid checkout mode").
			WithHint("Mode must be one of subscription or payment").
			WithReportableDetails(map[string]any{
				"mode":           m,
				"allowed_values": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// SyncWait selects what a force sync should wait for before returning
type SyncWait string

const (
	SyncWaitNone     SyncWait = ""
	SyncWaitCheckout SyncWait = "checkout"
)

func (w SyncWait) Validate() error {
	allowed := []SyncWait{SyncWaitNone, SyncWaitCheckout}
	if !lo.Contains(allowed, w) {
		return ierr.NewError("invalid sync wait").
			WithHint("Wait must be empty or checkout").
			WithReportableDetails(map[string]any{
				"wait":           w,
				"allowed_values": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Stripe metadata keys written on checkout and read back during sync
const (
	MetadataKeyUserID               = "user_id"
	MetadataKeyCustomerUserID       = "userId"
	MetadataKeyType                 = "type"
	MetadataKeyEmailConfigurationID = "email_configuration_id"
	MetadataKeyPrimaryEmail         = "primary_email"
	MetadataKeyAdditionalEmails     = "additional_emails"
)
