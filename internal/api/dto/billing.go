package dto

import (
	ierr "github.com/hallmail/hallmail/internal/errors"
	"github.com/hallmail/hallmail/internal/types"
	"github.com/hallmail/hallmail/internal/validator"
)

// CreateCheckoutRequest starts a hosted Stripe Checkout session
type CreateCheckoutRequest struct {
	PriceID                  string             `json:"price_id" validate:"required"`
	SuccessURL               string             `json:"success_url" validate:"required,url"`
	CancelURL                string             `json:"cancel_url" validate:"required,url"`
	Mode                     types.CheckoutMode `json:"mode" validate:"required"`
	AdditionalAccountPriceID string             `json:"additional_account_price_id,omitempty"`
	AdditionalAccounts       int64              `json:"additional_accounts,omitempty" validate:"gte=0,lte=100"`
	PrimaryEmail             string             `json:"primary_email,omitempty" validate:"omitempty,email"`
	AdditionalEmails         []string           `json:"additional_emails,omitempty" validate:"omitempty,dive,email"`
	// EmailConfigurationID pins an additional-account purchase to a mailbox
	EmailConfigurationID string `json:"email_configuration_id,omitempty"`
}

func (r *CreateCheckoutRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	return r.Mode.Validate()
}

type CheckoutResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// SubscriptionActionRequest targets the subscription behind an email account
// for cancellation or reactivation. The subscription is resolved from the
// type and the email configuration when its id is not given.
type SubscriptionActionRequest struct {
	SubscriptionID       string                 `json:"subscription_id,omitempty"`
	SubscriptionType     types.SubscriptionType `json:"subscription_type" validate:"required"`
	EmailConfigurationID string                 `json:"email_configuration_id,omitempty"`
}

func (r *SubscriptionActionRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if err := r.SubscriptionType.Validate(); err != nil {
		return err
	}
	if r.SubscriptionType == types.SubscriptionTypeAdditionalAccount &&
		r.SubscriptionID == "" && r.EmailConfigurationID == "" {
		return ierr.NewError("subscription_id or email_configuration_id is required").
			WithHint("Select the email account whose subscription should change").
			Mark(ierr.ErrValidation)
	}
	return nil
}

type SubscriptionActionResponse struct {
	Success           bool   `json:"success"`
	SubscriptionID    string `json:"subscription_id"`
	CancelAtPeriodEnd bool   `json:"cancel_at_period_end"`
	CurrentPeriodEnd  int64  `json:"current_period_end,omitempty"`
	// Pending is true when the local mirror had not caught up before the
	// poll gave up; a later sync will converge
	Pending bool `json:"pending"`
}

type SyncRequest struct {
	Wait types.SyncWait `json:"wait,omitempty"`
}

func (r *SyncRequest) Validate() error {
	return r.Wait.Validate()
}

type SyncResponse struct {
	Success       bool                     `json:"success"`
	CustomerID    string                   `json:"customer_id,omitempty"`
	Subscriptions int                      `json:"subscriptions"`
	SlotsCreated  int                      `json:"slots_created"`
	SlotsRetired  int                      `json:"slots_retired"`
	Invoices      int                      `json:"invoices"`
	PremierStatus types.SubscriptionStatus `json:"premier_status,omitempty"`
	Pending       bool                     `json:"pending"`
}

type PortalSessionRequest struct {
	ReturnURL string `json:"return_url,omitempty" validate:"omitempty,url"`
}

func (r *PortalSessionRequest) Validate() error {
	return validator.ValidateRequest(r)
}

type PortalSessionResponse struct {
	URL string `json:"url"`
}

// AccountView is one row of the billing accounts screen, either a
// configured mailbox or a synthetic slot
type AccountView struct {
	ID                string                   `json:"id"`
	Email             string                   `json:"email"`
	Provider          types.EmailProvider      `json:"provider"`
	IsPrimary         bool                     `json:"is_primary"`
	IsActive          bool                     `json:"is_active"`
	IsConnected       bool                     `json:"is_connected"`
	State             types.AccountState       `json:"state"`
	CanCancel         bool                     `json:"can_cancel"`
	CanReactivate     bool                     `json:"can_reactivate"`
	CanSubscribe      bool                     `json:"can_subscribe"`
	SubscriptionID    string                   `json:"subscription_id,omitempty"`
	SubscriptionType  types.SubscriptionType   `json:"subscription_type,omitempty"`
	Status            types.SubscriptionStatus `json:"status,omitempty"`
	CancelAtPeriodEnd bool                     `json:"cancel_at_period_end"`
	CurrentPeriodEnd  int64                    `json:"current_period_end,omitempty"`
}

type BillingSummary struct {
	PremierSubscriptionID string                   `json:"premier_subscription_id,omitempty"`
	PremierStatus         types.SubscriptionStatus `json:"premier_status,omitempty"`
	TotalPaidSeats        int64                    `json:"total_paid_seats"`
	ConfiguredAccounts    int64                    `json:"configured_accounts"`
	Slots                 int64                    `json:"slots"`
	NextRenewal           int64                    `json:"next_renewal,omitempty"`
	CardBrand             string                   `json:"card_brand,omitempty"`
	CardLast4             string                   `json:"card_last4,omitempty"`
}

type AccountsViewResponse struct {
	Accounts []*AccountView `json:"accounts"`
	Billing  BillingSummary `json:"billing"`
}
