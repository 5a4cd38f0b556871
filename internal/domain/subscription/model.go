package subscription

import (
	"time"

	"github.com/hallmail/hallmail/internal/types"
)

// Subscription mirrors one Stripe subscription, a not_started placeholder,
// or a seat row standing for one unit of an additional-account quantity
// (stripe_user_subscriptions)
type Subscription struct {
	ID                 int64                    `db:"id" json:"-"`
	SubscriptionID     string                   `db:"subscription_id" json:"subscription_id"`
	UserID             string                   `db:"user_id" json:"user_id"`
	CustomerID         string                   `db:"customer_id" json:"customer_id"`
	SubscriptionType   types.SubscriptionType   `db:"subscription_type" json:"subscription_type"`
	Status             types.SubscriptionStatus `db:"status" json:"status"`
	PriceID            string                   `db:"price_id" json:"price_id"`
	CurrentPeriodStart int64                    `db:"current_period_start" json:"current_period_start"`
	CurrentPeriodEnd   int64                    `db:"current_period_end" json:"current_period_end"`
	CancelAtPeriodEnd  bool                     `db:"cancel_at_period_end" json:"cancel_at_period_end"`

	// EmailConfigurationID is nil for a paid seat not yet linked to a mailbox
	EmailConfigurationID *string `db:"email_configuration_id" json:"email_configuration_id"`
	// ParentSubscriptionID is set on seat rows and names the Stripe
	// subscription whose quantity they represent
	ParentSubscriptionID *string `db:"parent_subscription_id" json:"parent_subscription_id,omitempty"`
	// RemovalScheduled marks a seat its owner cancelled. The parent quantity
	// is already lowered and the seat ends with its current period.
	RemovalScheduled bool `db:"removal_scheduled" json:"removal_scheduled"`

	PaymentMethodBrand string `db:"payment_method_brand" json:"payment_method_brand"`
	PaymentMethodLast4 string `db:"payment_method_last4" json:"payment_method_last4"`

	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// IsDeleted reports whether the row was resiliated or superseded
func (s *Subscription) IsDeleted() bool {
	return s.DeletedAt != nil
}

// IsLive is true for non-deleted active or trialing rows
func (s *Subscription) IsLive() bool {
	return !s.IsDeleted() && s.Status.IsLive()
}

func (s *Subscription) IsLinked() bool {
	return s.EmailConfigurationID != nil && *s.EmailConfigurationID != ""
}

func (s *Subscription) IsLinkedTo(emailConfigurationID string) bool {
	return s.IsLinked() && *s.EmailConfigurationID == emailConfigurationID
}

// IsSeat reports whether the row was materialized from a parent quantity
func (s *Subscription) IsSeat() bool {
	return s.ParentSubscriptionID != nil && *s.ParentSubscriptionID != ""
}

func (s *Subscription) IsPlaceholder() bool {
	return s.Status == types.SubscriptionStatusNotStarted
}

func (s *Subscription) IsPremier() bool {
	return s.SubscriptionType == types.SubscriptionTypePremier
}

func (s *Subscription) IsAdditional() bool {
	return s.SubscriptionType == types.SubscriptionTypeAdditionalAccount
}

// PlaceholderID is the subscription id of the not_started row of a customer
func PlaceholderID(customerID string) string {
	return "not_started_" + customerID
}
