package customer

import "time"

// Customer maps a user to its Stripe customer. At most one non-deleted row
// exists per user.
type Customer struct {
	ID         int64      `db:"id" json:"-"`
	UserID     string     `db:"user_id" json:"user_id"`
	CustomerID string     `db:"customer_id" json:"customer_id"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt  *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}
