package models

import "time"

// Plan is the subscription tier of an account.
type Plan string

const (
	PlanFree    Plan = "free"
	PlanPremium Plan = "premium"
)

// Subscription belongs to exactly one user. A user may accumulate several
// historical rows; the most recently created one is authoritative.
type Subscription struct {
	ID        string     `json:"id" db:"id"`
	UserID    string     `json:"user_id" db:"user_id"`
	Plan      Plan       `json:"plan" db:"plan"`
	Status    string     `json:"status" db:"status"`
	StartDate time.Time  `json:"start_date" db:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty" db:"end_date"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}
