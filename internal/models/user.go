package models

import "time"

const (
	SubscriptionMonthly  = "monthly"
	SubscriptionAnnual   = "annual"
	SubscriptionLifetime = "lifetime"
	SubscriptionCoach    = "coach"
)

type User struct {
	ID                  int64      `json:"id"`
	Email               string     `json:"email"`
	PasswordHash        string     `json:"-"`
	Subscribed          bool       `json:"subscribed"`
	SubscriptionType    *string    `json:"subscription_type"`
	SubscriptionEndDate *time.Time `json:"subscription_end_date"`
	StripeCustomerID    *string    `json:"-"`
	IsCoach             bool       `json:"is_coach"`
	CoachID             *int64     `json:"coach_id"`
	FullName            *string    `json:"full_name"`
	UnitPreference      string     `json:"unit_preference"`
	HeightInches        *float64   `json:"height_inches"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// Principal is the authenticated identity handed to access checks. It is
// always passed explicitly; nothing below the handlers reads ambient state.
type Principal struct {
	ID         int64
	IsCoach    bool
	Subscribed bool
	CoachID    *int64
}

// Role names the account kind carried in token claims.
func (u *User) Role() string {
	if u.IsCoach {
		return "coach"
	}
	return "athlete"
}

func (u *User) Principal() Principal {
	return Principal{
		ID:         u.ID,
		IsCoach:    u.IsCoach,
		Subscribed: u.Subscribed,
		CoachID:    u.CoachID,
	}
}
