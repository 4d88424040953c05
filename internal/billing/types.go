package billing

import "encoding/json"

// CheckoutSession is the subset of a Stripe checkout session the app reads.
type CheckoutSession struct {
	ID            string `json:"id"`
	PaymentStatus string `json:"payment_status"`
	Customer      string `json:"customer"`
	Subscription  string `json:"subscription"`
	CustomerDetails struct {
		Email string `json:"email"`
	} `json:"customer_details"`
	CustomerEmail string `json:"customer_email"`
}

// Email returns the buyer's email, preferring the collected customer details.
func (s *CheckoutSession) Email() string {
	if s.CustomerDetails.Email != "" {
		return s.CustomerDetails.Email
	}
	return s.CustomerEmail
}

// Subscription is the subset of a Stripe subscription the app reads.
type Subscription struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Customer string `json:"customer"`
	Items    struct {
		Data []struct {
			Price struct {
				Recurring struct {
					Interval string `json:"interval"`
				} `json:"recurring"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

// Interval returns the billing interval of the first subscription item,
// or "" for one-time purchases with no recurring price.
func (s *Subscription) Interval() string {
	if len(s.Items.Data) == 0 {
		return ""
	}
	return s.Items.Data[0].Price.Recurring.Interval
}

// Event is a decoded Stripe webhook event envelope. Data.Object is kept
// raw so each event type can decode its own payload shape.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionDeleted = "customer.subscription.deleted"
	EventSubscriptionUpdated = "customer.subscription.updated"
)
