package billing

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// Client talks to the Stripe REST API over HTTP.
type Client struct {
	secretKey  string
	apiURL     string
	httpClient *http.Client
}

func NewClient(secretKey string) *Client {
	return &Client{
		secretKey:  secretKey,
		apiURL:     "https://api.stripe.com/v1",
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.New("unexpected status: " + resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// GetCheckoutSession fetches a checkout session by its ID.
func (c *Client) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	var session CheckoutSession
	if err := c.get(ctx, "/checkout/sessions/"+sessionID, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetSubscription fetches a subscription by its ID.
func (c *Client) GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	var sub Subscription
	if err := c.get(ctx, "/subscriptions/"+subscriptionID, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}
