// Package payment wraps the payment provider's order API (Razorpay-style):
// create a provider order for an amount, then verify the checkout callback
// signature before marking anything paid.
package payment

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/charvilabs/charvi/config"
	"github.com/charvilabs/charvi/pkg/crypt"
	"github.com/charvilabs/charvi/pkg/http"
)

// ProviderOrder is the provider-side order created before checkout.
type ProviderOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Client calls the provider REST API with basic auth.
type Client struct {
	KeyID     string
	KeySecret string
	BaseURL   string
}

// New builds a client from the app configuration.
func New() *Client {
	return &Client{
		KeyID:     config.PaymentKeyID(),
		KeySecret: config.PaymentKeySecret(),
		BaseURL:   config.PaymentBaseURL(),
	}
}

// Configured reports whether provider credentials are present.
func (c *Client) Configured() bool { return c.KeyID != "" && c.KeySecret != "" }

// CreateOrder registers an order with the provider. Amount is in the
// currency's smallest unit (paise for INR).
func (c *Client) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*ProviderOrder, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("payment: provider credentials not configured")
	}

	body := map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
	}

	resp, err := http.Post(c.BaseURL+"/orders").
		Header("Authorization", "Basic "+c.basicAuth()).
		Body(body).
		Timeout(15 * time.Second).
		Retry(2, 500*time.Millisecond).
		WithContext(ctx).
		Send()
	if err != nil {
		return nil, fmt.Errorf("payment: create order: %w", err)
	}
	if err := resp.Throw(); err != nil {
		return nil, fmt.Errorf("payment: create order: %w", err)
	}

	var order ProviderOrder
	if err := resp.JSON(&order); err != nil {
		return nil, err
	}
	return &order, nil
}

// VerifySignature checks the HMAC the provider sends back after checkout.
// The signed message is "<providerOrderID>|<paymentID>".
func (c *Client) VerifySignature(providerOrderID, paymentID, signature string) bool {
	expected := crypt.HMACSHA256(providerOrderID+"|"+paymentID, c.KeySecret)
	return crypt.HMACEqual(expected, signature)
}

func (c *Client) basicAuth() string {
	return base64.StdEncoding.EncodeToString([]byte(c.KeyID + ":" + c.KeySecret))
}
