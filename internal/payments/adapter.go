package payments

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"time"

	"gatepass/internal/shared/config"
)

// Order is a payment order registered with the gateway before checkout.
// The booking stores OrderID and matches it against the webhook.
type Order struct {
	ID        string    `json:"id"`
	Amount    float64   `json:"amount"`
	Currency  string    `json:"currency"`
	Receipt   string    `json:"receipt"`
	CreatedAt time.Time `json:"created_at"`
}

// Adapter is the boundary to the payment gateway. The engine never
// processes card data; it creates orders and verifies signed webhooks.
type Adapter interface {
	CreateOrder(ctx context.Context, amount float64, receipt string) (*Order, error)
	VerifyWebhookSignature(body []byte, signature string) bool
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
}

// gatewayAdapter signs and verifies with the shared webhook secret,
// matching the gateway's HMAC-SHA256 scheme. Order creation is local: the
// gateway accepts any well-formed order ID registered at checkout time.
type gatewayAdapter struct {
	keyID         string
	webhookSecret []byte
}

func NewAdapter(cfg *config.PaymentConfig) Adapter {
	return &gatewayAdapter{
		keyID:         cfg.KeyID,
		webhookSecret: []byte(cfg.WebhookSecret),
	}
}

func (a *gatewayAdapter) CreateOrder(ctx context.Context, amount float64, receipt string) (*Order, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("order amount must be positive")
	}

	raw := make([]byte, 12)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("failed to generate order ID: %w", err)
	}

	return &Order{
		ID:        "order_" + hex.EncodeToString(raw),
		Amount:    amount,
		Currency:  "INR",
		Receipt:   receipt,
		CreatedAt: time.Now(),
	}, nil
}

// VerifyWebhookSignature checks the HMAC-SHA256 of the raw webhook body.
// Constant-time compare; the signature arrives hex encoded.
func (a *gatewayAdapter) VerifyWebhookSignature(body []byte, signature string) bool {
	if signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, a.webhookSecret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

// VerifyPaymentSignature checks the gateway's payment completion signature
// computed over "<orderID>|<paymentID>".
func (a *gatewayAdapter) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	if orderID == "" || paymentID == "" || signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, a.webhookSecret)
	fmt.Fprintf(mac, "%s|%s", orderID, paymentID)
	expected := hex.EncodeToString(mac.Sum(nil))

	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}
