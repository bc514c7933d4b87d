package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatepass/internal/shared/config"
)

const testSecret = "whsec_test_secret"

func newTestAdapter() Adapter {
	return NewAdapter(&config.PaymentConfig{
		KeyID:         "key_test",
		WebhookSecret: testSecret,
	})
}

func signHex(secret string, parts ...string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestCreateOrder(t *testing.T) {
	adapter := newTestAdapter()

	t.Run("creates order with generated ID", func(t *testing.T) {
		order, err := adapter.CreateOrder(context.Background(), 1500.00, "GPS-20260828-ABCDEF")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(order.ID, "order_"))
		assert.Len(t, order.ID, len("order_")+24)
		assert.Equal(t, 1500.00, order.Amount)
		assert.Equal(t, "INR", order.Currency)
		assert.Equal(t, "GPS-20260828-ABCDEF", order.Receipt)
	})

	t.Run("order IDs are unique", func(t *testing.T) {
		first, err := adapter.CreateOrder(context.Background(), 100, "r1")
		require.NoError(t, err)
		second, err := adapter.CreateOrder(context.Background(), 100, "r2")
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, second.ID)
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		_, err := adapter.CreateOrder(context.Background(), 0, "r")
		assert.Error(t, err)
		_, err = adapter.CreateOrder(context.Background(), -10, "r")
		assert.Error(t, err)
	})
}

func TestVerifyWebhookSignature(t *testing.T) {
	adapter := newTestAdapter()
	body := []byte(`{"event":"payment.captured","order_id":"order_abc","payment_id":"pay_123","amount":1500}`)

	t.Run("accepts valid signature", func(t *testing.T) {
		assert.True(t, adapter.VerifyWebhookSignature(body, signHex(testSecret, string(body))))
	})

	t.Run("rejects signature from wrong secret", func(t *testing.T) {
		assert.False(t, adapter.VerifyWebhookSignature(body, signHex("wrong_secret", string(body))))
	})

	t.Run("rejects signature over different body", func(t *testing.T) {
		other := []byte(`{"event":"payment.captured","order_id":"order_abc","payment_id":"pay_123","amount":9999}`)
		assert.False(t, adapter.VerifyWebhookSignature(body, signHex(testSecret, string(other))))
	})

	t.Run("rejects empty signature", func(t *testing.T) {
		assert.False(t, adapter.VerifyWebhookSignature(body, ""))
	})

	t.Run("rejects garbage signature", func(t *testing.T) {
		assert.False(t, adapter.VerifyWebhookSignature(body, "deadbeef"))
	})
}

func TestVerifyPaymentSignature(t *testing.T) {
	adapter := newTestAdapter()

	t.Run("accepts valid signature", func(t *testing.T) {
		sig := signHex(testSecret, "order_abc", "pay_123")
		assert.True(t, adapter.VerifyPaymentSignature("order_abc", "pay_123", sig))
	})

	t.Run("rejects swapped order and payment", func(t *testing.T) {
		sig := signHex(testSecret, "pay_123", "order_abc")
		assert.False(t, adapter.VerifyPaymentSignature("order_abc", "pay_123", sig))
	})

	t.Run("rejects empty inputs", func(t *testing.T) {
		sig := signHex(testSecret, "order_abc", "pay_123")
		assert.False(t, adapter.VerifyPaymentSignature("", "pay_123", sig))
		assert.False(t, adapter.VerifyPaymentSignature("order_abc", "", sig))
		assert.False(t, adapter.VerifyPaymentSignature("order_abc", "pay_123", ""))
	})
}
