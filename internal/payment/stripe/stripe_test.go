package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turuturu/turuturu/internal/config"
	paymentdomain "github.com/turuturu/turuturu/internal/payment/domain"
	"go.uber.org/zap"
)

const testWebhookSecret = "whsec_test_secret"

func newTestGateway(t *testing.T) paymentdomain.Gateway {
	t.Helper()
	gateway, err := New(Params{
		Config: config.Config{
			StripeSecretKey:     "sk_test_123",
			StripeWebhookSecret: testWebhookSecret,
		},
		Log: zap.NewNop(),
	})
	require.NoError(t, err)
	return gateway
}

func signedHeaders(secret string, timestamp string, payload []byte) http.Header {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(fmt.Sprintf("%s.%s", timestamp, string(payload))))
	headers := http.Header{}
	headers.Set("Stripe-Signature", fmt.Sprintf("t=%s,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil))))
	return headers
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Params{Config: config.Config{StripeSecretKey: "sk_test_123"}, Log: zap.NewNop()})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidConfig)

	_, err = New(Params{Config: config.Config{StripeWebhookSecret: testWebhookSecret}, Log: zap.NewNop()})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidConfig)
}

func TestVerifyAcceptsValidSignature(t *testing.T) {
	gateway := newTestGateway(t)
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)

	err := gateway.Verify(context.Background(), payload, signedHeaders(testWebhookSecret, "1756382400", payload))
	assert.NoError(t, err)
}

func TestVerifyRejectsBadSignatures(t *testing.T) {
	gateway := newTestGateway(t)
	payload := []byte(`{"id":"evt_1"}`)

	t.Run("wrong secret", func(t *testing.T) {
		headers := signedHeaders("whsec_other", "1756382400", payload)
		assert.ErrorIs(t, gateway.Verify(context.Background(), payload, headers), paymentdomain.ErrInvalidSignature)
	})

	t.Run("tampered payload", func(t *testing.T) {
		headers := signedHeaders(testWebhookSecret, "1756382400", payload)
		assert.ErrorIs(t, gateway.Verify(context.Background(), []byte(`{"id":"evt_2"}`), headers), paymentdomain.ErrInvalidSignature)
	})

	t.Run("missing header", func(t *testing.T) {
		assert.ErrorIs(t, gateway.Verify(context.Background(), payload, http.Header{}), paymentdomain.ErrInvalidSignature)
	})

	t.Run("malformed header", func(t *testing.T) {
		headers := http.Header{}
		headers.Set("Stripe-Signature", "v1=deadbeef")
		assert.ErrorIs(t, gateway.Verify(context.Background(), payload, headers), paymentdomain.ErrInvalidSignature)
	})
}

func TestParseCheckoutSessionCompleted(t *testing.T) {
	gateway := newTestGateway(t)
	payload := []byte(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"created": 1756382400,
		"data": {"object": {
			"id": "cs_test_1",
			"amount_total": 4990,
			"currency": "brl",
			"metadata": {
				"userId": "5f64a1de-59d1-4f3a-9f50-9e9a3b0a1c11",
				"credits": "5",
				"packageName": "Pacote Família",
				"orderType": "credit_purchase"
			}
		}}
	}`)

	event, err := gateway.Parse(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", event.ProviderEventID)
	assert.Equal(t, paymentdomain.EventTypeCreditPurchase, event.Type)
	assert.Equal(t, "5f64a1de-59d1-4f3a-9f50-9e9a3b0a1c11", event.UserID)
	assert.Equal(t, int64(5), event.Credits)
	assert.Equal(t, "Pacote Família", event.PackageName)
	assert.Equal(t, int64(4990), event.Amount)
	assert.Equal(t, "BRL", event.Currency)
}

func TestParseFallsBackToLegacyCustomerID(t *testing.T) {
	gateway := newTestGateway(t)
	payload := []byte(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {"object": {
			"metadata": {"customerId": "u-legacy", "credits": 3, "orderType": "credit_purchase"}
		}}
	}`)

	event, err := gateway.Parse(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, "u-legacy", event.UserID)
	assert.Equal(t, int64(3), event.Credits)
}

func TestParseRejectsInvalidMetadata(t *testing.T) {
	gateway := newTestGateway(t)

	for name, metadata := range map[string]string{
		"missing user":    `{"credits": "5", "orderType": "credit_purchase"}`,
		"missing credits": `{"userId": "u1", "orderType": "credit_purchase"}`,
		"zero credits":    `{"userId": "u1", "credits": "0", "orderType": "credit_purchase"}`,
	} {
		t.Run(name, func(t *testing.T) {
			payload := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"metadata":` + metadata + `}}}`)
			_, err := gateway.Parse(context.Background(), payload)
			assert.ErrorIs(t, err, paymentdomain.ErrInvalidMetadata)
		})
	}
}

func TestParseIgnoresNonCreditCheckouts(t *testing.T) {
	gateway := newTestGateway(t)
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"metadata":{"orderType":"gift_card"}}}}`)

	_, err := gateway.Parse(context.Background(), payload)
	assert.ErrorIs(t, err, paymentdomain.ErrEventIgnored)
}

func TestParsePaymentIntentFailed(t *testing.T) {
	gateway := newTestGateway(t)
	payload := []byte(`{
		"id": "evt_2",
		"type": "payment_intent.payment_failed",
		"data": {"object": {
			"id": "pi_1",
			"amount": 2990,
			"currency": "brl",
			"metadata": {"userId": "u1"}
		}}
	}`)

	event, err := gateway.Parse(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.EventTypePaymentFailed, event.Type)
	assert.Equal(t, "u1", event.UserID)
}

func TestParseIgnoresRetiredAndUnknownTypes(t *testing.T) {
	gateway := newTestGateway(t)

	for _, eventType := range []string{"payment_intent.succeeded", "invoice.paid", "charge.refunded"} {
		payload := []byte(`{"id":"evt_3","type":"` + eventType + `","data":{"object":{}}}`)
		_, err := gateway.Parse(context.Background(), payload)
		assert.ErrorIs(t, err, paymentdomain.ErrEventIgnored, eventType)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	gateway := newTestGateway(t)

	_, err := gateway.Parse(context.Background(), []byte(`not json`))
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidPayload)

	_, err = gateway.Parse(context.Background(), []byte(`{"type":"checkout.session.completed"}`))
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidEvent)
}
