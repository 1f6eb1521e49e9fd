package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/turuturu/turuturu/internal/config"
	paymentdomain "github.com/turuturu/turuturu/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Gateway talks to Stripe over its form-encoded REST API and verifies
// inbound webhooks against the shared signing secret.
type Gateway struct {
	apiKey        string
	webhookSecret string
	client        *http.Client
	log           *zap.Logger
}

type Params struct {
	fx.In

	Config config.Config
	Log    *zap.Logger
}

func New(p Params) (paymentdomain.Gateway, error) {
	apiKey := strings.TrimSpace(p.Config.StripeSecretKey)
	secret := strings.TrimSpace(p.Config.StripeWebhookSecret)
	if apiKey == "" || secret == "" {
		return nil, paymentdomain.ErrInvalidConfig
	}
	return &Gateway{
		apiKey:        apiKey,
		webhookSecret: secret,
		client:        &http.Client{Timeout: 12 * time.Second},
		log:           p.Log.Named("payment.stripe"),
	}, nil
}

func (g *Gateway) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	sigHeader := strings.TrimSpace(headers.Get("Stripe-Signature"))
	if sigHeader == "" {
		return paymentdomain.ErrInvalidSignature
	}

	timestamp, signatures, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return paymentdomain.ErrInvalidSignature
	}

	signedPayload := fmt.Sprintf("%s.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(g.webhookSecret))
	_, _ = mac.Write([]byte(signedPayload))
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			return nil
		}
	}
	return paymentdomain.ErrInvalidSignature
}

func (g *Gateway) Parse(ctx context.Context, payload []byte) (*paymentdomain.Event, error) {
	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.ID) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	switch strings.TrimSpace(event.Type) {
	case "checkout.session.completed":
		return g.parseCheckoutSession(event, payload)
	case "payment_intent.payment_failed", "payment_intent.canceled":
		return g.parsePaymentIntentFailed(event, payload)
	case "payment_intent.succeeded":
		// Direct music payment intents are a retired flow; credits are
		// the only path that moves orders forward.
		return nil, paymentdomain.ErrEventIgnored
	default:
		return nil, paymentdomain.ErrEventIgnored
	}
}

func (g *Gateway) parseCheckoutSession(event stripeEvent, payload []byte) (*paymentdomain.Event, error) {
	var session stripeCheckoutSession
	if err := json.Unmarshal(event.Data.Object, &session); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if metaString(session.Metadata, "orderType") != "credit_purchase" {
		return nil, paymentdomain.ErrEventIgnored
	}

	userID := metaUserID(session.Metadata)
	credits, ok := metaInt(session.Metadata, "credits")
	if userID == "" || !ok || credits <= 0 {
		return nil, paymentdomain.ErrInvalidMetadata
	}

	return &paymentdomain.Event{
		Provider:        "stripe",
		ProviderEventID: event.ID,
		Type:            paymentdomain.EventTypeCreditPurchase,
		UserID:          userID,
		Credits:         credits,
		PackageName:     metaString(session.Metadata, "packageName"),
		Amount:          session.AmountTotal,
		Currency:        strings.ToUpper(strings.TrimSpace(session.Currency)),
		OccurredAt:      timestamp(session.Created, event.Created),
		RawPayload:      payload,
	}, nil
}

func (g *Gateway) parsePaymentIntentFailed(event stripeEvent, payload []byte) (*paymentdomain.Event, error) {
	var intent stripePaymentIntent
	if err := json.Unmarshal(event.Data.Object, &intent); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}

	userID := metaUserID(intent.Metadata)
	if userID == "" {
		return nil, paymentdomain.ErrInvalidMetadata
	}

	return &paymentdomain.Event{
		Provider:        "stripe",
		ProviderEventID: event.ID,
		Type:            paymentdomain.EventTypePaymentFailed,
		UserID:          userID,
		Amount:          intent.Amount,
		Currency:        strings.ToUpper(strings.TrimSpace(intent.Currency)),
		OccurredAt:      timestamp(intent.Created, event.Created),
		RawPayload:      payload,
	}, nil
}

type stripeEvent struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created int64           `json:"created"`
	Data    stripeEventData `json:"data"`
}

type stripeEventData struct {
	Object json.RawMessage `json:"object"`
}

type stripeCheckoutSession struct {
	ID          string         `json:"id"`
	AmountTotal int64          `json:"amount_total"`
	Currency    string         `json:"currency"`
	Created     int64          `json:"created"`
	Metadata    map[string]any `json:"metadata"`
}

type stripePaymentIntent struct {
	ID       string         `json:"id"`
	Amount   int64          `json:"amount"`
	Currency string         `json:"currency"`
	Created  int64          `json:"created"`
	Metadata map[string]any `json:"metadata"`
}

func parseSignatureHeader(header string) (string, []string, error) {
	parts := strings.Split(header, ",")
	var timestamp string
	signatures := []string{}
	for _, part := range parts {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		keyValue := strings.SplitN(piece, "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		key := strings.TrimSpace(keyValue[0])
		value := strings.TrimSpace(keyValue[1])
		if key == "t" {
			timestamp = value
		}
		if key == "v1" {
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, errors.New("invalid_signature")
	}
	return timestamp, signatures, nil
}

func timestamp(primary int64, fallback int64) time.Time {
	value := primary
	if value == 0 {
		value = fallback
	}
	if value == 0 {
		return time.Now().UTC()
	}
	return time.Unix(value, 0).UTC()
}

// Legacy checkouts wrote customerId; newer ones write userId.
func metaUserID(metadata map[string]any) string {
	if id := metaString(metadata, "userId"); id != "" {
		return id
	}
	return metaString(metadata, "customerId")
}

func metaString(metadata map[string]any, key string) string {
	raw, ok := metadata[key]
	if !ok {
		return ""
	}
	switch value := raw.(type) {
	case string:
		return strings.TrimSpace(value)
	case float64:
		return strconv.FormatInt(int64(value), 10)
	default:
		return ""
	}
}

func metaInt(metadata map[string]any, key string) (int64, bool) {
	raw, ok := metadata[key]
	if !ok {
		return 0, false
	}
	switch value := raw.(type) {
	case float64:
		return int64(value), true
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

var Module = fx.Module("payment.stripe",
	fx.Provide(New),
)
