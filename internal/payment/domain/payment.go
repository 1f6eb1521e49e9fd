package domain

import (
	"context"
	"errors"
	"net/http"
	"time"
)

const (
	// EventTypeCreditPurchase is the authoritative credit grant: a
	// completed hosted checkout for a credit package.
	EventTypeCreditPurchase = "credit_purchase"
	// EventTypePaymentFailed covers failed and canceled payment intents.
	EventTypePaymentFailed = "payment_failed"
)

// Event is a provider webhook event after signature verification and
// parsing, reduced to what the reconciler acts on.
type Event struct {
	Provider        string
	ProviderEventID string
	Type            string
	UserID          string
	Credits         int64
	PackageName     string
	Amount          int64
	Currency        string
	OccurredAt      time.Time
	RawPayload      []byte
}

type CheckoutRequest struct {
	UserID      string
	PackageName string
	Credits     int64
	// PriceID selects a provider-hosted price; AmountMinor is the legacy
	// ad-hoc amount path used when no price is configured.
	PriceID     string
	AmountMinor int64
	Currency    string
	SuccessURL  string
	CancelURL   string
}

type CheckoutSession struct {
	SessionID string
	URL       string
}

// Gateway is the payment provider boundary: hosted checkout creation
// plus webhook verification and parsing.
type Gateway interface {
	Verify(ctx context.Context, payload []byte, headers http.Header) error
	Parse(ctx context.Context, payload []byte) (*Event, error)
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (CheckoutSession, error)
}

var (
	ErrInvalidSignature = errors.New("invalid_signature")
	ErrInvalidPayload   = errors.New("invalid_payload")
	ErrInvalidEvent     = errors.New("invalid_event")
	ErrInvalidMetadata  = errors.New("invalid_metadata")
	// ErrEventIgnored marks event types the reconciler has no effect
	// for; handlers acknowledge them with 200.
	ErrEventIgnored  = errors.New("event_ignored")
	ErrInvalidConfig = errors.New("invalid_config")
	ErrUnavailable   = errors.New("gateway_unavailable")
)
