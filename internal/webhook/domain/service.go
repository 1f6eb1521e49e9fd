package domain

import (
	"context"
	"errors"

	paymentdomain "github.com/turuturu/turuturu/internal/payment/domain"
	"gorm.io/gorm"
)

type Outcome string

const (
	// OutcomeApplied means the domain effect committed in this call.
	OutcomeApplied Outcome = "applied"
	// OutcomeDuplicate means a receipt already existed for the event id.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeIgnored means the event carries no domain effect.
	OutcomeIgnored Outcome = "ignored"
)

// Result reports what a delivery did, for logging and the ack body.
type Result struct {
	Outcome  Outcome
	Granted  int64
	Promoted int
	Canceled int
}

// Service reconciles verified provider events against orders and
// credits. Process is safe under duplicated and out-of-order delivery.
type Service interface {
	Process(ctx context.Context, event *paymentdomain.Event) (Result, error)
}

type Repository interface {
	InsertReceipt(ctx context.Context, db *gorm.DB, receipt *WebhookReceipt) error
}

var (
	ErrInvalidEvent = errors.New("invalid_event")
	ErrUnknownUser  = errors.New("unknown_user")
)
