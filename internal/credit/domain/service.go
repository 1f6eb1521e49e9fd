package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// DebitResult is the outcome of a TryDebit. Insufficient balance is a
// normal branch, not an error.
type DebitResult struct {
	OK           bool
	Insufficient bool
	Balance      int64
}

// Service is the single source of truth for a profile's credit count.
type Service interface {
	Balance(ctx context.Context, userID string) (int64, error)
	Grant(ctx context.Context, userID string, n int64, reason string) (int64, error)
	TryDebit(ctx context.Context, userID, orderID string) (DebitResult, error)
	Refund(ctx context.Context, orderID string) error

	// Tx variants run against a caller-owned transaction so the webhook
	// reconciler and the order state machine can couple credit movements
	// with their own row updates atomically.
	GrantTx(ctx context.Context, tx *gorm.DB, userID string, n int64) (int64, error)
	TryDebitTx(ctx context.Context, tx *gorm.DB, userID, orderID string) (DebitResult, error)
	RefundTx(ctx context.Context, tx *gorm.DB, orderID string) error
}

var (
	ErrInvalidUser   = errors.New("invalid_user")
	ErrInvalidOrder  = errors.New("invalid_order")
	ErrInvalidAmount = errors.New("invalid_amount")
	ErrUserNotFound  = errors.New("user_not_found")
)
