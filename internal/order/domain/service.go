package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type SubmitRequest struct {
	CustomerID     string
	Prompt         string
	IdempotencyKey string
}

type SubmitResult struct {
	Order            Order
	RemainingCredits int64
	NeedsPayment     bool
	Duplicate        bool
}

type UpdateStatusRequest struct {
	OrderID   string
	Status    OrderStatus
	UpdatedBy string
}

type Service interface {
	// Submit atomically debits one credit and creates a PENDING/PAID order,
	// or parks the order in AWAITING_PAYMENT when the balance is short.
	Submit(ctx context.Context, req SubmitRequest) (SubmitResult, error)
	GetByID(ctx context.Context, id string) (Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]Order, error)
	ListAll(ctx context.Context) ([]Order, error)
	// UpdateStatus is the admin override. Transitions out of terminal states
	// or out of AWAITING_PAYMENT are rejected so payment invariants hold.
	UpdateStatus(ctx context.Context, req UpdateStatusRequest) (Order, error)
	// MarkInProduction moves a PENDING order forward when its first audio
	// file is attached; any other status is left alone.
	MarkInProductionTx(ctx context.Context, tx *gorm.DB, orderID, updatedBy string) (*Order, error)

	// PromoteAwaitingTx promotes up to limit parked orders of one user in
	// createdAt order, debiting one credit each, inside the caller's
	// transaction. CancelAwaitingTx fails all of a user's parked orders.
	PromoteAwaitingTx(ctx context.Context, tx *gorm.DB, userID string, limit int64) ([]Order, error)
	CancelAwaitingTx(ctx context.Context, tx *gorm.DB, userID string) ([]Order, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, order *Order) error
	FindByID(ctx context.Context, db *gorm.DB, id string, forUpdate bool) (*Order, error)
	ListByCustomer(ctx context.Context, db *gorm.DB, customerID string) ([]Order, error)
	ListAll(ctx context.Context, db *gorm.DB) ([]Order, error)
	ListAwaiting(ctx context.Context, db *gorm.DB, customerID string, forUpdate bool) ([]Order, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id string, status OrderStatus, payment PaymentStatus, updatedBy string, now time.Time) error
	CountMusicFiles(ctx context.Context, db *gorm.DB, orderID string) (int64, error)
	FindSubmission(ctx context.Context, db *gorm.DB, key string) (*Submission, error)
	InsertSubmission(ctx context.Context, db *gorm.DB, submission *Submission) error
}

var (
	ErrInvalidCustomer   = errors.New("invalid_customer")
	ErrInvalidPrompt     = errors.New("invalid_prompt")
	ErrPromptTooLong     = errors.New("prompt_too_long")
	ErrInvalidStatus     = errors.New("invalid_status")
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrMissingMusicFile  = errors.New("missing_music_file")
	ErrNotFound          = errors.New("order_not_found")
)
