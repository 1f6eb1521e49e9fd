package domain

import "time"

type OrderStatus string

const (
	StatusAwaitingPayment OrderStatus = "AWAITING_PAYMENT"
	StatusPending         OrderStatus = "PENDING"
	StatusInProduction    OrderStatus = "IN_PRODUCTION"
	StatusCompleted       OrderStatus = "COMPLETED"
	StatusCanceled        OrderStatus = "CANCELED"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
	PaymentFailed  PaymentStatus = "FAILED"
)

// Order is one commissioned song. Rows are mutated by state-machine
// transitions only and never deleted.
type Order struct {
	ID            string        `gorm:"primaryKey;type:text" json:"id"`
	CustomerID    string        `gorm:"not null;index" json:"customerId"`
	Prompt        string        `gorm:"not null;type:text" json:"prompt"`
	Status        OrderStatus   `gorm:"not null;type:text;index" json:"status"`
	PaymentStatus PaymentStatus `gorm:"not null;type:text" json:"paymentStatus"`
	UpdatedBy     *string       `gorm:"type:text" json:"updatedBy,omitempty"`
	CreatedAt     time.Time     `gorm:"not null;index" json:"createdAt"`
	UpdatedAt     time.Time     `gorm:"not null" json:"updatedAt"`
}

func (Order) TableName() string { return "orders" }

// Submission is the duplicate-submission guard: one row per idempotency
// key, pointing at the order the first submission produced.
type Submission struct {
	Key        string    `gorm:"primaryKey;type:text" json:"key"`
	OrderID    string    `gorm:"not null" json:"order_id"`
	CustomerID string    `gorm:"not null;index" json:"customer_id"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
}

func (Submission) TableName() string { return "order_submissions" }

// ParseStatus validates a client-supplied status value.
func ParseStatus(raw string) (OrderStatus, bool) {
	switch OrderStatus(raw) {
	case StatusAwaitingPayment, StatusPending, StatusInProduction, StatusCompleted, StatusCanceled:
		return OrderStatus(raw), true
	default:
		return "", false
	}
}

// IsTerminal reports whether no transition may leave the status.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCanceled
}

// CanTransition encodes the lifecycle table: forward progression through
// production plus cancellation from any non-terminal state.
func CanTransition(from, to OrderStatus) bool {
	if from.IsTerminal() {
		return false
	}
	if to == StatusCanceled {
		return true
	}
	switch from {
	case StatusAwaitingPayment:
		return to == StatusPending
	case StatusPending:
		return to == StatusInProduction || to == StatusCompleted
	case StatusInProduction:
		return to == StatusCompleted
	default:
		return false
	}
}
