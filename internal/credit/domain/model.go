package domain

import "time"

// CreditDebit records that exactly one credit was consumed for an order.
// At most one row exists per order; the row is written inside the same
// transaction that moves the order out of AWAITING_PAYMENT.
type CreditDebit struct {
	OrderID    string    `gorm:"primaryKey;type:text" json:"order_id"`
	CustomerID string    `gorm:"not null;index" json:"customer_id"`
	DebitedAt  time.Time `gorm:"not null" json:"debited_at"`
}

func (CreditDebit) TableName() string { return "credit_debits" }
