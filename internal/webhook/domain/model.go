package domain

import (
	"time"

	"gorm.io/datatypes"
)

// WebhookReceipt pins exactly-once processing: one row per provider
// event id, inserted in the same transaction as the domain effect.
type WebhookReceipt struct {
	EventID    string         `gorm:"primaryKey;type:text" json:"event_id"`
	Provider   string         `gorm:"not null" json:"provider"`
	Kind       string         `gorm:"not null" json:"kind"`
	Outcome    Outcome        `gorm:"type:text;not null" json:"outcome"`
	Payload    datatypes.JSON `json:"payload"`
	ReceivedAt time.Time      `gorm:"not null" json:"received_at"`
}

func (WebhookReceipt) TableName() string { return "webhook_receipts" }
