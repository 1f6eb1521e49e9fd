package domain

import (
	"time"
)

// Profile is a customer or administrator. The id is the identity provider's
// subject; rows are provisioned lazily on first successful authentication
// and never deleted. Credits are mutated exclusively by the credit service.
type Profile struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	Email     string    `gorm:"not null;uniqueIndex" json:"email"`
	Name      *string   `gorm:"type:text" json:"name,omitempty"`
	IsAdmin   bool      `gorm:"not null;default:false" json:"isAdmin"`
	Credits   int64     `gorm:"not null;default:0;check:credits >= 0" json:"credits"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Profile) TableName() string { return "profiles" }
