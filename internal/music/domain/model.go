package domain

import "time"

// MusicFile is one delivered audio artifact. An order accumulates one
// row per upload; revisions are new rows, not overwrites.
type MusicFile struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	OrderID   string    `gorm:"not null;index" json:"orderId"`
	URL       string    `gorm:"not null" json:"url"`
	BlobKey   string    `gorm:"not null" json:"-"`
	Filename  *string   `gorm:"type:text" json:"filename,omitempty"`
	Title     *string   `gorm:"type:text" json:"title,omitempty"`
	Lyrics    *string   `gorm:"type:text" json:"lyrics,omitempty"`
	UpdatedBy *string   `gorm:"type:text" json:"updatedBy,omitempty"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}

func (MusicFile) TableName() string { return "music_files" }
