package domain

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"gorm.io/gorm"
)

// MaxUploadBytes bounds a single audio upload at 10 MiB.
const MaxUploadBytes = 10 << 20

var audioMIME = map[string]string{
	"audio/mpeg": "mp3",
	"audio/mp3":  "mp3",
	"audio/wav":  "wav",
	"audio/m4a":  "m4a",
}

// ExtForMIME maps an accepted audio content type to a blob extension.
func ExtForMIME(contentType string) (string, bool) {
	ext, ok := audioMIME[strings.ToLower(strings.TrimSpace(contentType))]
	return ext, ok
}

// SanitizeFilename keeps the base name and strips characters that do
// not belong in a stored filename.
func SanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if idx := strings.LastIndexAny(name, "/\\"); idx >= 0 {
		name = name[idx+1:]
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_', r == ' ':
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

type UploadRequest struct {
	OrderID     string
	Filename    string
	Title       string
	ContentType string
	Size        int64
	Body        io.Reader
	UpdatedBy   string
}

type UpdateLyricsRequest struct {
	MusicFileID string
	Lyrics      string
	UpdatedBy   string
}

type Service interface {
	// Upload stores the audio blob, attaches a MusicFile row and moves a
	// PENDING order into IN_PRODUCTION.
	Upload(ctx context.Context, req UploadRequest) (MusicFile, error)
	UpdateLyrics(ctx context.Context, req UpdateLyricsRequest) error
	// Delete removes the row and best-effort removes the blob behind it.
	Delete(ctx context.Context, id, updatedBy string) error
	GetByID(ctx context.Context, id string) (MusicFile, error)
	ListByOrder(ctx context.Context, orderID string) ([]MusicFile, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, file *MusicFile) error
	FindByID(ctx context.Context, db *gorm.DB, id string) (*MusicFile, error)
	ListByOrder(ctx context.Context, db *gorm.DB, orderID string) ([]MusicFile, error)
	UpdateLyrics(ctx context.Context, db *gorm.DB, id, lyrics, updatedBy string, now time.Time) error
	Delete(ctx context.Context, db *gorm.DB, id string) error
}

var (
	ErrInvalidOrder     = errors.New("invalid_order")
	ErrOrderNotFound    = errors.New("order_not_found")
	ErrOrderClosed      = errors.New("order_closed")
	ErrOrderUnpaid      = errors.New("order_unpaid")
	ErrNotFound         = errors.New("music_file_not_found")
	ErrUnsupportedMedia = errors.New("unsupported_media_type")
	ErrFileTooLarge     = errors.New("file_too_large")
)
