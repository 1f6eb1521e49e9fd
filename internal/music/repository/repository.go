package repository

import (
	"context"
	"time"

	"github.com/turuturu/turuturu/internal/music/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const musicColumns = `id, order_id, url, blob_key, filename, title, lyrics, updated_by, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, handle *gorm.DB, file *domain.MusicFile) error {
	return handle.WithContext(ctx).Create(file).Error
}

func (r *repo) FindByID(ctx context.Context, handle *gorm.DB, id string) (*domain.MusicFile, error) {
	var file domain.MusicFile
	err := handle.WithContext(ctx).Raw(
		`SELECT `+musicColumns+` FROM music_files WHERE id = ?`,
		id,
	).Scan(&file).Error
	if err != nil {
		return nil, err
	}
	if file.ID == "" {
		return nil, nil
	}
	return &file, nil
}

func (r *repo) ListByOrder(ctx context.Context, handle *gorm.DB, orderID string) ([]domain.MusicFile, error) {
	var files []domain.MusicFile
	err := handle.WithContext(ctx).Raw(
		`SELECT `+musicColumns+` FROM music_files WHERE order_id = ? ORDER BY created_at ASC, id ASC`,
		orderID,
	).Scan(&files).Error
	return files, err
}

func (r *repo) UpdateLyrics(ctx context.Context, handle *gorm.DB, id, lyrics, updatedBy string, now time.Time) error {
	return handle.WithContext(ctx).Exec(
		`UPDATE music_files SET lyrics = ?, updated_by = ?, updated_at = ? WHERE id = ?`,
		lyrics, updatedBy, now, id,
	).Error
}

func (r *repo) Delete(ctx context.Context, handle *gorm.DB, id string) error {
	return handle.WithContext(ctx).Exec(
		`DELETE FROM music_files WHERE id = ?`, id,
	).Error
}
