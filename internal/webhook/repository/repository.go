package repository

import (
	"context"

	"github.com/turuturu/turuturu/internal/webhook/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertReceipt(ctx context.Context, handle *gorm.DB, receipt *domain.WebhookReceipt) error {
	return handle.WithContext(ctx).Create(receipt).Error
}
