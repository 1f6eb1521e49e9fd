package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/turuturu/turuturu/internal/clock"
	"github.com/turuturu/turuturu/internal/music/domain"
	notifdomain "github.com/turuturu/turuturu/internal/notification/domain"
	orderdomain "github.com/turuturu/turuturu/internal/order/domain"
	"github.com/turuturu/turuturu/internal/storage"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Repo     domain.Repository
	Orders   orderdomain.Service
	Blobs    storage.BlobStore
	Notifier notifdomain.Sink
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	repo     domain.Repository
	orders   orderdomain.Service
	blobs    storage.BlobStore
	notifier notifdomain.Sink
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("music.service"),
		clock:    p.Clock,
		repo:     p.Repo,
		orders:   p.Orders,
		blobs:    p.Blobs,
		notifier: p.Notifier,
	}
}

func (s *Service) Upload(ctx context.Context, req domain.UploadRequest) (domain.MusicFile, error) {
	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		return domain.MusicFile{}, domain.ErrInvalidOrder
	}
	ext, ok := domain.ExtForMIME(req.ContentType)
	if !ok {
		return domain.MusicFile{}, domain.ErrUnsupportedMedia
	}
	if req.Size <= 0 || req.Size > domain.MaxUploadBytes {
		return domain.MusicFile{}, domain.ErrFileTooLarge
	}

	// Fail before touching the blob store when the order cannot take a
	// delivery: no row must exist without a blob and no blob without a
	// reachable order.
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, orderdomain.ErrNotFound) {
			return domain.MusicFile{}, domain.ErrOrderNotFound
		}
		return domain.MusicFile{}, err
	}
	if order.Status == orderdomain.StatusCanceled {
		return domain.MusicFile{}, domain.ErrOrderClosed
	}
	// A delivery may only attach to a paid order; a parked one has not
	// debited a credit yet.
	if order.PaymentStatus != orderdomain.PaymentPaid {
		return domain.MusicFile{}, domain.ErrOrderUnpaid
	}

	now := s.clock.Now().UTC()
	key := fmt.Sprintf("order_%s_%d.%s", orderID, now.UnixMilli(), ext)
	url, err := s.blobs.Put(ctx, key, req.ContentType, io.LimitReader(req.Body, domain.MaxUploadBytes))
	if err != nil {
		return domain.MusicFile{}, err
	}

	file := domain.MusicFile{
		ID:        uuid.NewString(),
		OrderID:   orderID,
		URL:       url,
		BlobKey:   key,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if name := domain.SanitizeFilename(req.Filename); name != "" {
		file.Filename = &name
	}
	if title := strings.TrimSpace(req.Title); title != "" {
		file.Title = &title
	}
	if by := strings.TrimSpace(req.UpdatedBy); by != "" {
		file.UpdatedBy = &by
	}

	var transitioned *orderdomain.Order
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &file); err != nil {
			return err
		}
		updated, err := s.orders.MarkInProductionTx(ctx, tx, orderID, req.UpdatedBy)
		if err != nil {
			return err
		}
		if updated.Status == orderdomain.StatusInProduction && order.Status == orderdomain.StatusPending {
			transitioned = updated
		}
		return nil
	})
	if err != nil {
		if derr := s.blobs.Delete(ctx, key); derr != nil {
			s.log.Warn("orphan blob left behind", zap.String("key", key), zap.Error(derr))
		}
		return domain.MusicFile{}, err
	}

	if transitioned != nil {
		s.notifier.Send(ctx, notifdomain.Event{
			Kind:   notifdomain.KindStatusUpdate,
			UserID: transitioned.CustomerID,
			Data: map[string]string{
				"order_id": transitioned.ID,
				"status":   string(transitioned.Status),
			},
		})
	}
	s.log.Info("music file uploaded",
		zap.String("music_file_id", file.ID),
		zap.String("order_id", orderID),
		zap.String("blob_key", key),
	)
	return file, nil
}

func (s *Service) UpdateLyrics(ctx context.Context, req domain.UpdateLyricsRequest) error {
	id := strings.TrimSpace(req.MusicFileID)
	if id == "" {
		return domain.ErrNotFound
	}
	file, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if file == nil {
		return domain.ErrNotFound
	}
	return s.repo.UpdateLyrics(ctx, s.db, id, req.Lyrics, strings.TrimSpace(req.UpdatedBy), s.clock.Now().UTC())
}

func (s *Service) Delete(ctx context.Context, id, updatedBy string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.ErrNotFound
	}
	file, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if file == nil {
		return domain.ErrNotFound
	}

	if err := s.repo.Delete(ctx, s.db, id); err != nil {
		return err
	}
	// The row is gone either way; a stuck blob is cleanup work, not a
	// failed delete.
	if err := s.blobs.Delete(ctx, file.BlobKey); err != nil {
		s.log.Warn("blob removal failed",
			zap.String("music_file_id", id),
			zap.String("blob_key", file.BlobKey),
			zap.Error(err),
		)
	}
	s.log.Info("music file deleted",
		zap.String("music_file_id", id),
		zap.String("updated_by", updatedBy),
	)
	return nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.MusicFile, error) {
	file, err := s.repo.FindByID(ctx, s.db, strings.TrimSpace(id))
	if err != nil {
		return domain.MusicFile{}, err
	}
	if file == nil {
		return domain.MusicFile{}, domain.ErrNotFound
	}
	return *file, nil
}

func (s *Service) ListByOrder(ctx context.Context, orderID string) ([]domain.MusicFile, error) {
	return s.repo.ListByOrder(ctx, s.db, strings.TrimSpace(orderID))
}
