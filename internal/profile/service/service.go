package service

import (
	"context"
	"strings"

	"github.com/turuturu/turuturu/internal/clock"
	"github.com/turuturu/turuturu/internal/profile/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("profile.service"),
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Upsert(ctx context.Context, req domain.UpsertProfileRequest) (domain.Profile, error) {
	id := strings.TrimSpace(req.ID)
	if id == "" {
		return domain.Profile{}, domain.ErrInvalidID
	}
	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return domain.Profile{}, domain.ErrInvalidEmail
	}

	var name *string
	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		if trimmed != "" {
			name = &trimmed
		}
	}

	now := s.clock.Now()
	profile := domain.Profile{
		ID:        id,
		Email:     email,
		Name:      name,
		IsAdmin:   false,
		Credits:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Upsert(ctx, s.db, &profile); err != nil {
		return domain.Profile{}, err
	}

	// Re-read so credits and isAdmin reflect the committed row rather than
	// the zero values of a fresh insert request.
	stored, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Profile{}, err
	}
	if stored == nil {
		return domain.Profile{}, domain.ErrNotFound
	}
	return *stored, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Profile, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Profile{}, domain.ErrInvalidID
	}
	stored, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Profile{}, err
	}
	if stored == nil {
		return domain.Profile{}, domain.ErrNotFound
	}
	return *stored, nil
}
