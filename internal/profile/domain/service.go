package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type UpsertProfileRequest struct {
	ID    string
	Email string
	Name  *string
}

type Service interface {
	// Upsert provisions the profile on first authentication, or refreshes
	// email and name on subsequent ones. Credits and isAdmin are never
	// touched by an upsert.
	Upsert(ctx context.Context, req UpsertProfileRequest) (Profile, error)
	GetByID(ctx context.Context, id string) (Profile, error)
}

type Repository interface {
	Upsert(ctx context.Context, db *gorm.DB, profile *Profile) error
	FindByID(ctx context.Context, db *gorm.DB, id string) (*Profile, error)
}

var (
	ErrInvalidID    = errors.New("invalid_profile_id")
	ErrInvalidEmail = errors.New("invalid_email")
	ErrNotFound     = errors.New("profile_not_found")
)
