// Package listing maintains the minimal catalog projection the booking core
// needs: display names for bookable items. The full catalog is owned by the
// content system; rows here are synced in by staff tooling.
package listing

import (
	"context"
	"errors"

	"wayantrails/internal/domain"
	"wayantrails/internal/notification"
)

var ErrValidation = errors.New("validation error")

type Store interface {
	GetByKey(ctx context.Context, contentType string, objectID int64) (*domain.Listing, error)
	Upsert(ctx context.Context, l *domain.Listing) error
}

type Service struct {
	listings Store
}

func NewService(listings Store) *Service {
	return &Service{listings: listings}
}

// DisplayName resolves the item name, falling back to a type-generic label
// when the projection has no row yet.
func (s *Service) DisplayName(ctx context.Context, contentType string, objectID int64) string {
	l, err := s.listings.GetByKey(ctx, contentType, objectID)
	if err == nil && l.Name != "" {
		return l.Name
	}
	return notification.FallbackName(contentType)
}

// Sync upserts one projection row.
func (s *Service) Sync(ctx context.Context, contentType string, objectID int64, name string) error {
	if contentType == "" || objectID <= 0 || name == "" {
		return ErrValidation
	}
	return s.listings.Upsert(ctx, &domain.Listing{
		ContentType: contentType,
		ObjectID:    objectID,
		Name:        name,
	})
}
