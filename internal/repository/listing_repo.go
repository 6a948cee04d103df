package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"wayantrails/internal/domain"
)

type ListingRepository struct {
	db *gorm.DB
}

func NewListingRepository(db *gorm.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

func (r *ListingRepository) GetByKey(ctx context.Context, contentType string, objectID int64) (*domain.Listing, error) {
	var l domain.Listing
	err := r.db.WithContext(ctx).
		Where("content_type = ? AND object_id = ?", contentType, objectID).
		First(&l).Error
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *ListingRepository) Upsert(ctx context.Context, l *domain.Listing) error {
	var existing domain.Listing
	err := r.db.WithContext(ctx).
		Where("content_type = ? AND object_id = ?", l.ContentType, l.ObjectID).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.WithContext(ctx).Create(l).Error
	}
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(&existing).Update("name", l.Name).Error
}
