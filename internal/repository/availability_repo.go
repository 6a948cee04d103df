package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"wayantrails/internal/domain"
)

type AvailabilityRepository struct {
	db *gorm.DB
}

func NewAvailabilityRepository(db *gorm.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// GetOrCreate returns the slot row for the key, creating it with the default
// capacity for the content type on first sight. The DoNothing insert makes
// concurrent first lookups converge on a single row.
func (r *AvailabilityRepository) GetOrCreate(ctx context.Context, contentType string, objectID int64, date time.Time) (*domain.BookingAvailability, error) {
	date = truncateDate(date)
	row := domain.BookingAvailability{
		ContentType:    contentType,
		ObjectID:       objectID,
		Date:           date,
		AvailableSlots: domain.DefaultSlots(contentType),
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "content_type"}, {Name: "object_id"}, {Name: "date"}},
			DoNothing: true,
		}).
		Create(&row).Error
	if err != nil {
		return nil, err
	}

	var out domain.BookingAvailability
	err = r.db.WithContext(ctx).
		Where("content_type = ? AND object_id = ? AND date = ?", contentType, objectID, date).
		First(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// errNoCapacity aborts the reservation transaction so already-incremented
// dates roll back.
var errNoCapacity = errors.New("repository: no capacity")

// Reserve books guests slots for every date in the range, all or nothing.
// Returns false without error when any date lacks capacity or is blocked.
func (r *AvailabilityRepository) Reserve(ctx context.Context, contentType string, objectID int64, dates []time.Time, guests int) (bool, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, d := range dates {
			d = truncateDate(d)
			if _, err := r.getOrCreateTx(tx, contentType, objectID, d); err != nil {
				return err
			}
			res := tx.Model(&domain.BookingAvailability{}).
				Where("content_type = ? AND object_id = ? AND date = ?", contentType, objectID, d).
				Where("is_blocked = ? AND booked_slots + ? <= available_slots", false, guests).
				Update("booked_slots", gorm.Expr("booked_slots + ?", guests))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errNoCapacity
			}
		}
		return nil
	})
	if errors.Is(err, errNoCapacity) {
		return false, nil
	}
	return err == nil, err
}

// Release gives back slots after a cancellation. The floor guard keeps
// booked_slots from going negative if release is replayed.
func (r *AvailabilityRepository) Release(ctx context.Context, contentType string, objectID int64, dates []time.Time, guests int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, d := range dates {
			d = truncateDate(d)
			err := tx.Model(&domain.BookingAvailability{}).
				Where("content_type = ? AND object_id = ? AND date = ?", contentType, objectID, d).
				Where("booked_slots >= ?", guests).
				Update("booked_slots", gorm.Expr("booked_slots - ?", guests)).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *AvailabilityRepository) getOrCreateTx(tx *gorm.DB, contentType string, objectID int64, date time.Time) (*domain.BookingAvailability, error) {
	row := domain.BookingAvailability{
		ContentType:    contentType,
		ObjectID:       objectID,
		Date:           date,
		AvailableSlots: domain.DefaultSlots(contentType),
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "content_type"}, {Name: "object_id"}, {Name: "date"}},
		DoNothing: true,
	}).Create(&row).Error
	if err != nil {
		return nil, err
	}
	var out domain.BookingAvailability
	err = tx.Where("content_type = ? AND object_id = ? AND date = ?", contentType, objectID, date).
		First(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func truncateDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
