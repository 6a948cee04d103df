package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"wayantrails/internal/domain"
)

type OutboxRepository struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// Enqueue adds an event outside a booking transition. Transitions write
// their events inside the owning transaction instead.
func (r *OutboxRepository) Enqueue(ctx context.Context, ev *domain.BookingEvent) error {
	return r.db.WithContext(ctx).Create(ev).Error
}

// FetchUndispatched returns the oldest pending events, oldest first, so the
// relay preserves per-booking ordering.
func (r *OutboxRepository) FetchUndispatched(ctx context.Context, limit int) ([]domain.BookingEvent, error) {
	var rows []domain.BookingEvent
	err := r.db.WithContext(ctx).
		Where("dispatched_at IS NULL").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *OutboxRepository) MarkDispatched(ctx context.Context, id int64) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&domain.BookingEvent{}).
		Where("id = ? AND dispatched_at IS NULL", id).
		Update("dispatched_at", now).Error
}
