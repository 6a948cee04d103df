package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"wayantrails/internal/domain"
)

type WhatsAppRepository struct {
	db *gorm.DB
}

func NewWhatsAppRepository(db *gorm.DB) *WhatsAppRepository {
	return &WhatsAppRepository{db: db}
}

func (r *WhatsAppRepository) Create(ctx context.Context, m *domain.WhatsAppMessage) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *WhatsAppRepository) MarkSent(ctx context.Context, id int64) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&domain.WhatsAppMessage{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_sent": true, "sent_at": now}).Error
}

func (r *WhatsAppRepository) ListForBooking(ctx context.Context, bookingRef int64) ([]domain.WhatsAppMessage, error) {
	var rows []domain.WhatsAppMessage
	err := r.db.WithContext(ctx).
		Where("booking_ref = ?", bookingRef).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}
