package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"wayantrails/internal/domain"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PaymentRepository) GetByID(ctx context.Context, id int64) (*domain.Payment, error) {
	var p domain.Payment
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) GetByPaymentID(ctx context.Context, paymentID string) (*domain.Payment, error) {
	var p domain.Payment
	if err := r.db.WithContext(ctx).Where("payment_id = ?", paymentID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	var p domain.Payment
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// OpenForBooking returns the newest payment for the booking that is still
// awaiting the gateway, or gorm.ErrRecordNotFound.
func (r *PaymentRepository) OpenForBooking(ctx context.Context, bookingRef int64) (*domain.Payment, error) {
	var p domain.Payment
	err := r.db.WithContext(ctx).
		Where("booking_ref = ? AND status IN ?", bookingRef, []string{
			string(domain.PaymentCreated), string(domain.PaymentPending),
		}).
		Order("id DESC").
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SettledForBooking returns the payment that collected money for the booking,
// refunded ones included so the refund path can tell "already refunded" apart
// from "never paid". gorm.ErrRecordNotFound when nothing settled.
func (r *PaymentRepository) SettledForBooking(ctx context.Context, bookingRef int64) (*domain.Payment, error) {
	var p domain.Payment
	err := r.db.WithContext(ctx).
		Where("booking_ref = ? AND status IN ?", bookingRef, []string{
			string(domain.PaymentCompleted), string(domain.PaymentCaptured),
			string(domain.PaymentPartiallyRefunded), string(domain.PaymentRefunded),
		}).
		Order("id DESC").
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) ListForBooking(ctx context.Context, bookingRef int64) ([]domain.Payment, error) {
	var rows []domain.Payment
	err := r.db.WithContext(ctx).
		Where("booking_ref = ?", bookingRef).
		Order("id DESC").
		Find(&rows).Error
	return rows, err
}

// Statuses a capture event may still move to completed: open ones plus
// authorized/processing, which hold reserved but uncollected money.
var capturableStatuses = []string{
	string(domain.PaymentCreated), string(domain.PaymentPending),
	string(domain.PaymentProcessing), string(domain.PaymentAuthorized),
}

// MarkCompletedIdempotent settles the payment exactly once. The guarded
// update only fires while the payment still awaits capture, so a replayed
// callback or a webhook racing the redirect handler becomes a no-op with
// changed=false.
func (r *PaymentRepository) MarkCompletedIdempotent(ctx context.Context, paymentID string, updates map[string]interface{}) (bool, error) {
	changed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p domain.Payment
		if err := tx.Where("payment_id = ?", paymentID).First(&p).Error; err != nil {
			return err
		}
		if !p.Status.AwaitsCapture() {
			return nil
		}

		now := time.Now()
		fields := map[string]interface{}{
			"status":  domain.PaymentCompleted,
			"paid_at": now,
		}
		for k, v := range updates {
			fields[k] = v
		}
		res := tx.Model(&domain.Payment{}).
			Where("payment_id = ? AND status IN ?", paymentID, capturableStatuses).
			Updates(fields)
		if res.Error != nil {
			return res.Error
		}
		changed = res.RowsAffected > 0
		return nil
	})
	return changed, err
}

// MarkFailed records a gateway failure; settled payments are never demoted.
func (r *PaymentRepository) MarkFailed(ctx context.Context, paymentID, code, description string) error {
	return r.db.WithContext(ctx).Model(&domain.Payment{}).
		Where("payment_id = ? AND status IN ?", paymentID, capturableStatuses).
		Updates(map[string]interface{}{
			"status":            domain.PaymentFailed,
			"error_code":        code,
			"error_description": description,
		}).Error
}

func (r *PaymentRepository) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&domain.Payment{}).Where("id = ?", id).Updates(updates).Error
}
