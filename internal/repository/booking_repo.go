package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"wayantrails/internal/domain"
)

var (
	// ErrStatusConflict means the booking was not in any of the statuses the
	// transition allows. No mutation happened.
	ErrStatusConflict = errors.New("repository: booking status conflict")
)

const bookingNumberRetries = 3

type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Create persists a booking, its line items, and the initial outbox event in
// one transaction. The booking number comes from an atomic per-year counter
// upsert, so concurrent creates in the same year cannot collide; the unique
// constraint plus retry covers the counter table being reset out-of-band.
func (r *BookingRepository) Create(ctx context.Context, b *domain.Booking, items []domain.BookingItem, event *domain.BookingEvent) error {
	var lastErr error
	for attempt := 0; attempt < bookingNumberRetries; attempt++ {
		lastErr = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			seq, err := nextBookingSeq(tx, time.Now().Year())
			if err != nil {
				return err
			}
			b.BookingNumber = fmt.Sprintf("WT-%d-%04d", time.Now().Year(), seq)

			if err := tx.Create(b).Error; err != nil {
				return err
			}
			for i := range items {
				items[i].BookingRef = b.ID
			}
			if len(items) > 0 {
				if err := tx.Create(&items).Error; err != nil {
					return err
				}
			}
			if event != nil {
				event.BookingRef = b.ID
				if err := tx.Create(event).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if !isUniqueViolation(lastErr) {
			return lastErr
		}
		b.ID = 0
	}
	return lastErr
}

func nextBookingSeq(tx *gorm.DB, year int) (int64, error) {
	var seq int64
	err := tx.Raw(`
INSERT INTO booking_counters (year, seq) VALUES (?, 1)
ON CONFLICT (year) DO UPDATE SET seq = booking_counters.seq + 1
RETURNING seq
`, year).Scan(&seq).Error
	return seq, err
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	var b domain.Booking
	if err := r.db.WithContext(ctx).Preload("Items").First(&b, id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BookingRepository) GetByBookingID(ctx context.Context, bookingID string) (*domain.Booking, error) {
	var b domain.Booking
	if err := r.db.WithContext(ctx).Preload("Items").Where("booking_id = ?", bookingID).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BookingRepository) GetByNumber(ctx context.Context, number string) (*domain.Booking, error) {
	var b domain.Booking
	if err := r.db.WithContext(ctx).Where("booking_number = ?", number).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// TransitionParams describes one state-machine step. Updates is applied only
// if the booking currently sits in one of From; the history row and outbox
// event land in the same transaction as the status change, so a crash can
// never separate them.
type TransitionParams struct {
	From    []domain.BookingStatus
	To      domain.BookingStatus
	Actor   *int64
	Reason  string
	Updates map[string]interface{}
	Event   *domain.BookingEvent
}

func (r *BookingRepository) Transition(ctx context.Context, bookingID int64, p TransitionParams) (*domain.Booking, error) {
	var out domain.Booking
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current domain.Booking
		if err := tx.First(&current, bookingID).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{"status": p.To}
		for k, v := range p.Updates {
			updates[k] = v
		}

		q := tx.Model(&domain.Booking{}).Where("id = ?", bookingID)
		if len(p.From) > 0 {
			q = q.Where("status IN ?", statusStrings(p.From))
		}
		res := q.Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Row exists (loaded above) but was not in an allowed status.
			return ErrStatusConflict
		}

		hist := domain.BookingStatusHistory{
			BookingRef: bookingID,
			OldStatus:  current.Status,
			NewStatus:  p.To,
			ChangedBy:  p.Actor,
			Reason:     p.Reason,
		}
		if err := tx.Create(&hist).Error; err != nil {
			return err
		}

		if p.Event != nil {
			p.Event.BookingRef = bookingID
			if err := tx.Create(p.Event).Error; err != nil {
				return err
			}
		}

		return tx.Preload("Items").First(&out, bookingID).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Update applies field updates without a status change (no history row).
func (r *BookingRepository) Update(ctx context.Context, bookingID int64, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&domain.Booking{}).Where("id = ?", bookingID).Updates(updates).Error
}

func (r *BookingRepository) History(ctx context.Context, bookingID int64) ([]domain.BookingStatusHistory, error) {
	var rows []domain.BookingStatusHistory
	err := r.db.WithContext(ctx).
		Where("booking_ref = ?", bookingID).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func statusStrings(in []domain.BookingStatus) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, string(s))
	}
	return out
}
