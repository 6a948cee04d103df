package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookingAvailability is the per-(item, date) slot counter. Rows are created
// lazily on first access; the (content_type, object_id, date) key is unique so
// concurrent first access must upsert, not check-then-insert.
type BookingAvailability struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	ContentType string    `gorm:"type:varchar(20);uniqueIndex:idx_availability_key;not null" json:"content_type"`
	ObjectID    int64     `gorm:"uniqueIndex:idx_availability_key;not null" json:"object_id"`
	Date        time.Time `gorm:"type:date;uniqueIndex:idx_availability_key;not null" json:"date"`

	AvailableSlots int `gorm:"default:1" json:"available_slots"`
	BookedSlots    int `gorm:"default:0" json:"booked_slots"`

	PriceOverride *decimal.Decimal `gorm:"type:decimal(10,2)" json:"price_override,omitempty"`

	IsBlocked   bool   `gorm:"default:false" json:"is_blocked"`
	BlockReason string `gorm:"type:varchar(200)" json:"block_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (BookingAvailability) TableName() string { return "booking_availability" }

func (a *BookingAvailability) RemainingSlots() int {
	if a.BookedSlots >= a.AvailableSlots {
		return 0
	}
	return a.AvailableSlots - a.BookedSlots
}

// DefaultSlots is the type-keyed seed capacity used when a row is created
// lazily and no real capacity is known yet.
func DefaultSlots(contentType string) int {
	switch contentType {
	case string(BookingTypeResort), string(BookingTypeHomestay):
		return 10
	case string(BookingTypeDestination):
		return 20
	default:
		return 5
	}
}
