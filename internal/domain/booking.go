package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
	BookingRefunded  BookingStatus = "refunded"
	BookingNoShow    BookingStatus = "no_show"
)

type BookingType string

const (
	BookingTypeResort      BookingType = "resort"
	BookingTypeHomestay    BookingType = "homestay"
	BookingTypeRental      BookingType = "rental"
	BookingTypeDestination BookingType = "destination"
	BookingTypeService     BookingType = "service"
)

// IsAccommodation reports whether the type books by check-in/check-out dates
// rather than a single booking date.
func (t BookingType) IsAccommodation() bool {
	return t == BookingTypeResort || t == BookingTypeHomestay
}

type BookingMethod string

const (
	BookingMethodHybrid BookingMethod = "hybrid"
	BookingMethodOnline BookingMethod = "online"
)

type Booking struct {
	ID            int64         `gorm:"primaryKey" json:"id"`
	BookingID     string        `gorm:"type:varchar(36);uniqueIndex;not null" json:"booking_id"`
	BookingNumber string        `gorm:"type:varchar(20);uniqueIndex;not null" json:"booking_number"`
	UserID        *int64        `gorm:"index" json:"user_id,omitempty"`
	GuestName     string        `gorm:"type:varchar(100);not null" json:"guest_name"`
	GuestEmail    string        `gorm:"type:varchar(254);not null" json:"guest_email"`
	GuestPhone    string        `gorm:"type:varchar(20);not null" json:"guest_phone"`
	BookingType   BookingType   `gorm:"type:varchar(20);index:idx_bookings_type_status;not null" json:"booking_type"`
	BookingMethod BookingMethod `gorm:"type:varchar(10);default:'hybrid'" json:"booking_method"`

	// Weak reference to the booked item; resolved only for display names.
	ContentType string `gorm:"type:varchar(20);not null" json:"content_type"`
	ObjectID    int64  `gorm:"not null" json:"object_id"`

	CheckInDate  *time.Time `gorm:"type:date" json:"check_in_date,omitempty"`
	CheckOutDate *time.Time `gorm:"type:date" json:"check_out_date,omitempty"`
	BookingDate  *time.Time `gorm:"type:date;index:idx_bookings_date_status" json:"booking_date,omitempty"`
	BookingTime  string     `gorm:"type:varchar(8)" json:"booking_time,omitempty"`

	Adults      int `gorm:"default:2" json:"adults"`
	Children    int `gorm:"default:0" json:"children"`
	TotalGuests int `gorm:"not null" json:"total_guests"`

	BaseAmount       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"base_amount"`
	TaxAmount        decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"tax_amount"`
	DiscountAmount   decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"discount_amount"`
	CommissionAmount decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"commission_amount"`
	TotalAmount      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_amount"`

	Status BookingStatus `gorm:"type:varchar(20);default:'pending';index:idx_bookings_type_status;index:idx_bookings_date_status" json:"status"`

	SpecialRequests string `gorm:"type:text" json:"special_requests,omitempty"`
	AdminNotes      string `gorm:"type:text" json:"admin_notes,omitempty"`

	WhatsAppMessageSent bool   `gorm:"column:whatsapp_message_sent;default:false" json:"whatsapp_message_sent"`
	WhatsAppMessageText string `gorm:"column:whatsapp_message_text;type:text" json:"-"`

	ConfirmedBy        *int64     `json:"confirmed_by,omitempty"`
	ConfirmedAt        *time.Time `json:"confirmed_at,omitempty"`
	CancelledBy        *int64     `json:"cancelled_by,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancellationReason string     `gorm:"type:text" json:"cancellation_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Items    []BookingItem `gorm:"foreignKey:BookingRef" json:"items,omitempty"`
	Payments []Payment     `gorm:"foreignKey:BookingRef" json:"payments,omitempty"`
}

func (Booking) TableName() string { return "bookings" }

// ReferenceDate is the date cancellation policy is measured against:
// check-in for accommodation, booking date otherwise.
func (b *Booking) ReferenceDate() *time.Time {
	if b.BookingType.IsAccommodation() {
		return b.CheckInDate
	}
	return b.BookingDate
}

func (b *Booking) DurationNights() int {
	if b.CheckInDate == nil || b.CheckOutDate == nil {
		return 0
	}
	return int(b.CheckOutDate.Sub(*b.CheckInDate).Hours() / 24)
}

type BookingItem struct {
	ID          int64           `gorm:"primaryKey" json:"id"`
	BookingRef  int64           `gorm:"column:booking_ref;index;not null" json:"booking_ref"`
	ItemName    string          `gorm:"type:varchar(200);not null" json:"item_name"`
	Description string          `gorm:"type:text" json:"description,omitempty"`
	Quantity    int             `gorm:"default:1" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	TotalPrice  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_price"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (BookingItem) TableName() string { return "booking_items" }

// BookingStatusHistory is append-only; rows are never updated or deleted.
type BookingStatusHistory struct {
	ID         int64         `gorm:"primaryKey" json:"id"`
	BookingRef int64         `gorm:"column:booking_ref;index;not null" json:"booking_ref"`
	OldStatus  BookingStatus `gorm:"type:varchar(20);not null" json:"old_status"`
	NewStatus  BookingStatus `gorm:"type:varchar(20);not null" json:"new_status"`
	ChangedBy  *int64        `json:"changed_by,omitempty"`
	Reason     string        `gorm:"type:text" json:"reason,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}

func (BookingStatusHistory) TableName() string { return "booking_status_history" }

// BookingCounter serializes booking-number generation per year.
type BookingCounter struct {
	Year int   `gorm:"primaryKey" json:"year"`
	Seq  int64 `gorm:"not null" json:"seq"`
}

func (BookingCounter) TableName() string { return "booking_counters" }
