package booking

import (
	"context"
	"time"

	"wayantrails/internal/domain"
	"wayantrails/internal/repository"
)

// BookingStore defines the persistence operations the service needs.
type BookingStore interface {
	Create(ctx context.Context, b *domain.Booking, items []domain.BookingItem, event *domain.BookingEvent) error
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	GetByBookingID(ctx context.Context, bookingID string) (*domain.Booking, error)
	GetByNumber(ctx context.Context, number string) (*domain.Booking, error)
	Transition(ctx context.Context, bookingID int64, p repository.TransitionParams) (*domain.Booking, error)
	Update(ctx context.Context, bookingID int64, updates map[string]interface{}) error
	History(ctx context.Context, bookingID int64) ([]domain.BookingStatusHistory, error)
}

// AvailabilityStore manages per-date slot counters.
type AvailabilityStore interface {
	GetOrCreate(ctx context.Context, contentType string, objectID int64, date time.Time) (*domain.BookingAvailability, error)
	Reserve(ctx context.Context, contentType string, objectID int64, dates []time.Time, guests int) (bool, error)
	Release(ctx context.Context, contentType string, objectID int64, dates []time.Time, guests int) error
}

// WhatsAppStore records outbound WhatsApp messages.
type WhatsAppStore interface {
	Create(ctx context.Context, m *domain.WhatsAppMessage) error
	MarkSent(ctx context.Context, id int64) error
}

// ListingStore resolves display names for booked items.
type ListingStore interface {
	GetByKey(ctx context.Context, contentType string, objectID int64) (*domain.Listing, error)
}
