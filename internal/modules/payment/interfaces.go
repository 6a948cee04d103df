package payment

import (
	"context"

	"github.com/shopspring/decimal"

	"wayantrails/internal/domain"
)

// PaymentStore is the persistence surface for payment rows.
type PaymentStore interface {
	Create(ctx context.Context, p *domain.Payment) error
	GetByOrderID(ctx context.Context, orderID string) (*domain.Payment, error)
	OpenForBooking(ctx context.Context, bookingRef int64) (*domain.Payment, error)
	SettledForBooking(ctx context.Context, bookingRef int64) (*domain.Payment, error)
	ListForBooking(ctx context.Context, bookingRef int64) ([]domain.Payment, error)
	MarkCompletedIdempotent(ctx context.Context, paymentID string, updates map[string]interface{}) (bool, error)
	MarkFailed(ctx context.Context, paymentID, code, description string) error
	Update(ctx context.Context, id int64, updates map[string]interface{}) error
}

// BookingDirectory resolves bookings for payment operations.
type BookingDirectory interface {
	GetByBookingID(ctx context.Context, bookingID string) (*domain.Booking, error)
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
}

// BookingLifecycle is the slice of the booking service the payment-link,
// settlement and refund paths drive.
type BookingLifecycle interface {
	ConfirmOnPayment(ctx context.Context, bookingRef int64) error
	ConfirmOnPaymentLink(ctx context.Context, bookingRef int64, staffID int64) error
	MarkRefunded(ctx context.Context, bookingRef int64, refundAmount decimal.Decimal) error
}

// WhatsAppStore records the payment-link message sent to the guest.
type WhatsAppStore interface {
	Create(ctx context.Context, m *domain.WhatsAppMessage) error
}

// EventSink enqueues outbox events that are not tied to a status transition.
type EventSink interface {
	Enqueue(ctx context.Context, ev *domain.BookingEvent) error
}
