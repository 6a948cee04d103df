package domain

import "time"

type WhatsAppMessageType string

const (
	WhatsAppBookingInquiry WhatsAppMessageType = "booking_inquiry"
	WhatsAppConfirmation   WhatsAppMessageType = "confirmation"
	WhatsAppReminder       WhatsAppMessageType = "reminder"
	WhatsAppCancellation   WhatsAppMessageType = "cancellation"
	WhatsAppPaymentLink    WhatsAppMessageType = "payment_link"
)

// WhatsAppMessage logs outbound WhatsApp traffic per booking. Only the
// "message recorded" side effect matters to the booking flow; delivery is an
// external concern.
type WhatsAppMessage struct {
	ID          int64               `gorm:"primaryKey" json:"id"`
	BookingRef  int64               `gorm:"column:booking_ref;index;not null" json:"booking_ref"`
	MessageType WhatsAppMessageType `gorm:"type:varchar(20);not null" json:"message_type"`
	PhoneNumber string              `gorm:"type:varchar(20);not null" json:"phone_number"`
	MessageText string              `gorm:"type:text;not null" json:"message_text"`
	IsSent      bool                `gorm:"default:false" json:"is_sent"`
	SentAt      *time.Time          `json:"sent_at,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

func (WhatsAppMessage) TableName() string { return "whatsapp_messages" }

type EventKind string

const (
	EventBookingPending   EventKind = "booking.pending"
	EventBookingConfirmed EventKind = "booking.confirmed"
	EventBookingCancelled EventKind = "booking.cancelled"
	EventPaymentLinkSent  EventKind = "booking.payment_link"
	EventPaymentSucceeded EventKind = "booking.payment_success"
	EventBookingRefunded  EventKind = "booking.refunded"
)

// BookingEvent is the transactional outbox row. It is written in the same
// transaction as the state change it describes and dispatched asynchronously
// by the relay, so notification failures can never roll back a transition.
type BookingEvent struct {
	ID           int64      `gorm:"primaryKey" json:"id"`
	BookingRef   int64      `gorm:"column:booking_ref;index;not null" json:"booking_ref"`
	Kind         EventKind  `gorm:"type:varchar(40);not null" json:"kind"`
	Payload      string     `gorm:"type:text" json:"payload"`
	DispatchedAt *time.Time `gorm:"index" json:"dispatched_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (BookingEvent) TableName() string { return "booking_events" }
