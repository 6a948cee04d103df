package booking

import (
	"time"

	"github.com/shopspring/decimal"

	"wayantrails/internal/domain"
)

const dateLayout = "2006-01-02"

type BookingItemRequest struct {
	ItemName    string          `json:"item_name" binding:"required"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price" binding:"required"`
}

type CreateBookingRequest struct {
	GuestName     string `json:"guest_name" binding:"required"`
	GuestEmail    string `json:"guest_email" binding:"required,email"`
	GuestPhone    string `json:"guest_phone" binding:"required"`
	BookingType   string `json:"booking_type" binding:"required"`
	BookingMethod string `json:"booking_method"`

	ContentType string `json:"content_type" binding:"required"`
	ObjectID    int64  `json:"object_id" binding:"required"`

	// Dates arrive as YYYY-MM-DD strings.
	CheckInDate  string `json:"check_in_date"`
	CheckOutDate string `json:"check_out_date"`
	BookingDate  string `json:"booking_date"`
	BookingTime  string `json:"booking_time"`

	Adults   int `json:"adults"`
	Children int `json:"children"`

	BaseAmount     decimal.Decimal `json:"base_amount" binding:"required"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`

	SpecialRequests string `json:"special_requests"`

	Items []BookingItemRequest `json:"items"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason"`
}

type ConfirmBookingRequest struct {
	AdminNotes string `json:"admin_notes"`
}

type CheckAvailabilityQuery struct {
	ContentType string `form:"content_type" binding:"required"`
	ObjectID    int64  `form:"object_id" binding:"required"`
	Date        string `form:"date" binding:"required"`
	Guests      int    `form:"guests"`
}

type AvailabilityResponse struct {
	Available      bool   `json:"available"`
	RemainingSlots int    `json:"remaining_slots"`
	Date           string `json:"date"`
}

type RefundQuoteResponse struct {
	RefundAmount     decimal.Decimal `json:"refund_amount"`
	RefundPercentage int             `json:"refund_percentage"`
}

type BookingResponse struct {
	ID            int64  `json:"id"`
	BookingID     string `json:"booking_id"`
	BookingNumber string `json:"booking_number"`
	Status        string `json:"status"`

	GuestName  string `json:"guest_name"`
	GuestPhone string `json:"guest_phone"`

	BookingType string `json:"booking_type"`
	ContentType string `json:"content_type"`
	ObjectID    int64  `json:"object_id"`
	ItemName    string `json:"item_name,omitempty"`

	CheckInDate  *time.Time `json:"check_in_date,omitempty"`
	CheckOutDate *time.Time `json:"check_out_date,omitempty"`
	BookingDate  *time.Time `json:"booking_date,omitempty"`

	TotalGuests int `json:"total_guests"`

	BaseAmount     decimal.Decimal `json:"base_amount"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`

	WhatsAppLink string `json:"whatsapp_link,omitempty"`

	Items []domain.BookingItem `json:"items,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func toResponse(b *domain.Booking, itemName, whatsappLink string) *BookingResponse {
	return &BookingResponse{
		ID:             b.ID,
		BookingID:      b.BookingID,
		BookingNumber:  b.BookingNumber,
		Status:         string(b.Status),
		GuestName:      b.GuestName,
		GuestPhone:     b.GuestPhone,
		BookingType:    string(b.BookingType),
		ContentType:    b.ContentType,
		ObjectID:       b.ObjectID,
		ItemName:       itemName,
		CheckInDate:    b.CheckInDate,
		CheckOutDate:   b.CheckOutDate,
		BookingDate:    b.BookingDate,
		TotalGuests:    b.TotalGuests,
		BaseAmount:     b.BaseAmount,
		TaxAmount:      b.TaxAmount,
		DiscountAmount: b.DiscountAmount,
		TotalAmount:    b.TotalAmount,
		WhatsAppLink:   whatsappLink,
		Items:          b.Items,
		CreatedAt:      b.CreatedAt,
	}
}
