package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreateOrderRequest struct {
	BookingID string `json:"booking_id" binding:"required"`
}

type CreateOrderResponse struct {
	OrderID     string `json:"order_id"`
	AmountMinor int64  `json:"amount"`
	Currency    string `json:"currency"`
	KeyID       string `json:"key_id"`
	PaymentID   string `json:"payment_id"`
}

type CreatePaymentLinkRequest struct {
	BookingID string `json:"booking_id" binding:"required"`
}

type CreatePaymentLinkResponse struct {
	PaymentLinkID string     `json:"payment_link_id"`
	ShortURL      string     `json:"short_url"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	PaymentID     string     `json:"payment_id"`
}

// VerifyPaymentRequest is the browser redirect callback after checkout.
type VerifyPaymentRequest struct {
	OrderID          string `json:"razorpay_order_id" binding:"required"`
	GatewayPaymentID string `json:"razorpay_payment_id" binding:"required"`
	Signature        string `json:"razorpay_signature" binding:"required"`
}

type VerifyPaymentResponse struct {
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
	BookingID string `json:"booking_id,omitempty"`
	// AlreadyProcessed is true when a replayed callback hit the idempotency
	// guard; the payment was settled earlier.
	AlreadyProcessed bool `json:"already_processed"`
}

type RefundRequest struct {
	BookingID string          `json:"booking_id" binding:"required"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
}

type RefundResponse struct {
	RefundID   string          `json:"refund_id"`
	Amount     decimal.Decimal `json:"amount"`
	Status     string          `json:"status"`
	FullRefund bool            `json:"full_refund"`
	BookingID  string          `json:"booking_id"`
	RefundedAt *time.Time      `json:"refunded_at,omitempty"`
}

type PaymentStatusResponse struct {
	PaymentID        string          `json:"payment_id"`
	OrderID          string          `json:"order_id,omitempty"`
	Status           string          `json:"status"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	MethodType       string          `json:"method_type,omitempty"`
	PaymentLink      string          `json:"payment_link,omitempty"`
	ErrorCode        string          `json:"error_code,omitempty"`
	ErrorDescription string          `json:"error_description,omitempty"`
	PaidAt           *time.Time      `json:"paid_at,omitempty"`
	RefundAmount     decimal.Decimal `json:"refund_amount"`
	CreatedAt        time.Time       `json:"created_at"`
}

// PaymentMethodInfo is one entry of the static methods catalog.
type PaymentMethodInfo struct {
	Type        string `json:"type"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
}
