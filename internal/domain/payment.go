package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentCreated           PaymentStatus = "created"
	PaymentPending           PaymentStatus = "pending"
	PaymentProcessing        PaymentStatus = "processing"
	PaymentAuthorized        PaymentStatus = "authorized"
	PaymentCaptured          PaymentStatus = "captured"
	PaymentCompleted         PaymentStatus = "completed"
	PaymentFailed            PaymentStatus = "failed"
	PaymentCancelled         PaymentStatus = "cancelled"
	PaymentRefunded          PaymentStatus = "refunded"
	PaymentPartiallyRefunded PaymentStatus = "partially_refunded"
)

// IsSettled reports whether money has been received for this payment.
// At most one payment per booking may hold a settled status.
func (s PaymentStatus) IsSettled() bool {
	return s == PaymentCompleted || s == PaymentCaptured
}

// IsOpen reports whether the payment is still awaiting the gateway.
func (s PaymentStatus) IsOpen() bool {
	return s == PaymentCreated || s == PaymentPending
}

// AwaitsCapture reports whether a later capture event may still settle the
// payment. Authorized money is reserved, not received.
func (s PaymentStatus) AwaitsCapture() bool {
	return s.IsOpen() || s == PaymentProcessing || s == PaymentAuthorized
}

type PaymentMethodType string

const (
	MethodUPI          PaymentMethodType = "upi"
	MethodCard         PaymentMethodType = "card"
	MethodNetBanking   PaymentMethodType = "netbanking"
	MethodWallet       PaymentMethodType = "wallet"
	MethodEMI          PaymentMethodType = "emi"
	MethodCash         PaymentMethodType = "cash"
	MethodBankTransfer PaymentMethodType = "bank_transfer"
)

type Payment struct {
	ID         int64 `gorm:"primaryKey" json:"id"`
	BookingRef int64 `gorm:"column:booking_ref;index:idx_payments_booking_status;not null" json:"booking_ref"`

	PaymentID        string `gorm:"type:varchar(100);uniqueIndex;not null" json:"payment_id"`
	OrderID          string `gorm:"type:varchar(100);index" json:"order_id,omitempty"`
	GatewayPaymentID string `gorm:"type:varchar(200)" json:"gateway_payment_id,omitempty"`

	PaymentLink   string `gorm:"type:text" json:"payment_link,omitempty"`
	PaymentLinkID string `gorm:"type:varchar(100)" json:"payment_link_id,omitempty"`

	Amount   decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Currency string          `gorm:"type:varchar(3);default:'INR'" json:"currency"`

	MethodType  PaymentMethodType `gorm:"type:varchar(20)" json:"method_type,omitempty"`
	UPIID       string            `gorm:"type:varchar(100)" json:"upi_id,omitempty"`
	CardLast4   string            `gorm:"type:varchar(4)" json:"card_last_4,omitempty"`
	CardNetwork string            `gorm:"type:varchar(20)" json:"card_network,omitempty"`
	WalletName  string            `gorm:"type:varchar(50)" json:"wallet_name,omitempty"`

	Status PaymentStatus `gorm:"type:varchar(20);default:'created';index:idx_payments_booking_status" json:"status"`

	ErrorCode        string `gorm:"type:varchar(50)" json:"error_code,omitempty"`
	ErrorDescription string `gorm:"type:text" json:"error_description,omitempty"`

	PaidAt       *time.Time `json:"paid_at,omitempty"`
	AuthorizedAt *time.Time `json:"authorized_at,omitempty"`

	// Raw gateway payload, stored verbatim for audit.
	GatewayResponse string `gorm:"type:text" json:"-"`

	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	RefundAmount decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"refund_amount"`
	RefundID     string          `gorm:"type:varchar(100)" json:"refund_id,omitempty"`
	RefundReason string          `gorm:"type:text" json:"refund_reason,omitempty"`
	RefundedAt   *time.Time      `json:"refunded_at,omitempty"`

	Signature  string `gorm:"type:varchar(500)" json:"-"`
	IsVerified bool   `gorm:"default:false" json:"is_verified"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Payment) TableName() string { return "payments" }
