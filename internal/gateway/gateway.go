// Package gateway wraps the payment provider. Two implementations sit behind
// one interface: the live Razorpay client and a deterministic mock used in
// development and tests. The implementation is chosen once at construction
// from config, never by runtime type inspection.
package gateway

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnavailable marks transient upstream failures (timeouts, network,
	// 5xx). Callers may retry; everything else is permanent and surfaces
	// immediately.
	ErrUnavailable = errors.New("gateway: upstream unavailable")

	ErrPaymentNotFound = errors.New("gateway: payment not found")
)

type OrderRequest struct {
	AmountMinor int64
	Currency    string
	Receipt     string
	Notes       map[string]string
}

type Order struct {
	ID          string
	AmountMinor int64
	Currency    string
	Receipt     string
	Raw         string
}

type Customer struct {
	Name    string
	Email   string
	Contact string
}

type PaymentLinkRequest struct {
	AmountMinor int64
	Currency    string
	ReferenceID string
	Description string
	Customer    Customer
	ExpireBy    time.Time
	CallbackURL string
	Notes       map[string]string
}

type PaymentLink struct {
	ID       string
	ShortURL string
	OrderID  string
	ExpireBy time.Time
	Raw      string
}

// PaymentDetail is the provider's view of a payment, normalized to the
// handful of fields the settlement path reads.
type PaymentDetail struct {
	ID               string
	OrderID          string
	Status           string // created|authorized|captured|failed
	Method           string // upi|card|netbanking|wallet|emi
	VPA              string
	CardLast4        string
	CardNetwork      string
	Wallet           string
	AmountMinor      int64
	ErrorCode        string
	ErrorDescription string
	Raw              string
}

type Refund struct {
	ID          string
	AmountMinor int64
	Status      string
	Raw         string
}

type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
	CreatePaymentLink(ctx context.Context, req PaymentLinkRequest) (*PaymentLink, error)
	FetchPayment(ctx context.Context, gatewayPaymentID string) (*PaymentDetail, error)
	CreateRefund(ctx context.Context, gatewayPaymentID string, amountMinor int64, notes map[string]string) (*Refund, error)

	// VerifyPaymentSignature checks the checkout signature over
	// "{orderID}|{paymentID}". This is the trust boundary against forged
	// confirmations.
	VerifyPaymentSignature(orderID, paymentID, signature string) bool

	// VerifyWebhookSignature checks the transport signature over the raw
	// webhook body. Distinct secret from the order signature.
	VerifyWebhookSignature(body []byte, signature string) bool

	KeyID() string
}
