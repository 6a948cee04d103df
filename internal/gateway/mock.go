package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	mockKeyID         = "rzp_test_mock123456789"
	mockKeySecret     = "mock_secret_key_12345678"
	mockWebhookSecret = "mock_webhook_secret_1234"
)

// MockGateway simulates the provider without network access. Orders and
// payments live in memory; signatures use the same HMAC scheme as the live
// gateway so verification paths are exercised for real.
type MockGateway struct {
	mu       sync.Mutex
	payments map[string]*PaymentDetail
	orders   map[string]*Order
}

func NewMock() *MockGateway {
	return &MockGateway{
		payments: make(map[string]*PaymentDetail),
		orders:   make(map[string]*Order),
	}
}

func (g *MockGateway) KeyID() string { return mockKeyID }

func (g *MockGateway) CreateOrder(_ context.Context, req OrderRequest) (*Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	o := &Order{
		ID:          "order_mock_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16],
		AmountMinor: req.AmountMinor,
		Currency:    req.Currency,
		Receipt:     req.Receipt,
	}
	o.Raw = mustJSON(map[string]interface{}{
		"id":       o.ID,
		"entity":   "order",
		"amount":   o.AmountMinor,
		"currency": o.Currency,
		"receipt":  o.Receipt,
		"status":   "created",
		"notes":    req.Notes,
	})
	g.orders[o.ID] = o
	return o, nil
}

func (g *MockGateway) CreatePaymentLink(_ context.Context, req PaymentLinkRequest) (*PaymentLink, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	linkID := "plink_mock_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	orderID := "order_mock_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	g.orders[orderID] = &Order{ID: orderID, AmountMinor: req.AmountMinor, Currency: req.Currency}

	l := &PaymentLink{
		ID:       linkID,
		ShortURL: "https://mock.razorpay.com/i/" + linkID,
		OrderID:  orderID,
		ExpireBy: req.ExpireBy,
	}
	l.Raw = mustJSON(map[string]interface{}{
		"id":           linkID,
		"entity":       "payment_link",
		"amount":       req.AmountMinor,
		"currency":     req.Currency,
		"short_url":    l.ShortURL,
		"order_id":     orderID,
		"reference_id": req.ReferenceID,
		"expire_by":    req.ExpireBy.Unix(),
		"status":       "created",
	})
	return l, nil
}

// SimulateCapture registers a captured UPI payment against an order and
// returns the gateway payment id plus a valid checkout signature. Test and
// development hook; the live gateway has no equivalent.
func (g *MockGateway) SimulateCapture(orderID string) (paymentID, signature string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	paymentID = "pay_mock_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:14]
	var amount int64
	if o, ok := g.orders[orderID]; ok {
		amount = o.AmountMinor
	}
	d := &PaymentDetail{
		ID:          paymentID,
		OrderID:     orderID,
		Status:      "captured",
		Method:      "upi",
		VPA:         "guest@mockbank",
		AmountMinor: amount,
	}
	d.Raw = mustJSON(map[string]interface{}{
		"id": d.ID, "order_id": d.OrderID, "status": d.Status,
		"method": d.Method, "vpa": d.VPA, "amount": d.AmountMinor,
		"created_at": time.Now().Unix(),
	})
	g.payments[paymentID] = d
	return paymentID, SignPayment(mockKeySecret, orderID, paymentID)
}

// SimulateAuthorize registers a card payment the issuer approved but the
// gateway has not captured yet. Same contract as SimulateCapture.
func (g *MockGateway) SimulateAuthorize(orderID string) (paymentID, signature string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	paymentID = "pay_mock_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:14]
	var amount int64
	if o, ok := g.orders[orderID]; ok {
		amount = o.AmountMinor
	}
	d := &PaymentDetail{
		ID:          paymentID,
		OrderID:     orderID,
		Status:      "authorized",
		Method:      "card",
		CardLast4:   "1111",
		CardNetwork: "Visa",
		AmountMinor: amount,
	}
	d.Raw = mustJSON(map[string]interface{}{
		"id": d.ID, "order_id": d.OrderID, "status": d.Status,
		"method": d.Method, "amount": d.AmountMinor,
		"card": map[string]string{"last4": d.CardLast4, "network": d.CardNetwork},
		"created_at": time.Now().Unix(),
	})
	g.payments[paymentID] = d
	return paymentID, SignPayment(mockKeySecret, orderID, paymentID)
}

func (g *MockGateway) FetchPayment(_ context.Context, gatewayPaymentID string) (*PaymentDetail, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	d, ok := g.payments[gatewayPaymentID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPaymentNotFound, gatewayPaymentID)
	}
	return d, nil
}

func (g *MockGateway) CreateRefund(_ context.Context, gatewayPaymentID string, amountMinor int64, notes map[string]string) (*Refund, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.payments[gatewayPaymentID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrPaymentNotFound, gatewayPaymentID)
	}
	r := &Refund{
		ID:          "rfnd_mock_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:14],
		AmountMinor: amountMinor,
		Status:      "processed",
	}
	r.Raw = mustJSON(map[string]interface{}{
		"id": r.ID, "payment_id": gatewayPaymentID, "amount": amountMinor,
		"status": r.Status, "notes": notes,
	})
	return r, nil
}

func (g *MockGateway) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return VerifyPayment(mockKeySecret, orderID, paymentID, signature)
}

func (g *MockGateway) VerifyWebhookSignature(body []byte, signature string) bool {
	return VerifyWebhook(mockWebhookSecret, body, signature)
}

// WebhookSecret exposes the mock transport secret so tests can sign webhook
// bodies the way the provider would.
func (g *MockGateway) WebhookSecret() string { return mockWebhookSecret }

func mustJSON(m map[string]interface{}) string {
	b, err := json.Marshal(m)
	if err != nil {
		panic(err)
	}
	return string(b)
}
