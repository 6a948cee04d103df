package payment

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"wayantrails/internal/domain"
	"wayantrails/internal/gateway"
)

type mockBookingDirectory struct {
	booking *domain.Booking
}

func (m *mockBookingDirectory) GetByBookingID(ctx context.Context, bookingID string) (*domain.Booking, error) {
	if m.booking == nil || m.booking.BookingID != bookingID {
		return nil, gorm.ErrRecordNotFound
	}
	return m.booking, nil
}

func (m *mockBookingDirectory) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	if m.booking == nil || m.booking.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return m.booking, nil
}

type mockLifecycle struct {
	confirmCalls int
	confirmFails int
	linkConfirms int
	refundCalls  int
	refundAmount decimal.Decimal
}

func (m *mockLifecycle) ConfirmOnPayment(ctx context.Context, bookingRef int64) error {
	m.confirmCalls++
	if m.confirmFails > 0 {
		m.confirmFails--
		return errors.New("booking transition unavailable")
	}
	return nil
}

func (m *mockLifecycle) ConfirmOnPaymentLink(ctx context.Context, bookingRef, staffID int64) error {
	m.linkConfirms++
	return nil
}

func (m *mockLifecycle) MarkRefunded(ctx context.Context, bookingRef int64, amount decimal.Decimal) error {
	m.refundCalls++
	m.refundAmount = amount
	return nil
}

type mockPaymentStore struct {
	rows        []*domain.Payment
	failedCalls int
}

func (m *mockPaymentStore) Create(ctx context.Context, p *domain.Payment) error {
	p.ID = int64(len(m.rows) + 1)
	m.rows = append(m.rows, p)
	return nil
}

func (m *mockPaymentStore) GetByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	for _, p := range m.rows {
		if p.OrderID == orderID {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPaymentStore) OpenForBooking(ctx context.Context, bookingRef int64) (*domain.Payment, error) {
	for i := len(m.rows) - 1; i >= 0; i-- {
		p := m.rows[i]
		if p.BookingRef == bookingRef && p.Status.IsOpen() {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPaymentStore) SettledForBooking(ctx context.Context, bookingRef int64) (*domain.Payment, error) {
	for i := len(m.rows) - 1; i >= 0; i-- {
		p := m.rows[i]
		if p.BookingRef == bookingRef &&
			(p.Status.IsSettled() || p.Status == domain.PaymentPartiallyRefunded || p.Status == domain.PaymentRefunded) {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPaymentStore) ListForBooking(ctx context.Context, bookingRef int64) ([]domain.Payment, error) {
	var out []domain.Payment
	for _, p := range m.rows {
		if p.BookingRef == bookingRef {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockPaymentStore) MarkCompletedIdempotent(ctx context.Context, paymentID string, updates map[string]interface{}) (bool, error) {
	for _, p := range m.rows {
		if p.PaymentID != paymentID {
			continue
		}
		if !p.Status.AwaitsCapture() {
			return false, nil
		}
		p.Status = domain.PaymentCompleted
		now := time.Now()
		p.PaidAt = &now
		if v, ok := updates["gateway_payment_id"]; ok {
			p.GatewayPaymentID = v.(string)
		}
		if v, ok := updates["method_type"]; ok {
			p.MethodType = v.(domain.PaymentMethodType)
		}
		if v, ok := updates["is_verified"]; ok {
			p.IsVerified = v.(bool)
		}
		return true, nil
	}
	return false, gorm.ErrRecordNotFound
}

func (m *mockPaymentStore) MarkFailed(ctx context.Context, paymentID, code, description string) error {
	m.failedCalls++
	for _, p := range m.rows {
		if p.PaymentID == paymentID && p.Status.AwaitsCapture() {
			p.Status = domain.PaymentFailed
			p.ErrorCode = code
			p.ErrorDescription = description
		}
	}
	return nil
}

func (m *mockPaymentStore) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	for _, p := range m.rows {
		if p.ID != id {
			continue
		}
		if v, ok := updates["status"]; ok {
			p.Status = v.(domain.PaymentStatus)
		}
		if v, ok := updates["refund_amount"]; ok {
			p.RefundAmount = v.(decimal.Decimal)
		}
		if v, ok := updates["refund_id"]; ok {
			p.RefundID = v.(string)
		}
		if v, ok := updates["authorized_at"]; ok {
			at := v.(time.Time)
			p.AuthorizedAt = &at
		}
		if v, ok := updates["method_type"]; ok {
			p.MethodType = v.(domain.PaymentMethodType)
		}
		if v, ok := updates["gateway_payment_id"]; ok {
			p.GatewayPaymentID = v.(string)
		}
	}
	return nil
}

type mockWhatsApp struct{ messages []*domain.WhatsAppMessage }

func (m *mockWhatsApp) Create(ctx context.Context, msg *domain.WhatsAppMessage) error {
	m.messages = append(m.messages, msg)
	return nil
}

type mockEvents struct{ events []*domain.BookingEvent }

func (m *mockEvents) Enqueue(ctx context.Context, ev *domain.BookingEvent) error {
	m.events = append(m.events, ev)
	return nil
}

func testBooking() *domain.Booking {
	return &domain.Booking{
		ID:            21,
		BookingID:     "11111111-2222-3333-4444-555555555555",
		BookingNumber: "WT-2026-0042",
		GuestName:     "Anita Menon",
		GuestEmail:    "anita@example.com",
		GuestPhone:    "+919876543210",
		ContentType:   "resort",
		Status:        domain.BookingPending,
		TotalAmount:   decimal.NewFromInt(5600),
	}
}

func newPaymentTestService(t *testing.T) (*Service, *mockPaymentStore, *mockLifecycle, *gateway.MockGateway, *mockWhatsApp, *mockEvents) {
	t.Helper()
	store := &mockPaymentStore{}
	lifecycle := &mockLifecycle{}
	gw := gateway.NewMock()
	wa := &mockWhatsApp{}
	events := &mockEvents{}
	svc := NewService(store, &mockBookingDirectory{booking: testBooking()}, lifecycle, wa, events, gw, func(string, ...interface{}) {})
	return svc, store, lifecycle, gw, wa, events
}

func TestCreateOrderIsIdempotentPerBooking(t *testing.T) {
	svc, store, _, _, _, _ := newPaymentTestService(t)
	ctx := context.Background()

	first, err := svc.CreateOrder(ctx, CreateOrderRequest{BookingID: testBooking().BookingID})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if first.AmountMinor != 560000 {
		t.Fatalf("expected amount in paise 560000, got %d", first.AmountMinor)
	}
	if store.rows[0].ExpiresAt == nil {
		t.Fatal("order-created payment must carry an expiry")
	}
	if until := time.Until(*store.rows[0].ExpiresAt); until < 23*time.Hour || until > 25*time.Hour {
		t.Fatalf("expected ~24h order validity, got %s", until)
	}

	second, err := svc.CreateOrder(ctx, CreateOrderRequest{BookingID: testBooking().BookingID})
	if err != nil {
		t.Fatalf("second create order: %v", err)
	}
	if second.OrderID != first.OrderID {
		t.Fatalf("expected order reuse, got %s and %s", first.OrderID, second.OrderID)
	}
	if len(store.rows) != 1 {
		t.Fatalf("expected a single payment row, got %d", len(store.rows))
	}
}

func TestProcessPaymentSuccessSettlesOnce(t *testing.T) {
	svc, store, lifecycle, gw, _, _ := newPaymentTestService(t)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, CreateOrderRequest{BookingID: testBooking().BookingID})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	payID, sig := gw.SimulateCapture(order.OrderID)
	resp, err := svc.ProcessPaymentSuccess(ctx, VerifyPaymentRequest{
		OrderID:          order.OrderID,
		GatewayPaymentID: payID,
		Signature:        sig,
	})
	if err != nil {
		t.Fatalf("process success: %v", err)
	}
	if resp.AlreadyProcessed {
		t.Fatal("first settlement must not report already processed")
	}
	if lifecycle.confirmCalls != 1 {
		t.Fatalf("expected one booking confirmation, got %d", lifecycle.confirmCalls)
	}
	if store.rows[0].Status != domain.PaymentCompleted || !store.rows[0].IsVerified {
		t.Fatalf("payment not settled: %+v", store.rows[0])
	}

	// Replay: same callback again.
	resp, err = svc.ProcessPaymentSuccess(ctx, VerifyPaymentRequest{
		OrderID:          order.OrderID,
		GatewayPaymentID: payID,
		Signature:        sig,
	})
	if err != nil {
		t.Fatalf("replayed success: %v", err)
	}
	if !resp.AlreadyProcessed {
		t.Fatal("replay must report already processed")
	}
	// The confirmation runs on every delivery; the booking-side status guard
	// makes the second one a state no-op.
	if lifecycle.confirmCalls != 2 {
		t.Fatalf("expected confirmation attempted on both deliveries, got %d calls", lifecycle.confirmCalls)
	}
}

func TestProcessPaymentAuthorizedDefersConfirmation(t *testing.T) {
	svc, store, lifecycle, gw, _, _ := newPaymentTestService(t)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, CreateOrderRequest{BookingID: testBooking().BookingID})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	payID, sig := gw.SimulateAuthorize(order.OrderID)
	resp, err := svc.ProcessPaymentSuccess(ctx, VerifyPaymentRequest{
		OrderID:          order.OrderID,
		GatewayPaymentID: payID,
		Signature:        sig,
	})
	if err != nil {
		t.Fatalf("authorized callback: %v", err)
	}
	if resp.Status != string(domain.PaymentAuthorized) {
		t.Fatalf("expected authorized status, got %s", resp.Status)
	}
	if store.rows[0].Status != domain.PaymentAuthorized || store.rows[0].AuthorizedAt == nil {
		t.Fatalf("expected authorized payment with authorized_at, got %+v", store.rows[0])
	}
	if lifecycle.confirmCalls != 0 {
		t.Fatal("authorization alone must not confirm the booking")
	}

	// Capture arrives over the webhook and settles the authorized payment.
	body := []byte(fmt.Sprintf(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":%q,"order_id":%q,"status":"captured","method":"card","card":{"last4":"1111","network":"Visa"}}}}}`, payID, order.OrderID))
	if err := svc.HandleWebhook(ctx, body, gateway.SignWebhook(gw.WebhookSecret(), body)); err != nil {
		t.Fatalf("capture webhook: %v", err)
	}
	if store.rows[0].Status != domain.PaymentCompleted {
		t.Fatalf("expected completed after capture, got %s", store.rows[0].Status)
	}
	if lifecycle.confirmCalls != 1 {
		t.Fatalf("expected one confirmation after capture, got %d", lifecycle.confirmCalls)
	}
}

func TestProcessPaymentSuccessRejectsBadSignature(t *testing.T) {
	svc, store, lifecycle, gw, _, _ := newPaymentTestService(t)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, CreateOrderRequest{BookingID: testBooking().BookingID})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	payID, _ := gw.SimulateCapture(order.OrderID)

	_, err = svc.ProcessPaymentSuccess(ctx, VerifyPaymentRequest{
		OrderID:          order.OrderID,
		GatewayPaymentID: payID,
		Signature:        "deadbeef",
	})
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
	if lifecycle.confirmCalls != 0 {
		t.Fatal("forged signature must not confirm the booking")
	}
	if store.rows[0].Status != domain.PaymentCreated {
		t.Fatalf("forged signature must not touch the payment, got %s", store.rows[0].Status)
	}
}

func TestWebhookCapturedSettles(t *testing.T) {
	svc, store, lifecycle, gw, _, _ := newPaymentTestService(t)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, CreateOrderRequest{BookingID: testBooking().BookingID})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	body := []byte(fmt.Sprintf(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_hook_1","order_id":%q,"status":"captured","method":"upi","vpa":"anita@upi"}}}}`, order.OrderID))
	sig := gateway.SignWebhook(gw.WebhookSecret(), body)

	if err := svc.HandleWebhook(ctx, body, sig); err != nil {
		t.Fatalf("webhook: %v", err)
	}
	if store.rows[0].Status != domain.PaymentCompleted {
		t.Fatalf("expected completed, got %s", store.rows[0].Status)
	}
	if lifecycle.confirmCalls != 1 {
		t.Fatalf("expected one confirmation, got %d", lifecycle.confirmCalls)
	}

	// Webhook racing the redirect handler: the second delivery settles
	// nothing; the confirmation attempt hits the booking-side status guard.
	if err := svc.HandleWebhook(ctx, body, sig); err != nil {
		t.Fatalf("webhook replay: %v", err)
	}
	if lifecycle.confirmCalls != 2 {
		t.Fatalf("expected confirmation attempted on both deliveries, got %d", lifecycle.confirmCalls)
	}
}

func TestWebhookRedeliveryRetriesConfirmation(t *testing.T) {
	svc, store, lifecycle, gw, _, _ := newPaymentTestService(t)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, CreateOrderRequest{BookingID: testBooking().BookingID})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	body := []byte(fmt.Sprintf(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_hook_3","order_id":%q,"status":"captured","method":"upi","vpa":"anita@upi"}}}}`, order.OrderID))
	sig := gateway.SignWebhook(gw.WebhookSecret(), body)

	// The booking transition fails after the money is captured. The delivery
	// must be reported as failed so the provider redelivers.
	lifecycle.confirmFails = 1
	if err := svc.HandleWebhook(ctx, body, sig); err == nil {
		t.Fatal("expected the delivery to fail while the booking stays unconfirmed")
	}
	if store.rows[0].Status != domain.PaymentCompleted {
		t.Fatalf("payment must settle even when confirmation fails, got %s", store.rows[0].Status)
	}

	// Redelivery settles nothing but retries the confirmation.
	if err := svc.HandleWebhook(ctx, body, sig); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if lifecycle.confirmCalls != 2 {
		t.Fatalf("expected confirmation retried on redelivery, got %d calls", lifecycle.confirmCalls)
	}
}

func TestWebhookRejectsWrongSecret(t *testing.T) {
	svc, _, _, _, _, _ := newPaymentTestService(t)

	body := []byte(`{"event":"payment.captured"}`)
	sig := gateway.SignWebhook("not_the_webhook_secret", body)
	if err := svc.HandleWebhook(context.Background(), body, sig); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestWebhookFailedMarksPayment(t *testing.T) {
	svc, store, _, gw, _, _ := newPaymentTestService(t)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, CreateOrderRequest{BookingID: testBooking().BookingID})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	body := []byte(fmt.Sprintf(`{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_hook_2","order_id":%q,"status":"failed","error_code":"BAD_REQUEST_ERROR","error_description":"Payment declined"}}}}`, order.OrderID))
	sig := gateway.SignWebhook(gw.WebhookSecret(), body)

	if err := svc.HandleWebhook(ctx, body, sig); err != nil {
		t.Fatalf("webhook: %v", err)
	}
	if store.rows[0].Status != domain.PaymentFailed || store.rows[0].ErrorCode != "BAD_REQUEST_ERROR" {
		t.Fatalf("expected failed payment with error code, got %+v", store.rows[0])
	}
}

func TestCreatePaymentLinkReusesOpenLink(t *testing.T) {
	svc, store, lifecycle, _, wa, events := newPaymentTestService(t)
	ctx := context.Background()

	first, err := svc.CreatePaymentLink(ctx, 42, CreatePaymentLinkRequest{BookingID: testBooking().BookingID})
	if err != nil {
		t.Fatalf("create link: %v", err)
	}
	if first.ShortURL == "" || first.ExpiresAt == nil {
		t.Fatalf("expected link with expiry, got %+v", first)
	}
	until := time.Until(*first.ExpiresAt)
	if until < 23*time.Hour || until > 25*time.Hour {
		t.Fatalf("expected ~24h validity, got %s", until)
	}
	if len(wa.messages) != 1 || wa.messages[0].MessageType != domain.WhatsAppPaymentLink {
		t.Fatalf("expected one payment link message, got %+v", wa.messages)
	}
	if len(events.events) != 1 || events.events[0].Kind != domain.EventPaymentLinkSent {
		t.Fatalf("expected payment link event, got %+v", events.events)
	}
	if lifecycle.linkConfirms != 1 {
		t.Fatalf("issuing a link for a pending booking must confirm it, got %d calls", lifecycle.linkConfirms)
	}

	second, err := svc.CreatePaymentLink(ctx, 42, CreatePaymentLinkRequest{BookingID: testBooking().BookingID})
	if err != nil {
		t.Fatalf("second create link: %v", err)
	}
	if second.PaymentLinkID != first.PaymentLinkID {
		t.Fatal("expected open link reuse")
	}
	if len(store.rows) != 1 {
		t.Fatalf("expected a single payment row, got %d", len(store.rows))
	}
}

func TestCreateRefundFullThenGuard(t *testing.T) {
	svc, store, lifecycle, gw, _, _ := newPaymentTestService(t)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, CreateOrderRequest{BookingID: testBooking().BookingID})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	payID, sig := gw.SimulateCapture(order.OrderID)
	if _, err := svc.ProcessPaymentSuccess(ctx, VerifyPaymentRequest{OrderID: order.OrderID, GatewayPaymentID: payID, Signature: sig}); err != nil {
		t.Fatalf("settle: %v", err)
	}

	resp, err := svc.CreateRefund(ctx, RefundRequest{BookingID: testBooking().BookingID, Reason: "guest cancelled"})
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if !resp.FullRefund {
		t.Fatal("default refund must be full")
	}
	if !resp.Amount.Equal(decimal.NewFromInt(5600)) {
		t.Fatalf("expected full amount 5600, got %s", resp.Amount)
	}
	if store.rows[0].Status != domain.PaymentRefunded {
		t.Fatalf("expected refunded, got %s", store.rows[0].Status)
	}
	if lifecycle.refundCalls != 1 {
		t.Fatalf("expected booking marked refunded once, got %d", lifecycle.refundCalls)
	}

	if _, err := svc.CreateRefund(ctx, RefundRequest{BookingID: testBooking().BookingID}); !errors.Is(err, ErrAlreadyRefunded) {
		t.Fatalf("expected ErrAlreadyRefunded, got %v", err)
	}
}

func TestCreateRefundPartialKeepsBooking(t *testing.T) {
	svc, store, lifecycle, gw, _, _ := newPaymentTestService(t)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, CreateOrderRequest{BookingID: testBooking().BookingID})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	payID, sig := gw.SimulateCapture(order.OrderID)
	if _, err := svc.ProcessPaymentSuccess(ctx, VerifyPaymentRequest{OrderID: order.OrderID, GatewayPaymentID: payID, Signature: sig}); err != nil {
		t.Fatalf("settle: %v", err)
	}

	resp, err := svc.CreateRefund(ctx, RefundRequest{BookingID: testBooking().BookingID, Amount: decimal.NewFromInt(2800)})
	if err != nil {
		t.Fatalf("partial refund: %v", err)
	}
	if resp.FullRefund {
		t.Fatal("half refund must not be full")
	}
	if store.rows[0].Status != domain.PaymentPartiallyRefunded {
		t.Fatalf("expected partially_refunded, got %s", store.rows[0].Status)
	}
	if lifecycle.refundCalls != 0 {
		t.Fatal("partial refund must not move the booking")
	}

	if _, err := svc.CreateRefund(ctx, RefundRequest{BookingID: testBooking().BookingID, Amount: decimal.NewFromInt(5000)}); !errors.Is(err, ErrAmountExceeds) {
		t.Fatalf("expected ErrAmountExceeds, got %v", err)
	}
}

func TestCreateRefundWithoutSettledPayment(t *testing.T) {
	svc, _, _, _, _, _ := newPaymentTestService(t)

	_, err := svc.CreateRefund(context.Background(), RefundRequest{BookingID: testBooking().BookingID})
	if !errors.Is(err, ErrNotSettled) {
		t.Fatalf("expected ErrNotSettled, got %v", err)
	}
}
