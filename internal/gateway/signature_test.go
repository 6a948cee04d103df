package gateway

import (
	"context"
	"testing"
	"time"
)

func TestVerifyPayment_RoundTrip(t *testing.T) {
	sig := SignPayment("secret", "order_123", "pay_456")
	if !VerifyPayment("secret", "order_123", "pay_456", sig) {
		t.Fatal("valid signature rejected")
	}
}

func TestVerifyPayment_TamperedSignatureFails(t *testing.T) {
	sig := SignPayment("secret", "order_123", "pay_456")

	// Flip one hex nibble.
	tampered := []byte(sig)
	if tampered[0] == 'a' {
		tampered[0] = 'b'
	} else {
		tampered[0] = 'a'
	}
	if VerifyPayment("secret", "order_123", "pay_456", string(tampered)) {
		t.Fatal("tampered signature accepted")
	}

	if VerifyPayment("secret", "order_999", "pay_456", sig) {
		t.Fatal("signature accepted for wrong order id")
	}
	if VerifyPayment("other-secret", "order_123", "pay_456", sig) {
		t.Fatal("signature accepted under wrong secret")
	}
}

func TestVerifyWebhook(t *testing.T) {
	body := []byte(`{"event":"payment.captured"}`)
	sig := SignWebhook("whsec", body)

	if !VerifyWebhook("whsec", body, sig) {
		t.Fatal("valid webhook signature rejected")
	}
	if VerifyWebhook("whsec", []byte(`{"event":"payment.failed"}`), sig) {
		t.Fatal("signature accepted for different body")
	}
}

func TestMockGateway_CaptureFlow(t *testing.T) {
	g := NewMock()
	ctx := context.Background()

	order, err := g.CreateOrder(ctx, OrderRequest{AmountMinor: 560000, Currency: "INR", Receipt: "booking_WT-2026-0001"})
	if err != nil {
		t.Fatal(err)
	}
	if order.ID == "" || order.AmountMinor != 560000 {
		t.Fatalf("bad order: %+v", order)
	}

	payID, sig := g.SimulateCapture(order.ID)
	if !g.VerifyPaymentSignature(order.ID, payID, sig) {
		t.Fatal("mock signature does not verify")
	}

	detail, err := g.FetchPayment(ctx, payID)
	if err != nil {
		t.Fatal(err)
	}
	if detail.Status != "captured" || detail.Method != "upi" || detail.AmountMinor != 560000 {
		t.Fatalf("bad detail: %+v", detail)
	}

	if _, err := g.FetchPayment(ctx, "pay_unknown"); err == nil {
		t.Fatal("expected not-found for unknown payment")
	}
}

func TestMockGateway_PaymentLink(t *testing.T) {
	g := NewMock()
	expire := time.Now().Add(24 * time.Hour)

	link, err := g.CreatePaymentLink(context.Background(), PaymentLinkRequest{
		AmountMinor: 100000,
		Currency:    "INR",
		ReferenceID: "booking_WT-2026-0002",
		ExpireBy:    expire,
	})
	if err != nil {
		t.Fatal(err)
	}
	if link.ShortURL == "" || link.OrderID == "" {
		t.Fatalf("bad link: %+v", link)
	}
	if !link.ExpireBy.Equal(expire) {
		t.Fatalf("expire mismatch: %v != %v", link.ExpireBy, expire)
	}
}
