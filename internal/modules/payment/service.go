package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"wayantrails/internal/domain"
	"wayantrails/internal/gateway"
	"wayantrails/internal/notification"
	"wayantrails/internal/pkg/pricing"
)

const linkValidity = 24 * time.Hour

type Service struct {
	payments  PaymentStore
	bookings  BookingDirectory
	lifecycle BookingLifecycle
	whatsapp  WhatsAppStore
	events    EventSink
	gw        gateway.Gateway

	loggerf func(format string, args ...interface{})
}

func NewService(
	payments PaymentStore,
	bookings BookingDirectory,
	lifecycle BookingLifecycle,
	whatsapp WhatsAppStore,
	events EventSink,
	gw gateway.Gateway,
	loggerf func(format string, args ...interface{}),
) *Service {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &Service{
		payments:  payments,
		bookings:  bookings,
		lifecycle: lifecycle,
		whatsapp:  whatsapp,
		events:    events,
		gw:        gw,
		loggerf:   loggerf,
	}
}

// CreateOrder opens a checkout order for a booking. An existing open payment
// with an order is reused so double-clicking "Pay" never double-charges.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResponse, error) {
	b, err := s.payableBooking(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}

	if open, err := s.payments.OpenForBooking(ctx, b.ID); err == nil && open.OrderID != "" {
		return &CreateOrderResponse{
			OrderID:     open.OrderID,
			AmountMinor: pricing.ToMinorUnits(open.Amount),
			Currency:    open.Currency,
			KeyID:       s.gw.KeyID(),
			PaymentID:   open.PaymentID,
		}, nil
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	order, err := s.gw.CreateOrder(ctx, gateway.OrderRequest{
		AmountMinor: pricing.ToMinorUnits(b.TotalAmount),
		Currency:    "INR",
		Receipt:     b.BookingNumber,
		Notes: map[string]string{
			"booking_id":     b.BookingID,
			"booking_number": b.BookingNumber,
		},
	})
	if err != nil {
		return nil, err
	}

	expiresAt := time.Now().Add(linkValidity)
	p := &domain.Payment{
		BookingRef:      b.ID,
		PaymentID:       newPaymentID(),
		OrderID:         order.ID,
		Amount:          b.TotalAmount,
		Currency:        "INR",
		Status:          domain.PaymentCreated,
		ExpiresAt:       &expiresAt,
		GatewayResponse: order.Raw,
	}
	if err := s.payments.Create(ctx, p); err != nil {
		return nil, err
	}

	s.loggerf("level=info msg=\"order created\" booking_number=%s order_id=%s amount=%s", b.BookingNumber, order.ID, b.TotalAmount)
	return &CreateOrderResponse{
		OrderID:     order.ID,
		AmountMinor: order.AmountMinor,
		Currency:    order.Currency,
		KeyID:       s.gw.KeyID(),
		PaymentID:   p.PaymentID,
	}, nil
}

// CreatePaymentLink issues a 24h payment link for a booking and records the
// WhatsApp message that carries it. An unexpired open link is reused. Issuing
// a link doubles as the staff confirmation for a pending booking.
func (s *Service) CreatePaymentLink(ctx context.Context, staffID int64, req CreatePaymentLinkRequest) (*CreatePaymentLinkResponse, error) {
	b, err := s.payableBooking(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}

	if open, err := s.payments.OpenForBooking(ctx, b.ID); err == nil &&
		open.PaymentLink != "" && open.ExpiresAt != nil && open.ExpiresAt.After(time.Now()) {
		return &CreatePaymentLinkResponse{
			PaymentLinkID: open.PaymentLinkID,
			ShortURL:      open.PaymentLink,
			ExpiresAt:     open.ExpiresAt,
			PaymentID:     open.PaymentID,
		}, nil
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	expireBy := time.Now().Add(linkValidity)
	link, err := s.gw.CreatePaymentLink(ctx, gateway.PaymentLinkRequest{
		AmountMinor: pricing.ToMinorUnits(b.TotalAmount),
		Currency:    "INR",
		ReferenceID: b.BookingNumber,
		Description: fmt.Sprintf("WayanTrails booking %s", b.BookingNumber),
		Customer: gateway.Customer{
			Name:    b.GuestName,
			Email:   b.GuestEmail,
			Contact: b.GuestPhone,
		},
		ExpireBy: expireBy,
		Notes: map[string]string{
			"booking_id":     b.BookingID,
			"booking_number": b.BookingNumber,
		},
	})
	if err != nil {
		return nil, err
	}

	p := &domain.Payment{
		BookingRef:      b.ID,
		PaymentID:       newPaymentID(),
		OrderID:         link.OrderID,
		PaymentLink:     link.ShortURL,
		PaymentLinkID:   link.ID,
		Amount:          b.TotalAmount,
		Currency:        "INR",
		Status:          domain.PaymentCreated,
		ExpiresAt:       &expireBy,
		GatewayResponse: link.Raw,
	}
	if err := s.payments.Create(ctx, p); err != nil {
		return nil, err
	}

	if b.Status == domain.BookingPending {
		if err := s.lifecycle.ConfirmOnPaymentLink(ctx, b.ID, staffID); err != nil {
			s.loggerf("level=error msg=\"confirm on payment link\" booking_number=%s err=%v", b.BookingNumber, err)
		}
	}

	s.recordLinkMessage(ctx, b, link.ShortURL)
	s.enqueueEvent(ctx, b, domain.EventPaymentLinkSent, map[string]interface{}{
		"payment_link": link.ShortURL,
		"expires_at":   expireBy,
	})

	s.loggerf("level=info msg=\"payment link created\" booking_number=%s link_id=%s", b.BookingNumber, link.ID)
	return &CreatePaymentLinkResponse{
		PaymentLinkID: link.ID,
		ShortURL:      link.ShortURL,
		ExpiresAt:     &expireBy,
		PaymentID:     p.PaymentID,
	}, nil
}

// ProcessPaymentSuccess handles the checkout redirect. The signature gate
// runs before anything else touches the database; replays settle nothing and
// report AlreadyProcessed.
func (s *Service) ProcessPaymentSuccess(ctx context.Context, req VerifyPaymentRequest) (*VerifyPaymentResponse, error) {
	if !s.gw.VerifyPaymentSignature(req.OrderID, req.GatewayPaymentID, req.Signature) {
		s.loggerf("level=warn msg=\"signature rejected\" order_id=%s", req.OrderID)
		return nil, ErrInvalidSignature
	}

	p, err := s.payments.GetByOrderID(ctx, req.OrderID)
	if err != nil {
		return nil, mapNotFound(err)
	}

	detail, err := s.gw.FetchPayment(ctx, req.GatewayPaymentID)
	if err != nil {
		return nil, err
	}

	bookingID := ""
	if b, err := s.bookings.GetByID(ctx, p.BookingRef); err == nil {
		bookingID = b.BookingID
	}

	switch detail.Status {
	case "authorized":
		// Money is reserved, not collected. The capture webhook settles and
		// confirms; until then the booking stays where it is.
		if p.Status.IsOpen() {
			updates := methodUpdates(detail)
			updates["status"] = domain.PaymentAuthorized
			updates["authorized_at"] = time.Now()
			updates["gateway_payment_id"] = detail.ID
			updates["signature"] = req.Signature
			updates["is_verified"] = true
			updates["gateway_response"] = detail.Raw
			if err := s.payments.Update(ctx, p.ID, updates); err != nil {
				return nil, err
			}
		}
		s.loggerf("level=info msg=\"payment authorized\" payment_id=%s order_id=%s", p.PaymentID, req.OrderID)
		return &VerifyPaymentResponse{
			PaymentID: p.PaymentID,
			Status:    string(domain.PaymentAuthorized),
			BookingID: bookingID,
		}, nil

	case "captured":
		updates := methodUpdates(detail)
		updates["gateway_payment_id"] = detail.ID
		updates["signature"] = req.Signature
		updates["is_verified"] = true
		updates["gateway_response"] = detail.Raw

		changed, err := s.payments.MarkCompletedIdempotent(ctx, p.PaymentID, updates)
		if err != nil {
			return nil, err
		}
		// Runs on every delivery: the booking-side status guard makes it a
		// no-op once confirmed, and a redelivery retries a confirmation that
		// failed after the money came in.
		if err := s.lifecycle.ConfirmOnPayment(ctx, p.BookingRef); err != nil {
			s.loggerf("level=error msg=\"confirm after settlement\" payment_id=%s err=%v", p.PaymentID, err)
		}
		if changed {
			s.loggerf("level=info msg=\"payment settled\" payment_id=%s order_id=%s method=%s", p.PaymentID, req.OrderID, detail.Method)
		}
		return &VerifyPaymentResponse{
			PaymentID:        p.PaymentID,
			Status:           string(domain.PaymentCompleted),
			BookingID:        bookingID,
			AlreadyProcessed: !changed,
		}, nil

	default:
		_ = s.payments.MarkFailed(ctx, p.PaymentID, detail.ErrorCode, detail.ErrorDescription)
		return nil, ErrValidation
	}
}

// methodUpdates maps the provider's method fields onto the payment row.
func methodUpdates(detail *gateway.PaymentDetail) map[string]interface{} {
	updates := map[string]interface{}{}
	switch detail.Method {
	case "upi":
		updates["method_type"] = domain.MethodUPI
		updates["upi_id"] = detail.VPA
	case "card":
		updates["method_type"] = domain.MethodCard
		updates["card_last4"] = detail.CardLast4
		updates["card_network"] = detail.CardNetwork
	case "netbanking":
		updates["method_type"] = domain.MethodNetBanking
	case "wallet":
		updates["method_type"] = domain.MethodWallet
		updates["wallet_name"] = detail.Wallet
	case "emi":
		updates["method_type"] = domain.MethodEMI
	}
	return updates
}

// webhookEnvelope is the provider's webhook body shape.
type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID               string `json:"id"`
				OrderID          string `json:"order_id"`
				Status           string `json:"status"`
				Method           string `json:"method"`
				VPA              string `json:"vpa"`
				Wallet           string `json:"wallet"`
				ErrorCode        string `json:"error_code"`
				ErrorDescription string `json:"error_description"`
				Card             struct {
					Last4   string `json:"last4"`
					Network string `json:"network"`
				} `json:"card"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// HandleWebhook processes provider webhooks. The transport signature uses the
// webhook secret, not the key secret. Unknown events are acknowledged so the
// provider stops retrying them.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if !s.gw.VerifyWebhookSignature(body, signature) {
		s.loggerf("level=warn msg=\"webhook signature rejected\"")
		return ErrInvalidSignature
	}

	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ErrValidation
	}
	entity := env.Payload.Payment.Entity

	switch env.Event {
	case "payment.captured":
		p, err := s.payments.GetByOrderID(ctx, entity.OrderID)
		if err != nil {
			return mapNotFound(err)
		}
		detail := &gateway.PaymentDetail{
			ID:          entity.ID,
			OrderID:     entity.OrderID,
			Status:      entity.Status,
			Method:      entity.Method,
			VPA:         entity.VPA,
			Wallet:      entity.Wallet,
			CardLast4:   entity.Card.Last4,
			CardNetwork: entity.Card.Network,
			Raw:         string(body),
		}
		updates := methodUpdates(detail)
		updates["gateway_payment_id"] = entity.ID
		updates["is_verified"] = true
		updates["gateway_response"] = detail.Raw

		changed, err := s.payments.MarkCompletedIdempotent(ctx, p.PaymentID, updates)
		if err != nil {
			return err
		}
		// Confirm on every delivery, not just the settling one. Failing the
		// delivery here leaves it unacked, so the provider redelivers and the
		// confirmation gets retried even though the payment is already
		// settled.
		if err := s.lifecycle.ConfirmOnPayment(ctx, p.BookingRef); err != nil {
			s.loggerf("level=error msg=\"confirm after webhook\" payment_id=%s err=%v", p.PaymentID, err)
			return err
		}
		if changed {
			s.loggerf("level=info msg=\"webhook settled payment\" payment_id=%s", p.PaymentID)
		}
		return nil

	case "payment.failed":
		p, err := s.payments.GetByOrderID(ctx, entity.OrderID)
		if err != nil {
			return mapNotFound(err)
		}
		if err := s.payments.MarkFailed(ctx, p.PaymentID, entity.ErrorCode, entity.ErrorDescription); err != nil {
			return err
		}
		s.loggerf("level=info msg=\"webhook marked payment failed\" payment_id=%s code=%s", p.PaymentID, entity.ErrorCode)
		return nil

	default:
		s.loggerf("level=info msg=\"webhook ignored\" event=%s", env.Event)
		return nil
	}
}

// CreateRefund sends money back through the gateway. Amount defaults to the
// full amount paid; partial refunds leave the payment partially_refunded and
// the booking untouched.
func (s *Service) CreateRefund(ctx context.Context, req RefundRequest) (*RefundResponse, error) {
	b, err := s.bookings.GetByBookingID(ctx, req.BookingID)
	if err != nil {
		return nil, mapBookingNotFound(err)
	}

	p, err := s.payments.SettledForBooking(ctx, b.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotSettled
		}
		return nil, err
	}
	if p.Status == domain.PaymentRefunded {
		return nil, ErrAlreadyRefunded
	}

	remaining := p.Amount.Sub(p.RefundAmount)
	amount := req.Amount
	if amount.IsZero() {
		amount = remaining
	}
	if amount.IsNegative() || amount.GreaterThan(remaining) {
		return nil, ErrAmountExceeds
	}

	refund, err := s.gw.CreateRefund(ctx, p.GatewayPaymentID, pricing.ToMinorUnits(amount), map[string]string{
		"booking_number": b.BookingNumber,
		"reason":         req.Reason,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	refunded := p.RefundAmount.Add(amount)
	full := refunded.GreaterThanOrEqual(p.Amount)
	status := domain.PaymentPartiallyRefunded
	if full {
		status = domain.PaymentRefunded
	}
	if err := s.payments.Update(ctx, p.ID, map[string]interface{}{
		"status":        status,
		"refund_id":     refund.ID,
		"refund_amount": refunded,
		"refund_reason": req.Reason,
		"refunded_at":   now,
	}); err != nil {
		return nil, err
	}

	if full {
		if err := s.lifecycle.MarkRefunded(ctx, b.ID, refunded); err != nil {
			s.loggerf("level=error msg=\"booking refund transition\" booking_number=%s err=%v", b.BookingNumber, err)
		}
	}

	s.loggerf("level=info msg=\"refund created\" booking_number=%s refund_id=%s amount=%s full=%t", b.BookingNumber, refund.ID, amount, full)
	return &RefundResponse{
		RefundID:   refund.ID,
		Amount:     amount,
		Status:     string(status),
		FullRefund: full,
		BookingID:  b.BookingID,
		RefundedAt: &now,
	}, nil
}

// PaymentStatus lists a booking's payments, newest first.
func (s *Service) PaymentStatus(ctx context.Context, bookingID string) ([]PaymentStatusResponse, error) {
	b, err := s.bookings.GetByBookingID(ctx, bookingID)
	if err != nil {
		return nil, mapBookingNotFound(err)
	}
	rows, err := s.payments.ListForBooking(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	out := make([]PaymentStatusResponse, 0, len(rows))
	for _, p := range rows {
		out = append(out, PaymentStatusResponse{
			PaymentID:        p.PaymentID,
			OrderID:          p.OrderID,
			Status:           string(p.Status),
			Amount:           p.Amount,
			Currency:         p.Currency,
			MethodType:       string(p.MethodType),
			PaymentLink:      p.PaymentLink,
			ErrorCode:        p.ErrorCode,
			ErrorDescription: p.ErrorDescription,
			PaidAt:           p.PaidAt,
			RefundAmount:     p.RefundAmount,
			CreatedAt:        p.CreatedAt,
		})
	}
	return out, nil
}

// Methods is the static catalog the checkout UI renders.
func (s *Service) Methods() []PaymentMethodInfo {
	return []PaymentMethodInfo{
		{Type: string(domain.MethodUPI), DisplayName: "UPI", Description: "GPay, PhonePe, Paytm and any UPI app", Enabled: true},
		{Type: string(domain.MethodCard), DisplayName: "Credit / Debit Card", Description: "Visa, Mastercard, RuPay, Amex", Enabled: true},
		{Type: string(domain.MethodNetBanking), DisplayName: "Net Banking", Description: "All major Indian banks", Enabled: true},
		{Type: string(domain.MethodWallet), DisplayName: "Wallet", Description: "Paytm, Mobikwik, Freecharge", Enabled: true},
		{Type: string(domain.MethodEMI), DisplayName: "EMI", Description: "Card EMI on orders above ₹3000", Enabled: false},
	}
}

func (s *Service) payableBooking(ctx context.Context, bookingID string) (*domain.Booking, error) {
	b, err := s.bookings.GetByBookingID(ctx, bookingID)
	if err != nil {
		return nil, mapBookingNotFound(err)
	}
	if b.Status != domain.BookingPending && b.Status != domain.BookingConfirmed {
		return nil, ErrNotPayable
	}
	return b, nil
}

func (s *Service) recordLinkMessage(ctx context.Context, b *domain.Booking, link string) {
	msg := &domain.WhatsAppMessage{
		BookingRef:  b.ID,
		MessageType: domain.WhatsAppPaymentLink,
		PhoneNumber: b.GuestPhone,
		MessageText: notification.PaymentLinkMessage(b, notification.FallbackName(b.ContentType), link),
	}
	if err := s.whatsapp.Create(ctx, msg); err != nil {
		s.loggerf("level=error msg=\"record payment link message\" booking_number=%s err=%v", b.BookingNumber, err)
	}
}

func (s *Service) enqueueEvent(ctx context.Context, b *domain.Booking, kind domain.EventKind, extra map[string]interface{}) {
	payload := map[string]interface{}{
		"booking_id":     b.BookingID,
		"booking_number": b.BookingNumber,
	}
	for k, v := range extra {
		payload[k] = v
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = []byte("{}")
	}
	if err := s.events.Enqueue(ctx, &domain.BookingEvent{
		BookingRef: b.ID,
		Kind:       kind,
		Payload:    string(raw),
	}); err != nil {
		s.loggerf("level=error msg=\"enqueue event\" kind=%s booking_number=%s err=%v", kind, b.BookingNumber, err)
	}
}

func newPaymentID() string {
	return "PAY-" + uuid.NewString()
}

func mapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func mapBookingNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrBookingNotFound
	}
	return err
}
