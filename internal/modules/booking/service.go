package booking

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"wayantrails/internal/domain"
	"wayantrails/internal/notification"
	"wayantrails/internal/pkg/pricing"
	"wayantrails/internal/repository"
)

// Actor identifies who is performing an operation. Staff can act on any
// booking; guests only on their own.
type Actor struct {
	UserID  int64
	IsStaff bool
}

type Service struct {
	bookings     BookingStore
	availability AvailabilityStore
	whatsapp     WhatsAppStore
	listings     ListingStore

	taxRate        decimal.Decimal
	commissionRate decimal.Decimal
	businessPhone  string

	loggerf func(format string, args ...interface{})
}

func NewService(
	bookings BookingStore,
	availability AvailabilityStore,
	whatsapp WhatsAppStore,
	listings ListingStore,
	taxRate decimal.Decimal,
	commissionRate decimal.Decimal,
	businessPhone string,
	loggerf func(format string, args ...interface{}),
) *Service {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &Service{
		bookings:       bookings,
		availability:   availability,
		whatsapp:       whatsapp,
		listings:       listings,
		taxRate:        taxRate,
		commissionRate: commissionRate,
		businessPhone:  businessPhone,
		loggerf:        loggerf,
	}
}

func (s *Service) CreateBooking(ctx context.Context, actor Actor, req CreateBookingRequest) (*BookingResponse, error) {
	b, err := s.buildBooking(actor, req)
	if err != nil {
		return nil, err
	}

	items, err := buildItems(req.Items, req.BaseAmount)
	if err != nil {
		return nil, err
	}

	breakdown, err := pricing.ComputeBookingPrice(req.BaseAmount, s.taxRate, req.DiscountAmount)
	if err != nil {
		return nil, ErrValidation
	}
	commission, err := pricing.ComputeCommission(breakdown.TotalAmount, s.commissionRate)
	if err != nil {
		return nil, ErrValidation
	}
	b.BaseAmount = breakdown.BaseAmount
	b.DiscountAmount = breakdown.DiscountAmount
	b.TaxAmount = breakdown.TaxAmount
	b.TotalAmount = breakdown.TotalAmount
	b.CommissionAmount = commission

	dates := bookedDates(b)
	if len(dates) > 0 {
		ok, err := s.availability.Reserve(ctx, b.ContentType, b.ObjectID, dates, b.TotalGuests)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrNotAvailable
		}
	}

	event := s.bookingEvent(domain.EventBookingPending, b, nil)
	if err := s.bookings.Create(ctx, b, items, event); err != nil {
		// Give the slots back; the booking row never landed.
		if len(dates) > 0 {
			if relErr := s.availability.Release(ctx, b.ContentType, b.ObjectID, dates, b.TotalGuests); relErr != nil {
				s.loggerf("level=error msg=\"release after failed create\" booking_id=%s err=%v", b.BookingID, relErr)
			}
		}
		return nil, err
	}

	itemName := s.displayName(ctx, b.ContentType, b.ObjectID)
	link := s.recordInquiry(ctx, b, itemName)

	s.loggerf("level=info msg=\"booking created\" booking_number=%s type=%s total=%s", b.BookingNumber, b.BookingType, b.TotalAmount)
	return toResponse(b, itemName, link), nil
}

func (s *Service) buildBooking(actor Actor, req CreateBookingRequest) (*domain.Booking, error) {
	bt := domain.BookingType(req.BookingType)
	switch bt {
	case domain.BookingTypeResort, domain.BookingTypeHomestay, domain.BookingTypeRental,
		domain.BookingTypeDestination, domain.BookingTypeService:
	default:
		return nil, ErrValidation
	}

	method := domain.BookingMethodHybrid
	if req.BookingMethod != "" {
		method = domain.BookingMethod(req.BookingMethod)
		if method != domain.BookingMethodHybrid && method != domain.BookingMethodOnline {
			return nil, ErrValidation
		}
	}

	adults := req.Adults
	if adults == 0 {
		adults = 2
	}
	if adults < 1 || req.Children < 0 {
		return nil, ErrValidation
	}

	b := &domain.Booking{
		BookingID:       uuid.NewString(),
		GuestName:       req.GuestName,
		GuestEmail:      req.GuestEmail,
		GuestPhone:      req.GuestPhone,
		BookingType:     bt,
		BookingMethod:   method,
		ContentType:     req.ContentType,
		ObjectID:        req.ObjectID,
		BookingTime:     req.BookingTime,
		Adults:          adults,
		Children:        req.Children,
		TotalGuests:     adults + req.Children,
		Status:          domain.BookingPending,
		SpecialRequests: req.SpecialRequests,
	}
	if actor.UserID > 0 {
		uid := actor.UserID
		b.UserID = &uid
	}

	today := time.Now()
	if bt.IsAccommodation() {
		in, err := parseDate(req.CheckInDate)
		if err != nil {
			return nil, ErrValidation
		}
		out, err := parseDate(req.CheckOutDate)
		if err != nil {
			return nil, ErrValidation
		}
		if !out.After(in) {
			return nil, ErrValidation
		}
		if pricing.DaysUntil(in, today) < 0 {
			return nil, ErrPastDate
		}
		b.CheckInDate = &in
		b.CheckOutDate = &out
	} else {
		d, err := parseDate(req.BookingDate)
		if err != nil {
			return nil, ErrValidation
		}
		if pricing.DaysUntil(d, today) < 0 {
			return nil, ErrPastDate
		}
		b.BookingDate = &d
	}
	return b, nil
}

func buildItems(reqs []BookingItemRequest, base decimal.Decimal) ([]domain.BookingItem, error) {
	if len(reqs) == 0 {
		return nil, nil
	}
	items := make([]domain.BookingItem, 0, len(reqs))
	sum := decimal.Zero
	for _, it := range reqs {
		qty := it.Quantity
		if qty == 0 {
			qty = 1
		}
		if qty < 1 || it.UnitPrice.IsNegative() {
			return nil, ErrValidation
		}
		total := it.UnitPrice.Mul(decimal.NewFromInt(int64(qty))).Round(2)
		sum = sum.Add(total)
		items = append(items, domain.BookingItem{
			ItemName:    it.ItemName,
			Description: it.Description,
			Quantity:    qty,
			UnitPrice:   it.UnitPrice,
			TotalPrice:  total,
		})
	}
	if !sum.Equal(base.Round(2)) {
		return nil, ErrAmountMismatch
	}
	return items, nil
}

// bookedDates lists every date a booking occupies: each night for
// accommodation, the single booking date otherwise.
func bookedDates(b *domain.Booking) []time.Time {
	if b.BookingType.IsAccommodation() {
		if b.CheckInDate == nil || b.CheckOutDate == nil {
			return nil
		}
		var dates []time.Time
		for d := *b.CheckInDate; d.Before(*b.CheckOutDate); d = d.AddDate(0, 0, 1) {
			dates = append(dates, d)
		}
		return dates
	}
	if b.BookingDate == nil {
		return nil
	}
	return []time.Time{*b.BookingDate}
}

func (s *Service) GetBooking(ctx context.Context, actor Actor, bookingID string) (*BookingResponse, error) {
	b, err := s.bookings.GetByBookingID(ctx, bookingID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if !actor.IsStaff && !ownedBy(b, actor.UserID) {
		return nil, ErrForbidden
	}
	return toResponse(b, s.displayName(ctx, b.ContentType, b.ObjectID), ""), nil
}

// WhatsAppLink rebuilds the pre-filled wa.me chat link for a booking. Falls
// back to a fresh inquiry message when the stored text is empty.
func (s *Service) WhatsAppLink(ctx context.Context, actor Actor, bookingID string) (string, error) {
	b, err := s.bookings.GetByBookingID(ctx, bookingID)
	if err != nil {
		return "", mapNotFound(err)
	}
	if !actor.IsStaff && !ownedBy(b, actor.UserID) {
		return "", ErrForbidden
	}
	text := b.WhatsAppMessageText
	if text == "" {
		text = notification.InquiryMessage(b, s.displayName(ctx, b.ContentType, b.ObjectID))
	}
	return notification.ChatLink(s.businessPhone, text), nil
}

func (s *Service) GetBookingByNumber(ctx context.Context, number string) (*BookingResponse, error) {
	b, err := s.bookings.GetByNumber(ctx, number)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return toResponse(b, s.displayName(ctx, b.ContentType, b.ObjectID), ""), nil
}

func (s *Service) History(ctx context.Context, bookingID string) ([]domain.BookingStatusHistory, error) {
	b, err := s.bookings.GetByBookingID(ctx, bookingID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return s.bookings.History(ctx, b.ID)
}

// ConfirmBooking is the staff-side manual confirmation used for hybrid
// bookings settled off-platform. Online bookings are confirmed by the payment
// flow instead.
func (s *Service) ConfirmBooking(ctx context.Context, actor Actor, bookingID string, req ConfirmBookingRequest) (*BookingResponse, error) {
	if !actor.IsStaff {
		return nil, ErrForbidden
	}
	b, err := s.bookings.GetByBookingID(ctx, bookingID)
	if err != nil {
		return nil, mapNotFound(err)
	}

	now := time.Now()
	updates := map[string]interface{}{
		"confirmed_by": actor.UserID,
		"confirmed_at": now,
	}
	if req.AdminNotes != "" {
		updates["admin_notes"] = req.AdminNotes
	}
	updated, err := s.bookings.Transition(ctx, b.ID, repository.TransitionParams{
		From:    []domain.BookingStatus{domain.BookingPending},
		To:      domain.BookingConfirmed,
		Actor:   &actor.UserID,
		Reason:  "confirmed by staff",
		Updates: updates,
		Event:   s.bookingEvent(domain.EventBookingConfirmed, b, nil),
	})
	if err != nil {
		return nil, mapTransition(err)
	}

	itemName := s.displayName(ctx, updated.ContentType, updated.ObjectID)
	s.recordMessage(ctx, updated, domain.WhatsAppConfirmation,
		notification.ConfirmationMessage(updated, itemName))

	s.loggerf("level=info msg=\"booking confirmed\" booking_number=%s by=%d", updated.BookingNumber, actor.UserID)
	return toResponse(updated, itemName, ""), nil
}

// CancelBooking cancels a pending or confirmed booking and quotes the refund
// the policy allows. Actually moving money is the payment module's job.
func (s *Service) CancelBooking(ctx context.Context, actor Actor, bookingID string, req CancelBookingRequest) (*BookingResponse, *RefundQuoteResponse, error) {
	b, err := s.bookings.GetByBookingID(ctx, bookingID)
	if err != nil {
		return nil, nil, mapNotFound(err)
	}
	if !actor.IsStaff && !ownedBy(b, actor.UserID) {
		return nil, nil, ErrForbidden
	}

	ref := b.ReferenceDate()
	now := time.Now()
	if ref != nil && pricing.DaysUntil(*ref, now) < 0 {
		return nil, nil, ErrPastDate
	}

	quote := pricing.ComputeRefund(string(b.Status), ref, now, b.TotalAmount)

	payload := map[string]interface{}{
		"refund_amount":     quote.Amount,
		"refund_percentage": quote.Percentage,
	}
	updated, err := s.bookings.Transition(ctx, b.ID, repository.TransitionParams{
		From:   []domain.BookingStatus{domain.BookingPending, domain.BookingConfirmed},
		To:     domain.BookingCancelled,
		Actor:  &actor.UserID,
		Reason: req.Reason,
		Updates: map[string]interface{}{
			"cancelled_by":        actor.UserID,
			"cancelled_at":        now,
			"cancellation_reason": req.Reason,
		},
		Event: s.bookingEvent(domain.EventBookingCancelled, b, payload),
	})
	if err != nil {
		return nil, nil, mapTransition(err)
	}

	if dates := bookedDates(updated); len(dates) > 0 {
		if err := s.availability.Release(ctx, updated.ContentType, updated.ObjectID, dates, updated.TotalGuests); err != nil {
			s.loggerf("level=error msg=\"release slots on cancel\" booking_number=%s err=%v", updated.BookingNumber, err)
		}
	}

	itemName := s.displayName(ctx, updated.ContentType, updated.ObjectID)
	s.recordMessage(ctx, updated, domain.WhatsAppCancellation,
		notification.CancellationMessage(updated, itemName, quote.Amount, quote.Percentage))

	s.loggerf("level=info msg=\"booking cancelled\" booking_number=%s refund_pct=%d", updated.BookingNumber, quote.Percentage)
	return toResponse(updated, itemName, ""),
		&RefundQuoteResponse{RefundAmount: quote.Amount, RefundPercentage: quote.Percentage},
		nil
}

// RefundQuote previews what a cancellation right now would return.
func (s *Service) RefundQuote(ctx context.Context, actor Actor, bookingID string) (*RefundQuoteResponse, error) {
	b, err := s.bookings.GetByBookingID(ctx, bookingID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if !actor.IsStaff && !ownedBy(b, actor.UserID) {
		return nil, ErrForbidden
	}
	q := pricing.ComputeRefund(string(b.Status), b.ReferenceDate(), time.Now(), b.TotalAmount)
	return &RefundQuoteResponse{RefundAmount: q.Amount, RefundPercentage: q.Percentage}, nil
}

// CompleteBooking closes out a stay that happened.
func (s *Service) CompleteBooking(ctx context.Context, actor Actor, bookingID string) (*BookingResponse, error) {
	return s.staffTransition(ctx, actor, bookingID, domain.BookingCompleted, "service delivered")
}

// MarkNoShow is staff-only; guests cannot no-show themselves.
func (s *Service) MarkNoShow(ctx context.Context, actor Actor, bookingID string) (*BookingResponse, error) {
	return s.staffTransition(ctx, actor, bookingID, domain.BookingNoShow, "guest did not arrive")
}

func (s *Service) staffTransition(ctx context.Context, actor Actor, bookingID string, to domain.BookingStatus, reason string) (*BookingResponse, error) {
	if !actor.IsStaff {
		return nil, ErrForbidden
	}
	b, err := s.bookings.GetByBookingID(ctx, bookingID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	updated, err := s.bookings.Transition(ctx, b.ID, repository.TransitionParams{
		From:   []domain.BookingStatus{domain.BookingConfirmed},
		To:     to,
		Actor:  &actor.UserID,
		Reason: reason,
	})
	if err != nil {
		return nil, mapTransition(err)
	}
	s.loggerf("level=info msg=\"booking transition\" booking_number=%s status=%s", updated.BookingNumber, updated.Status)
	return toResponse(updated, "", ""), nil
}

// MarkRefunded moves a cancelled or confirmed booking to refunded once the
// gateway refund settles; called by the payment flow, not a handler.
func (s *Service) MarkRefunded(ctx context.Context, bookingRef int64, refundAmount decimal.Decimal) error {
	payload := map[string]interface{}{"refund_amount": refundAmount}
	b, err := s.bookings.GetByID(ctx, bookingRef)
	if err != nil {
		return mapNotFound(err)
	}
	_, err = s.bookings.Transition(ctx, bookingRef, repository.TransitionParams{
		From:   []domain.BookingStatus{domain.BookingCancelled, domain.BookingConfirmed, domain.BookingCompleted},
		To:     domain.BookingRefunded,
		Reason: "gateway refund settled",
		Event:  s.bookingEvent(domain.EventBookingRefunded, b, payload),
	})
	return mapTransition(err)
}

// ConfirmOnPaymentLink confirms a pending booking when staff issue a payment
// link for it; in the hybrid flow sending the link is the confirmation. A
// booking already confirmed is left alone.
func (s *Service) ConfirmOnPaymentLink(ctx context.Context, bookingRef int64, staffID int64) error {
	b, err := s.bookings.GetByID(ctx, bookingRef)
	if err != nil {
		return mapNotFound(err)
	}
	now := time.Now()
	_, err = s.bookings.Transition(ctx, bookingRef, repository.TransitionParams{
		From:   []domain.BookingStatus{domain.BookingPending},
		To:     domain.BookingConfirmed,
		Actor:  &staffID,
		Reason: "payment link issued",
		Updates: map[string]interface{}{
			"confirmed_by": staffID,
			"confirmed_at": now,
		},
		Event: s.bookingEvent(domain.EventBookingConfirmed, b, nil),
	})
	if errors.Is(err, repository.ErrStatusConflict) {
		return nil
	}
	return err
}

// ConfirmOnPayment flips a pending booking to confirmed when its payment
// settles. Repeated settlement callbacks hit the status guard and are
// reported as already-confirmed rather than an error.
func (s *Service) ConfirmOnPayment(ctx context.Context, bookingRef int64) error {
	b, err := s.bookings.GetByID(ctx, bookingRef)
	if err != nil {
		return mapNotFound(err)
	}
	now := time.Now()
	_, err = s.bookings.Transition(ctx, bookingRef, repository.TransitionParams{
		From:    []domain.BookingStatus{domain.BookingPending},
		To:      domain.BookingConfirmed,
		Reason:  "payment settled",
		Updates: map[string]interface{}{"confirmed_at": now},
		Event:   s.bookingEvent(domain.EventPaymentSucceeded, b, nil),
	})
	if errors.Is(err, repository.ErrStatusConflict) {
		return nil
	}
	if err != nil {
		return err
	}

	if updated, gerr := s.bookings.GetByID(ctx, bookingRef); gerr == nil {
		itemName := s.displayName(ctx, updated.ContentType, updated.ObjectID)
		s.recordMessage(ctx, updated, domain.WhatsAppConfirmation,
			notification.ConfirmationMessage(updated, itemName))
	}
	return nil
}

// CheckAvailability is advisory: the authoritative check happens inside
// Reserve when the booking is created.
func (s *Service) CheckAvailability(ctx context.Context, q CheckAvailabilityQuery) (*AvailabilityResponse, error) {
	d, err := parseDate(q.Date)
	if err != nil {
		return nil, ErrValidation
	}
	guests := q.Guests
	if guests == 0 {
		guests = 1
	}
	row, err := s.availability.GetOrCreate(ctx, q.ContentType, q.ObjectID, d)
	if err != nil {
		return nil, err
	}
	remaining := row.RemainingSlots()
	return &AvailabilityResponse{
		Available:      !row.IsBlocked && remaining >= guests,
		RemainingSlots: remaining,
		Date:           d.Format(dateLayout),
	}, nil
}

func (s *Service) displayName(ctx context.Context, contentType string, objectID int64) string {
	l, err := s.listings.GetByKey(ctx, contentType, objectID)
	if err == nil && l.Name != "" {
		return l.Name
	}
	return notification.FallbackName(contentType)
}

// recordInquiry logs the guest-facing WhatsApp inquiry and returns the
// click-to-chat link. Failures are logged and swallowed; the booking stands.
func (s *Service) recordInquiry(ctx context.Context, b *domain.Booking, itemName string) string {
	text := notification.InquiryMessage(b, itemName)
	link := notification.ChatLink(s.businessPhone, text)

	msg := &domain.WhatsAppMessage{
		BookingRef:  b.ID,
		MessageType: domain.WhatsAppBookingInquiry,
		PhoneNumber: s.businessPhone,
		MessageText: text,
	}
	if err := s.whatsapp.Create(ctx, msg); err != nil {
		s.loggerf("level=error msg=\"record whatsapp inquiry\" booking_number=%s err=%v", b.BookingNumber, err)
		return link
	}
	if err := s.bookings.Update(ctx, b.ID, map[string]interface{}{
		"whatsapp_message_sent": true,
		"whatsapp_message_text": text,
	}); err != nil {
		s.loggerf("level=error msg=\"flag whatsapp sent\" booking_number=%s err=%v", b.BookingNumber, err)
	}
	b.WhatsAppMessageSent = true
	b.WhatsAppMessageText = text
	return link
}

func (s *Service) recordMessage(ctx context.Context, b *domain.Booking, kind domain.WhatsAppMessageType, text string) {
	msg := &domain.WhatsAppMessage{
		BookingRef:  b.ID,
		MessageType: kind,
		PhoneNumber: b.GuestPhone,
		MessageText: text,
	}
	if err := s.whatsapp.Create(ctx, msg); err != nil {
		s.loggerf("level=error msg=\"record whatsapp message\" booking_number=%s type=%s err=%v", b.BookingNumber, kind, err)
	}
}

func (s *Service) bookingEvent(kind domain.EventKind, b *domain.Booking, extra map[string]interface{}) *domain.BookingEvent {
	payload := map[string]interface{}{
		"booking_id":   b.BookingID,
		"booking_type": b.BookingType,
		"guest_phone":  b.GuestPhone,
		"total_amount": b.TotalAmount,
	}
	// Not assigned yet when the pending event is built during create.
	if b.BookingNumber != "" {
		payload["booking_number"] = b.BookingNumber
	}
	for k, v := range extra {
		payload[k] = v
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		s.loggerf("level=error msg=\"marshal event payload\" kind=%s err=%v", kind, err)
		raw = []byte("{}")
	}
	return &domain.BookingEvent{Kind: kind, Payload: string(raw)}
}

func ownedBy(b *domain.Booking, userID int64) bool {
	return b.UserID != nil && *b.UserID == userID
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, ErrValidation
	}
	return time.Parse(dateLayout, s)
}

func mapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func mapTransition(err error) error {
	if errors.Is(err, repository.ErrStatusConflict) {
		return ErrInvalidTransition
	}
	return err
}
