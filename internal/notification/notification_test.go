package notification

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wayantrails/internal/domain"
)

func inquiryBooking() *domain.Booking {
	in := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	out := time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC)
	return &domain.Booking{
		BookingNumber:   "WT-2026-0042",
		GuestName:       "Anita Menon",
		GuestPhone:      "+919876543210",
		BookingType:     domain.BookingTypeResort,
		CheckInDate:     &in,
		CheckOutDate:    &out,
		Adults:          2,
		Children:        1,
		TotalAmount:     decimal.NewFromInt(5600),
		SpecialRequests: "Early check-in",
	}
}

func TestInquiryMessageContent(t *testing.T) {
	msg := InquiryMessage(inquiryBooking(), "Vythiri Resort")

	assert.Contains(t, msg, "Hi WayanTrails Team!")
	assert.Contains(t, msg, "*Vythiri Resort*")
	assert.Contains(t, msg, "Check-in: 10 Sep 2026")
	assert.Contains(t, msg, "Check-out: 12 Sep 2026")
	assert.Contains(t, msg, "Duration: 2 nights")
	assert.Contains(t, msg, "Guests: 2 Adults, 1 Children")
	assert.Contains(t, msg, "₹5600.00")
	assert.Contains(t, msg, "#WT-2026-0042")
	assert.Contains(t, msg, "Special Requests: Early check-in")
	assert.Contains(t, msg, "send payment link")
}

func TestChatLinkEncodesMessage(t *testing.T) {
	link := ChatLink("919876543210", "Hi WayanTrails Team!\nBooking #WT-2026-0001")

	assert.True(t, strings.HasPrefix(link, "https://wa.me/919876543210?text="))
	assert.NotContains(t, link, " ")
	assert.NotContains(t, link, "\n")
}

func TestCancellationMessageRefundBranches(t *testing.T) {
	b := inquiryBooking()

	with := CancellationMessage(b, "Vythiri Resort", decimal.NewFromInt(2800), 50)
	assert.Contains(t, with, "₹2800.00 (50%)")

	without := CancellationMessage(b, "Vythiri Resort", decimal.Zero, 0)
	assert.Contains(t, without, "no refund is applicable")
}

type fakeOutbox struct {
	events     []domain.BookingEvent
	dispatched []int64
}

func (f *fakeOutbox) FetchUndispatched(ctx context.Context, limit int) ([]domain.BookingEvent, error) {
	var out []domain.BookingEvent
	for _, ev := range f.events {
		if ev.DispatchedAt == nil && len(out) < limit {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeOutbox) MarkDispatched(ctx context.Context, id int64) error {
	now := time.Now()
	for i := range f.events {
		if f.events[i].ID == id {
			f.events[i].DispatchedAt = &now
		}
	}
	f.dispatched = append(f.dispatched, id)
	return nil
}

type capturePublisher struct {
	topics   []string
	keys     []string
	payloads [][]byte
	fail     bool
}

func (p *capturePublisher) Publish(_ context.Context, topic, key string, payload []byte) error {
	if p.fail {
		return assert.AnError
	}
	p.topics = append(p.topics, topic)
	p.keys = append(p.keys, key)
	p.payloads = append(p.payloads, payload)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func TestRelayDispatchesInOrder(t *testing.T) {
	outbox := &fakeOutbox{events: []domain.BookingEvent{
		{ID: 1, BookingRef: 21, Kind: domain.EventBookingPending, Payload: `{"booking_id":"a"}`},
		{ID: 2, BookingRef: 21, Kind: domain.EventBookingConfirmed, Payload: `{"booking_id":"a"}`},
	}}
	pub := &capturePublisher{}
	relay := NewRelay(outbox, pub, "booking-events", time.Second, nil)

	require.NoError(t, relay.DispatchPending(context.Background()))

	require.Len(t, pub.payloads, 2)
	assert.Equal(t, []int64{1, 2}, outbox.dispatched)
	assert.Equal(t, "21", pub.keys[0])
	assert.Contains(t, string(pub.payloads[0]), `"kind":"booking.pending"`)
	assert.Contains(t, string(pub.payloads[1]), `"kind":"booking.confirmed"`)
}

func TestRelayStopsBatchOnPublishFailure(t *testing.T) {
	outbox := &fakeOutbox{events: []domain.BookingEvent{
		{ID: 1, BookingRef: 21, Kind: domain.EventBookingPending},
	}}
	pub := &capturePublisher{fail: true}
	relay := NewRelay(outbox, pub, "booking-events", time.Second, nil)

	assert.Error(t, relay.DispatchPending(context.Background()))
	assert.Empty(t, outbox.dispatched)

	// Next tick succeeds and the event is still there.
	pub.fail = false
	require.NoError(t, relay.DispatchPending(context.Background()))
	assert.Equal(t, []int64{1}, outbox.dispatched)
}
