// Package notification carries booking state changes out of the system:
// WhatsApp message texts for guests and staff, and the outbox relay that
// publishes booking events to the broker after the owning transaction
// committed.
package notification

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"wayantrails/internal/domain"
)

type envelope struct {
	Kind       string          `json:"kind"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// OutboxSource is the slice of the outbox the relay needs.
type OutboxSource interface {
	FetchUndispatched(ctx context.Context, limit int) ([]domain.BookingEvent, error)
	MarkDispatched(ctx context.Context, id int64) error
}

const relayBatchSize = 50

// Relay polls the outbox and pushes pending events to the publisher. Events
// are keyed by booking so one booking's events stay ordered on a partition.
type Relay struct {
	outbox    OutboxSource
	publisher Publisher
	topic     string
	interval  time.Duration
	loggerf   func(format string, args ...interface{})
}

func NewRelay(outbox OutboxSource, publisher Publisher, topic string, interval time.Duration, loggerf func(format string, args ...interface{})) *Relay {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Relay{
		outbox:    outbox,
		publisher: publisher,
		topic:     topic,
		interval:  interval,
		loggerf:   loggerf,
	}
}

// Run blocks until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.DispatchPending(ctx); err != nil {
				r.loggerf("level=error msg=\"outbox dispatch\" err=%v", err)
			}
		}
	}
}

// DispatchPending drains one batch. A publish failure stops the batch so the
// failed event is retried first next tick and ordering holds.
func (r *Relay) DispatchPending(ctx context.Context) error {
	events, err := r.outbox.FetchUndispatched(ctx, relayBatchSize)
	if err != nil {
		return err
	}
	for _, ev := range events {
		key := strconv.FormatInt(ev.BookingRef, 10)
		payload := ev.Payload
		if payload == "" {
			payload = "{}"
		}
		body, err := json.Marshal(envelope{Kind: string(ev.Kind), OccurredAt: ev.CreatedAt, Payload: json.RawMessage(payload)})
		if err != nil {
			return err
		}
		if err := r.publisher.Publish(ctx, r.topic, key, body); err != nil {
			return err
		}
		if err := r.outbox.MarkDispatched(ctx, ev.ID); err != nil {
			return err
		}
		r.loggerf("level=info msg=\"event dispatched\" kind=%s booking_ref=%d", ev.Kind, ev.BookingRef)
	}
	return nil
}
