package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	razorpay "github.com/razorpay/razorpay-go"
)

// RazorpayGateway is the live implementation. Every upstream call carries a
// timeout; transient failures (timeouts, network) are retried with
// exponential backoff, permanent rejections surface immediately.
type RazorpayGateway struct {
	client        *razorpay.Client
	keyID         string
	keySecret     string
	webhookSecret string
	timeout       time.Duration
}

func NewRazorpay(keyID, keySecret, webhookSecret string, timeout time.Duration) (*RazorpayGateway, error) {
	if keyID == "" || keySecret == "" {
		return nil, fmt.Errorf("razorpay credentials are not configured")
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &RazorpayGateway{
		client:        razorpay.NewClient(keyID, keySecret),
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
		timeout:       timeout,
	}, nil
}

func (g *RazorpayGateway) KeyID() string { return g.keyID }

func (g *RazorpayGateway) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	data := map[string]interface{}{
		"amount":   req.AmountMinor,
		"currency": req.Currency,
		"receipt":  req.Receipt,
		"notes":    notesMap(req.Notes),
	}

	res, err := g.call(ctx, func() (map[string]interface{}, error) {
		return g.client.Order.Create(data, nil)
	})
	if err != nil {
		return nil, err
	}

	return &Order{
		ID:          getString(res, "id"),
		AmountMinor: getInt64(res, "amount"),
		Currency:    getString(res, "currency"),
		Receipt:     getString(res, "receipt"),
		Raw:         rawJSON(res),
	}, nil
}

func (g *RazorpayGateway) CreatePaymentLink(ctx context.Context, req PaymentLinkRequest) (*PaymentLink, error) {
	data := map[string]interface{}{
		"amount":         req.AmountMinor,
		"currency":       req.Currency,
		"accept_partial": false,
		"expire_by":      req.ExpireBy.Unix(),
		"reference_id":   req.ReferenceID,
		"description":    req.Description,
		"customer": map[string]interface{}{
			"name":    req.Customer.Name,
			"email":   req.Customer.Email,
			"contact": req.Customer.Contact,
		},
		"notify":          map[string]interface{}{"sms": true, "email": true},
		"reminder_enable": true,
		"notes":           notesMap(req.Notes),
		"callback_url":    req.CallbackURL,
		"callback_method": "get",
	}

	res, err := g.call(ctx, func() (map[string]interface{}, error) {
		return g.client.PaymentLink.Create(data, nil)
	})
	if err != nil {
		return nil, err
	}

	return &PaymentLink{
		ID:       getString(res, "id"),
		ShortURL: getString(res, "short_url"),
		OrderID:  getString(res, "order_id"),
		ExpireBy: req.ExpireBy,
		Raw:      rawJSON(res),
	}, nil
}

func (g *RazorpayGateway) FetchPayment(ctx context.Context, gatewayPaymentID string) (*PaymentDetail, error) {
	res, err := g.call(ctx, func() (map[string]interface{}, error) {
		return g.client.Payment.Fetch(gatewayPaymentID, nil, nil)
	})
	if err != nil {
		return nil, err
	}
	return parsePaymentDetail(res), nil
}

func (g *RazorpayGateway) CreateRefund(ctx context.Context, gatewayPaymentID string, amountMinor int64, notes map[string]string) (*Refund, error) {
	data := map[string]interface{}{
		"speed": "normal",
		"notes": notesMap(notes),
	}

	res, err := g.call(ctx, func() (map[string]interface{}, error) {
		return g.client.Payment.Refund(gatewayPaymentID, int(amountMinor), data, nil)
	})
	if err != nil {
		return nil, err
	}

	return &Refund{
		ID:          getString(res, "id"),
		AmountMinor: getInt64(res, "amount"),
		Status:      getString(res, "status"),
		Raw:         rawJSON(res),
	}, nil
}

func (g *RazorpayGateway) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return VerifyPayment(g.keySecret, orderID, paymentID, signature)
}

func (g *RazorpayGateway) VerifyWebhookSignature(body []byte, signature string) bool {
	if g.webhookSecret == "" {
		return false
	}
	return VerifyWebhook(g.webhookSecret, body, signature)
}

// call runs one gateway operation under the configured timeout and retries
// transient failures. The SDK is not context-aware, so each attempt runs in
// its own goroutine and the result is abandoned on timeout.
func (g *RazorpayGateway) call(ctx context.Context, op func() (map[string]interface{}, error)) (map[string]interface{}, error) {
	var out map[string]interface{}

	attempt := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		type result struct {
			res map[string]interface{}
			err error
		}
		ch := make(chan result, 1)
		go func() {
			res, err := op()
			ch <- result{res, err}
		}()

		select {
		case <-attemptCtx.Done():
			return fmt.Errorf("%w: %v", ErrUnavailable, attemptCtx.Err())
		case r := <-ch:
			if r.err != nil {
				if transient(r.err) {
					return fmt.Errorf("%w: %v", ErrUnavailable, r.err)
				}
				return backoff.Permanent(r.err)
			}
			out = r.res
			return nil
		}
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(attempt, bo); err != nil {
		return nil, err
	}
	return out, nil
}

func transient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	var ue *url.Error
	return errors.As(err, &ue)
}

func parsePaymentDetail(res map[string]interface{}) *PaymentDetail {
	d := &PaymentDetail{
		ID:               getString(res, "id"),
		OrderID:          getString(res, "order_id"),
		Status:           getString(res, "status"),
		Method:           getString(res, "method"),
		VPA:              getString(res, "vpa"),
		Wallet:           getString(res, "wallet"),
		AmountMinor:      getInt64(res, "amount"),
		ErrorCode:        getString(res, "error_code"),
		ErrorDescription: getString(res, "error_description"),
		Raw:              rawJSON(res),
	}
	if card, ok := res["card"].(map[string]interface{}); ok {
		d.CardLast4 = getString(card, "last4")
		d.CardNetwork = getString(card, "network")
	}
	return d
}

func notesMap(notes map[string]string) map[string]interface{} {
	out := make(map[string]interface{}, len(notes))
	for k, v := range notes {
		out[k] = v
	}
	return out
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func getInt64(m map[string]interface{}, key string) int64 {
	switch v := m[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	}
	return 0
}

func rawJSON(m map[string]interface{}) string {
	b, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(b)
}
