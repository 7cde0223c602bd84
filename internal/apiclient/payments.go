package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/metinatakli/design-storefront/internal/domain"
)

// CreatePaymentIntent asks the remote API for a new payment intent. Retries of
// the same call share one idempotency key, separate calls never do.
func (c *Client) CreatePaymentIntent(
	ctx context.Context,
	req domain.CreateIntentRequest) (domain.PaymentIntentHandle, error) {

	headers := http.Header{}
	headers.Set("Idempotency-Key", uuid.NewString())

	data, err := c.do(ctx, request{
		method:  http.MethodPost,
		path:    "/payments/create",
		body:    req,
		headers: headers,
	})
	if err != nil {
		return domain.PaymentIntentHandle{}, err
	}

	var handle domain.PaymentIntentHandle
	if err := decode(data, &handle); err != nil {
		return domain.PaymentIntentHandle{}, err
	}

	return handle, nil
}

// GetPaymentStatus always reaches the remote API; payment status is never
// cached.
func (c *Client) GetPaymentStatus(ctx context.Context, paymentIntentID string) (domain.PaymentRecord, error) {
	data, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/payments/status/" + url.PathEscape(paymentIntentID),
	})
	if err != nil {
		return domain.PaymentRecord{}, err
	}

	var rec domain.PaymentRecord
	if err := decode(data, &rec); err != nil {
		return domain.PaymentRecord{}, err
	}

	return rec, nil
}

func (c *Client) RefundPayment(ctx context.Context, req domain.RefundRequest) (domain.PaymentRecord, error) {
	data, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/payments/refund",
		body:   req,
	})
	if err != nil {
		return domain.PaymentRecord{}, err
	}

	var rec domain.PaymentRecord
	if err := decode(data, &rec); err != nil {
		return domain.PaymentRecord{}, err
	}

	return rec, nil
}
