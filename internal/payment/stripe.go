// Package payment confirms payment intents against Stripe the way the
// embedded Stripe Elements form does: with the publishable key and the
// intent's client secret.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/metinatakli/design-storefront/internal/domain"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
)

const (
	fallbackFailureMessage = "Payment failed. Please try again."
	requiresActionMessage  = "Additional authentication is required to complete this payment"
	secretSeparator        = "_secret_"
)

type Config struct {
	PublishableKey string
	ReturnURL      string
	// Backend overrides the Stripe API backend. Nil uses the default one.
	Backend stripe.Backend
}

type StripeElements struct {
	publishableKey string
	returnURL      string
	backend        stripe.Backend
	logger         *slog.Logger
}

func NewStripeElements(cfg Config, logger *slog.Logger) *StripeElements {
	backend := cfg.Backend
	if backend == nil {
		backend = stripe.GetBackend(stripe.APIBackend)
	}

	return &StripeElements{
		publishableKey: cfg.PublishableKey,
		returnURL:      cfg.ReturnURL,
		backend:        backend,
		logger:         logger,
	}
}

// NewWidget returns a widget for a single checkout session.
func (s *StripeElements) NewWidget() *Widget {
	return &Widget{elements: s}
}

type Widget struct {
	elements *StripeElements

	mu     sync.Mutex
	handle *domain.PaymentIntentHandle
}

func (w *Widget) Mount(handle domain.PaymentIntentHandle) domain.ElementsConfig {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.handle = &handle

	return domain.ElementsConfig{
		PublishableKey: w.elements.publishableKey,
		ClientSecret:   handle.ClientSecret,
		ReturnURL:      w.elements.returnURL,
	}
}

func (w *Widget) Unmount() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.handle = nil
}

func (w *Widget) Confirm(ctx context.Context, paymentMethodID string) (domain.ConfirmationResult, error) {
	w.mu.Lock()
	handle := w.handle
	w.mu.Unlock()

	if w.elements.publishableKey == "" || handle == nil || handle.ClientSecret == "" {
		return domain.ConfirmationResult{}, domain.ErrPaymentSDKNotReady
	}

	intentID := handle.PaymentIntentID
	if intentID == "" {
		intentID = intentIDFromSecret(handle.ClientSecret)
	}
	if intentID == "" {
		return domain.ConfirmationResult{}, domain.ErrPaymentSDKNotReady
	}

	pi, err := w.confirm(ctx, intentID, handle.ClientSecret, paymentMethodID)
	if err != nil {
		w.elements.logger.Warn("payment confirmation failed", "payment_intent_id", intentID, "error", err)
		return domain.Failed(failureMessage(err)), nil
	}

	return resultOf(pi), nil
}

func (w *Widget) confirm(
	ctx context.Context,
	intentID, clientSecret, paymentMethodID string) (pi *stripe.PaymentIntent, err error) {

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("stripe confirmation panicked: %v", r)
		}
	}()

	params := &stripe.PaymentIntentConfirmParams{
		ReturnURL: stripe.String(w.elements.returnURL),
	}
	if paymentMethodID != "" {
		params.PaymentMethod = stripe.String(paymentMethodID)
	}
	params.Context = ctx
	params.AddExtra("client_secret", clientSecret)

	client := paymentintent.Client{B: w.elements.backend, Key: w.elements.publishableKey}

	return client.Confirm(intentID, params)
}

func resultOf(pi *stripe.PaymentIntent) domain.ConfirmationResult {
	if pi == nil {
		return domain.Failed(fallbackFailureMessage)
	}

	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded,
		stripe.PaymentIntentStatusProcessing,
		stripe.PaymentIntentStatusRequiresCapture:
		return domain.Succeeded(pi.ID)
	case stripe.PaymentIntentStatusRequiresAction:
		return domain.RequiresAction(requiresActionMessage)
	case stripe.PaymentIntentStatusCanceled:
		return domain.Failed("The payment was canceled")
	default:
		return domain.Failed(fallbackFailureMessage)
	}
}

func failureMessage(err error) string {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && strings.TrimSpace(stripeErr.Msg) != "" {
		return stripeErr.Msg
	}

	return domain.UserMessage(err, fallbackFailureMessage)
}

// intentIDFromSecret turns "pi_123_secret_abc" into "pi_123".
func intentIDFromSecret(secret string) string {
	id, _, found := strings.Cut(secret, secretSeparator)
	if !found {
		return ""
	}

	return id
}
