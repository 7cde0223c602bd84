package app

import (
	"context"
	"net/http"

	"github.com/metinatakli/design-storefront/internal/checkout"
)

type sessionKey string

const (
	SessionKeyCheckoutID = sessionKey("checkoutID")
	SessionKeyGuest      = sessionKey("guest")
)

func (s sessionKey) String() string {
	return string(s)
}

type contextKey string

const checkoutContextKey = contextKey("checkout")

func (app *Application) contextSetCheckout(r *http.Request, o *checkout.Orchestrator) *http.Request {
	ctx := context.WithValue(r.Context(), checkoutContextKey, o)
	return r.WithContext(ctx)
}

func (app *Application) contextGetCheckout(r *http.Request) *checkout.Orchestrator {
	o, ok := r.Context().Value(checkoutContextKey).(*checkout.Orchestrator)
	if !ok {
		panic("missing checkout session from context")
	}

	return o
}
