package apiclient

import (
	"context"
	"errors"
)

// GuestHeader carries the guest a request is made on behalf of.
const GuestHeader = "X-Guest-Id"

var ErrMissingGuest = errors.New("no guest identity for a per-guest query")

type guestContextKey struct{}

// WithGuest returns a context whose remote API calls are made on behalf of
// guestID.
func WithGuest(ctx context.Context, guestID string) context.Context {
	return context.WithValue(ctx, guestContextKey{}, guestID)
}

// GuestID returns the guest set by WithGuest, or an empty string.
func GuestID(ctx context.Context) string {
	id, _ := ctx.Value(guestContextKey{}).(string)
	return id
}
