package domain

import (
	"errors"
	"strings"
)

var (
	ErrMissingProductID   = errors.New("no product was selected for checkout")
	ErrPaymentSDKNotReady = errors.New("the payment form is not ready yet, please try again in a moment")
	ErrCheckoutInProgress = errors.New("a payment request is already in progress")
	ErrInvalidTransition  = errors.New("this action is not available at the current checkout step")
	ErrSessionClosed      = errors.New("checkout session is closed")
	ErrSessionNotFound    = errors.New("there is no checkout session bound to the current session")
	ErrRecordNotFound     = errors.New("record not found")
)

type ErrorKind string

const (
	ErrorKindPrecondition   ErrorKind = "precondition"
	ErrorKindIntentCreation ErrorKind = "intent_creation"
	ErrorKindConfirmation   ErrorKind = "confirmation"
	ErrorKindActionRequired ErrorKind = "action_required"
	ErrorKindVerification   ErrorKind = "verification"
)

// CheckoutError is a failure already converted to a user-facing message.
type CheckoutError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *CheckoutError) Error() string {
	return e.Message
}

func (e *CheckoutError) Unwrap() error {
	return e.Err
}

// Informational reports whether the failure asks the user to act rather than
// signalling that the payment failed.
func (e *CheckoutError) Informational() bool {
	return e.Kind == ErrorKindActionRequired
}

// ServerError is implemented by errors that carry a message supplied by the
// remote API.
type ServerError interface {
	ServerMessage() string
}

// UserMessage picks the message shown to the user: the server-supplied message
// first, then the error text, then fallback.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return fallback
	}

	var serverErr ServerError
	if errors.As(err, &serverErr) {
		if msg := strings.TrimSpace(serverErr.ServerMessage()); msg != "" {
			return msg
		}
	}

	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}

	return fallback
}
