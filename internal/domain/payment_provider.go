package domain

import "context"

type ConfirmationKind int

const (
	ConfirmationSucceeded ConfirmationKind = iota + 1
	ConfirmationRequiresAction
	ConfirmationFailed
)

func (k ConfirmationKind) String() string {
	switch k {
	case ConfirmationSucceeded:
		return "succeeded"
	case ConfirmationRequiresAction:
		return "requires_action"
	case ConfirmationFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ConfirmationResult is the provisional outcome reported by the payment
// widget. Only one of PaymentIntentID (succeeded) or Message (otherwise) is set.
type ConfirmationResult struct {
	Kind            ConfirmationKind
	PaymentIntentID string
	Message         string
}

func Succeeded(paymentIntentID string) ConfirmationResult {
	return ConfirmationResult{Kind: ConfirmationSucceeded, PaymentIntentID: paymentIntentID}
}

func RequiresAction(message string) ConfirmationResult {
	return ConfirmationResult{Kind: ConfirmationRequiresAction, Message: message}
}

func Failed(message string) ConfirmationResult {
	return ConfirmationResult{Kind: ConfirmationFailed, Message: message}
}

// ElementsConfig is what a page needs to render the embedded payment form.
type ElementsConfig struct {
	PublishableKey string `json:"publishableKey"`
	ClientSecret   string `json:"clientSecret"`
	ReturnURL      string `json:"returnUrl"`
}

type PaymentWidget interface {
	Mount(handle PaymentIntentHandle) ElementsConfig
	// Confirm returns an error only for blocking preconditions. Every other
	// outcome, including provider errors, is reported through the result.
	Confirm(ctx context.Context, paymentMethodID string) (ConfirmationResult, error)
	Unmount()
}
