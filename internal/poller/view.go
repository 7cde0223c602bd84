package poller

import (
	"time"

	"github.com/metinatakli/design-storefront/internal/domain"
	"github.com/shopspring/decimal"
)

type State string

const (
	StateChecking     State = "checking"
	StateSucceeded    State = "succeeded"
	StateFailed       State = "failed"
	StatePending      State = "pending"
	StateRefunded     State = "refunded"
	StateUnknown      State = "unknown"
	StateUnverifiable State = "unverifiable"
)

const (
	defaultFailureReason  = "The payment could not be completed"
	defaultCanceledReason = "The payment was canceled"
)

// View is the presentation-independent status of a polled payment.
type View struct {
	State      State
	Amount     decimal.Decimal
	Currency   string
	PurchaseID string
	Reason     string
	RefundedAt *time.Time
	RawStatus  string
}

func checking() View {
	return View{State: StateChecking}
}

// unverifiable keeps the amount and purchase of the last fetched record on
// display while the status cannot be checked.
func unverifiable(reason string, last *domain.PaymentRecord) View {
	v := View{State: StateUnverifiable, Reason: reason}
	if last == nil {
		return v
	}

	v.Amount = last.Amount
	v.Currency = last.Currency
	if last.PurchaseID != nil {
		v.PurchaseID = *last.PurchaseID
	}

	return v
}

func viewOf(rec domain.PaymentRecord) View {
	switch {
	case rec.Status.IsSuccess():
		v := View{State: StateSucceeded, Amount: rec.Amount, Currency: rec.Currency}
		if rec.PurchaseID != nil {
			v.PurchaseID = *rec.PurchaseID
		}
		return v
	case rec.Status.IsFailure():
		return View{State: StateFailed, Reason: FailureReason(rec)}
	case rec.Status == domain.PaymentStatusRefunded:
		return View{State: StateRefunded, RefundedAt: rec.RefundedAt}
	case rec.Status == domain.PaymentStatusPending:
		return View{State: StatePending}
	default:
		return View{State: StateUnknown, RawStatus: string(rec.Status)}
	}
}

// FailureReason is the user-facing reason of a failed or canceled payment.
func FailureReason(rec domain.PaymentRecord) string {
	if rec.ErrorMessage != nil && *rec.ErrorMessage != "" {
		return *rec.ErrorMessage
	}

	if rec.Status == domain.PaymentStatusCanceled {
		return defaultCanceledReason
	}

	return defaultFailureReason
}
