package domain

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusActive    PaymentStatus = "active"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCanceled  PaymentStatus = "canceled"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

func (s PaymentStatus) IsSuccess() bool {
	return s == PaymentStatusSucceeded || s == PaymentStatusCompleted || s == PaymentStatusActive
}

func (s PaymentStatus) IsFailure() bool {
	return s == PaymentStatusFailed || s == PaymentStatusCanceled
}

// IsTerminal reports whether no further status change is expected.
func (s PaymentStatus) IsTerminal() bool {
	return s.IsSuccess() || s.IsFailure() || s == PaymentStatusRefunded
}

func (s PaymentStatus) String() string {
	return string(s)
}

// PaymentRecord is the authoritative payment state owned by the remote API.
type PaymentRecord struct {
	ID           string          `json:"id"`
	Status       PaymentStatus   `json:"status"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	ErrorMessage *string         `json:"errorMessage,omitempty"`
	RefundedAt   *time.Time      `json:"refundedAt,omitempty"`
	PurchaseID   *string         `json:"purchaseId,omitempty"`
}

// PaymentIntentHandle is a server-created payment intent. ClientSecret is a
// bearer credential and must stay in memory.
type PaymentIntentHandle struct {
	PaymentIntentID string `json:"paymentIntentId"`
	ClientSecret    string `json:"clientSecret"`
}

func (h PaymentIntentHandle) String() string {
	return fmt.Sprintf("PaymentIntentHandle{%s}", h.PaymentIntentID)
}

func (h PaymentIntentHandle) LogValue() slog.Value {
	return slog.GroupValue(slog.String("payment_intent_id", h.PaymentIntentID))
}

type CreateIntentRequest struct {
	ProductType ProductType `json:"productType" validate:"required,product_type"`
	ProductID   string      `json:"productId" validate:"required"`
	Currency    string      `json:"currency,omitempty" validate:"omitempty,currency"`
}

type RefundRequest struct {
	PaymentIntentID string           `json:"paymentIntentId" validate:"required"`
	Amount          *decimal.Decimal `json:"amount,omitempty"`
	Reason          *string          `json:"reason,omitempty" validate:"omitempty,max=500"`
}

type PaymentAPI interface {
	CreatePaymentIntent(ctx context.Context, req CreateIntentRequest) (PaymentIntentHandle, error)
	GetPaymentStatus(ctx context.Context, paymentIntentID string) (PaymentRecord, error)
}
