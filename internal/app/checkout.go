package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/metinatakli/design-storefront/internal/checkout"
	"github.com/metinatakli/design-storefront/internal/domain"
	"github.com/metinatakli/design-storefront/internal/poller"
	"github.com/shopspring/decimal"
)

var errItemNotFound = errors.New("the selected item does not exist")

type CreateCheckoutRequest struct {
	PurchaseType domain.ProductType `json:"purchaseType" validate:"required,product_type"`
	DesignID     string             `json:"designId,omitempty" validate:"max=64"`
	CourseID     string             `json:"courseId,omitempty" validate:"max=64"`
	PlanID       string             `json:"planId,omitempty" validate:"required_if=PurchaseType subscription,max=64"`
}

func (req CreateCheckoutRequest) selection() checkout.Selection {
	return checkout.Selection{
		PurchaseType: req.PurchaseType,
		DesignID:     req.DesignID,
		CourseID:     req.CourseID,
		PlanID:       req.PlanID,
	}
}

type ConfirmPaymentRequest struct {
	PaymentMethodID string `json:"paymentMethodId" validate:"required,payment_method"`
}

type FocusRequest struct {
	Focused *bool `json:"focused" validate:"required"`
}

type PaymentStatusResponse struct {
	State      poller.State     `json:"state"`
	Error      *domain.Failure  `json:"error,omitempty"`
	Amount     *decimal.Decimal `json:"amount,omitempty"`
	Currency   string           `json:"currency,omitempty"`
	PurchaseID string           `json:"purchaseId,omitempty"`
	Reason     string           `json:"reason,omitempty"`
	RefundedAt *time.Time       `json:"refundedAt,omitempty"`
}

type CheckoutResponse struct {
	ID              string                 `json:"id"`
	Step            domain.Step            `json:"step"`
	Item            domain.PurchasableItem `json:"item"`
	DisplayPrice    string                 `json:"displayPrice"`
	PaymentIntentID string                 `json:"paymentIntentId,omitempty"`
	Error           *domain.Failure        `json:"error,omitempty"`
	IsRedirecting   bool                   `json:"isRedirecting"`
	Confirming      bool                   `json:"confirming"`
	Actions         []checkout.Action      `json:"actions"`
	Elements        *domain.ElementsConfig `json:"elements,omitempty"`
	Payment         *PaymentStatusResponse `json:"payment,omitempty"`
}

func newCheckoutResponse(snap checkout.Snapshot) CheckoutResponse {
	resp := CheckoutResponse{
		ID:            snap.Session.ID,
		Step:          snap.Session.Step,
		Item:          snap.Session.Item,
		DisplayPrice:  snap.Session.Item.DisplayPrice(),
		Error:         snap.Session.Error,
		IsRedirecting: snap.Session.IsRedirecting,
		Confirming:    snap.Confirming,
		Actions:       snap.Actions,
		Elements:      snap.Elements,
	}

	if resp.Actions == nil {
		resp.Actions = []checkout.Action{}
	}

	if snap.Session.Intent != nil {
		resp.PaymentIntentID = snap.Session.Intent.PaymentIntentID
	}

	if snap.Payment != nil {
		view := snap.Payment
		resp.Payment = &PaymentStatusResponse{
			State:      view.State,
			Currency:   view.Currency,
			PurchaseID: view.PurchaseID,
			Reason:     view.Reason,
			RefundedAt: view.RefundedAt,
		}
		if view.State == poller.StateUnverifiable {
			resp.Payment.Error = &domain.Failure{Kind: domain.ErrorKindVerification, Message: view.Reason}
		}
		if !view.Amount.IsZero() {
			amount := view.Amount
			resp.Payment.Amount = &amount
		}
	}

	return resp
}

func (app *Application) CreateCheckoutHandler(w http.ResponseWriter, r *http.Request) {
	var input CreateCheckoutRequest

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	selection := input.selection()
	productType, productId := selection.Product()
	if productId == "" {
		app.unprocessableEntityResponse(w, r, domain.ErrMissingProductID)
		return
	}

	item, err := app.api.GetItem(r.Context(), productType, productId)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponseWithErr(w, r, errItemNotFound)
		default:
			app.badGatewayResponse(w, r, err)
		}
		return
	}

	// a page only ever drives one checkout
	previousId := app.sessionManager.GetString(r.Context(), SessionKeyCheckoutID.String())
	if previousId != "" {
		err = app.checkouts.Close(previousId)
		if err != nil {
			app.checkoutErrorResponse(w, r, err)
			return
		}
	}

	o := app.checkouts.Open(item, selection, app.checkoutHooks(item))

	app.sessionManager.Put(r.Context(), SessionKeyCheckoutID.String(), o.ID())

	err = app.writeJSON(w, http.StatusCreated, newCheckoutResponse(o.Snapshot()), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) GetCheckoutHandler(w http.ResponseWriter, r *http.Request) {
	o := app.contextGetCheckout(r)
	app.writeCheckout(w, r, o)
}

func (app *Application) ContinueCheckoutHandler(w http.ResponseWriter, r *http.Request) {
	o := app.contextGetCheckout(r)

	// the intent request outlives a client that hangs up
	err := o.Continue(context.WithoutCancel(r.Context()))
	if err != nil {
		app.checkoutErrorResponse(w, r, err)
		return
	}

	app.writeCheckout(w, r, o)
}

func (app *Application) ConfirmPaymentHandler(w http.ResponseWriter, r *http.Request) {
	o := app.contextGetCheckout(r)

	var input ConfirmPaymentRequest

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	err = o.ConfirmPayment(context.WithoutCancel(r.Context()), input.PaymentMethodID)
	if err != nil {
		app.checkoutErrorResponse(w, r, err)
		return
	}

	app.writeCheckout(w, r, o)
}

func (app *Application) RetryCheckoutHandler(w http.ResponseWriter, r *http.Request) {
	o := app.contextGetCheckout(r)

	err := o.Retry()
	if err != nil {
		app.checkoutErrorResponse(w, r, err)
		return
	}

	app.writeCheckout(w, r, o)
}

func (app *Application) ResetCheckoutHandler(w http.ResponseWriter, r *http.Request) {
	o := app.contextGetCheckout(r)

	err := o.Reset()
	if err != nil {
		app.checkoutErrorResponse(w, r, err)
		return
	}

	app.writeCheckout(w, r, o)
}

func (app *Application) SetCheckoutFocusHandler(w http.ResponseWriter, r *http.Request) {
	o := app.contextGetCheckout(r)

	var input FocusRequest

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	err = o.SetFocused(*input.Focused)
	if err != nil {
		app.checkoutErrorResponse(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (app *Application) CloseCheckoutHandler(w http.ResponseWriter, r *http.Request) {
	o := app.contextGetCheckout(r)

	err := app.checkouts.Close(o.ID())
	if err != nil {
		app.checkoutErrorResponse(w, r, err)
		return
	}

	app.sessionManager.Remove(r.Context(), SessionKeyCheckoutID.String())

	w.WriteHeader(http.StatusNoContent)
}

func (app *Application) writeCheckout(w http.ResponseWriter, r *http.Request, o *checkout.Orchestrator) {
	err := app.writeJSON(w, http.StatusOK, newCheckoutResponse(o.Snapshot()), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) checkoutErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		app.notFoundResponseWithErr(w, r, err)
	case checkout.IsRefusal(err):
		app.editConflictResponseWithErr(w, r, err)
	default:
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) checkoutHooks(item domain.PurchasableItem) checkout.Hooks {
	logger := app.logger.With("item_id", item.ID, "item_type", item.Type)

	return checkout.Hooks{
		OnPaymentConfirmed: func(rec domain.PaymentRecord) {
			attrs := []any{"payment_intent_id", rec.ID, "status", rec.Status}
			if rec.PurchaseID != nil {
				attrs = append(attrs, "purchase_id", *rec.PurchaseID)
			}
			logger.Info("payment confirmed", attrs...)
		},
		OnCheckoutFailed: func(message string) {
			logger.Warn("checkout failed", "reason", message)
		},
		OnClosed: func() {
			logger.Debug("checkout closed")
		},
	}
}
