package app

import (
	"errors"
	"net/http"

	"github.com/metinatakli/design-storefront/internal/domain"
)

func (app *Application) RefundPaymentHandler(w http.ResponseWriter, r *http.Request) {
	var input domain.RefundRequest

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

	if input.Amount != nil && !input.Amount.IsPositive() {
		app.unprocessableEntityResponse(w, r, errors.New("amount must be positive"))
		return
	}

	rec, err := app.api.RefundPayment(r.Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponseWithErr(w, r, errors.New("the payment does not exist"))
		default:
			app.badGatewayResponse(w, r, err)
		}
		return
	}

	// cached purchases and downloads catch up once their TTL runs out
	app.logger.Info("payment refunded", "payment_intent_id", rec.ID, "status", rec.Status)

	err = app.writeJSON(w, http.StatusOK, rec, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
