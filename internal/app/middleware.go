package app

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/metinatakli/design-storefront/internal/apiclient"
	"github.com/metinatakli/design-storefront/internal/domain"
)

func (app *Application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")

				app.serverErrorResponse(w, r, fmt.Errorf("%s", err))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// ensureGuestSession gives every visitor a guest id kept in the HTTP session.
// Remote API calls made while serving the request carry that id.
func (app *Application) ensureGuestSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		guestId := app.sessionManager.GetString(r.Context(), SessionKeyGuest.String())

		if guestId == "" {
			guestId = uuid.NewString()
			app.sessionManager.Put(r.Context(), SessionKeyGuest.String(), guestId)

			_, _, err := app.sessionManager.Commit(r.Context())
			if err != nil {
				app.serverErrorResponse(w, r, err)
				return
			}
		}

		next.ServeHTTP(w, r.WithContext(apiclient.WithGuest(r.Context(), guestId)))
	})
}

// requireCheckout loads the checkout session bound to the HTTP session. A
// binding to a session that has since closed is dropped.
func (app *Application) requireCheckout(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checkoutId := app.sessionManager.GetString(r.Context(), SessionKeyCheckoutID.String())
		if checkoutId == "" {
			app.notFoundResponseWithErr(w, r, domain.ErrSessionNotFound)
			return
		}

		o, err := app.checkouts.Get(checkoutId)
		if err != nil {
			if errors.Is(err, domain.ErrSessionNotFound) {
				app.sessionManager.Remove(r.Context(), SessionKeyCheckoutID.String())
				app.notFoundResponseWithErr(w, r, err)
				return
			}

			app.serverErrorResponse(w, r, err)
			return
		}

		next.ServeHTTP(w, app.contextSetCheckout(r, o))
	})
}

func (app *Application) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || app.config.AdminToken == "" ||
			subtle.ConstantTimeCompare([]byte(token), []byte(app.config.AdminToken)) != 1 {

			app.unauthorizedAccessResponse(w, r)
			return
		}

		next.ServeHTTP(w, r)
	})
}
