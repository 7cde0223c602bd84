package app

import (
	"errors"
	"net/http"

	"github.com/metinatakli/design-storefront/internal/domain"
)

const maxPageSize = 100

var errInvalidPagination = errors.New("page must be positive and pageSize must be between 1 and 100")

type PurchasesResponse struct {
	Purchases []domain.Purchase `json:"purchases"`
}

type DownloadsResponse struct {
	Downloads []domain.Download `json:"downloads"`
}

func (app *Application) ListDesignsHandler(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()

	filter := domain.DesignFilter{
		Pagination: domain.Pagination{
			Term: qs.Get("search"),
			Sort: qs.Get("sort"),
		},
		CategoryID: qs.Get("category"),
	}

	var err error

	filter.Page, err = readInt(qs, "page", 1)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	filter.PageSize, err = readInt(qs, "pageSize", 20)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if filter.Page < 1 || filter.PageSize < 1 || filter.PageSize > maxPageSize {
		app.badRequestResponse(w, r, errInvalidPagination)
		return
	}

	filter.Free, err = readBool(qs, "free")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	page, err := app.api.ListDesigns(r.Context(), filter)
	if err != nil {
		app.badGatewayResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, page, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) ListPurchasesHandler(w http.ResponseWriter, r *http.Request) {
	purchases, err := app.api.ListPurchases(r.Context())
	if err != nil {
		app.badGatewayResponse(w, r, err)
		return
	}

	if purchases == nil {
		purchases = []domain.Purchase{}
	}

	err = app.writeJSON(w, http.StatusOK, PurchasesResponse{Purchases: purchases}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) ListDownloadsHandler(w http.ResponseWriter, r *http.Request) {
	downloads, err := app.api.ListDownloads(r.Context())
	if err != nil {
		app.badGatewayResponse(w, r, err)
		return
	}

	if downloads == nil {
		downloads = []domain.Download{}
	}

	err = app.writeJSON(w, http.StatusOK, DownloadsResponse{Downloads: downloads}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
