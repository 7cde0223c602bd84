package integration_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/metinatakli/design-storefront/internal/apiclient"
	"github.com/metinatakli/design-storefront/internal/domain"
)

// FakeStorefront serves the subset of the storefront REST API the checkout
// service consumes.
type FakeStorefront struct {
	mu             sync.Mutex
	router         chi.Router
	items          map[string]domain.PurchasableItem
	designs        domain.DesignPage
	purchases      map[string][]domain.Purchase
	intentGuests   map[string]string
	statuses       map[string]domain.PaymentRecord
	intentRequests []domain.CreateIntentRequest
	intentError    string
	hits           map[string]int
	intents        int
}

func NewFakeStorefront() *FakeStorefront {
	f := &FakeStorefront{
		items:        make(map[string]domain.PurchasableItem),
		statuses:     make(map[string]domain.PaymentRecord),
		purchases:    make(map[string][]domain.Purchase),
		intentGuests: make(map[string]string),
		hits:         make(map[string]int),
	}

	r := chi.NewRouter()
	r.Use(f.countHits)
	r.Get("/designs", f.listDesigns)
	r.Get("/designs/{id}", f.getItem(domain.ProductTypeDesign))
	r.Get("/courses/{id}", f.getItem(domain.ProductTypeCourse))
	r.Get("/subscriptions/plans/{id}", f.getItem(domain.ProductTypeSubscription))
	r.Get("/purchases", f.listPurchases)
	r.Get("/downloads", f.listDownloads)
	r.Post("/payments/create", f.createIntent)
	r.Get("/payments/status/{id}", f.paymentStatus)
	f.router = r

	return f
}

func (f *FakeStorefront) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.router.ServeHTTP(w, r)
}

func (f *FakeStorefront) AddItem(item domain.PurchasableItem) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.items[itemKey(item.Type, item.ID)] = item
	if item.Type == domain.ProductTypeDesign {
		f.designs.Designs = append(f.designs.Designs, item)
		f.designs.Metadata = *domain.NewMetadata(len(f.designs.Designs), 1, 20)
	}
}

func (f *FakeStorefront) SetPaymentStatus(rec domain.PaymentRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.statuses[rec.ID] = rec
	if rec.Status.IsSuccess() {
		guest := f.intentGuests[rec.ID]
		f.purchases[guest] = append(f.purchases[guest], domain.Purchase{
			ID:              fmt.Sprintf("purchase_%s", rec.ID),
			PaymentIntentID: rec.ID,
			Status:          rec.Status,
			Amount:          rec.Amount,
			Currency:        rec.Currency,
		})
	}
}

func (f *FakeStorefront) FailIntents(message string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.intentError = message
}

func (f *FakeStorefront) Hits(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.hits[path]
}

func (f *FakeStorefront) IntentRequests() []domain.CreateIntentRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]domain.CreateIntentRequest(nil), f.intentRequests...)
}

func (f *FakeStorefront) countHits(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.hits[r.URL.Path]++
		f.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (f *FakeStorefront) listDesigns(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	page := f.designs
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, page)
}

func (f *FakeStorefront) getItem(productType domain.ProductType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		item, ok := f.items[itemKey(productType, chi.URLParam(r, "id"))]
		f.mu.Unlock()

		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "item not found"})
			return
		}

		writeJSON(w, http.StatusOK, item)
	}
}

func (f *FakeStorefront) listPurchases(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	purchases := append([]domain.Purchase{}, f.purchases[r.Header.Get(apiclient.GuestHeader)]...)
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, purchases)
}

func (f *FakeStorefront) listDownloads(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, []domain.Download{})
}

func (f *FakeStorefront) createIntent(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.intentRequests = append(f.intentRequests, req)

	if f.intentError != "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": f.intentError})
		return
	}

	f.intents++
	id := fmt.Sprintf("pi_%d", f.intents)
	f.intentGuests[id] = r.Header.Get(apiclient.GuestHeader)

	writeJSON(w, http.StatusOK, domain.PaymentIntentHandle{
		PaymentIntentID: id,
		ClientSecret:    id + "_secret_test",
	})
}

func (f *FakeStorefront) paymentStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	f.mu.Lock()
	rec, ok := f.statuses[id]
	f.mu.Unlock()

	if !ok {
		rec = domain.PaymentRecord{ID: id, Status: domain.PaymentStatusPending}
	}

	writeJSON(w, http.StatusOK, rec)
}

// FakeStripe answers payment intent confirmations the way the Stripe API does.
type FakeStripe struct {
	mu     sync.Mutex
	status string
	calls  int
}

func NewFakeStripe() *FakeStripe {
	return &FakeStripe{status: "succeeded"}
}

func (f *FakeStripe) SetStatus(status string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.status = status
}

func (f *FakeStripe) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls
}

func (f *FakeStripe) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path, ok := strings.CutPrefix(r.URL.Path, "/v1/payment_intents/")
	id, confirm := strings.CutSuffix(path, "/confirm")
	if !ok || !confirm || r.Method != http.MethodPost {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": map[string]string{"message": "unknown route"}})
		return
	}

	f.mu.Lock()
	f.calls++
	status := f.status
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"id":     id,
		"object": "payment_intent",
		"status": status,
	})
}

func itemKey(productType domain.ProductType, id string) string {
	return productType.String() + "/" + id
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
