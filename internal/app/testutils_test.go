package app

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alexedwards/scs/v2"
	"github.com/jonboulle/clockwork"
	"github.com/metinatakli/design-storefront/internal/checkout"
	"github.com/metinatakli/design-storefront/internal/domain"
	"github.com/metinatakli/design-storefront/internal/mocks"
	"github.com/metinatakli/design-storefront/internal/validator"
)

const testAdminToken = "admin-secret"

type testDeps struct {
	api         *mocks.MockStorefrontAPI
	invalidator *mocks.MockCacheInvalidator
	widget      *mocks.MockPaymentWidget
	clock       *clockwork.FakeClock
}

func newTestDeps() *testDeps {
	return &testDeps{
		api:         new(mocks.MockStorefrontAPI),
		invalidator: new(mocks.MockCacheInvalidator),
		widget:      new(mocks.MockPaymentWidget),
		clock:       clockwork.NewFakeClock(),
	}
}

func newTestApplication(deps *testDeps, opts ...func(*Application)) *Application {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	app := &Application{
		config:         Config{Env: "test", AdminToken: testAdminToken},
		validator:      validator.NewValidator(),
		logger:         logger,
		sessionManager: scs.New(),
		api:            deps.api,
		checkouts: checkout.NewRegistry(checkout.RegistryParams{
			API:         deps.api,
			Invalidator: deps.invalidator,
			Widgets: func() domain.PaymentWidget {
				return deps.widget
			},
			Clock:  deps.clock,
			Logger: logger,
			Config: checkout.DefaultConfig(),
		}),
	}

	for _, opt := range opts {
		opt(app)
	}

	return app
}

// client replays the session cookie across requests the way a browser does.
type client struct {
	t       *testing.T
	handler http.Handler
	cookies map[string]*http.Cookie
}

func newClient(t *testing.T, handler http.Handler) *client {
	return &client{t: t, handler: handler, cookies: make(map[string]*http.Cookie)}
}

func (c *client) do(method, url string, body any, headers ...string) *httptest.ResponseRecorder {
	c.t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		jsonData, err := json.Marshal(b)
		if err != nil {
			c.t.Fatal(err)
		}
		reader = bytes.NewReader(jsonData)
	}

	r := httptest.NewRequest(method, url, reader)
	if reader != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		r.Header.Set(headers[i], headers[i+1])
	}
	for _, cookie := range c.cookies {
		r.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, r)

	for _, cookie := range w.Result().Cookies() {
		c.cookies[cookie.Name] = cookie
	}

	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	return v
}

func checkErrorResponse(t *testing.T, w *httptest.ResponseRecorder, tt struct {
	wantStatus     int
	wantErrMessage string
}) {
	t.Helper()

	if w.Code != tt.wantStatus {
		t.Fatalf("Status = %d, want %d (body: %s)", w.Code, tt.wantStatus, w.Body.String())
	}

	if tt.wantStatus >= 200 && tt.wantStatus < 300 {
		return
	}

	switch tt.wantStatus {
	case http.StatusUnprocessableEntity:
		var validationResp ValidationErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&validationResp); err != nil {
			t.Fatalf("Failed to decode validation error response: %v", err)
		}

		if validationResp.Message == tt.wantErrMessage {
			return
		}

		errorSet := make(map[string]bool)
		for _, vErr := range validationResp.ValidationErrors {
			errorSet[vErr.Issue] = true
		}

		if !errorSet[tt.wantErrMessage] {
			t.Errorf("Expected validation error message '%s' not found in response", tt.wantErrMessage)
		}

	default:
		var errorResp ErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&errorResp); err != nil {
			t.Fatalf("Failed to decode error response: %v", err)
		}

		if tt.wantErrMessage != "" && errorResp.Message != tt.wantErrMessage {
			t.Errorf("Error message = %v, want %v", errorResp.Message, tt.wantErrMessage)
		}
	}
}

func ptr[T any](v T) *T {
	return &v
}
