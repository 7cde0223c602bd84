package integration_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/metinatakli/design-storefront/internal/app"
	"github.com/metinatakli/design-storefront/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type CheckoutTestSuite struct {
	BaseSuite
}

func TestCheckoutTestSuite(t *testing.T) {
	suite.Run(t, new(CheckoutTestSuite))
}

func (s *CheckoutTestSuite) SetupSuite() {
	s.BaseSuite.SetupSuite()

	s.app.Storefront.AddItem(domain.PurchasableItem{
		ID:             "design_1",
		Type:           domain.ProductTypeDesign,
		Name:           "Botanical Poster",
		BasePrice:      decimal.RequireFromString("39.99"),
		FinalPrice:     decimal.RequireFromString("29.99"),
		Currency:       "usd",
		CurrencySymbol: "$",
	})
	s.app.Storefront.AddItem(domain.PurchasableItem{
		ID:             "plan_pro",
		Type:           domain.ProductTypeSubscription,
		Name:           "Pro Plan",
		BasePrice:      decimal.RequireFromString("12"),
		Currency:       "EUR",
		CurrencySymbol: "€",
	})
}

func (s *CheckoutTestSuite) SetupTest() {
	s.app.Storefront.FailIntents("")
	s.app.Stripe.SetStatus("succeeded")
}

func (s *CheckoutTestSuite) send(client *http.Client, method, path string, body any) *http.Response {
	var req *http.Request
	var err error

	if body != nil {
		req, err = prepareRequest(method, s.server.URL+path, jsonBody(s.T(), body), nil)
	} else {
		req, err = prepareRequest(method, s.server.URL+path, nil, nil)
	}
	s.Require().NoError(err)

	res, err := client.Do(req)
	s.Require().NoError(err)

	return res
}

func (s *CheckoutTestSuite) sendCheckout(client *http.Client, method, path string, body any) app.CheckoutResponse {
	res := s.send(client, method, path, body)
	defer res.Body.Close()

	s.Require().Contains([]int{http.StatusOK, http.StatusCreated}, res.StatusCode)

	return decodeResponse[app.CheckoutResponse](s.T(), res)
}

func (s *CheckoutTestSuite) purchases(client *http.Client) []domain.Purchase {
	res := s.send(client, http.MethodGet, "/account/purchases", nil)
	defer res.Body.Close()

	s.Require().Equal(http.StatusOK, res.StatusCode)

	return decodeResponse[app.PurchasesResponse](s.T(), res).Purchases
}

func (s *CheckoutTestSuite) TestCheckoutRoutesWithoutCheckout() {
	client := s.newClient()

	scenarios := []Scenario{
		{
			Name:             "should fail to read a checkout that was never opened",
			Method:           http.MethodGet,
			URL:              "/checkout",
			ExpectedStatus:   http.StatusNotFound,
			ExpectedResponse: fmt.Sprintf(`{"message": %q}`, domain.ErrSessionNotFound.Error()),
		},
		{
			Name:           "should fail to open a checkout for an unknown design",
			Method:         http.MethodPost,
			URL:            "/checkout",
			Body:           jsonBody(s.T(), map[string]string{"purchaseType": "design", "designId": "design_404"}),
			ExpectedStatus: http.StatusNotFound,
			ExpectedResponse: `{
				"message": "the selected item does not exist"
			}`,
		},
		{
			Name:           "should fail to open a subscription checkout without a plan",
			Method:         http.MethodPost,
			URL:            "/checkout",
			Body:           jsonBody(s.T(), map[string]string{"purchaseType": "subscription"}),
			ExpectedStatus: http.StatusUnprocessableEntity,
			ExpectedResponse: `{
				"message": "One or more fields have invalid values",
				"validationErrors": [
					{"field": "planId", "issue": "is required for this purchase type"}
				]
			}`,
		},
	}

	for _, scenario := range scenarios {
		scenario.Run(s.T(), s.app, s.server, client)
	}
}

func (s *CheckoutTestSuite) TestCompletePurchase() {
	client := s.newClient()

	// warm the purchases cache
	before := s.purchases(client)
	hits := s.app.Storefront.Hits("/purchases")
	s.purchases(client)
	s.Equal(hits, s.app.Storefront.Hits("/purchases"), "purchases should be served from the cache")

	opened := s.sendCheckout(client, http.MethodPost, "/checkout", map[string]string{
		"purchaseType": "design",
		"designId":     "design_1",
	})
	s.Equal(domain.StepDetails, opened.Step)
	s.Equal("$29.99", opened.DisplayPrice)

	payment := s.sendCheckout(client, http.MethodPost, "/checkout/continue", nil)
	s.Require().Equal(domain.StepPayment, payment.Step)
	s.Require().NotEmpty(payment.PaymentIntentID)
	s.Require().NotNil(payment.Elements)
	s.Equal("pk_test_integration", payment.Elements.PublishableKey)

	requests := s.app.Storefront.IntentRequests()
	s.Require().NotEmpty(requests)
	s.Equal(domain.CreateIntentRequest{
		ProductType: domain.ProductTypeDesign,
		ProductID:   "design_1",
		Currency:    "USD",
	}, requests[len(requests)-1])

	stripeCalls := s.app.Stripe.Calls()
	confirmed := s.sendCheckout(client, http.MethodPost, "/checkout/confirm", map[string]string{
		"paymentMethodId": "pm_card_visa",
	})
	s.Nil(confirmed.Error)
	s.Equal(stripeCalls+1, s.app.Stripe.Calls())

	s.app.Storefront.SetPaymentStatus(domain.PaymentRecord{
		ID:       payment.PaymentIntentID,
		Status:   domain.PaymentStatusSucceeded,
		Amount:   decimal.RequireFromString("29.99"),
		Currency: "USD",
	})

	s.Eventually(func() bool {
		snap := s.sendCheckout(client, http.MethodGet, "/checkout", nil)
		return snap.Step == domain.StepSuccess && snap.IsRedirecting
	}, 3*time.Second, 25*time.Millisecond)

	// a confirmed payment drops the cached purchases
	s.Eventually(func() bool {
		return len(s.purchases(client)) == len(before)+1
	}, 3*time.Second, 25*time.Millisecond)
	s.Greater(s.app.Storefront.Hits("/purchases"), hits)
	s.Empty(s.purchases(s.newClient()), "purchases belong to the guest who paid")

	s.Eventually(func() bool {
		res := s.send(client, http.MethodGet, "/checkout", nil)
		defer res.Body.Close()
		return res.StatusCode == http.StatusNotFound
	}, 3*time.Second, 25*time.Millisecond, "verified checkout should close itself")
}

func (s *CheckoutTestSuite) TestIntentFailureAndRetry() {
	client := s.newClient()

	s.sendCheckout(client, http.MethodPost, "/checkout", map[string]string{
		"purchaseType": "subscription",
		"planId":       "plan_pro",
	})

	s.app.Storefront.FailIntents("Subscriptions are paused in your region")

	failed := s.sendCheckout(client, http.MethodPost, "/checkout/continue", nil)
	s.Equal(domain.StepError, failed.Step)
	s.Require().NotNil(failed.Error)
	s.Equal(domain.ErrorKindIntentCreation, failed.Error.Kind)
	s.Equal("Subscriptions are paused in your region", failed.Error.Message)
	s.Empty(failed.PaymentIntentID)

	requests := s.app.Storefront.IntentRequests()
	s.Require().NotEmpty(requests)
	s.Equal(domain.CreateIntentRequest{
		ProductType: domain.ProductTypeSubscription,
		ProductID:   "plan_pro",
		Currency:    "EUR",
	}, requests[len(requests)-1])

	s.app.Storefront.FailIntents("")

	retried := s.sendCheckout(client, http.MethodPost, "/checkout/retry", nil)
	s.Equal(domain.StepDetails, retried.Step)
	s.Nil(retried.Error)

	payment := s.sendCheckout(client, http.MethodPost, "/checkout/continue", nil)
	s.Equal(domain.StepPayment, payment.Step)
	s.NotEmpty(payment.PaymentIntentID)

	res := s.send(client, http.MethodDelete, "/checkout", nil)
	res.Body.Close()
	s.Equal(http.StatusNoContent, res.StatusCode)

	res = s.send(client, http.MethodGet, "/checkout", nil)
	res.Body.Close()
	s.Equal(http.StatusNotFound, res.StatusCode)
}

func (s *CheckoutTestSuite) TestDeclinedCard() {
	client := s.newClient()

	s.sendCheckout(client, http.MethodPost, "/checkout", map[string]string{
		"purchaseType": "design",
		"designId":     "design_1",
	})
	s.sendCheckout(client, http.MethodPost, "/checkout/continue", nil)

	s.app.Stripe.SetStatus("requires_payment_method")

	declined := s.sendCheckout(client, http.MethodPost, "/checkout/confirm", map[string]string{
		"paymentMethodId": "pm_card_chargeDeclined",
	})
	s.Equal(domain.StepError, declined.Step)
	s.Require().NotNil(declined.Error)
	s.Equal(domain.ErrorKindConfirmation, declined.Error.Kind)
	s.False(declined.Confirming)
}

func (s *CheckoutTestSuite) TestSessionsAreIsolated() {
	alice := s.newClient()
	bob := s.newClient()

	s.sendCheckout(alice, http.MethodPost, "/checkout", map[string]string{
		"purchaseType": "design",
		"designId":     "design_1",
	})

	res := s.send(bob, http.MethodGet, "/checkout", nil)
	defer res.Body.Close()

	s.Equal(http.StatusNotFound, res.StatusCode)
}

type CatalogTestSuite struct {
	BaseSuite
}

func TestCatalogTestSuite(t *testing.T) {
	suite.Run(t, new(CatalogTestSuite))
}

func (s *CatalogTestSuite) TestCatalog() {
	s.app.Storefront.AddItem(domain.PurchasableItem{
		ID:             "design_7",
		Type:           domain.ProductTypeDesign,
		Name:           "Line Art Set",
		BasePrice:      decimal.RequireFromString("5"),
		Currency:       "USD",
		CurrencySymbol: "$",
	})

	client := s.newClient()

	scenarios := []Scenario{
		{
			Name:           "should list designs from the storefront API",
			Method:         http.MethodGet,
			URL:            "/catalog/designs?page=1&pageSize=20",
			ExpectedStatus: http.StatusOK,
			AfterTestFunc: func(t testing.TB, _ *TestApp, res *http.Response) {
				page := decodeResponse[domain.DesignPage](t, res)
				require.Len(t, page.Designs, 1)
				assert.Equal(t, "Line Art Set", page.Designs[0].Name)
			},
		},
		{
			Name:           "should reject an oversized page",
			Method:         http.MethodGet,
			URL:            "/catalog/designs?pageSize=1000",
			ExpectedStatus: http.StatusBadRequest,
		},
		{
			Name:             "should list no downloads for a new guest",
			Method:           http.MethodGet,
			URL:              "/account/downloads",
			ExpectedStatus:   http.StatusOK,
			ExpectedResponse: `{"downloads": []}`,
		},
		{
			Name:           "should report the cache as up",
			Method:         http.MethodGet,
			URL:            "/healthcheck",
			ExpectedStatus: http.StatusOK,
			AfterTestFunc: func(t testing.TB, _ *TestApp, res *http.Response) {
				health := decodeResponse[app.HealthcheckResponse](t, res)
				assert.Equal(t, "UP", health.Cache)
			},
		},
		{
			Name:           "should refuse refunds without the admin token",
			Method:         http.MethodPost,
			URL:            "/admin/payments/refund",
			Body:           jsonBody(s.T(), map[string]string{"paymentIntentId": "pi_1"}),
			ExpectedStatus: http.StatusUnauthorized,
		},
	}

	for _, scenario := range scenarios {
		scenario.Run(s.T(), s.app, s.server, client)
	}
}
