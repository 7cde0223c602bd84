package integration_test

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/metinatakli/design-storefront/internal/app"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
)

const (
	cacheImageName = "redis:7"
	testAdminToken = "integration-admin-token"
)

type BaseSuite struct {
	suite.Suite
	app            *TestApp
	cacheContainer *RedisContainer
	server         *httptest.Server
}

func (s *BaseSuite) SetupSuite() {
	if testing.Short() {
		s.T().Skip("skipping integration tests in short mode")
	}

	ctx := context.Background()

	redisContainer, err := getCacheContainer(ctx)
	if err != nil {
		s.T().Fatalf("failed to start container: %s", err)
	}

	s.cacheContainer = redisContainer

	cfg := app.Config{
		Port:       3000,
		Env:        "test",
		AdminToken: testAdminToken,
		Redis: app.RedisConfig{
			URL:          redisContainer.ConnectionString,
			MaxOpenConns: 10,
			MaxIdleConns: 10,
			MaxIdleTime:  2 * time.Minute,
		},
		API: app.APIConfig{
			Token:         "integration-api-token",
			Timeout:       2 * time.Second,
			MaxTries:      1,
			RetryInterval: 10 * time.Millisecond,
			CacheTTL:      time.Minute,
		},
		Stripe: app.StripeConfig{
			PublishableKey: "pk_test_integration",
			ReturnURL:      "https://example.com/checkout/complete",
		},
		Checkout: app.CheckoutConfig{
			GracePeriod:  50 * time.Millisecond,
			CloseDelay:   500 * time.Millisecond,
			PollInterval: 50 * time.Millisecond,
		},
		Session: app.SessionConfig{
			IdleTimeout: time.Minute,
		},
	}

	testApp, err := newTestApp(cfg)
	if err != nil {
		s.T().Fatalf("cannot initialize app: %s", err)
	}

	s.app = testApp
	s.server = httptest.NewServer(testApp.App.Routes())
}

func (s *BaseSuite) TearDownSuite() {
	if s.server != nil {
		s.server.Close()
	}
	if s.app != nil {
		s.app.App.CloseCheckouts()
		s.app.Close()
	}
	if s.cacheContainer != nil {
		if err := testcontainers.TerminateContainer(s.cacheContainer.Container); err != nil {
			log.Printf("failed to terminate container: %s", err)
		}
	}
}

// newClient returns an HTTP client keeping its own guest session.
func (s *BaseSuite) newClient() *http.Client {
	jar, err := cookiejar.New(nil)
	s.Require().NoError(err)

	return &http.Client{Jar: jar, Timeout: 5 * time.Second}
}

type Scenario struct {
	Name             string
	Method           string
	URL              string
	Body             io.Reader
	Headers          map[string]string
	ExpectedStatus   int
	ExpectedResponse string
	BeforeTestFunc   func(t testing.TB, app *TestApp)
	AfterTestFunc    func(t testing.TB, app *TestApp, res *http.Response)
}

// Run sends the scenario request to server through client so that session
// cookies carry over between scenarios sharing a client.
func (s Scenario) Run(t *testing.T, testApp *TestApp, server *httptest.Server, client *http.Client) {
	t.Run(s.Name, func(t *testing.T) {
		if s.BeforeTestFunc != nil {
			s.BeforeTestFunc(t, testApp)
		}

		req, err := prepareRequest(s.Method, server.URL+s.URL, s.Body, s.Headers)
		require.NoError(t, err)

		res, err := client.Do(req)
		require.NoError(t, err)
		defer res.Body.Close()

		assert.Equal(t, s.ExpectedStatus, res.StatusCode)

		if s.ExpectedResponse != "" {
			compareResponse(t, res.Body, s.ExpectedResponse)
		}

		if s.AfterTestFunc != nil {
			s.AfterTestFunc(t, testApp, res)
		}
	})
}
