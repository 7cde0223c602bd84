package integration_test

import (
	"log/slog"
	"net/http/httptest"
	"os"

	"github.com/metinatakli/design-storefront/internal/apiclient"
	"github.com/metinatakli/design-storefront/internal/app"
	"github.com/metinatakli/design-storefront/internal/cache"
	"github.com/metinatakli/design-storefront/internal/domain"
	"github.com/metinatakli/design-storefront/internal/payment"
	appvalidator "github.com/metinatakli/design-storefront/internal/validator"
	"github.com/redis/go-redis/v9"
	"github.com/stripe/stripe-go/v82"
)

type TestApp struct {
	App         *app.Application
	RedisClient *redis.Client
	Storefront  *FakeStorefront
	Stripe      *FakeStripe

	storefrontServer *httptest.Server
	stripeServer     *httptest.Server
}

func newTestApp(cfg app.Config) (*TestApp, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	storefront := NewFakeStorefront()
	storefrontServer := httptest.NewServer(storefront)

	fakeStripe := NewFakeStripe()
	stripeServer := httptest.NewServer(fakeStripe)

	cfg.API.BaseURL = storefrontServer.URL

	redisClient, err := app.NewRedisClient(cfg)
	if err != nil {
		storefrontServer.Close()
		stripeServer.Close()
		return nil, err
	}

	responseCache := cache.NewRedisCache(redisClient, cfg.API.CacheTTL)

	client, err := apiclient.New(apiclient.Config{
		BaseURL:       cfg.API.BaseURL,
		Token:         cfg.API.Token,
		Timeout:       cfg.API.Timeout,
		MaxTries:      cfg.API.MaxTries,
		RetryInterval: cfg.API.RetryInterval,
	}, responseCache, logger)
	if err != nil {
		storefrontServer.Close()
		stripeServer.Close()
		redisClient.Close()
		return nil, err
	}

	elements := payment.NewStripeElements(payment.Config{
		PublishableKey: cfg.Stripe.PublishableKey,
		ReturnURL:      cfg.Stripe.ReturnURL,
		Backend: stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
			URL:               stripe.String(stripeServer.URL),
			MaxNetworkRetries: stripe.Int64(0),
			LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
		}),
	}, logger)

	registry := app.NewCheckoutRegistry(cfg, client, responseCache, func() domain.PaymentWidget {
		return elements.NewWidget()
	}, logger)

	application := app.NewApp(
		cfg,
		logger,
		redisClient,
		appvalidator.NewValidator(),
		app.NewSessionManager(redisClient, cfg),
		client,
		registry,
	)

	return &TestApp{
		App:              application,
		RedisClient:      redisClient,
		Storefront:       storefront,
		Stripe:           fakeStripe,
		storefrontServer: storefrontServer,
		stripeServer:     stripeServer,
	}, nil
}

func (a *TestApp) Close() {
	a.storefrontServer.Close()
	a.stripeServer.Close()
	a.RedisClient.Close()
}
