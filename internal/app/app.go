package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/goredisstore"
	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/metinatakli/design-storefront/internal/apiclient"
	"github.com/metinatakli/design-storefront/internal/cache"
	"github.com/metinatakli/design-storefront/internal/checkout"
	"github.com/metinatakli/design-storefront/internal/domain"
	"github.com/metinatakli/design-storefront/internal/payment"
	appvalidator "github.com/metinatakli/design-storefront/internal/validator"
	"github.com/metinatakli/design-storefront/internal/vcs"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/riandyrn/otelchi"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const serviceName = "design-storefront-checkout"

var (
	version = vcs.Version()
)

type Application struct {
	config         Config
	logger         *slog.Logger
	redis          redis.UniversalClient
	validator      *validator.Validate
	sessionManager *scs.SessionManager

	api       domain.StorefrontAPI
	checkouts *checkout.Registry
}

type Config struct {
	Port             int
	Env              string
	AdminToken       string
	OtelCollectorUrl string
	Redis            RedisConfig
	API              APIConfig
	Stripe           StripeConfig
	Checkout         CheckoutConfig
	Session          SessionConfig
}

type RedisConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	MaxIdleTime  time.Duration
}

type APIConfig struct {
	BaseURL         string
	Token           string
	Timeout         time.Duration
	MaxTries        uint
	RetryInterval   time.Duration
	BreakerFailures uint
	BreakerTimeout  time.Duration
	CacheTTL        time.Duration
}

type StripeConfig struct {
	PublishableKey string
	ReturnURL      string
}

type CheckoutConfig struct {
	GracePeriod  time.Duration
	CloseDelay   time.Duration
	PollInterval time.Duration
	IdleTimeout  time.Duration
}

type SessionConfig struct {
	IdleTimeout time.Duration
}

func Run() error {
	var cfg Config

	flag.IntVar(&cfg.Port, "port", 3000, "server port")
	flag.StringVar(&cfg.Env, "env", "dev", "Environment (dev|staging|prod)")
	flag.StringVar(&cfg.AdminToken, "admin-token", "", "Bearer token required by the admin routes")
	flag.StringVar(&cfg.OtelCollectorUrl, "otel-collector-url", "", "OpenTelemetry collector gRPC endpoint")

	flag.StringVar(&cfg.Redis.URL, "redis-url", "", "Redis URL")
	flag.IntVar(&cfg.Redis.MaxOpenConns, "redis-max-open-conns", 25, "Redis max open connections")
	flag.IntVar(&cfg.Redis.MaxIdleConns, "redis-max-idle-conns", 10, "Redis max idle connections")
	flag.DurationVar(&cfg.Redis.MaxIdleTime, "redis-max-idle-time", 2*time.Minute, "Redis max idle time for connections")

	flag.StringVar(&cfg.API.BaseURL, "api-base-url", "http://localhost:8080/api", "Storefront API base URL")
	flag.StringVar(&cfg.API.Token, "api-token", "", "Storefront API bearer token")
	flag.DurationVar(&cfg.API.Timeout, "api-timeout", 10*time.Second, "Storefront API request timeout")
	flag.UintVar(&cfg.API.MaxTries, "api-max-tries", 3, "Storefront API attempts per call")
	flag.DurationVar(&cfg.API.RetryInterval, "api-retry-interval", 200*time.Millisecond, "Storefront API initial retry interval")
	flag.UintVar(&cfg.API.BreakerFailures, "api-breaker-failures", 5, "Consecutive failures that open the circuit breaker")
	flag.DurationVar(&cfg.API.BreakerTimeout, "api-breaker-timeout", 30*time.Second, "Time the circuit breaker stays open")
	flag.DurationVar(&cfg.API.CacheTTL, "cache-ttl", cache.DefaultTTL, "Lifetime of cached storefront API responses")

	flag.StringVar(&cfg.Stripe.PublishableKey, "stripe-publishable-key", "", "Stripe publishable key")
	flag.StringVar(&cfg.Stripe.ReturnURL, "stripe-return-url", "https://example.com/checkout/complete", "Return URL for redirect based payment methods")

	flag.DurationVar(&cfg.Checkout.GracePeriod, "checkout-grace-period", checkout.DefaultGracePeriod, "Delay before a confirmed payment shows as successful")
	flag.DurationVar(&cfg.Checkout.CloseDelay, "checkout-close-delay", checkout.DefaultCloseDelay, "Delay before a verified checkout closes")
	flag.DurationVar(&cfg.Checkout.PollInterval, "checkout-poll-interval", checkout.DefaultConfig().PollInterval, "Payment status polling interval")
	flag.DurationVar(&cfg.Checkout.IdleTimeout, "checkout-idle-timeout", checkout.DefaultIdleTimeout, "Time an untouched checkout stays open")

	flag.DurationVar(&cfg.Session.IdleTimeout, "session-idle-timeout", 20*time.Minute, "HTTP session idle timeout")

	displayVersion := flag.Bool("version", false, "Display version and exit")

	flag.Parse()

	if *displayVersion {
		fmt.Printf("Version:\t%s\n", version)
		os.Exit(0)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	app := &Application{config: cfg, logger: logger}

	shutdownTelemetry, err := app.InitTelemetry()
	if err != nil {
		return err
	}
	defer shutdownTelemetry(context.Background())

	if cfg.OtelCollectorUrl != "" {
		logger = slog.New(NewMultiHandler(
			slog.NewTextHandler(os.Stdout, nil),
			otelslog.NewHandler(serviceName),
		))
	}

	redisClient, err := NewRedisClient(cfg)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	responseCache := cache.NewRedisCache(redisClient, cfg.API.CacheTTL)

	client, err := apiclient.New(cfg.API.clientConfig(), responseCache, logger)
	if err != nil {
		return err
	}

	elements := payment.NewStripeElements(payment.Config{
		PublishableKey: cfg.Stripe.PublishableKey,
		ReturnURL:      cfg.Stripe.ReturnURL,
	}, logger)

	registry := NewCheckoutRegistry(cfg, client, responseCache, func() domain.PaymentWidget {
		return elements.NewWidget()
	}, logger)

	app = NewApp(
		cfg,
		logger,
		redisClient,
		appvalidator.NewValidator(),
		NewSessionManager(redisClient, cfg),
		client,
		registry,
	)

	return app.run()
}

func NewApp(
	cfg Config,
	logger *slog.Logger,
	redisClient redis.UniversalClient,
	validator *validator.Validate,
	sessionManager *scs.SessionManager,
	api domain.StorefrontAPI,
	checkouts *checkout.Registry) *Application {

	return &Application{
		config:         cfg,
		logger:         logger,
		redis:          redisClient,
		validator:      validator,
		sessionManager: sessionManager,
		api:            api,
		checkouts:      checkouts,
	}
}

func (c APIConfig) clientConfig() apiclient.Config {
	return apiclient.Config{
		BaseURL:         c.BaseURL,
		Token:           c.Token,
		Timeout:         c.Timeout,
		MaxTries:        c.MaxTries,
		RetryInterval:   c.RetryInterval,
		BreakerFailures: uint32(c.BreakerFailures),
		BreakerTimeout:  c.BreakerTimeout,
	}
}

// NewCheckoutRegistry builds the registry holding the checkout sessions of
// this process.
func NewCheckoutRegistry(
	cfg Config,
	api domain.PaymentAPI,
	invalidator domain.CacheInvalidator,
	widgets checkout.WidgetFactory,
	logger *slog.Logger) *checkout.Registry {

	return checkout.NewRegistry(checkout.RegistryParams{
		API:         api,
		Invalidator: invalidator,
		Widgets:     widgets,
		Logger:      logger,
		IdleTimeout: cfg.Checkout.IdleTimeout,
		Config: checkout.Config{
			GracePeriod:  cfg.Checkout.GracePeriod,
			CloseDelay:   cfg.Checkout.CloseDelay,
			PollInterval: cfg.Checkout.PollInterval,
		},
	})
}

func NewSessionManager(client *redis.Client, cfg Config) *scs.SessionManager {
	sessionManager := scs.New()

	sessionManager.Store = goredisstore.New(client)
	sessionManager.IdleTimeout = cfg.Session.IdleTimeout
	if sessionManager.IdleTimeout <= 0 {
		sessionManager.IdleTimeout = 20 * time.Minute
	}
	sessionManager.Cookie.Name = "session_id"

	return sessionManager
}

func NewRedisClient(cfg Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.Redis.URL,
		MaxIdleConns:    cfg.Redis.MaxIdleConns,
		MaxActiveConns:  cfg.Redis.MaxOpenConns,
		ConnMaxIdleTime: cfg.Redis.MaxIdleTime,
	})

	if err := redisotel.InstrumentTracing(rdb); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("instrument redis tracing: %w", err)
	}

	if err := redisotel.InstrumentMetrics(rdb); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("instrument redis metrics: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err := rdb.Ping(ctx).Err()
	if err != nil {
		rdb.Close()
		return nil, err
	}

	return rdb, nil
}

func (app *Application) run() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%d", app.config.Port),
		Handler:      app.Routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelDebug),
	}

	shutdownError := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		app.logger.Info("shutting down server", "signal", s.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := srv.Shutdown(ctx)

		app.CloseCheckouts()

		shutdownError <- err
	}()

	app.logger.Info("starting server", "addr", srv.Addr, "env", app.config.Env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdownError
	if err != nil {
		return err
	}

	app.logger.Info("stopped server", "addr", srv.Addr)

	return nil
}

// CloseCheckouts tears down every live checkout session, including those
// waiting on an intent request.
func (app *Application) CloseCheckouts() {
	app.logger.Info("closing checkout sessions", "count", app.checkouts.Len())
	app.checkouts.CloseAll()
}

func (app *Application) Routes() http.Handler {
	r := chi.NewRouter()

	r.NotFound(app.notFoundResponse)
	r.MethodNotAllowed(app.methodNotAllowedResponse)

	r.Use(otelchi.Middleware(serviceName, otelchi.WithChiRoutes(r)))
	r.Use(middleware.Logger)
	r.Use(middleware.RequestID)
	r.Use(app.recoverPanic)

	r.Get("/healthcheck", app.GetHealth)

	r.Group(func(r chi.Router) {
		r.Use(app.sessionManager.LoadAndSave)
		r.Use(app.ensureGuestSession)

		r.Get("/catalog/designs", app.ListDesignsHandler)
		r.Get("/account/purchases", app.ListPurchasesHandler)
		r.Get("/account/downloads", app.ListDownloadsHandler)

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", app.CreateCheckoutHandler)

			r.Group(func(r chi.Router) {
				r.Use(app.requireCheckout)

				r.Get("/", app.GetCheckoutHandler)
				r.Delete("/", app.CloseCheckoutHandler)
				r.Post("/continue", app.ContinueCheckoutHandler)
				r.Post("/confirm", app.ConfirmPaymentHandler)
				r.Post("/retry", app.RetryCheckoutHandler)
				r.Post("/reset", app.ResetCheckoutHandler)
				r.Put("/focus", app.SetCheckoutFocusHandler)
			})
		})
	})

	r.With(app.requireAdmin).Route("/admin", func(r chi.Router) {
		r.Post("/payments/refund", app.RefundPaymentHandler)
	})

	return r
}
