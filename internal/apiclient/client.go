// Package apiclient is the typed client of the storefront REST API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/metinatakli/design-storefront/internal/cache"
	"github.com/metinatakli/design-storefront/internal/domain"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"
)

const (
	defaultTimeout       = 10 * time.Second
	defaultMaxTries      = 3
	defaultRetryInterval = 200 * time.Millisecond
	maxResponseBytes     = 1 << 20
)

type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	// MaxTries bounds the attempts made for a single call, including the first.
	MaxTries      uint
	RetryInterval time.Duration
	// BreakerFailures is the number of consecutive failures that opens the
	// circuit breaker.
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// Cache stores raw response bodies of cacheable queries.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, tags ...domain.Collection) error
}

type Client struct {
	baseURL       *url.URL
	token         string
	http          *http.Client
	breaker       *gobreaker.CircuitBreaker[[]byte]
	cache         Cache
	logger        *slog.Logger
	maxTries      uint
	retryInterval time.Duration
	group         singleflight.Group
}

func New(cfg Config, cache Cache, logger *slog.Logger) (*Client, error) {
	baseURL, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	if baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("invalid api base url %q", cfg.BaseURL)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxTries == 0 {
		cfg.MaxTries = defaultMaxTries
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = defaultRetryInterval
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}

	c := &Client{
		baseURL: baseURL,
		token:   cfg.Token,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		cache:         cache,
		logger:        logger,
		maxTries:      cfg.MaxTries,
		retryInterval: cfg.RetryInterval,
	}

	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "storefront-api",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
		// client errors say nothing about the health of the api
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			return err == nil || (errors.As(err, &apiErr) && !apiErr.Temporary())
		},
	})

	return c, nil
}

type request struct {
	method  string
	path    string
	query   url.Values
	body    any
	headers http.Header
}

// do sends req, retrying transient failures with exponential backoff, and
// returns the raw response body.
func (c *Client) do(ctx context.Context, req request) ([]byte, error) {
	var payload []byte
	if req.body != nil {
		var err error
		payload, err = json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	operation := func() ([]byte, error) {
		data, err := c.breaker.Execute(func() ([]byte, error) {
			return c.send(ctx, req, payload)
		})
		if err == nil {
			return data, nil
		}

		var apiErr *APIError
		switch {
		case errors.As(err, &apiErr) && !apiErr.Temporary(),
			errors.Is(err, gobreaker.ErrOpenState),
			errors.Is(err, gobreaker.ErrTooManyRequests),
			ctx.Err() != nil:
			return nil, backoff.Permanent(err)
		}

		c.logger.Debug("retrying remote api call", "method", req.method, "path", req.path, "error", err)

		return nil, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInterval

	return backoff.Retry(ctx, operation, backoff.WithBackOff(b), backoff.WithMaxTries(c.maxTries))
}

func (c *Client) send(ctx context.Context, req request, payload []byte) ([]byte, error) {
	u := c.baseURL.JoinPath(req.path)
	if len(req.query) > 0 {
		u.RawQuery = req.query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}
	if guest := GuestID(ctx); guest != "" {
		httpReq.Header.Set(GuestHeader, guest)
	}
	for key, values := range req.headers {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(data)}
	}

	return data, nil
}

func errorMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}

	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}

	if body.Message != "" {
		return body.Message
	}

	return body.Error
}

// cachedGet serves a GET query from the cache, sharing a single remote call
// between concurrent callers on a miss. Per-guest collections are cached
// under the guest taken from ctx.
func (c *Client) cachedGet(
	ctx context.Context,
	path string,
	query url.Values,
	tag domain.Collection,
	dst any) error {

	key := path
	if len(query) > 0 {
		key += "?" + query.Encode()
	}

	if tag.PerGuest() {
		guest := GuestID(ctx)
		if guest == "" {
			return ErrMissingGuest
		}
		key = "guest:" + guest + ":" + key
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if c.cache != nil {
			data, err := c.cache.Get(ctx, key)
			if err == nil {
				return data, nil
			}
			if !errors.Is(err, cache.ErrCacheMiss) {
				c.logger.Warn("cache get failed", "key", key, "error", err)
			}
		}

		data, err := c.do(ctx, request{method: http.MethodGet, path: path, query: query})
		if err != nil {
			return nil, err
		}

		if c.cache != nil {
			if err := c.cache.Set(ctx, key, data, tag); err != nil {
				c.logger.Warn("cache set failed", "key", key, "error", err)
			}
		}

		return data, nil
	})
	if err != nil {
		return err
	}

	return decode(v.([]byte), dst)
}

func decode(data []byte, dst any) error {
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}

	return nil
}
