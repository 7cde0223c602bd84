// Package poller follows a payment until the remote API reports a terminal
// status for it.
package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/metinatakli/design-storefront/internal/domain"
)

const (
	DefaultInterval = 3 * time.Second

	unverifiableFallback = "Unable to verify the payment status right now"
)

type StatusFetcher interface {
	GetPaymentStatus(ctx context.Context, paymentIntentID string) (domain.PaymentRecord, error)
}

type Config struct {
	Interval  time.Duration
	OnSuccess func(domain.PaymentRecord)
	OnFailure func(domain.PaymentRecord)
}

type Poller struct {
	fetcher  StatusFetcher
	clock    clockwork.Clock
	logger   *slog.Logger
	interval time.Duration
	onSucc   func(domain.PaymentRecord)
	onFail   func(domain.PaymentRecord)

	mu       sync.Mutex
	view     View
	last     *domain.PaymentRecord
	focused  bool
	started  bool
	finished bool
	requests int
	cancel   context.CancelFunc
	refocus  chan struct{}
	done     chan struct{}
}

func New(fetcher StatusFetcher, clock clockwork.Clock, logger *slog.Logger, cfg Config) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}

	return &Poller{
		fetcher:  fetcher,
		clock:    clock,
		logger:   logger,
		interval: cfg.Interval,
		onSucc:   cfg.OnSuccess,
		onFail:   cfg.OnFailure,
		view:     checking(),
		focused:  true,
		refocus:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Start begins polling in the background. It does nothing when called twice
// or when paymentIntentID is empty.
func (p *Poller) Start(ctx context.Context, paymentIntentID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started || p.finished {
		return
	}
	p.started = true

	if paymentIntentID == "" {
		p.finish()
		return
	}

	ctx, p.cancel = context.WithCancel(ctx)
	ticker := p.clock.NewTicker(p.interval)

	go p.run(ctx, ticker, paymentIntentID)
}

// Stop halts polling. No request is issued and no callback is started once
// Stop has returned; a callback that is already running is not interrupted.
// It is safe to call more than once.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.finish()
}

// SetFocused suspends polling while the hosting view is in the background.
// Regaining focus triggers an immediate fetch.
func (p *Poller) SetFocused(focused bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	wasFocused := p.focused
	p.focused = focused

	if focused && !wasFocused && p.started && !p.finished {
		select {
		case p.refocus <- struct{}{}:
		default:
		}
	}
}

func (p *Poller) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.view
}

// LastRecord returns the last successfully fetched record.
func (p *Poller) LastRecord() (domain.PaymentRecord, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.last == nil {
		return domain.PaymentRecord{}, false
	}

	return *p.last, true
}

// Requests returns the number of status requests issued so far.
func (p *Poller) Requests() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.requests
}

// Done is closed once polling has stopped for any reason.
func (p *Poller) Done() <-chan struct{} {
	return p.done
}

func (p *Poller) run(ctx context.Context, ticker clockwork.Ticker, id string) {
	defer ticker.Stop()

	// an unfocused start waits for refocus
	if p.isFocused() && p.poll(ctx, id) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if !p.isFocused() {
				continue
			}
		case <-p.refocus:
		}

		if p.poll(ctx, id) {
			return
		}
	}
}

// poll fetches the status once and reports whether polling is over.
func (p *Poller) poll(ctx context.Context, id string) bool {
	p.mu.Lock()
	if p.finished {
		p.mu.Unlock()
		return true
	}
	p.requests++
	p.mu.Unlock()

	rec, err := p.fetcher.GetPaymentStatus(ctx, id)

	p.mu.Lock()
	if p.finished {
		p.mu.Unlock()
		return true
	}

	if err != nil {
		p.logger.Warn("payment status check failed", "payment_intent_id", id, "error", err)
		p.view = unverifiable(domain.UserMessage(err, unverifiableFallback), p.last)
		p.mu.Unlock()
		return false
	}

	p.last = &rec
	p.view = viewOf(rec)

	if !rec.Status.IsTerminal() {
		p.mu.Unlock()
		return false
	}

	p.logger.Info("payment reached terminal status", "payment_intent_id", id, "status", rec.Status)
	p.finish()

	var callback func(domain.PaymentRecord)
	switch {
	case rec.Status.IsSuccess():
		callback = p.onSucc
	case rec.Status.IsFailure():
		callback = p.onFail
	}
	p.mu.Unlock()

	if callback != nil {
		callback(rec)
	}

	return true
}

func (p *Poller) isFocused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.focused
}

// finish must be called with p.mu held.
func (p *Poller) finish() {
	if p.finished {
		return
	}
	p.finished = true

	if p.cancel != nil {
		p.cancel()
	}

	close(p.done)
}
