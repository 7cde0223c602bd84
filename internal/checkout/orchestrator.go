// Package checkout drives a single checkout attempt from the order summary
// through payment confirmation.
package checkout

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/metinatakli/design-storefront/internal/domain"
	"github.com/metinatakli/design-storefront/internal/poller"
)

const (
	DefaultGracePeriod = 2 * time.Second
	DefaultCloseDelay  = 3 * time.Second

	intentFallbackMessage       = "We could not start the payment. Please try again."
	confirmationFallbackMessage = "Payment failed. Please try again."
	actionFallbackMessage       = "Additional action is required to complete this payment."
	missingSecretMessage        = "The payment could not be initialized. Please try again."
)

var staleCollections = []domain.Collection{
	domain.CollectionPurchases,
	domain.CollectionDownloads,
	domain.CollectionCatalog,
}

type Config struct {
	// GracePeriod delays the success step after the widget reports a
	// provisional success.
	GracePeriod time.Duration
	// CloseDelay is how long a confirmed session stays open before closing.
	CloseDelay   time.Duration
	PollInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		GracePeriod:  DefaultGracePeriod,
		CloseDelay:   DefaultCloseDelay,
		PollInterval: poller.DefaultInterval,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.GracePeriod <= 0 {
		c.GracePeriod = def.GracePeriod
	}
	if c.CloseDelay <= 0 {
		c.CloseDelay = def.CloseDelay
	}
	if c.PollInterval <= 0 {
		c.PollInterval = def.PollInterval
	}
	return c
}

// Hooks are notifications to the embedding context. They are called without
// any orchestrator lock held.
type Hooks struct {
	OnPaymentConfirmed func(domain.PaymentRecord)
	OnCheckoutFailed   func(message string)
	OnClosed           func()
}

type Params struct {
	ID          string
	Item        domain.PurchasableItem
	Selection   Selection
	API         domain.PaymentAPI
	Widget      domain.PaymentWidget
	Invalidator domain.CacheInvalidator
	Clock       clockwork.Clock
	Logger      *slog.Logger
	Config      Config
	Hooks       Hooks
}

type Action string

const (
	ActionContinue Action = "continue"
	ActionConfirm  Action = "confirm"
	ActionRetry    Action = "retry"
	ActionCancel   Action = "cancel"
)

type Snapshot struct {
	Session    domain.CheckoutSession
	Elements   *domain.ElementsConfig
	Payment    *poller.View
	Actions    []Action
	Confirming bool
	Closed     bool
}

type Orchestrator struct {
	id          string
	api         domain.PaymentAPI
	widget      domain.PaymentWidget
	invalidator domain.CacheInvalidator
	clock       clockwork.Clock
	logger      *slog.Logger
	cfg         Config
	hooks       Hooks
	metrics     *metrics

	mu        sync.Mutex
	session   domain.CheckoutSession
	selection Selection
	elements  *domain.ElementsConfig
	lastErr   *domain.CheckoutError
	// epoch changes whenever the session is retried, reset or closed, so
	// completions that belong to an earlier attempt can be recognized.
	epoch           uint64
	closed          bool
	confirming      bool
	confirmedIntent string
	focused         bool
	delivered       bool
	graceTimer      clockwork.Timer
	closeTimer      clockwork.Timer
	poller          *poller.Poller
}

func New(p Params) *Orchestrator {
	clock := p.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		id:          p.ID,
		api:         p.API,
		widget:      p.Widget,
		invalidator: p.Invalidator,
		clock:       clock,
		logger:      logger.With("checkout_id", p.ID),
		cfg:         p.Config.withDefaults(),
		hooks:       p.Hooks,
		metrics:     newMetrics(),
		session:     newSession(p.ID, p.Item),
		selection:   p.Selection,
		focused:     true,
	}
}

func newSession(id string, item domain.PurchasableItem) domain.CheckoutSession {
	return domain.CheckoutSession{ID: id, Step: domain.StepDetails, Item: item}
}

func (o *Orchestrator) ID() string {
	return o.id
}

// Continue confirms the order summary and requests a payment intent. It
// blocks until the intent request completes. Failures are recorded on the
// session; the returned error only reports a refused operation.
func (o *Orchestrator) Continue(ctx context.Context) error {
	o.mu.Lock()

	if o.closed {
		o.mu.Unlock()
		return domain.ErrSessionClosed
	}

	if o.session.Step == domain.StepProcessing {
		o.mu.Unlock()
		return domain.ErrCheckoutInProgress
	}

	if err := o.apply(EventContinue); err != nil {
		o.mu.Unlock()
		return err
	}

	req, err := o.selection.Resolve(o.session.Item)
	if err != nil {
		o.fail(EventIntentFailed, domain.ErrorKindPrecondition, err, domain.UserMessage(err, intentFallbackMessage))
		o.mu.Unlock()
		return nil
	}

	epoch := o.epoch
	o.mu.Unlock()

	handle, err := o.api.CreatePaymentIntent(ctx, req)

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.stale(epoch) {
		return domain.ErrSessionClosed
	}

	if err != nil {
		o.logger.Warn("payment intent creation failed", "product_id", req.ProductID, "error", err)
		o.fail(EventIntentFailed, domain.ErrorKindIntentCreation, err, domain.UserMessage(err, intentFallbackMessage))
		return nil
	}

	if handle.ClientSecret == "" {
		o.fail(EventIntentFailed, domain.ErrorKindIntentCreation, nil, missingSecretMessage)
		return nil
	}

	if err := o.apply(EventIntentCreated); err != nil {
		return err
	}

	o.session.Intent = &handle
	elements := o.widget.Mount(handle)
	o.elements = &elements

	o.logger.Info("payment intent created", "intent", handle)

	return nil
}

// ConfirmPayment hands the mounted payment form to the widget. A provisional
// success moves the session to the success step once the grace period has
// elapsed.
func (o *Orchestrator) ConfirmPayment(ctx context.Context, paymentMethodID string) error {
	o.mu.Lock()

	if o.closed {
		o.mu.Unlock()
		return domain.ErrSessionClosed
	}

	if o.session.Step != domain.StepPayment {
		o.mu.Unlock()
		return domain.ErrInvalidTransition
	}

	if o.confirming {
		o.mu.Unlock()
		return domain.ErrCheckoutInProgress
	}

	o.confirming = true
	epoch := o.epoch
	widget := o.widget
	o.mu.Unlock()

	result, err := widget.Confirm(ctx, paymentMethodID)

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.stale(epoch) {
		o.logger.Info("dropping confirmation result of a torn down checkout", "result", result.Kind)
		return domain.ErrSessionClosed
	}

	if err != nil {
		o.confirming = false
		o.fail(EventConfirmFailed, domain.ErrorKindPrecondition, err, domain.UserMessage(err, confirmationFallbackMessage))
		return nil
	}

	switch result.Kind {
	case domain.ConfirmationSucceeded:
		if err := o.apply(EventConfirmSucceeded); err != nil {
			return err
		}

		o.confirmedIntent = result.PaymentIntentID
		if o.confirmedIntent == "" && o.session.Intent != nil {
			o.confirmedIntent = o.session.Intent.PaymentIntentID
		}

		o.graceTimer = o.clock.AfterFunc(o.cfg.GracePeriod, func() {
			o.graceElapsed(epoch)
		})
	case domain.ConfirmationRequiresAction:
		o.confirming = false
		o.fail(EventConfirmRequiresAction, domain.ErrorKindActionRequired, nil, nonEmpty(result.Message, actionFallbackMessage))
	default:
		o.confirming = false
		o.fail(EventConfirmFailed, domain.ErrorKindConfirmation, nil, nonEmpty(result.Message, confirmationFallbackMessage))
	}

	return nil
}

// Retry returns a failed checkout to the details step. A new intent is
// requested on the next Continue.
func (o *Orchestrator) Retry() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return domain.ErrSessionClosed
	}

	if err := o.apply(EventRetry); err != nil {
		return err
	}

	o.clearAttempt()

	return nil
}

// Reset clears the session back to the details step. It is refused while an
// intent request is in flight.
func (o *Orchestrator) Reset() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return domain.ErrSessionClosed
	}

	if o.session.Step == domain.StepProcessing {
		return domain.ErrCheckoutInProgress
	}

	from := o.session.Step
	o.clearAttempt()
	o.session = newSession(o.session.ID, o.session.Item)
	o.logger.Debug("checkout reset", "from", from)

	return nil
}

// Close tears the session down. No transition or hook other than OnClosed
// happens afterwards. Closing twice is a no-op.
func (o *Orchestrator) Close() error {
	o.mu.Lock()

	if o.closed {
		o.mu.Unlock()
		return nil
	}

	if o.session.Step == domain.StepProcessing {
		o.mu.Unlock()
		return domain.ErrCheckoutInProgress
	}

	hook := o.teardown()
	o.mu.Unlock()

	if hook != nil {
		hook()
	}

	return nil
}

// shutdown closes the session even while an intent request is in flight.
func (o *Orchestrator) shutdown() {
	o.mu.Lock()

	if o.closed {
		o.mu.Unlock()
		return
	}

	hook := o.teardown()
	o.mu.Unlock()

	if hook != nil {
		hook()
	}
}

// SetFocused forwards the visibility of the hosting page to the poller.
func (o *Orchestrator) SetFocused(focused bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return domain.ErrSessionClosed
	}

	o.focused = focused
	if o.poller != nil {
		o.poller.SetFocused(focused)
	}

	return nil
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	snap := Snapshot{
		Session:    o.session,
		Confirming: o.confirming,
		Closed:     o.closed,
		Actions:    o.actions(),
	}

	if o.session.Intent != nil {
		intent := *o.session.Intent
		snap.Session.Intent = &intent
	}

	if o.session.Error != nil {
		failure := *o.session.Error
		snap.Session.Error = &failure
	}

	if o.elements != nil && o.session.Step == domain.StepPayment {
		elements := *o.elements
		snap.Elements = &elements
	}

	if o.poller != nil {
		view := o.poller.View()
		snap.Payment = &view
	}

	return snap
}

// Err returns the failure that moved the session to the error step, if any.
func (o *Orchestrator) Err() *domain.CheckoutError {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.lastErr
}

func (o *Orchestrator) actions() []Action {
	if o.closed {
		return nil
	}

	switch o.session.Step {
	case domain.StepDetails:
		return []Action{ActionContinue, ActionCancel}
	case domain.StepPayment:
		if o.confirming {
			return []Action{ActionCancel}
		}
		return []Action{ActionConfirm, ActionCancel}
	case domain.StepSuccess:
		if o.session.IsRedirecting {
			return nil
		}
		return []Action{ActionCancel}
	case domain.StepError:
		return []Action{ActionRetry, ActionCancel}
	default:
		return nil
	}
}

func (o *Orchestrator) graceElapsed(epoch uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.stale(epoch) {
		return
	}

	if err := o.apply(EventGraceElapsed); err != nil {
		return
	}

	o.confirming = false
	o.graceTimer = nil

	p := poller.New(o.api, o.clock, o.logger, poller.Config{
		Interval:  o.cfg.PollInterval,
		OnSuccess: func(rec domain.PaymentRecord) { o.paymentConfirmed(epoch, rec) },
		OnFailure: func(rec domain.PaymentRecord) { o.paymentFailed(epoch, rec) },
	})
	p.SetFocused(o.focused)
	o.poller = p

	p.Start(context.Background(), o.confirmedIntent)
}

func (o *Orchestrator) paymentConfirmed(epoch uint64, rec domain.PaymentRecord) {
	o.mu.Lock()

	if o.stale(epoch) || o.delivered {
		o.mu.Unlock()
		return
	}

	if err := o.apply(EventPaymentConfirmed); err != nil {
		o.mu.Unlock()
		return
	}

	o.delivered = true
	o.session.IsRedirecting = true
	o.closeTimer = o.clock.AfterFunc(o.cfg.CloseDelay, func() {
		o.autoClose(epoch)
	})

	invalidator := o.invalidator
	hook := o.hooks.OnPaymentConfirmed
	o.mu.Unlock()

	if invalidator != nil {
		if err := invalidator.MarkStale(context.Background(), staleCollections...); err != nil {
			o.logger.Error("failed to invalidate cached collections", "error", err)
		}
	}

	o.logger.Info("payment confirmed", "payment_intent_id", rec.ID, "status", rec.Status)

	if hook != nil {
		hook(rec)
	}
}

func (o *Orchestrator) paymentFailed(epoch uint64, rec domain.PaymentRecord) {
	o.mu.Lock()

	if o.stale(epoch) || o.delivered {
		o.mu.Unlock()
		return
	}

	reason := poller.FailureReason(rec)
	o.delivered = true
	o.fail(EventPaymentFailed, domain.ErrorKindConfirmation, nil, reason)

	hook := o.hooks.OnCheckoutFailed
	o.mu.Unlock()

	if hook != nil {
		hook(reason)
	}
}

func (o *Orchestrator) autoClose(epoch uint64) {
	o.mu.Lock()

	if o.stale(epoch) {
		o.mu.Unlock()
		return
	}

	hook := o.teardown()
	o.mu.Unlock()

	if hook != nil {
		hook()
	}
}

// apply moves the session along the transition table. Callers hold o.mu.
func (o *Orchestrator) apply(event Event) error {
	from := o.session.Step

	to, ok := nextStep(from, event)
	if !ok {
		o.logger.Debug("rejected checkout event", "step", from, "event", event)
		return domain.ErrInvalidTransition
	}

	o.session.Step = to
	o.logger.Debug("checkout transition", "from", from, "to", to, "event", event)
	o.metrics.recordTransition(from, to, event)

	return nil
}

// fail moves the session to the error step with a user-facing message.
func (o *Orchestrator) fail(event Event, kind domain.ErrorKind, cause error, message string) {
	if err := o.apply(event); err != nil {
		return
	}

	o.session.Error = &domain.Failure{Kind: kind, Message: message}
	o.lastErr = &domain.CheckoutError{Kind: kind, Message: message, Err: cause}
}

func (o *Orchestrator) stale(epoch uint64) bool {
	return o.closed || epoch != o.epoch
}

// clearAttempt drops everything tied to the current payment attempt and
// invalidates its pending completions. Callers hold o.mu.
func (o *Orchestrator) clearAttempt() {
	o.epoch++
	o.stopTimers()

	if o.poller != nil {
		o.poller.Stop()
		o.poller = nil
	}

	o.widget.Unmount()

	o.session.Intent = nil
	o.session.Error = nil
	o.session.IsRedirecting = false
	o.elements = nil
	o.lastErr = nil
	o.confirming = false
	o.confirmedIntent = ""
	o.delivered = false
}

// teardown closes the session and returns the OnClosed hook for the caller to
// run once o.mu is released.
func (o *Orchestrator) teardown() func() {
	step := o.session.Step

	o.clearAttempt()
	o.closed = true
	o.session = newSession(o.session.ID, o.session.Item)

	o.logger.Info("checkout closed", "step", step)

	return o.hooks.OnClosed
}

func (o *Orchestrator) stopTimers() {
	if o.graceTimer != nil {
		o.graceTimer.Stop()
		o.graceTimer = nil
	}

	if o.closeTimer != nil {
		o.closeTimer.Stop()
		o.closeTimer = nil
	}
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// IsRefusal reports whether err is an operation the current step does not
// allow, as opposed to an unexpected failure.
func IsRefusal(err error) bool {
	return errors.Is(err, domain.ErrInvalidTransition) ||
		errors.Is(err, domain.ErrCheckoutInProgress) ||
		errors.Is(err, domain.ErrSessionClosed)
}
