package checkout

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/metinatakli/design-storefront/internal/domain"
)

// DefaultIdleTimeout is how long a session may go untouched before the
// registry tears it down.
const DefaultIdleTimeout = 30 * time.Minute

// WidgetFactory returns a fresh payment widget for every opened session.
type WidgetFactory func() domain.PaymentWidget

type RegistryParams struct {
	API         domain.PaymentAPI
	Invalidator domain.CacheInvalidator
	Widgets     WidgetFactory
	Clock       clockwork.Clock
	Logger      *slog.Logger
	Config      Config
	// IdleTimeout closes sessions not fetched through Get for that long.
	IdleTimeout time.Duration
}

// Registry holds the live checkout sessions of this process.
type Registry struct {
	params RegistryParams

	mu       sync.Mutex
	sessions map[string]*Orchestrator
	expiry   map[string]clockwork.Timer
}

func NewRegistry(p RegistryParams) *Registry {
	if p.Clock == nil {
		p.Clock = clockwork.NewRealClock()
	}
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	if p.IdleTimeout <= 0 {
		p.IdleTimeout = DefaultIdleTimeout
	}

	return &Registry{
		params:   p,
		sessions: make(map[string]*Orchestrator),
		expiry:   make(map[string]clockwork.Timer),
	}
}

// Open starts a new checkout session for item. The session removes itself
// from the registry once it closes.
func (r *Registry) Open(item domain.PurchasableItem, selection Selection, hooks Hooks) *Orchestrator {
	id := uuid.NewString()

	onClosed := hooks.OnClosed
	hooks.OnClosed = func() {
		r.remove(id)
		if onClosed != nil {
			onClosed()
		}
	}

	o := New(Params{
		ID:          id,
		Item:        item,
		Selection:   selection,
		API:         r.params.API,
		Widget:      r.params.Widgets(),
		Invalidator: r.params.Invalidator,
		Clock:       r.params.Clock,
		Logger:      r.params.Logger,
		Config:      r.params.Config,
		Hooks:       hooks,
	})

	r.mu.Lock()
	r.sessions[id] = o
	r.expiry[id] = r.params.Clock.AfterFunc(r.params.IdleTimeout, func() {
		r.expire(id)
	})
	r.mu.Unlock()

	r.params.Logger.Info("checkout opened", "checkout_id", id, "item_id", item.ID, "item_type", item.Type)

	return o
}

// Get returns the session with the given id and restarts its idle timeout.
func (r *Registry) Get(id string) (*Orchestrator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	if timer, ok := r.expiry[id]; ok {
		timer.Reset(r.params.IdleTimeout)
	}

	return o, nil
}

// Close closes the session with the given id. Unknown ids are ignored.
func (r *Registry) Close(id string) error {
	o, err := r.Get(id)
	if err != nil {
		return nil
	}

	return o.Close()
}

// CloseAll tears down every live session, including those waiting on an
// intent request.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := make([]*Orchestrator, 0, len(r.sessions))
	for _, o := range r.sessions {
		sessions = append(sessions, o)
	}
	r.mu.Unlock()

	for _, o := range sessions {
		o.shutdown()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.sessions)
}

func (r *Registry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if timer, ok := r.expiry[id]; ok {
		timer.Stop()
		delete(r.expiry, id)
	}
	delete(r.sessions, id)
}

// expire tears down an abandoned session, whatever step it is in.
func (r *Registry) expire(id string) {
	r.mu.Lock()
	o, ok := r.sessions[id]
	r.mu.Unlock()

	if !ok {
		return
	}

	r.params.Logger.Info("closing idle checkout", "checkout_id", id, "idle_timeout", r.params.IdleTimeout)
	o.shutdown()
}
