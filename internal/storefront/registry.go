// Package storefront keeps per-visitor state for the HTTP adapter. A visitor is
// one browser tab: it owns exactly one session manager, one cart, one
// ephemeral store and an access pipeline bound to them.
package storefront

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/giftgate/internal/access"
	"github.com/BradenHooton/giftgate/internal/cart"
	"github.com/BradenHooton/giftgate/internal/checkout"
	"github.com/BradenHooton/giftgate/internal/clock"
	"github.com/BradenHooton/giftgate/internal/models"
)

// EventLogger is shared by every visitor's session manager and pipeline
type EventLogger interface {
	Log(ctx context.Context, event models.SecurityEvent)
}

// Visitor is the state behind one visitor cookie
type Visitor struct {
	ID       string
	Session  SessionManager
	Cart     *cart.Cart
	Storage  *access.MemoryStore
	Access   *access.Pipeline
	lastSeen time.Time
}

// CheckoutBlockers lists the unmet checkout requirements for this visitor
func (v *Visitor) CheckoutBlockers() []string {
	return checkout.Blockers(v.Session, v.Cart)
}

// CanCheckout reports whether the checkout gate is open
func (v *Visitor) CanCheckout() bool {
	return checkout.CanCheckout(v.Session, v.Cart)
}

// Logout ends the session and drops the identity kept in ephemeral storage
func (v *Visitor) Logout(ctx context.Context) {
	v.Session.Logout(ctx)
	v.Storage.Clear()
}

// Config wires the shared collaborators into new visitors
type Config struct {
	SessionTimeout time.Duration
	IdleTTL        time.Duration
	// MaxVisitors caps the registry; the least recently seen visitor is
	// evicted to make room. Zero means DefaultMaxVisitors.
	MaxVisitors int
	Access         access.Config
	Verifier       access.Verifier
	Limiter        access.Limiter
	Sites          access.SiteDirectory
	Events         EventLogger
	Clock          clock.Clock
	Logger         *slog.Logger
}

// DefaultMaxVisitors bounds the registry when Config.MaxVisitors is unset
const DefaultMaxVisitors = 10000

// Registry creates visitors lazily and evicts idle ones
type Registry struct {
	mu       sync.Mutex
	visitors map[string]*Visitor
	cfg      Config
}

// NewRegistry creates a new visitor registry
func NewRegistry(cfg Config) *Registry {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 2 * time.Hour
	}
	if cfg.MaxVisitors <= 0 {
		cfg.MaxVisitors = DefaultMaxVisitors
	}

	return &Registry{
		visitors: make(map[string]*Visitor),
		cfg:      cfg,
	}
}

// Get returns the visitor for id, creating and storing it on first use.
// Only handlers that change visitor state should call Get.
func (r *Registry) Get(id string) *Visitor {
	r.mu.Lock()

	now := r.cfg.Clock.Now()
	if v, ok := r.visitors[id]; ok {
		v.lastSeen = now
		r.mu.Unlock()
		return v
	}

	evicted := r.makeRoomLocked(now)
	v := r.newVisitorLocked(id)
	v.lastSeen = now
	r.visitors[id] = v
	r.mu.Unlock()

	for _, old := range evicted {
		old.Session.Close()
	}
	return v
}

// View returns the stored visitor for id, or a blank visitor that is not
// kept. Read-only requests use it so they never grow the registry.
func (r *Registry) View(id string) *Visitor {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.visitors[id]; ok {
		v.lastSeen = r.cfg.Clock.Now()
		return v
	}
	return r.newVisitorLocked(id)
}

// Lookup returns an existing visitor without creating or touching it
func (r *Registry) Lookup(id string) (*Visitor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.visitors[id]
	return v, ok
}

// Prune closes and drops visitors idle for longer than the idle TTL.
// It returns how many were removed.
func (r *Registry) Prune() int {
	cutoff := r.cfg.Clock.Now().Add(-r.cfg.IdleTTL)

	r.mu.Lock()
	var stale []*Visitor
	for id, v := range r.visitors {
		if v.lastSeen.Before(cutoff) {
			stale = append(stale, v)
			delete(r.visitors, id)
		}
	}
	r.mu.Unlock()

	// Close outside the registry lock; Close takes the session lock
	for _, v := range stale {
		v.Session.Close()
	}
	return len(stale)
}

// Len returns the number of live visitors
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.visitors)
}

// makeRoomLocked drops idle visitors, then the least recently seen one, until
// there is space for a new visitor. Callers close the returned visitors after
// releasing the lock.
func (r *Registry) makeRoomLocked(now time.Time) []*Visitor {
	if len(r.visitors) < r.cfg.MaxVisitors {
		return nil
	}

	cutoff := now.Add(-r.cfg.IdleTTL)
	var evicted []*Visitor
	for id, v := range r.visitors {
		if v.lastSeen.Before(cutoff) {
			evicted = append(evicted, v)
			delete(r.visitors, id)
		}
	}

	for len(r.visitors) >= r.cfg.MaxVisitors {
		var oldestID string
		var oldest *Visitor
		for id, v := range r.visitors {
			if oldest == nil || v.lastSeen.Before(oldest.lastSeen) {
				oldestID, oldest = id, v
			}
		}
		delete(r.visitors, oldestID)
		evicted = append(evicted, oldest)
	}

	if len(evicted) > 0 {
		r.cfg.Logger.Warn("visitor registry full, evicted visitors",
			slog.Int("evicted", len(evicted)),
			slog.Int("max_visitors", r.cfg.MaxVisitors),
		)
	}
	return evicted
}

func (r *Registry) newVisitorLocked(id string) *Visitor {
	storage := access.NewMemoryStore()
	sessions := newSessionManager(r.cfg, storage.Clear)
	logger := r.cfg.Logger.With(slog.String("visitor_id", id))

	return &Visitor{
		ID:      id,
		Session: sessions,
		Cart:    cart.New(),
		Storage: storage,
		Access: access.NewPipeline(access.Deps{
			Verifier: r.cfg.Verifier,
			Limiter:  r.cfg.Limiter,
			Sessions: sessions,
			Storage:  storage,
			Events:   r.cfg.Events,
			Sites:    r.cfg.Sites,
			Logger:   logger,
		}, r.cfg.Access),
	}
}
