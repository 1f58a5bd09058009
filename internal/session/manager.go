// Package session tracks whether the current visitor is authenticated and
// logs them out automatically after a period of inactivity.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/giftgate/internal/clock"
	"github.com/BradenHooton/giftgate/internal/models"
)

// DefaultInactivityTimeout is how long an authenticated session survives without activity
const DefaultInactivityTimeout = 30 * time.Minute

// Activity signals that extend an authenticated session
var ActivitySignals = []string{"pointerdown", "keydown", "scroll", "touchstart"}

// ActivitySource delivers platform input signals. Subscribe must not invoke fn
// synchronously, and unsubscribe must not wait for callbacks in flight.
type ActivitySource interface {
	Subscribe(signal string, fn func()) (unsubscribe func())
}

// EventLogger receives the manager's security events
type EventLogger interface {
	Log(ctx context.Context, event models.SecurityEvent)
}

// Config configures a Manager
type Config struct {
	Timeout  time.Duration
	Clock    clock.Clock
	Events   EventLogger
	Activity ActivitySource // optional
	// OnExpire runs after an inactivity logout, outside the manager lock
	OnExpire func()
	Logger   *slog.Logger
}

// Manager owns one visitor's authentication state. The zero state is anonymous.
type Manager struct {
	mu       sync.Mutex
	timeout  time.Duration
	clock    clock.Clock
	events   EventLogger
	activity ActivitySource
	onExpire func()
	logger   *slog.Logger

	identifier string
	user       *models.User
	expiresAt  time.Time
	expired    bool

	timer      clock.Timer
	generation uint64
	detach     []func()
	closed     bool
}

// NewManager creates an anonymous session manager
func NewManager(cfg Config) *Manager {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultInactivityTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Manager{
		timeout:  cfg.Timeout,
		clock:    cfg.Clock,
		events:   cfg.Events,
		activity: cfg.Activity,
		onExpire: cfg.OnExpire,
		logger:   cfg.Logger,
	}
}

// Authenticate marks the session as authenticated for identifier. When user is
// nil a minimal record {id: identifier, email: identifier} is synthesized.
// Calling it again replaces the previous identity and restarts the timer.
// An empty identifier is refused and leaves the session unchanged.
func (m *Manager) Authenticate(ctx context.Context, identifier string, user *models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		m.logger.Warn("authenticate called on closed session manager")
		return
	}
	if identifier == "" {
		m.logger.Warn("authenticate called without an identifier")
		return
	}

	if user != nil {
		u := *user
		m.user = &u
	} else {
		m.user = &models.User{ID: identifier, Email: identifier}
	}
	m.identifier = identifier
	m.expired = false

	m.attachActivityLocked()
	m.restartTimerLocked()

	m.logEvent(ctx, models.ActionAuthentication, models.EventStatusSuccess, identifier, nil)
}

// Logout returns the session to anonymous. It is a no-op transition from anonymous
// but always emits a logout event carrying the previous identifier.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.expired = false
	m.logoutLocked(ctx)
}

// NotifyActivity restarts the inactivity countdown. It is ignored while anonymous.
func (m *Manager) NotifyActivity() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.identifier == "" || m.closed {
		return
	}
	m.restartTimerLocked()
}

// Authenticated reports whether the session is currently authenticated
func (m *Manager) Authenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identifier != ""
}

// Snapshot returns a copy of the current session state
func (m *Manager) Snapshot() models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := models.Session{Authenticated: m.identifier != ""}
	if s.Authenticated {
		u := *m.user
		expiresAt := m.expiresAt
		s.Identifier = m.identifier
		s.User = &u
		s.ExpiresAt = &expiresAt
	}
	return s
}

// Err returns models.ErrSessionExpired when the last transition to anonymous
// was caused by inactivity, until the next Authenticate or Logout
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.expired {
		return models.ErrSessionExpired
	}
	return nil
}

// Close tears the manager down: the pending timer is cleared regardless of
// state and activity subscriptions are released. The session state is kept.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopTimerLocked()
	m.detachActivityLocked()
	m.closed = true
}

func (m *Manager) logoutLocked(ctx context.Context) {
	previous := m.identifier

	m.identifier = ""
	m.user = nil
	m.expiresAt = time.Time{}
	m.stopTimerLocked()
	m.detachActivityLocked()

	m.logEvent(ctx, models.ActionLogout, models.EventStatusSuccess, previous, nil)
}

func (m *Manager) restartTimerLocked() {
	m.stopTimerLocked()

	m.generation++
	gen := m.generation
	m.expiresAt = m.clock.Now().Add(m.timeout)
	m.timer = m.clock.AfterFunc(m.timeout, func() {
		m.onTimeout(gen)
	})
}

func (m *Manager) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	// Invalidate any callback that already fired but has not acquired the lock yet
	m.generation++
}

func (m *Manager) onTimeout(gen uint64) {
	m.mu.Lock()
	if gen != m.generation || m.identifier == "" || m.closed {
		m.mu.Unlock()
		return
	}

	ctx := context.Background()
	m.logEvent(ctx, models.ActionSessionTimeout, models.EventStatusWarning, m.identifier, map[string]any{
		"timeout": m.timeout.String(),
	})
	m.timer = nil
	m.logoutLocked(ctx)
	m.expired = true
	onExpire := m.onExpire
	m.mu.Unlock()

	if onExpire != nil {
		onExpire()
	}
}

func (m *Manager) attachActivityLocked() {
	if m.activity == nil || len(m.detach) > 0 {
		return
	}
	for _, signal := range ActivitySignals {
		m.detach = append(m.detach, m.activity.Subscribe(signal, m.NotifyActivity))
	}
}

func (m *Manager) detachActivityLocked() {
	for _, unsubscribe := range m.detach {
		unsubscribe()
	}
	m.detach = nil
}

func (m *Manager) logEvent(ctx context.Context, action string, status models.EventStatus, userID string, details map[string]any) {
	if m.events == nil {
		return
	}
	m.events.Log(ctx, models.SecurityEvent{
		Action:  action,
		Status:  status,
		UserID:  userID,
		Details: details,
	})
}
