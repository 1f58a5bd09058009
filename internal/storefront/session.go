package storefront

import (
	"context"

	"github.com/BradenHooton/giftgate/internal/models"
	"github.com/BradenHooton/giftgate/internal/session"
)

// SessionManager is the per-visitor session surface used by the HTTP adapter
type SessionManager interface {
	Authenticate(ctx context.Context, identifier string, user *models.User)
	Logout(ctx context.Context)
	NotifyActivity()
	Authenticated() bool
	Snapshot() models.Session
	Err() error
	Close()
}

func newSessionManager(cfg Config, onExpire func()) *session.Manager {
	return session.NewManager(session.Config{
		Timeout:  cfg.SessionTimeout,
		Clock:    cfg.Clock,
		Events:   cfg.Events,
		OnExpire: onExpire,
		Logger:   cfg.Logger,
	})
}
