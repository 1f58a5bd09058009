package handlers

import (
	"context"
	"net/http"

	"github.com/BradenHooton/giftgate/internal/auth"
	"github.com/BradenHooton/giftgate/internal/models"
	"github.com/BradenHooton/giftgate/internal/storefront"
)

// VisitorProvider returns the visitor behind a visitor id. Get stores a new
// visitor on first use; View hands back a blank one without storing it.
type VisitorProvider interface {
	Get(id string) *storefront.Visitor
	View(id string) *storefront.Visitor
}

// SiteDirectory resolves site configuration by id
type SiteDirectory interface {
	Site(id string) (models.Site, bool)
}

// EventLogger records security events raised by handlers
type EventLogger interface {
	Log(ctx context.Context, event models.SecurityEvent)
}

func currentVisitor(visitors VisitorProvider, r *http.Request) *storefront.Visitor {
	return visitors.Get(auth.GetVisitorID(r))
}

// viewVisitor is for requests that cannot leave state behind on a new visitor
func viewVisitor(visitors VisitorProvider, r *http.Request) *storefront.Visitor {
	return visitors.View(auth.GetVisitorID(r))
}
