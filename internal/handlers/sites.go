package handlers

import (
	"net/http"

	pkghttp "github.com/BradenHooton/giftgate/pkg/http"
	"github.com/go-chi/chi/v5"
)

// SiteHandler serves public site configuration
type SiteHandler struct {
	sites SiteDirectory
}

// NewSiteHandler creates a new SiteHandler
func NewSiteHandler(sites SiteDirectory) *SiteHandler {
	return &SiteHandler{sites: sites}
}

// GetSite handles GET /sites/{siteID}
func (h *SiteHandler) GetSite(w http.ResponseWriter, r *http.Request) {
	site, ok := h.sites.Site(chi.URLParam(r, "siteID"))
	if !ok {
		pkghttp.WriteNotFound(w, "Site not found")
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, site)
}
