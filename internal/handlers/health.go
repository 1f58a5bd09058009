package handlers

import (
	"context"
	"log/slog"
	"net/http"

	pkghttp "github.com/BradenHooton/giftgate/pkg/http"
)

// HealthChecker is implemented by the audit database
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler reports liveness
type HealthHandler struct {
	db     HealthChecker // nil when the audit sink is disabled
	logger *slog.Logger
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db HealthChecker, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{db: db, logger: logger}
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status  string `json:"status"`
	AuditDB string `json:"audit_db"`
}

// Health handles GET /health. An unavailable audit database degrades the
// status but never fails liveness, since events still reach the logs.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", AuditDB: "disabled"}

	if h.db != nil {
		if err := h.db.HealthCheck(r.Context()); err != nil {
			h.logger.Warn("audit database health check failed", slog.Any("error", err))
			resp.Status = "degraded"
			resp.AuditDB = "unavailable"
		} else {
			resp.AuditDB = "ok"
		}
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}
