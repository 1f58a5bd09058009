package logger

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// AuditEvent represents a security audit event
type AuditEvent struct {
	ID        string
	Action    string
	Status    string
	UserID    string
	UserAgent string
	URL       string
	Timestamp time.Time
	Details   map[string]any
}

// sensitiveDetailKeys are redacted from audit details in production
var sensitiveDetailKeys = map[string]bool{
	"token":         true,
	"session_token": true,
	"api_key":       true,
}

// AuditLogger provides audit logging functionality
type AuditLogger struct {
	logger *slog.Logger
	env    string
}

// NewAuditLogger creates a new audit logger. In production, user identifiers
// are masked before they are written.
func NewAuditLogger(logger *slog.Logger, env string) *AuditLogger {
	return &AuditLogger{
		logger: logger,
		env:    env,
	}
}

// Log writes one audit event. Successes log at info, warnings and failures at warn.
func (al *AuditLogger) Log(ctx context.Context, event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "security"),
		slog.String("event_id", event.ID),
		slog.String("action", event.Action),
		slog.String("status", event.Status),
		slog.String("timestamp", event.Timestamp.UTC().Format(time.RFC3339)),
	}

	if event.UserID != "" {
		attrs = append(attrs, MaskedIdentifierAttr("user_id", event.UserID, al.env))
	}
	if event.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", event.UserAgent))
	}
	if event.URL != "" {
		attrs = append(attrs, slog.String("url", event.URL))
	}
	if len(event.Details) > 0 {
		details := make([]any, 0, len(event.Details))
		for key, val := range event.Details {
			if sensitiveDetailKeys[key] {
				details = append(details, RedactedAttr(key, fmt.Sprint(val), al.env))
				continue
			}
			details = append(details, slog.String(key, fmt.Sprint(val)))
		}
		attrs = append(attrs, slog.Group("details", details...))
	}

	level := slog.LevelWarn
	if event.Status == "success" {
		level = slog.LevelInfo
	}
	al.logger.LogAttrs(ctx, level, "audit", attrs...)
}
