package security

import (
	"context"
	"log/slog"
	"sync"

	"github.com/BradenHooton/giftgate/internal/clock"
	"github.com/BradenHooton/giftgate/internal/models"
	pkglogger "github.com/BradenHooton/giftgate/pkg/logger"
	"github.com/google/uuid"
)

// Sink receives normalized security events
type Sink interface {
	Write(ctx context.Context, event models.SecurityEvent) error
}

// RequestInfo is the execution context stamped onto events
type RequestInfo struct {
	UserAgent string
	URL       string
}

type requestInfoKey struct{}

// WithRequestInfo attaches the caller's user agent and URL to ctx
func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, info)
}

// RequestInfoFrom returns the RequestInfo stored in ctx, if any
func RequestInfoFrom(ctx context.Context) RequestInfo {
	info, _ := ctx.Value(requestInfoKey{}).(RequestInfo)
	return info
}

// EventLogger normalizes security events and writes them through to every sink.
// It never fails: sink errors and panics are swallowed.
type EventLogger struct {
	sinks  []Sink
	clock  clock.Clock
	logger *slog.Logger
}

// NewEventLogger creates an EventLogger writing to sinks
func NewEventLogger(c clock.Clock, logger *slog.Logger, sinks ...Sink) *EventLogger {
	return &EventLogger{
		sinks:  sinks,
		clock:  c,
		logger: logger,
	}
}

// Log stamps the event with an id, the current time and the request context,
// then writes it to each sink
func (l *EventLogger) Log(ctx context.Context, event models.SecurityEvent) {
	if l == nil {
		return
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = l.clock.Now()
	}
	if event.Status == "" {
		event.Status = models.EventStatusSuccess
	}
	if event.Details == nil {
		event.Details = map[string]any{}
	}

	info := RequestInfoFrom(ctx)
	if event.UserAgent == "" {
		event.UserAgent = info.UserAgent
	}
	if event.URL == "" {
		event.URL = info.URL
	}

	for _, sink := range l.sinks {
		l.write(ctx, sink, event)
	}
}

func (l *EventLogger) write(ctx context.Context, sink Sink, event models.SecurityEvent) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("security event sink panicked", slog.String("action", event.Action), slog.Any("panic", r))
		}
	}()

	if err := sink.Write(ctx, event); err != nil {
		l.logger.Error("failed to write security event", slog.String("action", event.Action), slog.Any("error", err))
	}
}

// SlogSink writes events to structured logs through the audit logger
type SlogSink struct {
	audit *pkglogger.AuditLogger
}

// NewSlogSink creates a sink over audit
func NewSlogSink(audit *pkglogger.AuditLogger) *SlogSink {
	return &SlogSink{audit: audit}
}

func (s *SlogSink) Write(ctx context.Context, event models.SecurityEvent) error {
	s.audit.Log(ctx, pkglogger.AuditEvent{
		ID:        event.ID,
		Action:    event.Action,
		Status:    string(event.Status),
		UserID:    event.UserID,
		UserAgent: event.UserAgent,
		URL:       event.URL,
		Timestamp: event.Timestamp,
		Details:   event.Details,
	})
	return nil
}

// EventRepository persists security events
type EventRepository interface {
	Create(ctx context.Context, event *models.SecurityEvent) error
}

// RepositorySink writes events to durable storage
type RepositorySink struct {
	repo EventRepository
}

// NewRepositorySink creates a sink over repo
func NewRepositorySink(repo EventRepository) *RepositorySink {
	return &RepositorySink{repo: repo}
}

func (s *RepositorySink) Write(ctx context.Context, event models.SecurityEvent) error {
	return s.repo.Create(ctx, &event)
}

// MemorySink keeps events in memory, in arrival order
type MemorySink struct {
	mu     sync.Mutex
	events []models.SecurityEvent
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Write(_ context.Context, event models.SecurityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a copy of the recorded events
func (s *MemorySink) Events() []models.SecurityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.SecurityEvent, len(s.events))
	copy(out, s.events)
	return out
}

// Actions returns the recorded "action/status" pairs
func (s *MemorySink) Actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.Action + "/" + string(e.Status)
	}
	return out
}
