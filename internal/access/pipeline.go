// Package access runs one access-validation attempt: sanitize, rate-limit,
// check format, verify remotely, then hand the identity to the session.
package access

import (
	"context"
	"log/slog"
	"time"

	"github.com/BradenHooton/giftgate/internal/models"
	"github.com/BradenHooton/giftgate/internal/security"
)

// Defaults for the attempt rate limit
const (
	DefaultMaxAttempts = 5
	DefaultWindow      = 15 * time.Minute
)

// NextStep tells the caller where to route the visitor after success
type NextStep string

const (
	NextStepWelcome       NextStep = "welcome"
	NextStepGiftSelection NextStep = "gift-selection"
)

// NextStepFor returns the welcome step when the site enables it, else gift selection
func NextStepFor(site models.Site) NextStep {
	if site.WelcomePageEnabled {
		return NextStepWelcome
	}
	return NextStepGiftSelection
}

// Authenticator receives verified identities
type Authenticator interface {
	Authenticate(ctx context.Context, identifier string, user *models.User)
}

// Limiter is the attempt rate limiter
type Limiter interface {
	Check(ctx context.Context, key string, maxRequests int, window time.Duration) security.RateLimitResult
}

// EventLogger receives one security event per attempt outcome
type EventLogger interface {
	Log(ctx context.Context, event models.SecurityEvent)
}

// SiteDirectory resolves site configuration by id
type SiteDirectory interface {
	Site(id string) (models.Site, bool)
}

// Config holds the attempt rate limit
type Config struct {
	MaxAttempts int
	Window      time.Duration
}

// Deps are the collaborators of a Pipeline. Sessions and Storage belong to one
// visitor; the rest may be shared.
type Deps struct {
	Verifier Verifier
	Limiter  Limiter
	Sessions Authenticator
	Storage  EphemeralStore
	Events   EventLogger
	Sites    SiteDirectory // optional, used to route magic-link logins
	Logger   *slog.Logger
}

// Attempt is one credential submission
type Attempt struct {
	Site      models.Site
	Value     string
	ClientKey string // scopes the rate limit, e.g. a visitor id
}

// Result describes a successful attempt
type Result struct {
	Identifier string           `json:"identifier"`
	Employee   *models.Employee `json:"employee,omitempty"`
	SiteID     string           `json:"site_id"`
	Next       NextStep         `json:"next"`
}

// Pipeline validates access attempts. Attempts are not serialized: two
// independent attempts may be in flight at once.
type Pipeline struct {
	verifier Verifier
	limiter  Limiter
	sessions Authenticator
	storage  EphemeralStore
	events   EventLogger
	sites    SiteDirectory
	logger   *slog.Logger
	config   Config
}

// NewPipeline creates a Pipeline. Zero config values fall back to the defaults.
func NewPipeline(deps Deps, cfg Config) *Pipeline {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	return &Pipeline{
		verifier: deps.Verifier,
		limiter:  deps.Limiter,
		sessions: deps.Sessions,
		storage:  deps.Storage,
		events:   deps.Events,
		sites:    deps.Sites,
		logger:   deps.Logger,
		config:   cfg,
	}
}

// Validate runs one attempt. It returns a Result on success, or an
// *AttemptError for exactly one of: rate limited, invalid format, invalid
// credential, network error. Every outcome emits exactly one security event.
func (p *Pipeline) Validate(ctx context.Context, a Attempt) (*Result, error) {
	value := security.SanitizeString(a.Value)
	method := a.Site.ValidationMethod
	details := map[string]any{
		"site_id": a.Site.ID,
		"method":  string(method),
	}

	// Nothing left after sanitizing is never worth a remote call or a rate-limit slot
	if value == "" {
		p.logEvent(ctx, models.ActionAccessInvalidFormat, models.EventStatusFailure, "", details)
		return nil, invalidFormatError(method)
	}

	limit := p.limiter.Check(ctx, accessRateKey(a.Site.ID, a.ClientKey), p.config.MaxAttempts, p.config.Window)
	if !limit.Allowed {
		details["retry_after_seconds"] = limit.RetryAfterSeconds()
		p.logEvent(ctx, models.ActionAccessRateLimit, models.EventStatusFailure, value, details)
		return nil, rateLimitedError(limit.RetryAfter)
	}

	// Only email is checked locally; the remote side is authoritative for other formats
	if method == models.MethodEmail && !security.ValidateEmailFormat(value) {
		p.logEvent(ctx, models.ActionAccessInvalidFormat, models.EventStatusFailure, value, details)
		return nil, invalidFormatError(method)
	}

	resp, err := p.verifier.VerifyAccess(ctx, models.VerifyAccessRequest{
		SiteID: a.Site.ID,
		Method: method,
		Value:  value,
	})
	if err != nil {
		details["error"] = err.Error()
		p.logger.Warn("access verification transport failure", slog.String("site_id", a.Site.ID), slog.Any("error", err))
		p.logEvent(ctx, models.ActionAccessError, models.EventStatusFailure, value, details)
		return nil, networkError(err)
	}

	if !resp.Valid {
		if resp.Error != "" {
			details["error"] = resp.Error
		}
		p.logEvent(ctx, models.ActionAccessFailed, models.EventStatusFailure, value, details)
		return nil, invalidCredentialError(resp.Error)
	}

	p.persist(resp.SessionToken, resp.Employee, a.Site.ID)
	p.sessions.Authenticate(ctx, value, nil)
	p.logEvent(ctx, models.ActionAccessSuccess, models.EventStatusSuccess, value, details)

	return &Result{
		Identifier: value,
		Employee:   resp.Employee,
		SiteID:     a.Site.ID,
		Next:       NextStepFor(a.Site),
	}, nil
}

// VerifyMagicLink runs a magic-link login. On success the employee email
// becomes the session identifier and the site id comes from the response.
func (p *Pipeline) VerifyMagicLink(ctx context.Context, token, clientKey string) (*Result, error) {
	token = security.SanitizeString(token)
	details := map[string]any{"method": string(models.MethodMagicLink)}

	limit := p.limiter.Check(ctx, magicLinkRateKey(clientKey), p.config.MaxAttempts, p.config.Window)
	if !limit.Allowed {
		details["retry_after_seconds"] = limit.RetryAfterSeconds()
		p.logEvent(ctx, models.ActionMagicLinkRateLimit, models.EventStatusFailure, "", details)
		return nil, rateLimitedError(limit.RetryAfter)
	}

	resp, err := p.verifier.VerifyMagicLink(ctx, models.VerifyMagicLinkRequest{Token: token})
	if err != nil {
		details["error"] = err.Error()
		p.logger.Warn("magic link verification transport failure", slog.Any("error", err))
		p.logEvent(ctx, models.ActionMagicLinkError, models.EventStatusFailure, "", details)
		return nil, networkError(err)
	}

	if !resp.Valid || resp.Employee == nil {
		if resp.Error != "" {
			details["error"] = resp.Error
		}
		p.logEvent(ctx, models.ActionMagicLinkFailed, models.EventStatusFailure, "", details)
		return nil, invalidCredentialError(resp.Error)
	}

	identifier := security.SanitizeString(resp.Employee.Email)
	if identifier == "" {
		details["error"] = "verifier response carried no employee email"
		p.logEvent(ctx, models.ActionMagicLinkFailed, models.EventStatusFailure, "", details)
		return nil, invalidCredentialError("")
	}
	details["site_id"] = resp.SiteID

	p.persist(resp.SessionToken, resp.Employee, resp.SiteID)
	p.sessions.Authenticate(ctx, identifier, &models.User{
		ID:    resp.Employee.ID,
		Email: resp.Employee.Email,
		Name:  resp.Employee.Name,
	})
	p.logEvent(ctx, models.ActionMagicLinkSuccess, models.EventStatusSuccess, identifier, details)

	next := NextStepGiftSelection
	if p.sites != nil {
		if site, ok := p.sites.Site(resp.SiteID); ok {
			next = NextStepFor(site)
		}
	}

	return &Result{
		Identifier: identifier,
		Employee:   resp.Employee,
		SiteID:     resp.SiteID,
		Next:       next,
	}, nil
}

func (p *Pipeline) persist(sessionToken string, employee *models.Employee, siteID string) {
	if p.storage == nil {
		return
	}
	p.storage.Set(models.StorageKeySession, sessionToken)
	p.storage.Set(models.StorageKeySiteID, siteID)
	if employee != nil {
		p.storage.Set(models.StorageKeyName, employee.Name)
		p.storage.Set(models.StorageKeyEmail, employee.Email)
		p.storage.Set(models.StorageKeyID, employee.ID)
	}
}

func (p *Pipeline) logEvent(ctx context.Context, action string, status models.EventStatus, userID string, details map[string]any) {
	if p.events == nil {
		return
	}
	p.events.Log(ctx, models.SecurityEvent{
		Action:  action,
		Status:  status,
		UserID:  userID,
		Details: details,
	})
}

func accessRateKey(siteID, clientKey string) string {
	return "access_validation:" + siteID + ":" + clientKey
}

func magicLinkRateKey(clientKey string) string {
	return "magic_link:" + clientKey
}
