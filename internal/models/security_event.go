package models

import "time"

// EventStatus classifies the outcome of a security event
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
	EventStatusWarning EventStatus = "warning"
)

// Security event actions
const (
	ActionAuthentication      = "authentication"
	ActionLogout              = "logout"
	ActionSessionTimeout      = "session_timeout"
	ActionAccessRateLimit     = "access_validation_rate_limit"
	ActionAccessInvalidFormat = "access_validation_invalid_format"
	ActionAccessSuccess       = "access_validation_success"
	ActionAccessFailed        = "access_validation_failed"
	ActionAccessError         = "access_validation_error"
	ActionMagicLinkRateLimit  = "magic_link_rate_limit"
	ActionMagicLinkSuccess    = "magic_link_success"
	ActionMagicLinkFailed     = "magic_link_failed"
	ActionMagicLinkError      = "magic_link_error"
	ActionOrderSubmitted      = "order_submitted"
)

// SecurityEvent is an immutable audit record of a security-relevant action
type SecurityEvent struct {
	ID        string         `json:"id" db:"id"`
	Timestamp time.Time      `json:"timestamp" db:"occurred_at"`
	Action    string         `json:"action" db:"action"`
	Status    EventStatus    `json:"status" db:"status"`
	UserID    string         `json:"user_id,omitempty" db:"user_id"`
	UserAgent string         `json:"user_agent,omitempty" db:"user_agent"`
	URL       string         `json:"url,omitempty" db:"url"`
	Details   map[string]any `json:"details,omitempty" db:"details"`
}
