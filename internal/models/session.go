package models

import "time"

// User is the record attached to an authenticated session
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Session is the authentication state of one visitor.
// Authenticated is true exactly when Identifier is non-empty, and User is
// non-nil whenever Authenticated is true.
type Session struct {
	Authenticated bool       `json:"authenticated"`
	Identifier    string     `json:"identifier,omitempty"`
	User          *User      `json:"user,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}
