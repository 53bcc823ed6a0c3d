package models

import (
	"encoding/json"
	"time"
)

// AuthSession is the authenticated state derived from a backend JWT.
// A session is authenticated exactly when its token is present and unexpired.
type AuthSession struct {
	Token         string    `json:"token"`
	User          *User     `json:"user"`
	Role          string    `json:"role"`
	ExpiresAt     time.Time `json:"expiresAt"`
	IsInitialized bool      `json:"isInitialized"`

	// Stored marks sessions created at login or restored from disk. Sessions
	// decoded from an unknown bearer token carry unverified claims.
	Stored bool `json:"-"`
}

// IsExpired returns true if the token carries an expiry that has passed.
// Tokens without an exp claim never expire on the client side.
func (s AuthSession) IsExpired() bool {
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}

// IsAuthenticated reports whether the session holds a usable token.
func (s AuthSession) IsAuthenticated() bool {
	return s.Token != "" && !s.IsExpired()
}

// IsAdmin reports whether the session belongs to an admin. The role claim of
// an unstored session is never trusted.
func (s AuthSession) IsAdmin() bool {
	return s.Stored && s.Role == RoleAdmin
}

// MarshalJSON adds the computed isAuthenticated field.
func (s AuthSession) MarshalJSON() ([]byte, error) {
	type sessionAlias AuthSession
	return json.Marshal(&struct {
		sessionAlias
		IsAuthenticated bool `json:"isAuthenticated"`
	}{
		sessionAlias:    sessionAlias(s),
		IsAuthenticated: s.IsAuthenticated(),
	})
}
