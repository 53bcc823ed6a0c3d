package auth

import (
	"context"
	"net/http"

	"reviewverso/models"
)

// ContextKey is the type used for context keys
type ContextKey string

const (
	// ContextKeySession is the key for the AuthSession in the context
	ContextKeySession ContextKey = "session"
	// ContextKeyRequestID is the key for the request ID in the context
	ContextKeyRequestID ContextKey = "requestID"
)

// WithSession returns a copy of ctx carrying session.
func WithSession(ctx context.Context, session models.AuthSession) context.Context {
	return context.WithValue(ctx, ContextKeySession, session)
}

// SessionFrom returns the session stored in ctx, or an unauthenticated one.
func SessionFrom(ctx context.Context) models.AuthSession {
	if session, ok := ctx.Value(ContextKeySession).(models.AuthSession); ok {
		return session
	}
	return models.AuthSession{}
}

// Token returns the bearer token of an authenticated session in ctx.
// Outbound backend calls forward it.
func Token(ctx context.Context) string {
	session := SessionFrom(ctx)
	if !session.IsAuthenticated() {
		return ""
	}
	return session.Token
}

// GetSession retrieves the session from the request context.
func GetSession(r *http.Request) models.AuthSession {
	return SessionFrom(r.Context())
}

// GetUserID retrieves the authenticated user ID from the request context.
func GetUserID(r *http.Request) int64 {
	session := SessionFrom(r.Context())
	if !session.IsAuthenticated() || session.User == nil {
		return 0
	}
	return session.User.ID
}

// IsAdmin checks if the authenticated user has the admin role.
func IsAdmin(r *http.Request) bool {
	session := SessionFrom(r.Context())
	return session.IsAuthenticated() && session.IsAdmin()
}

// WithRequestID returns a copy of ctx carrying id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, id)
}

// RequestID returns the request ID stored in ctx.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return id
	}
	return ""
}
