package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"reviewverso/internal/apierror"
	"reviewverso/internal/auth"
	"reviewverso/models"
	"reviewverso/services/sessions"
)

// Re-export from auth package for handlers.
var (
	GetSession = auth.GetSession
	GetUserID  = auth.GetUserID
	IsAdmin    = auth.IsAdmin
)

type sessionValidator interface {
	Validate(token string) (models.AuthSession, error)
}

var _ sessionValidator = (*sessions.Service)(nil)

// SessionMiddleware attaches the caller's session to the request context.
// Requests without a usable token continue anonymously; RequireAuth and
// AdminOnly decide whether that is acceptable.
func SessionMiddleware(store sessionValidator) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" || store == nil {
				next.ServeHTTP(w, r)
				return
			}

			session, err := store.Validate(token)
			if errors.Is(err, sessions.ErrSessionNotFound) {
				// Issued before this process started or by another instance.
				session, err = sessions.FromToken(token)
			}
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), session)))
		})
	}
}

// RequireAuth rejects requests without an authenticated session.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		if !GetSession(r).IsAuthenticated() {
			WriteMessage(w, http.StatusUnauthorized, apierror.MsgUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AdminOnly only allows authenticated admins.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		if !GetSession(r).IsAuthenticated() {
			WriteMessage(w, http.StatusUnauthorized, apierror.MsgUnauthorized)
			return
		}
		if !IsAdmin(r) {
			WriteMessage(w, http.StatusForbidden, apierror.MsgForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

// Flush keeps streaming proxies working behind the recorder.
func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// RequestLogger tags every request with an ID and logs its outcome.
func RequestLogger(logger *slog.Logger) mux.MiddlewareFunc {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", id)

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r.WithContext(auth.WithRequestID(r.Context(), id)))
			if rec.status == 0 {
				rec.status = http.StatusOK
			}

			level := slog.LevelInfo
			if rec.status >= http.StatusInternalServerError {
				level = slog.LevelError
			} else if rec.status >= http.StatusBadRequest {
				level = slog.LevelWarn
			}
			logger.Log(r.Context(), level, "request",
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"bytes", rec.bytes,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

// extractToken extracts the bearer token from the Authorization header.
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// ExtractToken is extractToken for handlers that need the raw token (logout).
func ExtractToken(r *http.Request) string {
	return extractToken(r)
}
