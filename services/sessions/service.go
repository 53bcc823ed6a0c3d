package sessions

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/afero"

	"reviewverso/models"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
	ErrInvalidToken    = errors.New("invalid token")
)

const (
	// TokenKey and UserKey are the two keys persisted per session: the raw
	// JWT and the JSON-serialized user profile.
	TokenKey = "reviewverso_token"
	UserKey  = "reviewverso_user"

	// DefaultCleanupInterval is how often Run drops expired sessions.
	DefaultCleanupInterval = time.Hour

	sessionFileExt = ".json"
)

// Service is the explicit session context: sessions are created on login,
// rehydrated from storage on start, validated per request and cleared on logout.
type Service struct {
	mu       sync.RWMutex
	fs       afero.Fs
	dir      string
	sessions map[string]models.AuthSession
}

// NewService creates a sessions service persisting under dir on fs.
// An empty dir keeps sessions in memory only.
func NewService(fs afero.Fs, dir string) (*Service, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	svc := &Service{
		fs:       fs,
		dir:      strings.TrimSpace(dir),
		sessions: make(map[string]models.AuthSession),
	}
	if svc.dir != "" {
		if err := fs.MkdirAll(svc.dir, 0o700); err != nil {
			return nil, fmt.Errorf("create sessions dir: %w", err)
		}
	}
	return svc, nil
}

// stored mirrors what the browser kept in local storage.
type stored struct {
	Token string `json:"reviewverso_token"`
	User  string `json:"reviewverso_user"`
}

// Claims is the subset of the backend JWT payload the BFF reads.
type Claims struct {
	UserID    int64
	Username  string
	Email     string
	Role      string
	ExpiresAt time.Time
}

// DecodeToken reads the JWT payload without verifying the signature; the
// backend verifies every token it receives.
func DecodeToken(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, ErrInvalidToken
	}
	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mc); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	var claims Claims
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	claims.Role = claimString(mc, "role", "rol")
	claims.Username = claimString(mc, "username", "name")
	claims.Email = claimString(mc, "email")
	for _, key := range []string{"idUser", "userId", "id", "sub"} {
		if id, ok := claimInt(mc[key]); ok {
			claims.UserID = id
			break
		}
	}
	return claims, nil
}

func claimString(mc jwt.MapClaims, keys ...string) string {
	for _, key := range keys {
		if s, ok := mc[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func claimInt(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), n > 0
	case json.Number:
		id, err := n.Int64()
		return id, err == nil && id > 0
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return id, err == nil && id > 0
	}
	return 0, false
}

// FromToken builds a session from the token payload alone. It is used for
// tokens this process did not see at login.
func FromToken(token string) (models.AuthSession, error) {
	claims, err := DecodeToken(token)
	if err != nil {
		return models.AuthSession{}, err
	}
	session := models.AuthSession{
		Token:         token,
		Role:          claims.Role,
		ExpiresAt:     claims.ExpiresAt,
		IsInitialized: true,
	}
	if claims.UserID > 0 || claims.Username != "" {
		session.User = &models.User{
			ID:       claims.UserID,
			Username: claims.Username,
			Email:    claims.Email,
			Role:     claims.Role,
		}
	}
	if session.IsExpired() {
		return models.AuthSession{}, ErrSessionExpired
	}
	return session, nil
}

// Create stores the session returned by a successful login.
func (s *Service) Create(token string, user models.User) (models.AuthSession, error) {
	session, err := FromToken(token)
	if err != nil {
		return models.AuthSession{}, err
	}
	u := user
	if u.Role == "" {
		u.Role = session.Role
	}
	if session.Role == "" {
		session.Role = u.Role
	}
	if session.Role == "" {
		session.Role = models.RoleUser
	}
	session.User = &u
	session.Stored = true

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeLocked(session); err != nil {
		return models.AuthSession{}, err
	}
	s.sessions[token] = session
	return session, nil
}

// UpdateUser replaces the cached profile of every session belonging to user.ID.
func (s *Service) UpdateUser(user models.User) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for token, session := range s.sessions {
		if session.User == nil || session.User.ID != user.ID {
			continue
		}
		u := user
		if u.Role == "" {
			u.Role = session.User.Role
		}
		session.User = &u
		s.sessions[token] = session
		if err := s.writeLocked(session); err != nil {
			log.Printf("[sessions] failed to persist updated profile for user %d: %v", user.ID, err)
		}
		count++
	}
	return count
}

// Validate returns the stored session for token.
func (s *Service) Validate(token string) (models.AuthSession, error) {
	if strings.TrimSpace(token) == "" {
		return models.AuthSession{}, ErrInvalidToken
	}

	s.mu.RLock()
	session, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok {
		return models.AuthSession{}, ErrSessionNotFound
	}

	if session.IsExpired() {
		s.mu.Lock()
		delete(s.sessions, token)
		s.removeLocked(token)
		s.mu.Unlock()
		return models.AuthSession{}, ErrSessionExpired
	}
	return session, nil
}

// Clear removes the session for token. Clearing an unknown token is not an error.
func (s *Service) Clear(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, token)
	return s.removeLocked(token)
}

// ClearUser removes every session of a deleted user.
func (s *Service) ClearUser(userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for token, session := range s.sessions {
		if session.User != nil && session.User.ID == userID {
			delete(s.sessions, token)
			_ = s.removeLocked(token)
			count++
		}
	}
	return count
}

// Rehydrate loads every persisted session, dropping expired or unreadable ones.
// It returns the number of sessions restored.
func (s *Service) Rehydrate() (int, error) {
	if s.dir == "" {
		return 0, nil
	}
	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read sessions dir: %w", err)
	}

	restored := make(map[string]models.AuthSession, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != sessionFileExt {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		session, err := s.readFile(path)
		if err != nil {
			log.Printf("[sessions] dropping %s: %v", entry.Name(), err)
			_ = s.fs.Remove(path)
			continue
		}
		restored[session.Token] = session
	}

	s.mu.Lock()
	for token, session := range restored {
		s.sessions[token] = session
	}
	s.mu.Unlock()

	log.Printf("[sessions] rehydrated %d session(s)", len(restored))
	return len(restored), nil
}

func (s *Service) readFile(path string) (models.AuthSession, error) {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return models.AuthSession{}, err
	}
	var rec stored
	if err := json.Unmarshal(data, &rec); err != nil {
		return models.AuthSession{}, fmt.Errorf("decode session: %w", err)
	}
	session, err := FromToken(rec.Token)
	if err != nil {
		return models.AuthSession{}, err
	}
	session.Stored = true
	if rec.User != "" {
		var user models.User
		if err := json.Unmarshal([]byte(rec.User), &user); err != nil {
			return models.AuthSession{}, fmt.Errorf("decode user: %w", err)
		}
		session.User = &user
		if session.Role == "" {
			session.Role = user.Role
		}
	}
	return session, nil
}

// Cleanup removes all expired sessions and returns how many were dropped.
func (s *Service) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for token, session := range s.sessions {
		if session.IsExpired() {
			delete(s.sessions, token)
			_ = s.removeLocked(token)
			count++
		}
	}
	return count
}

// Run drops expired sessions every interval until ctx is cancelled.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Cleanup(); n > 0 {
				log.Printf("[sessions] removed %d expired session(s)", n)
			}
		}
	}
}

// Count returns the number of active sessions.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Service) fileFor(token string) string {
	sum := sha256.Sum256([]byte(token))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:])+sessionFileExt)
}

// writeLocked persists a session. Must be called with mu held.
func (s *Service) writeLocked(session models.AuthSession) error {
	if s.dir == "" {
		return nil
	}
	rec := stored{Token: session.Token}
	if session.User != nil {
		user, err := json.Marshal(session.User)
		if err != nil {
			return fmt.Errorf("encode user: %w", err)
		}
		rec.User = string(user)
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	path := s.fileFor(session.Token)
	tmp := path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

// removeLocked deletes a persisted session. Must be called with mu held.
func (s *Service) removeLocked(token string) error {
	if s.dir == "" {
		return nil
	}
	if err := s.fs.Remove(s.fileFor(token)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
