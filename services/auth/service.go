package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/mail"
	"strings"

	"reviewverso/internal/apierror"
	"reviewverso/internal/backend"
	"reviewverso/models"
)

var (
	ErrCredentialsRequired = apierror.Invalid("login", "El correo y la contraseña son obligatorios")
	ErrUsernameRequired    = apierror.Invalid("register", "El nombre de usuario es obligatorio")
	ErrInvalidEmail        = apierror.Invalid("register", "El correo electrónico no es válido")
	ErrPasswordTooShort    = apierror.Invalid("register", "La contraseña debe tener al menos 6 caracteres")
)

// MinPasswordLength applies to registration only; login defers to the backend.
const MinPasswordLength = 6

type sessionStore interface {
	Create(token string, user models.User) (models.AuthSession, error)
	Clear(token string) error
}

// Service wraps the backend auth endpoints and keeps the session store in step.
type Service struct {
	client   *backend.Client
	sessions sessionStore
}

// NewService creates an auth service.
func NewService(client *backend.Client, sessions sessionStore) *Service {
	return &Service{client: client, sessions: sessions}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Login exchanges credentials for a backend JWT and stores the session.
func (s *Service) Login(ctx context.Context, email, password string) (models.AuthSession, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return models.AuthSession{}, ErrCredentialsRequired
	}

	var resp loginResponse
	if err := s.client.Post(ctx, "/auth/login", loginRequest{Email: email, Password: password}, &resp); err != nil {
		return models.AuthSession{}, fmt.Errorf("login: %w", err)
	}
	if strings.TrimSpace(resp.Token) == "" {
		return models.AuthSession{}, apierror.FromStatus("login", http.StatusBadGateway, "backend returned no token")
	}

	session, err := s.sessions.Create(resp.Token, resp.User)
	if err != nil {
		return models.AuthSession{}, apierror.FromStatus("login", http.StatusUnauthorized, err.Error())
	}
	log.Printf("[auth] user %d logged in", resp.User.ID)
	return session, nil
}

// Logout notifies the backend and clears the local session. The session is
// cleared even when the backend call fails.
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.client.Post(ctx, "/auth/logout", nil, nil); err != nil {
		log.Printf("[auth] backend logout failed: %v", err)
	}
	if err := s.sessions.Clear(token); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// Register creates an account with an optional avatar image.
func (s *Service) Register(ctx context.Context, reg models.Registration, avatar *backend.Upload) (models.User, error) {
	reg.Username = strings.TrimSpace(reg.Username)
	reg.Email = strings.TrimSpace(reg.Email)
	reg.Bio = strings.TrimSpace(reg.Bio)
	if reg.Username == "" {
		return models.User{}, ErrUsernameRequired
	}
	if _, err := mail.ParseAddress(reg.Email); err != nil {
		return models.User{}, ErrInvalidEmail
	}
	if len(reg.Password) < MinPasswordLength {
		return models.User{}, ErrPasswordTooShort
	}

	form := backend.Form{Fields: map[string]string{
		"username": reg.Username,
		"email":    reg.Email,
		"password": reg.Password,
	}}
	if reg.Bio != "" {
		form.Fields["bio"] = reg.Bio
	}
	if avatar != nil {
		file, err := backend.AvatarFile(*avatar)
		if err != nil {
			return models.User{}, err
		}
		form.Files = append(form.Files, file)
	}

	var raw json.RawMessage
	if err := s.client.DoMultipart(ctx, http.MethodPost, "/auth/register", form, &raw); err != nil {
		return models.User{}, fmt.Errorf("register: %w", err)
	}
	user, err := decodeUser(raw)
	if err != nil {
		return models.User{}, fmt.Errorf("register: %w", err)
	}
	log.Printf("[auth] registered user %q", reg.Username)
	return user, nil
}

// decodeUser accepts either the bare user or a {"user": ...} wrapper.
func decodeUser(raw json.RawMessage) (models.User, error) {
	var user models.User
	if len(raw) == 0 {
		return user, nil
	}
	var wrapped struct {
		User *models.User `json:"user"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.User != nil {
		return *wrapped.User, nil
	}
	if err := json.Unmarshal(raw, &user); err != nil {
		return models.User{}, fmt.Errorf("decode user: %w", err)
	}
	return user, nil
}
