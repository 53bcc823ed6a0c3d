package users

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/mail"
	"strconv"
	"strings"

	"reviewverso/internal/apierror"
	"reviewverso/internal/backend"
	"reviewverso/models"
)

var (
	ErrInvalidUserID = apierror.Invalid("users", "Identificador de usuario inválido")
	ErrInvalidEmail  = apierror.Invalid("users", "El correo electrónico no es válido")
	ErrInvalidRole   = apierror.Invalid("users", "Rol de usuario inválido")
	ErrEmptyUsername = apierror.Invalid("users", "El nombre de usuario no puede estar vacío")
)

type sessionStore interface {
	UpdateUser(user models.User) int
	ClearUser(userID int64) int
}

// Service relays user profile operations to the backend.
type Service struct {
	client   *backend.Client
	sessions sessionStore
}

// NewService creates a users service. sessions may be nil.
func NewService(client *backend.Client, sessions sessionStore) *Service {
	return &Service{client: client, sessions: sessions}
}

func userPath(id int64) string {
	return "/users/" + strconv.FormatInt(id, 10)
}

// Get returns a user profile.
func (s *Service) Get(ctx context.Context, id int64) (models.User, error) {
	if id <= 0 {
		return models.User{}, ErrInvalidUserID
	}
	var user models.User
	if err := s.client.Get(ctx, userPath(id), &user); err != nil {
		return models.User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	return user, nil
}

// Me returns the profile of the session's user.
func (s *Service) Me(ctx context.Context) (models.User, error) {
	var user models.User
	if err := s.client.Get(ctx, "/users/me", &user); err != nil {
		return models.User{}, fmt.Errorf("get current user: %w", err)
	}
	return user, nil
}

// List returns every user. The backend restricts it to admins.
func (s *Service) List(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	if err := s.client.Get(ctx, "/users", &users); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

// Update changes profile fields and optionally the avatar.
func (s *Service) Update(ctx context.Context, id int64, update models.UserUpdate, avatar *backend.Upload) (models.User, error) {
	if id <= 0 {
		return models.User{}, ErrInvalidUserID
	}
	form := backend.Form{Fields: map[string]string{}}
	if update.Username != nil {
		name := strings.TrimSpace(*update.Username)
		if name == "" {
			return models.User{}, ErrEmptyUsername
		}
		form.Fields["username"] = name
	}
	if update.Email != nil {
		email := strings.TrimSpace(*update.Email)
		if _, err := mail.ParseAddress(email); err != nil {
			return models.User{}, ErrInvalidEmail
		}
		form.Fields["email"] = email
	}
	if update.Password != nil && *update.Password != "" {
		form.Fields["password"] = *update.Password
	}
	if update.Bio != nil {
		form.Fields["bio"] = strings.TrimSpace(*update.Bio)
	}
	if update.Role != nil {
		role := strings.TrimSpace(*update.Role)
		if role != models.RoleAdmin && role != models.RoleUser {
			return models.User{}, ErrInvalidRole
		}
		form.Fields["role"] = role
	}
	if avatar != nil {
		file, err := backend.AvatarFile(*avatar)
		if err != nil {
			return models.User{}, err
		}
		form.Files = append(form.Files, file)
	}

	var user models.User
	if err := s.client.DoMultipart(ctx, http.MethodPut, userPath(id), form, &user); err != nil {
		return models.User{}, fmt.Errorf("update user %d: %w", id, err)
	}
	if user.ID == 0 {
		user.ID = id
	}
	if s.sessions != nil && user.Username != "" {
		s.sessions.UpdateUser(user)
	}
	log.Printf("[users] updated user %d", id)
	return user, nil
}

// Delete removes a user and drops their sessions.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidUserID
	}
	if err := s.client.Delete(ctx, userPath(id)); err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	if s.sessions != nil {
		if n := s.sessions.ClearUser(id); n > 0 {
			log.Printf("[users] cleared %d session(s) of deleted user %d", n, id)
		}
	}
	return nil
}
