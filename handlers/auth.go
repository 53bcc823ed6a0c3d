package handlers

import (
	"context"
	"net/http"
	"strings"

	"reviewverso/api"
	"reviewverso/internal/apierror"
	"reviewverso/internal/backend"
	"reviewverso/models"
	"reviewverso/services/auth"
)

type authService interface {
	Login(ctx context.Context, email, password string) (models.AuthSession, error)
	Logout(ctx context.Context, token string) error
	Register(ctx context.Context, reg models.Registration, avatar *backend.Upload) (models.User, error)
}

var _ authService = (*auth.Service)(nil)

type meService interface {
	Me(ctx context.Context) (models.User, error)
}

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	auth  authService
	users meService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authSvc authService, users meService) *AuthHandler {
	return &AuthHandler{auth: authSvc, users: users}
}

// LoginRequest represents the login request body.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges credentials for a session holding the backend token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		api.WriteError(w, r, err)
		return
	}

	session, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteData(w, http.StatusOK, session)
}

// Logout clears the caller's session. Calling it without a token is a no-op.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := api.ExtractToken(r)
	if token != "" {
		if err := h.auth.Logout(r.Context(), token); err != nil {
			api.WriteError(w, r, err)
			return
		}
	}
	api.WriteData(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// Register accepts a multipart form (username, email, password, bio, avatar)
// or a JSON body without avatar.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var (
		reg    models.Registration
		avatar *backend.Upload
		err    error
	)
	if isMultipart(r) {
		avatar, err = parseForm(w, r)
		if err != nil {
			api.WriteError(w, r, err)
			return
		}
		reg = models.Registration{
			Username: r.FormValue("username"),
			Email:    r.FormValue("email"),
			Password: r.FormValue("password"),
			Bio:      r.FormValue("bio"),
		}
	} else if err := decodeJSON(w, r, &reg); err != nil {
		api.WriteError(w, r, err)
		return
	}

	user, err := h.auth.Register(r.Context(), reg, avatar)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteData(w, http.StatusCreated, user)
}

// Me returns the caller's session, with the profile refreshed from the
// backend when possible.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	session := api.GetSession(r)
	if !session.IsAuthenticated() {
		api.WriteMessage(w, http.StatusUnauthorized, apierror.MsgUnauthorized)
		return
	}

	if h.users != nil {
		user, err := h.users.Me(r.Context())
		switch {
		case err == nil:
			session.User = &user
			if strings.TrimSpace(user.Role) != "" {
				session.Role = user.Role
			}
		case apierror.Status(err) == http.StatusUnauthorized:
			api.WriteError(w, r, err)
			return
		}
		// Other failures fall back to the profile stored with the session.
	}
	api.WriteData(w, http.StatusOK, session)
}
