package handlers

import (
	"context"
	"net/http"

	"reviewverso/api"
	"reviewverso/internal/apierror"
	"reviewverso/internal/backend"
	"reviewverso/models"
	"reviewverso/services/users"
)

type userService interface {
	Get(ctx context.Context, id int64) (models.User, error)
	Me(ctx context.Context) (models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, id int64, update models.UserUpdate, avatar *backend.Upload) (models.User, error)
	Delete(ctx context.Context, id int64) error
}

var _ userService = (*users.Service)(nil)

type UsersHandler struct {
	Service userService
}

func NewUsersHandler(service userService) *UsersHandler {
	return &UsersHandler{Service: service}
}

func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	user, err := h.Service.Get(r.Context(), id)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteData(w, http.StatusOK, user)
}

// List returns every user (admin only).
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.List(r.Context())
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteData(w, http.StatusOK, items)
}

// Update edits a profile. Users edit their own profile; admins edit anyone's
// and are the only ones allowed to change roles.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	if !canActAs(r, id) {
		api.WriteMessage(w, http.StatusForbidden, apierror.MsgForbidden)
		return
	}

	var (
		update models.UserUpdate
		avatar *backend.Upload
	)
	if isMultipart(r) {
		avatar, err = parseForm(w, r)
		if err != nil {
			api.WriteError(w, r, err)
			return
		}
		update = models.UserUpdate{
			Username: formValue(r, "username"),
			Email:    formValue(r, "email"),
			Password: formValue(r, "password"),
			Bio:      formValue(r, "bio"),
			Role:     formValue(r, "role"),
		}
	} else if err := decodeJSON(w, r, &update); err != nil {
		api.WriteError(w, r, err)
		return
	}

	if update.Role != nil && !api.IsAdmin(r) {
		api.WriteMessage(w, http.StatusForbidden, apierror.MsgForbidden)
		return
	}

	user, err := h.Service.Update(r.Context(), id, update, avatar)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteData(w, http.StatusOK, user)
}

// Delete removes an account. Users may delete themselves; admins anyone.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	if !canActAs(r, id) {
		api.WriteMessage(w, http.StatusForbidden, apierror.MsgForbidden)
		return
	}
	if err := h.Service.Delete(r.Context(), id); err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteData(w, http.StatusOK, map[string]int64{"idUser": id})
}
