package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"reviewverso/api"
	"reviewverso/models"
	"reviewverso/services/lists"
)

type listService interface {
	Create(ctx context.Context, in models.ListInput) (models.List, error)
	GetHydrated(ctx context.Context, id int64) (models.HydratedList, error)
	ByUser(ctx context.Context, userID int64) ([]models.List, error)
	Update(ctx context.Context, id int64, in models.ListInput) (models.List, error)
	Delete(ctx context.Context, id int64) error
	AddItem(ctx context.Context, id int64, item models.ListItem) (models.List, error)
	RemoveItem(ctx context.Context, id int64, contentType models.MediaType, contentID string) error
}

var _ listService = (*lists.Service)(nil)

type ListsHandler struct {
	Service listService
}

func NewListsHandler(service listService) *ListsHandler {
	return &ListsHandler{Service: service}
}

func (h *ListsHandler) ByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	items, err := h.Service.ByUser(r.Context(), userID)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteData(w, http.StatusOK, items)
}

// Get returns the list with every item resolved against its provider.
func (h *ListsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	list, err := h.Service.GetHydrated(r.Context(), id)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteData(w, http.StatusOK, list)
}

func (h *ListsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.ListInput
	if err := decodeJSON(w, r, &in); err != nil {
		api.WriteError(w, r, err)
		return
	}
	list, err := h.Service.Create(r.Context(), in)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteData(w, http.StatusCreated, list)
}

func (h *ListsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	var in models.ListInput
	if err := decodeJSON(w, r, &in); err != nil {
		api.WriteError(w, r, err)
		return
	}
	list, err := h.Service.Update(r.Context(), id, in)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteData(w, http.StatusOK, list)
}

func (h *ListsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	if err := h.Service.Delete(r.Context(), id); err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteData(w, http.StatusOK, map[string]int64{"idList": id})
}

func (h *ListsHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	var item models.ListItem
	if err := decodeJSON(w, r, &item); err != nil {
		api.WriteError(w, r, err)
		return
	}
	list, err := h.Service.AddItem(r.Context(), id, item)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteData(w, http.StatusCreated, list)
}

func (h *ListsHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	vars := mux.Vars(r)
	if err := h.Service.RemoveItem(r.Context(), id, models.MediaType(vars["type"]), vars["contentId"]); err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteData(w, http.StatusOK, map[string]any{
		"idList":      id,
		"contentType": vars["type"],
		"contentId":   vars["contentId"],
	})
}
