package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"reviewverso/api"
	"reviewverso/models"
	"reviewverso/services/reviews"
)

type reviewService interface {
	Create(ctx context.Context, in models.ReviewInput) (models.Review, error)
	Get(ctx context.Context, id int64) (models.Review, error)
	ByContent(ctx context.Context, contentType models.MediaType, contentID string) ([]models.Review, error)
	ByUser(ctx context.Context, userID int64) ([]models.Review, error)
	Update(ctx context.Context, id int64, in models.ReviewInput) (models.Review, error)
	Delete(ctx context.Context, id int64) error
}

var _ reviewService = (*reviews.Service)(nil)

type ReviewsHandler struct {
	Service reviewService
}

func NewReviewsHandler(service reviewService) *ReviewsHandler {
	return &ReviewsHandler{Service: service}
}

// ByContent lists the reviews of /contenido/{type}/{id}.
func (h *ReviewsHandler) ByContent(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	items, err := h.Service.ByContent(r.Context(), models.MediaType(vars["type"]), vars["id"])
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteData(w, http.StatusOK, items)
}

func (h *ReviewsHandler) ByUser(w http.ResponseWriter, r *http.Request) {
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

func (h *ReviewsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	review, err := h.Service.Get(r.Context(), id)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteData(w, http.StatusOK, review)
}

func (h *ReviewsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.ReviewInput
	if err := decodeJSON(w, r, &in); err != nil {
		api.WriteError(w, r, err)
		return
	}
	review, err := h.Service.Create(r.Context(), in)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteData(w, http.StatusCreated, review)
}

func (h *ReviewsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	var in models.ReviewInput
	if err := decodeJSON(w, r, &in); err != nil {
		api.WriteError(w, r, err)
		return
	}
	review, err := h.Service.Update(r.Context(), id, in)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteData(w, http.StatusOK, review)
}

func (h *ReviewsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	if err := h.Service.Delete(r.Context(), id); err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteData(w, http.StatusOK, map[string]int64{"idReview": id})
}
