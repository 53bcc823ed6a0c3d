package reviews

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"reviewverso/internal/apierror"
	"reviewverso/internal/backend"
	"reviewverso/models"
)

// Ratings are given on a 0–10 scale.
const (
	MinRating = 0
	MaxRating = 10
)

var (
	ErrInvalidReviewID   = apierror.Invalid("reviews", "Identificador de reseña inválido")
	ErrInvalidUserID     = apierror.Invalid("reviews", "Identificador de usuario inválido")
	ErrContentRequired   = apierror.Invalid("reviews", "La reseña debe indicar el contenido valorado")
	ErrInvalidType       = apierror.Invalid("reviews", "Tipo de contenido inválido")
	ErrRatingOutOfRange  = apierror.Invalid("reviews", fmt.Sprintf("La puntuación debe estar entre %d y %d", MinRating, MaxRating))
	ErrReviewTextMissing = apierror.Invalid("reviews", "El texto de la reseña es obligatorio")
)

// Service relays review CRUD to the backend.
type Service struct {
	client *backend.Client
}

// NewService creates a reviews service.
func NewService(client *backend.Client) *Service {
	return &Service{client: client}
}

func reviewPath(id int64) string {
	return "/reviews/" + strconv.FormatInt(id, 10)
}

// normalize validates input and fills the API source from the content type.
func normalize(in models.ReviewInput) (models.ReviewInput, error) {
	t, err := models.ParseMediaType(string(in.ContentType))
	if err != nil {
		return in, ErrInvalidType
	}
	in.ContentType = t
	in.ContentID = strings.TrimSpace(in.ContentID)
	if in.ContentID == "" {
		return in, ErrContentRequired
	}
	if in.Rating < MinRating || in.Rating > MaxRating {
		return in, ErrRatingOutOfRange
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Text = strings.TrimSpace(in.Text)
	if in.Text == "" {
		return in, ErrReviewTextMissing
	}
	in.APISource = t.APISource()
	return in, nil
}

// Create publishes a review for the session's user.
func (s *Service) Create(ctx context.Context, in models.ReviewInput) (models.Review, error) {
	in, err := normalize(in)
	if err != nil {
		return models.Review{}, err
	}
	var review models.Review
	if err := s.client.Post(ctx, "/reviews", in, &review); err != nil {
		return models.Review{}, fmt.Errorf("create review: %w", err)
	}
	return review, nil
}

// Get returns one review.
func (s *Service) Get(ctx context.Context, id int64) (models.Review, error) {
	if id <= 0 {
		return models.Review{}, ErrInvalidReviewID
	}
	var review models.Review
	if err := s.client.Get(ctx, reviewPath(id), &review); err != nil {
		return models.Review{}, fmt.Errorf("get review %d: %w", id, err)
	}
	return review, nil
}

// ByContent returns the reviews of one piece of content.
func (s *Service) ByContent(ctx context.Context, contentType models.MediaType, contentID string) ([]models.Review, error) {
	contentID = strings.TrimSpace(contentID)
	if contentID == "" {
		return nil, ErrContentRequired
	}
	t, err := models.ParseMediaType(string(contentType))
	if err != nil {
		return nil, ErrInvalidType
	}
	path := "/reviews/content/" + url.PathEscape(string(t)) + "/" + url.PathEscape(contentID)
	return s.list(ctx, path)
}

// ByUser returns the reviews written by a user.
func (s *Service) ByUser(ctx context.Context, userID int64) ([]models.Review, error) {
	if userID <= 0 {
		return nil, ErrInvalidUserID
	}
	return s.list(ctx, "/reviews/user/"+strconv.FormatInt(userID, 10))
}

func (s *Service) list(ctx context.Context, path string) ([]models.Review, error) {
	var reviews []models.Review
	if err := s.client.Get(ctx, path, &reviews); err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	if reviews == nil {
		reviews = []models.Review{}
	}
	return reviews, nil
}

// Update replaces the rating and text of a review.
func (s *Service) Update(ctx context.Context, id int64, in models.ReviewInput) (models.Review, error) {
	if id <= 0 {
		return models.Review{}, ErrInvalidReviewID
	}
	in, err := normalize(in)
	if err != nil {
		return models.Review{}, err
	}
	var review models.Review
	if err := s.client.Put(ctx, reviewPath(id), in, &review); err != nil {
		return models.Review{}, fmt.Errorf("update review %d: %w", id, err)
	}
	if review.ID == 0 {
		review.ID = id
	}
	return review, nil
}

// Delete removes a review.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidReviewID
	}
	if err := s.client.Delete(ctx, reviewPath(id)); err != nil {
		return fmt.Errorf("delete review %d: %w", id, err)
	}
	return nil
}
