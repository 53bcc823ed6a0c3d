package models

// Review is owned by the ReviewVerso backend; the BFF only relays it.
type Review struct {
	ID          int64     `json:"idReview"`
	UserID      int64     `json:"userId"`
	Username    string    `json:"username,omitempty"`
	ContentType MediaType `json:"contentType"`
	ContentID   string    `json:"contentId"`
	APISource   string    `json:"apiSource"`
	Rating      float64   `json:"rating"`
	Title       string    `json:"reviewTitle"`
	Text        string    `json:"reviewText"`
	CreatedAt   string    `json:"createdAt,omitempty"`
}

// ReviewInput is the payload for creating or updating a review.
type ReviewInput struct {
	ContentType MediaType `json:"contentType"`
	ContentID   string    `json:"contentId"`
	APISource   string    `json:"apiSource,omitempty"`
	Rating      float64   `json:"rating"`
	Title       string    `json:"reviewTitle"`
	Text        string    `json:"reviewText"`
}
