package models

// ListItem references a piece of content by provider ID.
type ListItem struct {
	ContentType MediaType `json:"contentType"`
	ContentID   string    `json:"contentId"`
	APISource   string    `json:"apiSource"`
}

// List is a user-curated collection of content, owned by the backend.
type List struct {
	ID          int64      `json:"idList"`
	UserID      int64      `json:"userId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Items       []ListItem `json:"items"`
}

// ListInput is the payload for creating or updating a list.
type ListInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Items       []ListItem `json:"items,omitempty"`
}

// HydratedListItem pairs a list item with its resolved display model.
// Media is nil and Error is set when the provider lookup failed.
type HydratedListItem struct {
	ListItem
	Media *MediaItem `json:"media"`
	Error string     `json:"error,omitempty"`
}

// HydratedList is a list whose items have been resolved against the providers.
type HydratedList struct {
	List
	Media []HydratedListItem `json:"media"`
}
