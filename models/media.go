package models

import (
	"fmt"
	"strings"
)

// MediaType discriminates the four provider ID spaces.
type MediaType string

const (
	MediaTypeMovie     MediaType = "movie"
	MediaTypeSeries    MediaType = "series"
	MediaTypeVideogame MediaType = "videogame"
	MediaTypeBook      MediaType = "book"
)

// API sources recorded on reviews and list items.
const (
	APISourceTMDB        = "tmdb"
	APISourceIGDB        = "igdb"
	APISourceOpenLibrary = "openlibrary"
)

// ParseMediaType accepts the canonical names plus the Spanish route segments
// used by the frontend (peliculas, series, videojuegos, libros).
func ParseMediaType(raw string) (MediaType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "movie", "movies", "pelicula", "peliculas":
		return MediaTypeMovie, nil
	case "series", "serie", "show", "shows", "tv":
		return MediaTypeSeries, nil
	case "videogame", "videogames", "game", "games", "videojuego", "videojuegos":
		return MediaTypeVideogame, nil
	case "book", "books", "libro", "libros":
		return MediaTypeBook, nil
	}
	return "", fmt.Errorf("unknown media type %q", raw)
}

// APISource returns the provider that owns IDs of this media type.
func (t MediaType) APISource() string {
	switch t {
	case MediaTypeMovie, MediaTypeSeries:
		return APISourceTMDB
	case MediaTypeVideogame:
		return APISourceIGDB
	case MediaTypeBook:
		return APISourceOpenLibrary
	}
	return ""
}

// MediaItem is the provider-independent display model shared by movies,
// series, video games and books. Nullable fields encode as JSON null.
type MediaItem struct {
	ID                   string    `json:"id"`
	Type                 MediaType `json:"type"`
	Title                string    `json:"title"`
	OriginalTitle        string    `json:"original_title,omitempty"`
	PosterPath           string    `json:"poster_path,omitempty"`
	PosterURL            *string   `json:"poster_url"`
	BackdropURL          *string   `json:"backdrop_url"`
	ReleaseDate          string    `json:"release_date,omitempty"`
	ReleaseYear          *int      `json:"release_year"`
	VoteAverage          *float64  `json:"vote_average"`
	FormattedVoteAverage string    `json:"formatted_vote_average"`
	VoteScale            float64   `json:"vote_scale"`
	VoteCount            int       `json:"vote_count,omitempty"`
	Overview             string    `json:"overview"`
	Genres               []string  `json:"genres"`

	// Provider specific extras.
	Runtime       int      `json:"runtime,omitempty"`
	Seasons       int      `json:"number_of_seasons,omitempty"`
	Episodes      int      `json:"number_of_episodes,omitempty"`
	Platforms     []string `json:"platforms,omitempty"`
	Developers    []string `json:"developers,omitempty"`
	Authors       []string `json:"authors,omitempty"`
	Subjects      []string `json:"subjects,omitempty"`
	NumberOfPages int      `json:"number_of_pages,omitempty"`
}

// Key returns the (type, id) identity used for caching.
func (m MediaItem) Key() string {
	return string(m.Type) + ":" + m.ID
}

// MediaPage is one page of a provider listing or search.
type MediaPage struct {
	Page         int         `json:"page"`
	TotalPages   int         `json:"total_pages"`
	TotalResults int         `json:"total_results"`
	Results      []MediaItem `json:"results"`
}
