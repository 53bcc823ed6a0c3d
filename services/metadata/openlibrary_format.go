package metadata

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"reviewverso/models"
)

const (
	openLibraryCoverBaseURL = "https://covers.openlibrary.org/b/id/"
	openLibraryCoverLarge   = "L"
)

// OpenLibraryWork covers the shapes returned by /search.json, /subjects,
// /trending and /works/{id}.json. Authors and covers appear under different
// keys depending on the endpoint.
type OpenLibraryWork struct {
	Key              string          `json:"key"`
	CoverEditionKey  string          `json:"cover_edition_key"`
	RawID            flexText        `json:"id"`
	Title            string          `json:"title"`
	CoverI           flexInt         `json:"cover_i"`
	CoverID          flexInt         `json:"cover_id"`
	Covers           []flexInt       `json:"covers"`
	AuthorName       []string        `json:"author_name"`
	Authors          []olAuthorRef   `json:"authors"`
	FirstPublishYear flexInt         `json:"first_publish_year"`
	FirstPublishDate string          `json:"first_publish_date"`
	PublishDate      string          `json:"publish_date"`
	Description      flexText        `json:"description"`
	Subject          []string        `json:"subject"`
	Subjects         []string        `json:"subjects"`
	NumberOfPages    flexInt         `json:"number_of_pages_median"`
	RatingsAverage   flexFloat       `json:"ratings_average"`
	RatingsCount     flexInt         `json:"ratings_count"`
	Ratings          *olRatingsBlock `json:"-"`
}

// olAuthorRef is either {"name": "..."} (subjects, trending) or
// {"author": {"key": "/authors/OL1A"}} (works).
type olAuthorRef struct {
	Name string
	Key  string
}

func (a *olAuthorRef) UnmarshalJSON(b []byte) error {
	*a = olAuthorRef{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	var obj struct {
		Name   flexText `json:"name"`
		Key    string   `json:"key"`
		Author struct {
			Key string `json:"key"`
		} `json:"author"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return nil
	}
	a.Name = strings.TrimSpace(string(obj.Name))
	a.Key = firstNonEmpty(obj.Author.Key, obj.Key)
	return nil
}

// olRatingsBlock is the /works/{id}/ratings.json summary (1–5 stars).
type olRatingsBlock struct {
	Summary struct {
		Average flexFloat `json:"average"`
		Count   flexInt   `json:"count"`
	} `json:"summary"`
}

// bookID extracts the bare OpenLibrary identifier from a work or edition key.
func bookID(raw OpenLibraryWork) string {
	for _, key := range []string{raw.Key, raw.CoverEditionKey} {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		key = strings.TrimPrefix(key, "/works/")
		key = strings.TrimPrefix(key, "/books/")
		if key != "" {
			return key
		}
	}
	return strings.TrimSpace(string(raw.RawID))
}

func bookCoverID(raw OpenLibraryWork) (int64, bool) {
	for _, c := range []flexInt{raw.CoverI, raw.CoverID} {
		if c.Valid && c.Value > 0 {
			return c.Value, true
		}
	}
	// OpenLibrary uses -1 for removed covers.
	for _, c := range raw.Covers {
		if c.Valid && c.Value > 0 {
			return c.Value, true
		}
	}
	return 0, false
}

// buildOpenLibraryCover returns the cover URL for a cover id and size (S, M, L).
func buildOpenLibraryCover(id int64, size string) string {
	return openLibraryCoverBaseURL + strconv.FormatInt(id, 10) + "-" + size + ".jpg"
}

func bookAuthors(raw OpenLibraryWork) []string {
	out := make([]string, 0, len(raw.AuthorName)+len(raw.Authors))
	for _, name := range raw.AuthorName {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	if len(out) > 0 {
		return out
	}
	for _, a := range raw.Authors {
		if a.Name != "" {
			out = append(out, a.Name)
		}
	}
	return out
}

func bookYear(raw OpenLibraryWork) *int {
	if raw.FirstPublishYear.Valid && raw.FirstPublishYear.Value > 0 {
		return intPtr(int(raw.FirstPublishYear.Value))
	}
	if y := parseLooseYear(raw.FirstPublishDate); y != nil {
		return y
	}
	return parseLooseYear(raw.PublishDate)
}

func bookRating(raw OpenLibraryWork) (*float64, int) {
	if raw.Ratings != nil && raw.Ratings.Summary.Average.Valid {
		return vote(raw.Ratings.Summary.Average, 1), int(raw.Ratings.Summary.Count.Value)
	}
	if raw.RatingsAverage.Valid {
		return vote(raw.RatingsAverage, 1), int(raw.RatingsCount.Value)
	}
	return nil, 0
}

// FormatBook maps an OpenLibrary work onto the display model. Ratings use the
// OpenLibrary 1–5 star scale; a work without ratings has a null vote_average.
func FormatBook(raw OpenLibraryWork) models.MediaItem {
	var poster *string
	posterPath := ""
	if id, ok := bookCoverID(raw); ok {
		poster = stringPtr(buildOpenLibraryCover(id, openLibraryCoverLarge))
		posterPath = strconv.FormatInt(id, 10)
	}

	subjects := raw.Subject
	if len(subjects) == 0 {
		subjects = raw.Subjects
	}
	genres := make([]string, 0, 3)
	for _, s := range subjects {
		if len(genres) == 3 {
			break
		}
		if s = strings.TrimSpace(s); s != "" {
			genres = append(genres, s)
		}
	}

	avg, count := bookRating(raw)
	return models.MediaItem{
		ID:                   bookID(raw),
		Type:                 models.MediaTypeBook,
		Title:                strings.TrimSpace(raw.Title),
		PosterPath:           posterPath,
		PosterURL:            poster,
		BackdropURL:          nil,
		ReleaseDate:          firstNonEmpty(raw.FirstPublishDate, raw.PublishDate),
		ReleaseYear:          bookYear(raw),
		VoteAverage:          avg,
		FormattedVoteAverage: formatVote(avg),
		VoteScale:            scaleFive,
		VoteCount:            count,
		Overview:             strings.TrimSpace(string(raw.Description)),
		Genres:               genres,
		Authors:              nonNil(bookAuthors(raw)),
		Subjects:             subjects,
		NumberOfPages:        int(raw.NumberOfPages.Value),
	}
}

func formatBooks(raw []OpenLibraryWork) []models.MediaItem {
	out := make([]models.MediaItem, 0, len(raw))
	for _, w := range raw {
		out = append(out, FormatBook(w))
	}
	return out
}
