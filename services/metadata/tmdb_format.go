package metadata

import (
	"strconv"
	"strings"

	"reviewverso/models"
)

const (
	tmdbImageBaseURL = "https://image.tmdb.org/t/p/"
	tmdbPosterSize   = "w500"
	tmdbBackdropSize = "original"
)

// TMDBMovie is the subset of a TMDB movie (list entry or details) we read.
type TMDBMovie struct {
	ID            flexInt    `json:"id"`
	Title         string     `json:"title"`
	OriginalTitle string     `json:"original_title"`
	Overview      string     `json:"overview"`
	PosterPath    string     `json:"poster_path"`
	BackdropPath  string     `json:"backdrop_path"`
	ReleaseDate   string     `json:"release_date"`
	VoteAverage   flexFloat  `json:"vote_average"`
	VoteCount     flexInt    `json:"vote_count"`
	GenreIDs      []flexInt  `json:"genre_ids"`
	Genres        []namedRef `json:"genres"`
	Runtime       flexInt    `json:"runtime"`
}

// TMDBShow is the subset of a TMDB TV show we read.
type TMDBShow struct {
	ID               flexInt    `json:"id"`
	Name             string     `json:"name"`
	OriginalName     string     `json:"original_name"`
	Overview         string     `json:"overview"`
	PosterPath       string     `json:"poster_path"`
	BackdropPath     string     `json:"backdrop_path"`
	FirstAirDate     string     `json:"first_air_date"`
	VoteAverage      flexFloat  `json:"vote_average"`
	VoteCount        flexInt    `json:"vote_count"`
	GenreIDs         []flexInt  `json:"genre_ids"`
	Genres           []namedRef `json:"genres"`
	NumberOfSeasons  flexInt    `json:"number_of_seasons"`
	NumberOfEpisodes flexInt    `json:"number_of_episodes"`
	EpisodeRunTime   []flexInt  `json:"episode_run_time"`
}

// TMDB genre names for the es-ES locale. List endpoints only carry genre_ids.
var tmdbMovieGenres = map[int64]string{
	28:    "Acción",
	12:    "Aventura",
	16:    "Animación",
	35:    "Comedia",
	80:    "Crimen",
	99:    "Documental",
	18:    "Drama",
	10751: "Familia",
	14:    "Fantasía",
	36:    "Historia",
	27:    "Terror",
	10402: "Música",
	9648:  "Misterio",
	10749: "Romance",
	878:   "Ciencia ficción",
	10770: "Película de TV",
	53:    "Suspense",
	10752: "Bélica",
	37:    "Western",
}

var tmdbTVGenres = map[int64]string{
	10759: "Action & Adventure",
	16:    "Animación",
	35:    "Comedia",
	80:    "Crimen",
	99:    "Documental",
	18:    "Drama",
	10751: "Familia",
	10762: "Kids",
	9648:  "Misterio",
	10763: "News",
	10764: "Reality",
	10765: "Sci-Fi & Fantasy",
	10766: "Soap",
	10767: "Talk",
	10768: "War & Politics",
	37:    "Western",
}

// buildTMDBImage returns the absolute URL for a TMDB image path, or nil when
// the path is empty.
func buildTMDBImage(path, size string) *string {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return stringPtr(tmdbImageBaseURL + size + path)
}

func tmdbGenres(genres []namedRef, ids []flexInt, table map[int64]string) []string {
	if len(genres) > 0 {
		out := names(genres)
		if len(out) > 0 {
			return out
		}
		// Details responses may carry IDs only.
		for _, g := range genres {
			ids = append(ids, flexInt{Value: g.ID, Valid: true})
		}
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := table[id.Value]; ok {
			out = append(out, name)
		}
	}
	return out
}

// FormatMovie maps a raw TMDB movie onto the display model.
func FormatMovie(raw TMDBMovie) models.MediaItem {
	avg := vote(raw.VoteAverage, 1)
	return models.MediaItem{
		ID:                   raw.ID.String(),
		Type:                 models.MediaTypeMovie,
		Title:                firstNonEmpty(raw.Title, raw.OriginalTitle),
		OriginalTitle:        raw.OriginalTitle,
		PosterPath:           raw.PosterPath,
		PosterURL:            buildTMDBImage(raw.PosterPath, tmdbPosterSize),
		BackdropURL:          buildTMDBImage(raw.BackdropPath, tmdbBackdropSize),
		ReleaseDate:          raw.ReleaseDate,
		ReleaseYear:          parseDateYear(raw.ReleaseDate),
		VoteAverage:          avg,
		FormattedVoteAverage: formatVote(avg),
		VoteScale:            scaleTen,
		VoteCount:            int(raw.VoteCount.Value),
		Overview:             raw.Overview,
		Genres:               tmdbGenres(raw.Genres, raw.GenreIDs, tmdbMovieGenres),
		Runtime:              int(raw.Runtime.Value),
	}
}

// FormatShow maps a raw TMDB TV show onto the display model.
func FormatShow(raw TMDBShow) models.MediaItem {
	avg := vote(raw.VoteAverage, 1)
	runtime := 0
	if len(raw.EpisodeRunTime) > 0 {
		runtime = int(raw.EpisodeRunTime[0].Value)
	}
	return models.MediaItem{
		ID:                   raw.ID.String(),
		Type:                 models.MediaTypeSeries,
		Title:                firstNonEmpty(raw.Name, raw.OriginalName),
		OriginalTitle:        raw.OriginalName,
		PosterPath:           raw.PosterPath,
		PosterURL:            buildTMDBImage(raw.PosterPath, tmdbPosterSize),
		BackdropURL:          buildTMDBImage(raw.BackdropPath, tmdbBackdropSize),
		ReleaseDate:          raw.FirstAirDate,
		ReleaseYear:          parseDateYear(raw.FirstAirDate),
		VoteAverage:          avg,
		FormattedVoteAverage: formatVote(avg),
		VoteScale:            scaleTen,
		VoteCount:            int(raw.VoteCount.Value),
		Overview:             raw.Overview,
		Genres:               tmdbGenres(raw.Genres, raw.GenreIDs, tmdbTVGenres),
		Runtime:              runtime,
		Seasons:              int(raw.NumberOfSeasons.Value),
		Episodes:             int(raw.NumberOfEpisodes.Value),
	}
}

func formatMovies(raw []TMDBMovie) []models.MediaItem {
	out := make([]models.MediaItem, 0, len(raw))
	for _, m := range raw {
		out = append(out, FormatMovie(m))
	}
	return out
}

func formatShows(raw []TMDBShow) []models.MediaItem {
	out := make([]models.MediaItem, 0, len(raw))
	for _, s := range raw {
		out = append(out, FormatShow(s))
	}
	return out
}

func tmdbID(id string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	return n, err == nil && n > 0
}
