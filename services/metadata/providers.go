package metadata

import (
	"context"
	"log"
	"regexp"
	"strings"

	"github.com/sourcegraph/conc/iter"

	"reviewverso/models"
)

// Query selects one page of a browse listing or a search.
type Query struct {
	Search string
	Page   int
	// Category is a TMDB list (popular, top_rated, ...) or an OpenLibrary subject.
	Category string
}

func (q Query) page() int {
	if q.Page < 1 {
		return 1
	}
	return q.Page
}

// Provider resolves one media type against its upstream API.
type Provider interface {
	Type() models.MediaType
	Browse(ctx context.Context, q Query) (models.MediaPage, error)
	Details(ctx context.Context, id string) (models.MediaItem, error)
}

type movieProvider struct{ tmdb *tmdbClient }

func (p *movieProvider) Type() models.MediaType { return models.MediaTypeMovie }

func (p *movieProvider) Browse(ctx context.Context, q Query) (models.MediaPage, error) {
	var (
		resp tmdbPage[TMDBMovie]
		err  error
	)
	if strings.TrimSpace(q.Search) != "" {
		resp, err = p.tmdb.searchMovies(ctx, strings.TrimSpace(q.Search), q.page())
	} else {
		resp, err = p.tmdb.movieList(ctx, q.Category, q.page())
	}
	if err != nil {
		return models.MediaPage{}, err
	}
	return models.MediaPage{
		Page:         resp.Page,
		TotalPages:   resp.TotalPages,
		TotalResults: resp.TotalResults,
		Results:      formatMovies(resp.Results),
	}, nil
}

func (p *movieProvider) Details(ctx context.Context, id string) (models.MediaItem, error) {
	n, ok := tmdbID(id)
	if !ok {
		return models.MediaItem{}, ErrInvalidID
	}
	raw, err := p.tmdb.movie(ctx, n)
	if err != nil {
		return models.MediaItem{}, err
	}
	return FormatMovie(raw), nil
}

type showProvider struct{ tmdb *tmdbClient }

func (p *showProvider) Type() models.MediaType { return models.MediaTypeSeries }

func (p *showProvider) Browse(ctx context.Context, q Query) (models.MediaPage, error) {
	var (
		resp tmdbPage[TMDBShow]
		err  error
	)
	if strings.TrimSpace(q.Search) != "" {
		resp, err = p.tmdb.searchTV(ctx, strings.TrimSpace(q.Search), q.page())
	} else {
		resp, err = p.tmdb.tvList(ctx, q.Category, q.page())
	}
	if err != nil {
		return models.MediaPage{}, err
	}
	return models.MediaPage{
		Page:         resp.Page,
		TotalPages:   resp.TotalPages,
		TotalResults: resp.TotalResults,
		Results:      formatShows(resp.Results),
	}, nil
}

func (p *showProvider) Details(ctx context.Context, id string) (models.MediaItem, error) {
	n, ok := tmdbID(id)
	if !ok {
		return models.MediaItem{}, ErrInvalidID
	}
	raw, err := p.tmdb.tv(ctx, n)
	if err != nil {
		return models.MediaItem{}, err
	}
	return FormatShow(raw), nil
}

type gameProvider struct{ igdb *igdbClient }

func (p *gameProvider) Type() models.MediaType { return models.MediaTypeVideogame }

func (p *gameProvider) Browse(ctx context.Context, q Query) (models.MediaPage, error) {
	var (
		games []IGDBGame
		err   error
	)
	if strings.TrimSpace(q.Search) != "" {
		games, err = p.igdb.searchGames(ctx, strings.TrimSpace(q.Search), q.page())
	} else {
		games, err = p.igdb.popularGames(ctx, q.page())
	}
	if err != nil {
		return models.MediaPage{}, err
	}
	return openEndedPage(q.page(), igdbPageSize, formatGames(games)), nil
}

func (p *gameProvider) Details(ctx context.Context, id string) (models.MediaItem, error) {
	n, ok := tmdbID(id)
	if !ok {
		return models.MediaItem{}, ErrInvalidID
	}
	raw, err := p.igdb.game(ctx, n)
	if err != nil {
		return models.MediaItem{}, err
	}
	return FormatGame(raw), nil
}

var openLibraryIDPattern = regexp.MustCompile(`^OL\d+[WM]$`)

type bookProvider struct{ ol *openLibraryClient }

func (p *bookProvider) Type() models.MediaType { return models.MediaTypeBook }

func (p *bookProvider) Browse(ctx context.Context, q Query) (models.MediaPage, error) {
	page := q.page()
	switch {
	case strings.TrimSpace(q.Search) != "":
		resp, err := p.ol.searchBooks(ctx, strings.TrimSpace(q.Search), page)
		if err != nil {
			return models.MediaPage{}, err
		}
		return models.MediaPage{
			Page:         page,
			TotalPages:   (resp.NumFound + openLibraryPageSize - 1) / openLibraryPageSize,
			TotalResults: resp.NumFound,
			Results:      formatBooks(resp.Docs),
		}, nil
	case strings.TrimSpace(q.Category) != "":
		resp, err := p.ol.subjectBooks(ctx, q.Category, page)
		if err != nil {
			return models.MediaPage{}, err
		}
		return models.MediaPage{
			Page:         page,
			TotalPages:   (resp.WorkCount + openLibraryPageSize - 1) / openLibraryPageSize,
			TotalResults: resp.WorkCount,
			Results:      formatBooks(resp.Works),
		}, nil
	default:
		resp, err := p.ol.trendingBooks(ctx, page)
		if err != nil {
			return models.MediaPage{}, err
		}
		return openEndedPage(page, openLibraryPageSize, formatBooks(resp.Works)), nil
	}
}

// Details loads a work, resolving edition IDs to their work first. Ratings
// and author names are best effort: the work renders without them.
func (p *bookProvider) Details(ctx context.Context, id string) (models.MediaItem, error) {
	id = strings.TrimSpace(id)
	id = strings.TrimPrefix(strings.TrimPrefix(id, "/works/"), "/books/")
	if !openLibraryIDPattern.MatchString(id) {
		return models.MediaItem{}, ErrInvalidID
	}
	if strings.HasSuffix(id, "M") {
		workID, err := p.ol.editionWork(ctx, id)
		if err != nil {
			return models.MediaItem{}, err
		}
		id = workID
	}

	raw, err := p.ol.work(ctx, id)
	if err != nil {
		return models.MediaItem{}, err
	}

	if ratings, err := p.ol.ratings(ctx, id); err != nil {
		log.Printf("[metadata] book %s ratings unavailable: %v", id, err)
	} else {
		raw.Ratings = &ratings
	}

	if len(raw.AuthorName) == 0 && len(raw.Authors) > 0 {
		authors := raw.Authors
		if len(authors) > 5 {
			authors = authors[:5]
		}
		resolved := iter.Map(authors, func(a *olAuthorRef) string {
			if a.Name != "" {
				return a.Name
			}
			name, err := p.ol.authorName(ctx, a.Key)
			if err != nil {
				log.Printf("[metadata] author %s lookup failed: %v", a.Key, err)
				return ""
			}
			return name
		})
		for _, name := range resolved {
			if name != "" {
				raw.AuthorName = append(raw.AuthorName, name)
			}
		}
	}

	item := FormatBook(raw)
	if item.ID == "" {
		item.ID = id
	}
	return item, nil
}

// openEndedPage builds a page for endpoints that do not report totals: a full
// page implies there may be another one.
func openEndedPage(page, size int, results []models.MediaItem) models.MediaPage {
	total := page
	if len(results) >= size {
		total = page + 1
	}
	return models.MediaPage{
		Page:         page,
		TotalPages:   total,
		TotalResults: (page-1)*size + len(results),
		Results:      results,
	}
}
