package metadata

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const defaultTMDBBaseURL = "https://api.themoviedb.org/3"

// Movie and TV list categories exposed by TMDB.
var (
	tmdbMovieCategories = map[string]bool{"popular": true, "top_rated": true, "upcoming": true, "now_playing": true}
	tmdbTVCategories    = map[string]bool{"popular": true, "top_rated": true, "on_the_air": true, "airing_today": true}
)

type tmdbPage[T any] struct {
	Page         int `json:"page"`
	TotalPages   int `json:"total_pages"`
	TotalResults int `json:"total_results"`
	Results      []T `json:"results"`
}

// tmdbClient talks to the TMDB v3 REST API with an api_key query parameter.
type tmdbClient struct {
	apiKey   string
	language string
	baseURL  string
	httpc    HTTPDoer
	limiter  *rate.Limiter
}

func newTMDBClient(apiKey, language, baseURL string, httpc HTTPDoer) *tmdbClient {
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultTMDBBaseURL
	}
	return &tmdbClient{
		apiKey:   strings.TrimSpace(apiKey),
		language: language,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		httpc:    httpc,
		// TMDB allows roughly 40 requests every 10 seconds.
		limiter: rate.NewLimiter(rate.Every(250*time.Millisecond), 40),
	}
}

func (c *tmdbClient) get(ctx context.Context, path string, q url.Values, v any) error {
	if c.apiKey == "" {
		return ErrTMDBKeyMissing
	}
	if q == nil {
		q = url.Values{}
	}
	q.Set("api_key", c.apiKey)
	if c.language != "" {
		q.Set("language", c.language)
	}
	u := c.baseURL + path + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("tmdb: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return send(ctx, c.httpc, c.limiter, "tmdb GET "+path, req, v)
}

func pageParam(page int) url.Values {
	if page < 1 {
		page = 1
	}
	return url.Values{"page": {strconv.Itoa(page)}}
}

func (c *tmdbClient) movieList(ctx context.Context, category string, page int) (tmdbPage[TMDBMovie], error) {
	if !tmdbMovieCategories[category] {
		category = "popular"
	}
	var resp tmdbPage[TMDBMovie]
	err := c.get(ctx, "/movie/"+category, pageParam(page), &resp)
	return resp, err
}

func (c *tmdbClient) searchMovies(ctx context.Context, query string, page int) (tmdbPage[TMDBMovie], error) {
	q := pageParam(page)
	q.Set("query", query)
	q.Set("include_adult", "false")
	var resp tmdbPage[TMDBMovie]
	err := c.get(ctx, "/search/movie", q, &resp)
	return resp, err
}

func (c *tmdbClient) movie(ctx context.Context, id int64) (TMDBMovie, error) {
	var resp TMDBMovie
	err := c.get(ctx, fmt.Sprintf("/movie/%d", id), nil, &resp)
	return resp, err
}

func (c *tmdbClient) tvList(ctx context.Context, category string, page int) (tmdbPage[TMDBShow], error) {
	if !tmdbTVCategories[category] {
		category = "popular"
	}
	var resp tmdbPage[TMDBShow]
	err := c.get(ctx, "/tv/"+category, pageParam(page), &resp)
	return resp, err
}

func (c *tmdbClient) searchTV(ctx context.Context, query string, page int) (tmdbPage[TMDBShow], error) {
	q := pageParam(page)
	q.Set("query", query)
	q.Set("include_adult", "false")
	var resp tmdbPage[TMDBShow]
	err := c.get(ctx, "/search/tv", q, &resp)
	return resp, err
}

func (c *tmdbClient) tv(ctx context.Context, id int64) (TMDBShow, error) {
	var resp TMDBShow
	err := c.get(ctx, fmt.Sprintf("/tv/%d", id), nil, &resp)
	return resp, err
}
