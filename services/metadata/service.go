package metadata

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"reviewverso/config"
	"reviewverso/models"
)

// Service aggregates the movie, series, video game and book providers behind
// one cached, type-dispatched API.
type Service struct {
	providers map[models.MediaType]Provider
	cache     *detailsCache
	igdb      *igdbClient
}

// NewService builds the providers from settings. httpc may be nil.
func NewService(settings config.Settings, httpc HTTPDoer) *Service {
	tmdb := newTMDBClient(settings.TMDB.APIKey, settings.TMDB.Language, settings.TMDB.BaseURL, httpc)
	igdb := newIGDBClient(settings.IGDB.ClientID, settings.IGDB.AccessToken, settings.IGDB.BaseURL, httpc)
	ol := newOpenLibraryClient(settings.OpenLibrary.BaseURL, httpc, settings.OpenLibrary.RetryDelay())

	svc := newService(newDetailsCache(settings.Cache.Size, settings.Cache.TTL()),
		&movieProvider{tmdb: tmdb},
		&showProvider{tmdb: tmdb},
		&gameProvider{igdb: igdb},
		&bookProvider{ol: ol},
	)
	svc.igdb = igdb

	if tmdb.apiKey == "" {
		log.Printf("[metadata] WARNING: TMDB API key not configured; movies and series are unavailable")
	}
	if igdb.clientID == "" || igdb.accessToken == "" {
		log.Printf("[metadata] WARNING: IGDB credentials not configured; video games are unavailable")
	}
	return svc
}

func newService(cache *detailsCache, providers ...Provider) *Service {
	svc := &Service{
		providers: make(map[models.MediaType]Provider, len(providers)),
		cache:     cache,
	}
	for _, p := range providers {
		svc.providers[p.Type()] = p
	}
	return svc
}

func (s *Service) provider(t models.MediaType) (Provider, error) {
	p, ok := s.providers[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMediaType, t)
	}
	return p, nil
}

// Browse returns a page of listings (no search) or search results.
func (s *Service) Browse(ctx context.Context, t models.MediaType, q Query) (models.MediaPage, error) {
	p, err := s.provider(t)
	if err != nil {
		return models.MediaPage{}, err
	}
	start := time.Now()
	page, err := s.cache.page(ctx, pageKey(t, q), func(ctx context.Context) (models.MediaPage, error) {
		return p.Browse(ctx, q)
	})
	if err != nil {
		log.Printf("[metadata] browse %s search=%q page=%d failed after %dms: %v",
			t, q.Search, q.page(), time.Since(start).Milliseconds(), err)
		return models.MediaPage{}, err
	}
	if page.Results == nil {
		page.Results = []models.MediaItem{}
	}
	return page, nil
}

// Details returns one item by provider ID. Concurrent lookups of the same
// (type, id) share a single upstream request.
func (s *Service) Details(ctx context.Context, t models.MediaType, id string) (models.MediaItem, error) {
	p, err := s.provider(t)
	if err != nil {
		return models.MediaItem{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return models.MediaItem{}, ErrInvalidID
	}
	return s.cache.item(ctx, itemKey(t, id), func(ctx context.Context) (models.MediaItem, error) {
		return p.Details(ctx, id)
	})
}

// ProxyIGDB forwards a raw Apicalypse query to IGDB with server-side credentials.
func (s *Service) ProxyIGDB(ctx context.Context, endpoint string, body io.Reader) (*http.Response, error) {
	if s.igdb == nil {
		return nil, ErrIGDBCredentialsMissing
	}
	return s.igdb.forward(ctx, endpoint, body)
}

// ClearCache drops all memoized provider responses.
func (s *Service) ClearCache() {
	s.cache.clear()
	log.Printf("[metadata] cleared details cache")
}
