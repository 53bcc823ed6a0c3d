package handlers

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"reviewverso/api"
	"reviewverso/internal/apierror"
	"reviewverso/models"
	"reviewverso/services/metadata"
)

type fakeCatalog struct {
	page models.MediaPage
	item models.MediaItem
	err  error

	proxyStatus int
	proxyBody   string

	lastType      models.MediaType
	lastQuery     metadata.Query
	lastID        string
	lastEndpoint  string
	lastProxyBody string
	cleared       bool
}

func (f *fakeCatalog) Browse(_ context.Context, t models.MediaType, q metadata.Query) (models.MediaPage, error) {
	f.lastType, f.lastQuery = t, q
	return f.page, f.err
}

func (f *fakeCatalog) Details(_ context.Context, t models.MediaType, id string) (models.MediaItem, error) {
	f.lastType, f.lastID = t, id
	return f.item, f.err
}

func (f *fakeCatalog) ProxyIGDB(_ context.Context, endpoint string, body io.Reader) (*http.Response, error) {
	f.lastEndpoint = endpoint
	raw, _ := io.ReadAll(body)
	f.lastProxyBody = string(raw)
	if f.err != nil {
		return nil, f.err
	}
	return &http.Response{
		StatusCode: f.proxyStatus,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(f.proxyBody)),
	}, nil
}

func (f *fakeCatalog) ClearCache() {
	f.cleared = true
}

func TestCatalogBrowseParsesQuery(t *testing.T) {
	catalog := &fakeCatalog{page: models.MediaPage{
		Page:       2,
		TotalPages: 3,
		Results:    []models.MediaItem{{ID: "603", Type: models.MediaTypeMovie, Title: "Matrix"}},
	}}
	srv := newTestServer(t, Routes{Catalog: NewCatalogHandler(catalog)})

	rec := srv.do(http.MethodGet, "/api/peliculas?q=%20Matrix%20&page=2&category=top_rated", "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var page models.MediaPage
	env := decodeEnvelope(t, rec, &page)
	assert.True(t, env.Success)
	assert.Equal(t, http.StatusOK, env.Status)
	assert.Equal(t, models.MediaTypeMovie, catalog.lastType)
	assert.Equal(t, metadata.Query{Search: "Matrix", Page: 2, Category: "top_rated"}, catalog.lastQuery)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "Matrix", page.Results[0].Title)
}

func TestCatalogSectionsMapToMediaTypes(t *testing.T) {
	tests := []struct {
		path string
		want models.MediaType
	}{
		{"/api/peliculas", models.MediaTypeMovie},
		{"/api/series", models.MediaTypeSeries},
		{"/api/videojuegos", models.MediaTypeVideogame},
		{"/api/libros?subject=fantasy&page=abc", models.MediaTypeBook},
	}
	for _, tt := range tests {
		catalog := &fakeCatalog{}
		srv := newTestServer(t, Routes{Catalog: NewCatalogHandler(catalog)})
		rec := srv.do(http.MethodGet, tt.path, "", nil, "")
		assert.Equal(t, http.StatusOK, rec.Code, tt.path)
		assert.Equal(t, tt.want, catalog.lastType, tt.path)
	}

	catalog := &fakeCatalog{}
	srv := newTestServer(t, Routes{Catalog: NewCatalogHandler(catalog)})
	srv.do(http.MethodGet, "/api/libros?subject=fantasy&page=abc", "", nil, "")
	assert.Equal(t, "fantasy", catalog.lastQuery.Category)
	assert.Equal(t, 0, catalog.lastQuery.Page)
}

func TestCatalogCategoryParameterPerSection(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/libros?subject=fantasy", "fantasy"},
		{"/api/libros?category=popular", ""},
		{"/api/libros?category=popular&subject=history", "history"},
		{"/api/peliculas?category=popular", "popular"},
		{"/api/peliculas?subject=fantasy", ""},
		{"/api/series?category=on_the_air&subject=fantasy", "on_the_air"},
		{"/api/videojuegos?category=popular&subject=rpg", ""},
	}
	for _, tt := range tests {
		catalog := &fakeCatalog{}
		srv := newTestServer(t, Routes{Catalog: NewCatalogHandler(catalog)})
		rec := srv.do(http.MethodGet, tt.path, "", nil, "")
		require.Equal(t, http.StatusOK, rec.Code, tt.path)
		assert.Equal(t, tt.want, catalog.lastQuery.Category, tt.path)
	}
}

func TestCatalogDetailsMapsErrors(t *testing.T) {
	catalog := &fakeCatalog{err: apierror.FromStatus("tmdb GET /movie/0", http.StatusNotFound, "")}
	srv := newTestServer(t, Routes{Catalog: NewCatalogHandler(catalog)})

	rec := srv.do(http.MethodGet, "/api/series/0", "", nil, "")
	env := decodeEnvelope(t, rec, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, apierror.MsgNotFound, env.Error)
	assert.Equal(t, "0", catalog.lastID)
	assert.Equal(t, models.MediaTypeSeries, catalog.lastType)

	catalog.err = apierror.FromTransport("openlibrary", io.ErrUnexpectedEOF)
	rec = srv.do(http.MethodGet, "/api/libros/OL1W", "", nil, "")
	env = decodeEnvelope(t, rec, nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, apierror.MsgConnection, env.Error)
}

func TestIGDBProxyRelaysResponse(t *testing.T) {
	catalog := &fakeCatalog{proxyStatus: http.StatusOK, proxyBody: `[{"id":1942,"name":"The Witcher 3"}]`}
	srv := newTestServer(t, Routes{Catalog: NewCatalogHandler(catalog)})
	token := srv.login(4, models.RoleUser)

	rec := srv.do(http.MethodPost, "/api/igdb/games", token, strings.NewReader("fields name; where id = 1942;"), "text/plain")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `[{"id":1942,"name":"The Witcher 3"}]`, rec.Body.String())
	assert.Equal(t, "games", catalog.lastEndpoint)
	assert.Equal(t, "fields name; where id = 1942;", catalog.lastProxyBody)

	rec = srv.do(http.MethodPost, "/api/igdb/games/count", token, strings.NewReader("where rating > 90;"), "text/plain")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "games/count", catalog.lastEndpoint)
}

func TestIGDBProxyRejectsUnknownEndpoint(t *testing.T) {
	catalog := &fakeCatalog{proxyStatus: http.StatusOK}
	srv := newTestServer(t, Routes{Catalog: NewCatalogHandler(catalog)})
	token := srv.login(4, models.RoleUser)

	rec := srv.do(http.MethodPost, "/api/igdb/games/extra", token, strings.NewReader(""), "text/plain")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, catalog.lastEndpoint)

	catalog.err = metadata.ErrIGDBCredentialsMissing
	rec = srv.do(http.MethodPost, "/api/igdb/games", token, strings.NewReader(""), "text/plain")
	env := decodeEnvelope(t, rec, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, apierror.MsgServer, env.Error)
}

func TestIGDBProxyRequiresSessionAndIsThrottled(t *testing.T) {
	catalog := &fakeCatalog{proxyStatus: http.StatusOK, proxyBody: `[]`}
	srv := newTestServer(t, Routes{
		Catalog:     NewCatalogHandler(catalog),
		IGDBLimiter: api.NewIPRateLimiter(rate.Limit(0), 2),
	})

	rec := srv.do(http.MethodPost, "/api/igdb/games", "", strings.NewReader("fields name;"), "text/plain")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, catalog.lastEndpoint)

	token := srv.login(4, models.RoleUser)
	for i, want := range []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests} {
		rec = srv.do(http.MethodPost, "/api/igdb/games", token, strings.NewReader("fields name;"), "text/plain")
		assert.Equal(t, want, rec.Code, "request %d", i+1)
	}
}

func TestClearCacheRequiresAdmin(t *testing.T) {
	catalog := &fakeCatalog{}
	srv := newTestServer(t, Routes{Catalog: NewCatalogHandler(catalog)})

	rec := srv.do(http.MethodDelete, "/api/admin/cache", srv.login(2, models.RoleUser), nil, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, catalog.cleared)

	rec = srv.do(http.MethodDelete, "/api/admin/cache", srv.login(1, models.RoleAdmin), nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, catalog.cleared)
}

func TestClearCacheIgnoresUnstoredAdminClaims(t *testing.T) {
	catalog := &fakeCatalog{}
	srv := newTestServer(t, Routes{Catalog: NewCatalogHandler(catalog)})
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"idUser": 99,
		"role":   models.RoleAdmin,
		"exp":    time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("not-the-backend-key"))
	require.NoError(t, err)

	rec := srv.do(http.MethodDelete, "/api/admin/cache", token, nil, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, catalog.cleared)
}
