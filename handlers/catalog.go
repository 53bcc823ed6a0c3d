package handlers

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"reviewverso/api"
	"reviewverso/internal/apierror"
	"reviewverso/models"
	"reviewverso/services/metadata"
)

type catalogService interface {
	Browse(ctx context.Context, t models.MediaType, q metadata.Query) (models.MediaPage, error)
	Details(ctx context.Context, t models.MediaType, id string) (models.MediaItem, error)
	ProxyIGDB(ctx context.Context, endpoint string, body io.Reader) (*http.Response, error)
	ClearCache()
}

var _ catalogService = (*metadata.Service)(nil)

const maxIGDBQuery = 64 << 10

// IGDB endpoints are single path segments, optionally followed by /count.
var igdbEndpoint = regexp.MustCompile(`^[a-z_]+(/count)?$`)

var ErrInvalidIGDBEndpoint = apierror.Invalid("igdb", "Endpoint de IGDB inválido")

// CatalogHandler serves the browse and detail pages of every media type.
type CatalogHandler struct {
	Service catalogService
}

func NewCatalogHandler(service catalogService) *CatalogHandler {
	return &CatalogHandler{Service: service}
}

// catalogQuery reads ?q and ?page, plus ?category for TMDB lists or ?subject
// for books. Video games take neither.
func catalogQuery(r *http.Request, t models.MediaType) metadata.Query {
	values := r.URL.Query()
	q := metadata.Query{Search: strings.TrimSpace(values.Get("q"))}
	switch t {
	case models.MediaTypeMovie, models.MediaTypeSeries:
		q.Category = strings.TrimSpace(values.Get("category"))
	case models.MediaTypeBook:
		q.Category = strings.TrimSpace(values.Get("subject"))
	}
	if page, err := strconv.Atoi(values.Get("page")); err == nil && page > 0 {
		q.Page = page
	}
	return q
}

// Browse lists a page of t, searching when ?q is present.
func (h *CatalogHandler) Browse(t models.MediaType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := h.Service.Browse(r.Context(), t, catalogQuery(r, t))
		if err != nil {
			api.WriteError(w, r, err)
			return
		}
		api.WriteData(w, http.StatusOK, page)
	}
}

// Details returns a single item of t.
func (h *CatalogHandler) Details(t models.MediaType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, err := h.Service.Details(r.Context(), t, mux.Vars(r)["id"])
		if err != nil {
			api.WriteError(w, r, err)
			return
		}
		api.WriteData(w, http.StatusOK, item)
	}
}

// ProxyIGDB forwards a raw Apicalypse query and relays IGDB's answer untouched.
func (h *CatalogHandler) ProxyIGDB(w http.ResponseWriter, r *http.Request) {
	endpoint := strings.Trim(mux.Vars(r)["endpoint"], "/")
	if !igdbEndpoint.MatchString(endpoint) {
		api.WriteError(w, r, ErrInvalidIGDBEndpoint)
		return
	}

	body := http.MaxBytesReader(w, r.Body, maxIGDBQuery)
	resp, err := h.Service.ProxyIGDB(r.Context(), endpoint, body)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("[igdb] proxy %s copy failed: %v", endpoint, err)
	}
}

// ClearCache drops cached provider responses.
func (h *CatalogHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	h.Service.ClearCache()
	api.WriteData(w, http.StatusOK, map[string]string{"status": "cleared"})
}
