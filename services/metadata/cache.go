package metadata

import (
	"context"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/mozillazg/go-unidecode"
	"golang.org/x/sync/singleflight"

	"reviewverso/models"
)

// detailsCache memoizes provider lookups by (type, id) and coalesces
// concurrent lookups of the same key into one upstream request. Only
// successful results are stored.
type detailsCache struct {
	items *lru.LRU[string, models.MediaItem]
	pages *lru.LRU[string, models.MediaPage]
	group singleflight.Group
}

func newDetailsCache(size int, ttl time.Duration) *detailsCache {
	if size <= 0 {
		size = 512
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &detailsCache{
		items: lru.NewLRU[string, models.MediaItem](size, nil, ttl),
		pages: lru.NewLRU[string, models.MediaPage](size/4+1, nil, ttl),
	}
}

func itemKey(t models.MediaType, id string) string {
	return string(t) + ":" + strings.TrimSpace(id)
}

// pageKey folds accents and case so "Película" and "pelicula" share an entry.
func pageKey(t models.MediaType, q Query) string {
	search := strings.Join(strings.Fields(strings.ToLower(unidecode.Unidecode(q.Search))), " ")
	category := strings.ToLower(strings.TrimSpace(q.Category))
	return strings.Join([]string{string(t), category, search, strconv.Itoa(q.page())}, "|")
}

// sharedFetchTimeout bounds a coalesced upstream lookup. It outlives any single
// caller so one client disconnecting does not fail the others waiting on it.
const sharedFetchTimeout = 60 * time.Second

func (c *detailsCache) item(ctx context.Context, key string, fetch func(context.Context) (models.MediaItem, error)) (models.MediaItem, error) {
	return cached(ctx, &c.group, c.items, "item|"+key, key, fetch)
}

func (c *detailsCache) page(ctx context.Context, key string, fetch func(context.Context) (models.MediaPage, error)) (models.MediaPage, error) {
	return cached(ctx, &c.group, c.pages, "page|"+key, key, fetch)
}

// cached serves key from store or runs fetch once for all concurrent callers.
// The fetch runs detached from ctx; each caller stops waiting when its own
// ctx is done.
func cached[T any](
	ctx context.Context,
	group *singleflight.Group,
	store *lru.LRU[string, T],
	flightKey, key string,
	fetch func(context.Context) (T, error),
) (T, error) {
	var zero T
	if v, ok := store.Get(key); ok {
		return v, nil
	}
	ch := group.DoChan(flightKey, func() (any, error) {
		if v, ok := store.Get(key); ok {
			return v, nil
		}
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedFetchTimeout)
		defer cancel()
		v, err := fetch(fctx)
		if err != nil {
			return nil, err
		}
		store.Add(key, v)
		return v, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// clear drops every cached entry. Used when provider credentials change.
func (c *detailsCache) clear() {
	c.items.Purge()
	c.pages.Purge()
}
