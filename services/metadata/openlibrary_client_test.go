package metadata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reviewverso/internal/apierror"
)

func newTestOpenLibrary(t *testing.T, handler http.HandlerFunc) (*openLibraryClient, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return newOpenLibraryClient(srv.URL, srv.Client(), time.Millisecond), &calls
}

func TestOpenLibrarySearchRetriesServerErrors(t *testing.T) {
	client, calls := newTestOpenLibrary(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.searchBooks(context.Background(), "dune", 1)
	require.Error(t, err)
	assert.EqualValues(t, 3, atomic.LoadInt32(calls))
	assert.Contains(t, err.Error(), "503")
	assert.True(t, errors.Is(err, apierror.ErrServer))

	var olErr *OpenLibraryError
	require.True(t, errors.As(err, &olErr))
	assert.Equal(t, http.StatusServiceUnavailable, olErr.Status)
}

func TestOpenLibrarySearchDoesNotRetryNotFound(t *testing.T) {
	client, calls := newTestOpenLibrary(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.searchBooks(context.Background(), "dune", 1)
	require.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
	assert.Contains(t, err.Error(), "OpenLibraryError 404 for ")
	assert.Equal(t, apierror.MsgNotFound, apierror.Message(err))
}

func TestOpenLibrarySearchRecoversAfterRetry(t *testing.T) {
	var n int32
	client, calls := newTestOpenLibrary(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&n, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		assert.Equal(t, "/search.json", r.URL.Path)
		assert.Equal(t, "dune", r.URL.Query().Get("q"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"numFound":41,"docs":[{"key":"/works/OL893415W","title":"Dune"}]}`))
	})

	resp, err := client.searchBooks(context.Background(), "dune", 2)
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(calls))
	assert.Equal(t, 41, resp.NumFound)
	require.Len(t, resp.Docs, 1)
	assert.Equal(t, "OL893415W", bookID(resp.Docs[0]))
}

func TestOpenLibraryStopsOnCancelledContext(t *testing.T) {
	client, _ := newTestOpenLibrary(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.searchBooks(ctx, "dune", 1)
	require.Error(t, err)
}

func TestOpenLibraryRetriesClientTimeouts(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		select {
		case <-time.After(200 * time.Millisecond):
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	client := newOpenLibraryClient(srv.URL, &http.Client{Timeout: 50 * time.Millisecond}, time.Millisecond)

	_, err := client.searchBooks(context.Background(), "dune", 1)
	require.Error(t, err)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
	assert.True(t, errors.Is(err, apierror.ErrConnection))
	assert.Equal(t, apierror.MsgConnection, apierror.Message(err))
}

func TestOpenLibraryStopsWhenCallerDeadlinePasses(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	client := newOpenLibraryClient(srv.URL, srv.Client(), time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.searchBooks(ctx, "dune", 1)
	require.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestOpenLibraryRetryDelaysDouble(t *testing.T) {
	const delay = 60 * time.Millisecond
	var (
		mu     sync.Mutex
		stamps []time.Time
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		stamps = append(stamps, time.Now())
		mu.Unlock()
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	client := newOpenLibraryClient(srv.URL, srv.Client(), delay)

	_, err := client.searchBooks(context.Background(), "dune", 1)
	require.Error(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, stamps, 3)
	first, second := stamps[1].Sub(stamps[0]), stamps[2].Sub(stamps[1])
	assert.GreaterOrEqual(t, first, delay)
	assert.GreaterOrEqual(t, second, 2*delay)
	assert.Greater(t, second, first+delay/2, "second wait should be about twice the first")
}

func TestBookProviderDetailsResolvesEditionAndAuthors(t *testing.T) {
	client, _ := newTestOpenLibrary(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/books/OL7353617M.json":
			_, _ = w.Write([]byte(`{"works":[{"key":"/works/OL45883W"}]}`))
		case "/works/OL45883W.json":
			_, _ = w.Write([]byte(`{"key":"/works/OL45883W","title":"Fantastic Mr Fox","covers":[6498519],
				"authors":[{"author":{"key":"/authors/OL34184A"}}],"first_publish_date":"1970"}`))
		case "/works/OL45883W/ratings.json":
			_, _ = w.Write([]byte(`{"summary":{"average":4.1,"count":90}}`))
		case "/authors/OL34184A.json":
			_, _ = w.Write([]byte(`{"name":"Roald Dahl"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	provider := &bookProvider{ol: client}

	item, err := provider.Details(context.Background(), "OL7353617M")
	require.NoError(t, err)
	assert.Equal(t, "OL45883W", item.ID)
	assert.Equal(t, []string{"Roald Dahl"}, item.Authors)
	require.NotNil(t, item.VoteAverage)
	assert.InDelta(t, 4.1, *item.VoteAverage, 0.0001)
	assert.Equal(t, 90, item.VoteCount)
	require.NotNil(t, item.ReleaseYear)
	assert.Equal(t, 1970, *item.ReleaseYear)
}

func TestBookProviderDetailsRejectsMalformedID(t *testing.T) {
	client, calls := newTestOpenLibrary(t, func(w http.ResponseWriter, r *http.Request) {})
	provider := &bookProvider{ol: client}

	_, err := provider.Details(context.Background(), "../etc/passwd")
	require.ErrorIs(t, err, ErrInvalidID)
	assert.Zero(t, atomic.LoadInt32(calls))
}
