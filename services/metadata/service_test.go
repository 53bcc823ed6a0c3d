package metadata

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"reviewverso/config"
	"reviewverso/internal/apierror"
	"reviewverso/models"
)

func newMockService(t *testing.T) (*Service, *MockProvider) {
	t.Helper()
	ctrl := gomock.NewController(t)
	provider := NewMockProvider(ctrl)
	provider.EXPECT().Type().Return(models.MediaTypeMovie).AnyTimes()
	return newService(newDetailsCache(16, time.Minute), provider), provider
}

func TestDetailsCoalescesConcurrentLookups(t *testing.T) {
	svc, provider := newMockService(t)
	release := make(chan struct{})
	provider.EXPECT().
		Details(gomock.Any(), "603").
		DoAndReturn(func(ctx context.Context, id string) (models.MediaItem, error) {
			<-release
			return models.MediaItem{ID: id, Type: models.MediaTypeMovie, Title: "Matrix"}, nil
		}).
		Times(1)

	var wg sync.WaitGroup
	results := make([]models.MediaItem, 8)
	errs := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Details(context.Background(), models.MediaTypeMovie, "603")
		}(i)
	}
	close(release)
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, "Matrix", results[i].Title)
	}
}

func TestDetailsSharedLookupOutlivesCancelledCaller(t *testing.T) {
	svc, provider := newMockService(t)
	started, release := make(chan struct{}), make(chan struct{})
	provider.EXPECT().
		Details(gomock.Any(), "603").
		DoAndReturn(func(ctx context.Context, id string) (models.MediaItem, error) {
			close(started)
			<-release
			if err := ctx.Err(); err != nil {
				return models.MediaItem{}, err
			}
			return models.MediaItem{ID: id, Type: models.MediaTypeMovie, Title: "Matrix"}, nil
		}).
		Times(1)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := svc.Details(ctxA, models.MediaTypeMovie, "603")
		errA <- err
	}()
	<-started

	type result struct {
		item models.MediaItem
		err  error
	}
	resB := make(chan result, 1)
	go func() {
		item, err := svc.Details(context.Background(), models.MediaTypeMovie, "603")
		resB <- result{item, err}
	}()

	cancelA()
	assert.ErrorIs(t, <-errA, context.Canceled)

	time.Sleep(20 * time.Millisecond)
	close(release)
	b := <-resB
	require.NoError(t, b.err)
	assert.Equal(t, "Matrix", b.item.Title)

	cached, err := svc.Details(context.Background(), models.MediaTypeMovie, "603")
	require.NoError(t, err)
	assert.Equal(t, "Matrix", cached.Title)
}

func TestDetailsDoesNotCacheFailures(t *testing.T) {
	svc, provider := newMockService(t)
	gomock.InOrder(
		provider.EXPECT().Details(gomock.Any(), "1").
			Return(models.MediaItem{}, apierror.FromStatus("tmdb", http.StatusBadGateway, "")),
		provider.EXPECT().Details(gomock.Any(), "1").
			Return(models.MediaItem{ID: "1", Title: "Uno"}, nil),
	)

	_, err := svc.Details(context.Background(), models.MediaTypeMovie, "1")
	require.ErrorIs(t, err, apierror.ErrServer)

	item, err := svc.Details(context.Background(), models.MediaTypeMovie, "1")
	require.NoError(t, err)
	assert.Equal(t, "Uno", item.Title)

	// Served from cache; the mock would fail on a third call.
	item, err = svc.Details(context.Background(), models.MediaTypeMovie, " 1 ")
	require.NoError(t, err)
	assert.Equal(t, "Uno", item.Title)
}

func TestBrowseSharesAccentFoldedSearches(t *testing.T) {
	svc, provider := newMockService(t)
	provider.EXPECT().
		Browse(gomock.Any(), Query{Search: "Película"}).
		Return(models.MediaPage{Page: 1, TotalPages: 1}, nil).
		Times(1)

	first, err := svc.Browse(context.Background(), models.MediaTypeMovie, Query{Search: "Película"})
	require.NoError(t, err)
	second, err := svc.Browse(context.Background(), models.MediaTypeMovie, Query{Search: "  pelicula ", Page: 1})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.NotNil(t, second.Results)
}

func TestClearCacheForcesRefetch(t *testing.T) {
	svc, provider := newMockService(t)
	provider.EXPECT().Details(gomock.Any(), "2").Return(models.MediaItem{ID: "2"}, nil).Times(2)

	_, err := svc.Details(context.Background(), models.MediaTypeMovie, "2")
	require.NoError(t, err)
	svc.ClearCache()
	_, err = svc.Details(context.Background(), models.MediaTypeMovie, "2")
	require.NoError(t, err)
}

func TestUnsupportedTypeAndEmptyID(t *testing.T) {
	svc, _ := newMockService(t)

	_, err := svc.Details(context.Background(), models.MediaTypeBook, "OL1W")
	assert.True(t, errors.Is(err, ErrUnsupportedMediaType))

	_, err = svc.Details(context.Background(), models.MediaTypeMovie, "  ")
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestNewServiceRegistersAllProviders(t *testing.T) {
	svc := NewService(config.DefaultSettings(), nil)
	for _, mt := range []models.MediaType{
		models.MediaTypeMovie, models.MediaTypeSeries, models.MediaTypeVideogame, models.MediaTypeBook,
	} {
		_, err := svc.provider(mt)
		assert.NoError(t, err, mt)
	}

	// No credentials configured: TMDB fails fast without touching the network.
	_, err := svc.Details(context.Background(), models.MediaTypeMovie, "603")
	assert.ErrorIs(t, err, ErrTMDBKeyMissing)
}
