package resolver_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tinypath/tinypath/internal/audit"
	"github.com/tinypath/tinypath/internal/docstore"
	"github.com/tinypath/tinypath/internal/render"
	"github.com/tinypath/tinypath/internal/resolver"
	"github.com/tinypath/tinypath/internal/shortener"
	"go.uber.org/zap"
)

const fallbackURL = "https://github.com/tinypath/tinypath"

type recorderStub struct {
	mu      sync.Mutex
	visited []shortener.Source
}

func (r *recorderStub) Record(source shortener.Source) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.visited = append(r.visited, source)
}

func (r *recorderStub) Visited() []shortener.Source {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]shortener.Source(nil), r.visited...)
}

type failingSearchStore struct {
	*docstore.MemoryStore
}

func (f *failingSearchStore) Search(context.Context, string) ([]docstore.Hit, error) {
	return nil, errors.New("search timeout")
}

type busyDispatcher struct{}

func (busyDispatcher) Submit(context.Context, []render.Suggestion) (string, error) {
	return "", render.ErrBusy
}

func noopPublish(*audit.RedirectResolvedEvent) error { return nil }

func newResolver(t *testing.T, store docstore.Store, visits *recorderStub) *resolver.Resolver {
	t.Helper()

	pool := render.NewPool(1, 8, zap.NewNop())
	t.Cleanup(func() { _ = pool.Shutdown() })

	return resolver.New(store, pool, visits, noopPublish, fallbackURL, zap.NewNop(), nil)
}

func get(handler http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	return rec
}

func TestResolverExactMatch(t *testing.T) {
	store := docstore.NewMemoryStore()
	require.NoError(t, store.Create(context.Background(), &shortener.Redirect{
		Source:      "docs",
		Destination: "https://example.com/docs",
	}))

	visits := &recorderStub{}
	rec := get(newResolver(t, store, visits), "/docs")

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://example.com/docs", rec.Header().Get("Location"))
	assert.Equal(t, []shortener.Source{"docs"}, visits.Visited())
}

func TestResolverExactMatchWinsOverNearMatches(t *testing.T) {
	store := docstore.NewMemoryStore()
	require.NoError(t, store.Create(context.Background(), &shortener.Redirect{
		Source:      "docs",
		Destination: "https://example.com/docs",
	}))
	require.NoError(t, store.Create(context.Background(), &shortener.Redirect{
		Source:      "dots",
		Destination: "https://example.com/dots",
	}))

	rec := get(newResolver(t, store, &recorderStub{}), "/docs")

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://example.com/docs", rec.Header().Get("Location"))
}

func TestResolverSuggestsNearMatches(t *testing.T) {
	store := docstore.NewMemoryStore()
	require.NoError(t, store.Create(context.Background(), &shortener.Redirect{
		Source:      "docs",
		Destination: "https://example.com/docs",
	}))

	visits := &recorderStub{}
	rec := get(newResolver(t, store, visits), "/doc")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `<a href="https://example.com/docs">docs</a>`)
	assert.Empty(t, visits.Visited(), "a suggestion is not a visit")
}

func TestResolverHidesPrivateSuggestions(t *testing.T) {
	store := docstore.NewMemoryStore()
	require.NoError(t, store.Create(context.Background(), &shortener.Redirect{
		Source:      "secret",
		Destination: "https://internal.example.com",
		IsPrivate:   true,
	}))

	rec := get(newResolver(t, store, &recorderStub{}), "/secrez")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret")
	assert.NotContains(t, rec.Body.String(), "internal.example.com")
	assert.Contains(t, rec.Body.String(), "There is no redirect registered for this address.")
}

func TestResolverNotFound(t *testing.T) {
	visits := &recorderStub{}
	rec := get(newResolver(t, docstore.NewMemoryStore(), visits), "/nothing-here")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "There is no redirect registered for this address.")
	assert.Empty(t, visits.Visited())
}

func TestResolverEmptyPathRedirectsToFallback(t *testing.T) {
	// The empty path must not hit the store at all.
	store := &failingSearchStore{MemoryStore: docstore.NewMemoryStore()}
	rec := get(newResolver(t, store, &recorderStub{}), "/")

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, fallbackURL, rec.Header().Get("Location"))
}

func TestResolverStoreFailure(t *testing.T) {
	store := &failingSearchStore{MemoryStore: docstore.NewMemoryStore()}
	rec := get(newResolver(t, store, &recorderStub{}), "/docs")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestResolverOverloadedDispatcher(t *testing.T) {
	rv := resolver.New(
		docstore.NewMemoryStore(),
		busyDispatcher{},
		&recorderStub{},
		noopPublish,
		fallbackURL,
		zap.NewNop(),
		nil,
	)

	rec := get(rv, "/nothing-here")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
