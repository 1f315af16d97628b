package admin_test

import (
	"context"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tinypath/tinypath/internal/admin"
	"github.com/tinypath/tinypath/internal/audit"
	"github.com/tinypath/tinypath/internal/auth"
	"github.com/tinypath/tinypath/internal/docstore"
	"github.com/tinypath/tinypath/internal/shortener"
	"go.uber.org/zap"
)

func acceptAllURLs(context.Context, string) bool { return true }

func rejectAllURLs(context.Context, string) bool { return false }

func fixedGenerator() string { return "gener8ed" }

type publishedEvents struct {
	events []audit.RedirectChangedEvent
}

func (p *publishedEvents) publish(event *audit.RedirectChangedEvent) error {
	p.events = append(p.events, *event)

	return nil
}

func newHandler(store docstore.Store, check admin.URLChecker, published *publishedEvents) *admin.Handler {
	return admin.NewHandler(store, check, fixedGenerator, published.publish, "1.0.0-test", zap.NewNop())
}

func adminCtx() context.Context {
	return auth.ContextWithUser(context.Background(), "admin@example.com")
}

func statusOf(t *testing.T, err error) int {
	t.Helper()

	var statusErr huma.StatusError

	require.ErrorAs(t, err, &statusErr)

	return statusErr.GetStatus()
}

func TestCreateRedirect(t *testing.T) {
	t.Run("stores the redirect with provenance", func(t *testing.T) {
		store := docstore.NewMemoryStore()
		published := &publishedEvents{}
		handler := newHandler(store, acceptAllURLs, published)

		req := &admin.CreateRedirectRequest{}
		req.Body.Source = "docs"
		req.Body.Destination = "https://example.com/docs"

		resp, err := handler.CreateRedirect(adminCtx(), req)

		require.NoError(t, err)
		assert.True(t, resp.Body.Created)
		assert.Equal(t, "docs", resp.Body.Source)

		redirect, ok := store.Get("docs")
		require.True(t, ok)
		assert.Equal(t, "admin@example.com", redirect.User)
		assert.False(t, redirect.Created.IsZero())

		require.Len(t, published.events, 1)
		assert.Equal(t, audit.ActionCreated, published.events[0].Action)
		assert.Equal(t, "docs", published.events[0].Source)
	})

	t.Run("generates a source when omitted", func(t *testing.T) {
		store := docstore.NewMemoryStore()
		handler := newHandler(store, acceptAllURLs, &publishedEvents{})

		req := &admin.CreateRedirectRequest{}
		req.Body.Destination = "https://example.com"

		resp, err := handler.CreateRedirect(adminCtx(), req)

		require.NoError(t, err)
		assert.Equal(t, "gener8ed", resp.Body.Source)

		_, ok := store.Get("gener8ed")
		assert.True(t, ok)
	})

	t.Run("rejects reserved sources", func(t *testing.T) {
		handler := newHandler(docstore.NewMemoryStore(), acceptAllURLs, &publishedEvents{})

		req := &admin.CreateRedirectRequest{}
		req.Body.Source = "_app/evil"
		req.Body.Destination = "https://example.com"

		_, err := handler.CreateRedirect(adminCtx(), req)

		assert.Equal(t, 400, statusOf(t, err))
	})

	t.Run("rejects dead destinations", func(t *testing.T) {
		handler := newHandler(docstore.NewMemoryStore(), rejectAllURLs, &publishedEvents{})

		req := &admin.CreateRedirectRequest{}
		req.Body.Source = "docs"
		req.Body.Destination = "https://unreachable.example"

		_, err := handler.CreateRedirect(adminCtx(), req)

		assert.Equal(t, 400, statusOf(t, err))
	})

	t.Run("conflicts on duplicate source", func(t *testing.T) {
		store := docstore.NewMemoryStore()
		require.NoError(t, store.Create(context.Background(), &shortener.Redirect{Source: "docs"}))

		handler := newHandler(store, acceptAllURLs, &publishedEvents{})

		req := &admin.CreateRedirectRequest{}
		req.Body.Source = "docs"
		req.Body.Destination = "https://example.com"

		_, err := handler.CreateRedirect(adminCtx(), req)

		assert.Equal(t, 409, statusOf(t, err))
	})
}

func TestUpdateRedirect(t *testing.T) {
	t.Run("updates an existing redirect", func(t *testing.T) {
		store := docstore.NewMemoryStore()
		require.NoError(t, store.Create(context.Background(), &shortener.Redirect{
			Source:      "docs",
			Destination: "https://example.com/old",
		}))

		published := &publishedEvents{}
		handler := newHandler(store, acceptAllURLs, published)

		req := &admin.UpdateRedirectRequest{}
		req.Body.Source = "docs"
		req.Body.Destination = "https://example.com/new"
		req.Body.IsPrivate = true

		resp, err := handler.UpdateRedirect(adminCtx(), req)

		require.NoError(t, err)
		assert.True(t, resp.Body.Updated)

		redirect, ok := store.Get("docs")
		require.True(t, ok)
		assert.Equal(t, "https://example.com/new", redirect.Destination)
		assert.True(t, redirect.IsPrivate)

		require.Len(t, published.events, 1)
		assert.Equal(t, audit.ActionUpdated, published.events[0].Action)
	})

	t.Run("404 on unknown source", func(t *testing.T) {
		handler := newHandler(docstore.NewMemoryStore(), acceptAllURLs, &publishedEvents{})

		req := &admin.UpdateRedirectRequest{}
		req.Body.Source = "missing"
		req.Body.Destination = "https://example.com"

		_, err := handler.UpdateRedirect(adminCtx(), req)

		assert.Equal(t, 404, statusOf(t, err))
	})
}

func TestDeleteRedirect(t *testing.T) {
	t.Run("deletes an existing redirect", func(t *testing.T) {
		store := docstore.NewMemoryStore()
		require.NoError(t, store.Create(context.Background(), &shortener.Redirect{Source: "docs"}))

		published := &publishedEvents{}
		handler := newHandler(store, acceptAllURLs, published)

		req := &admin.DeleteRedirectRequest{}
		req.Body.Source = "docs"

		resp, err := handler.DeleteRedirect(adminCtx(), req)

		require.NoError(t, err)
		assert.True(t, resp.Body.Deleted)

		_, ok := store.Get("docs")
		assert.False(t, ok)

		require.Len(t, published.events, 1)
		assert.Equal(t, audit.ActionDeleted, published.events[0].Action)
	})

	t.Run("404 on unknown source", func(t *testing.T) {
		handler := newHandler(docstore.NewMemoryStore(), acceptAllURLs, &publishedEvents{})

		req := &admin.DeleteRedirectRequest{}
		req.Body.Source = "missing"

		_, err := handler.DeleteRedirect(adminCtx(), req)

		assert.Equal(t, 404, statusOf(t, err))
	})
}

func TestListRedirects(t *testing.T) {
	store := docstore.NewMemoryStore()
	require.NoError(t, store.Create(context.Background(), &shortener.Redirect{
		Source: "docs",
		User:   "admin@example.com",
	}))
	require.NoError(t, store.Create(context.Background(), &shortener.Redirect{
		Source: "other",
		User:   "someone-else@example.com",
	}))

	handler := newHandler(store, acceptAllURLs, &publishedEvents{})

	resp, err := handler.ListRedirects(adminCtx(), &admin.ListRedirectsRequest{From: 0, Size: 10})

	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.Body.Count)
	require.Len(t, resp.Body.Redirects, 1)
	assert.Equal(t, "docs", resp.Body.Redirects[0].Source)
}

func TestStatus(t *testing.T) {
	handler := newHandler(docstore.NewMemoryStore(), acceptAllURLs, &publishedEvents{})

	resp, err := handler.Status(context.Background(), nil)

	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Body.Status)
	assert.Equal(t, "1.0.0-test", resp.Body.Version)
}
