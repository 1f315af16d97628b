package docstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tinypath/tinypath/internal/docstore"
	"github.com/tinypath/tinypath/internal/shortener"
)

func seed(t *testing.T, store *docstore.MemoryStore, redirects ...shortener.Redirect) {
	t.Helper()

	for i := range redirects {
		require.NoError(t, store.Create(context.Background(), &redirects[i]))
	}
}

func TestMemoryStoreSearch(t *testing.T) {
	t.Run("exact match ranks first", func(t *testing.T) {
		store := docstore.NewMemoryStore()
		seed(t, store,
			shortener.Redirect{Source: "foo", Destination: "https://example.com"},
			shortener.Redirect{Source: "for", Destination: "https://example.org"},
		)

		hits, err := store.Search(context.Background(), "foo")

		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, shortener.Source("foo"), hits[0].Record.Source)
	})

	t.Run("tolerates one edit on short terms", func(t *testing.T) {
		store := docstore.NewMemoryStore()
		seed(t, store,
			shortener.Redirect{Source: "for", Destination: "https://example.org"},
		)

		hits, err := store.Search(context.Background(), "foo")

		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, shortener.Source("for"), hits[0].Record.Source)
	})

	t.Run("very short terms must match exactly", func(t *testing.T) {
		store := docstore.NewMemoryStore()
		seed(t, store,
			shortener.Redirect{Source: "ab", Destination: "https://example.com"},
		)

		hits, err := store.Search(context.Background(), "ax")

		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("no hits for distant terms", func(t *testing.T) {
		store := docstore.NewMemoryStore()
		seed(t, store,
			shortener.Redirect{Source: "foo", Destination: "https://example.com"},
		)

		hits, err := store.Search(context.Background(), "completely-different")

		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("equal scores break ties by source", func(t *testing.T) {
		store := docstore.NewMemoryStore()
		seed(t, store,
			shortener.Redirect{Source: "fob", Destination: "https://b.example"},
			shortener.Redirect{Source: "foa", Destination: "https://a.example"},
		)

		hits, err := store.Search(context.Background(), "foo")

		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, shortener.Source("foa"), hits[0].Record.Source)
		assert.Equal(t, shortener.Source("fob"), hits[1].Record.Source)
	})
}

func TestMemoryStoreCRUD(t *testing.T) {
	t.Run("create conflicts on duplicate source", func(t *testing.T) {
		store := docstore.NewMemoryStore()
		seed(t, store, shortener.Redirect{Source: "foo", Destination: "https://example.com"})

		err := store.Create(context.Background(), &shortener.Redirect{
			Source:      "foo",
			Destination: "https://other.example",
		})

		assert.ErrorIs(t, err, shortener.ErrConflict)
	})

	t.Run("update keeps count and provenance", func(t *testing.T) {
		store := docstore.NewMemoryStore()
		created := time.Now().Add(-time.Hour)
		seed(t, store, shortener.Redirect{
			Source:      "foo",
			Destination: "https://example.com",
			Count:       42,
			User:        "admin@example.com",
			Created:     created,
		})

		err := store.Update(context.Background(), &shortener.Redirect{
			Source:      "foo",
			Destination: "https://new.example",
			IsPrivate:   true,
		})

		require.NoError(t, err)

		redirect, ok := store.Get("foo")
		require.True(t, ok)
		assert.Equal(t, "https://new.example", redirect.Destination)
		assert.True(t, redirect.IsPrivate)
		assert.Equal(t, int64(42), redirect.Count)
		assert.Equal(t, "admin@example.com", redirect.User)
		assert.Equal(t, created, redirect.Created)
	})

	t.Run("update of unknown source fails", func(t *testing.T) {
		store := docstore.NewMemoryStore()

		err := store.Update(context.Background(), &shortener.Redirect{
			Source:      "missing",
			Destination: "https://example.com",
		})

		assert.ErrorIs(t, err, shortener.ErrNotFound)
	})

	t.Run("delete removes the redirect", func(t *testing.T) {
		store := docstore.NewMemoryStore()
		seed(t, store, shortener.Redirect{Source: "foo", Destination: "https://example.com"})

		require.NoError(t, store.Delete(context.Background(), "foo"))
		assert.ErrorIs(t, store.Delete(context.Background(), "foo"), shortener.ErrNotFound)
	})
}

func TestMemoryStoreList(t *testing.T) {
	store := docstore.NewMemoryStore()
	seed(t, store,
		shortener.Redirect{Source: "beta", User: "admin@example.com"},
		shortener.Redirect{Source: "alpha", User: "admin@example.com"},
		shortener.Redirect{Source: "gamma", User: "other@example.com"},
	)

	t.Run("returns only the user's redirects sorted by source", func(t *testing.T) {
		page, err := store.List(context.Background(), "admin@example.com", 0, 10)

		require.NoError(t, err)
		assert.Equal(t, int64(2), page.Total)
		require.Len(t, page.Redirects, 2)
		assert.Equal(t, shortener.Source("alpha"), page.Redirects[0].Source)
		assert.Equal(t, shortener.Source("beta"), page.Redirects[1].Source)
	})

	t.Run("pages through results", func(t *testing.T) {
		page, err := store.List(context.Background(), "admin@example.com", 1, 10)

		require.NoError(t, err)
		assert.Equal(t, int64(2), page.Total)
		require.Len(t, page.Redirects, 1)
		assert.Equal(t, shortener.Source("beta"), page.Redirects[0].Source)
	})

	t.Run("offset past the end yields an empty page", func(t *testing.T) {
		page, err := store.List(context.Background(), "admin@example.com", 5, 10)

		require.NoError(t, err)
		assert.Empty(t, page.Redirects)
	})
}

func TestMemoryStoreIncrementCount(t *testing.T) {
	t.Run("adds to the stored count", func(t *testing.T) {
		store := docstore.NewMemoryStore()
		seed(t, store, shortener.Redirect{Source: "foo", Count: 42})

		require.NoError(t, store.IncrementCount(context.Background(), "foo", 3))

		redirect, ok := store.Get("foo")
		require.True(t, ok)
		assert.Equal(t, int64(45), redirect.Count)
	})

	t.Run("unknown source reports not found", func(t *testing.T) {
		store := docstore.NewMemoryStore()

		err := store.IncrementCount(context.Background(), "missing", 1)

		assert.ErrorIs(t, err, shortener.ErrNotFound)
	})
}
