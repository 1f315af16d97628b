package docstore

import (
	"context"

	"github.com/tinypath/tinypath/internal/shortener"
)

// Hit is a single ranked result of a fuzzy search.
type Hit struct {
	Record shortener.Redirect
	Score  float64
}

// Page is a slice of the redirects owned by a user.
type Page struct {
	Total     int64
	Redirects []shortener.Redirect
}

// Store is the document-store contract the application depends on.
// Implementations map shortener.ErrNotFound and shortener.ErrConflict
// onto the store's own missing/duplicate conditions.
type Store interface {
	// Search runs a typo-tolerant full-text query against the source field
	// and returns the hits ranked by relevance. Ties on score break stable
	// by document id.
	Search(ctx context.Context, source string) ([]Hit, error)

	// Create inserts a new redirect. Returns shortener.ErrConflict if the
	// source is already taken.
	Create(ctx context.Context, redirect *shortener.Redirect) error

	// Update overwrites destination and visibility of an existing redirect.
	// Returns shortener.ErrNotFound if the source is unknown.
	Update(ctx context.Context, redirect *shortener.Redirect) error

	// Delete removes a redirect. Returns shortener.ErrNotFound if the
	// source is unknown.
	Delete(ctx context.Context, source shortener.Source) error

	// List returns the redirects created by user, sorted by source.
	List(ctx context.Context, user string, from, size int) (*Page, error)

	// IncrementCount adds n to the visit count of a redirect. Returns
	// shortener.ErrNotFound if the document no longer exists; any other
	// error is a transport failure.
	IncrementCount(ctx context.Context, source shortener.Source, n int64) error

	// Ping verifies connectivity to the store.
	Ping(ctx context.Context) error
}
