package docstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"
	"github.com/tinypath/tinypath/internal/shortener"
)

// MemoryStore is an in-memory implementation of Store, used in tests and
// for running the application without an Elasticsearch cluster.
type MemoryStore struct {
	mu        sync.RWMutex
	redirects map[shortener.Source]shortener.Redirect
}

// NewMemoryStore creates an empty in-memory document store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		redirects: make(map[shortener.Source]shortener.Redirect),
	}
}

// autoFuzziness returns the tolerated edit distance for a term, following
// the engine's AUTO rule: short terms must match exactly, medium terms
// tolerate one edit, long terms two.
func autoFuzziness(term string) int {
	switch n := len([]rune(term)); {
	case n <= 2:
		return 0
	case n <= 5:
		return 1
	default:
		return 2
	}
}

func (m *MemoryStore) Search(_ context.Context, source string) ([]Hit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	maxEdits := autoFuzziness(source)

	var hits []Hit

	for _, redirect := range m.redirects {
		distance := levenshtein.ComputeDistance(source, string(redirect.Source))
		if distance > maxEdits {
			continue
		}

		// A crude relevance score: closer terms rank higher.
		hits = append(hits, Hit{
			Record: redirect,
			Score:  float64(maxEdits-distance) + 1,
		})
	}

	// Score descending, then stable by source so equal-score ordering is
	// deterministic like the Elasticsearch adapter's sort clause.
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}

		return hits[i].Record.Source < hits[j].Record.Source
	})

	return hits, nil
}

func (m *MemoryStore) Create(_ context.Context, redirect *shortener.Redirect) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.redirects[redirect.Source]; ok {
		return shortener.ErrConflict
	}

	m.redirects[redirect.Source] = *redirect

	return nil
}

func (m *MemoryStore) Update(_ context.Context, redirect *shortener.Redirect) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.redirects[redirect.Source]
	if !ok {
		return shortener.ErrNotFound
	}

	existing.Destination = redirect.Destination
	existing.IsPrivate = redirect.IsPrivate
	m.redirects[redirect.Source] = existing

	return nil
}

func (m *MemoryStore) Delete(_ context.Context, source shortener.Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.redirects[source]; !ok {
		return shortener.ErrNotFound
	}

	delete(m.redirects, source)

	return nil
}

func (m *MemoryStore) List(_ context.Context, user string, from, size int) (*Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var owned []shortener.Redirect

	for _, redirect := range m.redirects {
		if strings.EqualFold(redirect.User, user) {
			owned = append(owned, redirect)
		}
	}

	sort.Slice(owned, func(i, j int) bool {
		return owned[i].Source < owned[j].Source
	})

	page := &Page{Total: int64(len(owned))}

	if from >= len(owned) {
		return page, nil
	}

	end := from + size
	if end > len(owned) {
		end = len(owned)
	}

	page.Redirects = owned[from:end]

	return page, nil
}

func (m *MemoryStore) IncrementCount(_ context.Context, source shortener.Source, n int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	redirect, ok := m.redirects[source]
	if !ok {
		return shortener.ErrNotFound
	}

	redirect.Count += n
	m.redirects[source] = redirect

	return nil
}

func (m *MemoryStore) Ping(_ context.Context) error {
	return nil
}

// Get returns a copy of the redirect stored for a source. Test helper.
func (m *MemoryStore) Get(source shortener.Source) (shortener.Redirect, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	redirect, ok := m.redirects[source]

	return redirect, ok
}
