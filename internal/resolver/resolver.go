package resolver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tinypath/tinypath/internal/audit"
	"github.com/tinypath/tinypath/internal/docstore"
	"github.com/tinypath/tinypath/internal/messaging"
	"github.com/tinypath/tinypath/internal/metrics"
	"github.com/tinypath/tinypath/internal/middleware"
	"github.com/tinypath/tinypath/internal/render"
	"github.com/tinypath/tinypath/internal/shortener"
	"go.uber.org/zap"
)

// VisitRecorder accepts fire-and-forget visit events. Satisfied by the
// analytics batcher.
type VisitRecorder interface {
	Record(source shortener.Source)
}

// RenderDispatcher renders a suggestion list off the request path.
// Satisfied by the render pool.
type RenderDispatcher interface {
	Submit(ctx context.Context, suggestions []render.Suggestion) (string, error)
}

// Resolver is the catch-all handler of the public surface: it resolves a
// path segment to an exact redirect, a suggestion page or a not-found page.
type Resolver struct {
	store           docstore.Store
	dispatcher      RenderDispatcher
	visits          VisitRecorder
	publishResolved messaging.Publish[audit.RedirectResolvedEvent]
	fallbackURL     string
	logger          *zap.Logger
	metrics         *metrics.Metrics
}

// New creates a resolver. publishResolved may be a noop function when no
// audit transport is configured.
func New(
	store docstore.Store,
	dispatcher RenderDispatcher,
	visits VisitRecorder,
	publishResolved messaging.Publish[audit.RedirectResolvedEvent],
	fallbackURL string,
	logger *zap.Logger,
	m *metrics.Metrics,
) *Resolver {
	return &Resolver{
		store:           store,
		dispatcher:      dispatcher,
		visits:          visits,
		publishResolved: publishResolved,
		fallbackURL:     fallbackURL,
		logger:          logger,
		metrics:         m,
	}
}

// ServeHTTP handles GET /{source}. It runs only after every reserved route
// failed to match, so route registration order is what keeps /_app and
// friends out of here.
func (rv *Resolver) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	source := strings.Trim(r.URL.Path, "/")

	if source == "" {
		rv.metrics.Resolution(metrics.OutcomeFallback)
		http.Redirect(w, r, rv.fallbackURL, http.StatusFound)

		return
	}

	hits, err := rv.store.Search(r.Context(), source)
	if err != nil {
		rv.metrics.Resolution(metrics.OutcomeError)
		rv.logger.Error("redirect search failed",
			zap.String("source", source),
			zap.Error(err),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)

		return
	}

	if len(hits) == 0 {
		rv.metrics.Resolution(metrics.OutcomeNotFound)
		rv.respondNotFound(w, r, nil)

		return
	}

	top := hits[0].Record
	if string(top.Source) == source {
		rv.redirect(w, r, &top)

		return
	}

	suggestions := make([]render.Suggestion, 0, len(hits))

	for _, hit := range hits {
		if hit.Record.IsPrivate {
			continue
		}

		suggestions = append(suggestions, render.Suggestion{
			Source:      string(hit.Record.Source),
			Destination: hit.Record.Destination,
		})
	}

	if len(suggestions) == 0 {
		rv.metrics.Resolution(metrics.OutcomeNotFound)
	} else {
		rv.metrics.Resolution(metrics.OutcomeSuggest)
	}

	rv.respondNotFound(w, r, suggestions)
}

// redirect answers an exact match. The visit count increment and the audit
// event are both fire-and-forget: the response never waits on them.
func (rv *Resolver) redirect(w http.ResponseWriter, r *http.Request, record *shortener.Redirect) {
	rv.visits.Record(record.Source)
	rv.metrics.VisitEvent()
	rv.metrics.Resolution(metrics.OutcomeExact)

	meta := middleware.MetaFromContext(r.Context())
	event := &audit.RedirectResolvedEvent{
		Source:      string(record.Source),
		Destination: record.Destination,
		ResolvedAt:  time.Now(),
		ClientIP:    meta.ClientIP,
		UserAgent:   meta.UserAgent,
		Referrer:    meta.Referrer,
	}

	if err := rv.publishResolved(event); err != nil {
		rv.logger.Error("failed to publish resolved event",
			zap.String("source", event.Source),
			zap.Error(err),
		)
	}

	http.Redirect(w, r, record.Destination, http.StatusFound)
}

// respondNotFound renders the 404 page off-thread and writes it. An empty
// suggestion list selects the plain not-found variant.
func (rv *Resolver) respondNotFound(w http.ResponseWriter, r *http.Request, suggestions []render.Suggestion) {
	html, err := rv.dispatcher.Submit(r.Context(), suggestions)
	if err != nil {
		if errors.Is(err, render.ErrBusy) {
			rv.metrics.Resolution(metrics.OutcomeOverload)
			http.Error(w, "service unavailable", http.StatusServiceUnavailable)

			return
		}

		rv.logger.Error("render task failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = io.WriteString(w, html)
}
