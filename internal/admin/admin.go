package admin

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/tinypath/tinypath/internal/audit"
	"github.com/tinypath/tinypath/internal/auth"
	"github.com/tinypath/tinypath/internal/docstore"
	"github.com/tinypath/tinypath/internal/messaging"
	"github.com/tinypath/tinypath/internal/middleware"
	"github.com/tinypath/tinypath/internal/ratelimit"
	"github.com/tinypath/tinypath/internal/shortener"
	"go.uber.org/zap"
)

// Prefix is the reserved path prefix of the admin API.
const Prefix = "/_app"

// SourceGenerator produces a random source when a create request omits one.
type SourceGenerator func() string

// Handler implements the authenticated CRUD API for redirects.
type Handler struct {
	store          docstore.Store
	checkURL       URLChecker
	generateSource SourceGenerator
	publishChanged messaging.Publish[audit.RedirectChangedEvent]
	version        string
	logger         *zap.Logger
}

// NewHandler creates the admin handler.
func NewHandler(
	store docstore.Store,
	checkURL URLChecker,
	generateSource SourceGenerator,
	publishChanged messaging.Publish[audit.RedirectChangedEvent],
	version string,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		store:          store,
		checkURL:       checkURL,
		generateSource: generateSource,
		publishChanged: publishChanged,
		version:        version,
		logger:         logger,
	}
}

func (h *Handler) CreateRedirect(ctx context.Context, req *CreateRedirectRequest) (*CreateRedirectResponse, error) {
	user := auth.UserFromContext(ctx)

	source := req.Body.Source
	if source == "" {
		source = h.generateSource()
	}

	if err := shortener.ValidateSource(source); err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}

	if !h.checkURL(ctx, req.Body.Destination) {
		return nil, huma.Error400BadRequest("the destination is not a valid url")
	}

	h.logger.Info("adding new redirect", zap.String("user", user))

	redirect := &shortener.Redirect{
		Source:      shortener.Source(source),
		Destination: req.Body.Destination,
		IsPrivate:   req.Body.IsPrivate,
		Count:       0,
		User:        user,
		Created:     time.Now(),
	}

	if err := h.store.Create(ctx, redirect); err != nil {
		if errors.Is(err, shortener.ErrConflict) {
			return nil, huma.Error409Conflict("the source already exists")
		}

		return nil, huma.Error500InternalServerError("failed to create redirect")
	}

	h.audit(ctx, audit.ActionCreated, redirect)

	resp := &CreateRedirectResponse{}
	resp.Body.Created = true
	resp.Body.Source = source

	return resp, nil
}

func (h *Handler) UpdateRedirect(ctx context.Context, req *UpdateRedirectRequest) (*UpdateRedirectResponse, error) {
	if err := shortener.ValidateSource(req.Body.Source); err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}

	if !h.checkURL(ctx, req.Body.Destination) {
		return nil, huma.Error400BadRequest("the destination is not a valid url")
	}

	redirect := &shortener.Redirect{
		Source:      shortener.Source(req.Body.Source),
		Destination: req.Body.Destination,
		IsPrivate:   req.Body.IsPrivate,
	}

	if err := h.store.Update(ctx, redirect); err != nil {
		if errors.Is(err, shortener.ErrNotFound) {
			return nil, huma.Error404NotFound("there is no redirect with source " + req.Body.Source)
		}

		return nil, huma.Error500InternalServerError("failed to update redirect")
	}

	h.audit(ctx, audit.ActionUpdated, redirect)

	resp := &UpdateRedirectResponse{}
	resp.Body.Updated = true

	return resp, nil
}

func (h *Handler) DeleteRedirect(ctx context.Context, req *DeleteRedirectRequest) (*DeleteRedirectResponse, error) {
	if err := shortener.ValidateSource(req.Body.Source); err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}

	if err := h.store.Delete(ctx, shortener.Source(req.Body.Source)); err != nil {
		if errors.Is(err, shortener.ErrNotFound) {
			return nil, huma.Error404NotFound("the source " + req.Body.Source + " does not exist")
		}

		return nil, huma.Error500InternalServerError("failed to delete redirect")
	}

	h.audit(ctx, audit.ActionDeleted, &shortener.Redirect{
		Source: shortener.Source(req.Body.Source),
	})

	resp := &DeleteRedirectResponse{}
	resp.Body.Deleted = true

	return resp, nil
}

func (h *Handler) ListRedirects(ctx context.Context, req *ListRedirectsRequest) (*ListRedirectsResponse, error) {
	user := auth.UserFromContext(ctx)

	page, err := h.store.List(ctx, user, req.From, req.Size)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list redirects")
	}

	resp := &ListRedirectsResponse{}
	resp.Body.Count = page.Total
	resp.Body.Redirects = make([]RedirectSummary, 0, len(page.Redirects))

	for _, redirect := range page.Redirects {
		resp.Body.Redirects = append(resp.Body.Redirects, RedirectSummary{
			Source:      string(redirect.Source),
			Destination: redirect.Destination,
			IsPrivate:   redirect.IsPrivate,
			Count:       redirect.Count,
			Created:     redirect.Created.Format(time.RFC3339),
		})
	}

	return resp, nil
}

// Status reports the application version. Useful to quickly check what is
// deployed.
func (h *Handler) Status(_ context.Context, _ *struct{}) (*StatusResponse, error) {
	resp := &StatusResponse{}
	resp.Body.Status = "ok"
	resp.Body.Version = h.version

	return resp, nil
}

func (h *Handler) audit(ctx context.Context, action string, redirect *shortener.Redirect) {
	meta := middleware.MetaFromContext(ctx)
	event := &audit.RedirectChangedEvent{
		Action:      action,
		Source:      string(redirect.Source),
		Destination: redirect.Destination,
		IsPrivate:   redirect.IsPrivate,
		User:        auth.UserFromContext(ctx),
		OccurredAt:  time.Now(),
		ClientIP:    meta.ClientIP,
		UserAgent:   meta.UserAgent,
	}

	if err := h.publishChanged(event); err != nil {
		h.logger.Error("failed to publish audit event",
			zap.String("action", action),
			zap.String("source", event.Source),
			zap.Error(err),
		)
	}
}

// noLimit disables rate limiting for operations already protected by
// authentication.
var noLimit = map[string]any{
	ratelimit.MetadataKey: ratelimit.EndpointConfig{Disabled: true},
}

// RegisterRoutes registers the admin CRUD operations behind the given
// authorization middleware.
func RegisterRoutes(api huma.API, h *Handler, authorize func(ctx huma.Context, next func(huma.Context))) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-redirect",
		Method:        http.MethodPut,
		Path:          Prefix + "/redirect",
		Summary:       "Add a new redirect",
		Description:   "Adds a new redirect. Fails if the source already exists.",
		Tags:          []string{"Admin"},
		DefaultStatus: http.StatusCreated,
		Metadata:      noLimit,
		Middlewares:   huma.Middlewares{authorize},
	}, h.CreateRedirect)

	huma.Register(api, huma.Operation{
		OperationID: "update-redirect",
		Method:      http.MethodPost,
		Path:        Prefix + "/redirect",
		Summary:     "Update an existing redirect",
		Description: "Updates an existing redirect. Fails if the source does not exist.",
		Tags:        []string{"Admin"},
		Metadata:    noLimit,
		Middlewares: huma.Middlewares{authorize},
	}, h.UpdateRedirect)

	huma.Register(api, huma.Operation{
		OperationID: "delete-redirect",
		Method:      http.MethodDelete,
		Path:        Prefix + "/redirect",
		Summary:     "Remove an existing redirect",
		Description: "Removes an existing redirect. Fails if the source does not exist.",
		Tags:        []string{"Admin"},
		Metadata:    noLimit,
		Middlewares: huma.Middlewares{authorize},
	}, h.DeleteRedirect)

	huma.Register(api, huma.Operation{
		OperationID: "list-redirects",
		Method:      http.MethodGet,
		Path:        Prefix + "/redirects",
		Summary:     "List the caller's redirects",
		Description: "Returns the redirects created by the authenticated user, sorted by source.",
		Tags:        []string{"Admin"},
		Metadata:    noLimit,
		Middlewares: huma.Middlewares{authorize},
	}, h.ListRedirects)
}

// RegisterStatusRoute registers the unauthenticated status operation.
func RegisterStatusRoute(api huma.API, h *Handler) {
	huma.Register(api, huma.Operation{
		OperationID: "status",
		Method:      http.MethodGet,
		Path:        Prefix + "/status",
		Summary:     "Application status",
		Description: "Returns status and version of the application.",
		Tags:        []string{"Status"},
	}, h.Status)
}
