package health

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/redis/go-redis/v9"
	"github.com/tinypath/tinypath/internal/shortener"
)

// Checker is anything that can report connectivity.
type Checker interface {
	Ping(ctx context.Context) error
}

// RedisChecker adapts redis.Client to the Checker interface.
type RedisChecker struct {
	client *redis.Client
}

// NewRedisChecker creates a Redis health checker.
func NewRedisChecker(client *redis.Client) *RedisChecker {
	return &RedisChecker{client: client}
}

// Ping checks Redis connectivity.
func (r *RedisChecker) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Handler handles health check operations.
type Handler struct {
	store Checker
	redis Checker
}

// NewHandler creates a health handler over the document store and Redis.
func NewHandler(store, redis Checker) *Handler {
	return &Handler{store: store, redis: redis}
}

// Response is the health check response.
type Response struct {
	Body struct {
		Status string `json:"status"`
		Store  string `json:"store"`
		Redis  string `json:"redis"`
	}
}

// Check reports the health of the application and its dependencies.
func (h *Handler) Check(ctx context.Context, _ *struct{}) (*Response, error) {
	resp := &Response{}
	resp.Body.Status = "ok"

	resp.Body.Store = "healthy"
	if err := h.store.Ping(ctx); err != nil {
		resp.Body.Store = "unhealthy"
		resp.Body.Status = "degraded"
	}

	resp.Body.Redis = "healthy"
	if err := h.redis.Ping(ctx); err != nil {
		resp.Body.Redis = "unhealthy"
		resp.Body.Status = "degraded"
	}

	return resp, nil
}

// RegisterRoutes registers the health check route. It lives under the
// reserved prefix so it cannot shadow a short link named "health".
func RegisterRoutes(api huma.API, h *Handler) {
	huma.Get(api, "/"+shortener.ReservedPrefix+"/health", h.Check)
}
