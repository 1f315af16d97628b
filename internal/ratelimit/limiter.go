package ratelimit

import (
	"context"
	"time"
)

// Limiter decides whether a request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, err error)
}

// Store records requests and reports how many fell inside the current
// window, pruning expired entries as it goes.
type Store interface {
	Record(ctx context.Context, key string, window time.Duration) (count int64, err error)
}

// SlidingWindowLimiter limits requests over a rolling time window.
type SlidingWindowLimiter struct {
	store  Store
	limit  int64
	window time.Duration
}

// NewSlidingWindowLimiter creates a limiter allowing limit requests per window.
func NewSlidingWindowLimiter(store Store, limit int64, window time.Duration) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		store:  store,
		limit:  limit,
		window: window,
	}
}

func (l *SlidingWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	count, err := l.store.Record(ctx, key, l.window)
	if err != nil {
		return false, err
	}

	return count <= l.limit, nil
}

// MetadataKey is the huma operation metadata key carrying an EndpointConfig.
const MetadataKey = "rateLimit"

// LimitConfig is one limit applied to an endpoint.
type LimitConfig struct {
	Window time.Duration
	Max    int64
}

// EndpointConfig configures rate limiting for a single huma operation.
// Admin operations sit behind authentication and disable limiting.
type EndpointConfig struct {
	Limits   []LimitConfig
	Disabled bool
}
