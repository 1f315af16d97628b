package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/tinypath/tinypath/internal/ratelimit"
	"go.uber.org/zap"
)

// RateLimiter returns a huma middleware enforcing per-endpoint limits.
// Operations can tune or disable limiting through metadata under
// ratelimit.MetadataKey; without metadata the default limiter applies.
func RateLimiter(api huma.API, limiter ratelimit.Limiter, store ratelimit.Store, logger *zap.Logger) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		cfg := endpointConfig(ctx)

		if cfg != nil && cfg.Disabled {
			next(ctx)

			return
		}

		key := clientKey(ctx)

		if cfg != nil && len(cfg.Limits) > 0 {
			if !checkLimits(api, ctx, store, key, cfg.Limits, logger) {
				return
			}

			next(ctx)

			return
		}

		allowed, err := limiter.Allow(ctx.Context(), key)
		if err != nil {
			logger.Error("rate limit check failed", zap.Error(err))
			_ = huma.WriteErr(api, ctx, http.StatusInternalServerError, "internal server error", err)

			return
		}

		if !allowed {
			_ = huma.WriteErr(api, ctx, http.StatusTooManyRequests, "rate limit exceeded")

			return
		}

		next(ctx)
	}
}

func endpointConfig(ctx huma.Context) *ratelimit.EndpointConfig {
	op := ctx.Operation()
	if op == nil || op.Metadata == nil {
		return nil
	}

	cfg, ok := op.Metadata[ratelimit.MetadataKey].(ratelimit.EndpointConfig)
	if !ok {
		return nil
	}

	return &cfg
}

func checkLimits(
	api huma.API,
	ctx huma.Context,
	store ratelimit.Store,
	clientK string,
	limits []ratelimit.LimitConfig,
	logger *zap.Logger,
) bool {
	path := ""
	if op := ctx.Operation(); op != nil {
		path = op.Path
	}

	for _, limit := range limits {
		key := fmt.Sprintf("%s:%s:%d", clientK, path, limit.Window.Milliseconds())

		count, err := store.Record(ctx.Context(), key, limit.Window)
		if err != nil {
			logger.Error("rate limit check failed",
				zap.String("path", path),
				zap.Error(err),
			)
			_ = huma.WriteErr(api, ctx, http.StatusInternalServerError, "internal server error", err)

			return false
		}

		if count > limit.Max {
			logger.Warn("rate limit exceeded",
				zap.String("path", path),
				zap.Int64("count", count),
				zap.Int64("max", limit.Max),
				zap.Duration("window", limit.Window),
			)
			_ = huma.WriteErr(api, ctx, http.StatusTooManyRequests,
				fmt.Sprintf("rate limit exceeded: %d/%d requests in %s", count, limit.Max, limit.Window))

			return false
		}
	}

	return true
}

// clientKey hashes client IP and User-Agent into a stable limiter key.
func clientKey(ctx huma.Context) string {
	ip := MetaFromContext(ctx.Context()).ClientIP
	if ip == "" {
		ip = ctx.Host()
	}

	hash := sha256.Sum256([]byte(ip + "|" + ctx.Header("User-Agent")))

	return hex.EncodeToString(hash[:])
}

// PublicRateLimiter wraps the public redirect surface. Visitors get an HTML
// page on 429 because that surface speaks HTML, not JSON.
func PublicRateLimiter(limiter ratelimit.Limiter, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hash := sha256.Sum256([]byte(MetaFromContext(r.Context()).ClientIP + "|" + r.Header.Get("User-Agent")))
			key := hex.EncodeToString(hash[:])

			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.Error("rate limit check failed", zap.Error(err))
				http.Error(w, "internal server error", http.StatusInternalServerError)

				return
			}

			if !allowed {
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = io.WriteString(w, tooManyRequestsPage)

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

const tooManyRequestsPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width,initial-scale=1">
  <meta name="robots" content="noindex, nofollow">
  <title>Too Many Requests</title>
</head>
<body>
  <main>
    <h1>Hey, slow down!</h1>
    <p>You have been sending too many requests, try again in a minute.</p>
  </main>
</body>
</html>
`
