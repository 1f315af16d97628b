package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
)

type requestMetaKey struct{}

// RequestMeta holds the HTTP request metadata attached to audit events.
type RequestMeta struct {
	ClientIP  string
	UserAgent string
	Referrer  string
}

// WithRequestMeta extracts client metadata and stores it in the request
// context. Registered on the mux so both the public resolver and the huma
// API see it.
func WithRequestMeta(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		meta := RequestMeta{
			ClientIP:  clientIP(r),
			UserAgent: r.Header.Get("User-Agent"),
			Referrer:  r.Header.Get("Referer"),
		}

		next.ServeHTTP(w, r.WithContext(
			context.WithValue(r.Context(), requestMetaKey{}, meta),
		))
	})
}

// MetaFromContext returns the request metadata, or a zero value when the
// middleware did not run.
func MetaFromContext(ctx context.Context) RequestMeta {
	if meta, ok := ctx.Value(requestMetaKey{}).(RequestMeta); ok {
		return meta
	}

	return RequestMeta{}
}

// clientIP extracts the client address, honoring the usual proxy headers.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// The first entry is the original client.
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}

		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return ip
}
