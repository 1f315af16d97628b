package admin

import (
	"context"
	"net/http"
	"time"
)

// URLChecker reports whether a destination URL is alive.
type URLChecker func(ctx context.Context, url string) bool

// NewLivenessChecker returns a checker that fetches the destination and
// accepts any response below 400. Redirect targets that do not resolve or
// answer with an error are rejected at creation time rather than surfacing
// as broken short links later.
func NewLivenessChecker(timeout time.Duration) URLChecker {
	client := &http.Client{Timeout: timeout}

	return func(ctx context.Context, url string) bool {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return false
		}

		res, err := client.Do(req)
		if err != nil {
			return false
		}

		// The body is irrelevant, only the status matters.
		_ = res.Body.Close()

		return res.StatusCode < http.StatusBadRequest
	}
}
