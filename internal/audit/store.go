package audit

import "context"

// Store persists audit events on the consumer side.
type Store interface {
	SaveRedirectChanged(ctx context.Context, event *RedirectChangedEvent) error
	SaveRedirectResolved(ctx context.Context, event *RedirectResolvedEvent) error
}
