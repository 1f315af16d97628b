package store

import (
	"context"

	"github.com/tinypath/tinypath/internal/audit"
	"go.uber.org/zap"
)

// Noop is an audit store that only logs events. It is used when the
// consumer runs without a PostgreSQL connection string.
type Noop struct {
	logger *zap.Logger
}

// NewNoop creates a new logging-only audit store.
func NewNoop(logger *zap.Logger) *Noop {
	return &Noop{logger: logger}
}

func (n *Noop) SaveRedirectChanged(_ context.Context, event *audit.RedirectChangedEvent) error {
	n.logger.Info("redirect changed",
		zap.String("action", event.Action),
		zap.String("source", event.Source),
		zap.String("user", event.User),
		zap.Time("occurredAt", event.OccurredAt),
	)

	return nil
}

func (n *Noop) SaveRedirectResolved(_ context.Context, event *audit.RedirectResolvedEvent) error {
	n.logger.Info("redirect resolved",
		zap.String("source", event.Source),
		zap.String("destination", event.Destination),
		zap.Time("resolvedAt", event.ResolvedAt),
	)

	return nil
}
