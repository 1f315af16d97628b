package container

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/tinypath/tinypath/internal/audit"
	auditstore "github.com/tinypath/tinypath/internal/audit/store"
	"github.com/tinypath/tinypath/internal/messaging"
	"go.uber.org/zap"
)

// consumerGroupName identifies the audit consumer on the Redis stream, so
// multiple consumer processes share the work instead of duplicating it.
const consumerGroupName = "tinypath-audit"

// AuditStorePackage provides the audit store: PostgreSQL when a connection
// string is configured, a logging noop otherwise.
func AuditStorePackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (audit.Store, error) {
		options := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if options.PostgresDSN == "" {
			logger.Warn("no postgres configured, audit events are only logged")

			return auditstore.NewNoop(logger), nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		pool, err := pgxpool.New(ctx, options.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("postgres pool: %w", err)
		}

		if err := pool.Ping(ctx); err != nil {
			return nil, fmt.Errorf("postgres ping: %w", err)
		}

		return auditstore.NewPostgres(pool), nil
	})
}

// ConsumerGroupPackage provides the consumer group reading audit events
// from the Redis stream and persisting them.
func ConsumerGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		client := do.MustInvoke[*redis.Client](i)
		logger := do.MustInvoke[*zap.Logger](i)
		store := do.MustInvoke[audit.Store](i)

		subscriber, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
			Client:        client,
			ConsumerGroup: consumerGroupName,
		}, watermill.NewStdLogger(false, false))
		if err != nil {
			return nil, fmt.Errorf("redis stream subscriber: %w", err)
		}

		group := messaging.NewConsumerGroup(subscriber, logger)
		group.Add(messaging.NewConsumer(
			subscriber,
			audit.TopicRedirectChanged,
			store.SaveRedirectChanged,
			logger,
		))
		group.Add(messaging.NewConsumer(
			subscriber,
			audit.TopicRedirectResolved,
			store.SaveRedirectResolved,
			logger,
		))

		return group, nil
	})
}
