package container

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/jaevor/go-nanoid"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/tinypath/tinypath/internal/admin"
	"github.com/tinypath/tinypath/internal/analytics"
	"github.com/tinypath/tinypath/internal/audit"
	"github.com/tinypath/tinypath/internal/auth"
	"github.com/tinypath/tinypath/internal/docstore"
	"github.com/tinypath/tinypath/internal/health"
	"github.com/tinypath/tinypath/internal/messaging"
	"github.com/tinypath/tinypath/internal/metrics"
	"github.com/tinypath/tinypath/internal/middleware"
	"github.com/tinypath/tinypath/internal/ratelimit"
	"github.com/tinypath/tinypath/internal/render"
	"github.com/tinypath/tinypath/internal/resolver"
	"go.uber.org/zap"
)

// Version is reported by the status route.
const Version = "1.0.0"

// Options is the application configuration, loaded by humacli from flags
// and environment variables.
type Options struct {
	Port            int    `default:"3000"                                help:"Port to listen on"                                    short:"p"`
	ElasticAddress  string `default:""                                    help:"Elasticsearch address; empty runs the in-memory store" name:"elastic-address"`
	ElasticCloudID  string `default:""                                    help:"Elastic Cloud deployment id"                          name:"elastic-cloud-id"`
	ElasticAPIKey   string `default:""                                    help:"Elasticsearch API key"                                name:"elastic-api-key"`
	ElasticIndex    string `default:"tinypath-shortened-url"              help:"Elasticsearch index name"                             name:"elastic-index"`
	RedisAddr       string `default:"localhost:6379"                      help:"Redis server address"                                 short:"r"`
	PostgresDSN     string `default:""                                    help:"PostgreSQL connection string for the audit consumer"  name:"postgres-dsn"`
	FallbackURL     string `default:"https://github.com/tinypath/tinypath" help:"Where the empty source redirects to"                 name:"fallback-url"`
	FlushInterval   int    `default:"5"                                   help:"Seconds between visit count flushes"                  name:"flush-interval"`
	FlushCount      int    `default:"1000"                                help:"Queued visit events that force a flush"               name:"flush-count"`
	RenderWorkers   int    `default:"4"                                   help:"Render pool size"                                     name:"render-workers"`
	RenderQueue     int    `default:"64"                                  help:"Render pool queue depth"                              name:"render-queue"`
	JWTSecret       string `default:""                                    help:"Secret for verifying admin tokens"                    name:"jwt-secret"`
	AllowedUsers    string `default:""                                    help:"Comma-separated mails allowed to use the admin API"   name:"allowed-users"`
	RateLimitMax    int    `default:"10"                                  help:"Public requests allowed per window"                   name:"rate-limit-max"`
	RateLimitWindow int    `default:"60"                                  help:"Public rate limit window in seconds"                  name:"rate-limit-window"`
	LogFormat       string `default:"console"                             help:"Log format: console or json"                          name:"log-format"`
}

// LoggerPackage provides the application logger.
func LoggerPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*zap.Logger, error) {
		options := do.MustInvoke[*Options](i)

		if options.LogFormat == "json" {
			return zap.NewProduction()
		}

		return zap.NewDevelopment()
	})
}

// MetricsPackage provides the Prometheus collectors.
func MetricsPackage(injector *do.Injector) {
	do.Provide(injector, func(_ *do.Injector) (*metrics.Metrics, error) {
		return metrics.New(), nil
	})
}

// RedisPackage provides the shared Redis client used by the rate limiter
// and the audit event stream.
func RedisPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*redis.Client, error) {
		options := do.MustInvoke[*Options](i)

		return redis.NewClient(&redis.Options{Addr: options.RedisAddr}), nil
	})
}

// DocStorePackage provides the document store. Without an Elasticsearch
// address the in-memory store is used, which is handy for local runs but
// obviously forgets everything on restart.
func DocStorePackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (docstore.Store, error) {
		options := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if options.ElasticAddress == "" && options.ElasticCloudID == "" {
			logger.Warn("no elasticsearch configured, using the in-memory store")

			return docstore.NewMemoryStore(), nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		cfg := docstore.ElasticConfig{
			CloudID: options.ElasticCloudID,
			APIKey:  options.ElasticAPIKey,
			Index:   options.ElasticIndex,
		}
		if options.ElasticAddress != "" {
			cfg.Addresses = []string{options.ElasticAddress}
		}

		return docstore.NewElasticStore(ctx, cfg)
	})
}

// BatcherPackage provides the running visit-count batcher.
func BatcherPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*analytics.Batcher, error) {
		options := do.MustInvoke[*Options](i)
		store := do.MustInvoke[docstore.Store](i)
		logger := do.MustInvoke[*zap.Logger](i)

		batcher := analytics.NewBatcher(
			store,
			time.Duration(options.FlushInterval)*time.Second,
			options.FlushCount,
			logger,
		)
		batcher.SetMetrics(do.MustInvoke[*metrics.Metrics](i))

		if err := batcher.Start(context.Background()); err != nil {
			return nil, err
		}

		return batcher, nil
	})
}

// RenderPackage provides the render worker pool.
func RenderPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*render.Pool, error) {
		options := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		pool := render.NewPool(options.RenderWorkers, options.RenderQueue, logger)

		do.MustInvoke[*metrics.Metrics](i).RegisterRenderQueueDepth(pool.QueueDepth)

		return pool, nil
	})
}

// RateLimitPackage provides the public-surface rate limiter backed by Redis.
func RateLimitPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (ratelimit.Limiter, error) {
		options := do.MustInvoke[*Options](i)
		client := do.MustInvoke[*redis.Client](i)

		store := ratelimit.NewRedisStore(client)

		return ratelimit.NewSlidingWindowLimiter(
			store,
			int64(options.RateLimitMax),
			time.Duration(options.RateLimitWindow)*time.Second,
		), nil
	})
	do.Provide(injector, func(i *do.Injector) (ratelimit.Store, error) {
		return ratelimit.NewRedisStore(do.MustInvoke[*redis.Client](i)), nil
	})
}

// PublisherGroupPackage provides the audit event publisher over a Redis
// stream, plus the typed publish functions derived from it.
func PublisherGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		client := do.MustInvoke[*redis.Client](i)

		publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
			Client: client,
		}, watermill.NewStdLogger(false, false))
		if err != nil {
			return nil, fmt.Errorf("redis stream publisher: %w", err)
		}

		return messaging.NewPublisherGroup(publisher), nil
	})
	do.Provide(injector, func(i *do.Injector) (messaging.Publish[audit.RedirectChangedEvent], error) {
		group := do.MustInvoke[*messaging.PublisherGroup](i)

		return messaging.NewPublishFunc[audit.RedirectChangedEvent](group.Publisher(), audit.TopicRedirectChanged), nil
	})
	do.Provide(injector, func(i *do.Injector) (messaging.Publish[audit.RedirectResolvedEvent], error) {
		group := do.MustInvoke[*messaging.PublisherGroup](i)

		return messaging.NewPublishFunc[audit.RedirectResolvedEvent](group.Publisher(), audit.TopicRedirectResolved), nil
	})
}

// apiConfig keeps every generated route (docs, OpenAPI, schemas) under the
// reserved admin prefix. Anything mounted outside it would shadow a short
// link of the same name, since static routes beat the catch-all.
func apiConfig() huma.Config {
	config := huma.DefaultConfig("tinypath", Version)
	config.DocsPath = admin.Prefix + "/docs"
	config.OpenAPIPath = admin.Prefix + "/openapi"
	config.SchemasPath = admin.Prefix + "/schemas"

	return config
}

// HTTPPackage wires the router: huma API for the admin surface, plain chi
// handlers for the HTML-speaking public surface. The catch-all resolver is
// registered last so every reserved route wins over it.
func HTTPPackage(injector *do.Injector) {
	do.Provide(injector, func(_ *do.Injector) (*chi.Mux, error) {
		return chi.NewMux(), nil
	})

	do.Provide(injector, func(i *do.Injector) (huma.API, error) {
		options := do.MustInvoke[*Options](i)
		router := do.MustInvoke[*chi.Mux](i)
		logger := do.MustInvoke[*zap.Logger](i)
		store := do.MustInvoke[docstore.Store](i)
		m := do.MustInvoke[*metrics.Metrics](i)
		limiter := do.MustInvoke[ratelimit.Limiter](i)

		router.Use(middleware.WithRequestMeta)

		api := humachi.New(router, apiConfig())
		api.UseMiddleware(middleware.RateLimiter(api, limiter, do.MustInvoke[ratelimit.Store](i), logger))

		generate, err := nanoid.Standard(8)
		if err != nil {
			return nil, err
		}

		adminHandler := admin.NewHandler(
			store,
			admin.NewLivenessChecker(10*time.Second),
			generate,
			do.MustInvoke[messaging.Publish[audit.RedirectChangedEvent]](i),
			Version,
			logger,
		)
		verifier := auth.NewVerifier(options.JWTSecret, options.AllowedUsers)
		admin.RegisterRoutes(api, adminHandler, auth.Middleware(api, verifier))
		admin.RegisterStatusRoute(api, adminHandler)

		health.RegisterRoutes(api, health.NewHandler(
			store,
			health.NewRedisChecker(do.MustInvoke[*redis.Client](i)),
		))

		router.Handle(admin.Prefix+"/metrics", m.Handler())

		rv := resolver.New(
			store,
			do.MustInvoke[*render.Pool](i),
			do.MustInvoke[*analytics.Batcher](i),
			do.MustInvoke[messaging.Publish[audit.RedirectResolvedEvent]](i),
			options.FallbackURL,
			logger,
			m,
		)
		public := router.With(middleware.PublicRateLimiter(limiter, logger))
		public.Get("/", rv.ServeHTTP)
		public.Get("/*", rv.ServeHTTP)

		return api, nil
	})
}
