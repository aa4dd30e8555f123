package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/riskibarqy/ipl-snapshot/external/cricapi"
	"github.com/riskibarqy/ipl-snapshot/external/iplsite"
	"github.com/riskibarqy/ipl-snapshot/external/livescore"
	"github.com/riskibarqy/ipl-snapshot/external/upstream"
	"github.com/riskibarqy/ipl-snapshot/internal/config"
	"github.com/riskibarqy/ipl-snapshot/internal/domain/tournament"
	"github.com/riskibarqy/ipl-snapshot/internal/infrastructure/reference"
	"github.com/riskibarqy/ipl-snapshot/internal/interfaces/httpapi"
	"github.com/riskibarqy/ipl-snapshot/internal/normalizer"
	"github.com/riskibarqy/ipl-snapshot/internal/observability"
	"github.com/riskibarqy/ipl-snapshot/internal/platform/cache"
	"github.com/riskibarqy/ipl-snapshot/internal/platform/logging"
	"github.com/riskibarqy/ipl-snapshot/internal/platform/resilience"
	"github.com/riskibarqy/ipl-snapshot/internal/usecase"
)

const redisPingTimeout = 2 * time.Second

// App is the wired service. Close releases the worker pool and the
// Redis connection after the server has stopped.
type App struct {
	Server       *http.Server
	Snapshots    *usecase.SnapshotService
	orchestrator *usecase.Orchestrator
	redis        *redis.Client
}

type options struct {
	clock clockwork.Clock
}

type Option func(*options)

// WithClock replaces the wall clock used by the cache, the orchestrator
// and the adapters.
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) { o.clock = clock }
}

func New(cfg config.Config, logger *logging.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	o := options{clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}
	if cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	canon := normalizer.MustDefaultCanonicalizer()
	dataset, err := reference.Load(o.clock.Now(), canon, cfg.Scoring)
	if err != nil {
		return nil, fmt.Errorf("load reference dataset: %w", err)
	}

	metrics := observability.NewMetrics()
	sources := buildSources(cfg, canon, dataset, o.clock, logger)

	orchestrator, err := usecase.NewOrchestrator(sources, dataset, usecase.OrchestratorConfig{
		SourceTimeout:  cfg.SourceTimeout,
		SourceTimeouts: cfg.SourceTimeouts(),
		Workers:        cfg.SourceWorkers,
	}, o.clock, logger.Named("orchestrator"), metrics)
	if err != nil {
		return nil, err
	}

	backend, redisClient, err := buildCacheBackend(cfg, logger)
	if err != nil {
		orchestrator.Close()
		return nil, err
	}
	slot := cache.NewSlot[usecase.BuildResult](cfg.CacheTTL, backend,
		cache.WithClock(o.clock),
		cache.WithLogger(logger.Named("cache")),
		cache.WithObserver(metrics.ObserveCache),
	)

	snapshots := usecase.NewSnapshotService(slot, orchestrator, usecase.SnapshotServiceConfig{
		BuildTimeout: cfg.BuildTimeout,
		Sources:      orchestrator.SourceNames(),
	}, o.clock, logger)

	var metricsHandler http.Handler
	if cfg.MetricsEnabled {
		metricsHandler = metrics.Handler()
	}
	handler := httpapi.NewHandler(snapshots, metricsHandler, cfg.CacheTTL, logger)
	router := httpapi.NewRouter(handler, logger, cfg.CORSAllowedOrigins, cfg.InternalToken)

	logger.Info("snapshot service wired",
		"sources", orchestrator.SourceNames(),
		"cache_backend", cacheBackendName(redisClient),
		"cache_ttl", cfg.CacheTTL,
	)

	return &App{
		Server: &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           router,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
		},
		Snapshots:    snapshots,
		orchestrator: orchestrator,
		redis:        redisClient,
	}, nil
}

func (a *App) Close() error {
	a.orchestrator.Close()
	if a.redis != nil {
		return a.redis.Close()
	}
	return nil
}

// buildSources returns the enabled adapters in SOURCES_PRIORITY order.
// "static" lists the reference dataset as an ordinary source.
func buildSources(
	cfg config.Config,
	canon *normalizer.Canonicalizer,
	dataset *reference.Dataset,
	clock clockwork.Clock,
	logger *logging.Logger,
) []tournament.Source {
	breaker := resilience.CircuitBreakerConfig{
		Enabled:          cfg.SourceCircuitEnabled,
		FailureThreshold: cfg.SourceCircuitFailureCount,
		OpenTimeout:      cfg.SourceCircuitOpenTimeout,
		HalfOpenMaxReq:   cfg.SourceCircuitHalfOpenMax,
	}
	client := func(name string, source config.SourceConfig, secrets ...string) *upstream.Client {
		return upstream.New(upstream.Config{
			Name:           name,
			BaseURL:        source.BaseURL,
			Timeout:        source.Timeout,
			Secrets:        secrets,
			Logger:         logger,
			CircuitBreaker: breaker,
			Clock:          clock,
		})
	}

	out := make([]tournament.Source, 0, len(cfg.SourcesPriority))
	for _, name := range cfg.SourcesPriority {
		switch name {
		case config.SourceIPLSite:
			if !cfg.IPLSite.Enabled {
				continue
			}
			out = append(out, iplsite.New(client(name, cfg.IPLSite), canon, iplsite.Config{
				Season: cfg.IPLSiteSeason,
				Rules:  cfg.Scoring,
				Clock:  clock,
				Logger: logger.Named(name),
			}))
		case config.SourceCricAPI:
			if !cfg.CricAPI.Enabled {
				continue
			}
			if cfg.CricAPIKey == "" {
				logger.Warn("cricapi source skipped", "reason", "CRICAPI_KEY is empty")
				continue
			}
			out = append(out, cricapi.New(client(name, cfg.CricAPI, cfg.CricAPIKey), canon, cricapi.Config{
				APIKey: cfg.CricAPIKey,
				Series: cfg.CricAPISeries,
				Rules:  cfg.Scoring,
				Clock:  clock,
				Logger: logger.Named(name),
			}))
		case config.SourceLiveScore:
			if !cfg.LiveScore.Enabled {
				continue
			}
			out = append(out, livescore.New(client(name, cfg.LiveScore), canon, livescore.Config{
				Rules:  cfg.Scoring,
				Clock:  clock,
				Logger: logger.Named(name),
			}))
		case config.SourceStatic:
			out = append(out, dataset)
		}
	}
	return out
}

func buildCacheBackend(cfg config.Config, logger *logging.Logger) (cache.Backend[usecase.BuildResult], *redis.Client, error) {
	if cfg.CacheRedisURL == "" {
		return cache.NewMemoryBackend[usecase.BuildResult](), nil, nil
	}

	client, err := cache.NewRedisClient(cfg.CacheRedisURL)
	if err != nil {
		return nil, nil, err
	}
	backend := cache.NewRedisBackend[usecase.BuildResult](client, cfg.CacheRedisKey, cfg.CacheTTL)

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := backend.Ping(ctx); err != nil {
		// The slot bypasses an unreachable backend, so startup goes on.
		logger.Warn("redis cache unreachable at startup", "error", err)
	}
	return backend, client, nil
}

func cacheBackendName(client *redis.Client) string {
	if client == nil {
		return "memory"
	}
	return "redis"
}
