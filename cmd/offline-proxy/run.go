package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/Sternrassler/offline-cache-gateway/internal/config"
	"github.com/Sternrassler/offline-cache-gateway/pkg/cache"
	"github.com/Sternrassler/offline-cache-gateway/pkg/client"
	"github.com/Sternrassler/offline-cache-gateway/pkg/connectivity"
	"github.com/Sternrassler/offline-cache-gateway/pkg/fetch"
	"github.com/Sternrassler/offline-cache-gateway/pkg/gateway"
	"github.com/Sternrassler/offline-cache-gateway/pkg/logging"
	"github.com/Sternrassler/offline-cache-gateway/pkg/precache"
	"github.com/Sternrassler/offline-cache-gateway/pkg/queue"
	"github.com/redis/go-redis/v9"
	"github.com/rs/dnscache"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// loadConfig loads the config file and applies the command line overrides.
func loadConfig() (*config.Config, error) {
	return config.Load(cli.Config, func(c *config.Config) {
		if cli.Addr != "" {
			c.Server.Addr = cli.Addr
		}
		if cli.Upstream != "" {
			c.Upstream.URL = cli.Upstream
		}
		if cli.LogLevel != "" {
			c.Log.Level = cli.LogLevel
		}
	})
}

// storage builds the bucket store and the retry queue. Both live in Redis
// when redis.addr is set and in memory otherwise.
func storage(ctx context.Context, cfg *config.Config) (cache.Store, queue.Queue, func() error, error) {
	if !cfg.UseRedis() {
		store, err := cache.NewMemoryStore(cfg.BucketConfigs()...)
		if err != nil {
			return nil, nil, nil, err
		}
		return store, queue.NewMemoryQueue(), func() error { return nil }, nil
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		redisClient.Close()
		return nil, nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
	}

	store, err := cache.NewRedisStore(redisClient, cfg.BucketConfigs()...)
	if err != nil {
		redisClient.Close()
		return nil, nil, nil, err
	}
	return store, queue.NewRedisQueue(redisClient), redisClient.Close, nil
}

func run(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Log.Level),
		Pretty: cfg.Log.Pretty,
		Output: os.Stderr,
	})
	logger := logging.NewLogger("offline-proxy")

	store, q, closeStorage, err := storage(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStorage()

	trackerLogger := logging.NewLogger("connectivity")
	tracker := connectivity.NewTracker(cfg.Upstream.OfflineThreshold, trackerLogger)

	clientCfg := client.DefaultConfig(cfg.Upstream.UserAgent)
	clientCfg.Timeout = cfg.Upstream.Timeout
	clientCfg.MaxBodyBytes = cfg.Upstream.MaxBodyBytes
	clientCfg.Tracker = tracker
	var resolver *dnscache.Resolver
	if cfg.Upstream.DNSRefresh > 0 {
		resolver = &dnscache.Resolver{}
		clientCfg.Resolver = resolver
	}
	httpClient, err := client.New(clientCfg)
	if err != nil {
		return err
	}

	gwLogger := logging.NewLogger("gateway")
	gwCfg := gateway.DefaultConfig(httpClient, store, q)
	gwCfg.Tracker = tracker
	gwCfg.APIPrefix = cfg.Gateway.APIPrefix
	gwCfg.Retention = cfg.Gateway.Retention
	gwCfg.Logger = &gwLogger
	gw, err := gateway.New(gwCfg)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: newRouter(routerDeps{
			Gateway:      gw,
			Upstream:     strings.TrimRight(cfg.Upstream.URL, "/"),
			MaxBodyBytes: cfg.Upstream.MaxBodyBytes,
			Logger:       logger,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	logger.Info().
		Str("version", version).
		Str("addr", cfg.Server.Addr).
		Str("upstream", cfg.Upstream.URL).
		Bool("redis", cfg.UseRedis()).
		Msg("Starting offline proxy")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return gateway.NewSweeper(gw, cfg.Gateway.SweepInterval).Run(gctx)
	})

	if resolver != nil {
		g.Go(func() error {
			return client.RefreshResolver(gctx, resolver, cfg.Upstream.DNSRefresh)
		})
	}

	// warmed is closed once precaching has returned, so shutdown never
	// drains the gateway while the precacher may still use it.
	warmed := make(chan struct{})
	if reqs := precacheRequests(cfg); len(reqs) > 0 {
		g.Go(func() error {
			defer close(warmed)
			warmLogger := logging.NewLogger("precache")
			p := precache.New(gw, precache.Config{
				Concurrency: cfg.Precache.Concurrency,
				Logger:      &warmLogger,
			})
			if _, err := p.Warm(gctx, reqs); err != nil && gctx.Err() == nil {
				logger.Warn().Err(err).Msg("Precache did not finish")
			}
			return nil
		})
	} else {
		close(warmed)
	}

	g.Go(func() error {
		<-gctx.Done()
		return shutdown(srv, gw, warmed, cfg, logger)
	})

	return g.Wait()
}

// shutdown stops the server, waits for the precacher behind warmed and then
// for background fetches still updating the buckets or the retry queue.
// Draining starts only once nothing can start new fetches.
func shutdown(srv *http.Server, gw *gateway.Gateway, warmed <-chan struct{}, cfg *config.Config, logger zerolog.Logger) error {
	logger.Info().Msg("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	select {
	case <-warmed:
	case <-ctx.Done():
		logger.Warn().Msg("Precache still running at shutdown")
		return nil
	}

	drained := make(chan struct{})
	go func() {
		gw.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-ctx.Done():
		logger.Warn().Msg("Background fetches still running at shutdown")
	}

	logger.Info().Msg("Offline proxy stopped")
	return nil
}

// precacheRequests resolves the configured precache paths against the upstream.
func precacheRequests(cfg *config.Config) []*fetch.Request {
	base := strings.TrimRight(cfg.Upstream.URL, "/")
	resolve := func(u string) string {
		if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
			return u
		}
		return base + "/" + strings.TrimLeft(u, "/")
	}

	reqs := make([]*fetch.Request, 0, len(cfg.Precache.URLs)+len(cfg.Precache.Images))
	for _, u := range cfg.Precache.URLs {
		reqs = append(reqs, fetch.NewRequest(http.MethodGet, resolve(u), "", nil))
	}
	for _, u := range cfg.Precache.Images {
		reqs = append(reqs, fetch.NewRequest(http.MethodGet, resolve(u), string(fetch.KindImage), nil))
	}
	return reqs
}
