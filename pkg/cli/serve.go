package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-redis/redis/v8"
	"github.com/platinummonkey/prodhub/pkg/api"
	"github.com/platinummonkey/prodhub/pkg/auth"
	"github.com/platinummonkey/prodhub/pkg/backlog"
	"github.com/platinummonkey/prodhub/pkg/capacity"
	"github.com/platinummonkey/prodhub/pkg/catalog"
	"github.com/platinummonkey/prodhub/pkg/config"
	"github.com/platinummonkey/prodhub/pkg/hypothesis"
	"github.com/platinummonkey/prodhub/pkg/jobs"
	"github.com/platinummonkey/prodhub/pkg/middleware"
	"github.com/platinummonkey/prodhub/pkg/observability"
	"github.com/platinummonkey/prodhub/pkg/orgs"
	"github.com/platinummonkey/prodhub/pkg/products"
	"github.com/platinummonkey/prodhub/pkg/rbac"
	"github.com/platinummonkey/prodhub/pkg/roadmap"
	"github.com/platinummonkey/prodhub/pkg/storage/postgres"
	"github.com/platinummonkey/prodhub/pkg/users"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCommand() *cobra.Command {
	var skipMigrations bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, logger, skipMigrations)
		},
	}
	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "Start without applying pending migrations")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, logger *observability.Logger, skipMigrations bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	providers, err := observability.InitOTel(ctx, cfg.OTel(), logger)
	if err != nil {
		return err
	}

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	logger.Info("Connected to PostgreSQL")

	if !skipMigrations {
		if err := postgres.RunMigrations(ctx, db, logger); err != nil {
			db.Close()
			return err
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		redisClient, err = postgres.NewRedisClient(ctx, postgres.RedisConfig{
			URL:      cfg.Redis.URL,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			db.Close()
			return err
		}
		logger.Info("Connected to Redis")
	} else {
		logger.Warn("Redis is not configured, token revocation and login throttling are disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	catalogStore := catalog.NewStore(db, cfg.Catalog.CacheTTL, metrics)
	if cfg.Catalog.SeedFile != "" {
		if err := catalog.SeedFromFile(ctx, catalogStore, cfg.Catalog.SeedFile); err != nil {
			closeStores(db, redisClient, logger)
			return err
		}
		logger.WithField("path", cfg.Catalog.SeedFile).Info("Module catalog seeded")
	}

	orgStore := orgs.NewPostgresService(db)
	userStore := users.NewPostgresService(db)
	productStore := products.NewPostgresService(db)
	capacityStore := capacity.NewPostgresService(db)

	stores := api.Stores{
		Orgs:       orgStore,
		Users:      userStore,
		Roles:      rbac.NewStore(db),
		Catalog:    catalogStore,
		Products:   productStore,
		Backlogs:   backlog.NewPostgresService(db),
		Hypotheses: hypothesis.NewPostgresService(db),
		Roadmaps:   roadmap.NewPostgresService(db, metrics),
		Capacity:   capacityStore,
	}

	scheduler := jobs.NewScheduler(logger)
	stats := jobs.NewStatsJob(jobs.StoreCounters{
		Organizations: orgStore,
		Users:         userStore,
		Products:      productStore,
		Teams:         capacityStore,
	}, db, metrics, logger)
	if err := scheduler.Add(cfg.Jobs.StatsSchedule, "stats", stats.Refresh); err != nil {
		closeStores(db, redisClient, logger)
		return err
	}
	if err := stats.Refresh(ctx); err != nil {
		logger.WithError(err).Warn("Initial stats refresh incomplete")
	}

	trustedProxies, err := middleware.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		closeStores(db, redisClient, logger)
		return err
	}

	opts := api.Options{
		Tokens:      auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.Issuer),
		Passwords:   auth.NewPasswordHasher(cfg.Auth.BcryptCost),
		Revocations: auth.NewRevocationList(redisClient),
		LoginLimiter: middleware.NewLoginRateLimiter(redisClient, middleware.LoginRateLimitConfig{
			MaxAttempts:    cfg.Auth.LoginMaxAttempts,
			Window:         cfg.Auth.LoginWindow,
			TrustedProxies: trustedProxies,
		}, metrics),
		Logger:         logger,
		Metrics:        metrics,
		Health:         observability.NewHealthChecker(db, redisClient).WithVersion(Version).WithSchemaCheck(schemaCheck(db)),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		Tracing:        cfg.Observability.OTelEnabled,
	}
	if cfg.Observability.MetricsEnabled {
		opts.Registry = registry
	}
	server := api.NewServer(stores, opts)

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	shutdown.Register("database", func(context.Context) error { return db.Close() })
	if redisClient != nil {
		shutdown.Register("redis", func(context.Context) error { return redisClient.Close() })
	}
	if providers != nil {
		shutdown.Register("otel", providers.Shutdown)
	}
	shutdown.Register("scheduler", scheduler.Stop)

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Catalog.Watch {
		watcher, err := catalog.NewWatcher(cfg.Catalog.SeedFile, catalogStore, logger)
		if err != nil {
			closeStores(db, redisClient, logger)
			return err
		}
		shutdown.Register("catalog-watcher", func(context.Context) error { return watcher.Close() })
		g.Go(func() error {
			defer observability.RecoverPanic(logger, "catalog watcher")
			watcher.Run(gctx)
			return nil
		})
	}

	scheduler.Start()

	g.Go(func() error {
		logger.WithField("addr", httpServer.Addr).Info("Starting prodhub API server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		defer cancel()
		return shutdown.WaitForShutdown(gctx)
	})

	return g.Wait()
}

func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	return postgres.Open(ctx, postgres.ConnectionConfig{
		URL:         cfg.Database.URL,
		MaxConns:    cfg.Database.MaxOpenConns,
		MinConns:    cfg.Database.MaxIdleConns,
		MaxLifetime: cfg.Database.ConnMaxLifetime,
	})
}

func closeStores(db *sql.DB, client *redis.Client, logger *observability.Logger) {
	if err := db.Close(); err != nil {
		logger.WithError(err).Warn("Failed to close database")
	}
	if client != nil {
		if err := client.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close redis client")
		}
	}
}
