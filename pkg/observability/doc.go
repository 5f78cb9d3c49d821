// Package observability provides structured logging, Prometheus metrics, health checks,
// OpenTelemetry tracing and graceful shutdown.
//
// # Structured Logging
//
// Logger wraps logrus with a JSON formatter. Loggers are immutable and derived with fields:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("product_id", id).Info("Roadmap saved")
//
// The HTTP logging middleware stores a request-scoped logger in the context; handlers and
// services retrieve it with FromContext, which adds request_id and user_id:
//
//	observability.FromContext(ctx).WithError(err).Error("Failed to load capacity plan")
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	router.Use(observability.HTTPMetricsMiddleware(metrics))
//	router.Handle("/metrics", observability.MetricsHandler(registry))
//
// HTTP metrics are labeled by mux route template, not raw path.
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(db, redisClient)
//	observability.RegisterHealthRoutes(router, checker)
//
// The database is required for readiness; Redis being down only degrades.
//
// # Tracing
//
// InitOTel configures OTLP/gRPC export when enabled. StartSpan creates spans under the
// application tracer and is a no-op when tracing is disabled.
//
// # Shutdown
//
//	sm := observability.NewShutdownManager(logger, server, 30*time.Second)
//	sm.Register("database", func(ctx context.Context) error { return db.Close() })
//	sm.WaitForShutdown(ctx)
package observability
