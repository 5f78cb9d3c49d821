// Package middleware provides the HTTP middleware that authenticates requests, applies the
// authorization gate and rate limits login attempts.
//
//	authn := middleware.NewAuthMiddleware(resolver, metrics)
//	admin := router.PathPrefix("/api/admin").Subrouter()
//	admin.Use(authn.Handler, middleware.RequireOrgAdmin(metrics))
//
// LoginRateLimiter counts attempts per client IP in Redis and fails open when Redis is
// unavailable.
package middleware
