package api

import (
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/prodhub/pkg/access"
	"github.com/platinummonkey/prodhub/pkg/auth"
	"github.com/platinummonkey/prodhub/pkg/httputil"
	"github.com/platinummonkey/prodhub/pkg/middleware"
	"github.com/platinummonkey/prodhub/pkg/observability"
	"github.com/platinummonkey/prodhub/pkg/roadmap"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Options configures the credential services and the ambient plumbing of a Server
type Options struct {
	Tokens       *auth.TokenManager
	Passwords    *auth.PasswordHasher
	Revocations  *auth.RevocationList
	LoginLimiter *middleware.LoginRateLimiter

	Logger   *observability.Logger
	Metrics  *observability.Metrics
	Registry *prometheus.Registry
	Health   *observability.HealthChecker

	AllowedOrigins []string
	MaxBodyBytes   int64
	Tracing        bool
}

// Server represents our API server
type Server struct {
	router   *mux.Router
	stores   Stores
	opts     Options
	tenant   *access.Tenant
	products *access.Products
	enricher *roadmap.Enricher
	authn    *middleware.AuthMiddleware
	handler  http.Handler
}

// NewServer creates a new API server and registers every route
func NewServer(stores Stores, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = observability.NewLogger(observability.InfoLevel, io.Discard)
	}
	if opts.Passwords == nil {
		opts.Passwords = auth.NewPasswordHasher(0)
	}
	if opts.Revocations == nil {
		opts.Revocations = auth.NewRevocationList(nil)
	}
	if opts.LoginLimiter == nil {
		opts.LoginLimiter = middleware.NewLoginRateLimiter(nil, middleware.LoginRateLimitConfig{}, opts.Metrics)
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}

	resolver := auth.NewResolver(opts.Tokens, opts.Revocations, stores.Users)
	s := &Server{
		router:   mux.NewRouter(),
		stores:   stores,
		opts:     opts,
		tenant:   access.NewTenant(stores.Users, stores.Roles, stores.Catalog),
		products: access.NewProducts(stores.Products, stores.Users),
		enricher: roadmap.NewEnricher(stores.Capacity, stores.Backlogs),
		authn:    middleware.NewAuthMiddleware(resolver, opts.Metrics),
	}
	s.setupRoutes()
	s.handler = s.buildHandler()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	// inside the router so the metrics see the matched route template
	if s.opts.Metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(s.opts.Metrics))
	}
	if s.opts.Health != nil {
		observability.RegisterHealthRoutes(s.router, s.opts.Health)
	}
	if s.opts.Registry != nil {
		s.router.Handle("/metrics", observability.MetricsHandler(s.opts.Registry)).Methods("GET")
	}

	api := s.router.PathPrefix("/api").Subrouter()

	NewAuthHandlers(s).RegisterRoutes(api)
	NewAdminHandlers(s).RegisterRoutes(api)
	NewCRMHandlers(s).RegisterRoutes(api)

	products := api.PathPrefix("/products").Subrouter()
	products.Use(s.authn.Handler)
	NewProductHandlers(s).RegisterRoutes(products)
	NewPlanningHandlers(s).RegisterRoutes(products)
	NewRoadmapHandlers(s).RegisterRoutes(products)
	NewCapacityHandlers(s).RegisterRoutes(products)

	v2 := api.PathPrefix("/v2/products").Subrouter()
	v2.Use(s.authn.Handler)
	NewRoadmapHandlers(s).RegisterV2Routes(v2)
}

// Router exposes the route table, mainly for tests
func (s *Server) Router() *mux.Router {
	return s.router
}

// Handler returns the router wrapped in the request middleware chain
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) buildHandler() http.Handler {
	chain := []func(http.Handler) http.Handler{
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(s.opts.Logger),
		httputil.RecoveryMiddleware(s.opts.Logger),
		httputil.CORSMiddleware(s.opts.AllowedOrigins),
		httputil.MaxBytesMiddleware(s.opts.MaxBodyBytes),
	}

	var handler http.Handler = httputil.Chain(chain...)(s.router)
	if s.opts.Tracing {
		handler = otelhttp.NewHandler(handler, "prodhub",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	}
	return handler
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// principalFrom returns the caller resolved by the auth middleware
func principalFrom(r *http.Request) *auth.Principal {
	p, _ := auth.PrincipalFromContext(r.Context())
	return p
}
