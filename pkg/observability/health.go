package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// readinessTimeout bounds a single readiness evaluation
const readinessTimeout = 5 * time.Second

// PendingMigrationsFunc reports the schema migrations that have not been applied yet
type PendingMigrationsFunc func(ctx context.Context) ([]string, error)

// HealthChecker answers the liveness and readiness endpoints. PostgreSQL and an up to
// date schema are required for readiness. Redis only backs token revocation and login
// throttling, so losing it degrades the service without taking it out of rotation.
type HealthChecker struct {
	db      *sql.DB
	redis   *redis.Client
	pending PendingMigrationsFunc
	version string
}

// NewHealthChecker creates a new health checker. Either store may be nil.
func NewHealthChecker(db *sql.DB, redis *redis.Client) *HealthChecker {
	return &HealthChecker{
		db:      db,
		redis:   redis,
		version: "dev",
	}
}

// WithVersion sets the build version reported by Check
func (h *HealthChecker) WithVersion(version string) *HealthChecker {
	if version != "" {
		h.version = version
	}
	return h
}

// WithSchemaCheck makes readiness depend on every migration being applied
func (h *HealthChecker) WithSchemaCheck(pending PendingMigrationsFunc) *HealthChecker {
	h.pending = pending
	return h
}

// HealthStatus is the body of /health and /health/ready
type HealthStatus struct {
	Status       string                      `json:"status"`
	Timestamp    time.Time                   `json:"timestamp"`
	Version      string                      `json:"version,omitempty"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// DependencyStatus is the outcome of one readiness check
type DependencyStatus struct {
	Status    string        `json:"status"`
	Message   string        `json:"message,omitempty"`
	Latency   time.Duration `json:"latency_ms,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// Liveness answers 200 while the process is serving
func (h *HealthChecker) Liveness(w http.ResponseWriter, r *http.Request) {
	writeHealth(w, http.StatusOK, map[string]interface{}{
		"status":    StatusHealthy,
		"timestamp": time.Now(),
	})
}

// Readiness answers 503 when a required dependency is unhealthy
func (h *HealthChecker) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	status := h.Check(ctx)
	code := http.StatusOK
	if status.Status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeHealth(w, code, status)
}

// Check evaluates every configured dependency
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:       StatusHealthy,
		Timestamp:    time.Now(),
		Version:      h.version,
		Dependencies: make(map[string]DependencyStatus),
	}

	record := func(name string, dep DependencyStatus, required bool) {
		status.Dependencies[name] = dep
		switch {
		case dep.Status == StatusHealthy:
		case dep.Status == StatusUnhealthy && required:
			status.Status = StatusUnhealthy
		case status.Status == StatusHealthy:
			status.Status = StatusDegraded
		}
	}

	if h.db != nil {
		record("database", h.checkDatabase(ctx), true)
	}
	if h.pending != nil {
		record("schema", h.checkSchema(ctx), true)
	}
	if h.redis != nil {
		record("redis", h.checkRedis(ctx), false)
	}
	return status
}

func (h *HealthChecker) checkDatabase(ctx context.Context) DependencyStatus {
	return timed(func(dep *DependencyStatus) {
		if err := h.db.PingContext(ctx); err != nil {
			dep.fail(err.Error())
			return
		}
		var one int
		if err := h.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
			dep.fail("query failed: " + err.Error())
			return
		}
		if stats := h.db.Stats(); stats.MaxOpenConnections > 0 && stats.OpenConnections >= stats.MaxOpenConnections {
			dep.Status = StatusDegraded
			dep.Message = "connection pool exhausted"
		}
	})
}

func (h *HealthChecker) checkSchema(ctx context.Context) DependencyStatus {
	return timed(func(dep *DependencyStatus) {
		pending, err := h.pending(ctx)
		if err != nil {
			dep.fail("migration status unavailable: " + err.Error())
			return
		}
		if len(pending) > 0 {
			dep.fail(fmt.Sprintf("%d pending migration(s), next: %s", len(pending), pending[0]))
		}
	})
}

func (h *HealthChecker) checkRedis(ctx context.Context) DependencyStatus {
	return timed(func(dep *DependencyStatus) {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			dep.fail(err.Error())
		}
	})
}

func timed(check func(dep *DependencyStatus)) DependencyStatus {
	dep := DependencyStatus{Status: StatusHealthy, Timestamp: time.Now()}
	start := time.Now()
	check(&dep)
	dep.Latency = time.Since(start)
	return dep
}

func (d *DependencyStatus) fail(message string) {
	d.Status = StatusUnhealthy
	d.Message = message
}

func writeHealth(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

// RegisterHealthRoutes registers /health, /health/live and /health/ready
func RegisterHealthRoutes(router *mux.Router, checker *HealthChecker) {
	router.HandleFunc("/health", checker.Readiness).Methods("GET")
	router.HandleFunc("/health/live", checker.Liveness).Methods("GET")
	router.HandleFunc("/health/ready", checker.Readiness).Methods("GET")
}
