package jobs

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/platinummonkey/prodhub/pkg/observability"
	"github.com/robfig/cron/v3"
)

// Counters provides the totals published as business gauges
type Counters interface {
	CountOrganizations(ctx context.Context) (int64, error)
	CountUsers(ctx context.Context) (int64, error)
	CountProducts(ctx context.Context) (int64, error)
	CountActiveTeams(ctx context.Context) (int64, error)
}

// StoreCounters adapts the individual stores to Counters
type StoreCounters struct {
	Organizations interface {
		CountOrganizations(ctx context.Context) (int64, error)
	}
	Users interface {
		CountUsers(ctx context.Context) (int64, error)
	}
	Products interface {
		CountProducts(ctx context.Context) (int64, error)
	}
	Teams interface {
		CountActiveTeams(ctx context.Context) (int64, error)
	}
}

func (c StoreCounters) CountOrganizations(ctx context.Context) (int64, error) {
	return c.Organizations.CountOrganizations(ctx)
}

func (c StoreCounters) CountUsers(ctx context.Context) (int64, error) {
	return c.Users.CountUsers(ctx)
}

func (c StoreCounters) CountProducts(ctx context.Context) (int64, error) {
	return c.Products.CountProducts(ctx)
}

func (c StoreCounters) CountActiveTeams(ctx context.Context) (int64, error) {
	return c.Teams.CountActiveTeams(ctx)
}

// StatsJob refreshes gauges from the database
type StatsJob struct {
	counters Counters
	db       *sql.DB
	metrics  *observability.Metrics
	logger   *observability.Logger
	timeout  time.Duration
}

// NewStatsJob creates a new StatsJob. db may be nil, in which case pool stats are skipped.
func NewStatsJob(counters Counters, db *sql.DB, metrics *observability.Metrics, logger *observability.Logger) *StatsJob {
	return &StatsJob{
		counters: counters,
		db:       db,
		metrics:  metrics,
		logger:   logger,
		timeout:  30 * time.Second,
	}
}

// Refresh reads every total and updates the gauges. Totals that fail to load keep their
// previous value.
func (j *StatsJob) Refresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	gauges := []struct {
		name  string
		count func(context.Context) (int64, error)
		set   func(float64)
	}{
		{"organizations", j.counters.CountOrganizations, j.metrics.OrganizationsTotal.Set},
		{"users", j.counters.CountUsers, j.metrics.UsersTotal.Set},
		{"products", j.counters.CountProducts, j.metrics.ProductsTotal.Set},
		{"active_teams", j.counters.CountActiveTeams, j.metrics.ActiveTeamsTotal.Set},
	}

	var failed int
	for _, g := range gauges {
		n, err := g.count(ctx)
		if err != nil {
			failed++
			j.logger.WithError(err).WithField("gauge", g.name).Warn("Failed to refresh gauge")
			continue
		}
		g.set(float64(n))
	}

	if j.db != nil {
		j.metrics.RecordDBStats(j.db.Stats())
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d gauges failed to refresh", failed, len(gauges))
	}
	return nil
}

// Scheduler runs jobs on cron schedules
type Scheduler struct {
	cron   *cron.Cron
	logger *observability.Logger
}

// NewScheduler creates a new Scheduler
func NewScheduler(logger *observability.Logger) *Scheduler {
	return &Scheduler{cron: cron.New(), logger: logger}
}

// Add registers fn under name on the given schedule
func (s *Scheduler) Add(schedule, name string, fn func(ctx context.Context) error) error {
	_, err := s.cron.AddFunc(schedule, func() {
		defer observability.RecoverPanic(s.logger, "job "+name)

		start := time.Now()
		if err := fn(context.Background()); err != nil {
			s.logger.WithError(err).WithField("job", name).Error("Job failed")
			return
		}
		s.logger.WithFields(map[string]interface{}{
			"job":         name,
			"duration_ms": time.Since(start).Milliseconds(),
		}).Debug("Job completed")
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", schedule, name, err)
	}
	return nil
}

// Start starts the scheduler in its own goroutine
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs to finish or ctx to end
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
