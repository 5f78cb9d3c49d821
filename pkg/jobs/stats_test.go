package jobs

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/platinummonkey/prodhub/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCounters struct {
	usersErr error
}

func (f *fakeCounters) CountOrganizations(ctx context.Context) (int64, error) { return 3, nil }
func (f *fakeCounters) CountUsers(ctx context.Context) (int64, error)         { return 12, f.usersErr }
func (f *fakeCounters) CountProducts(ctx context.Context) (int64, error)      { return 5, nil }
func (f *fakeCounters) CountActiveTeams(ctx context.Context) (int64, error)   { return 4, nil }

func newTestJob(counters Counters) (*StatsJob, *observability.Metrics, *bytes.Buffer) {
	var buf bytes.Buffer
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	logger := observability.NewLogger(observability.DebugLevel, &buf)
	return NewStatsJob(counters, nil, metrics, logger), metrics, &buf
}

func TestStatsJob_Refresh(t *testing.T) {
	job, metrics, _ := newTestJob(&fakeCounters{})

	require.NoError(t, job.Refresh(context.Background()))
	assert.Equal(t, float64(3), testutil.ToFloat64(metrics.OrganizationsTotal))
	assert.Equal(t, float64(12), testutil.ToFloat64(metrics.UsersTotal))
	assert.Equal(t, float64(5), testutil.ToFloat64(metrics.ProductsTotal))
	assert.Equal(t, float64(4), testutil.ToFloat64(metrics.ActiveTeamsTotal))
}

func TestStatsJob_PartialFailure(t *testing.T) {
	job, metrics, buf := newTestJob(&fakeCounters{usersErr: errors.New("timeout")})

	err := job.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 4")
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.UsersTotal))
	assert.Equal(t, float64(5), testutil.ToFloat64(metrics.ProductsTotal))
	assert.Contains(t, buf.String(), "Failed to refresh gauge")
}

func TestScheduler_RejectsBadSchedule(t *testing.T) {
	s := NewScheduler(observability.NewLogger(observability.InfoLevel, &bytes.Buffer{}))

	err := s.Add("not a schedule", "stats", func(context.Context) error { return nil })
	assert.Error(t, err)
	require.NoError(t, s.Add("@every 5m", "stats", func(context.Context) error { return nil }))

	s.Start()
	require.NoError(t, s.Stop(context.Background()))
}

func TestStoreCounters(t *testing.T) {
	f := &fakeCounters{}
	c := StoreCounters{Organizations: f, Users: f, Products: f, Teams: f}

	job, metrics, _ := newTestJob(c)
	require.NoError(t, job.Refresh(context.Background()))
	assert.Equal(t, float64(4), testutil.ToFloat64(metrics.ActiveTeamsTotal))
}
