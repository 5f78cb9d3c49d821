// Package jobs runs scheduled background work. The stats job refreshes the business gauges
// and database pool gauges on a cron schedule.
package jobs
