package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

// MaintenanceStore covers the store operations used by periodic
// cleanup jobs
type MaintenanceStore interface {
	PruneInactiveAlerts(ctx context.Context, cutoff time.Time) (int64, error)
}

// Inactive alerts untouched this long are removed by the weekly
// cleanup job
const inactiveAlertRetention = 90 * 24 * time.Hour

// Scheduler manages scheduled jobs
type Scheduler struct {
	cron        *gocron.Scheduler
	monitor     *AlertMonitor
	maintenance MaintenanceStore
	interval    time.Duration
}

// NewScheduler creates a new scheduler instance
func NewScheduler(monitor *AlertMonitor, maintenance MaintenanceStore, interval time.Duration) *Scheduler {
	return &Scheduler{
		cron:        gocron.NewScheduler(time.UTC),
		monitor:     monitor,
		maintenance: maintenance,
		interval:    interval,
	}
}

// Start starts all scheduled jobs
func (s *Scheduler) Start() {
	log.Println("Starting scheduler...")

	// Check and trigger user price alerts on the configured cadence
	s.cron.Every(s.interval).Do(func() {
		s.monitor.RunCycle()
	})

	// Cleanup stale inactive alerts weekly on Sunday at 01:00
	s.cron.Every(1).Week().Sunday().At("01:00").Do(func() {
		s.cleanupStaleAlerts()
	})

	s.cron.StartAsync()
	log.Println("Scheduler started successfully")
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("Scheduler stopped")
}

// RunNow triggers an immediate on-demand check in the background,
// subject to the same overlap prevention as scheduled ticks. Returns
// false if skipped.
func (s *Scheduler) RunNow() bool {
	return s.monitor.RunAsync()
}

// Monitor exposes the underlying monitor for status queries
func (s *Scheduler) Monitor() *AlertMonitor {
	return s.monitor
}

// cleanupStaleAlerts removes inactive alerts nobody has touched for
// the retention period
func (s *Scheduler) cleanupStaleAlerts() {
	if s.maintenance == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-inactiveAlertRetention)
	removed, err := s.maintenance.PruneInactiveAlerts(ctx, cutoff)
	if err != nil {
		log.Printf("Error cleaning up stale alerts: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("Removed %d stale inactive alerts", removed)
	}
}
