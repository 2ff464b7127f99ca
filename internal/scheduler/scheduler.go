package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/helmcloud/k8s-clusterview/internal/snapshot"
)

const defaultCleanupSchedule = "0 2 * * *"

// Refresher replaces the served snapshot with a fresh one.
type Refresher interface {
	Refresh(ctx context.Context, cluster string) (*snapshot.ClusterSnapshot, error)
}

// Cleaner prunes archived snapshots past their retention.
type Cleaner interface {
	CleanupOldSnapshots(ctx context.Context, retentionDays int) (int64, error)
}

type Scheduler struct {
	cron      *cron.Cron
	refresher Refresher
	cleaner   Cleaner
	log       *zap.SugaredLogger
	config    SchedulerConfig
}

type SchedulerConfig struct {
	// Cluster is refreshed in the background; empty keeps whatever cluster
	// the refresher currently serves.
	Cluster string
	// RefreshInterval of zero disables background refresh.
	RefreshInterval time.Duration
	RetentionDays   int
	// CleanupSchedule is a cron expression, daily at 02:00 by default.
	CleanupSchedule string
}

// New returns a scheduler. cleaner may be nil when no archive is configured.
func New(refresher Refresher, cleaner Cleaner, log *zap.SugaredLogger, cfg SchedulerConfig) *Scheduler {
	if cfg.CleanupSchedule == "" {
		cfg.CleanupSchedule = defaultCleanupSchedule
	}
	return &Scheduler{
		cron:      cron.New(),
		refresher: refresher,
		cleaner:   cleaner,
		log:       log,
		config:    cfg,
	}
}

// Start registers the enabled jobs, starts the cron loop and runs one
// refresh synchronously when background refresh is enabled.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.config.RefreshInterval > 0 {
		refreshCron := fmt.Sprintf("@every %s", s.config.RefreshInterval)
		if _, err := s.cron.AddFunc(refreshCron, func() {
			if err := s.runRefresh(ctx); err != nil {
				s.log.Warnw("Scheduled refresh failed", "error", err)
			}
		}); err != nil {
			return fmt.Errorf("failed to schedule refresh job: %w", err)
		}
		s.log.Infow("Scheduled snapshot refresh", "schedule", refreshCron)
	}

	if s.cleaner != nil {
		if _, err := s.cron.AddFunc(s.config.CleanupSchedule, func() {
			if err := s.runCleanup(ctx); err != nil {
				s.log.Errorw("Scheduled cleanup failed", "error", err)
			}
		}); err != nil {
			return fmt.Errorf("failed to schedule cleanup job: %w", err)
		}
		s.log.Infow("Scheduled archive cleanup", "schedule", s.config.CleanupSchedule, "retentionDays", s.config.RetentionDays)
	}

	s.log.Info("Starting scheduler")
	s.cron.Start()

	if s.config.RefreshInterval > 0 {
		if err := s.runRefresh(ctx); err != nil {
			s.log.Warnw("Initial refresh failed", "error", err)
		}
	}

	return nil
}

// Stop halts the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.log.Info("Stopping scheduler")
	<-s.cron.Stop().Done()
}

// Jobs returns the number of registered jobs.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) runRefresh(ctx context.Context) error {
	snap, err := s.refresher.Refresh(ctx, s.config.Cluster)
	if err != nil {
		return fmt.Errorf("snapshot refresh failed: %w", err)
	}
	s.log.Debugw("Background refresh completed", "cluster", snap.Cluster, "fetchedAt", snap.FetchedAt)
	return nil
}

func (s *Scheduler) runCleanup(ctx context.Context) error {
	removed, err := s.cleaner.CleanupOldSnapshots(ctx, s.config.RetentionDays)
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}
	s.log.Infow("Archive cleanup completed", "removed", removed, "retentionDays", s.config.RetentionDays)
	return nil
}
