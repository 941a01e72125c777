package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the search index rebuild on a cron schedule
type Scheduler struct {
	cron      *cron.Cron
	reindexer *Reindexer
	spec      string
	timeout   time.Duration
	logger    *slog.Logger
	isRunning bool
}

// NewScheduler creates a new scheduler. timeout bounds a single run; zero
// means no bound.
func NewScheduler(reindexer *Reindexer, spec string, timeout time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:      cron.New(),
		reindexer: reindexer,
		spec:      spec,
		timeout:   timeout,
		logger:    logger,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.logger.Info("scheduler: starting reindex job")
		if _, err := s.RunNow(context.Background()); err != nil {
			s.logger.Error("scheduler: reindex failed", "error", err)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.Info("scheduler: started", "cron", s.spec)
	return nil
}

// Stop stops the scheduler and waits for a running job to finish
func (s *Scheduler) Stop() {
	if s.isRunning {
		<-s.cron.Stop().Done()
		s.isRunning = false
		s.logger.Info("scheduler: stopped")
	}
}

// NextRun returns when the job fires next, zero if not started
func (s *Scheduler) NextRun() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// RunNow immediately executes the reindex job (for manual trigger)
func (s *Scheduler) RunNow(ctx context.Context) (RunStats, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	stats, err := s.reindexer.Run(ctx)
	if err != nil {
		return stats, err
	}
	s.logger.Info("scheduler: reindex completed",
		"indexed", stats.Indexed,
		"batches", stats.Batches,
		"duration", stats.Duration,
	)
	return stats, nil
}

// Reindexer exposes the job for status reporting
func (s *Scheduler) Reindexer() *Reindexer {
	return s.reindexer
}
