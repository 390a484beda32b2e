package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/ff-draft-sim/internal/metrics"
)

// Scheduler runs the periodic jobs of the server: re-projecting the player
// pool and pruning stale draft sessions.
type Scheduler struct {
	cron    *cron.Cron
	logger  *logrus.Entry
	timeout time.Duration
	metrics *metrics.Recorder

	mu        sync.Mutex
	isRunning bool
	active    map[string]bool
	lastRun   map[string]time.Time
}

// NewScheduler creates a scheduler whose jobs are each bounded by timeout.
func NewScheduler(timeout time.Duration, logger *logrus.Logger) *Scheduler {
	cronLogger := cron.VerbosePrintfLogger(logger)
	return &Scheduler{
		cron:    cron.New(cron.WithLogger(cronLogger), cron.WithChain(cron.Recover(cronLogger))),
		logger:  logger.WithField("component", "scheduler"),
		timeout: timeout,
		active:  make(map[string]bool),
		lastRun: make(map[string]time.Time),
	}
}

// SetRecorder records every job run in rec.
func (s *Scheduler) SetRecorder(rec *metrics.Recorder) {
	s.metrics = rec
}

// AddJob schedules fn under a cron spec. A run is skipped while the previous
// run of the same job is still going.
func (s *Scheduler) AddJob(name, spec string, fn func(ctx context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() { s.run(name, fn) })
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	s.logger.WithFields(logrus.Fields{"job": name, "schedule": spec}).Info("Scheduled job")
	return nil
}

// RunNow runs a job immediately in the caller's goroutine.
func (s *Scheduler) RunNow(name string, fn func(ctx context.Context) error) {
	s.run(name, fn)
}

func (s *Scheduler) run(name string, fn func(ctx context.Context) error) {
	s.mu.Lock()
	if s.active[name] {
		s.mu.Unlock()
		s.logger.WithField("job", name).Warn("Previous run still in progress, skipping")
		return
	}
	s.active[name] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.active[name] = false
		s.lastRun[name] = time.Now()
		s.mu.Unlock()
	}()

	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	err := fn(ctx)
	s.metrics.RecordJob(name, time.Since(start), err)
	if err != nil {
		s.logger.WithError(err).WithField("job", name).Error("Scheduled job failed")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"job":      name,
		"duration": time.Since(start),
	}).Info("Scheduled job finished")
}

func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}
	s.cron.Start()
	s.isRunning = true
	return nil
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// Status reports the scheduled jobs and when they next run.
func (s *Scheduler) Status() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	nextRuns := make([]time.Time, 0, len(entries))
	for _, entry := range entries {
		nextRuns = append(nextRuns, entry.Next)
	}
	lastRuns := make(map[string]time.Time, len(s.lastRun))
	for name, at := range s.lastRun {
		lastRuns[name] = at
	}

	return map[string]interface{}{
		"is_running": s.isRunning,
		"cron_jobs":  len(entries),
		"next_runs":  nextRuns,
		"last_runs":  lastRuns,
	}
}

// RefreshJob re-projects the pool stored under label.
func RefreshJob(service *ProjectionService, label string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		_, err := service.Refresh(ctx, label)
		return err
	}
}
