package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"stockaggr/internal/config"
	"stockaggr/internal/datasource"
	"stockaggr/internal/logging"
)

// JobStatus tracks one pre-warm job's last outcome
type JobStatus struct {
	Name      string    `json:"name"`
	Schedule  string    `json:"schedule"`
	LastRun   time.Time `json:"last_run"`
	LastError string    `json:"last_error,omitempty"`
}

// Scheduler runs the pre-warm jobs: it periodically pulls the hot
// endpoints through the manager so the response cache stays warm and
// breaker state reflects upstream health even during quiet periods.
type Scheduler struct {
	cron    *cron.Cron
	manager *datasource.Manager
	log     *logging.Logger

	mu   sync.RWMutex
	jobs map[string]*JobStatus
}

// New creates the pre-warm scheduler
func New(manager *datasource.Manager, log *logging.Logger) *Scheduler {
	if log == nil {
		log = logging.GetGlobalLogger()
	}
	return &Scheduler{
		cron:    cron.New(),
		manager: manager,
		log:     log,
		jobs:    make(map[string]*JobStatus),
	}
}

// Register adds the configured pre-warm jobs.
func (s *Scheduler) Register(cfg *config.SchedulerConfig) error {
	jobs := []struct {
		name string
		spec string
		run  func(ctx context.Context) error
	}{
		{"indices", cfg.IndexSpec, func(ctx context.Context) error {
			_, err := s.manager.GetIndices(ctx)
			return err
		}},
		{"limit_pools", cfg.LimitSpec, func(ctx context.Context) error {
			now := time.Now()
			if _, err := s.manager.GetLimitUpPool(ctx, now); err != nil {
				return err
			}
			_, err := s.manager.GetLimitDownPool(ctx, now)
			return err
		}},
		{"north_flow", cfg.NorthSpec, func(ctx context.Context) error {
			_, err := s.manager.GetNorthFlow(ctx)
			return err
		}},
	}

	for _, job := range jobs {
		if err := s.add(job.name, job.spec, job.run); err != nil {
			return err
		}
	}
	return nil
}

// add schedules one job
func (s *Scheduler) add(name, spec string, run func(ctx context.Context) error) error {
	status := &JobStatus{Name: name, Schedule: spec}

	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := run(ctx)

		s.mu.Lock()
		status.LastRun = time.Now()
		status.LastError = ""
		if err != nil {
			status.LastError = err.Error()
		}
		s.mu.Unlock()

		if err != nil {
			s.log.WithError(err).Warnf("pre-warm job %s failed", name)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	s.mu.Lock()
	s.jobs[name] = status
	s.mu.Unlock()
	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("pre-warm scheduler started")
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("pre-warm scheduler stopped")
}

// Statuses returns a snapshot of every job's last outcome.
func (s *Scheduler) Statuses() []JobStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statuses := make([]JobStatus, 0, len(s.jobs))
	for _, job := range s.jobs {
		statuses = append(statuses, *job)
	}
	return statuses
}
