package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const jobTimeout = 30 * time.Minute

// Job represents a scheduled job
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler manages scheduled jobs
type Scheduler struct {
	cron      *cron.Cron
	log       *logrus.Logger
	mu        sync.Mutex
	jobs      map[string]Job
	isRunning bool
}

// NewScheduler creates a new scheduler. Overlapping runs of the same job
// are skipped.
func NewScheduler(log *logrus.Logger) *Scheduler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	cronLog := cron.PrintfLogger(log)
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		log:  log,
		jobs: make(map[string]Job),
	}
}

// AddJob adds a job to the scheduler with a cron specification. A job may
// be registered under several specifications.
func (s *Scheduler) AddJob(spec string, job Job) error {
	name := job.Name()

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, exists := s.jobs[name]; exists && existing != job {
		return fmt.Errorf("a different job named %s is already registered", name)
	}

	_, err := s.cron.AddFunc(spec, func() {
		jlog := s.log.WithFields(logrus.Fields{"job": name, "spec": spec})
		jlog.Info("Starting scheduled job")
		startTime := time.Now()

		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		if err := job.Run(ctx); err != nil {
			jlog.WithError(err).Error("Scheduled job failed")
		} else {
			jlog.WithField("took", time.Since(startTime)).Info("Completed scheduled job")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add job %s: %w", name, err)
	}

	s.jobs[name] = job
	return nil
}

// AddJobSchedules registers job under every spec.
func (s *Scheduler) AddJobSchedules(job Job, specs ...string) error {
	for _, spec := range specs {
		if err := s.AddJob(spec, job); err != nil {
			return err
		}
	}
	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return
	}
	s.cron.Start()
	s.isRunning = true
	s.log.Info("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.mu.Unlock()

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("Scheduler stopped")
}

// RunJobNow runs a job immediately outside of schedule
func (s *Scheduler) RunJobNow(name string) error {
	s.mu.Lock()
	job, exists := s.jobs[name]
	s.mu.Unlock()
	if !exists {
		return fmt.Errorf("job %s not registered", name)
	}

	s.log.WithField("job", name).Info("Manually running job")
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	return job.Run(ctx)
}
