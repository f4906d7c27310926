package jobs

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sjperalta/firma-api/pkg/logger"
)

// Scheduler runs jobs on cron expressions, tracked in the worker's stats
type Scheduler struct {
	cron   *cron.Cron
	worker *Worker
}

// NewScheduler creates a scheduler bound to the worker's lifetime
func NewScheduler(worker *Worker) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		worker: worker,
	}
}

// Add registers a job under a standard cron spec or descriptor (e.g. "@daily")
func (s *Scheduler) Add(spec, name string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		if s.worker.Context().Err() != nil {
			return
		}
		logger.Info(fmt.Sprintf("[Scheduler] Running %s", name))
		s.worker.runScheduledJob(job)
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q for %s: %w", spec, name, err)
	}
	return nil
}

// Start begins running registered jobs
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and returns a context done when running jobs finish
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
