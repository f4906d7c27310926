package services

import (
	"context"
	"sync"
	"time"

	"github.com/sjperalta/firma-api/internal/jobs"
)

// SweepStatus is the outcome of the latest integrity sweep
type SweepStatus struct {
	FinishedAt time.Time `json:"finished_at"`
	Checked    int       `json:"checked"`
	Mismatches int       `json:"mismatches"`
	Missing    int       `json:"missing"`
	Error      string    `json:"error,omitempty"`
}

// JobService exposes background work: worker stats and scheduled integrity sweeps
type JobService struct {
	worker    *jobs.Worker
	integrity *IntegrityService

	mu        sync.RWMutex
	lastSweep *SweepStatus
}

func NewJobService(worker *jobs.Worker, integrity *IntegrityService) *JobService {
	return &JobService{
		worker:    worker,
		integrity: integrity,
	}
}

// RegisterSchedules adds the integrity sweep to the scheduler
func (s *JobService) RegisterSchedules(scheduler *jobs.Scheduler, sweepSpec string) error {
	return scheduler.Add(sweepSpec, "integrity sweep", s.RunIntegritySweep)
}

// RunIntegritySweep re-hashes stored documents and remembers the result
func (s *JobService) RunIntegritySweep(ctx context.Context) error {
	report, err := s.integrity.Sweep(ctx)

	status := &SweepStatus{FinishedAt: time.Now().UTC()}
	if report != nil {
		status.Checked = report.Checked
		status.Mismatches = report.Mismatches
		status.Missing = report.Missing
	}
	if err != nil {
		status.Error = err.Error()
	}

	s.mu.Lock()
	s.lastSweep = status
	s.mu.Unlock()

	return err
}

// LastSweep returns the latest sweep outcome, nil before the first run
func (s *JobService) LastSweep() *SweepStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSweep
}

func (s *JobService) GetStatus() map[string]interface{} {
	stats := s.worker.GetStats()
	lastSweep := s.LastSweep()

	return map[string]interface{}{
		"active_jobs":          stats.ActiveJobs,
		"completed_jobs":       stats.CompletedJobs,
		"failed_jobs":          stats.FailedJobs,
		"queue_length":         stats.QueueLength,
		"max_concurrent":       stats.MaxConcurrent,
		"last_integrity_sweep": lastSweep,
	}
}
