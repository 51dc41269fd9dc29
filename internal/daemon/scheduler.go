package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/txbridge/internal/logfields"
	"git.home.luguber.info/inful/txbridge/internal/workspace"
)

// Scheduler wraps gocron scheduler for managing periodic tasks.
type Scheduler struct {
	scheduler gocron.Scheduler
}

// NewScheduler creates a new scheduler instance.
func NewScheduler() (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Scheduler{scheduler: s}, nil
}

// Start begins the scheduler.
func (s *Scheduler) Start(_ context.Context) {
	slog.Info("Starting scheduler")
	s.scheduler.Start()
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop(_ context.Context) error {
	slog.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}

// ScheduleEvery runs task every interval and returns the job ID.
func (s *Scheduler) ScheduleEvery(name string, interval time.Duration, task func()) (string, error) {
	if interval <= 0 {
		return "", errors.New("interval must be positive")
	}
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create job %s: %w", name, err)
	}
	return job.ID().String(), nil
}

// ScheduleWorkspaceSweep removes abandoned workspaces older than maxAge every interval.
func (s *Scheduler) ScheduleWorkspaceSweep(m *workspace.Manager, interval, maxAge time.Duration) (string, error) {
	return s.ScheduleEvery("workspace-sweep", interval, func() { sweepWorkspaces(m, maxAge) })
}

func sweepWorkspaces(m *workspace.Manager, maxAge time.Duration) {
	removed, err := m.Sweep(maxAge)
	if err != nil {
		slog.Warn("Workspace sweep failed", logfields.Path(m.BaseDir()), logfields.Error(err))
		return
	}
	if removed > 0 {
		slog.Info("Removed stale workspaces", logfields.Path(m.BaseDir()), logfields.Count(removed))
	}
}
