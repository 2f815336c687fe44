// Package scheduler runs the background monitor: a periodic risk
// assessment of a configured station set. Each tick keeps the upstream
// cache warm and, when publishing is enabled, feeds the assessment topic.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/skybrief/avwx-risk/internal/risk"
)

const tickTimeout = 90 * time.Second

// Scheduler periodically re-assesses the monitored stations.
type Scheduler struct {
	scheduler *gocron.Scheduler
	assessor  *risk.Assessor
	stations  []string
	interval  time.Duration
	logger    *slog.Logger
}

// New creates a monitor scheduler for the given station set.
func New(stations []string, interval time.Duration, assessor *risk.Assessor, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		assessor:  assessor,
		stations:  stations,
		interval:  interval,
		logger:    logger,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
// The first assessment runs immediately.
func (s *Scheduler) Start() error {
	if len(s.stations) == 0 {
		s.logger.Info("monitor disabled: no stations configured")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).StartImmediately().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), tickTimeout)
		defer cancel()

		assessment := s.assessor.ScoreRisk(ctx, s.stations)
		if assessment.Error != "" {
			s.logger.Warn("monitor assessment degraded",
				"stations", s.stations, "error", assessment.Error)
			return
		}
		s.logger.Debug("monitor assessment complete",
			"stations", s.stations,
			"overall_score", assessment.OverallScore,
			"band", assessment.Band.Name)
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("monitor started",
		"stations", s.stations, "interval", s.interval)
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
