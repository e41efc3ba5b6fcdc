package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const DefaultCleanupSchedule = "@every 15m"

// CleanupService sweeps expired conversations on a cron schedule, in a
// separate execution context from request handling.
type CleanupService struct {
	manager  *Manager
	schedule string
	logger   *zap.Logger
	cron     *cron.Cron
}

func NewCleanupService(manager *Manager, schedule string, logger *zap.Logger) *CleanupService {
	if schedule == "" {
		schedule = DefaultCleanupSchedule
	}
	return &CleanupService{
		manager:  manager,
		schedule: schedule,
		logger:   logger,
	}
}

// Start registers the sweep and begins the schedule.
func (s *CleanupService) Start() error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.schedule, s.sweep); err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", s.schedule, err)
	}
	s.cron.Start()

	s.logger.Info("Cleanup service started", zap.String("schedule", s.schedule))
	return nil
}

// Stop halts scheduling and waits for an in-flight sweep to finish.
func (s *CleanupService) Stop() {
	if s.cron == nil {
		return
	}
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(10 * time.Second):
		s.logger.Warn("Cleanup service stop timed out")
	}
	s.logger.Info("Cleanup service stopped")
}

func (s *CleanupService) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	removed, err := s.manager.CleanupExpired(ctx)
	if err != nil {
		s.logger.Error("Cleanup sweep failed",
			zap.Error(err),
			zap.Int("removed", removed))
	}
}
