package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Cleaner prunes persisted messages older than the retention window.
type Cleaner interface {
	CleanupOldMessages(ctx context.Context, retentionDays int) error
}

// Scheduler periodically runs message retention cleanup.
type Scheduler struct {
	cleaner       Cleaner
	retentionDays int
	interval      time.Duration
	logger        *logrus.Logger
	stop          chan struct{}
}

func NewScheduler(cleaner Cleaner, retentionDays, intervalHours int, logger *logrus.Logger) *Scheduler {
	if intervalHours <= 0 {
		intervalHours = 24
	}
	return &Scheduler{
		cleaner:       cleaner,
		retentionDays: retentionDays,
		interval:      time.Duration(intervalHours) * time.Hour,
		logger:        logger,
		stop:          make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runCleanup(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			s.runCleanup(ctx)
		}
	}
}

func (s *Scheduler) Stop() {
	close(s.stop)
}

func (s *Scheduler) runCleanup(ctx context.Context) {
	if err := s.cleaner.CleanupOldMessages(ctx, s.retentionDays); err != nil {
		s.logger.WithError(err).Error("Message retention cleanup failed")
		return
	}
	s.logger.WithField("retention_days", s.retentionDays).Debug("Message retention cleanup completed")
}
