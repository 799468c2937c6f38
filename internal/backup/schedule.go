package backup

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/orienta/orienta/internal/models"
	"github.com/orienta/orienta/internal/validation"
)

// NextRun returns the first scheduled instant strictly after now, in now's
// location. Weekly runs fall on Monday, monthly on the 1st, yearly on
// January 1st.
func NextRun(now time.Time, cfg models.BackupConfig) (time.Time, error) {
	cfg, err := validation.BackupConfig(cfg)
	if err != nil {
		return time.Time{}, err
	}
	var h, m, s int
	if _, err := fmt.Sscanf(cfg.ExecutionTime, "%d:%d:%d", &h, &m, &s); err != nil {
		return time.Time{}, fmt.Errorf("parse execution time: %w", err)
	}
	loc := now.Location()
	y, mo, d := now.Date()
	at := func(y int, mo time.Month, d int) time.Time {
		return time.Date(y, mo, d, h, m, s, 0, loc)
	}

	switch cfg.Frequency {
	case models.FrequencyDaily:
		next := at(y, mo, d)
		if !next.After(now) {
			next = at(y, mo, d+1)
		}
		return next, nil
	case models.FrequencyWeekly:
		offset := (int(time.Monday) - int(now.Weekday()) + 7) % 7
		next := at(y, mo, d+offset)
		if !next.After(now) {
			next = at(y, mo, d+offset+7)
		}
		return next, nil
	case models.FrequencyMonthly:
		next := at(y, mo, 1)
		if !next.After(now) {
			next = at(y, mo+1, 1)
		}
		return next, nil
	default:
		next := at(y, time.January, 1)
		if !next.After(now) {
			next = at(y+1, time.January, 1)
		}
		return next, nil
	}
}

// Job is what the scheduler runs at each scheduled instant.
type Job interface {
	Run(ctx context.Context) (*models.BackupFile, error)
}

// Scheduler runs Job on the schedule returned by its config source. It
// re-reads the config at least every recheck interval and on Reload.
type Scheduler struct {
	job     Job
	config  func() (models.BackupConfig, error)
	logger  *zap.Logger
	now     func() time.Time
	recheck time.Duration
	reload  chan struct{}
}

func NewScheduler(job Job, config func() (models.BackupConfig, error), logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		job:     job,
		config:  config,
		logger:  logger,
		now:     time.Now,
		recheck: time.Minute,
		reload:  make(chan struct{}, 1),
	}
}

// Reload makes a running scheduler pick up a new config immediately.
func (s *Scheduler) Reload() {
	select {
	case s.reload <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is done. Failed backups are logged and the
// schedule continues.
func (s *Scheduler) Run(ctx context.Context) error {
	var last time.Time
	for {
		cfg, err := s.config()
		if err != nil {
			s.logger.Warn("backup config unavailable, using default", zap.Error(err))
			cfg = models.DefaultBackupConfig()
		}
		now := s.now()
		next, err := NextRun(now, cfg)
		if err != nil {
			s.logger.Warn("invalid backup config, using default", zap.Error(err))
			next, _ = NextRun(now, models.DefaultBackupConfig())
		}
		wait := next.Sub(now)
		due := true
		if wait > s.recheck {
			wait = s.recheck
			due = false
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-s.reload:
			timer.Stop()
			continue
		case <-timer.C:
		}
		if !due || next.Equal(last) {
			continue
		}
		last = next
		f, err := s.job.Run(ctx)
		if err != nil {
			s.logger.Error("scheduled backup failed", zap.Error(err))
			continue
		}
		s.logger.Info("scheduled backup done", zap.String("id", f.ID), zap.String("frequency", string(cfg.Frequency)))
	}
}
