package backup

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orienta/orienta/internal/models"
)

func TestNextRun(t *testing.T) {
	// Wednesday.
	now := time.Date(2026, 3, 18, 10, 30, 0, 0, time.UTC)
	cases := []struct {
		name string
		cfg  models.BackupConfig
		want time.Time
	}{
		{"daily later today", models.BackupConfig{Frequency: models.FrequencyDaily, ExecutionTime: "23:00:00", RetentionCount: 1}, time.Date(2026, 3, 18, 23, 0, 0, 0, time.UTC)},
		{"daily already passed", models.BackupConfig{Frequency: models.FrequencyDaily, ExecutionTime: "02:00", RetentionCount: 1}, time.Date(2026, 3, 19, 2, 0, 0, 0, time.UTC)},
		{"daily exactly now", models.BackupConfig{Frequency: models.FrequencyDaily, ExecutionTime: "10:30:00", RetentionCount: 1}, time.Date(2026, 3, 19, 10, 30, 0, 0, time.UTC)},
		{"weekly next monday", models.BackupConfig{Frequency: models.FrequencyWeekly, ExecutionTime: "02:00", RetentionCount: 1}, time.Date(2026, 3, 23, 2, 0, 0, 0, time.UTC)},
		{"monthly next first", models.BackupConfig{Frequency: models.FrequencyMonthly, ExecutionTime: "02:00", RetentionCount: 1}, time.Date(2026, 4, 1, 2, 0, 0, 0, time.UTC)},
		{"yearly next january", models.BackupConfig{Frequency: models.FrequencyYearly, ExecutionTime: "02:00", RetentionCount: 1}, time.Date(2027, 1, 1, 2, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NextRun(now, tc.cfg)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNextRunWeeklyOnMondayBeforeTime(t *testing.T) {
	monday := time.Date(2026, 3, 16, 1, 0, 0, 0, time.UTC)
	got, err := NextRun(monday, models.BackupConfig{Frequency: models.FrequencyWeekly, ExecutionTime: "02:00", RetentionCount: 1})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 16, 2, 0, 0, 0, time.UTC), got)
}

func TestNextRunMonthlyDecemberRollsYear(t *testing.T) {
	dec := time.Date(2026, 12, 5, 0, 0, 0, 0, time.UTC)
	got, err := NextRun(dec, models.BackupConfig{Frequency: models.FrequencyMonthly, ExecutionTime: "00:00", RetentionCount: 1})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), got)
}

func TestNextRunRejectsInvalidConfig(t *testing.T) {
	_, err := NextRun(time.Now(), models.BackupConfig{Frequency: models.FrequencyDaily, ExecutionTime: "2:5", RetentionCount: 1})
	assert.Error(t, err)
}

type countingJob struct {
	runs atomic.Int32
	done chan struct{}
	err  error
}

func (j *countingJob) Run(context.Context) (*models.BackupFile, error) {
	if j.runs.Add(1) == 1 {
		close(j.done)
	}
	if j.err != nil {
		return nil, j.err
	}
	return &models.BackupFile{ID: "b"}, nil
}

// shiftedClock returns a clock that reads 50ms before the next whole
// second after the real current time, and that second as HH:MM:SS.
func shiftedClock() (func() time.Time, string) {
	base := time.Now()
	target := base.Truncate(time.Second).Add(2 * time.Second)
	offset := target.Add(-50 * time.Millisecond).Sub(base)
	return func() time.Time { return time.Now().Add(offset) }, target.Format("15:04:05")
}

func TestSchedulerRunsWhenDueAndStops(t *testing.T) {
	now, at := shiftedClock()
	job := &countingJob{done: make(chan struct{})}
	cfg := models.BackupConfig{Frequency: models.FrequencyDaily, ExecutionTime: at, RetentionCount: 3}
	s := NewScheduler(job, func() (models.BackupConfig, error) { return cfg, nil }, nil)
	s.now = now

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx) }()

	select {
	case <-job.done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled backup did not run")
	}
	cancel()
	require.ErrorIs(t, <-errc, context.Canceled)
	assert.Equal(t, int32(1), job.runs.Load())
}

func TestSchedulerSurvivesJobErrorsAndReloads(t *testing.T) {
	now, at := shiftedClock()
	job := &countingJob{done: make(chan struct{}), err: errors.New("disk full")}
	var cfgCalls atomic.Int32
	s := NewScheduler(job, func() (models.BackupConfig, error) {
		cfgCalls.Add(1)
		return models.BackupConfig{Frequency: models.FrequencyDaily, ExecutionTime: at, RetentionCount: 1}, nil
	}, nil)
	s.now = now

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx) }()

	select {
	case <-job.done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled backup did not run")
	}
	before := cfgCalls.Load()
	s.Reload()
	require.Eventually(t, func() bool { return cfgCalls.Load() > before }, 2*time.Second, 10*time.Millisecond)
	cancel()
	require.ErrorIs(t, <-errc, context.Canceled)
}
