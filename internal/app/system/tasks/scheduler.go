// internal/app/system/tasks/scheduler.go
package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is a named unit of periodic work.
type Job struct {
	Name     string
	Schedule string        // cron spec or descriptor, e.g. "@every 15m"
	Timeout  time.Duration // per run; default 1m
	Run      func(ctx context.Context) error
}

// Scheduler runs Jobs on their schedules. Runs of the same job never
// overlap; a run still going when the next is due is skipped.
type Scheduler struct {
	cron *cron.Cron
	log  *zap.Logger
}

// NewScheduler returns a stopped scheduler.
func NewScheduler(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(cron.Recover(cronLogger{logger}))),
		log:  logger,
	}
}

// Add registers job. It fails on an invalid schedule.
func (s *Scheduler) Add(job Job) error {
	timeout := job.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	run := cron.NewChain(cron.SkipIfStillRunning(cronLogger{s.log})).Then(cron.FuncJob(func() {
		s.runOnce(job, timeout)
	}))
	if _, err := s.cron.AddJob(job.Schedule, run); err != nil {
		return fmt.Errorf("schedule %s: %w", job.Name, err)
	}
	s.log.Info("task scheduled",
		zap.String("task", job.Name),
		zap.String("schedule", job.Schedule))
	return nil
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs or ctx, whichever
// comes first.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("tasks still running at shutdown")
	}
}

// RunNow executes job synchronously, outside the schedule.
func (s *Scheduler) RunNow(job Job) {
	timeout := job.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	s.runOnce(job, timeout)
}

func (s *Scheduler) runOnce(job Job, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		s.log.Error("task failed",
			zap.String("task", job.Name),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return
	}
	s.log.Debug("task finished",
		zap.String("task", job.Name),
		zap.Duration("elapsed", time.Since(start)))
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	log *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
