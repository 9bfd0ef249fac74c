// Package scheduler runs periodic jobs on cron schedules. A run that is still
// going when its next tick fires is skipped, and a panicking job is logged
// without stopping the others.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	appctx "serviceshop/internal/core/context"
	"serviceshop/internal/core/id"
	"serviceshop/pkg/logger"
)

// Job is one named unit of periodic work.
type Job struct {
	Name     string
	Schedule string // standard 5-field cron expression or a descriptor such as "@every 1h"
	Timeout  time.Duration
	Run      func(ctx context.Context) error
}

type Scheduler struct {
	cron *cron.Cron
	log  *logger.Logger
	base context.Context
}

// New returns a stopped scheduler. Jobs run with contexts derived from base,
// so cancelling base aborts running jobs.
func New(base context.Context, log *logger.Logger) *Scheduler {
	l := cronLogger{log.WithComponent("scheduler")}
	return &Scheduler{
		cron: cron.New(cron.WithLogger(l), cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l))),
		log:  l.log,
		base: base,
	}
}

// Add registers job. It fails on an invalid schedule.
func (s *Scheduler) Add(job Job) error {
	if _, err := s.cron.AddFunc(job.Schedule, func() { s.run(job) }); err != nil {
		return fmt.Errorf("schedule %s: %w", job.Name, err)
	}
	s.log.Infow("job scheduled", "job", job.Name, "schedule", job.Schedule)
	return nil
}

func (s *Scheduler) run(job Job) {
	ctx := appctx.WithRequest(s.base, &appctx.RequestMeta{RequestID: id.New().String()})
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}
	ctx = logger.WithLogger(ctx, s.log.With("job", job.Name))

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		logger.Error(ctx, "job failed", "error", err, "duration", time.Since(start))
		return
	}
	logger.Debug(ctx, "job finished", "duration", time.Since(start))
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop prevents new runs and returns a context that is done once running
// jobs have returned.
func (s *Scheduler) Stop() context.Context { return s.cron.Stop() }

// cronLogger routes cron's own messages to zap.
type cronLogger struct{ log *logger.Logger }

func (l cronLogger) Info(msg string, kv ...any) { l.log.Debugw(msg, kv...) }

func (l cronLogger) Error(err error, msg string, kv ...any) {
	l.log.Errorw(msg, append(kv, "error", err)...)
}
