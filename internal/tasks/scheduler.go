package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/weekcopy/internal/shared"
	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"
)

// ScheduledJob is the work the [Scheduler] fires. [Copier] satisfies it.
type ScheduledJob interface {
	RunScheduled(ctx context.Context) (*CopyResult, error)
}

// ScheduleOptions configures a [Scheduler].
type ScheduleOptions struct {
	Spec     string         // Standard five-field cron expression
	Location *time.Location // Time zone the expression is evaluated in; UTC when nil
	Timeout  time.Duration  // Per-run deadline; zero leaves runs unbounded
}

// Scheduler fires a [ScheduledJob] on a cron schedule.
//
// Overlapping ticks are skipped while a run is still in flight, and panics are recovered.
// Run errors are logged and never stop the schedule.
type Scheduler struct {
	job      ScheduledJob
	opts     ScheduleOptions
	cron     *cron.Cron
	schedule cron.Schedule
	entry    cron.EntryID
	logger   *log.Logger
	clock    clockwork.Clock

	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewScheduler parses opts.Spec and registers job.
func NewScheduler(job ScheduledJob, opts ScheduleOptions, logger *log.Logger) (*Scheduler, error) {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	schedule, err := cron.ParseStandard(opts.Spec)
	if err != nil {
		return nil, fmt.Errorf("%w: cron expression %q: %v", shared.ErrInvalidConfig, opts.Spec, err)
	}

	cl := cronLogger{logger: logger}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		job:      job,
		opts:     opts,
		schedule: schedule,
		logger:   logger,
		clock:    clockwork.NewRealClock(),
		ctx:      ctx,
		cancel:   cancel,
		cron: cron.New(
			cron.WithLocation(opts.Location),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}

	s.entry = s.cron.Schedule(schedule, cron.FuncJob(s.fire))
	return s, nil
}

// Start begins firing the job in the background. A stopped scheduler can be started again.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}

	if s.ctx.Err() != nil {
		s.ctx, s.cancel = context.WithCancel(context.Background())
	}
	s.cron.Start()
	s.running = true
	s.logger.Info("scheduler started", "cron", s.opts.Spec, "timezone", s.opts.Location, "next", s.Next())
	return nil
}

// Stop cancels any in-flight run and returns a context that is done once it has returned.
func (s *Scheduler) Stop() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancel()
	if !s.running {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}

	s.running = false
	s.logger.Info("stopping scheduler")
	return s.cron.Stop()
}

// Serve starts the scheduler and blocks until ctx is done, then waits for the current run to return.
func (s *Scheduler) Serve(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	<-s.Stop().Done()
	s.logger.Info("scheduler stopped")
	return nil
}

// Next returns the next activation time after now.
func (s *Scheduler) Next() time.Time {
	return s.schedule.Next(s.clock.Now().In(s.opts.Location))
}

// fire runs the job once under the per-run timeout.
func (s *Scheduler) fire() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	start := s.clock.Now()
	s.logger.Info("scheduled copy starting")

	result, err := s.job.RunScheduled(ctx)
	if err != nil {
		s.logger.Error("scheduled copy failed", "error", err, "duration", s.clock.Since(start))
		return
	}

	if result.Skipped {
		s.logger.Info("scheduled copy skipped", "reason", "empty source", "next", s.Next())
		return
	}
	s.logger.Info("scheduled copy finished",
		"playlist", result.TargetName,
		"tracks", result.TrackCount,
		"duration", s.clock.Since(start),
		"next", s.Next(),
	)
}

// cronLogger adapts [log.Logger] to [cron.Logger].
//
// cron reports every wake-up at info level; those go to debug except for skipped runs.
type cronLogger struct {
	logger *log.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	if msg == "skip" {
		c.logger.Warn("previous copy still running, skipping tick", keysAndValues...)
		return
	}
	c.logger.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
