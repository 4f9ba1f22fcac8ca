// README: Cron scheduler for the background report and reminder jobs.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type Scheduler struct {
	cron *cron.Cron
	log  *zap.Logger
	ctx  context.Context
}

// NewScheduler builds a scheduler evaluating specs in loc. Jobs receive ctx,
// which should be the process context so they stop with it.
func NewScheduler(ctx context.Context, loc *time.Location, log *zap.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = zap.NewNop()
	}
	cl := cronLogger{log.Sugar()}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl)),
		),
		log: log,
		ctx: ctx,
	}
}

// Add registers job under a standard five-field cron spec.
func (s *Scheduler) Add(spec, name string, job func(ctx context.Context)) error {
	_, err := s.cron.AddFunc(spec, func() {
		start := time.Now()
		s.log.Debug("job start", zap.String("job", name))
		job(s.ctx)
		s.log.Debug("job done", zap.String("job", name), zap.Duration("took", time.Since(start)))
	})
	if err != nil {
		return fmt.Errorf("schedule %s %q: %w", name, spec, err)
	}
	s.log.Info("job scheduled", zap.String("job", name), zap.String("spec", spec))
	return nil
}

// Run starts the scheduler and blocks until ctx is done and running jobs finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	return nil
}

type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
