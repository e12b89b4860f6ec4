package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/rebalance/core/logger"
	"github.com/kilianp07/rebalance/core/model"
	"github.com/kilianp07/rebalance/core/monitoring"
	"github.com/kilianp07/rebalance/core/output"
	"github.com/kilianp07/rebalance/core/planner"
	"github.com/kilianp07/rebalance/internal/eventbus"
)

// CycleRunner runs one planning cycle. *planner.Planner implements it.
type CycleRunner interface {
	RunCycle(ctx context.Context) (*model.RebalancingPlan, planner.Report, error)
}

// Loop drives the cycle runner.
type Loop struct {
	runner   CycleRunner
	writer   output.Writer
	bus      *eventbus.TypedBus[planner.CycleEvent]
	interval time.Duration
	log      logger.Logger
	monitor  monitoring.Monitor
	now      func() time.Time
}

// Option configures a Loop.
type Option func(*Loop)

// WithWriter sets where completed plans are published.
func WithWriter(w output.Writer) Option {
	return func(l *Loop) { l.writer = w }
}

// WithEventBus publishes one CycleEvent per cycle on bus.
func WithEventBus(bus *eventbus.TypedBus[planner.CycleEvent]) Option {
	return func(l *Loop) { l.bus = bus }
}

// WithInterval overrides the configured interval.
func WithInterval(d time.Duration) Option {
	return func(l *Loop) { l.interval = d }
}

// WithLogger sets the logger.
func WithLogger(lg logger.Logger) Option {
	return func(l *Loop) { l.log = lg }
}

// WithMonitor reports failed cycles and panics to m.
func WithMonitor(m monitoring.Monitor) Option {
	return func(l *Loop) { l.monitor = m }
}

// New creates a loop. cfg is defaulted and validated.
func New(runner CycleRunner, cfg Config, opts ...Option) (*Loop, error) {
	if runner == nil {
		return nil, fmt.Errorf("scheduler: cycle runner is required")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	l := &Loop{
		runner:   runner,
		writer:   output.NopWriter{},
		interval: cfg.Interval(),
		log:      logger.NopLogger{},
		monitor:  monitoring.NopMonitor{},
		now:      time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	if l.interval <= 0 {
		return nil, fmt.Errorf("scheduler: interval must be positive")
	}
	if l.writer == nil {
		l.writer = output.NopWriter{}
	}
	if l.log == nil {
		l.log = logger.NopLogger{}
	}
	if l.monitor == nil {
		l.monitor = monitoring.NopMonitor{}
	}
	return l, nil
}

// Run executes a cycle immediately and then waits one interval after each
// cycle ends before starting the next, until ctx is cancelled. It returns
// nil on cancellation.
func (l *Loop) Run(ctx context.Context) error {
	defer l.monitor.Flush(2 * time.Second)
	defer l.monitor.Recover()
	l.log.Infof("rebalancing loop started, pause %s", l.interval)
	timer := time.NewTimer(l.interval)
	defer timer.Stop()
	for {
		if ctx.Err() != nil {
			break
		}
		_, _, _ = l.RunOnce(ctx)
		timer.Reset(l.interval)
		select {
		case <-ctx.Done():
		case <-timer.C:
		}
	}
	l.log.Infof("rebalancing loop stopped")
	return nil
}

// RunOnce runs a single cycle detached from ctx cancellation, logs its
// status line, publishes its event and writes the plan when the cycle
// completed. The returned error is the cycle error or, for a completed
// cycle, the write error.
func (l *Loop) RunOnce(ctx context.Context) (*model.RebalancingPlan, planner.Report, error) {
	cycleCtx := context.WithoutCancel(ctx)
	plan, rep, err := l.runner.RunCycle(cycleCtx)
	if l.bus != nil {
		l.bus.Publish(planner.NewCycleEvent(rep, plan, err, l.now()))
	}
	switch planner.OutcomeOf(err) {
	case planner.OutcomeSkipped:
		l.log.Warnf("cycle %s skipped: %v", rep.CycleID, err)
		return nil, rep, err
	case planner.OutcomeFailed:
		l.log.Errorf("cycle %s failed: %v", rep.CycleID, err)
		l.monitor.CaptureException(err, map[string]string{"cycle_id": rep.CycleID, "stage": "plan"})
		return nil, rep, err
	}
	l.log.Infof("cycle %s ok: %s", rep.CycleID, rep)
	if werr := l.writer.Write(cycleCtx, plan); werr != nil {
		l.log.Errorf("cycle %s: write plan: %v", rep.CycleID, werr)
		l.monitor.CaptureException(werr, map[string]string{"cycle_id": rep.CycleID, "stage": "write"})
		return plan, rep, fmt.Errorf("write plan: %w", werr)
	}
	return plan, rep, nil
}
