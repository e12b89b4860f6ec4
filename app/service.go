package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"

	"github.com/kilianp07/rebalance/api/plan"
	_ "github.com/kilianp07/rebalance/app/plugins"
	"github.com/kilianp07/rebalance/config"
	coremetrics "github.com/kilianp07/rebalance/core/metrics"
	"github.com/kilianp07/rebalance/core/model"
	"github.com/kilianp07/rebalance/core/output"
	"github.com/kilianp07/rebalance/core/planner"
	"github.com/kilianp07/rebalance/core/scheduler"
	"github.com/kilianp07/rebalance/infra/logger"
	"github.com/kilianp07/rebalance/infra/metrics"
	"github.com/kilianp07/rebalance/infra/monitoring"
	"github.com/kilianp07/rebalance/internal/eventbus"
)

// Service wires the planner, the scheduler loop, the outputs and the
// metrics sinks built from the configuration.
type Service struct {
	Planner *planner.Planner
	Loop    *scheduler.Loop
	Plans   *plan.Store

	writer   output.Writer
	sink     coremetrics.MetricsSink
	bus      *eventbus.TypedBus[planner.CycleEvent]
	httpAddr string
	log      logger.Logger
	logFile  io.Closer

	collectOnce sync.Once
	collected   <-chan struct{}
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	if err := logger.SetLevel(cfg.Logging.Level); err != nil {
		return nil, err
	}
	var logFile io.WriteCloser
	if cfg.Logging.File != "" {
		f, err := logger.NewRotatingFile(logger.FileConfig{
			Path:       cfg.Logging.File,
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAgeDays: cfg.Logging.MaxAgeDays,
		})
		if err != nil {
			return nil, err
		}
		logger.SetOutput(io.MultiWriter(os.Stdout, f))
		logFile = f
	}
	svc, err := build(cfg)
	if err != nil {
		if logFile != nil {
			logger.SetOutput(nil)
			_ = logFile.Close()
		}
		return nil, err
	}
	if logFile != nil {
		svc.logFile = logFile
	}
	return svc, nil
}

func build(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	feed, err := planner.NewFeed(cfg.Feed)
	if err != nil {
		return nil, fmt.Errorf("feed: %w", err)
	}
	graphs, err := planner.NewGraphProvider(cfg.Graphs)
	if err != nil {
		return nil, fmt.Errorf("graphs: %w", err)
	}
	p, err := planner.New(feed, graphs,
		planner.WithRouterOptions(cfg.Routing.Options()...),
		planner.WithLogger(logger.New("planner")),
	)
	if err != nil {
		return nil, fmt.Errorf("planner: %w", err)
	}

	configured, err := output.NewWriter(cfg.Outputs)
	if err != nil {
		return nil, fmt.Errorf("outputs: %w", err)
	}
	store := plan.NewStore()
	writer := output.NewMultiWriter(store, configured)

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("metrics: %w", err)
	}

	monitor, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		closeQuietly(writer, sink)
		return nil, fmt.Errorf("sentry: %w", err)
	}

	bus := eventbus.NewTyped[planner.CycleEvent]()
	loop, err := scheduler.New(p, cfg.Scheduler,
		scheduler.WithWriter(writer),
		scheduler.WithEventBus(bus),
		scheduler.WithLogger(logger.New("scheduler")),
		scheduler.WithMonitor(monitor),
	)
	if err != nil {
		closeQuietly(writer, sink)
		return nil, fmt.Errorf("scheduler: %w", err)
	}

	return &Service{
		Planner:  p,
		Loop:     loop,
		Plans:    store,
		writer:   writer,
		sink:     sink,
		bus:      bus,
		httpAddr: cfg.HTTP.Address,
		log:      logg,
	}, nil
}

// Run starts the metrics collector and the HTTP endpoint, then runs the
// scheduler loop until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.startCollector(ctx)
	if s.httpAddr != "" {
		go func() {
			extra := map[string]http.Handler{"/api/plan": plan.NewHandler(s.Plans)}
			if err := metrics.StartPromServer(ctx, s.httpAddr, extra); err != nil {
				s.log.Errorf("http server: %v", err)
			}
		}()
	}
	return s.Loop.Run(ctx)
}

// RunOnce executes a single cycle through the scheduler so the outputs and
// metrics see it like any other cycle.
func (s *Service) RunOnce(ctx context.Context) (*model.RebalancingPlan, planner.Report, error) {
	s.startCollector(ctx)
	return s.Loop.RunOnce(ctx)
}

func (s *Service) startCollector(ctx context.Context) {
	s.collectOnce.Do(func() {
		s.collected = metrics.StartEventCollector(ctx, s.bus, s.sink)
	})
}

// Close releases resources held by the service. Events already published
// are recorded before the sinks close.
func (s *Service) Close() error {
	s.bus.Close()
	if s.collected != nil {
		<-s.collected
	}
	var errs []error
	if c, ok := s.writer.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	if c, ok := s.sink.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	if s.logFile != nil {
		logger.SetOutput(nil)
		errs = append(errs, s.logFile.Close())
	}
	return errors.Join(errs...)
}

func closeQuietly(resources ...any) {
	for _, r := range resources {
		if c, ok := r.(io.Closer); ok {
			_ = c.Close()
		}
	}
}
