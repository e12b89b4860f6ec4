package planner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/rebalance/core/classify"
	"github.com/kilianp07/rebalance/core/logger"
	"github.com/kilianp07/rebalance/core/matching"
	"github.com/kilianp07/rebalance/core/model"
	"github.com/kilianp07/rebalance/core/routing"
)

// Planner wires the pipeline stages together. It keeps no state between
// cycles.
type Planner struct {
	feed       StationFeed
	graphs     GraphProvider
	routerOpts []routing.Option
	log        logger.Logger
	now        func() time.Time
}

// Option configures a Planner.
type Option func(*Planner)

// WithRouterOptions forwards options to the per-cycle router.
func WithRouterOptions(opts ...routing.Option) Option {
	return func(p *Planner) { p.routerOpts = append(p.routerOpts, opts...) }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Planner) { p.log = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Planner) { p.now = now }
}

// New creates a planner.
func New(feed StationFeed, graphs GraphProvider, opts ...Option) (*Planner, error) {
	if feed == nil {
		return nil, fmt.Errorf("planner: station feed is required")
	}
	if graphs == nil {
		return nil, fmt.Errorf("planner: graph provider is required")
	}
	p := &Planner{feed: feed, graphs: graphs, log: logger.NopLogger{}, now: time.Now}
	for _, o := range opts {
		o(p)
	}
	if p.log == nil {
		p.log = logger.NopLogger{}
	}
	return p, nil
}

// RunCycle executes one full pass. A missing snapshot or graph returns an
// error wrapping ErrSourceUnavailable and no plan. Routing failures never
// fail the cycle; they only remove the affected itinerary.
func (p *Planner) RunCycle(ctx context.Context) (*model.RebalancingPlan, Report, error) {
	start := p.now()
	rep := Report{CycleID: uuid.NewString(), StartedAt: start, Categories: map[model.Category]int{}}
	finish := func() { rep.Duration = p.now().Sub(start) }

	stations, err := p.feed.Fetch(ctx)
	if err != nil {
		finish()
		return nil, rep, fmt.Errorf("%w: fetch stations: %w", ErrSourceUnavailable, err)
	}
	if len(stations) == 0 {
		finish()
		return nil, rep, fmt.Errorf("%w: empty station snapshot", ErrSourceUnavailable)
	}

	annotated, err := classify.Annotate(stations)
	if err != nil {
		finish()
		return nil, rep, fmt.Errorf("classify: %w", err)
	}
	rep.Stations = len(annotated)
	for _, st := range annotated {
		rep.Categories[st.Category]++
	}

	parts := matching.Partition(annotated)
	m := matching.Match(parts.Surplus, parts.Deficit)
	rep.Surplus, rep.Deficit = len(parts.Surplus), len(parts.Deficit)
	rep.Pairs = len(m.Pairs)
	rep.UnmatchedDeficits, rep.UnusedSurplus = len(m.UnmatchedDeficits), len(m.UnusedSurplus)
	p.log.Debugw("matched stations", map[string]any{
		"cycle":     rep.CycleID,
		"sources":   rep.Surplus,
		"targets":   rep.Deficit,
		"pairs":     rep.Pairs,
		"unmatched": rep.UnmatchedDeficits,
	})

	g, err := p.graphs.Load(ctx)
	if err != nil {
		finish()
		return nil, rep, fmt.Errorf("%w: load graphs: %w", ErrSourceUnavailable, err)
	}
	router, err := routing.NewRouter(g.Cycle, g.Road, p.routerOpts...)
	if err != nil {
		finish()
		return nil, rep, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}

	results := router.RouteAll(m.Pairs)
	for _, r := range results {
		if r.Fallback() {
			rep.Fallbacks++
		}
		if r.Bike == nil {
			rep.BikeFailures++
		}
		if r.Vehicle == nil {
			rep.VehicleFailures++
		}
	}
	plan := Aggregate(annotated, results)
	rep.BikeItineraries, rep.VehicleItineraries = len(plan.Bike), len(plan.Vehicle)
	finish()
	return plan, rep, nil
}
