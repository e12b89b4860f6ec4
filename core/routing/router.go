// Package routing computes bike and vehicle itineraries for matched station
// pairs on two graphs: the cycle network, preferred for bikes, and the road
// network, used for vehicles and as the bike fallback.
package routing

import (
	"errors"

	"github.com/sourcegraph/conc/iter"

	"github.com/kilianp07/rebalance/core/logger"
	"github.com/kilianp07/rebalance/core/matching"
	"github.com/kilianp07/rebalance/core/model"
)

// Router routes matched pairs. It holds no mutable state and is safe for
// concurrent use as long as the graphs are.
type Router struct {
	cycle   Graph
	road    Graph
	policy  FallbackPolicy
	workers int
	log     logger.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithFallbackPolicy sets the bike fallback policy.
func WithFallbackPolicy(p FallbackPolicy) Option {
	return func(r *Router) { r.policy = p }
}

// WithWorkers bounds the number of pairs routed concurrently by RouteAll.
func WithWorkers(n int) Option {
	return func(r *Router) { r.workers = n }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Router) { r.log = l }
}

// NewRouter creates a Router over the cycle and road graphs.
func NewRouter(cycle, road Graph, opts ...Option) (*Router, error) {
	if cycle == nil || road == nil {
		return nil, errors.New("routing: cycle and road graphs are required")
	}
	r := &Router{cycle: cycle, road: road, policy: FallbackAny, workers: 1, log: logger.NopLogger{}}
	for _, o := range opts {
		o(r)
	}
	if r.workers < 1 {
		r.workers = 1
	}
	if r.log == nil {
		r.log = logger.NopLogger{}
	}
	return r, nil
}

// PairResult collects both legs computed for one pair.
type PairResult struct {
	Pair matching.Pair

	// Bike is nil when neither graph produced a bike path.
	Bike *model.Itinerary
	// BikeAttempts lists the attempts in order: cycle graph, then road graph
	// when the fallback ran.
	BikeAttempts []Attempt

	// Vehicle is nil when the road graph produced no path.
	Vehicle        *model.Itinerary
	VehicleAttempt Attempt
}

// BikeErr returns the error of the last bike attempt, or nil on success.
func (r PairResult) BikeErr() error {
	if r.Bike != nil || len(r.BikeAttempts) == 0 {
		return nil
	}
	return r.BikeAttempts[len(r.BikeAttempts)-1].Err
}

// VehicleErr returns the vehicle attempt error, or nil on success.
func (r PairResult) VehicleErr() error {
	if r.Vehicle != nil {
		return nil
	}
	return r.VehicleAttempt.Err
}

// Fallback reports whether the bike leg was attempted on the road graph.
func (r PairResult) Fallback() bool { return len(r.BikeAttempts) > 1 }

// RouteBike tries the cycle graph, then the road graph when the policy allows.
// The itinerary is tagged BIKE whichever graph produced it.
func (r *Router) RouteBike(p matching.Pair) (*model.Itinerary, []Attempt) {
	primary := Route(r.cycle, model.GraphCycle, p.Source.Position, p.Target.Position)
	if primary.OK() {
		return newItinerary(p, model.ModeBike, primary), []Attempt{primary}
	}
	if !r.policy.ShouldFallback(primary.Err) {
		r.log.Warnf("no bike itinerary between %s and %s: %v", p.Source.Name, p.Target.Name, primary.Err)
		return nil, []Attempt{primary}
	}
	r.log.Infof("falling back to road graph for bike itinerary between %s and %s: %v",
		p.Source.Name, p.Target.Name, primary.Err)
	fallback := Route(r.road, model.GraphRoad, p.Source.Position, p.Target.Position)
	if !fallback.OK() {
		r.log.Warnf("no bike itinerary between %s and %s: %v", p.Source.Name, p.Target.Name, fallback.Err)
		return nil, []Attempt{primary, fallback}
	}
	return newItinerary(p, model.ModeBike, fallback), []Attempt{primary, fallback}
}

// RouteVehicle computes the road-graph leg. It is never retried elsewhere.
func (r *Router) RouteVehicle(p matching.Pair) (*model.Itinerary, Attempt) {
	a := Route(r.road, model.GraphRoad, p.Source.Position, p.Target.Position)
	if !a.OK() {
		r.log.Warnf("no vehicle itinerary between %s and %s: %v", p.Source.Name, p.Target.Name, a.Err)
		return nil, a
	}
	return newItinerary(p, model.ModeVehicle, a), a
}

// RoutePair computes both legs independently.
func (r *Router) RoutePair(p matching.Pair) PairResult {
	res := PairResult{Pair: p}
	res.Bike, res.BikeAttempts = r.RouteBike(p)
	res.Vehicle, res.VehicleAttempt = r.RouteVehicle(p)
	return res
}

// RouteAll routes every pair and returns the results in pair order. Up to the
// configured number of workers run at once.
func (r *Router) RouteAll(pairs []matching.Pair) []PairResult {
	if r.workers == 1 || len(pairs) < 2 {
		out := make([]PairResult, len(pairs))
		for i, p := range pairs {
			out[i] = r.RoutePair(p)
		}
		return out
	}
	mapper := iter.Mapper[matching.Pair, PairResult]{MaxGoroutines: r.workers}
	return mapper.Map(pairs, func(p *matching.Pair) PairResult {
		return r.RoutePair(*p)
	})
}

func newItinerary(p matching.Pair, mode model.Mode, a Attempt) *model.Itinerary {
	return &model.Itinerary{
		Source:           p.Source.Name,
		Destination:      p.Target.Name,
		SourceColor:      p.Source.Color,
		DestinationColor: p.Target.Color,
		SourceIcon:       p.Source.Icon,
		DestinationIcon:  p.Target.Icon,
		Path:             a.Path,
		Mode:             mode,
		Graph:            a.Graph,
		Length:           a.Length,
	}
}
