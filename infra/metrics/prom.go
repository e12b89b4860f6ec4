package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/rebalance/core/metrics"
)

// PromSink exposes cycle results as Prometheus metrics.
type PromSink struct {
	cycles    *prometheus.CounterVec
	duration  prometheus.Histogram
	stations  *prometheus.GaugeVec
	pairs     prometheus.Gauge
	routes    *prometheus.GaugeVec
	fallbacks prometheus.Counter
	failures  *prometheus.CounterVec
}

// NewPromSink registers the metrics on the default Prometheus registerer.
// The HTTP endpoint is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	var err error
	s := &PromSink{}
	if s.cycles, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rebalance_cycles_total",
		Help: "Planning cycles by outcome",
	}, []string{"outcome"})); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "rebalance_cycle_duration_seconds",
		Help:    "Wall time of a planning cycle",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})); err != nil {
		return nil, err
	}
	if s.stations, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rebalance_stations",
		Help: "Stations per category in the last completed cycle",
	}, []string{"category"})); err != nil {
		return nil, err
	}
	if s.pairs, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rebalance_pairs",
		Help: "Matched source/target pairs in the last completed cycle",
	})); err != nil {
		return nil, err
	}
	if s.routes, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rebalance_itineraries",
		Help: "Itineraries per mode in the last completed cycle",
	}, []string{"mode"})); err != nil {
		return nil, err
	}
	if s.fallbacks, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rebalance_bike_fallbacks_total",
		Help: "Bike itineraries retried on the road graph",
	})); err != nil {
		return nil, err
	}
	if s.failures, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rebalance_routing_failures_total",
		Help: "Legs for which no itinerary could be computed",
	}, []string{"mode"})); err != nil {
		return nil, err
	}
	return s, nil
}

// register returns the already registered collector when one with the same
// descriptor exists, so several sinks can share the default registry.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordCycle updates counters for every cycle and gauges for completed ones.
func (s *PromSink) RecordCycle(res coremetrics.CycleResult) error {
	s.cycles.WithLabelValues(res.Outcome).Inc()
	s.duration.Observe(res.Duration.Seconds())
	if res.Outcome != "ok" {
		return nil
	}
	s.stations.Reset()
	for cat, n := range res.Categories {
		s.stations.WithLabelValues(cat).Set(float64(n))
	}
	s.pairs.Set(float64(res.Pairs))
	s.routes.WithLabelValues("velo").Set(float64(res.BikeItineraries))
	s.routes.WithLabelValues("camion").Set(float64(res.VehicleItineraries))
	s.fallbacks.Add(float64(res.Fallbacks))
	s.failures.WithLabelValues("velo").Add(float64(res.BikeFailures))
	s.failures.WithLabelValues("camion").Add(float64(res.VehicleFailures))
	return nil
}
