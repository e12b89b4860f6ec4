package planner

import (
	"context"
	"errors"

	"github.com/kilianp07/rebalance/core/factory"
	"github.com/kilianp07/rebalance/core/model"
	"github.com/kilianp07/rebalance/core/routing"
)

// ErrSourceUnavailable marks a cycle that could not start because the station
// snapshot or the graphs were missing. The cycle is skipped, not failed.
var ErrSourceUnavailable = errors.New("source unavailable")

// StationFeed returns the current station snapshot.
type StationFeed interface {
	Fetch(ctx context.Context) ([]model.Station, error)
}

// Graphs holds the two routable networks used during a cycle.
type Graphs struct {
	Cycle routing.Graph
	Road  routing.Graph
}

// GraphProvider loads the graphs. Implementations may cache them across
// cycles as long as the graphs are never mutated.
type GraphProvider interface {
	Load(ctx context.Context) (Graphs, error)
}

var (
	feedRegistry  = factory.NewRegistry[StationFeed]()
	graphRegistry = factory.NewRegistry[GraphProvider]()
)

// RegisterFeed adds a station feed factory identified by name.
func RegisterFeed(name string, f factory.Factory[StationFeed]) error {
	return feedRegistry.Register(name, f)
}

// NewFeed creates the configured station feed.
func NewFeed(cfg factory.ModuleConfig) (StationFeed, error) {
	return feedRegistry.Create(cfg)
}

// RegisterGraphProvider adds a graph provider factory identified by name.
func RegisterGraphProvider(name string, f factory.Factory[GraphProvider]) error {
	return graphRegistry.Register(name, f)
}

// NewGraphProvider creates the configured graph provider.
func NewGraphProvider(cfg factory.ModuleConfig) (GraphProvider, error) {
	return graphRegistry.Create(cfg)
}
