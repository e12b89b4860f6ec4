package routing

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/rebalance/core/matching"
	"github.com/kilianp07/rebalance/core/model"
)

// mockGraph resolves positions to nodes by exact match and returns canned paths.
type mockGraph struct {
	nodes   map[model.Position]NodeID
	paths   map[[2]NodeID][]model.Coordinate
	pathErr error
	calls   atomic.Int32
}

func newMockGraph() *mockGraph {
	return &mockGraph{nodes: map[model.Position]NodeID{}, paths: map[[2]NodeID][]model.Coordinate{}}
}

func (g *mockGraph) node(pos model.Position, id NodeID) *mockGraph {
	g.nodes[pos] = id
	return g
}

func (g *mockGraph) path(from, to NodeID, coords ...model.Coordinate) *mockGraph {
	g.paths[[2]NodeID{from, to}] = coords
	return g
}

func (g *mockGraph) NearestNode(lat, lng float64) (NodeID, error) {
	id, ok := g.nodes[model.Position{Lat: lat, Lng: lng}]
	if !ok {
		return 0, ErrNoProjection
	}
	return id, nil
}

func (g *mockGraph) ShortestPath(from, to NodeID) ([]model.Coordinate, float64, error) {
	g.calls.Add(1)
	if g.pathErr != nil {
		return nil, 0, g.pathErr
	}
	p, ok := g.paths[[2]NodeID{from, to}]
	if !ok {
		return nil, 0, ErrNoPath
	}
	return p, float64(len(p)), nil
}

var (
	posA = model.Position{Lat: 1, Lng: 1}
	posB = model.Position{Lat: 2, Lng: 2}
)

func pair(src, dst string, from, to model.Position) matching.Pair {
	return matching.Pair{
		Source: model.AnnotatedStation{Station: model.Station{Name: src, Position: from}, Category: model.CategorySurplus, Color: model.ColorGreen, Icon: model.IconGreen},
		Target: model.AnnotatedStation{Station: model.Station{Name: dst, Position: to}, Category: model.CategoryDeficitLow, Color: model.ColorRed, Icon: model.IconRed},
	}
}

func TestRouteBikeOnCycleGraph(t *testing.T) {
	cycle := newMockGraph().node(posA, 1).node(posB, 2).path(1, 2, model.Coordinate{Lat: 1, Lng: 1}, model.Coordinate{Lat: 2, Lng: 2})
	road := newMockGraph().node(posA, 10).node(posB, 20).path(10, 20, model.Coordinate{Lat: 9, Lng: 9})
	r, err := NewRouter(cycle, road)
	require.NoError(t, err)

	it, attempts := r.RouteBike(pair("A", "B", posA, posB))
	require.NotNil(t, it)
	assert.Len(t, attempts, 1)
	assert.Equal(t, model.ModeBike, it.Mode)
	assert.Equal(t, model.GraphCycle, it.Graph)
	assert.Equal(t, []model.Coordinate{{Lat: 1, Lng: 1}, {Lat: 2, Lng: 2}}, it.Path)
	assert.Equal(t, "A", it.Source)
	assert.Equal(t, "B", it.Destination)
	assert.Equal(t, model.ColorGreen, it.SourceColor)
	assert.Equal(t, model.IconRed, it.DestinationIcon)
	assert.Zero(t, road.calls.Load(), "road graph must not be consulted when cycle graph succeeds")
}

func TestRouteBikeFallsBackOnNoPath(t *testing.T) {
	cycle := newMockGraph().node(posA, 1).node(posB, 2)
	roadPath := []model.Coordinate{{Lat: 1, Lng: 1}, {Lat: 1.5, Lng: 1.5}, {Lat: 2, Lng: 2}}
	road := newMockGraph().node(posA, 10).node(posB, 20).path(10, 20, roadPath...)
	r, err := NewRouter(cycle, road)
	require.NoError(t, err)

	res := r.RoutePair(pair("A", "B", posA, posB))
	require.NotNil(t, res.Bike)
	assert.Equal(t, model.ModeBike, res.Bike.Mode)
	assert.Equal(t, model.GraphRoad, res.Bike.Graph)
	assert.Equal(t, roadPath, res.Bike.Path)
	assert.True(t, res.Fallback())
	assert.True(t, errors.Is(res.BikeAttempts[0].Err, ErrNoPath))

	require.NotNil(t, res.Vehicle)
	assert.Equal(t, model.ModeVehicle, res.Vehicle.Mode)
	assert.Equal(t, roadPath, res.Vehicle.Path)
}

func TestRouteBikeFallsBackOnNoProjection(t *testing.T) {
	cycle := newMockGraph()
	road := newMockGraph().node(posA, 10).node(posB, 20).path(10, 20, model.Coordinate{Lat: 1, Lng: 1})
	r, err := NewRouter(cycle, road, WithFallbackPolicy(FallbackRouteErrors))
	require.NoError(t, err)

	it, attempts := r.RouteBike(pair("A", "B", posA, posB))
	require.NotNil(t, it)
	require.Len(t, attempts, 2)
	assert.True(t, errors.Is(attempts[0].Err, ErrNoProjection))
	assert.Equal(t, model.GraphRoad, it.Graph)
}

func TestRouteErrorsPolicySkipsUnexpectedErrors(t *testing.T) {
	cycle := newMockGraph().node(posA, 1).node(posB, 2)
	cycle.pathErr = fmt.Errorf("corrupt graph")
	road := newMockGraph().node(posA, 10).node(posB, 20).path(10, 20, model.Coordinate{Lat: 1, Lng: 1})

	strict, err := NewRouter(cycle, road, WithFallbackPolicy(FallbackRouteErrors))
	require.NoError(t, err)
	it, attempts := strict.RouteBike(pair("A", "B", posA, posB))
	assert.Nil(t, it)
	assert.Len(t, attempts, 1)

	lenient, err := NewRouter(cycle, road, WithFallbackPolicy(FallbackAny))
	require.NoError(t, err)
	it, attempts = lenient.RouteBike(pair("A", "B", posA, posB))
	require.NotNil(t, it)
	assert.Len(t, attempts, 2)
}

func TestBothLegsFailWithoutAbort(t *testing.T) {
	cycle := newMockGraph()
	road := newMockGraph().node(posA, 10).node(posB, 20)
	r, err := NewRouter(cycle, road)
	require.NoError(t, err)

	res := r.RoutePair(pair("A", "B", posA, posB))
	assert.Nil(t, res.Bike)
	assert.Nil(t, res.Vehicle)
	assert.True(t, errors.Is(res.BikeErr(), ErrNoPath))
	assert.True(t, errors.Is(res.VehicleErr(), ErrNoPath))
	assert.True(t, errors.Is(res.BikeAttempts[0].Err, ErrNoProjection))
}

func TestBikeFailsEverywhereVehicleSucceeds(t *testing.T) {
	cycle := newMockGraph().node(posA, 1).node(posB, 2)
	road := &flakyRoad{mockGraph: newMockGraph().node(posA, 10).node(posB, 20).path(10, 20, model.Coordinate{Lat: 5, Lng: 5})}
	road.failFirst.Store(1)
	r, err := NewRouter(cycle, road)
	require.NoError(t, err)

	res := r.RoutePair(pair("A", "B", posA, posB))
	assert.Nil(t, res.Bike)
	assert.Len(t, res.BikeAttempts, 2)
	require.NotNil(t, res.Vehicle)
	assert.Equal(t, []model.Coordinate{{Lat: 5, Lng: 5}}, res.Vehicle.Path)
	assert.NoError(t, res.VehicleErr())
}

// flakyRoad fails the first n shortest-path calls.
type flakyRoad struct {
	*mockGraph
	failFirst atomic.Int32
}

func (f *flakyRoad) ShortestPath(from, to NodeID) ([]model.Coordinate, float64, error) {
	if f.failFirst.Add(-1) >= 0 {
		return nil, 0, ErrNoPath
	}
	return f.mockGraph.ShortestPath(from, to)
}

func TestRouteAllPreservesOrder(t *testing.T) {
	cycle := newMockGraph()
	road := newMockGraph()
	var pairs []matching.Pair
	for i := 0; i < 20; i++ {
		from := model.Position{Lat: float64(i), Lng: 0}
		to := model.Position{Lat: float64(i), Lng: 1}
		cycle.node(from, NodeID(2*i)).node(to, NodeID(2*i+1)).path(NodeID(2*i), NodeID(2*i+1), model.Coordinate{Lat: float64(i)})
		road.node(from, NodeID(2*i)).node(to, NodeID(2*i+1)).path(NodeID(2*i), NodeID(2*i+1), model.Coordinate{Lat: float64(i)})
		pairs = append(pairs, pair(fmt.Sprintf("S%d", i), fmt.Sprintf("D%d", i), from, to))
	}
	for _, workers := range []int{1, 4, 32} {
		r, err := NewRouter(cycle, road, WithWorkers(workers))
		require.NoError(t, err)
		res := r.RouteAll(pairs)
		require.Len(t, res, len(pairs))
		for i, pr := range res {
			assert.Equal(t, fmt.Sprintf("S%d", i), pr.Pair.Source.Name)
			require.NotNil(t, pr.Bike)
			assert.Equal(t, fmt.Sprintf("D%d", i), pr.Bike.Destination)
			require.NotNil(t, pr.Vehicle)
		}
	}
}

func TestNewRouterRequiresGraphs(t *testing.T) {
	_, err := NewRouter(nil, newMockGraph())
	assert.Error(t, err)
	_, err = NewRouter(newMockGraph(), nil)
	assert.Error(t, err)
}

func TestRouteEmptyPath(t *testing.T) {
	g := newMockGraph().node(posA, 1).node(posB, 2).path(1, 2)
	a := Route(g, model.GraphCycle, posA, posB)
	assert.False(t, a.OK())
	assert.True(t, errors.Is(a.Err, ErrNoPath))
}

func TestParseFallbackPolicy(t *testing.T) {
	p, err := ParseFallbackPolicy("")
	require.NoError(t, err)
	assert.Equal(t, FallbackAny, p)
	p, err = ParseFallbackPolicy("ROUTE_ERRORS")
	require.NoError(t, err)
	assert.Equal(t, FallbackRouteErrors, p)
	_, err = ParseFallbackPolicy("never")
	assert.Error(t, err)

	assert.False(t, FallbackAny.ShouldFallback(nil))
	assert.True(t, FallbackRouteErrors.ShouldFallback(fmt.Errorf("wrap: %w", ErrNoProjection)))
	assert.False(t, FallbackRouteErrors.ShouldFallback(errors.New("other")))
}
