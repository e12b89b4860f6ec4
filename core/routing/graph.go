package routing

import (
	"errors"
	"fmt"

	"github.com/kilianp07/rebalance/core/model"
)

// NodeID identifies a node of a routable graph.
type NodeID int64

var (
	// ErrNoProjection is returned when a coordinate cannot be mapped to any node.
	ErrNoProjection = errors.New("no graph node for coordinate")
	// ErrNoPath is returned when both nodes exist but are disconnected.
	ErrNoPath = errors.New("no path between nodes")
)

// Graph is a weighted routable network.
type Graph interface {
	// NearestNode projects a coordinate onto the closest node.
	NearestNode(lat, lng float64) (NodeID, error)
	// ShortestPath returns the node coordinates along the shortest path by
	// additive edge length, endpoints included, and the path length.
	ShortestPath(from, to NodeID) ([]model.Coordinate, float64, error)
}

// Attempt is the tagged result of routing one leg on one graph.
type Attempt struct {
	Graph  model.GraphKind
	Path   []model.Coordinate
	Length float64
	Err    error
}

// OK reports whether the attempt produced a usable path.
func (a Attempt) OK() bool { return a.Err == nil && len(a.Path) > 0 }

// Route projects both positions onto g and computes the shortest path.
func Route(g Graph, kind model.GraphKind, from, to model.Position) Attempt {
	a := Attempt{Graph: kind}
	src, err := g.NearestNode(from.Lat, from.Lng)
	if err != nil {
		a.Err = fmt.Errorf("project source: %w", err)
		return a
	}
	dst, err := g.NearestNode(to.Lat, to.Lng)
	if err != nil {
		a.Err = fmt.Errorf("project target: %w", err)
		return a
	}
	path, length, err := g.ShortestPath(src, dst)
	if err != nil {
		a.Err = err
		return a
	}
	if len(path) == 0 {
		a.Err = ErrNoPath
		return a
	}
	a.Path, a.Length = path, length
	return a
}
