// Package graph implements routing.Graph on top of gonum. Nodes carry WGS84
// coordinates, edges carry their physical length, nearest-node lookups use a
// k-d tree and shortest paths use Dijkstra.
package graph

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/iterator"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/kilianp07/rebalance/core/model"
	"github.com/kilianp07/rebalance/core/routing"
)

const earthRadiusM = 6371000.0

// Node is a graph vertex with its position.
type Node struct {
	ID  int64
	Lat float64
	Lng float64
}

// Edge is a weighted connection. Length is in metres.
type Edge struct {
	From   int64
	To     int64
	Length float64
}

// Network is an immutable routable graph. It is safe for concurrent reads.
type Network struct {
	g        *orderedGraph
	coords   map[int64]model.Coordinate
	tree     *kdtree.Tree
	byPoint  map[[2]float64]int64
	cosLat   float64
	maxSnapM float64
}

// Option configures a Network.
type Option func(*Network)

// WithMaxSnapDistance rejects projections farther than m metres from the
// nearest node. Zero disables the limit.
func WithMaxSnapDistance(m float64) Option {
	return func(n *Network) { n.maxSnapM = m }
}

// NewNetwork builds a network. Edges are directed; pass both directions for
// two-way ways. Parallel edges keep the shortest length.
func NewNetwork(nodes []Node, edges []Edge, opts ...Option) (*Network, error) {
	n := &Network{
		g:       &orderedGraph{WeightedDirectedGraph: simple.NewWeightedDirectedGraph(0, math.Inf(1))},
		coords:  make(map[int64]model.Coordinate, len(nodes)),
		byPoint: make(map[[2]float64]int64, len(nodes)),
	}
	for _, o := range opts {
		o(n)
	}

	var latSum float64
	for _, nd := range nodes {
		if _, dup := n.coords[nd.ID]; dup {
			return nil, fmt.Errorf("duplicate node %d", nd.ID)
		}
		n.g.AddNode(simple.Node(nd.ID))
		n.coords[nd.ID] = model.Coordinate{Lat: nd.Lat, Lng: nd.Lng}
		latSum += nd.Lat
	}
	if len(nodes) > 0 {
		n.cosLat = math.Cos(latSum / float64(len(nodes)) * math.Pi / 180)
	}

	for _, e := range edges {
		if e.Length < 0 || math.IsNaN(e.Length) {
			return nil, fmt.Errorf("edge %d->%d: invalid length %v", e.From, e.To, e.Length)
		}
		if e.From == e.To {
			continue
		}
		if _, ok := n.coords[e.From]; !ok {
			return nil, fmt.Errorf("edge %d->%d: unknown node %d", e.From, e.To, e.From)
		}
		if _, ok := n.coords[e.To]; !ok {
			return nil, fmt.Errorf("edge %d->%d: unknown node %d", e.From, e.To, e.To)
		}
		if w, ok := n.g.Weight(e.From, e.To); ok && w <= e.Length {
			continue
		}
		n.g.SetWeightedEdge(n.g.NewWeightedEdge(simple.Node(e.From), simple.Node(e.To), e.Length))
	}

	// Sort node IDs so the tree and the point index do not depend on input order.
	ids := make([]int64, 0, len(n.coords))
	for id := range n.coords {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	pts := make(kdtree.Points, 0, len(ids))
	for _, id := range ids {
		key := n.project(n.coords[id])
		if _, seen := n.byPoint[key]; seen {
			continue
		}
		n.byPoint[key] = id
		pts = append(pts, kdtree.Point{key[0], key[1]})
	}
	if len(pts) > 0 {
		n.tree = kdtree.New(pts, false)
	}
	return n, nil
}

// Len returns the number of nodes.
func (n *Network) Len() int { return len(n.coords) }

// Coordinate returns the position of a node.
func (n *Network) Coordinate(id routing.NodeID) (model.Coordinate, bool) {
	c, ok := n.coords[int64(id)]
	return c, ok
}

// NearestNode returns the node closest to the coordinate.
func (n *Network) NearestNode(lat, lng float64) (routing.NodeID, error) {
	if n.tree == nil {
		return 0, routing.ErrNoProjection
	}
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return 0, fmt.Errorf("%w: invalid coordinate", routing.ErrNoProjection)
	}
	q := n.project(model.Coordinate{Lat: lat, Lng: lng})
	got, _ := n.tree.Nearest(kdtree.Point{q[0], q[1]})
	p, ok := got.(kdtree.Point)
	if !ok || len(p) != 2 {
		return 0, routing.ErrNoProjection
	}
	id, ok := n.byPoint[[2]float64{p[0], p[1]}]
	if !ok {
		return 0, routing.ErrNoProjection
	}
	if n.maxSnapM > 0 {
		if d := Haversine(model.Coordinate{Lat: lat, Lng: lng}, n.coords[id]); d > n.maxSnapM {
			return 0, fmt.Errorf("%w: nearest node %d is %.0f m away", routing.ErrNoProjection, id, d)
		}
	}
	return routing.NodeID(id), nil
}

// ShortestPath runs Dijkstra from one node and returns the coordinates of the
// path to the other. Neighbours are relaxed in ascending node-ID order so
// ties between equal-length paths resolve the same way on every run.
func (n *Network) ShortestPath(from, to routing.NodeID) ([]model.Coordinate, float64, error) {
	src, dst := int64(from), int64(to)
	if _, ok := n.coords[src]; !ok {
		return nil, 0, fmt.Errorf("%w: unknown node %d", routing.ErrNoProjection, src)
	}
	if _, ok := n.coords[dst]; !ok {
		return nil, 0, fmt.Errorf("%w: unknown node %d", routing.ErrNoProjection, dst)
	}
	if src == dst {
		return []model.Coordinate{n.coords[src]}, 0, nil
	}
	tree := path.DijkstraFrom(simple.Node(src), n.g)
	nodes, weight := tree.To(dst)
	if len(nodes) == 0 || math.IsInf(weight, 1) {
		return nil, 0, fmt.Errorf("%w: %d -> %d", routing.ErrNoPath, src, dst)
	}
	out := make([]model.Coordinate, len(nodes))
	for i, nd := range nodes {
		out[i] = n.coords[nd.ID()]
	}
	return out, weight, nil
}

// project maps a coordinate onto an equirectangular plane in metres around
// the network's mean latitude, which keeps Euclidean k-d tree distances close
// to ground distances at city scale.
func (n *Network) project(c model.Coordinate) [2]float64 {
	const degToM = earthRadiusM * math.Pi / 180
	return [2]float64{c.Lng * degToM * n.cosLat, c.Lat * degToM}
}

// Haversine returns the great-circle distance in metres.
func Haversine(a, b model.Coordinate) float64 {
	toRad := math.Pi / 180
	dLat := (b.Lat - a.Lat) * toRad
	dLng := (b.Lng - a.Lng) * toRad
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*toRad)*math.Cos(b.Lat*toRad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusM * math.Asin(math.Min(1, math.Sqrt(h)))
}

// orderedGraph yields successors sorted by ID.
type orderedGraph struct {
	*simple.WeightedDirectedGraph
}

func (g *orderedGraph) From(id int64) graph.Nodes {
	nodes := graph.NodesOf(g.WeightedDirectedGraph.From(id))
	if len(nodes) == 0 {
		return graph.Empty
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID() < nodes[j].ID() })
	return iterator.NewOrderedNodes(nodes)
}

var _ routing.Graph = (*Network)(nil)
