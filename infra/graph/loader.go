package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
)

// nodeLinkID accepts node identifiers encoded as JSON numbers or numeric strings.
type nodeLinkID int64

func (id *nodeLinkID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("node id %q is not numeric", s)
		}
		*id = nodeLinkID(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	v, err := n.Int64()
	if err != nil {
		f, ferr := n.Float64()
		if ferr != nil {
			return fmt.Errorf("node id %s: %w", n, err)
		}
		if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			return fmt.Errorf("node id %s is not an int64 integer", n)
		}
		v = int64(f)
	}
	*id = nodeLinkID(v)
	return nil
}

type nodeLinkNode struct {
	ID nodeLinkID `json:"id"`
	X  *float64   `json:"x"`
	Y  *float64   `json:"y"`
}

type nodeLinkEdge struct {
	Source nodeLinkID `json:"source"`
	Target nodeLinkID `json:"target"`
	Length *float64   `json:"length"`
}

type nodeLinkDoc struct {
	Directed *bool           `json:"directed"`
	Nodes    []nodeLinkNode  `json:"nodes"`
	Links    []nodeLinkEdge  `json:"links"`
	Edges    []nodeLinkEdge  `json:"edges"`
	Graph    json.RawMessage `json:"graph"`
}

// DecodeNodeLink reads a node-link JSON document as exported by networkx/osmnx
// (nodes with x = longitude and y = latitude, links or edges with a length
// attribute in metres). A document wrapped under a "graph" key is accepted
// too. Undirected documents get both edge directions.
func DecodeNodeLink(r io.Reader, opts ...Option) (*Network, error) {
	var doc nodeLinkDoc
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode node-link graph: %w", err)
	}
	if len(doc.Nodes) == 0 && len(doc.Graph) > 0 && doc.Graph[0] == '{' {
		var inner nodeLinkDoc
		if err := json.Unmarshal(doc.Graph, &inner); err != nil {
			return nil, fmt.Errorf("decode wrapped node-link graph: %w", err)
		}
		if inner.Directed == nil {
			inner.Directed = doc.Directed
		}
		doc = inner
	}
	if len(doc.Nodes) == 0 {
		return nil, fmt.Errorf("node-link graph has no nodes")
	}

	nodes := make([]Node, 0, len(doc.Nodes))
	for i, n := range doc.Nodes {
		if n.X == nil || n.Y == nil {
			return nil, fmt.Errorf("node %d (index %d): missing x/y", n.ID, i)
		}
		nodes = append(nodes, Node{ID: int64(n.ID), Lat: *n.Y, Lng: *n.X})
	}

	links := doc.Links
	if len(links) == 0 {
		links = doc.Edges
	}
	directed := doc.Directed == nil || *doc.Directed
	edges := make([]Edge, 0, len(links)*2)
	for i, l := range links {
		if l.Length == nil {
			return nil, fmt.Errorf("link %d (%d->%d): missing length", i, l.Source, l.Target)
		}
		edges = append(edges, Edge{From: int64(l.Source), To: int64(l.Target), Length: *l.Length})
		if !directed {
			edges = append(edges, Edge{From: int64(l.Target), To: int64(l.Source), Length: *l.Length})
		}
	}
	return NewNetwork(nodes, edges, opts...)
}
