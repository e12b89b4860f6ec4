package graph

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/rebalance/core/factory"
	"github.com/kilianp07/rebalance/core/planner"
	"github.com/kilianp07/rebalance/core/routing"
)

const directedDoc = `{
  "directed": true,
  "multigraph": true,
  "graph": {"crs": "epsg:4326"},
  "nodes": [
    {"id": 10, "x": 6.1800, "y": 48.6900},
    {"id": 20, "x": 6.1810, "y": 48.6900},
    {"id": "30", "x": 6.1820, "y": 48.6900}
  ],
  "links": [
    {"source": 10, "target": 20, "key": 0, "length": 73.2},
    {"source": 20, "target": 30, "key": 0, "length": 73.2},
    {"source": 10, "target": 20, "key": 1, "length": 90.0}
  ]
}`

func TestDecodeNodeLinkDirected(t *testing.T) {
	n, err := DecodeNodeLink(strings.NewReader(directedDoc))
	require.NoError(t, err)
	assert.Equal(t, 3, n.Len())

	path, length, err := n.ShortestPath(10, 30)
	require.NoError(t, err)
	assert.Len(t, path, 3)
	assert.InDelta(t, 146.4, length, 1e-9)

	_, _, err = n.ShortestPath(30, 10)
	assert.True(t, errors.Is(err, routing.ErrNoPath))
}

func TestDecodeNodeLinkUndirectedWrapped(t *testing.T) {
	doc := `{"directed": false, "graph": {
	  "nodes": [{"id": 1, "x": 6.18, "y": 48.69}, {"id": 2, "x": 6.19, "y": 48.69}],
	  "edges": [{"source": 1, "target": 2, "length": 700}]
	}}`
	n, err := DecodeNodeLink(strings.NewReader(doc))
	require.NoError(t, err)
	_, length, err := n.ShortestPath(2, 1)
	require.NoError(t, err)
	assert.Equal(t, 700.0, length)
}

func TestDecodeNodeLinkErrors(t *testing.T) {
	cases := map[string]string{
		"syntax":         `{`,
		"no nodes":       `{"nodes": [], "links": []}`,
		"missing coords": `{"nodes": [{"id": 1}], "links": []}`,
		"missing length": `{"nodes": [{"id": 1, "x": 0, "y": 0}, {"id": 2, "x": 0, "y": 1}], "links": [{"source": 1, "target": 2}]}`,
		"bad id":         `{"nodes": [{"id": "abc", "x": 0, "y": 0}]}`,
		"fractional id":  `{"nodes": [{"id": 1.5, "x": 0, "y": 0}]}`,
		"overflow id":    `{"nodes": [{"id": 1e20, "x": 0, "y": 0}]}`,
		"overflow edge":  `{"nodes": [{"id": 1, "x": 0, "y": 0}], "links": [{"source": 1, "target": -1e19, "length": 1}]}`,
	}
	for name, doc := range cases {
		if _, err := DecodeNodeLink(strings.NewReader(doc)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestDecodeNodeLinkIntegralFloatID(t *testing.T) {
	doc := `{"directed": true, "nodes": [{"id": 1.0, "x": 0, "y": 0}, {"id": 2e0, "x": 0, "y": 1}],
	  "links": [{"source": 1, "target": 2, "length": 1}]}`
	n, err := DecodeNodeLink(strings.NewReader(doc))
	require.NoError(t, err)
	_, length, err := n.ShortestPath(1, 2)
	require.NoError(t, err)
	assert.Equal(t, 1.0, length)
}

func writeGraphs(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	cycle := filepath.Join(dir, "cycle.json")
	road := filepath.Join(dir, "road.json")
	require.NoError(t, os.WriteFile(cycle, []byte(directedDoc), 0o644))
	require.NoError(t, os.WriteFile(road, []byte(directedDoc), 0o644))
	return cycle, road
}

func TestFileProviderLoadAndCache(t *testing.T) {
	cycle, road := writeGraphs(t)
	p, err := NewFileProvider(FileProviderConfig{CyclePath: cycle, RoadPath: road})
	require.NoError(t, err)

	g1, err := p.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, g1.Cycle)
	require.NotNil(t, g1.Road)

	g2, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.Same(t, g1.Cycle.(*Network), g2.Cycle.(*Network))

	// rewriting the file invalidates the cache
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(cycle, later, later))
	g3, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, g1.Cycle.(*Network), g3.Cycle.(*Network))
}

func TestFileProviderErrors(t *testing.T) {
	_, err := NewFileProvider(FileProviderConfig{CyclePath: "a.json"})
	assert.Error(t, err)

	cycle, _ := writeGraphs(t)
	p, err := NewFileProvider(FileProviderConfig{CyclePath: cycle, RoadPath: filepath.Join(t.TempDir(), "missing.json")})
	require.NoError(t, err)
	_, err = p.Load(context.Background())
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileProviderRegistered(t *testing.T) {
	cycle, road := writeGraphs(t)
	p, err := planner.NewGraphProvider(factory.ModuleConfig{Type: "file", Conf: map[string]any{
		"cycle_path": cycle,
		"road_path":  road,
		"max_snap_m": 250.0,
	}})
	require.NoError(t, err)
	_, ok := p.(*FileProvider)
	assert.True(t, ok)
}
