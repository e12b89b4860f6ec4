package graph

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/kilianp07/rebalance/core/factory"
	"github.com/kilianp07/rebalance/core/planner"
	"github.com/kilianp07/rebalance/infra/logger"
)

// FileProviderConfig locates the two node-link exports.
type FileProviderConfig struct {
	CyclePath string  `json:"cycle_path"`
	RoadPath  string  `json:"road_path"`
	MaxSnapM  float64 `json:"max_snap_m"`
}

// Validate checks mandatory fields.
func (c FileProviderConfig) Validate() error {
	if c.CyclePath == "" || c.RoadPath == "" {
		return fmt.Errorf("graph provider: cycle_path and road_path are required")
	}
	if c.MaxSnapM < 0 {
		return fmt.Errorf("graph provider: max_snap_m must be >= 0")
	}
	return nil
}

type cachedNetwork struct {
	modTime time.Time
	size    int64
	net     *Network
}

// FileProvider loads the cycle and road graphs from disk. A file is parsed
// again only when its modification time or size changes; networks are
// immutable so reusing one across cycles shares no mutable state.
type FileProvider struct {
	cfg   FileProviderConfig
	log   logger.Logger
	mu    sync.Mutex
	cache map[string]cachedNetwork
}

// NewFileProvider validates the config and returns a provider.
func NewFileProvider(cfg FileProviderConfig) (*FileProvider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &FileProvider{cfg: cfg, log: logger.New("graph-provider"), cache: make(map[string]cachedNetwork)}, nil
}

// Load returns both graphs. Any failure makes the cycle unusable.
func (p *FileProvider) Load(ctx context.Context) (planner.Graphs, error) {
	cycle, err := p.load(ctx, p.cfg.CyclePath)
	if err != nil {
		return planner.Graphs{}, fmt.Errorf("cycle graph: %w", err)
	}
	road, err := p.load(ctx, p.cfg.RoadPath)
	if err != nil {
		return planner.Graphs{}, fmt.Errorf("road graph: %w", err)
	}
	return planner.Graphs{Cycle: cycle, Road: road}, nil
}

func (p *FileProvider) load(ctx context.Context, path string) (*Network, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.cache[path]; ok && c.modTime.Equal(info.ModTime()) && c.size == info.Size() {
		return c.net, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	start := time.Now()
	net, err := DecodeNodeLink(f, WithMaxSnapDistance(p.cfg.MaxSnapM))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	p.log.Infof("loaded graph %s: %d nodes in %s", path, net.Len(), time.Since(start).Round(time.Millisecond))
	p.cache[path] = cachedNetwork{modTime: info.ModTime(), size: info.Size(), net: net}
	return net, nil
}

func init() {
	_ = planner.RegisterGraphProvider("file", func(conf map[string]any) (planner.GraphProvider, error) {
		var c FileProviderConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewFileProvider(c)
	})
}
