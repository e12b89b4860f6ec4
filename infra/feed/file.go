package feed

import (
	"context"
	"fmt"
	"os"

	"github.com/kilianp07/rebalance/core/factory"
	"github.com/kilianp07/rebalance/core/model"
	"github.com/kilianp07/rebalance/core/planner"
)

// FileConfig points at a JSON snapshot on disk.
type FileConfig struct {
	Path string `json:"path"`
}

// FileFeed re-reads a station snapshot file on every fetch.
type FileFeed struct {
	path string
}

// NewFileFeed returns a feed reading path.
func NewFileFeed(cfg FileConfig) (*FileFeed, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("file feed: path is required")
	}
	return &FileFeed{path: cfg.Path}, nil
}

// Fetch decodes the file.
func (f *FileFeed) Fetch(ctx context.Context) ([]model.Station, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fh, err := os.Open(f.path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return DecodeStations(fh)
}

func init() {
	_ = planner.RegisterFeed("file", func(conf map[string]any) (planner.StationFeed, error) {
		var c FileConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewFileFeed(c)
	})
}
