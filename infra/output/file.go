// Package output holds the plan writers that do not need a client of their
// own: a local file and a Redis key.
package output

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kilianp07/rebalance/core/factory"
	"github.com/kilianp07/rebalance/core/model"
	coreoutput "github.com/kilianp07/rebalance/core/output"
	"github.com/kilianp07/rebalance/infra/logger"
	"github.com/kilianp07/rebalance/pkg/export"
)

// FileConfig configures FileWriter.
type FileConfig struct {
	Path   string `json:"path"`
	Format string `json:"format"`
}

// FileWriter replaces a file with the latest plan. The document is written
// to a temporary file in the same directory and renamed, so readers never
// observe a partial plan.
type FileWriter struct {
	path   string
	format export.Format
	log    logger.Logger
}

// NewFileWriter validates the config and returns a writer.
func NewFileWriter(cfg FileConfig) (*FileWriter, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("file output: path is required")
	}
	f, err := export.ParseFormat(cfg.Format)
	if err != nil {
		return nil, fmt.Errorf("file output: %w", err)
	}
	return &FileWriter{path: cfg.Path, format: f, log: logger.New("file-output")}, nil
}

// Write replaces the target file.
func (w *FileWriter) Write(_ context.Context, plan *model.RebalancingPlan) error {
	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(w.path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := export.Write(tmp, w.format, plan); err != nil {
		tmp.Close()
		return fmt.Errorf("write plan: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmpName, w.path); err != nil {
		return fmt.Errorf("replace %s: %w", w.path, err)
	}
	w.log.Debugf("plan written to %s", w.path)
	return nil
}

func init() {
	_ = coreoutput.RegisterWriter("file", func(conf map[string]any) (coreoutput.Writer, error) {
		var c FileConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewFileWriter(c)
	})
}
