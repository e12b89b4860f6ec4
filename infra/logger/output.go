package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	outputMu sync.RWMutex
	output   io.Writer = os.Stdout
)

// SetOutput changes where loggers created afterwards write. A nil writer
// restores stdout.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	outputMu.Lock()
	output = w
	outputMu.Unlock()
}

func currentOutput() io.Writer {
	outputMu.RLock()
	defer outputMu.RUnlock()
	return output
}

// FileConfig describes a rotating log file. Sizes are in megabytes.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// NewRotatingFile opens a size-rotated log file. Old files beyond
// MaxBackups or MaxAgeDays are removed.
func NewRotatingFile(cfg FileConfig) (io.WriteCloser, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("log file: path is required")
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("log file: %w", err)
		}
	}
	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = 100
	}
	return &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}, nil
}
