// Package output defines where completed rebalancing plans go. Every writer
// replaces the previously published plan; no history is kept.
package output

import (
	"context"
	"errors"
	"io"

	"github.com/kilianp07/rebalance/core/factory"
	"github.com/kilianp07/rebalance/core/model"
)

// Writer publishes a completed plan.
type Writer interface {
	Write(ctx context.Context, plan *model.RebalancingPlan) error
}

// NopWriter discards plans.
type NopWriter struct{}

func (NopWriter) Write(context.Context, *model.RebalancingPlan) error { return nil }

// MultiWriter fans a plan out to several writers. Every writer is attempted
// even when an earlier one fails.
type MultiWriter struct {
	Writers []Writer
}

// NewMultiWriter returns a MultiWriter.
func NewMultiWriter(w ...Writer) *MultiWriter { return &MultiWriter{Writers: w} }

func (m *MultiWriter) Write(ctx context.Context, plan *model.RebalancingPlan) error {
	var errs []error
	for _, w := range m.Writers {
		if err := w.Write(ctx, plan); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every writer that holds resources.
func (m *MultiWriter) Close() error {
	var errs []error
	for _, w := range m.Writers {
		if c, ok := w.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

var writerRegistry = factory.NewRegistry[Writer]()

// RegisterWriter adds a writer factory identified by name.
func RegisterWriter(name string, f factory.Factory[Writer]) error {
	return writerRegistry.Register(name, f)
}

// NewWriter builds the configured writers. No config yields a NopWriter and
// several configs yield a MultiWriter.
func NewWriter(cfgs []factory.ModuleConfig) (Writer, error) {
	if len(cfgs) == 0 {
		return NopWriter{}, nil
	}
	if len(cfgs) == 1 {
		return writerRegistry.Create(cfgs[0])
	}
	writers := make([]Writer, 0, len(cfgs))
	for _, c := range cfgs {
		w, err := writerRegistry.Create(c)
		if err != nil {
			_ = NewMultiWriter(writers...).Close()
			return nil, err
		}
		writers = append(writers, w)
	}
	return NewMultiWriter(writers...), nil
}
