package metrics

import (
	"errors"
	"io"
	"time"
)

// CycleResult summarises a planning cycle for observability.
type CycleResult struct {
	CycleID  string
	Outcome  string
	Reason   string
	Duration time.Duration
	Time     time.Time

	Stations   int
	Categories map[string]int

	Surplus            int
	Deficit            int
	Pairs              int
	UnmatchedDeficits  int
	BikeItineraries    int
	VehicleItineraries int
	Fallbacks          int
	BikeFailures       int
	VehicleFailures    int
}

// MetricsSink records cycle results.
type MetricsSink interface {
	RecordCycle(res CycleResult) error
}

// StationState is one station as seen by a completed cycle.
type StationState struct {
	CycleID         string
	Number          int
	Name            string
	Category        string
	AvailableBikes  int
	AvailableStands int
	Time            time.Time
}

// StationStateRecorder records the station snapshot of a completed cycle.
type StationStateRecorder interface {
	RecordStationStates(states []StationState) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordCycle(CycleResult) error            { return nil }
func (NopSink) RecordStationStates([]StationState) error { return nil }

// MultiSink fans records out to several sinks. Every sink is attempted;
// the errors are joined.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordCycle forwards the cycle result to all sinks.
func (m *MultiSink) RecordCycle(res CycleResult) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordCycle(res); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordStationStates forwards snapshots to the sinks that support them.
func (m *MultiSink) RecordStationStates(states []StationState) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(StationStateRecorder); ok {
			if err := rec.RecordStationStates(states); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Close closes the sinks that hold resources.
func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.Sinks {
		if c, ok := s.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
