// Package monitoring defines the error reporter failed cycles are sent to.
package monitoring

import "time"

// Monitor reports errors to an external tracker.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	// Recover must be deferred directly. It reports a panic and re-panics.
	Recover()
	Flush(timeout time.Duration)
}

type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) Recover()                                  {}
func (NopMonitor) Flush(time.Duration)                       {}
