// Package metrics defines the sinks that record planning cycles. A sink
// must record cycle summaries; it may also implement StationStateRecorder
// to receive the per-station snapshot of completed cycles. Sinks are built
// from configuration through the registry and combined with MultiSink when
// several are configured.
package metrics
