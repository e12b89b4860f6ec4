// Package scheduler repeats the planning cycle at a fixed interval. A cycle
// that has started always runs to completion; cancellation is only observed
// between cycles. Completed plans are handed to the output writers and every
// cycle outcome is published on the event bus.
package scheduler
