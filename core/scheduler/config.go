package scheduler

import (
	"fmt"
	"time"
)

// DefaultIntervalSeconds is the pause between the end of one cycle and the
// start of the next.
const DefaultIntervalSeconds = 120

// Config defines the loop cadence.
type Config struct {
	IntervalSeconds int `json:"interval_seconds"`
}

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	if c.IntervalSeconds == 0 {
		c.IntervalSeconds = DefaultIntervalSeconds
	}
}

// Validate checks the interval.
func (c Config) Validate() error {
	if c.IntervalSeconds < 1 {
		return fmt.Errorf("scheduler: interval_seconds must be >= 1, got %d", c.IntervalSeconds)
	}
	return nil
}

// Interval returns the configured interval as a duration.
func (c Config) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}
