package config

import (
	"fmt"

	"github.com/kilianp07/rebalance/core/routing"
)

// RoutingConfig tunes the dual-graph router.
type RoutingConfig struct {
	// FallbackPolicy is "any" or "route_errors".
	FallbackPolicy string `json:"fallback_policy"`
	// Workers bounds how many pairs are routed concurrently.
	Workers int `json:"workers"`
}

// SetDefaults applies sane defaults.
func (c *RoutingConfig) SetDefaults() {
	if c.FallbackPolicy == "" {
		c.FallbackPolicy = string(routing.FallbackAny)
	}
	if c.Workers == 0 {
		c.Workers = 1
	}
}

// Validate checks the policy name and worker count.
func (c RoutingConfig) Validate() error {
	if _, err := routing.ParseFallbackPolicy(c.FallbackPolicy); err != nil {
		return err
	}
	if c.Workers < 1 {
		return fmt.Errorf("routing.workers must be >= 1, got %d", c.Workers)
	}
	return nil
}

// Options converts the section into router options.
func (c RoutingConfig) Options() []routing.Option {
	p, _ := routing.ParseFallbackPolicy(c.FallbackPolicy)
	return []routing.Option{routing.WithFallbackPolicy(p), routing.WithWorkers(c.Workers)}
}
