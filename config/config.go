// Package config loads the service configuration from a YAML or JSON file
// with K_ prefixed environment overrides (K_ROUTING__WORKERS=4 sets
// routing.workers).
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/rebalance/core/factory"
	"github.com/kilianp07/rebalance/core/metrics"
	"github.com/kilianp07/rebalance/core/scheduler"
)

// Config is the root of the configuration file.
type Config struct {
	Feed      factory.ModuleConfig   `json:"feed"`
	Graphs    factory.ModuleConfig   `json:"graphs"`
	Routing   RoutingConfig          `json:"routing"`
	Scheduler scheduler.Config       `json:"scheduler"`
	Outputs   []factory.ModuleConfig `json:"outputs"`
	Metrics   metrics.Config         `json:"metrics"`
	HTTP      HTTPConfig             `json:"http"`
	Logging   LoggingConfig          `json:"logging"`
	Sentry    SentryConfig           `json:"sentry"`
}

// HTTPConfig configures the endpoint serving /metrics and /api/plan. An
// empty address disables it.
type HTTPConfig struct {
	Address string `json:"address"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults applies the defaults of every section.
func (c *Config) SetDefaults() {
	if c.Graphs.Type == "" {
		c.Graphs.Type = "file"
	}
	c.Routing.SetDefaults()
	c.Scheduler.SetDefaults()
	c.Logging.SetDefaults()
}

// Validate checks every section.
func (c Config) Validate() error {
	if c.Feed.Type == "" {
		return fmt.Errorf("feed.type is required")
	}
	for i, o := range c.Outputs {
		if o.Type == "" {
			return fmt.Errorf("outputs[%d].type is required", i)
		}
	}
	if err := c.Routing.Validate(); err != nil {
		return err
	}
	if err := c.Scheduler.Validate(); err != nil {
		return err
	}
	return c.Logging.Validate()
}
