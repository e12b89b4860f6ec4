// Package plugins links the built-in feeds, graph providers, output writers
// and metrics sinks so that their init functions register them.
package plugins

import (
	_ "github.com/kilianp07/rebalance/infra/feed"
	_ "github.com/kilianp07/rebalance/infra/graph"
	_ "github.com/kilianp07/rebalance/infra/metrics"
	_ "github.com/kilianp07/rebalance/infra/mqtt"
	_ "github.com/kilianp07/rebalance/infra/output"
)
