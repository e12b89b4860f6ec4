// Package planner runs one rebalancing cycle: fetch the station snapshot,
// classify and partition it, match surplus to deficit stations, route every
// pair on the cycle and road graphs and aggregate the itineraries into a
// RebalancingPlan. Feeds and graph providers are pluggable through the
// registries in this package.
package planner
