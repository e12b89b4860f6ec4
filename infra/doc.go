// Package infra contains the adapters behind the planner's interfaces:
// station feeds, road and cycle graphs, plan outputs, MQTT publishing,
// metrics sinks and error monitoring. These packages depend only on the
// interfaces defined in the core packages.
package infra
