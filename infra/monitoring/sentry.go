// Package monitoring reports failed planning cycles to Sentry.
package monitoring

import (
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/kilianp07/rebalance/config"
	coremon "github.com/kilianp07/rebalance/core/monitoring"
)

// NewSentryMonitor initializes the Sentry client. An empty DSN yields a
// NopMonitor.
func NewSentryMonitor(cfg config.SentryConfig) (coremon.Monitor, error) {
	if cfg.DSN == "" {
		return coremon.NopMonitor{}, nil
	}
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		TracesSampleRate: cfg.TracesSampleRate,
		Release:          cfg.Release,
	})
	if err != nil {
		return nil, err
	}
	return &SentryMonitor{hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

// SentryMonitor sends errors through its own hub so that several services
// in one process do not share scope.
type SentryMonitor struct {
	hub *sentry.Hub
}

func (s *SentryMonitor) CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	s.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", "rebalance")
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		s.hub.CaptureException(err)
	})
}

func (s *SentryMonitor) Recover() {
	if r := recover(); r != nil {
		s.hub.Recover(r)
		s.hub.Flush(2 * time.Second)
		panic(r)
	}
}

func (s *SentryMonitor) Flush(timeout time.Duration) { s.hub.Flush(timeout) }
