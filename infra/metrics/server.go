package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kilianp07/rebalance/infra/logger"
)

// NewServeMux routes /metrics to the default Prometheus gatherer and mounts
// the extra handlers keyed by path.
func NewServeMux(extra map[string]http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	for path, h := range extra {
		mux.Handle(path, h)
	}
	return mux
}

// StartPromServer serves NewServeMux(extra) on addr. It blocks until ctx is
// canceled.
func StartPromServer(ctx context.Context, addr string, extra map[string]http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: NewServeMux(extra), ReadHeaderTimeout: 5 * time.Second}
	log := logger.New("http")
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("http server shutdown: %v", err)
		}
		cancel()
	}()
	log.Infof("serving metrics on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
