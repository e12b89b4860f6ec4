// Package plan exposes the most recent rebalancing plan over HTTP.
package plan

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/kilianp07/rebalance/core/model"
	"github.com/kilianp07/rebalance/pkg/export"
)

// Store keeps the latest completed plan in memory. It is an output.Writer.
type Store struct {
	latest atomic.Pointer[snapshot]
}

type snapshot struct {
	plan *model.RebalancingPlan
	at   time.Time
}

// NewStore returns an empty store.
func NewStore() *Store { return &Store{} }

// Write replaces the stored plan.
func (s *Store) Write(_ context.Context, p *model.RebalancingPlan) error {
	s.latest.Store(&snapshot{plan: p, at: time.Now().UTC()})
	return nil
}

// Latest returns the stored plan and when it was written.
func (s *Store) Latest() (*model.RebalancingPlan, time.Time, bool) {
	snap := s.latest.Load()
	if snap == nil {
		return nil, time.Time{}, false
	}
	return snap.plan, snap.at, true
}

// NewHandler serves GET /api/plan. The optional format query parameter
// selects json (default) or csv. 503 is returned until a cycle completes.
func NewHandler(store *Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		format, err := export.ParseFormat(r.URL.Query().Get("format"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		p, at, ok := store.Latest()
		if !ok {
			http.Error(w, "no plan computed yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Last-Modified", at.Format(http.TimeFormat))
		switch format {
		case export.FormatCSV:
			w.Header().Set("Content-Type", "text/csv")
		default:
			w.Header().Set("Content-Type", "application/json")
		}
		if err := export.Write(w, format, p); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}
