package planner

import (
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/rebalance/core/model"
)

// Report summarises one cycle.
type Report struct {
	CycleID   string
	StartedAt time.Time
	Duration  time.Duration

	Stations   int
	Categories map[model.Category]int

	Surplus           int
	Deficit           int
	Pairs             int
	UnmatchedDeficits int
	UnusedSurplus     int

	BikeItineraries    int
	VehicleItineraries int
	Fallbacks          int
	BikeFailures       int
	VehicleFailures    int
}

// String renders the status line logged after a successful cycle.
func (r Report) String() string {
	return fmt.Sprintf("stations=%d sources=%d targets=%d pairs=%d unmatched=%d bike=%d vehicle=%d fallbacks=%d bike_failures=%d vehicle_failures=%d duration=%s",
		r.Stations, r.Surplus, r.Deficit, r.Pairs, r.UnmatchedDeficits,
		r.BikeItineraries, r.VehicleItineraries, r.Fallbacks,
		r.BikeFailures, r.VehicleFailures, r.Duration.Round(time.Millisecond))
}

// Outcome labels a cycle result.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// OutcomeOf classifies a RunCycle error.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrSourceUnavailable):
		return OutcomeSkipped
	default:
		return OutcomeFailed
	}
}

// CycleEvent is published once per cycle on the event bus.
// Plan is nil unless the cycle completed.
type CycleEvent struct {
	Report  Report
	Plan    *model.RebalancingPlan
	Outcome Outcome
	Err     error
	Time    time.Time
}

// NewCycleEvent builds the event for a finished cycle.
func NewCycleEvent(r Report, plan *model.RebalancingPlan, err error, at time.Time) CycleEvent {
	return CycleEvent{Report: r, Plan: plan, Outcome: OutcomeOf(err), Err: err, Time: at}
}
