package metrics

import (
	"context"

	coremetrics "github.com/kilianp07/rebalance/core/metrics"
	"github.com/kilianp07/rebalance/core/planner"
	"github.com/kilianp07/rebalance/infra/logger"
	"github.com/kilianp07/rebalance/internal/eventbus"
)

// StartEventCollector subscribes to the cycle bus and records every event
// on the sink. It stops when the context is canceled or the bus closes; the
// returned channel is closed once it has stopped.
func StartEventCollector(ctx context.Context, bus *eventbus.TypedBus[planner.CycleEvent], sink coremetrics.MetricsSink) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	log := logger.New("metrics-collector")
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := sink.RecordCycle(CycleResultOf(ev)); err != nil {
					log.Warnf("record cycle %s: %v", ev.Report.CycleID, err)
				}
				if ev.Plan == nil {
					continue
				}
				if r, ok := sink.(coremetrics.StationStateRecorder); ok {
					if err := r.RecordStationStates(StationStatesOf(ev)); err != nil {
						log.Warnf("record station states: %v", err)
					}
				}
			}
		}
	}()
	return done
}

// CycleResultOf converts a cycle event into a sink record.
func CycleResultOf(ev planner.CycleEvent) coremetrics.CycleResult {
	rep := ev.Report
	res := coremetrics.CycleResult{
		CycleID:            rep.CycleID,
		Outcome:            string(ev.Outcome),
		Duration:           rep.Duration,
		Time:               ev.Time,
		Stations:           rep.Stations,
		Categories:         make(map[string]int, len(rep.Categories)),
		Surplus:            rep.Surplus,
		Deficit:            rep.Deficit,
		Pairs:              rep.Pairs,
		UnmatchedDeficits:  rep.UnmatchedDeficits,
		BikeItineraries:    rep.BikeItineraries,
		VehicleItineraries: rep.VehicleItineraries,
		Fallbacks:          rep.Fallbacks,
		BikeFailures:       rep.BikeFailures,
		VehicleFailures:    rep.VehicleFailures,
	}
	for cat, n := range rep.Categories {
		res.Categories[string(cat)] = n
	}
	if ev.Err != nil {
		res.Reason = ev.Err.Error()
	}
	return res
}

// StationStatesOf flattens the plan stations of a completed cycle.
func StationStatesOf(ev planner.CycleEvent) []coremetrics.StationState {
	if ev.Plan == nil {
		return nil
	}
	out := make([]coremetrics.StationState, 0, len(ev.Plan.Stations))
	for _, st := range ev.Plan.Stations {
		out = append(out, coremetrics.StationState{
			CycleID:         ev.Report.CycleID,
			Number:          st.Number,
			Name:            st.Name,
			Category:        string(st.Category),
			AvailableBikes:  st.AvailableBikes,
			AvailableStands: st.AvailableBikeStands,
			Time:            ev.Time,
		})
	}
	return out
}
