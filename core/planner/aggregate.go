package planner

import (
	"github.com/kilianp07/rebalance/core/model"
	"github.com/kilianp07/rebalance/core/routing"
)

// Aggregate assembles the plan. Itineraries keep pair order; a pair that
// failed on one leg contributes only the other.
func Aggregate(stations []model.AnnotatedStation, results []routing.PairResult) *model.RebalancingPlan {
	plan := model.NewRebalancingPlan(stations)
	for _, r := range results {
		if r.Bike != nil {
			plan.Bike = append(plan.Bike, *r.Bike)
		}
		if r.Vehicle != nil {
			plan.Vehicle = append(plan.Vehicle, *r.Vehicle)
		}
	}
	return plan
}
