// Package matching splits classified stations into surplus and deficit pools
// and pairs them for rebalancing.
package matching

import "github.com/kilianp07/rebalance/core/model"

// Partitioned holds the two pools in original input order.
type Partitioned struct {
	Surplus []model.AnnotatedStation
	Deficit []model.AnnotatedStation
}

// Partition performs a stable split of the stations. SURPLUS stations go to
// the surplus pool; DEFICIT_LOW, DEFICIT_MID and the gray categories go to
// the deficit pool.
func Partition(stations []model.AnnotatedStation) Partitioned {
	var p Partitioned
	for _, st := range stations {
		switch st.Category {
		case model.CategorySurplus:
			p.Surplus = append(p.Surplus, st)
		case model.CategoryDeficitLow, model.CategoryDeficitMid,
			model.CategoryUnknownClosed, model.CategoryUnknownNoData:
			p.Deficit = append(p.Deficit, st)
		default:
			// unreachable: Classify is exhaustive over these categories.
		}
	}
	return p
}

// Pair binds one surplus station to one deficit station.
type Pair struct {
	Source model.AnnotatedStation
	Target model.AnnotatedStation
}

// Matching is the outcome of Match.
type Matching struct {
	Pairs []Pair
	// UnmatchedDeficits are deficit stations never reached because the
	// surplus pool ran out.
	UnmatchedDeficits []model.AnnotatedStation
	// UnusedSurplus are surplus stations left over once every deficit was served.
	UnusedSurplus []model.AnnotatedStation
}

// Match walks the deficit pool in order and binds each deficit station to the
// earliest unused surplus station. Matching stops as soon as the surplus pool
// is exhausted. Inputs are not modified.
func Match(surplus, deficit []model.AnnotatedStation) Matching {
	n := min(len(surplus), len(deficit))
	m := Matching{Pairs: make([]Pair, 0, n)}
	next := 0
	for i, d := range deficit {
		if next == len(surplus) {
			m.UnmatchedDeficits = append(m.UnmatchedDeficits, deficit[i:]...)
			break
		}
		m.Pairs = append(m.Pairs, Pair{Source: surplus[next], Target: d})
		next++
	}
	if next < len(surplus) {
		m.UnusedSurplus = append(m.UnusedSurplus, surplus[next:]...)
	}
	return m
}
