// Package classify assigns occupancy categories to stations.
package classify

import (
	"fmt"

	"github.com/kilianp07/rebalance/core/model"
)

// Occupancy thresholds on available_bikes / (available_bikes + available_stands).
// A ratio equal to a threshold belongs to the upper bucket.
const (
	LowThreshold = 0.25
	MidThreshold = 0.5
)

// Classify derives the category, colour and icon of a station. It is pure and
// total for non-negative counts.
func Classify(availableBikes, availableStands int, status model.Status) model.Classification {
	if status.IsClosed() {
		return model.Classification{Category: model.CategoryUnknownClosed, Color: model.ColorGray, Icon: model.IconMaintenance}
	}
	total := availableBikes + availableStands
	if total == 0 {
		return model.Classification{Category: model.CategoryUnknownNoData, Color: model.ColorGray, Icon: model.IconNoData}
	}
	ratio := float64(availableBikes) / float64(total)
	switch {
	case ratio < LowThreshold:
		return model.Classification{Category: model.CategoryDeficitLow, Color: model.ColorRed, Icon: model.IconRed}
	case ratio < MidThreshold:
		return model.Classification{Category: model.CategoryDeficitMid, Color: model.ColorOrange, Icon: model.IconOrange}
	default:
		return model.Classification{Category: model.CategorySurplus, Color: model.ColorGreen, Icon: model.IconGreen}
	}
}

// Annotate validates and classifies every station, returning new values in
// input order. The input slice is left untouched. The first malformed record
// fails the whole call.
func Annotate(stations []model.Station) ([]model.AnnotatedStation, error) {
	out := make([]model.AnnotatedStation, 0, len(stations))
	for i, st := range stations {
		if err := st.Validate(); err != nil {
			return nil, fmt.Errorf("station %d: %w", i, err)
		}
		c := Classify(st.AvailableBikes, st.AvailableBikeStands, st.Status)
		out = append(out, model.AnnotatedStation{
			Station:  st,
			Category: c.Category,
			Color:    c.Color,
			Icon:     c.Icon,
		})
	}
	return out, nil
}
